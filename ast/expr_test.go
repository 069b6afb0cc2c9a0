package ast

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   int
	Name string
}

func TestColumnConstructors(t *testing.T) {
	c := F[widget]("Name")
	assert.Equal(t, reflect.TypeOf(widget{}), c.Entity)
	assert.Equal(t, "Name", c.Field)
	assert.Equal(t, c, Col(reflect.TypeOf(&widget{}), "Name"))
	assert.Equal(t, KindColumn, c.Kind())
}

func TestOperandLifting(t *testing.T) {
	b := Eq(F[widget]("ID"), 3)
	assert.Equal(t, Value{V: 3}, b.R)

	fn := func() any { return 1 }
	b = Eq(F[widget]("ID"), fn)
	assert.Equal(t, KindLazy, b.R.Kind())

	b = Eq(F[widget]("ID"), F[widget]("Name"))
	assert.Equal(t, KindColumn, b.R.Kind())
}

func TestAndOrFold(t *testing.T) {
	a, b, c := Eq(1, 1), Eq(2, 2), Eq(3, 3)
	assert.Equal(t, Expr(a), And(a))
	assert.Equal(t, Binary{Op: OpAnd, L: Binary{Op: OpAnd, L: a, R: b}, R: c}, And(a, b, c))
	assert.Equal(t, Binary{Op: OpOr, L: a, R: b}, Or(a, b))
}

func TestParseOp(t *testing.T) {
	tests := []struct {
		token string
		want  BinaryOp
	}{
		{"=", OpEqual}, {"==", OpEqual}, {"!=", OpNotEqual}, {"<>", OpNotEqual},
		{">", OpGreaterThan}, {">=", OpGreaterThanOrEqual}, {"<", OpLessThan},
		{"<=", OpLessThanOrEqual}, {"and", OpAnd}, {"OR", OpOr}, {"+", OpAdd},
		{"-", OpSubtract}, {"*", OpMultiply}, {"/", OpDivide}, {"%", OpModulo},
	}
	for _, tt := range tests {
		op, err := ParseOp(tt.token)
		require.NoError(t, err, tt.token)
		assert.Equal(t, tt.want, op, tt.token)
	}

	_, err := ParseOp("^")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedExpression))
	assert.Contains(t, err.Error(), `"^"`)
}

func TestBinaryOpTokens(t *testing.T) {
	assert.Equal(t, "MOD", OpModulo.Token())
	assert.Equal(t, "<>", OpNotEqual.String())
	assert.Equal(t, "", BinaryOp(99).Token())
	assert.True(t, OpLessThanOrEqual.IsComparison())
	assert.False(t, OpAnd.IsComparison())
	assert.True(t, OpOr.IsLogical())
}

func TestMethodCall(t *testing.T) {
	e, err := MethodCall("StartsWith", F[widget]("Name"), "ab")
	require.NoError(t, err)
	assert.Equal(t, Call{Method: MethodStartsWith, Recv: F[widget]("Name"), Args: []Expr{Value{V: "ab"}}}, e)

	_, err = MethodCall("Reverse", F[widget]("Name"))
	assert.ErrorIs(t, err, ErrUnsupportedExpression)
	assert.Contains(t, err.Error(), "Reverse")

	_, err = MethodCall("Contains", "literal", "x")
	assert.ErrorIs(t, err, ErrUnsupportedExpression)

	_, err = MethodCall("In", F[widget]("ID"))
	assert.ErrorIs(t, err, ErrUnsupportedExpression)

	e, err = MethodCall("ToString", 5)
	require.NoError(t, err)
	assert.Equal(t, MethodToString, e.(Call).Method)
}

func TestQueryOpToken(t *testing.T) {
	tok, err := LikeContains.Token()
	require.NoError(t, err)
	assert.Equal(t, " LIKE ", tok)

	tok, err = NotEqual.Token()
	require.NoError(t, err)
	assert.Equal(t, " <> ", tok)

	assert.Equal(t, "%a%", LikePattern(LikeContains, "%a"))
	assert.Equal(t, "a%", LikePattern(LikeStartsWith, "a"))
	assert.Equal(t, "%a", LikePattern(LikeEndsWith, "a%"))
	assert.Equal(t, 5, LikePattern(Equal, 5))
}

func TestJoin(t *testing.T) {
	on, err := NewOn(F[widget]("ID"), OpEqual, F[widget]("ID"))
	require.NoError(t, err)
	assert.Equal(t, OpEqual, on.Op)

	_, err = NewOn(F[widget]("ID"), OpAdd, F[widget]("ID"))
	assert.ErrorIs(t, err, ErrUnsupportedExpression)

	assert.Equal(t, "LEFT JOIN", JoinLeft.Keyword())
	assert.Equal(t, "INNER JOIN", JoinInner.String())
}
