package query

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandParams(t *testing.T) {
	type filter struct {
		Name string
		IDs  []int
	}

	tests := []struct {
		name     string
		sql      string
		args     []any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "index reorders",
			sql:      "a = @1 AND b = @0 AND c = @1",
			args:     []any{"x", "y"},
			wantSQL:  "a = @0 AND b = @1 AND c = @2",
			wantArgs: []any{"y", "x", "y"},
		},
		{
			name:     "struct field",
			sql:      "name = @Name",
			args:     []any{filter{Name: "ann"}},
			wantSQL:  "name = @0",
			wantArgs: []any{"ann"},
		},
		{
			name:     "map key and named arg",
			sql:      "a = @a AND b = @b",
			args:     []any{map[string]any{"a": 1}, sql.Named("b", 2)},
			wantSQL:  "a = @0 AND b = @1",
			wantArgs: []any{1, 2},
		},
		{
			name:     "collection expands",
			sql:      "id IN (@IDs)",
			args:     []any{&filter{IDs: []int{4, 5, 6}}},
			wantSQL:  "id IN (@0,@1,@2)",
			wantArgs: []any{4, 5, 6},
		},
		{
			name:     "bytes and strings stay whole",
			sql:      "a = @0 AND b = @1",
			args:     []any{[]byte("ab"), "cd"},
			wantSQL:  "a = @0 AND b = @1",
			wantArgs: []any{[]byte("ab"), "cd"},
		},
		{
			name:     "double at is kept",
			sql:      "SELECT @@IDENTITY, @0",
			args:     []any{1},
			wantSQL:  "SELECT @@IDENTITY, @0",
			wantArgs: []any{1},
		},
		{
			name:    "no parameters",
			sql:     "SELECT 1",
			wantSQL: "SELECT 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, args, err := ExpandParams(tt.sql, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestExpandParamsErrors(t *testing.T) {
	_, _, err := ExpandParams("a = @2", []any{1})
	assert.ErrorIs(t, err, ErrParamIndex)

	_, _, err = ExpandParams("a = @missing", []any{struct{ Name string }{"x"}})
	assert.ErrorIs(t, err, ErrParamName)
	assert.Contains(t, err.Error(), "@missing")
}

func TestSqlMergeRule(t *testing.T) {
	s := NewSql("SELECT *").
		From("articles").
		Where("date_created < @0", 10).
		Where("title LIKE @0", "a%").
		OrderBy("date_created").
		OrderBy("title DESC")

	got, args, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT *\nFROM articles\nWHERE (date_created < @0)\nAND (title LIKE @1)\nORDER BY date_created\n, title DESC", got)
	assert.Equal(t, []any{10, "a%"}, args)
}

func TestSqlJoinsAndGroupBy(t *testing.T) {
	s := NewSql("").
		Select("a.id", "COUNT(*)").
		From("a").
		InnerJoin("b").On("b.a_id = a.id AND b.kind = @0", 3).
		LeftJoin("c").On("c.id = b.c_id").
		GroupBy("a.id")

	st, err := s.Statement()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a.id, COUNT(*)\nFROM a\nINNER JOIN b\nON b.a_id = a.id AND b.kind = @0\nLEFT JOIN c\nON c.id = b.c_id\nGROUP BY a.id", st.SQL)
	assert.Equal(t, []any{3}, st.Args)
}

func TestSqlAppendSqlAndEmptyFragments(t *testing.T) {
	where := NewSql("WHERE a = @0", 1)
	s := NewSql("SELECT * FROM t").Append("").AppendSql(where).Append("WHERE b = @0", 2)

	got, args, err := s.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM t\nWHERE a = @0\nAND b = @1", got)
	assert.Equal(t, []any{1, 2}, args)

	_, _, err = NewSql("a = @3", 1).Build()
	assert.ErrorIs(t, err, ErrParamIndex)
}
