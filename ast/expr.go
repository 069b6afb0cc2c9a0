// Package ast holds the closed set of expression nodes that predicates,
// projections, orderings and assignments are built from.
package ast

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupportedExpression is returned for constructs the compiler cannot
// translate to SQL.
var ErrUnsupportedExpression = errors.New("netrube: unsupported expression")

// UnsupportedError names the construct that could not be translated.
type UnsupportedError struct {
	Construct string
}

func (e *UnsupportedError) Error() string {
	return "netrube: unsupported expression: " + e.Construct
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupportedExpression }

func unsupported(format string, args ...any) error {
	return &UnsupportedError{Construct: fmt.Sprintf(format, args...)}
}

// Unsupported builds the error returned for an untranslatable construct.
func Unsupported(construct string) error {
	return &UnsupportedError{Construct: construct}
}

type Kind int

const (
	KindColumn Kind = iota
	KindValue
	KindLazy
	KindBinary
	KindUnary
	KindCall
	KindSubquery
)

// Expr is implemented only by the node types of this package.
type Expr interface {
	Kind() Kind
	expr()
}

// Renderer is a query that can render itself into a parent's parameter
// sink, as an IN sub-query does.
type Renderer interface {
	RenderInto(sink *[]any) (string, error)
}

// Column references a mapped field of an entity type.
type Column struct {
	Entity reflect.Type
	Field  string
}

// Value is a constant that becomes a bound parameter.
type Value struct {
	V any
}

// Lazy is evaluated when the expression is compiled, once per compilation.
type Lazy struct {
	Fn func() any
}

type Binary struct {
	Op   BinaryOp
	L, R Expr
}

type Unary struct {
	Op UnaryOp
	X  Expr
}

// Call is one of the recognised method calls. Recv is the receiver; Args
// are the call arguments.
type Call struct {
	Method Method
	Recv   Expr
	Args   []Expr
}

// Subquery embeds another query; its parameters share the outer sink.
type Subquery struct {
	Source Renderer
}

func (Column) Kind() Kind   { return KindColumn }
func (Value) Kind() Kind    { return KindValue }
func (Lazy) Kind() Kind     { return KindLazy }
func (Binary) Kind() Kind   { return KindBinary }
func (Unary) Kind() Kind    { return KindUnary }
func (Call) Kind() Kind     { return KindCall }
func (Subquery) Kind() Kind { return KindSubquery }

func (Column) expr()   {}
func (Value) expr()    {}
func (Lazy) expr()     {}
func (Binary) expr()   {}
func (Unary) expr()    {}
func (Call) expr()     {}
func (Subquery) expr() {}

// F references field of entity type T.
func F[T any](field string) Column {
	return Column{Entity: reflect.TypeOf((*T)(nil)).Elem(), Field: field}
}

// Col references field of the entity type t.
func Col(t reflect.Type, field string) Column {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return Column{Entity: t, Field: field}
}

func V(v any) Value { return Value{V: v} }

// Deferred wraps fn so that it is evaluated at compile time.
func Deferred(fn func() any) Lazy { return Lazy{Fn: fn} }

// operand lifts a plain Go value to an expression node.
func operand(x any) Expr {
	switch v := x.(type) {
	case Expr:
		return v
	case func() any:
		return Lazy{Fn: v}
	case Renderer:
		return Subquery{Source: v}
	}
	return Value{V: x}
}

func bin(op BinaryOp, l, r any) Binary { return Binary{Op: op, L: operand(l), R: operand(r)} }

func Eq(l, r any) Binary  { return bin(OpEqual, l, r) }
func Ne(l, r any) Binary  { return bin(OpNotEqual, l, r) }
func Gt(l, r any) Binary  { return bin(OpGreaterThan, l, r) }
func Ge(l, r any) Binary  { return bin(OpGreaterThanOrEqual, l, r) }
func Lt(l, r any) Binary  { return bin(OpLessThan, l, r) }
func Le(l, r any) Binary  { return bin(OpLessThanOrEqual, l, r) }
func Add(l, r any) Binary { return bin(OpAdd, l, r) }
func Sub(l, r any) Binary { return bin(OpSubtract, l, r) }
func Mul(l, r any) Binary { return bin(OpMultiply, l, r) }
func Div(l, r any) Binary { return bin(OpDivide, l, r) }
func Mod(l, r any) Binary { return bin(OpModulo, l, r) }

// Bin builds a binary node from an operator.
func Bin(op BinaryOp, l, r any) Binary { return bin(op, l, r) }

// And folds its operands left to right. A single operand is returned as is.
func And(first Expr, rest ...Expr) Expr { return fold(OpAnd, first, rest) }

// Or folds its operands left to right. A single operand is returned as is.
func Or(first Expr, rest ...Expr) Expr { return fold(OpOr, first, rest) }

func fold(op BinaryOp, first Expr, rest []Expr) Expr {
	acc := first
	for _, e := range rest {
		acc = Binary{Op: op, L: acc, R: e}
	}
	return acc
}

func Not(x Expr) Unary { return Unary{Op: UnaryNot, X: x} }
func Neg(x any) Unary  { return Unary{Op: UnaryNegate, X: operand(x)} }

// Cast is a conversion that compiles to its operand.
func Cast(x any) Unary { return Unary{Op: UnaryCast, X: operand(x)} }

func Contains(c Column, v any) Call {
	return Call{Method: MethodContains, Recv: c, Args: []Expr{operand(v)}}
}

func StartsWith(c Column, v any) Call {
	return Call{Method: MethodStartsWith, Recv: c, Args: []Expr{operand(v)}}
}

func EndsWith(c Column, v any) Call {
	return Call{Method: MethodEndsWith, Recv: c, Args: []Expr{operand(v)}}
}

// In tests c against a collection. values may be a slice, an array, or a
// Renderer for a sub-query.
func In(c Column, values any) Call {
	return Call{Method: MethodIn, Recv: c, Args: []Expr{operand(values)}}
}

// InQuery tests c against the rows of q.
func InQuery(c Column, q Renderer) Call {
	return Call{Method: MethodIn, Recv: c, Args: []Expr{Subquery{Source: q}}}
}

// ToString evaluates x and binds its string form.
func ToString(x any) Call {
	return Call{Method: MethodToString, Recv: operand(x)}
}

// MethodCall builds a call node from a method name, validating its shape.
func MethodCall(name string, recv any, args ...any) (Expr, error) {
	m, err := ParseMethod(name)
	if err != nil {
		return nil, err
	}
	call := Call{Method: m, Recv: operand(recv)}
	for _, a := range args {
		call.Args = append(call.Args, operand(a))
	}
	switch m {
	case MethodToString:
		if len(call.Args) != 0 {
			return nil, unsupported("%s with %d arguments", m, len(call.Args))
		}
	default:
		if _, ok := call.Recv.(Column); !ok {
			return nil, unsupported("%s on a non-column receiver", m)
		}
		if len(call.Args) != 1 {
			return nil, unsupported("%s with %d arguments", m, len(call.Args))
		}
	}
	return call, nil
}
