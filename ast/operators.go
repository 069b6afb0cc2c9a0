package ast

import (
	"fmt"
	"strings"
)

// BinaryOp is the closed set of binary operators an expression may use.
type BinaryOp int

const (
	OpEqual BinaryOp = iota
	OpNotEqual
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpAnd
	OpOr
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpModulo
)

var binaryTokens = [...]string{
	OpEqual:              "=",
	OpNotEqual:           "<>",
	OpGreaterThan:        ">",
	OpGreaterThanOrEqual: ">=",
	OpLessThan:           "<",
	OpLessThanOrEqual:    "<=",
	OpAnd:                "AND",
	OpOr:                 "OR",
	OpAdd:                "+",
	OpSubtract:           "-",
	OpMultiply:           "*",
	OpDivide:             "/",
	OpModulo:             "MOD",
}

// Token returns the SQL token of the operator.
func (op BinaryOp) Token() string {
	if op < 0 || int(op) >= len(binaryTokens) {
		return ""
	}
	return binaryTokens[op]
}

func (op BinaryOp) String() string {
	if t := op.Token(); t != "" {
		return t
	}
	return fmt.Sprintf("BinaryOp(%d)", int(op))
}

// IsComparison reports whether op is one of the six comparison operators
// allowed in a join predicate.
func (op BinaryOp) IsComparison() bool {
	return op >= OpEqual && op <= OpLessThanOrEqual
}

// IsLogical reports whether op combines boolean operands.
func (op BinaryOp) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// ParseOp maps a textual operator to a BinaryOp.
func ParseOp(token string) (BinaryOp, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "=", "==":
		return OpEqual, nil
	case "<>", "!=":
		return OpNotEqual, nil
	case ">":
		return OpGreaterThan, nil
	case ">=":
		return OpGreaterThanOrEqual, nil
	case "<":
		return OpLessThan, nil
	case "<=":
		return OpLessThanOrEqual, nil
	case "AND", "&&":
		return OpAnd, nil
	case "OR", "||":
		return OpOr, nil
	case "+":
		return OpAdd, nil
	case "-":
		return OpSubtract, nil
	case "*":
		return OpMultiply, nil
	case "/":
		return OpDivide, nil
	case "%", "MOD":
		return OpModulo, nil
	}
	return 0, unsupported("operator %q", token)
}

// UnaryOp is the closed set of unary operators.
type UnaryOp int

const (
	UnaryNot UnaryOp = iota
	UnaryNegate
	UnaryCast
)

func (op UnaryOp) String() string {
	switch op {
	case UnaryNot:
		return "NOT"
	case UnaryNegate:
		return "-"
	case UnaryCast:
		return "CAST"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

// Method is the closed set of method calls the compiler understands.
type Method int

const (
	MethodContains Method = iota
	MethodStartsWith
	MethodEndsWith
	MethodIn
	MethodToString
)

var methodNames = map[string]Method{
	"contains":   MethodContains,
	"startswith": MethodStartsWith,
	"endswith":   MethodEndsWith,
	"in":         MethodIn,
	"in_":        MethodIn,
	"tostring":   MethodToString,
}

func (m Method) String() string {
	switch m {
	case MethodContains:
		return "Contains"
	case MethodStartsWith:
		return "StartsWith"
	case MethodEndsWith:
		return "EndsWith"
	case MethodIn:
		return "In"
	case MethodToString:
		return "ToString"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod maps a method name to a Method, case-insensitively.
func ParseMethod(name string) (Method, error) {
	if m, ok := methodNames[strings.ToLower(name)]; ok {
		return m, nil
	}
	return 0, unsupported("method %q", name)
}

// QueryOp is the operator of the (column, operator, value) filter form.
type QueryOp int

const (
	Equal QueryOp = iota
	NotEqual
	GreaterThan
	LessThan
	GreaterThanOrEqual
	LessThanOrEqual
	LikeContains
	LikeStartsWith
	LikeEndsWith
)

// Token returns the spaced SQL token of the filter operator.
func (op QueryOp) Token() (string, error) {
	switch op {
	case Equal:
		return " = ", nil
	case NotEqual:
		return " <> ", nil
	case GreaterThan:
		return " > ", nil
	case LessThan:
		return " < ", nil
	case GreaterThanOrEqual:
		return " >= ", nil
	case LessThanOrEqual:
		return " <= ", nil
	case LikeContains, LikeStartsWith, LikeEndsWith:
		return " LIKE ", nil
	}
	return "", unsupported("query operator %d", int(op))
}

// LikePattern wraps v for a LIKE comparison of the given kind after
// trimming any wildcards already present.
func LikePattern(op QueryOp, v any) any {
	s := strings.Trim(fmt.Sprint(v), "%")
	switch op {
	case LikeContains:
		return "%" + s + "%"
	case LikeStartsWith:
		return s + "%"
	case LikeEndsWith:
		return "%" + s
	}
	return v
}
