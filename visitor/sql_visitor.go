// Package visitor compiles ast expressions into parameterized SQL fragments.
package visitor

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/NetRube/NetRube.Data/ast"
	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/schema"
)

// Mode selects how columns and binaries are rendered.
type Mode int

const (
	// Qualified renders columns as table.column.
	Qualified Mode = iota
	// Bare renders columns without their table.
	Bare
	// Assign is Bare without parentheses around binaries, for SET clauses.
	Assign
)

// Resolver turns a column reference into escaped SQL text.
type Resolver interface {
	Column(c ast.Column, qualified bool) (string, error)
}

// TableResolver resolves columns through the entity metadata and escapes
// them with a dialect profile.
type TableResolver struct {
	Profile  dialect.Profile
	Registry *schema.Registry
}

func NewResolver(p dialect.Profile, r *schema.Registry) *TableResolver {
	if r == nil {
		r = schema.Default()
	}
	return &TableResolver{Profile: p, Registry: r}
}

// Column implements Resolver. "*" and dotted names pass through unchanged.
func (r *TableResolver) Column(c ast.Column, qualified bool) (string, error) {
	if c.Field == "*" || strings.Contains(c.Field, ".") {
		return c.Field, nil
	}
	if c.Entity == nil {
		return r.Profile.EscapeIdentifier(c.Field), nil
	}
	meta, err := r.Registry.Resolve(c.Entity)
	if err != nil {
		return "", err
	}
	f, err := meta.Resolve(c.Field)
	if err != nil {
		return "", err
	}
	col := r.Profile.EscapeIdentifier(f.Column.ColumnName)
	if !qualified {
		return col, nil
	}
	return r.Profile.EscapeTableName(meta.Table.TableName) + "." + col, nil
}

var visitorPool = sync.Pool{
	New: func() any {
		return &SQLVisitor{}
	},
}

// SQLVisitor renders one expression tree. Instances are pooled; use Compile.
type SQLVisitor struct {
	sb       strings.Builder
	resolver Resolver
	sink     *[]any
	mode     Mode
}

func (v *SQLVisitor) release() {
	v.sb.Reset()
	v.resolver = nil
	v.sink = nil
	visitorPool.Put(v)
}

// Compile renders e, appending its bound values to sink and referring to
// them as @N where N is the sink index.
func Compile(e ast.Expr, r Resolver, sink *[]any, mode Mode) (string, error) {
	v := visitorPool.Get().(*SQLVisitor)
	defer v.release()
	v.resolver, v.sink, v.mode = r, sink, mode
	if err := v.visit(e); err != nil {
		return "", err
	}
	return v.sb.String(), nil
}

func (v *SQLVisitor) visit(e ast.Expr) error {
	switch n := e.(type) {
	case ast.Column:
		return v.visitColumn(n)
	case ast.Value:
		v.bind(n.V)
		return nil
	case ast.Lazy:
		if n.Fn == nil {
			return ast.Unsupported("nil closure")
		}
		v.bind(n.Fn())
		return nil
	case ast.Binary:
		return v.visitBinary(n)
	case ast.Unary:
		return v.visitUnary(n)
	case ast.Call:
		return v.visitCall(n)
	case ast.Subquery:
		return v.visitSubquery(n)
	case nil:
		return ast.Unsupported("nil expression")
	}
	return ast.Unsupported(fmt.Sprintf("%T", e))
}

func (v *SQLVisitor) bind(val any) {
	v.sb.WriteByte('@')
	v.sb.WriteString(strconv.Itoa(len(*v.sink)))
	*v.sink = append(*v.sink, val)
}

func (v *SQLVisitor) visitColumn(c ast.Column) error {
	name, err := v.resolver.Column(c, v.mode == Qualified)
	if err != nil {
		return err
	}
	v.sb.WriteString(name)
	return nil
}

func (v *SQLVisitor) visitBinary(b ast.Binary) error {
	tok := b.Op.Token()
	if tok == "" {
		return ast.Unsupported(b.Op.String())
	}
	paren := v.mode != Assign
	if paren {
		v.sb.WriteByte('(')
	}
	if err := v.visit(b.L); err != nil {
		return err
	}
	v.sb.WriteByte(' ')
	v.sb.WriteString(tok)
	v.sb.WriteByte(' ')
	if err := v.visit(b.R); err != nil {
		return err
	}
	if paren {
		v.sb.WriteByte(')')
	}
	return nil
}

func (v *SQLVisitor) visitUnary(u ast.Unary) error {
	switch u.Op {
	case ast.UnaryNot:
		v.sb.WriteString("(NOT ")
	case ast.UnaryNegate:
		v.sb.WriteString("(-")
	case ast.UnaryCast:
		return v.visit(u.X)
	default:
		return ast.Unsupported(u.Op.String())
	}
	if err := v.visit(u.X); err != nil {
		return err
	}
	v.sb.WriteByte(')')
	return nil
}

func (v *SQLVisitor) visitCall(c ast.Call) error {
	switch c.Method {
	case ast.MethodToString:
		val, err := evaluate(c.Recv)
		if err != nil {
			return err
		}
		v.bind(fmt.Sprint(val))
		return nil
	case ast.MethodContains, ast.MethodStartsWith, ast.MethodEndsWith:
		if len(c.Args) != 1 {
			return ast.Unsupported(c.Method.String() + " arity")
		}
		val, err := evaluate(c.Args[0])
		if err != nil {
			return err
		}
		v.sb.WriteByte('(')
		if err := v.visit(c.Recv); err != nil {
			return err
		}
		v.sb.WriteString(" LIKE ")
		v.bind(ast.LikePattern(likeOp(c.Method), val))
		v.sb.WriteByte(')')
		return nil
	case ast.MethodIn:
		if len(c.Args) != 1 {
			return ast.Unsupported("In arity")
		}
		v.sb.WriteByte('(')
		if err := v.visit(c.Recv); err != nil {
			return err
		}
		v.sb.WriteString(" IN (")
		if sub, ok := c.Args[0].(ast.Subquery); ok {
			if err := v.visitSubqueryBody(sub); err != nil {
				return err
			}
		} else {
			val, err := evaluate(c.Args[0])
			if err != nil {
				return err
			}
			if !isCollection(val) {
				return ast.Unsupported(fmt.Sprintf("In over %T", val))
			}
			v.bind(val)
		}
		v.sb.WriteString("))")
		return nil
	}
	return ast.Unsupported(c.Method.String())
}

func (v *SQLVisitor) visitSubquery(s ast.Subquery) error {
	v.sb.WriteByte('(')
	if err := v.visitSubqueryBody(s); err != nil {
		return err
	}
	v.sb.WriteByte(')')
	return nil
}

func (v *SQLVisitor) visitSubqueryBody(s ast.Subquery) error {
	if s.Source == nil {
		return ast.Unsupported("nil sub-query")
	}
	sql, err := s.Source.RenderInto(v.sink)
	if err != nil {
		return err
	}
	v.sb.WriteString(sql)
	return nil
}

func likeOp(m ast.Method) ast.QueryOp {
	switch m {
	case ast.MethodStartsWith:
		return ast.LikeStartsWith
	case ast.MethodEndsWith:
		return ast.LikeEndsWith
	}
	return ast.LikeContains
}

// evaluate reduces a constant subtree to its Go value.
func evaluate(e ast.Expr) (any, error) {
	switch n := e.(type) {
	case ast.Value:
		return n.V, nil
	case ast.Lazy:
		if n.Fn == nil {
			return nil, ast.Unsupported("nil closure")
		}
		return n.Fn(), nil
	case ast.Unary:
		if n.Op == ast.UnaryCast {
			return evaluate(n.X)
		}
	}
	return nil, ast.Unsupported(fmt.Sprintf("evaluation of %T", e))
}

func isCollection(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice:
		return rv.Type().Elem().Kind() != reflect.Uint8
	case reflect.Array:
		return true
	}
	return false
}
