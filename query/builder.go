package query

import (
	"errors"
	"reflect"

	"github.com/NetRube/NetRube.Data/ast"
	"github.com/NetRube/NetRube.Data/schema"
	"github.com/NetRube/NetRube.Data/visitor"
)

// predicate is one Where/WhereOr call, kept unrendered until the builder
// renders so that lazy operands are evaluated per render.
type predicate struct {
	or    bool
	expr  ast.Expr
	col   ast.Column
	op    ast.QueryOp
	value any
	isOp  bool
}

// baseBuilder holds what every statement builder shares: the executor, the
// entity type, the filter and the errors collected while chaining.
type baseBuilder struct {
	ex     Executor
	entity reflect.Type
	where  []predicate
	errs   []error
}

func newBase(ex Executor, entity reflect.Type) baseBuilder {
	return baseBuilder{ex: ex, entity: entity}
}

// AddError records err to be returned when the builder renders.
func (b *baseBuilder) AddError(err error) {
	if err != nil {
		b.errs = append(b.errs, err)
	}
}

// HasErrors returns true if any chained call failed.
func (b *baseBuilder) HasErrors() bool {
	return len(b.errs) > 0
}

// Err joins every recorded error.
func (b *baseBuilder) Err() error {
	return errors.Join(b.errs...)
}

func (b *baseBuilder) addWhere(or bool, e ast.Expr) {
	if e == nil {
		b.AddError(ast.Unsupported("nil predicate"))
		return
	}
	b.where = append(b.where, predicate{or: or, expr: e})
}

func (b *baseBuilder) addWhereOp(or bool, col ast.Column, op ast.QueryOp, value any) {
	b.where = append(b.where, predicate{or: or, col: col, op: op, value: value, isOp: true})
}

func (b *baseBuilder) resolver() *visitor.TableResolver {
	return visitor.NewResolver(b.ex.Profile(), b.ex.Registry())
}

func (b *baseBuilder) meta() (*schema.EntityMeta, error) {
	return b.ex.Registry().Resolve(b.entity)
}

// table returns the escaped table name of the builder's entity.
func (b *baseBuilder) table() (string, error) {
	return tableOf(b.ex, b.entity)
}

func tableOf(ex Executor, t reflect.Type) (string, error) {
	meta, err := ex.Registry().Resolve(t)
	if err != nil {
		return "", err
	}
	return ex.Profile().EscapeTableName(meta.Table.TableName), nil
}

// renderWhere compiles the accumulated predicates into sink and returns the
// condition without the WHERE keyword.
func (b *baseBuilder) renderWhere(sink *[]any, mode visitor.Mode) (string, error) {
	if len(b.where) == 0 {
		return "", nil
	}
	r := b.resolver()
	var w visitor.Where
	for _, p := range b.where {
		var (
			frag string
			err  error
		)
		if p.isOp {
			var col string
			if col, err = r.Column(p.col, mode == visitor.Qualified); err == nil {
				frag, err = visitor.Op(col, p.op, p.value, sink)
			}
		} else {
			frag, err = visitor.Compile(p.expr, r, sink, mode)
		}
		if err != nil {
			return "", err
		}
		if p.or {
			w.Or(frag)
		} else {
			w.And(frag)
		}
	}
	return w.Condition(), nil
}

func entityType[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
