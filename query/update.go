package query

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/NetRube/NetRube.Data/ast"
	"github.com/NetRube/NetRube.Data/schema"
	"github.com/NetRube/NetRube.Data/visitor"
)

type assignment struct {
	field string
	value any
	expr  ast.Expr
}

// UpdateBuilder assembles an UPDATE of entity T's table.
type UpdateBuilder[T any] struct {
	baseBuilder
	sets []assignment
}

// Update starts an update of T's table.
func Update[T any](ex Executor) *UpdateBuilder[T] {
	return &UpdateBuilder[T]{baseBuilder: newBase(ex, entityType[T]())}
}

// Set assigns value to the column of field. field may be a Go field name or
// a column name.
func (b *UpdateBuilder[T]) Set(field string, value any) *UpdateBuilder[T] {
	b.sets = append(b.sets, assignment{field: field, value: value})
	return b
}

// SetExpr assigns the result of an expression, as in SET hits = hits + 1.
func (b *UpdateBuilder[T]) SetExpr(field string, e ast.Expr) *UpdateBuilder[T] {
	if e == nil {
		b.AddError(ast.Unsupported("nil assignment for " + field))
		return b
	}
	b.sets = append(b.sets, assignment{field: field, expr: e})
	return b
}

// SetChanges assigns every tracked change.
func (b *UpdateBuilder[T]) SetChanges(changes []schema.Change) *UpdateBuilder[T] {
	for _, c := range changes {
		b.sets = append(b.sets, assignment{field: c.Column, value: c.Value})
	}
	return b
}

// SetDiff assigns the columns of entity that differ from refer.
func (b *UpdateBuilder[T]) SetDiff(entity, refer *T) *UpdateBuilder[T] {
	changes, err := b.ex.Registry().Diff(entity, refer)
	if err != nil {
		b.AddError(err)
		return b
	}
	return b.SetChanges(changes)
}

func (b *UpdateBuilder[T]) Where(e ast.Expr) *UpdateBuilder[T] {
	b.addWhere(false, e)
	return b
}

func (b *UpdateBuilder[T]) WhereOr(e ast.Expr) *UpdateBuilder[T] {
	b.addWhere(true, e)
	return b
}

func (b *UpdateBuilder[T]) WhereOp(col ast.Column, op ast.QueryOp, value any) *UpdateBuilder[T] {
	b.addWhereOp(false, col, op, value)
	return b
}

func (b *UpdateBuilder[T]) WhereOrOp(col ast.Column, op ast.QueryOp, value any) *UpdateBuilder[T] {
	b.addWhereOp(true, col, op, value)
	return b
}

// Render produces the UPDATE statement. It fails when nothing is set.
func (b *UpdateBuilder[T]) Render() (Statement, error) {
	if b.HasErrors() {
		return Statement{}, b.Err()
	}
	if len(b.sets) == 0 {
		return Statement{}, fmt.Errorf("netrube: update of %s sets no columns", b.entity)
	}
	meta, err := b.meta()
	if err != nil {
		return Statement{}, err
	}
	p := b.ex.Profile()
	r := b.resolver()

	var sink []any
	var sb strings.Builder
	fmt.Fprintf(&sb, "UPDATE %s SET ", p.EscapeTableName(meta.Table.TableName))
	for i, s := range b.sets {
		f, err := meta.Resolve(s.field)
		if err != nil {
			return Statement{}, err
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.EscapeIdentifier(f.Column.ColumnName))
		sb.WriteString(" = ")
		if s.expr != nil {
			frag, err := visitor.Compile(s.expr, r, &sink, visitor.Assign)
			if err != nil {
				return Statement{}, err
			}
			sb.WriteString(frag)
			continue
		}
		sb.WriteByte('@')
		sb.WriteString(strconv.Itoa(len(sink)))
		sink = append(sink, s.value)
	}

	cond, err := b.renderWhere(&sink, visitor.Bare)
	if err != nil {
		return Statement{}, err
	}
	if cond != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(cond)
	}
	return Statement{SQL: sb.String(), Args: slices.Clip(sink)}, nil
}

// Execute runs the update and returns the affected row count. Nothing is
// sent when no column is set.
func (b *UpdateBuilder[T]) Execute(ctx context.Context) (int64, error) {
	if len(b.sets) == 0 && !b.HasErrors() {
		return 0, nil
	}
	st, err := b.Render()
	if err != nil {
		return 0, err
	}
	return b.ex.Execute(ctx, st.SQL, st.Args...)
}

// Succeed reports whether the update affected at least one row.
func (b *UpdateBuilder[T]) Succeed(ctx context.Context) (bool, error) {
	n, err := b.Execute(ctx)
	return n > 0, err
}
