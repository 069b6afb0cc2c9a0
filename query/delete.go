package query

import (
	"context"

	"github.com/NetRube/NetRube.Data/ast"
	"github.com/NetRube/NetRube.Data/visitor"
)

// DeleteBuilder assembles a DELETE from entity T's table.
type DeleteBuilder[T any] struct {
	baseBuilder
}

// Delete starts a delete from T's table.
func Delete[T any](ex Executor) *DeleteBuilder[T] {
	return &DeleteBuilder[T]{baseBuilder: newBase(ex, entityType[T]())}
}

func (b *DeleteBuilder[T]) Where(e ast.Expr) *DeleteBuilder[T] {
	b.addWhere(false, e)
	return b
}

func (b *DeleteBuilder[T]) WhereOr(e ast.Expr) *DeleteBuilder[T] {
	b.addWhere(true, e)
	return b
}

func (b *DeleteBuilder[T]) WhereOp(col ast.Column, op ast.QueryOp, value any) *DeleteBuilder[T] {
	b.addWhereOp(false, col, op, value)
	return b
}

func (b *DeleteBuilder[T]) WhereOrOp(col ast.Column, op ast.QueryOp, value any) *DeleteBuilder[T] {
	b.addWhereOp(true, col, op, value)
	return b
}

// Render produces DELETE FROM {table} {where}.
func (b *DeleteBuilder[T]) Render() (Statement, error) {
	if b.HasErrors() {
		return Statement{}, b.Err()
	}
	table, err := b.table()
	if err != nil {
		return Statement{}, err
	}
	var sink []any
	cond, err := b.renderWhere(&sink, visitor.Bare)
	if err != nil {
		return Statement{}, err
	}
	sql := "DELETE FROM " + table
	if cond != "" {
		sql += " WHERE " + cond
	}
	return Statement{SQL: sql, Args: sink}, nil
}

// Execute runs the delete. A delete without a filter is never sent and
// returns 0.
func (b *DeleteBuilder[T]) Execute(ctx context.Context) (int64, error) {
	if len(b.where) == 0 && !b.HasErrors() {
		return 0, nil
	}
	st, err := b.Render()
	if err != nil {
		return 0, err
	}
	return b.ex.Execute(ctx, st.SQL, st.Args...)
}

// Succeed reports whether the delete removed at least one row.
func (b *DeleteBuilder[T]) Succeed(ctx context.Context) (bool, error) {
	n, err := b.Execute(ctx)
	return n > 0, err
}
