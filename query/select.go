package query

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/NetRube/NetRube.Data/ast"
	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/schema"
	"github.com/NetRube/NetRube.Data/visitor"
)

type join struct {
	kind  ast.JoinType
	table reflect.Type
	on    ast.On
}

type selectItem struct {
	col  ast.Column
	star reflect.Type
}

type orderItem struct {
	col  ast.Column
	desc bool
}

// SelectBuilder assembles a SELECT over entity T.
type SelectBuilder[T any] struct {
	baseBuilder
	joins    []join
	selects  []selectItem
	from     *SelectBuilder[T]
	skip     int64
	take     int64
	orders   []orderItem
	distinct bool

	mapTypes []reflect.Type
	combine  Combiner
}

// Get starts a select over T.
func Get[T any](ex Executor) *SelectBuilder[T] {
	return &SelectBuilder[T]{baseBuilder: newBase(ex, entityType[T]())}
}

// InnerJoin joins the entity of the right-hand column.
func (b *SelectBuilder[T]) InnerJoin(left ast.Column, op ast.BinaryOp, right ast.Column) *SelectBuilder[T] {
	return b.joinEntity(ast.JoinInner, right.Entity, left, op, right)
}

// LeftJoin joins the entity of the right-hand column.
func (b *SelectBuilder[T]) LeftJoin(left ast.Column, op ast.BinaryOp, right ast.Column) *SelectBuilder[T] {
	return b.joinEntity(ast.JoinLeft, right.Entity, left, op, right)
}

// RightJoin joins the entity of the right-hand column.
func (b *SelectBuilder[T]) RightJoin(left ast.Column, op ast.BinaryOp, right ast.Column) *SelectBuilder[T] {
	return b.joinEntity(ast.JoinRight, right.Entity, left, op, right)
}

// JoinOn joins table on a prepared predicate.
func (b *SelectBuilder[T]) JoinOn(kind ast.JoinType, table reflect.Type, on ast.On) *SelectBuilder[T] {
	return b.joinEntity(kind, table, on.Left, on.Op, on.Right)
}

// Join joins TJoin whichever side of the predicate it appears on.
func Join[T, TJoin any](b *SelectBuilder[T], kind ast.JoinType, left ast.Column, op ast.BinaryOp, right ast.Column) *SelectBuilder[T] {
	return b.joinEntity(kind, entityType[TJoin](), left, op, right)
}

func (b *SelectBuilder[T]) joinEntity(kind ast.JoinType, table reflect.Type, left ast.Column, op ast.BinaryOp, right ast.Column) *SelectBuilder[T] {
	on, err := ast.NewOn(left, op, right)
	if err != nil {
		b.AddError(fmt.Errorf("%w: operator %s", ErrInvalidJoin, op))
		return b
	}
	if table == nil {
		b.AddError(fmt.Errorf("%w: no table for join", ErrInvalidJoin))
		return b
	}
	b.joins = append(b.joins, join{kind: kind, table: table, on: on})
	return b
}

// Where adds a predicate joined with AND.
func (b *SelectBuilder[T]) Where(e ast.Expr) *SelectBuilder[T] {
	b.addWhere(false, e)
	return b
}

// WhereOr adds a predicate joined with OR.
func (b *SelectBuilder[T]) WhereOr(e ast.Expr) *SelectBuilder[T] {
	b.addWhere(true, e)
	return b
}

// WhereOp adds (col op value) joined with AND.
func (b *SelectBuilder[T]) WhereOp(col ast.Column, op ast.QueryOp, value any) *SelectBuilder[T] {
	b.addWhereOp(false, col, op, value)
	return b
}

// WhereOrOp adds (col op value) joined with OR.
func (b *SelectBuilder[T]) WhereOrOp(col ast.Column, op ast.QueryOp, value any) *SelectBuilder[T] {
	b.addWhereOp(true, col, op, value)
	return b
}

// Select appends columns to the select list, replacing a previous SelectAll.
func (b *SelectBuilder[T]) Select(cols ...ast.Column) *SelectBuilder[T] {
	for _, c := range cols {
		b.selects = append(b.selects, selectItem{col: c})
	}
	return b
}

// SelectEntity appends {table}.* for the entity type t.
func (b *SelectBuilder[T]) SelectEntity(t reflect.Type) *SelectBuilder[T] {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	b.selects = append(b.selects, selectItem{star: t})
	return b
}

// SelectAll resets the select list to *.
func (b *SelectBuilder[T]) SelectAll() *SelectBuilder[T] {
	b.selects = nil
	return b
}

// From selects from a sub-query aliased as the entity's table.
func (b *SelectBuilder[T]) From(sub *SelectBuilder[T]) *SelectBuilder[T] {
	b.from = sub
	return b
}

// Skip sets the number of rows to skip. It only takes effect together with
// Take; a skip without a take renders a plain select.
func (b *SelectBuilder[T]) Skip(n int64) *SelectBuilder[T] {
	b.skip = n
	return b
}

func (b *SelectBuilder[T]) Take(n int64) *SelectBuilder[T] {
	b.take = n
	return b
}

func (b *SelectBuilder[T]) OrderBy(cols ...ast.Column) *SelectBuilder[T] {
	for _, c := range cols {
		b.orders = append(b.orders, orderItem{col: c})
	}
	return b
}

func (b *SelectBuilder[T]) OrderByDesc(cols ...ast.Column) *SelectBuilder[T] {
	for _, c := range cols {
		b.orders = append(b.orders, orderItem{col: c, desc: true})
	}
	return b
}

func (b *SelectBuilder[T]) Distinct() *SelectBuilder[T] {
	b.distinct = true
	return b
}

// Render produces the statement with a private copy of its arguments.
func (b *SelectBuilder[T]) Render() (Statement, error) {
	var sink []any
	sql, err := b.RenderInto(&sink)
	if err != nil {
		return Statement{}, err
	}
	return Statement{SQL: sql, Args: slices.Clone(sink)}, nil
}

// RenderInto renders the select, appending its arguments to sink. It makes
// a builder usable as an IN sub-query.
func (b *SelectBuilder[T]) RenderInto(sink *[]any) (string, error) {
	c, err := b.clauses(sink)
	if err != nil {
		return "", err
	}
	p := b.ex.Profile()
	if b.take > 0 {
		if b.skip > 0 {
			sql, args, err := p.BuildPagedSQL(b.skip, b.take, c, *sink)
			if err != nil {
				return "", err
			}
			*sink = args
			return sql, nil
		}
		sql, args := p.BuildTopSQL(b.take, c, *sink)
		*sink = args
		return sql, nil
	}
	return fmt.Sprintf("SELECT %s%s FROM %s%s %s%s",
		distinctPrefix(c.Distinct), c.Columns, c.From, c.Joins, c.Where, c.OrderBy), nil
}

func distinctPrefix(d bool) string {
	if d {
		return "DISTINCT "
	}
	return ""
}

func (b *SelectBuilder[T]) clauses(sink *[]any) (dialect.Clauses, error) {
	if b.HasErrors() {
		return dialect.Clauses{}, b.Err()
	}
	r := b.resolver()
	c := dialect.Clauses{Distinct: b.distinct}

	var err error
	if c.Columns, err = b.selectList(r); err != nil {
		return c, err
	}
	if c.From, err = b.fromClause(sink); err != nil {
		return c, err
	}
	if c.Joins, err = b.joinClause(r); err != nil {
		return c, err
	}
	cond, err := b.renderWhere(sink, visitor.Qualified)
	if err != nil {
		return c, err
	}
	if cond != "" {
		c.Where = "WHERE " + cond
	}
	if c.OrderBy, err = b.orderClause(r); err != nil {
		return c, err
	}
	return c, nil
}

func (b *SelectBuilder[T]) selectList(r visitor.Resolver) (string, error) {
	if len(b.selects) == 0 {
		return "*", nil
	}
	parts := make([]string, 0, len(b.selects))
	for _, s := range b.selects {
		if s.star != nil {
			t, err := tableOf(b.ex, s.star)
			if err != nil {
				return "", err
			}
			parts = append(parts, t+".*")
			continue
		}
		name, err := r.Column(s.col, true)
		if err != nil {
			return "", err
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", "), nil
}

func (b *SelectBuilder[T]) fromClause(sink *[]any) (string, error) {
	table, err := b.table()
	if err != nil {
		return "", err
	}
	if b.from == nil {
		return table, nil
	}
	sub, err := b.from.RenderInto(sink)
	if err != nil {
		return "", err
	}
	return "(" + sub + ") " + table, nil
}

func (b *SelectBuilder[T]) joinClause(r visitor.Resolver) (string, error) {
	var sb strings.Builder
	for _, j := range b.joins {
		table, err := tableOf(b.ex, j.table)
		if err != nil {
			return "", err
		}
		left, err := r.Column(j.on.Left, true)
		if err != nil {
			return "", err
		}
		right, err := r.Column(j.on.Right, true)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&sb, " %s %s ON %s %s %s", j.kind.Keyword(), table, left, j.on.Op.Token(), right)
	}
	return sb.String(), nil
}

func (b *SelectBuilder[T]) orderClause(r visitor.Resolver) (string, error) {
	if len(b.orders) == 0 {
		return "", nil
	}
	var sb strings.Builder
	sb.WriteString(" ORDER BY ")
	for i, o := range b.orders {
		if i > 0 {
			sb.WriteString(", ")
		}
		name, err := r.Column(o.col, true)
		if err != nil {
			return "", err
		}
		sb.WriteString(name)
		if o.desc {
			sb.WriteString(" DESC")
		}
	}
	return sb.String(), nil
}

// Count returns the number of rows the select matches, ignoring paging
// and ordering.
func (b *SelectBuilder[T]) Count(ctx context.Context) (int64, error) {
	var sink []any
	c, err := b.clauses(&sink)
	if err != nil {
		return 0, err
	}
	var sql string
	if b.distinct {
		sql = fmt.Sprintf("SELECT COUNT(*) FROM (SELECT DISTINCT %s FROM %s%s %s) t", c.Columns, c.From, c.Joins, c.Where)
	} else {
		sql = fmt.Sprintf("SELECT COUNT(*) FROM %s%s %s", c.From, c.Joins, c.Where)
	}
	v, err := b.ex.ExecuteScalar(ctx, sql, sink...)
	if err != nil {
		return 0, err
	}
	return toInt64(v)
}

// Exists reports whether any row matches the filter.
func (b *SelectBuilder[T]) Exists(ctx context.Context) (bool, error) {
	if b.HasErrors() {
		return false, b.Err()
	}
	var sink []any
	table, err := b.table()
	if err != nil {
		return false, err
	}
	cond, err := b.renderWhere(&sink, visitor.Qualified)
	if err != nil {
		return false, err
	}
	if cond == "" {
		cond = "1=1"
	}
	v, err := b.ex.ExecuteScalar(ctx, fmt.Sprintf(b.ex.Profile().ExistsTemplate(), table, cond), sink...)
	if err != nil {
		return false, err
	}
	n, err := toInt64(v)
	return n != 0, err
}

func (b *SelectBuilder[T]) Sum(ctx context.Context, col ast.Column) (any, error) {
	return b.aggregate(ctx, "SUM", col)
}

func (b *SelectBuilder[T]) Max(ctx context.Context, col ast.Column) (any, error) {
	return b.aggregate(ctx, "MAX", col)
}

func (b *SelectBuilder[T]) Min(ctx context.Context, col ast.Column) (any, error) {
	return b.aggregate(ctx, "MIN", col)
}

func (b *SelectBuilder[T]) aggregate(ctx context.Context, fn string, col ast.Column) (any, error) {
	var sink []any
	c, err := b.clauses(&sink)
	if err != nil {
		return nil, err
	}
	name, err := b.resolver().Column(col, true)
	if err != nil {
		return nil, err
	}
	sql := fmt.Sprintf("SELECT %s(%s) FROM %s%s %s", fn, name, c.From, c.Joins, c.Where)
	return b.ex.ExecuteScalar(ctx, sql, sink...)
}

// ToList runs the select and collects every row.
func (b *SelectBuilder[T]) ToList(ctx context.Context) ([]T, error) {
	st, err := b.Render()
	if err != nil {
		return nil, err
	}
	var out []T
	for v, err := range b.rows(ctx, st) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FirstOrDefault returns the first row, or false when there is none.
func (b *SelectBuilder[T]) FirstOrDefault(ctx context.Context) (T, bool, error) {
	var zero T
	q := b
	// A combiner may fold several rows into one result.
	if b.mapTypes == nil {
		c := *b
		c.take = 1
		q = &c
	}
	st, err := q.Render()
	if err != nil {
		return zero, false, err
	}
	for v, err := range q.rows(ctx, st) {
		if err != nil {
			return zero, false, err
		}
		return v, true, nil
	}
	return zero, false, nil
}

func (b *SelectBuilder[T]) rows(ctx context.Context, st Statement) func(yield func(T, error) bool) {
	return func(yield func(T, error) bool) {
		var zero T
		if b.mapTypes != nil {
			for v, err := range b.ex.QueryMulti(ctx, b.mapTypes, b.combine, st.SQL, st.Args) {
				if err != nil {
					yield(zero, err)
					return
				}
				p, ok := v.(*T)
				if !ok {
					yield(zero, fmt.Errorf("netrube: combiner returned %T, want *%s", v, b.entity))
					return
				}
				if !yield(*p, nil) {
					return
				}
			}
			return
		}
		for v, err := range b.ex.QueryRows(ctx, b.entity, st.SQL, st.Args) {
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v.(T), nil) {
				return
			}
		}
	}
}

// ToPagedList counts, clamps pageIndex into [1, pages] and fetches that
// page.
func (b *SelectBuilder[T]) ToPagedList(ctx context.Context, pageIndex, pageSize int64) (*PagedList[T], error) {
	if pageSize <= 0 {
		return nil, ErrInvalidPageSize
	}
	count, err := b.Count(ctx)
	if err != nil {
		return nil, err
	}
	list := &PagedList[T]{PageIndex: pageIndex, PageSize: pageSize, TotalCount: count}
	if count == 0 {
		return list, nil
	}
	pages := TotalPages(count, pageSize)
	list.PageIndex = min(max(pageIndex, 1), pages)

	q := *b
	q.take = pageSize
	q.skip = (list.PageIndex - 1) * pageSize
	if list.Items, err = q.ToList(ctx); err != nil {
		return nil, err
	}
	return list, nil
}

// ToPage is ToPagedList shaped as a Page.
func (b *SelectBuilder[T]) ToPage(ctx context.Context, pageIndex, pageSize int64) (*Page[T], error) {
	list, err := b.ToPagedList(ctx, pageIndex, pageSize)
	if err != nil {
		return nil, err
	}
	return list.ToPage(), nil
}

func toInt64(v any) (int64, error) {
	var n int64
	if err := schema.Assign(reflect.ValueOf(&n).Elem(), v); err != nil {
		return 0, err
	}
	return n, nil
}
