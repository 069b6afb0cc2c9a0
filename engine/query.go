package engine

import (
	"context"
	"fmt"
	"iter"
	"reflect"
	"regexp"
	"strings"

	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/query"
)

var (
	rxSelect = regexp.MustCompile(`(?i)^\s*(SELECT|EXECUTE|CALL)\s`)
	rxFrom   = regexp.MustCompile(`(?i)^\s*FROM\s`)
)

// autoSelectSQL completes a statement for entity type t. A statement that
// already selects is left alone; one starting with FROM gets the column
// list; anything else gets the column list and the table. A leading ';'
// is stripped and turns completion off for that statement.
func (d *Database) autoSelectSQL(t reflect.Type, sqlText string) (string, error) {
	if !d.autoSelect {
		return sqlText, nil
	}
	if strings.HasPrefix(sqlText, ";") {
		return sqlText[1:], nil
	}
	if !isEntity(t) || rxSelect.MatchString(sqlText) {
		return sqlText, nil
	}
	meta, err := d.registry.Resolve(baseType(t))
	if err != nil {
		return "", err
	}
	table := d.profile.EscapeTableName(meta.Table.TableName)
	list := "NULL"
	if cols := meta.QueryColumns(); len(cols) > 0 {
		quoted := make([]string, len(cols))
		for i, c := range cols {
			quoted[i] = table + "." + d.profile.EscapeIdentifier(c)
		}
		list = strings.Join(quoted, ", ")
	}
	if rxFrom.MatchString(sqlText) {
		return "SELECT " + list + " " + sqlText, nil
	}
	return "SELECT " + list + " FROM " + table + " " + sqlText, nil
}

// stream runs a query and hands every scanned row to onRow until it
// returns false. Rows, the command context and the shared connection are
// released before stream returns.
func (d *Database) stream(ctx context.Context, sqlText string, args []any, types []reflect.Type, onRow func(*rowFactory, []any) (bool, error)) (cmd *dialect.Command, err error) {
	cmd, err = d.CreateCommand(sqlText, args...)
	if err != nil {
		return nil, err
	}
	release, err := d.acquire(ctx)
	if err != nil {
		return cmd, err
	}
	defer release()

	ctx, cancel := d.commandContext(ctx, cmd)
	defer cancel()

	d.executing(cmd)
	rows, err := d.runner().QueryContext(ctx, cmd.SQL, cmd.Args...)
	if err != nil {
		return cmd, &CommandError{SQL: cmd.SQL, Err: err}
	}
	defer rows.Close()
	d.executed(cmd)

	columns, err := rows.Columns()
	if err != nil {
		return cmd, &CommandError{SQL: cmd.SQL, Err: err}
	}
	factory, err := d.factoryFor(cmd.SQL, types, columns)
	if err != nil {
		return cmd, err
	}

	buf := getScanBuffers(len(columns))
	defer buf.release()
	for rows.Next() {
		if err := rows.Scan(buf.ptrs...); err != nil {
			return cmd, &CommandError{SQL: cmd.SQL, Err: err}
		}
		more, err := onRow(factory, buf.vals)
		if err != nil || !more {
			return cmd, err
		}
	}
	if err := rows.Err(); err != nil {
		return cmd, &CommandError{SQL: cmd.SQL, Err: err}
	}
	return cmd, nil
}

// QueryRows yields one value of type t per row. The statement is used as
// given.
func (d *Database) QueryRows(ctx context.Context, t reflect.Type, sqlText string, args []any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		cmd, err := d.stream(ctx, sqlText, args, []reflect.Type{t}, func(f *rowFactory, vals []any) (bool, error) {
			v, err := f.value(vals)
			if err != nil {
				return false, err
			}
			return yield(v, nil), nil
		})
		if err = d.except(err, cmd); err != nil {
			yield(nil, err)
		}
	}
}

// QueryMulti splits every row across types and yields what combine makes
// of the parts. Rows combined to nil are skipped; if any row was skipped,
// combine is called once more with every part nil after the last row, and
// a non-nil result is yielded.
func (d *Database) QueryMulti(ctx context.Context, types []reflect.Type, combine query.Combiner, sqlText string, args []any) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if combine == nil {
			auto, err := autoCombiner(types)
			if err != nil {
				if err = d.except(err, nil); err != nil {
					yield(nil, err)
				}
				return
			}
			combine = auto
		}

		var suppressed, stopped bool
		cmd, err := d.stream(ctx, sqlText, args, types, func(f *rowFactory, vals []any) (bool, error) {
			parts, err := f.parts(vals)
			if err != nil {
				return false, err
			}
			res := combine(parts)
			if isNil(res) {
				suppressed = true
				return true, nil
			}
			if !yield(res, nil) {
				stopped = true
				return false, nil
			}
			return true, nil
		})
		if err = d.except(err, cmd); err != nil {
			yield(nil, err)
			return
		}
		if stopped || !suppressed {
			return
		}
		if res := combine(nilParts(types)); !isNil(res) {
			yield(res, nil)
		}
	}
}

// Query streams the rows of a statement as T. Entity statements are
// completed with a select list unless they already have one. The rows and
// the shared connection are released when the loop ends, including on
// break.
func Query[T any](ctx context.Context, d *Database, sqlText string, args ...any) iter.Seq2[T, error] {
	t := reflect.TypeFor[T]()
	return func(yield func(T, error) bool) {
		var zero T
		q, err := d.autoSelectSQL(t, sqlText)
		if err != nil {
			if err = d.except(err, nil); err != nil {
				yield(zero, err)
			}
			return
		}
		for v, err := range d.QueryRows(ctx, t, q, args) {
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

func collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Fetch is Query collected into a slice.
func Fetch[T any](ctx context.Context, d *Database, sqlText string, args ...any) ([]T, error) {
	return collect(Query[T](ctx, d, sqlText, args...))
}

func fetchRaw[T any](ctx context.Context, d *Database, sqlText string, args []any) ([]T, error) {
	t := reflect.TypeFor[T]()
	var out []T
	for v, err := range d.QueryRows(ctx, t, sqlText, args) {
		if err != nil {
			return nil, err
		}
		out = append(out, v.(T))
	}
	return out, nil
}

func (d *Database) splitForPaging(t reflect.Type, sqlText string) (dialect.SQLParts, error) {
	q, err := d.autoSelectSQL(t, sqlText)
	if err != nil {
		return dialect.SQLParts{}, err
	}
	return dialect.SplitSQL(q)
}

// Page fetches page number page (from 1) of perPage rows together with the
// total row count. The count runs the statement's count form with the
// same arguments.
func Page[T any](ctx context.Context, d *Database, page, perPage int64, sqlText string, args ...any) (*query.Page[T], error) {
	if err := checkPage(page, perPage); err != nil {
		return nil, err
	}
	parts, err := d.splitForPaging(reflect.TypeFor[T](), sqlText)
	if err != nil {
		return nil, d.except(err, nil)
	}

	oneTime := d.OneTimeCommandTimeout
	total, err := Scalar[int64](ctx, d, parts.SQLCount, args...)
	if err != nil {
		return nil, err
	}
	d.OneTimeCommandTimeout = oneTime

	items, err := skipTake[T](ctx, d, (page-1)*perPage, perPage, parts, args)
	if err != nil {
		return nil, err
	}
	return &query.Page[T]{
		CurrentPage:  page,
		TotalPages:   query.TotalPages(total, perPage),
		TotalItems:   total,
		ItemsPerPage: perPage,
		Items:        items,
	}, nil
}

func checkPage(page, perPage int64) error {
	if perPage <= 0 {
		return ErrInvalidPageSize
	}
	if page < 1 {
		return ErrInvalidPage
	}
	return nil
}

func skipTake[T any](ctx context.Context, d *Database, skip, take int64, parts dialect.SQLParts, args []any) ([]T, error) {
	q, pageArgs, err := d.profile.BuildPageQuery(skip, take, parts, args)
	if err != nil {
		return nil, d.except(err, nil)
	}
	return fetchRaw[T](ctx, d, q, pageArgs)
}

// SkipTake fetches take rows after skipping skip rows.
func SkipTake[T any](ctx context.Context, d *Database, skip, take int64, sqlText string, args ...any) ([]T, error) {
	parts, err := d.splitForPaging(reflect.TypeFor[T](), sqlText)
	if err != nil {
		return nil, d.except(err, nil)
	}
	return skipTake[T](ctx, d, skip, take, parts, args)
}

// FetchPage fetches the rows of one page without counting the total.
func FetchPage[T any](ctx context.Context, d *Database, page, perPage int64, sqlText string, args ...any) ([]T, error) {
	if err := checkPage(page, perPage); err != nil {
		return nil, err
	}
	return SkipTake[T](ctx, d, (page-1)*perPage, perPage, sqlText, args...)
}

// head reads at most n rows.
func head[T any](ctx context.Context, d *Database, n int, sqlText string, args []any) ([]T, error) {
	var out []T
	for v, err := range Query[T](ctx, d, sqlText, args...) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out, nil
}

// Single returns the only row, failing with ErrNoRows or ErrMultipleRows
// otherwise.
func Single[T any](ctx context.Context, d *Database, sqlText string, args ...any) (T, error) {
	v, ok, err := SingleOrDefault[T](ctx, d, sqlText, args...)
	if err == nil && !ok {
		err = ErrNoRows
	}
	return v, err
}

// SingleOrDefault returns the only row, or false when there is none. More
// than one row fails with ErrMultipleRows.
func SingleOrDefault[T any](ctx context.Context, d *Database, sqlText string, args ...any) (T, bool, error) {
	var zero T
	rows, err := head[T](ctx, d, 2, sqlText, args)
	switch {
	case err != nil:
		return zero, false, err
	case len(rows) > 1:
		return zero, false, ErrMultipleRows
	case len(rows) == 0:
		return zero, false, nil
	}
	return rows[0], true, nil
}

// First returns the first row, failing with ErrNoRows when there is none.
func First[T any](ctx context.Context, d *Database, sqlText string, args ...any) (T, error) {
	v, ok, err := FirstOrDefault[T](ctx, d, sqlText, args...)
	if err == nil && !ok {
		err = ErrNoRows
	}
	return v, err
}

// FirstOrDefault returns the first row, or false when there is none.
func FirstOrDefault[T any](ctx context.Context, d *Database, sqlText string, args ...any) (T, bool, error) {
	var zero T
	rows, err := head[T](ctx, d, 1, sqlText, args)
	if err != nil || len(rows) == 0 {
		return zero, false, err
	}
	return rows[0], true, nil
}

// SingleByKey loads the entity whose primary key is key.
func SingleByKey[T any](ctx context.Context, d *Database, key any) (T, error) {
	var zero T
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}
	pk, err := meta.PrimaryKey()
	if err != nil {
		return zero, err
	}
	return Single[T](ctx, d, fmt.Sprintf("WHERE %s=@0", d.profile.EscapeIdentifier(pk.Column.ColumnName)), key)
}

// Exists reports whether any row of T's table matches condition.
func Exists[T any](ctx context.Context, d *Database, condition string, args ...any) (bool, error) {
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return false, err
	}
	q := fmt.Sprintf(d.profile.ExistsTemplate(), d.profile.EscapeTableName(meta.Table.TableName), condition)
	return Scalar[bool](ctx, d, q, args...)
}

// ExistsByKey reports whether a row with primary key key exists.
func ExistsByKey[T any](ctx context.Context, d *Database, key any) (bool, error) {
	meta, err := d.registry.Resolve(reflect.TypeFor[T]())
	if err != nil {
		return false, err
	}
	pk, err := meta.PrimaryKey()
	if err != nil {
		return false, err
	}
	return Exists[T](ctx, d, fmt.Sprintf("%s=@0", d.profile.EscapeIdentifier(pk.Column.ColumnName)), key)
}
