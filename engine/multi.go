package engine

import (
	"context"
	"fmt"
	"iter"
	"reflect"

	"github.com/NetRube/NetRube.Data/query"
)

// queryMulti runs a multi-entity statement as given and asserts every
// combined result to *R.
func queryMulti[R any](ctx context.Context, d *Database, types []reflect.Type, combine query.Combiner, sqlText string, args []any) iter.Seq2[*R, error] {
	return func(yield func(*R, error) bool) {
		for v, err := range d.QueryMulti(ctx, types, combine, sqlText, args) {
			if err != nil {
				yield(nil, err)
				return
			}
			r, ok := v.(*R)
			if !ok {
				yield(nil, fmt.Errorf("%w: %T, want *%s", ErrCombinerType, v, reflect.TypeFor[R]()))
				return
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// nilable turns a nil *R into an untyped nil, the combiner's signal to
// skip the row.
func nilable[R any](r *R) any {
	if r == nil {
		return nil
	}
	return r
}

// Query2 reads every row as a T1 followed by a T2 and yields fn's result.
// A nil fn attaches the T2 to a field of the T1 and yields the T1, so R
// must then be T1. fn may return nil to skip a row; it is then called once
// more with nil arguments after the last row to flush what it holds.
func Query2[T1, T2, R any](ctx context.Context, d *Database, fn func(*T1, *T2) *R, sqlText string, args ...any) iter.Seq2[*R, error] {
	var combine query.Combiner
	if fn != nil {
		combine = func(p []any) any { return nilable(fn(p[0].(*T1), p[1].(*T2))) }
	}
	types := []reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2]()}
	return queryMulti[R](ctx, d, types, combine, sqlText, args)
}

// Query3 is Query2 for three entities per row.
func Query3[T1, T2, T3, R any](ctx context.Context, d *Database, fn func(*T1, *T2, *T3) *R, sqlText string, args ...any) iter.Seq2[*R, error] {
	var combine query.Combiner
	if fn != nil {
		combine = func(p []any) any { return nilable(fn(p[0].(*T1), p[1].(*T2), p[2].(*T3))) }
	}
	types := []reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2](), reflect.TypeFor[T3]()}
	return queryMulti[R](ctx, d, types, combine, sqlText, args)
}

// Query4 is Query2 for four entities per row.
func Query4[T1, T2, T3, T4, R any](ctx context.Context, d *Database, fn func(*T1, *T2, *T3, *T4) *R, sqlText string, args ...any) iter.Seq2[*R, error] {
	var combine query.Combiner
	if fn != nil {
		combine = func(p []any) any { return nilable(fn(p[0].(*T1), p[1].(*T2), p[2].(*T3), p[3].(*T4))) }
	}
	types := []reflect.Type{reflect.TypeFor[T1](), reflect.TypeFor[T2](), reflect.TypeFor[T3](), reflect.TypeFor[T4]()}
	return queryMulti[R](ctx, d, types, combine, sqlText, args)
}

func Fetch2[T1, T2, R any](ctx context.Context, d *Database, fn func(*T1, *T2) *R, sqlText string, args ...any) ([]*R, error) {
	return collect(Query2(ctx, d, fn, sqlText, args...))
}

func Fetch3[T1, T2, T3, R any](ctx context.Context, d *Database, fn func(*T1, *T2, *T3) *R, sqlText string, args ...any) ([]*R, error) {
	return collect(Query3(ctx, d, fn, sqlText, args...))
}

func Fetch4[T1, T2, T3, T4, R any](ctx context.Context, d *Database, fn func(*T1, *T2, *T3, *T4) *R, sqlText string, args ...any) ([]*R, error) {
	return collect(Query4(ctx, d, fn, sqlText, args...))
}
