package query

import (
	"fmt"
	"reflect"
)

// Map2 makes b read each row as a T1 followed by a T2 and build the result
// with fn. A nil fn uses the automatic combiner, which requires T1 to be T.
func Map2[T, T1, T2 any](b *SelectBuilder[T], fn func(*T1, *T2) *T) *SelectBuilder[T] {
	var combine Combiner
	if fn != nil {
		combine = func(parts []any) any {
			return orNil(fn(parts[0].(*T1), parts[1].(*T2)))
		}
	}
	return b.mapWith(combine, entityType[T1](), entityType[T2]())
}

// Map3 is Map2 for three entities per row.
func Map3[T, T1, T2, T3 any](b *SelectBuilder[T], fn func(*T1, *T2, *T3) *T) *SelectBuilder[T] {
	var combine Combiner
	if fn != nil {
		combine = func(parts []any) any {
			return orNil(fn(parts[0].(*T1), parts[1].(*T2), parts[2].(*T3)))
		}
	}
	return b.mapWith(combine, entityType[T1](), entityType[T2](), entityType[T3]())
}

// Map4 is Map2 for four entities per row.
func Map4[T, T1, T2, T3, T4 any](b *SelectBuilder[T], fn func(*T1, *T2, *T3, *T4) *T) *SelectBuilder[T] {
	var combine Combiner
	if fn != nil {
		combine = func(parts []any) any {
			return orNil(fn(parts[0].(*T1), parts[1].(*T2), parts[2].(*T3), parts[3].(*T4)))
		}
	}
	return b.mapWith(combine, entityType[T1](), entityType[T2](), entityType[T3](), entityType[T4]())
}

func (b *SelectBuilder[T]) mapWith(combine Combiner, types ...reflect.Type) *SelectBuilder[T] {
	if combine == nil && types[0] != b.entity {
		b.AddError(fmt.Errorf("netrube: automatic mapping needs %s first, got %s", b.entity, types[0]))
		return b
	}
	b.mapTypes = types
	b.combine = combine
	return b
}

// orNil turns a nil *T into an untyped nil so the engine can suppress it.
func orNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
