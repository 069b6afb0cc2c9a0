package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// Change is one modified column of a tracked entity.
type Change struct {
	Field  string
	Column string
	Value  any
}

// Diff compares entity against refer and returns the changed, writable
// columns of entity. The primary key is never reported.
func (r *Registry) Diff(entity, refer any) ([]Change, error) {
	meta, ev, err := r.ResolveValue(entity)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(refer)
	for rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if !rv.IsValid() || rv.Type() != ev.Type() {
		return nil, fmt.Errorf("netrube: cannot diff %s against %T", ev.Type(), refer)
	}

	var changes []Change
	for _, f := range meta.Columns {
		if f.Column.ResultColumn || strings.EqualFold(f.Column.ColumnName, meta.Table.PrimaryKey) {
			continue
		}
		cur := f.Get(ev).Interface()
		if reflect.DeepEqual(cur, f.Get(rv).Interface()) {
			continue
		}
		changes = append(changes, Change{Field: f.Name, Column: f.Column.ColumnName, Value: cur})
	}
	return changes, nil
}

// Snapshot remembers the state of an entity so that later modifications
// can be turned into an update of only the changed columns.
type Snapshot[T any] struct {
	registry *Registry
	entity   *T
	original T
}

// Track takes a snapshot of entity using the default registry.
func Track[T any](entity *T) *Snapshot[T] {
	return TrackWith(Default(), entity)
}

// TrackWith takes a snapshot of entity using r.
func TrackWith[T any](r *Registry, entity *T) *Snapshot[T] {
	return &Snapshot[T]{registry: r, entity: entity, original: *entity}
}

// Entity returns the tracked entity.
func (s *Snapshot[T]) Entity() *T { return s.entity }

// Changes lists the columns modified since the snapshot was taken.
func (s *Snapshot[T]) Changes() ([]Change, error) {
	return s.registry.Diff(s.entity, &s.original)
}

// Reset makes the current state the new baseline.
func (s *Snapshot[T]) Reset() { s.original = *s.entity }
