package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

var (
	// ErrColumnNotFound is returned when a field or column name does not
	// map to any column of an entity.
	ErrColumnNotFound = errors.New("netrube: column not found")
	// ErrNoPrimaryKey is returned when an operation needs a primary key the
	// entity does not declare.
	ErrNoPrimaryKey = errors.New("netrube: entity has no primary key")
	// ErrNotAutoIncrement is returned by IsNew for entities whose key is not
	// database generated.
	ErrNotAutoIncrement = errors.New("netrube: primary key is not auto-increment")
	// ErrNotStruct is returned when metadata is requested for a non-struct type.
	ErrNotStruct = errors.New("netrube: entity must be a struct")
)

// ColumnNotFoundError names the entity type and the identifier that failed
// to resolve.
type ColumnNotFoundError struct {
	Type string
	Name string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("netrube: column %q not found on %s", e.Name, e.Type)
}

func (e *ColumnNotFoundError) Is(target error) bool { return target == ErrColumnNotFound }

// FieldMeta is one mapped field of an entity.
type FieldMeta struct {
	Name      string
	Index     []int
	Type      reflect.Type
	Column    ColumnInfo
	Generator IDGenerator
	ToDB      Converter

	field  reflect.StructField
	mapper Mapper
}

// Get returns the field value of entity, which must be the entity struct
// value (not a pointer).
func (f *FieldMeta) Get(entity reflect.Value) reflect.Value {
	return entity.FieldByIndex(f.Index)
}

// Set assigns v to the field of entity, converting as needed.
func (f *FieldMeta) Set(entity reflect.Value, v any) error {
	dst := entity.FieldByIndex(f.Index)
	if conv := f.mapper.FromDBConverter(f.field, reflect.TypeOf(v)); conv != nil {
		var err error
		if v, err = conv(v); err != nil {
			return fmt.Errorf("field %s: %w", f.Name, err)
		}
	}
	if err := Assign(dst, v); err != nil {
		return fmt.Errorf("field %s: %w", f.Name, err)
	}
	return nil
}

// FromDB returns the converter applied when reading values of type src
// into this field, or nil.
func (f *FieldMeta) FromDB(src reflect.Type) Converter {
	return f.mapper.FromDBConverter(f.field, src)
}

// BindValue returns the field value ready to be bound as a parameter for
// an insert or update.
func (f *FieldMeta) BindValue(entity reflect.Value) (any, error) {
	v := f.Get(entity).Interface()
	if f.ToDB != nil {
		return f.ToDB(v)
	}
	return v, nil
}

// EntityMeta is the resolved, immutable metadata of an entity type.
type EntityMeta struct {
	Type    reflect.Type
	Table   TableInfo
	Columns []*FieldMeta

	byColumn map[string]*FieldMeta
	byField  map[string]*FieldMeta
}

func buildMeta(t reflect.Type, m Mapper) (*EntityMeta, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrNotStruct, t)
	}

	meta := &EntityMeta{
		Type:     t,
		Table:    m.TableInfo(t),
		byColumn: make(map[string]*FieldMeta),
		byField:  make(map[string]*FieldMeta),
	}
	explicit := hasExplicitColumns(t)

	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous && f.Type.Kind() == reflect.Struct || viaPointer(t, f.Index) {
			continue
		}
		if explicit {
			if _, ok := f.Tag.Lookup("db"); !ok {
				continue
			}
		}
		info, ok := m.ColumnInfo(f)
		if !ok {
			continue
		}
		fm := &FieldMeta{
			Name:   f.Name,
			Index:  f.Index,
			Type:   f.Type,
			Column: info,
			ToDB:   m.ToDBConverter(f),
			field:  f,
			mapper: m,
		}
		if sm, ok := m.(*StandardMapper); ok {
			if tag, err := sm.tags.ParseTag(f.Name, f.Tag); err != nil {
				return nil, fmt.Errorf("%s: %w", t, err)
			} else if tag.Generator != "" {
				fm.Generator, _ = LookupGenerator(tag.Generator)
			}
		}
		key := strings.ToLower(info.ColumnName)
		if _, dup := meta.byColumn[key]; dup {
			return nil, fmt.Errorf("netrube: %s maps column %q more than once", t, info.ColumnName)
		}
		meta.Columns = append(meta.Columns, fm)
		meta.byColumn[key] = fm
		meta.byField[f.Name] = fm
	}
	return meta, nil
}

func viaPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Pointer {
			return true
		}
		t = f.Type
	}
	return false
}

// Column looks up a field by column name, case-insensitively.
func (m *EntityMeta) Column(name string) (*FieldMeta, bool) {
	f, ok := m.byColumn[strings.ToLower(name)]
	return f, ok
}

// Field looks up a field by its Go name.
func (m *EntityMeta) Field(name string) (*FieldMeta, bool) {
	f, ok := m.byField[name]
	return f, ok
}

// Resolve finds a field by Go name first and column name second.
func (m *EntityMeta) Resolve(name string) (*FieldMeta, error) {
	if f, ok := m.byField[name]; ok {
		return f, nil
	}
	if f, ok := m.Column(name); ok {
		return f, nil
	}
	return nil, &ColumnNotFoundError{Type: m.Type.String(), Name: name}
}

// PrimaryKey returns the primary key field.
func (m *EntityMeta) PrimaryKey() (*FieldMeta, error) {
	if m.Table.PrimaryKey == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, m.Type)
	}
	f, ok := m.Column(m.Table.PrimaryKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPrimaryKey, m.Type)
	}
	return f, nil
}

// QueryColumns returns the names of the columns an automatic select lists.
func (m *EntityMeta) QueryColumns() []string {
	cols := make([]string, 0, len(m.Columns))
	for _, c := range m.Columns {
		if !c.Column.ResultColumn {
			cols = append(cols, c.Column.ColumnName)
		}
	}
	return cols
}

// IsNew reports whether entity has a zero primary key. Only entities with
// an auto-increment key can be classified.
func (m *EntityMeta) IsNew(entity reflect.Value) (bool, error) {
	if !m.Table.AutoIncrement {
		return false, fmt.Errorf("%w: %s", ErrNotAutoIncrement, m.Table.TableName)
	}
	pk, err := m.PrimaryKey()
	if err != nil {
		return false, err
	}
	return pk.Get(entity).IsZero(), nil
}
