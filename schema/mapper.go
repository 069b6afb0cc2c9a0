package schema

import (
	"reflect"
	"time"
)

// TableInfo describes the table an entity type maps to.
type TableInfo struct {
	TableName     string
	PrimaryKey    string
	AutoIncrement bool
	SequenceName  string
}

// ColumnInfo describes how one field maps to a column.
type ColumnInfo struct {
	ColumnName   string
	ResultColumn bool
	ForceToUTC   bool
}

// Converter transforms a value on its way to or from the database.
type Converter func(any) (any, error)

// Mapper resolves entity metadata. Implementations must be safe for
// concurrent use.
type Mapper interface {
	TableInfo(t reflect.Type) TableInfo
	// ColumnInfo returns false when the field is not mapped.
	ColumnInfo(f reflect.StructField) (ColumnInfo, bool)
	// FromDBConverter returns a converter applied to values read from a
	// column of type src into f, or nil.
	FromDBConverter(f reflect.StructField, src reflect.Type) Converter
	// ToDBConverter returns a converter applied to f's value when it is
	// bound for an insert or update, or nil.
	ToDBConverter(f reflect.StructField) Converter
}

// TableNamer lets an entity name its own table.
type TableNamer interface {
	TableName() string
}

// ExplicitColumns, when embedded in an entity, restricts mapping to fields
// carrying a db tag.
type ExplicitColumns struct{}

var (
	explicitColumnsType = reflect.TypeOf(ExplicitColumns{})
	tableNamerType      = reflect.TypeOf((*TableNamer)(nil)).Elem()
	timeType            = reflect.TypeOf(time.Time{})
)

// StandardMapper reads db struct tags and falls back to a naming strategy.
type StandardMapper struct {
	naming NamingStrategy
	tags   *TagParser
}

// NewStandardMapper creates a mapper using naming for untagged names.
func NewStandardMapper(naming NamingStrategy) *StandardMapper {
	if naming == nil {
		naming = DefaultNamingStrategy()
	}
	return &StandardMapper{naming: naming, tags: NewTagParser(naming)}
}

// TableInfo resolves the table name from a TableName method or the naming
// strategy, and the primary key from the field tagged primary, else the
// field named ID.
func (m *StandardMapper) TableInfo(t reflect.Type) TableInfo {
	t = indirectType(t)
	info := TableInfo{TableName: m.naming.TableName(t.Name())}
	if t.Implements(tableNamerType) || reflect.PointerTo(t).Implements(tableNamerType) {
		info.TableName = reflect.New(t).Interface().(TableNamer).TableName()
	}

	explicit := hasExplicitColumns(t)
	var byName *reflect.StructField
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous && f.Type.Kind() == reflect.Struct {
			continue
		}
		tag, err := m.tags.ParseTag(f.Name, f.Tag)
		if err != nil || tag.Skip || explicit && !tag.Tagged {
			continue
		}
		if tag.Primary {
			info.PrimaryKey = tag.ColumnName
			info.AutoIncrement = !tag.NoAuto && tag.Generator == ""
			info.SequenceName = tag.Sequence
			return info
		}
		if f.Name == "ID" && byName == nil {
			f := f
			byName = &f
		}
	}
	if byName != nil {
		tag, _ := m.tags.ParseTag(byName.Name, byName.Tag)
		info.PrimaryKey = tag.ColumnName
	}
	return info
}

// ColumnInfo maps exported fields. Embedded structs are flattened by the
// caller and never map themselves.
func (m *StandardMapper) ColumnInfo(f reflect.StructField) (ColumnInfo, bool) {
	if !f.IsExported() {
		return ColumnInfo{}, false
	}
	tag, err := m.tags.ParseTag(f.Name, f.Tag)
	if err != nil || tag.Skip {
		return ColumnInfo{}, false
	}
	return ColumnInfo{
		ColumnName:   tag.ColumnName,
		ResultColumn: tag.Result,
		ForceToUTC:   tag.UTC,
	}, true
}

// FromDBConverter forces UTC on time fields tagged utc.
func (m *StandardMapper) FromDBConverter(f reflect.StructField, _ reflect.Type) Converter {
	if indirectType(f.Type) != timeType {
		return nil
	}
	tag, err := m.tags.ParseTag(f.Name, f.Tag)
	if err != nil || !tag.UTC {
		return nil
	}
	return func(v any) (any, error) {
		if t, ok := v.(time.Time); ok {
			return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), nil
		}
		return v, nil
	}
}

func (m *StandardMapper) ToDBConverter(reflect.StructField) Converter { return nil }

// Tags exposes the mapper's tag parser.
func (m *StandardMapper) Tags() *TagParser { return m.tags }

func hasExplicitColumns(t reflect.Type) bool {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && f.Type == explicitColumnsType {
			return true
		}
	}
	return false
}

func indirectType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
