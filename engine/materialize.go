package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/NetRube/NetRube.Data/cache"
	"github.com/NetRube/NetRube.Data/query"
	"github.com/NetRube/NetRube.Data/schema"
)

var scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()

// ErrAutoMapping is returned when the automatic combiner finds no field on
// an earlier entity to attach a later one to.
var ErrAutoMapping = errors.New("netrube: no field to attach entity to")

type columnBinding struct {
	pos   int
	field *schema.FieldMeta
}

// entityPlan reads one entity, or one scalar, out of a scanned row.
type entityPlan struct {
	typ         reflect.Type
	base        reflect.Type
	scalar      bool
	first, last int
	bindings    []columnBinding
}

// rowFactory turns scanned rows of one result shape into values. It is
// immutable once built and shared through the factory cache.
type rowFactory struct {
	plans []entityPlan
}

var (
	factoriesMu         sync.Mutex
	factoriesByRegistry = map[*schema.Registry]*cache.FactoryCache[*rowFactory]{}
)

// factoriesFor returns the row factory cache of r, creating it on first use.
// The cache is purged whenever r invalidates its metadata.
func factoriesFor(r *schema.Registry, size int) (*cache.FactoryCache[*rowFactory], error) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if c, ok := factoriesByRegistry[r]; ok {
		return c, nil
	}
	c, err := cache.NewFactoryCache[*rowFactory](size)
	if err != nil {
		return nil, err
	}
	r.OnInvalidate(c.Purge)
	factoriesByRegistry[r] = c
	return c, nil
}

func (d *Database) factoryFor(sqlText string, types []reflect.Type, columns []string) (*rowFactory, error) {
	shape := make([]string, 0, len(types)+len(columns)+1)
	for _, t := range types {
		shape = append(shape, t.PkgPath()+"."+t.String())
	}
	shape = append(shape, "|")
	shape = append(shape, columns...)
	key := cache.FactoryKey(sqlText, d.identity(), shape...)
	return d.factories.GetOrBuild(key, func() (*rowFactory, error) {
		return newRowFactory(d.registry, types, columns)
	})
}

func newRowFactory(reg *schema.Registry, types []reflect.Type, columns []string) (*rowFactory, error) {
	if len(types) == 1 && !isEntity(types[0]) {
		if len(columns) == 0 {
			return nil, fmt.Errorf("netrube: query returned no columns for %s", types[0])
		}
		return &rowFactory{plans: []entityPlan{{typ: types[0], base: types[0], scalar: true, last: 1}}}, nil
	}

	metas := make([]*schema.EntityMeta, len(types))
	for i, t := range types {
		if !isEntity(t) {
			return nil, fmt.Errorf("%w: %s cannot be part of a multi-entity row", schema.ErrNotStruct, t)
		}
		meta, err := reg.Resolve(baseType(t))
		if err != nil {
			return nil, err
		}
		metas[i] = meta
	}

	f := &rowFactory{plans: make([]entityPlan, len(types))}
	pos := 0
	for i, meta := range metas {
		plan := entityPlan{typ: types[i], base: baseType(types[i]), first: pos}
		used := make(map[string]bool)
		for ; pos < len(columns); pos++ {
			name := strings.ToLower(columns[pos])
			_, known := meta.Column(name)
			if i < len(metas)-1 {
				_, nextKnows := metas[i+1].Column(name)
				if used[name] || (!known && nextKnows) {
					break
				}
			}
			used[name] = true
			if fm, ok := meta.Column(name); ok {
				plan.bindings = append(plan.bindings, columnBinding{pos: pos, field: fm})
			}
		}
		plan.last = pos
		f.plans[i] = plan
	}
	return f, nil
}

// read builds the plan's value from vals. Entities are returned as a
// pointer to a new struct; allNull reports that every column of the entity
// was NULL.
func (p *entityPlan) read(vals []any) (v reflect.Value, allNull bool, err error) {
	if p.scalar {
		v = reflect.New(p.typ).Elem()
		if err := schema.Assign(v, vals[0]); err != nil {
			return v, false, fmt.Errorf("netrube: column 0 into %s: %w", p.typ, err)
		}
		return v, vals[0] == nil, nil
	}

	allNull = true
	for _, val := range vals[p.first:p.last] {
		if val != nil {
			allNull = false
			break
		}
	}
	v = reflect.New(p.base)
	for _, b := range p.bindings {
		val := vals[b.pos]
		if val == nil {
			continue
		}
		if b.field.Column.ForceToUTC {
			if t, ok := val.(time.Time); ok {
				val = t.UTC()
			}
		}
		if err := b.field.Set(v.Elem(), val); err != nil {
			return v, false, err
		}
	}
	return v, allNull, nil
}

// value reads a single-type row as a value of the requested type.
func (f *rowFactory) value(vals []any) (any, error) {
	p := &f.plans[0]
	v, _, err := p.read(vals)
	if err != nil {
		return nil, err
	}
	if p.scalar || p.typ.Kind() == reflect.Pointer {
		return v.Interface(), nil
	}
	return v.Elem().Interface(), nil
}

// parts reads a multi-entity row as one pointer per entity. An entity
// whose columns were all NULL is a typed nil pointer.
func (f *rowFactory) parts(vals []any) ([]any, error) {
	out := make([]any, len(f.plans))
	for i := range f.plans {
		p := &f.plans[i]
		v, allNull, err := p.read(vals)
		if err != nil {
			return nil, err
		}
		if allNull {
			out[i] = reflect.Zero(reflect.PointerTo(p.base)).Interface()
			continue
		}
		out[i] = v.Interface()
	}
	return out, nil
}

// nilParts is the argument list of the terminating combiner call.
func nilParts(types []reflect.Type) []any {
	out := make([]any, len(types))
	for i, t := range types {
		out[i] = reflect.Zero(reflect.PointerTo(baseType(t))).Interface()
	}
	return out
}

type autoLink struct {
	child, owner int
	index        []int
	ptr          bool
}

// autoCombiner attaches every entity after the first to the nearest
// earlier entity declaring a field of its type, either *T or T, and
// returns the first entity.
func autoCombiner(types []reflect.Type) (query.Combiner, error) {
	var links []autoLink
	for i := 1; i < len(types); i++ {
		child := baseType(types[i])
		found := false
		for j := i - 1; j >= 0 && !found; j-- {
			owner := baseType(types[j])
			for k := 0; k < owner.NumField(); k++ {
				fld := owner.Field(k)
				if !fld.IsExported() {
					continue
				}
				if fld.Type == child || fld.Type == reflect.PointerTo(child) {
					links = append(links, autoLink{child: i, owner: j, index: fld.Index, ptr: fld.Type.Kind() == reflect.Pointer})
					found = true
					break
				}
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrAutoMapping, child)
		}
	}

	return func(parts []any) any {
		for _, l := range links {
			child, owner := parts[l.child], parts[l.owner]
			if isNil(child) || isNil(owner) {
				continue
			}
			field := reflect.ValueOf(owner).Elem().FieldByIndex(l.index)
			if l.ptr {
				field.Set(reflect.ValueOf(child))
			} else {
				field.Set(reflect.ValueOf(child).Elem())
			}
		}
		return parts[0]
	}, nil
}
