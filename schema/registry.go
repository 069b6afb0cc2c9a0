package schema

import (
	"reflect"
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Registry owns the mapper registrations and the entity metadata cache.
// Lookups take the read lock; registration takes the write lock and
// flushes every cache through InvalidateAll before releasing it.
type Registry struct {
	mu         sync.RWMutex
	byType     map[reflect.Type]Mapper
	byPackage  map[string]Mapper
	fallback   Mapper
	cache      map[reflect.Type]*EntityMeta
	generation uint64
	listeners  []func()

	group singleflight.Group
}

// NewRegistry creates a registry that uses fallback for unregistered types.
func NewRegistry(fallback Mapper) *Registry {
	if fallback == nil {
		fallback = NewStandardMapper(nil)
	}
	return &Registry{
		byType:    make(map[reflect.Type]Mapper),
		byPackage: make(map[string]Mapper),
		fallback:  fallback,
		cache:     make(map[reflect.Type]*EntityMeta),
	}
}

var defaultRegistry = NewRegistry(nil)

// Default returns the process-wide registry.
func Default() *Registry { return defaultRegistry }

// Register uses m for the entity type t.
func (r *Registry) Register(t reflect.Type, m Mapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byType[indirectType(t)] = m
	r.invalidateLocked()
}

// RegisterPackage uses m for every entity type declared in pkgPath.
func (r *Registry) RegisterPackage(pkgPath string, m Mapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPackage[pkgPath] = m
	r.invalidateLocked()
}

// Revoke removes the registration for t.
func (r *Registry) Revoke(t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byType, indirectType(t))
	r.invalidateLocked()
}

// RevokePackage removes the registration for pkgPath.
func (r *Registry) RevokePackage(pkgPath string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byPackage, pkgPath)
	r.invalidateLocked()
}

// RevokeMapper removes every registration of m.
func (r *Registry) RevokeMapper(m Mapper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, v := range r.byType {
		if v == m {
			delete(r.byType, t)
		}
	}
	for p, v := range r.byPackage {
		if v == m {
			delete(r.byPackage, p)
		}
	}
	r.invalidateLocked()
}

// OnInvalidate registers fn to run whenever the metadata cache is flushed.
// fn runs under the registry's write lock and must not call back into it.
func (r *Registry) OnInvalidate(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// InvalidateAll drops every cached EntityMeta and every dependent cache.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidateLocked()
}

func (r *Registry) invalidateLocked() {
	r.generation++
	clear(r.cache)
	for _, fn := range r.listeners {
		fn()
	}
}

// MapperFor returns the mapper responsible for t.
func (r *Registry) MapperFor(t reflect.Type) Mapper {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mapperLocked(indirectType(t))
}

func (r *Registry) mapperLocked(t reflect.Type) Mapper {
	if m, ok := r.byType[t]; ok {
		return m
	}
	if m, ok := r.byPackage[t.PkgPath()]; ok {
		return m
	}
	return r.fallback
}

// Resolve returns the metadata for t, resolving and caching it on first use.
// Concurrent first uses of the same type share one resolution, but only
// within one generation: a call that starts after a flush never joins a
// build that began before it.
func (r *Registry) Resolve(t reflect.Type) (*EntityMeta, error) {
	t = indirectType(t)

	r.mu.RLock()
	meta, ok := r.cache[t]
	gen := r.generation
	mapper := r.mapperLocked(t)
	r.mu.RUnlock()
	if ok {
		return meta, nil
	}

	key := typeKey(t) + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := r.group.Do(key, func() (any, error) {
		meta, err := buildMeta(t, mapper)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		// A registration change while building makes this result stale for
		// the cache, though still self-consistent for this caller.
		if r.generation == gen {
			r.cache[t] = meta
		}
		r.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*EntityMeta), nil
}

// ResolveValue is Resolve for the dynamic type of entity.
func (r *Registry) ResolveValue(entity any) (*EntityMeta, reflect.Value, error) {
	v := reflect.ValueOf(entity)
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil, v, ErrNotStruct
	}
	meta, err := r.Resolve(v.Type())
	return meta, v, err
}

func typeKey(t reflect.Type) string {
	return t.PkgPath() + "|" + t.String()
}
