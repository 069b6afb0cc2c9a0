package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NetRube/NetRube.Data/utils"
)

const DefaultFactorySize = 512

// FactoryKey identifies a row factory: the statement, the connection it
// ran on and the shape of its result columns.
func FactoryKey(sql, connection string, shape ...string) uint64 {
	key := utils.Mix64(utils.U64(sql), utils.U64(connection))
	return utils.Mix64(key, utils.Fingerprint(shape...))
}

// FactoryCache is a bounded cache of compiled row factories.
type FactoryCache[V any] struct {
	cache *lru.Cache[uint64, V]
}

func NewFactoryCache[V any](size int) (*FactoryCache[V], error) {
	if size <= 0 {
		size = DefaultFactorySize
	}
	c, err := lru.New[uint64, V](size)
	if err != nil {
		return nil, err
	}
	return &FactoryCache[V]{cache: c}, nil
}

func (c *FactoryCache[V]) Get(key uint64) (V, bool) { return c.cache.Get(key) }

func (c *FactoryCache[V]) Add(key uint64, v V) { c.cache.Add(key, v) }

// GetOrBuild returns the cached factory for key, building it on a miss.
// Concurrent misses may build twice; the last one wins.
func (c *FactoryCache[V]) GetOrBuild(key uint64, build func() (V, error)) (V, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	c.cache.Add(key, v)
	return v, nil
}

func (c *FactoryCache[V]) Len() int { return c.cache.Len() }

// Purge drops every entry.
func (c *FactoryCache[V]) Purge() { c.cache.Purge() }
