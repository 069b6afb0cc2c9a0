// Package cache holds the LRU caches of prepared statements and row
// factories.
package cache

import (
	"context"
	"database/sql"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/NetRube/NetRube.Data/utils"
)

// Preparer is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Preparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// StatementCache keeps prepared statements by SQL text and closes them on
// eviction.
type StatementCache struct {
	cache *lru.Cache[uint64, *sql.Stmt]
	mu    sync.Mutex
}

func NewStatementCache(size int) (*StatementCache, error) {
	cache, err := lru.NewWithEvict(size, func(_ uint64, stmt *sql.Stmt) {
		_ = stmt.Close()
	})
	if err != nil {
		return nil, err
	}
	return &StatementCache{cache: cache}, nil
}

// Get returns the statement cached for query.
func (s *StatementCache) Get(query string) (*sql.Stmt, bool) {
	return s.cache.Get(utils.U64(query))
}

// GetOrPrepare returns the cached statement for query, preparing it on p
// on a miss.
func (s *StatementCache) GetOrPrepare(ctx context.Context, p Preparer, query string) (*sql.Stmt, error) {
	key := utils.U64(query)
	if stmt, ok := s.cache.Get(key); ok {
		return stmt, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if stmt, ok := s.cache.Get(key); ok {
		return stmt, nil
	}
	stmt, err := p.PrepareContext(ctx, query)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, stmt)
	return stmt, nil
}

func (s *StatementCache) Len() int { return s.cache.Len() }

// Close closes every cached statement.
func (s *StatementCache) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
	return nil
}
