package connector

import (
	"context"
	"net/url"

	_ "modernc.org/sqlite"

	"github.com/NetRube/NetRube.Data/dialect"
)

const memoryDB = ":memory:"

func init() {
	Register(sqliteProvider{})
}

// sqliteDSN uses Database as the file path, or ":memory:" when empty.
// Params become query options such as _pragma.
func sqliteDSN(cfg Config) (string, error) {
	path := cfg.Database
	if path == "" {
		path = memoryDB
	}
	if len(cfg.Params) == 0 {
		return path, nil
	}
	q := url.Values{}
	for k, v := range cfg.Params {
		q.Set(k, v)
	}
	return path + "?" + q.Encode(), nil
}

// sqliteProvider opens modernc.org/sqlite. An in-memory database lives in
// a single connection, so the pool is pinned to one.
type sqliteProvider struct{}

func (sqliteProvider) Name() string           { return "sqlite" }
func (sqliteProvider) Family() dialect.Family { return dialect.SQLite }

func (p sqliteProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	dsn, err := resolveDSN(cfg, sqliteDSN)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" && (cfg.Database == "" || cfg.Database == memoryDB) {
		cfg.Pool.MaxOpen = 1
		cfg.Pool.MaxLifetime = 0
		cfg.Pool.MaxIdleTime = 0
	}
	db, err := openDB(ctx, "sqlite", dsn, cfg)
	if err != nil {
		return nil, err
	}
	return &sqlConnection{db: db, driver: p.Name(), family: dialect.SQLite}, nil
}
