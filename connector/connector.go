package connector

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/NetRube/NetRube.Data/dialect"
)

// Connection is an open, pooled database handle together with the dialect
// family it speaks.
type Connection interface {
	DB() *sql.DB
	Driver() string
	Family() dialect.Family
	Health(ctx context.Context) error
	Stats() ConnectionStats
	Close() error
}

// Connector opens connections for one configuration.
type Connector interface {
	Connect(ctx context.Context) (Connection, error)
	Config() Config
}

// sqlConnection is a Connection over a plain database/sql pool.
type sqlConnection struct {
	db     *sql.DB
	driver string
	family dialect.Family
}

func (c *sqlConnection) DB() *sql.DB            { return c.db }
func (c *sqlConnection) Driver() string         { return c.driver }
func (c *sqlConnection) Family() dialect.Family { return c.family }

func (c *sqlConnection) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

func (c *sqlConnection) Stats() ConnectionStats {
	return statsFromDB(c.db.Stats())
}

func (c *sqlConnection) Close() error {
	return c.db.Close()
}

// openDB opens a database/sql pool, applies the pool settings and pings it
// within the connect timeout.
func openDB(ctx context.Context, driver, dsn string, cfg Config) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	applyPool(db, cfg.Pool)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return db, nil
}

func applyPool(db *sql.DB, p PoolConfig) {
	if p.MaxOpen > 0 {
		db.SetMaxOpenConns(p.MaxOpen)
	}
	if p.MaxIdle > 0 {
		db.SetMaxIdleConns(p.MaxIdle)
	}
	if p.MaxLifetime > 0 {
		db.SetConnMaxLifetime(p.MaxLifetime)
	}
	if p.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(p.MaxIdleTime)
	}
}
