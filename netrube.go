// Package netrube opens a configured connection and wraps it in an engine
// Database. The engine, query and connector packages can also be used on
// their own.
package netrube

import (
	"context"
	"errors"

	"github.com/NetRube/NetRube.Data/connector"
	"github.com/NetRube/NetRube.Data/engine"
)

type (
	Config   = connector.Config
	Option   = engine.Option
	Hooks    = engine.Hooks
	Database = engine.Database
)

// DB is an engine Database bound to the connection it was opened on.
type DB struct {
	*engine.Database
	conn connector.Connection
}

// Open connects with cfg and returns a Database speaking the connection's
// dialect. cfg.CommandTimeout becomes the default command timeout; opts
// are applied after it.
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	conn, err := connector.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return wrap(conn, cfg, opts)
}

// OpenFile loads a configuration file with connector.LoadConfig and opens it.
func OpenFile(ctx context.Context, path string, opts ...Option) (*DB, error) {
	cfg, err := connector.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return Open(ctx, *cfg, opts...)
}

// Wrap builds a DB over an already open connection.
func Wrap(conn connector.Connection, opts ...Option) (*DB, error) {
	return wrap(conn, Config{}, opts)
}

func wrap(conn connector.Connection, cfg Config, opts []Option) (*DB, error) {
	base := []Option{
		engine.WithDialect(conn.Family()),
		engine.WithProvider(conn.Driver()),
	}
	if cfg.DSN != "" {
		base = append(base, engine.WithConnectionString(cfg.DSN))
	}
	if cfg.CommandTimeout > 0 {
		base = append(base, engine.WithCommandTimeout(cfg.CommandTimeout))
	}
	d, err := engine.New(conn.DB(), append(base, opts...)...)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &DB{Database: d, conn: conn}, nil
}

// Connection returns the underlying connection.
func (db *DB) Connection() connector.Connection { return db.conn }

// Close releases the Database and then the connection pool.
func (db *DB) Close() error {
	return errors.Join(db.Database.Close(), db.conn.Close())
}
