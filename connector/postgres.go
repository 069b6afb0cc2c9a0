package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"

	"github.com/NetRube/NetRube.Data/dialect"
)

func init() {
	Register(pgxProvider{})
	Register(&sqlProvider{name: "postgres", driver: "postgres", family: dialect.PostgreSQL, dsn: postgresDSN})
}

// postgresDSN builds a postgres:// URL understood by both pgx and lib/pq.
func postgresDSN(cfg Config) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	b := NewDSNBuilder("postgres").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, port).
		Database(cfg.Database).
		Param("sslmode", cfg.SSLMode).
		Params(cfg.Params)
	if cfg.ConnectTimeout > 0 {
		b.Param("connect_timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	return b.Build(), nil
}

// pgxProvider opens a pgxpool and exposes it through database/sql.
type pgxProvider struct{}

func (pgxProvider) Name() string           { return "pgx" }
func (pgxProvider) Family() dialect.Family { return dialect.PostgreSQL }

func (pgxProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	dsn, err := resolveDSN(cfg, postgresDSN)
	if err != nil {
		return nil, err
	}
	p := &PostgresConnection{config: cfg}
	if err := p.connect(ctx, dsn); err != nil {
		return nil, err
	}
	return p, nil
}

// PostgresConnection is a pgx pool with a database/sql view over it.
type PostgresConnection struct {
	config Config
	pool   *pgxpool.Pool
	db     *sql.DB
}

func (p *PostgresConnection) connect(ctx context.Context, dsn string) error {
	if p.pool != nil {
		return nil
	}
	if p.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.ConnectTimeout)
		defer cancel()
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("parse pgx config: %w", err)
	}
	pc := p.config.Pool
	if pc.MaxOpen > 0 {
		poolCfg.MaxConns = int32(pc.MaxOpen)
	}
	if pc.MaxIdle > 0 {
		poolCfg.MinConns = int32(min(pc.MaxIdle, int(poolCfg.MaxConns)))
	}
	if pc.MaxLifetime > 0 {
		poolCfg.MaxConnLifetime = pc.MaxLifetime
	}
	if pc.MaxIdleTime > 0 {
		poolCfg.MaxConnIdleTime = pc.MaxIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping pgx: %w", err)
	}
	p.pool = pool
	p.db = stdlib.OpenDBFromPool(pool)
	return nil
}

// DB returns the database/sql handle over the pool.
func (p *PostgresConnection) DB() *sql.DB { return p.db }

// Pool returns the underlying pgx pool.
func (p *PostgresConnection) Pool() *pgxpool.Pool { return p.pool }

func (p *PostgresConnection) Driver() string         { return "pgx" }
func (p *PostgresConnection) Family() dialect.Family { return dialect.PostgreSQL }

// Health checks the connection health.
func (p *PostgresConnection) Health(ctx context.Context) error {
	if p.pool == nil {
		return fmt.Errorf("not connected")
	}
	return p.pool.Ping(ctx)
}

// Stats returns connection pool statistics.
func (p *PostgresConnection) Stats() ConnectionStats {
	if p.pool == nil {
		return ConnectionStats{}
	}
	s := p.pool.Stat()
	return ConnectionStats{
		OpenConnections: int(s.TotalConns()),
		InUse:           int(s.AcquiredConns()),
		Idle:            int(s.IdleConns()),
		WaitCount:       s.EmptyAcquireCount(),
		WaitDuration:    s.AcquireDuration(),
	}
}

// Close closes the database/sql view and the pool.
func (p *PostgresConnection) Close() error {
	var err error
	if p.db != nil {
		err = p.db.Close()
		p.db = nil
	}
	if p.pool != nil {
		p.pool.Close()
		p.pool = nil
	}
	return err
}
