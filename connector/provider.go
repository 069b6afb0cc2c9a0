package connector

import (
	"context"
	"fmt"

	"github.com/NetRube/NetRube.Data/dialect"
)

// Provider opens connections for one database/sql driver.
type Provider interface {
	Name() string
	Family() dialect.Family
	Connect(ctx context.Context, cfg Config) (Connection, error)
}

// DSNFunc renders a configuration as a driver connection string.
type DSNFunc func(cfg Config) (string, error)

// sqlProvider opens a plain database/sql pool for a registered driver.
type sqlProvider struct {
	name   string
	driver string
	family dialect.Family
	dsn    DSNFunc
}

func (p *sqlProvider) Name() string           { return p.name }
func (p *sqlProvider) Family() dialect.Family { return p.family }

func (p *sqlProvider) Connect(ctx context.Context, cfg Config) (Connection, error) {
	dsn, err := resolveDSN(cfg, p.dsn)
	if err != nil {
		return nil, err
	}
	db, err := openDB(ctx, p.driver, dsn, cfg)
	if err != nil {
		return nil, err
	}
	return &sqlConnection{db: db, driver: p.name, family: p.family}, nil
}

// resolveDSN prefers an explicit DSN over one built from the fields.
func resolveDSN(cfg Config, build DSNFunc) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if build == nil {
		return "", fmt.Errorf("netrube: driver %s needs an explicit dsn", cfg.Driver)
	}
	return build(cfg)
}

// RegisterDriver makes a database/sql driver, registered under driver with
// sql.Register, available to New. dsn may be nil, in which case
// configurations must carry an explicit DSN.
func RegisterDriver(driver string, family dialect.Family, dsn DSNFunc) {
	Register(&sqlProvider{name: driver, driver: driver, family: family, dsn: dsn})
}
