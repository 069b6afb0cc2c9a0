package connector

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"
)

var globalManager = &Manager{
	providers: make(map[string]Provider),
}

// Manager is a registry of providers keyed by driver name.
type Manager struct {
	providers map[string]Provider
	mu        sync.RWMutex
}

// Register adds provider under its name, replacing any earlier one.
func Register(provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[provider.Name()] = provider
}

// Lookup returns the provider registered under name.
func Lookup(name string) (Provider, bool) {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	p, ok := globalManager.providers[name]
	return p, ok
}

// Drivers lists the registered driver names in order.
func Drivers() []string {
	globalManager.mu.RLock()
	defer globalManager.mu.RUnlock()
	names := make([]string, 0, len(globalManager.providers))
	for n := range globalManager.providers {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// Option configures a connector.
type Option func(*standardConnector)

// WithLogger sets the logger retries are reported to.
func WithLogger(l *zap.Logger) Option {
	return func(c *standardConnector) {
		if l != nil {
			c.logger = l
		}
	}
}

type standardConnector struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// New returns a connector for cfg using the provider registered for
// cfg.Driver.
func New(cfg Config, opts ...Option) (Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	provider, ok := Lookup(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, cfg.Driver)
	}
	c := &standardConnector{provider: provider, config: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Connect opens a connection, retrying as configured.
func (c *standardConnector) Connect(ctx context.Context) (Connection, error) {
	if c.config.Retry == nil {
		return c.provider.Connect(ctx, c.config)
	}
	return retryConnect(ctx, *c.config.Retry, c.logger, func(ctx context.Context) (Connection, error) {
		return c.provider.Connect(ctx, c.config)
	})
}

func (c *standardConnector) Config() Config {
	return c.config
}

// Connect is New followed by Connect.
func Connect(ctx context.Context, cfg Config, opts ...Option) (Connection, error) {
	c, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return c.Connect(ctx)
}
