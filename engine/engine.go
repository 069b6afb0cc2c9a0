// Package engine executes commands against a database/sql connection: it
// binds parameters for the active dialect, keeps the shared connection and
// nested transaction counters, and materializes rows into entities.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/NetRube/NetRube.Data/cache"
	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/query"
	"github.com/NetRube/NetRube.Data/schema"
)

var _ query.Executor = (*Database)(nil)
var _ dialect.Executor = (*Database)(nil)

// Hooks are the extension points of a Database. Every field is optional.
type Hooks struct {
	// OnException sees every execution error. Returning false swallows the
	// error and the operation returns its neutral value instead.
	OnException         func(err error) bool
	OnConnectionOpened  func(conn *sql.Conn)
	OnConnectionClosing func(conn *sql.Conn)
	OnExecutingCommand  func(cmd *dialect.Command)
	OnExecutedCommand   func(cmd *dialect.Command)
	OnBeginTransaction  func()
	OnEndTransaction    func(committed bool)
}

// Database is one unit of work against a database. It is not safe for
// concurrent use.
type Database struct {
	db       *sql.DB
	conn     *sql.Conn
	external bool

	profile  dialect.Profile
	provider string
	connStr  string
	prefix   string

	logger    *zap.Logger
	hooks     Hooks
	isolation sql.IsolationLevel
	registry  *schema.Registry
	factories *cache.FactoryCache[*rowFactory]
	stmts     *cache.StatementCache
	cacheSize int

	connDepth int
	keepAlive bool

	tx        *sql.Tx
	txDepth   int
	txAborted bool

	namedParams bool
	autoSelect  bool

	// CommandTimeout applies to every command when positive.
	CommandTimeout time.Duration
	// OneTimeCommandTimeout applies to the next command only and is then
	// reset.
	OneTimeCommandTimeout time.Duration

	lastSQL     string
	lastArgs    []any
	lastCommand string
}

// Option configures a Database.
type Option func(*Database)

// WithProvider names the driver provider; it helps pick the dialect when
// the driver type is not recognized.
func WithProvider(name string) Option {
	return func(d *Database) { d.provider = name }
}

// WithConnectionString records the connection string. It selects the
// parameter prefix and identifies the connection in the row factory cache.
func WithConnectionString(s string) Option {
	return func(d *Database) { d.connStr = s }
}

// WithDialect forces a dialect family instead of resolving one.
func WithDialect(f dialect.Family) Option {
	return func(d *Database) { d.profile = dialect.ForFamily(f) }
}

func WithLogger(l *zap.Logger) Option {
	return func(d *Database) {
		if l != nil {
			d.logger = l
		}
	}
}

func WithHooks(h Hooks) Option {
	return func(d *Database) { d.hooks = h }
}

func WithIsolation(level sql.IsolationLevel) Option {
	return func(d *Database) { d.isolation = level }
}

func WithCommandTimeout(t time.Duration) Option {
	return func(d *Database) { d.CommandTimeout = t }
}

// WithNamedParams toggles @name and collection expansion. It is on by
// default.
func WithNamedParams(on bool) Option {
	return func(d *Database) { d.namedParams = on }
}

// WithAutoSelect toggles the automatic SELECT clause for entity queries.
// It is on by default.
func WithAutoSelect(on bool) Option {
	return func(d *Database) { d.autoSelect = on }
}

func WithRegistry(r *schema.Registry) Option {
	return func(d *Database) {
		if r != nil {
			d.registry = r
		}
	}
}

// WithFactoryCacheSize sizes the row factory cache shared by every
// Database on the same registry. Only the first Database created for a
// registry decides the size.
func WithFactoryCacheSize(n int) Option {
	return func(d *Database) { d.cacheSize = n }
}

// WithKeepAlive holds the shared connection open until Close.
func WithKeepAlive() Option {
	return func(d *Database) { d.keepAlive = true }
}

// New creates a Database over a connection pool. The dialect is resolved
// from the driver type and the provider name.
func New(db *sql.DB, opts ...Option) (*Database, error) {
	d := newDatabase(opts)
	d.db = db
	if d.profile == nil {
		d.profile = dialect.Resolve(fmt.Sprintf("%T", db.Driver()), d.provider)
	}
	return d, d.init()
}

// NewFromConn creates a Database over a caller-owned connection, which is
// never closed by the Database.
func NewFromConn(ctx context.Context, conn *sql.Conn, opts ...Option) (*Database, error) {
	d := newDatabase(opts)
	d.conn = conn
	d.external = true
	if d.profile == nil {
		var driverType string
		if err := conn.Raw(func(dc any) error {
			driverType = fmt.Sprintf("%T", dc)
			return nil
		}); err != nil {
			return nil, err
		}
		d.profile = dialect.Resolve(driverType, d.provider)
	}
	return d, d.init()
}

func newDatabase(opts []Option) *Database {
	d := &Database{
		logger:      zap.NewNop(),
		isolation:   sql.LevelDefault,
		registry:    schema.Default(),
		namedParams: true,
		autoSelect:  true,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Database) init() error {
	d.prefix = d.profile.ParameterPrefix(d.connStr)
	factories, err := factoriesFor(d.registry, d.cacheSize)
	if err != nil {
		return err
	}
	d.factories = factories
	return nil
}

// Profile returns the dialect profile in use.
func (d *Database) Profile() dialect.Profile { return d.profile }

// Registry returns the metadata registry in use.
func (d *Database) Registry() *schema.Registry { return d.registry }

// DB returns the underlying pool, or nil for a Database over a single
// connection.
func (d *Database) DB() *sql.DB { return d.db }

// LastSQL is the text of the last command created.
func (d *Database) LastSQL() string { return d.lastSQL }

// LastArgs are the bound values of the last command created.
func (d *Database) LastArgs() []any { return d.lastArgs }

// LastCommand is the last command formatted by FormatCommand.
func (d *Database) LastCommand() string { return d.lastCommand }

// identity distinguishes connections in the row factory cache.
func (d *Database) identity() string {
	if d.connStr != "" {
		return d.connStr
	}
	if d.db != nil {
		return fmt.Sprintf("%p", d.db)
	}
	return fmt.Sprintf("%p", d.conn)
}
