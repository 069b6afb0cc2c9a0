package dialect

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NetRube/NetRube.Data/schema"
)

// Family identifies one database family. The set is closed: every value
// has a profile in ForFamily and Resolve never produces anything else.
type Family int

const (
	ANSI Family = iota
	SqlServer
	SqlServerCE
	MySQL
	PostgreSQL
	Oracle
	SQLite
)

var familyNames = [...]string{
	ANSI:        "ansi",
	SqlServer:   "sqlserver",
	SqlServerCE: "sqlserverce",
	MySQL:       "mysql",
	PostgreSQL:  "postgresql",
	Oracle:      "oracle",
	SQLite:      "sqlite",
}

func (f Family) String() string {
	if f < 0 || int(f) >= len(familyNames) {
		return fmt.Sprintf("family(%d)", int(f))
	}
	return familyNames[f]
}

// Families lists every supported family in declaration order.
func Families() []Family {
	return []Family{ANSI, SqlServer, SqlServerCE, MySQL, PostgreSQL, Oracle, SQLite}
}

var (
	// ErrPagingAlias is returned when a family needs an aliased select list
	// to wrap a statement for paging.
	ErrPagingAlias = errors.New("netrube: paged query requires an explicit, aliased select list")
	// ErrUnparsableSQL is returned when a statement has no top-level SELECT ... FROM.
	ErrUnparsableSQL = errors.New("netrube: unable to parse SQL statement for paging")
)

// AnsiString marks a string that should be bound as a non-Unicode value.
type AnsiString string

// ParamType tags a bound parameter for diagnostics and driver-specific binding.
type ParamType int

const (
	ParamAny ParamType = iota
	ParamNull
	ParamString
	ParamAnsiString
	ParamInt
	ParamFloat
	ParamBool
	ParamTime
	ParamBytes
)

func (t ParamType) String() string {
	switch t {
	case ParamNull:
		return "Null"
	case ParamString:
		return "String"
	case ParamAnsiString:
		return "AnsiString"
	case ParamInt:
		return "Int64"
	case ParamFloat:
		return "Double"
	case ParamBool:
		return "Boolean"
	case ParamTime:
		return "DateTime"
	case ParamBytes:
		return "Binary"
	default:
		return "Object"
	}
}

// Param describes one bound value of a Command.
type Param struct {
	Name  string
	Value any
	Type  ParamType
	Size  int
}

// Command is a fully rendered statement ready for the driver.
type Command struct {
	SQL    string
	Args   []any
	Params []Param
	// BindByName asks the driver to bind by name instead of by position.
	BindByName bool
	Timeout    time.Duration
}

// Executor is the slice of the execution engine a profile needs to
// retrieve generated keys. Implementations run the pre and post execution
// hooks for every call.
type Executor interface {
	CreateCommand(query string, args ...any) (*Command, error)
	ExecCommand(ctx context.Context, cmd *Command) (sql.Result, error)
	ScalarCommand(ctx context.Context, cmd *Command) (any, error)
}

// SQLParts is a hand-written statement split for paging.
type SQLParts struct {
	SQL              string
	SQLCount         string
	SQLSelectRemoved string
	SQLOrderBy       string
	Distinct         bool
}

// Clauses are the raw pieces an assembler-built select is made of.
type Clauses struct {
	Distinct bool
	Columns  string
	From     string
	Joins    string
	Where    string
	OrderBy  string
}

// Profile encapsulates the SQL conventions of one database family.
type Profile interface {
	Family() Family
	ParameterPrefix(connStr string) string
	// Placeholder renders the driver placeholder for the zero-based sink index n.
	Placeholder(n int) string
	// Positional reports whether placeholders carry no index, in which case
	// values are bound by occurrence.
	Positional() bool
	EscapeIdentifier(name string) string
	EscapeTableName(name string) string
	BuildPageQuery(skip, take int64, parts SQLParts, args []any) (string, []any, error)
	BuildTopSQL(take int64, c Clauses, args []any) (string, []any)
	BuildPagedSQL(skip, take int64, c Clauses, args []any) (string, []any, error)
	ExistsTemplate() string
	AutoIncrementExpression(t schema.TableInfo) string
	InsertOutputClause(pk string) string
	ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, pk string) (any, error)
	MapParameterValue(v any) any
	PreExecute(cmd *Command)
	RenderValue(v any) string
}

var profiles = map[Family]Profile{
	ANSI:        base{},
	SqlServer:   sqlServer{},
	SqlServerCE: sqlServerCE{},
	MySQL:       mySQL{},
	PostgreSQL:  postgres{},
	Oracle:      oracle{},
	SQLite:      sqlite{},
}

// ForFamily returns the profile for f, or the ANSI profile for unknown values.
func ForFamily(f Family) Profile {
	if p, ok := profiles[f]; ok {
		return p
	}
	return profiles[ANSI]
}

type rule struct {
	match  string
	family Family
}

// Go driver type names, as printed by fmt.Sprintf("%T", db.Driver()).
var driverPrefixes = []rule{
	{"*mysql.", MySQL},
	{"*pq.", PostgreSQL},
	{"*stdlib.", PostgreSQL},
	{"*pgx.", PostgreSQL},
	{"*sqlite.", SQLite},
	{"*sqlite3.", SQLite},
	{"*mssql.", SqlServer},
	{"*godror.", Oracle},
	{"*go_ora.", Oracle},
	{"*oci8.", Oracle},
}

// Order matters: "sqlserverce" must win over "sqlserver".
var providerSubstrings = []rule{
	{"mysql", MySQL},
	{"tidb", MySQL},
	{"mariadb", MySQL},
	{"sqlserverce", SqlServerCE},
	{"pgsql", PostgreSQL},
	{"postgres", PostgreSQL},
	{"pgx", PostgreSQL},
	{"oracle", Oracle},
	{"godror", Oracle},
	{"sqlite", SQLite},
	{"sqlserver", SqlServer},
	{"mssql", SqlServer},
}

// Resolve picks a profile from a driver type name and a provider name.
// It never fails: unknown combinations fall back to the ANSI profile.
func Resolve(driverTypeName, providerName string) Profile {
	return ForFamily(ResolveFamily(driverTypeName, providerName))
}

// ResolveFamily is Resolve without the profile lookup.
func ResolveFamily(driverTypeName, providerName string) Family {
	for _, r := range driverPrefixes {
		if strings.HasPrefix(driverTypeName, r.match) {
			return r.family
		}
	}
	provider := strings.ToLower(providerName)
	for _, r := range providerSubstrings {
		if strings.Contains(provider, r.match) {
			return r.family
		}
	}
	return ANSI
}

// ParseFamily maps a family name, or any provider name Resolve understands,
// to a Family.
func ParseFamily(name string) (Family, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for f, n := range familyNames {
		if n == lower {
			return Family(f), true
		}
	}
	f := ResolveFamily("", lower)
	return f, f != ANSI
}

func wrapIdentifier(name string, open, close byte) string {
	if name == "" {
		return name
	}
	if len(name) >= 2 && name[0] == open && name[len(name)-1] == close {
		return name
	}
	return string(open) + name + string(close)
}

func escapeTable(p Profile, name string) string {
	if strings.IndexByte(name, '.') >= 0 {
		return name
	}
	return p.EscapeIdentifier(name)
}

func distinct(d bool) string {
	if d {
		return "DISTINCT "
	}
	return ""
}

func appendArgs(args []any, extra ...any) []any {
	out := make([]any, 0, len(args)+len(extra))
	out = append(out, args...)
	return append(out, extra...)
}
