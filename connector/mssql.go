package connector

import (
	"strconv"

	_ "github.com/denisenkom/go-mssqldb"

	"github.com/NetRube/NetRube.Data/dialect"
)

func init() {
	Register(&sqlProvider{name: "sqlserver", driver: "sqlserver", family: dialect.SqlServer, dsn: sqlServerDSN})
	Register(&sqlProvider{name: "mssql", driver: "sqlserver", family: dialect.SqlServer, dsn: sqlServerDSN})
}

// sqlServerDSN builds a sqlserver:// URL. The database travels as a query
// parameter; SSLMode maps onto the driver's encrypt option.
func sqlServerDSN(cfg Config) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = 1433
	}
	b := NewDSNBuilder("sqlserver").
		Auth(cfg.Username, cfg.Password).
		Host(cfg.Host, port).
		Param("database", cfg.Database).
		Param("encrypt", encryptMode(cfg.SSLMode)).
		Params(cfg.Params)
	if cfg.ConnectTimeout > 0 {
		b.Param("dial timeout", strconv.Itoa(int(cfg.ConnectTimeout.Seconds())))
	}
	if err := b.Validate(); err != nil {
		return "", err
	}
	return b.Build(), nil
}

func encryptMode(sslMode string) string {
	switch sslMode {
	case "":
		return ""
	case "disable":
		return "disable"
	case "require", "verify-ca", "verify-full":
		return "true"
	}
	return "false"
}
