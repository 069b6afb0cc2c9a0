package connector

import (
	"maps"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/NetRube/NetRube.Data/dialect"
)

func init() {
	Register(&sqlProvider{name: "mysql", driver: "mysql", family: dialect.MySQL, dsn: mysqlDSN})
}

// mysqlDSN renders cfg through the driver's own formatter. Times are parsed
// into time.Time.
func mysqlDSN(cfg Config) (string, error) {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}
	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	if len(cfg.Params) > 0 {
		mc.Params = maps.Clone(cfg.Params)
	}
	return mc.FormatDSN(), nil
}
