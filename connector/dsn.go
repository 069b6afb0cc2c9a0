package connector

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
)

// DSNBuilder assembles URL-style connection strings for the drivers that
// accept them (pgx, lib/pq and go-mssqldb).
type DSNBuilder struct {
	u      url.URL
	host   string
	port   int
	params url.Values
}

func NewDSNBuilder(scheme string) *DSNBuilder {
	return &DSNBuilder{u: url.URL{Scheme: scheme}, params: url.Values{}}
}

// Auth sets the user info. An empty username leaves it out entirely.
func (b *DSNBuilder) Auth(username, password string) *DSNBuilder {
	switch {
	case username == "":
		b.u.User = nil
	case password == "":
		b.u.User = url.User(username)
	default:
		b.u.User = url.UserPassword(username, password)
	}
	return b
}

func (b *DSNBuilder) Host(host string, port int) *DSNBuilder {
	b.host, b.port = host, port
	return b
}

func (b *DSNBuilder) Database(name string) *DSNBuilder {
	if name == "" {
		b.u.Path = ""
	} else {
		b.u.Path = "/" + name
	}
	return b
}

// Param sets a query parameter; empty values are dropped.
func (b *DSNBuilder) Param(key, value string) *DSNBuilder {
	if value != "" {
		b.params.Set(key, value)
	}
	return b
}

func (b *DSNBuilder) Params(params map[string]string) *DSNBuilder {
	for k, v := range params {
		b.Param(k, v)
	}
	return b
}

func (b *DSNBuilder) Validate() error {
	if b.host == "" {
		return errors.New("host is required")
	}
	if b.port < 0 || b.port > 65535 {
		return fmt.Errorf("invalid port: %d", b.port)
	}
	return nil
}

// Build renders the URL. Query parameters come out sorted by key.
func (b *DSNBuilder) Build() string {
	u := b.u
	u.Host = b.host
	if b.port > 0 {
		u.Host = net.JoinHostPort(b.host, strconv.Itoa(b.port))
	}
	u.RawQuery = b.params.Encode()
	return u.String()
}
