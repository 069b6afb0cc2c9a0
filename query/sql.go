package query

import (
	"strings"
)

type fragment struct {
	sql  string
	args []any
}

// Sql chains hand-written SQL fragments. Build joins them with newlines,
// turns a second WHERE into AND and a second ORDER BY into a comma, and
// expands @N and @name parameters into one argument list.
type Sql struct {
	parts []fragment
}

// NewSql starts a chain with an optional first fragment.
func NewSql(sql string, args ...any) *Sql {
	s := &Sql{}
	if sql != "" {
		s.parts = append(s.parts, fragment{sql: sql, args: args})
	}
	return s
}

// Append adds a raw fragment.
func (s *Sql) Append(sql string, args ...any) *Sql {
	s.parts = append(s.parts, fragment{sql: sql, args: args})
	return s
}

// AppendSql adds every fragment of other.
func (s *Sql) AppendSql(other *Sql) *Sql {
	if other != nil {
		s.parts = append(s.parts, other.parts...)
	}
	return s
}

// Where adds WHERE (sql).
func (s *Sql) Where(sql string, args ...any) *Sql {
	return s.Append("WHERE ("+sql+")", args...)
}

func (s *Sql) OrderBy(columns ...string) *Sql {
	return s.Append("ORDER BY " + strings.Join(columns, ", "))
}

func (s *Sql) Select(columns ...string) *Sql {
	return s.Append("SELECT " + strings.Join(columns, ", "))
}

func (s *Sql) From(tables ...string) *Sql {
	return s.Append("FROM " + strings.Join(tables, ", "))
}

func (s *Sql) GroupBy(columns ...string) *Sql {
	return s.Append("GROUP BY " + strings.Join(columns, ", "))
}

// JoinClause waits for the ON condition of a join.
type JoinClause struct {
	sql *Sql
}

func (s *Sql) InnerJoin(table string) *JoinClause {
	return &JoinClause{sql: s.Append("INNER JOIN " + table)}
}

func (s *Sql) LeftJoin(table string) *JoinClause {
	return &JoinClause{sql: s.Append("LEFT JOIN " + table)}
}

// On completes the join.
func (j *JoinClause) On(clause string, args ...any) *Sql {
	return j.sql.Append("ON "+clause, args...)
}

// Build renders the chain. It is recomputed on every call.
func (s *Sql) Build() (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
		prev string
	)
	for _, f := range s.parts {
		lhs := prev
		prev = f.sql
		if f.sql == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		text, err := expandInto(f.sql, f.args, &args)
		if err != nil {
			return "", nil, err
		}
		switch {
		case hasPrefixFold(lhs, "WHERE ") && hasPrefixFold(f.sql, "WHERE "):
			text = "AND " + text[6:]
		case hasPrefixFold(lhs, "ORDER BY ") && hasPrefixFold(f.sql, "ORDER BY "):
			text = ", " + text[9:]
		}
		sb.WriteString(text)
	}
	return sb.String(), args, nil
}

// Statement is Build shaped as a Statement.
func (s *Sql) Statement() (Statement, error) {
	sql, args, err := s.Build()
	return Statement{SQL: sql, Args: args}, err
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
