package dialect

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	mssql "github.com/denisenkom/go-mssqldb"
)

type sqlServer struct{ base }

func (sqlServer) Family() Family { return SqlServer }

func (sqlServer) Placeholder(n int) string { return "@p" + strconv.Itoa(n+1) }

func (sqlServer) Positional() bool { return false }

func (sqlServer) EscapeIdentifier(name string) string {
	return wrapIdentifier(name, '[', ']')
}

func (s sqlServer) EscapeTableName(name string) string {
	return escapeTable(s, name)
}

func (sqlServer) BuildPageQuery(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	return rowNumberPage(skip, take, parts, args)
}

func rowNumberPage(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	rest := removeOrderBy(parts.SQLSelectRemoved)
	if hasDistinctPrefix(rest) {
		rest = "peta_inner.* FROM (SELECT " + rest + ") peta_inner"
	}
	orderBy := parts.SQLOrderBy
	if orderBy == "" {
		orderBy = "ORDER BY (SELECT NULL)"
	}
	n := len(args)
	q := fmt.Sprintf("SELECT * FROM (SELECT ROW_NUMBER() OVER (%s) peta_rn, %s) peta_paged WHERE peta_rn>@%d AND peta_rn<=@%d",
		orderBy, rest, n, n+1)
	return q, appendArgs(args, skip, skip+take), nil
}

func (sqlServer) BuildTopSQL(take int64, c Clauses, args []any) (string, []any) {
	return topSQL(take, c, args)
}

func topSQL(take int64, c Clauses, args []any) (string, []any) {
	q := fmt.Sprintf("SELECT %sTOP (@%d) %s FROM %s%s %s%s",
		distinct(c.Distinct), len(args), c.Columns, c.From, c.Joins, c.Where, c.OrderBy)
	return q, appendArgs(args, take)
}

func (sqlServer) BuildPagedSQL(skip, take int64, c Clauses, args []any) (string, []any, error) {
	return rowNumberPagedSQL(skip, take, c, args, "ORDER BY (SELECT NULL)")
}

func rowNumberPagedSQL(skip, take int64, c Clauses, args []any, defaultOrder string) (string, []any, error) {
	orderBy := strings.TrimSpace(c.OrderBy)
	source := fmt.Sprintf("%s FROM %s%s %s", c.Columns, c.From, c.Joins, c.Where)
	if c.Distinct {
		// Duplicates are removed before numbering. The derived table hides
		// the original table names, so the ordering uses bare column names.
		source = fmt.Sprintf("distinct_rows.* FROM (SELECT DISTINCT %s) distinct_rows", source)
		if orderBy != "" {
			orderBy = "ORDER BY " + unqualifyColumns(orderBy[len("ORDER BY"):])
		}
	}
	if orderBy == "" {
		orderBy = defaultOrder
	}
	n := len(args)
	// The outer select cannot see the inner table names, so it takes every
	// column of the derived table. The row factory ignores row_num.
	q := fmt.Sprintf("SELECT * FROM (SELECT ROW_NUMBER() OVER (%s) row_num, %s) paged_rows WHERE row_num > @%d AND row_num <= @%d",
		orderBy, source, n, n+1)
	return q, appendArgs(args, skip, skip+take), nil
}

func (sqlServer) ExistsTemplate() string {
	return "IF EXISTS (SELECT 1 FROM %s WHERE %s) SELECT 1 ELSE SELECT 0"
}

func (sqlServer) InsertOutputClause(pk string) string {
	return fmt.Sprintf(" OUTPUT INSERTED.[%s]", pk)
}

// ExecuteInsert reads the key produced by the OUTPUT clause.
func (sqlServer) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, _ string) (any, error) {
	return ex.ScalarCommand(ctx, cmd)
}

func (sqlServer) MapParameterValue(v any) any {
	return mapSQLServer(v)
}

func mapSQLServer(v any) any {
	if s, ok := v.(AnsiString); ok {
		return mssql.VarChar(s)
	}
	return mapCommon(v)
}

func (sqlServer) RenderValue(v any) string {
	return renderLiteral(v, "1", "0", func(b []byte) string {
		return fmt.Sprintf("0x%X", b)
	})
}
