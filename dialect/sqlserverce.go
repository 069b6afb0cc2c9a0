package dialect

import (
	"context"
	"fmt"
)

// sqlServerCE covers SQL Server Compact and SQL Server 2012+ in
// OFFSET/FETCH mode.
type sqlServerCE struct{ sqlServer }

func (sqlServerCE) Family() Family { return SqlServerCE }

func (c sqlServerCE) EscapeTableName(name string) string {
	return escapeTable(c, name)
}

func (sqlServerCE) BuildPageQuery(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	n := len(args)
	q := fmt.Sprintf("%s\nOFFSET @%d ROWS FETCH NEXT @%d ROWS ONLY", parts.SQL, n, n+1)
	return q, appendArgs(args, skip, take), nil
}

func (sqlServerCE) BuildPagedSQL(skip, take int64, c Clauses, args []any) (string, []any, error) {
	n := len(args)
	q := fmt.Sprintf("SELECT %s%s FROM %s%s %s%s\nOFFSET @%d ROWS FETCH NEXT @%d ROWS ONLY",
		distinct(c.Distinct), c.Columns, c.From, c.Joins, c.Where, c.OrderBy, n, n+1)
	return q, appendArgs(args, skip, take), nil
}

func (sqlServerCE) ExistsTemplate() string {
	return "SELECT COUNT(*) FROM %s WHERE %s"
}

func (sqlServerCE) InsertOutputClause(string) string { return "" }

// ExecuteInsert runs the insert and then asks for @@IDENTITY on the same
// connection. The triple @ survives the @@ escape as @@IDENTITY.
func (sqlServerCE) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, _ string) (any, error) {
	if _, err := ex.ExecCommand(ctx, cmd); err != nil {
		return nil, err
	}
	follow, err := ex.CreateCommand("SELECT @@@IDENTITY AS NewID;")
	if err != nil {
		return nil, err
	}
	return ex.ScalarCommand(ctx, follow)
}
