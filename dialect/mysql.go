package dialect

import (
	"context"
	"strings"
)

type mySQL struct{ base }

func (mySQL) Family() Family { return MySQL }

func (mySQL) ParameterPrefix(connStr string) string {
	if strings.Contains(strings.ToLower(connStr), "allow user variables=true") {
		return "?"
	}
	return "@"
}

func (mySQL) EscapeIdentifier(name string) string {
	return wrapIdentifier(name, '`', '`')
}

func (m mySQL) EscapeTableName(name string) string {
	return escapeTable(m, name)
}

func (mySQL) ExistsTemplate() string {
	return "SELECT EXISTS (SELECT 1 FROM %s WHERE %s)"
}

// ExecuteInsert reads the generated key from the driver result; the MySQL
// driver rejects multi-statement commands unless configured otherwise.
func (mySQL) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, _ string) (any, error) {
	res, err := ex.ExecCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return res.LastInsertId()
}
