package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/NetRube/NetRube.Data/schema"
)

type oracle struct{ base }

func (oracle) Family() Family { return Oracle }

func (oracle) ParameterPrefix(string) string { return ":" }

func (oracle) Placeholder(n int) string { return ":" + strconv.Itoa(n+1) }

func (oracle) Positional() bool { return false }

// EscapeIdentifier upper-cases unquoted names, matching how Oracle folds
// unquoted identifiers.
func (oracle) EscapeIdentifier(name string) string {
	if len(name) >= 2 && name[0] == '"' && name[len(name)-1] == '"' {
		return name
	}
	if name == "" {
		return name
	}
	return `"` + strings.ToUpper(name) + `"`
}

func (o oracle) EscapeTableName(name string) string {
	return escapeTable(o, name)
}

func (oracle) BuildPageQuery(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	if strings.HasPrefix(strings.TrimSpace(parts.SQLSelectRemoved), "*") {
		return "", nil, fmt.Errorf("%w: %q", ErrPagingAlias, parts.SQL)
	}
	return rowNumberPage(skip, take, parts, args)
}

func (oracle) BuildTopSQL(take int64, c Clauses, args []any) (string, []any) {
	q := fmt.Sprintf("SELECT * FROM (SELECT %s%s FROM %s%s %s%s) WHERE ROWNUM <= @%d ORDER BY ROWNUM ASC",
		distinct(c.Distinct), c.Columns, c.From, c.Joins, c.Where, c.OrderBy, len(args))
	return q, appendArgs(args, take)
}

func (oracle) BuildPagedSQL(skip, take int64, c Clauses, args []any) (string, []any, error) {
	if strings.HasPrefix(strings.TrimSpace(c.Columns), "*") {
		return "", nil, fmt.Errorf("%w: select list %q", ErrPagingAlias, c.Columns)
	}
	return rowNumberPagedSQL(skip, take, c, args, "ORDER BY ROWNUM")
}

func (oracle) ExistsTemplate() string {
	return "SELECT CASE WHEN EXISTS (SELECT 1 FROM %s WHERE %s) THEN 1 ELSE 0 END FROM DUAL"
}

func (oracle) AutoIncrementExpression(t schema.TableInfo) string {
	if t.SequenceName == "" {
		return ""
	}
	return t.SequenceName + ".nextval"
}

// ExecuteInsert returns the key through an out parameter bound by name.
func (o oracle) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, pk string) (any, error) {
	if pk == "" {
		if _, err := ex.ExecCommand(ctx, cmd); err != nil {
			return nil, err
		}
		return int64(-1), nil
	}
	var id int64
	cmd.SQL += fmt.Sprintf(" returning %s into :newid", o.EscapeIdentifier(pk))
	cmd.Args = append(cmd.Args, sql.Named("newid", sql.Out{Dest: &id}))
	cmd.Params = append(cmd.Params, Param{Name: ":newid", Type: ParamInt})
	if _, err := ex.ExecCommand(ctx, cmd); err != nil {
		return nil, err
	}
	return id, nil
}

func (oracle) PreExecute(cmd *Command) {
	cmd.BindByName = true
}
