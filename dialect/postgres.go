package dialect

import (
	"context"
	"fmt"
	"strconv"
)

type postgres struct{ base }

func (postgres) Family() Family { return PostgreSQL }

func (postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n+1) }

func (postgres) Positional() bool { return false }

func (p postgres) EscapeTableName(name string) string {
	return escapeTable(p, name)
}

func (postgres) ExistsTemplate() string {
	return "SELECT EXISTS (SELECT 1 FROM %s WHERE %s)"
}

func (p postgres) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, pk string) (any, error) {
	if pk == "" {
		if _, err := ex.ExecCommand(ctx, cmd); err != nil {
			return nil, err
		}
		return int64(-1), nil
	}
	cmd.SQL += fmt.Sprintf(" returning %s as NewID", p.EscapeIdentifier(pk))
	return ex.ScalarCommand(ctx, cmd)
}

// MapParameterValue leaves booleans alone; PostgreSQL has a native type.
func (postgres) MapParameterValue(v any) any {
	if s, ok := v.(AnsiString); ok {
		return string(s)
	}
	return v
}

func (postgres) RenderValue(v any) string {
	return renderLiteral(v, "TRUE", "FALSE", func(b []byte) string {
		return fmt.Sprintf("'\\x%x'", b)
	})
}
