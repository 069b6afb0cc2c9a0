package dialect

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/NetRube/NetRube.Data/schema"
)

// base is the generic ANSI profile. The other families embed it and
// override what differs.
type base struct{}

func (base) Family() Family { return ANSI }

func (base) ParameterPrefix(string) string { return "@" }

func (base) Placeholder(int) string { return "?" }

func (base) Positional() bool { return true }

func (base) EscapeIdentifier(name string) string {
	return wrapIdentifier(name, '"', '"')
}

func (b base) EscapeTableName(name string) string {
	return escapeTable(b, name)
}

func (base) BuildPageQuery(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	return limitOffsetPage(skip, take, parts, args)
}

func limitOffsetPage(skip, take int64, parts SQLParts, args []any) (string, []any, error) {
	n := len(args)
	q := fmt.Sprintf("%s\nLIMIT @%d OFFSET @%d", parts.SQL, n, n+1)
	return q, appendArgs(args, take, skip), nil
}

func (base) BuildTopSQL(take int64, c Clauses, args []any) (string, []any) {
	q := fmt.Sprintf("SELECT %s%s FROM %s%s %s%s LIMIT @%d",
		distinct(c.Distinct), c.Columns, c.From, c.Joins, c.Where, c.OrderBy, len(args))
	return q, appendArgs(args, take)
}

func (base) BuildPagedSQL(skip, take int64, c Clauses, args []any) (string, []any, error) {
	n := len(args)
	q := fmt.Sprintf("SELECT %s%s FROM %s%s %s%s LIMIT @%d OFFSET @%d",
		distinct(c.Distinct), c.Columns, c.From, c.Joins, c.Where, c.OrderBy, n, n+1)
	return q, appendArgs(args, take, skip), nil
}

func (base) ExistsTemplate() string {
	return "SELECT COUNT(*) FROM %s WHERE %s"
}

func (base) AutoIncrementExpression(schema.TableInfo) string { return "" }

func (base) InsertOutputClause(string) string { return "" }

func (base) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, _ string) (any, error) {
	cmd.SQL += ";\nSELECT @@IDENTITY AS NewID;"
	return ex.ScalarCommand(ctx, cmd)
}

func (base) MapParameterValue(v any) any {
	return mapCommon(v)
}

func mapCommon(v any) any {
	switch val := v.(type) {
	case bool:
		if val {
			return 1
		}
		return 0
	case AnsiString:
		return string(val)
	}
	return v
}

func (base) PreExecute(*Command) {}

// RenderValue renders v as a SQL literal. It is used for diagnostics only;
// statements always bind values as parameters.
func (base) RenderValue(v any) string {
	return renderLiteral(v, "TRUE", "FALSE", func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}

func renderLiteral(v any, t, f string, bytes func([]byte) string) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteString(val)
	case AnsiString:
		return quoteString(string(val))
	case bool:
		if val {
			return t
		}
		return f
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	case float32, float64:
		return strconv.FormatFloat(reflect.ValueOf(val).Float(), 'f', -1, 64)
	case time.Time:
		return "'" + val.Format("2006-01-02 15:04:05.000000") + "'"
	case []byte:
		return bytes(val)
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
