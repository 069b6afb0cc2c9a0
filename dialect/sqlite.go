package dialect

import (
	"context"
	"fmt"
)

type sqlite struct{ base }

func (sqlite) Family() Family { return SQLite }

func (s sqlite) EscapeTableName(name string) string {
	return escapeTable(s, name)
}

func (sqlite) ExistsTemplate() string {
	return "SELECT EXISTS (SELECT 1 FROM %s WHERE %s)"
}

func (sqlite) ExecuteInsert(ctx context.Context, ex Executor, cmd *Command, pk string) (any, error) {
	res, err := ex.ExecCommand(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if pk == "" {
		return int64(-1), nil
	}
	return res.LastInsertId()
}

func (sqlite) MapParameterValue(v any) any {
	switch val := v.(type) {
	case uint:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case uint64:
		return int64(val)
	}
	return mapCommon(v)
}

func (sqlite) RenderValue(v any) string {
	return renderLiteral(v, "1", "0", func(b []byte) string {
		return fmt.Sprintf("X'%x'", b)
	})
}
