package engine

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/query"
)

// minStringSize is the smallest size hint given to string parameters, so
// that statements differing only in string lengths share one plan.
const minStringSize = 4000

// CreateCommand renders query for the driver: it expands @name and
// collection parameters, rewrites @N to the dialect's placeholders and
// binds every value.
func (d *Database) CreateCommand(sqlText string, args ...any) (*dialect.Command, error) {
	return d.createCommand(sqlText, args, d.namedParams)
}

// createCommand with expand off binds args as they are; entity inserts and
// updates use it so that slice fields are never spread into a list.
func (d *Database) createCommand(sqlText string, args []any, expand bool) (*dialect.Command, error) {
	if expand {
		var err error
		if sqlText, args, err = query.ExpandParams(sqlText, args); err != nil {
			return nil, err
		}
	}

	sqlText, args, err := d.rewritePlaceholders(sqlText, args)
	if err != nil {
		return nil, err
	}
	sqlText = strings.ReplaceAll(sqlText, "@@", "@")

	cmd := &dialect.Command{
		SQL:     sqlText,
		Args:    make([]any, len(args)),
		Params:  make([]dialect.Param, len(args)),
		Timeout: d.CommandTimeout,
	}
	for i, a := range args {
		p := d.bind(a)
		p.Name = d.prefix + strconv.Itoa(i)
		cmd.Args[i] = p.Value
		cmd.Params[i] = p
	}

	d.profile.PreExecute(cmd)
	if d.OneTimeCommandTimeout > 0 {
		cmd.Timeout = d.OneTimeCommandTimeout
		d.OneTimeCommandTimeout = 0
	}

	d.lastSQL = cmd.SQL
	d.lastArgs = cmd.Args
	d.FormatCommand(cmd)
	return cmd, nil
}

// rewritePlaceholders replaces every @N with the dialect placeholder. For
// positional dialects the arguments are reordered, and duplicated, to
// follow the order in which the placeholders appear. A doubled @@ is left
// for the caller to unescape.
func (d *Database) rewritePlaceholders(sqlText string, args []any) (string, []any, error) {
	if strings.IndexByte(sqlText, '@') < 0 {
		return sqlText, args, nil
	}
	positional := d.profile.Positional()
	var (
		sb  strings.Builder
		out []any
	)
	if positional {
		out = make([]any, 0, len(args))
	}
	sb.Grow(len(sqlText))
	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if c != '@' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(sqlText) && sqlText[i+1] == '@' {
			sb.WriteString("@@")
			i++
			continue
		}
		j := i + 1
		for j < len(sqlText) && sqlText[j] >= '0' && sqlText[j] <= '9' {
			j++
		}
		if j == i+1 {
			sb.WriteByte(c)
			continue
		}
		n, err := strconv.Atoi(sqlText[i+1 : j])
		if err != nil || n >= len(args) {
			return "", nil, fmt.Errorf("%w: @%s with %d argument(s)", query.ErrParamIndex, sqlText[i+1:j], len(args))
		}
		if positional {
			out = append(out, args[n])
			sb.WriteString(d.profile.Placeholder(len(out) - 1))
		} else {
			sb.WriteString(d.profile.Placeholder(n))
		}
		i = j - 1
	}
	if positional {
		args = out
	}
	return sb.String(), args, nil
}

var timeType = reflect.TypeOf(time.Time{})

func (d *Database) bind(v any) dialect.Param {
	p := dialect.Param{Value: v}
	switch val := v.(type) {
	case nil:
		p.Type = dialect.ParamNull
		return p
	case uuid.UUID:
		p.Value, p.Type, p.Size = val.String(), dialect.ParamString, 40
	case driver.Valuer:
	case dialect.AnsiString:
		p.Type, p.Size = dialect.ParamAnsiString, stringSize(len(val))
	case string:
		p.Type, p.Size = dialect.ParamString, stringSize(len(val))
	case []byte:
		p.Type = dialect.ParamBytes
	case time.Time:
		p.Type = dialect.ParamTime
	case bool:
		p.Type = dialect.ParamBool
	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			p.Value, p.Type = rv.Int(), dialect.ParamInt
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			p.Value, p.Type = rv.Uint(), dialect.ParamInt
		case reflect.Float32, reflect.Float64:
			p.Value, p.Type = rv.Float(), dialect.ParamFloat
		case reflect.String:
			p.Value, p.Type, p.Size = rv.String(), dialect.ParamString, stringSize(rv.Len())
		case reflect.Bool:
			p.Value, p.Type = rv.Bool(), dialect.ParamBool
		}
	}
	p.Value = d.profile.MapParameterValue(p.Value)
	return p
}

func stringSize(n int) int {
	return max(n+1, minStringSize)
}

// FormatCommand renders cmd and its parameters for diagnostics and keeps
// the result as LastCommand.
func (d *Database) FormatCommand(cmd *dialect.Command) string {
	if cmd == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(cmd.SQL)
	for i, p := range cmd.Params {
		name := p.Name
		if name == "" {
			name = d.prefix + strconv.Itoa(i)
		}
		value := p.Value
		if i < len(cmd.Args) {
			value = cmd.Args[i]
		}
		if value == nil {
			value = ""
		}
		fmt.Fprintf(&sb, "\n\t -> %s [%s] = \"%v\"", name, p.Type, value)
	}
	d.lastCommand = sb.String()
	return d.lastCommand
}

func (d *Database) commandContext(ctx context.Context, cmd *dialect.Command) (context.Context, context.CancelFunc) {
	if cmd.Timeout > 0 {
		return context.WithTimeout(ctx, cmd.Timeout)
	}
	return ctx, func() {}
}

func (d *Database) executing(cmd *dialect.Command) {
	d.logger.Debug("executing command", zap.String("sql", cmd.SQL), zap.Int("args", len(cmd.Args)))
	if d.hooks.OnExecutingCommand != nil {
		d.hooks.OnExecutingCommand(cmd)
	}
}

func (d *Database) executed(cmd *dialect.Command) {
	if d.hooks.OnExecutedCommand != nil {
		d.hooks.OnExecutedCommand(cmd)
	}
}

// ExecCommand runs cmd without reading rows.
func (d *Database) ExecCommand(ctx context.Context, cmd *dialect.Command) (sql.Result, error) {
	release, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := d.commandContext(ctx, cmd)
	defer cancel()

	d.executing(cmd)
	res, err := d.runner().ExecContext(ctx, cmd.SQL, cmd.Args...)
	if err != nil {
		return nil, &CommandError{SQL: cmd.SQL, Err: err}
	}
	d.executed(cmd)
	return res, nil
}

// ScalarCommand runs cmd and returns the first column of the first row,
// or nil when there is no row.
func (d *Database) ScalarCommand(ctx context.Context, cmd *dialect.Command) (any, error) {
	release, err := d.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	ctx, cancel := d.commandContext(ctx, cmd)
	defer cancel()

	d.executing(cmd)
	var v any
	if err := d.runner().QueryRowContext(ctx, cmd.SQL, cmd.Args...).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			d.executed(cmd)
			return nil, nil
		}
		return nil, &CommandError{SQL: cmd.SQL, Err: err}
	}
	d.executed(cmd)
	return v, nil
}

// except passes err through the exception hook. It returns err when the
// error propagates and nil when the hook swallowed it.
func (d *Database) except(err error, cmd *dialect.Command) error {
	if err == nil {
		return nil
	}
	if d.hooks.OnException != nil {
		if d.hooks.OnException(err) {
			return err
		}
		return nil
	}
	d.logger.Error("command failed", zap.Error(err), zap.String("command", d.FormatCommand(cmd)))
	return err
}
