// Package query assembles typed select, update and delete statements and
// hand-written SQL fragments into parameterized commands.
package query

import (
	"context"
	"errors"
	"iter"
	"reflect"

	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/schema"
)

var (
	ErrInvalidJoin     = errors.New("netrube: invalid join")
	ErrParamIndex      = errors.New("netrube: parameter index out of range")
	ErrParamName       = errors.New("netrube: parameter name not found")
	ErrInvalidPageSize = errors.New("netrube: page size must be positive")
	ErrInvalidPage     = errors.New("netrube: page number must be at least 1")
)

// Combiner receives one entity pointer per mapped type (nil when all of its
// columns were NULL) and returns the row result, or nil to suppress it.
type Combiner func(parts []any) any

// Executor runs the statements the builders render. It is implemented by
// engine.Database.
type Executor interface {
	Profile() dialect.Profile
	Registry() *schema.Registry
	Execute(ctx context.Context, sql string, args ...any) (int64, error)
	ExecuteScalar(ctx context.Context, sql string, args ...any) (any, error)
	// QueryRows yields one value of type t per row.
	QueryRows(ctx context.Context, t reflect.Type, sql string, args []any) iter.Seq2[any, error]
	// QueryMulti splits every row across types and yields the combined
	// result. A nil combine uses the automatic positional combiner.
	QueryMulti(ctx context.Context, types []reflect.Type, combine Combiner, sql string, args []any) iter.Seq2[any, error]
}

// Statement is a rendered command with its own copy of the arguments.
type Statement struct {
	SQL  string
	Args []any
}
