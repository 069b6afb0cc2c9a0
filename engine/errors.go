package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/NetRube/NetRube.Data/query"
)

var (
	// ErrNoRows is returned by Single and First when the query matched nothing.
	ErrNoRows = errors.New("netrube: no rows in result set")
	// ErrMultipleRows is returned by Single when more than one row matched.
	ErrMultipleRows = errors.New("netrube: more than one row in result set")
	// ErrNoTransaction is returned when completing or aborting without an
	// open transaction.
	ErrNoTransaction = errors.New("netrube: no transaction in progress")
	// ErrInvalidPageSize is returned when paging with a non-positive page size.
	ErrInvalidPageSize = query.ErrInvalidPageSize
	// ErrInvalidPage is returned when paging with a page number below 1.
	ErrInvalidPage = query.ErrInvalidPage
	// ErrCombinerType is returned when a multi-entity combiner yields a
	// value of an unexpected type.
	ErrCombinerType = errors.New("netrube: combiner returned an unexpected type")
	// ErrNotAddressable is returned when a generated key cannot be written
	// back because the entity was passed by value.
	ErrNotAddressable = errors.New("netrube: entity must be passed by pointer")
)

// CommandError wraps a driver error with the statement that caused it.
type CommandError struct {
	SQL string
	Err error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("netrube: %v [%s]", e.Err, e.SQL)
}

func (e *CommandError) Unwrap() error { return e.Err }

// sqlStateError is implemented by pgx errors.
type sqlStateError interface {
	SQLState() string
}

// IsConstraintError reports whether err was caused by a unique, foreign key
// or check constraint violation.
func IsConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	var st sqlStateError
	if errors.As(err, &st) {
		return strings.HasPrefix(st.SQLState(), "23")
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062, 1451, 1452, 3819:
			return true
		}
		return false
	}
	msg := err.Error()
	for _, s := range []string{"UNIQUE constraint failed", "FOREIGN KEY constraint failed", "CHECK constraint failed", "Violation of UNIQUE KEY", "Cannot insert duplicate key"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
