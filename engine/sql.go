package engine

import (
	"context"
	"reflect"

	"github.com/NetRube/NetRube.Data/cache"
	"github.com/NetRube/NetRube.Data/dialect"
	"github.com/NetRube/NetRube.Data/schema"
)

const statementCacheSize = 128

// Execute runs a statement and returns the number of affected rows. A
// failure swallowed by the exception hook returns -1.
func (d *Database) Execute(ctx context.Context, sqlText string, args ...any) (int64, error) {
	cmd, err := d.CreateCommand(sqlText, args...)
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	res, err := d.ExecCommand(ctx, cmd)
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	return n, nil
}

func (d *Database) affectedErr(err error, cmd *dialect.Command) (int64, error) {
	if err = d.except(err, cmd); err != nil {
		return 0, err
	}
	return -1, nil
}

// ExecuteScalar runs a statement and returns the first column of the first
// row, or nil when there is no row.
func (d *Database) ExecuteScalar(ctx context.Context, sqlText string, args ...any) (any, error) {
	cmd, err := d.CreateCommand(sqlText, args...)
	if err != nil {
		return nil, d.except(err, cmd)
	}
	v, err := d.ScalarCommand(ctx, cmd)
	if err != nil {
		return nil, d.except(err, cmd)
	}
	return v, nil
}

// Scalar is ExecuteScalar converted to R. No row gives the zero value.
func Scalar[R any](ctx context.Context, d *Database, sqlText string, args ...any) (R, error) {
	var r R
	v, err := d.ExecuteScalar(ctx, sqlText, args...)
	if err != nil || v == nil {
		return r, err
	}
	if err := schema.Assign(reflect.ValueOf(&r).Elem(), v); err != nil {
		return r, d.except(err, nil)
	}
	return r, nil
}

// ExecutePrepared is Execute through a cached prepared statement. The
// statement is prepared on the pool, not the shared connection, so it
// outlives it; inside a transaction it is rebound to the transaction.
func (d *Database) ExecutePrepared(ctx context.Context, sqlText string, args ...any) (int64, error) {
	cmd, err := d.CreateCommand(sqlText, args...)
	if err != nil {
		return d.affectedErr(err, cmd)
	}

	if d.stmts == nil {
		if d.stmts, err = cache.NewStatementCache(statementCacheSize); err != nil {
			return d.affectedErr(err, cmd)
		}
	}
	var p cache.Preparer = d.db
	if d.external {
		p = d.conn
	}
	stmt, err := d.stmts.GetOrPrepare(ctx, p, cmd.SQL)
	if err != nil {
		return d.affectedErr(&CommandError{SQL: cmd.SQL, Err: err}, cmd)
	}
	if d.tx != nil {
		stmt = d.tx.StmtContext(ctx, stmt)
		defer stmt.Close()
	}

	ctx, cancel := d.commandContext(ctx, cmd)
	defer cancel()

	d.executing(cmd)
	res, err := stmt.ExecContext(ctx, cmd.Args...)
	if err != nil {
		return d.affectedErr(&CommandError{SQL: cmd.SQL, Err: err}, cmd)
	}
	d.executed(cmd)
	n, err := res.RowsAffected()
	if err != nil {
		return d.affectedErr(err, cmd)
	}
	return n, nil
}
