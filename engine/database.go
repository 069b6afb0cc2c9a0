package engine

import (
	"context"
	"database/sql"
)

// runner is what commands run on: the pool, the shared connection or the
// open transaction.
type runner interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ runner = (*sql.DB)(nil)
	_ runner = (*sql.Conn)(nil)
	_ runner = (*sql.Tx)(nil)
)

func (d *Database) runner() runner {
	switch {
	case d.tx != nil:
		return d.tx
	case d.conn != nil:
		return d.conn
	default:
		return d.db
	}
}

// OpenSharedConnection takes a reference on the shared connection, opening
// it on the first reference.
func (d *Database) OpenSharedConnection(ctx context.Context) error {
	if d.connDepth == 0 {
		if !d.external {
			conn, err := d.db.Conn(ctx)
			if err != nil {
				return err
			}
			d.conn = conn
			if d.hooks.OnConnectionOpened != nil {
				d.hooks.OnConnectionOpened(conn)
			}
		}
		if d.keepAlive {
			d.connDepth++
		}
	}
	d.connDepth++
	return nil
}

// CloseSharedConnection drops a reference on the shared connection and
// closes it with the last one.
func (d *Database) CloseSharedConnection() error {
	if d.connDepth == 0 {
		return nil
	}
	d.connDepth--
	if d.connDepth > 0 {
		return nil
	}
	return d.closeConn()
}

func (d *Database) closeConn() error {
	d.connDepth = 0
	if d.external || d.conn == nil {
		return nil
	}
	if d.hooks.OnConnectionClosing != nil {
		d.hooks.OnConnectionClosing(d.conn)
	}
	err := d.conn.Close()
	d.conn = nil
	return err
}

// KeepConnectionAlive holds the shared connection open until Close.
func (d *Database) KeepConnectionAlive() {
	if d.keepAlive {
		return
	}
	d.keepAlive = true
	if d.connDepth > 0 {
		d.connDepth++
	}
}

// acquire opens the shared connection for one operation. The returned
// release must be called exactly once.
func (d *Database) acquire(ctx context.Context) (func(), error) {
	if err := d.OpenSharedConnection(ctx); err != nil {
		return nil, err
	}
	return func() { _ = d.CloseSharedConnection() }, nil
}

// Close rolls back any open transaction and releases the shared connection
// and the prepared statements.
func (d *Database) Close() error {
	var firstErr error
	if d.tx != nil {
		d.txAborted = true
		d.txDepth = 0
		if err := d.endTransaction(); err != nil {
			firstErr = err
		}
	}
	if err := d.closeConn(); err != nil && firstErr == nil {
		firstErr = err
	}
	if d.stmts != nil {
		if err := d.stmts.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.stmts = nil
	}
	return firstErr
}
