package engine

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// BeginTransaction starts a transaction, or joins the one in progress.
// Nested calls share one database transaction: it commits only when every
// level completes and rolls back if any level aborts.
func (d *Database) BeginTransaction(ctx context.Context) error {
	d.txDepth++
	if d.txDepth > 1 {
		return nil
	}
	if err := d.OpenSharedConnection(ctx); err != nil {
		d.txDepth = 0
		return err
	}
	tx, err := d.conn.BeginTx(ctx, &sql.TxOptions{Isolation: d.isolation})
	if err != nil {
		d.txDepth = 0
		_ = d.CloseSharedConnection()
		return err
	}
	d.tx = tx
	d.txAborted = false
	if d.hooks.OnBeginTransaction != nil {
		d.hooks.OnBeginTransaction()
	}
	d.logger.Debug("transaction started")
	return nil
}

// CompleteTransaction marks the current level as successful.
func (d *Database) CompleteTransaction() error {
	if d.txDepth == 0 {
		return ErrNoTransaction
	}
	d.txDepth--
	if d.txDepth == 0 {
		return d.endTransaction()
	}
	return nil
}

// AbortTransaction marks the whole transaction for rollback.
func (d *Database) AbortTransaction() error {
	if d.txDepth == 0 {
		return ErrNoTransaction
	}
	d.txAborted = true
	d.txDepth--
	if d.txDepth == 0 {
		return d.endTransaction()
	}
	return nil
}

// InTransaction runs fn inside a transaction level. The level completes
// when fn returns nil and aborts when fn fails or panics; a panic is
// re-raised after the rollback.
func (d *Database) InTransaction(ctx context.Context, fn func(*Database) error) (err error) {
	if err := d.BeginTransaction(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = d.AbortTransaction()
			panic(p)
		}
	}()

	if err := fn(d); err != nil {
		if rbErr := d.AbortTransaction(); rbErr != nil {
			return fmt.Errorf("transaction failed: %w, rollback failed: %w", err, rbErr)
		}
		return err
	}

	if err := d.CompleteTransaction(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (d *Database) endTransaction() error {
	tx := d.tx
	d.tx = nil
	if tx == nil {
		return nil
	}

	committed := !d.txAborted
	var err error
	if committed {
		err = tx.Commit()
	} else {
		err = tx.Rollback()
	}
	d.txAborted = false
	if d.hooks.OnEndTransaction != nil {
		d.hooks.OnEndTransaction(committed)
	}
	d.logger.Debug("transaction finished", zap.Bool("committed", committed))

	if cerr := d.CloseSharedConnection(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Transaction is a scoped transaction level. Call Complete when the work
// succeeded and always defer Close.
type Transaction struct {
	db   *Database
	done bool
}

// GetTransaction begins a transaction level and returns its guard.
func (d *Database) GetTransaction(ctx context.Context) (*Transaction, error) {
	if err := d.BeginTransaction(ctx); err != nil {
		return nil, err
	}
	return &Transaction{db: d}, nil
}

// Complete commits this level.
func (t *Transaction) Complete() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.CompleteTransaction()
}

// Close aborts this level unless Complete was called.
func (t *Transaction) Close() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.db.AbortTransaction()
}
