package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/jmoiron/sqlx"
)

type txContextKey struct{}

var txKey = txContextKey{}

type Tx interface {
	Querier
	IsOpen() bool
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Transaction wraps sqlx.Tx. The caller that began it owns Commit and Rollback;
// callers that joined it through GetTx get a handle whose Commit and Rollback
// are no-ops.
type Transaction struct {
	*sqlx.Tx
	logger   ectologger.Logger
	isClosed bool
}

type joinedTx struct {
	*Transaction
}

func (j joinedTx) Commit(context.Context) error   { return nil }
func (j joinedTx) Rollback(context.Context) error { return nil }

func NewTx(tx *sqlx.Tx, logger ectologger.Logger) *Transaction {
	return &Transaction{
		Tx:     tx,
		logger: logger,
	}
}

// GetTx joins the open transaction in ctx or begins a new one and stores it in
// the returned context.
func GetTx(ctx context.Context, logger ectologger.Logger, db DB, opts *sql.TxOptions) (context.Context, Tx, error) {
	if current, ok := ctx.Value(txKey).(*Transaction); ok && current.IsOpen() {
		return ctx, joinedTx{current}, nil
	}

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to begin transaction")
		return ctx, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	newTx := NewTx(tx, logger)
	return context.WithValue(ctx, txKey, newTx), newTx, nil
}

// WithTx runs fn inside a transaction, committing when fn succeeds.
func WithTx(ctx context.Context, db DB, fn func(ctx context.Context, tx Tx) error) error {
	ctx, tx, err := db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *Transaction) IsOpen() bool {
	return !t.isClosed
}

func (t *Transaction) Rollback(ctx context.Context) error {
	return t.close(ctx, "roll back", func() error {
		if err := t.Tx.Rollback(); !errors.Is(err, sql.ErrTxDone) {
			return err
		}
		return nil
	})
}

func (t *Transaction) Commit(ctx context.Context) error {
	return t.close(ctx, "commit", t.Tx.Commit)
}

// close ends the transaction once; later calls are no-ops.
func (t *Transaction) close(ctx context.Context, action string, end func() error) error {
	if t.isClosed {
		return nil
	}
	t.isClosed = true

	if err := end(); err != nil {
		t.logger.WithContext(ctx).WithError(err).Errorf("Failed to %s transaction", action)
		return fmt.Errorf("failed to %s transaction: %w", action, err)
	}
	return nil
}
