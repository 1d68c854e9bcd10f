package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Transactor runs fn inside one database transaction. The Repos passed to fn
// are bound to that transaction. fn returning an error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}

// beginner is satisfied by *pgxpool.Pool, pgx.Tx (as a savepoint) and pgxmock pools.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner is the Postgres Transactor.
type TxRunner struct {
	db beginner
}

// NewTxRunner constructs a TxRunner. In production pass *pgxpool.Pool.
func NewTxRunner(db beginner) *TxRunner {
	return &TxRunner{db: db}
}

// WithinTx begins a transaction, calls fn, and commits if fn succeeds.
// Once fn has returned nil the commit no longer follows ctx cancellation, so a
// caller that goes away after the work is done cannot leave it half applied.
func (t *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) (err error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TxRunner.WithinTx: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(ctx, NewRepos(tx)); err != nil {
		return err
	}
	if err = tx.Commit(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("repo.TxRunner.WithinTx: commit: %w", err)
	}
	return nil
}
