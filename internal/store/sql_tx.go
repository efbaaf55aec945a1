package store

import (
	"context"
	"database/sql"
	"fmt"
)

type txCtxKey struct{}

type txState struct {
	tx    *sql.Tx
	hooks []func(committed bool)
}

func txFromContext(ctx context.Context) *txState {
	st, _ := ctx.Value(txCtxKey{}).(*txState)
	return st
}

// WithinTx runs fn inside a transaction carried by ctx. When ctx already
// carries one, fn joins it and the outer call decides the outcome.
// Hooks registered with [OnTxDone] run after commit or rollback.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.logger.Err(err).Str("func", "DB.WithinTx").Msg("error beginning transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}

	st := &txState{tx: tx}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				db.logger.Err(rbErr).Str("func", "DB.WithinTx").Msg("error rolling back transaction")
			}
		}
		for _, hook := range st.hooks {
			hook(committed)
		}
	}()

	if err = fn(context.WithValue(ctx, txCtxKey{}, st)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		db.logger.Err(err).Str("func", "DB.WithinTx").Msg("error committing transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
	}
	committed = true

	return nil
}

// OnTxDone registers hook to run once the transaction carried by ctx ends.
// Without a transaction the hook runs immediately as committed.
func OnTxDone(ctx context.Context, hook func(committed bool)) {
	st := txFromContext(ctx)
	if st == nil {
		hook(true)
		return
	}
	st.hooks = append(st.hooks, hook)
}
