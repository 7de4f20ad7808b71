package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Querier is the executor surface shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type txKey struct{}

// WithTx returns a context carrying tx. Repositories resolve their executor
// through Conn, so every write issued with this context joins tx.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction stored in ctx, or nil.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// Conn returns the transaction in ctx when there is one, otherwise the pool.
func Conn(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// TxRunner runs fn as one unit of work. Implementations must roll back every
// write made through the ctx passed to fn when fn returns an error.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// PoolTxRunner runs units of work on a pgx pool, replaying them when
// PostgreSQL reports a serialization failure or deadlock.
type PoolTxRunner struct {
	pool       *pgxpool.Pool
	maxRetries int
	backoff    time.Duration
	logger     zerolog.Logger
}

func NewTxRunner(pool *pgxpool.Pool, maxRetries int, logger zerolog.Logger) *PoolTxRunner {
	return &PoolTxRunner{
		pool:       pool,
		maxRetries: maxRetries,
		backoff:    25 * time.Millisecond,
		logger:     logger,
	}
}

// InTx joins the transaction already in ctx, if any. Otherwise it begins a
// read committed transaction and commits it when fn succeeds.
func (r *PoolTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if TxFromContext(ctx) != nil {
		return fn(ctx)
	}
	return retryTransient(ctx, r.maxRetries, r.backoff, func(attempt int) error {
		if attempt > 0 {
			r.logger.Warn().Int("attempt", attempt).Msg("retrying transaction after transient error")
		}
		return r.runOnce(ctx, fn)
	})
}

func (r *PoolTxRunner) runOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// retryTransient calls run until it succeeds, fails with a non-transient
// error, or maxRetries replays have been spent. The wait grows linearly.
func retryTransient(ctx context.Context, maxRetries int, backoff time.Duration, run func(attempt int) error) error {
	for attempt := 0; ; attempt++ {
		err := run(attempt)
		if err == nil || !IsTransient(err) || attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(backoff * time.Duration(attempt+1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}
