package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/atttc/ladder/internal/domain"
	"github.com/atttc/ladder/internal/infra"
	"github.com/atttc/ladder/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the part of *pgxpool.Pool the services use.
type DB interface {
	repository.DBTX
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// SQLSTATE codes that mean the transaction lost a race and can be rerun.
const (
	sqlstateSerializationFailure = "40001"
	sqlstateDeadlockDetected     = "40P01"
)

var serializable = pgx.TxOptions{IsoLevel: pgx.Serializable}

// txRunner runs work in serializable transactions.
type txRunner struct {
	db       DB
	attempts int
	metrics  *infra.LadderMetrics
	logger   *slog.Logger
}

// retryable reports whether err is a serialization failure or deadlock.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlstateSerializationFailure || pgErr.Code == sqlstateDeadlockDetected
	}
	return false
}

// inTx runs fn in a serializable transaction and commits it. Serialization
// failures and deadlocks rerun fn from scratch, up to the configured attempts.
func inTx[T any](ctx context.Context, r *txRunner, op string, fn func(ctx context.Context, tx pgx.Tx) (T, error)) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		out, err := once(ctx, r.db, fn)
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if attempt >= r.attempts {
			return zero, domain.ErrInternal(op+": transaction kept conflicting, try again", err)
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		r.metrics.TxRetries.WithLabelValues(op).Inc()
		r.logger.Warn("retrying transaction", "operation", op, "attempt", attempt, "error", err)
	}
}

func once[T any](ctx context.Context, db DB, fn func(ctx context.Context, tx pgx.Tx) (T, error)) (T, error) {
	var zero T
	tx, err := db.BeginTx(ctx, serializable)
	if err != nil {
		return zero, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	out, err := fn(ctx, tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("commit tx: %w", err)
	}
	return out, nil
}
