package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const (
	pgUniqueViolation        = "23505"
	pgForeignKeyViolation    = "23503"
	pgSerializationFailure   = "40001"
	pgDeadlockDetected       = "40P01"
	pgInvalidTextRepr        = "22P02"
	pgConnectionExceptionCls = "08"
)

// retrier re-runs Postgres operations that failed for transient reasons.
type retrier struct {
	maxRetries int
	backoff    time.Duration
}

func newRetrier(maxRetries int) retrier {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retrier{maxRetries: maxRetries, backoff: 50 * time.Millisecond}
}

// do runs fn until it succeeds, fails with a domain error or a permanent
// storage error, or runs out of attempts. Non-domain failures surface as
// STORAGE_ERROR.
func (r retrier) do(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		var de *apperrors.DomainError
		if errors.As(err, &de) {
			return err
		}
		if !isTransient(err) || attempt == r.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return apperrors.NewStorageError(ctx.Err())
		case <-time.After(r.backoff * time.Duration(attempt+1)):
		}
	}
	return apperrors.NewStorageError(err)
}

func isTransient(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgSerializationFailure, pgErr.Code == pgDeadlockDetected:
			return true
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == pgConnectionExceptionCls:
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
