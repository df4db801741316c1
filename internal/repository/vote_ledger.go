package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const votesUserPollConstraint = "votes_user_poll_key"

type voteLedger struct {
	pool  *pgxpool.Pool
	retry retrier
}

// NewVoteLedger returns a Postgres-backed ledger.
func NewVoteLedger(pool *pgxpool.Pool, maxRetries int) VoteLedger {
	return &voteLedger{pool: pool, retry: newRetrier(maxRetries)}
}

func (l *voteLedger) HasVoted(ctx context.Context, userID, pollID string) (bool, error) {
	var exists bool
	err := l.retry.do(ctx, func(ctx context.Context) error {
		return l.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM votes WHERE user_id=$1 AND poll_id::text=$2)`,
			userID, pollID,
		).Scan(&exists)
	})
	return exists, err
}

func (l *voteLedger) Record(ctx context.Context, vote domain.VoteRecord) error {
	return l.retry.do(ctx, func(ctx context.Context) error {
		return insertVote(ctx, l.pool, &vote)
	})
}

func (l *voteLedger) Purge(ctx context.Context, pollID string) (int64, error) {
	var removed int64
	err := l.retry.do(ctx, func(ctx context.Context) error {
		tag, err := l.pool.Exec(ctx, `DELETE FROM votes WHERE poll_id::text=$1`, pollID)
		if err != nil {
			return err
		}
		removed = tag.RowsAffected()
		return nil
	})
	return removed, err
}

func (l *voteLedger) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := l.retry.do(ctx, func(ctx context.Context) error {
		return l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes WHERE user_id=$1`, userID).Scan(&count)
	})
	return count, err
}

func (l *voteLedger) Count(ctx context.Context) (int64, error) {
	var count int64
	err := l.retry.do(ctx, func(ctx context.Context) error {
		return l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM votes`).Scan(&count)
	})
	return count, err
}

type execer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertVote(ctx context.Context, db execer, vote *domain.VoteRecord) error {
	err := db.QueryRow(ctx, `
        INSERT INTO votes (user_id, poll_id, option_id)
        VALUES ($1,$2,$3)
        RETURNING created_at`,
		vote.UserID, vote.PollID, vote.OptionID,
	).Scan(&vote.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == votesUserPollConstraint:
			return apperrors.NewDuplicateVote(vote.UserID, vote.PollID)
		case pgErr.Code == pgInvalidTextRepr, pgErr.Code == pgForeignKeyViolation:
			return apperrors.NewNotFound("poll", map[string]any{"pollId": vote.PollID})
		}
	}
	return err
}
