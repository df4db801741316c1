package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const pollColumns = `id, title, description, end_date, closed, creator_id, creator_name, created_at, updated_at`

type pollRepository struct {
	pool  *pgxpool.Pool
	retry retrier
}

// NewPollRepository returns a Postgres-backed implementation.
func NewPollRepository(pool *pgxpool.Pool, maxRetries int) PollRepository {
	return &pollRepository{pool: pool, retry: newRetrier(maxRetries)}
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *pollRepository) Create(ctx context.Context, poll *domain.Poll) error {
	return r.retry.do(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			const insertPoll = `
        INSERT INTO polls (id, title, description, end_date, closed, creator_id, creator_name)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at, updated_at`
			if err := tx.QueryRow(ctx, insertPoll,
				poll.ID,
				poll.Title,
				poll.Description,
				poll.EndDate,
				poll.Closed,
				poll.CreatorID,
				poll.CreatorName,
			).Scan(&poll.CreatedAt, &poll.UpdatedAt); err != nil {
				return err
			}

			batch := &pgx.Batch{}
			for _, opt := range poll.Options {
				batch.Queue(`INSERT INTO poll_options (id, poll_id, text, votes, position) VALUES ($1,$2,$3,$4,$5)`,
					opt.ID, poll.ID, opt.Text, opt.Votes, opt.Position)
			}
			return tx.SendBatch(ctx, batch).Close()
		})
	})
}

func (r *pollRepository) GetByID(ctx context.Context, id string) (*domain.Poll, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	var poll *domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		p, err := fetchPoll(ctx, r.pool, id, false)
		poll = p
		return err
	})
	return poll, err
}

func (r *pollRepository) List(ctx context.Context) ([]domain.Poll, error) {
	var polls []domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		polls, err = listPolls(ctx, r.pool, `SELECT `+pollColumns+` FROM polls ORDER BY created_at DESC, id`)
		return err
	})
	return polls, err
}

func (r *pollRepository) ListByCreator(ctx context.Context, creatorID string) ([]domain.Poll, error) {
	if _, err := uuid.Parse(creatorID); err != nil {
		return []domain.Poll{}, nil
	}
	var polls []domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		var err error
		polls, err = listPolls(ctx, r.pool,
			`SELECT `+pollColumns+` FROM polls WHERE creator_id=$1 ORDER BY created_at DESC, id`, creatorID)
		return err
	})
	return polls, err
}

func (r *pollRepository) UpdateLifecycle(ctx context.Context, id string, fn PollMutation) (*domain.Poll, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	var result *domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			poll, err := fetchPoll(ctx, tx, id, true)
			if err != nil {
				return err
			}
			if err := fn(poll); err != nil {
				return err
			}
			if err := tx.QueryRow(ctx,
				`UPDATE polls SET closed=$1, end_date=$2, updated_at=NOW() WHERE id=$3 RETURNING updated_at`,
				poll.Closed, poll.EndDate, poll.ID,
			).Scan(&poll.UpdatedAt); err != nil {
				return err
			}
			result = poll
			return nil
		})
	})
	return result, err
}

func (r *pollRepository) ApplyVote(ctx context.Context, vote *domain.VoteRecord, check VoteCheck) (*domain.Poll, error) {
	if _, err := uuid.Parse(vote.PollID); err != nil {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": vote.PollID})
	}
	var result *domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			poll, err := fetchPoll(ctx, tx, vote.PollID, true)
			if err != nil {
				return err
			}

			var alreadyVoted bool
			if vote.UserID != "" {
				if err := tx.QueryRow(ctx,
					`SELECT EXISTS (SELECT 1 FROM votes WHERE user_id=$1 AND poll_id=$2)`,
					vote.UserID, vote.PollID,
				).Scan(&alreadyVoted); err != nil {
					return err
				}
			}
			if err := check(poll, alreadyVoted); err != nil {
				return err
			}

			if err := insertVote(ctx, tx, vote); err != nil {
				return err
			}
			tag, err := tx.Exec(ctx,
				`UPDATE poll_options SET votes = votes + 1 WHERE id=$1 AND poll_id=$2`,
				vote.OptionID, vote.PollID)
			if err != nil {
				return err
			}
			if tag.RowsAffected() != 1 {
				return apperrors.NewInvalidOption(vote.PollID, vote.OptionID)
			}
			opt, _ := poll.Option(vote.OptionID)
			opt.Votes++
			result = poll
			return nil
		})
	})
	return result, err
}

func (r *pollRepository) ResetTallies(ctx context.Context, id string) (*domain.Poll, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	var result *domain.Poll
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
			poll, err := fetchPoll(ctx, tx, id, true)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE poll_options SET votes = 0 WHERE poll_id=$1`, id); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `UPDATE polls SET updated_at=NOW() WHERE id=$1`, id); err != nil {
				return err
			}
			for i := range poll.Options {
				poll.Options[i].Votes = 0
			}
			result = poll
			return nil
		})
	})
	return result, err
}

func (r *pollRepository) CountByCreator(ctx context.Context, creatorID string, now time.Time) (int64, int64, error) {
	if _, err := uuid.Parse(creatorID); err != nil {
		return 0, 0, nil
	}
	var total, active int64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT closed AND end_date >= $2)
        FROM polls WHERE creator_id=$1`, creatorID, domain.DateOf(now)).Scan(&total, &active)
	})
	return total, active, err
}

func (r *pollRepository) Count(ctx context.Context, now time.Time) (int64, int64, error) {
	var total, active int64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT closed AND end_date >= $1)
        FROM polls`, domain.DateOf(now)).Scan(&total, &active)
	})
	return total, active, err
}

func fetchPoll(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Poll, error) {
	query := `SELECT ` + pollColumns + ` FROM polls WHERE id=$1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	poll, err := scanPoll(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	if err != nil {
		return nil, err
	}
	options, err := loadOptions(ctx, q, []string{id})
	if err != nil {
		return nil, err
	}
	poll.Options = options[id]
	return poll, nil
}

func listPolls(ctx context.Context, q queryer, query string, args ...any) ([]domain.Poll, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	polls := []domain.Poll{}
	ids := []string{}
	for rows.Next() {
		poll, err := scanPoll(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		polls = append(polls, *poll)
		ids = append(ids, poll.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return polls, nil
	}
	options, err := loadOptions(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range polls {
		polls[i].Options = options[polls[i].ID]
	}
	return polls, nil
}

func scanPoll(row pgx.Row) (*domain.Poll, error) {
	var poll domain.Poll
	if err := row.Scan(
		&poll.ID,
		&poll.Title,
		&poll.Description,
		&poll.EndDate,
		&poll.Closed,
		&poll.CreatorID,
		&poll.CreatorName,
		&poll.CreatedAt,
		&poll.UpdatedAt,
	); err != nil {
		return nil, err
	}
	poll.EndDate = domain.DateOf(poll.EndDate)
	return &poll, nil
}

func loadOptions(ctx context.Context, q queryer, pollIDs []string) (map[string][]domain.Option, error) {
	rows, err := q.Query(ctx, `
        SELECT id, poll_id, text, votes, position
        FROM poll_options WHERE poll_id = ANY($1)
        ORDER BY poll_id, position`, pollIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string][]domain.Option, len(pollIDs))
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Votes, &opt.Position); err != nil {
			return nil, err
		}
		result[opt.PollID] = append(result[opt.PollID], opt)
	}
	return result, rows.Err()
}
