package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

const userColumns = `id, name, email, password_hash, role, created_at, updated_at`

type userRepository struct {
	pool  *pgxpool.Pool
	retry retrier
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool, maxRetries int) UserRepository {
	return &userRepository{pool: pool, retry: newRetrier(maxRetries)}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO users (id, name, email, password_hash, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING created_at, updated_at`

	return r.retry.do(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx, query,
			user.ID,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
		).Scan(&user.CreatedAt, &user.UpdatedAt)
		if pgCode(err) == pgUniqueViolation {
			return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return err
	})
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	if _, err := uuid.Parse(user.ID); err != nil {
		return apperrors.NewNotFound("user", map[string]any{"userId": user.ID})
	}
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING updated_at`

	return r.retry.do(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx, query,
			user.Name,
			user.Email,
			user.PasswordHash,
			user.Role,
			user.ID,
		).Scan(&user.UpdatedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return apperrors.NewNotFound("user", map[string]any{"userId": user.ID})
		case pgCode(err) == pgUniqueViolation:
			return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		return err
	})
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NewNotFound("user", map[string]any{"userId": id})
	}
	return r.retry.do(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NewNotFound("user", map[string]any{"userId": id})
		}
		return nil
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFound("user", map[string]any{"userId": id})
	}
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email)=$1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.retry.do(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx, query, arg).Scan(
			&user.ID,
			&user.Name,
			&user.Email,
			&user.PasswordHash,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := r.retry.do(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at, id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		users = []domain.User{}
		for rows.Next() {
			var user domain.User
			if err := rows.Scan(
				&user.ID,
				&user.Name,
				&user.Email,
				&user.PasswordHash,
				&user.Role,
				&user.CreatedAt,
				&user.UpdatedAt,
			); err != nil {
				return err
			}
			users = append(users, user)
		}
		return rows.Err()
	})
	return users, err
}

func (r *userRepository) Count(ctx context.Context) (int64, int64, error) {
	var total, demo int64
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx,
			`SELECT COUNT(*), COUNT(*) FILTER (WHERE role LIKE $1) FROM users`,
			domain.DemoPrefix+"%",
		).Scan(&total, &demo)
	})
	return total, demo, err
}
