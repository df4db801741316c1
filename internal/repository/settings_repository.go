package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/poll-service/internal/domain"
)

type settingsRepository struct {
	pool  *pgxpool.Pool
	retry retrier
}

// NewSettingsRepository returns a Postgres-backed implementation.
func NewSettingsRepository(pool *pgxpool.Pool, maxRetries int) SettingsRepository {
	return &settingsRepository{pool: pool, retry: newRetrier(maxRetries)}
}

func (r *settingsRepository) Get(ctx context.Context) (domain.Settings, error) {
	settings := domain.DefaultSettings()
	err := r.retry.do(ctx, func(ctx context.Context) error {
		err := r.pool.QueryRow(ctx, `
        SELECT public_registration, email_notifications, anonymous_voting, updated_by::text, updated_at
        FROM platform_settings WHERE id=1`).Scan(
			&settings.PublicRegistration,
			&settings.EmailNotifications,
			&settings.AnonymousVoting,
			&settings.UpdatedBy,
			&settings.UpdatedAt,
		)
		if errors.Is(err, pgx.ErrNoRows) {
			settings = domain.DefaultSettings()
			return nil
		}
		return err
	})
	return settings, err
}

func (r *settingsRepository) Save(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	err := r.retry.do(ctx, func(ctx context.Context) error {
		return r.pool.QueryRow(ctx, `
        INSERT INTO platform_settings (id, public_registration, email_notifications, anonymous_voting, updated_by, updated_at)
        VALUES (1, $1, $2, $3, $4, NOW())
        ON CONFLICT (id) DO UPDATE SET
            public_registration = EXCLUDED.public_registration,
            email_notifications = EXCLUDED.email_notifications,
            anonymous_voting = EXCLUDED.anonymous_voting,
            updated_by = EXCLUDED.updated_by,
            updated_at = EXCLUDED.updated_at
        RETURNING updated_at`,
			settings.PublicRegistration,
			settings.EmailNotifications,
			settings.AnonymousVoting,
			settings.UpdatedBy,
		).Scan(&settings.UpdatedAt)
	})
	return settings, err
}
