//go:build integration

package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/persistence"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// Run with: go test -tags=integration -timeout 180s ./internal/repository/...
func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("polls"),
		postgres.WithUsername("polls"),
		postgres.WithPassword("polls"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Printf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	t.Cleanup(pool.Close)

	_, file, _, _ := runtime.Caller(0)
	dir := filepath.Join(filepath.Dir(file), "..", "..", "migrations")
	if err := persistence.RunMigrations(ctx, pool, dir, zap.NewNop()); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return pool
}

func TestPostgresStore(t *testing.T) {
	pool := setupPostgres(t)
	store := NewPostgresStore(pool, 3)
	ctx := context.Background()

	creator := &domain.User{Name: "Ann", Email: "ann@example.com", Role: domain.RoleParticipant}
	if err := store.Users.Create(ctx, creator); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.Users.Create(ctx, &domain.User{Name: "Ann2", Email: "ANN@example.com", Role: domain.RoleParticipant}); !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	poll := &domain.Poll{
		ID:          uuid.NewString(),
		Title:       "Lunch",
		Description: "Where?",
		EndDate:     domain.DateOf(time.Now().AddDate(0, 0, 3)),
		CreatorID:   &creator.ID,
		CreatorName: creator.Name,
	}
	for i, text := range []string{"Pizza", "Sushi", "Tacos"} {
		poll.Options = append(poll.Options, domain.Option{ID: uuid.NewString(), PollID: poll.ID, Text: text, Position: i})
	}
	if err := store.Polls.Create(ctx, poll); err != nil {
		t.Fatalf("create poll: %v", err)
	}

	t.Run("get_preserves_option_order", func(t *testing.T) {
		got, err := store.Polls.GetByID(ctx, poll.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if len(got.Options) != 3 || got.Options[0].Text != "Pizza" || got.Options[2].Text != "Tacos" {
			t.Fatalf("unexpected options %+v", got.Options)
		}
		if !got.EndDate.Equal(poll.EndDate) {
			t.Fatalf("end date mismatch %s vs %s", got.EndDate, poll.EndDate)
		}
		if _, err := store.Polls.GetByID(ctx, "not-a-uuid"); !errors.Is(err, apperrors.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("concurrent_votes_same_user", func(t *testing.T) {
		var successCount atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				vote := &domain.VoteRecord{UserID: "voter-1", PollID: poll.ID, OptionID: poll.Options[i%3].ID}
				if _, err := store.Polls.ApplyVote(ctx, vote, func(p *domain.Poll, already bool) error {
					if already {
						return apperrors.NewAlreadyVoted(p.ID)
					}
					return nil
				}); err == nil {
					successCount.Add(1)
				}
			}(i)
		}
		wg.Wait()
		if successCount.Load() != 1 {
			t.Fatalf("expected exactly one success, got %d", successCount.Load())
		}
	})

	t.Run("distinct_voters_counters_match_ledger", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				vote := &domain.VoteRecord{UserID: fmt.Sprintf("v-%d", i), PollID: poll.ID, OptionID: poll.Options[0].ID}
				if _, err := store.Polls.ApplyVote(ctx, vote, func(*domain.Poll, bool) error { return nil }); err != nil {
					t.Errorf("vote %d: %v", i, err)
				}
			}(i)
		}
		wg.Wait()
		got, _ := store.Polls.GetByID(ctx, poll.ID)
		ledgerCount, _ := store.Votes.Count(ctx)
		if got.TotalVotes() != 11 || ledgerCount != 11 {
			t.Fatalf("total=%d ledger=%d", got.TotalVotes(), ledgerCount)
		}
	})

	t.Run("ledger_rejects_duplicates", func(t *testing.T) {
		err := store.Votes.Record(ctx, domain.VoteRecord{UserID: "voter-1", PollID: poll.ID, OptionID: poll.Options[1].ID})
		if !errors.Is(err, apperrors.ErrDuplicateVote) {
			t.Fatalf("expected duplicate vote, got %v", err)
		}
	})

	t.Run("lifecycle_and_counts", func(t *testing.T) {
		closed, err := store.Polls.UpdateLifecycle(ctx, poll.ID, func(p *domain.Poll) error {
			p.Closed = true
			return nil
		})
		if err != nil || !closed.Closed {
			t.Fatalf("close: %+v %v", closed, err)
		}
		total, active, err := store.Polls.CountByCreator(ctx, creator.ID, time.Now())
		if err != nil || total != 1 || active != 0 {
			t.Fatalf("counts %d/%d %v", total, active, err)
		}
	})

	t.Run("purge_and_reset", func(t *testing.T) {
		removed, err := store.Votes.Purge(ctx, poll.ID)
		if err != nil || removed != 11 {
			t.Fatalf("purge removed=%d err=%v", removed, err)
		}
		got, _ := store.Polls.GetByID(ctx, poll.ID)
		if got.TotalVotes() != 11 {
			t.Fatalf("purge must not touch counters, total=%d", got.TotalVotes())
		}
		reset, err := store.Polls.ResetTallies(ctx, poll.ID)
		if err != nil || reset.TotalVotes() != 0 {
			t.Fatalf("reset: %v", err)
		}
	})

	t.Run("settings_roundtrip", func(t *testing.T) {
		s, err := store.Settings.Get(ctx)
		if err != nil || !s.PublicRegistration {
			t.Fatalf("defaults: %+v %v", s, err)
		}
		s.PublicRegistration = false
		s.UpdatedBy = &creator.ID
		if _, err := store.Settings.Save(ctx, s); err != nil {
			t.Fatalf("save: %v", err)
		}
		again, _ := store.Settings.Get(ctx)
		if again.PublicRegistration || again.UpdatedBy == nil || *again.UpdatedBy != creator.ID {
			t.Fatalf("settings not persisted: %+v", again)
		}
	})

	t.Run("user_delete_keeps_polls", func(t *testing.T) {
		if err := store.Users.Delete(ctx, creator.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		got, err := store.Polls.GetByID(ctx, poll.ID)
		if err != nil || got.CreatorName != "Ann" {
			t.Fatalf("poll should survive creator removal: %+v %v", got, err)
		}
	})
}
