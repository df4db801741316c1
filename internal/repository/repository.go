package repository

import (
	"context"
	"time"

	"github.com/spec-kit/poll-service/internal/domain"
)

// VoteCheck runs inside the per-poll mutation scope before a vote is recorded.
// alreadyVoted reflects the ledger at the time the scope was entered.
type VoteCheck func(poll *domain.Poll, alreadyVoted bool) error

// PollMutation edits lifecycle fields of a poll inside its mutation scope.
type PollMutation func(poll *domain.Poll) error

// PollRepository persists polls and their option counters.
type PollRepository interface {
	Create(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id string) (*domain.Poll, error)
	List(ctx context.Context) ([]domain.Poll, error)
	ListByCreator(ctx context.Context, creatorID string) ([]domain.Poll, error)
	// UpdateLifecycle persists Closed and EndDate as changed by fn.
	UpdateLifecycle(ctx context.Context, id string, fn PollMutation) (*domain.Poll, error)
	// ApplyVote checks and records a vote and increments the option counter as one unit.
	ApplyVote(ctx context.Context, vote *domain.VoteRecord, check VoteCheck) (*domain.Poll, error)
	ResetTallies(ctx context.Context, id string) (*domain.Poll, error)
	CountByCreator(ctx context.Context, creatorID string, now time.Time) (total, active int64, err error)
	Count(ctx context.Context, now time.Time) (total, active int64, err error)
}

// VoteLedger is the authoritative record of who voted on which poll.
type VoteLedger interface {
	HasVoted(ctx context.Context, userID, pollID string) (bool, error)
	Record(ctx context.Context, vote domain.VoteRecord) error
	Purge(ctx context.Context, pollID string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Count(ctx context.Context) (total, demo int64, err error)
}

// SettingsRepository stores the single platform settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, error)
	Save(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// Store bundles the repositories a backend provides.
type Store struct {
	Polls    PollRepository
	Votes    VoteLedger
	Users    UserRepository
	Settings SettingsRepository
}
