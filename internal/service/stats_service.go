package service

import (
	"context"
	"time"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/repository"
)

// StatsService aggregates personal and platform counters.
type StatsService struct {
	polls repository.PollRepository
	votes repository.VoteLedger
	users repository.UserRepository
	gate  *auth.Gate
	clock func() time.Time
}

// NewStatsService constructs the service.
func NewStatsService(store repository.Store, gate *auth.Gate, clock func() time.Time) *StatsService {
	if clock == nil {
		clock = time.Now
	}
	if gate == nil {
		gate = auth.NewGate()
	}
	return &StatsService{
		polls: store.Polls,
		votes: store.Votes,
		users: store.Users,
		gate:  gate,
		clock: clock,
	}
}

// UserStats returns the activity counters of a single user.
func (s *StatsService) UserStats(ctx context.Context, userID string) (domain.UserStats, error) {
	votes, err := s.votes.CountByUser(ctx, userID)
	if err != nil {
		return domain.UserStats{}, err
	}
	total, active, err := s.polls.CountByCreator(ctx, userID, s.clock())
	if err != nil {
		return domain.UserStats{}, err
	}
	return domain.UserStats{VotesCast: votes, PollsCreated: total, ActivePollsCreated: active}, nil
}

// PlatformStats returns platform-wide counters. Users excludes demo accounts.
func (s *StatsService) PlatformStats(ctx context.Context, actor *domain.User) (domain.PlatformStats, error) {
	if err := s.gate.Authorize(actor, auth.CapManageUsers); err != nil {
		return domain.PlatformStats{}, err
	}
	users, demo, err := s.users.Count(ctx)
	if err != nil {
		return domain.PlatformStats{}, err
	}
	polls, active, err := s.polls.Count(ctx, s.clock())
	if err != nil {
		return domain.PlatformStats{}, err
	}
	votes, err := s.votes.Count(ctx)
	if err != nil {
		return domain.PlatformStats{}, err
	}
	return domain.PlatformStats{
		Users:       users - demo,
		DemoUsers:   demo,
		Polls:       polls,
		ActivePolls: active,
		Votes:       votes,
	}, nil
}
