package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// MemoryPollRepository stores polls in process. Every mutation of a poll runs
// under that poll's own mutex; the map itself is guarded separately.
type MemoryPollRepository struct {
	mu     sync.RWMutex
	polls  map[string]*domain.Poll
	locks  map[string]*sync.Mutex
	ledger *MemoryVoteLedger
	now    func() time.Time
}

// NewMemoryPollRepository returns an empty repository sharing ledger for votes.
func NewMemoryPollRepository(ledger *MemoryVoteLedger) *MemoryPollRepository {
	return &MemoryPollRepository{
		polls:  make(map[string]*domain.Poll),
		locks:  make(map[string]*sync.Mutex),
		ledger: ledger,
		now:    time.Now,
	}
}

func (r *MemoryPollRepository) Create(_ context.Context, poll *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.polls[poll.ID]; exists {
		return apperrors.NewConflict("poll already exists", map[string]any{"pollId": poll.ID})
	}
	ts := r.now().UTC()
	poll.CreatedAt = ts
	poll.UpdatedAt = ts
	r.polls[poll.ID] = poll.Clone()
	r.locks[poll.ID] = &sync.Mutex{}
	return nil
}

func (r *MemoryPollRepository) GetByID(_ context.Context, id string) (*domain.Poll, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	poll, ok := r.polls[id]
	if !ok {
		return nil, apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	return poll.Clone(), nil
}

func (r *MemoryPollRepository) List(_ context.Context) ([]domain.Poll, error) {
	return r.collect(func(*domain.Poll) bool { return true }), nil
}

func (r *MemoryPollRepository) ListByCreator(_ context.Context, creatorID string) ([]domain.Poll, error) {
	return r.collect(func(p *domain.Poll) bool {
		return p.CreatorID != nil && *p.CreatorID == creatorID
	}), nil
}

func (r *MemoryPollRepository) collect(keep func(*domain.Poll) bool) []domain.Poll {
	r.mu.RLock()
	polls := make([]domain.Poll, 0, len(r.polls))
	for _, p := range r.polls {
		if keep(p) {
			polls = append(polls, *p.Clone())
		}
	}
	r.mu.RUnlock()

	sort.Slice(polls, func(i, j int) bool {
		if polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].ID < polls[j].ID
		}
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls
}

func (r *MemoryPollRepository) UpdateLifecycle(_ context.Context, id string, fn PollMutation) (*domain.Poll, error) {
	var result *domain.Poll
	err := r.withPoll(id, func(stored *domain.Poll) error {
		working := stored.Clone()
		if err := fn(working); err != nil {
			return err
		}
		r.mu.Lock()
		stored.Closed = working.Closed
		stored.EndDate = working.EndDate
		stored.UpdatedAt = r.now().UTC()
		result = stored.Clone()
		r.mu.Unlock()
		return nil
	})
	return result, err
}

func (r *MemoryPollRepository) ApplyVote(ctx context.Context, vote *domain.VoteRecord, check VoteCheck) (*domain.Poll, error) {
	var result *domain.Poll
	err := r.withPoll(vote.PollID, func(stored *domain.Poll) error {
		alreadyVoted := false
		if vote.UserID != "" {
			var err error
			if alreadyVoted, err = r.ledger.HasVoted(ctx, vote.UserID, vote.PollID); err != nil {
				return err
			}
		}
		r.mu.RLock()
		snapshot := stored.Clone()
		r.mu.RUnlock()
		if err := check(snapshot, alreadyVoted); err != nil {
			return err
		}
		if _, ok := snapshot.Option(vote.OptionID); !ok {
			return apperrors.NewInvalidOption(vote.PollID, vote.OptionID)
		}

		vote.CreatedAt = r.now().UTC()
		if err := r.ledger.Record(ctx, *vote); err != nil {
			return err
		}
		r.mu.Lock()
		opt, _ := stored.Option(vote.OptionID)
		opt.Votes++
		stored.UpdatedAt = vote.CreatedAt
		result = stored.Clone()
		r.mu.Unlock()
		return nil
	})
	return result, err
}

func (r *MemoryPollRepository) ResetTallies(_ context.Context, id string) (*domain.Poll, error) {
	var result *domain.Poll
	err := r.withPoll(id, func(stored *domain.Poll) error {
		r.mu.Lock()
		for i := range stored.Options {
			stored.Options[i].Votes = 0
		}
		stored.UpdatedAt = r.now().UTC()
		result = stored.Clone()
		r.mu.Unlock()
		return nil
	})
	return result, err
}

func (r *MemoryPollRepository) CountByCreator(_ context.Context, creatorID string, now time.Time) (int64, int64, error) {
	total, active := r.count(now, func(p *domain.Poll) bool {
		return p.CreatorID != nil && *p.CreatorID == creatorID
	})
	return total, active, nil
}

func (r *MemoryPollRepository) Count(_ context.Context, now time.Time) (int64, int64, error) {
	total, active := r.count(now, func(*domain.Poll) bool { return true })
	return total, active, nil
}

func (r *MemoryPollRepository) count(now time.Time, keep func(*domain.Poll) bool) (total, active int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.polls {
		if !keep(p) {
			continue
		}
		total++
		if p.ActiveAt(now) {
			active++
		}
	}
	return total, active
}

// withPoll runs fn while holding the poll's mutation lock.
func (r *MemoryPollRepository) withPoll(id string, fn func(stored *domain.Poll) error) error {
	r.mu.RLock()
	stored, ok := r.polls[id]
	lock := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return apperrors.NewNotFound("poll", map[string]any{"pollId": id})
	}
	lock.Lock()
	defer lock.Unlock()
	return fn(stored)
}
