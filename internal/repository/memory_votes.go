package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

type voteKey struct {
	userID string
	pollID string
}

// MemoryVoteLedger keeps vote records in a map keyed by (user, poll).
type MemoryVoteLedger struct {
	mu      sync.RWMutex
	records map[voteKey]domain.VoteRecord
	now     func() time.Time
}

// NewMemoryVoteLedger returns an empty ledger.
func NewMemoryVoteLedger() *MemoryVoteLedger {
	return &MemoryVoteLedger{
		records: make(map[voteKey]domain.VoteRecord),
		now:     time.Now,
	}
}

func (l *MemoryVoteLedger) HasVoted(_ context.Context, userID, pollID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.records[voteKey{userID: userID, pollID: pollID}]
	return ok, nil
}

func (l *MemoryVoteLedger) Record(_ context.Context, vote domain.VoteRecord) error {
	key := voteKey{userID: vote.UserID, pollID: vote.PollID}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.records[key]; ok {
		return apperrors.NewDuplicateVote(vote.UserID, vote.PollID)
	}
	if vote.CreatedAt.IsZero() {
		vote.CreatedAt = l.now().UTC()
	}
	l.records[key] = vote
	return nil
}

func (l *MemoryVoteLedger) Purge(_ context.Context, pollID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed int64
	for key := range l.records {
		if key.pollID == pollID {
			delete(l.records, key)
			removed++
		}
	}
	return removed, nil
}

func (l *MemoryVoteLedger) CountByUser(_ context.Context, userID string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var count int64
	for key := range l.records {
		if key.userID == userID {
			count++
		}
	}
	return count, nil
}

func (l *MemoryVoteLedger) Count(_ context.Context) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(len(l.records)), nil
}
