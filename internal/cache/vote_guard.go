package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	voteGuardPrefix = "poll:vote-guard:"
	guardRetryDelay = 10 * time.Millisecond
)

// VoteGuard serializes in-flight submissions for the same (poll, user) before
// they reach the database. It never rejects a vote; the vote ledger decides.
type VoteGuard struct {
	cache  Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewVoteGuard constructs a guard. A nil cache disables it.
func NewVoteGuard(c Cache, ttl time.Duration, logger *zap.Logger) *VoteGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoteGuard{cache: c, ttl: ttl, logger: logger}
}

// Acquire claims the (poll, user) slot, waiting while another submission
// holds it. Waiting stops after the guard TTL or when ctx is done, and the
// caller proceeds unguarded. Cache failures are logged and ignored. The
// returned release must be called once the submission finished.
func (g *VoteGuard) Acquire(ctx context.Context, pollID, userID string) func() {
	noop := func() {}
	if g == nil || g.cache == nil || userID == "" {
		return noop
	}
	key := voteGuardPrefix + pollID + ":" + userID
	deadline := time.Now().Add(g.ttl)
	for {
		ok, err := g.cache.SetNX(ctx, key, uuid.NewString(), g.ttl)
		if err != nil {
			g.logger.Warn("vote guard unavailable", zap.String("poll_id", pollID), zap.Error(err))
			return noop
		}
		if ok {
			return func() {
				if err := g.cache.Del(context.WithoutCancel(ctx), key); err != nil {
					g.logger.Warn("vote guard release failed", zap.String("poll_id", pollID), zap.Error(err))
				}
			}
		}
		if !time.Now().Before(deadline) {
			g.logger.Warn("vote guard wait expired", zap.String("poll_id", pollID))
			return noop
		}
		timer := time.NewTimer(guardRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return noop
		case <-timer.C:
		}
	}
}
