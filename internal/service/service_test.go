package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/cache"
	"github.com/spec-kit/poll-service/internal/config"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/observability"
	"github.com/spec-kit/poll-service/internal/repository"
)

var testNow = time.Date(2026, 6, 15, 14, 30, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	store    repository.Store
	polls    *PollService
	users    *UserService
	authSvc  *AuthService
	stats    *StatsService
	settings *SettingsService
	metrics  *observability.Metrics
	guard    *cache.VoteGuard
	recorder *eventRecorder
	clock    *time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher()
	recorder := &eventRecorder{}
	for _, et := range events.AllEventTypes {
		dispatcher.Subscribe(et, recorder.handle)
	}
	now := testNow
	clock := func() time.Time { return now }
	gate := auth.NewGate()
	metrics := observability.NewMetrics()
	stats := NewStatsService(store, gate, clock)
	guard := cache.NewVoteGuard(cache.NewMemoryCache(), 5*time.Second, nil)

	return &testEnv{
		store: store,
		polls: NewPollService(PollDependencies{
			PollRepo:   store.Polls,
			VoteLedger: store.Votes,
			UserRepo:   store.Users,
			Gate:       gate,
			VoteGuard:  guard,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Clock:      clock,
		}),
		users: NewUserService(UserDependencies{
			UserRepo:   store.Users,
			Stats:      stats,
			Gate:       gate,
			Dispatcher: dispatcher,
		}),
		authSvc: NewAuthService(config.AuthConfig{JWTSecret: "test", AccessTokenTTLMinutes: 5, BcryptCost: 4}, AuthDependencies{
			UserRepo:     store.Users,
			SettingsRepo: store.Settings,
		}),
		stats:    stats,
		settings: NewSettingsService(store.Settings, gate, dispatcher, nil),
		metrics:  metrics,
		guard:    guard,
		recorder: recorder,
		clock:    &now,
	}
}

func (e *testEnv) user(t *testing.T, name string, role domain.Role) *domain.User {
	t.Helper()
	u := &domain.User{Name: name, Email: name + "@example.com", Role: role}
	if err := e.store.Users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

func date(offsetDays int) string {
	return testNow.AddDate(0, 0, offsetDays).Format(domain.DateLayout)
}
