package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/poll-service/internal/domain"
	apperrors "github.com/spec-kit/poll-service/pkg/util/errorutil"
)

// MemoryUserRepository keeps accounts in process.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := emailKey(user.Email)
	if _, taken := r.byEmail[key]; taken {
		return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	ts := r.now().UTC()
	user.CreatedAt = ts
	user.UpdatedAt = ts
	r.users[user.ID] = *user
	r.byEmail[key] = user.ID
	return nil
}

func (r *MemoryUserRepository) Update(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[user.ID]
	if !ok {
		return apperrors.NewNotFound("user", map[string]any{"userId": user.ID})
	}
	oldKey, newKey := emailKey(existing.Email), emailKey(user.Email)
	if oldKey != newKey {
		if _, taken := r.byEmail[newKey]; taken {
			return apperrors.NewConflict("email already registered", map[string]any{"email": user.Email})
		}
		delete(r.byEmail, oldKey)
		r.byEmail[newKey] = user.ID
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.now().UTC()
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return apperrors.NewNotFound("user", map[string]any{"userId": id})
	}
	delete(r.users, id)
	delete(r.byEmail, emailKey(user.Email))
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, apperrors.NewNotFound("user", map[string]any{"userId": id})
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[emailKey(email)]
	if !ok {
		return nil, apperrors.NewNotFound("user", nil)
	}
	user := r.users[id]
	return &user, nil
}

func (r *MemoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	users := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u)
	}
	r.mu.RUnlock()
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *MemoryUserRepository) Count(_ context.Context) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var demo int64
	for _, u := range r.users {
		if u.Role.IsDemo() {
			demo++
		}
	}
	return int64(len(r.users)), demo, nil
}
