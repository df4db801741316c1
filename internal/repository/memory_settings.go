package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/poll-service/internal/domain"
)

// MemorySettingsRepository holds the platform settings in process.
type MemorySettingsRepository struct {
	mu       sync.RWMutex
	settings domain.Settings
}

// NewMemorySettingsRepository starts from the default settings.
func NewMemorySettingsRepository() *MemorySettingsRepository {
	return &MemorySettingsRepository{settings: domain.DefaultSettings()}
}

func (r *MemorySettingsRepository) Get(_ context.Context) (domain.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.settings, nil
}

func (r *MemorySettingsRepository) Save(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	settings.UpdatedAt = time.Now().UTC()
	r.settings = settings
	return settings, nil
}
