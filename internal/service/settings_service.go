package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/auth"
	"github.com/spec-kit/poll-service/internal/domain"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/repository"
)

// SettingsService reads and updates the platform switches.
type SettingsService struct {
	settings repository.SettingsRepository
	gate     *auth.Gate
	logger   *zap.Logger
	events   publisher
}

// SettingsUpdate carries the switches to change; nil fields are left alone.
type SettingsUpdate struct {
	PublicRegistration *bool
	EmailNotifications *bool
	AnonymousVoting    *bool
}

// NewSettingsService constructs the service.
func NewSettingsService(repo repository.SettingsRepository, gate *auth.Gate, dispatcher events.Dispatcher, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gate == nil {
		gate = auth.NewGate()
	}
	return &SettingsService{
		settings: repo,
		gate:     gate,
		logger:   logger,
		events:   publisher{dispatcher: dispatcher, logger: logger},
	}
}

// Get returns the current settings.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	return s.settings.Get(ctx)
}

// Update applies the given switches.
func (s *SettingsService) Update(ctx context.Context, actor *domain.User, update SettingsUpdate) (domain.Settings, error) {
	if err := s.gate.Authorize(actor, auth.CapManageSettings); err != nil {
		return domain.Settings{}, err
	}
	current, err := s.settings.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if update.PublicRegistration != nil {
		current.PublicRegistration = *update.PublicRegistration
	}
	if update.EmailNotifications != nil {
		current.EmailNotifications = *update.EmailNotifications
	}
	if update.AnonymousVoting != nil {
		current.AnonymousVoting = *update.AnonymousVoting
	}
	id := actor.ID
	current.UpdatedBy = &id

	saved, err := s.settings.Save(ctx, current)
	if err != nil {
		return domain.Settings{}, err
	}
	s.logger.Info("settings updated",
		zap.String("actor_id", actor.ID),
		zap.Bool("public_registration", saved.PublicRegistration),
		zap.Bool("email_notifications", saved.EmailNotifications),
		zap.Bool("anonymous_voting", saved.AnonymousVoting))
	s.events.publish(ctx, events.New(events.EventSettingsUpdated, "", events.ActorOf(actor), events.SettingsUpdatedPayload{
		PublicRegistration: saved.PublicRegistration,
		EmailNotifications: saved.EmailNotifications,
		AnonymousVoting:    saved.AnonymousVoting,
	}))
	return saved, nil
}
