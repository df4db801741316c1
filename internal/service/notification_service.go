package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/config"
	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/repository"
)

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	settings   repository.SettingsRepository
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, settings repository.SettingsRepository, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		settings:   settings,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventPollCreated, n.handlePollCreated)
	n.dispatcher.Subscribe(events.EventVoteCast, n.handleVoteCast)
	n.dispatcher.Subscribe(events.EventPollClosed, n.handlePollLifecycle)
	n.dispatcher.Subscribe(events.EventPollReopened, n.handlePollLifecycle)
	n.dispatcher.Subscribe(events.EventVotesPurged, n.handleAudit)
	n.dispatcher.Subscribe(events.EventTalliesReset, n.handleAudit)
	n.dispatcher.Subscribe(events.EventUserRemoved, n.handleAccountChange)
	n.dispatcher.Subscribe(events.EventRoleChanged, n.handleAccountChange)
	n.dispatcher.Subscribe(events.EventSettingsUpdated, n.handleAudit)
}

func (n *NotificationService) handlePollCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("PollCreated", zap.String("poll_id", event.PollID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleVoteCast(ctx context.Context, event events.Event) error {
	n.logger.Debug("VoteCast", zap.String("poll_id", event.PollID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePollLifecycle(ctx context.Context, event events.Event) error {
	n.logger.Info("PollLifecycle", zap.String("event_type", string(event.Type)), zap.String("poll_id", event.PollID))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAccountChange(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountChange", zap.String("event_type", string(event.Type)), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleAudit(ctx context.Context, event events.Event) error {
	n.logger.Warn("Audit", zap.String("event_type", string(event.Type)), zap.String("poll_id", event.PollID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) bool {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return false
	}
	if n.settings != nil {
		settings, err := n.settings.Get(ctx)
		if err != nil {
			n.logger.Warn("settings unavailable; skipping email", zap.Error(err))
			return false
		}
		if !settings.EmailNotifications {
			return false
		}
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("poll_id", event.PollID),
		zap.String("event_type", string(event.Type)))
	return true
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) bool {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return false
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("poll_id", event.PollID),
		zap.String("event_type", string(event.Type)))
	return true
}
