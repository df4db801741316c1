package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/events"
	"github.com/spec-kit/poll-service/internal/service"
)

// StartNotificationWorker subscribes the notification service to poll,
// account and settings events.
func StartNotificationWorker(notificationService *service.NotificationService, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notificationService == nil {
		logger.Warn("notification service missing; events will not be delivered")
		return
	}
	notificationService.RegisterHandlers()

	types := make([]string, len(events.AllEventTypes))
	for i, t := range events.AllEventTypes {
		types[i] = string(t)
	}
	logger.Info("notification worker started", zap.Strings("event_types", types))
}
