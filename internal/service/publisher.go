package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/poll-service/internal/events"
)

// publisher fans domain events out to the dispatcher. Handler failures are
// logged and never fail the operation that produced the event.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func (p publisher) publish(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil && p.logger != nil {
		p.logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("event_id", event.ID),
			zap.Error(err))
	}
}
