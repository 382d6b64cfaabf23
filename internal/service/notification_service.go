package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/events"
)

// NotificationService logs lifecycle events and forwards them to an external sink.
type NotificationService struct {
	sink   events.Sink
	logger *zap.Logger
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(sink events.Sink, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		sink:   sink,
		logger: logger,
	}
}

// Handle records one event and forwards it when a sink is configured.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	n.logger.Info(string(event.Type),
		zap.Int64("ticket", event.TicketNumber),
		zap.Stringer("channel", event.ChannelID),
		zap.Stringer("actor", event.Actor.ID),
		zap.Any("payload", event.Payload))
	if n.sink == nil {
		return nil
	}
	if err := n.sink.Forward(ctx, event); err != nil {
		n.logger.Warn("event forward failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		return err
	}
	return nil
}
