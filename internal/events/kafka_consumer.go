package events

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

// UserProjector applies identity events to the local user projection.
type UserProjector interface {
	ApplyUserEvent(ctx context.Context, evt application.UserEvent) error
}

// IdentityEventConsumer listens to identity events and keeps guest and host
// display names current.
type IdentityEventConsumer struct {
	consumer *kafka.Consumer
	service  UserProjector
	logger   *zap.Logger
}

// NewIdentityEventConsumer creates a new IdentityEventConsumer.
func NewIdentityEventConsumer(
	brokers []string,
	groupID string,
	service UserProjector,
	logger *zap.Logger,
) *IdentityEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, application.TopicIdentityEvents, logger)
	return &IdentityEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming identity events. This blocks until the context is cancelled.
func (c *IdentityEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *IdentityEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *IdentityEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	return handleIdentityEvent(ctx, c.service, c.logger, msg.Value)
}

func handleIdentityEvent(ctx context.Context, service UserProjector, logger *zap.Logger, value []byte) error {
	cloudEvent, err := kafka.ParseCloudEvent(value)
	if err != nil {
		logger.Error("failed to parse cloud event from identity topic",
			zap.Error(err),
			zap.String("raw", string(value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case application.UserRegistered, application.UserUpdated:
		var evt application.UserEvent
		if err := cloudEvent.ParseData(&evt); err != nil {
			logger.Error("failed to parse UserEvent data",
				zap.String("type", cloudEvent.Type),
				zap.Error(err),
			)
			return nil // Don't retry malformed data
		}
		if evt.OccurredAt.IsZero() {
			evt.OccurredAt = cloudEvent.Time
		}
		return service.ApplyUserEvent(ctx, evt)
	default:
		logger.Debug("ignoring unhandled identity event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}
