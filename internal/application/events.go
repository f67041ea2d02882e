package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

const eventSource = "service-booking"

// Topics and event types published by this service.
const (
	TopicBookingEvents = "booking.events"
	TopicReviewEvents  = "review.events"

	BookingCreated       = "booking.created"
	BookingCancelled     = "booking.cancelled"
	BookingPaid          = "booking.paid"
	BookingPaymentFailed = "booking.payment_failed"
	ReviewCreated        = "review.created"
	ReviewUpdated        = "review.updated"
	ReviewDeleted        = "review.deleted"
)

// Identity provider events consumed by this service.
const (
	TopicIdentityEvents = "identity.events"

	UserRegistered = "user.registered"
	UserUpdated    = "user.updated"
)

// BookingEvent is the payload of every booking.* event.
type BookingEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	GuestID         uuid.UUID `json:"guest_id"`
	CampsiteID      uuid.UUID `json:"campsite_id"`
	StartDate       string    `json:"start_date"`
	EndDate         string    `json:"end_date"`
	Status          string    `json:"status"`
	TotalPriceCents int64     `json:"total_price_cents"`
	Currency        string    `json:"currency"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// ReviewEvent is the payload of every review.* event.
type ReviewEvent struct {
	ReviewID   uuid.UUID `json:"review_id"`
	GuestID    uuid.UUID `json:"guest_id"`
	CampsiteID uuid.UUID `json:"campsite_id"`
	Rating     int       `json:"rating,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// UserEvent is the payload of user.registered and user.updated.
type UserEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

// eventPublisher wraps the bus so that publish failures never fail a request
// whose state change has already committed.
type eventPublisher struct {
	producer kafka.Publisher
	logger   *zap.Logger
}

func (p eventPublisher) publish(ctx context.Context, topic, eventType, key string, data interface{}) {
	if p.producer == nil {
		return
	}
	cloudEvent, err := kafka.NewCloudEvent(eventSource, eventType, data)
	if err != nil {
		p.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := p.producer.PublishEvent(ctx, topic, key, cloudEvent); err != nil {
		p.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.Error(err),
		)
	}
}
