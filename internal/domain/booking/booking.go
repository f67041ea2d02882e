package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// Booking is the aggregate root for the booking domain.
type Booking struct {
	id         uuid.UUID
	guestID    uuid.UUID
	campsiteID uuid.UUID
	stay       Stay
	status     BookingStatus

	totalPriceCents int64

	paidAt      *time.Time
	cancelledAt *time.Time

	version   int64
	createdAt time.Time
	updatedAt time.Time
}

// NewBooking creates a new Booking in status confirmed. There is no approval
// step: a reservation holds the calendar as soon as it is created.
func NewBooking(
	guestID uuid.UUID,
	campsiteID uuid.UUID,
	stay Stay,
	totalPriceCents int64,
	now time.Time,
) (*Booking, error) {
	if guestID == uuid.Nil {
		return nil, domain.NewValidationError("guest ID is required")
	}
	if campsiteID == uuid.Nil {
		return nil, domain.NewValidationError("campsite ID is required")
	}
	if !stay.Start.Before(stay.End) {
		return nil, domain.NewValidationError("End date must be after start date")
	}
	if totalPriceCents <= 0 {
		return nil, domain.NewValidationError("total price must be positive")
	}

	now = now.UTC()
	return &Booking{
		id:              uuid.New(),
		guestID:         guestID,
		campsiteID:      campsiteID,
		stay:            stay,
		status:          StatusConfirmed,
		totalPriceCents: totalPriceCents,
		version:         1,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// ReconstructBooking rebuilds a Booking from persistence data (no validation).
func ReconstructBooking(
	id uuid.UUID,
	guestID uuid.UUID,
	campsiteID uuid.UUID,
	stay Stay,
	status BookingStatus,
	totalPriceCents int64,
	paidAt *time.Time,
	cancelledAt *time.Time,
	version int64,
	createdAt time.Time,
	updatedAt time.Time,
) *Booking {
	return &Booking{
		id:              id,
		guestID:         guestID,
		campsiteID:      campsiteID,
		stay:            stay,
		status:          status,
		totalPriceCents: totalPriceCents,
		paidAt:          paidAt,
		cancelledAt:     cancelledAt,
		version:         version,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
	}
}

// --- Getters ---

// ID returns the booking's unique identifier.
func (b *Booking) ID() uuid.UUID { return b.id }

// GuestID returns the ID of the guest who made the reservation.
func (b *Booking) GuestID() uuid.UUID { return b.guestID }

// CampsiteID returns the reserved campsite.
func (b *Booking) CampsiteID() uuid.UUID { return b.campsiteID }

// Stay returns the reserved date range.
func (b *Booking) Stay() Stay { return b.stay }

// Status returns the current booking status.
func (b *Booking) Status() BookingStatus { return b.status }

// TotalPriceCents returns the price fixed at creation.
func (b *Booking) TotalPriceCents() int64 { return b.totalPriceCents }

// PaidAt returns when payment succeeded, or nil.
func (b *Booking) PaidAt() *time.Time { return b.paidAt }

// CancelledAt returns when the booking was cancelled, or nil.
func (b *Booking) CancelledAt() *time.Time { return b.cancelledAt }

// Version returns the entity version for optimistic locking.
func (b *Booking) Version() int64 { return b.version }

// CreatedAt returns the creation timestamp.
func (b *Booking) CreatedAt() time.Time { return b.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (b *Booking) UpdatedAt() time.Time { return b.updatedAt }

// IsGuest reports whether userID made this booking.
func (b *Booking) IsGuest(userID uuid.UUID) bool { return b.guestID == userID }

// --- Behavior ---

// Cancel transitions the booking to cancelled. today is the current calendar
// date; a stay that starts today or earlier can no longer be cancelled.
func (b *Booking) Cancel(today, now time.Time) error {
	if b.status == StatusCancelled {
		return domain.NewInvalidStateError("Booking is already cancelled")
	}
	if !b.stay.StartsAfter(today) {
		return domain.NewInvalidStateError("Cannot cancel booking that has already started")
	}
	if !b.status.CanTransitionTo(StatusCancelled) {
		return domain.NewInvalidStateError(fmt.Sprintf("Cannot cancel booking in status %s", b.status))
	}
	now = now.UTC()
	b.status = StatusCancelled
	b.cancelledAt = &now
	b.updatedAt = now
	return nil
}

// CheckPayable returns the error MarkPaid would return, without mutating.
func (b *Booking) CheckPayable() error {
	switch {
	case b.status == StatusPaid:
		return domain.NewInvalidStateError("Booking is already paid")
	case b.status == StatusCancelled:
		return domain.NewInvalidStateError("Cannot pay for cancelled booking")
	case !b.status.CanTransitionTo(StatusPaid):
		return domain.NewInvalidStateError(fmt.Sprintf("Cannot pay for booking in status %s", b.status))
	}
	return nil
}

// MarkPaid transitions the booking to paid.
func (b *Booking) MarkPaid(now time.Time) error {
	if err := b.CheckPayable(); err != nil {
		return err
	}
	now = now.UTC()
	b.status = StatusPaid
	b.paidAt = &now
	b.updatedAt = now
	return nil
}

// IncrementVersion bumps the version for optimistic locking.
func (b *Booking) IncrementVersion() {
	b.version++
}
