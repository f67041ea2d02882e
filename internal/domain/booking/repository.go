package booking

import (
	"context"

	"github.com/google/uuid"
)

// BookingView is a booking joined with the names shown alongside it.
type BookingView struct {
	Booking       *Booking
	GuestName     string
	CampsiteTitle string
	HostID        uuid.UUID
}

// BookingRepository defines the persistence contract for booking aggregates.
type BookingRepository interface {
	// FindByID retrieves a booking by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByIDForUpdate retrieves a booking and locks its row until the
	// surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindView retrieves a booking together with its display fields.
	FindView(ctx context.Context, id uuid.UUID) (*BookingView, error)

	// ListByGuest returns a guest's bookings, newest first.
	ListByGuest(ctx context.Context, guestID uuid.UUID) ([]BookingView, error)

	// ListByHost returns bookings on campsites the host owns, newest first.
	ListByHost(ctx context.Context, hostID uuid.UUID) ([]BookingView, error)

	// IsAvailable reports whether no active booking on the campsite overlaps
	// the stay. excludeID, when set, is left out of the check.
	IsAvailable(ctx context.Context, campsiteID uuid.UUID, stay Stay, excludeID *uuid.UUID) (bool, error)

	// HasPaidBooking reports whether the guest holds a paid booking for the campsite.
	HasPaidBooking(ctx context.Context, guestID, campsiteID uuid.UUID) (bool, error)

	// HasActiveBookings reports whether any active booking references the campsite.
	HasActiveBookings(ctx context.Context, campsiteID uuid.UUID) (bool, error)

	// CountByStatus returns booking counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)

	// Save persists a new booking.
	Save(ctx context.Context, booking *Booking) error

	// Update persists changes to an existing booking with optimistic locking.
	Update(ctx context.Context, booking *Booking) error
}
