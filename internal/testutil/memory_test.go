package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
)

func saveBooking(t *testing.T, repo *BookingRepository, campsiteID uuid.UUID, start, end string) *bookingDomain.Booking {
	t.Helper()
	stay, err := bookingDomain.ParseStay(start, end)
	require.NoError(t, err)
	bk, err := bookingDomain.NewBooking(uuid.New(), campsiteID, stay, 7500, time.Now())
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), bk))
	return bk
}

func TestIsAvailable_ExcludeID(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Bookings()
	campsiteID := uuid.New()

	own := saveBooking(t, repo, campsiteID, "2026-07-10", "2026-07-13")
	id := own.ID()

	available, err := repo.IsAvailable(ctx, campsiteID, own.Stay(), nil)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = repo.IsAvailable(ctx, campsiteID, own.Stay(), &id)
	require.NoError(t, err)
	assert.True(t, available, "a booking does not collide with itself")

	saveBooking(t, repo, campsiteID, "2026-07-13", "2026-07-16")

	extended, err := bookingDomain.ParseStay("2026-07-10", "2026-07-14")
	require.NoError(t, err)
	available, err = repo.IsAvailable(ctx, campsiteID, extended, &id)
	require.NoError(t, err)
	assert.False(t, available, "another active booking still blocks the range")

	other := uuid.New()
	available, err = repo.IsAvailable(ctx, campsiteID, own.Stay(), &other)
	require.NoError(t, err)
	assert.False(t, available, "excluding an unrelated id changes nothing")
}

func TestIsAvailable_CancelledBookingFreesRange(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Bookings()
	campsiteID := uuid.New()

	bk := saveBooking(t, repo, campsiteID, "2026-07-10", "2026-07-13")
	require.NoError(t, bk.Cancel(time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Now()))
	bk.IncrementVersion()
	require.NoError(t, repo.Update(ctx, bk))

	available, err := repo.IsAvailable(ctx, campsiteID, bk.Stay(), nil)
	require.NoError(t, err)
	assert.True(t, available)
}
