package booking

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

var now = time.Date(2026, 7, 1, 15, 30, 0, 0, time.UTC)

func newConfirmed(t *testing.T, start, end string) *Booking {
	t.Helper()
	bk, err := NewBooking(uuid.New(), uuid.New(), stay(t, start, end), 7500, now)
	require.NoError(t, err)
	return bk
}

func TestNewBookingStartsConfirmed(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")

	assert.Equal(t, StatusConfirmed, bk.Status())
	assert.Equal(t, int64(7500), bk.TotalPriceCents())
	assert.Equal(t, int64(1), bk.Version())
	assert.Nil(t, bk.PaidAt())
	assert.Nil(t, bk.CancelledAt())
}

func TestNewBookingValidation(t *testing.T) {
	s := stay(t, "2026-07-07", "2026-07-10")

	_, err := NewBooking(uuid.Nil, uuid.New(), s, 100, now)
	assert.Error(t, err)

	_, err = NewBooking(uuid.New(), uuid.Nil, s, 100, now)
	assert.Error(t, err)

	_, err = NewBooking(uuid.New(), uuid.New(), Stay{Start: s.End, End: s.Start}, 100, now)
	assert.Error(t, err)

	_, err = NewBooking(uuid.New(), uuid.New(), s, 0, now)
	assert.Error(t, err)
}

func TestTransitions(t *testing.T) {
	assert.True(t, StatusPending.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusPaid))
	assert.True(t, StatusConfirmed.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusPaid.CanTransitionTo(StatusCancelled))

	assert.False(t, StatusPending.CanTransitionTo(StatusPaid))
	assert.False(t, StatusPaid.CanTransitionTo(StatusConfirmed))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusConfirmed))
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPaid.IsTerminal())

	assert.True(t, StatusConfirmed.IsActive())
	assert.True(t, StatusPaid.IsActive())
	assert.False(t, StatusPending.IsActive())
	assert.False(t, StatusCancelled.IsActive())

	_, err := ParseBookingStatus("approved")
	assert.Error(t, err)
}

func TestMarkPaid(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")

	require.NoError(t, bk.MarkPaid(now))
	assert.Equal(t, StatusPaid, bk.Status())
	require.NotNil(t, bk.PaidAt())

	err := bk.MarkPaid(now)
	require.Error(t, err)
	assert.Equal(t, "Booking is already paid", err.Error())
	assert.Equal(t, domain.KindInvalidState, mustKind(t, err))
}

func TestMarkPaidRejectsCancelled(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")
	require.NoError(t, bk.Cancel(date(t, "2026-07-01"), now))

	err := bk.MarkPaid(now)
	require.Error(t, err)
	assert.Equal(t, "Cannot pay for cancelled booking", err.Error())
	assert.Equal(t, StatusCancelled, bk.Status())
}

func TestCancel(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")

	require.NoError(t, bk.Cancel(date(t, "2026-07-06"), now))
	assert.Equal(t, StatusCancelled, bk.Status())
	require.NotNil(t, bk.CancelledAt())

	err := bk.Cancel(date(t, "2026-07-01"), now)
	require.Error(t, err)
	assert.Equal(t, "Booking is already cancelled", err.Error())
}

func TestCancelOnOrAfterStartDay(t *testing.T) {
	for _, today := range []string{"2026-07-07", "2026-07-08", "2026-08-01"} {
		bk := newConfirmed(t, "2026-07-07", "2026-07-10")
		err := bk.Cancel(date(t, today), now)
		require.Error(t, err, today)
		assert.Equal(t, "Cannot cancel booking that has already started", err.Error())
		assert.Equal(t, StatusConfirmed, bk.Status())
	}
}

func TestCancelPaidBookingBeforeStart(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")
	require.NoError(t, bk.MarkPaid(now))

	require.NoError(t, bk.Cancel(date(t, "2026-07-02"), now))
	assert.Equal(t, StatusCancelled, bk.Status())
}

func TestIncrementVersion(t *testing.T) {
	bk := newConfirmed(t, "2026-07-07", "2026-07-10")
	bk.IncrementVersion()
	assert.Equal(t, int64(2), bk.Version())
}
