//go:build integration

package main_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhead-stays/service-booking/internal/application"
	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

func day(offset int) string {
	return time.Now().UTC().AddDate(0, 0, offset).Format(bookingDomain.DateLayout)
}

func newGuest(name string) application.AuthenticatedUser {
	return application.AuthenticatedUser{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: "user"}
}

func listCampsite(t *testing.T, stack *bookingStack, host application.AuthenticatedUser) *application.CampsiteDTO {
	t.Helper()
	site, err := stack.Campsites.CreateCampsite(context.Background(), host, application.CreateCampsiteRequest{
		Title:       "Lakeshore Loop",
		Description: "Drive-in site with a fire ring",
		Price:       json.RawMessage(`25.0`),
		Location:    "Tahoe, CA",
	})
	require.NoError(t, err)
	return site
}

// TestConcurrentOverlappingBookings_ExactlyOneSucceeds races overlapping
// reservations for the same campsite against a real Postgres.
func TestConcurrentOverlappingBookings_ExactlyOneSucceeds(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	site := listCampsite(t, stack, newGuest("hannah"))

	const attempts = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := stack.Bookings.CreateBooking(context.Background(), newGuest("guest"), application.CreateBookingRequest{
				CampsiteID: site.ID.String(),
				StartDate:  day(10 + i%2),
				EndDate:    day(13),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	for _, err := range failures {
		kind, ok := domain.KindOf(err)
		require.True(t, ok, "unexpected error: %v", err)
		assert.Equal(t, domain.KindConflict, kind)
		assert.Equal(t, bookingDomain.UnavailableMessage, err.Error())
	}

	var active int64
	require.NoError(t, infra.DB.Table("bookings").
		Where("campsite_id = ? AND status IN ?", site.ID, []string{"confirmed", "paid"}).
		Count(&active).Error)
	assert.Equal(t, int64(1), active)
}

// TestConcurrentDisjointBookings_AllSucceed books back-to-back stays on one
// campsite concurrently. None overlap, so every request must be accepted.
func TestConcurrentDisjointBookings_AllSucceed(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	site := listCampsite(t, stack, newGuest("hannah"))

	const attempts = 12
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = stack.Bookings.CreateBooking(context.Background(), newGuest("guest"), application.CreateBookingRequest{
				CampsiteID: site.ID.String(),
				StartDate:  day(30 + 2*i),
				EndDate:    day(32 + 2*i),
			})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		assert.NoError(t, err, "stay %d", i)
	}

	var active int64
	require.NoError(t, infra.DB.Table("bookings").
		Where("campsite_id = ? AND status IN ?", site.ID, []string{"confirmed", "paid"}).
		Count(&active).Error)
	assert.Equal(t, int64(attempts), active)
}

// TestIsAvailableExcludesBooking checks a booking's own range with and
// without leaving it out of the check.
func TestIsAvailableExcludesBooking(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	site := listCampsite(t, stack, newGuest("hannah"))
	ctx := context.Background()

	own, err := bookingDomain.ParseStay(day(40), day(43))
	require.NoError(t, err)
	b1, err := bookingDomain.NewBooking(uuid.New(), site.ID, own, 7500, time.Now())
	require.NoError(t, err)
	require.NoError(t, stack.BookingRepo.Save(ctx, b1))

	id := b1.ID()
	available, err := stack.BookingRepo.IsAvailable(ctx, site.ID, own, nil)
	require.NoError(t, err)
	assert.False(t, available)

	available, err = stack.BookingRepo.IsAvailable(ctx, site.ID, own, &id)
	require.NoError(t, err)
	assert.True(t, available, "a booking does not collide with itself")

	later, err := bookingDomain.ParseStay(day(43), day(46))
	require.NoError(t, err)
	b2, err := bookingDomain.NewBooking(uuid.New(), site.ID, later, 7500, time.Now())
	require.NoError(t, err)
	require.NoError(t, stack.BookingRepo.Save(ctx, b2))

	extended, err := bookingDomain.ParseStay(day(40), day(44))
	require.NoError(t, err)
	available, err = stack.BookingRepo.IsAvailable(ctx, site.ID, extended, &id)
	require.NoError(t, err)
	assert.False(t, available, "another active booking still blocks the range")
}

// TestExclusionConstraintRejectsOverlap writes straight through the repository,
// skipping the availability check, to show the schema still refuses overlaps.
func TestExclusionConstraintRejectsOverlap(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	site := listCampsite(t, stack, newGuest("hannah"))
	ctx := context.Background()

	first, err := bookingDomain.ParseStay(day(20), day(23))
	require.NoError(t, err)
	second, err := bookingDomain.ParseStay(day(22), day(24))
	require.NoError(t, err)
	adjacent, err := bookingDomain.ParseStay(day(23), day(25))
	require.NoError(t, err)

	b1, err := bookingDomain.NewBooking(uuid.New(), site.ID, first, 7500, time.Now())
	require.NoError(t, err)
	require.NoError(t, stack.BookingRepo.Save(ctx, b1))

	b2, err := bookingDomain.NewBooking(uuid.New(), site.ID, second, 5000, time.Now())
	require.NoError(t, err)
	err = stack.BookingRepo.Save(ctx, b2)
	require.Error(t, err)
	assert.Equal(t, bookingDomain.UnavailableMessage, err.Error())

	b3, err := bookingDomain.NewBooking(uuid.New(), site.ID, adjacent, 5000, time.Now())
	require.NoError(t, err)
	assert.NoError(t, stack.BookingRepo.Save(ctx, b3), "check-out day may be booked again")
}

// TestPayPublishesBookingPaid verifies the pay flow end to end and that the
// booking.paid event reaches booking.events.
func TestPayPublishesBookingPaid(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()

	guest := newGuest("gus")
	site := listCampsite(t, stack, newGuest("hannah"))
	ctx := context.Background()

	bk, err := stack.Bookings.CreateBooking(ctx, guest, application.CreateBookingRequest{
		CampsiteID: site.ID.String(), StartDate: day(7), EndDate: day(10),
	})
	require.NoError(t, err)
	assert.Equal(t, 75.0, bk.TotalPrice)
	assert.Equal(t, "gus", bk.UserName)

	res, err := stack.Payments.Attempt(ctx, application.PayRequest{BookingID: bk.ID.String()})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, "paid", res.Booking.Status)

	_, err = stack.Payments.Attempt(ctx, application.PayRequest{BookingID: bk.ID.String()})
	require.Error(t, err)
	assert.Equal(t, "Booking is already paid", err.Error())

	ce := consumeEventFor(t, infra.KafkaBrokers, application.TopicBookingEvents,
		bk.ID.String(), application.BookingPaid, 15*time.Second)

	var paid application.BookingEvent
	require.NoError(t, ce.ParseData(&paid))
	assert.Equal(t, bk.ID, paid.BookingID)
	assert.Equal(t, int64(7500), paid.TotalPriceCents)
}

// TestIdentityEventProjectsUser verifies that a user.registered event on
// identity.events lands in the users projection and shows up in read models.
func TestIdentityEventProjectsUser(t *testing.T) {
	infra := setupContainers(t)
	defer infra.Cleanup()

	stack := setupBookingStack(t, infra.DB, infra.KafkaBrokers)
	defer stack.CleanupProducer()
	defer func() { _ = stack.Consumer.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = stack.Consumer.Start(ctx) }()
	time.Sleep(3 * time.Second) // Wait for consumer group join.

	userID := uuid.New()
	publishTestEvent(t, infra.KafkaBrokers, application.TopicIdentityEvents, userID.String(),
		"service-identity", application.UserRegistered, application.UserEvent{
			UserID:     userID,
			Name:       "Rosa Parks",
			Email:      "rosa@example.com",
			OccurredAt: time.Now().UTC(),
		})

	waitForUserName(t, infra.DB, userID, "Rosa Parks", 15*time.Second)

	// A host that only exists in the projection still gets a host_name.
	site := listCampsite(t, stack, application.AuthenticatedUser{ID: userID, Role: "user"})
	assert.Equal(t, "Rosa Parks", site.HostName)
}
