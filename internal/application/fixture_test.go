package application_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/domain/payment"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/testutil"
)

// scriptedOutcomes returns the queued outcomes in order, then succeeds.
type scriptedOutcomes struct {
	mu   sync.Mutex
	next []bool
}

func (s *scriptedOutcomes) Succeeds(context.Context, uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.next) == 0 {
		return true
	}
	ok := s.next[0]
	s.next = s.next[1:]
	return ok
}

func (s *scriptedOutcomes) queue(outcomes ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = append(s.next, outcomes...)
}

var _ payment.OutcomeSource = (*scriptedOutcomes)(nil)

type fixture struct {
	store     *testutil.Store
	clock     *testutil.FixedClock
	events    *testutil.RecordingPublisher
	outcomes  *scriptedOutcomes
	bookings  *application.BookingService
	payments  *application.PaymentService
	reviews   *application.ReviewService
	campsites *application.CampsiteService
	users     *application.UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore()
	clock := testutil.NewFixedClock(time.Date(2026, 6, 1, 15, 30, 0, 0, time.UTC))
	events := &testutil.RecordingPublisher{}
	outcomes := &scriptedOutcomes{}
	logger := zap.NewNop()
	tx := store.Transactor()

	return &fixture{
		store:    store,
		clock:    clock,
		events:   events,
		outcomes: outcomes,
		bookings: application.NewBookingService(
			store.Bookings(), store.Campsites(), store.Users(),
			bookingDomain.NewNightlyPricingStrategy(), tx, clock, events, logger,
		),
		payments: application.NewPaymentService(store.Bookings(), outcomes, tx, clock, events, logger),
		reviews: application.NewReviewService(
			store.Reviews(), store.Campsites(), store.Bookings(), store.Users(), tx, clock, events, logger,
		),
		campsites: application.NewCampsiteService(store.Campsites(), store.Bookings(), store.Users(), tx, clock, logger),
		users:     application.NewUserService(store.Users(), clock, logger),
	}
}

func newUser(name string) application.AuthenticatedUser {
	return application.AuthenticatedUser{ID: uuid.New(), Name: name, Email: name + "@example.com", Role: "user"}
}

// listCampsite creates a campsite owned by host at the given nightly price.
func (f *fixture) listCampsite(t *testing.T, host application.AuthenticatedUser, price string) *application.CampsiteDTO {
	t.Helper()
	dto, err := f.campsites.CreateCampsite(context.Background(), host, application.CreateCampsiteRequest{
		Title:       "Pine Hollow",
		Description: "Shaded tent pad by the creek",
		Price:       json.RawMessage(price),
		Location:    "Big Sur, CA",
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) book(t *testing.T, guest application.AuthenticatedUser, campsiteID uuid.UUID, from, to int) *application.BookingDTO {
	t.Helper()
	dto, err := f.bookings.CreateBooking(context.Background(), guest, application.CreateBookingRequest{
		CampsiteID: campsiteID.String(),
		StartDate:  f.clock.Day(from),
		EndDate:    f.clock.Day(to),
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) pay(t *testing.T, bookingID uuid.UUID) *application.PaymentResult {
	t.Helper()
	res, err := f.payments.Attempt(context.Background(), application.PayRequest{BookingID: bookingID.String()})
	require.NoError(t, err)
	return res
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind, message string) {
	t.Helper()
	require.Error(t, err)
	got, ok := domain.KindOf(err)
	require.True(t, ok, "expected an AppError, got %v", err)
	require.Equal(t, kind, got)
	require.Equal(t, message, err.Error())
}
