package application_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

func TestPaymentAttempt_Success(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)

	res := f.pay(t, bk.ID)

	require.True(t, res.Success)
	require.NotNil(t, res.Booking)
	assert.Equal(t, "paid", res.Booking.Status)
	assert.NotNil(t, res.Booking.PaidAt)
	assert.Equal(t, fmt.Sprintf("Payment of $75.00 successful for booking #%s", bk.ID), res.Message)
	assert.Equal(t, []string{application.BookingCreated, application.BookingPaid}, f.events.Types())
}

func TestPaymentAttempt_SecondPayRejected(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)
	f.pay(t, bk.ID)

	_, err := f.payments.Attempt(context.Background(), application.PayRequest{BookingID: bk.ID.String()})
	requireKind(t, err, domain.KindInvalidState, "Booking is already paid")
}

func TestPaymentAttempt_DeclineLeavesBookingUntouched(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)
	f.outcomes.queue(false)

	res := f.pay(t, bk.ID)
	assert.False(t, res.Success)
	assert.Nil(t, res.Booking)
	assert.Equal(t, application.PaymentDeclinedMessage, res.Message)

	stored, err := f.store.Bookings().FindByID(context.Background(), bk.ID)
	require.NoError(t, err)
	assert.Equal(t, "confirmed", stored.Status().String())
	assert.Equal(t, int64(1), stored.Version())
	assert.Contains(t, f.events.Types(), application.BookingPaymentFailed)

	// Each retry draws again.
	res = f.pay(t, bk.ID)
	assert.True(t, res.Success)
}

func TestPaymentAttempt_Errors(t *testing.T) {
	f := newFixture(t)
	guest := newUser("gus")
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, guest, site.ID, 7, 10)
	_, err := f.bookings.CancelBooking(context.Background(), guest, bk.ID)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = f.payments.Attempt(ctx, application.PayRequest{})
	requireKind(t, err, domain.KindValidation, "Booking ID is required")

	_, err = f.payments.Attempt(ctx, application.PayRequest{BookingID: uuid.NewString()})
	requireKind(t, err, domain.KindNotFound, "Booking not found")

	_, err = f.payments.Attempt(ctx, application.PayRequest{BookingID: "17"})
	requireKind(t, err, domain.KindNotFound, "Booking not found")

	_, err = f.payments.Attempt(ctx, application.PayRequest{BookingID: bk.ID.String()})
	requireKind(t, err, domain.KindInvalidState, "Cannot pay for cancelled booking")
}

func TestPaymentAttempt_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)
	f.events.Err = errors.New("broker down")

	res := f.pay(t, bk.ID)
	assert.True(t, res.Success)
}

// retryingTransactor rolls back the first attempt of every unit of work with
// a retryable failure and then runs it again, the way Postgres does after a
// serialization failure.
type retryingTransactor struct {
	inner    application.Transactor
	attempts int
}

var errSerialization = errors.New("could not serialize access")

func (t *retryingTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.attempts++
	_ = t.inner.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		return errSerialization
	})
	t.attempts++
	return t.inner.WithinTransaction(ctx, fn)
}

func (t *retryingTransactor) WithinLockingTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.WithinTransaction(ctx, fn)
}

// countingOutcomes succeeds and counts how often it was asked.
type countingOutcomes struct{ draws int }

func (c *countingOutcomes) Succeeds(context.Context, uuid.UUID) bool {
	c.draws++
	return true
}

func TestPaymentAttempt_StoreRetryDrawsOnce(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)

	tx := &retryingTransactor{inner: f.store.Transactor()}
	outcomes := &countingOutcomes{}
	payments := application.NewPaymentService(f.store.Bookings(), outcomes, tx, f.clock, f.events, zap.NewNop())

	res, err := payments.Attempt(context.Background(), application.PayRequest{BookingID: bk.ID.String()})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, tx.attempts)
	assert.Equal(t, 1, outcomes.draws)

	stored, err := f.store.Bookings().FindByID(context.Background(), bk.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", stored.Status().String())
	assert.Equal(t, int64(2), stored.Version())
}

func TestPaymentAttempt_UnpayableBookingDrawsNothing(t *testing.T) {
	f := newFixture(t)
	site := f.listCampsite(t, newUser("hannah"), "25.0")
	bk := f.book(t, newUser("gus"), site.ID, 7, 10)
	f.pay(t, bk.ID)

	outcomes := &countingOutcomes{}
	payments := application.NewPaymentService(f.store.Bookings(), outcomes, f.store.Transactor(), f.clock, f.events, zap.NewNop())

	_, err := payments.Attempt(context.Background(), application.PayRequest{BookingID: bk.ID.String()})
	requireKind(t, err, domain.KindInvalidState, "Booking is already paid")
	assert.Zero(t, outcomes.draws)
}
