package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/domain/payment"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

// PaymentDeclinedMessage is returned to the client when a simulated charge fails.
const PaymentDeclinedMessage = "Payment failed. Please try again."

// PayRequest is the body of a payment attempt.
type PayRequest struct {
	BookingID string `json:"booking_id"`
}

// PaymentResult is the outcome of one payment attempt. On a decline Booking is
// nil and the booking is unchanged.
type PaymentResult struct {
	Success bool
	Message string
	Booking *BookingDTO
}

// PaymentService simulates charging a guest for a booking.
type PaymentService struct {
	repo     bookingDomain.BookingRepository
	outcomes payment.OutcomeSource
	tx       Transactor
	clock    Clock
	events   eventPublisher
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	repo bookingDomain.BookingRepository,
	outcomes payment.OutcomeSource,
	tx Transactor,
	clock Clock,
	producer kafka.Publisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repo:     repo,
		outcomes: outcomes,
		tx:       tx,
		clock:    clock,
		events:   eventPublisher{producer: producer, logger: logger},
		logger:   logger,
	}
}

// Attempt draws one payment outcome for the booking. A success marks the
// booking paid in a transaction that locks it and re-checks it is still
// payable; a decline leaves it untouched and may be retried, each retry
// drawing independently. The outcome is drawn once, outside the transaction,
// so store retries never charge twice.
func (s *PaymentService) Attempt(ctx context.Context, req PayRequest) (*PaymentResult, error) {
	raw := strings.TrimSpace(req.BookingID)
	if raw == "" {
		return nil, domain.NewValidationError("Booking ID is required")
	}
	bookingID, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.NewNotFoundError("Booking", raw)
	}

	bk, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := bk.CheckPayable(); err != nil {
		return nil, err
	}

	success := s.outcomes.Succeeds(ctx, bookingID)
	if success {
		err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			var err error
			bk, err = s.repo.FindByIDForUpdate(ctx, bookingID)
			if err != nil {
				return err
			}
			if err := bk.MarkPaid(s.clock.Now()); err != nil {
				return err
			}
			bk.IncrementVersion()
			return s.repo.Update(ctx, bk)
		})
		if err != nil {
			return nil, err
		}
	}

	if !success {
		s.logger.Info("payment declined", zap.String("booking_id", bookingID.String()))
		s.events.publish(ctx, TopicBookingEvents, BookingPaymentFailed, bookingID.String(), newBookingEvent(bk, s.clock.Now()))
		return &PaymentResult{Success: false, Message: PaymentDeclinedMessage}, nil
	}

	amount := domain.AmountFromCents(bk.TotalPriceCents())
	s.logger.Info("payment succeeded",
		zap.String("booking_id", bookingID.String()),
		zap.Int64("amount_cents", bk.TotalPriceCents()),
	)
	s.events.publish(ctx, TopicBookingEvents, BookingPaid, bookingID.String(), newBookingEvent(bk, s.clock.Now()))

	view, err := s.repo.FindView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	dto := toBookingDTO(*view)
	return &PaymentResult{
		Success: true,
		Message: fmt.Sprintf("Payment of $%.2f successful for booking #%s", amount, bookingID),
		Booking: &dto,
	}, nil
}
