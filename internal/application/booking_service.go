package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	campsiteDomain "github.com/trailhead-stays/service-booking/internal/domain/campsite"
	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

// CreateBookingRequest holds the data needed to create a new booking.
type CreateBookingRequest struct {
	CampsiteID string `json:"campsite_id"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// BookingDTO is the response representation of a booking.
type BookingDTO struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	UserName      string     `json:"user_name"`
	CampsiteID    uuid.UUID  `json:"campsite_id"`
	CampsiteTitle string     `json:"campsite_title"`
	StartDate     string     `json:"start_date"`
	EndDate       string     `json:"end_date"`
	Nights        int        `json:"nights"`
	Status        string     `json:"status"`
	TotalPrice    float64    `json:"total_price"`
	Currency      string     `json:"currency"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// BookingListDTO is a full, unpaginated list of bookings.
type BookingListDTO struct {
	Bookings []BookingDTO `json:"bookings"`
	Total    int          `json:"total"`
}

// AvailabilityDTO answers whether a stay can be booked and what it would cost.
type AvailabilityDTO struct {
	CampsiteID uuid.UUID `json:"campsite_id"`
	StartDate  string    `json:"start_date"`
	EndDate    string    `json:"end_date"`
	Available  bool      `json:"available"`
	Nights     int       `json:"nights"`
	TotalPrice float64   `json:"total_price"`
	Currency   string    `json:"currency"`
}

// BookingStatsDTO holds aggregate booking statistics for admin.
type BookingStatsDTO struct {
	TotalBookings int64            `json:"total_bookings"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	repo      bookingDomain.BookingRepository
	campsites campsiteDomain.CampsiteRepository
	users     userDomain.UserRepository
	pricing   bookingDomain.PricingStrategy
	tx        Transactor
	clock     Clock
	events    eventPublisher
	logger    *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	repo bookingDomain.BookingRepository,
	campsites campsiteDomain.CampsiteRepository,
	users userDomain.UserRepository,
	pricing bookingDomain.PricingStrategy,
	tx Transactor,
	clock Clock,
	producer kafka.Publisher,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		repo:      repo,
		campsites: campsites,
		users:     users,
		pricing:   pricing,
		tx:        tx,
		clock:     clock,
		events:    eventPublisher{producer: producer, logger: logger},
		logger:    logger,
	}
}

// CreateBooking reserves a campsite for the caller. The availability check and
// the insert share one serializable transaction, so of two concurrent
// requests for overlapping dates only one can commit.
func (s *BookingService) CreateBooking(ctx context.Context, user AuthenticatedUser, req CreateBookingRequest) (*BookingDTO, error) {
	if strings.TrimSpace(req.CampsiteID) == "" || strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		return nil, domain.NewValidationError("Campsite ID, start date, and end date are required")
	}
	campsiteID, err := uuid.Parse(strings.TrimSpace(req.CampsiteID))
	if err != nil {
		return nil, domain.NewNotFoundError("Campsite", req.CampsiteID)
	}

	// Creates for one campsite queue on its row lock, so each availability
	// check sees every booking committed before it.
	var bk *bookingDomain.Booking
	err = s.tx.WithinLockingTransaction(ctx, func(ctx context.Context) error {
		site, err := s.campsites.FindByIDForUpdate(ctx, campsiteID)
		if err != nil {
			return err
		}

		stay, err := bookingDomain.ParseStay(strings.TrimSpace(req.StartDate), strings.TrimSpace(req.EndDate))
		if err != nil {
			return err
		}
		if stay.Start.Before(s.clock.Today()) {
			return domain.NewValidationError("Start date cannot be in the past")
		}

		available, err := s.repo.IsAvailable(ctx, campsiteID, stay, nil)
		if err != nil {
			return err
		}
		if !available {
			return bookingDomain.NewUnavailableError()
		}

		total, err := s.pricing.Calculate(stay, site.PriceCents())
		if err != nil {
			return err
		}

		bk, err = bookingDomain.NewBooking(user.ID, campsiteID, stay, total, s.clock.Now())
		if err != nil {
			return err
		}
		if err := rememberUser(ctx, s.users, user, s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking created",
		zap.String("booking_id", bk.ID().String()),
		zap.String("campsite_id", campsiteID.String()),
		zap.String("stay", bk.Stay().String()),
		zap.Int64("total_price_cents", bk.TotalPriceCents()),
	)
	s.publishBookingEvent(ctx, BookingCreated, bk)

	return s.loadDTO(ctx, bk.ID())
}

// CancelBooking cancels the caller's booking before the stay begins.
func (s *BookingService) CancelBooking(ctx context.Context, user AuthenticatedUser, bookingID uuid.UUID) (*BookingDTO, error) {
	var bk *bookingDomain.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		bk, err = s.repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if !bk.IsGuest(user.ID) {
			return domain.NewForbiddenError("Only the booking owner can cancel")
		}
		if err := bk.Cancel(s.clock.Today(), s.clock.Now()); err != nil {
			return err
		}
		bk.IncrementVersion()
		return s.repo.Update(ctx, bk)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking cancelled", zap.String("booking_id", bk.ID().String()))
	s.publishBookingEvent(ctx, BookingCancelled, bk)

	return s.loadDTO(ctx, bk.ID())
}

// GetBooking returns a booking visible to its guest or to the campsite's host.
func (s *BookingService) GetBooking(ctx context.Context, user AuthenticatedUser, bookingID uuid.UUID) (*BookingDTO, error) {
	view, err := s.repo.FindView(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !view.Booking.IsGuest(user.ID) && view.HostID != user.ID {
		return nil, domain.NewForbiddenError("Access denied")
	}
	result := toBookingDTO(*view)
	return &result, nil
}

// GetMyBookings lists every booking the caller made, newest first.
func (s *BookingService) GetMyBookings(ctx context.Context, user AuthenticatedUser) (*BookingListDTO, error) {
	views, err := s.repo.ListByGuest(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return toBookingList(views), nil
}

// GetHostBookings lists bookings on the caller's campsites, newest first.
func (s *BookingService) GetHostBookings(ctx context.Context, user AuthenticatedUser) (*BookingListDTO, error) {
	views, err := s.repo.ListByHost(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return toBookingList(views), nil
}

// CheckAvailability quotes a stay without reserving it.
func (s *BookingService) CheckAvailability(ctx context.Context, campsiteID uuid.UUID, startDate, endDate string) (*AvailabilityDTO, error) {
	site, err := s.campsites.FindByID(ctx, campsiteID)
	if err != nil {
		return nil, err
	}
	stay, err := bookingDomain.ParseStay(startDate, endDate)
	if err != nil {
		return nil, err
	}
	if stay.Start.Before(s.clock.Today()) {
		return nil, domain.NewValidationError("Start date cannot be in the past")
	}

	available, err := s.repo.IsAvailable(ctx, campsiteID, stay, nil)
	if err != nil {
		return nil, err
	}
	total, err := s.pricing.Calculate(stay, site.PriceCents())
	if err != nil {
		return nil, err
	}

	return &AvailabilityDTO{
		CampsiteID: campsiteID,
		StartDate:  stay.Start.Format(bookingDomain.DateLayout),
		EndDate:    stay.End.Format(bookingDomain.DateLayout),
		Available:  available,
		Nights:     stay.Nights(),
		TotalPrice: domain.AmountFromCents(total),
		Currency:   domain.CurrencyUSD,
	}, nil
}

// GetBookingStats returns aggregate booking statistics (admin).
func (s *BookingService) GetBookingStats(ctx context.Context) (*BookingStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, c := range counts {
		total += c
	}
	return &BookingStatsDTO{TotalBookings: total, ByStatus: counts}, nil
}

func (s *BookingService) loadDTO(ctx context.Context, id uuid.UUID) (*BookingDTO, error) {
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toBookingDTO(*view)
	return &result, nil
}

func (s *BookingService) publishBookingEvent(ctx context.Context, eventType string, bk *bookingDomain.Booking) {
	s.events.publish(ctx, TopicBookingEvents, eventType, bk.ID().String(), newBookingEvent(bk, s.clock.Now()))
}

func newBookingEvent(bk *bookingDomain.Booking, at time.Time) BookingEvent {
	return BookingEvent{
		BookingID:       bk.ID(),
		GuestID:         bk.GuestID(),
		CampsiteID:      bk.CampsiteID(),
		StartDate:       bk.Stay().Start.Format(bookingDomain.DateLayout),
		EndDate:         bk.Stay().End.Format(bookingDomain.DateLayout),
		Status:          bk.Status().String(),
		TotalPriceCents: bk.TotalPriceCents(),
		Currency:        domain.CurrencyUSD,
		OccurredAt:      at,
	}
}

func toBookingDTO(v bookingDomain.BookingView) BookingDTO {
	bk := v.Booking
	return BookingDTO{
		ID:            bk.ID(),
		UserID:        bk.GuestID(),
		UserName:      v.GuestName,
		CampsiteID:    bk.CampsiteID(),
		CampsiteTitle: v.CampsiteTitle,
		StartDate:     bk.Stay().Start.Format(bookingDomain.DateLayout),
		EndDate:       bk.Stay().End.Format(bookingDomain.DateLayout),
		Nights:        bk.Stay().Nights(),
		Status:        bk.Status().String(),
		TotalPrice:    domain.AmountFromCents(bk.TotalPriceCents()),
		Currency:      domain.CurrencyUSD,
		PaidAt:        bk.PaidAt(),
		CancelledAt:   bk.CancelledAt(),
		CreatedAt:     bk.CreatedAt(),
	}
}

func toBookingList(views []bookingDomain.BookingView) *BookingListDTO {
	dtos := make([]BookingDTO, len(views))
	for i, v := range views {
		dtos[i] = toBookingDTO(v)
	}
	return &BookingListDTO{Bookings: dtos, Total: len(dtos)}
}

// rememberUser refreshes the caller's display name from their token claims.
func rememberUser(ctx context.Context, users userDomain.UserRepository, user AuthenticatedUser, now time.Time) error {
	if users == nil || user.Name == "" {
		return nil
	}
	return users.Upsert(ctx, userDomain.NewUser(user.ID, user.Name, user.Email, now))
}
