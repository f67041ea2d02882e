package application

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	campsiteDomain "github.com/trailhead-stays/service-booking/internal/domain/campsite"
	reviewDomain "github.com/trailhead-stays/service-booking/internal/domain/review"
	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/kafka"
)

// NotEligibleMessage is returned when a guest without a paid stay tries to review.
const NotEligibleMessage = "You can only review campsites you have booked and paid for"

// CreateReviewRequest is the request DTO for reviewing a campsite. Rating is
// kept raw so that numbers and numeric strings are both accepted.
type CreateReviewRequest struct {
	CampsiteID string          `json:"campsite_id"`
	Rating     json.RawMessage `json:"rating"`
	Comment    *string         `json:"comment"`
}

// UpdateReviewRequest is the request DTO for editing a review.
type UpdateReviewRequest struct {
	Rating  json.RawMessage `json:"rating"`
	Comment *string         `json:"comment"`
}

// ReviewDTO is the API response representation of a review.
type ReviewDTO struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	UserName   string    `json:"user_name"`
	CampsiteID uuid.UUID `json:"campsite_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CampsiteReviewsDTO lists a campsite's reviews with their rating summary.
type CampsiteReviewsDTO struct {
	Reviews         []ReviewDTO    `json:"reviews"`
	TotalReviews    int            `json:"total_reviews"`
	AverageRating   float64        `json:"average_rating"`
	RatingBreakdown map[string]int `json:"rating_breakdown"`
}

// EligibilityDTO tells a guest whether they may review a campsite.
type EligibilityDTO struct {
	CampsiteID      uuid.UUID `json:"campsite_id"`
	CanReview       bool      `json:"can_review"`
	AlreadyReviewed bool      `json:"already_reviewed"`
}

// ReviewService implements use cases for campsite reviews.
type ReviewService struct {
	repo      reviewDomain.ReviewRepository
	campsites campsiteDomain.CampsiteRepository
	bookings  bookingDomain.BookingRepository
	users     userDomain.UserRepository
	tx        Transactor
	clock     Clock
	events    eventPublisher
	logger    *zap.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(
	repo reviewDomain.ReviewRepository,
	campsites campsiteDomain.CampsiteRepository,
	bookings bookingDomain.BookingRepository,
	users userDomain.UserRepository,
	tx Transactor,
	clock Clock,
	producer kafka.Publisher,
	logger *zap.Logger,
) *ReviewService {
	return &ReviewService{
		repo:      repo,
		campsites: campsites,
		bookings:  bookings,
		users:     users,
		tx:        tx,
		clock:     clock,
		events:    eventPublisher{producer: producer, logger: logger},
		logger:    logger,
	}
}

// CanReview reports whether the guest holds a paid booking for the campsite.
// The stay does not have to be over.
func (s *ReviewService) CanReview(ctx context.Context, guestID, campsiteID uuid.UUID) (bool, error) {
	return s.bookings.HasPaidBooking(ctx, guestID, campsiteID)
}

// Eligibility answers the caller's review eligibility for a campsite.
func (s *ReviewService) Eligibility(ctx context.Context, user AuthenticatedUser, campsiteID uuid.UUID) (*EligibilityDTO, error) {
	if _, err := s.campsites.FindByID(ctx, campsiteID); err != nil {
		return nil, err
	}
	paid, err := s.CanReview(ctx, user.ID, campsiteID)
	if err != nil {
		return nil, err
	}
	reviewed, err := s.repo.ExistsForGuest(ctx, user.ID, campsiteID)
	if err != nil {
		return nil, err
	}
	return &EligibilityDTO{CampsiteID: campsiteID, CanReview: paid && !reviewed, AlreadyReviewed: reviewed}, nil
}

// CreateReview records the caller's review of a campsite they paid for.
// A guest reviews a campsite at most once however many stays they paid for.
func (s *ReviewService) CreateReview(ctx context.Context, user AuthenticatedUser, req CreateReviewRequest) (*ReviewDTO, error) {
	if strings.TrimSpace(req.CampsiteID) == "" || !provided(req.Rating) {
		return nil, domain.NewValidationError("Campsite ID and rating are required")
	}
	campsiteID, err := uuid.Parse(strings.TrimSpace(req.CampsiteID))
	if err != nil {
		return nil, domain.NewNotFoundError("Campsite", req.CampsiteID)
	}

	var rv *reviewDomain.Review
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.campsites.FindByID(ctx, campsiteID); err != nil {
			return err
		}
		paid, err := s.CanReview(ctx, user.ID, campsiteID)
		if err != nil {
			return err
		}
		if !paid {
			return domain.NewForbiddenError(NotEligibleMessage)
		}
		rating, err := reviewDomain.ParseRating(req.Rating)
		if err != nil {
			return err
		}
		reviewed, err := s.repo.ExistsForGuest(ctx, user.ID, campsiteID)
		if err != nil {
			return err
		}
		if reviewed {
			return reviewDomain.NewAlreadyReviewedError()
		}

		comment := ""
		if req.Comment != nil {
			comment = *req.Comment
		}
		rv, err = reviewDomain.NewReview(user.ID, campsiteID, rating, comment)
		if err != nil {
			return err
		}
		if err := rememberUser(ctx, s.users, user, s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, rv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review created",
		zap.String("review_id", rv.ID().String()),
		zap.String("campsite_id", campsiteID.String()),
		zap.Int("rating", rv.Rating()),
	)
	s.publishReviewEvent(ctx, ReviewCreated, rv)

	return s.loadDTO(ctx, rv.ID())
}

// UpdateReview edits the caller's own review.
func (s *ReviewService) UpdateReview(ctx context.Context, user AuthenticatedUser, reviewID uuid.UUID, req UpdateReviewRequest) (*ReviewDTO, error) {
	var rv *reviewDomain.Review
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		rv, err = s.repo.FindByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if !rv.IsAuthoredBy(user.ID) {
			return domain.NewForbiddenError("Only the review author can update this review")
		}
		if !provided(req.Rating) && req.Comment == nil {
			return domain.NewValidationError("No data provided")
		}

		var rating *int
		if provided(req.Rating) {
			r, err := reviewDomain.ParseRating(req.Rating)
			if err != nil {
				return err
			}
			rating = &r
		}
		if err := rv.Edit(rating, req.Comment); err != nil {
			return err
		}
		return s.repo.Update(ctx, rv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("review updated", zap.String("review_id", reviewID.String()))
	s.publishReviewEvent(ctx, ReviewUpdated, rv)

	return s.loadDTO(ctx, reviewID)
}

// DeleteReview removes the caller's own review.
func (s *ReviewService) DeleteReview(ctx context.Context, user AuthenticatedUser, reviewID uuid.UUID) error {
	var rv *reviewDomain.Review
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		rv, err = s.repo.FindByID(ctx, reviewID)
		if err != nil {
			return err
		}
		if !rv.IsAuthoredBy(user.ID) {
			return domain.NewForbiddenError("Only the review author can delete this review")
		}
		return s.repo.Delete(ctx, reviewID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("review deleted", zap.String("review_id", reviewID.String()))
	s.publishReviewEvent(ctx, ReviewDeleted, rv)
	return nil
}

// ListForCampsite returns a campsite's reviews newest first with the rating summary.
func (s *ReviewService) ListForCampsite(ctx context.Context, campsiteID uuid.UUID) (*CampsiteReviewsDTO, error) {
	if _, err := s.campsites.FindByID(ctx, campsiteID); err != nil {
		return nil, err
	}
	views, err := s.repo.ListByCampsite(ctx, campsiteID)
	if err != nil {
		return nil, err
	}

	dtos := make([]ReviewDTO, len(views))
	ratings := make([]int, len(views))
	for i, v := range views {
		dtos[i] = toReviewDTO(v)
		ratings[i] = v.Review.Rating()
	}
	summary := reviewDomain.Summarize(ratings)

	return &CampsiteReviewsDTO{
		Reviews:         dtos,
		TotalReviews:    summary.Total,
		AverageRating:   summary.Average,
		RatingBreakdown: summary.Breakdown,
	}, nil
}

func (s *ReviewService) loadDTO(ctx context.Context, id uuid.UUID) (*ReviewDTO, error) {
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toReviewDTO(*view)
	return &result, nil
}

func (s *ReviewService) publishReviewEvent(ctx context.Context, eventType string, rv *reviewDomain.Review) {
	s.events.publish(ctx, TopicReviewEvents, eventType, rv.CampsiteID().String(), ReviewEvent{
		ReviewID:   rv.ID(),
		GuestID:    rv.GuestID(),
		CampsiteID: rv.CampsiteID(),
		Rating:     rv.Rating(),
		OccurredAt: s.clock.Now(),
	})
}

func toReviewDTO(v reviewDomain.ReviewView) ReviewDTO {
	r := v.Review
	return ReviewDTO{
		ID:         r.ID(),
		UserID:     r.GuestID(),
		UserName:   v.GuestName,
		CampsiteID: r.CampsiteID(),
		Rating:     r.Rating(),
		Comment:    r.Comment(),
		CreatedAt:  r.CreatedAt(),
		UpdatedAt:  r.UpdatedAt(),
	}
}

// provided reports whether a raw JSON field was sent with a value. An absent
// field and an explicit null both count as not provided.
func provided(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}
