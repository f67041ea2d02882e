package review

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

const (
	MinRating = 1
	MaxRating = 5
)

// AlreadyReviewedMessage is returned for a second review of the same campsite.
const AlreadyReviewedMessage = "You have already reviewed this campsite"

// NewAlreadyReviewedError reports that the guest has reviewed the campsite before.
func NewAlreadyReviewedError() *domain.AppError {
	return domain.NewConflictError(AlreadyReviewedMessage)
}

// Review is the aggregate root for a guest's rating of a campsite.
type Review struct {
	id         uuid.UUID
	guestID    uuid.UUID
	campsiteID uuid.UUID
	rating     int
	comment    string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewReview creates a review. Eligibility is checked by the caller.
func NewReview(guestID, campsiteID uuid.UUID, rating int, comment string) (*Review, error) {
	if guestID == uuid.Nil || campsiteID == uuid.Nil {
		return nil, domain.NewValidationError("Campsite ID and rating are required")
	}
	if err := ValidateRating(rating); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Review{
		id:         uuid.New(),
		guestID:    guestID,
		campsiteID: campsiteID,
		rating:     rating,
		comment:    strings.TrimSpace(comment),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Review from persistence.
func Reconstruct(id, guestID, campsiteID uuid.UUID, rating int, comment string, createdAt, updatedAt time.Time) *Review {
	return &Review{
		id:         id,
		guestID:    guestID,
		campsiteID: campsiteID,
		rating:     rating,
		comment:    comment,
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

// Getters.
func (r *Review) ID() uuid.UUID         { return r.id }
func (r *Review) GuestID() uuid.UUID    { return r.guestID }
func (r *Review) CampsiteID() uuid.UUID { return r.campsiteID }
func (r *Review) Rating() int           { return r.rating }
func (r *Review) Comment() string       { return r.comment }
func (r *Review) CreatedAt() time.Time  { return r.createdAt }
func (r *Review) UpdatedAt() time.Time  { return r.updatedAt }

// IsAuthoredBy reports whether userID wrote the review.
func (r *Review) IsAuthoredBy(userID uuid.UUID) bool {
	return r.guestID == userID
}

// Edit changes rating and/or comment. Nil arguments are left unchanged.
func (r *Review) Edit(rating *int, comment *string) error {
	if rating != nil {
		if err := ValidateRating(*rating); err != nil {
			return err
		}
		r.rating = *rating
	}
	if comment != nil {
		r.comment = strings.TrimSpace(*comment)
	}
	r.updatedAt = time.Now().UTC()
	return nil
}

// ValidateRating checks the 1..5 star range.
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return domain.NewValidationError("Rating must be between 1 and 5")
	}
	return nil
}

// ParseRating accepts a JSON number or a numeric string. Fractional numbers
// are truncated toward zero; anything else is a format error.
func ParseRating(raw json.RawMessage) (int, error) {
	invalid := domain.NewValidationError("Invalid rating format")

	var v interface{}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, invalid
	}

	var rating int
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil || math.IsInf(f, 0) || math.Abs(f) > math.MaxInt32 {
			return 0, invalid
		}
		rating = int(math.Trunc(f))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, invalid
		}
		rating = n
	default:
		return 0, invalid
	}

	if err := ValidateRating(rating); err != nil {
		return 0, err
	}
	return rating, nil
}
