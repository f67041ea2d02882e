package review

import (
	"context"

	"github.com/google/uuid"
)

// ReviewView is a review joined with its author's display name.
type ReviewView struct {
	Review    *Review
	GuestName string
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Review, error)
	FindView(ctx context.Context, id uuid.UUID) (*ReviewView, error)
	ExistsForGuest(ctx context.Context, guestID, campsiteID uuid.UUID) (bool, error)
	ListByCampsite(ctx context.Context, campsiteID uuid.UUID) ([]ReviewView, error)
	Save(ctx context.Context, review *Review) error
	Update(ctx context.Context, review *Review) error
	Delete(ctx context.Context, id uuid.UUID) error
}
