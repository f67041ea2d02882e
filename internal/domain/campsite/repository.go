package campsite

import (
	"context"

	"github.com/google/uuid"
)

// CampsiteView is a listing joined with host name and rating summary.
type CampsiteView struct {
	Campsite      *Campsite
	HostName      string
	AverageRating float64
	ReviewCount   int
}

// Filter narrows a listing search. Zero values mean "no filter".
type Filter struct {
	// Location matches case-insensitively anywhere in the location string.
	Location      string
	MinPriceCents *int64
	MaxPriceCents *int64
}

// CampsiteRepository defines persistence operations for campsite listings.
type CampsiteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Campsite, error)
	// FindByIDForUpdate also locks the campsite row until the surrounding
	// transaction ends. Booking creation and deletion queue up on it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Campsite, error)
	FindView(ctx context.Context, id uuid.UUID) (*CampsiteView, error)
	List(ctx context.Context, filter Filter) ([]CampsiteView, error)
	Save(ctx context.Context, campsite *Campsite) error
	Update(ctx context.Context, campsite *Campsite) error
	Delete(ctx context.Context, id uuid.UUID) error
}
