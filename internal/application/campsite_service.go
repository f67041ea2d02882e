package application

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	campsiteDomain "github.com/trailhead-stays/service-booking/internal/domain/campsite"
	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// CreateCampsiteRequest is the request DTO for listing a campsite. Price is
// kept raw so that both numbers and numeric strings are accepted.
type CreateCampsiteRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       json.RawMessage `json:"price"`
	Location    string          `json:"location"`
	ImageURL    string          `json:"image_url"`
}

// UpdateCampsiteRequest is the request DTO for a partial listing update.
type UpdateCampsiteRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Price       json.RawMessage `json:"price"`
	Location    *string         `json:"location"`
	ImageURL    *string         `json:"image_url"`
}

// CampsiteSearch holds the raw query filters of a listing search.
type CampsiteSearch struct {
	Location string `form:"location"`
	MinPrice string `form:"min_price"`
	MaxPrice string `form:"max_price"`
}

// CampsiteDTO is the API response representation of a campsite.
type CampsiteDTO struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	Location      string    `json:"location"`
	HostID        uuid.UUID `json:"host_id"`
	HostName      string    `json:"host_name"`
	ImageURL      string    `json:"image_url"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CampsiteListDTO is a full, unpaginated search result.
type CampsiteListDTO struct {
	Campsites []CampsiteDTO `json:"campsites"`
	Total     int           `json:"total"`
}

// CampsiteService implements use cases for campsite listings.
type CampsiteService struct {
	repo     campsiteDomain.CampsiteRepository
	bookings bookingDomain.BookingRepository
	users    userDomain.UserRepository
	tx       Transactor
	clock    Clock
	logger   *zap.Logger
}

// NewCampsiteService creates a new CampsiteService.
func NewCampsiteService(
	repo campsiteDomain.CampsiteRepository,
	bookings bookingDomain.BookingRepository,
	users userDomain.UserRepository,
	tx Transactor,
	clock Clock,
	logger *zap.Logger,
) *CampsiteService {
	return &CampsiteService{repo: repo, bookings: bookings, users: users, tx: tx, clock: clock, logger: logger}
}

// CreateCampsite lists a new campsite hosted by the caller.
func (s *CampsiteService) CreateCampsite(ctx context.Context, user AuthenticatedUser, req CreateCampsiteRequest) (*CampsiteDTO, error) {
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.Location) == "" || !provided(req.Price) {
		return nil, domain.NewValidationError("Title, description, price, and location are required")
	}
	priceCents, err := campsiteDomain.ParsePrice(req.Price)
	if err != nil {
		return nil, err
	}
	site, err := campsiteDomain.NewCampsite(user.ID, req.Title, req.Description, req.Location, req.ImageURL, priceCents)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := rememberUser(ctx, s.users, user, s.clock.Now()); err != nil {
			return err
		}
		return s.repo.Save(ctx, site)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("campsite created",
		zap.String("campsite_id", site.ID().String()),
		zap.String("host_id", user.ID.String()),
	)
	return s.GetCampsite(ctx, site.ID())
}

// ListCampsites searches listings. An empty search returns every campsite.
func (s *CampsiteService) ListCampsites(ctx context.Context, search CampsiteSearch) (*CampsiteListDTO, error) {
	minPrice, err := campsiteDomain.ParsePriceFilter("min_price", search.MinPrice)
	if err != nil {
		return nil, err
	}
	maxPrice, err := campsiteDomain.ParsePriceFilter("max_price", search.MaxPrice)
	if err != nil {
		return nil, err
	}

	views, err := s.repo.List(ctx, campsiteDomain.Filter{
		Location:      strings.TrimSpace(search.Location),
		MinPriceCents: minPrice,
		MaxPriceCents: maxPrice,
	})
	if err != nil {
		return nil, err
	}

	dtos := make([]CampsiteDTO, len(views))
	for i, v := range views {
		dtos[i] = toCampsiteDTO(v)
	}
	return &CampsiteListDTO{Campsites: dtos, Total: len(dtos)}, nil
}

// GetCampsite returns a single listing with its host name and rating summary.
func (s *CampsiteService) GetCampsite(ctx context.Context, id uuid.UUID) (*CampsiteDTO, error) {
	view, err := s.repo.FindView(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toCampsiteDTO(*view)
	return &result, nil
}

// UpdateCampsite applies a partial update. Only the host may edit a listing.
// A new rate applies to future bookings only.
func (s *CampsiteService) UpdateCampsite(ctx context.Context, user AuthenticatedUser, id uuid.UUID, req UpdateCampsiteRequest) (*CampsiteDTO, error) {
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		site, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !site.IsHostedBy(user.ID) {
			return domain.NewForbiddenError("Only the host can update this campsite")
		}

		patch := campsiteDomain.Patch{
			Title:       req.Title,
			Description: req.Description,
			Location:    req.Location,
			ImageURL:    req.ImageURL,
		}
		if provided(req.Price) {
			cents, err := campsiteDomain.ParsePrice(req.Price)
			if err != nil {
				return err
			}
			patch.PriceCents = &cents
		}
		if patch.IsEmpty() {
			return domain.NewValidationError("No data provided")
		}
		if err := site.Update(patch); err != nil {
			return err
		}
		return s.repo.Update(ctx, site)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("campsite updated", zap.String("campsite_id", id.String()))
	return s.GetCampsite(ctx, id)
}

// DeleteCampsite removes a listing. Only the host may delete it, and not while
// it still has confirmed or paid bookings.
func (s *CampsiteService) DeleteCampsite(ctx context.Context, user AuthenticatedUser, id uuid.UUID) error {
	err := s.tx.WithinLockingTransaction(ctx, func(ctx context.Context) error {
		site, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !site.IsHostedBy(user.ID) {
			return domain.NewForbiddenError("Only the host can delete this campsite")
		}
		active, err := s.bookings.HasActiveBookings(ctx, id)
		if err != nil {
			return err
		}
		if active {
			return domain.NewConflictError("Cannot delete campsite with active bookings")
		}
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("campsite deleted", zap.String("campsite_id", id.String()))
	return nil
}

func toCampsiteDTO(v campsiteDomain.CampsiteView) CampsiteDTO {
	c := v.Campsite
	return CampsiteDTO{
		ID:            c.ID(),
		Title:         c.Title(),
		Description:   c.Description(),
		Price:         domain.AmountFromCents(c.PriceCents()),
		Currency:      domain.CurrencyUSD,
		Location:      c.Location(),
		HostID:        c.HostID(),
		HostName:      v.HostName,
		ImageURL:      c.ImageURL(),
		AverageRating: v.AverageRating,
		ReviewCount:   v.ReviewCount,
		CreatedAt:     c.CreatedAt(),
	}
}
