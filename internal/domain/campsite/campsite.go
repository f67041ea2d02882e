package campsite

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

// Campsite is the aggregate root for a host's listing.
type Campsite struct {
	id          uuid.UUID
	hostID      uuid.UUID
	title       string
	description string
	location    string
	imageURL    string
	priceCents  int64
	version     int64
	createdAt   time.Time
	updatedAt   time.Time
}

// NewCampsite creates a listing owned by hostID. priceCents is the nightly rate.
func NewCampsite(hostID uuid.UUID, title, description, location, imageURL string, priceCents int64) (*Campsite, error) {
	if hostID == uuid.Nil {
		return nil, domain.NewValidationError("host ID is required")
	}
	title, description, location = strings.TrimSpace(title), strings.TrimSpace(description), strings.TrimSpace(location)
	if title == "" || description == "" || location == "" {
		return nil, domain.NewValidationError("Title, description, price, and location are required")
	}
	if priceCents <= 0 {
		return nil, domain.NewValidationError("Price must be greater than 0")
	}

	now := time.Now().UTC()
	return &Campsite{
		id:          uuid.New(),
		hostID:      hostID,
		title:       title,
		description: description,
		location:    location,
		imageURL:    strings.TrimSpace(imageURL),
		priceCents:  priceCents,
		version:     1,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Campsite from persistence data (no validation).
func Reconstruct(
	id, hostID uuid.UUID,
	title, description, location, imageURL string,
	priceCents int64,
	version int64,
	createdAt, updatedAt time.Time,
) *Campsite {
	return &Campsite{
		id:          id,
		hostID:      hostID,
		title:       title,
		description: description,
		location:    location,
		imageURL:    imageURL,
		priceCents:  priceCents,
		version:     version,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

// --- Getters ---

func (c *Campsite) ID() uuid.UUID        { return c.id }
func (c *Campsite) HostID() uuid.UUID    { return c.hostID }
func (c *Campsite) Title() string        { return c.title }
func (c *Campsite) Description() string  { return c.description }
func (c *Campsite) Location() string     { return c.location }
func (c *Campsite) ImageURL() string     { return c.imageURL }
func (c *Campsite) PriceCents() int64    { return c.priceCents }
func (c *Campsite) Version() int64       { return c.version }
func (c *Campsite) CreatedAt() time.Time { return c.createdAt }
func (c *Campsite) UpdatedAt() time.Time { return c.updatedAt }

// --- Behavior ---

// IsHostedBy checks if the listing belongs to the given host.
func (c *Campsite) IsHostedBy(hostID uuid.UUID) bool {
	return c.hostID == hostID
}

// Patch holds the fields of a partial update. Nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Location    *string
	ImageURL    *string
	PriceCents  *int64
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Location == nil && p.ImageURL == nil && p.PriceCents == nil
}

// Update applies a partial update. Changing the rate affects future bookings
// only; existing totals are fixed at creation.
func (c *Campsite) Update(p Patch) error {
	if p.PriceCents != nil && *p.PriceCents <= 0 {
		return domain.NewValidationError("Price must be greater than 0")
	}
	if p.Title != nil {
		c.title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		c.description = strings.TrimSpace(*p.Description)
	}
	if p.Location != nil {
		c.location = strings.TrimSpace(*p.Location)
	}
	if p.ImageURL != nil {
		c.imageURL = strings.TrimSpace(*p.ImageURL)
	}
	if p.PriceCents != nil {
		c.priceCents = *p.PriceCents
	}
	c.version++
	c.updatedAt = time.Now().UTC()
	return nil
}
