package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	campsiteDomain "github.com/trailhead-stays/service-booking/internal/domain/campsite"
	reviewDomain "github.com/trailhead-stays/service-booking/internal/domain/review"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

// CampsiteModel is the GORM model for the campsites table.
type CampsiteModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	HostID      uuid.UUID `gorm:"type:uuid;index;not null"`
	Title       string    `gorm:"not null;size:200"`
	Description string    `gorm:"type:text;not null"`
	Location    string    `gorm:"not null;size:200"`
	ImageURL    string    `gorm:"size:500;not null;default:''"`
	PriceCents  int64     `gorm:"not null;index"`
	Version     int64     `gorm:"not null;default:1"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (CampsiteModel) TableName() string {
	return "campsites"
}

type campsiteViewRow struct {
	CampsiteModel `gorm:"embedded"`
	HostName      string
	AverageRating float64
	ReviewCount   int
}

// GormCampsiteRepository is the GORM-based implementation of CampsiteRepository.
type GormCampsiteRepository struct {
	db *gorm.DB
}

// NewGormCampsiteRepository creates a new GormCampsiteRepository.
func NewGormCampsiteRepository(db *gorm.DB) *GormCampsiteRepository {
	return &GormCampsiteRepository{db: db}
}

func startCampsiteSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "CampsiteRepository."+op, attribute.String("db.sql.table", "campsites"))
}

// FindByID retrieves a campsite by ID.
func (r *GormCampsiteRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *campsiteDomain.Campsite, err error) {
	ctx, span := startCampsiteSpan(ctx, "FindByID")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.find(conn(ctx, r.db), id)
}

// FindByIDForUpdate retrieves a campsite and locks its row until the
// surrounding transaction ends.
func (r *GormCampsiteRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (_ *campsiteDomain.Campsite, err error) {
	ctx, span := startCampsiteSpan(ctx, "FindByIDForUpdate")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormCampsiteRepository) find(db *gorm.DB, id uuid.UUID) (*campsiteDomain.Campsite, error) {
	var model CampsiteModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Campsite", id.String())
		}
		return nil, fmt.Errorf("failed to find campsite: %w", err)
	}
	return toDomainCampsite(&model), nil
}

func (r *GormCampsiteRepository) viewQuery(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Table("campsites AS c").
		Select("c.*, COALESCE(u.name, '') AS host_name, " +
			"COALESCE(AVG(rv.rating), 0)::float8 AS average_rating, COUNT(rv.id) AS review_count").
		Joins("LEFT JOIN users u ON u.id = c.host_id").
		Joins("LEFT JOIN reviews rv ON rv.campsite_id = c.id").
		Group("c.id, u.name")
}

// FindView retrieves a campsite with its host name and rating summary.
func (r *GormCampsiteRepository) FindView(ctx context.Context, id uuid.UUID) (_ *campsiteDomain.CampsiteView, err error) {
	ctx, span := startCampsiteSpan(ctx, "FindView")
	defer func() { telemetry.EndSpan(span, err) }()

	var rows []campsiteViewRow
	if err := r.viewQuery(ctx).Where("c.id = ?", id).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find campsite view: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Campsite", id.String())
	}
	view := toCampsiteView(&rows[0])
	return &view, nil
}

// List searches campsites, newest first.
func (r *GormCampsiteRepository) List(ctx context.Context, filter campsiteDomain.Filter) (_ []campsiteDomain.CampsiteView, err error) {
	ctx, span := startCampsiteSpan(ctx, "List")
	defer func() { telemetry.EndSpan(span, err) }()

	q := r.viewQuery(ctx)
	if filter.Location != "" {
		q = q.Where("c.location ILIKE ?", "%"+escapeLike(filter.Location)+"%")
	}
	if filter.MinPriceCents != nil {
		q = q.Where("c.price_cents >= ?", *filter.MinPriceCents)
	}
	if filter.MaxPriceCents != nil {
		q = q.Where("c.price_cents <= ?", *filter.MaxPriceCents)
	}

	var rows []campsiteViewRow
	if err := q.Order("c.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list campsites: %w", err)
	}

	views := make([]campsiteDomain.CampsiteView, len(rows))
	for i := range rows {
		views[i] = toCampsiteView(&rows[i])
	}
	return views, nil
}

// Save persists a new campsite.
func (r *GormCampsiteRepository) Save(ctx context.Context, c *campsiteDomain.Campsite) (err error) {
	ctx, span := startCampsiteSpan(ctx, "Save")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := conn(ctx, r.db).Create(toCampsiteModel(c)).Error; err != nil {
		return fmt.Errorf("failed to save campsite: %w", err)
	}
	return nil
}

// Update persists changes to a campsite with optimistic locking.
func (r *GormCampsiteRepository) Update(ctx context.Context, c *campsiteDomain.Campsite) (err error) {
	ctx, span := startCampsiteSpan(ctx, "Update")
	defer func() { telemetry.EndSpan(span, err) }()

	model := toCampsiteModel(c)
	result := conn(ctx, r.db).
		Model(&CampsiteModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]interface{}{
			"title":       model.Title,
			"description": model.Description,
			"location":    model.Location,
			"image_url":   model.ImageURL,
			"price_cents": model.PriceCents,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update campsite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewConflictError("Campsite was modified by another request")
	}
	return nil
}

// Delete removes a campsite. Its reviews and bookings go with it.
func (r *GormCampsiteRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startCampsiteSpan(ctx, "Delete")
	defer func() { telemetry.EndSpan(span, err) }()

	result := conn(ctx, r.db).Where("id = ?", id).Delete(&CampsiteModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete campsite: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Campsite", id.String())
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func toCampsiteModel(c *campsiteDomain.Campsite) *CampsiteModel {
	return &CampsiteModel{
		ID:          c.ID(),
		HostID:      c.HostID(),
		Title:       c.Title(),
		Description: c.Description(),
		Location:    c.Location(),
		ImageURL:    c.ImageURL(),
		PriceCents:  c.PriceCents(),
		Version:     c.Version(),
		CreatedAt:   c.CreatedAt(),
		UpdatedAt:   c.UpdatedAt(),
	}
}

func toDomainCampsite(m *CampsiteModel) *campsiteDomain.Campsite {
	return campsiteDomain.Reconstruct(
		m.ID, m.HostID,
		m.Title, m.Description, m.Location, m.ImageURL,
		m.PriceCents,
		m.Version,
		m.CreatedAt, m.UpdatedAt,
	)
}

func toCampsiteView(row *campsiteViewRow) campsiteDomain.CampsiteView {
	return campsiteDomain.CampsiteView{
		Campsite:      toDomainCampsite(&row.CampsiteModel),
		HostName:      row.HostName,
		AverageRating: reviewDomain.RoundRating(row.AverageRating),
		ReviewCount:   row.ReviewCount,
	}
}
