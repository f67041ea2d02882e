package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	reviewDomain "github.com/trailhead-stays/service-booking/internal/domain/review"
	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

// ReviewModel is the GORM model for the reviews table.
type ReviewModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	GuestID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:reviews_guest_campsite_key"`
	CampsiteID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:reviews_guest_campsite_key"`
	Rating     int       `gorm:"type:smallint;not null"`
	Comment    string    `gorm:"type:text;not null;default:''"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (ReviewModel) TableName() string { return "reviews" }

type reviewViewRow struct {
	ReviewModel `gorm:"embedded"`
	GuestName   string
}

// GormReviewRepository implements ReviewRepository using GORM.
type GormReviewRepository struct {
	db *gorm.DB
}

// NewGormReviewRepository creates a new GormReviewRepository.
func NewGormReviewRepository(db *gorm.DB) *GormReviewRepository {
	return &GormReviewRepository{db: db}
}

func startReviewSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "ReviewRepository."+op, attribute.String("db.sql.table", "reviews"))
}

// FindByID returns a single review by ID.
func (r *GormReviewRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *reviewDomain.Review, err error) {
	ctx, span := startReviewSpan(ctx, "FindByID")
	defer func() { telemetry.EndSpan(span, err) }()

	var model ReviewModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Review", id.String())
		}
		return nil, fmt.Errorf("failed to find review: %w", err)
	}
	return toReviewDomain(&model), nil
}

func (r *GormReviewRepository) viewQuery(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Table("reviews AS rv").
		Select("rv.*, COALESCE(u.name, '') AS guest_name").
		Joins("LEFT JOIN users u ON u.id = rv.guest_id")
}

// FindView returns a review with its author's name.
func (r *GormReviewRepository) FindView(ctx context.Context, id uuid.UUID) (_ *reviewDomain.ReviewView, err error) {
	ctx, span := startReviewSpan(ctx, "FindView")
	defer func() { telemetry.EndSpan(span, err) }()

	var rows []reviewViewRow
	if err := r.viewQuery(ctx).Where("rv.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find review view: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Review", id.String())
	}
	return &reviewDomain.ReviewView{Review: toReviewDomain(&rows[0].ReviewModel), GuestName: rows[0].GuestName}, nil
}

// ExistsForGuest reports whether the guest already reviewed the campsite.
func (r *GormReviewRepository) ExistsForGuest(ctx context.Context, guestID, campsiteID uuid.UUID) (_ bool, err error) {
	ctx, span := startReviewSpan(ctx, "ExistsForGuest")
	defer func() { telemetry.EndSpan(span, err) }()

	var count int64
	if err := conn(ctx, r.db).Model(&ReviewModel{}).
		Where("guest_id = ? AND campsite_id = ?", guestID, campsiteID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check existing review: %w", err)
	}
	return count > 0, nil
}

// ListByCampsite returns all reviews of a campsite, newest first.
func (r *GormReviewRepository) ListByCampsite(ctx context.Context, campsiteID uuid.UUID) (_ []reviewDomain.ReviewView, err error) {
	ctx, span := startReviewSpan(ctx, "ListByCampsite")
	defer func() { telemetry.EndSpan(span, err) }()

	var rows []reviewViewRow
	if err := r.viewQuery(ctx).
		Where("rv.campsite_id = ?", campsiteID).
		Order("rv.created_at DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	views := make([]reviewDomain.ReviewView, len(rows))
	for i := range rows {
		views[i] = reviewDomain.ReviewView{Review: toReviewDomain(&rows[i].ReviewModel), GuestName: rows[i].GuestName}
	}
	return views, nil
}

// Save persists a new review. A second review by the same guest for the same
// campsite is rejected by the unique index.
func (r *GormReviewRepository) Save(ctx context.Context, review *reviewDomain.Review) (err error) {
	ctx, span := startReviewSpan(ctx, "Save")
	defer func() { telemetry.EndSpan(span, err) }()

	model := toReviewModel(review)
	if err := conn(ctx, r.db).Create(&model).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return reviewDomain.NewAlreadyReviewedError()
		}
		return fmt.Errorf("failed to save review: %w", err)
	}
	return nil
}

// Update persists an edited rating or comment.
func (r *GormReviewRepository) Update(ctx context.Context, review *reviewDomain.Review) (err error) {
	ctx, span := startReviewSpan(ctx, "Update")
	defer func() { telemetry.EndSpan(span, err) }()

	result := conn(ctx, r.db).Model(&ReviewModel{}).
		Where("id = ?", review.ID()).
		Updates(map[string]interface{}{
			"rating":     review.Rating(),
			"comment":    review.Comment(),
			"updated_at": review.UpdatedAt(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Review", review.ID().String())
	}
	return nil
}

// Delete removes a review by ID.
func (r *GormReviewRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	ctx, span := startReviewSpan(ctx, "Delete")
	defer func() { telemetry.EndSpan(span, err) }()

	result := conn(ctx, r.db).Where("id = ?", id).Delete(&ReviewModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete review: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewNotFoundError("Review", id.String())
	}
	return nil
}

func toReviewModel(r *reviewDomain.Review) ReviewModel {
	return ReviewModel{
		ID:         r.ID(),
		GuestID:    r.GuestID(),
		CampsiteID: r.CampsiteID(),
		Rating:     r.Rating(),
		Comment:    r.Comment(),
		CreatedAt:  r.CreatedAt(),
		UpdatedAt:  r.UpdatedAt(),
	}
}

func toReviewDomain(m *ReviewModel) *reviewDomain.Review {
	return reviewDomain.Reconstruct(m.ID, m.GuestID, m.CampsiteID, m.Rating, m.Comment, m.CreatedAt, m.UpdatedAt)
}
