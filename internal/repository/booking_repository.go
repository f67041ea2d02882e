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
	"gorm.io/gorm/clause"

	bookingDomain "github.com/trailhead-stays/service-booking/internal/domain/booking"
	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

// BookingModel is the GORM model for the bookings table.
type BookingModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	GuestID         uuid.UUID  `gorm:"type:uuid;index;not null"`
	CampsiteID      uuid.UUID  `gorm:"type:uuid;index;not null"`
	StartDate       time.Time  `gorm:"type:date;not null"`
	EndDate         time.Time  `gorm:"type:date;not null"`
	Status          string     `gorm:"not null;size:20;index"`
	TotalPriceCents int64      `gorm:"not null"`
	PaidAt          *time.Time `gorm:""`
	CancelledAt     *time.Time `gorm:""`
	Version         int64      `gorm:"not null;default:1"`
	CreatedAt       time.Time  `gorm:"not null"`
	UpdatedAt       time.Time  `gorm:"not null"`
}

// TableName returns the table name for the GORM model.
func (BookingModel) TableName() string {
	return "bookings"
}

type bookingViewRow struct {
	BookingModel  `gorm:"embedded"`
	GuestName     string
	CampsiteTitle string
	HostID        uuid.UUID
}

// GormBookingRepository is the GORM-based implementation of BookingRepository.
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository.
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func startBookingSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return telemetry.StartSpan(ctx, "BookingRepository."+op, append(attrs, attribute.String("db.sql.table", "bookings"))...)
}

// FindByID retrieves a booking by its unique identifier.
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *bookingDomain.Booking, err error) {
	ctx, span := startBookingSpan(ctx, "FindByID")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.find(conn(ctx, r.db), id)
}

// FindByIDForUpdate retrieves a booking and locks its row until the
// surrounding transaction ends.
func (r *GormBookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (_ *bookingDomain.Booking, err error) {
	ctx, span := startBookingSpan(ctx, "FindByIDForUpdate")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.find(conn(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormBookingRepository) find(db *gorm.DB, id uuid.UUID) (*bookingDomain.Booking, error) {
	var model BookingModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Booking", id.String())
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}
	return toDomainBooking(&model)
}

func (r *GormBookingRepository) viewQuery(ctx context.Context) *gorm.DB {
	return conn(ctx, r.db).
		Table("bookings AS b").
		Select("b.*, COALESCE(u.name, '') AS guest_name, c.title AS campsite_title, c.host_id AS host_id").
		Joins("JOIN campsites c ON c.id = b.campsite_id").
		Joins("LEFT JOIN users u ON u.id = b.guest_id")
}

// FindView retrieves a booking together with its display fields.
func (r *GormBookingRepository) FindView(ctx context.Context, id uuid.UUID) (_ *bookingDomain.BookingView, err error) {
	ctx, span := startBookingSpan(ctx, "FindView")
	defer func() { telemetry.EndSpan(span, err) }()

	var rows []bookingViewRow
	if err := r.viewQuery(ctx).Where("b.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find booking view: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.NewNotFoundError("Booking", id.String())
	}
	return toBookingView(&rows[0])
}

// ListByGuest returns a guest's bookings, newest first.
func (r *GormBookingRepository) ListByGuest(ctx context.Context, guestID uuid.UUID) (_ []bookingDomain.BookingView, err error) {
	ctx, span := startBookingSpan(ctx, "ListByGuest")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.listViews(r.viewQuery(ctx).Where("b.guest_id = ?", guestID))
}

// ListByHost returns bookings on campsites the host owns, newest first.
func (r *GormBookingRepository) ListByHost(ctx context.Context, hostID uuid.UUID) (_ []bookingDomain.BookingView, err error) {
	ctx, span := startBookingSpan(ctx, "ListByHost")
	defer func() { telemetry.EndSpan(span, err) }()

	return r.listViews(r.viewQuery(ctx).Where("c.host_id = ?", hostID))
}

func (r *GormBookingRepository) listViews(q *gorm.DB) ([]bookingDomain.BookingView, error) {
	var rows []bookingViewRow
	if err := q.Order("b.created_at DESC").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	views := make([]bookingDomain.BookingView, len(rows))
	for i := range rows {
		v, err := toBookingView(&rows[i])
		if err != nil {
			return nil, err
		}
		views[i] = *v
	}
	return views, nil
}

// IsAvailable reports whether no confirmed or paid booking on the campsite
// overlaps the half-open stay.
func (r *GormBookingRepository) IsAvailable(ctx context.Context, campsiteID uuid.UUID, stay bookingDomain.Stay, excludeID *uuid.UUID) (_ bool, err error) {
	ctx, span := startBookingSpan(ctx, "IsAvailable", attribute.String("campsite_id", campsiteID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	q := conn(ctx, r.db).Model(&BookingModel{}).
		Where("campsite_id = ?", campsiteID).
		Where("status IN ?", activeStatusStrings()).
		Where("start_date < CAST(? AS date) AND end_date > CAST(? AS date)",
			stay.End.Format(bookingDomain.DateLayout),
			stay.Start.Format(bookingDomain.DateLayout),
		)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}

	var conflicts int64
	if err := q.Count(&conflicts).Error; err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}
	return conflicts == 0, nil
}

// HasPaidBooking reports whether the guest holds a paid booking for the campsite.
func (r *GormBookingRepository) HasPaidBooking(ctx context.Context, guestID, campsiteID uuid.UUID) (_ bool, err error) {
	ctx, span := startBookingSpan(ctx, "HasPaidBooking")
	defer func() { telemetry.EndSpan(span, err) }()

	var count int64
	if err := conn(ctx, r.db).Model(&BookingModel{}).
		Where("guest_id = ? AND campsite_id = ? AND status = ?", guestID, campsiteID, string(bookingDomain.StatusPaid)).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check paid bookings: %w", err)
	}
	return count > 0, nil
}

// HasActiveBookings reports whether any confirmed or paid booking references the campsite.
func (r *GormBookingRepository) HasActiveBookings(ctx context.Context, campsiteID uuid.UUID) (_ bool, err error) {
	ctx, span := startBookingSpan(ctx, "HasActiveBookings")
	defer func() { telemetry.EndSpan(span, err) }()

	var count int64
	if err := conn(ctx, r.db).Model(&BookingModel{}).
		Where("campsite_id = ? AND status IN ?", campsiteID, activeStatusStrings()).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check active bookings: %w", err)
	}
	return count > 0, nil
}

// Save persists a new booking. An overlap caught by the bookings_no_overlap
// constraint is reported as the campsite being unavailable.
func (r *GormBookingRepository) Save(ctx context.Context, bk *bookingDomain.Booking) (err error) {
	ctx, span := startBookingSpan(ctx, "Save")
	defer func() { telemetry.EndSpan(span, err) }()

	if err := conn(ctx, r.db).Create(toBookingModel(bk)).Error; err != nil {
		if database.IsExclusionViolation(err) {
			return bookingDomain.NewUnavailableError()
		}
		return fmt.Errorf("failed to save booking: %w", err)
	}
	return nil
}

// Update persists changes to an existing booking with optimistic locking.
func (r *GormBookingRepository) Update(ctx context.Context, bk *bookingDomain.Booking) (err error) {
	ctx, span := startBookingSpan(ctx, "Update")
	defer func() { telemetry.EndSpan(span, err) }()

	model := toBookingModel(bk)

	// Optimistic locking: only update if the version matches (current version - 1 since IncrementVersion was called)
	expectedVersion := bk.Version() - 1
	result := conn(ctx, r.db).
		Model(&BookingModel{}).
		Where("id = ? AND version = ?", model.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       model.Status,
			"paid_at":      model.PaidAt,
			"cancelled_at": model.CancelledAt,
			"version":      model.Version,
			"updated_at":   model.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update booking: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return domain.NewConflictError("Booking was modified by another request")
	}

	return nil
}

// CountByStatus returns booking counts grouped by status (admin).
func (r *GormBookingRepository) CountByStatus(ctx context.Context) (_ map[string]int64, err error) {
	ctx, span := startBookingSpan(ctx, "CountByStatus")
	defer func() { telemetry.EndSpan(span, err) }()

	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := conn(ctx, r.db).Model(&BookingModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}

	counts := make(map[string]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// --- Conversion Helpers ---

func activeStatusStrings() []string {
	out := make([]string, len(bookingDomain.ActiveStatuses))
	for i, s := range bookingDomain.ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

func toBookingModel(bk *bookingDomain.Booking) *BookingModel {
	return &BookingModel{
		ID:              bk.ID(),
		GuestID:         bk.GuestID(),
		CampsiteID:      bk.CampsiteID(),
		StartDate:       bk.Stay().Start,
		EndDate:         bk.Stay().End,
		Status:          string(bk.Status()),
		TotalPriceCents: bk.TotalPriceCents(),
		PaidAt:          bk.PaidAt(),
		CancelledAt:     bk.CancelledAt(),
		Version:         bk.Version(),
		CreatedAt:       bk.CreatedAt(),
		UpdatedAt:       bk.UpdatedAt(),
	}
}

func toDomainBooking(m *BookingModel) (*bookingDomain.Booking, error) {
	status, err := bookingDomain.ParseBookingStatus(m.Status)
	if err != nil {
		return nil, err
	}
	stay := bookingDomain.Stay{
		Start: bookingDomain.DateOf(m.StartDate, time.UTC),
		End:   bookingDomain.DateOf(m.EndDate, time.UTC),
	}

	return bookingDomain.ReconstructBooking(
		m.ID,
		m.GuestID,
		m.CampsiteID,
		stay,
		status,
		m.TotalPriceCents,
		m.PaidAt,
		m.CancelledAt,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	), nil
}

func toBookingView(row *bookingViewRow) (*bookingDomain.BookingView, error) {
	bk, err := toDomainBooking(&row.BookingModel)
	if err != nil {
		return nil, err
	}
	return &bookingDomain.BookingView{
		Booking:       bk,
		GuestName:     row.GuestName,
		CampsiteTitle: row.CampsiteTitle,
		HostID:        row.HostID,
	}, nil
}
