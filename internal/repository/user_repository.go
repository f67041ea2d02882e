package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

// UserModel is the GORM model for the users projection table.
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"size:100;not null;default:''"`
	Email     string    `gorm:"size:120;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName sets the table name.
func (UserModel) TableName() string { return "users" }

// GormUserRepository implements UserRepository using GORM.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a new GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// Upsert inserts the user or refreshes name and email, unless the stored row
// is newer than u.
func (r *GormUserRepository) Upsert(ctx context.Context, u userDomain.User) (err error) {
	ctx, span := telemetry.StartSpan(ctx, "UserRepository.Upsert", attribute.String("db.sql.table", "users"))
	defer func() { telemetry.EndSpan(span, err) }()

	model := UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.UpdatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	err = conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Expr{SQL: "users.updated_at <= excluded.updated_at"},
		}},
	}).Create(&model).Error
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// FindByID returns a projected user.
func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (_ *userDomain.User, err error) {
	ctx, span := telemetry.StartSpan(ctx, "UserRepository.FindByID", attribute.String("db.sql.table", "users"))
	defer func() { telemetry.EndSpan(span, err) }()

	var model UserModel
	if err := conn(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("User", id.String())
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &userDomain.User{ID: model.ID, Name: model.Name, Email: model.Email, UpdatedAt: model.UpdatedAt}, nil
}
