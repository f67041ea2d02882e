package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is the local projection of an identity-provider account. It only
// supplies display names for read models.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	UpdatedAt time.Time
}

// NewUser normalizes the fields of a projected account.
func NewUser(id uuid.UUID, name, email string, at time.Time) User {
	return User{
		ID:        id,
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		UpdatedAt: at.UTC(),
	}
}

// UserRepository stores the projection.
type UserRepository interface {
	// Upsert inserts or refreshes a user. Older updates than the stored one
	// are ignored so out-of-order events cannot roll a name back.
	Upsert(ctx context.Context, u User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}
