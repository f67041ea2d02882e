package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trailhead-stays/service-booking/internal/domain/booking"
)

// AuthenticatedUser is the caller identity the HTTP layer extracts from a
// verified token. Services never see the token itself.
type AuthenticatedUser struct {
	ID    uuid.UUID
	Name  string
	Email string
	Role  string
}

// Clock supplies the current instant and the current calendar date.
type Clock interface {
	Now() time.Time
	// Today is the current date in the service's timezone, at UTC midnight.
	Today() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a clock whose calendar days follow loc.
func NewSystemClock(loc *time.Location) SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return SystemClock{loc: loc}
}

// Now implements Clock.
func (c SystemClock) Now() time.Time { return time.Now().UTC() }

// Today implements Clock.
func (c SystemClock) Today() time.Time { return booking.DateOf(time.Now(), c.loc) }

// Transactor runs fn inside one store transaction. Repositories called with
// the ctx passed to fn join that transaction. fn may run more than once when
// the store asks for a retry, so it must not publish events or call out to
// other systems; work that must happen once goes before or after the call.
type Transactor interface {
	// WithinTransaction runs fn with serializable isolation.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// WithinLockingTransaction runs fn with read-committed isolation. fn
	// orders itself against concurrent writers by locking rows first, so
	// every statement after the lock sees what earlier holders committed.
	WithinLockingTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
