package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	userDomain "github.com/trailhead-stays/service-booking/internal/domain/user"
)

// UserService maintains the local projection of identity-provider accounts.
type UserService struct {
	repo   userDomain.UserRepository
	clock  Clock
	logger *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(repo userDomain.UserRepository, clock Clock, logger *zap.Logger) *UserService {
	return &UserService{repo: repo, clock: clock, logger: logger}
}

// ApplyUserEvent upserts the account described by evt. Events without an ID
// or a name carry nothing to project and are skipped.
func (s *UserService) ApplyUserEvent(ctx context.Context, evt UserEvent) error {
	if evt.UserID == uuid.Nil || evt.Name == "" {
		s.logger.Warn("skipping user event without id or name", zap.String("user_id", evt.UserID.String()))
		return nil
	}
	at := evt.OccurredAt
	if at.IsZero() {
		at = s.clock.Now()
	}
	if err := s.repo.Upsert(ctx, userDomain.NewUser(evt.UserID, evt.Name, evt.Email, at)); err != nil {
		return fmt.Errorf("failed to project user %s: %w", evt.UserID, err)
	}
	s.logger.Debug("user projected", zap.String("user_id", evt.UserID.String()))
	return nil
}
