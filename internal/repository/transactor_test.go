package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/trailhead-stays/service-booking/internal/platform/database"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

func TestContentionErrorIsAClientConflict(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	err := contentionError(3, fmt.Errorf("failed to insert booking: %w", pgErr))

	kind, ok := domain.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, domain.KindConflict, kind)

	var appErr *domain.AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, ContentionMessage, appErr.Message)

	assert.True(t, database.IsRetryable(err), "the store error stays reachable")
	assert.Contains(t, err.Error(), "gave up after 3 attempts")
}
