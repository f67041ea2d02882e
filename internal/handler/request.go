package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
	"github.com/trailhead-stays/service-booking/internal/platform/validation"
)

// currentUser builds the caller identity from the verified token claims.
// It writes a 401 and returns false when the claims are missing.
func currentUser(c *gin.Context) (application.AuthenticatedUser, bool) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		response.Error(c, domain.NewUnauthorizedError("Missing or invalid authorization token"))
		return application.AuthenticatedUser{}, false
	}
	id, err := claims.UserID()
	if err != nil {
		response.Error(c, domain.NewUnauthorizedError("Missing or invalid authorization token"))
		return application.AuthenticatedUser{}, false
	}
	return application.AuthenticatedUser{
		ID:    id,
		Name:  claims.Name,
		Email: claims.Email,
		Role:  claims.Role,
	}, true
}

// pathID parses a uuid path parameter. An id that cannot exist is reported as
// a missing entity.
func pathID(c *gin.Context, param, entity string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		response.Error(c, domain.NewNotFoundError(entity, raw))
		return uuid.Nil, false
	}
	return id, true
}

// bindJSON decodes the request body into req. An empty body leaves req zeroed
// so that the service reports the missing fields.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(c, validation.Message(err))
		return false
	}
	return true
}
