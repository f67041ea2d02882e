package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
	"github.com/trailhead-stays/service-booking/internal/platform/validation"
)

// availabilityQuery is the query string of an availability quote.
type availabilityQuery struct {
	StartDate string `form:"start_date" binding:"required,dateonly"`
	EndDate   string `form:"end_date" binding:"required,dateonly"`
}

// CampsiteHandler handles HTTP requests for campsite listings.
type CampsiteHandler struct {
	campsites *application.CampsiteService
	bookings  *application.BookingService
}

// NewCampsiteHandler creates a new CampsiteHandler.
func NewCampsiteHandler(campsites *application.CampsiteService, bookings *application.BookingService) *CampsiteHandler {
	return &CampsiteHandler{campsites: campsites, bookings: bookings}
}

// RegisterRoutes registers the listing routes. Browsing is public.
func (h *CampsiteHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	campsites := r.Group("/campsites")
	{
		campsites.GET("", h.ListCampsites)
		campsites.GET("/:id", h.GetCampsite)
		campsites.GET("/:id/availability", h.CheckAvailability)
		campsites.POST("", authMW, h.CreateCampsite)
		campsites.PUT("/:id", authMW, h.UpdateCampsite)
		campsites.DELETE("/:id", authMW, h.DeleteCampsite)
	}
}

// CreateCampsite handles POST /campsites. The caller becomes the host.
func (h *CampsiteHandler) CreateCampsite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.CreateCampsiteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.campsites.CreateCampsite(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"message": "Campsite created successfully", "campsite": result})
}

// ListCampsites handles GET /campsites.
func (h *CampsiteHandler) ListCampsites(c *gin.Context) {
	var search application.CampsiteSearch
	if err := c.ShouldBindQuery(&search); err != nil {
		response.BadRequest(c, validation.Message(err))
		return
	}

	result, err := h.campsites.ListCampsites(c.Request.Context(), search)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"campsites": result.Campsites, "total": result.Total})
}

// GetCampsite handles GET /campsites/:id.
func (h *CampsiteHandler) GetCampsite(c *gin.Context) {
	id, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}

	result, err := h.campsites.GetCampsite(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"campsite": result})
}

// CheckAvailability handles GET /campsites/:id/availability.
func (h *CampsiteHandler) CheckAvailability(c *gin.Context) {
	id, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}
	var q availabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, validation.Message(err))
		return
	}

	result, err := h.bookings.CheckAvailability(c.Request.Context(), id, q.StartDate, q.EndDate)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"availability": result})
}

// UpdateCampsite handles PUT /campsites/:id.
func (h *CampsiteHandler) UpdateCampsite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}

	var req application.UpdateCampsiteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.campsites.UpdateCampsite(c.Request.Context(), user, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Campsite updated successfully", "campsite": result})
}

// DeleteCampsite handles DELETE /campsites/:id.
func (h *CampsiteHandler) DeleteCampsite(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}

	if err := h.campsites.DeleteCampsite(c.Request.Context(), user, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Campsite deleted successfully"})
}
