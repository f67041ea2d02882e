package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
)

// AdminBookingHandler handles admin HTTP requests for booking statistics.
type AdminBookingHandler struct {
	service *application.BookingService
}

// NewAdminBookingHandler creates a new AdminBookingHandler.
func NewAdminBookingHandler(service *application.BookingService) *AdminBookingHandler {
	return &AdminBookingHandler{service: service}
}

// RegisterRoutes registers admin booking routes.
func (h *AdminBookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	adminRole := middleware.RequireRole(auth.RoleAdmin)

	admin := r.Group("/admin")
	admin.Use(authMW, adminRole)
	{
		admin.GET("/stats/bookings", h.BookingStats)
	}
}

// BookingStats handles GET /admin/stats/bookings.
func (h *AdminBookingHandler) BookingStats(c *gin.Context) {
	stats, err := h.service.GetBookingStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"total_bookings": stats.TotalBookings, "by_status": stats.ByStatus})
}
