package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
)

// BookingHandler handles HTTP requests for booking operations.
type BookingHandler struct {
	service *application.BookingService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(service *application.BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

// RegisterRoutes registers all booking routes on the given router group.
func (h *BookingHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	bookings := r.Group("/bookings")
	bookings.Use(middleware.AuthMiddleware(jwtManager))
	{
		bookings.POST("", h.CreateBooking)
		bookings.GET("", h.ListBookings)
		bookings.GET("/hosting", h.ListHostBookings)
		bookings.GET("/:id", h.GetBooking)
		bookings.PUT("/:id/cancel", h.CancelBooking)
	}
}

// CreateBooking handles POST /bookings.
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.CreateBooking(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"message": "Booking created successfully", "booking": result})
}

// ListBookings handles GET /bookings. Guests only see their own bookings.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.service.GetMyBookings(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"bookings": result.Bookings, "total": result.Total})
}

// ListHostBookings handles GET /bookings/hosting.
func (h *BookingHandler) ListHostBookings(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.service.GetHostBookings(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"bookings": result.Bookings, "total": result.Total})
}

// GetBooking handles GET /bookings/:id.
func (h *BookingHandler) GetBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "Booking")
	if !ok {
		return
	}

	result, err := h.service.GetBooking(c.Request.Context(), user, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"booking": result})
}

// CancelBooking handles PUT /bookings/:id/cancel.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	bookingID, ok := pathID(c, "id", "Booking")
	if !ok {
		return
	}

	result, err := h.service.CancelBooking(c.Request.Context(), user, bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Booking cancelled successfully", "booking": result})
}
