package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/domain"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
)

// PaymentHandler handles the simulated payment endpoint.
type PaymentHandler struct {
	service     *application.PaymentService
	idempotency gin.HandlerFunc
}

// NewPaymentHandler creates a new PaymentHandler. idempotency may be nil when
// Redis is not configured.
func NewPaymentHandler(service *application.PaymentService, idempotency gin.HandlerFunc) *PaymentHandler {
	return &PaymentHandler{service: service, idempotency: idempotency}
}

// RegisterRoutes registers the payment route. It is not authenticated.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{h.Pay}
	if h.idempotency != nil {
		handlers = append([]gin.HandlerFunc{h.idempotency}, handlers...)
	}
	r.POST("/pay", handlers...)
}

// Pay handles POST /pay.
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req application.PayRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.Attempt(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !result.Success {
		response.Error(c, domain.NewPaymentDeclinedError(result.Message))
		return
	}

	response.OK(c, gin.H{
		"message":        result.Message,
		"booking":        result.Booking,
		"payment_status": "success",
	})
}
