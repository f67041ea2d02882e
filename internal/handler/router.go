package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/health"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/telemetry"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Bookings  *application.BookingService
	Payments  *application.PaymentService
	Reviews   *application.ReviewService
	Campsites *application.CampsiteService
}

// RouterConfig holds the cross-cutting pieces of the HTTP stack.
type RouterConfig struct {
	JWT    *auth.JWTManager
	Logger *zap.Logger
	// Idempotency guards POST /pay when set.
	Idempotency gin.HandlerFunc
	Health      *health.Handler
}

// NewRouter builds the gin engine with every route mounted under /api.
func NewRouter(cfg RouterConfig, services Services) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(cfg.Logger),
		middleware.RequestIDMiddleware(),
		telemetry.TracingMiddleware(),
		middleware.LoggerMiddleware(cfg.Logger),
		middleware.CORSMiddleware(),
		middleware.SecurityHeadersMiddleware(),
	)

	if cfg.Health != nil {
		cfg.Health.RegisterRoutes(router)
	}

	api := router.Group("/api")
	NewCampsiteHandler(services.Campsites, services.Bookings).RegisterRoutes(api, cfg.JWT)
	NewBookingHandler(services.Bookings).RegisterRoutes(api, cfg.JWT)
	NewPaymentHandler(services.Payments, cfg.Idempotency).RegisterRoutes(api)
	NewReviewHandler(services.Reviews).RegisterRoutes(api, cfg.JWT)
	NewAdminBookingHandler(services.Bookings).RegisterRoutes(api, cfg.JWT)

	return router
}
