package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/application"
	"github.com/trailhead-stays/service-booking/internal/platform/auth"
	"github.com/trailhead-stays/service-booking/internal/platform/middleware"
	"github.com/trailhead-stays/service-booking/internal/platform/response"
)

// ReviewHandler handles HTTP requests for campsite reviews.
type ReviewHandler struct {
	service *application.ReviewService
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(service *application.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// RegisterRoutes registers the review routes. Listing a campsite's reviews is public.
func (h *ReviewHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)

	reviews := r.Group("/reviews")
	{
		reviews.GET("/:id", h.ListForCampsite)
		reviews.GET("/eligibility/:id", authMW, h.Eligibility)
		reviews.POST("", authMW, h.CreateReview)
		reviews.PUT("/:id", authMW, h.UpdateReview)
		reviews.DELETE("/:id", authMW, h.DeleteReview)
	}
}

// CreateReview handles POST /reviews.
func (h *ReviewHandler) CreateReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var req application.CreateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.CreateReview(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"message": "Review created successfully", "review": result})
}

// ListForCampsite handles GET /reviews/:id where id is the campsite.
func (h *ReviewHandler) ListForCampsite(c *gin.Context) {
	campsiteID, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}

	result, err := h.service.ListForCampsite(c.Request.Context(), campsiteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"reviews":          result.Reviews,
		"total_reviews":    result.TotalReviews,
		"average_rating":   result.AverageRating,
		"rating_breakdown": result.RatingBreakdown,
	})
}

// Eligibility handles GET /reviews/eligibility/:id.
func (h *ReviewHandler) Eligibility(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	campsiteID, ok := pathID(c, "id", "Campsite")
	if !ok {
		return
	}

	result, err := h.service.Eligibility(c.Request.Context(), user, campsiteID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{
		"campsite_id":      result.CampsiteID,
		"can_review":       result.CanReview,
		"already_reviewed": result.AlreadyReviewed,
	})
}

// UpdateReview handles PUT /reviews/:id.
func (h *ReviewHandler) UpdateReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "id", "Review")
	if !ok {
		return
	}

	var req application.UpdateReviewRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.service.UpdateReview(c.Request.Context(), user, reviewID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Review updated successfully", "review": result})
}

// DeleteReview handles DELETE /reviews/:id.
func (h *ReviewHandler) DeleteReview(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	reviewID, ok := pathID(c, "id", "Review")
	if !ok {
		return
	}

	if err := h.service.DeleteReview(c.Request.Context(), user, reviewID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"message": "Review deleted successfully"})
}
