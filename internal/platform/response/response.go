package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trailhead-stays/service-booking/internal/platform/domain"
)

const internalErrorMessage = "Internal server error"

// Error writes {"error": message} with a status derived from the error kind.
// Errors that are not AppErrors become a generic 500 and are attached to the
// gin context so the logging middleware records them.
func Error(c *gin.Context, err error) {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": internalErrorMessage})
		return
	}

	body := gin.H{"error": appErr.Message}
	if appErr.Kind == domain.KindPaymentDeclined {
		body["payment_status"] = "failed"
	}
	c.JSON(StatusFor(appErr.Kind), body)
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation, domain.KindConflict, domain.KindInvalidState, domain.KindPaymentDeclined:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// OK writes a 200 with the given body.
func OK(c *gin.Context, body gin.H) {
	c.JSON(http.StatusOK, body)
}

// Created writes a 201 with the given body.
func Created(c *gin.Context, body gin.H) {
	c.JSON(http.StatusCreated, body)
}
