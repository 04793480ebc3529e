package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/catalog"
	"github.com/RedHatInsights/rhsm-subscriptions-sub008/internal/observability/logger"
)

// APIError is an error with a fixed HTTP mapping.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

var ErrNotFound = &APIError{
	Status:  http.StatusNotFound,
	Code:    "not_found",
	Message: "resource not found",
}

func invalidRequestError() *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "invalid_request",
		Message: "request body could not be parsed",
	}
}

func newValidationError(field, code, message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    code,
		Field:   field,
		Message: message,
	}
}

// AbortWithError maps an error onto its HTTP response. Unrecognized errors
// become opaque 500s; the detail stays in the log.
func AbortWithError(c *gin.Context, err error) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": apiErr})
		return
	}

	if errors.Is(err, catalog.ErrCatalogUnavailable) {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": &APIError{
			Code:    "catalog_unavailable",
			Message: "product catalog is unavailable",
		}})
		return
	}

	logger.FromContext(c.Request.Context()).Error("request failed", zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": &APIError{
		Code:    "internal_error",
		Message: "internal server error",
	}})
}
