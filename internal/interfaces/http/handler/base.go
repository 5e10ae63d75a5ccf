// Package handler implements the HTTP endpoints of the report API.
package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/erp/salesreport/internal/domain/sales"
	"github.com/erp/salesreport/internal/infrastructure/logger"
	"github.com/erp/salesreport/internal/infrastructure/magento"
	"github.com/erp/salesreport/internal/interfaces/http/dto"
	"github.com/erp/salesreport/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with run meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, meta *dto.Meta) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, meta))
}

// Error sends an error response, deriving the status code from the error code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 response for an invalid date range
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeInvalidDate, message)
}

// HandleError converts a run failure to an HTTP response
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	code, message := classify(err)
	if code == dto.ErrCodeInternal || code == dto.ErrCodeUpstreamError {
		logger.L(c.Request.Context()).Error("Report request failed", zap.Error(err))
	}
	h.Error(c, code, message)
}

func classify(err error) (code, message string) {
	var apiErr *magento.APIError
	switch {
	case errors.Is(err, magento.ErrConfigMissingBaseURL),
		errors.Is(err, magento.ErrConfigInvalidBaseURL),
		errors.Is(err, magento.ErrConfigMissingCredentials):
		return dto.ErrCodeNotConfigured, "Magento connection is not configured"
	case errors.Is(err, sales.ErrInvalidWindow):
		return dto.ErrCodeInvalidDate, err.Error()
	case errors.As(err, &apiErr) && apiErr.IsUnauthorized():
		return dto.ErrCodeUpstreamAuthFailed, "Magento rejected the credentials"
	case errors.Is(err, context.DeadlineExceeded):
		return dto.ErrCodeTimeout, "Report did not finish in time"
	case errors.Is(err, magento.ErrTransport),
		errors.Is(err, magento.ErrInvalidResponse),
		errors.Is(err, sales.ErrPageLimitExceeded),
		apiErr != nil:
		return dto.ErrCodeUpstreamError, err.Error()
	default:
		return dto.ErrCodeInternal, "An unexpected error occurred"
	}
}
