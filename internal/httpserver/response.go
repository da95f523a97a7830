package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"somnicart/internal/domain"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidationFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrIntegration):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	resp := errorResponse{Code: domain.ErrorCode(err), Message: domain.ErrorMessage(err)}
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("route", routeOf(c)),
			slog.Any("error", err))
		resp.Message = "internal error"
	}
	c.AbortWithStatusJSON(status, resp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Code: "validation_failed", Message: message})
}
