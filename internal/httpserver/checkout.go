package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"somnicart/internal/domain"
)

type checkoutRequest struct {
	Items []domain.LineRequest `json:"items"`
}

type checkoutHandlers struct {
	svc    CheckoutService
	logger *slog.Logger
}

func (h *checkoutHandlers) create(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Items array is required")
		return
	}
	session, err := h.svc.CreateCheckoutSession(c.Request.Context(), req.Items)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
