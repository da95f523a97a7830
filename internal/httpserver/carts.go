package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	cartsvc "somnicart/internal/service/cart"
)

type cartHandlers struct {
	svc    CartService
	logger *slog.Logger
}

func (h *cartHandlers) get(c *gin.Context) {
	rec, err := h.svc.Get(c.Request.Context(), c.Param("userId"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *cartHandlers) put(c *gin.Context) {
	var in cartsvc.SaveInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid cart body")
		return
	}
	rec, err := h.svc.Save(c.Request.Context(), c.Param("userId"), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *cartHandlers) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("userId")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
