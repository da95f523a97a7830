package httpserver

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type productHandlers struct {
	svc    ProductService
	logger *slog.Logger
}

func (h *productHandlers) list(c *gin.Context) {
	first := 0
	if raw := c.Query("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "first must be an integer")
			return
		}
		first = n
	}
	products, err := h.svc.List(c.Request.Context(), first, c.Query("query"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *productHandlers) get(c *gin.Context) {
	p, err := h.svc.Get(c.Request.Context(), c.Param("handle"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
