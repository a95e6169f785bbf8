// README: Health probe handler.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"dishbee/internal/types"
)

type OrderCounter interface {
	OpenCount() int
}

type HealthHandler struct {
	orders OrderCounter
	clock  types.Clock
}

func NewHealthHandler(orders OrderCounter, clock types.Clock) *HealthHandler {
	return &HealthHandler{orders: orders, clock: clock}
}

func (h *HealthHandler) Get(c *gin.Context) {
	open := 0
	if h.orders != nil {
		open = h.orders.OpenCount()
	}
	writeJSON(c, http.StatusOK, gin.H{
		"status":      "ok",
		"open_orders": open,
		"ts":          h.clock.Now().Format(time.RFC3339),
	})
}
