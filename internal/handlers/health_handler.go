package handlers

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger reports whether the persistence store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	store Pinger
}

func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Status handles GET /. The database field reflects a live ping, not
// the state at startup.
func (h *HealthHandler) Status(c *gin.Context) {
	database := "connected"
	if err := h.store.Ping(c.Request.Context()); err != nil {
		database = "disconnected"
	}

	environment := os.Getenv("APP_ENV")
	if environment == "" {
		environment = "development"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Trading App API is running!",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": environment,
		"database":    database,
	})
}
