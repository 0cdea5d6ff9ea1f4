package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	cache *services.CacheService
	hub   *services.WebSocketHub
}

func NewHealthHandler(db *database.DB, cache *services.CacheService, hub *services.WebSocketHub) *HealthHandler {
	return &HealthHandler{
		db:    db,
		cache: cache,
		hub:   hub,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
// This is used for basic liveness probes
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pitchrank",
	})
}

// GetReady returns readiness status - only returns 200 when the database and
// cache are both reachable
func (h *HealthHandler) GetReady(c *gin.Context) {
	checks := gin.H{}
	ready := true

	sqlDB, err := h.db.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		checks["database"] = "down"
		ready = false
	} else {
		checks["database"] = "up"
	}

	if h.cache != nil {
		if err := h.cache.Ping(c.Request.Context()); err != nil {
			checks["cache"] = "down"
			ready = false
		} else {
			checks["cache"] = "up"
		}
	} else {
		checks["cache"] = "disabled"
	}

	if h.hub != nil {
		checks["websocket_clients"] = h.hub.ClientCount()
	}

	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{
		"status": state,
		"checks": checks,
	})
}
