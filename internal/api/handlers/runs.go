package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/utils"
)

type RunsHandler struct {
	db        *database.DB
	ranking   *services.RankingService
	snapshots *services.SnapshotService
}

func NewRunsHandler(db *database.DB, ranking *services.RankingService, snapshots *services.SnapshotService) *RunsHandler {
	return &RunsHandler{
		db:        db,
		ranking:   ranking,
		snapshots: snapshots,
	}
}

// GetLatestRun returns the most recently started rating run.
func (h *RunsHandler) GetLatestRun(c *gin.Context) {
	var run models.RatingRun
	err := h.db.WithContext(c.Request.Context()).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "No rating runs recorded yet")
			return
		}
		utils.SendInternalError(c, "Failed to fetch latest run")
		return
	}
	utils.SendSuccess(c, run)
}

// GetRun returns one rating run by id.
func (h *RunsHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		utils.SendValidationError(c, "Invalid run id", "id is required")
		return
	}

	var run models.RatingRun
	err := h.db.WithContext(c.Request.Context()).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Run not found")
			return
		}
		utils.SendInternalError(c, "Failed to fetch run")
		return
	}
	utils.SendSuccess(c, run)
}

type triggerRunRequest struct {
	Force bool `json:"force"`
}

// TriggerRun kicks off a rating run in the background and returns immediately.
func (h *RunsHandler) TriggerRun(c *gin.Context) {
	var req triggerRunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.SendValidationError(c, "Invalid request body", err.Error())
			return
		}
	}

	if h.ranking.IsRunning() {
		utils.SendConflict(c, "A rating run is already in progress")
		return
	}

	today := time.Now().UTC()
	go func() {
		if _, err := h.ranking.RunOnce(context.Background(), today, req.Force); err != nil {
			logrus.Errorf("Triggered rating run failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, utils.Response{
		Success: true,
		Data: gin.H{
			"message": "Rating run started",
			"forced":  req.Force,
		},
	})
}

// PurgeSnapshots deletes rank snapshots older than the retention window.
func (h *RunsHandler) PurgeSnapshots(c *gin.Context) {
	deleted, err := h.snapshots.Purge(c.Request.Context(), time.Now().UTC())
	if err != nil {
		utils.SendInternalError(c, "Failed to purge snapshots")
		return
	}
	utils.SendSuccess(c, gin.H{"deleted": deleted})
}
