package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/utils"
)

type AlertsHandler struct {
	alerts *services.AlertService
}

func NewAlertsHandler(alerts *services.AlertService) *AlertsHandler {
	return &AlertsHandler{alerts: alerts}
}

type createAlertRequest struct {
	Phone        string `json:"phone" binding:"required"`
	TeamID       uint   `json:"team_id" binding:"required"`
	MinRankDelta int    `json:"min_rank_delta"`
}

// CreateAlert subscribes a phone number to rank-change notifications for a team.
func (h *AlertsHandler) CreateAlert(c *gin.Context) {
	var req createAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	sub, err := h.alerts.Subscribe(c.Request.Context(), req.Phone, req.TeamID, req.MinRankDelta)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTeamNotFound):
			utils.SendNotFound(c, "Team not found")
		case errors.Is(err, services.ErrAlreadySubscribed):
			utils.SendConflict(c, "This phone number already follows that team")
		default:
			utils.SendInternalError(c, "Failed to create alert subscription")
		}
		return
	}

	utils.SendSuccess(c, sub)
}

// DeleteAlert removes a subscription by id.
func (h *AlertsHandler) DeleteAlert(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		utils.SendValidationError(c, "Invalid subscription id", "id is required")
		return
	}

	if err := h.alerts.Unsubscribe(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Subscription not found")
			return
		}
		utils.SendInternalError(c, "Failed to delete alert subscription")
		return
	}

	utils.SendSuccess(c, gin.H{"deleted": id})
}
