package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/utils"
)

type TeamsHandler struct {
	db        *database.DB
	snapshots *services.SnapshotService
}

func NewTeamsHandler(db *database.DB, snapshots *services.SnapshotService) *TeamsHandler {
	return &TeamsHandler{
		db:        db,
		snapshots: snapshots,
	}
}

type historyPoint struct {
	Date         string  `json:"date"`
	Rank         int     `json:"rank"`
	RankML       int     `json:"rank_ml"`
	PowerScore   float64 `json:"power_score"`
	PowerScoreML float64 `json:"power_score_ml"`
}

// GetTeam returns a single team with its current rating row, if any.
func (h *TeamsHandler) GetTeam(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	var team models.Team
	if err := h.db.WithContext(c.Request.Context()).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Team not found")
			return
		}
		utils.SendInternalError(c, "Failed to fetch team")
		return
	}

	var rating models.TeamRating
	err := h.db.WithContext(c.Request.Context()).
		Where("team_id = ?", team.ID).
		First(&rating).Error

	payload := gin.H{"team": team}
	if err == nil {
		payload["rating"] = rating
	}
	utils.SendSuccess(c, payload)
}

// GetTeamHistory returns the team's daily rank trail over the requested window.
func (h *TeamsHandler) GetTeamHistory(c *gin.Context) {
	teamID, ok := teamIDParam(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "90"))
	if err != nil || days < 1 || days > 365 {
		utils.SendValidationError(c, "Invalid days parameter", "days must be between 1 and 365")
		return
	}

	var team models.Team
	if err := h.db.WithContext(c.Request.Context()).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Team not found")
			return
		}
		utils.SendInternalError(c, "Failed to fetch team")
		return
	}

	snaps, err := h.snapshots.History(c.Request.Context(), team.ID, days, time.Now().UTC())
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch team history")
		return
	}

	points := make([]historyPoint, 0, len(snaps))
	for i := range snaps {
		s := &snaps[i]
		points = append(points, historyPoint{
			Date:         s.SnapshotDate.Format("2006-01-02"),
			Rank:         s.RankInCohort,
			RankML:       s.RankInCohortML,
			PowerScore:   s.PowerScore,
			PowerScoreML: s.PowerScoreML,
		})
	}

	utils.SendSuccess(c, gin.H{
		"team_id": team.ID,
		"name":    team.Name,
		"cohort":  team.CohortLabel(),
		"days":    days,
		"history": points,
	})
}

func teamIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.SendValidationError(c, "Invalid team id", "id must be a positive integer")
		return 0, false
	}
	return uint(id), true
}
