package handlers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/utils"
)

const rankingsCacheTTL = 10 * time.Minute

type RankingsHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewRankingsHandler(db *database.DB, cache *services.CacheService) *RankingsHandler {
	return &RankingsHandler{
		db:    db,
		cache: cache,
	}
}

// RankingEntry is one row of the public cohort table.
type RankingEntry struct {
	Rank          int     `json:"rank"`
	RankML        int     `json:"rank_ml"`
	TeamID        uint    `json:"team_id"`
	Name          string  `json:"name"`
	Club          string  `json:"club,omitempty"`
	State         string  `json:"state,omitempty"`
	PowerScore    float64 `json:"power_score"`
	PowerScoreML  float64 `json:"power_score_ml"`
	SOSNorm       float64 `json:"sos_norm"`
	WinPct        float64 `json:"win_pct"`
	GamesPlayed   int     `json:"games_played"`
	RankChange7d  *int    `json:"rank_change_7d,omitempty"`
	RankChange30d *int    `json:"rank_change_30d,omitempty"`
	SampleFlag    string  `json:"sample_flag"`
}

type cohortRankings struct {
	Cohort     string         `json:"cohort"`
	AgeGroup   int            `json:"age_group"`
	Gender     string         `json:"gender"`
	ComputedAt *time.Time     `json:"computed_at,omitempty"`
	Teams      []RankingEntry `json:"teams"`
}

// GetRankings returns the current table for one cohort, cached briefly.
func (h *RankingsHandler) GetRankings(c *gin.Context) {
	age, gender, ok := cohortQuery(c)
	if !ok {
		return
	}

	cacheKey := services.RankingsCacheKey(age, gender)
	if h.cache != nil {
		var cached cohortRankings
		if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	var rows []models.TeamRating
	err := h.db.WithContext(c.Request.Context()).
		Preload("Team").
		Where("age_group = ? AND gender = ?", age, gender).
		Order("rank_in_cohort ASC").
		Find(&rows).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch rankings")
		return
	}

	result := buildCohortRankings(age, gender, rows)
	if h.cache != nil && len(result.Teams) > 0 {
		h.cache.SetSimple(cacheKey, result, rankingsCacheTTL)
	}

	utils.SendSuccess(c, result)
}

// GetMovers returns the cohort's biggest rank changes over 7 or 30 days.
func (h *RankingsHandler) GetMovers(c *gin.Context) {
	age, gender, ok := cohortQuery(c)
	if !ok {
		return
	}

	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || (days != 7 && days != 30) {
		utils.SendValidationError(c, "Invalid days parameter", "days must be 7 or 30")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cacheKey := services.MoversCacheKey(age, gender, days)
	if h.cache != nil {
		var cached []RankingEntry
		if err := h.cache.Get(c.Request.Context(), cacheKey, &cached); err == nil && len(cached) <= limit {
			utils.SendSuccess(c, gin.H{"days": days, "movers": cached})
			return
		}
	}

	column := "rank_change7d"
	if days == 30 {
		column = "rank_change30d"
	}

	var rows []models.TeamRating
	err = h.db.WithContext(c.Request.Context()).
		Preload("Team").
		Where("age_group = ? AND gender = ?", age, gender).
		Where(fmt.Sprintf("%s IS NOT NULL AND %s != 0", column, column)).
		Order(fmt.Sprintf("ABS(%s) DESC, rank_in_cohort ASC", column)).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch movers")
		return
	}

	movers := buildCohortRankings(age, gender, rows).Teams
	if h.cache != nil && len(movers) > 0 {
		h.cache.SetSimple(cacheKey, movers, rankingsCacheTTL)
	}

	utils.SendSuccess(c, gin.H{"days": days, "movers": movers})
}

// cohortQuery validates the age/gender pair every cohort endpoint takes.
func cohortQuery(c *gin.Context) (int, string, bool) {
	age, err := strconv.Atoi(c.Query("age"))
	if err != nil || age < 5 || age > 21 {
		utils.SendValidationError(c, "Invalid age parameter", "age must be an age group number, e.g. 11 for U11")
		return 0, "", false
	}

	gender := c.Query("gender")
	if gender != "M" && gender != "F" {
		utils.SendValidationError(c, "Invalid gender parameter", "gender must be M or F")
		return 0, "", false
	}
	return age, gender, true
}

func buildCohortRankings(age int, gender string, rows []models.TeamRating) cohortRankings {
	result := cohortRankings{
		Cohort:   fmt.Sprintf("U%d%s", age, gender),
		AgeGroup: age,
		Gender:   gender,
		Teams:    make([]RankingEntry, 0, len(rows)),
	}

	for i := range rows {
		r := &rows[i]
		entry := RankingEntry{
			Rank:          r.RankInCohort,
			RankML:        r.RankInCohortML,
			TeamID:        r.TeamID,
			PowerScore:    r.PowerAdjusted,
			PowerScoreML:  r.PowerML,
			SOSNorm:       r.SOSNorm,
			WinPct:        r.WinPct,
			GamesPlayed:   r.GamesPlayed,
			RankChange7d:  r.RankChange7d,
			RankChange30d: r.RankChange30d,
			SampleFlag:    r.SampleFlag,
		}
		if r.Team != nil {
			entry.Name = r.Team.Name
			entry.Club = r.Team.Club
			entry.State = r.Team.State
		}
		result.Teams = append(result.Teams, entry)
		if result.ComputedAt == nil || r.ComputedAt.After(*result.ComputedAt) {
			t := r.ComputedAt
			result.ComputedAt = &t
		}
	}
	return result
}
