package models

import (
	"time"

	"github.com/lib/pq"
)

// Sample flags on a rating row.
const (
	SampleOK  = "OK"
	SampleLow = "LOW_SAMPLE"
)

// TeamRating is the persisted output of a rating run for one team in one
// cohort. Rows are replaced wholesale per cohort on each run; RunID ties a
// row to the RatingRun that produced it.
type TeamRating struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TeamID   uint   `gorm:"not null;uniqueIndex:idx_rating_team_cohort" json:"team_id"`
	AgeGroup int    `gorm:"not null;uniqueIndex:idx_rating_team_cohort;index:idx_rating_cohort" json:"age_group"`
	Gender   string `gorm:"size:1;not null;uniqueIndex:idx_rating_team_cohort;index:idx_rating_cohort" json:"gender"`
	RunID    string `gorm:"size:36;index" json:"run_id"`

	// Aggregated sample
	GamesPlayed  int     `gorm:"not null" json:"games_played"`
	GamesLast180 int     `gorm:"not null" json:"games_last_180"`
	WinPct       float64 `json:"win_pct"`

	// Offense / defense, raw through normalized
	OffenseRaw    float64 `json:"offense_raw"`
	DefenseRaw    float64 `json:"defense_raw"`
	OffenseShrunk float64 `json:"offense_shrunk"`
	DefenseShrunk float64 `json:"defense_shrunk"`
	OffenseNorm   float64 `json:"offense_norm"`
	DefenseNorm   float64 `json:"defense_norm"`

	// Schedule strength and connectivity
	SOSRaw        float64        `json:"sos_raw"`
	SOSNorm       float64        `json:"sos_norm"`
	Connectivity  float64        `json:"connectivity"` // schedule connectivity factor in [0,1]
	BridgeGames   int            `json:"bridge_games"`
	ComponentID   int            `json:"component_id"`
	ComponentSize int            `json:"component_size"`
	OppStates     pq.StringArray `gorm:"type:text[]" json:"opp_states,omitempty"`

	// Composite scores, all in [0,1]
	PowerCore     float64 `json:"power_core"`
	PowerAdjusted float64 `gorm:"index:idx_rating_power" json:"power_adjusted"`
	PowerML       float64 `json:"power_ml"`

	// Ranking within cohort
	RankInCohort   int  `gorm:"not null" json:"rank_in_cohort"`
	RankInCohortML int  `gorm:"not null" json:"rank_in_cohort_ml"`
	RankChange7d   *int `json:"rank_change_7d,omitempty"`
	RankChange30d  *int `json:"rank_change_30d,omitempty"`

	SampleFlag string    `gorm:"size:16;not null;default:OK" json:"sample_flag"`
	ComputedAt time.Time `gorm:"not null" json:"computed_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// TableName specifies the table name for GORM
func (TeamRating) TableName() string {
	return "team_ratings"
}

// Provisional reports whether the row is still inside the provisional ramp.
func (r *TeamRating) Provisional() bool {
	return r.SampleFlag == SampleLow
}
