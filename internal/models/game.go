package models

import (
	"time"
)

// Game is one team-perspective row of a played match. Every match appears
// twice, once per side, sharing the same MatchKey. Upstream ingestion
// produces both rows; the rating engine consumes them as-is and rows are
// immutable once ingested.
type Game struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	MatchKey         string    `gorm:"not null;index:idx_game_match" json:"match_key"`
	TeamID           uint      `gorm:"not null;index:idx_game_team" json:"team_id"`
	OpponentID       uint      `gorm:"not null;index" json:"opponent_id"`
	GameDate         time.Time `gorm:"not null;index:idx_game_date" json:"game_date"`
	AgeGroup         int       `gorm:"not null;index:idx_game_cohort" json:"age_group"`
	Gender           string    `gorm:"size:1;not null;index:idx_game_cohort" json:"gender"`
	OpponentAgeGroup int       `gorm:"not null" json:"opponent_age_group"`
	OpponentGender   string    `gorm:"size:1;not null" json:"opponent_gender"`
	GoalsFor         int       `gorm:"not null" json:"goals_for"`
	GoalsAgainst     int       `gorm:"not null" json:"goals_against"`
	IsHome           bool      `gorm:"not null;default:false" json:"is_home"`
	TeamState        string    `gorm:"size:2" json:"team_state"`
	OpponentState    string    `gorm:"size:2" json:"opponent_state"`
	Provider         string    `gorm:"index" json:"provider"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Team     *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Opponent *Team `gorm:"foreignKey:OpponentID" json:"opponent,omitempty"`
}

// TableName specifies the table name for GORM
func (Game) TableName() string {
	return "games"
}

// GoalDiff returns the signed margin from the perspective team's side.
func (g *Game) GoalDiff() int {
	return g.GoalsFor - g.GoalsAgainst
}

// Won reports whether the perspective team won the game.
func (g *Game) Won() bool {
	return g.GoalsFor > g.GoalsAgainst
}

// Drawn reports whether the game ended level.
func (g *Game) Drawn() bool {
	return g.GoalsFor == g.GoalsAgainst
}

// CrossState reports whether the two sides came from different regions.
// Games with either state missing do not count as cross-state.
func (g *Game) CrossState() bool {
	return g.TeamState != "" && g.OpponentState != "" && g.TeamState != g.OpponentState
}

// CrossGender reports whether the opponent plays in the other gender bracket.
func (g *Game) CrossGender() bool {
	return g.OpponentGender != "" && g.Gender != g.OpponentGender
}

// AgeGap returns opponent age group minus own age group (positive when the
// opponent is older).
func (g *Game) AgeGap() int {
	return g.OpponentAgeGroup - g.AgeGroup
}
