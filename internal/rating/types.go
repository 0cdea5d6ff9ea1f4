package rating

import (
	"fmt"
	"time"
)

// Game is one perspective row of a played match as the engine sees it,
// already scoped to the owning team's cohort.
type Game struct {
	MatchKey         string    `json:"match_key"`
	TeamID           uint      `json:"team_id"`
	OpponentID       uint      `json:"opponent_id"`
	Date             time.Time `json:"date"`
	AgeGroup         int       `json:"age_group"`
	Gender           string    `json:"gender"`
	OpponentAgeGroup int       `json:"opponent_age_group"`
	OpponentGender   string    `json:"opponent_gender"`
	GoalsFor         int       `json:"goals_for"`
	GoalsAgainst     int       `json:"goals_against"`
	IsHome           bool      `json:"is_home"`
	TeamState        string    `json:"team_state"`
	OpponentState    string    `json:"opponent_state"`
}

// GoalDiff returns the signed margin from the perspective side.
func (g *Game) GoalDiff() int {
	return g.GoalsFor - g.GoalsAgainst
}

func (g *Game) crossState() bool {
	return g.TeamState != "" && g.OpponentState != "" && g.TeamState != g.OpponentState
}

// TeamStat is one team's in-engine row. Stages return augmented copies;
// a slice of TeamStat is never mutated in place across stage boundaries.
type TeamStat struct {
	TeamID   uint   `json:"team_id"`
	AgeGroup int    `json:"age_group"`
	Gender   string `json:"gender"`

	// Capped game sample, newest first
	Games        []Game `json:"-"`
	GamesPlayed  int    `json:"games_played"`
	GamesLast180 int    `json:"games_last_180"`
	Wins         int    `json:"wins"`
	Draws        int    `json:"draws"`
	Losses       int    `json:"losses"`

	WinPct     float64 `json:"win_pct"`
	OffenseRaw float64 `json:"offense_raw"` // goals for per game
	DefenseRaw float64 `json:"defense_raw"` // goals against per game

	OffenseShrunk float64 `json:"offense_shrunk"`
	DefenseShrunk float64 `json:"defense_shrunk"`
	OffenseNorm   float64 `json:"offense_norm"`
	DefenseNorm   float64 `json:"defense_norm"`

	SOSRaw        float64  `json:"sos_raw"`
	SOSNorm       float64  `json:"sos_norm"`
	Connectivity  float64  `json:"connectivity"`
	BridgeGames   int      `json:"bridge_games"`
	OppStates     []string `json:"opp_states"`
	ComponentID   int      `json:"component_id"`
	ComponentSize int      `json:"component_size"`

	PerfCentered  float64 `json:"perf_centered"`
	PowerCore     float64 `json:"power_core"`
	PowerAdjusted float64 `json:"power_adjusted"`
	RankInCohort  int     `json:"rank_in_cohort"`

	Residual       float64 `json:"residual"`
	MLNorm         float64 `json:"ml_norm"`
	PowerML        float64 `json:"power_ml"`
	RankInCohortML int     `json:"rank_in_cohort_ml"`

	SampleFlag string `json:"sample_flag"`
}

// GameResidual is the optional per-game export of the residual layer,
// home perspective only (the away residual is the negation).
type GameResidual struct {
	MatchKey string  `json:"match_key"`
	Residual float64 `json:"residual"`
}

// ResidualReport summarizes the residual layer for run diagnostics.
type ResidualReport struct {
	Applied      bool    `json:"applied"`
	Model        string  `json:"model,omitempty"`
	TrainingRows int     `json:"training_rows"`
	TrainMAE     float64 `json:"train_mae,omitempty"`
}

// Table is the rated output of one cohort, teams in final rank order.
type Table struct {
	AgeGroup      int            `json:"age_group"`
	Gender        string         `json:"gender"`
	AsOf          time.Time      `json:"as_of"`
	Teams         []TeamStat     `json:"teams"`
	Components    int            `json:"components"`
	SkippedGames  int            `json:"skipped_games"`
	Residuals     ResidualReport `json:"residuals"`
	GameResiduals []GameResidual `json:"-"`
}

// CohortKey identifies an age x gender ranking pool.
type CohortKey struct {
	AgeGroup int    `json:"age_group"`
	Gender   string `json:"gender"`
}

func (k CohortKey) String() string {
	return fmt.Sprintf("U%d%s", k.AgeGroup, k.Gender)
}
