package models

import (
	"time"

	"gorm.io/datatypes"
)

// Rating run lifecycle states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// RatingRun records one execution of the rating pipeline. Summary carries
// per-cohort counts, timings and residual model metrics as JSON.
type RatingRun struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Status        string         `gorm:"not null;index" json:"status"`
	Today         time.Time      `gorm:"not null" json:"today"` // rating date the run was computed against
	Forced        bool           `gorm:"not null;default:false" json:"forced"`
	MLEnabled     bool           `gorm:"not null;default:false" json:"ml_enabled"`
	GamesLoaded   int            `json:"games_loaded"`
	GamesSkipped  int            `json:"games_skipped"`
	TeamsRanked   int            `json:"teams_ranked"`
	Cohorts       int            `json:"cohorts"`
	BatchesFailed int            `json:"batches_failed"`
	Summary       datatypes.JSON `json:"summary,omitempty"`
	Error         string         `json:"error,omitempty"`
	StartedAt     time.Time      `gorm:"not null;index" json:"started_at"`
	FinishedAt    *time.Time     `json:"finished_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RatingRun) TableName() string {
	return "rating_runs"
}

// Duration returns elapsed wall time, zero while the run is still going.
func (r *RatingRun) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
