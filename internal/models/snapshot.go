package models

import (
	"time"
)

// RankSnapshot is one team's standing captured on a calendar day. At most
// one row exists per (team, day); reruns on the same day overwrite it.
type RankSnapshot struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TeamID         uint      `gorm:"not null;uniqueIndex:idx_snapshot_team_date" json:"team_id"`
	SnapshotDate   time.Time `gorm:"not null;uniqueIndex:idx_snapshot_team_date;index:idx_snapshot_date" json:"snapshot_date"`
	AgeGroup       int       `gorm:"not null;index:idx_snapshot_cohort" json:"age_group"`
	Gender         string    `gorm:"size:1;not null;index:idx_snapshot_cohort" json:"gender"`
	RankInCohort   int       `gorm:"not null" json:"rank_in_cohort"`
	RankInCohortML int       `gorm:"not null" json:"rank_in_cohort_ml"`
	PowerScore     float64   `json:"power_score"`
	PowerScoreML   float64   `json:"power_score_ml"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (RankSnapshot) TableName() string {
	return "rank_snapshots"
}
