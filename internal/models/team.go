package models

import (
	"fmt"
	"time"
)

type Team struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ExternalID string    `gorm:"index" json:"external_id"` // provider id, already resolved upstream
	Name       string    `gorm:"not null" json:"name"`
	Club       string    `json:"club"`
	State      string    `gorm:"size:2;index" json:"state"` // two-letter region code, may be empty
	AgeGroup   int       `gorm:"not null;index:idx_team_cohort" json:"age_group"`
	Gender     string    `gorm:"size:1;not null;index:idx_team_cohort" json:"gender"` // "M" or "F"
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Team) TableName() string {
	return "teams"
}

// CohortLabel returns the display form of the team's cohort, e.g. "U11 Boys".
func (t *Team) CohortLabel() string {
	side := "Boys"
	if t.Gender == "F" {
		side = "Girls"
	}
	return fmt.Sprintf("U%d %s", t.AgeGroup, side)
}
