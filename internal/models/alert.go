package models

import (
	"time"
)

// AlertSubscription registers a phone number for SMS notification when a
// followed team moves by at least MinRankDelta places between runs.
type AlertSubscription struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Phone        string     `gorm:"not null;index" json:"phone"`
	TeamID       uint       `gorm:"not null;index:idx_alert_team" json:"team_id"`
	AgeGroup     int        `gorm:"not null" json:"age_group"`
	Gender       string     `gorm:"size:1;not null" json:"gender"`
	MinRankDelta int        `gorm:"not null;default:5" json:"min_rank_delta"`
	Active       bool       `gorm:"not null;default:true;index" json:"active"`
	LastNotified *time.Time `json:"last_notified,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Team *Team `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

// TableName specifies the table name for GORM
func (AlertSubscription) TableName() string {
	return "alert_subscriptions"
}
