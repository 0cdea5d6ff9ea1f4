package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

var (
	ErrTeamNotFound      = errors.New("team not found")
	ErrAlreadySubscribed = errors.New("already subscribed to this team")
)

// RankMover is a team whose rank moved between the previous run and the
// current one.
type RankMover struct {
	TeamID   uint   `json:"team_id"`
	TeamName string `json:"team_name"`
	AgeGroup int    `json:"age_group"`
	Gender   string `json:"gender"`
	OldRank  int    `json:"old_rank"`
	NewRank  int    `json:"new_rank"`
}

// Delta returns places moved, positive when the team improved.
func (m RankMover) Delta() int {
	return m.OldRank - m.NewRank
}

// AlertService manages SMS subscriptions and dispatches mover notifications
// after a run.
type AlertService struct {
	db  *database.DB
	sms SMSService
}

func NewAlertService(db *database.DB, sms SMSService) *AlertService {
	return &AlertService{
		db:  db,
		sms: sms,
	}
}

// Subscribe registers a phone number for alerts on one team. A phone can
// follow many teams but only once each.
func (s *AlertService) Subscribe(ctx context.Context, phone string, teamID uint, minRankDelta int) (*models.AlertSubscription, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, teamID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to look up team: %w", err)
	}

	var existing models.AlertSubscription
	err := s.db.WithContext(ctx).
		Where("phone = ? AND team_id = ? AND active = ?", phone, teamID, true).
		First(&existing).Error
	if err == nil {
		return nil, ErrAlreadySubscribed
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing subscription: %w", err)
	}

	if minRankDelta < 1 {
		minRankDelta = 1
	}
	sub := &models.AlertSubscription{
		ID:           uuid.NewString(),
		Phone:        phone,
		TeamID:       teamID,
		AgeGroup:     team.AgeGroup,
		Gender:       team.Gender,
		MinRankDelta: minRankDelta,
		Active:       true,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes a subscription by id.
func (s *AlertService) Unsubscribe(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.AlertSubscription{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete subscription: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DispatchMovers sends one SMS per active subscription whose team moved at
// least the subscriber's threshold. Send failures are logged and counted,
// never fatal; the run does not wait on retries.
func (s *AlertService) DispatchMovers(ctx context.Context, movers []RankMover) (sent int, failed int) {
	if s.sms == nil || len(movers) == 0 {
		return 0, 0
	}

	byTeam := make(map[uint]RankMover, len(movers))
	teamIDs := make([]uint, 0, len(movers))
	for _, m := range movers {
		byTeam[m.TeamID] = m
		teamIDs = append(teamIDs, m.TeamID)
	}

	var subs []models.AlertSubscription
	err := s.db.WithContext(ctx).
		Where("active = ? AND team_id IN ?", true, teamIDs).
		Order("id ASC").
		Find(&subs).Error
	if err != nil {
		logrus.Errorf("Failed to load alert subscriptions: %v", err)
		return 0, 0
	}

	now := time.Now().UTC()
	for _, sub := range subs {
		mover := byTeam[sub.TeamID]
		delta := mover.Delta()
		if delta < 0 {
			delta = -delta
		}
		if delta < sub.MinRankDelta {
			continue
		}

		if err := s.sms.SendRankAlert(sub.Phone, mover.TeamName, mover.OldRank, mover.NewRank); err != nil {
			logrus.Warnf("Alert send failed for subscription %s: %v", sub.ID, err)
			failed++
			continue
		}
		sent++

		if err := s.db.WithContext(ctx).Model(&models.AlertSubscription{}).
			Where("id = ?", sub.ID).
			Update("last_notified", now).Error; err != nil {
			logrus.Warnf("Failed to stamp last_notified on subscription %s: %v", sub.ID, err)
		}
	}

	if sent > 0 || failed > 0 {
		logrus.Infof("Dispatched rank alerts: %d sent, %d failed", sent, failed)
	}
	return sent, failed
}
