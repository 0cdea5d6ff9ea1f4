package services

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SMSService interface for sending SMS messages
type SMSService interface {
	SendRankAlert(phoneNumber, teamName string, oldRank, newRank int) error
	SendMessage(phoneNumber, message string) error
}

// MockSMSService for development - logs to console instead of sending real SMS
type MockSMSService struct {
	Sent []string // recorded messages, oldest first
}

func NewMockSMSService() *MockSMSService {
	return &MockSMSService{}
}

func (s *MockSMSService) SendRankAlert(phoneNumber, teamName string, oldRank, newRank int) error {
	return s.SendMessage(phoneNumber, RankAlertBody(teamName, oldRank, newRank))
}

func (s *MockSMSService) SendMessage(phoneNumber, message string) error {
	logrus.Infof("📨 MOCK SMS: Send message to %s: %s", phoneNumber, message)
	s.Sent = append(s.Sent, fmt.Sprintf("%s|%s", phoneNumber, message))
	return nil
}

// RankAlertBody renders the mover notification text shared by all providers.
func RankAlertBody(teamName string, oldRank, newRank int) string {
	if newRank < oldRank {
		return fmt.Sprintf("PitchRank: %s moved up %d spots, #%d → #%d. See the full table on your dashboard.", teamName, oldRank-newRank, oldRank, newRank)
	}
	return fmt.Sprintf("PitchRank: %s dropped %d spots, #%d → #%d. See the full table on your dashboard.", teamName, newRank-oldRank, oldRank, newRank)
}
