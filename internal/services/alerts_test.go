package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
)

// failingSMS rejects configured phone numbers so dispatch failure paths can
// be exercised.
type failingSMS struct {
	MockSMSService
	reject map[string]bool
}

func (f *failingSMS) SendRankAlert(phone, teamName string, oldRank, newRank int) error {
	if f.reject[phone] {
		return errors.New("carrier rejected")
	}
	return f.MockSMSService.SendRankAlert(phone, teamName, oldRank, newRank)
}

func TestSubscribeCreatesSubscription(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", "TX", 11, "M")
	svc := NewAlertService(db, NewMockSMSService())

	sub, err := svc.Subscribe(context.Background(), "+15551234567", team.ID, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, team.ID, sub.TeamID)
	assert.Equal(t, 11, sub.AgeGroup)
	assert.Equal(t, "M", sub.Gender)
	assert.Equal(t, 3, sub.MinRankDelta)
	assert.True(t, sub.Active)
}

func TestSubscribeUnknownTeam(t *testing.T) {
	db := testDB(t)
	svc := NewAlertService(db, NewMockSMSService())

	_, err := svc.Subscribe(context.Background(), "+15551234567", 999, 3)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func TestSubscribeDuplicate(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", "TX", 11, "M")
	svc := NewAlertService(db, NewMockSMSService())

	_, err := svc.Subscribe(context.Background(), "+15551234567", team.ID, 3)
	require.NoError(t, err)

	_, err = svc.Subscribe(context.Background(), "+15551234567", team.ID, 5)
	assert.ErrorIs(t, err, ErrAlreadySubscribed)

	// A different phone may still follow the same team.
	_, err = svc.Subscribe(context.Background(), "+15559876543", team.ID, 5)
	assert.NoError(t, err)
}

func TestSubscribeClampsThreshold(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", "TX", 11, "M")
	svc := NewAlertService(db, NewMockSMSService())

	sub, err := svc.Subscribe(context.Background(), "+15551234567", team.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.MinRankDelta)
}

func TestUnsubscribe(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", "TX", 11, "M")
	svc := NewAlertService(db, NewMockSMSService())

	sub, err := svc.Subscribe(context.Background(), "+15551234567", team.ID, 3)
	require.NoError(t, err)

	require.NoError(t, svc.Unsubscribe(context.Background(), sub.ID))
	assert.ErrorIs(t, svc.Unsubscribe(context.Background(), sub.ID), gorm.ErrRecordNotFound)
}

func TestDispatchMoversThreshold(t *testing.T) {
	db := testDB(t)
	teamA := seedTeam(t, db, "Alpha", "TX", 11, "M")
	teamB := seedTeam(t, db, "Beta", "TX", 11, "M")
	mock := NewMockSMSService()
	svc := NewAlertService(db, mock)

	_, err := svc.Subscribe(context.Background(), "+15551111111", teamA.ID, 5)
	require.NoError(t, err)
	_, err = svc.Subscribe(context.Background(), "+15552222222", teamB.ID, 5)
	require.NoError(t, err)

	movers := []RankMover{
		{TeamID: teamA.ID, TeamName: "Alpha", AgeGroup: 11, Gender: "M", OldRank: 12, NewRank: 4},
		{TeamID: teamB.ID, TeamName: "Beta", AgeGroup: 11, Gender: "M", OldRank: 6, NewRank: 4},
	}
	sent, failed := svc.DispatchMovers(context.Background(), movers)

	// Alpha moved 8, above threshold. Beta moved 2, below.
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
	require.Len(t, mock.Sent, 1)
	assert.Contains(t, mock.Sent[0], "+15551111111")
	assert.Contains(t, mock.Sent[0], "Alpha")

	var sub models.AlertSubscription
	require.NoError(t, db.Where("phone = ?", "+15551111111").First(&sub).Error)
	assert.NotNil(t, sub.LastNotified)
}

func TestDispatchMoversDropAlsoAlerts(t *testing.T) {
	db := testDB(t)
	team := seedTeam(t, db, "Alpha", "TX", 11, "M")
	mock := NewMockSMSService()
	svc := NewAlertService(db, mock)

	_, err := svc.Subscribe(context.Background(), "+15551111111", team.ID, 5)
	require.NoError(t, err)

	movers := []RankMover{
		{TeamID: team.ID, TeamName: "Alpha", AgeGroup: 11, Gender: "M", OldRank: 3, NewRank: 10},
	}
	sent, failed := svc.DispatchMovers(context.Background(), movers)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 0, failed)
}

func TestDispatchMoversSendFailureIsCounted(t *testing.T) {
	db := testDB(t)
	teamA := seedTeam(t, db, "Alpha", "TX", 11, "M")
	teamB := seedTeam(t, db, "Beta", "TX", 11, "M")
	sms := &failingSMS{reject: map[string]bool{"+15551111111": true}}
	svc := NewAlertService(db, sms)

	_, err := svc.Subscribe(context.Background(), "+15551111111", teamA.ID, 1)
	require.NoError(t, err)
	_, err = svc.Subscribe(context.Background(), "+15552222222", teamB.ID, 1)
	require.NoError(t, err)

	movers := []RankMover{
		{TeamID: teamA.ID, TeamName: "Alpha", OldRank: 10, NewRank: 1},
		{TeamID: teamB.ID, TeamName: "Beta", OldRank: 10, NewRank: 1},
	}
	sent, failed := svc.DispatchMovers(context.Background(), movers)
	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, failed)

	var sub models.AlertSubscription
	require.NoError(t, db.Where("phone = ?", "+15551111111").First(&sub).Error)
	assert.Nil(t, sub.LastNotified)
}

func TestDispatchMoversNoSMSBackend(t *testing.T) {
	db := testDB(t)
	svc := NewAlertService(db, nil)

	sent, failed := svc.DispatchMovers(context.Background(), []RankMover{
		{TeamID: 1, TeamName: "Alpha", OldRank: 10, NewRank: 1},
	})
	assert.Zero(t, sent)
	assert.Zero(t, failed)
}

func TestRankMoverDelta(t *testing.T) {
	up := RankMover{OldRank: 10, NewRank: 4}
	down := RankMover{OldRank: 4, NewRank: 10}
	assert.Equal(t, 6, up.Delta())
	assert.Equal(t, -6, down.Delta())
}
