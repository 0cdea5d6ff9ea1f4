package services

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

var testToday = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// testDB opens a throwaway sqlite database with the full schema. A file in
// t.TempDir() rather than :memory: so gorm's connection pool sees one store.
func testDB(t *testing.T) *database.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := database.NewConnection("sqlite://"+path, false)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamRating{},
		&models.RankSnapshot{},
		&models.RatingRun{},
		&models.AlertSubscription{},
	))
	return db
}

func seedTeam(t *testing.T, db *database.DB, name, state string, age int, gender string) *models.Team {
	t.Helper()
	team := &models.Team{
		ExternalID: fmt.Sprintf("ext-%s", name),
		Name:       name,
		Club:       name + " Club",
		State:      state,
		AgeGroup:   age,
		Gender:     gender,
	}
	require.NoError(t, db.Create(team).Error)
	return team
}

// seedMatch inserts both perspective rows of one played match.
func seedMatch(t *testing.T, db *database.DB, home, away *models.Team, hg, ag, daysAgo int) {
	t.Helper()
	date := testToday.AddDate(0, 0, -daysAgo)
	key := fmt.Sprintf("%s:%d:%d", date.Format("20060102"), home.ID, away.ID)

	rows := []models.Game{
		{
			MatchKey: key, TeamID: home.ID, OpponentID: away.ID, GameDate: date,
			AgeGroup: home.AgeGroup, Gender: home.Gender,
			OpponentAgeGroup: away.AgeGroup, OpponentGender: away.Gender,
			GoalsFor: hg, GoalsAgainst: ag, IsHome: true,
			TeamState: home.State, OpponentState: away.State, Provider: "gotsport",
		},
		{
			MatchKey: key, TeamID: away.ID, OpponentID: home.ID, GameDate: date,
			AgeGroup: away.AgeGroup, Gender: away.Gender,
			OpponentAgeGroup: home.AgeGroup, OpponentGender: home.Gender,
			GoalsFor: ag, GoalsAgainst: hg, IsHome: false,
			TeamState: away.State, OpponentState: home.State, Provider: "gotsport",
		},
	}
	require.NoError(t, db.Create(&rows).Error)
}

// seedCohort creates n teams in one cohort with a round robin of results so
// every team has a sample. Returns the teams in creation order.
func seedCohort(t *testing.T, db *database.DB, n, age int, gender string) []*models.Team {
	t.Helper()
	teams := make([]*models.Team, n)
	for i := range teams {
		teams[i] = seedTeam(t, db, fmt.Sprintf("U%d%s Team %d", age, gender, i+1), "TX", age, gender)
	}

	ago := 10
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			// Lower-indexed teams beat higher-indexed ones by a goal or two.
			seedMatch(t, db, teams[i], teams[j], 2+(j-i)%2, 1, ago)
			ago += 3
		}
	}
	return teams
}
