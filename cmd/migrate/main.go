package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/config"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down|seed]")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := runMigrations(db); err != nil {
			logrus.Fatalf("Failed to run migrations: %v", err)
		}
		logrus.Info("Migrations completed successfully")

	case "down":
		if err := dropTables(db); err != nil {
			logrus.Fatalf("Failed to drop tables: %v", err)
		}
		logrus.Info("Tables dropped successfully")

	case "seed":
		if err := seedData(db); err != nil {
			logrus.Fatalf("Failed to seed data: %v", err)
		}
		logrus.Info("Data seeded successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}

func runMigrations(db *database.DB) error {
	// Auto migrate all models
	if err := db.AutoMigrate(
		&models.Team{},
		&models.Game{},
		&models.TeamRating{},
		&models.RankSnapshot{},
		&models.RatingRun{},
		&models.AlertSubscription{},
	); err != nil {
		return fmt.Errorf("failed to migrate models: %w", err)
	}

	// Create indexes
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_games_cohort_date ON games(age_group, gender, game_date)",
		"CREATE INDEX IF NOT EXISTS idx_games_provider_date ON games(provider, game_date)",
		"CREATE INDEX IF NOT EXISTS idx_ratings_cohort_rank ON team_ratings(age_group, gender, rank_in_cohort)",
		"CREATE INDEX IF NOT EXISTS idx_snapshots_team_recent ON rank_snapshots(team_id, snapshot_date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_runs_started ON rating_runs(started_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_alerts_phone_team ON alert_subscriptions(phone, team_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

func dropTables(db *database.DB) error {
	// Drop tables in reverse order to handle foreign key constraints
	tables := []string{
		"alert_subscriptions",
		"rating_runs",
		"rank_snapshots",
		"team_ratings",
		"games",
		"teams",
	}

	for _, table := range tables {
		if err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s CASCADE", table)).Error; err != nil {
			return fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	return nil
}

func seedData(db *database.DB) error {
	teams := []models.Team{
		{ExternalID: "gs_1001", Name: "Dallas Texans 14B Red", Club: "Dallas Texans", State: "TX", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_1002", Name: "Solar SC 14B Navy", Club: "Solar SC", State: "TX", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_1003", Name: "FC Dallas Youth 14B", Club: "FC Dallas Youth", State: "TX", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_1004", Name: "Classics Elite 14B", Club: "Classics Elite", State: "TX", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_1005", Name: "OKC Energy 14B", Club: "OKC Energy", State: "OK", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_1006", Name: "Tulsa SC 14B Gold", Club: "Tulsa SC", State: "OK", AgeGroup: 14, Gender: "M"},
		{ExternalID: "gs_2001", Name: "Sting Dallas 12G Black", Club: "Sting", State: "TX", AgeGroup: 12, Gender: "F"},
		{ExternalID: "gs_2002", Name: "D'Feeters 12G", Club: "D'Feeters", State: "TX", AgeGroup: 12, Gender: "F"},
		{ExternalID: "gs_2003", Name: "Renegades SC 12G", Club: "Renegades SC", State: "TX", AgeGroup: 12, Gender: "F"},
		{ExternalID: "gs_2004", Name: "Little Rock Rangers 12G", Club: "Little Rock Rangers", State: "AR", AgeGroup: 12, Gender: "F"},
	}

	if err := db.Create(&teams).Error; err != nil {
		return fmt.Errorf("failed to create teams: %w", err)
	}

	// Matches, listed once each from the home side. Both perspective rows
	// are derived below.
	type match struct {
		daysAgo    int
		home, away int // index into teams
		hg, ag     int
	}
	matches := []match{
		{120, 0, 1, 2, 1},
		{113, 1, 2, 0, 0},
		{106, 2, 3, 3, 1},
		{99, 3, 0, 1, 4},
		{92, 4, 5, 2, 2},
		{85, 0, 4, 3, 0}, // cross-state
		{78, 5, 1, 1, 2}, // cross-state
		{71, 2, 0, 1, 1},
		{64, 3, 5, 0, 2}, // cross-state
		{57, 1, 3, 2, 0},
		{50, 4, 2, 1, 3}, // cross-state
		{43, 0, 3, 2, 0},
		{36, 5, 4, 0, 1},
		{29, 1, 0, 1, 3},
		{22, 2, 5, 4, 0}, // cross-state
		{15, 3, 4, 1, 1}, // cross-state
		{110, 6, 7, 1, 0},
		{95, 7, 8, 2, 2},
		{80, 8, 6, 0, 3},
		{65, 6, 9, 2, 1}, // cross-state
		{48, 9, 7, 1, 1}, // cross-state
		{33, 8, 9, 2, 0}, // cross-state
		{18, 7, 6, 0, 1},
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	games := make([]models.Game, 0, len(matches)*2)
	for _, m := range matches {
		home, away := teams[m.home], teams[m.away]
		date := now.AddDate(0, 0, -m.daysAgo)
		key := fmt.Sprintf("%s:%s:%s", date.Format("20060102"), home.ExternalID, away.ExternalID)

		games = append(games, models.Game{
			MatchKey: key, TeamID: home.ID, OpponentID: away.ID, GameDate: date,
			AgeGroup: home.AgeGroup, Gender: home.Gender,
			OpponentAgeGroup: away.AgeGroup, OpponentGender: away.Gender,
			GoalsFor: m.hg, GoalsAgainst: m.ag, IsHome: true,
			TeamState: home.State, OpponentState: away.State, Provider: "gotsport",
		})
		games = append(games, models.Game{
			MatchKey: key, TeamID: away.ID, OpponentID: home.ID, GameDate: date,
			AgeGroup: away.AgeGroup, Gender: away.Gender,
			OpponentAgeGroup: home.AgeGroup, OpponentGender: home.Gender,
			GoalsFor: m.ag, GoalsAgainst: m.hg, IsHome: false,
			TeamState: away.State, OpponentState: home.State, Provider: "gotsport",
		})
	}

	if err := db.Create(&games).Error; err != nil {
		return fmt.Errorf("failed to create games: %w", err)
	}

	logrus.Infof("Seeded %d teams and %d game rows", len(teams), len(games))
	return nil
}
