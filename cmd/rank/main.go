package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dallasheidt14/PitchRank-sub001/internal/services"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/config"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

// One-shot rating run against the configured database. Used for backfills
// and local experiments; the server's scheduler covers the nightly case.
func main() {
	var (
		dateStr = flag.String("date", "", "rating date as YYYY-MM-DD (default today, UTC)")
		force   = flag.Bool("force", false, "recompute all cohorts, bypassing the stage cache")
		dbURL   = flag.String("db", "", "database URL override, e.g. sqlite://pitchrank.db")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	today := time.Now().UTC()
	if *dateStr != "" {
		today, err = time.Parse("2006-01-02", *dateStr)
		if err != nil {
			logrus.Fatalf("Invalid -date %q: %v", *dateStr, err)
		}
	}

	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	engineCfg, err := services.EngineConfigFrom(cfg)
	if err != nil {
		logrus.Fatalf("Invalid rating configuration: %v", err)
	}

	// No redis, websocket or SMS in batch mode; those concerns belong to the
	// server process.
	snapshots := services.NewSnapshotService(db, cfg.SnapshotToleranceDays, cfg.SnapshotRetentionDays, cfg.StoreBatchSize)
	ranking := services.NewRankingService(db, nil, nil, nil, snapshots, cfg, engineCfg)

	run, err := ranking.RunOnce(context.Background(), today, *force)
	if err != nil {
		logrus.Fatalf("Rating run failed: %v", err)
	}

	logrus.WithFields(logrus.Fields{
		"run_id":  run.ID,
		"status":  run.Status,
		"cohorts": run.Cohorts,
		"teams":   run.TeamsRanked,
		"games":   run.GamesLoaded,
	}).Info("Rating run finished")
}
