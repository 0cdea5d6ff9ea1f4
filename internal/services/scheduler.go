package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// SchedulerService drives the nightly rating run and the snapshot retention
// purge off cron schedules.
type SchedulerService struct {
	ranking   *RankingService
	snapshots *SnapshotService
	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool

	runSchedule   string
	pruneSchedule string
}

func NewSchedulerService(ranking *RankingService, snapshots *SnapshotService, runSchedule, pruneSchedule string) *SchedulerService {
	return &SchedulerService{
		ranking:       ranking,
		snapshots:     snapshots,
		cron:          cron.New(),
		runSchedule:   runSchedule,
		pruneSchedule: pruneSchedule,
	}
}

// Start registers the scheduled jobs and begins the cron loop.
func (s *SchedulerService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if _, err := s.cron.AddFunc(s.runSchedule, s.nightlyRun); err != nil {
		return fmt.Errorf("failed to schedule rating run: %w", err)
	}
	if _, err := s.cron.AddFunc(s.pruneSchedule, s.purgeSnapshots); err != nil {
		return fmt.Errorf("failed to schedule snapshot purge: %w", err)
	}

	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started (run %q, prune %q)", s.runSchedule, s.pruneSchedule)
	return nil
}

// Stop halts the cron loop, waiting for any in-flight job to finish.
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	logrus.Info("Scheduler stopped")
}

func (s *SchedulerService) nightlyRun() {
	logrus.Info("Scheduled rating run starting")
	if _, err := s.ranking.RunOnce(context.Background(), time.Now().UTC(), false); err != nil {
		logrus.Errorf("Scheduled rating run failed: %v", err)
	}
}

func (s *SchedulerService) purgeSnapshots() {
	if _, err := s.snapshots.Purge(context.Background(), time.Now().UTC()); err != nil {
		logrus.Errorf("Scheduled snapshot purge failed: %v", err)
	}
}

// GetStatus reports the scheduler state and upcoming job times.
func (s *SchedulerService) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	nextRuns := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		nextRuns = append(nextRuns, entry.Next)
	}

	return map[string]interface{}{
		"is_running":     s.isRunning,
		"run_schedule":   s.runSchedule,
		"prune_schedule": s.pruneSchedule,
		"next_runs":      nextRuns,
		"cron_jobs":      len(entries),
	}
}
