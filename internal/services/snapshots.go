package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/rating"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

// SnapshotService maintains the daily rank history: one row per team per
// calendar day, a tolerant "N days ago" lookup, and retention pruning.
type SnapshotService struct {
	db            *database.DB
	toleranceDays int
	retentionDays int
	batchSize     int
}

func NewSnapshotService(db *database.DB, toleranceDays, retentionDays, batchSize int) *SnapshotService {
	if batchSize < 1 {
		batchSize = 500
	}
	return &SnapshotService{
		db:            db,
		toleranceDays: toleranceDays,
		retentionDays: retentionDays,
		batchSize:     batchSize,
	}
}

// Record upserts one snapshot per rated team for the given calendar day.
// A same-day rerun overwrites the earlier capture instead of stacking rows.
func (s *SnapshotService) Record(ctx context.Context, table *rating.Table, day time.Time) error {
	if table == nil || len(table.Teams) == 0 {
		return nil
	}
	day = DateOnly(day)

	rows := make([]models.RankSnapshot, 0, len(table.Teams))
	for _, st := range table.Teams {
		rows = append(rows, models.RankSnapshot{
			TeamID:         st.TeamID,
			SnapshotDate:   day,
			AgeGroup:       st.AgeGroup,
			Gender:         st.Gender,
			RankInCohort:   st.RankInCohort,
			RankInCohortML: st.RankInCohortML,
			PowerScore:     st.PowerAdjusted,
			PowerScoreML:   st.PowerML,
		})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}, {Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"age_group", "gender", "rank_in_cohort", "rank_in_cohort_ml",
			"power_score", "power_score_ml", "updated_at",
		}),
	}).CreateInBatches(rows, s.batchSize).Error
	if err != nil {
		return fmt.Errorf("failed to record snapshots: %w", err)
	}
	return nil
}

// RankChanges computes historicalRank - currentRank for every team in the
// cohort, looking daysAgo back. Snapshots within the tolerance window
// qualify; the one nearest the target date wins, preferring the more recent
// on a tie. Teams with nothing in tolerance are absent from the result.
func (s *SnapshotService) RankChanges(ctx context.Context, ageGroup int, gender string, asOf time.Time, daysAgo int, currentRanks map[uint]int) (map[uint]int, error) {
	target := DateOnly(asOf).AddDate(0, 0, -daysAgo)
	lo := target.AddDate(0, 0, -s.toleranceDays)
	hi := target.AddDate(0, 0, s.toleranceDays)

	var snaps []models.RankSnapshot
	err := s.db.WithContext(ctx).
		Where("age_group = ? AND gender = ? AND snapshot_date BETWEEN ? AND ?", ageGroup, gender, lo, hi).
		Order("snapshot_date ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshots: %w", err)
	}

	nearest := make(map[uint]models.RankSnapshot)
	for _, snap := range snaps {
		cur, ok := nearest[snap.TeamID]
		if !ok || closerToTarget(snap.SnapshotDate, cur.SnapshotDate, target) {
			nearest[snap.TeamID] = snap
		}
	}

	changes := make(map[uint]int)
	for teamID, snap := range nearest {
		currentRank, ok := currentRanks[teamID]
		if !ok {
			continue
		}
		changes[teamID] = snap.RankInCohort - currentRank
	}
	return changes, nil
}

// closerToTarget reports whether candidate beats incumbent for the target
// date. Equal distance resolves to the more recent snapshot.
func closerToTarget(candidate, incumbent, target time.Time) bool {
	cd := absDuration(candidate.Sub(target))
	id := absDuration(incumbent.Sub(target))
	if cd != id {
		return cd < id
	}
	return candidate.After(incumbent)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// History returns a team's snapshot series over the trailing window, oldest
// first.
func (s *SnapshotService) History(ctx context.Context, teamID uint, days int, asOf time.Time) ([]models.RankSnapshot, error) {
	cutoff := DateOnly(asOf).AddDate(0, 0, -days)

	var snaps []models.RankSnapshot
	err := s.db.WithContext(ctx).
		Where("team_id = ? AND snapshot_date >= ?", teamID, cutoff).
		Order("snapshot_date ASC").
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}
	return snaps, nil
}

// Purge deletes snapshots older than the retention horizon and returns the
// number of rows removed.
func (s *SnapshotService) Purge(ctx context.Context, asOf time.Time) (int64, error) {
	cutoff := DateOnly(asOf).AddDate(0, 0, -s.retentionDays)

	result := s.db.WithContext(ctx).
		Where("snapshot_date < ?", cutoff).
		Delete(&models.RankSnapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge snapshots: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		logrus.Infof("Purged %d rank snapshots older than %s", result.RowsAffected, cutoff.Format("2006-01-02"))
	}
	return result.RowsAffected, nil
}

// DateOnly truncates a timestamp to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
