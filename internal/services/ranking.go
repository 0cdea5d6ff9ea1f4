package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm/clause"

	"github.com/dallasheidt14/PitchRank-sub001/internal/models"
	"github.com/dallasheidt14/PitchRank-sub001/internal/rating"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/config"
	"github.com/dallasheidt14/PitchRank-sub001/pkg/database"
)

const (
	gameBatchSize = 1000
	stageCacheTTL = 48 * time.Hour
)

// RankingService orchestrates a full rating run: load the game window,
// rate every cohort, persist ratings and snapshots, and fan out
// notifications. Cache, hub and alerts are optional; a nil service simply
// disables that concern.
type RankingService struct {
	db        *database.DB
	cache     *CacheService
	hub       *WebSocketHub
	alerts    *AlertService
	snapshots *SnapshotService
	cfg       *config.Config
	engineCfg *rating.Config
	breaker   *gobreaker.CircuitBreaker

	mu      sync.Mutex
	running bool
}

func NewRankingService(
	db *database.DB,
	cache *CacheService,
	hub *WebSocketHub,
	alerts *AlertService,
	snapshots *SnapshotService,
	cfg *config.Config,
	engineCfg *rating.Config,
) *RankingService {
	settings := gobreaker.Settings{
		Name:    "rating-store",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &RankingService{
		db:        db,
		cache:     cache,
		hub:       hub,
		alerts:    alerts,
		snapshots: snapshots,
		cfg:       cfg,
		engineCfg: engineCfg,
		breaker:   gobreaker.NewCircuitBreaker(settings),
	}
}

// EngineConfigFrom translates the flat env surface into engine tunables and
// validates them. A bad value is fatal at startup, not at run time.
func EngineConfigFrom(cfg *config.Config) (*rating.Config, error) {
	anchors, err := cfg.ParseAgeAnchors()
	if err != nil {
		return nil, fmt.Errorf("invalid AGE_ANCHORS: %w", err)
	}

	ec := &rating.Config{
		WindowDays:       cfg.WindowDays,
		MaxGamesForRank:  cfg.MaxGamesForRank,
		RecencyDecayRate: cfg.RecencyDecayRate,

		AdaptK:                cfg.AdaptK,
		SOSRepeatCap:          cfg.SOSRepeatCap,
		SOSIterations:         cfg.SOSIterations,
		SOSTransitivityLambda: cfg.SOSTransitivityLambda,
		UnrankedSOSBase:       cfg.UnrankedSOSBase,
		MinBridgeGames:        cfg.MinBridgeGames,
		PageRankAlpha:         cfg.PageRankAlpha,
		DampeningEnabled:      cfg.PageRankDampening,
		DiversityDivisor:      cfg.DiversityDivisor,
		ComponentMinSize:      cfg.ComponentMinSize,

		OffenseWeight:       cfg.OffWeight,
		DefenseWeight:       cfg.DefWeight,
		SOSWeight:           cfg.SOSWeight,
		PerfBlendWeight:     cfg.PerfBlendWeight,
		ShrinkagePriorGames: cfg.ShrinkagePriorGames,
		NormMode:            cfg.NormMode,
		ProvisionalGames:    cfg.ProvisionalGames,
		ProvisionalFloor:    cfg.ProvisionalFloor,
		AgeAnchors:          anchors,

		MLEnabled:               cfg.MLEnabled,
		MLModel:                 cfg.MLModel,
		MLAlpha:                 cfg.MLAlpha,
		MLRecencyLambda:         cfg.MLRecencyLambda,
		MinTeamGamesForResidual: cfg.MinTeamGamesForResidual,
		ResidualClipGoals:       cfg.ResidualClipGoals,
		MinTrainingRows:         cfg.MinTrainingRows,
		TrainingHoldoutDays:     cfg.TrainingHoldoutDays,
		MLSeed:                  cfg.MLSeed,
	}
	if err := ec.Validate(); err != nil {
		return nil, err
	}
	return ec, nil
}

type cohortSummary struct {
	Cohort       string  `json:"cohort"`
	Teams        int     `json:"teams"`
	Components   int     `json:"components"`
	SkippedGames int     `json:"skipped_games"`
	CacheHit     bool    `json:"cache_hit"`
	MLApplied    bool    `json:"ml_applied"`
	MLModel      string  `json:"ml_model,omitempty"`
	TrainingRows int     `json:"training_rows"`
	TrainMAE     float64 `json:"train_mae,omitempty"`
	Movers       int     `json:"movers"`
}

type runSummary struct {
	Cohorts      []cohortSummary `json:"cohorts"`
	AlertsSent   int             `json:"alerts_sent"`
	AlertsFailed int             `json:"alerts_failed,omitempty"`
	DurationMS   int64           `json:"duration_ms"`
}

// cohortCore is the stage-cache payload: everything the deterministic
// pre-residual stages produced. The residual layer is recomputed on every
// run and never cached.
type cohortCore struct {
	Stats        []rating.TeamStat `json:"stats"`
	Components   int               `json:"components"`
	SkippedGames int               `json:"skipped_games"`
}

type cohortOutcome struct {
	key      rating.CohortKey
	table    *rating.Table
	cacheHit bool
}

// IsRunning reports whether a run is currently in flight.
func (s *RankingService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunOnce executes one rating run against the given date. Only one run may
// be in flight at a time; a second call returns an error instead of piling
// up work.
func (s *RankingService) RunOnce(ctx context.Context, today time.Time, force bool) (*models.RatingRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("a rating run is already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	today = DateOnly(today)
	run := &models.RatingRun{
		ID:        uuid.NewString(),
		Status:    models.RunStatusRunning,
		Today:     today,
		Forced:    force,
		MLEnabled: s.engineCfg.MLEnabled,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create run record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"run_id": run.ID,
		"today":  today.Format("2006-01-02"),
		"forced": force,
	}).Info("Rating run started")
	s.broadcastRun(EventRunStarted, run)

	summary, runErr := s.execute(ctx, run, today, force)

	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
		if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
			logrus.Errorf("Failed to persist failed run %s: %v", run.ID, err)
		}
		logrus.Errorf("Rating run %s failed: %v", run.ID, runErr)
		s.broadcastRun(EventRunFailed, run)
		return run, runErr
	}

	summary.DurationMS = run.Duration().Milliseconds()
	if data, err := json.Marshal(summary); err == nil {
		run.Summary = datatypes.JSON(data)
	}
	run.Status = models.RunStatusCompleted
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		logrus.Errorf("Failed to persist run %s: %v", run.ID, err)
	}

	logrus.WithFields(logrus.Fields{
		"run_id":         run.ID,
		"cohorts":        run.Cohorts,
		"teams_ranked":   run.TeamsRanked,
		"games_loaded":   run.GamesLoaded,
		"games_skipped":  run.GamesSkipped,
		"batches_failed": run.BatchesFailed,
		"duration":       run.Duration().String(),
	}).Info("Rating run completed")
	s.broadcastRun(EventRunCompleted, run)

	return run, nil
}

func (s *RankingService) execute(ctx context.Context, run *models.RatingRun, today time.Time, force bool) (*runSummary, error) {
	games, err := s.loadWindowGames(ctx, today)
	if err != nil {
		return nil, err
	}
	run.GamesLoaded = len(games)

	engineGames := toEngineGames(games)
	groups := rating.GroupByCohort(engineGames)
	keys := make([]rating.CohortKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].AgeGroup != keys[j].AgeGroup {
			return keys[i].AgeGroup < keys[j].AgeGroup
		}
		return keys[i].Gender < keys[j].Gender
	})
	run.Cohorts = len(keys)

	outcomes := s.rateCohorts(ctx, keys, groups, today, force)

	summary := &runSummary{Cohorts: make([]cohortSummary, 0, len(outcomes))}
	var movers []RankMover
	for _, outcome := range outcomes {
		table := outcome.table
		run.GamesSkipped += table.SkippedGames
		if len(table.Teams) == 0 {
			continue
		}

		cohortMovers, failedBatches := s.persistCohort(ctx, run, table, today)
		run.TeamsRanked += len(table.Teams)
		run.BatchesFailed += failedBatches
		movers = append(movers, cohortMovers...)

		summary.Cohorts = append(summary.Cohorts, cohortSummary{
			Cohort:       outcome.key.String(),
			Teams:        len(table.Teams),
			Components:   table.Components,
			SkippedGames: table.SkippedGames,
			CacheHit:     outcome.cacheHit,
			MLApplied:    table.Residuals.Applied,
			MLModel:      table.Residuals.Model,
			TrainingRows: table.Residuals.TrainingRows,
			TrainMAE:     table.Residuals.TrainMAE,
			Movers:       len(cohortMovers),
		})
	}

	if s.alerts != nil {
		summary.AlertsSent, summary.AlertsFailed = s.alerts.DispatchMovers(ctx, movers)
	}

	return summary, nil
}

// rateCohorts fans the cohorts out over RatingWorkers goroutines. Results
// land in key order, so the sequential persistence pass below is
// deterministic no matter which worker finished first.
func (s *RankingService) rateCohorts(ctx context.Context, keys []rating.CohortKey, groups map[rating.CohortKey][]rating.Game, today time.Time, force bool) []cohortOutcome {
	workers := s.cfg.RatingWorkers
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]cohortOutcome, len(keys))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				key := keys[idx]
				table, cacheHit := s.rateCohort(ctx, key, groups[key], today, force)
				outcomes[idx] = cohortOutcome{key: key, table: table, cacheHit: cacheHit}
			}
		}()
	}
	for idx := range keys {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// rateCohort rates one cohort, going through the stage cache when allowed.
// The cached payload covers the deterministic pre-residual stages; the
// residual layer always runs fresh because its leakage cutoff follows the
// run date.
func (s *RankingService) rateCohort(ctx context.Context, key rating.CohortKey, games []rating.Game, today time.Time, force bool) (*rating.Table, bool) {
	windowStart := today.AddDate(0, 0, -s.engineCfg.WindowDays)
	matchKeys := make([]string, 0, len(games))
	for i := range games {
		matchKeys = append(matchKeys, games[i].MatchKey)
	}
	fingerprint := StageFingerprint(matchKeys, windowStart, today, s.cfg.ProviderFilter, s.engineCfg)
	cacheKey := StageCacheKey(key.AgeGroup, key.Gender, fingerprint)

	var core cohortCore
	cacheHit := false
	if !force && s.cache != nil {
		if err := s.cache.Get(ctx, cacheKey, &core); err == nil && len(core.Stats) > 0 {
			cacheHit = true
			logrus.Debugf("Stage cache hit for cohort %s", key)
		}
	}

	if !cacheHit {
		stats, skipped := rating.Aggregate(games, today, s.engineCfg)
		stats = rating.Normalize(stats, s.engineCfg)
		stats, components := rating.ComputeSOS(stats, today, s.engineCfg)
		stats = rating.Compose(stats, s.engineCfg)
		core = cohortCore{Stats: stats, Components: components, SkippedGames: skipped}

		if s.cache != nil && len(stats) > 0 {
			if err := s.cache.SetWithRetry(ctx, cacheKey, core, stageCacheTTL, 3); err != nil {
				logrus.Warnf("Stage cache write failed for cohort %s: %v", key, err)
			}
		}
	} else {
		// The serialized stats carry no game samples; rebuild the capped
		// per-team selection so the residual layer has its inputs.
		attachGames(core.Stats, games, today, s.engineCfg)
	}

	stats, gameResiduals, report := rating.ApplyResidualBoost(core.Stats, s.engineCfg)

	table := &rating.Table{
		AgeGroup:      key.AgeGroup,
		Gender:        key.Gender,
		AsOf:          today,
		Teams:         stats,
		Components:    core.Components,
		SkippedGames:  core.SkippedGames,
		Residuals:     report,
		GameResiduals: gameResiduals,
	}
	return table, cacheHit
}

// attachGames re-runs the aggregation stage's sample selection and grafts
// the games onto cached stats by team id.
func attachGames(stats []rating.TeamStat, games []rating.Game, today time.Time, cfg *rating.Config) {
	fresh, _ := rating.Aggregate(games, today, cfg)
	byTeam := make(map[uint][]rating.Game, len(fresh))
	for i := range fresh {
		byTeam[fresh[i].TeamID] = fresh[i].Games
	}
	for i := range stats {
		stats[i].Games = byTeam[stats[i].TeamID]
	}
}

// loadWindowGames reads the rating window in id-ordered batches behind a
// rate limiter so a large backfill cannot saturate the database.
func (s *RankingService) loadWindowGames(ctx context.Context, today time.Time) ([]models.Game, error) {
	cutoff := today.AddDate(0, 0, -s.engineCfg.WindowDays)
	upper := today.AddDate(0, 0, 1)

	fetchRate := s.cfg.GameFetchRate
	if fetchRate <= 0 {
		fetchRate = 10
	}
	limiter := rate.NewLimiter(rate.Limit(fetchRate), 1)

	var out []models.Game
	lastID := uint(0)
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("game load interrupted: %w", err)
		}

		query := s.db.WithContext(ctx).
			Where("game_date >= ? AND game_date < ? AND id > ?", cutoff, upper, lastID)
		if s.cfg.ProviderFilter != "" {
			query = query.Where("provider = ?", s.cfg.ProviderFilter)
		}

		var batch []models.Game
		if err := query.Order("id ASC").Limit(gameBatchSize).Find(&batch).Error; err != nil {
			return nil, fmt.Errorf("failed to load games: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		out = append(out, batch...)
		lastID = batch[len(batch)-1].ID
		if len(batch) < gameBatchSize {
			break
		}
	}

	logrus.Infof("Loaded %d games in window %s .. %s", len(out), cutoff.Format("2006-01-02"), today.Format("2006-01-02"))
	return out, nil
}

// toEngineGames converts persisted rows to engine rows. Game dates collapse
// to calendar days; kickoff times never influence ratings.
func toEngineGames(games []models.Game) []rating.Game {
	out := make([]rating.Game, 0, len(games))
	for i := range games {
		g := &games[i]
		out = append(out, rating.Game{
			MatchKey:         g.MatchKey,
			TeamID:           g.TeamID,
			OpponentID:       g.OpponentID,
			Date:             DateOnly(g.GameDate),
			AgeGroup:         g.AgeGroup,
			Gender:           g.Gender,
			OpponentAgeGroup: g.OpponentAgeGroup,
			OpponentGender:   g.OpponentGender,
			GoalsFor:         g.GoalsFor,
			GoalsAgainst:     g.GoalsAgainst,
			IsHome:           g.IsHome,
			TeamState:        g.TeamState,
			OpponentState:    g.OpponentState,
		})
	}
	return out
}

// persistCohort writes one cohort's ratings and snapshot, computes rank
// movement, and invalidates read caches. Returns the movers relative to the
// previous run and the number of failed store batches.
func (s *RankingService) persistCohort(ctx context.Context, run *models.RatingRun, table *rating.Table, today time.Time) ([]RankMover, int) {
	failedBatches := 0

	prevRanks := s.previousRanks(ctx, table.AgeGroup, table.Gender)

	currentRanks := make(map[uint]int, len(table.Teams))
	for i := range table.Teams {
		currentRanks[table.Teams[i].TeamID] = table.Teams[i].RankInCohort
	}

	changes7 := s.rankChanges(ctx, table, today, 7, currentRanks)
	changes30 := s.rankChanges(ctx, table, today, 30, currentRanks)

	now := time.Now().UTC()
	rows := buildRatingRows(table, run.ID, changes7, changes30, now)

	for start := 0; start < len(rows); start += s.storeBatchSize() {
		end := start + s.storeBatchSize()
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.storeRatingBatch(ctx, rows[start:end]); err != nil {
			logrus.Errorf("Failed to store rating batch for cohort U%d%s rows %d-%d: %v",
				table.AgeGroup, table.Gender, start, end-1, err)
			failedBatches++
		}
	}

	if s.snapshots != nil {
		if err := s.snapshots.Record(ctx, table, today); err != nil {
			logrus.Errorf("Failed to record snapshots for cohort U%d%s: %v", table.AgeGroup, table.Gender, err)
			failedBatches++
		}
	}

	movers := s.collectMovers(ctx, table, prevRanks)

	s.invalidateCohortCaches(ctx, table.AgeGroup, table.Gender)
	if s.hub != nil {
		key := rating.CohortKey{AgeGroup: table.AgeGroup, Gender: table.Gender}
		s.hub.BroadcastToTopic(key.String(), EventRankingsUpdated, map[string]interface{}{
			"cohort": key.String(),
			"teams":  len(table.Teams),
			"run_id": run.ID,
		})
	}

	return movers, failedBatches
}

func (s *RankingService) storeBatchSize() int {
	if s.cfg.StoreBatchSize > 0 {
		return s.cfg.StoreBatchSize
	}
	return 500
}

// storeRatingBatch upserts one batch with exponential backoff, each attempt
// running through the circuit breaker. An open breaker fails the batch
// immediately so a dead database does not stall the whole run on retries.
func (s *RankingService) storeRatingBatch(ctx context.Context, rows []models.TeamRating) error {
	maxAttempts := s.cfg.StoreMaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 100 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		_, lastErr = s.breaker.Execute(func() (interface{}, error) {
			return nil, s.upsertRatings(ctx, rows)
		})
		if lastErr == nil {
			return nil
		}
		if lastErr == gobreaker.ErrOpenState || lastErr == gobreaker.ErrTooManyRequests {
			return lastErr
		}
		logrus.Warnf("Rating batch store failed (attempt %d/%d): %v", attempt+1, maxAttempts, lastErr)
	}
	return lastErr
}

func (s *RankingService) upsertRatings(ctx context.Context, rows []models.TeamRating) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "team_id"}, {Name: "age_group"}, {Name: "gender"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"run_id", "games_played", "games_last180", "win_pct",
			"offense_raw", "defense_raw", "offense_shrunk", "defense_shrunk",
			"offense_norm", "defense_norm",
			"sos_raw", "sos_norm", "connectivity", "bridge_games",
			"component_id", "component_size", "opp_states",
			"power_core", "power_adjusted", "power_ml",
			"rank_in_cohort", "rank_in_cohort_ml", "rank_change7d", "rank_change30d",
			"sample_flag", "computed_at", "updated_at",
		}),
	}).Create(&rows).Error
}

func buildRatingRows(table *rating.Table, runID string, changes7, changes30 map[uint]int, now time.Time) []models.TeamRating {
	rows := make([]models.TeamRating, 0, len(table.Teams))
	for i := range table.Teams {
		st := &table.Teams[i]
		row := models.TeamRating{
			TeamID:   st.TeamID,
			AgeGroup: st.AgeGroup,
			Gender:   st.Gender,
			RunID:    runID,

			GamesPlayed:  st.GamesPlayed,
			GamesLast180: st.GamesLast180,
			WinPct:       st.WinPct,

			OffenseRaw:    st.OffenseRaw,
			DefenseRaw:    st.DefenseRaw,
			OffenseShrunk: st.OffenseShrunk,
			DefenseShrunk: st.DefenseShrunk,
			OffenseNorm:   st.OffenseNorm,
			DefenseNorm:   st.DefenseNorm,

			SOSRaw:        st.SOSRaw,
			SOSNorm:       st.SOSNorm,
			Connectivity:  st.Connectivity,
			BridgeGames:   st.BridgeGames,
			ComponentID:   st.ComponentID,
			ComponentSize: st.ComponentSize,
			OppStates:     pq.StringArray(st.OppStates),

			PowerCore:     st.PowerCore,
			PowerAdjusted: st.PowerAdjusted,
			PowerML:       st.PowerML,

			RankInCohort:   st.RankInCohort,
			RankInCohortML: st.RankInCohortML,

			SampleFlag: st.SampleFlag,
			ComputedAt: now,
		}
		if delta, ok := changes7[st.TeamID]; ok {
			d := delta
			row.RankChange7d = &d
		}
		if delta, ok := changes30[st.TeamID]; ok {
			d := delta
			row.RankChange30d = &d
		}
		rows = append(rows, row)
	}
	return rows
}

func (s *RankingService) previousRanks(ctx context.Context, ageGroup int, gender string) map[uint]int {
	var prior []models.TeamRating
	err := s.db.WithContext(ctx).
		Select("team_id", "rank_in_cohort").
		Where("age_group = ? AND gender = ?", ageGroup, gender).
		Find(&prior).Error
	if err != nil {
		logrus.Warnf("Failed to load previous ranks for cohort U%d%s: %v", ageGroup, gender, err)
		return nil
	}

	ranks := make(map[uint]int, len(prior))
	for _, r := range prior {
		ranks[r.TeamID] = r.RankInCohort
	}
	return ranks
}

func (s *RankingService) rankChanges(ctx context.Context, table *rating.Table, today time.Time, daysAgo int, currentRanks map[uint]int) map[uint]int {
	if s.snapshots == nil {
		return nil
	}
	changes, err := s.snapshots.RankChanges(ctx, table.AgeGroup, table.Gender, today, daysAgo, currentRanks)
	if err != nil {
		logrus.Warnf("Failed to compute %dd rank changes for cohort U%d%s: %v", daysAgo, table.AgeGroup, table.Gender, err)
		return nil
	}
	return changes
}

// collectMovers compares the new table against the previous run's ranks.
// Teams without a prior rank are new entries, not movers.
func (s *RankingService) collectMovers(ctx context.Context, table *rating.Table, prevRanks map[uint]int) []RankMover {
	if len(prevRanks) == 0 {
		return nil
	}

	var moved []RankMover
	for i := range table.Teams {
		st := &table.Teams[i]
		oldRank, ok := prevRanks[st.TeamID]
		if !ok || oldRank == st.RankInCohort {
			continue
		}
		moved = append(moved, RankMover{
			TeamID:   st.TeamID,
			AgeGroup: st.AgeGroup,
			Gender:   st.Gender,
			OldRank:  oldRank,
			NewRank:  st.RankInCohort,
		})
	}
	if len(moved) == 0 {
		return nil
	}

	ids := make([]uint, 0, len(moved))
	for _, m := range moved {
		ids = append(ids, m.TeamID)
	}
	var teams []models.Team
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&teams).Error; err != nil {
		logrus.Warnf("Failed to load mover team names: %v", err)
	}
	names := make(map[uint]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}
	for i := range moved {
		moved[i].TeamName = names[moved[i].TeamID]
	}
	return moved
}

func (s *RankingService) invalidateCohortCaches(ctx context.Context, ageGroup int, gender string) {
	if s.cache == nil {
		return
	}
	keys := []string{
		RankingsCacheKey(ageGroup, gender),
		MoversCacheKey(ageGroup, gender, 7),
		MoversCacheKey(ageGroup, gender, 30),
		LatestRunCacheKey(),
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logrus.Warnf("Failed to invalidate cohort caches: %v", err)
	}
}

func (s *RankingService) broadcastRun(event string, run *models.RatingRun) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastToTopic(TopicRuns, event, map[string]interface{}{
		"run_id":       run.ID,
		"status":       run.Status,
		"today":        run.Today.Format("2006-01-02"),
		"forced":       run.Forced,
		"teams_ranked": run.TeamsRanked,
		"cohorts":      run.Cohorts,
	})
}
