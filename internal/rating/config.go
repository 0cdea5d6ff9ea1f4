package rating

import (
	"fmt"
	"math"
	"sort"
)

// Normalization modes.
const (
	NormPercentile = "percentile"
	NormZScore     = "zscore"
)

// Residual models.
const (
	ModelGBM    = "gbm"
	ModelForest = "forest"
)

// Config holds every engine tunable. It is loaded once per run, passed by
// pointer to each stage and never mutated; the JSON form doubles as the
// config fingerprint for stage caching.
type Config struct {
	// Window and recency
	WindowDays       int     `json:"window_days"`
	MaxGamesForRank  int     `json:"max_games_for_rank"`
	RecencyDecayRate float64 `json:"recency_decay_rate"`

	// Strength of schedule
	AdaptK                float64 `json:"adapt_k"`
	SOSRepeatCap          int     `json:"sos_repeat_cap"`
	SOSIterations         int     `json:"sos_iterations"`
	SOSTransitivityLambda float64 `json:"sos_transitivity_lambda"`
	UnrankedSOSBase       float64 `json:"unranked_sos_base"`
	MinBridgeGames        int     `json:"min_bridge_games"`
	PageRankAlpha         float64 `json:"pagerank_alpha"`
	DampeningEnabled      bool    `json:"pagerank_dampening_enabled"`
	DiversityDivisor      float64 `json:"diversity_divisor"`
	ComponentMinSize      int     `json:"component_min_size"`

	// Composer
	OffenseWeight       float64         `json:"off_weight"`
	DefenseWeight       float64         `json:"def_weight"`
	SOSWeight           float64         `json:"sos_weight"`
	PerfBlendWeight     float64         `json:"perf_blend_weight"`
	ShrinkagePriorGames float64         `json:"shrinkage_prior_games"`
	NormMode            string          `json:"norm_mode"`
	ProvisionalGames    int             `json:"provisional_games"`
	ProvisionalFloor    float64         `json:"provisional_floor"`
	AgeAnchors          map[int]float64 `json:"age_anchors"`

	// Predictive residual layer
	MLEnabled               bool    `json:"ml_enabled"`
	MLModel                 string  `json:"ml_model"`
	MLAlpha                 float64 `json:"ml_alpha"`
	MLRecencyLambda         float64 `json:"ml_recency_lambda"`
	MinTeamGamesForResidual int     `json:"min_team_games_for_residual"`
	ResidualClipGoals       float64 `json:"residual_clip_goals"`
	MinTrainingRows         int     `json:"min_training_rows"`
	TrainingHoldoutDays     int     `json:"training_holdout_days"`
	MLSeed                  int64   `json:"ml_seed"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		WindowDays:       365,
		MaxGamesForRank:  30,
		RecencyDecayRate: 0.008,

		AdaptK:                0.12,
		SOSRepeatCap:          3,
		SOSIterations:         3,
		SOSTransitivityLambda: 0.0,
		UnrankedSOSBase:       0.35,
		MinBridgeGames:        2,
		PageRankAlpha:         0.85,
		DampeningEnabled:      true,
		DiversityDivisor:      4.0,
		ComponentMinSize:      8,

		OffenseWeight:       0.25,
		DefenseWeight:       0.25,
		SOSWeight:           0.40,
		PerfBlendWeight:     0.10,
		ShrinkagePriorGames: 6.0,
		NormMode:            NormPercentile,
		ProvisionalGames:    5,
		ProvisionalFloor:    0.85,
		AgeAnchors: map[int]float64{
			8: 0.55, 9: 0.60, 10: 0.65, 11: 0.70, 12: 0.75, 13: 0.80,
			14: 0.85, 15: 0.90, 16: 0.94, 17: 0.97, 18: 0.99, 19: 1.00,
		},

		MLEnabled:               true,
		MLModel:                 ModelGBM,
		MLAlpha:                 0.30,
		MLRecencyLambda:         0.10,
		MinTeamGamesForResidual: 3,
		ResidualClipGoals:       3.5,
		MinTrainingRows:         150,
		TrainingHoldoutDays:     30,
		MLSeed:                  42,
	}
}

// Validate checks every invariant the engine relies on. Callers treat a
// non-nil error as fatal at startup.
func (c *Config) Validate() error {
	if c.WindowDays <= 0 {
		return fmt.Errorf("window_days must be positive, got %d", c.WindowDays)
	}
	if c.MaxGamesForRank <= 0 {
		return fmt.Errorf("max_games_for_rank must be positive, got %d", c.MaxGamesForRank)
	}
	if c.RecencyDecayRate < 0 {
		return fmt.Errorf("recency_decay_rate must be non-negative, got %g", c.RecencyDecayRate)
	}
	if c.AdaptK < 0 {
		return fmt.Errorf("adapt_k must be non-negative, got %g", c.AdaptK)
	}
	if c.SOSRepeatCap < 1 {
		return fmt.Errorf("sos_repeat_cap must be at least 1, got %d", c.SOSRepeatCap)
	}
	if c.SOSIterations < 1 {
		return fmt.Errorf("sos_iterations must be at least 1, got %d", c.SOSIterations)
	}
	if c.SOSTransitivityLambda < 0 || c.SOSTransitivityLambda > 1 {
		return fmt.Errorf("sos_transitivity_lambda must be in [0,1], got %g", c.SOSTransitivityLambda)
	}
	if c.UnrankedSOSBase < 0 || c.UnrankedSOSBase > 1 {
		return fmt.Errorf("unranked_sos_base must be in [0,1], got %g", c.UnrankedSOSBase)
	}
	if c.MinBridgeGames < 0 {
		return fmt.Errorf("min_bridge_games must be non-negative, got %d", c.MinBridgeGames)
	}
	if c.PageRankAlpha <= 0 || c.PageRankAlpha > 1 {
		return fmt.Errorf("pagerank_alpha must be in (0,1], got %g", c.PageRankAlpha)
	}
	if c.DiversityDivisor <= 0 {
		return fmt.Errorf("diversity_divisor must be positive, got %g", c.DiversityDivisor)
	}
	if c.ComponentMinSize < 2 {
		return fmt.Errorf("component_min_size must be at least 2, got %d", c.ComponentMinSize)
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if c.ShrinkagePriorGames < 0 {
		return fmt.Errorf("shrinkage_prior_games must be non-negative, got %g", c.ShrinkagePriorGames)
	}
	if c.NormMode != NormPercentile && c.NormMode != NormZScore {
		return fmt.Errorf("norm_mode must be %q or %q, got %q", NormPercentile, NormZScore, c.NormMode)
	}
	if c.ProvisionalGames < 0 {
		return fmt.Errorf("provisional_games must be non-negative, got %d", c.ProvisionalGames)
	}
	if c.ProvisionalFloor <= 0 || c.ProvisionalFloor > 1 {
		return fmt.Errorf("provisional_floor must be in (0,1], got %g", c.ProvisionalFloor)
	}
	if err := c.validateAnchors(); err != nil {
		return err
	}
	if c.MLModel != ModelGBM && c.MLModel != ModelForest {
		return fmt.Errorf("ml_model must be %q or %q, got %q", ModelGBM, ModelForest, c.MLModel)
	}
	if c.MLAlpha < 0 {
		return fmt.Errorf("ml_alpha must be non-negative, got %g", c.MLAlpha)
	}
	if c.MLRecencyLambda < 0 {
		return fmt.Errorf("ml_recency_lambda must be non-negative, got %g", c.MLRecencyLambda)
	}
	if c.MinTeamGamesForResidual < 1 {
		return fmt.Errorf("min_team_games_for_residual must be at least 1, got %d", c.MinTeamGamesForResidual)
	}
	if c.ResidualClipGoals <= 0 {
		return fmt.Errorf("residual_clip_goals must be positive, got %g", c.ResidualClipGoals)
	}
	if c.MinTrainingRows < 1 {
		return fmt.Errorf("min_training_rows must be at least 1, got %d", c.MinTrainingRows)
	}
	if c.TrainingHoldoutDays < 0 {
		return fmt.Errorf("training_holdout_days must be non-negative, got %d", c.TrainingHoldoutDays)
	}
	return nil
}

func (c *Config) validateWeights() error {
	for name, w := range map[string]float64{
		"off_weight":        c.OffenseWeight,
		"def_weight":        c.DefenseWeight,
		"sos_weight":        c.SOSWeight,
		"perf_blend_weight": c.PerfBlendWeight,
	} {
		if w < 0 {
			return fmt.Errorf("%s must be non-negative, got %g", name, w)
		}
	}
	sum := c.OffenseWeight + c.DefenseWeight + c.SOSWeight + c.PerfBlendWeight
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("component weights must sum to 1.0, got %.6f", sum)
	}
	return nil
}

func (c *Config) validateAnchors() error {
	if len(c.AgeAnchors) == 0 {
		return fmt.Errorf("age_anchors must not be empty")
	}
	ages := make([]int, 0, len(c.AgeAnchors))
	for age, anchor := range c.AgeAnchors {
		if anchor < 0 || anchor > 1 {
			return fmt.Errorf("age anchor for U%d must be in [0,1], got %g", age, anchor)
		}
		ages = append(ages, age)
	}
	sort.Ints(ages)
	for i := 1; i < len(ages); i++ {
		if c.AgeAnchors[ages[i]] < c.AgeAnchors[ages[i-1]] {
			return fmt.Errorf("age anchors must not decrease with age: U%d=%g > U%d=%g",
				ages[i-1], c.AgeAnchors[ages[i-1]], ages[i], c.AgeAnchors[ages[i]])
		}
	}
	return nil
}

// AnchorFor returns the ceiling anchor for an age group. Ages outside the
// table clamp to the nearest bracket.
func (c *Config) AnchorFor(age int) float64 {
	if anchor, ok := c.AgeAnchors[age]; ok {
		return anchor
	}
	minAge, maxAge := math.MaxInt32, math.MinInt32
	for a := range c.AgeAnchors {
		if a < minAge {
			minAge = a
		}
		if a > maxAge {
			maxAge = a
		}
	}
	if age < minAge {
		return c.AgeAnchors[minAge]
	}
	if age > maxAge {
		return c.AgeAnchors[maxAge]
	}
	// Inside the table but no exact bracket: use the nearest younger age.
	for a := age - 1; a >= minAge; a-- {
		if anchor, ok := c.AgeAnchors[a]; ok {
			return anchor
		}
	}
	return c.AgeAnchors[minAge]
}
