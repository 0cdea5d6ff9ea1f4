package rating

import (
	"math"
	"math/rand"
	"sort"
	"time"
)

// Tree ensemble hyperparameters. The margin surface over five features is
// small; these are sized for that, not for general tabular work.
const (
	gbmRounds    = 60
	gbmDepth     = 3
	gbmShrinkage = 0.1
	gbmMinLeaf   = 5

	forestTrees  = 60
	forestDepth  = 6
	forestMinLeaf = 3
)

type regressor interface {
	predict(features [numFeatures]float64) float64
}

// gbmModel is a gradient-boosted ensemble of shallow regression trees over
// the squared-error loss. Training is fully deterministic.
type gbmModel struct {
	base      float64
	shrinkage float64
	trees     []*treeNode
}

func fitGBM(rows []trainingRow) *gbmModel {
	model := &gbmModel{base: meanTarget(rows), shrinkage: gbmShrinkage}

	work := make([]trainingRow, len(rows))
	copy(work, rows)
	preds := make([]float64, len(rows))
	for i := range preds {
		preds[i] = model.base
	}

	for m := 0; m < gbmRounds; m++ {
		for i := range work {
			work[i].target = rows[i].target - preds[i]
		}
		tree := buildTree(work, 0, gbmDepth, gbmMinLeaf)
		model.trees = append(model.trees, tree)
		for i := range preds {
			preds[i] += model.shrinkage * tree.predict(rows[i].features)
		}
	}
	return model
}

func (m *gbmModel) predict(features [numFeatures]float64) float64 {
	out := m.base
	for _, t := range m.trees {
		out += m.shrinkage * t.predict(features)
	}
	return out
}

// forestModel bags full-depth trees over bootstrap samples. Each tree gets
// its own seeded source, so a fixed seed reproduces the forest exactly.
type forestModel struct {
	trees []*treeNode
}

func fitForest(rows []trainingRow, seed int64) *forestModel {
	model := &forestModel{trees: make([]*treeNode, 0, forestTrees)}
	for t := 0; t < forestTrees; t++ {
		rng := rand.New(rand.NewSource(seed + int64(t)))
		sample := make([]trainingRow, len(rows))
		for i := range sample {
			sample[i] = rows[rng.Intn(len(rows))]
		}
		model.trees = append(model.trees, buildTree(sample, 0, forestDepth, forestMinLeaf))
	}
	return model
}

func (m *forestModel) predict(features [numFeatures]float64) float64 {
	var sum float64
	for _, t := range m.trees {
		sum += t.predict(features)
	}
	return sum / float64(len(m.trees))
}

// ApplyResidualBoost trains the margin model on held-out history, folds
// each team's recency-weighted prediction residual back into its score,
// and re-ranks. With the layer disabled, or with too little training
// history, the table passes through untouched: the ML fields keep the
// adjusted score and rank set by Compose, never a partial blend.
func ApplyResidualBoost(stats []TeamStat, cfg *Config) ([]TeamStat, []GameResidual, ResidualReport) {
	out := make([]TeamStat, len(stats))
	copy(out, stats)
	report := ResidualReport{}
	if !cfg.MLEnabled || len(out) == 0 {
		return out, nil, report
	}

	powers := make(map[uint]float64, len(out))
	for i := range out {
		powers[out[i].TeamID] = out[i].PowerCore
	}

	// Leakage guard: train strictly before the holdout horizon so the
	// model never sees the games it will score freshest.
	var maxDate time.Time
	for i := range out {
		for _, g := range out[i].Games {
			if g.Date.After(maxDate) {
				maxDate = g.Date
			}
		}
	}
	cutoff := maxDate.AddDate(0, 0, -cfg.TrainingHoldoutDays)

	var training []trainingRow
	for i := range out {
		for _, g := range out[i].Games {
			if g.Date.Before(cutoff) {
				training = append(training, rowForGame(&g, powers))
			}
		}
	}
	report.TrainingRows = len(training)
	if len(training) < cfg.MinTrainingRows {
		return out, nil, report
	}

	var model regressor
	if cfg.MLModel == ModelForest {
		model = fitForest(training, cfg.MLSeed)
	} else {
		model = fitGBM(training)
	}
	report.Applied = true
	report.Model = cfg.MLModel
	report.TrainMAE = meanAbsError(model, training)

	for i := range out {
		out[i].Residual = teamResidual(&out[i], powers, model, cfg)
	}

	// Scale residuals onto [-0.5, 0.5] against the cohort extreme.
	var maxAbs float64
	for i := range out {
		if a := math.Abs(out[i].Residual); a > maxAbs {
			maxAbs = a
		}
	}
	for i := range out {
		if maxAbs > 0 {
			out[i].MLNorm = 0.5 * out[i].Residual / maxAbs
		} else {
			out[i].MLNorm = 0
		}
	}

	for i := range out {
		st := &out[i]
		mlCore := clamp01((st.PowerCore + cfg.MLAlpha*st.MLNorm) / (1 + 0.5*cfg.MLAlpha))
		anchor := cfg.AnchorFor(st.AgeGroup)
		powerML := mlCore * provisionalMultiplier(st.GamesPlayed, cfg) * anchor
		if powerML > anchor {
			powerML = anchor
		}
		st.PowerML = powerML
	}
	rankByScore(out, func(t *TeamStat) float64 { return t.PowerML })
	for i := range out {
		out[i].RankInCohortML = i + 1
	}

	return out, exportGameResiduals(out, powers, model), report
}

// rowForGame builds the model features for one perspective row. Opponents
// without a table row sit at the neutral 0.5.
func rowForGame(g *Game, powers map[uint]float64) trainingRow {
	team := powers[g.TeamID]
	opp, ok := powers[g.OpponentID]
	if !ok {
		opp = 0.5
	}
	cross := 0.0
	if g.OpponentGender != "" && g.Gender != g.OpponentGender {
		cross = 1.0
	}
	return trainingRow{
		features: [numFeatures]float64{
			team,
			opp,
			team - opp,
			float64(g.OpponentAgeGroup - g.AgeGroup),
			cross,
		},
		target: float64(g.GoalDiff()),
	}
}

// teamResidual aggregates one team's per-game residuals with weights
// decaying by recency rank. Thin samples contribute nothing; the result
// clips to the configured goal bound.
func teamResidual(st *TeamStat, powers map[uint]float64, model regressor, cfg *Config) float64 {
	if st.GamesPlayed < cfg.MinTeamGamesForResidual {
		return 0
	}
	var sum, total float64
	for rank, g := range st.Games {
		row := rowForGame(&g, powers)
		resid := row.target - model.predict(row.features)
		w := math.Exp(-cfg.MLRecencyLambda * float64(rank))
		sum += resid * w
		total += w
	}
	if total == 0 {
		return 0
	}
	agg := sum / total
	return math.Max(-cfg.ResidualClipGoals, math.Min(cfg.ResidualClipGoals, agg))
}

// exportGameResiduals emits one residual per match from the home side's
// perspective, ordered by match key. The away residual is the negation
// and is not stored.
func exportGameResiduals(stats []TeamStat, powers map[uint]float64, model regressor) []GameResidual {
	seen := make(map[string]bool)
	var residuals []GameResidual
	for i := range stats {
		for _, g := range stats[i].Games {
			if !g.IsHome || seen[g.MatchKey] {
				continue
			}
			seen[g.MatchKey] = true
			row := rowForGame(&g, powers)
			residuals = append(residuals, GameResidual{
				MatchKey: g.MatchKey,
				Residual: row.target - model.predict(row.features),
			})
		}
	}
	sort.Slice(residuals, func(a, b int) bool { return residuals[a].MatchKey < residuals[b].MatchKey })
	return residuals
}

func meanAbsError(model regressor, rows []trainingRow) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += math.Abs(r.target - model.predict(r.features))
	}
	return sum / float64(len(rows))
}
