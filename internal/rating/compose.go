package rating

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Compose blends the normalized components into the core power score,
// applies the provisional ramp and the age anchor ceiling, and ranks the
// cohort. The ML fields start as copies of the adjusted score so a
// disabled residual layer leaves a fully consistent table.
func Compose(stats []TeamStat, cfg *Config) []TeamStat {
	out := make([]TeamStat, len(stats))
	copy(out, stats)
	if len(out) == 0 {
		return out
	}

	winPcts := make([]float64, len(out))
	for i := range out {
		winPcts[i] = out[i].WinPct
	}
	meanWinPct := stat.Mean(winPcts, nil)

	for i := range out {
		st := &out[i]
		st.PerfCentered = clamp01(0.5 + (st.WinPct - meanWinPct))

		core := cfg.OffenseWeight*st.OffenseNorm +
			cfg.DefenseWeight*st.DefenseNorm +
			cfg.SOSWeight*st.SOSNorm +
			cfg.PerfBlendWeight*st.PerfCentered
		st.PowerCore = clamp01(core)

		prov := provisionalMultiplier(st.GamesPlayed, cfg)
		anchor := cfg.AnchorFor(st.AgeGroup)
		adjusted := st.PowerCore * prov * anchor
		if adjusted > anchor {
			adjusted = anchor
		}
		st.PowerAdjusted = adjusted

		st.SampleFlag = "OK"
		if st.GamesPlayed < cfg.ProvisionalGames {
			st.SampleFlag = "LOW_SAMPLE"
		}
	}

	rankByScore(out, func(t *TeamStat) float64 { return t.PowerAdjusted })
	for i := range out {
		out[i].RankInCohort = i + 1
		out[i].PowerML = out[i].PowerAdjusted
		out[i].RankInCohortML = i + 1
	}
	return out
}

// provisionalMultiplier ramps linearly from the floor at zero games to 1.0
// once the sample clears the provisional threshold.
func provisionalMultiplier(games int, cfg *Config) float64 {
	if cfg.ProvisionalGames == 0 || games >= cfg.ProvisionalGames {
		return 1.0
	}
	frac := float64(games) / float64(cfg.ProvisionalGames)
	return cfg.ProvisionalFloor + (1-cfg.ProvisionalFloor)*frac
}

// rankByScore sorts descending by score with schedule strength breaking
// ties, then team id for stable output.
func rankByScore(stats []TeamStat, score func(t *TeamStat) float64) {
	sort.Slice(stats, func(i, j int) bool {
		si, sj := score(&stats[i]), score(&stats[j])
		if si != sj {
			return si > sj
		}
		if stats[i].SOSNorm != stats[j].SOSNorm {
			return stats[i].SOSNorm > stats[j].SOSNorm
		}
		return stats[i].TeamID < stats[j].TeamID
	})
}
