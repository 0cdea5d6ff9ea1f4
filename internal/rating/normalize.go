package rating

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Normalize applies empirical-Bayes shrinkage to the raw offense and
// defense rates, then maps both onto [0,1] within the cohort. Defense is
// inverted so that conceding less scores higher. Cohorts too small to
// compare (< 2 teams) normalize flat to 0.5.
func Normalize(stats []TeamStat, cfg *Config) []TeamStat {
	out := make([]TeamStat, len(stats))
	copy(out, stats)
	if len(out) == 0 {
		return out
	}

	offRaw := make([]float64, len(out))
	defRaw := make([]float64, len(out))
	for i := range out {
		offRaw[i] = out[i].OffenseRaw
		defRaw[i] = out[i].DefenseRaw
	}
	offMean := stat.Mean(offRaw, nil)
	defMean := stat.Mean(defRaw, nil)

	offShrunk := make([]float64, len(out))
	defShrunk := make([]float64, len(out))
	for i := range out {
		w := shrinkWeight(out[i].GamesPlayed, cfg.ShrinkagePriorGames)
		offShrunk[i] = out[i].OffenseRaw*w + offMean*(1-w)
		defShrunk[i] = out[i].DefenseRaw*w + defMean*(1-w)
		out[i].OffenseShrunk = offShrunk[i]
		out[i].DefenseShrunk = defShrunk[i]
	}

	if len(out) < 2 {
		out[0].OffenseNorm = 0.5
		out[0].DefenseNorm = 0.5
		return out
	}

	var offNorm, defNorm []float64
	switch cfg.NormMode {
	case NormZScore:
		offNorm = zscoreNorm(offShrunk, false)
		defNorm = zscoreNorm(defShrunk, true)
	default:
		offNorm = midrankPercentiles(offShrunk, false)
		defNorm = midrankPercentiles(defShrunk, true)
	}
	for i := range out {
		out[i].OffenseNorm = offNorm[i]
		out[i].DefenseNorm = defNorm[i]
	}
	return out
}

// shrinkWeight is the sample trust n/(n+prior), asymptotic to 1.
func shrinkWeight(n int, prior float64) float64 {
	if prior <= 0 {
		return 1
	}
	return float64(n) / (float64(n) + prior)
}

// midrankPercentiles maps values onto (0,1) by average-rank percentile,
// (rank-0.5)/n with ties sharing their mean rank. invert flips the order
// so lower values score higher.
func midrankPercentiles(values []float64, invert bool) []float64 {
	n := len(values)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })

	out := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[idx[j+1]] == values[idx[i]] {
			j++
		}
		avgRank := float64(i+j)/2 + 1
		p := (avgRank - 0.5) / float64(n)
		if invert {
			p = 1 - p
		}
		for k := i; k <= j; k++ {
			out[idx[k]] = p
		}
		i = j + 1
	}
	return out
}

// zscoreNorm standardizes against the cohort moments and squashes through
// a logistic sigmoid. Zero variance collapses everyone to 0.5.
func zscoreNorm(values []float64, invert bool) []float64 {
	mean := stat.Mean(values, nil)
	std := stat.StdDev(values, nil)

	out := make([]float64, len(values))
	for i, v := range values {
		if std == 0 || math.IsNaN(std) {
			out[i] = 0.5
			continue
		}
		z := (v - mean) / std
		if invert {
			z = -z
		}
		out[i] = sigmoid(z)
	}
	return out
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
