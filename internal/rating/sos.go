package rating

import (
	"math"
	"sort"
	"time"
)

// sosEdge is one repeat-capped, weighted game edge from a team to an
// opponent. Weight folds recency decay and blowout dampening together.
type sosEdge struct {
	opponentID uint
	weight     float64
}

// ComputeSOS runs the full strength-of-schedule stage: weighted edges with
// recency decay and blowout dampening, the repeat-opponent cap, a fixed
// number of refinement iterations, regional bubble dampening, and
// per-component normalization. Returns the augmented slice and the number
// of schedule components found.
func ComputeSOS(stats []TeamStat, today time.Time, cfg *Config) ([]TeamStat, int) {
	out, components := assignComponents(stats)
	if len(out) == 0 {
		return out, components
	}

	edges := make([][]sosEdge, len(out))
	neighbours := make([][]uint, len(out))
	index := make(map[uint]int, len(out))
	for i := range out {
		index[out[i].TeamID] = i
	}
	for i := range out {
		edges[i] = cappedEdges(&out[i], today, cfg)
		neighbours[i] = tableNeighbours(edges[i], index)
	}

	// Seed with each team's own quality, then refine a fixed number of
	// times. Every iteration rebuilds the whole map from the previous one,
	// so update order never matters.
	strengths := make(map[uint]float64, len(out))
	for i := range out {
		strengths[out[i].TeamID] = (out[i].OffenseNorm + out[i].DefenseNorm) / 2
	}
	lambda := cfg.SOSTransitivityLambda
	for iter := 0; iter < cfg.SOSIterations; iter++ {
		next := make(map[uint]float64, len(out))
		for i := range out {
			direct := directSOS(edges[i], strengths, index, cfg)
			v := direct
			if lambda > 0 {
				v = (1-lambda)*direct + lambda*transitiveSOS(neighbours[i], strengths)
			}
			next[out[i].TeamID] = v
		}
		strengths = next
	}

	for i := range out {
		sos := strengths[out[i].TeamID]
		out[i].Connectivity = connectivity(len(out[i].OppStates), cfg)
		if cfg.DampeningEnabled && out[i].BridgeGames < cfg.MinBridgeGames {
			// Closed regional bubbles get pulled toward neutral; schedules
			// with diverse opposition keep most of their signal.
			a := cfg.PageRankAlpha * out[i].Connectivity
			sos = a*sos + (1-a)*0.5
		}
		out[i].SOSRaw = clamp01(sos)
	}

	normalizeSOSByComponent(out, cfg)
	return out, components
}

// cappedEdges builds the weighted edge list for one team, keeping at most
// SOSRepeatCap games per opponent (top weights, ties by match key).
// Edges come back ordered by opponent id so summation is deterministic.
func cappedEdges(st *TeamStat, today time.Time, cfg *Config) []sosEdge {
	type weighted struct {
		matchKey string
		weight   float64
	}
	byOpp := make(map[uint][]weighted)
	for _, g := range st.Games {
		days := today.Sub(g.Date).Hours() / 24
		w := math.Exp(-cfg.RecencyDecayRate*days) *
			math.Exp(-cfg.AdaptK*math.Abs(float64(g.GoalDiff())))
		byOpp[g.OpponentID] = append(byOpp[g.OpponentID], weighted{g.MatchKey, w})
	}

	oppIDs := make([]uint, 0, len(byOpp))
	for id := range byOpp {
		oppIDs = append(oppIDs, id)
	}
	sort.Slice(oppIDs, func(a, b int) bool { return oppIDs[a] < oppIDs[b] })

	edges := make([]sosEdge, 0, len(st.Games))
	for _, id := range oppIDs {
		list := byOpp[id]
		sort.Slice(list, func(a, b int) bool {
			if list[a].weight != list[b].weight {
				return list[a].weight > list[b].weight
			}
			return list[a].matchKey < list[b].matchKey
		})
		if len(list) > cfg.SOSRepeatCap {
			list = list[:cfg.SOSRepeatCap]
		}
		for _, w := range list {
			edges = append(edges, sosEdge{opponentID: id, weight: w.weight})
		}
	}
	return edges
}

// tableNeighbours returns the distinct in-table opponents of an edge list,
// ordered by team id.
func tableNeighbours(edges []sosEdge, index map[uint]int) []uint {
	seen := make(map[uint]bool)
	ids := make([]uint, 0, len(edges))
	for _, e := range edges {
		if _, ok := index[e.opponentID]; !ok {
			continue
		}
		if !seen[e.opponentID] {
			seen[e.opponentID] = true
			ids = append(ids, e.opponentID)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
	return ids
}

// directSOS is the weighted average opponent strength over a team's edges.
// Opponents without a table row contribute the unranked base; a team with
// no usable weight gets the base outright.
func directSOS(edges []sosEdge, strengths map[uint]float64, index map[uint]int, cfg *Config) float64 {
	var sum, total float64
	for _, e := range edges {
		opp := cfg.UnrankedSOSBase
		if _, ok := index[e.opponentID]; ok {
			opp = strengths[e.opponentID]
		}
		sum += opp * e.weight
		total += e.weight
	}
	if total == 0 {
		return cfg.UnrankedSOSBase
	}
	return sum / total
}

// transitiveSOS is the unweighted mean strength of a team's in-table
// neighbours. No neighbours means nothing to propagate: neutral 0.5.
func transitiveSOS(neighbours []uint, strengths map[uint]float64) float64 {
	if len(neighbours) == 0 {
		return 0.5
	}
	var sum float64
	for _, id := range neighbours {
		sum += strengths[id]
	}
	return sum / float64(len(neighbours))
}

// connectivity is the schedule connectivity factor: unique opponent states
// over the diversity divisor, capped at 1.
func connectivity(uniqueStates int, cfg *Config) float64 {
	return math.Min(1, float64(uniqueStates)/cfg.DiversityDivisor)
}

// normalizeSOSByComponent spreads sos_raw onto [0,1] by percentile within
// each schedule component. Components below the minimum size cannot
// support a full spread, so their members shrink toward the midpoint
// instead of being forced to the extremes.
func normalizeSOSByComponent(stats []TeamStat, cfg *Config) {
	groups := make(map[int][]int)
	for i := range stats {
		groups[stats[i].ComponentID] = append(groups[stats[i].ComponentID], i)
	}

	componentIDs := make([]int, 0, len(groups))
	for id := range groups {
		componentIDs = append(componentIDs, id)
	}
	sort.Ints(componentIDs)

	for _, id := range componentIDs {
		members := groups[id]
		if len(members) < cfg.ComponentMinSize {
			for _, i := range members {
				shrink := 1 - 1/float64(len(members))
				stats[i].SOSNorm = 0.5 + (stats[i].SOSRaw-0.5)*shrink
			}
			continue
		}
		values := make([]float64, len(members))
		for k, i := range members {
			values[k] = stats[i].SOSRaw
		}
		percentiles := midrankPercentiles(values, false)
		for k, i := range members {
			stats[i].SOSNorm = percentiles[k]
		}
	}
}
