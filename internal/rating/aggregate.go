package rating

import (
	"sort"
	"time"
)

// recentWindowDays is the lookback for the games_last_180 activity count.
const recentWindowDays = 180

// Aggregate turns raw perspective rows into one TeamStat per team: window
// filter, recency cap, and per-game features. Invalid rows are skipped and
// counted, never fatal. Teams with zero qualifying games get no row.
// Output is sorted by team id for deterministic downstream stages.
func Aggregate(games []Game, today time.Time, cfg *Config) ([]TeamStat, int) {
	cutoff := today.AddDate(0, 0, -cfg.WindowDays)
	recentCutoff := today.AddDate(0, 0, -recentWindowDays)

	skipped := 0
	byTeam := make(map[uint][]Game)
	for _, g := range games {
		if !validGame(&g) {
			skipped++
			continue
		}
		if g.Date.Before(cutoff) || g.Date.After(today) {
			continue
		}
		byTeam[g.TeamID] = append(byTeam[g.TeamID], g)
	}

	stats := make([]TeamStat, 0, len(byTeam))
	for teamID, rows := range byTeam {
		// Newest first; match key breaks same-day ties so the cap is stable.
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].Date.Equal(rows[j].Date) {
				return rows[i].Date.After(rows[j].Date)
			}
			return rows[i].MatchKey < rows[j].MatchKey
		})
		if len(rows) > cfg.MaxGamesForRank {
			rows = rows[:cfg.MaxGamesForRank]
		}
		stats = append(stats, buildStat(teamID, rows, recentCutoff))
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].TeamID < stats[j].TeamID })
	return stats, skipped
}

func validGame(g *Game) bool {
	if g.MatchKey == "" || g.TeamID == 0 || g.OpponentID == 0 || g.TeamID == g.OpponentID {
		return false
	}
	if g.Date.IsZero() {
		return false
	}
	if g.GoalsFor < 0 || g.GoalsAgainst < 0 {
		return false
	}
	return true
}

func buildStat(teamID uint, rows []Game, recentCutoff time.Time) TeamStat {
	st := TeamStat{
		TeamID:      teamID,
		AgeGroup:    rows[0].AgeGroup,
		Gender:      rows[0].Gender,
		Games:       rows,
		GamesPlayed: len(rows),
	}

	goalsFor, goalsAgainst := 0, 0
	states := make(map[string]bool)
	for _, g := range rows {
		if !g.Date.Before(recentCutoff) {
			st.GamesLast180++
		}
		goalsFor += g.GoalsFor
		goalsAgainst += g.GoalsAgainst
		switch {
		case g.GoalsFor > g.GoalsAgainst:
			st.Wins++
		case g.GoalsFor < g.GoalsAgainst:
			st.Losses++
		default:
			st.Draws++
		}
		if g.OpponentState != "" {
			states[g.OpponentState] = true
		}
		if g.crossState() {
			st.BridgeGames++
		}
	}

	n := float64(len(rows))
	st.WinPct = (float64(st.Wins) + 0.5*float64(st.Draws)) / n
	st.OffenseRaw = float64(goalsFor) / n
	st.DefenseRaw = float64(goalsAgainst) / n

	st.OppStates = make([]string, 0, len(states))
	for s := range states {
		st.OppStates = append(st.OppStates, s)
	}
	sort.Strings(st.OppStates)

	return st
}
