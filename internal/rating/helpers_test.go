package rating

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var testToday = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func testConfig() *Config {
	return DefaultConfig()
}

func daysAgo(n int) time.Time {
	return testToday.AddDate(0, 0, -n)
}

// game builds a single perspective row in the default U11 boys cohort.
func game(key string, team, opp uint, gf, ga, ago int) Game {
	return Game{
		MatchKey:         key,
		TeamID:           team,
		OpponentID:       opp,
		Date:             daysAgo(ago),
		AgeGroup:         11,
		Gender:           "M",
		OpponentAgeGroup: 11,
		OpponentGender:   "M",
		GoalsFor:         gf,
		GoalsAgainst:     ga,
		TeamState:        "TX",
		OpponentState:    "TX",
	}
}

// pair builds both perspective rows of one match.
func pair(key string, home, away uint, hg, ag, ago int, homeState, awayState string) []Game {
	h := game(key, home, away, hg, ag, ago)
	h.IsHome = true
	h.TeamState = homeState
	h.OpponentState = awayState

	a := game(key, away, home, ag, hg, ago)
	a.TeamState = awayState
	a.OpponentState = homeState
	return []Game{h, a}
}

// roundRobin schedules one match between every pair of ids with mildly
// varied scores, all inside one region.
func roundRobin(ids []uint, state string, startAgo int) []Game {
	var games []Game
	ago := startAgo
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			hg := 1 + (i+j)%2
			ag := (i + 2*j) % 2
			key := fmt.Sprintf("rr-%s-%d-%d", state, ids[i], ids[j])
			games = append(games, pair(key, ids[i], ids[j], hg, ag, ago, state, state)...)
			ago += 2
		}
	}
	return games
}

func findStat(t *testing.T, stats []TeamStat, id uint) TeamStat {
	t.Helper()
	for _, st := range stats {
		if st.TeamID == id {
			return st
		}
	}
	require.Failf(t, "team not found", "no stat row for team %d", id)
	return TeamStat{}
}

func findRow(t *testing.T, table *Table, id uint) TeamStat {
	t.Helper()
	return findStat(t, table.Teams, id)
}
