package rating

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateWindowAndRecencyCap(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGamesForRank = 3

	games := []Game{
		game("m1", 1, 2, 2, 1, 10),
		game("m2", 1, 3, 1, 0, 20),
		game("m3", 1, 4, 2, 2, 30),
		game("m4", 1, 5, 0, 1, 40),  // fourth newest, capped out
		game("m5", 1, 6, 9, 0, 400), // outside the window
		game("m6", 2, 1, 1, 2, 10),
	}

	stats, skipped := Aggregate(games, testToday, cfg)
	require.Equal(t, 0, skipped)
	require.Len(t, stats, 2)

	one := findStat(t, stats, 1)
	assert.Equal(t, 3, one.GamesPlayed)
	assert.Equal(t, 2, one.Wins)
	assert.Equal(t, 1, one.Draws)
	assert.Equal(t, 0, one.Losses)
	assert.InDelta(t, (2+0.5)/3.0, one.WinPct, 1e-12)
	assert.InDelta(t, 5.0/3.0, one.OffenseRaw, 1e-12)
	assert.InDelta(t, 3.0/3.0, one.DefenseRaw, 1e-12)

	// The capped set keeps the three newest opponents only.
	opponents := make(map[uint]bool)
	for _, g := range one.Games {
		opponents[g.OpponentID] = true
	}
	assert.Equal(t, map[uint]bool{2: true, 3: true, 4: true}, opponents)
}

func TestAggregateSkipsInvalidRows(t *testing.T) {
	cfg := testConfig()

	missingKey := game("", 1, 2, 1, 0, 5)
	zeroTeam := game("m1", 0, 2, 1, 0, 5)
	zeroOpp := game("m2", 1, 0, 1, 0, 5)
	selfGame := game("m3", 1, 1, 1, 0, 5)
	negScore := game("m4", 1, 2, -1, 0, 5)
	noDate := game("m5", 1, 2, 1, 0, 5)
	noDate.Date = time.Time{}
	valid := game("m6", 1, 2, 3, 1, 5)

	stats, skipped := Aggregate([]Game{missingKey, zeroTeam, zeroOpp, selfGame, negScore, noDate, valid}, testToday, cfg)
	assert.Equal(t, 6, skipped)
	require.Len(t, stats, 1)
	assert.Equal(t, 1, stats[0].GamesPlayed)
}

func TestAggregateRecentActivityCount(t *testing.T) {
	cfg := testConfig()
	games := []Game{
		game("m1", 1, 2, 1, 0, 30),
		game("m2", 1, 3, 1, 0, 170),
		game("m3", 1, 4, 1, 0, 200),
	}
	stats, _ := Aggregate(games, testToday, cfg)
	one := findStat(t, stats, 1)
	assert.Equal(t, 3, one.GamesPlayed)
	assert.Equal(t, 2, one.GamesLast180)
}

func TestAggregateSameDayTiesAreStable(t *testing.T) {
	cfg := testConfig()
	cfg.MaxGamesForRank = 2

	games := []Game{
		game("b", 1, 2, 1, 0, 10),
		game("a", 1, 3, 2, 0, 10),
		game("c", 1, 4, 3, 0, 10),
	}
	first, _ := Aggregate(games, testToday, cfg)
	second, _ := Aggregate([]Game{games[2], games[0], games[1]}, testToday, cfg)

	one := findStat(t, first, 1)
	two := findStat(t, second, 1)
	require.Equal(t, one.Games, two.Games)
	assert.Equal(t, "a", one.Games[0].MatchKey)
	assert.Equal(t, "b", one.Games[1].MatchKey)
}

func TestAggregateBridgeGamesAndStates(t *testing.T) {
	cfg := testConfig()

	g1 := game("m1", 1, 2, 1, 0, 5)
	g1.TeamState, g1.OpponentState = "TX", "OK"
	g2 := game("m2", 1, 3, 1, 0, 10)
	g2.TeamState, g2.OpponentState = "TX", "TX"
	g3 := game("m3", 1, 4, 1, 0, 15)
	g3.TeamState, g3.OpponentState = "TX", "NM"
	g4 := game("m4", 1, 5, 1, 0, 20)
	g4.TeamState, g4.OpponentState = "TX", "" // unknown region, not a bridge

	stats, _ := Aggregate([]Game{g1, g2, g3, g4}, testToday, cfg)
	one := findStat(t, stats, 1)
	assert.Equal(t, 2, one.BridgeGames)
	assert.Equal(t, []string{"NM", "OK", "TX"}, one.OppStates)
}

func TestAggregateDropsTeamsWithoutGames(t *testing.T) {
	cfg := testConfig()
	stats, _ := Aggregate([]Game{game("m1", 7, 8, 2, 1, 500)}, testToday, cfg)
	assert.Empty(t, stats)
}

func TestAggregateOutputSortedByTeam(t *testing.T) {
	cfg := testConfig()
	games := []Game{
		game("m1", 30, 1, 1, 0, 5),
		game("m2", 4, 1, 1, 0, 5),
		game("m3", 12, 1, 1, 0, 5),
	}
	stats, _ := Aggregate(games, testToday, cfg)
	require.Len(t, stats, 3)
	assert.Equal(t, uint(4), stats[0].TeamID)
	assert.Equal(t, uint(12), stats[1].TeamID)
	assert.Equal(t, uint(30), stats[2].TeamID)
}
