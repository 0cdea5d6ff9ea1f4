package rating

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSOS(t *testing.T, games []Game, cfg *Config) []TeamStat {
	t.Helper()
	stats, _ := Aggregate(games, testToday, cfg)
	stats = Normalize(stats, cfg)
	out, _ := ComputeSOS(stats, testToday, cfg)
	return out
}

// identicalScheduleFixture gives teams 1,2,3 the exact same five opponents
// with the same scores and dates, and team 4 a disjoint, stronger set.
func identicalScheduleFixture() []Game {
	var games []Game
	tripleStates := []string{"OK", "NM", "LA", "AR", "KS"}
	for i, opp := range []uint{10, 11, 12, 13, 14} {
		ago := 10 + 5*i
		for _, team := range []uint{1, 2, 3} {
			key := fmt.Sprintf("m-%d-%d", team, opp)
			games = append(games, pair(key, team, opp, 2, 1, ago, "TX", tripleStates[i])...)
		}
	}

	// Team 4's opponents beat it and hold their own against each other.
	quadStates := []string{"WA", "OR", "NV", "ID", "UT"}
	for i, opp := range []uint{20, 21, 22, 23, 24} {
		key := fmt.Sprintf("m-4-%d", opp)
		games = append(games, pair(key, 4, opp, 1, 3, 10+5*i, "CA", quadStates[i])...)
	}
	strong := []uint{20, 21, 22, 23, 24}
	ago := 12
	for i := 0; i < len(strong); i++ {
		for j := i + 1; j < len(strong); j++ {
			key := fmt.Sprintf("p-%d-%d", strong[i], strong[j])
			games = append(games, pair(key, strong[i], strong[j], 1, 1, ago, quadStates[i], quadStates[j])...)
			ago += 3
		}
	}
	return games
}

func TestSOSIdenticalSchedulesIdenticalSOS(t *testing.T) {
	cfg := testConfig()
	out := runSOS(t, identicalScheduleFixture(), cfg)

	one := findStat(t, out, 1)
	two := findStat(t, out, 2)
	three := findStat(t, out, 3)
	assert.InDelta(t, one.SOSRaw, two.SOSRaw, 1e-12)
	assert.InDelta(t, one.SOSRaw, three.SOSRaw, 1e-12)
	assert.InDelta(t, one.SOSNorm, two.SOSNorm, 1e-12)
	assert.InDelta(t, one.SOSNorm, three.SOSNorm, 1e-12)
}

func TestSOSHarderScheduleScoresHigher(t *testing.T) {
	cfg := testConfig()
	out := runSOS(t, identicalScheduleFixture(), cfg)

	weakSide := findStat(t, out, 1)
	hardSide := findStat(t, out, 4)
	assert.Greater(t, hardSide.SOSRaw, weakSide.SOSRaw,
		"a schedule of stronger opponents must rate harder")
}

func TestSOSBlowoutsCarryLessCredit(t *testing.T) {
	cfg := testConfig()
	cfg.SOSIterations = 1

	var games []Game
	// Strong opponent beats neutral teams; weak opponent loses to them.
	games = append(games, pair("s1", 50, 52, 4, 0, 20, "TX", "TX")...)
	games = append(games, pair("s2", 50, 53, 4, 0, 22, "TX", "TX")...)
	games = append(games, pair("w1", 51, 52, 0, 4, 20, "TX", "TX")...)
	games = append(games, pair("w2", 51, 53, 0, 4, 22, "TX", "TX")...)

	// X edges the strong team and routs the weak one; Y does the reverse.
	games = append(games, pair("x-close", 60, 50, 1, 0, 10, "TX", "TX")...)
	games = append(games, pair("x-blow", 60, 51, 9, 0, 10, "TX", "TX")...)
	games = append(games, pair("y-blow", 61, 50, 9, 0, 10, "TX", "TX")...)
	games = append(games, pair("y-close", 61, 51, 1, 0, 10, "TX", "TX")...)

	out := runSOS(t, games, cfg)
	x := findStat(t, out, 60)
	y := findStat(t, out, 61)
	assert.Greater(t, x.SOSRaw, y.SOSRaw,
		"close result against the strong side must outweigh a blowout against it")
}

func TestSOSRepeatOpponentCap(t *testing.T) {
	base := func() []Game {
		var games []Game
		games = append(games, pair("ss1", 80, 81, 5, 0, 30, "TX", "TX")...)
		games = append(games, pair("ss2", 80, 82, 5, 0, 32, "TX", "TX")...)
		games = append(games, pair("ww1", 83, 81, 0, 5, 30, "TX", "TX")...)
		games = append(games, pair("ww2", 83, 82, 0, 5, 32, "TX", "TX")...)

		// R meets the strong side six times, Q only three; one weak game each.
		for i := 0; i < 6; i++ {
			games = append(games, pair(fmt.Sprintf("r-%d", i), 70, 80, 1, 0, 10, "TX", "TX")...)
		}
		for i := 0; i < 3; i++ {
			games = append(games, pair(fmt.Sprintf("q-%d", i), 71, 80, 1, 0, 10, "TX", "TX")...)
		}
		games = append(games, pair("r-w", 70, 83, 1, 0, 10, "TX", "TX")...)
		games = append(games, pair("q-w", 71, 83, 1, 0, 10, "TX", "TX")...)
		return games
	}

	capped := testConfig()
	capped.SOSIterations = 1
	capped.SOSRepeatCap = 3
	out := runSOS(t, base(), capped)
	r := findStat(t, out, 70)
	q := findStat(t, out, 71)
	assert.InDelta(t, q.SOSRaw, r.SOSRaw, 1e-12,
		"beyond the cap, extra games against the same rival must not count")

	uncapped := testConfig()
	uncapped.SOSIterations = 1
	uncapped.SOSRepeatCap = 10
	out = runSOS(t, base(), uncapped)
	r = findStat(t, out, 70)
	q = findStat(t, out, 71)
	assert.Greater(t, r.SOSRaw, q.SOSRaw,
		"without the cap the repeated strong opponent dominates the signal")
}

func TestSOSUnrankedOpponentsFallBack(t *testing.T) {
	cfg := testConfig()

	// Only team 90's perspectives exist, so its opponents never enter the
	// table and contribute the unranked base.
	games := []Game{
		game("u1", 90, 991, 2, 1, 10),
		game("u2", 90, 992, 1, 1, 20),
		game("u3", 90, 993, 0, 2, 30),
	}
	games[0].OpponentState = "OK"
	games[1].OpponentState = "NM"
	games[2].OpponentState = "AR"

	out := runSOS(t, games, cfg)
	require.Len(t, out, 1)
	assert.InDelta(t, cfg.UnrankedSOSBase, out[0].SOSRaw, 1e-12)
	// A single-team component pins its normalized SOS to the midpoint.
	assert.InDelta(t, 0.5, out[0].SOSNorm, 1e-12)
}

func TestSOSCircularBubbleIsBounded(t *testing.T) {
	bubble := func() []Game {
		var games []Game
		games = append(games, pair("c1", 1, 2, 7, 0, 10, "TX", "TX")...)
		games = append(games, pair("c2", 2, 3, 7, 0, 12, "TX", "TX")...)
		games = append(games, pair("c3", 3, 1, 1, 0, 14, "TX", "TX")...)
		games = append(games, roundRobin([]uint{10, 11, 12, 13, 14, 15, 16, 17}, "TX", 20)...)
		return games
	}

	damped := testConfig()
	damped.SOSIterations = 1
	undamped := testConfig()
	undamped.SOSIterations = 1
	undamped.DampeningEnabled = false

	withDamping := runSOS(t, bubble(), damped)
	withoutDamping := runSOS(t, bubble(), undamped)

	// The cycle-closing upset inflates without damping.
	freeC := findStat(t, withoutDamping, 3)
	heldC := findStat(t, withDamping, 3)
	assert.Greater(t, freeC.SOSRaw, 0.65)
	assert.Less(t, heldC.SOSRaw, freeC.SOSRaw)

	for _, id := range []uint{1, 2, 3} {
		st := findStat(t, withDamping, id)
		assert.LessOrEqual(t, st.SOSRaw, 0.8, "team %d", id)
		assert.LessOrEqual(t, st.SOSNorm, 0.8, "team %d", id)
	}

	// The bound holds no matter how many refinement passes run.
	many := testConfig()
	many.SOSIterations = 5
	for _, st := range runSOS(t, bubble(), many) {
		if st.TeamID <= 3 {
			assert.LessOrEqual(t, st.SOSRaw, 0.8, "team %d", st.TeamID)
		}
	}
}

func TestSOSConnectivityRewardsDiverseSchedules(t *testing.T) {
	cfg := testConfig()

	var games []Game
	spread := []string{"OK", "NM", "AR", "KS"}
	for i, opp := range []uint{30, 31, 32, 33} {
		key := fmt.Sprintf("m-travel-%d", opp)
		games = append(games, pair(key, 5, opp, 2, 1, 10+2*i, "TX", spread[i])...)
	}
	for i, opp := range []uint{40, 41, 42, 43} {
		key := fmt.Sprintf("m-local-%d", opp)
		games = append(games, pair(key, 6, opp, 2, 1, 10+2*i, "TX", "OK")...)
	}

	out := runSOS(t, games, cfg)
	travel := findStat(t, out, 5)
	local := findStat(t, out, 6)
	assert.InDelta(t, 1.0, travel.Connectivity, 1e-12)
	assert.InDelta(t, 0.25, local.Connectivity, 1e-12)
	assert.Greater(t, travel.Connectivity, local.Connectivity)
}

func TestSOSDisconnectedEcosystemsShareTheScale(t *testing.T) {
	cfg := testConfig()

	first := []uint{1, 2, 3, 4, 5, 6, 7, 8}
	second := []uint{101, 102, 103, 104, 105, 106, 107, 108}
	games := append(roundRobin(first, "TX", 10), roundRobin(second, "CA", 10)...)

	out := runSOS(t, games, cfg)

	// Mirrored components must land on mirrored normalized SOS: neither
	// ecosystem gets to monopolize the top of the scale.
	for i, id := range first {
		a := findStat(t, out, id)
		b := findStat(t, out, second[i])
		assert.InDelta(t, a.SOSNorm, b.SOSNorm, 1e-12, "teams %d and %d", id, second[i])
		assert.NotEqual(t, a.ComponentID, b.ComponentID)
	}
}

func TestSOSSmallComponentShrinksToMidpoint(t *testing.T) {
	cfg := testConfig()

	// A pair that only ever played each other cannot support a [0,1]
	// spread; their normalized SOS hugs the midpoint.
	games := pair("only", 200, 201, 3, 1, 10, "TX", "OK")
	out := runSOS(t, games, cfg)
	for _, st := range out {
		assert.InDelta(t, 0.5, st.SOSNorm, 0.26)
		assert.NotEqual(t, 0.0, st.SOSNorm)
		assert.NotEqual(t, 1.0, st.SOSNorm)
	}
}

func TestSOSOutputsAlwaysInRange(t *testing.T) {
	games := identicalScheduleFixture()
	games = append(games, roundRobin([]uint{300, 301, 302, 303, 304}, "MO", 15)...)

	for _, mode := range []string{NormPercentile, NormZScore} {
		cfg := testConfig()
		cfg.NormMode = mode
		for _, st := range runSOS(t, games, cfg) {
			assert.GreaterOrEqual(t, st.SOSRaw, 0.0)
			assert.LessOrEqual(t, st.SOSRaw, 1.0)
			assert.GreaterOrEqual(t, st.SOSNorm, 0.0)
			assert.LessOrEqual(t, st.SOSNorm, 1.0)
			assert.GreaterOrEqual(t, st.Connectivity, 0.0)
			assert.LessOrEqual(t, st.Connectivity, 1.0)
		}
	}
}
