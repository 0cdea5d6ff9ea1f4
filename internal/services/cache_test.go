package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dallasheidt14/PitchRank-sub001/internal/rating"
)

func TestCacheKeyFormats(t *testing.T) {
	assert.Equal(t, "rankings:U11:M", RankingsCacheKey(11, "M"))
	assert.Equal(t, "movers:U14:F:30", MoversCacheKey(14, "F", 30))
	assert.Equal(t, "stage:U11:M:abc123", StageCacheKey(11, "M", "abc123"))
	assert.Equal(t, "runs:latest", LatestRunCacheKey())
}

func TestStageFingerprintDeterministic(t *testing.T) {
	cfg := rating.DefaultConfig()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	a := StageFingerprint([]string{"m1", "m2", "m3"}, start, end, "", cfg)
	b := StageFingerprint([]string{"m3", "m1", "m2"}, start, end, "", cfg)

	// Key order must not matter.
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestStageFingerprintSensitivity(t *testing.T) {
	cfg := rating.DefaultConfig()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	base := StageFingerprint([]string{"m1", "m2"}, start, end, "", cfg)

	// A new game changes it.
	assert.NotEqual(t, base, StageFingerprint([]string{"m1", "m2", "m3"}, start, end, "", cfg))

	// Sliding the window a day changes it, even with the same games.
	assert.NotEqual(t, base, StageFingerprint([]string{"m1", "m2"}, start, end.AddDate(0, 0, 1), "", cfg))

	// A provider filter changes it.
	assert.NotEqual(t, base, StageFingerprint([]string{"m1", "m2"}, start, end, "gotsport", cfg))

	// Any engine tunable changes it.
	tweaked := rating.DefaultConfig()
	tweaked.SOSWeight = 0.5
	assert.NotEqual(t, base, StageFingerprint([]string{"m1", "m2"}, start, end, "", tweaked))
}

func TestStageFingerprintIgnoresTimeOfDay(t *testing.T) {
	cfg := rating.DefaultConfig()
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	endLater := time.Date(2025, 6, 1, 18, 30, 0, 0, time.UTC)

	a := StageFingerprint([]string{"m1"}, start, end, "", cfg)
	b := StageFingerprint([]string{"m1"}, start, endLater, "", cfg)
	assert.Equal(t, a, b)
}

func TestStageFingerprintDoesNotMutateInput(t *testing.T) {
	cfg := rating.DefaultConfig()
	keys := []string{"z", "a", "m"}
	StageFingerprint(keys, time.Now(), time.Now(), "", cfg)
	assert.Equal(t, []string{"z", "a", "m"}, keys)
}
