package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSRateLimiterAllowsUpToLimit(t *testing.T) {
	rl := NewSMSRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, rl.Allow("+15551234567"))
	}
	assert.Error(t, rl.Allow("+15551234567"))
}

func TestSMSRateLimiterPerNumber(t *testing.T) {
	rl := NewSMSRateLimiter(1, time.Hour)

	require.NoError(t, rl.Allow("+15551111111"))
	assert.Error(t, rl.Allow("+15551111111"))
	assert.NoError(t, rl.Allow("+15552222222"))
}

func TestSMSRateLimiterWindowExpires(t *testing.T) {
	rl := NewSMSRateLimiter(1, 20*time.Millisecond)

	require.NoError(t, rl.Allow("+15551234567"))
	assert.Error(t, rl.Allow("+15551234567"))

	time.Sleep(30 * time.Millisecond)
	assert.NoError(t, rl.Allow("+15551234567"))
}

func TestSMSRateLimiterReset(t *testing.T) {
	rl := NewSMSRateLimiter(1, time.Hour)

	require.NoError(t, rl.Allow("+15551234567"))
	assert.Error(t, rl.Allow("+15551234567"))

	rl.Reset()
	assert.NoError(t, rl.Allow("+15551234567"))
}

func TestSMSRateLimiterStats(t *testing.T) {
	rl := NewSMSRateLimiter(5, 24*time.Hour)
	require.NoError(t, rl.Allow("+15551111111"))
	require.NoError(t, rl.Allow("+15552222222"))

	stats := rl.GetStats()
	assert.Equal(t, 2, stats["tracked_numbers"])
	assert.Equal(t, 5, stats["max_requests"])
}
