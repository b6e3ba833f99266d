package swarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadyThresholdSmallFile(t *testing.T) {
	// 100MB file: 2% = 2MB, below the 3MB floor, so floor wins.
	assert.EqualValues(t, readinessFloor, readyThreshold(100<<20))
}

func TestReadyThresholdLargerSmallFile(t *testing.T) {
	// 140MB file: 2% = 2.8MB, still below the 3MB floor.
	assert.EqualValues(t, readinessFloor, readyThreshold(140<<20))
}

func TestReadyThresholdBigFile(t *testing.T) {
	// >= 150MB always uses the absolute floor per spec §4.3.
	assert.EqualValues(t, readinessFloor, readyThreshold(800<<20))
}

func TestReadyThresholdScenarioD(t *testing.T) {
	// Scenario D: 800MB file, 2.9MB on disk -> buffering; 3.1MB -> ready.
	threshold := readyThreshold(800 << 20)
	assert.Less(t, int64(2.9*float64(1<<20)), threshold)
	assert.GreaterOrEqual(t, int64(3.1*float64(1<<20)), threshold)
}

func TestDefaultTrackersNonEmpty(t *testing.T) {
	assert.Greater(t, len(flatTrackers()), 15)
}

func TestCacheKeyStableAndDistinct(t *testing.T) {
	a := "1234567890abcdef1234567890abcdef12345678"
	b := "abcdef1234567890abcdef1234567890abcdef12"

	assert.Equal(t, cacheKey(a), cacheKey(a))
	assert.NotEqual(t, cacheKey(a), cacheKey(b))
	assert.NotEqual(t, a, cacheKey(a))
}
