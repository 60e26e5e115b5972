package smartcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerFirstAccess(t *testing.T) {
	tracker := NewAccessTracker()
	tracker.Record("k")

	stats, ok := tracker.Stats("k")
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.Count)
	assert.Zero(t, stats.AverageInterval)
}

func TestTrackerAverageInterval(t *testing.T) {
	tracker := NewAccessTracker()
	base := time.Unix(1000, 0)
	clock := base
	tracker.now = func() time.Time { return clock }

	tracker.Record("k")
	clock = base.Add(10 * time.Second)
	tracker.Record("k")
	clock = base.Add(30 * time.Second) // 20s gap
	tracker.Record("k")

	stats, ok := tracker.Stats("k")
	require.True(t, ok)
	assert.Equal(t, int64(3), stats.Count)
	assert.Equal(t, 15*time.Second, stats.AverageInterval)
}

func TestTrackerForget(t *testing.T) {
	tracker := NewAccessTracker()
	tracker.Record("k")
	require.Equal(t, 1, tracker.Len())

	tracker.Forget("k")
	assert.Equal(t, 0, tracker.Len())
	_, ok := tracker.Stats("k")
	assert.False(t, ok)
}

func TestTrackerUnknownKey(t *testing.T) {
	tracker := NewAccessTracker()
	_, ok := tracker.Stats("missing")
	assert.False(t, ok)
}
