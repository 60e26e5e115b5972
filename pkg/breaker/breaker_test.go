package breaker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klappy/translation-helps-core/errors"
)

// fakeClock lets tests advance the breaker's view of time
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func alwaysFail(context.Context) error { return errors.New("origin down") }
func alwaysOK(context.Context) error   { return nil }

func trip(t *testing.T, b *Breaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.Error(t, b.Execute(context.Background(), alwaysFail))
	}
}

func TestClosedByDefault(t *testing.T) {
	b := New("origin-api")
	assert.Equal(t, StateClosed, b.State())
	require.NoError(t, b.Execute(context.Background(), alwaysOK))
}

func TestOpensAfterThresholdAndFailsFast(t *testing.T) {
	clock := newFakeClock()
	b := New("origin-api", WithFailureThreshold(3), WithResetTimeout(time.Minute), WithClock(clock.Now))

	trip(t, b, 3)
	assert.Equal(t, StateOpen, b.State())

	// Next call must fail fast without invoking the function.
	var invoked int32
	err := b.Execute(context.Background(), func(context.Context) error {
		atomic.AddInt32(&invoked, 1)
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCircuitOpen))
	assert.Equal(t, int32(0), atomic.LoadInt32(&invoked))
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	clock := newFakeClock()
	b := New("origin-api", WithFailureThreshold(2), WithResetTimeout(time.Minute), WithClock(clock.Now))

	trip(t, b, 2)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(time.Minute + time.Second)

	require.NoError(t, b.Execute(context.Background(), alwaysOK))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, int32(0), b.Snapshot().FailureCount)
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	clock := newFakeClock()
	b := New("origin-api", WithFailureThreshold(2), WithResetTimeout(time.Minute), WithClock(clock.Now))

	trip(t, b, 2)
	clock.Advance(2 * time.Minute)

	require.Error(t, b.Execute(context.Background(), alwaysFail))
	assert.Equal(t, StateOpen, b.State())

	// Cooldown restarted: still failing fast before it elapses again.
	err := b.Execute(context.Background(), alwaysOK)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCircuitOpen))
}

func TestExactlyOneProbeAfterCooldown(t *testing.T) {
	clock := newFakeClock()
	b := New("origin-api", WithFailureThreshold(1), WithResetTimeout(time.Minute), WithClock(clock.Now))

	trip(t, b, 1)
	clock.Advance(2 * time.Minute)

	var invoked int32
	release := make(chan struct{})
	probe := func(context.Context) error {
		atomic.AddInt32(&invoked, 1)
		<-release
		return nil
	}

	var wg sync.WaitGroup
	results := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- b.Execute(context.Background(), probe)
		}()
	}

	// Give the winner time to enter the probe, then release it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	assert.Equal(t, int32(1), atomic.LoadInt32(&invoked))

	var rejected int
	for err := range results {
		if err != nil {
			assert.True(t, errors.Is(err, errors.ErrCircuitOpen))
			rejected++
		}
	}
	assert.Equal(t, 9, rejected)
	assert.Equal(t, StateClosed, b.State())
}

func TestSuccessDecrementsFailureCount(t *testing.T) {
	b := New("origin-api", WithFailureThreshold(3))

	trip(t, b, 2)
	assert.Equal(t, int32(2), b.Snapshot().FailureCount)

	require.NoError(t, b.Execute(context.Background(), alwaysOK))
	assert.Equal(t, int32(1), b.Snapshot().FailureCount)

	// One more failure should not trip the breaker now.
	require.Error(t, b.Execute(context.Background(), alwaysFail))
	assert.Equal(t, StateClosed, b.State())
}

func TestCallTimeoutCountsAsFailure(t *testing.T) {
	b := New("archive-fetch", WithFailureThreshold(1), WithCallTimeout(20*time.Millisecond))

	err := b.Execute(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StateOpen, b.State())
}

func TestRegistryIsolatesDependencies(t *testing.T) {
	reg := NewRegistry(WithFailureThreshold(1), WithResetTimeout(time.Minute))

	origin := reg.Get("origin-api")
	archive := reg.Get("archive-fetch")
	assert.Same(t, origin, reg.Get("origin-api"))

	trip(t, origin, 1)
	assert.Equal(t, StateOpen, origin.State())
	assert.Equal(t, StateClosed, archive.State())

	snaps := reg.Snapshots()
	assert.Len(t, snaps, 2)
}
