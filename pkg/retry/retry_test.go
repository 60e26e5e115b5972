package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastConfig(3), func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var calls int32
	err := Do(context.Background(), fastConfig(5), func() error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("boom")
	var calls int32
	err := Do(context.Background(), fastConfig(3), func() error {
		atomic.AddInt32(&calls, 1)
		return boom
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNonRetryableFailsImmediately(t *testing.T) {
	definitive := errors.New("book not in catalog")
	var calls int32
	err := Do(context.Background(), fastConfig(5), func() error {
		atomic.AddInt32(&calls, 1)
		return NonRetryable(definitive)
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, definitive))
	assert.True(t, IsNonRetryable(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNonRetryableNilIsNil(t *testing.T) {
	assert.Nil(t, NonRetryable(nil))
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int32
	errc := make(chan error, 1)
	go func() {
		errc <- Do(ctx, Config{
			MaxAttempts:  100,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		}, func() error {
			atomic.AddInt32(&calls, 1)
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}

func TestDoWithResult(t *testing.T) {
	var calls int32
	got, err := DoWithResult(context.Background(), fastConfig(3), func() (string, error) {
		if atomic.AddInt32(&calls, 1) < 2 {
			return "", errors.New("transient")
		}
		return "cached", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cached", got)
}

func TestDoValidatesConfig(t *testing.T) {
	err := Do(context.Background(), Config{InitialDelay: -1}, func() error { return nil })
	assert.Error(t, err)

	err = Do(context.Background(), Config{InitialDelay: time.Second, MaxDelay: time.Millisecond}, func() error { return nil })
	assert.Error(t, err)
}
