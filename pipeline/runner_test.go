package pipeline

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klappy/translation-helps-core/errors"
	"github.com/klappy/translation-helps-core/index"
)

func TestNewRunnerValidation(t *testing.T) {
	store := newMemStore()
	idx := index.NewMemoryIndex()
	router, _, _ := newTestPipeline(t, store, idx)

	_, err := NewRunner(nil, router, 32, time.Second, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	runner, err := NewRunner(stubFetcher{}, router, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 32, runner.batchSize)
	assert.Equal(t, 5*time.Second, runner.maxWait)
}

type stubFetcher struct{}

func (stubFetcher) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	return nil, errors.ErrNoConnection
}
