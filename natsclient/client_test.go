package natsclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/klappy/translation-helps-core/errors"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	assert.NoError(t, err)

	assert.NotNil(t, client)
	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

func TestConnectionOptions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithMaxReconnects(10),
		WithReconnectWait(5*time.Second),
		WithPingInterval(30*time.Second),
		WithName("helpsd"),
		WithTimeout(time.Second),
		WithDrainTimeout(2*time.Second),
	)
	assert.NoError(t, err)

	assert.Equal(t, 10, client.maxReconnects)
	assert.Equal(t, 5*time.Second, client.reconnectWait)
	assert.Equal(t, 30*time.Second, client.pingInterval)
	assert.Equal(t, "helpsd", client.clientName)
	assert.Equal(t, time.Second, client.timeout)
	assert.Equal(t, 2*time.Second, client.drainTimeout)
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{ConnectionStatus(99), "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.status.String())
	}
}

func TestStatusTransitions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	client.setStatus(StatusConnecting)
	assert.Equal(t, StatusConnecting, client.Status())

	client.setStatus(StatusConnected)
	assert.Equal(t, StatusConnected, client.Status())

	client.setStatus(StatusReconnecting)
	assert.Equal(t, StatusReconnecting, client.Status())
}

func TestConcurrentStatusAccess(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				client.setStatus(StatusConnected)
				_ = client.Status()
				_ = client.GetStatus()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, StatusConnected, client.Status())
}

func TestOperationsWhenNotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	ctx := context.Background()

	err = client.Publish(ctx, "test.subject", []byte("data"))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.JetStream()
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.True(t, errors.IsTransient(err))

	_, err = client.CreateStream(ctx, jetstream.StreamConfig{Name: "test"})
	assert.ErrorIs(t, err, ErrNotConnected)

	err = client.PublishToStream(ctx, "test.subject", []byte("data"))
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.CreateConsumer(ctx, "test", jetstream.ConsumerConfig{})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "test"})
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.CreateObjectStoreBucket(ctx, jetstream.ObjectStoreConfig{Bucket: "test"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnectFailsWithInvalidHost(t *testing.T) {
	client, err := NewClient("nats://invalid-host:4222",
		WithMaxReconnects(0),
		WithTimeout(500*time.Millisecond),
	)
	require.NoError(t, err)

	err = client.Connect(context.Background())
	assert.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestConnectRespectsContextCancellation(t *testing.T) {
	client, err := NewClient("nats://192.0.2.1:4222", // TEST-NET, never routable
		WithMaxReconnects(0),
		WithTimeout(10*time.Second),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = client.Connect(ctx)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCloseIsIdempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()
	assert.NoError(t, client.Close(ctx))
	assert.NoError(t, client.Close(ctx))
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestGetStatus(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	status := client.GetStatus()
	require.NotNil(t, status)
	assert.Equal(t, StatusDisconnected, status.Status)
	assert.Equal(t, int32(0), status.Reconnects)
	assert.Zero(t, status.RTT)
}

func TestHealthChangeCallback(t *testing.T) {
	var healthEvents []bool
	var mu sync.Mutex

	client, err := NewClient("nats://localhost:4222",
		WithHealthChangeCallback(func(healthy bool) {
			mu.Lock()
			healthEvents = append(healthEvents, healthy)
			mu.Unlock()
		}),
	)
	require.NoError(t, err)

	client.handleDisconnect(nil, nil)
	client.handleReconnect(nil)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{false, true}, healthEvents)
	assert.Equal(t, int32(1), client.reconnects.Load())
}

func TestRoundTripWithRealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	natsContainer, natsURL := startTestNATSContainerWithJS(ctx, t)
	defer natsContainer.Terminate(ctx)

	client, err := NewClient(natsURL,
		WithMaxReconnects(0), // No reconnects in tests
	)
	require.NoError(t, err)

	err = client.Connect(ctx)
	require.NoError(t, err)
	defer client.Close(ctx)

	assert.True(t, client.IsHealthy())
	assert.Equal(t, StatusConnected, client.Status())

	// Stream plus durable consumer, the shape the extraction pipeline uses.
	_, err = client.CreateStream(ctx, jetstream.StreamConfig{
		Name:     "UNIT_TEST",
		Subjects: []string{"unit.test.*"},
	})
	require.NoError(t, err)

	err = client.PublishToStream(ctx, "unit.test.data", []byte("test message"))
	require.NoError(t, err)

	consumer, err := client.CreateConsumer(ctx, "UNIT_TEST", jetstream.ConsumerConfig{
		Durable:   "unit-test",
		AckPolicy: jetstream.AckExplicitPolicy,
	})
	require.NoError(t, err)

	batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(2*time.Second))
	require.NoError(t, err)
	for msg := range batch.Messages() {
		assert.Equal(t, []byte("test message"), msg.Data())
		require.NoError(t, msg.Ack())
	}

	// KV and ObjectStore buckets
	kv, err := client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "unit_test_bucket"})
	require.NoError(t, err)
	_, err = kv.Put(ctx, "test-key", []byte("test-value"))
	require.NoError(t, err)
	entry, err := kv.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, []byte("test-value"), entry.Value())

	// Opening an existing bucket must not fail.
	_, err = client.CreateKeyValueBucket(ctx, jetstream.KeyValueConfig{Bucket: "unit_test_bucket"})
	require.NoError(t, err)

	os, err := client.CreateObjectStoreBucket(ctx, jetstream.ObjectStoreConfig{Bucket: "unit_test_objects"})
	require.NoError(t, err)
	_, err = os.PutBytes(ctx, "test-object", []byte("payload"))
	require.NoError(t, err)
	data, err := os.GetBytes(ctx, "test-object")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)
}

// Helper function to start NATS container with JetStream for unit tests
func startTestNATSContainerWithJS(ctx context.Context, t *testing.T) (testcontainers.Container, string) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "nats:2.11.7-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForListeningPort("4222/tcp"),
		Cmd:          []string{"--js"}, // Enable JetStream
	}

	natsContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := natsContainer.Host(ctx)
	require.NoError(t, err)

	port, err := natsContainer.MappedPort(ctx, "4222")
	require.NoError(t, err)

	natsURL := fmt.Sprintf("nats://%s:%s", host, port.Port())
	return natsContainer, natsURL
}
