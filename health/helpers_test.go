package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusConstructors(t *testing.T) {
	healthy := NewHealthy("cache", "warm")
	assert.True(t, healthy.IsHealthy())
	assert.Equal(t, "cache", healthy.Component)
	assert.Equal(t, "warm", healthy.Message)
	assert.False(t, healthy.Timestamp.IsZero())

	unhealthy := NewUnhealthy("nats", "connection lost")
	assert.True(t, unhealthy.IsUnhealthy())
	assert.False(t, unhealthy.Healthy)

	degraded := NewDegraded("origin", "circuit open")
	assert.True(t, degraded.IsDegraded())
	assert.False(t, degraded.Healthy)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name        string
		subStatuses []Status
		wantStatus  string
	}{
		{
			name:        "empty aggregates healthy",
			subStatuses: nil,
			wantStatus:  "healthy",
		},
		{
			name: "all healthy",
			subStatuses: []Status{
				{Status: "healthy", Component: "nats"},
				{Status: "healthy", Component: "breaker:origin-api"},
			},
			wantStatus: "healthy",
		},
		{
			name: "any unhealthy wins",
			subStatuses: []Status{
				{Status: "healthy", Component: "breaker:origin-api"},
				{Status: "unhealthy", Component: "nats"},
			},
			wantStatus: "unhealthy",
		},
		{
			name: "degraded without unhealthy",
			subStatuses: []Status{
				{Status: "healthy", Component: "nats"},
				{Status: "degraded", Component: "breaker:origin-api"},
			},
			wantStatus: "degraded",
		},
		{
			name: "unhealthy beats degraded",
			subStatuses: []Status{
				{Status: "degraded", Component: "breaker:origin-api"},
				{Status: "unhealthy", Component: "nats"},
			},
			wantStatus: "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Aggregate("helpsd", tt.subStatuses)

			assert.Equal(t, "helpsd", result.Component)
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Len(t, result.SubStatuses, len(tt.subStatuses))
			assert.False(t, result.Timestamp.IsZero())
		})
	}
}

func TestAggregateSortsSubStatuses(t *testing.T) {
	result := Aggregate("helpsd", []Status{
		{Status: "healthy", Component: "nats"},
		{Status: "healthy", Component: "breaker:archive-fetch"},
		{Status: "healthy", Component: "cache"},
	})

	require.Len(t, result.SubStatuses, 3)
	assert.Equal(t, "breaker:archive-fetch", result.SubStatuses[0].Component)
	assert.Equal(t, "cache", result.SubStatuses[1].Component)
	assert.Equal(t, "nats", result.SubStatuses[2].Component)
}

func TestAggregateDoesNotModifyInput(t *testing.T) {
	original := []Status{
		{Status: "healthy", Component: "nats"},
		{Status: "unhealthy", Component: "cache"},
	}

	result := Aggregate("helpsd", original)

	// Input order survives; only the copy is sorted.
	assert.Equal(t, "nats", original[0].Component)
	assert.Equal(t, "cache", original[1].Component)

	result.SubStatuses[0].Component = "modified"
	assert.NotEqual(t, "modified", original[0].Component)
	assert.NotEqual(t, "modified", original[1].Component)
}

func TestHelperTimestamps(t *testing.T) {
	before := time.Now()
	statuses := []Status{
		NewHealthy("cache", "warm"),
		NewUnhealthy("nats", "down"),
		NewDegraded("origin", "slow"),
		Aggregate("helpsd", []Status{NewHealthy("cache", "warm")}),
	}
	after := time.Now()

	for _, status := range statuses {
		assert.False(t, status.Timestamp.Before(before))
		assert.False(t, status.Timestamp.After(after))
	}
}
