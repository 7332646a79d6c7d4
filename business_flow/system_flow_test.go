package businessflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingutil "github.com/marcoalfans/manud-be/testing"
)

func TestSystemFlow_Health(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	flow := NewSystemFlow([]HealthCheck{
		{Name: "database", Check: testingutil.PassthroughTx{}},
		{Name: "cache", Check: testingutil.PassthroughTx{PingErr: errors.New("connection refused")}},
	}, counters, newTestAllocator(counters, 3), "postgres", "1.0.0", testingutil.FixedClock)

	resp := flow.Health(context.Background())
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "up", resp.Checks["database"].Status)
	assert.Equal(t, "down", resp.Checks["cache"].Status)
	assert.Equal(t, "connection refused", resp.Checks["cache"].Error)
	assert.Equal(t, testingutil.FixedNow, resp.Timestamp)

	healthy := NewSystemFlow([]HealthCheck{{Name: "database", Check: testingutil.PassthroughTx{}}},
		counters, newTestAllocator(counters, 3), "postgres", "1.0.0", testingutil.FixedClock)
	assert.Equal(t, "healthy", healthy.Health(context.Background()).Status)
}

func TestSystemFlow_ProbeStore(t *testing.T) {
	ctx := context.Background()
	counters := testingutil.NewMemoryCounterRepository()
	flow := NewSystemFlow(nil, counters, newTestAllocator(counters, 3), "mongodb", "1.0.0", testingutil.FixedClock)

	first, err := flow.ProbeStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mongodb", first.Backend)
	assert.Equal(t, int64(1), first.ProbeSeq)

	second, err := flow.ProbeStore(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.ProbeSeq)

	assert.Equal(t, "Welcome to ManudBE API - Your Travel Companion Backend Service", flow.Welcome().Message)
}
