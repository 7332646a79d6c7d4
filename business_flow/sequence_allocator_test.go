package businessflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
	testingutil "github.com/marcoalfans/manud-be/testing"
)

func newTestAllocator(counters repository.CounterRepository, retries int) *SequenceAllocatorImpl {
	return NewSequenceAllocator(counters, AllocatorOptions{MaxRetries: retries, InitialInterval: time.Microsecond}, testingutil.FixedClock)
}

func TestSequenceAllocator_FirstAllocation(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	alloc := newTestAllocator(counters, 3)

	id, err := alloc.Allocate(context.Background(), "umkm")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	c, err := counters.ByName(context.Background(), "umkm")
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.Seq)
	assert.Equal(t, testingutil.FixedNow, c.CreatedAt)
}

func TestSequenceAllocator_IncrementsExisting(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	counters.Set("destinations", 5)
	alloc := newTestAllocator(counters, 3)

	id, err := alloc.Allocate(context.Background(), "destinations")
	require.NoError(t, err)
	assert.Equal(t, int64(6), id)
}

func TestSequenceAllocator_RetriesLostRace(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	counters.Set("umkm", 5)

	raced := false
	counters.BeforeCompareAndSwap = func(name string) {
		if !raced {
			raced = true
			counters.Set(name, 9)
		}
	}

	id, err := newTestAllocator(counters, 3).Allocate(context.Background(), "umkm")
	require.NoError(t, err)
	assert.Equal(t, int64(10), id)
}

func TestSequenceAllocator_ExhaustedBudgetPropagatesConflict(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	counters.Set("umkm", 1)

	seq := int64(1)
	counters.BeforeCompareAndSwap = func(name string) {
		seq++
		counters.Set(name, seq)
	}

	_, err := newTestAllocator(counters, 2).Allocate(context.Background(), "umkm")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrConflict))
}

type failingCounters struct {
	repository.CounterRepository
}

func (failingCounters) ByName(context.Context, string) (*models.Counter, error) {
	return nil, errors.New("connection refused")
}

func TestSequenceAllocator_StoreErrorIsNotRetried(t *testing.T) {
	_, err := newTestAllocator(failingCounters{}, 5).Allocate(context.Background(), "umkm")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, errors.Is(err, repository.ErrConflict))
}

func TestSequenceAllocator_ConcurrentAllocationsAreDistinct(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	alloc := newTestAllocator(counters, 1000)

	const workers = 16
	const perWorker = 20

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = make(map[int64]struct{})
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWorker {
				id, err := alloc.Allocate(context.Background(), "umkm")
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				ids[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, ids, workers*perWorker)
	for i := int64(1); i <= workers*perWorker; i++ {
		assert.Contains(t, ids, i)
	}
}

func TestSequenceAllocator_SurvivesRestart(t *testing.T) {
	counters := testingutil.NewMemoryCounterRepository()
	first, err := newTestAllocator(counters, 3).Allocate(context.Background(), "umkm")
	require.NoError(t, err)

	second, err := newTestAllocator(counters, 3).Allocate(context.Background(), "umkm")
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestSequenceAllocator_EnsureAtLeast(t *testing.T) {
	ctx := context.Background()
	counters := testingutil.NewMemoryCounterRepository()
	alloc := newTestAllocator(counters, 3)

	require.NoError(t, alloc.EnsureAtLeast(ctx, "destinations", 40))
	require.NoError(t, alloc.EnsureAtLeast(ctx, "destinations", 12))

	id, err := alloc.Allocate(ctx, "destinations")
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)
}
