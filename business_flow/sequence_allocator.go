package businessflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marcoalfans/manud-be/models"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// SequenceAllocator hands out strictly increasing ids per named counter.
type SequenceAllocator interface {
	// Allocate returns the next id. A lost race retries the whole read-modify-write;
	// when the retry budget runs out the conflict is returned and nothing is written.
	Allocate(ctx context.Context, name string) (int64, error)
	// EnsureAtLeast raises the counter to floor if it is lower.
	EnsureAtLeast(ctx context.Context, name string, floor int64) error
}

// AllocatorOptions bound the conflict retry loop
type AllocatorOptions struct {
	MaxRetries      int
	InitialInterval time.Duration
}

type SequenceAllocatorImpl struct {
	counters repository.CounterRepository
	opts     AllocatorOptions
	now      utils.Clock
}

func NewSequenceAllocator(counters repository.CounterRepository, opts AllocatorOptions, now utils.Clock) *SequenceAllocatorImpl {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 10
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 5 * time.Millisecond
	}
	if now == nil {
		now = utils.SystemClock
	}
	return &SequenceAllocatorImpl{counters: counters, opts: opts, now: now}
}

func (a *SequenceAllocatorImpl) Allocate(ctx context.Context, name string) (int64, error) {
	var next int64
	err := a.retry(ctx, name, func() error {
		current, exists, err := a.read(ctx, name)
		if err != nil {
			return err
		}
		next = current + 1
		return a.write(ctx, name, exists, current, next)
	})
	if err != nil {
		return 0, fmt.Errorf("allocate %q: %w", name, err)
	}
	sequenceAllocations.WithLabelValues(name).Inc()
	return next, nil
}

func (a *SequenceAllocatorImpl) EnsureAtLeast(ctx context.Context, name string, floor int64) error {
	err := a.retry(ctx, name, func() error {
		current, exists, err := a.read(ctx, name)
		if err != nil {
			return err
		}
		if exists && current >= floor {
			return nil
		}
		return a.write(ctx, name, exists, current, floor)
	})
	if err != nil {
		return fmt.Errorf("raise %q to %d: %w", name, floor, err)
	}
	return nil
}

func (a *SequenceAllocatorImpl) read(ctx context.Context, name string) (int64, bool, error) {
	counter, err := a.counters.ByName(ctx, name)
	if err != nil {
		return 0, false, backoff.Permanent(err)
	}
	if counter == nil {
		return 0, false, nil
	}
	return counter.Seq, true, nil
}

func (a *SequenceAllocatorImpl) write(ctx context.Context, name string, exists bool, current, next int64) error {
	now := a.now().UTC()
	var err error
	if exists {
		err = a.counters.CompareAndSwap(ctx, name, current, next, now)
	} else {
		err = a.counters.Insert(ctx, &models.Counter{Name: name, Seq: next, CreatedAt: now, UpdatedAt: now})
	}
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return backoff.Permanent(err)
	}
	return err
}

// retry reruns op on repository.ErrConflict only.
func (a *SequenceAllocatorImpl) retry(ctx context.Context, name string, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = a.opts.InitialInterval
	policy.MaxInterval = 50 * a.opts.InitialInterval

	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(a.opts.MaxRetries)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if errors.Is(err, repository.ErrConflict) {
			sequenceConflicts.WithLabelValues(name).Inc()
		}
		return err
	}, b)
}
