package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/repository"
)

var cacheUp = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "manud",
	Name:      "cache_up",
	Help:      "1 when the last cache ping succeeded",
})

// CacheMonitor pings the cache on an interval and logs only state changes.
type CacheMonitor struct {
	cache    repository.Pinger
	logger   logging.Logger
	interval time.Duration
	timeout  time.Duration
	healthy  atomic.Bool
}

func NewCacheMonitor(cache repository.Pinger, log logging.Logger, interval time.Duration) *CacheMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	m := &CacheMonitor{
		cache:    cache,
		logger:   log.With("component", "cache_monitor"),
		interval: interval,
		timeout:  3 * time.Second,
	}
	m.healthy.Store(true)
	cacheUp.Set(1)
	return m
}

// Start launches the monitor and returns a stop function
func (m *CacheMonitor) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
	return cancel
}

// Check pings once and reports whether the cache answered.
func (m *CacheMonitor) Check(ctx context.Context) bool {
	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.cache.Ping(pingCtx)
	ok := err == nil
	if was := m.healthy.Swap(ok); was != ok {
		if ok {
			m.logger.Info("Cache connection recovered")
		} else {
			m.logger.Error("Cache healthcheck failed", "error", err)
		}
	}
	if ok {
		cacheUp.Set(1)
	} else {
		cacheUp.Set(0)
	}
	return ok
}
