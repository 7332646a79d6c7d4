// Package scheduler runs periodic background maintenance
package scheduler

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

var tokensPurged = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "manud",
		Name:      "expired_tokens_purged_total",
		Help:      "Expired verification and session tokens removed by the cleanup job",
	},
	[]string{"kind"},
)

// TokenCleanup periodically deletes expired verification and session tokens
type TokenCleanup struct {
	verifications repository.VerificationTokenRepository
	sessions      repository.SessionTokenRepository
	logger        logging.Logger
	interval      time.Duration
	now           utils.Clock
}

func NewTokenCleanup(
	verifications repository.VerificationTokenRepository,
	sessions repository.SessionTokenRepository,
	log logging.Logger,
	interval time.Duration,
) *TokenCleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	return &TokenCleanup{
		verifications: verifications,
		sessions:      sessions,
		logger:        log.With("component", "token_cleanup"),
		interval:      interval,
		now:           utils.SystemClock,
	}
}

// Start launches the cleanup loop in a background goroutine and returns a stop function
func (s *TokenCleanup) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// RunOnce performs a single sweep. Failures are logged and retried on the next tick.
func (s *TokenCleanup) RunOnce(ctx context.Context) {
	now := s.now().UTC()

	if n, err := s.verifications.DeleteExpired(ctx, now); err != nil {
		s.logger.Error("Failed to delete expired verification tokens", "error", err)
	} else if n > 0 {
		tokensPurged.WithLabelValues("verification").Add(float64(n))
		s.logger.Info("Deleted expired verification tokens", "count", n)
	}

	if n, err := s.sessions.DeleteExpired(ctx, now); err != nil {
		s.logger.Error("Failed to delete expired session tokens", "error", err)
	} else if n > 0 {
		tokensPurged.WithLabelValues("session").Add(float64(n))
		s.logger.Info("Deleted expired session tokens", "count", n)
	}
}
