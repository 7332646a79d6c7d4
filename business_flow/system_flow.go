package businessflow

import (
	"context"
	"errors"
	"time"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/repository"
	"github.com/marcoalfans/manud-be/utils"
)

// ProbeCounter is exercised by the store probe; it never names a real collection.
const ProbeCounter = "__probe"

// SystemFlow reports service health
type SystemFlow interface {
	Welcome() *dto.WelcomeResponse
	Health(ctx context.Context) *dto.HealthResponse
	ProbeStore(ctx context.Context) (*dto.StoreProbeResponse, error)
}

// HealthCheck is one named dependency probe.
type HealthCheck struct {
	Name  string
	Check repository.Pinger
}

type SystemFlowImpl struct {
	checks    []HealthCheck
	counters  repository.CounterRepository
	allocator SequenceAllocator
	backend   string
	version   string
	now       utils.Clock
}

func NewSystemFlow(checks []HealthCheck, counters repository.CounterRepository, allocator SequenceAllocator, backend, version string, now utils.Clock) SystemFlow {
	if now == nil {
		now = utils.SystemClock
	}
	return &SystemFlowImpl{
		checks:    checks,
		counters:  counters,
		allocator: allocator,
		backend:   backend,
		version:   version,
		now:       now,
	}
}

func (f *SystemFlowImpl) Welcome() *dto.WelcomeResponse {
	return &dto.WelcomeResponse{
		Status:      200,
		Message:     "Welcome to ManudBE API - Your Travel Companion Backend Service",
		Description: "A comprehensive backend API for travel and destination management",
		Version:     "1.0.0",
		Endpoints: map[string]string{
			"auth":         "/api/v1/auth",
			"users":        "/api/v1/users",
			"destinations": "/api/v1/destinations",
			"umkm":         "/api/v1/umkm",
			"chatbot":      "/api/v1/chatbot",
		},
		Documentation: "See /swagger/doc.json for the complete API documentation",
	}
}

// Health is unhealthy when any check fails.
func (f *SystemFlowImpl) Health(ctx context.Context) *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Status:    "healthy",
		Timestamp: f.now().UTC(),
		Version:   f.version,
		Checks:    make(map[string]dto.ComponentHealth, len(f.checks)),
	}
	for _, c := range f.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := c.Check.Ping(checkCtx)
		cancel()
		if err != nil {
			resp.Status = "unhealthy"
			resp.Checks[c.Name] = dto.ComponentHealth{Status: "down", Error: err.Error()}
			continue
		}
		resp.Checks[c.Name] = dto.ComponentHealth{Status: "up"}
	}
	return resp
}

// ProbeStore allocates from the probe counter and reads it back.
func (f *SystemFlowImpl) ProbeStore(ctx context.Context) (*dto.StoreProbeResponse, error) {
	seq, err := f.allocator.Allocate(ctx, ProbeCounter)
	if err != nil {
		return nil, NewBusinessError("STORE_PROBE_FAILED", "Store write failed", errors.Join(ErrStoreUnavailable, err))
	}
	counter, err := f.counters.ByName(ctx, ProbeCounter)
	if err != nil {
		return nil, NewBusinessError("STORE_PROBE_FAILED", "Store read failed", errors.Join(ErrStoreUnavailable, err))
	}
	if counter == nil || counter.Seq < seq {
		return nil, NewBusinessError("STORE_PROBE_FAILED", "Store read returned a stale counter", ErrStoreUnavailable)
	}
	return &dto.StoreProbeResponse{Backend: f.backend, ProbeSeq: counter.Seq, Timestamp: f.now().UTC()}, nil
}
