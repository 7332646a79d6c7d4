package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/models"
	testingutil "github.com/marcoalfans/manud-be/testing"
)

func TestTokenCleanup_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := testingutil.FixedNow
	verifications := testingutil.NewMemoryVerificationTokenRepository()
	sessions := testingutil.NewMemorySessionTokenRepository()

	require.NoError(t, verifications.Save(ctx, &models.VerificationToken{Token: "old", UserID: "u1", Type: models.TokenTypeEmailVerification, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, verifications.Save(ctx, &models.VerificationToken{Token: "fresh", UserID: "u1", Type: models.TokenTypeEmailVerification, ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, sessions.Save(ctx, &models.SessionToken{Token: "s-old", UserID: "u1", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, sessions.Save(ctx, &models.SessionToken{Token: "s-new", UserID: "u1", ExpiresAt: now.Add(time.Hour)}))

	job := NewTokenCleanup(verifications, sessions, logging.Nop(), time.Hour)
	job.now = testingutil.FixedClock
	job.RunOnce(ctx)

	fresh, err := verifications.ActiveByToken(ctx, "fresh", models.TokenTypeEmailVerification, now)
	require.NoError(t, err)
	assert.NotNil(t, fresh)

	n, err := verifications.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n, "expired verification tokens were already removed")

	valid, err := sessions.IsValid(ctx, "u1", "s-new", now)
	require.NoError(t, err)
	assert.True(t, valid)
	n, err = sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTokenCleanup_StartStops(t *testing.T) {
	job := NewTokenCleanup(testingutil.NewMemoryVerificationTokenRepository(), testingutil.NewMemorySessionTokenRepository(), logging.Nop(), time.Millisecond)
	stop := job.Start(context.Background())
	time.Sleep(5 * time.Millisecond)
	stop()
}

type flakyPinger struct{ err error }

func (p *flakyPinger) Ping(context.Context) error { return p.err }

func TestCacheMonitor_Check(t *testing.T) {
	cache := &flakyPinger{}
	m := NewCacheMonitor(cache, logging.Nop(), time.Minute)

	assert.True(t, m.Check(context.Background()))
	cache.err = errors.New("dial tcp: connection refused")
	assert.False(t, m.Check(context.Background()))
	cache.err = nil
	assert.True(t, m.Check(context.Background()))
}
