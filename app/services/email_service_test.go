package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcoalfans/manud-be/logging"
)

type fakeProvider struct {
	mu       sync.Mutex
	failures int
	sent     []Mail
	calls    int
}

func (p *fakeProvider) Send(ctx context.Context, m Mail) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("attempt without deadline")
	}
	if p.failures > 0 {
		p.failures--
		return errors.New("smtp unavailable")
	}
	p.sent = append(p.sent, m)
	return nil
}

func newTestEmailService(p EmailProvider, attempts int) EmailService {
	return NewEmailService(p, EmailOptions{
		BaseURL:           "https://manud.example/",
		RetryAttempts:     attempts,
		RetryInitialDelay: time.Millisecond,
		AttemptTimeout:    time.Second,
	}, logging.Nop())
}

func TestSendVerificationEmail(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestEmailService(p, 3)

	require.NoError(t, svc.SendVerificationEmail(context.Background(), "a@example.com", "abc123", "Ana"))
	require.Len(t, p.sent, 1)

	m := p.sent[0]
	assert.Equal(t, "a@example.com", m.To)
	assert.Equal(t, "Verify Your Email - ManudBE", m.Subject)
	assert.Contains(t, m.HTML, "Hi Ana,")
	assert.Contains(t, m.HTML, "https://manud.example/auth/verify-email?token=abc123")
	assert.Contains(t, m.HTML, "This link will expire in 24 hours.")
}

func TestSendPasswordResetEmailEscapesName(t *testing.T) {
	p := &fakeProvider{}
	svc := newTestEmailService(p, 1)

	require.NoError(t, svc.SendPasswordResetEmail(context.Background(), "a@example.com", "tok", "<b>Ana</b>"))
	m := p.sent[0]
	assert.Equal(t, "Password Reset - ManudBE", m.Subject)
	assert.Contains(t, m.HTML, "https://manud.example/auth/reset-password?token=tok")
	assert.Contains(t, m.HTML, "This link will expire in 1 hour.")
	assert.NotContains(t, m.HTML, "<b>Ana</b>")
}

func TestEmailRetriesThenSucceeds(t *testing.T) {
	p := &fakeProvider{failures: 2}
	svc := newTestEmailService(p, 3)

	require.NoError(t, svc.SendVerificationEmail(context.Background(), "a@example.com", "t", "Ana"))
	assert.Equal(t, 3, p.calls)
}

func TestEmailGivesUpAfterBudget(t *testing.T) {
	p := &fakeProvider{failures: 5}
	svc := newTestEmailService(p, 2)

	err := svc.SendVerificationEmail(context.Background(), "a@example.com", "t", "Ana")
	assert.Error(t, err)
	assert.Equal(t, 2, p.calls)
}

func TestEmailDisabledWithoutProvider(t *testing.T) {
	svc := newTestEmailService(nil, 3)
	assert.False(t, svc.Enabled())
	assert.ErrorIs(t, svc.SendVerificationEmail(context.Background(), "a@example.com", "t", "Ana"), ErrEmailNotConfigured)
}

func TestBuildMIMEMessage(t *testing.T) {
	p, err := NewSMTPProvider(SMTPConfig{Host: "smtp.example.com", Username: "bot@example.com", FromName: "ManudBE API"})
	require.NoError(t, err)

	raw := string(buildMIMEMessage(p.from.String(), Mail{To: "a@example.com", Subject: "Hi", HTML: "<p>x</p>"}))
	assert.Contains(t, raw, "From: \"ManudBE API\" <bot@example.com>\r\n")
	assert.Contains(t, raw, "Content-Type: text/html; charset=UTF-8\r\n\r\n<p>x</p>")
}
