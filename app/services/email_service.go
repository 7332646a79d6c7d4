package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/marcoalfans/manud-be/logging"
)

// ErrEmailNotConfigured is returned when no SMTP credentials are set.
var ErrEmailNotConfigured = errors.New("email service not configured")

// Mail is a single HTML message.
type Mail struct {
	To      string
	Subject string
	HTML    string
}

// EmailProvider delivers one message; ctx bounds the attempt.
type EmailProvider interface {
	Send(ctx context.Context, m Mail) error
}

// EmailService renders and delivers account emails
type EmailService interface {
	Enabled() bool
	SendVerificationEmail(ctx context.Context, email, token, name string) error
	SendPasswordResetEmail(ctx context.Context, email, token, name string) error
}

// EmailOptions configures retries and links
type EmailOptions struct {
	BaseURL           string
	RetryAttempts     int
	RetryInitialDelay time.Duration
	AttemptTimeout    time.Duration
}

// EmailServiceImpl retries each send with exponential backoff
type EmailServiceImpl struct {
	provider EmailProvider
	opts     EmailOptions
	logger   logging.Logger
}

// NewEmailService creates an email service. A nil provider disables sending.
func NewEmailService(provider EmailProvider, opts EmailOptions, log logging.Logger) EmailService {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryInitialDelay <= 0 {
		opts.RetryInitialDelay = time.Second
	}
	if opts.AttemptTimeout <= 0 {
		opts.AttemptTimeout = 10 * time.Second
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &EmailServiceImpl{provider: provider, opts: opts, logger: log}
}

func (s *EmailServiceImpl) Enabled() bool { return s.provider != nil }

func (s *EmailServiceImpl) SendVerificationEmail(ctx context.Context, email, token, name string) error {
	link := s.opts.BaseURL + "/auth/verify-email?token=" + token
	body, err := render(verificationTemplate, emailData{Name: name, Link: link})
	if err != nil {
		return err
	}
	return s.send(ctx, Mail{To: email, Subject: "Verify Your Email - ManudBE", HTML: body})
}

func (s *EmailServiceImpl) SendPasswordResetEmail(ctx context.Context, email, token, name string) error {
	link := s.opts.BaseURL + "/auth/reset-password?token=" + token
	body, err := render(passwordResetTemplate, emailData{Name: name, Link: link})
	if err != nil {
		return err
	}
	return s.send(ctx, Mail{To: email, Subject: "Password Reset - ManudBE", HTML: body})
}

func (s *EmailServiceImpl) send(ctx context.Context, m Mail) error {
	if s.provider == nil {
		s.logger.Warn("Email service not available - skipping email send", "subject", m.Subject)
		return ErrEmailNotConfigured
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.opts.RetryInitialDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(s.opts.RetryAttempts-1)), ctx)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, s.opts.AttemptTimeout)
		defer cancel()

		if err := s.provider.Send(attemptCtx, m); err != nil {
			s.logger.Warn("Email send attempt failed", "to", m.To, "attempt", attempt, "error", err)
			return err
		}
		return nil
	}, retry)
	if err != nil {
		return fmt.Errorf("failed to send %q after %d attempts: %w", m.Subject, attempt, err)
	}

	s.logger.Info("Email sent", "to", m.To, "subject", m.Subject)
	return nil
}

type emailData struct {
	Name string
	Link string
}

func render(t *template.Template, data emailData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

var verificationTemplate = template.Must(template.New("verify").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Welcome to ManudBE!</h2>
  <p>Hi {{.Name}},</p>
  <p>Thank you for registering with ManudBE. Please verify your email address by clicking the button below:</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Verify Email Address</a>
  </div>
  <p>Or copy and paste this link in your browser:</p>
  <p style="word-break: break-all;">{{.Link}}</p>
  <p>This link will expire in 24 hours.</p>
  <hr style="margin: 30px 0;">
  <p style="color: #666; font-size: 12px;">If you didn't create an account with ManudBE, please ignore this email.</p>
</div>`))

var passwordResetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <h2 style="color: #333;">Password Reset Request</h2>
  <p>Hi {{.Name}},</p>
  <p>We received a request to reset your password for your ManudBE account.</p>
  <div style="text-align: center; margin: 30px 0;">
    <a href="{{.Link}}" style="background-color: #dc3545; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Reset Password</a>
  </div>
  <p>Or copy and paste this link in your browser:</p>
  <p style="word-break: break-all;">{{.Link}}</p>
  <p>This link will expire in 1 hour.</p>
  <hr style="margin: 30px 0;">
  <p style="color: #666; font-size: 12px;">If you didn't request a password reset, please ignore this email.</p>
</div>`))

// SMTPConfig configures the SMTP provider.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPProvider sends mail over SMTP with STARTTLS, or implicit TLS on port 465.
type SMTPProvider struct {
	cfg  SMTPConfig
	from mail.Address
}

// NewSMTPProvider creates an SMTP provider.
func NewSMTPProvider(cfg SMTPConfig) (*SMTPProvider, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.Port <= 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if _, err := mail.ParseAddress(cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender address: %w", err)
	}
	return &SMTPProvider{cfg: cfg, from: mail.Address{Name: cfg.FromName, Address: cfg.From}}, nil
}

// Send dials, authenticates and delivers within the deadline of ctx.
func (p *SMTPProvider) Send(ctx context.Context, m Mail) error {
	addr := net.JoinHostPort(p.cfg.Host, fmt.Sprint(p.cfg.Port))

	var conn net.Conn
	var err error
	if p.cfg.Port == 465 {
		dialer := &tls.Dialer{Config: &tls.Config{ServerName: p.cfg.Host}}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, p.cfg.Host)
	if err != nil {
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: p.cfg.Host}); err != nil {
			return err
		}
	}
	if p.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)); err != nil {
			return err
		}
	}
	if err := client.Mail(p.from.Address); err != nil {
		return err
	}
	if err := client.Rcpt(m.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(buildMIMEMessage(p.from.String(), m)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMIMEMessage(from string, m Mail) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + m.To + "\r\n")
	b.WriteString("Subject: " + m.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(m.HTML)
	return []byte(b.String())
}
