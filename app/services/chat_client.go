package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/marcoalfans/manud-be/logging"
)

// Chat roles as the generative API names them
const (
	ChatRoleUser  = "user"
	ChatRoleModel = "model"
)

// ErrChatUpstream marks failures of the generative API.
var ErrChatUpstream = errors.New("chat upstream failure")

// ChatMessage is one turn of a conversation.
type ChatMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// ChatClient sends a prompt with prior history and returns the raw model reply.
type ChatClient interface {
	Generate(ctx context.Context, history []ChatMessage, prompt string) (string, error)
}

// GeminiOptions configures the generateContent client
type GeminiOptions struct {
	APIKey            string
	Endpoint          string
	Model             string
	MaxOutputTokens   int
	Timeout           time.Duration
	RetryAttempts     int
	RetryInitialDelay time.Duration
	RequestsPerSecond float64
	Burst             int
}

// GeminiClient calls the generateContent REST endpoint.
type GeminiClient struct {
	opts    GeminiOptions
	client  *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
}

func NewGeminiClient(opts GeminiOptions, log logging.Logger) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if opts.Endpoint == "" {
		opts.Endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}
	if opts.Model == "" {
		opts.Model = "gemini-1.5-flash"
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = 500
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}
	if opts.RetryInitialDelay <= 0 {
		opts.RetryInitialDelay = 500 * time.Millisecond
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := max(opts.Burst, 1)

	return &GeminiClient{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, burst),
		logger:  log,
	}, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		MaxOutputTokens int `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate retries transport errors, 429 and 5xx with exponential backoff.
func (c *GeminiClient) Generate(ctx context.Context, history []ChatMessage, prompt string) (string, error) {
	body := geminiRequest{Contents: make([]geminiContent, 0, len(history)+1)}
	for _, m := range history {
		body.Contents = append(body.Contents, geminiContent{Role: m.Role, Parts: []geminiPart{{Text: m.Text}}})
	}
	body.Contents = append(body.Contents, geminiContent{Role: ChatRoleUser, Parts: []geminiPart{{Text: prompt}}})
	body.GenerationConfig.MaxOutputTokens = c.opts.MaxOutputTokens

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.opts.RetryInitialDelay
	retry := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.opts.RetryAttempts-1)), ctx)

	var reply string
	err = backoff.Retry(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		text, err := c.call(ctx, payload)
		if err != nil {
			c.logger.Warn("Chat request failed", "error", err)
			return err
		}
		reply = text
		return nil
	}, retry)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatUpstream, err)
	}
	return reply, nil
}

func (c *GeminiClient) call(ctx context.Context, payload []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(c.opts.Endpoint, "/"), url.PathEscape(c.opts.Model), url.QueryEscape(c.opts.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	var decoded geminiResponse
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := fmt.Errorf("generateContent http status: %d", resp.StatusCode)
		if decoded.Error != nil {
			statusErr = fmt.Errorf("generateContent http status %d: %s", resp.StatusCode, decoded.Error.Message)
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", statusErr
		}
		return "", backoff.Permanent(statusErr)
	}

	if len(decoded.Candidates) == 0 {
		return "", backoff.Permanent(fmt.Errorf("generateContent returned no candidates"))
	}
	var b strings.Builder
	for _, part := range decoded.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
