package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/summa/internal/redact"
	"github.com/phrazzld/summa/internal/summarizer"
	"golang.org/x/time/rate"
)

// Defaults for the Groq endpoint.
const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama3-8b-8192"
	DefaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an error response is kept in the error.
	maxErrorBody = 512
)

// Common errors returned by the Client.
var (
	ErrMissingAPIKey = errors.New("groq API key cannot be empty")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrNoChoices     = errors.New("completion response has no choices")
)

// Config holds the settings of a Client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute throttles outgoing requests. Zero disables throttling.
	RequestsPerMinute int
	// HTTPClient overrides the HTTP client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is a summarizer.Completer backed by Groq chat completions.
type Client struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a Client from cfg, applying defaults for empty fields.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}

	return &Client{
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		url:        strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions",
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger.With("component", "groq_client", "model", cfg.Model),
	}, nil
}

// Complete sends one chat completion request and returns the content of the
// first choice. A 429 response yields a *summarizer.RateLimitError carrying
// the Retry-After hint.
func (c *Client) Complete(ctx context.Context, req summarizer.Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter wait: %w", err)
	}

	body := chatRequest{
		Model:    c.model,
		Messages: req.Messages,
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "completion response received",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"json_mode", req.JSON)

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &summarizer.RateLimitError{
			RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			Message:    errorMessage(resp.Body),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("groq API error (status %d): %s", resp.StatusCode, errorMessage(resp.Body))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("error decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}

	return out.Choices[0].Message.Content, nil
}

// errorMessage extracts a short message from an error response body with
// credentials echoed by the service redacted.
func errorMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))

	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		return redact.Credentials(parsed.Error.Message)
	}
	return redact.Credentials(strings.TrimSpace(string(raw)))
}

// ParseRetryAfter interprets a Retry-After header given either as delay
// seconds or as an HTTP date. It returns zero when the header is absent or
// unparseable.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs * float64(time.Second))
	}

	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

var _ summarizer.Completer = (*Client)(nil)
