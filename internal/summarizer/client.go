package summarizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/phrazzld/summa/internal/domain"
)

// Common errors returned by the Client.
var (
	ErrNilBackend    = errors.New("completion backend cannot be nil")
	ErrNilLogger     = errors.New("logger cannot be nil")
	ErrEmptyResponse = errors.New("empty completion")
	ErrNoPartials    = errors.New("no partial summaries to reduce")
)

// Option configures a Client.
type Option func(*Client)

// WithSleep replaces the function used to wait between rate-limit retries.
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) {
		c.sleep = fn
	}
}

// Client summarizes chunks and reduces partial summaries through a Completer.
type Client struct {
	backend     Completer
	policy      RetryPolicy
	instruction string
	sleep       SleepFunc
	logger      *slog.Logger
}

// NewClient creates a Client. Zero fields of policy take their defaults.
func NewClient(backend Completer, policy RetryPolicy, logger *slog.Logger, opts ...Option) (*Client, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	instruction, err := SummarizeInstruction()
	if err != nil {
		return nil, err
	}

	c := &Client{
		backend:     backend,
		policy:      policy.withDefaults(),
		instruction: instruction,
		sleep:       sleepContext,
		logger:      logger.With("component", "summarizer"),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Summarize returns a concise summary of one chunk of text.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	req := Request{
		Messages: []Message{
			{Role: RoleUser, Content: text},
			{Role: RoleUser, Content: c.instruction},
		},
	}

	content, err := c.complete(ctx, req)
	if err != nil {
		return "", err
	}

	summary := strings.TrimSpace(content)
	if summary == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrSummaryGenerationFailed, ErrEmptyResponse)
	}
	return summary, nil
}

// Reduce combines ordered partial summaries into exactly
// domain.BulletPointCount bullet points with one JSON-mode request.
func (c *Client) Reduce(ctx context.Context, partials []string) ([]string, error) {
	if len(partials) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrSummaryGenerationFailed, ErrNoPartials)
	}

	prompt, err := ReducePrompt(partials)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSummaryGenerationFailed, err)
	}

	content, err := c.complete(ctx, Request{
		Messages: []Message{{Role: RoleUser, Content: prompt}},
		JSON:     true,
	})
	if err != nil {
		return nil, err
	}

	bullets, err := ParseBulletPoints(content)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to parse reduction response",
			"error", err,
			"response_length", len(content))
		return nil, fmt.Errorf("%w: %w", domain.ErrSummaryGenerationFailed, err)
	}
	return bullets, nil
}

// complete sends req, waiting and retrying on rate limits until the request
// succeeds, a non-rate-limit error occurs, or the wait budget is spent.
func (c *Client) complete(ctx context.Context, req Request) (string, error) {
	var waited time.Duration

	for attempt := 1; ; attempt++ {
		content, err := c.backend.Complete(ctx, req)
		if err == nil {
			return content, nil
		}

		var rateErr *RateLimitError
		if !errors.As(err, &rateErr) {
			c.logger.ErrorContext(ctx, "completion request failed",
				"error", err,
				"attempt", attempt)
			return "", fmt.Errorf("%w: %w", domain.ErrSummaryGenerationFailed, err)
		}

		wait := c.policy.delay(rateErr)
		if waited+wait > c.policy.MaxTotalWait {
			c.logger.ErrorContext(ctx, "rate limit retry budget exhausted",
				"attempt", attempt,
				"waited", waited,
				"max_total_wait", c.policy.MaxTotalWait)
			return "", fmt.Errorf("%w: %w after %s", domain.ErrSummaryGenerationFailed, ErrRetryBudgetExhausted, waited)
		}

		c.logger.WarnContext(ctx, "rate limited by completion service, retrying",
			"attempt", attempt,
			"retry_after", wait)

		if err := c.sleep(ctx, wait); err != nil {
			return "", fmt.Errorf("%w: interrupted while waiting to retry: %w", domain.ErrSummaryGenerationFailed, err)
		}
		waited += wait
	}
}
