package summarizer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleep returns a SleepFunc that records requested waits without sleeping.
func recordingSleep(waits *[]time.Duration) SleepFunc {
	return func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
}

func newTestClient(t *testing.T, backend Completer, policy RetryPolicy, waits *[]time.Duration) *Client {
	t.Helper()
	c, err := NewClient(backend, policy, testLogger(), WithSleep(recordingSleep(waits)))
	require.NoError(t, err)
	return c
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(nil, DefaultRetryPolicy(), testLogger())
	assert.ErrorIs(t, err, ErrNilBackend)

	_, err = NewClient(&mockCompleter{}, DefaultRetryPolicy(), nil)
	assert.ErrorIs(t, err, ErrNilLogger)

	c, err := NewClient(&mockCompleter{}, RetryPolicy{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, DefaultRetryAfter, c.policy.DefaultRetryAfter)
	assert.Equal(t, DefaultMaxTotalWait, c.policy.MaxTotalWait)
}

func TestSummarize(t *testing.T) {
	t.Run("sends chunk then instruction", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return "  a short summary \n", nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		summary, err := c.Summarize(context.Background(), "chunk text")
		require.NoError(t, err)
		assert.Equal(t, "a short summary", summary)

		reqs := backend.Requests()
		require.Len(t, reqs, 1)
		assert.False(t, reqs[0].JSON)
		assert.Equal(t, []Message{
			{Role: RoleUser, Content: "chunk text"},
			{Role: RoleUser, Content: "Summarize this text concisely."},
		}, reqs[0].Messages)
		assert.Empty(t, waits)
	})

	t.Run("429 with retry-after 2 waits then succeeds", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				if call == 1 {
					return "", &RateLimitError{RetryAfter: 2 * time.Second}
				}
				return "summary", nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		summary, err := c.Summarize(context.Background(), "chunk")
		require.NoError(t, err)
		assert.Equal(t, "summary", summary)
		require.Len(t, waits, 1)
		assert.GreaterOrEqual(t, waits[0], 2*time.Second)

		reqs := backend.Requests()
		require.Len(t, reqs, 2)
		assert.Equal(t, reqs[0], reqs[1], "the same request must be retried")
	})

	t.Run("missing retry hint uses default", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				if call < 3 {
					return "", &RateLimitError{}
				}
				return "summary", nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		_, err := c.Summarize(context.Background(), "chunk")
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{DefaultRetryAfter, DefaultRetryAfter}, waits)
	})

	t.Run("non rate limit error fails without retry", func(t *testing.T) {
		backendErr := errors.New("status 500")
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return "", backendErr
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		_, err := c.Summarize(context.Background(), "chunk")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
		assert.ErrorIs(t, err, backendErr)
		assert.Len(t, backend.Requests(), 1)
		assert.Empty(t, waits)
	})

	t.Run("empty completion fails", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return "   ", nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		_, err := c.Summarize(context.Background(), "chunk")
		assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("retry budget is bounded", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return "", &RateLimitError{RetryAfter: 4 * time.Second}
			},
		}
		var waits []time.Duration
		policy := RetryPolicy{DefaultRetryAfter: time.Second, MaxTotalWait: 10 * time.Second}
		c := newTestClient(t, backend, policy, &waits)

		_, err := c.Summarize(context.Background(), "chunk")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
		assert.ErrorIs(t, err, ErrRetryBudgetExhausted)
		assert.False(t, errors.Is(err, domain.ErrRateLimited), "rate limiting must not escape the client")
		assert.Equal(t, []time.Duration{4 * time.Second, 4 * time.Second}, waits)
		assert.Len(t, backend.Requests(), 3)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return "", &RateLimitError{RetryAfter: time.Second}
			},
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		_, err := c.Summarize(ctx, "chunk")
		assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Len(t, backend.Requests(), 1)
	})
}

func TestReduce(t *testing.T) {
	t.Run("embeds partials in order and parses five bullets", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				return `{"bulletpoints": ["a", "b", "c", "d", "e"]}`, nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		bullets, err := c.Reduce(context.Background(), []string{"p0", "p1", "p2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, bullets)

		reqs := backend.Requests()
		require.Len(t, reqs, 1)
		assert.True(t, reqs[0].JSON)
		require.Len(t, reqs[0].Messages, 1)
		prompt := reqs[0].Messages[0].Content
		assert.Regexp(t, `(?s)^p0\np1\np2\n\n`, prompt)
		assert.Contains(t, prompt, "'bulletpoints'")
	})

	t.Run("retries on rate limit", func(t *testing.T) {
		backend := &mockCompleter{
			CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
				if call == 1 {
					return "", &RateLimitError{RetryAfter: 3 * time.Second}
				}
				return `{"bulletpoints": ["a", "b", "c", "d", "e"]}`, nil
			},
		}
		var waits []time.Duration
		c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

		_, err := c.Reduce(context.Background(), []string{"p0"})
		require.NoError(t, err)
		assert.Equal(t, []time.Duration{3 * time.Second}, waits)
	})

	for _, tc := range []struct {
		name    string
		content string
	}{
		{"four bullets", `{"bulletpoints": ["a", "b", "c", "d"]}`},
		{"six bullets", `{"bulletpoints": ["a", "b", "c", "d", "e", "f"]}`},
		{"not json", `Here are your bullet points: a, b, c, d, e`},
		{"wrong key", `{"points": ["a", "b", "c", "d", "e"]}`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			backend := &mockCompleter{
				CompleteFunc: func(ctx context.Context, req Request, call int) (string, error) {
					return tc.content, nil
				},
			}
			var waits []time.Duration
			c := newTestClient(t, backend, DefaultRetryPolicy(), &waits)

			_, err := c.Reduce(context.Background(), []string{"p0"})
			assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
			assert.ErrorIs(t, err, ErrInvalidResponse)
		})
	}

	t.Run("no partials", func(t *testing.T) {
		var waits []time.Duration
		c := newTestClient(t, &mockCompleter{}, DefaultRetryPolicy(), &waits)

		_, err := c.Reduce(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrSummaryGenerationFailed)
		assert.ErrorIs(t, err, ErrNoPartials)
	})
}

func TestRateLimitError(t *testing.T) {
	err := &RateLimitError{RetryAfter: 2 * time.Second, Message: "slow down"}
	assert.ErrorIs(t, err, domain.ErrRateLimited)
	assert.Contains(t, err.Error(), "retry after 2s")
	assert.Contains(t, err.Error(), "slow down")
}
