package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/summa/internal/summarizer"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// retryInfoType identifies the google.rpc.RetryInfo error detail.
const retryInfoType = "type.googleapis.com/google.rpc.RetryInfo"

// Config holds the settings of a Client.
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint.
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client implements summarizer.Completer using Google's Gemini API.
type Client struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewClient creates a new Client with the provided configuration.
//
// Parameters:
//   - ctx: Context for client construction
//   - cfg: API key, model name and optional endpoint overrides
//   - logger: A structured logger for operation logging
//
// Returns:
//   - A properly initialized Client or an error if initialization fails
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, ErrNilLogger
	}
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: cfg.BaseURL,
		},
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		clientConfig.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Client{
		client: client,
		model:  cfg.Model,
		logger: logger.With("component", "gemini_client", "model", cfg.Model),
	}, nil
}

// Complete sends one GenerateContent request and returns the response text.
func (c *Client) Complete(ctx context.Context, req summarizer.Request) (string, error) {
	contents, config := buildContents(req)

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		if rateErr := asRateLimitError(err); rateErr != nil {
			c.logger.WarnContext(ctx, "gemini rate limit hit", "retry_after", rateErr.RetryAfter)
			return "", rateErr
		}
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	c.logger.DebugContext(ctx, "gemini response received",
		"duration_ms", time.Since(start).Milliseconds(),
		"candidates", len(resp.Candidates))

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: prompt blocked: %s", ErrContentBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}
	if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked", ErrContentBlocked)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// buildContents maps chat messages onto genai contents. System messages are
// folded into the system instruction.
func buildContents(req summarizer.Request) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case summarizer.RoleSystem:
			config.SystemInstruction = genai.NewContentFromText(m.Content, genai.RoleUser)
		case summarizer.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return contents, config
}

// asRateLimitError converts a throttling APIError into a RateLimitError.
// It returns nil for every other error.
func asRateLimitError(err error) *summarizer.RateLimitError {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return nil
		}
		apiErr = *apiErrPtr
	}

	if apiErr.Code != http.StatusTooManyRequests && apiErr.Status != "RESOURCE_EXHAUSTED" {
		return nil
	}

	return &summarizer.RateLimitError{
		RetryAfter: retryDelay(apiErr.Details),
		Message:    apiErr.Message,
	}
}

// retryDelay extracts the RetryInfo delay (e.g. "2s") from error details.
func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		if t, _ := d["@type"].(string); t != retryInfoType {
			continue
		}
		raw, _ := d["retryDelay"].(string)
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay
		}
	}
	return 0
}

var _ summarizer.Completer = (*Client)(nil)
