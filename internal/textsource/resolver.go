// Package textsource resolves the full text of a document, either from the
// document record itself or by downloading it over HTTP.
package textsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/phrazzld/summa/internal/domain"
	"github.com/phrazzld/summa/internal/store"
)

// Defaults for text downloads.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 32 << 20

	// IDPlaceholder is replaced by the document ID in fallback URL templates.
	IDPlaceholder = "{id}"
)

// Common errors returned by the Resolver. Every resolution failure also
// wraps domain.ErrTextUnavailable.
var (
	ErrNilDocumentStore = errors.New("document store cannot be nil")
	ErrNilLogger        = errors.New("logger cannot be nil")
	ErrNoTextSource     = errors.New("no text source for document")
	ErrTextTooLarge     = errors.New("document text exceeds size limit")

	errNotFoundAtURL = errors.New("text not found at url")
)

// Config holds the settings of a Resolver.
type Config struct {
	Timeout              time.Duration
	MaxBytes             int64
	FallbackURLTemplates []string
	HTTPClient           *http.Client
}

// Resolver implements getDocumentText on top of a DocumentStore.
type Resolver struct {
	docs      store.DocumentStore
	client    *http.Client
	maxBytes  int64
	fallbacks []string
	logger    *slog.Logger
}

// NewResolver creates a Resolver. Zero Config fields take their defaults.
func NewResolver(docs store.DocumentStore, cfg Config, logger *slog.Logger) (*Resolver, error) {
	if docs == nil {
		return nil, ErrNilDocumentStore
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Resolver{
		docs:      docs,
		client:    client,
		maxBytes:  maxBytes,
		fallbacks: append([]string(nil), cfg.FallbackURLTemplates...),
		logger:    logger.With("component", "text_resolver"),
	}, nil
}

// GetDocumentText returns the text of docID. Inline text on the document
// record wins; otherwise the record's text URL and then the fallback URLs
// are tried in order, skipping those that answer 404. A 200 response with
// an empty body yields empty text.
func (r *Resolver) GetDocumentText(ctx context.Context, docID domain.DocID) (string, error) {
	doc, err := r.docs.GetByID(ctx, docID)
	switch {
	case err == nil:
	case store.IsNotFoundError(err):
		doc = nil
	default:
		return "", fmt.Errorf("%w: load document %s: %w", domain.ErrTextUnavailable, docID, err)
	}

	if doc != nil && doc.HasInlineText() {
		return doc.Text, nil
	}

	urls := r.candidateURLs(doc, docID)
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %w: %s", domain.ErrTextUnavailable, ErrNoTextSource, docID)
	}

	for _, u := range urls {
		text, err := r.fetch(ctx, u)
		if errors.Is(err, errNotFoundAtURL) {
			r.logger.Debug("document text not found at url", "doc_id", docID, "url", u)
			continue
		}
		if err != nil {
			r.logger.Warn("failed to fetch document text", "doc_id", docID, "url", u, "error", err)
			return "", fmt.Errorf("%w: %s: %w", domain.ErrTextUnavailable, docID, err)
		}
		r.logger.Debug("fetched document text", "doc_id", docID, "url", u, "bytes", len(text))
		return text, nil
	}

	return "", fmt.Errorf("%w: %w: all %d sources returned 404 for %s",
		domain.ErrTextUnavailable, ErrNoTextSource, len(urls), docID)
}

func (r *Resolver) candidateURLs(doc *domain.Document, docID domain.DocID) []string {
	var urls []string
	if doc != nil && doc.TextURL != "" {
		urls = append(urls, doc.TextURL)
	}
	for _, tmpl := range r.fallbacks {
		urls = append(urls, strings.ReplaceAll(tmpl, IDPlaceholder, docID.String()))
	}
	return urls
}

func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", errNotFoundAtURL
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(body)) > r.maxBytes {
		return "", fmt.Errorf("%w: more than %d bytes", ErrTextTooLarge, r.maxBytes)
	}
	return string(body), nil
}
