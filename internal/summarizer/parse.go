package summarizer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/phrazzld/summa/internal/domain"
)

// ErrInvalidResponse is returned when a completion cannot be parsed.
var ErrInvalidResponse = errors.New("invalid response from language model")

type bulletPointsResponse struct {
	BulletPoints []string `json:"bulletpoints"`
}

// ParseBulletPoints extracts the bulletpoints array from a JSON completion.
// Markdown code fences and prose around the JSON object are tolerated.
// Anything other than exactly domain.BulletPointCount non-empty strings is an
// error.
func ParseBulletPoints(content string) ([]string, error) {
	raw := extractJSONObject(content)
	if raw == "" {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrInvalidResponse)
	}

	var resp bulletPointsResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	bullets := make([]string, len(resp.BulletPoints))
	for i, b := range resp.BulletPoints {
		bullets[i] = strings.TrimSpace(b)
	}
	if err := domain.ValidateBulletPoints(bullets); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	return bullets, nil
}

// extractJSONObject strips code fences and returns the outermost {...} span.
func extractJSONObject(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```JSON")
		s = strings.TrimPrefix(s, "```")
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
