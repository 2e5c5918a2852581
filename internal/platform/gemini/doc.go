// Package gemini provides an implementation of the summarizer.Completer
// interface that uses Google's Gemini API.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the summarizer to Google's external Gemini AI service without
// exposing the details of the external service to the core application.
//
// Key responsibilities:
//
// 1. Request translation:
//   - Maps chat messages onto genai contents (system messages become the
//     system instruction)
//   - Requests application/json responses in JSON mode
//
// 2. Error translation:
//   - HTTP 429 / RESOURCE_EXHAUSTED becomes a *summarizer.RateLimitError,
//     carrying the RetryInfo delay when the API provides one
//   - Safety blocks and empty candidates become plain errors, which the
//     summarizer treats as permanent
//
// The package depends on the google.golang.org/genai client library.
package gemini
