// Package groq implements summarizer.Completer on top of Groq's
// OpenAI-compatible chat completions endpoint.
package groq
