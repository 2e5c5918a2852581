// Package api exposes the summarization service over HTTP. It translates
// requests into calls on the summary service, maps domain and store errors
// to status codes without leaking internal details, and upgrades progress
// channel subscriptions to websockets.
package api
