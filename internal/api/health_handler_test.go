package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/phrazzld/summa/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error {
	return f(ctx)
}

func TestHealthHandler(t *testing.T) {
	log, _ := logger.GetTestLogger(t)

	tests := []struct {
		name       string
		db         Pinger
		wantStatus int
		wantBody   string
	}{
		{name: "no database", wantStatus: http.StatusOK, wantBody: `{"status":"ok"}`},
		{
			name:       "database up",
			db:         pingerFunc(func(ctx context.Context) error { return nil }),
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok"}`,
		},
		{
			name:       "database down",
			db:         pingerFunc(func(ctx context.Context) error { return errors.New("dial tcp: refused") }),
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"unavailable"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHealthHandler(tc.db, log)
			rec := doGet(t, http.HandlerFunc(h.Health), "/health")

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.JSONEq(t, tc.wantBody, rec.Body.String())
		})
	}
}
