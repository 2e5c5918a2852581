package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/summa/internal/api"
	apiMiddleware "github.com/phrazzld/summa/internal/api/middleware"
	"github.com/phrazzld/summa/internal/progress"
)

// routerDeps are the collaborators the HTTP routes need.
type routerDeps struct {
	summaries api.SummaryService
	progress  api.ProgressStreamer
	// db is optional; nil skips the database health check.
	db     api.Pinger
	logger *slog.Logger
}

// setupRouter creates the application router with all routes and middleware.
func setupRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(deps.logger))
	r.Use(apiMiddleware.RequestLogger(deps.logger))
	r.Use(middleware.Recoverer)

	summaryHandler := api.NewSummaryHandler(deps.summaries, deps.logger)
	channelHandler := api.NewChannelHandler(deps.progress)
	healthHandler := api.NewHealthHandler(deps.db, deps.logger)

	r.Route("/api", func(r chi.Router) {
		r.Get("/summaries/{docId}", summaryHandler.TriggerSummary)
		r.Get("/summaries/{docId}/result", summaryHandler.GetSummary)
		r.Get("/channels/{channel}/ws", channelHandler.Subscribe)
	})

	r.Get("/health", healthHandler.Health)

	return r
}

// routerDeps collects the router collaborators from the application.
func (app *application) routerDeps() routerDeps {
	deps := routerDeps{
		summaries: app.summaryService,
		progress:  progress.NewWSHandler(app.hub, app.logger),
		logger:    app.logger,
	}
	if app.db != nil {
		deps.db = app.db
	}
	return deps
}
