package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/phrazzld/transcheck-api/internal/api"
	apiMiddleware "github.com/phrazzld/transcheck-api/internal/api/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupRouter creates the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.config.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{apiMiddleware.TraceHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	inspectionHandler := api.NewInspectionHandler(
		app.inspectionService,
		app.heartbeat(),
		app.logger,
	)
	glossaryHandler := api.NewGlossaryHandler(app.inspectionService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/start", inspectionHandler.StartInspection)
		r.Get("/stream/{"+api.TaskIDParam+"}", inspectionHandler.StreamEvents)
		r.Get("/download/{"+api.TaskIDParam+"}", inspectionHandler.DownloadResult)
		r.Get("/tasks/{"+api.TaskIDParam+"}", inspectionHandler.GetTask)
		r.Post("/check_glossary", glossaryHandler.CheckGlossary)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.HandlerFor(app.metricsRegistry, promhttp.HandlerOpts{}))

	return r
}
