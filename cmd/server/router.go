package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hutchutchutch/learntrac/internal/api"
	apiMiddleware "github.com/hutchutchutch/learntrac/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	conceptHandler := api.NewConceptHandler(app.graphService, app.logger)
	pathHandler := api.NewPathHandler(app.graphService, app.logger)
	progressHandler := api.NewProgressHandler(app.progressService, app.logger)
	analyticsHandler := api.NewAnalyticsHandler(app.analyticsService, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Concept graph endpoints
		r.Post("/concepts", conceptHandler.CreateConcept)
		r.Get("/concepts", conceptHandler.ListConcepts)
		r.Get("/concepts/{id}", conceptHandler.GetConcept)
		r.Delete("/concepts/{id}", conceptHandler.DeleteConcept)
		r.Post("/concepts/{id}/prerequisites", conceptHandler.AddPrerequisite)
		r.Get("/concepts/{id}/prerequisites", conceptHandler.GetPrerequisites)
		r.Delete("/concepts/{id}/prerequisites/{prereqID}", conceptHandler.RemovePrerequisite)
		r.Get("/graph", conceptHandler.GetGraph)

		// Learning path endpoints
		r.Post("/paths", pathHandler.CreatePath)
		r.Get("/paths/{id}", pathHandler.GetPath)
		r.Post("/paths/{id}/concepts", pathHandler.AddConcept)
		r.Delete("/paths/{id}/concepts/{conceptID}", pathHandler.RemoveConcept)

		// Progress ledger endpoints
		r.Post("/users/{userID}/progress/{conceptID}/attempts", progressHandler.RecordAttempt)
		r.Post("/users/{userID}/progress/{conceptID}/skip", progressHandler.SkipConcept)
		r.Get("/users/{userID}/progress/{conceptID}", progressHandler.GetProgress)
		r.Get("/users/{userID}/progress", progressHandler.ListProgress)
		r.Get("/users/{userID}/readiness/{conceptID}", progressHandler.GetReadiness)
		r.Get("/users/{userID}/ready", progressHandler.GetReadySet)
		r.Get("/users/{userID}/graph", progressHandler.GetUserGraph)

		// Analytics endpoints
		r.Get("/users/{userID}/paths/{pathID}/dashboard", analyticsHandler.GetDashboard)
		r.Get("/users/{userID}/paths/{pathID}/completion", analyticsHandler.GetCompletion)
		r.Get("/users/{userID}/velocity", analyticsHandler.GetVelocity)
		r.Get("/users/{userID}/standing", analyticsHandler.GetStanding)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
