package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/api/shared"
	"github.com/hutchutchutch/learntrac/internal/service"
)

// AnalyticsHandler handles analytics and dashboard HTTP requests
type AnalyticsHandler struct {
	analyticsService *service.AnalyticsService
	logger           *slog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *service.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for AnalyticsHandler")
	}

	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger.With(slog.String("component", "analytics_handler")),
	}
}

// GetDashboard handles GET /users/{userID}/paths/{pathID}/dashboard requests
func (h *AnalyticsHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	userID, pathID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	snapshot, err := h.analyticsService.Dashboard(r.Context(), userID, pathID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, snapshot)
}

// GetCompletion handles GET /users/{userID}/paths/{pathID}/completion requests
func (h *AnalyticsHandler) GetCompletion(w http.ResponseWriter, r *http.Request) {
	userID, pathID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	percent, err := h.analyticsService.PathCompletion(r.Context(), userID, pathID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"user_id":            userID,
		"path_id":            pathID,
		"completion_percent": percent,
	})
}

// GetVelocity handles GET /users/{userID}/velocity requests.
// The optional weeks query parameter sets the trailing window.
func (h *AnalyticsHandler) GetVelocity(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	weeks := 0
	if raw := r.URL.Query().Get("weeks"); raw != "" {
		weeks, err = strconv.Atoi(raw)
		if err != nil || weeks < 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid weeks parameter")
			return
		}
	}

	velocity, err := h.analyticsService.LearningVelocity(r.Context(), userID, weeks)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to compute learning velocity", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"user_id":           userID,
		"velocity_per_week": velocity,
	})
}

// GetStanding handles GET /users/{userID}/standing requests
func (h *AnalyticsHandler) GetStanding(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	standing, err := h.analyticsService.CohortStanding(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to compute cohort standing", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, standing)
}

func (h *AnalyticsHandler) idsFromURL(w http.ResponseWriter, r *http.Request) (userID, pathID uuid.UUID, ok bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, uuid.Nil, false
	}

	pathID, err = uuid.Parse(chi.URLParam(r, "pathID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid path ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, pathID, true
}
