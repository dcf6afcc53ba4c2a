package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/api/shared"
	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/service"
)

// ProgressHandler handles progress ledger HTTP requests
type ProgressHandler struct {
	progressService *service.ProgressService
	logger          *slog.Logger
}

// NewProgressHandler creates a new ProgressHandler
func NewProgressHandler(progressService *service.ProgressService, logger *slog.Logger) *ProgressHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ProgressHandler")
	}

	return &ProgressHandler{
		progressService: progressService,
		logger:          logger.With(slog.String("component", "progress_handler")),
	}
}

// RecordAttempt handles POST /users/{userID}/progress/{conceptID}/attempts requests
func (h *ProgressHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, conceptID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	var req RecordAttemptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	rec, err := h.progressService.RecordAttempt(
		r.Context(),
		userID,
		conceptID,
		req.Score,
		req.Feedback,
		req.TimeSpentMinutes,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("attempt recorded",
		slog.String("user_id", userID.String()),
		slog.String("concept_id", conceptID.String()),
		slog.Float64("mastery", rec.Mastery))
	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(rec))
}

// SkipConcept handles POST /users/{userID}/progress/{conceptID}/skip requests
func (h *ProgressHandler) SkipConcept(w http.ResponseWriter, r *http.Request) {
	userID, conceptID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	rec, err := h.progressService.SkipConcept(r.Context(), userID, conceptID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(rec))
}

// GetProgress handles GET /users/{userID}/progress/{conceptID} requests
func (h *ProgressHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	userID, conceptID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	rec, err := h.progressService.GetProgress(r.Context(), userID, conceptID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, progressToResponse(rec))
}

// ListProgress handles GET /users/{userID}/progress requests
func (h *ProgressHandler) ListProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromURL(w, r)
	if !ok {
		return
	}

	recs, err := h.progressService.ListProgress(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to list progress", err)
		return
	}

	resp := make([]ProgressResponse, 0, len(recs))
	for _, rec := range recs {
		resp = append(resp, progressToResponse(rec))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// GetReadiness handles GET /users/{userID}/readiness/{conceptID} requests
func (h *ProgressHandler) GetReadiness(w http.ResponseWriter, r *http.Request) {
	userID, conceptID, ok := h.idsFromURL(w, r)
	if !ok {
		return
	}

	ready, err := h.progressService.IsReady(r.Context(), userID, conceptID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReadinessResponse{
		UserID:    userID,
		ConceptID: conceptID,
		Ready:     ready,
	})
}

// GetReadySet handles GET /users/{userID}/ready requests
func (h *ProgressHandler) GetReadySet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromURL(w, r)
	if !ok {
		return
	}

	ids, err := h.progressService.ReadySet(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to compute ready concepts", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReadySetResponse{
		UserID:     userID,
		ConceptIDs: ids,
	})
}

// GetUserGraph handles GET /users/{userID}/graph requests
func (h *ProgressHandler) GetUserGraph(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userIDFromURL(w, r)
	if !ok {
		return
	}

	view, err := h.progressService.UserGraph(r.Context(), userID)
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to build user graph view", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

func (h *ProgressHandler) userIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid user ID format")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *ProgressHandler) idsFromURL(w http.ResponseWriter, r *http.Request) (userID, conceptID uuid.UUID, ok bool) {
	userID, ok = h.userIDFromURL(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}

	conceptID, err := uuid.Parse(chi.URLParam(r, "conceptID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid concept ID format")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, conceptID, true
}

// progressToResponse transforms a ledger row to its API shape.
func progressToResponse(rec *domain.ProgressRecord) ProgressResponse {
	return ProgressResponse{
		UserID:           rec.UserID,
		ConceptID:        rec.ConceptID,
		Status:           string(rec.Status),
		Mastery:          rec.Mastery,
		TimeSpentMinutes: rec.TimeSpentMinutes,
		AttemptCount:     len(rec.Assessments),
		StartedAt:        rec.StartedAt,
		LastAccessedAt:   rec.LastAccessedAt,
		CompletedAt:      rec.CompletedAt,
	}
}
