// Package api provides HTTP handlers for the API.
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

// ConceptHandler handles concept and prerequisite HTTP requests
type ConceptHandler struct {
	graphService *service.GraphService
	logger       *slog.Logger
}

// NewConceptHandler creates a new ConceptHandler
func NewConceptHandler(graphService *service.GraphService, logger *slog.Logger) *ConceptHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for ConceptHandler")
	}

	return &ConceptHandler{
		graphService: graphService,
		logger:       logger.With(slog.String("component", "concept_handler")),
	}
}

// CreateConcept handles POST /concepts requests
func (h *ConceptHandler) CreateConcept(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateConceptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	concept, err := h.graphService.CreateConcept(
		r.Context(),
		req.Code,
		req.Name,
		req.Category,
		req.Tags,
		req.Difficulty,
		req.EstimatedMinutes,
		req.Metadata,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("concept created", slog.String("concept_id", concept.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, concept)
}

// GetConcept handles GET /concepts/{id} requests
func (h *ConceptHandler) GetConcept(w http.ResponseWriter, r *http.Request) {
	conceptID, ok := h.conceptIDFromURL(w, r)
	if !ok {
		return
	}

	concept, err := h.graphService.GetConcept(r.Context(), conceptID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, concept)
}

// ListConcepts handles GET /concepts requests
func (h *ConceptHandler) ListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := h.graphService.ListConcepts(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to list concepts", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, concepts)
}

// DeleteConcept handles DELETE /concepts/{id} requests
func (h *ConceptHandler) DeleteConcept(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	conceptID, ok := h.conceptIDFromURL(w, r)
	if !ok {
		return
	}

	if err := h.graphService.DeleteConcept(r.Context(), conceptID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("concept deleted", slog.String("concept_id", conceptID.String()))
	w.WriteHeader(http.StatusNoContent)
}

// AddPrerequisite handles POST /concepts/{id}/prerequisites requests
func (h *ConceptHandler) AddPrerequisite(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	conceptID, ok := h.conceptIDFromURL(w, r)
	if !ok {
		return
	}

	var req AddPrerequisiteRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	requirementType := domain.RequirementType(req.RequirementType)
	if req.RequirementType == "" {
		requirementType = domain.RequirementRequired
	}

	edge, err := h.graphService.AddPrerequisite(
		r.Context(),
		conceptID,
		req.PrerequisiteID,
		requirementType,
		req.MinMastery,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("prerequisite added",
		slog.String("concept_id", conceptID.String()),
		slog.String("prerequisite_id", req.PrerequisiteID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, edge)
}

// RemovePrerequisite handles DELETE /concepts/{id}/prerequisites/{prereqID} requests
func (h *ConceptHandler) RemovePrerequisite(w http.ResponseWriter, r *http.Request) {
	conceptID, ok := h.conceptIDFromURL(w, r)
	if !ok {
		return
	}

	prereqID, err := uuid.Parse(chi.URLParam(r, "prereqID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid prerequisite ID format")
		return
	}

	if err := h.graphService.RemovePrerequisite(r.Context(), conceptID, prereqID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPrerequisites handles GET /concepts/{id}/prerequisites requests.
// The optional transitive=true query parameter expands to the full
// prerequisite closure.
func (h *ConceptHandler) GetPrerequisites(w http.ResponseWriter, r *http.Request) {
	conceptID, ok := h.conceptIDFromURL(w, r)
	if !ok {
		return
	}

	if r.URL.Query().Get("transitive") == "true" {
		ids, err := h.graphService.GetTransitivePrerequisites(r.Context(), conceptID)
		if err != nil {
			shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
			"concept_id":    conceptID,
			"prerequisites": ids,
		})
		return
	}

	edges, err := h.graphService.GetPrerequisites(r.Context(), conceptID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, edges)
}

// GetGraph handles GET /graph requests, returning the full concept graph
// as nodes and edges for visualization.
func (h *ConceptHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	view, err := h.graphService.Visualize(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(
			w, r, MapErrorToStatusCode(err), "Failed to build graph view", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, view)
}

// conceptIDFromURL parses the {id} URL parameter, writing a 400 response
// on failure.
func (h *ConceptHandler) conceptIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid concept ID format")
		return uuid.Nil, false
	}
	return id, true
}
