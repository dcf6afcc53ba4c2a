package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/api/shared"
	"github.com/hutchutchutch/learntrac/internal/platform/logger"
	"github.com/hutchutchutch/learntrac/internal/service"
)

// PathHandler handles learning path HTTP requests
type PathHandler struct {
	graphService *service.GraphService
	logger       *slog.Logger
}

// NewPathHandler creates a new PathHandler
func NewPathHandler(graphService *service.GraphService, logger *slog.Logger) *PathHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for PathHandler")
	}

	return &PathHandler{
		graphService: graphService,
		logger:       logger.With(slog.String("component", "path_handler")),
	}
}

// CreatePath handles POST /paths requests
func (h *PathHandler) CreatePath(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreatePathRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	path, err := h.graphService.CreatePath(r.Context(), req.Name, req.Description)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	log.Debug("path created", slog.String("path_id", path.ID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, path)
}

// GetPath handles GET /paths/{id} requests
func (h *PathHandler) GetPath(w http.ResponseWriter, r *http.Request) {
	pathID, ok := h.pathIDFromURL(w, r)
	if !ok {
		return
	}

	path, concepts, err := h.graphService.GetPath(r.Context(), pathID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	resp := PathDetailResponse{
		ID:          path.ID,
		Name:        path.Name,
		Description: path.Description,
		Concepts:    make([]PathConceptResponse, 0, len(concepts)),
	}
	for _, pc := range concepts {
		resp.Concepts = append(resp.Concepts, PathConceptResponse{
			ConceptID:     pc.ConceptID,
			SequenceOrder: pc.SequenceOrder,
			Required:      pc.Required,
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, resp)
}

// AddConcept handles POST /paths/{id}/concepts requests
func (h *PathHandler) AddConcept(w http.ResponseWriter, r *http.Request) {
	pathID, ok := h.pathIDFromURL(w, r)
	if !ok {
		return
	}

	var req AddPathConceptRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request data")
		return
	}

	// Concepts count toward completion unless explicitly marked optional.
	required := true
	if req.Required != nil {
		required = *req.Required
	}

	err := h.graphService.AddConceptToPath(r.Context(), pathID, req.ConceptID, req.SequenceOrder, required)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// RemoveConcept handles DELETE /paths/{id}/concepts/{conceptID} requests
func (h *PathHandler) RemoveConcept(w http.ResponseWriter, r *http.Request) {
	pathID, ok := h.pathIDFromURL(w, r)
	if !ok {
		return
	}

	conceptID, err := uuid.Parse(chi.URLParam(r, "conceptID"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid concept ID format")
		return
	}

	if err := h.graphService.RemoveConceptFromPath(r.Context(), pathID, conceptID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathIDFromURL parses the {id} URL parameter, writing a 400 response
// on failure.
func (h *PathHandler) pathIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid path ID format")
		return uuid.Nil, false
	}
	return id, true
}
