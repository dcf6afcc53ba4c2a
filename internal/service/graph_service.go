package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/graph"
	"github.com/hutchutchutch/learntrac/internal/store"
)

// GraphService manages the concept graph: concepts, learning paths, and
// prerequisite edges. It guarantees the graph stays acyclic by checking
// every candidate edge against the in-memory index before the insert is
// attempted.
//
// Structural mutations are serialized with a single mutex. The check-then-
// insert sequence for edges is only sound if no other edge can land between
// the cycle check and the commit; reads are unaffected because the index
// uses its own read-write lock.
type GraphService struct {
	conceptStore store.ConceptStore
	edgeStore    store.EdgeStore
	pathStore    store.PathStore
	index        *graph.Index
	eventEmitter events.EventEmitter
	logger       *slog.Logger

	// structural serializes all graph mutations
	structural sync.Mutex
}

// NewGraphService creates a GraphService and loads the edge index from the
// store. It returns an error if any required dependency is nil or the
// initial index load fails.
func NewGraphService(
	ctx context.Context,
	conceptStore store.ConceptStore,
	edgeStore store.EdgeStore,
	pathStore store.PathStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (*GraphService, error) {
	if conceptStore == nil || edgeStore == nil || pathStore == nil {
		return nil, &ServiceError{
			Service:   "graph_service",
			Operation: "create_service",
			Message:   "stores cannot be nil",
		}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{
			Service:   "graph_service",
			Operation: "create_service",
			Message:   "eventEmitter cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &GraphService{
		conceptStore: conceptStore,
		edgeStore:    edgeStore,
		pathStore:    pathStore,
		index:        graph.NewIndex(),
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "graph_service"),
	}

	if err := s.reloadIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to load edge index: %w", err)
	}

	return s, nil
}

// reloadIndex rebuilds the in-memory edge index from the store.
func (s *GraphService) reloadIndex(ctx context.Context) error {
	edges, err := s.edgeStore.ListAll(ctx)
	if err != nil {
		return err
	}
	s.index.Replace(edges)
	s.logger.Info("edge index loaded", "edge_count", s.index.EdgeCount())
	return nil
}

// CreateConcept validates and persists a new concept.
func (s *GraphService) CreateConcept(
	ctx context.Context,
	code, name, category string,
	tags []string,
	difficulty float64,
	estimatedMinutes int,
	metadata map[string]any,
) (*domain.Concept, error) {
	concept, err := domain.NewConcept(code, name, category, tags, difficulty, estimatedMinutes, metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.conceptStore.Create(ctx, concept); err != nil {
		if errors.Is(err, store.ErrConceptCodeExists) {
			return nil, ErrDuplicateConceptCode
		}
		s.logger.Error("failed to create concept", "error", err, "code", concept.Code)
		return nil, newServiceError("graph_service", "create_concept", "failed to save concept", err)
	}

	s.logger.Info("concept created", "concept_id", concept.ID, "code", concept.Code)
	return concept, nil
}

// GetConcept retrieves a concept by ID.
func (s *GraphService) GetConcept(ctx context.Context, id uuid.UUID) (*domain.Concept, error) {
	concept, err := s.conceptStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return nil, ErrConceptNotFound
		}
		return nil, newServiceError("graph_service", "get_concept", "failed to retrieve concept", err)
	}
	return concept, nil
}

// GetConceptByCode retrieves a concept by its unique code.
func (s *GraphService) GetConceptByCode(ctx context.Context, code string) (*domain.Concept, error) {
	concept, err := s.conceptStore.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return nil, ErrConceptNotFound
		}
		return nil, newServiceError("graph_service", "get_concept_by_code", "failed to retrieve concept", err)
	}
	return concept, nil
}

// ListConcepts returns all concepts ordered by code.
func (s *GraphService) ListConcepts(ctx context.Context) ([]*domain.Concept, error) {
	concepts, err := s.conceptStore.List(ctx)
	if err != nil {
		return nil, newServiceError("graph_service", "list_concepts", "failed to list concepts", err)
	}
	return concepts, nil
}

// UpdateConcept persists changes to an existing concept. Structural fields
// (ID) are immutable; only descriptive fields change.
func (s *GraphService) UpdateConcept(ctx context.Context, concept *domain.Concept) error {
	if err := concept.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.conceptStore.Update(ctx, concept); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return ErrConceptNotFound
		}
		if errors.Is(err, store.ErrConceptCodeExists) {
			return ErrDuplicateConceptCode
		}
		return newServiceError("graph_service", "update_concept", "failed to update concept", err)
	}
	return nil
}

// DeleteConcept removes a concept. The store rejects the delete while
// edges or progress records still reference the concept.
func (s *GraphService) DeleteConcept(ctx context.Context, id uuid.UUID) error {
	s.structural.Lock()
	defer s.structural.Unlock()

	if err := s.conceptStore.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrConceptNotFound) {
			return ErrConceptNotFound
		}
		return newServiceError("graph_service", "delete_concept", "failed to delete concept", err)
	}

	s.emitGraphChanged(ctx, []uuid.UUID{id}, "concept_deleted")
	return nil
}

// AddPrerequisite creates a prerequisite edge after verifying it would not
// introduce a cycle. The cycle check runs before any database mutation, so
// a rejected edge leaves no trace.
func (s *GraphService) AddPrerequisite(
	ctx context.Context,
	conceptID, prerequisiteID uuid.UUID,
	requirementType domain.RequirementType,
	minMastery float64,
) (*domain.PrerequisiteEdge, error) {
	edge, err := domain.NewPrerequisiteEdge(conceptID, prerequisiteID, requirementType, minMastery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	s.structural.Lock()
	defer s.structural.Unlock()

	if edge.Blocking() && s.index.WouldCreateCycle(conceptID, prerequisiteID) {
		s.logger.Warn("rejected edge that would create a cycle",
			"concept_id", conceptID,
			"prerequisite_id", prerequisiteID)
		return nil, fmt.Errorf("%w: %s requires %s", ErrCycleDetected, conceptID, prerequisiteID)
	}

	if err := s.edgeStore.Create(ctx, edge); err != nil {
		var edgeErr *store.EdgeError
		if errors.As(err, &edgeErr) {
			switch {
			case errors.Is(err, store.ErrEdgeExists):
				return nil, ErrDuplicateEdge
			case errors.Is(err, store.ErrInvalidEntity):
				return nil, ErrConceptNotFound
			}
		}
		s.logger.Error("failed to create edge",
			"error", err,
			"concept_id", conceptID,
			"prerequisite_id", prerequisiteID)
		return nil, newServiceError("graph_service", "add_prerequisite", "failed to save edge", err)
	}

	s.index.Add(*edge)
	s.logger.Info("prerequisite edge created",
		"concept_id", conceptID,
		"prerequisite_id", prerequisiteID,
		"requirement_type", string(requirementType))

	s.emitGraphChanged(ctx, []uuid.UUID{conceptID, prerequisiteID}, "edge_added")
	return edge, nil
}

// RemovePrerequisite deletes a prerequisite edge. Removing an edge can
// never create a cycle, so no validation is needed.
func (s *GraphService) RemovePrerequisite(ctx context.Context, conceptID, prerequisiteID uuid.UUID) error {
	s.structural.Lock()
	defer s.structural.Unlock()

	if err := s.edgeStore.Delete(ctx, conceptID, prerequisiteID); err != nil {
		if errors.Is(err, store.ErrEdgeNotFound) {
			return ErrEdgeNotFound
		}
		return newServiceError("graph_service", "remove_prerequisite", "failed to delete edge", err)
	}

	s.index.Remove(conceptID, prerequisiteID)
	s.emitGraphChanged(ctx, []uuid.UUID{conceptID, prerequisiteID}, "edge_removed")
	return nil
}

// GetPrerequisites returns the direct prerequisite edges of a concept.
func (s *GraphService) GetPrerequisites(ctx context.Context, conceptID uuid.UUID) ([]domain.PrerequisiteEdge, error) {
	if _, err := s.GetConcept(ctx, conceptID); err != nil {
		return nil, err
	}
	return s.index.DirectPrerequisites(conceptID), nil
}

// GetTransitivePrerequisites returns every concept reachable by following
// prerequisite edges from the given concept, in breadth-first order.
func (s *GraphService) GetTransitivePrerequisites(ctx context.Context, conceptID uuid.UUID) ([]uuid.UUID, error) {
	if _, err := s.GetConcept(ctx, conceptID); err != nil {
		return nil, err
	}
	return s.index.TransitivePrerequisites(conceptID), nil
}

// CreatePath creates a new learning path.
func (s *GraphService) CreatePath(ctx context.Context, name, description string) (*domain.Path, error) {
	path, err := domain.NewPath(name, description)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.pathStore.Create(ctx, path); err != nil {
		return nil, newServiceError("graph_service", "create_path", "failed to save path", err)
	}

	s.logger.Info("path created", "path_id", path.ID, "name", path.Name)
	return path, nil
}

// GetPath retrieves a path with its ordered concepts.
func (s *GraphService) GetPath(ctx context.Context, pathID uuid.UUID) (*domain.Path, []domain.PathConcept, error) {
	path, err := s.pathStore.GetByID(ctx, pathID)
	if err != nil {
		if errors.Is(err, store.ErrPathNotFound) {
			return nil, nil, ErrPathNotFound
		}
		return nil, nil, newServiceError("graph_service", "get_path", "failed to retrieve path", err)
	}

	concepts, err := s.pathStore.ListConcepts(ctx, pathID)
	if err != nil {
		return nil, nil, newServiceError("graph_service", "get_path", "failed to list path concepts", err)
	}

	return path, concepts, nil
}

// AddConceptToPath appends a concept to a path at the given sequence order.
func (s *GraphService) AddConceptToPath(ctx context.Context, pathID, conceptID uuid.UUID, sequenceOrder int, required bool) error {
	pc := &domain.PathConcept{
		PathID:        pathID,
		ConceptID:     conceptID,
		SequenceOrder: sequenceOrder,
		Required:      required,
	}
	if err := pc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	if err := s.pathStore.AddConcept(ctx, pc); err != nil {
		switch {
		case errors.Is(err, store.ErrSequenceOrderExists):
			return fmt.Errorf("%w: sequence order %d is taken", ErrValidation, sequenceOrder)
		case errors.Is(err, store.ErrInvalidEntity):
			return ErrConceptNotFound
		}
		return newServiceError("graph_service", "add_concept_to_path", "failed to add concept to path", err)
	}
	return nil
}

// RemoveConceptFromPath removes a concept from a path.
func (s *GraphService) RemoveConceptFromPath(ctx context.Context, pathID, conceptID uuid.UUID) error {
	if err := s.pathStore.RemoveConcept(ctx, pathID, conceptID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrPathNotFound
		}
		return newServiceError("graph_service", "remove_concept_from_path", "failed to remove concept from path", err)
	}
	return nil
}

// GraphNode is one concept in a visualization view of the graph.
type GraphNode struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Category   string    `json:"category"`
	Difficulty float64   `json:"difficulty"`
}

// GraphEdge is one prerequisite relationship in a visualization view.
type GraphEdge struct {
	ConceptID       uuid.UUID `json:"concept_id"`
	PrerequisiteID  uuid.UUID `json:"prerequisite_id"`
	RequirementType string    `json:"requirement_type"`
	MinMastery      float64   `json:"min_mastery"`
}

// GraphView is a complete node-and-edge dump of the concept graph,
// suitable for client-side rendering.
type GraphView struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// Visualize returns the full graph as nodes and edges.
func (s *GraphService) Visualize(ctx context.Context) (*GraphView, error) {
	concepts, err := s.conceptStore.List(ctx)
	if err != nil {
		return nil, newServiceError("graph_service", "visualize", "failed to list concepts", err)
	}
	edges, err := s.edgeStore.ListAll(ctx)
	if err != nil {
		return nil, newServiceError("graph_service", "visualize", "failed to list edges", err)
	}

	view := &GraphView{
		Nodes: make([]GraphNode, 0, len(concepts)),
		Edges: make([]GraphEdge, 0, len(edges)),
	}
	for _, c := range concepts {
		view.Nodes = append(view.Nodes, GraphNode{
			ID:         c.ID,
			Code:       c.Code,
			Name:       c.Name,
			Category:   c.Category,
			Difficulty: c.Difficulty,
		})
	}
	for _, e := range edges {
		view.Edges = append(view.Edges, GraphEdge{
			ConceptID:       e.ConceptID,
			PrerequisiteID:  e.PrerequisiteID,
			RequirementType: string(e.RequirementType),
			MinMastery:      e.MinMastery,
		})
	}

	return view, nil
}

// Index exposes the in-memory edge index for readiness checks by other
// services.
func (s *GraphService) Index() *graph.Index {
	return s.index
}

// emitGraphChanged publishes a graph change event. Emission failures are
// logged, not returned: the mutation already committed and handlers only
// maintain derived state.
func (s *GraphService) emitGraphChanged(ctx context.Context, conceptIDs []uuid.UUID, change string) {
	event, err := events.NewEvent(events.EventTypeGraphChanged, events.GraphChangedPayload{
		ConceptIDs: conceptIDs,
		Change:     change,
	})
	if err != nil {
		s.logger.Error("failed to create graph change event", "error", err, "change", change)
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.logger.Error("failed to emit graph change event", "error", err, "change", change)
	}
}
