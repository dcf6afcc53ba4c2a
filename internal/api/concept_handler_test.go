package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/store"
)

func testHandlerLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubConceptStore is a function-field stub for store.ConceptStore.
type stubConceptStore struct {
	createFn  func(ctx context.Context, concept *domain.Concept) error
	getByIDFn func(ctx context.Context, id uuid.UUID) (*domain.Concept, error)
	listFn    func(ctx context.Context) ([]*domain.Concept, error)
}

func (s *stubConceptStore) Create(ctx context.Context, concept *domain.Concept) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, concept)
}

func (s *stubConceptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Concept, error) {
	if s.getByIDFn == nil {
		return nil, store.ErrConceptNotFound
	}
	return s.getByIDFn(ctx, id)
}

func (s *stubConceptStore) GetByCode(_ context.Context, _ string) (*domain.Concept, error) {
	return nil, store.ErrConceptNotFound
}

func (s *stubConceptStore) Update(_ context.Context, _ *domain.Concept) error { return nil }
func (s *stubConceptStore) Delete(_ context.Context, _ uuid.UUID) error       { return nil }

func (s *stubConceptStore) List(ctx context.Context) ([]*domain.Concept, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx)
}

func (s *stubConceptStore) WithTx(_ *sql.Tx) store.ConceptStore { return s }

// stubEdgeStore is a function-field stub for store.EdgeStore.
type stubEdgeStore struct {
	createFn  func(ctx context.Context, edge *domain.PrerequisiteEdge) error
	listAllFn func(ctx context.Context) ([]domain.PrerequisiteEdge, error)
}

func (s *stubEdgeStore) Create(ctx context.Context, edge *domain.PrerequisiteEdge) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, edge)
}

func (s *stubEdgeStore) Delete(_ context.Context, _, _ uuid.UUID) error { return nil }

func (s *stubEdgeStore) ListFor(_ context.Context, _ uuid.UUID) ([]domain.PrerequisiteEdge, error) {
	return nil, nil
}

func (s *stubEdgeStore) ListAll(ctx context.Context) ([]domain.PrerequisiteEdge, error) {
	if s.listAllFn == nil {
		return nil, nil
	}
	return s.listAllFn(ctx)
}

func (s *stubEdgeStore) WithTx(_ *sql.Tx) store.EdgeStore { return s }

// stubPathStore is a function-field stub for store.PathStore.
type stubPathStore struct{}

func (s *stubPathStore) Create(_ context.Context, _ *domain.Path) error { return nil }
func (s *stubPathStore) GetByID(_ context.Context, _ uuid.UUID) (*domain.Path, error) {
	return nil, store.ErrPathNotFound
}
func (s *stubPathStore) AddConcept(_ context.Context, _ *domain.PathConcept) error { return nil }
func (s *stubPathStore) RemoveConcept(_ context.Context, _, _ uuid.UUID) error     { return nil }
func (s *stubPathStore) ListConcepts(_ context.Context, _ uuid.UUID) ([]domain.PathConcept, error) {
	return nil, nil
}
func (s *stubPathStore) List(_ context.Context) ([]*domain.Path, error) { return nil, nil }
func (s *stubPathStore) WithTx(_ *sql.Tx) store.PathStore               { return s }

// dropEmitter discards all events.
type dropEmitter struct{}

func (dropEmitter) EmitEvent(_ context.Context, _ *events.Event) error { return nil }

func newTestGraphService(t *testing.T, conceptStore *stubConceptStore, edgeStore *stubEdgeStore) *service.GraphService {
	t.Helper()

	svc, err := service.NewGraphService(
		context.Background(),
		conceptStore,
		edgeStore,
		&stubPathStore{},
		&dropEmitter{},
		testHandlerLogger(),
	)
	require.NoError(t, err)
	return svc
}

func newConceptRouter(h *ConceptHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/concepts", h.CreateConcept)
	r.Get("/concepts/{id}", h.GetConcept)
	r.Post("/concepts/{id}/prerequisites", h.AddPrerequisite)
	return r
}

func TestCreateConceptHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		createErr      error
		expectedStatus int
	}{
		{
			name:           "valid request",
			body:           `{"code":"algebra-1","name":"Algebra I","category":"math","difficulty":0.3,"estimated_minutes":45}`,
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "malformed JSON",
			body:           `{"code":`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "missing required fields",
			body:           `{"category":"math"}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "difficulty out of range",
			body:           `{"code":"algebra-1","name":"Algebra I","difficulty":1.5}`,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "duplicate code",
			body:           `{"code":"algebra-1","name":"Algebra I","difficulty":0.3}`,
			createErr:      store.ErrConceptCodeExists,
			expectedStatus: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conceptStore := &stubConceptStore{
				createFn: func(_ context.Context, _ *domain.Concept) error {
					return tt.createErr
				},
			}
			svc := newTestGraphService(t, conceptStore, &stubEdgeStore{})
			handler := NewConceptHandler(svc, testHandlerLogger())
			router := newConceptRouter(handler)

			req := httptest.NewRequest(http.MethodPost, "/concepts", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedStatus == http.StatusCreated {
				var concept domain.Concept
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &concept))
				assert.Equal(t, "algebra-1", concept.Code)
				assert.NotEqual(t, uuid.Nil, concept.ID)
			}
		})
	}
}

func TestGetConceptHandler(t *testing.T) {
	concept, err := domain.NewConcept("algebra-1", "Algebra I", "math", nil, 0.3, 45, nil)
	require.NoError(t, err)

	conceptStore := &stubConceptStore{
		getByIDFn: func(_ context.Context, id uuid.UUID) (*domain.Concept, error) {
			if id == concept.ID {
				return concept, nil
			}
			return nil, store.ErrConceptNotFound
		},
	}
	svc := newTestGraphService(t, conceptStore, &stubEdgeStore{})
	handler := NewConceptHandler(svc, testHandlerLogger())
	router := newConceptRouter(handler)

	t.Run("existing concept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/concepts/"+concept.ID.String(), nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown concept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/concepts/"+uuid.NewString(), nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed concept ID", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/concepts/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAddPrerequisiteHandler(t *testing.T) {
	conceptID := uuid.New()
	prereqID := uuid.New()

	t.Run("creates the edge", func(t *testing.T) {
		svc := newTestGraphService(t, &stubConceptStore{}, &stubEdgeStore{})
		handler := NewConceptHandler(svc, testHandlerLogger())
		router := newConceptRouter(handler)

		body := fmt.Sprintf(`{"prerequisite_id":%q,"min_mastery":0.8}`, prereqID)
		req := httptest.NewRequest(http.MethodPost,
			"/concepts/"+conceptID.String()+"/prerequisites", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var edge domain.PrerequisiteEdge
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edge))
		// The requirement type defaults to required when omitted.
		assert.Equal(t, domain.RequirementRequired, edge.RequirementType)
	})

	t.Run("rejects a cycle with 409", func(t *testing.T) {
		// The committed graph already holds prereq -> concept.
		existing, err := domain.NewPrerequisiteEdge(prereqID, conceptID, domain.RequirementRequired, 0.8)
		require.NoError(t, err)

		edgeStore := &stubEdgeStore{
			listAllFn: func(_ context.Context) ([]domain.PrerequisiteEdge, error) {
				return []domain.PrerequisiteEdge{*existing}, nil
			},
		}
		svc := newTestGraphService(t, &stubConceptStore{}, edgeStore)
		handler := NewConceptHandler(svc, testHandlerLogger())
		router := newConceptRouter(handler)

		body := fmt.Sprintf(`{"prerequisite_id":%q,"min_mastery":0.8}`, prereqID)
		req := httptest.NewRequest(http.MethodPost,
			"/concepts/"+conceptID.String()+"/prerequisites", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("rejects a self reference with 400", func(t *testing.T) {
		svc := newTestGraphService(t, &stubConceptStore{}, &stubEdgeStore{})
		handler := NewConceptHandler(svc, testHandlerLogger())
		router := newConceptRouter(handler)

		body := fmt.Sprintf(`{"prerequisite_id":%q,"min_mastery":0.8}`, conceptID)
		req := httptest.NewRequest(http.MethodPost,
			"/concepts/"+conceptID.String()+"/prerequisites", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
