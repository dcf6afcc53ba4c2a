package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/service"
	"github.com/hutchutchutch/learntrac/internal/store"
)

func newGraphService(
	t *testing.T,
	conceptStore *MockConceptStore,
	edgeStore *MockEdgeStore,
	pathStore *MockPathStore,
	edges []domain.PrerequisiteEdge,
) (*service.GraphService, *recordingEmitter) {
	t.Helper()

	emitter := &recordingEmitter{}
	edgeStore.On("ListAll", mock.Anything).Return(edges, nil).Once()

	svc, err := service.NewGraphService(
		context.Background(),
		conceptStore,
		edgeStore,
		pathStore,
		emitter,
		testLogger(),
	)
	require.NoError(t, err)
	return svc, emitter
}

func mustEdge(t *testing.T, conceptID, prerequisiteID uuid.UUID) domain.PrerequisiteEdge {
	t.Helper()
	edge, err := domain.NewPrerequisiteEdge(conceptID, prerequisiteID, domain.RequirementRequired, 0.8)
	require.NoError(t, err)
	return *edge
}

func TestNewGraphService(t *testing.T) {
	t.Run("loads the edge index at startup", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		svc, _ := newGraphService(t,
			new(MockConceptStore), new(MockEdgeStore), new(MockPathStore),
			[]domain.PrerequisiteEdge{mustEdge(t, conceptID, prereqID)})

		assert.Equal(t, 1, svc.Index().EdgeCount())
	})

	t.Run("rejects nil stores", func(t *testing.T) {
		_, err := service.NewGraphService(
			context.Background(), nil, new(MockEdgeStore), new(MockPathStore),
			&recordingEmitter{}, testLogger())
		assert.Error(t, err)
	})

	t.Run("rejects nil emitter", func(t *testing.T) {
		_, err := service.NewGraphService(
			context.Background(), new(MockConceptStore), new(MockEdgeStore), new(MockPathStore),
			nil, testLogger())
		assert.Error(t, err)
	})
}

func TestCreateConcept(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a valid concept", func(t *testing.T) {
		conceptStore := new(MockConceptStore)
		conceptStore.On("Create", mock.Anything, mock.AnythingOfType("*domain.Concept")).Return(nil)

		svc, _ := newGraphService(t, conceptStore, new(MockEdgeStore), new(MockPathStore), nil)

		concept, err := svc.CreateConcept(ctx, "algebra-1", "Algebra I", "math", []string{"foundations"}, 0.3, 45, nil)
		require.NoError(t, err)
		assert.Equal(t, "algebra-1", concept.Code)
		assert.NotEqual(t, uuid.Nil, concept.ID)
		conceptStore.AssertExpectations(t)
	})

	t.Run("maps a duplicate code", func(t *testing.T) {
		conceptStore := new(MockConceptStore)
		conceptStore.On("Create", mock.Anything, mock.Anything).Return(store.ErrConceptCodeExists)

		svc, _ := newGraphService(t, conceptStore, new(MockEdgeStore), new(MockPathStore), nil)

		_, err := svc.CreateConcept(ctx, "algebra-1", "Algebra I", "math", nil, 0.3, 45, nil)
		assert.ErrorIs(t, err, service.ErrDuplicateConceptCode)
	})

	t.Run("rejects invalid input without touching the store", func(t *testing.T) {
		conceptStore := new(MockConceptStore)
		svc, _ := newGraphService(t, conceptStore, new(MockEdgeStore), new(MockPathStore), nil)

		_, err := svc.CreateConcept(ctx, "", "Algebra I", "math", nil, 0.3, 45, nil)
		assert.ErrorIs(t, err, service.ErrValidation)
		conceptStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestAddPrerequisite(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an edge and updates the index", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Create", mock.Anything, mock.AnythingOfType("*domain.PrerequisiteEdge")).Return(nil)

		svc, emitter := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore), nil)

		edge, err := svc.AddPrerequisite(ctx, conceptID, prereqID, domain.RequirementRequired, 0.8)
		require.NoError(t, err)
		assert.Equal(t, conceptID, edge.ConceptID)
		assert.Equal(t, 1, svc.Index().EdgeCount())
		require.Len(t, emitter.events, 1)
		assert.Equal(t, "graph.changed", emitter.events[0].Type)
	})

	t.Run("rejects a cycle before any store call", func(t *testing.T) {
		a := uuid.New()
		b := uuid.New()
		c := uuid.New()

		// a <- b <- c is already committed; a requiring c closes the loop.
		edgeStore := new(MockEdgeStore)
		svc, emitter := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore),
			[]domain.PrerequisiteEdge{
				mustEdge(t, b, a),
				mustEdge(t, c, b),
			})

		_, err := svc.AddPrerequisite(ctx, a, c, domain.RequirementRequired, 0.8)
		assert.ErrorIs(t, err, service.ErrCycleDetected)
		edgeStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Equal(t, 2, svc.Index().EdgeCount())
		assert.Empty(t, emitter.events)
	})

	t.Run("allows a recommended edge that would loop", func(t *testing.T) {
		a := uuid.New()
		b := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Create", mock.Anything, mock.Anything).Return(nil)

		svc, _ := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore),
			[]domain.PrerequisiteEdge{mustEdge(t, b, a)})

		_, err := svc.AddPrerequisite(ctx, a, b, domain.RequirementRecommended, 0.5)
		assert.NoError(t, err)
	})

	t.Run("rejects a self reference", func(t *testing.T) {
		a := uuid.New()
		svc, _ := newGraphService(t, new(MockConceptStore), new(MockEdgeStore), new(MockPathStore), nil)

		_, err := svc.AddPrerequisite(ctx, a, a, domain.RequirementRequired, 0.8)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("maps a duplicate edge", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Create", mock.Anything, mock.Anything).
			Return(store.NewEdgeError(conceptID.String(), prereqID.String(), store.ErrEdgeExists))

		svc, _ := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore), nil)

		_, err := svc.AddPrerequisite(ctx, conceptID, prereqID, domain.RequirementRequired, 0.8)
		assert.ErrorIs(t, err, service.ErrDuplicateEdge)
		assert.Equal(t, 0, svc.Index().EdgeCount())
	})

	t.Run("maps a missing concept", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Create", mock.Anything, mock.Anything).
			Return(store.NewEdgeError(conceptID.String(), prereqID.String(), store.ErrInvalidEntity))

		svc, _ := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore), nil)

		_, err := svc.AddPrerequisite(ctx, conceptID, prereqID, domain.RequirementRequired, 0.8)
		assert.ErrorIs(t, err, service.ErrConceptNotFound)
	})
}

func TestRemovePrerequisite(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the edge from store and index", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Delete", mock.Anything, conceptID, prereqID).Return(nil)

		svc, emitter := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore),
			[]domain.PrerequisiteEdge{mustEdge(t, conceptID, prereqID)})

		err := svc.RemovePrerequisite(ctx, conceptID, prereqID)
		require.NoError(t, err)
		assert.Equal(t, 0, svc.Index().EdgeCount())
		require.Len(t, emitter.events, 1)
	})

	t.Run("maps a missing edge", func(t *testing.T) {
		conceptID := uuid.New()
		prereqID := uuid.New()

		edgeStore := new(MockEdgeStore)
		edgeStore.On("Delete", mock.Anything, conceptID, prereqID).Return(store.ErrEdgeNotFound)

		svc, _ := newGraphService(t, new(MockConceptStore), edgeStore, new(MockPathStore), nil)

		err := svc.RemovePrerequisite(ctx, conceptID, prereqID)
		assert.ErrorIs(t, err, service.ErrEdgeNotFound)
	})
}

func TestGetConcept(t *testing.T) {
	ctx := context.Background()

	t.Run("maps a missing concept", func(t *testing.T) {
		conceptStore := new(MockConceptStore)
		conceptStore.On("GetByID", mock.Anything, mock.Anything).Return(nil, store.ErrConceptNotFound)

		svc, _ := newGraphService(t, conceptStore, new(MockEdgeStore), new(MockPathStore), nil)

		_, err := svc.GetConcept(ctx, uuid.New())
		assert.ErrorIs(t, err, service.ErrConceptNotFound)
	})
}

func TestAddConceptToPath(t *testing.T) {
	ctx := context.Background()

	t.Run("adds a concept", func(t *testing.T) {
		pathStore := new(MockPathStore)
		pathStore.On("AddConcept", mock.Anything, mock.AnythingOfType("*domain.PathConcept")).Return(nil)

		svc, _ := newGraphService(t, new(MockConceptStore), new(MockEdgeStore), pathStore, nil)

		err := svc.AddConceptToPath(ctx, uuid.New(), uuid.New(), 1, true)
		assert.NoError(t, err)
		pathStore.AssertExpectations(t)
	})

	t.Run("maps a taken sequence order", func(t *testing.T) {
		pathStore := new(MockPathStore)
		pathStore.On("AddConcept", mock.Anything, mock.Anything).Return(store.ErrSequenceOrderExists)

		svc, _ := newGraphService(t, new(MockConceptStore), new(MockEdgeStore), pathStore, nil)

		err := svc.AddConceptToPath(ctx, uuid.New(), uuid.New(), 1, true)
		assert.ErrorIs(t, err, service.ErrValidation)
	})

	t.Run("rejects a negative sequence order", func(t *testing.T) {
		pathStore := new(MockPathStore)
		svc, _ := newGraphService(t, new(MockConceptStore), new(MockEdgeStore), pathStore, nil)

		err := svc.AddConceptToPath(ctx, uuid.New(), uuid.New(), -1, true)
		assert.ErrorIs(t, err, service.ErrValidation)
		pathStore.AssertNotCalled(t, "AddConcept", mock.Anything, mock.Anything)
	})
}

func TestVisualize(t *testing.T) {
	ctx := context.Background()

	conceptA, err := domain.NewConcept("algebra-1", "Algebra I", "math", nil, 0.3, 45, nil)
	require.NoError(t, err)
	conceptB, err := domain.NewConcept("algebra-2", "Algebra II", "math", nil, 0.5, 60, nil)
	require.NoError(t, err)
	edge := mustEdge(t, conceptB.ID, conceptA.ID)

	conceptStore := new(MockConceptStore)
	conceptStore.On("List", mock.Anything).Return([]*domain.Concept{conceptA, conceptB}, nil)

	edgeStore := new(MockEdgeStore)
	edgeStore.On("ListAll", mock.Anything).Return([]domain.PrerequisiteEdge{edge}, nil)

	svc, _ := newGraphService(t, conceptStore, edgeStore, new(MockPathStore), nil)

	view, err := svc.Visualize(ctx)
	require.NoError(t, err)
	assert.Len(t, view.Nodes, 2)
	require.Len(t, view.Edges, 1)
	assert.Equal(t, conceptB.ID, view.Edges[0].ConceptID)
	assert.Equal(t, string(domain.RequirementRequired), view.Edges[0].RequirementType)
}
