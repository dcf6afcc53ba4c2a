package service_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/hutchutchutch/learntrac/internal/cache"
	"github.com/hutchutchutch/learntrac/internal/domain"
	"github.com/hutchutchutch/learntrac/internal/events"
	"github.com/hutchutchutch/learntrac/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockConceptStore mocks the store.ConceptStore interface
type MockConceptStore struct {
	mock.Mock
}

func (m *MockConceptStore) Create(ctx context.Context, concept *domain.Concept) error {
	args := m.Called(ctx, concept)
	return args.Error(0)
}

func (m *MockConceptStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Concept, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Concept), args.Error(1)
}

func (m *MockConceptStore) GetByCode(ctx context.Context, code string) (*domain.Concept, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Concept), args.Error(1)
}

func (m *MockConceptStore) Update(ctx context.Context, concept *domain.Concept) error {
	args := m.Called(ctx, concept)
	return args.Error(0)
}

func (m *MockConceptStore) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockConceptStore) List(ctx context.Context) ([]*domain.Concept, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Concept), args.Error(1)
}

func (m *MockConceptStore) WithTx(_ *sql.Tx) store.ConceptStore {
	return m
}

// MockEdgeStore mocks the store.EdgeStore interface
type MockEdgeStore struct {
	mock.Mock
}

func (m *MockEdgeStore) Create(ctx context.Context, edge *domain.PrerequisiteEdge) error {
	args := m.Called(ctx, edge)
	return args.Error(0)
}

func (m *MockEdgeStore) Delete(ctx context.Context, conceptID, prerequisiteID uuid.UUID) error {
	args := m.Called(ctx, conceptID, prerequisiteID)
	return args.Error(0)
}

func (m *MockEdgeStore) ListFor(ctx context.Context, conceptID uuid.UUID) ([]domain.PrerequisiteEdge, error) {
	args := m.Called(ctx, conceptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PrerequisiteEdge), args.Error(1)
}

func (m *MockEdgeStore) ListAll(ctx context.Context) ([]domain.PrerequisiteEdge, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PrerequisiteEdge), args.Error(1)
}

func (m *MockEdgeStore) WithTx(_ *sql.Tx) store.EdgeStore {
	return m
}

// MockPathStore mocks the store.PathStore interface
type MockPathStore struct {
	mock.Mock
}

func (m *MockPathStore) Create(ctx context.Context, path *domain.Path) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockPathStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Path, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Path), args.Error(1)
}

func (m *MockPathStore) AddConcept(ctx context.Context, pc *domain.PathConcept) error {
	args := m.Called(ctx, pc)
	return args.Error(0)
}

func (m *MockPathStore) RemoveConcept(ctx context.Context, pathID, conceptID uuid.UUID) error {
	args := m.Called(ctx, pathID, conceptID)
	return args.Error(0)
}

func (m *MockPathStore) ListConcepts(ctx context.Context, pathID uuid.UUID) ([]domain.PathConcept, error) {
	args := m.Called(ctx, pathID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PathConcept), args.Error(1)
}

func (m *MockPathStore) List(ctx context.Context) ([]*domain.Path, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Path), args.Error(1)
}

func (m *MockPathStore) WithTx(_ *sql.Tx) store.PathStore {
	return m
}

// MockProgressStore mocks the store.ProgressStore interface
type MockProgressStore struct {
	mock.Mock
}

func (m *MockProgressStore) Create(ctx context.Context, rec *domain.ProgressRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockProgressStore) Get(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, conceptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProgressRecord), args.Error(1)
}

func (m *MockProgressStore) GetForUpdate(ctx context.Context, userID, conceptID uuid.UUID) (*domain.ProgressRecord, error) {
	args := m.Called(ctx, userID, conceptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ProgressRecord), args.Error(1)
}

func (m *MockProgressStore) Update(ctx context.Context, rec *domain.ProgressRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockProgressStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.ProgressRecord, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ProgressRecord), args.Error(1)
}

func (m *MockProgressStore) ListCompletions(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

func (m *MockProgressStore) ListCohortUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockProgressStore) WithTx(_ *sql.Tx) store.ProgressStore {
	return m
}

// MockSnapshotCache mocks the cache.SnapshotCache interface
type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) Get(ctx context.Context, userID, pathID uuid.UUID) (*cache.DashboardSnapshot, error) {
	args := m.Called(ctx, userID, pathID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.DashboardSnapshot), args.Error(1)
}

func (m *MockSnapshotCache) Set(ctx context.Context, snapshot *cache.DashboardSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockSnapshotCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockSnapshotCache) InvalidateAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// recordingEmitter collects emitted events for assertions.
type recordingEmitter struct {
	events []*events.Event
}

func (e *recordingEmitter) EmitEvent(_ context.Context, event *events.Event) error {
	e.events = append(e.events, event)
	return nil
}
