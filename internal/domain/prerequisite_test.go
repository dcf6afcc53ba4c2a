package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewPrerequisiteEdge(t *testing.T) {
	t.Parallel()

	conceptID := uuid.New()
	prereqID := uuid.New()

	edge, err := NewPrerequisiteEdge(conceptID, prereqID, RequirementRequired, 0.7)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if edge.ConceptID != conceptID {
		t.Errorf("Expected concept ID %s, got %s", conceptID, edge.ConceptID)
	}
	if edge.PrerequisiteID != prereqID {
		t.Errorf("Expected prerequisite ID %s, got %s", prereqID, edge.PrerequisiteID)
	}
	if edge.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}
}

func TestNewPrerequisiteEdgeRejectsSelfReference(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	_, err := NewPrerequisiteEdge(id, id, RequirementRequired, 0.5)
	if !errors.Is(err, ErrEdgeSelfReference) {
		t.Errorf("Expected error %v, got %v", ErrEdgeSelfReference, err)
	}
}

func TestNewPrerequisiteEdgeValidation(t *testing.T) {
	t.Parallel()

	conceptID := uuid.New()
	prereqID := uuid.New()

	cases := []struct {
		name            string
		conceptID       uuid.UUID
		prereqID        uuid.UUID
		requirementType RequirementType
		minMastery      float64
		wantErr         error
	}{
		{"nil concept ID", uuid.Nil, prereqID, RequirementRequired, 0.5, ErrEdgeConceptIDEmpty},
		{"nil prerequisite ID", conceptID, uuid.Nil, RequirementRequired, 0.5, ErrEdgePrerequisiteIDEmpty},
		{"unknown requirement type", conceptID, prereqID, RequirementType("mandatory"), 0.5, ErrEdgeRequirementTypeInvalid},
		{"min mastery below range", conceptID, prereqID, RequirementRequired, -0.1, ErrEdgeMinMasteryRange},
		{"min mastery above range", conceptID, prereqID, RequirementRequired, 1.5, ErrEdgeMinMasteryRange},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewPrerequisiteEdge(tc.conceptID, tc.prereqID, tc.requirementType, tc.minMastery)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestPrerequisiteEdgeBlocking(t *testing.T) {
	t.Parallel()

	cases := []struct {
		requirementType RequirementType
		want            bool
	}{
		{RequirementRequired, true},
		{RequirementRecommended, false},
		{RequirementOptional, false},
	}

	for _, tc := range cases {
		edge, err := NewPrerequisiteEdge(uuid.New(), uuid.New(), tc.requirementType, 0.5)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if edge.Blocking() != tc.want {
			t.Errorf("Blocking() for %s: expected %v, got %v", tc.requirementType, tc.want, edge.Blocking())
		}
	}
}
