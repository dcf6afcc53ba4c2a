package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// RequirementType describes how strongly one concept depends on another.
type RequirementType string

const (
	// RequirementRequired means the prerequisite must be mastered before the
	// concept can be unlocked. Only required edges participate in cycle
	// detection and readiness gating.
	RequirementRequired RequirementType = "required"

	// RequirementRecommended means the prerequisite is advisable but never
	// blocks readiness.
	RequirementRecommended RequirementType = "recommended"

	// RequirementOptional means the prerequisite is purely informational.
	RequirementOptional RequirementType = "optional"
)

// Prerequisite edge validation errors
var (
	// ErrEdgeConceptIDEmpty is returned when an edge's concept ID is empty or nil.
	ErrEdgeConceptIDEmpty = errors.New("edge concept ID cannot be empty")

	// ErrEdgePrerequisiteIDEmpty is returned when an edge's prerequisite ID is empty or nil.
	ErrEdgePrerequisiteIDEmpty = errors.New("edge prerequisite ID cannot be empty")

	// ErrEdgeSelfReference is returned when a concept is declared as its own prerequisite.
	ErrEdgeSelfReference = errors.New("concept cannot be its own prerequisite")

	// ErrEdgeRequirementTypeInvalid is returned when the requirement type is not
	// one of required, recommended, or optional.
	ErrEdgeRequirementTypeInvalid = errors.New("invalid requirement type")

	// ErrEdgeMinMasteryRange is returned when the minimum mastery level is outside [0,1].
	ErrEdgeMinMasteryRange = errors.New("minimum mastery level must be between 0 and 1")
)

// PrerequisiteEdge is a directed relation meaning PrerequisiteID should be
// mastered (to at least MinMastery) before ConceptID is attempted.
type PrerequisiteEdge struct {
	ConceptID       uuid.UUID       `json:"concept_id"`
	PrerequisiteID  uuid.UUID       `json:"prerequisite_id"`
	RequirementType RequirementType `json:"requirement_type"`
	MinMastery      float64         `json:"min_mastery"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewPrerequisiteEdge creates a validated prerequisite edge.
// Self-references are rejected here, before any storage interaction.
func NewPrerequisiteEdge(
	conceptID, prerequisiteID uuid.UUID,
	requirementType RequirementType,
	minMastery float64,
) (*PrerequisiteEdge, error) {
	edge := &PrerequisiteEdge{
		ConceptID:       conceptID,
		PrerequisiteID:  prerequisiteID,
		RequirementType: requirementType,
		MinMastery:      minMastery,
		CreatedAt:       time.Now().UTC(),
	}

	if err := edge.Validate(); err != nil {
		return nil, err
	}

	return edge, nil
}

// Validate checks if the PrerequisiteEdge has valid data.
// Returns an error if any field fails validation.
func (e *PrerequisiteEdge) Validate() error {
	if e.ConceptID == uuid.Nil {
		return ErrEdgeConceptIDEmpty
	}

	if e.PrerequisiteID == uuid.Nil {
		return ErrEdgePrerequisiteIDEmpty
	}

	if e.ConceptID == e.PrerequisiteID {
		return ErrEdgeSelfReference
	}

	switch e.RequirementType {
	case RequirementRequired, RequirementRecommended, RequirementOptional:
	default:
		return ErrEdgeRequirementTypeInvalid
	}

	if e.MinMastery < 0 || e.MinMastery > 1 {
		return ErrEdgeMinMasteryRange
	}

	return nil
}

// Blocking reports whether this edge participates in readiness gating
// and cycle detection. Only required edges do.
func (e *PrerequisiteEdge) Blocking() bool {
	return e.RequirementType == RequirementRequired
}
