package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Path-specific validation errors
var (
	// ErrPathIDEmpty is returned when a path ID is empty or nil.
	ErrPathIDEmpty = errors.New("path ID cannot be empty")

	// ErrPathNameEmpty is returned when a path's name is empty.
	ErrPathNameEmpty = errors.New("path name cannot be empty")

	// ErrPathConceptIDEmpty is returned when a path concept's concept ID is empty or nil.
	ErrPathConceptIDEmpty = errors.New("path concept ID cannot be empty")

	// ErrPathSequenceNegative is returned when a path concept's sequence order is negative.
	ErrPathSequenceNegative = errors.New("path sequence order cannot be negative")

	// ErrPathSequenceDuplicate is returned when two concepts in a path share a
	// sequence order. Sequence order must be unique within a path.
	ErrPathSequenceDuplicate = errors.New("duplicate sequence order within path")
)

// Path is an ordered, named curriculum grouping of concepts.
type Path struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PathConcept is a membership row linking a concept into a path at a given
// position. Required marks whether the concept counts towards path completion.
type PathConcept struct {
	PathID        uuid.UUID `json:"path_id"`
	ConceptID     uuid.UUID `json:"concept_id"`
	SequenceOrder int       `json:"sequence_order"`
	Required      bool      `json:"required"`
}

// NewPath creates a new Path with the given name and description.
// Returns an error if validation fails.
func NewPath(name, description string) (*Path, error) {
	path := &Path{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(name),
		Description: description,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}

	if err := path.Validate(); err != nil {
		return nil, err
	}

	return path, nil
}

// Validate checks if the Path has valid data.
func (p *Path) Validate() error {
	if p.ID == uuid.Nil {
		return ErrPathIDEmpty
	}

	if p.Name == "" {
		return ErrPathNameEmpty
	}

	return nil
}

// Validate checks if the PathConcept has valid data.
func (pc *PathConcept) Validate() error {
	if pc.PathID == uuid.Nil {
		return ErrPathIDEmpty
	}

	if pc.ConceptID == uuid.Nil {
		return ErrPathConceptIDEmpty
	}

	if pc.SequenceOrder < 0 {
		return ErrPathSequenceNegative
	}

	return nil
}

// ValidatePathSequence checks that sequence orders are unique across the
// given path concepts. The database enforces the same invariant with a
// unique constraint; this check gives callers a domain error up front.
func ValidatePathSequence(concepts []PathConcept) error {
	seen := make(map[int]struct{}, len(concepts))
	for _, pc := range concepts {
		if _, dup := seen[pc.SequenceOrder]; dup {
			return ErrPathSequenceDuplicate
		}
		seen[pc.SequenceOrder] = struct{}{}
	}
	return nil
}
