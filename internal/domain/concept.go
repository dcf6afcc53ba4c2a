package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Concept-specific validation errors
var (
	// ErrConceptIDEmpty is returned when a concept ID is empty or nil.
	ErrConceptIDEmpty = errors.New("concept ID cannot be empty")

	// ErrConceptCodeEmpty is returned when a concept's code is empty.
	ErrConceptCodeEmpty = errors.New("concept code cannot be empty")

	// ErrConceptNameEmpty is returned when a concept's name is empty.
	ErrConceptNameEmpty = errors.New("concept name cannot be empty")

	// ErrConceptDifficultyRange is returned when a concept's difficulty is outside [0,1].
	ErrConceptDifficultyRange = errors.New("concept difficulty must be between 0 and 1")

	// ErrConceptMinutesNegative is returned when a concept's estimated minutes is negative.
	ErrConceptMinutesNegative = errors.New("concept estimated minutes cannot be negative")
)

// Concept represents an atomic learning unit in the curriculum.
// The metadata map is stored as a JSONB structure, allowing authoring
// tools to attach arbitrary attributes without schema changes.
type Concept struct {
	ID               uuid.UUID      `json:"id"`
	Code             string         `json:"code"`
	Name             string         `json:"name"`
	Category         string         `json:"category,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Difficulty       float64        `json:"difficulty"`
	EstimatedMinutes int            `json:"estimated_minutes"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewConcept creates a new Concept with the given code and name.
// It generates a new UUID for the concept ID and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewConcept(
	code, name, category string,
	tags []string,
	difficulty float64,
	estimatedMinutes int,
	metadata map[string]any,
) (*Concept, error) {
	concept := &Concept{
		ID:               uuid.New(),
		Code:             strings.TrimSpace(code),
		Name:             strings.TrimSpace(name),
		Category:         category,
		Tags:             tags,
		Difficulty:       difficulty,
		EstimatedMinutes: estimatedMinutes,
		Metadata:         metadata,
		CreatedAt:        time.Now().UTC(),
		UpdatedAt:        time.Now().UTC(),
	}

	if err := concept.Validate(); err != nil {
		return nil, err
	}

	return concept, nil
}

// Validate checks if the Concept has valid data.
// Returns an error if any field fails validation.
func (c *Concept) Validate() error {
	if c.ID == uuid.Nil {
		return ErrConceptIDEmpty
	}

	if c.Code == "" {
		return ErrConceptCodeEmpty
	}

	if c.Name == "" {
		return ErrConceptNameEmpty
	}

	if c.Difficulty < 0 || c.Difficulty > 1 {
		return ErrConceptDifficultyRange
	}

	if c.EstimatedMinutes < 0 {
		return ErrConceptMinutesNegative
	}

	return nil
}
