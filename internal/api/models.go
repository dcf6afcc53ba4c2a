package api

import (
	"time"

	"github.com/google/uuid"
)

// Common request/response structures

// CreateConceptRequest defines the payload for the concept creation endpoint.
type CreateConceptRequest struct {
	Code             string         `json:"code"              validate:"required,max=100"`
	Name             string         `json:"name"              validate:"required,max=255"`
	Category         string         `json:"category"          validate:"max=100"`
	Tags             []string       `json:"tags,omitempty"`
	Difficulty       float64        `json:"difficulty"        validate:"gte=0,lte=1"`
	EstimatedMinutes int            `json:"estimated_minutes" validate:"gte=0"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// AddPrerequisiteRequest defines the payload for creating a prerequisite edge.
type AddPrerequisiteRequest struct {
	PrerequisiteID  uuid.UUID `json:"prerequisite_id"  validate:"required"`
	RequirementType string    `json:"requirement_type" validate:"omitempty,oneof=required recommended optional"`
	MinMastery      float64   `json:"min_mastery"      validate:"gte=0,lte=1"`
}

// CreatePathRequest defines the payload for creating a learning path.
type CreatePathRequest struct {
	Name        string `json:"name"        validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// AddPathConceptRequest defines the payload for adding a concept to a path.
type AddPathConceptRequest struct {
	ConceptID     uuid.UUID `json:"concept_id"     validate:"required"`
	SequenceOrder int       `json:"sequence_order" validate:"gte=0"`
	Required      *bool     `json:"required,omitempty"`
}

// RecordAttemptRequest defines the payload for recording an assessment attempt.
type RecordAttemptRequest struct {
	Score            float64 `json:"score"              validate:"gte=0,lte=1"`
	Feedback         string  `json:"feedback"           validate:"max=2000"`
	TimeSpentMinutes int     `json:"time_spent_minutes" validate:"gte=0"`
}

// ProgressResponse is the API shape of one ledger row.
type ProgressResponse struct {
	UserID           uuid.UUID  `json:"user_id"`
	ConceptID        uuid.UUID  `json:"concept_id"`
	Status           string     `json:"status"`
	Mastery          float64    `json:"mastery"`
	TimeSpentMinutes int        `json:"time_spent_minutes"`
	AttemptCount     int        `json:"attempt_count"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	LastAccessedAt   *time.Time `json:"last_accessed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ReadinessResponse reports whether a user may start a concept.
type ReadinessResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	ConceptID uuid.UUID `json:"concept_id"`
	Ready     bool      `json:"ready"`
}

// ReadySetResponse lists every concept a user is ready to start.
type ReadySetResponse struct {
	UserID     uuid.UUID   `json:"user_id"`
	ConceptIDs []uuid.UUID `json:"concept_ids"`
}

// PathDetailResponse is a path with its ordered concept memberships.
type PathDetailResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Concepts    []PathConceptResponse `json:"concepts"`
}

// PathConceptResponse is one membership row of a path.
type PathConceptResponse struct {
	ConceptID     uuid.UUID `json:"concept_id"`
	SequenceOrder int       `json:"sequence_order"`
	Required      bool      `json:"required"`
}
