package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProgressStatus represents where a user stands on a single concept.
type ProgressStatus string

const (
	// ProgressNotStarted is the implicit default before any interaction.
	ProgressNotStarted ProgressStatus = "not_started"

	// ProgressInProgress means at least one attempt was recorded but the
	// mastery threshold has not been reached.
	ProgressInProgress ProgressStatus = "in_progress"

	// ProgressCompleted means the user finished the concept's material
	// without a mastery-level assessment.
	ProgressCompleted ProgressStatus = "completed"

	// ProgressMastered means the mastery threshold was reached.
	ProgressMastered ProgressStatus = "mastered"

	// ProgressSkipped means the user explicitly bypassed the concept.
	ProgressSkipped ProgressStatus = "skipped"
)

// Progress-specific validation errors
var (
	// ErrProgressUserIDEmpty is returned when a progress record's user ID is empty or nil.
	ErrProgressUserIDEmpty = errors.New("progress user ID cannot be empty")

	// ErrProgressConceptIDEmpty is returned when a progress record's concept ID is empty or nil.
	ErrProgressConceptIDEmpty = errors.New("progress concept ID cannot be empty")

	// ErrProgressStatusInvalid is returned when the status is not a known value.
	ErrProgressStatusInvalid = errors.New("invalid progress status")

	// ErrProgressMasteryRange is returned when the mastery level is outside [0,1].
	ErrProgressMasteryRange = errors.New("mastery level must be between 0 and 1")

	// ErrProgressTimeNegative is returned when the accumulated time is negative.
	ErrProgressTimeNegative = errors.New("time spent cannot be negative")

	// ErrAssessmentScoreRange is returned when an assessment score is outside [0,1].
	ErrAssessmentScoreRange = errors.New("assessment score must be between 0 and 1")
)

// Assessment is one graded attempt on a concept, as reported by the external
// grading collaborator. The score is trusted as-is.
type Assessment struct {
	Score            float64   `json:"score"`
	Feedback         string    `json:"feedback,omitempty"`
	TimeSpentMinutes int       `json:"time_spent_minutes"`
	RecordedAt       time.Time `json:"recorded_at"`
}

// Validate checks if the Assessment has valid data.
func (a *Assessment) Validate() error {
	if a.Score < 0 || a.Score > 1 {
		return ErrAssessmentScoreRange
	}

	if a.TimeSpentMinutes < 0 {
		return ErrProgressTimeNegative
	}

	return nil
}

// ProgressRecord tracks one user's history on one concept. It is keyed by
// (UserID, ConceptID), created on first interaction, and never deleted.
// Mastery is monotonic: it only ever increases across attempts.
type ProgressRecord struct {
	UserID           uuid.UUID      `json:"user_id"`
	ConceptID        uuid.UUID      `json:"concept_id"`
	Status           ProgressStatus `json:"status"`
	Mastery          float64        `json:"mastery"`
	TimeSpentMinutes int            `json:"time_spent_minutes"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
	LastAccessedAt   *time.Time     `json:"last_accessed_at,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	Assessments      []Assessment   `json:"assessments,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// NewProgressRecord creates a not_started record for the given user and
// concept. Attempts are applied through the mastery package, which keeps
// updates immutable and monotonic.
func NewProgressRecord(userID, conceptID uuid.UUID) (*ProgressRecord, error) {
	now := time.Now().UTC()
	rec := &ProgressRecord{
		UserID:    userID,
		ConceptID: conceptID,
		Status:    ProgressNotStarted,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the ProgressRecord has valid data.
// Returns an error if any field fails validation.
func (r *ProgressRecord) Validate() error {
	if r.UserID == uuid.Nil {
		return ErrProgressUserIDEmpty
	}

	if r.ConceptID == uuid.Nil {
		return ErrProgressConceptIDEmpty
	}

	switch r.Status {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted,
		ProgressMastered, ProgressSkipped:
	default:
		return ErrProgressStatusInvalid
	}

	if r.Mastery < 0 || r.Mastery > 1 {
		return ErrProgressMasteryRange
	}

	if r.TimeSpentMinutes < 0 {
		return ErrProgressTimeNegative
	}

	for i := range r.Assessments {
		if err := r.Assessments[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// Finished reports whether the concept counts as done for path completion.
func (r *ProgressRecord) Finished() bool {
	return r.Status == ProgressCompleted || r.Status == ProgressMastered
}
