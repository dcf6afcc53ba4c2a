// Package mastery implements the pure progression algebra applied to a
// progress record when a graded attempt arrives. It has no storage or
// transport dependencies; services call it inside their own transactions.
package mastery

import (
	"errors"
	"time"

	"github.com/hutchutchutch/learntrac/internal/domain"
)

// Common errors
var (
	ErrNilRecord    = errors.New("progress record cannot be nil")
	ErrScoreRange   = errors.New("score must be between 0 and 1")
	ErrNegativeTime = errors.New("time spent cannot be negative")
	ErrNilParams    = errors.New("params cannot be nil")
)

// mergeMastery applies the monotonic max-merge: a new score can raise the
// mastery level but never lower it.
func mergeMastery(current, score float64) float64 {
	if score > current {
		return score
	}
	return current
}

// nextStatus determines the status after a merge. A mastered record stays
// mastered (mastery never regresses, so neither does the status); a skipped
// record is reactivated only once a passing score arrives.
func nextStatus(current domain.ProgressStatus, masteryLevel float64, params *Params) domain.ProgressStatus {
	if masteryLevel >= params.MasteryThreshold {
		return domain.ProgressMastered
	}

	if current == domain.ProgressSkipped {
		return domain.ProgressSkipped
	}

	if masteryLevel > 0 {
		return domain.ProgressInProgress
	}

	if current == domain.ProgressNotStarted {
		return domain.ProgressInProgress
	}

	return current
}

// ApplyAttempt creates a new ProgressRecord reflecting one graded attempt.
//
// It follows the immutable update pattern: the input record is never
// modified, a complete copy with the new state is returned. The update is:
//   - append the assessment to the ordered history
//   - merge mastery monotonically (max of old and new)
//   - accumulate time spent additively
//   - recompute status against the mastery threshold
//   - advance last-accessed, and set started/completed timestamps when due
//
// Callers must serialize concurrent attempts on the same (user, concept)
// row; the storage layer does this with a row-level lock.
func ApplyAttempt(
	rec *domain.ProgressRecord,
	score float64,
	feedback string,
	timeSpentMinutes int,
	now time.Time,
	params *Params,
) (*domain.ProgressRecord, error) {
	if rec == nil {
		return nil, ErrNilRecord
	}
	if params == nil {
		return nil, ErrNilParams
	}
	if score < 0 || score > 1 {
		return nil, ErrScoreRange
	}
	if timeSpentMinutes < 0 {
		return nil, ErrNegativeTime
	}

	newRec := &domain.ProgressRecord{
		UserID:           rec.UserID,
		ConceptID:        rec.ConceptID,
		Status:           rec.Status,
		Mastery:          rec.Mastery,
		TimeSpentMinutes: rec.TimeSpentMinutes,
		StartedAt:        rec.StartedAt,
		LastAccessedAt:   rec.LastAccessedAt,
		CompletedAt:      rec.CompletedAt,
		Assessments:      make([]domain.Assessment, len(rec.Assessments), len(rec.Assessments)+1),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	copy(newRec.Assessments, rec.Assessments)

	newRec.Assessments = append(newRec.Assessments, domain.Assessment{
		Score:            score,
		Feedback:         feedback,
		TimeSpentMinutes: timeSpentMinutes,
		RecordedAt:       now,
	})

	newRec.Mastery = mergeMastery(rec.Mastery, score)
	newRec.TimeSpentMinutes += timeSpentMinutes
	newRec.Status = nextStatus(rec.Status, newRec.Mastery, params)

	if newRec.StartedAt == nil {
		started := now
		newRec.StartedAt = &started
	}
	accessed := now
	newRec.LastAccessedAt = &accessed

	if newRec.Status == domain.ProgressMastered && newRec.CompletedAt == nil {
		completed := now
		newRec.CompletedAt = &completed
	}

	newRec.UpdatedAt = now

	return newRec, nil
}
