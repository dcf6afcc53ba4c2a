// Package analytics implements the pure aggregate computations derived from
// the progress ledger and the concept graph: path completion, learning
// velocity, cohort percentiles, and completion estimates. Everything here is
// deterministic given its inputs and degrades to zero values on degenerate
// input rather than returning errors, since analytics are advisory.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// PathCompletion returns the percentage of required concepts the user has
// finished, in [0,100]. Only required path members count; a path with no
// required concepts is 0% complete.
func PathCompletion(totalRequired, completedRequired int) float64 {
	if totalRequired <= 0 {
		return 0
	}

	pct := float64(completedRequired) / float64(totalRequired) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// LearningVelocity returns the average number of concepts completed per week
// over the trailing window. completions holds the completion timestamps of
// the user's finished concepts; timestamps outside the window are ignored.
// A non-positive window yields 0.
func LearningVelocity(completions []time.Time, windowWeeks int, now time.Time) float64 {
	if windowWeeks <= 0 {
		return 0
	}

	windowStart := now.AddDate(0, 0, -7*windowWeeks)

	var inWindow int
	for _, completedAt := range completions {
		if completedAt.After(windowStart) && !completedAt.After(now) {
			inWindow++
		}
	}

	return float64(inWindow) / float64(windowWeeks)
}

// CohortMember is one user's aggregate standing, used as percentile input.
// The cohort is every user with at least one progress record.
type CohortMember struct {
	UserID           uuid.UUID
	CompletedCount   int
	AverageMastery   float64
	TotalTimeMinutes int
}

// CohortStanding is a user's rank within the cohort, expressed as
// percentiles in [0,100] alongside the cohort central tendencies.
type CohortStanding struct {
	CohortSize int `json:"cohort_size"`

	CompletedPercentile float64 `json:"completed_percentile"`
	MasteryPercentile   float64 `json:"mastery_percentile"`
	TimePercentile      float64 `json:"time_percentile"`

	CohortMedianCompleted float64 `json:"cohort_median_completed"`
	CohortMeanMastery     float64 `json:"cohort_mean_mastery"`
}

// Percentile returns the fraction of cohort values at or below v, as a
// percentage. An empty cohort yields 0.
func Percentile(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}

	var atOrBelow int
	for _, other := range values {
		if other <= v {
			atOrBelow++
		}
	}

	return float64(atOrBelow) / float64(len(values)) * 100
}

// CohortPercentile ranks the given member against the whole cohort. The
// member is expected to be included in cohort; callers that pass a member
// with no progress records get zero percentiles back.
func CohortPercentile(member CohortMember, cohort []CohortMember) CohortStanding {
	standing := CohortStanding{CohortSize: len(cohort)}
	if len(cohort) == 0 {
		return standing
	}

	completed := make([]float64, len(cohort))
	masteries := make([]float64, len(cohort))
	times := make([]float64, len(cohort))
	var masterySum float64

	for i, m := range cohort {
		completed[i] = float64(m.CompletedCount)
		masteries[i] = m.AverageMastery
		times[i] = float64(m.TotalTimeMinutes)
		masterySum += m.AverageMastery
	}

	standing.CompletedPercentile = Percentile(completed, float64(member.CompletedCount))
	standing.MasteryPercentile = Percentile(masteries, member.AverageMastery)
	standing.TimePercentile = Percentile(times, float64(member.TotalTimeMinutes))

	sort.Float64s(completed)
	standing.CohortMedianCompleted = median(completed)
	standing.CohortMeanMastery = masterySum / float64(len(cohort))

	return standing
}

// median expects values to be sorted ascending.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// EstimateCompletionDate projects when the user will finish the remaining
// required concepts at their current velocity (concepts/week). Returns nil
// when the remaining count is zero or the velocity is zero, since no
// meaningful estimate exists ("unknown").
func EstimateCompletionDate(remainingRequired int, velocityPerWeek float64, now time.Time) *time.Time {
	if remainingRequired <= 0 || velocityPerWeek <= 0 {
		return nil
	}

	days := math.Ceil(float64(remainingRequired) / (velocityPerWeek / 7))
	estimate := now.AddDate(0, 0, int(days))
	return &estimate
}
