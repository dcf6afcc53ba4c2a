package mastery

// Params defines configurable parameters for mastery progression.
type Params struct {
	// MasteryThreshold is the mastery level at which a concept's status
	// transitions to mastered. Note: readiness gating uses the per-edge
	// minimum mastery level, not this threshold; this value only drives
	// the status transition on the progress record itself.
	MasteryThreshold float64
}

// DefaultMasteryThreshold is the product-wide status transition threshold.
const DefaultMasteryThreshold = 0.8

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		MasteryThreshold: DefaultMasteryThreshold,
	}
}
