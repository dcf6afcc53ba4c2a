package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewConcept(t *testing.T) {
	t.Parallel()

	concept, err := NewConcept(
		"algebra-linear-eq",
		"Solving Linear Equations",
		"algebra",
		[]string{"equations", "foundations"},
		0.3,
		45,
		map[string]any{"source": "unit-2"},
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if concept.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}
	if concept.Code != "algebra-linear-eq" {
		t.Errorf("Expected code algebra-linear-eq, got %s", concept.Code)
	}
	if concept.CreatedAt.IsZero() {
		t.Error("Expected non-zero CreatedAt time")
	}
	if concept.UpdatedAt.IsZero() {
		t.Error("Expected non-zero UpdatedAt time")
	}
}

func TestNewConceptTrimsWhitespace(t *testing.T) {
	t.Parallel()

	concept, err := NewConcept("  algebra-basics  ", "  Algebra Basics ", "", nil, 0, 0, nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if concept.Code != "algebra-basics" {
		t.Errorf("Expected trimmed code, got %q", concept.Code)
	}
	if concept.Name != "Algebra Basics" {
		t.Errorf("Expected trimmed name, got %q", concept.Name)
	}
}

func TestNewConceptValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name             string
		code             string
		conceptName      string
		difficulty       float64
		estimatedMinutes int
		wantErr          error
	}{
		{"empty code", "", "Fractions", 0.5, 30, ErrConceptCodeEmpty},
		{"whitespace code", "   ", "Fractions", 0.5, 30, ErrConceptCodeEmpty},
		{"empty name", "fractions", "", 0.5, 30, ErrConceptNameEmpty},
		{"difficulty below range", "fractions", "Fractions", -0.1, 30, ErrConceptDifficultyRange},
		{"difficulty above range", "fractions", "Fractions", 1.1, 30, ErrConceptDifficultyRange},
		{"negative minutes", "fractions", "Fractions", 0.5, -1, ErrConceptMinutesNegative},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewConcept(tc.code, tc.conceptName, "", nil, tc.difficulty, tc.estimatedMinutes, nil)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Expected error %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestConceptValidateBoundaries(t *testing.T) {
	t.Parallel()

	for _, difficulty := range []float64{0, 1} {
		if _, err := NewConcept("limits", "Limits", "", nil, difficulty, 0, nil); err != nil {
			t.Errorf("Expected difficulty %v to be valid, got %v", difficulty, err)
		}
	}
}
