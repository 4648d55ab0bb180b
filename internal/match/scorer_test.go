package match

import (
	"math"
	"testing"
)

func TestSimilarityIdentical(t *testing.T) {
	if got := Similarity("The Matrix", "The Matrix"); got != 1.0 {
		t.Errorf("Similarity(identical) = %v, want 1.0", got)
	}
}

func TestSimilarityCaseInsensitive(t *testing.T) {
	if got := Similarity("the matrix", "THE MATRIX"); got != 1.0 {
		t.Errorf("Similarity(case variants) = %v, want 1.0", got)
	}
}

func TestSimilarityBounds(t *testing.T) {
	pairs := [][2]string{
		{"The Matrix", "The Matrix Reloaded"},
		{"Alien", "Aliens"},
		{"Heat", "Completely Unrelated Title"},
		{"", "Something"},
	}
	for _, pair := range pairs {
		got := Similarity(pair[0], pair[1])
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%q, %q) = %v, out of [0,1]", pair[0], pair[1], got)
		}
	}
}

func TestPositionRatio(t *testing.T) {
	tests := []struct {
		position int
		want     float64
	}{
		{0, 1.1},
		{1, 1.05},
		{9, 1.01},
	}
	for _, tt := range tests {
		got := PositionRatio(1.1, tt.position)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PositionRatio(1.1, %d) = %v, want %v", tt.position, got, tt.want)
		}
	}
	if PositionRatio(1.1, 1000) < 1.0 {
		t.Error("PositionRatio must never drop below 1.0")
	}
}

func TestScoreIdenticalAtPositionZero(t *testing.T) {
	scorer := NewScorer(0.95, 1.1, nil)
	got := scorer.Score("The Matrix", Candidate{Name: "The Matrix", Position: 0})
	want := PositionRatio(1.1, 0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v", got, want)
	}
}

func TestScoreAkaWeighting(t *testing.T) {
	scorer := NewScorer(0.95, 1.1, nil)
	candidate := Candidate{
		Name:           "Completely Different",
		AlternateNames: []string{"The Matrix"},
		Position:       0,
	}
	got := scorer.Score("The Matrix", candidate)
	want := 1.0 * 0.95 * PositionRatio(1.1, 0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v (aka ratio * aka weight * position ratio)", got, want)
	}
}

func TestScoreAkaOnlyReplacesWhenBetter(t *testing.T) {
	scorer := NewScorer(0.95, 1.1, nil)
	candidate := Candidate{
		Name:           "The Matrix",
		AlternateNames: []string{"Unrelated Alternate"},
		Position:       0,
	}
	got := scorer.Score("The Matrix", candidate)
	want := PositionRatio(1.1, 0)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Score = %v, want %v (weaker aka must not lower the base ratio)", got, want)
	}
}

func TestScorePositionDecay(t *testing.T) {
	scorer := NewScorer(0.95, 1.1, nil)
	first := scorer.Score("Heat", Candidate{Name: "Heat", Position: 0})
	later := scorer.Score("Heat", Candidate{Name: "Heat", Position: 5})
	if later >= first {
		t.Errorf("score at position 5 (%v) should be below position 0 (%v)", later, first)
	}
	if later < 1.0 {
		t.Errorf("identical name at any position should stay >= 1.0, got %v", later)
	}
}

func TestScoreAllSortsDescendingAndKeepsPositions(t *testing.T) {
	scorer := NewScorer(0.95, 1.1, nil)
	candidates := []Candidate{
		{Name: "Something Else Entirely", Position: 0},
		{Name: "The Matrix", Position: 1},
	}
	scored := scorer.ScoreAll(Query{Name: "The Matrix"}, candidates)
	if len(scored) != 2 {
		t.Fatalf("got %d candidates, want 2", len(scored))
	}
	if scored[0].Name != "The Matrix" {
		t.Errorf("top result = %q, want The Matrix", scored[0].Name)
	}
	if scored[0].Position != 1 {
		t.Errorf("position mutated: got %d, want 1", scored[0].Position)
	}
	if scored[0].Score <= scored[1].Score {
		t.Error("ScoreAll must sort by score descending")
	}
	// Input slice scores stay untouched.
	if candidates[1].Score != 0 {
		t.Error("ScoreAll must not mutate its input")
	}
}

func TestNewScorerDefaults(t *testing.T) {
	scorer := NewScorer(0, 0, nil)
	if scorer.AkaWeight != DefaultAkaWeight {
		t.Errorf("AkaWeight = %v, want default %v", scorer.AkaWeight, DefaultAkaWeight)
	}
	if scorer.FirstWeight != DefaultFirstWeight {
		t.Errorf("FirstWeight = %v, want default %v", scorer.FirstWeight, DefaultFirstWeight)
	}
}
