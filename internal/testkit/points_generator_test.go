package testkit

import (
	"math"
	"testing"
)

// TestGeneratePointsDeterministic tests that identical seeds give identical scatter
func TestGeneratePointsDeterministic(t *testing.T) {
	cfg := DefaultPointsConfig()
	a, err := GeneratePoints(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	b, err := GeneratePoints(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if a.Len() != cfg.NPoints {
		t.Errorf("Expected %d points, got %d", cfg.NPoints, a.Len())
	}
	for i := 0; i < a.Len(); i++ {
		if a.At(i) != b.At(i) {
			t.Fatalf("Expected identical sample %d, got %v and %v", i, a.At(i), b.At(i))
		}
	}
}

// TestGeneratePointsRangeAndOrder tests bounds and sorting
func TestGeneratePointsRangeAndOrder(t *testing.T) {
	cfg := DefaultPointsConfig()
	cfg.LogSpace = false
	ps, err := GeneratePoints(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := 0; i < ps.Len(); i++ {
		x := ps.At(i).X
		if x < cfg.XMin || x > cfg.XMax {
			t.Errorf("Expected x in [%g, %g], got %g", cfg.XMin, cfg.XMax, x)
		}
		if i > 0 && x < ps.At(i-1).X {
			t.Errorf("Expected sorted x at %d", i)
		}
	}
}

// TestGeneratePointsNoiseless tests exact squared stds without noise
func TestGeneratePointsNoiseless(t *testing.T) {
	cfg := DefaultPointsConfig()
	cfg.Noise = false
	cfg.NPoints = 10
	ps, err := GeneratePoints(cfg)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	for i := 0; i < ps.Len(); i++ {
		s := ps.At(i)
		want := math.Pow(cfg.Coef*math.Pow(s.X, cfg.Power), 2)
		if math.Abs(s.Y-want) > 1e-15 {
			t.Errorf("Expected y=%g at x=%g, got %g", want, s.X, s.Y)
		}
	}
}
