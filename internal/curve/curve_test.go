package curve

import (
	"errors"
	"math"
	"testing"
)

func TestParse(t *testing.T) {
	valid := []string{
		"linear",
		"",
		"ease",
		"ease-in-out",
		"easeOutExpo",
		"backOut",
		"cubic-bezier(0.45,0,0.58,1)",
		"cubic-bezier( 0.25, 0.1, 0.25, 1 )",
	}
	for _, id := range valid {
		if _, err := Parse(id); err != nil {
			t.Errorf("Parse(%q) failed: %v", id, err)
		}
	}

	invalid := []string{
		"bounce",
		"cubic-bezier(0.1,0.2,0.3)",
		"cubic-bezier(0.1,0.2,0.3,0.4",
		"cubic-bezier(a,b,c,d)",
		"cubic-bezier(1.5,0,0.5,1)",
	}
	for _, id := range invalid {
		if _, err := Parse(id); !errors.Is(err, ErrInvalidCurve) {
			t.Errorf("Parse(%q): expected ErrInvalidCurve, got %v", id, err)
		}
	}
}

func TestCurveEndpoints(t *testing.T) {
	for name, id := range TimingFunctions {
		f, err := Parse(id)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if f(0) != 0 || f(1) != 1 {
			t.Errorf("%s: endpoints (%v, %v), expected (0, 1)", name, f(0), f(1))
		}
	}
}

func TestCubicBezierMatchesLinearDiagonal(t *testing.T) {
	f := CubicBezier(0.25, 0.25, 0.75, 0.75)
	for _, x := range []float64{0.1, 0.3, 0.5, 0.9} {
		if got := f(x); math.Abs(got-x) > 1e-4 {
			t.Errorf("f(%v) = %v, expected %v", x, got, x)
		}
	}
}

func TestEaseOutIsMonotonic(t *testing.T) {
	f, _ := Parse("cubic-bezier(0.45,0,0.58,1)")
	prev := 0.0
	for x := 0.0; x <= 1; x += 0.01 {
		y := f(x)
		if y < prev-1e-9 {
			t.Fatalf("curve decreased at %v: %v < %v", x, y, prev)
		}
		prev = y
	}
}

func TestEaseFallsBackToLinear(t *testing.T) {
	if got := Ease("nonsense", 0.3); got != 0.3 {
		t.Errorf("expected linear fallback 0.3, got %v", got)
	}
}

func TestFade(t *testing.T) {
	tests := []struct {
		local, at, fade float64
		expected        float64
	}{
		{0, 10, 100, 0},
		{10, 10, 100, 0},
		{60, 10, 100, 0.5},
		{500, 10, 100, 1},
		{10, 10, 0, 1},
	}
	for _, tt := range tests {
		if got := Fade(Linear, tt.local, tt.at, tt.fade); math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("Fade(%v, %v, %v) = %v, expected %v", tt.local, tt.at, tt.fade, got, tt.expected)
		}
	}
}
