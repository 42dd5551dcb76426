// Package curve turns the opaque easing identifiers stored on blocks into
// easing functions. Only renderers use it; the evaluator never eases.
package curve

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrInvalidCurve = errors.New("invalid curve")

// Func maps linear progress in [0, 1] to eased progress.
type Func func(float64) float64

// Linear returns t unchanged.
func Linear(t float64) float64 {
	return t
}

// TimingFunctions is the named table written into exported configs.
var TimingFunctions = map[string]string{
	"easeOut":     "cubic-bezier(0.45,0,0.58,1)",
	"ease":        "cubic-bezier(0.25,0.46,0.45,0.94)",
	"easeIn":      "cubic-bezier(0.55,0.05,0.68,0.19)",
	"backOut":     "cubic-bezier(0.68,-0.55,0.265,1.55)",
	"easeOutExpo": "cubic-bezier(0.00,0.00,0.00,1.00)",
	"linear":      "linear",
}

// Option is an entry of the editor's curve picker.
type Option struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// Options lists the curves offered when editing a block.
var Options = []Option{
	{Label: "Ease Out", Value: "cubic-bezier(0.45,0,0.58,1)"},
	{Label: "Ease In", Value: "cubic-bezier(0.00,0.00,0.00,1.00)"},
	{Label: "Ease In Out", Value: "cubic-bezier(0.45,0.45,0.55,1)"},
	{Label: "Linear", Value: "linear"},
}

var keywords = map[string][4]float64{
	"ease":        {0.25, 0.1, 0.25, 1},
	"ease-in":     {0.42, 0, 1, 1},
	"ease-out":    {0, 0, 0.58, 1},
	"ease-in-out": {0.42, 0, 0.58, 1},
}

// Parse resolves a curve identifier: "linear", a CSS keyword, a name from
// TimingFunctions or "cubic-bezier(x1,y1,x2,y2)".
func Parse(id string) (Func, error) {
	s := strings.TrimSpace(id)
	if s == "" || s == "linear" {
		return Linear, nil
	}
	if p, ok := keywords[s]; ok {
		return CubicBezier(p[0], p[1], p[2], p[3]), nil
	}
	if named, ok := TimingFunctions[s]; ok {
		return Parse(named)
	}

	p, err := parseBezier(s)
	if err != nil {
		return nil, err
	}
	return CubicBezier(p[0], p[1], p[2], p[3]), nil
}

// Ease applies the curve named id to t. Unknown curves fall back to linear.
func Ease(id string, t float64) float64 {
	f, err := Parse(id)
	if err != nil {
		f = Linear
	}
	return f(t)
}

// Valid reports whether id parses.
func Valid(id string) bool {
	_, err := Parse(id)
	return err == nil
}

func parseBezier(s string) ([4]float64, error) {
	var p [4]float64

	inner, ok := strings.CutPrefix(s, "cubic-bezier(")
	if !ok {
		return p, fmt.Errorf("%w: %q", ErrInvalidCurve, s)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return p, fmt.Errorf("%w: unterminated %q", ErrInvalidCurve, s)
	}

	parts := strings.Split(inner, ",")
	if len(parts) != 4 {
		return p, fmt.Errorf("%w: expected 4 control values in %q", ErrInvalidCurve, s)
	}
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return p, fmt.Errorf("%w: bad control value %q", ErrInvalidCurve, part)
		}
		p[i] = v
	}
	if p[0] < 0 || p[0] > 1 || p[2] < 0 || p[2] > 1 {
		return p, fmt.Errorf("%w: x control values must lie in [0,1]", ErrInvalidCurve)
	}
	return p, nil
}

// CubicBezier builds the easing function of a CSS cubic-bezier() with
// control points (x1,y1) and (x2,y2). Output may leave [0,1] when y values
// do, as with back-out curves.
func CubicBezier(x1, y1, x2, y2 float64) Func {
	return func(t float64) float64 {
		if t <= 0 {
			return 0
		}
		if t >= 1 {
			return 1
		}

		u := t
		for i := 0; i < 8; i++ {
			x := sample(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				return sample(y1, y2, clampUnit(u))
			}
			dx := derivative(x1, x2, u)
			if math.Abs(dx) < 1e-7 {
				break
			}
			u -= x / dx
		}

		// Newton stalled; bisect.
		lo, hi := 0.0, 1.0
		u = clampUnit(u)
		for i := 0; i < 20; i++ {
			x := sample(x1, x2, u) - t
			if math.Abs(x) < 1e-7 {
				break
			}
			if x > 0 {
				hi = u
			} else {
				lo = u
			}
			u = (lo + hi) / 2
		}
		return sample(y1, y2, u)
	}
}

func sample(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*t*a + 3*inv*t*t*b + t*t*t
}

func derivative(a, b, t float64) float64 {
	inv := 1 - t
	return 3*inv*inv*a + 6*inv*t*(b-a) + 3*t*t*(1-b)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Fade returns the eased opacity of a unit revealed at revealAt with a fade
// lasting fade ms, at local time local.
func Fade(f Func, local, revealAt, fade float64) float64 {
	if local < revealAt {
		return 0
	}
	if fade <= 0 {
		return 1
	}
	return f(clampUnit((local - revealAt) / fade))
}
