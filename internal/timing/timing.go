package timing

import (
	"fmt"
	"math"
)

const (
	// DefaultGridResolution is the snapping step used by timeline drag and resize, in ms.
	DefaultGridResolution = 10.0

	// DefaultBaseline is the block duration that plays at 1x, in ms.
	DefaultBaseline = 3000.0
)

// SnapToGrid rounds value to the nearest multiple of resolution.
// A non-positive resolution falls back to DefaultGridResolution.
func SnapToGrid(value, resolution float64) float64 {
	if resolution <= 0 || math.IsNaN(resolution) {
		resolution = DefaultGridResolution
	}
	return math.Round(value/resolution) * resolution
}

// FormatClock renders milliseconds as M:SS. Time is floored to whole seconds,
// minutes are unbounded and negative input formats as 0:00.
func FormatClock(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	seconds := ms / 1000
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// SpeedMultiplier returns how much faster than baseline a block of the given
// duration plays. Callers must pass blockDuration > 0; otherwise 0 is returned.
func SpeedMultiplier(blockDuration, baseline float64) float64 {
	if baseline <= 0 {
		baseline = DefaultBaseline
	}
	if blockDuration <= 0 || math.IsNaN(blockDuration) {
		return 0
	}
	return baseline / blockDuration
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp01 limits v to [0, 1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return Clamp(v, 0, 1)
}
