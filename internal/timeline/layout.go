package timeline

import (
	"math"
	"sort"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
)

// TotalDuration returns the end of the last block, or floor when there are no
// blocks. The result is at least 1ms whenever blocks exist.
func TotalDuration(blocks []scene.ContentBlock, floor int64) int64 {
	if len(blocks) == 0 {
		return floor
	}

	var end int64
	for _, b := range blocks {
		if e := b.End(); e > end {
			end = e
		}
	}
	if end <= 0 {
		if floor > 0 {
			return floor
		}
		return 1
	}
	return end
}

// ActiveBlocks returns the blocks whose closed window [start, start+duration]
// contains t, ordered by start time. Blocks starting together keep their
// insertion order.
func ActiveBlocks(blocks []scene.ContentBlock, t float64) []scene.ContentBlock {
	var active []scene.ContentBlock
	for _, b := range blocks {
		if IsActive(b, t) {
			active = append(active, b)
		}
	}

	sort.SliceStable(active, func(i, j int) bool {
		return active[i].StartTime < active[j].StartTime
	})
	return active
}

// SortByStart returns a copy of blocks in temporal order.
func SortByStart(blocks []scene.ContentBlock) []scene.ContentBlock {
	sorted := make([]scene.ContentBlock, len(blocks))
	copy(sorted, blocks)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime < sorted[j].StartTime
	})
	return sorted
}

// LocalTime returns the speed-adjusted time elapsed since the block started.
// It stays at 0 until the block's start regardless of speed.
func LocalTime(b scene.ContentBlock, globalTime, globalSpeed float64) float64 {
	elapsed := globalTime - float64(b.StartTime)
	if elapsed < 0 || math.IsNaN(elapsed) {
		return 0
	}
	return elapsed / scene.NormalizeSpeed(globalSpeed)
}

// HasStarted reports whether the playhead reached the block's start.
func HasStarted(b scene.ContentBlock, globalTime float64) bool {
	return globalTime >= float64(b.StartTime)
}

// IsActive reports whether globalTime lies in the block's closed window.
// A zero-length block is active at exactly its start time.
func IsActive(b scene.ContentBlock, globalTime float64) bool {
	return globalTime >= float64(b.StartTime) && globalTime <= float64(b.End())
}

// NextStart is where a newly appended block goes: the end of the timeline.
func NextStart(blocks []scene.ContentBlock) int64 {
	var end int64
	for _, b := range blocks {
		if e := b.End(); e > end {
			end = e
		}
	}
	return end
}
