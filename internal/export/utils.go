package export

import (
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

// CharacterRevealTime is the reveal offset of the i-th character.
func CharacterRevealTime(i int, cfg scene.Resolved) int64 {
	return int64(i) * cfg.CharFadeDelay
}

// StaggerTime is the reveal offset of the i-th list item.
func StaggerTime(i int, cfg scene.Resolved) int64 {
	stagger := cfg.StaggerDelay
	if stagger <= 0 {
		stagger = scene.DefaultStaggerDelay
	}
	return cfg.MaskFadeDelay + int64(i)*stagger
}

// Block looks up a block by id.
func (d AnimationData) Block(id string) (AnimationBlock, bool) {
	for _, b := range d.ContentBlocks {
		if b.ID == id {
			return b, true
		}
	}
	return AnimationBlock{}, false
}

// IsBlockActive reports whether block id is active at t.
func (d AnimationData) IsBlockActive(id string, t float64) bool {
	b, ok := d.Block(id)
	if !ok {
		return false
	}
	return t >= float64(b.StartTime) && t <= float64(b.StartTime+b.Duration)
}

// BlockProgress is the 0..1 progress of block id at t.
func (d AnimationData) BlockProgress(id string, t float64) float64 {
	b, ok := d.Block(id)
	if !ok || b.Duration <= 0 {
		return 0
	}
	elapsed := t - float64(b.StartTime)
	if elapsed < 0 {
		elapsed = 0
	}
	return timing.Clamp01(elapsed / float64(b.Duration))
}
