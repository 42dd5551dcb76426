package scene

import (
	"fmt"
	"math"
)

// BlockType tags the content shape and evaluation strategy of a block.
type BlockType string

const (
	Paragraph  BlockType = "paragraph"
	BulletList BlockType = "bulletList"
	Chart      BlockType = "chart"
)

// Valid reports whether t is one of the known block types.
func (t BlockType) Valid() bool {
	switch t {
	case Paragraph, BulletList, Chart:
		return true
	}
	return false
}

// TextAnimation selects how paragraph text is revealed.
type TextAnimation string

const (
	AnimateCharacter TextAnimation = "character"
	AnimateWord      TextAnimation = "word"
	AnimateGleam     TextAnimation = "gleam"
)

// Valid reports whether a is a known text animation.
func (a TextAnimation) Valid() bool {
	switch a {
	case AnimateCharacter, AnimateWord, AnimateGleam:
		return true
	}
	return false
}

const (
	// DefaultCurve is the easing identifier new scenes start with.
	DefaultCurve = "cubic-bezier(0.45,0,0.58,1)"

	// DefaultStaggerDelay applies when no positive stagger delay is configured.
	DefaultStaggerDelay = 100

	// DefaultBlockDuration is the duration given to newly added blocks, in ms.
	DefaultBlockDuration = 3000

	// MinBlockDuration is the smallest duration the editing surface produces, in ms.
	MinBlockDuration = 100

	// DefaultMinDuration is the timeline length used when a scene has no blocks, in ms.
	DefaultMinDuration = 10000
)

// AnimationConfig holds the global animation parameters. It provides the
// defaults every block falls back to at evaluation time.
type AnimationConfig struct {
	GlobalSpeed      float64 `json:"globalSpeed" yaml:"globalSpeed"`
	Curve            string  `json:"curve" yaml:"curve"`
	CharFadeDelay    int64   `json:"charFadeDelay" yaml:"charFadeDelay"`
	MaskFadeDelay    int64   `json:"maskFadeDelay" yaml:"maskFadeDelay"`
	MaskFadeDuration int64   `json:"maskFadeDuration" yaml:"maskFadeDuration"`
	StaggerDelay     int64   `json:"staggerDelay" yaml:"staggerDelay"`
}

// DefaultAnimationConfig returns the configuration a fresh scene starts with.
func DefaultAnimationConfig() AnimationConfig {
	return AnimationConfig{
		GlobalSpeed:      1,
		Curve:            DefaultCurve,
		CharFadeDelay:    4,
		MaskFadeDelay:    100,
		MaskFadeDuration: 200,
		StaggerDelay:     DefaultStaggerDelay,
	}
}

// Speed returns the global speed multiplier, treating non-positive or NaN
// values as 1.
func (c AnimationConfig) Speed() float64 {
	return NormalizeSpeed(c.GlobalSpeed)
}

// NormalizeSpeed maps invalid speed multipliers to 1.
func NormalizeSpeed(s float64) float64 {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 1
	}
	return s
}

// Overrides is the per-block override map. Only keys the user changed are
// set; everything else resolves against the global config when evaluated.
type Overrides struct {
	CharFadeDelay    *int64         `json:"charFadeDelay,omitempty" yaml:"charFadeDelay,omitempty"`
	MaskFadeDelay    *int64         `json:"maskFadeDelay,omitempty" yaml:"maskFadeDelay,omitempty"`
	MaskFadeDuration *int64         `json:"maskFadeDuration,omitempty" yaml:"maskFadeDuration,omitempty"`
	StaggerDelay     *int64         `json:"staggerDelay,omitempty" yaml:"staggerDelay,omitempty"`
	Curve            *string        `json:"curve,omitempty" yaml:"curve,omitempty"`
	TextAnimation    *TextAnimation `json:"textAnimationType,omitempty" yaml:"textAnimationType,omitempty"`
}

// IsZero reports whether no key is overridden.
func (o Overrides) IsZero() bool {
	return o.CharFadeDelay == nil && o.MaskFadeDelay == nil && o.MaskFadeDuration == nil &&
		o.StaggerDelay == nil && o.Curve == nil && o.TextAnimation == nil
}

// Merge returns a copy of o with every key set in patch replaced.
func (o Overrides) Merge(patch Overrides) Overrides {
	out := o.Clone()
	if patch.CharFadeDelay != nil {
		out.CharFadeDelay = Int64(*patch.CharFadeDelay)
	}
	if patch.MaskFadeDelay != nil {
		out.MaskFadeDelay = Int64(*patch.MaskFadeDelay)
	}
	if patch.MaskFadeDuration != nil {
		out.MaskFadeDuration = Int64(*patch.MaskFadeDuration)
	}
	if patch.StaggerDelay != nil {
		out.StaggerDelay = Int64(*patch.StaggerDelay)
	}
	if patch.Curve != nil {
		out.Curve = String(*patch.Curve)
	}
	if patch.TextAnimation != nil {
		a := *patch.TextAnimation
		out.TextAnimation = &a
	}
	return out
}

// Clone returns a copy that shares no pointers with o.
func (o Overrides) Clone() Overrides {
	var out Overrides
	if o.CharFadeDelay != nil {
		out.CharFadeDelay = Int64(*o.CharFadeDelay)
	}
	if o.MaskFadeDelay != nil {
		out.MaskFadeDelay = Int64(*o.MaskFadeDelay)
	}
	if o.MaskFadeDuration != nil {
		out.MaskFadeDuration = Int64(*o.MaskFadeDuration)
	}
	if o.StaggerDelay != nil {
		out.StaggerDelay = Int64(*o.StaggerDelay)
	}
	if o.Curve != nil {
		out.Curve = String(*o.Curve)
	}
	if o.TextAnimation != nil {
		a := *o.TextAnimation
		out.TextAnimation = &a
	}
	return out
}

// Resolved is a block's effective animation configuration.
type Resolved struct {
	Curve            string        `json:"curve" yaml:"curve"`
	CharFadeDelay    int64         `json:"charFadeDelay" yaml:"charFadeDelay"`
	MaskFadeDelay    int64         `json:"maskFadeDelay" yaml:"maskFadeDelay"`
	MaskFadeDuration int64         `json:"maskFadeDuration" yaml:"maskFadeDuration"`
	StaggerDelay     int64         `json:"staggerDelay" yaml:"staggerDelay"`
	TextAnimation    TextAnimation `json:"textAnimationType,omitempty" yaml:"textAnimationType,omitempty"`
}

// Resolve looks every key up in o first and in global second.
// A global stagger delay of zero or less counts as unset and becomes
// DefaultStaggerDelay; an explicit block override is taken as is.
// Unknown or missing text animations resolve to character mode.
func (o Overrides) Resolve(global AnimationConfig) Resolved {
	r := Resolved{
		Curve:            global.Curve,
		CharFadeDelay:    global.CharFadeDelay,
		MaskFadeDelay:    global.MaskFadeDelay,
		MaskFadeDuration: global.MaskFadeDuration,
		StaggerDelay:     global.StaggerDelay,
		TextAnimation:    AnimateCharacter,
	}
	if r.StaggerDelay <= 0 {
		r.StaggerDelay = DefaultStaggerDelay
	}
	if o.Curve != nil {
		r.Curve = *o.Curve
	}
	if o.CharFadeDelay != nil {
		r.CharFadeDelay = *o.CharFadeDelay
	}
	if o.MaskFadeDelay != nil {
		r.MaskFadeDelay = *o.MaskFadeDelay
	}
	if o.MaskFadeDuration != nil {
		r.MaskFadeDuration = *o.MaskFadeDuration
	}
	if o.StaggerDelay != nil {
		r.StaggerDelay = *o.StaggerDelay
	}
	if o.TextAnimation != nil && o.TextAnimation.Valid() {
		r.TextAnimation = *o.TextAnimation
	}
	return r
}

// Snapshot freezes the current global values into an explicit override map.
// This reproduces the copy-at-creation behaviour of the original editor for
// callers that want it.
func (c AnimationConfig) Snapshot() Overrides {
	return Overrides{
		CharFadeDelay:    Int64(c.CharFadeDelay),
		MaskFadeDelay:    Int64(c.MaskFadeDelay),
		MaskFadeDuration: Int64(c.MaskFadeDuration),
		StaggerDelay:     Int64(c.StaggerDelay),
		Curve:            String(c.Curve),
	}
}

// ContentBlock is one schedulable unit on the timeline.
type ContentBlock struct {
	ID        string
	Type      BlockType
	Content   Content
	StartTime int64
	Duration  int64
	Animation Overrides
}

// End returns StartTime + Duration.
func (b ContentBlock) End() int64 {
	return b.StartTime + b.Duration
}

// Clone returns a deep copy of b.
func (b ContentBlock) Clone() ContentBlock {
	out := b
	if b.Content != nil {
		out.Content = b.Content.clone()
	}
	out.Animation = b.Animation.Clone()
	return out
}

// Validate checks the structural invariants the store relies on.
// Content shape problems are not reported here; they surface during
// evaluation so a single bad block never blocks loading a scene.
func (b ContentBlock) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("block has empty id")
	}
	if !b.Type.Valid() {
		return fmt.Errorf("block %s: unknown type %q", b.ID, b.Type)
	}
	if b.StartTime < 0 {
		return fmt.Errorf("block %s: negative start time %d", b.ID, b.StartTime)
	}
	return nil
}

// Scene is the document exchanged with the editing surface and exporters.
type Scene struct {
	Version       string          `json:"version" yaml:"version"`
	GlobalConfig  AnimationConfig `json:"globalConfig" yaml:"globalConfig"`
	ContentBlocks []ContentBlock  `json:"contentBlocks" yaml:"contentBlocks"`
	MinDuration   int64           `json:"minDuration,omitempty" yaml:"minDuration,omitempty"`
}

// CurrentVersion is written into new scene documents.
const CurrentVersion = "1.0"

// Validate checks every block and the uniqueness of ids.
func (s *Scene) Validate() error {
	seen := make(map[string]struct{}, len(s.ContentBlocks))
	for _, b := range s.ContentBlocks {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, dup := seen[b.ID]; dup {
			return fmt.Errorf("duplicate block id %q", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 { return &v }

// String returns a pointer to v.
func String(v string) *string { return &v }

// Animation returns a pointer to a.
func Animation(a TextAnimation) *TextAnimation { return &a }
