// Package evaluator turns a block and a local time into a reveal state.
// Everything here is pure: the same arguments always give the same result
// and nothing remembers earlier calls.
package evaluator

import (
	"math"
	"strings"
	"unicode"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

const (
	// WordCadence is the fixed ratio between word and character delays.
	WordCadence = 3

	// GleamSweepDuration is how long the gleam sweep runs after a block
	// starts, in ms. It does not depend on the block duration.
	GleamSweepDuration = 3000

	// CharFadeTransition and WordFadeTransition are the fade lengths
	// renderers apply once a unit becomes visible, in ms.
	CharFadeTransition = 320
	WordFadeTransition = 400
)

// Strategy reveals one kind of content.
type Strategy interface {
	Reveal(b scene.ContentBlock, cfg scene.Resolved, local float64, started bool) (RevealState, error)
}

var strategies = map[Mode]Strategy{
	ModeCharacter: characterStrategy{},
	ModeWord:      wordStrategy{},
	ModeGleam:     gleamStrategy{},
	ModeBullet:    bulletStrategy{},
	ModeChart:     chartStrategy{},
}

// ModeFor picks the strategy for a block: the block type first, then the
// text animation for paragraphs.
func ModeFor(t scene.BlockType, cfg scene.Resolved) Mode {
	switch t {
	case scene.BulletList:
		return ModeBullet
	case scene.Chart:
		return ModeChart
	}
	switch cfg.TextAnimation {
	case scene.AnimateWord:
		return ModeWord
	case scene.AnimateGleam:
		return ModeGleam
	default:
		return ModeCharacter
	}
}

// Evaluate computes the reveal state of b at local time local. When started
// is false every unit is hidden whatever local says. Content that does not
// match the block type yields a *BlockError of kind InvalidContent and a nil
// state.
func Evaluate(b scene.ContentBlock, cfg scene.Resolved, local float64, started bool) (RevealState, error) {
	if b.Content == nil {
		return nil, invalidContent(b.ID, "missing content")
	}
	if m, ok := b.Content.(scene.MalformedContent); ok {
		return nil, invalidContent(b.ID, "%s", m.Reason)
	}
	if b.Content.Kind() != b.Type {
		return nil, invalidContent(b.ID, "%s content for %s block", b.Content.Kind(), b.Type)
	}
	if local < 0 || math.IsNaN(local) {
		local = 0
	}

	s, ok := strategies[ModeFor(b.Type, cfg)]
	if !ok {
		return nil, invalidContent(b.ID, "unknown block type %q", b.Type)
	}
	return s.Reveal(b, cfg, local, started)
}

type characterStrategy struct{}

func (characterStrategy) Reveal(b scene.ContentBlock, cfg scene.Resolved, local float64, started bool) (RevealState, error) {
	text := b.Content.(scene.ParagraphContent).Text
	delay := float64(cfg.CharFadeDelay)

	units := make([]Unit, 0, len(text))
	i := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			units = append(units, Unit{Text: string(r), Whitespace: true, Visible: started})
			continue
		}
		at := float64(i) * delay
		units = append(units, Unit{Text: string(r), Visible: started && local >= at, RevealAt: at})
		i++
	}
	return CharacterReveal{Units: units}, nil
}

type wordStrategy struct{}

func (wordStrategy) Reveal(b scene.ContentBlock, cfg scene.Resolved, local float64, started bool) (RevealState, error) {
	text := b.Content.(scene.ParagraphContent).Text
	if text == "" {
		return WordReveal{Units: []Unit{}}, nil
	}

	delay := float64(cfg.CharFadeDelay * WordCadence)
	words := strings.Split(text, " ")
	units := make([]Unit, len(words))
	for i, w := range words {
		at := float64(i) * delay
		units[i] = Unit{Text: w, Visible: started && local >= at, RevealAt: at}
	}
	return WordReveal{Units: units}, nil
}

type gleamStrategy struct{}

func (gleamStrategy) Reveal(b scene.ContentBlock, _ scene.Resolved, local float64, started bool) (RevealState, error) {
	r := GleamReveal{Text: b.Content.(scene.ParagraphContent).Text}
	if !started {
		return r, nil
	}
	r.TextVisible = true
	r.GleamActive = local < GleamSweepDuration
	r.SweepProgress = timing.Clamp01(local / GleamSweepDuration)
	return r, nil
}

type bulletStrategy struct{}

func (bulletStrategy) Reveal(b scene.ContentBlock, cfg scene.Resolved, local float64, started bool) (RevealState, error) {
	items := b.Content.(scene.BulletListContent).Items

	r := BulletReveal{
		HeaderVisible: started,
		ItemVisible:   make([]bool, len(items)),
		ItemRevealAt:  make([]float64, len(items)),
		FadeDuration:  float64(cfg.MaskFadeDuration),
	}
	for i := range items {
		at := float64(cfg.MaskFadeDelay + int64(i)*cfg.StaggerDelay)
		r.ItemRevealAt[i] = at
		r.ItemVisible[i] = started && local >= at
	}
	return r, nil
}

type chartStrategy struct{}

func (chartStrategy) Reveal(b scene.ContentBlock, _ scene.Resolved, local float64, started bool) (RevealState, error) {
	if b.Duration <= 0 {
		return ChartReveal{}, degenerateDuration(b.ID, b.Duration)
	}
	if !started {
		return ChartReveal{}, nil
	}

	c := b.Content.(scene.ChartContent)
	progress := timing.Clamp01(local / float64(b.Duration))

	r := ChartReveal{Progress: progress, Datasets: make([]ScaledDataset, len(c.Data.Datasets))}
	for i, ds := range c.Data.Datasets {
		scaled := make([]float64, len(ds.Data))
		for j, v := range ds.Data {
			scaled[j] = v * progress
		}
		r.Datasets[i] = ScaledDataset{Label: ds.Label, Data: scaled}
	}
	return r, nil
}
