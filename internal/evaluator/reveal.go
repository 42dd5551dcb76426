package evaluator

// Mode names the reveal strategy used for a block.
type Mode string

const (
	ModeCharacter Mode = "character"
	ModeWord      Mode = "word"
	ModeGleam     Mode = "gleam"
	ModeBullet    Mode = "bullet"
	ModeChart     Mode = "chart"
)

// RevealState is the computed visibility of a block's sub-units at one
// instant. Implementations are CharacterReveal, WordReveal, GleamReveal,
// BulletReveal and ChartReveal.
type RevealState interface {
	Mode() Mode
	reveal()
}

// Unit is one character or word of paragraph text.
type Unit struct {
	Text       string  `json:"text"`
	Whitespace bool    `json:"whitespace,omitempty"`
	Visible    bool    `json:"visible"`
	RevealAt   float64 `json:"revealAt"`
}

// CharacterReveal splits text into one unit per rune. Whitespace units have
// no fade and are visible as soon as the block has started.
type CharacterReveal struct {
	Units []Unit `json:"units"`
}

func (CharacterReveal) Mode() Mode { return ModeCharacter }
func (CharacterReveal) reveal()    {}

// Revealed returns the indices of the visible non-whitespace units.
func (r CharacterReveal) Revealed() []int {
	return revealed(r.Units)
}

// Text returns the visible characters with whitespace kept in place.
func (r CharacterReveal) Text() string {
	out := make([]rune, 0, len(r.Units))
	for _, u := range r.Units {
		if u.Visible {
			out = append(out, []rune(u.Text)...)
		}
	}
	return string(out)
}

// Complete reports whether every unit is visible.
func (r CharacterReveal) Complete() bool {
	return allVisible(r.Units)
}

// WordReveal splits text on single spaces.
type WordReveal struct {
	Units []Unit `json:"units"`
}

func (WordReveal) Mode() Mode { return ModeWord }
func (WordReveal) reveal()    {}

// Revealed returns the indices of the visible words.
func (r WordReveal) Revealed() []int {
	return revealed(r.Units)
}

// Complete reports whether every word is visible.
func (r WordReveal) Complete() bool {
	return allVisible(r.Units)
}

// GleamReveal shows the whole paragraph at once with a one-shot sweep.
type GleamReveal struct {
	Text        string `json:"text"`
	TextVisible bool   `json:"textVisible"`
	GleamActive bool   `json:"gleamActive"`
	// SweepProgress runs from 0 to 1 over GleamSweepDuration.
	SweepProgress float64 `json:"sweepProgress"`
}

func (GleamReveal) Mode() Mode { return ModeGleam }
func (GleamReveal) reveal()    {}

// BulletReveal carries the header flag and one flag per list item.
type BulletReveal struct {
	HeaderVisible bool      `json:"headerVisible"`
	ItemVisible   []bool    `json:"itemVisible"`
	ItemRevealAt  []float64 `json:"itemRevealAt"`
	FadeDuration  float64   `json:"fadeDuration"`
}

func (BulletReveal) Mode() Mode { return ModeBullet }
func (BulletReveal) reveal()    {}

// VisibleItems counts the visible items.
func (r BulletReveal) VisibleItems() int {
	n := 0
	for _, v := range r.ItemVisible {
		if v {
			n++
		}
	}
	return n
}

// ScaledDataset is a dataset with values multiplied by the chart progress.
type ScaledDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartReveal reports the chart progress. Datasets is nil until the block
// starts so nothing renders before then.
type ChartReveal struct {
	Progress float64         `json:"progress"`
	Datasets []ScaledDataset `json:"datasets,omitempty"`
}

func (ChartReveal) Mode() Mode { return ModeChart }
func (ChartReveal) reveal()    {}

func revealed(units []Unit) []int {
	var idx []int
	for i, u := range units {
		if u.Visible && !u.Whitespace {
			idx = append(idx, i)
		}
	}
	return idx
}

func allVisible(units []Unit) bool {
	for _, u := range units {
		if !u.Visible {
			return false
		}
	}
	return true
}
