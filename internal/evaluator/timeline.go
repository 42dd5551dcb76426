package evaluator

import (
	"errors"

	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

// BlockState is the evaluation result of one block in a timeline pass.
type BlockState struct {
	ID        string          `json:"id"`
	Type      scene.BlockType `json:"type"`
	Mode      Mode            `json:"mode,omitempty"`
	Active    bool            `json:"active"`
	Started   bool            `json:"started"`
	LocalTime float64         `json:"localTime"`
	Curve     string          `json:"curve"`
	Reveal    RevealState     `json:"reveal,omitempty"`
	Err       error           `json:"-"`
	Error     string          `json:"error,omitempty"`
}

// Skipped reports whether the block has nothing to render.
func (s BlockState) Skipped() bool {
	return s.Reveal == nil
}

// EvaluateTimeline evaluates every block against the single instant t and
// returns the states in display order (start time, ties by insertion).
// Blocks with bad content or no positive duration are skipped and carry
// their *BlockError; the rest of the pass is unaffected.
func EvaluateTimeline(blocks []scene.ContentBlock, t float64, global scene.AnimationConfig) []BlockState {
	speed := global.Speed()
	ordered := timeline.SortByStart(blocks)

	states := make([]BlockState, 0, len(ordered))
	for _, b := range ordered {
		cfg := b.Animation.Resolve(global)
		st := BlockState{
			ID:        b.ID,
			Type:      b.Type,
			Mode:      ModeFor(b.Type, cfg),
			Active:    timeline.IsActive(b, t),
			Started:   timeline.HasStarted(b, t),
			LocalTime: timeline.LocalTime(b, t, speed),
			Curve:     cfg.Curve,
		}

		if b.Duration <= 0 {
			st.Active = false
			st.setErr(degenerateDuration(b.ID, b.Duration))
			states = append(states, st)
			continue
		}

		reveal, err := Evaluate(b, cfg, st.LocalTime, st.Started)
		if err != nil {
			st.setErr(err)
		} else {
			st.Reveal = reveal
		}
		states = append(states, st)
	}
	return states
}

// ActiveStates filters states down to the blocks active at the pass instant.
func ActiveStates(states []BlockState) []BlockState {
	var out []BlockState
	for _, s := range states {
		if s.Active {
			out = append(out, s)
		}
	}
	return out
}

// Index maps block ids to their state.
func Index(states []BlockState) map[string]BlockState {
	m := make(map[string]BlockState, len(states))
	for _, s := range states {
		m[s.ID] = s
	}
	return m
}

// Failures returns the block errors of a pass.
func Failures(states []BlockState) []*BlockError {
	var out []*BlockError
	for _, s := range states {
		var be *BlockError
		if errors.As(s.Err, &be) {
			out = append(out, be)
		}
	}
	return out
}

func (s *BlockState) setErr(err error) {
	s.Err = err
	s.Error = err.Error()
	s.Reveal = nil
}
