// Package playback holds the stateful side of presenting a timeline: the
// sticky per-block phases the pure evaluator cannot remember, and the session
// that turns clock ticks into frames.
package playback

import (
	"sync"

	"github.com/joyeues/wordflow-animation-lab/internal/evaluator"
)

// Phase is the presentation state of one block.
type Phase int

const (
	NotStarted Phase = iota
	Active
	SettledVisible
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not-started"
	case Active:
		return "active"
	case SettledVisible:
		return "settled"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// EventKind names a phase change worth reacting to.
type EventKind int

const (
	Entered EventKind = iota
	Settled
	Reset
	GleamTriggered
)

func (k EventKind) String() string {
	switch k {
	case Entered:
		return "entered"
	case Settled:
		return "settled"
	case Reset:
		return "reset"
	case GleamTriggered:
		return "gleam"
	default:
		return "unknown"
	}
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event records a transition observed at playhead Time.
type Event struct {
	BlockID string    `json:"blockId" yaml:"blockId"`
	Kind    EventKind `json:"kind" yaml:"kind"`
	Time    float64   `json:"time" yaml:"time"`
}

type track struct {
	phase      Phase
	gleamFired bool
	gleamAt    float64
	gleamDone  bool
}

// Tracker folds successive evaluation passes into sticky per-block state.
// A gleam sweep fires once per pass through a block and only re-arms when
// the playhead goes back before the block's start. Once the sweep has run
// out or the block has settled it stays finished until then.
type Tracker struct {
	mu     sync.Mutex
	tracks map[string]*track
}

// NewTracker creates a tracker with every block in NotStarted.
func NewTracker() *Tracker {
	return &Tracker{tracks: make(map[string]*track)}
}

// Observe advances the tracker with one pass evaluated at playhead t and
// returns the transitions it caused. Blocks missing from states are
// forgotten.
func (tr *Tracker) Observe(states []evaluator.BlockState, t float64) []Event {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	var events []Event
	seen := make(map[string]struct{}, len(states))
	for _, s := range states {
		seen[s.ID] = struct{}{}
		tk, ok := tr.tracks[s.ID]
		if !ok {
			tk = &track{}
			tr.tracks[s.ID] = tk
		}

		next := nextPhase(tk.phase, s)
		if next != tk.phase {
			switch next {
			case NotStarted:
				tk.gleamFired = false
				tk.gleamDone = false
				events = append(events, Event{BlockID: s.ID, Kind: Reset, Time: t})
			case Active:
				events = append(events, Event{BlockID: s.ID, Kind: Entered, Time: t})
			case SettledVisible:
				events = append(events, Event{BlockID: s.ID, Kind: Settled, Time: t})
			}
			tk.phase = next
		}

		if s.Mode == evaluator.ModeGleam && next == Active && !tk.gleamFired && !s.Skipped() {
			tk.gleamFired = true
			tk.gleamAt = t
			events = append(events, Event{BlockID: s.ID, Kind: GleamTriggered, Time: t})
		}
		if tk.gleamFired && (next == SettledVisible || s.LocalTime >= evaluator.GleamSweepDuration) {
			tk.gleamDone = true
		}
	}

	for id := range tr.tracks {
		if _, ok := seen[id]; !ok {
			delete(tr.tracks, id)
		}
	}
	return events
}

// Phase returns the tracked phase of a block.
func (tr *Tracker) Phase(id string) Phase {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tk, ok := tr.tracks[id]; ok {
		return tk.phase
	}
	return NotStarted
}

// GleamFired reports whether the block's sweep already ran in this pass and
// the playhead time it started at.
func (tr *Tracker) GleamFired(id string) (bool, float64) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tk, ok := tr.tracks[id]; ok {
		return tk.gleamFired, tk.gleamAt
	}
	return false, 0
}

// GleamRunning reports whether the block's sweep has fired, has not finished
// and started at or before playhead t.
func (tr *Tracker) GleamRunning(id string, t float64) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tk, ok := tr.tracks[id]
	return ok && tk.gleamFired && !tk.gleamDone && t >= tk.gleamAt
}

// ResetAll puts every block back to NotStarted.
func (tr *Tracker) ResetAll() {
	tr.mu.Lock()
	tr.tracks = make(map[string]*track)
	tr.mu.Unlock()
}

func nextPhase(cur Phase, s evaluator.BlockState) Phase {
	switch {
	case !s.Started:
		return NotStarted
	case s.Active:
		return Active
	case cur == NotStarted && s.Skipped():
		return NotStarted
	default:
		return SettledVisible
	}
}
