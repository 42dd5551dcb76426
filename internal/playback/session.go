package playback

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/joyeues/wordflow-animation-lab/internal/clock"
	"github.com/joyeues/wordflow-animation-lab/internal/evaluator"
	"github.com/joyeues/wordflow-animation-lab/internal/scene"
	"github.com/joyeues/wordflow-animation-lab/internal/timeline"
)

// FrameBlock is a block's evaluated state plus its sticky presentation state.
type FrameBlock struct {
	evaluator.BlockState
	// Block is the block as it was in the snapshot the frame was evaluated
	// against. Drawing from it avoids mixing in edits made after the pass.
	Block scene.ContentBlock `json:"-"`
	Phase Phase `json:"phase"`
	// Rendered is what a preview should draw.
	Rendered bool `json:"rendered"`
	// Gleam is true while a triggered sweep is running.
	Gleam bool `json:"gleam"`
}

// Frame is everything a consumer needs to draw one instant. All blocks are
// evaluated against Clock.Time.
type Frame struct {
	Clock   clock.Snapshot `json:"clock"`
	Version uint64         `json:"version"`
	Blocks  []FrameBlock   `json:"blocks"`
	Events  []Event        `json:"events,omitempty"`
}

// Session ties the editable block store and the clock together and
// publishes a frame for every clock change.
type Session struct {
	store   *timeline.Store
	clock   *clock.Clock
	tracker *Tracker

	// KeepSettled keeps blocks drawn after their window has passed.
	KeepSettled bool

	mu      sync.Mutex
	subs    map[int]func(Frame)
	nextSub int
	unsub   func()
}

// NewSession wires store and clk. The clock's total duration and speed are
// synced from the store immediately.
func NewSession(store *timeline.Store, clk *clock.Clock) *Session {
	s := &Session{
		store:   store,
		clock:   clk,
		tracker: NewTracker(),
		subs:    make(map[int]func(Frame)),
	}
	s.Sync()
	s.unsub = clk.Subscribe(s.onClock)
	return s
}

// Store returns the block store.
func (s *Session) Store() *timeline.Store { return s.store }

// Clock returns the clock.
func (s *Session) Clock() *clock.Clock { return s.clock }

// Tracker returns the sticky state tracker.
func (s *Session) Tracker() *Tracker { return s.tracker }

// Sync pushes store-derived values into the clock. Call it after every edit.
func (s *Session) Sync() {
	snap := s.store.Snapshot()
	s.clock.SetTotalDuration(snap.TotalDuration())
	if err := s.clock.SetSpeed(snap.Global.Speed()); err != nil {
		log.Printf("[!] playback: %v", err)
	}
}

// SetSpeed changes the global speed. The store's global config and the
// clock always carry the same value, so evaluation and playback agree.
func (s *Session) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", clock.ErrInvalidSpeed, speed)
	}
	g := s.store.Global()
	g.GlobalSpeed = speed
	s.store.SetGlobal(g)
	s.Sync()
	return nil
}

// Subscribe registers fn to receive every published frame.
func (s *Session) Subscribe(fn func(Frame)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Frame builds a frame for the clock's current state and advances the
// tracker with it.
func (s *Session) Frame() Frame {
	return s.build(s.clock.Snapshot())
}

// FrameAt evaluates the store at t without touching clock or tracker.
func (s *Session) FrameAt(t float64) Frame {
	snap := s.store.Snapshot()
	states := evaluator.EvaluateTimeline(snap.Blocks, t, snap.Global)

	f := Frame{
		Clock:   clock.Snapshot{Time: t, Total: float64(snap.TotalDuration()), Speed: snap.Global.Speed()},
		Version: snap.Version,
		Blocks:  make([]FrameBlock, len(states)),
	}
	blocks := byID(snap.Blocks)
	for i, st := range states {
		f.Blocks[i] = FrameBlock{BlockState: st, Block: blocks[st.ID], Rendered: st.Active && !st.Skipped()}
	}
	return f
}

// Close detaches the session from the clock.
func (s *Session) Close() {
	if s.unsub != nil {
		s.unsub()
	}
}

func (s *Session) onClock(cs clock.Snapshot) {
	f := s.build(cs)

	s.mu.Lock()
	subs := make([]func(Frame), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(f)
	}
}

func (s *Session) build(cs clock.Snapshot) Frame {
	snap := s.store.Snapshot()
	states := evaluator.EvaluateTimeline(snap.Blocks, cs.Time, snap.Global)
	events := s.tracker.Observe(states, cs.Time)

	f := Frame{
		Clock:   cs,
		Version: snap.Version,
		Blocks:  make([]FrameBlock, len(states)),
		Events:  events,
	}
	blocks := byID(snap.Blocks)
	for i, st := range states {
		fb := FrameBlock{BlockState: st, Block: blocks[st.ID], Phase: s.tracker.Phase(st.ID)}
		fb.Rendered = !st.Skipped() && (st.Active || (s.KeepSettled && fb.Phase == SettledVisible))
		if g, ok := st.Reveal.(evaluator.GleamReveal); ok {
			fb.Gleam = g.GleamActive && s.tracker.GleamRunning(st.ID, cs.Time)
		}
		f.Blocks[i] = fb
	}
	return f
}

func byID(blocks []scene.ContentBlock) map[string]scene.ContentBlock {
	m := make(map[string]scene.ContentBlock, len(blocks))
	for _, b := range blocks {
		m[b.ID] = b
	}
	return m
}
