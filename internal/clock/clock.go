// Package clock drives the playhead of a timeline.
package clock

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/joyeues/wordflow-animation-lab/internal/timing"
)

var (
	ErrInvalidTime     = errors.New("invalid time")
	ErrInvalidSpeed    = errors.New("invalid speed")
	ErrSubscriberPanic = errors.New("subscriber panicked")
)

// State is the clock's playback state.
type State int

const (
	Stopped State = iota
	Paused
	Playing
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Paused:
		return "paused"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// MarshalText lets State travel as a string in JSON and YAML.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is the clock state at one instant. Time is in ms.
type Snapshot struct {
	Time       float64 `json:"time" yaml:"time"`
	State      State   `json:"state" yaml:"state"`
	Playing    bool    `json:"isPlaying" yaml:"isPlaying"`
	Looping    bool    `json:"isLooping" yaml:"isLooping"`
	Speed      float64 `json:"speed" yaml:"speed"`
	Total      float64 `json:"totalDuration" yaml:"totalDuration"`
	Generation uint64  `json:"generation" yaml:"generation"`
}

// Clock advances a playhead at wall-clock rate scaled by speed.
//
// While playing exactly one scheduler registration is live. Every
// transition that ends or restarts a run bumps the generation, so a
// callback from an earlier registration that still fires is ignored.
type Clock struct {
	mu    sync.Mutex
	src   TimeSource
	sched Scheduler

	state  State
	time   float64
	anchor time.Time
	speed  float64
	loop   bool
	total  float64

	gen    uint64
	cancel func()

	subs    map[int]func(Snapshot)
	nextSub int
	onError func(error)

	// pending snapshots wait for the goroutine that is draining them.
	pending  []Snapshot
	draining bool
}

// New creates a stopped clock over a timeline of totalMs. Nil arguments use
// the system time and a TickerScheduler at FrameInterval.
func New(totalMs int64, src TimeSource, sched Scheduler) *Clock {
	if src == nil {
		src = SystemTime{}
	}
	if sched == nil {
		sched = TickerScheduler{Interval: FrameInterval}
	}
	c := &Clock{
		src:   src,
		sched: sched,
		speed: 1,
		total: 1,
		subs:  make(map[int]func(Snapshot)),
		onError: func(err error) {
			log.Printf("[!] clock: %v", err)
		},
	}
	c.setTotal(totalMs)
	return c
}

// OnError replaces the handler for errors raised inside the tick loop.
func (c *Clock) OnError(fn func(error)) {
	c.mu.Lock()
	c.onError = fn
	c.mu.Unlock()
}

// Subscribe registers fn to receive a snapshot after every change and tick.
// Callbacks run outside the clock's lock and may call back into it; a
// change made from a callback is delivered after that callback returns.
func (c *Clock) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Play starts or resumes playback from the current time. At the end of a
// non-looping pass it restarts from 0.
func (c *Clock) Play() {
	c.mu.Lock()
	if c.state == Playing {
		c.mu.Unlock()
		return
	}
	if !c.loop && c.time >= c.total {
		c.time = 0
	}
	c.state = Playing
	c.reanchor(c.src.Now())
	c.startLoop()
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// Pause freezes time at its current value.
func (c *Clock) Pause() {
	c.mu.Lock()
	if c.state != Playing {
		c.mu.Unlock()
		return
	}
	c.time = c.current(c.src.Now())
	c.state = Paused
	c.stopLoop()
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// Toggle pauses when playing and plays otherwise.
func (c *Clock) Toggle() {
	c.mu.Lock()
	playing := c.state == Playing
	c.mu.Unlock()

	if playing {
		c.Pause()
	} else {
		c.Play()
	}
}

// Stop resets time to 0 from any state.
func (c *Clock) Stop() {
	c.mu.Lock()
	c.state = Stopped
	c.time = 0
	c.stopLoop()
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// Seek moves the playhead to t clamped to [0, total]. A running clock keeps
// playing from the new position.
func (c *Clock) Seek(t float64) error {
	if math.IsNaN(t) {
		return fmt.Errorf("%w: seek to NaN", ErrInvalidTime)
	}

	c.mu.Lock()
	c.time = timing.Clamp(t, 0, c.total)
	switch c.state {
	case Playing:
		c.stopLoop()
		c.reanchor(c.src.Now())
		c.startLoop()
	case Stopped:
		if c.time > 0 {
			c.state = Paused
		}
	}
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetLoop toggles loop-restart at the end of the timeline.
func (c *Clock) SetLoop(loop bool) {
	c.mu.Lock()
	c.loop = loop
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// SetSpeed changes the speed multiplier. A running clock re-anchors so the
// displayed time stays continuous.
func (c *Clock) SetSpeed(speed float64) error {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, speed)
	}

	c.mu.Lock()
	if c.state == Playing {
		now := c.src.Now()
		c.time = c.current(now)
		c.speed = speed
		c.reanchor(now)
	} else {
		c.speed = speed
	}
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
	return nil
}

// SetTotalDuration updates the timeline length after block edits. The
// current time is clamped into the new range.
func (c *Clock) SetTotalDuration(totalMs int64) {
	c.mu.Lock()
	now := c.src.Now()
	if c.state == Playing {
		c.time = c.current(now)
	}
	c.setTotal(totalMs)
	if c.time > c.total {
		c.time = c.total
	}
	if c.state == Playing {
		c.reanchor(now)
	}
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// Tick advances a playing clock to the current wall time. The scheduler
// calls it once per frame; calling it directly is harmless.
func (c *Clock) Tick() {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()
	c.tick(gen)
}

// Snapshot returns the current state, advancing time if playing.
func (c *Clock) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.snapshot()
	if c.state == Playing {
		snap.Time = c.current(c.src.Now())
	}
	return snap
}

// Time returns the current playhead in ms.
func (c *Clock) Time() float64 {
	return c.Snapshot().Time
}

// State returns the playback state.
func (c *Clock) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Clock) tick(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.state != Playing {
		c.mu.Unlock()
		return
	}

	now := c.src.Now()
	elapsed := c.elapsed(now)
	if elapsed >= c.total {
		if c.loop {
			c.time = 0
			c.anchor = now
		} else {
			c.time = c.total
			c.state = Paused
			c.stopLoop()
		}
	} else {
		c.time = elapsed
	}
	snap := c.snapshot()
	c.mu.Unlock()

	c.notify(snap)
}

// notify queues snap for every subscriber. Snapshots are delivered one at a
// time in the order they were taken, by whichever caller started draining;
// reentrant and concurrent callers only enqueue. Once a newer snapshot is
// queued the older one is not delivered to the remaining subscribers.
// A panicking subscriber stops playback so no loop is left running behind
// a broken consumer.
func (c *Clock) notify(snap Snapshot) {
	c.mu.Lock()
	c.pending = append(c.pending, snap)
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true

	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		subs := c.subscribers()
		c.mu.Unlock()

		for _, fn := range subs {
			if c.superseded() {
				break
			}
			if err := deliver(fn, next); err != nil {
				c.fail(err)
				break
			}
		}

		c.mu.Lock()
	}
	c.pending = nil
	c.draining = false
	c.mu.Unlock()
}

// subscribers lists callbacks in subscription order. Callers hold mu.
func (c *Clock) subscribers() []func(Snapshot) {
	subs := make([]func(Snapshot), 0, len(c.subs))
	for i := 0; i < c.nextSub; i++ {
		if fn, ok := c.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (c *Clock) superseded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending) > 0
}

func deliver(fn func(Snapshot), snap Snapshot) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrSubscriberPanic, r)
		}
	}()
	fn(snap)
	return nil
}

func (c *Clock) fail(err error) {
	c.mu.Lock()
	if c.state == Playing {
		c.time = c.current(c.src.Now())
		c.state = Paused
	}
	c.stopLoop()
	handler := c.onError
	c.mu.Unlock()

	if handler != nil {
		handler(err)
	}
}

// elapsed is the playhead implied by the anchor. Callers hold mu.
func (c *Clock) elapsed(now time.Time) float64 {
	return float64(now.Sub(c.anchor)) / float64(time.Millisecond) * c.speed
}

// current is elapsed clamped to the timeline. Callers hold mu.
func (c *Clock) current(now time.Time) float64 {
	return timing.Clamp(c.elapsed(now), 0, c.total)
}

// reanchor sets anchor = now - time/speed. Callers hold mu.
func (c *Clock) reanchor(now time.Time) {
	offset := time.Duration(c.time / c.speed * float64(time.Millisecond))
	c.anchor = now.Add(-offset)
}

// startLoop registers the tick callback for a new generation. Callers hold mu.
func (c *Clock) startLoop() {
	c.gen++
	gen := c.gen
	c.cancel = c.sched.Schedule(func() { c.tick(gen) })
}

// stopLoop cancels the live registration. Callers hold mu.
func (c *Clock) stopLoop() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Clock) setTotal(totalMs int64) {
	if totalMs <= 0 {
		totalMs = 1
	}
	c.total = float64(totalMs)
}

func (c *Clock) snapshot() Snapshot {
	return Snapshot{
		Time:       c.time,
		State:      c.state,
		Playing:    c.state == Playing,
		Looping:    c.loop,
		Speed:      c.speed,
		Total:      c.total,
		Generation: c.gen,
	}
}
