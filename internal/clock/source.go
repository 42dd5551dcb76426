package clock

import (
	"sync"
	"time"
)

// FrameInterval is the default tick period, roughly one display refresh.
const FrameInterval = 16 * time.Millisecond

// TimeSource provides wall-clock time to the clock.
type TimeSource interface {
	Now() time.Time
}

// SystemTime reads the real clock.
type SystemTime struct{}

func (SystemTime) Now() time.Time { return time.Now() }

// Scheduler registers a callback to run once per frame until the returned
// cancel func is called. Cancel must not block and must be safe to call more
// than once, including from inside the callback.
type Scheduler interface {
	Schedule(fn func()) (cancel func())
}

// TickerScheduler fires callbacks from a time.Ticker goroutine.
type TickerScheduler struct {
	Interval time.Duration
}

func (s TickerScheduler) Schedule(fn func()) func() {
	interval := s.Interval
	if interval <= 0 {
		interval = FrameInterval
	}

	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var once sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}

// ManualTime is a TimeSource moved by hand.
type ManualTime struct {
	mu      sync.RWMutex
	current time.Time
}

// NewManualTime creates a manual time source starting at start.
func NewManualTime(start time.Time) *ManualTime {
	return &ManualTime{current: start}
}

func (m *ManualTime) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set jumps to t.
func (m *ManualTime) Set(t time.Time) {
	m.mu.Lock()
	m.current = t
	m.mu.Unlock()
}

// Advance moves time forward by d.
func (m *ManualTime) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}

// ManualScheduler runs registered callbacks only when Fire is called.
type ManualScheduler struct {
	mu      sync.Mutex
	next    int
	pending map[int]func()
	last    func()
}

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{pending: make(map[int]func())}
}

func (m *ManualScheduler) Schedule(fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.pending[id] = fn
	m.last = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.pending, id)
		m.mu.Unlock()
	}
}

// Fire runs every registered callback once.
func (m *ManualScheduler) Fire() {
	m.mu.Lock()
	fns := make([]func(), 0, len(m.pending))
	for i := 0; i < m.next; i++ {
		if fn, ok := m.pending[i]; ok {
			fns = append(fns, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Pending returns the number of live registrations.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Last returns the most recently scheduled callback, cancelled or not.
func (m *ManualScheduler) Last() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
