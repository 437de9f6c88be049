package engine

import (
	"sync"
	"time"
)

// Scheduler calls a frame callback with the elapsed time in 60 Hz frames.
type Scheduler interface {
	// Start begins invoking fn. Calling Start while running is a no-op.
	Start(fn func(dt float64))
	// Stop halts invocation and waits for an in-flight callback to return.
	// It must not be called from inside fn.
	Stop()
}

// TickerScheduler drives frames from a time.Ticker on its own goroutine.
type TickerScheduler struct {
	interval time.Duration
	maxDelta float64

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewTickerScheduler creates a scheduler ticking fps times per second. Deltas larger
// than maxDelta frames are capped; maxDelta <= 0 disables the cap.
func NewTickerScheduler(fps int, maxDelta float64) *TickerScheduler {
	if fps < 1 {
		fps = 60
	}
	return &TickerScheduler{
		interval: time.Second / time.Duration(fps),
		maxDelta: maxDelta,
	}
}

// Start launches the ticker goroutine.
func (t *TickerScheduler) Start(fn func(dt float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stop != nil {
		return
	}
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go t.loop(fn, t.stop, t.done)
}

func (t *TickerScheduler) loop(fn func(dt float64), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds() * 60
			last = now
			if t.maxDelta > 0 && dt > t.maxDelta {
				dt = t.maxDelta
			}
			fn(dt)
		}
	}
}

// Stop halts the ticker goroutine and waits for it to exit.
func (t *TickerScheduler) Stop() {
	t.mu.Lock()
	if t.stop == nil {
		t.mu.Unlock()
		return
	}
	close(t.stop)
	done := t.done
	t.stop, t.done = nil, nil
	t.mu.Unlock()
	<-done
}

// ManualScheduler hands control to the host, which calls Step from its own loop.
type ManualScheduler struct {
	mu sync.Mutex
	fn func(dt float64)
}

// NewManualScheduler creates a stopped manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Start registers fn for subsequent Step calls.
func (m *ManualScheduler) Start(fn func(dt float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fn == nil {
		m.fn = fn
	}
}

// Stop unregisters the callback.
func (m *ManualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = nil
}

// Running reports whether a callback is registered.
func (m *ManualScheduler) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fn != nil
}

// Step invokes the callback once with dt. It reports whether a callback ran.
func (m *ManualScheduler) Step(dt float64) bool {
	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn == nil {
		return false
	}
	fn(dt)
	return true
}

// StepSeconds converts a wall-clock frame time to 60 Hz frames and steps.
func (m *ManualScheduler) StepSeconds(sec float64) bool {
	return m.Step(sec * 60)
}
