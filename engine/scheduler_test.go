package engine

import (
	"sync"
	"testing"
	"time"
)

func TestManualScheduler(t *testing.T) {
	m := NewManualScheduler()
	if m.Step(1) {
		t.Fatal("step before start should not run")
	}

	var got []float64
	m.Start(func(dt float64) { got = append(got, dt) })
	m.Start(func(float64) { t.Error("second start replaced the callback") })

	m.Step(1)
	m.StepSeconds(0.5)
	if len(got) != 2 || got[0] != 1 || got[1] != 30 {
		t.Errorf("expected deltas [1 30], got %v", got)
	}

	m.Stop()
	if m.Running() || m.Step(1) {
		t.Error("expected stopped scheduler to ignore steps")
	}
}

func TestTickerScheduler_RunsAndStops(t *testing.T) {
	ts := NewTickerScheduler(200, 2)

	var mu sync.Mutex
	var deltas []float64
	ts.Start(func(dt float64) {
		mu.Lock()
		deltas = append(deltas, dt)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)
	ts.Stop()

	mu.Lock()
	n := len(deltas)
	for _, dt := range deltas {
		if dt <= 0 || dt > 2 {
			t.Errorf("delta %v outside (0, 2]", dt)
		}
	}
	mu.Unlock()

	if n < 3 {
		t.Fatalf("expected several ticks in 100ms at 200fps, got %d", n)
	}

	// No callbacks after Stop returns
	time.Sleep(30 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(deltas) != n {
		t.Errorf("callback ran after Stop: %d -> %d", n, len(deltas))
	}

	ts.Stop() // second stop is a no-op
}

func TestTickerScheduler_DrivesBackground(t *testing.T) {
	h := newHarness(t, nil, Options{})
	ts := NewTickerScheduler(120, h.cfg.Sim.MaxDelta)
	h.bg.sched = ts
	h.init(t)

	deadline := time.Now().Add(2 * time.Second)
	for h.bg.Perf().Frames() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.bg.Teardown()

	if h.bg.Perf().Frames() < 3 {
		t.Fatalf("expected frames from the ticker, got %d", h.bg.Perf().Frames())
	}
	if got := h.surfs[0].destroys.Load(); got != 1 {
		t.Errorf("expected one destroy, got %d", got)
	}
}
