// Package telemetry provides frame timing and scene statistics with CSV and JSON run output.
package telemetry

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/scene"
)

// Collector accumulates per-tick observations within windows and produces SceneStats.
type Collector struct {
	windowTicks uint64

	// Current window tracking
	windowStartTick uint64
	started         bool

	// Accumulators for current window
	samples   int
	litSum    float64
	peakSpeed float64
}

// NewCollector creates a new stats collector that flushes every windowTicks scene ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: uint64(windowTicks)}
}

// Observe samples s once. Call it after every scene tick.
func (c *Collector) Observe(s *scene.Scene) {
	if !c.started {
		c.windowStartTick = s.Ticks()
		c.started = true
	}
	n := 0
	var lit float64
	s.EachBlob(func(b scene.BlobView) {
		n++
		lit += b.Lit
		if sp := r2.Norm(b.Vel); sp > c.peakSpeed {
			c.peakSpeed = sp
		}
	})
	if n > 0 {
		c.litSum += lit / float64(n)
	}
	c.samples++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick uint64) bool {
	return c.started && currentTick-c.windowStartTick >= c.windowTicks
}

// Flush produces SceneStats for the window ending now and resets the accumulators.
func (c *Collector) Flush(s *scene.Scene) SceneStats {
	st := ComputeSceneStats(s)
	st.WindowStartTick = c.windowStartTick
	if c.samples > 0 {
		st.MeanLit = c.litSum / float64(c.samples)
	}
	if c.peakSpeed > st.PeakSpeed {
		st.PeakSpeed = c.peakSpeed
	}

	c.windowStartTick = s.Ticks()
	c.samples = 0
	c.litSum = 0
	c.peakSpeed = 0
	return st
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() uint64 {
	return c.windowTicks
}

// Pending returns the number of observations in the open window.
func (c *Collector) Pending() int {
	return c.samples
}
