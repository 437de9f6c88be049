package engine

import "github.com/pthm-cable/oilblob/telemetry"

// observe feeds the stats collector and flushes a window when due. Called with b.mu
// held after each drawn frame.
func (b *Background) observe() {
	if b.stats == nil {
		return
	}
	b.stats.Observe(b.sc)
	if !b.stats.ShouldFlush(b.sc.Ticks()) {
		return
	}

	stats := b.stats.Flush(b.sc)
	perfStats := b.perf.Stats()

	if b.onStats != nil {
		b.onStats(stats)
	}

	if b.logStats {
		stats.LogStats(b.log)
		perfStats.LogStats(b.log)
	}

	if b.output != nil {
		if err := b.output.WriteStats(stats); err != nil {
			b.log.Error("failed to write stats", "error", err)
		}
		if err := b.output.WritePerf(perfStats, b.perf.Frames()); err != nil {
			b.log.Error("failed to write perf", "error", err)
		}
	}
}

// FlushStats forces a stats record for the current window, for hosts shutting down
// mid-window. It returns ErrNotInitialized before Init.
func (b *Background) FlushStats() (telemetry.SceneStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc == nil {
		return telemetry.SceneStats{}, ErrNotInitialized
	}
	if b.stats == nil || b.stats.Pending() == 0 {
		return telemetry.ComputeSceneStats(b.sc), nil
	}
	stats := b.stats.Flush(b.sc)
	if err := b.output.WriteStats(stats); err != nil {
		return stats, err
	}
	return stats, nil
}
