package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/scene"
	"github.com/pthm-cable/oilblob/telemetry"
)

// Headless runs the scene without any surface at a fixed dt of one frame per tick.
type Headless struct {
	cfg  *config.Config
	opts Options
	log  *slog.Logger

	sc        *scene.Scene
	perf      *telemetry.PerfCollector
	collector *telemetry.Collector
	output    *telemetry.OutputManager

	last telemetry.SceneStats
}

// NewHeadless builds a headless run of w x h pixels.
func NewHeadless(cfg *config.Config, w, h int, opts Options) (*Headless, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.StepsPerUpdate < 1 {
		opts.StepsPerUpdate = 1
	}

	sc, err := buildScene(cfg, scene.Viewport{W: float64(w), H: float64(h)}, opts)
	if err != nil {
		return nil, err
	}

	output, err := newOutput(cfg, opts)
	if err != nil {
		return nil, err
	}

	hl := &Headless{
		cfg:       cfg,
		opts:      opts,
		log:       opts.Logger,
		sc:        sc,
		perf:      telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow),
		collector: telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		output:    output,
	}
	sc.SetPhaseHook(hl.perf.StartPhase)
	return hl, nil
}

// buildScene spawns a fresh scene, or restores opts.RestorePath.
func buildScene(cfg *config.Config, vp scene.Viewport, opts Options) (*scene.Scene, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.RestorePath == "" {
		return scene.New(cfg, vp, rng)
	}
	snap, err := telemetry.LoadSnapshot(opts.RestorePath)
	if err != nil {
		return nil, err
	}
	blobs, rays, err := snap.Specs()
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", opts.RestorePath, err)
	}
	return scene.NewFromSpecs(cfg, vp, rng, blobs, rays)
}

// newOutput opens the run output directory and records the config.
func newOutput(cfg *config.Config, opts Options) (*telemetry.OutputManager, error) {
	output, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := output.WriteConfig(cfg); err != nil {
		output.Close()
		return nil, fmt.Errorf("writing config: %w", err)
	}
	return output, nil
}

// Update advances StepsPerUpdate ticks.
func (hl *Headless) Update() {
	for i := 0; i < hl.opts.StepsPerUpdate; i++ {
		hl.perf.StartFrame()
		hl.sc.Tick(1)
		hl.perf.EndFrame()
		hl.observe()
	}
}

// observe feeds the collector and writes a record when a window closes.
func (hl *Headless) observe() {
	hl.collector.Observe(hl.sc)
	if !hl.collector.ShouldFlush(hl.sc.Ticks()) {
		return
	}
	hl.record(hl.collector.Flush(hl.sc))
}

func (hl *Headless) record(stats telemetry.SceneStats) {
	hl.last = stats
	perfStats := hl.perf.Stats()

	if hl.opts.LogStats {
		stats.LogStats(hl.log)
		perfStats.LogStats(hl.log)
	}
	if err := hl.output.WriteStats(stats); err != nil {
		hl.log.Error("failed to write stats", "error", err)
	}
	if err := hl.output.WritePerf(perfStats, hl.perf.Frames()); err != nil {
		hl.log.Error("failed to write perf", "error", err)
	}
}

// Tick returns the number of scene ticks run.
func (hl *Headless) Tick() uint64 { return hl.sc.Ticks() }

// Scene returns the simulated scene.
func (hl *Headless) Scene() *scene.Scene { return hl.sc }

// LastStats returns the most recent stats window.
func (hl *Headless) LastStats() telemetry.SceneStats { return hl.last }

// SaveSnapshot writes the scene to opts.SnapshotDir and returns the path.
func (hl *Headless) SaveSnapshot() (string, error) {
	if hl.opts.SnapshotDir == "" {
		return "", errors.New("no snapshot directory")
	}
	return telemetry.SaveSnapshot(telemetry.CaptureSnapshot(hl.sc, hl.opts.Seed), hl.opts.SnapshotDir)
}

// Unload flushes the partial stats window and closes the output files.
func (hl *Headless) Unload() error {
	if hl.collector.Pending() > 0 {
		hl.record(hl.collector.Flush(hl.sc))
	}
	if hl.opts.SnapshotDir != "" {
		path, err := hl.SaveSnapshot()
		if err != nil {
			hl.log.Error("failed to save snapshot", "error", err)
		} else {
			hl.log.Info("snapshot saved", "path", path, "tick", hl.sc.Ticks())
		}
	}
	return hl.output.Close()
}
