// Package game hosts the background in a raylib window, with tuning panels and
// debug overlays, and provides the headless runner used for batch runs.
package game

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/engine"
	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/renderer/rlsurface"
	"github.com/pthm-cable/oilblob/telemetry"
	"github.com/pthm-cable/oilblob/ui"
)

// Panel layout
const (
	statusPanelWidth    = 240
	controlsPanelWidth  = 220
	inspectorPanelWidth = 220
	panelMargin         = 10
)

const controlsLegend = "[Space] pause  [,/.] speed  [D] debug  [F1] overlays  [F2] perf  [G] graph  [S] snapshot  [F11] fullscreen"

// Game is the windowed host.
type Game struct {
	cfg  *config.Config
	opts Options
	log  *slog.Logger

	bg     *engine.Background
	sched  *engine.ManualScheduler
	output *telemetry.OutputManager

	// UI
	overlays  *ui.OverlayRegistry
	hud       *ui.HUD
	status    *ui.StatusPanel
	controls  *ui.ControlsPanel
	perfPanel *ui.PerfPanel
	graph     *ui.StatsGraph
	inspector *ui.BlobInspector

	state     ui.StatusState
	showPerf  bool
	showGraph bool

	// Input state
	pointerInside bool
	lastMouse     rl.Vector2
	touching      bool
	visible       bool

	screenWidth, screenHeight int32
}

// NewGame mounts a background into the current raylib window. The window must be
// open because the surface allocates GPU textures.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())

	g := &Game{
		cfg:          cfg,
		opts:         opts,
		log:          opts.Logger,
		sched:        engine.NewManualScheduler(),
		overlays:     ui.NewOverlayRegistry(),
		hud:          ui.NewHUD(),
		status:       ui.NewStatusPanel(w-statusPanelWidth-panelMargin, panelMargin, statusPanelWidth),
		controls:     ui.NewControlsPanel(panelMargin, 100, controlsPanelWidth),
		perfPanel:    ui.NewPerfPanel(panelMargin, 100),
		graph:        ui.NewStatsGraph(w, h),
		inspector:    ui.NewBlobInspector(w-inspectorPanelWidth-panelMargin, 260, inspectorPanelWidth),
		state:        ui.DefaultStatusState(),
		visible:      true,
		screenWidth:  w,
		screenHeight: h,
	}

	output, err := newOutput(cfg, opts)
	if err != nil {
		return nil, err
	}
	g.output = output

	var restore *telemetry.Snapshot
	if opts.RestorePath != "" {
		restore, err = telemetry.LoadSnapshot(opts.RestorePath)
		if err != nil {
			output.Close()
			return nil, err
		}
	}

	g.bg = engine.New(cfg, g.surfaceFactory, g.sched, engine.Options{
		Logger:   g.log,
		Rand:     rand.New(rand.NewSource(opts.Seed)),
		Stats:    telemetry.NewCollector(cfg.Telemetry.StatsWindow),
		Output:   output,
		LogStats: opts.LogStats,
		OnStats:  g.graph.Update,
		Restore:  restore,
	})
	if err := g.bg.Init(context.Background(), int(w), int(h)); err != nil {
		output.Close()
		return nil, fmt.Errorf("mounting background: %w", err)
	}
	return g, nil
}

func (g *Game) surfaceFactory(_ context.Context, w, h int) (renderer.Surface, error) {
	s, err := rlsurface.New(w, h, g.cfg.Derived.Background)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Tick returns the number of scene ticks run.
func (g *Game) Tick() uint64 {
	if sc := g.bg.Scene(); sc != nil {
		return sc.Ticks()
	}
	return 0
}

// Update processes input. Frames are advanced in Draw because the surface renders
// into the current raylib frame.
func (g *Game) Update() {
	g.handleInput()
}

// Unload tears the background down and closes run output.
func (g *Game) Unload() {
	if _, err := g.bg.FlushStats(); err != nil {
		g.log.Warn("final stats flush failed", "error", err)
	}
	if g.opts.SnapshotDir != "" {
		g.saveSnapshot()
	}
	g.bg.Teardown()
	if err := g.output.Close(); err != nil {
		g.log.Error("closing output", "error", err)
	}
}

// saveSnapshot writes the scene to the snapshot directory.
func (g *Game) saveSnapshot() {
	if g.opts.SnapshotDir == "" {
		g.log.Warn("snapshot requested without a snapshot directory")
		return
	}
	snap, err := g.bg.Snapshot(g.opts.Seed)
	if err != nil {
		g.log.Error("failed to capture snapshot", "error", err)
		return
	}
	path, err := telemetry.SaveSnapshot(snap, g.opts.SnapshotDir)
	if err != nil {
		g.log.Error("failed to save snapshot", "error", err)
		return
	}
	g.log.Info("snapshot saved", "path", path, "tick", snap.Tick)
}
