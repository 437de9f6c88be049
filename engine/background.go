// Package engine mounts a scene onto a host surface: it owns the lifecycle, queues
// host input and drives frames from a scheduler.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/scene"
	"github.com/pthm-cable/oilblob/telemetry"
)

var (
	// ErrTornDown is returned when work arrives after Teardown.
	ErrTornDown = errors.New("background torn down")
	// ErrNotInitialized is returned when the scene does not exist yet.
	ErrNotInitialized = errors.New("background not initialized")
	// ErrAlreadyInitialized is returned by a second Init.
	ErrAlreadyInitialized = errors.New("background already initialized")
)

// SurfaceFactory acquires the drawing surface. It may block and should honour ctx.
type SurfaceFactory func(ctx context.Context, w, h int) (renderer.Surface, error)

// Options holds optional collaborators. Zero values get defaults.
type Options struct {
	Logger *slog.Logger
	Rand   *rand.Rand

	// Perf defaults to a collector over cfg.Telemetry.PerfWindow frames.
	Perf *telemetry.PerfCollector
	// Stats enables windowed scene statistics when set.
	Stats *telemetry.Collector

	Output   *telemetry.OutputManager
	LogStats bool
	OnStats  func(telemetry.SceneStats)

	// Restore rebuilds the scene from a snapshot instead of spawning a fresh one.
	Restore *telemetry.Snapshot
}

// Background is one mounted organic background.
type Background struct {
	cfg     *config.Config
	factory SurfaceFactory
	sched   Scheduler
	log     *slog.Logger
	rng     *rand.Rand

	perf     *telemetry.PerfCollector
	stats    *telemetry.Collector
	output   *telemetry.OutputManager
	logStats bool
	onStats  func(telemetry.SceneStats)
	restore  *telemetry.Snapshot

	torn   atomic.Bool
	events chan event

	// Guarded by mu
	mu       sync.Mutex
	started  bool
	running  bool
	surf     renderer.Surface
	comp     *renderer.Compositor
	sc       *scene.Scene
	visible  bool
	fade     *gween.Tween
	opacity  float64
	frameErr bool
}

// New creates an unmounted background. Nothing is acquired until Init.
func New(cfg *config.Config, factory SurfaceFactory, sched Scheduler, opts Options) *Background {
	b := &Background{
		cfg:      cfg,
		factory:  factory,
		sched:    sched,
		log:      opts.Logger,
		rng:      opts.Rand,
		perf:     opts.Perf,
		stats:    opts.Stats,
		output:   opts.Output,
		logStats: opts.LogStats,
		onStats:  opts.OnStats,
		restore:  opts.Restore,
		events:   make(chan event, eventQueueSize),
		visible:  true,
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	if b.perf == nil {
		window := 0
		if cfg != nil {
			window = cfg.Telemetry.PerfWindow
		}
		b.perf = telemetry.NewPerfCollector(window)
	}
	return b
}

// Init acquires the surface, builds the scene and compositor, and starts the
// scheduler. On failure everything acquired so far is released. If Teardown ran
// while the surface was being acquired, Init releases it and returns ErrTornDown.
func (b *Background) Init(ctx context.Context, w, h int) error {
	if b.torn.Load() {
		return ErrTornDown
	}
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyInitialized
	}
	b.started = true
	b.mu.Unlock()

	if b.cfg == nil || b.factory == nil || b.sched == nil {
		return errors.New("background needs a config, a surface factory and a scheduler")
	}

	surf, err := b.factory(ctx, w, h)
	if err != nil {
		return fmt.Errorf("acquiring surface: %w", err)
	}
	if surf == nil {
		return fmt.Errorf("acquiring surface: factory returned no surface")
	}

	// Blocking boundary: the host may have gone away meanwhile.
	if b.torn.Load() {
		b.destroySurface(surf)
		return ErrTornDown
	}
	if err := ctx.Err(); err != nil {
		b.destroySurface(surf)
		return fmt.Errorf("initialisation cancelled: %w", err)
	}

	sc, err := b.buildScene(scene.Viewport{W: float64(w), H: float64(h)})
	if err != nil {
		b.destroySurface(surf)
		return fmt.Errorf("building scene: %w", err)
	}

	comp, err := renderer.NewCompositor(surf, b.cfg.Render)
	if err != nil {
		b.destroySurface(surf)
		return fmt.Errorf("building compositor: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.torn.Load() {
		comp.Release()
		b.destroySurface(surf)
		return ErrTornDown
	}

	sc.SetPhaseHook(b.perf.StartPhase)
	b.surf, b.comp, b.sc = surf, comp, sc
	b.opacity = 1
	if b.cfg.Render.FadeIn > 0 {
		b.fade = gween.New(0, 1, float32(b.cfg.Render.FadeIn), ease.OutCubic)
		b.opacity = 0
	}
	b.running = true
	b.sched.Start(b.Frame)

	b.log.Info("background initialized",
		"width", w,
		"height", h,
		"blobs", sc.BlobCount(),
		"rays", sc.RayCount(),
		"style", b.cfg.Render.Style,
	)
	return nil
}

// buildScene spawns a fresh scene, or rebuilds the restore snapshot at vp.
func (b *Background) buildScene(vp scene.Viewport) (*scene.Scene, error) {
	if b.restore == nil {
		return scene.New(b.cfg, vp, b.rng)
	}
	blobs, rays, err := b.restore.Specs()
	if err != nil {
		return nil, err
	}
	return scene.NewFromSpecs(b.cfg, vp, b.rng, blobs, rays)
}

// Mount runs Init on its own goroutine. Failures are logged and swallowed; the host
// simply has no background. The returned channel closes when Init has finished.
func (b *Background) Mount(ctx context.Context, w, h int) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := b.Init(ctx, w, h)
		switch {
		case err == nil:
		case errors.Is(err, ErrTornDown), errors.Is(err, context.Canceled):
			b.log.Info("background init abandoned", "reason", err)
		default:
			b.log.Error("background init failed", "error", err)
		}
	}()
	return done
}

// Frame advances and draws one frame. Schedulers call it; hosts driving frames
// themselves may too.
func (b *Background) Frame(dt float64) {
	if b.torn.Load() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc == nil || b.torn.Load() {
		return
	}

	b.perf.StartFrame()
	b.perf.StartPhase(telemetry.PhaseInput)
	b.drainEvents()
	if !b.visible {
		return
	}

	b.sc.Tick(dt)

	b.perf.StartPhase(telemetry.PhaseComposite)
	syncErr := b.comp.Sync(b.sc)
	if syncErr != nil {
		b.logFrameErr("compositor sync failed", syncErr)
	}

	b.perf.StartPhase(telemetry.PhasePresent)
	renderErr := b.comp.Render(b.advanceFade(dt))
	if renderErr != nil {
		b.logFrameErr("render failed", renderErr)
	}
	if syncErr == nil && renderErr == nil {
		b.frameErr = false
	}
	b.perf.EndFrame()

	b.observe()
}

// advanceFade steps the fade-in tween by dt frames and returns the opacity.
func (b *Background) advanceFade(dt float64) float64 {
	if b.fade == nil {
		return b.opacity
	}
	v, finished := b.fade.Update(float32(dt / 60))
	b.opacity = float64(v)
	if finished {
		b.opacity = 1
		b.fade = nil
	}
	return b.opacity
}

// logFrameErr logs the first of a run of per-frame errors.
func (b *Background) logFrameErr(msg string, err error) {
	if b.frameErr {
		return
	}
	b.frameErr = true
	b.log.Warn(msg, "error", err)
}

// Teardown stops frames and releases the compositor and surface. Safe to call more
// than once, before Init, during Init and after a failed Init.
func (b *Background) Teardown() {
	if !b.torn.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	running := b.running
	b.mu.Unlock()
	if running {
		b.sched.Stop()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.running = false
	if b.sc != nil {
		b.sc.SetPhaseHook(nil)
	}
	if b.comp != nil {
		b.comp.Release()
		b.comp = nil
	}
	if b.surf != nil {
		b.destroySurface(b.surf)
		b.surf = nil
	}
	b.log.Info("background torn down")
}

func (b *Background) destroySurface(s renderer.Surface) {
	if err := s.Destroy(); err != nil {
		b.log.Warn("destroying surface", "error", err)
	}
}

// Scene returns the live scene, or nil before a successful Init. It must only be
// read from the frame goroutine.
func (b *Background) Scene() *scene.Scene {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sc
}

// Perf returns the frame timing collector.
func (b *Background) Perf() *telemetry.PerfCollector { return b.perf }

// Opacity returns the current composite opacity.
func (b *Background) Opacity() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opacity
}

// Visible reports whether frames are currently drawn.
func (b *Background) Visible() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.visible
}

// TornDown reports whether Teardown has run.
func (b *Background) TornDown() bool { return b.torn.Load() }

// Snapshot captures the scene state for the run output.
func (b *Background) Snapshot(seed int64) (*telemetry.Snapshot, error) {
	if b.torn.Load() {
		return nil, ErrTornDown
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sc == nil {
		return nil, ErrNotInitialized
	}
	return telemetry.CaptureSnapshot(b.sc, seed), nil
}
