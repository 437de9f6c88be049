package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/renderer/raster"
	"github.com/pthm-cable/oilblob/telemetry"
)

// countingSurface wraps the software surface to count releases and inject failures.
type countingSurface struct {
	*raster.Surface
	destroys  atomic.Int32
	failLayer bool
}

func (c *countingSurface) Destroy() error {
	c.destroys.Add(1)
	return c.Surface.Destroy()
}

func (c *countingSurface) NewLayer(chain renderer.FilterChain, blend renderer.BlendMode) (renderer.Layer, error) {
	if c.failLayer {
		return nil, errors.New("out of layers")
	}
	return c.Surface.NewLayer(chain, blend)
}

type harness struct {
	cfg   *config.Config
	sched *ManualScheduler
	surfs []*countingSurface
	bg    *Background
	logs  *bytes.Buffer
}

func newHarness(t *testing.T, mutate func(*config.Config), opts Options) *harness {
	t.Helper()
	cfg := config.Default().Clone()
	cfg.Render.FadeIn = 0
	cfg.Blobs.Count = 4
	cfg.Rays.Count = 2
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Recompute(); err != nil {
		t.Fatalf("recomputing config: %v", err)
	}

	h := &harness{cfg: cfg, sched: NewManualScheduler(), logs: &bytes.Buffer{}}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewJSONHandler(h.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(11))
	}
	h.bg = New(cfg, h.factory(false), h.sched, opts)
	return h
}

func (h *harness) factory(failLayer bool) SurfaceFactory {
	return func(ctx context.Context, w, ht int) (renderer.Surface, error) {
		s := &countingSurface{Surface: raster.New(w, ht, h.cfg.Derived.Background), failLayer: failLayer}
		h.surfs = append(h.surfs, s)
		return s, nil
	}
}

func (h *harness) init(t *testing.T) {
	t.Helper()
	if err := h.bg.Init(context.Background(), 160, 120); err != nil {
		t.Fatalf("init failed: %v", err)
	}
}

// ---------- Lifecycle ----------

func TestBackground_InitAndFrames(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)

	if !h.sched.Running() {
		t.Fatal("expected scheduler to be started")
	}
	for i := 0; i < 5; i++ {
		h.sched.Step(1)
	}

	if got := h.bg.Scene().Ticks(); got != 5 {
		t.Errorf("expected 5 ticks, got %d", got)
	}
	if got := h.surfs[0].Frames(); got != 5 {
		t.Errorf("expected 5 rendered frames, got %d", got)
	}
	if h.bg.Perf().Frames() != 5 {
		t.Errorf("expected 5 perf samples, got %d", h.bg.Perf().Frames())
	}
	if !strings.Contains(h.logs.String(), "background initialized") {
		t.Error("expected init to be logged")
	}
}

func TestBackground_InitTwice(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)
	if err := h.bg.Init(context.Background(), 10, 10); !errors.Is(err, ErrAlreadyInitialized) {
		t.Errorf("expected ErrAlreadyInitialized, got %v", err)
	}
	if len(h.surfs) != 1 {
		t.Errorf("second init acquired another surface")
	}
}

func TestBackground_TeardownIdempotent(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)
	h.sched.Step(1)

	h.bg.Teardown()
	h.bg.Teardown()

	if got := h.surfs[0].destroys.Load(); got != 1 {
		t.Errorf("expected surface destroyed once, got %d", got)
	}
	if h.sched.Running() {
		t.Error("expected scheduler stopped")
	}
	if h.sched.Step(1) {
		t.Error("step after teardown should not run a frame")
	}
	h.bg.Frame(1)
	if got := h.bg.Scene().Ticks(); got != 1 {
		t.Errorf("frames after teardown advanced the scene: %d ticks", got)
	}
	if err := h.bg.Init(context.Background(), 10, 10); !errors.Is(err, ErrTornDown) {
		t.Errorf("expected ErrTornDown from init after teardown, got %v", err)
	}
}

func TestBackground_TeardownBeforeInit(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.bg.Teardown()
	h.bg.Teardown()
	if len(h.surfs) != 0 {
		t.Error("teardown acquired a surface")
	}
	h.bg.PointerMove(1, 1) // ignored
}

func TestBackground_FailedInit(t *testing.T) {
	tests := []struct {
		name     string
		factory  func(h *harness) SurfaceFactory
		surfaces int
	}{
		{
			name: "factory error",
			factory: func(*harness) SurfaceFactory {
				return func(context.Context, int, int) (renderer.Surface, error) {
					return nil, errors.New("no gpu")
				}
			},
			surfaces: 0,
		},
		{
			name:     "compositor error",
			factory:  func(h *harness) SurfaceFactory { return h.factory(true) },
			surfaces: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil, Options{})
			h.bg.factory = tc.factory(h)

			if err := h.bg.Init(context.Background(), 100, 100); err == nil {
				t.Fatal("expected init error")
			}
			if len(h.surfs) != tc.surfaces {
				t.Fatalf("expected %d surfaces, got %d", tc.surfaces, len(h.surfs))
			}
			for _, s := range h.surfs {
				if got := s.destroys.Load(); got != 1 {
					t.Errorf("partial surface destroyed %d times, want 1", got)
				}
			}
			if h.sched.Running() {
				t.Error("scheduler started after failed init")
			}

			h.bg.Teardown()
			h.bg.Teardown()
			for _, s := range h.surfs {
				if got := s.destroys.Load(); got != 1 {
					t.Errorf("teardown re-released surface: %d destroys", got)
				}
			}
			if h.bg.Scene() != nil {
				t.Error("expected no scene after failed init")
			}
		})
	}
}

func TestBackground_MountLogsFailure(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.bg.factory = func(context.Context, int, int) (renderer.Surface, error) {
		return nil, errors.New("context lost")
	}

	select {
	case <-h.bg.Mount(context.Background(), 100, 100):
	case <-time.After(5 * time.Second):
		t.Fatal("mount never finished")
	}

	logs := h.logs.String()
	if !strings.Contains(logs, "background init failed") || !strings.Contains(logs, "context lost") {
		t.Errorf("expected logged init failure, got %s", logs)
	}
	h.bg.Teardown()
}

func TestBackground_TeardownDuringInit(t *testing.T) {
	h := newHarness(t, nil, Options{})
	entered := make(chan struct{})
	release := make(chan struct{})
	inner := h.factory(false)
	h.bg.factory = func(ctx context.Context, w, ht int) (renderer.Surface, error) {
		close(entered)
		<-release
		return inner(ctx, w, ht)
	}

	done := h.bg.Mount(context.Background(), 100, 100)
	<-entered
	h.bg.Teardown()
	close(release)
	<-done

	if len(h.surfs) != 1 {
		t.Fatalf("expected the late surface to be created, got %d", len(h.surfs))
	}
	if got := h.surfs[0].destroys.Load(); got != 1 {
		t.Errorf("late surface destroyed %d times, want 1", got)
	}
	if h.bg.Scene() != nil {
		t.Error("late init must not install a scene")
	}
	if h.sched.Running() {
		t.Error("late init must not start the scheduler")
	}
}

func TestBackground_InitCancelled(t *testing.T) {
	h := newHarness(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	inner := h.factory(false)
	h.bg.factory = func(ctx context.Context, w, ht int) (renderer.Surface, error) {
		cancel()
		return inner(ctx, w, ht)
	}

	err := h.bg.Init(ctx, 100, 100)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if got := h.surfs[0].destroys.Load(); got != 1 {
		t.Errorf("cancelled surface destroyed %d times, want 1", got)
	}
}

// ---------- Frames ----------

func TestBackground_FadeIn(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Render.FadeIn = 1 }, Options{})
	h.init(t)

	if got := h.bg.Opacity(); got != 0 {
		t.Fatalf("expected opacity 0 before the first frame, got %v", got)
	}

	prev := 0.0
	for i := 0; i < 6; i++ {
		h.sched.Step(5) // 6 x 5 frames = half a second
		op := h.bg.Opacity()
		if op < prev {
			t.Fatalf("opacity decreased: %v -> %v", prev, op)
		}
		prev = op
	}
	// Ease-out cubic at t=0.5
	if math.Abs(prev-0.875) > 0.01 {
		t.Errorf("expected opacity ~0.875 halfway, got %v", prev)
	}

	for i := 0; i < 10; i++ {
		h.sched.Step(5)
	}
	if got := h.bg.Opacity(); got != 1 {
		t.Errorf("expected full opacity after fade, got %v", got)
	}
}

func TestBackground_NoFade(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)
	if got := h.bg.Opacity(); got != 1 {
		t.Errorf("expected opacity 1 with fade disabled, got %v", got)
	}
}

// ---------- Input ----------

func TestBackground_PointerEvents(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)

	h.bg.PointerMove(50, 60)
	if h.bg.Scene().Pointer().Active {
		t.Fatal("pointer applied before the next frame")
	}
	h.sched.Step(1)
	p := h.bg.Scene().Pointer()
	if !p.Active || p.X != 50 || p.Y != 60 {
		t.Errorf("expected active pointer at (50,60), got %+v", p)
	}

	h.bg.Touch([]Point{{X: 10, Y: 20}, {X: 90, Y: 90}})
	h.sched.Step(1)
	p = h.bg.Scene().Pointer()
	if p.X != 10 || p.Y != 20 {
		t.Errorf("expected first touch to drive pointer, got %+v", p)
	}

	h.bg.Touch(nil)
	h.sched.Step(1)
	if h.bg.Scene().Pointer().Active {
		t.Error("expected empty touch set to clear pointer")
	}
}

func TestBackground_EventOverflowKeepsNewest(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)

	for i := 0; i < eventQueueSize*3; i++ {
		h.bg.PointerMove(float64(i%100), 7)
	}
	h.bg.PointerMove(42, 43)
	h.sched.Step(1)

	p := h.bg.Scene().Pointer()
	if p.X != 42 || p.Y != 43 {
		t.Errorf("expected newest pointer (42,43) to survive overflow, got %+v", p)
	}
}

func TestBackground_Resize(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)

	h.bg.Resize(300, 200)
	h.sched.Step(1)

	vp := h.bg.Scene().Viewport()
	if vp.W != 300 || vp.H != 200 {
		t.Errorf("expected viewport 300x200, got %vx%v", vp.W, vp.H)
	}
	if w, ht := h.surfs[0].Size(); w != 300 || ht != 200 {
		t.Errorf("expected surface 300x200, got %dx%d", w, ht)
	}

	h.bg.Resize(0, 50)
	h.sched.Step(1)
	if vp := h.bg.Scene().Viewport(); vp.W != 300 {
		t.Errorf("degenerate resize should be ignored, got %vx%v", vp.W, vp.H)
	}
}

func TestBackground_HiddenSkipsFrames(t *testing.T) {
	h := newHarness(t, nil, Options{})
	h.init(t)

	h.bg.SetVisible(false)
	h.sched.Step(1)
	h.sched.Step(1)
	if h.bg.Visible() {
		t.Error("expected background hidden")
	}
	if got := h.bg.Scene().Ticks(); got != 0 {
		t.Errorf("hidden frames ticked the scene %d times", got)
	}
	if got := h.surfs[0].Frames(); got != 0 {
		t.Errorf("hidden frames rendered %d times", got)
	}

	h.bg.SetVisible(true)
	h.sched.Step(1)
	if got := h.bg.Scene().Ticks(); got != 1 {
		t.Errorf("expected 1 tick after showing, got %d", got)
	}
}

// ---------- Telemetry ----------

func TestBackground_StatsWindows(t *testing.T) {
	var got []telemetry.SceneStats
	h := newHarness(t, nil, Options{
		Stats:   telemetry.NewCollector(5),
		OnStats: func(s telemetry.SceneStats) { got = append(got, s) },
	})
	h.init(t)

	for i := 0; i < 12; i++ {
		h.sched.Step(1)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 stats windows over 12 frames, got %d", len(got))
	}
	if got[0].Blobs != 4 || got[0].Rays != 2 {
		t.Errorf("unexpected counts in stats: %+v", got[0])
	}

	if _, err := h.bg.FlushStats(); err != nil {
		t.Errorf("flushing stats: %v", err)
	}
}

func TestBackground_Snapshot(t *testing.T) {
	h := newHarness(t, nil, Options{})
	if _, err := h.bg.Snapshot(1); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if _, err := h.bg.FlushStats(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized from FlushStats, got %v", err)
	}
	h.init(t)
	snap, err := h.bg.Snapshot(1)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Blobs) != 4 {
		t.Errorf("expected 4 blobs in snapshot, got %d", len(snap.Blobs))
	}
	h.bg.Teardown()
	if _, err := h.bg.Snapshot(1); !errors.Is(err, ErrTornDown) {
		t.Errorf("expected ErrTornDown, got %v", err)
	}
}

func TestBackground_Restore(t *testing.T) {
	src := newHarness(t, nil, Options{})
	src.init(t)
	for i := 0; i < 10; i++ {
		src.sched.Step(1)
	}
	snap, err := src.bg.Snapshot(5)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	src.bg.Teardown()

	h := newHarness(t, nil, Options{Restore: snap})
	h.init(t)
	blobs := h.bg.Scene().Blobs()
	if len(blobs) != len(snap.Blobs) || h.bg.Scene().RayCount() != len(snap.Rays) {
		t.Fatalf("expected %d blobs and %d rays, got %d and %d",
			len(snap.Blobs), len(snap.Rays), len(blobs), h.bg.Scene().RayCount())
	}
	for i, b := range blobs {
		if math.Abs(b.Pos.X-snap.Blobs[i].X) > 1e-9 || math.Abs(b.Pos.Y-snap.Blobs[i].Y) > 1e-9 {
			t.Errorf("blob %d at %v, snapshot had (%v, %v)", i, b.Pos, snap.Blobs[i].X, snap.Blobs[i].Y)
		}
	}
}

func TestBackground_RestoreRejectsBadSnapshot(t *testing.T) {
	snap := &telemetry.Snapshot{
		Version: telemetry.SnapshotVersion,
		Blobs:   []telemetry.BlobState{{X: 10, Y: 10, Radius: 0, Color: "#2f6b4f", Personality: "shy"}},
	}
	h := newHarness(t, nil, Options{Restore: snap})
	if err := h.bg.Init(context.Background(), 160, 120); err == nil {
		t.Fatal("expected init to fail")
	}
	if got := h.surfs[0].destroys.Load(); got != 1 {
		t.Errorf("expected the surface to be released, got %d destroys", got)
	}
}
