package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/scene"
	"github.com/pthm-cable/oilblob/ui"
)

// Draw advances the background and renders the frame with panels on top.
func (g *Game) Draw() {
	rl.BeginDrawing()
	defer rl.EndDrawing()

	// The surface renders into the current frame, so frames are pumped here.
	g.stepFrames()

	sc := g.bg.Scene()
	if sc == nil {
		rl.ClearBackground(rl.Black)
		return
	}

	if g.state.Debug {
		if g.overlays.IsEnabled(ui.OverlayHideEffects) {
			r, gg, b := g.cfg.Derived.Background.Clamped().RGB255()
			rl.ClearBackground(rl.Color{R: r, G: gg, B: b, A: 255})
			g.overlays.SetEnabled(ui.OverlayOutlines, true)
		}
		ui.DrawDebug(sc, g.overlays)
	}

	g.drawUI(sc)
}

// stepFrames runs Speed frames, or one zero-length frame while paused so the
// composite is still presented.
func (g *Game) stepFrames() {
	if g.state.Paused {
		g.sched.Step(0)
		return
	}
	dt := float64(rl.GetFrameTime())
	for i := 0; i < g.state.Speed; i++ {
		g.sched.StepSeconds(dt)
	}
}

// drawUI renders the HUD and panels.
func (g *Game) drawUI(sc *scene.Scene) {
	lit := 0
	sc.EachBlob(func(b scene.BlobView) {
		if b.Lit > 0 {
			lit++
		}
	})

	fps := rl.GetFPS()
	g.hud.Draw(ui.HUDData{
		Title:   g.cfg.Screen.Title,
		Blobs:   sc.BlobCount(),
		Rays:    sc.RayCount(),
		Lit:     lit,
		Tick:    sc.Ticks(),
		Speed:   g.state.Speed,
		FPS:     fps,
		Paused:  g.state.Paused,
		Opacity: g.bg.Opacity(),
	})

	perfStats := g.bg.Perf().Stats()
	g.state = g.status.Draw(g.state, ui.StatusData{
		FPS:   fps,
		Tick:  sc.Ticks(),
		Blobs: sc.BlobCount(),
		Rays:  sc.RayCount(),
		Perf:  perfStats,
	})

	panelY := g.controls.Draw(g.overlays)
	if g.showPerf {
		if g.controls.IsVisible() {
			panelY += panelMargin
		}
		g.perfPanel.SetPosition(panelMargin, panelY)
		g.perfPanel.Draw(perfStats)
	}

	g.inspector.Draw(sc)

	if g.showGraph {
		g.graph.HandleInput()
		g.graph.Draw()
	}

	g.hud.DrawControls(g.screenHeight, controlsLegend)
}
