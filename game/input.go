package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/engine"
)

// handleInput processes keyboard and pointer input.
func (g *Game) handleInput() {
	// Window resize and visibility propagation
	g.handleResize()
	g.handleVisibility()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeySpace) {
		g.state.Paused = !g.state.Paused
	}

	// Speed control with < > keys (comma and period)
	if rl.IsKeyPressed(rl.KeyComma) {
		g.state.StepSpeed(-1)
	}
	if rl.IsKeyPressed(rl.KeyPeriod) {
		g.state.StepSpeed(1)
	}

	if rl.IsKeyPressed(rl.KeyD) {
		g.state.Debug = !g.state.Debug
	}
	if rl.IsKeyPressed(rl.KeyF1) {
		g.controls.Toggle()
	}
	if rl.IsKeyPressed(rl.KeyF2) {
		g.showPerf = !g.showPerf
	}
	if rl.IsKeyPressed(rl.KeyG) {
		g.showGraph = !g.showGraph
	}
	if rl.IsKeyPressed(rl.KeyS) {
		g.saveSnapshot()
	}

	// Overlay keys (only when debug mode is active)
	for key := rl.GetKeyPressed(); key != 0; key = rl.GetKeyPressed() {
		if !g.state.Debug {
			continue
		}
		if id, on, ok := g.overlays.HandleKeyPress(key); ok {
			g.log.Debug("overlay toggled", "overlay", string(id), "enabled", on)
		}
	}

	g.handlePointer()
	g.handleSelection()
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := int32(rl.GetScreenWidth())
	h := int32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h

	g.bg.Resize(int(w), int(h))
	g.status.SetPosition(w-statusPanelWidth-panelMargin, panelMargin)
	g.inspector.SetPosition(w-inspectorPanelWidth-panelMargin, 260)
	g.graph.Resize(w, h)
}

// handleVisibility pauses the background while the window is minimized.
func (g *Game) handleVisibility() {
	visible := !rl.IsWindowMinimized()
	if visible != g.visible {
		g.visible = visible
		g.bg.SetVisible(visible)
	}
}

// handlePointer forwards touches, or the mouse when nothing touches the screen.
func (g *Game) handlePointer() {
	if n := rl.GetTouchPointCount(); n > 0 {
		points := make([]engine.Point, n)
		for i := range points {
			p := rl.GetTouchPosition(int32(i))
			points[i] = engine.Point{X: float64(p.X), Y: float64(p.Y)}
		}
		g.bg.Touch(points)
		g.touching = true
		return
	}
	if g.touching {
		g.bg.Touch(nil)
		g.touching = false
	}

	if !rl.IsCursorOnScreen() {
		if g.pointerInside {
			g.bg.PointerLeave()
			g.pointerInside = false
		}
		return
	}
	p := rl.GetMousePosition()
	if g.pointerInside && p == g.lastMouse {
		return
	}
	g.bg.PointerMove(float64(p.X), float64(p.Y))
	g.pointerInside = true
	g.lastMouse = p
}

// handleSelection picks a blob on left click and clears on right click.
func (g *Game) handleSelection() {
	if rl.IsMouseButtonPressed(rl.MouseRightButton) {
		g.inspector.Clear()
		return
	}
	if !rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		return
	}
	x, y := rl.GetMouseX(), rl.GetMouseY()
	if g.status.Contains(x, y) || (g.controls.IsVisible() && x < panelMargin+controlsPanelWidth) {
		return
	}
	sc := g.bg.Scene()
	if sc == nil {
		return
	}
	if g.inspector.SelectAt(sc, float64(x), float64(y)) {
		b, _ := g.inspector.Selected(sc)
		g.log.Debug("blob selected", "id", b.ID, "personality", b.Personality.String())
	}
}
