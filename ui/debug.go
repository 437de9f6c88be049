package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/scene"
)

// Overlay colors.
var (
	outlineColor  = rl.Color{R: 255, G: 255, B: 255, A: 160}
	targetColor   = rl.Color{R: 255, G: 210, B: 122, A: 200}
	velocityColor = rl.Color{R: 120, G: 220, B: 255, A: 220}
	linkColor     = rl.Color{R: 255, G: 240, B: 180, A: 140}
	rangeColor    = rl.Color{R: 255, G: 240, B: 180, A: 60}
	pointerColor  = rl.Color{R: 255, G: 120, B: 120, A: 180}
)

// velocityScale stretches per-frame velocity so it is visible.
const velocityScale = 12

func vec2(v r2.Vec) rl.Vector2 {
	return rl.Vector2{X: float32(v.X), Y: float32(v.Y)}
}

func toRL(c colorful.Color, a uint8) rl.Color {
	r, g, b := c.Clamped().RGB255()
	return rl.Color{R: r, G: g, B: b, A: a}
}

func drawOutline(pts []r2.Vec, c rl.Color) {
	n := len(pts)
	for i := 0; i < n; i++ {
		rl.DrawLineV(vec2(pts[i]), vec2(pts[(i+1)%n]), c)
	}
}

// DrawDebug draws every enabled overlay for s. Call inside BeginDrawing.
func DrawDebug(s *scene.Scene, overlays *OverlayRegistry) {
	if s == nil || overlays == nil {
		return
	}
	blobs := s.Blobs()
	rays := s.Rays()

	if overlays.IsEnabled(OverlayOutlines) {
		for _, b := range blobs {
			drawOutline(b.Outline, outlineColor)
		}
		for _, r := range rays {
			drawOutline(r.Outline, toRL(r.Color, 200))
		}
	}

	if overlays.IsEnabled(OverlayTargets) {
		for _, b := range blobs {
			rl.DrawLineV(vec2(b.Pos), vec2(b.Target), targetColor)
			rl.DrawCircleV(vec2(b.Target), 3, targetColor)
		}
	}

	if overlays.IsEnabled(OverlayVelocity) {
		for _, b := range blobs {
			end := r2.Add(b.Pos, r2.Scale(velocityScale, b.Vel))
			rl.DrawLineV(vec2(b.Pos), vec2(end), velocityColor)
		}
		for _, r := range rays {
			end := r2.Add(r.Pos, r2.Scale(velocityScale, r.Vel))
			rl.DrawLineV(vec2(r.Pos), vec2(end), velocityColor)
		}
	}

	if overlays.IsEnabled(OverlayRayLinks) {
		byEntity := make(map[ecs.Entity]r2.Vec, len(blobs))
		for _, b := range blobs {
			byEntity[b.Entity] = b.Pos
		}
		for _, r := range rays {
			if !r.HasTarget {
				continue
			}
			if p, ok := byEntity[r.Target]; ok {
				rl.DrawLineV(vec2(r.Pos), vec2(p), linkColor)
			}
		}
	}

	if overlays.IsEnabled(OverlayLightRange) {
		for _, r := range rays {
			rl.DrawCircleLinesV(vec2(r.Pos), float32(r.Range), rangeColor)
		}
	}

	if overlays.IsEnabled(OverlayPointer) {
		p := s.Pointer()
		if p.Active {
			factor := s.Config().Forces.PointerRadiusFactor
			rl.DrawCircleV(vec2(p.Vec()), 4, pointerColor)
			for _, b := range blobs {
				rl.DrawCircleLinesV(vec2(b.Pos), float32(b.Radius*factor), pointerColor)
			}
		}
	}
}
