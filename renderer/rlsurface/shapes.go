package rlsurface

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/renderer"
)

// OpenGL blend constants for the custom screen blend.
const (
	glOne              = 1
	glOneMinusSrcColor = 0x0301
	glFuncAdd          = 0x8006
)

// fanPoints builds a triangle fan for s: centre first, then the world-space outline,
// closed by repeating the first vertex. Returns dst[:0] for degenerate outlines.
func fanPoints(dst []rl.Vector2, scratch []r2.Vec, s renderer.Shape) ([]rl.Vector2, []r2.Vec) {
	dst = dst[:0]
	if len(s.Outline) < 3 {
		return dst, scratch
	}
	scratch = renderer.Transform(scratch, s)
	dst = append(dst, rl.Vector2{X: float32(s.Pos.X), Y: float32(s.Pos.Y)})
	for _, v := range scratch {
		dst = append(dst, rl.Vector2{X: float32(v.X), Y: float32(v.Y)})
	}
	dst = append(dst, dst[1])
	return dst, scratch
}

// toRLColor converts a tint and alpha to a raylib color.
func toRLColor(c colorful.Color, alpha float64) rl.Color {
	r, g, b := c.Clamped().RGB255()
	a := alpha
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return rl.Color{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}
}

// premultiplied converts a tint and alpha to a raylib color with the color channels
// scaled by alpha, matching the premultiplied layer textures.
func premultiplied(c colorful.Color, alpha float64) rl.Color {
	straight := toRLColor(c, alpha)
	a := uint16(straight.A)
	scale := func(v uint8) uint8 { return uint8((uint16(v)*a + 127) / 255) }
	return rl.Color{R: scale(straight.R), G: scale(straight.G), B: scale(straight.B), A: straight.A}
}

// opacityTint scales every channel so premultiplied and screen blends fade evenly.
func opacityTint(opacity float64) rl.Color {
	v := uint8(opacity*255 + 0.5)
	if opacity <= 0 {
		v = 0
	} else if opacity >= 1 {
		v = 255
	}
	return rl.Color{R: v, G: v, B: v, A: v}
}

// beginBlend selects the raylib blend state for mode. Sources are premultiplied.
func beginBlend(mode renderer.BlendMode) {
	switch mode {
	case renderer.BlendAdd:
		rl.SetBlendFactors(glOne, glOne, glFuncAdd)
		rl.BeginBlendMode(rl.BlendCustom)
	case renderer.BlendMultiply:
		rl.BeginBlendMode(rl.BlendMultiplied)
	case renderer.BlendScreen:
		rl.SetBlendFactors(glOne, glOneMinusSrcColor, glFuncAdd)
		rl.BeginBlendMode(rl.BlendCustom)
	default:
		rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	}
}
