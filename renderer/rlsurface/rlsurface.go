// Package rlsurface is the raylib implementation of renderer.Surface. Every layer and
// filter pass renders into GPU render textures; blur and color matrix filters run as
// GLSL shaders. A Surface must be created after rl.InitWindow and used from the
// thread that owns the GL context.
package rlsurface

import (
	_ "embed"
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/oilblob/renderer"
)

//go:embed shaders/blur.fs
var blurSrc string

//go:embed shaders/matrix.fs
var matrixSrc string

// Surface composites layers onto the current raylib frame.
type Surface struct {
	w, h int
	bg   rl.Color

	blur          rl.Shader
	blurResLoc    int32
	blurDirLoc    int32
	blurRadiusLoc int32
	matrix        rl.Shader
	matrixLoc     int32
	matrixBuf     [20]float32

	// Ping-pong targets for filter passes
	scratch [2]rl.RenderTexture2D

	layers   []*layer
	released bool
}

// New loads the shaders and allocates the scratch targets.
func New(w, h int, bg colorful.Color) (*Surface, error) {
	if !rl.IsWindowReady() {
		return nil, fmt.Errorf("raylib window not initialised")
	}
	s := &Surface{w: w, h: h, bg: toRLColor(bg, 1)}

	s.blur = rl.LoadShaderFromMemory("", blurSrc)
	if !rl.IsShaderValid(s.blur) {
		return nil, fmt.Errorf("compiling blur shader")
	}
	s.matrix = rl.LoadShaderFromMemory("", matrixSrc)
	if !rl.IsShaderValid(s.matrix) {
		rl.UnloadShader(s.blur)
		return nil, fmt.Errorf("compiling color matrix shader")
	}
	s.blurResLoc = rl.GetShaderLocation(s.blur, "resolution")
	s.blurDirLoc = rl.GetShaderLocation(s.blur, "direction")
	s.blurRadiusLoc = rl.GetShaderLocation(s.blur, "radius")
	s.matrixLoc = rl.GetShaderLocation(s.matrix, "m")

	s.loadScratch()
	return s, nil
}

func (s *Surface) loadScratch() {
	for i := range s.scratch {
		s.scratch[i] = rl.LoadRenderTexture(int32(s.w), int32(s.h))
	}
}

func (s *Surface) unloadScratch() {
	for i := range s.scratch {
		if s.scratch[i].ID != 0 {
			rl.UnloadRenderTexture(s.scratch[i])
			s.scratch[i] = rl.RenderTexture2D{}
		}
	}
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (int, int) { return s.w, s.h }

// Resize recreates every render texture at the new size.
func (s *Surface) Resize(w, h int) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	if w == s.w && h == s.h {
		return nil
	}
	s.w, s.h = w, h
	s.unloadScratch()
	s.loadScratch()
	for _, l := range s.layers {
		rl.UnloadRenderTexture(l.target)
		l.target = rl.LoadRenderTexture(int32(w), int32(h))
	}
	return nil
}

// NewLayer appends a layer on top.
func (s *Surface) NewLayer(chain renderer.FilterChain, blend renderer.BlendMode) (renderer.Layer, error) {
	if s.released {
		return nil, renderer.ErrSurfaceReleased
	}
	l := &layer{
		s:      s,
		chain:  chain,
		blend:  blend,
		target: rl.LoadRenderTexture(int32(s.w), int32(s.h)),
	}
	s.layers = append(s.layers, l)
	return l, nil
}

// Render draws every layer onto the current frame. Call it between rl.BeginDrawing
// and rl.EndDrawing; the host presents.
func (s *Surface) Render(opacity float64) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	rl.DisableBackfaceCulling()
	defer rl.EnableBackfaceCulling()

	rl.ClearBackground(s.bg)
	tint := opacityTint(opacity)
	composite(len(s.layers),
		func(i int) rl.Texture2D { return s.layers[i].render() },
		func(i int, out rl.Texture2D) {
			beginBlend(s.layers[i].blend)
			s.blit(out, tint)
			rl.EndBlendMode()
		})
	return nil
}

// composite renders and presents each layer before the next one renders. Filtered
// layer results live in the shared scratch targets, so a later layer would overwrite
// an earlier one that has not been presented yet.
func composite(n int, render func(i int) rl.Texture2D, present func(i int, out rl.Texture2D)) {
	for i := 0; i < n; i++ {
		present(i, render(i))
	}
}

// Destroy unloads shaders and render textures. Safe to call more than once.
func (s *Surface) Destroy() error {
	if s.released {
		return nil
	}
	s.released = true
	for _, l := range s.layers {
		l.unload()
	}
	s.layers = nil
	s.unloadScratch()
	rl.UnloadShader(s.blur)
	rl.UnloadShader(s.matrix)
	return nil
}

// blit draws a render texture at the origin, flipping the GL Y axis.
func (s *Surface) blit(tex rl.Texture2D, tint rl.Color) {
	src := rl.Rectangle{X: 0, Y: 0, Width: float32(tex.Width), Height: -float32(tex.Height)}
	rl.DrawTextureRec(tex, src, rl.Vector2{}, tint)
}

// pass renders src into dst through shader, replacing dst.
func (s *Surface) pass(src rl.Texture2D, dst rl.RenderTexture2D, shader rl.Shader) {
	rl.BeginTextureMode(dst)
	rl.ClearBackground(rl.Blank)
	rl.BeginShaderMode(shader)
	rl.BeginBlendMode(rl.BlendAlphaPremultiply)
	s.blit(src, rl.White)
	rl.EndBlendMode()
	rl.EndShaderMode()
	rl.EndTextureMode()
}

// applyChain runs chain starting from src and returns the texture holding the result.
// Intermediate results alternate between the scratch targets, never touching src.
func (s *Surface) applyChain(src rl.Texture2D, chain renderer.FilterChain) rl.Texture2D {
	cur := src
	next := 0
	if src.ID == s.scratch[0].Texture.ID {
		next = 1
	}
	step := func(shader rl.Shader) {
		s.pass(cur, s.scratch[next], shader)
		cur = s.scratch[next].Texture
		next = 1 - next
	}

	for _, f := range chain {
		switch f := f.(type) {
		case renderer.Blur:
			if f.Radius <= 0 {
				continue
			}
			res := []float32{float32(s.w), float32(s.h)}
			rl.SetShaderValue(s.blur, s.blurResLoc, res, rl.ShaderUniformVec2)
			rl.SetShaderValue(s.blur, s.blurRadiusLoc, []float32{float32(f.Radius)}, rl.ShaderUniformFloat)
			rl.SetShaderValue(s.blur, s.blurDirLoc, []float32{1, 0}, rl.ShaderUniformVec2)
			step(s.blur)
			rl.SetShaderValue(s.blur, s.blurDirLoc, []float32{0, 1}, rl.ShaderUniformVec2)
			step(s.blur)
		case renderer.ColorMatrix:
			for i, v := range f.M {
				s.matrixBuf[i] = float32(v)
			}
			rl.SetShaderValueV(s.matrix, s.matrixLoc, s.matrixBuf[:], rl.ShaderUniformFloat, int32(len(s.matrixBuf)))
			step(s.matrix)
		}
	}
	return cur
}
