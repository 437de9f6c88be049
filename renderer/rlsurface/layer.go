package rlsurface

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/renderer"
)

type layer struct {
	s         *Surface
	chain     renderer.FilterChain
	blend     renderer.BlendMode
	target    rl.RenderTexture2D
	drawables []*drawable
	released  bool
}

type drawable struct {
	l        *layer
	chain    renderer.FilterChain
	blend    renderer.BlendMode
	fan      []rl.Vector2
	pts      []r2.Vec
	color    rl.Color
	released bool
}

func (l *layer) NewDrawable(chain renderer.FilterChain, blend renderer.BlendMode) (renderer.Drawable, error) {
	if l.released || l.s.released {
		return nil, renderer.ErrSurfaceReleased
	}
	d := &drawable{l: l, chain: chain, blend: blend}
	l.drawables = append(l.drawables, d)
	return d, nil
}

func (l *layer) Release() {
	if l.released {
		return
	}
	l.unload()
	layers := l.s.layers[:0]
	for _, other := range l.s.layers {
		if other != l {
			layers = append(layers, other)
		}
	}
	l.s.layers = layers
}

func (l *layer) unload() {
	l.released = true
	for _, d := range l.drawables {
		d.released = true
	}
	l.drawables = nil
	if l.target.ID != 0 {
		rl.UnloadRenderTexture(l.target)
		l.target = rl.RenderTexture2D{}
	}
}

// render draws the drawables into the layer target and returns the texture holding
// the filtered layer.
func (l *layer) render() rl.Texture2D {
	s := l.s
	rl.BeginTextureMode(l.target)
	rl.ClearBackground(rl.Blank)
	rl.EndTextureMode()

	for _, d := range l.drawables {
		if len(d.fan) == 0 {
			continue
		}
		if len(d.chain) == 0 {
			rl.BeginTextureMode(l.target)
			beginBlend(d.blend)
			rl.DrawTriangleFan(d.fan, d.color)
			rl.EndBlendMode()
			rl.EndTextureMode()
			continue
		}

		// Filtered drawables render alone into scratch first
		rl.BeginTextureMode(s.scratch[0])
		rl.ClearBackground(rl.Blank)
		beginBlend(renderer.BlendNormal)
		rl.DrawTriangleFan(d.fan, d.color)
		rl.EndBlendMode()
		rl.EndTextureMode()
		out := s.applyChain(s.scratch[0].Texture, d.chain)

		rl.BeginTextureMode(l.target)
		beginBlend(d.blend)
		s.blit(out, rl.White)
		rl.EndBlendMode()
		rl.EndTextureMode()
	}

	if len(l.chain) == 0 {
		return l.target.Texture
	}
	return s.applyChain(l.target.Texture, l.chain)
}

func (d *drawable) Update(s renderer.Shape) {
	if d.released {
		return
	}
	d.fan, d.pts = fanPoints(d.fan, d.pts, s)
	d.color = premultiplied(s.Tint, s.Alpha)
}

func (d *drawable) Release() {
	if d.released {
		return
	}
	d.released = true
	live := d.l.drawables[:0]
	for _, other := range d.l.drawables {
		if other != d {
			live = append(live, other)
		}
	}
	d.l.drawables = live
}
