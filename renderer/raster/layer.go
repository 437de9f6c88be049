package raster

import (
	"image"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/renderer"
)

// layer holds drawables composited together before the layer blends onto the frame.
type layer struct {
	s         *Surface
	chain     renderer.FilterChain
	blend     renderer.BlendMode
	drawables []*drawable
	buf       []float32
	released  bool
}

// drawable is one polygon. Its shape is copied on Update.
type drawable struct {
	l        *layer
	chain    renderer.FilterChain
	blend    renderer.BlendMode
	shape    renderer.Shape
	outline  []r2.Vec
	visible  bool
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
	l.released = true
	for _, d := range l.drawables {
		d.released = true
	}
	l.drawables = nil
	layers := l.s.layers[:0]
	for _, other := range l.s.layers {
		if other != l {
			layers = append(layers, other)
		}
	}
	l.s.layers = layers
}

func (d *drawable) Update(s renderer.Shape) {
	if d.released {
		return
	}
	d.outline = append(d.outline[:0], s.Outline...)
	d.shape = s
	d.shape.Outline = d.outline
	d.visible = len(d.outline) >= 3 && s.Alpha > 0
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

// render redraws the layer buffer from its drawables and applies the layer chain.
func (l *layer) render() error {
	clear(l.buf)
	s := l.s
	bounds := image.Rect(0, 0, s.w, s.h)

	for _, d := range l.drawables {
		if !d.visible {
			continue
		}
		l.drawShape(d, bounds)
	}

	if len(l.chain) > 0 && s.w > 0 && s.h > 0 {
		img := toNRGBA(l.buf, s.w, bounds)
		img = applyChain(img, l.chain, s.blurScale)
		fromNRGBA(l.buf, s.w, bounds, img)
	}
	return nil
}

// drawShape rasterises one drawable into a padded tile, filters the tile and blends
// it into the layer buffer.
func (l *layer) drawShape(d *drawable, bounds image.Rectangle) {
	s := l.s
	s.scratch = renderer.Transform(s.scratch, d.shape)
	for i, v := range s.scratch {
		s.scratch[i] = s.toSurface(v)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, v := range s.scratch {
		minX, maxX = math.Min(minX, v.X), math.Max(maxX, v.X)
		minY, maxY = math.Min(minY, v.Y), math.Max(maxY, v.Y)
	}
	pad := int(math.Ceil(3*s.blurScale(d.chain.MaxBlur()))) + 1
	tile := image.Rect(
		int(math.Floor(minX))-pad, int(math.Floor(minY))-pad,
		int(math.Ceil(maxX))+pad, int(math.Ceil(maxY))+pad,
	)
	if !tile.Overlaps(bounds) || tile.Dx() <= 0 || tile.Dy() <= 0 {
		return
	}

	// Coverage mask in tile space
	mask := image.NewAlpha(image.Rect(0, 0, tile.Dx(), tile.Dy()))
	s.rast.Reset(tile.Dx(), tile.Dy())
	ox, oy := float64(tile.Min.X), float64(tile.Min.Y)
	for i, v := range s.scratch {
		x, y := float32(v.X-ox), float32(v.Y-oy)
		if i == 0 {
			s.rast.MoveTo(x, y)
		} else {
			s.rast.LineTo(x, y)
		}
	}
	s.rast.ClosePath()
	s.rast.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	tint := d.shape.Tint.Clamped()
	alpha := math.Max(0, math.Min(1, d.shape.Alpha))

	if len(d.chain) > 0 {
		img := image.NewNRGBA(mask.Bounds())
		r, g, b := to8f(tint.R), to8f(tint.G), to8f(tint.B)
		// Tint the whole tile so blurring only spreads alpha, never darkens the edge
		for i, m := range mask.Pix {
			o := i * 4
			img.Pix[o+0], img.Pix[o+1], img.Pix[o+2] = r, g, b
			img.Pix[o+3] = to8f(float64(m) / 255 * alpha)
		}
		img = applyChain(img, d.chain, s.blurScale)
		l.blendTile(img, tile, bounds, d.blend)
		return
	}

	// Unfiltered: blend coverage straight into the layer
	clip := tile.Intersect(bounds)
	cr, cg, cb := float32(tint.R), float32(tint.G), float32(tint.B)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			m := mask.AlphaAt(x-tile.Min.X, y-tile.Min.Y).A
			if m == 0 {
				continue
			}
			a := float32(m) / 255 * float32(alpha)
			i := (y*s.w + x) * 4
			blendPixel(l.buf[i:i+4], cr*a, cg*a, cb*a, a, d.blend)
		}
	}
}

// blendTile blends a straight-alpha tile placed at tile into the layer buffer.
func (l *layer) blendTile(img *image.NRGBA, tile, bounds image.Rectangle, mode renderer.BlendMode) {
	clip := tile.Intersect(bounds)
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			c := img.NRGBAAt(x-tile.Min.X, y-tile.Min.Y)
			if c.A == 0 {
				continue
			}
			a := float32(c.A) / 255
			i := (y*l.s.w + x) * 4
			blendPixel(l.buf[i:i+4],
				float32(c.R)/255*a, float32(c.G)/255*a, float32(c.B)/255*a, a, mode)
		}
	}
}

func blendPixel(dst []float32, r, g, b, a float32, mode renderer.BlendMode) {
	sa, da := float64(a), float64(dst[3])
	dst[0] = float32(mode.Blend(float64(r), sa, float64(dst[0]), da))
	dst[1] = float32(mode.Blend(float64(g), sa, float64(dst[1]), da))
	dst[2] = float32(mode.Blend(float64(b), sa, float64(dst[2]), da))
	dst[3] = float32(mode.Blend(sa, sa, da, da))
}
