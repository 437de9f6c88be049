// Package raster is a CPU implementation of renderer.Surface. Polygons are filled with
// x/image/vector, filters run through imaging, and layers are blended per pixel in
// premultiplied space. It needs no window, so it backs headless frame dumps, the
// terminal host and rendering tests.
package raster

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/renderer"
)

// Surface rasterises layers into an RGBA frame.
type Surface struct {
	w, h   int
	sx, sy float64 // scene pixels to surface pixels
	bg     colorful.Color

	layers []*layer
	frame  []float32 // premultiplied RGBA, w*h*4
	out    *image.RGBA

	rast    *vector.Rasterizer
	scratch []r2.Vec

	frames   uint64
	released bool
}

// Option configures a Surface.
type Option func(*Surface)

// WithScale maps scene coordinates onto the surface, for surfaces smaller than the scene.
func WithScale(sx, sy float64) Option {
	return func(s *Surface) {
		if sx > 0 && sy > 0 {
			s.sx, s.sy = sx, sy
		}
	}
}

// New creates a surface of w x h pixels over an opaque background.
func New(w, h int, bg colorful.Color, opts ...Option) *Surface {
	s := &Surface{sx: 1, sy: 1, bg: bg, rast: vector.NewRasterizer(1, 1)}
	for _, opt := range opts {
		opt(s)
	}
	s.alloc(w, h)
	return s
}

func (s *Surface) alloc(w, h int) {
	s.w, s.h = max(w, 0), max(h, 0)
	s.frame = make([]float32, s.w*s.h*4)
	s.out = image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	for _, l := range s.layers {
		l.buf = make([]float32, s.w*s.h*4)
	}
}

// Size returns the surface size in pixels.
func (s *Surface) Size() (int, int) { return s.w, s.h }

// Scale returns the scene-to-surface scale factors.
func (s *Surface) Scale() (float64, float64) { return s.sx, s.sy }

// Frames returns how many frames have been rendered.
func (s *Surface) Frames() uint64 { return s.frames }

// Resize reallocates the frame buffers. Layers and drawables are kept.
func (s *Surface) Resize(w, h int) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	s.alloc(w, h)
	return nil
}

// SetScale changes the scene-to-surface mapping.
func (s *Surface) SetScale(sx, sy float64) {
	WithScale(sx, sy)(s)
}

// NewLayer appends a layer on top.
func (s *Surface) NewLayer(chain renderer.FilterChain, blend renderer.BlendMode) (renderer.Layer, error) {
	if s.released {
		return nil, renderer.ErrSurfaceReleased
	}
	l := &layer{
		s:     s,
		chain: chain,
		blend: blend,
		buf:   make([]float32, s.w*s.h*4),
	}
	s.layers = append(s.layers, l)
	return l, nil
}

// Render draws every layer over the background. The composite is faded toward the
// background by 1-opacity.
func (s *Surface) Render(opacity float64) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	opacity = math.Max(0, math.Min(1, opacity))

	bg := [4]float32{float32(s.bg.R), float32(s.bg.G), float32(s.bg.B), 1}
	for i := 0; i < len(s.frame); i += 4 {
		copy(s.frame[i:i+4], bg[:])
	}

	for _, l := range s.layers {
		if l.released {
			continue
		}
		if err := l.render(); err != nil {
			return fmt.Errorf("rendering layer: %w", err)
		}
		blendInto(s.frame, l.buf, l.blend, float32(opacity))
	}

	for i := 0; i < len(s.frame); i += 4 {
		s.out.Pix[i+0] = to8(s.frame[i+0])
		s.out.Pix[i+1] = to8(s.frame[i+1])
		s.out.Pix[i+2] = to8(s.frame[i+2])
		s.out.Pix[i+3] = 0xff
	}
	s.frames++
	return nil
}

// Image returns the last rendered frame. The image is reused by the next Render.
func (s *Surface) Image() *image.RGBA { return s.out }

// At returns the rendered color at surface pixel (x, y).
func (s *Surface) At(x, y int) colorful.Color {
	if x < 0 || y < 0 || x >= s.w || y >= s.h {
		return s.bg
	}
	c := s.out.RGBAAt(x, y)
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// WritePNG encodes the last rendered frame.
func (s *Surface) WritePNG(w io.Writer) error {
	if err := imaging.Encode(w, s.out, imaging.PNG); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// Destroy drops every buffer. Safe to call more than once.
func (s *Surface) Destroy() error {
	if s.released {
		return nil
	}
	s.released = true
	for _, l := range s.layers {
		l.released = true
		l.buf = nil
	}
	s.layers = nil
	s.frame = nil
	return nil
}

// toSurface maps a scene point to surface pixels.
func (s *Surface) toSurface(v r2.Vec) r2.Vec {
	return r2.Vec{X: v.X * s.sx, Y: v.Y * s.sy}
}

// blurScale converts a scene blur radius to surface pixels.
func (s *Surface) blurScale(radius float64) float64 {
	return radius * (s.sx + s.sy) / 2
}

// blendInto composites premultiplied src over dst with mode, scaling src by opacity.
func blendInto(dst, src []float32, mode renderer.BlendMode, opacity float32) {
	for i := 0; i+3 < len(dst) && i+3 < len(src); i += 4 {
		sa := src[i+3] * opacity
		if sa <= 0 {
			continue
		}
		a, da := float64(sa), float64(dst[i+3])
		dst[i+0] = float32(mode.Blend(float64(src[i+0]*opacity), a, float64(dst[i+0]), da))
		dst[i+1] = float32(mode.Blend(float64(src[i+1]*opacity), a, float64(dst[i+1]), da))
		dst[i+2] = float32(mode.Blend(float64(src[i+2]*opacity), a, float64(dst[i+2]), da))
		dst[i+3] = float32(mode.Blend(a, a, da, da))
	}
}

// toNRGBA converts a premultiplied float buffer region to a straight-alpha image.
func toNRGBA(buf []float32, stride int, r image.Rectangle) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			i := (y*stride + x) * 4
			a := buf[i+3]
			if a <= 0 {
				continue
			}
			o := img.PixOffset(x-r.Min.X, y-r.Min.Y)
			img.Pix[o+0] = to8(buf[i+0] / a)
			img.Pix[o+1] = to8(buf[i+1] / a)
			img.Pix[o+2] = to8(buf[i+2] / a)
			img.Pix[o+3] = to8(a)
		}
	}
	return img
}

// fromNRGBA writes a straight-alpha image back into a premultiplied buffer region.
func fromNRGBA(buf []float32, stride int, r image.Rectangle, img *image.NRGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.NRGBAAt(x-r.Min.X, y-r.Min.Y)
			a := float32(c.A) / 255
			i := (y*stride + x) * 4
			buf[i+0] = float32(c.R) / 255 * a
			buf[i+1] = float32(c.G) / 255 * a
			buf[i+2] = float32(c.B) / 255 * a
			buf[i+3] = a
		}
	}
}

// applyChain runs the filters over img in order.
func applyChain(img *image.NRGBA, chain renderer.FilterChain, blurScale func(float64) float64) *image.NRGBA {
	for _, f := range chain {
		switch f := f.(type) {
		case renderer.Blur:
			if sigma := blurScale(f.Radius); sigma > 0 {
				img = imaging.Blur(img, sigma)
			}
		case renderer.ColorMatrix:
			img = imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
				r, g, b, a := f.Apply(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255, float64(c.A)/255)
				return color.NRGBA{R: to8f(r), G: to8f(g), B: to8f(b), A: to8f(a)}
			})
		}
	}
	return img
}

func to8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*255 + 0.5)
}

func to8f(v float64) uint8 { return to8(float32(v)) }
