// Package renderer maps scene entities onto drawables on a host surface.
//
// A Surface owns layers; a Layer owns drawables and composites them through its own
// filter chain and blend mode. Concrete surfaces live in subpackages: raster (CPU),
// rlsurface (raylib GPU) and termsurface (tcell).
package renderer

import (
	"errors"
	"fmt"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrSurfaceReleased is returned when a surface, layer or drawable is used after Destroy.
var ErrSurfaceReleased = errors.New("surface released")

// BlendMode selects how a drawable or layer is composited onto what is below it.
type BlendMode uint8

const (
	BlendNormal   BlendMode = iota // source-over
	BlendAdd                       // additive
	BlendScreen                    // 1-(1-src)*(1-dst)
	BlendMultiply                  // src*dst
)

// String returns the config name of the blend mode.
func (b BlendMode) String() string {
	switch b {
	case BlendNormal:
		return "normal"
	case BlendAdd:
		return "add"
	case BlendScreen:
		return "screen"
	case BlendMultiply:
		return "multiply"
	default:
		return fmt.Sprintf("blend(%d)", uint8(b))
	}
}

// ParseBlendMode maps a config name to a blend mode.
func ParseBlendMode(name string) (BlendMode, error) {
	switch name {
	case "normal", "":
		return BlendNormal, nil
	case "add":
		return BlendAdd, nil
	case "screen":
		return BlendScreen, nil
	case "multiply":
		return BlendMultiply, nil
	}
	return BlendNormal, fmt.Errorf("unknown blend mode %q", name)
}

// Blend composites one premultiplied channel: sc and dc are the source and
// destination values, sa and da their alphas. The alpha channel uses the same
// formula with sc=sa and dc=da.
func (b BlendMode) Blend(sc, sa, dc, da float64) float64 {
	switch b {
	case BlendAdd:
		return math.Min(sc+dc, 1)
	case BlendScreen:
		return sc + dc - sc*dc
	case BlendMultiply:
		return sc*dc + sc*(1-da) + dc*(1-sa)
	default:
		return sc + dc*(1-sa)
	}
}

// Filter is a post-process step applied to a rendered drawable or layer.
type Filter interface {
	filter()
}

// Blur is a gaussian blur with the given radius (standard deviation) in pixels.
type Blur struct {
	Radius float64
}

// ColorMatrix is a 4x5 row-major color transform applied to straight (non
// premultiplied) RGBA. Offsets sit in elements 4, 9, 14 and 19.
type ColorMatrix struct {
	M [20]float64
}

func (Blur) filter()        {}
func (ColorMatrix) filter() {}

// FilterChain is applied in order.
type FilterChain []Filter

// Apply transforms one straight-alpha color. Results are clamped to [0, 1].
func (m ColorMatrix) Apply(r, g, b, a float64) (float64, float64, float64, float64) {
	x := &m.M
	nr := x[0]*r + x[1]*g + x[2]*b + x[3]*a + x[4]
	ng := x[5]*r + x[6]*g + x[7]*b + x[8]*a + x[9]
	nb := x[10]*r + x[11]*g + x[12]*b + x[13]*a + x[14]
	na := x[15]*r + x[16]*g + x[17]*b + x[18]*a + x[19]
	return clamp01(nr), clamp01(ng), clamp01(nb), clamp01(na)
}

// IdentityMatrix leaves colors unchanged.
func IdentityMatrix() ColorMatrix {
	return ColorMatrix{M: [20]float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}}
}

// SaturateMatrix scales saturation. s=1 is unchanged, 0 is grayscale.
func SaturateMatrix(s float64) ColorMatrix {
	sr := (1 - s) * 0.299
	sg := (1 - s) * 0.587
	sb := (1 - s) * 0.114
	return ColorMatrix{M: [20]float64{
		sr + s, sg, sb, 0, 0,
		sr, sg + s, sb, 0, 0,
		sr, sg, sb + s, 0, 0,
		0, 0, 0, 1, 0,
	}}
}

// AlphaThresholdMatrix sharpens blurred alpha into a hard edge: a' = a*mul + offset.
// Overlapping blurred blobs fuse into one gooey shape.
func AlphaThresholdMatrix(mul, offset float64) ColorMatrix {
	return ColorMatrix{M: [20]float64{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, mul, offset,
	}}
}

// MatrixParams are the tunables for ParseMatrixPreset.
type MatrixParams struct {
	Saturation    float64
	GooMultiplier float64
	GooOffset     float64
}

// ParseMatrixPreset builds a named color matrix.
func ParseMatrixPreset(name string, p MatrixParams) (ColorMatrix, error) {
	switch name {
	case "identity", "":
		return IdentityMatrix(), nil
	case "saturate":
		return SaturateMatrix(p.Saturation), nil
	case "goo":
		return AlphaThresholdMatrix(p.GooMultiplier, p.GooOffset), nil
	}
	return IdentityMatrix(), fmt.Errorf("unknown color matrix preset %q", name)
}

// Shape is everything a drawable needs for one frame. Outline is in local space and
// is rotated by Angle then translated to Pos. Implementations must copy Outline if
// they keep it past Update.
type Shape struct {
	Pos     r2.Vec
	Angle   float64
	Outline []r2.Vec
	Tint    colorful.Color
	Alpha   float64
}

// Surface is a host render target.
type Surface interface {
	// Size returns the surface size in pixels.
	Size() (w, h int)
	// Resize changes the surface size. Layers and drawables survive.
	Resize(w, h int) error
	// NewLayer appends a layer above the existing ones.
	NewLayer(chain FilterChain, blend BlendMode) (Layer, error)
	// Render composites every layer over the background and presents.
	// Opacity scales the whole composite, for fades.
	Render(opacity float64) error
	// Destroy releases every resource. Safe to call more than once.
	Destroy() error
}

// Layer groups drawables that share a filter chain and blend mode.
type Layer interface {
	NewDrawable(chain FilterChain, blend BlendMode) (Drawable, error)
	Release()
}

// Drawable is one filled polygon.
type Drawable interface {
	Update(s Shape)
	Release()
}

// Transform returns the world-space outline of s, appended to dst[:0].
func Transform(dst []r2.Vec, s Shape) []r2.Vec {
	dst = dst[:0]
	sin, cos := math.Sincos(s.Angle)
	for _, v := range s.Outline {
		dst = append(dst, r2.Vec{
			X: s.Pos.X + v.X*cos - v.Y*sin,
			Y: s.Pos.Y + v.X*sin + v.Y*cos,
		})
	}
	return dst
}

// MaxBlur returns the total blur radius of a chain, for padding.
func (c FilterChain) MaxBlur() float64 {
	total := 0.0
	for _, f := range c {
		if b, ok := f.(Blur); ok {
			total += b.Radius
		}
	}
	return total
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
