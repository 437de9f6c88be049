package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/config"
)

// Irrational per-vertex phase multipliers. Different vertices must not share a phase or
// the outline reads as a rotating shape instead of a pulsing one.
const (
	goldenRatio = 1.618033988749895
	sqrt3       = 1.7320508075688772
	indexDrift  = 0.02
)

// ShapeParams holds the fixed outline constants.
type ShapeParams struct {
	BlobVertices int
	RayVertices  int
	Band         float64 // max relative deviation from the base radius
	RaySpread    float64 // total angular spread in radians
	RayWave      float64 // relative width modulation along the ray
}

// ShapeParamsFromConfig builds shape params from the loaded config.
func ShapeParamsFromConfig(cfg *config.Config) ShapeParams {
	return ShapeParams{
		BlobVertices: cfg.Shape.BlobVertices,
		RayVertices:  cfg.Shape.RayVertices,
		Band:         cfg.Shape.Band,
		RaySpread:    cfg.Derived.RaySpread,
		RayWave:      cfg.Shape.RayWaveAmplitude,
	}
}

// RadiusVariation returns the radius multiplier for vertex i, always within 1±band.
func RadiusVariation(i int, phase, band float64) float64 {
	fi := float64(i)
	w1 := math.Sin(phase+fi*goldenRatio*0.5+fi*indexDrift) * band * 0.6
	w2 := math.Sin(phase*1.37+fi*math.Sqrt2*0.35+fi*indexDrift) * band * 0.4
	w3 := math.Sin(phase*0.73+fi*sqrt3*0.25+fi*indexDrift) * band * 0.3
	return clampFloat(1+w1+w2+w3, 1-band, 1+band)
}

// BlobOutline appends a closed blob polygon centred on the origin to dst[:0].
// Returns an empty slice for size <= 0.
func BlobOutline(dst []r2.Vec, size, phase float64, p ShapeParams) []r2.Vec {
	dst = dst[:0]
	if size <= 0 || p.BlobVertices <= 0 {
		return dst
	}

	n := p.BlobVertices
	step := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		a := float64(i) * step
		r := size * RadiusVariation(i, phase, p.Band)
		dst = append(dst, r2.Vec{X: math.Cos(a) * r, Y: math.Sin(a) * r})
	}
	return dst
}

// RayOutline appends a tapered ray polygon to dst[:0]. The ray lies along +X, centred
// on the origin, near-zero width at both tips and widest in the middle. The two edges
// use different modulation so the beam is not mirror-symmetric.
func RayOutline(dst []r2.Vec, size, phase float64, p ShapeParams) []r2.Vec {
	dst = dst[:0]
	if size <= 0 || p.RayVertices < 4 {
		return dst
	}

	top := (p.RayVertices + 1) / 2
	bottom := p.RayVertices - top
	half := size / 2
	maxHalfWidth := half * math.Tan(p.RaySpread/2)

	// Upper edge, tail to tip
	for i := 0; i < top; i++ {
		t := float64(i) / float64(top-1)
		w := rayWidth(t, phase, 0, p.RayWave)
		dst = append(dst, r2.Vec{X: -half + t*size, Y: -maxHalfWidth * w})
	}
	// Lower edge, tip back to tail
	for j := 0; j < bottom; j++ {
		t := 1 - float64(j)/float64(bottom-1)
		w := rayWidth(t, phase*1.3, 0.9, p.RayWave) * 0.85
		dst = append(dst, r2.Vec{X: -half + t*size, Y: maxHalfWidth * w})
	}
	return dst
}

// rayWidth is the relative half-width at position t in [0, 1] along the ray.
func rayWidth(t, phase, offset, wave float64) float64 {
	taper := 0.03 + 0.97*math.Sin(math.Pi*t)
	mod := 1 + wave*math.Sin(phase+offset+t*math.Pi*3)
	return taper * mod
}
