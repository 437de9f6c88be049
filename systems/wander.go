package systems

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// ShouldRetarget rolls the per-frame retarget probability rate over dt frames.
func ShouldRetarget(rng *rand.Rand, rate, dt float64) bool {
	if rate <= 0 {
		return false
	}
	p := 1 - math.Pow(1-math.Min(rate, 1), dt)
	return rng.Float64() < p
}

// PickTarget returns a random point inside the viewport, at least margin from each edge
// when the viewport is large enough.
func PickTarget(rng *rand.Rand, vp Viewport, margin float64) r2.Vec {
	return r2.Vec{
		X: pickAxis(rng, vp.W, margin),
		Y: pickAxis(rng, vp.H, margin),
	}
}

func pickAxis(rng *rand.Rand, size, margin float64) float64 {
	if size <= 0 {
		return 0
	}
	if 2*margin >= size {
		return size / 2
	}
	return margin + rng.Float64()*(size-2*margin)
}

// Arrived reports whether pos is within radius of target.
func Arrived(pos, target r2.Vec, radius float64) bool {
	return r2.Norm2(r2.Sub(target, pos)) <= radius*radius
}
