// Package systems contains the per-tick math for blobs and rays.
// Everything here is pure: callers pass snapshots of other entities and get values back.
package systems

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/config"
)

// Viewport is the simulation area in pixels. Positions are kept inside [0,W]x[0,H].
type Viewport struct {
	W, H float64
}

// Contains reports whether p lies inside the viewport, edges included.
func (v Viewport) Contains(p r2.Vec) bool {
	return p.X >= 0 && p.X <= v.W && p.Y >= 0 && p.Y <= v.H
}

// Center returns the middle of the viewport.
func (v Viewport) Center() r2.Vec {
	return r2.Vec{X: v.W / 2, Y: v.H / 2}
}

// Pointer is the current pointer state in viewport pixels.
type Pointer struct {
	X, Y   float64
	Active bool
}

// Vec returns the pointer position.
func (p Pointer) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// BlobSample is a blob's state frozen at the start of a tick.
type BlobSample struct {
	Entity ecs.Entity
	Index  int
	Pos    r2.Vec
	Radius float64
}

// RaySample is a ray's state frozen after the ray pass of a tick.
type RaySample struct {
	Entity    ecs.Entity
	Pos       r2.Vec
	Color     colorful.Color
	Intensity float64
	Range     float64
}

// ForceParams holds the force rule constants.
type ForceParams struct {
	RepulsionFactor     float64
	RepulsionStrength   float64
	RepulsionMax        float64
	AttractionRadius    float64
	AttractionStrength  float64
	PointerRadiusFactor float64
	PointerStrength     float64
	WanderStrength      float64
	Restitution         float64
	MinDistance         float64
}

// ForceParamsFromConfig builds force params from the loaded config.
func ForceParamsFromConfig(cfg *config.Config) ForceParams {
	f := cfg.Forces
	return ForceParams{
		RepulsionFactor:     f.RepulsionFactor,
		RepulsionStrength:   f.RepulsionStrength,
		RepulsionMax:        f.RepulsionMax,
		AttractionRadius:    f.AttractionRadius,
		AttractionStrength:  f.AttractionStrength,
		PointerRadiusFactor: f.PointerRadiusFactor,
		PointerStrength:     f.PointerStrength,
		WanderStrength:      f.WanderStrength,
		Restitution:         f.Restitution,
		MinDistance:         f.MinDistance,
	}
}

// Repulsion pushes self away from other when their centres are closer than
// (r1+r2)*RepulsionFactor. Magnitude grows as the normalised distance shrinks and is
// capped at RepulsionMax. The result never points toward other.
func Repulsion(self, other BlobSample, fp ForceParams) r2.Vec {
	threshold := (self.Radius + other.Radius) * fp.RepulsionFactor
	if threshold <= 0 {
		return r2.Vec{}
	}

	d := r2.Sub(self.Pos, other.Pos)
	dist := r2.Norm(d)
	if dist >= threshold {
		return r2.Vec{}
	}

	nd := math.Max(dist, fp.MinDistance) / threshold
	if nd >= 1 {
		return r2.Vec{}
	}
	mag := math.Min(fp.RepulsionStrength*(1/nd-1), fp.RepulsionMax)

	// Coincident centres have no direction; split them by index instead
	dir := unitOr(d, fallbackDir(self.Index))
	return r2.Scale(mag, dir)
}

// RayAttraction pulls pos toward a ray within AttractionRadius, scaled by sensitivity.
func RayAttraction(pos r2.Vec, ray RaySample, sensitivity float64, fp ForceParams) r2.Vec {
	d := r2.Sub(ray.Pos, pos)
	dist := r2.Norm(d)
	if dist >= fp.AttractionRadius || dist < fp.MinDistance {
		return r2.Vec{}
	}
	mag := fp.AttractionStrength * (1 - dist/fp.AttractionRadius) * sensitivity
	return r2.Scale(mag/dist, d)
}

// PointerAvoidance pushes pos away from an active pointer within radius*PointerRadiusFactor.
// Falloff is (1 - (d/threshold)^2): largest at the pointer, exactly zero at the threshold.
func PointerAvoidance(pos r2.Vec, radius float64, ptr Pointer, fp ForceParams) r2.Vec {
	if !ptr.Active {
		return r2.Vec{}
	}
	threshold := radius * fp.PointerRadiusFactor
	if threshold <= 0 {
		return r2.Vec{}
	}

	d := r2.Sub(pos, ptr.Vec())
	dist := r2.Norm(d)
	if dist >= threshold {
		return r2.Vec{}
	}

	n := dist / threshold
	mag := fp.PointerStrength * (1 - n*n)
	return r2.Scale(mag, unitOr(d, r2.Vec{X: 0, Y: -1}))
}

// WanderPull is a constant-magnitude pull toward the wander target.
func WanderPull(pos, target r2.Vec, fp ForceParams) r2.Vec {
	d := r2.Sub(target, pos)
	if r2.Norm2(d) < 1e-12 {
		return r2.Vec{}
	}
	return r2.Scale(fp.WanderStrength, r2.Unit(d))
}

// BlobForce sums every rule acting on blobs[self]. Only the snapshots are read, so the
// result does not depend on the order blobs are processed in.
func BlobForce(self int, target r2.Vec, pers components.Personality, blobs []BlobSample, rays []RaySample, ptr Pointer, fp ForceParams) r2.Vec {
	me := blobs[self]
	var f r2.Vec

	for j := range blobs {
		if j == self {
			continue
		}
		f = r2.Add(f, Repulsion(me, blobs[j], fp))
	}
	return addSharedForces(f, me, target, pers, rays, ptr, fp)
}

// BlobForceNear is BlobForce with repulsion limited to the blob indices in near,
// which must be ascending and include every blob within repulsion reach. It returns
// the same value as BlobForce.
func BlobForceNear(self int, near []int, target r2.Vec, pers components.Personality, blobs []BlobSample, rays []RaySample, ptr Pointer, fp ForceParams) r2.Vec {
	me := blobs[self]
	var f r2.Vec

	for _, j := range near {
		if j == self {
			continue
		}
		f = r2.Add(f, Repulsion(me, blobs[j], fp))
	}
	return addSharedForces(f, me, target, pers, rays, ptr, fp)
}

func addSharedForces(f r2.Vec, me BlobSample, target r2.Vec, pers components.Personality, rays []RaySample, ptr Pointer, fp ForceParams) r2.Vec {
	for i := range rays {
		f = r2.Add(f, RayAttraction(me.Pos, rays[i], pers.Sensitivity, fp))
	}
	f = r2.Add(f, PointerAvoidance(me.Pos, me.Radius, ptr, fp))
	f = r2.Add(f, WanderPull(me.Pos, target, fp))
	return f
}

// Integrate applies force, then damping, then moves: v += f*dt; v *= damping^dt; p += v*dt.
func Integrate(pos, vel, force r2.Vec, damping, dt float64) (r2.Vec, r2.Vec) {
	vel = r2.Add(vel, r2.Scale(dt, force))
	vel = r2.Scale(dampFactor(damping, dt), vel)
	pos = r2.Add(pos, r2.Scale(dt, vel))
	return pos, vel
}

// Contain clamps pos into the viewport. Velocity pointing out of a crossed edge is
// inverted and scaled by restitution. Non-finite velocity components are zeroed.
func Contain(pos, vel r2.Vec, vp Viewport, restitution float64) (r2.Vec, r2.Vec) {
	w := math.Max(vp.W, 0)
	h := math.Max(vp.H, 0)

	if !finite(vel.X) {
		vel.X = 0
	}
	if !finite(vel.Y) {
		vel.Y = 0
	}

	if pos.X < 0 || math.IsNaN(pos.X) {
		pos.X = 0
		if vel.X < 0 {
			vel.X = -vel.X * restitution
		}
	} else if pos.X > w {
		pos.X = w
		if vel.X > 0 {
			vel.X = -vel.X * restitution
		}
	}

	if pos.Y < 0 || math.IsNaN(pos.Y) {
		pos.Y = 0
		if vel.Y < 0 {
			vel.Y = -vel.Y * restitution
		}
	} else if pos.Y > h {
		pos.Y = h
		if vel.Y > 0 {
			vel.Y = -vel.Y * restitution
		}
	}
	return pos, vel
}
