package systems

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/config"
)

// arriveDistance is where a ray starts slowing down on approach.
const arriveDistance = 60.0

// RayParams holds ray motion constants.
type RayParams struct {
	Damping          float64
	MaxSpeed         float64
	Steer            float64 // fraction of the desired velocity change applied per frame
	RetargetInterval float64 // frames between nearest-blob lookups
	MorphSpeed       float64
}

// RayParamsFromConfig builds ray params from the loaded config.
func RayParamsFromConfig(cfg *config.Config) RayParams {
	r := cfg.Rays
	return RayParams{
		Damping:          r.Damping,
		MaxSpeed:         r.MaxSpeed,
		Steer:            r.Steer,
		RetargetInterval: r.RetargetInterval,
		MorphSpeed:       r.MorphSpeed,
	}
}

// NearestBlob returns the index of the blob closest to pos.
func NearestBlob(pos r2.Vec, blobs []BlobSample) (int, bool) {
	best := -1
	bestDist := math.MaxFloat64
	for i := range blobs {
		d := r2.Norm2(r2.Sub(blobs[i].Pos, pos))
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best, best >= 0
}

// SteerRay eases the ray's velocity toward its target, damps, caps speed and moves.
// Pass hasTarget=false to let the ray coast.
func SteerRay(pos, vel, target r2.Vec, hasTarget bool, rp RayParams, dt float64) (r2.Vec, r2.Vec) {
	if hasTarget {
		d := r2.Sub(target, pos)
		dist := r2.Norm(d)
		var desired r2.Vec
		if dist > 1e-9 {
			speed := rp.MaxSpeed
			if dist < arriveDistance {
				speed *= dist / arriveDistance
			}
			desired = r2.Scale(speed/dist, d)
		}
		k := math.Min(rp.Steer*dt, 1)
		vel = r2.Add(vel, r2.Scale(k, r2.Sub(desired, vel)))
	}

	vel = r2.Scale(dampFactor(rp.Damping, dt), vel)
	vel = limit(vel, rp.MaxSpeed)
	pos = r2.Add(pos, r2.Scale(dt, vel))
	return pos, vel
}

// FacingSpring smooths a facing angle toward a target with a damped spring, always
// turning the short way round.
type FacingSpring struct {
	frequency float64
	damping   float64

	dt     float64
	spring harmonica.Spring
}

// NewFacingSpring creates a spring with the given angular frequency and damping ratio.
func NewFacingSpring(frequency, damping float64) *FacingSpring {
	return &FacingSpring{frequency: frequency, damping: damping}
}

// Update advances angle (radians) and its velocity toward target over dt frames.
// The returned angle is wrapped to [-Pi, Pi].
func (f *FacingSpring) Update(angle, vel, target, dt float64) (float64, float64) {
	if dt <= 0 {
		return angle, vel
	}
	if dt != f.dt {
		f.dt = dt
		f.spring = harmonica.NewSpring(harmonica.FPS(60)*dt, f.frequency, f.damping)
	}

	// Express the target relative to angle so the spring never winds the long way
	goal := angle + normalizeAngle(target-angle)
	angle, vel = f.spring.Update(angle, vel, goal)
	return normalizeAngle(angle), vel
}
