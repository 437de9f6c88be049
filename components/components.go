// Package components defines ECS components for the background simulation.
package components

import (
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"
)

// Blob is a soft, organically morphing circle.
// BaseRadius, Base and Personality are fixed at creation.
type Blob struct {
	ID          int
	BaseRadius  float64
	Base        colorful.Color
	Personality PersonalityKind

	Target r2.Vec      // wander destination
	Color  ColorBuffer // smoothed display color
	Lit    float64     // summed light attenuation this tick, for stats
}

// Ray is a tapered light polygon that pursues the nearest blob.
// Target is a non-owning reference re-resolved every RetargetInterval frames.
type Ray struct {
	ID        int
	Size      float64
	Color     colorful.Color
	Intensity float64
	Range     float64

	Target     ecs.Entity
	HasTarget  bool
	RetargetIn float64 // frames until the next nearest-blob lookup

	Facing    float64 // radians
	FacingVel float64 // spring velocity
}

// ColorBuffer smooths a displayed color toward a target.
// Dirty is false once Current has settled on Target.
type ColorBuffer struct {
	Current colorful.Color
	Target  colorful.Color
	Dirty   bool
}

// NewColorBuffer returns a settled buffer showing c.
func NewColorBuffer(c colorful.Color) ColorBuffer {
	return ColorBuffer{Current: c, Target: c}
}
