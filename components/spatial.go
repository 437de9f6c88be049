package components

import "gonum.org/v1/gonum/spatial/r2"

// Position represents an entity's position in viewport pixels.
type Position struct {
	X, Y float64
}

// Vec returns the position as a vector.
func (p Position) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

// Set stores v.
func (p *Position) Set(v r2.Vec) { p.X, p.Y = v.X, v.Y }

// Velocity represents an entity's velocity in pixels per frame.
type Velocity struct {
	X, Y float64
}

// Vec returns the velocity as a vector.
func (v Velocity) Vec() r2.Vec { return r2.Vec{X: v.X, Y: v.Y} }

// Set stores u.
func (v *Velocity) Set(u r2.Vec) { v.X, v.Y = u.X, u.Y }

// Morph drives outline oscillation. Phase only ever increases.
type Morph struct {
	Phase   float64
	Speed   float64  // phase units per frame
	Outline []r2.Vec // local-space polygon, regenerated every tick
}
