package scene

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/systems"
)

// minFacingSpeed is the speed below which a targetless ray keeps its facing.
const minFacingSpeed = 0.05

// Tick phase names passed to the phase hook.
const (
	PhaseRays  = "rays"
	PhaseBlobs = "blobs"
)

// SetPhaseHook installs fn to be called as Tick enters each phase. Nil removes it.
func (s *Scene) SetPhaseHook(fn func(phase string)) { s.phaseHook = fn }

func (s *Scene) enterPhase(phase string) {
	if s.phaseHook != nil {
		s.phaseHook(phase)
	}
}

// Tick advances the scene by dt frames (1 = one 60 Hz frame). Rays move first, then
// blobs; every entity is updated exactly once. Forces read the positions blobs had at
// the start of the tick, so the result does not depend on iteration order.
func (s *Scene) Tick(dt float64) {
	if !(dt > 0) {
		return
	}
	if maxDt := s.cfg.Sim.MaxDelta; maxDt > 0 && dt > maxDt {
		dt = maxDt
	}
	s.ticks++

	s.enterPhase(PhaseRays)
	s.snapshotBlobs()
	s.stepRays(dt)
	s.enterPhase(PhaseBlobs)
	s.snapshotRays()
	s.stepBlobs(dt)
}

// snapshotBlobs records every blob's tick-start position and index.
func (s *Scene) snapshotBlobs() {
	s.blobSnap = s.blobSnap[:0]
	clear(s.blobIndex)

	q := s.blobFilter.Query()
	for q.Next() {
		pos, _, _, blob := q.Get()
		e := q.Entity()
		idx := len(s.blobSnap)
		s.blobIndex[e] = idx
		s.blobSnap = append(s.blobSnap, systems.BlobSample{
			Entity: e,
			Index:  idx,
			Pos:    pos.Vec(),
			Radius: blob.BaseRadius,
		})
	}
	s.grid.Rebuild(s.blobSnap, s.vp, s.forces)
}

// snapshotRays records every ray after the ray pass, for lighting and attraction.
func (s *Scene) snapshotRays() {
	s.raySnap = s.raySnap[:0]

	q := s.rayFilter.Query()
	for q.Next() {
		pos, _, _, ray := q.Get()
		s.raySnap = append(s.raySnap, systems.RaySample{
			Entity:    q.Entity(),
			Pos:       pos.Vec(),
			Color:     ray.Color,
			Intensity: ray.Intensity,
			Range:     ray.Range,
		})
	}
}

func (s *Scene) stepRays(dt float64) {
	q := s.rayFilter.Query()
	for q.Next() {
		pos, vel, morph, ray := q.Get()
		p := pos.Vec()

		s.resolveRayTarget(ray, p, dt)
		var target r2.Vec
		if ray.HasTarget {
			target = s.blobSnap[s.blobIndex[ray.Target]].Pos
		}

		p, v := systems.SteerRay(p, vel.Vec(), target, ray.HasTarget, s.rayParams, dt)

		// Point the tip at the target, or along the direction of travel while coasting
		goal := ray.Facing
		if ray.HasTarget {
			if d := r2.Sub(target, p); r2.Norm2(d) > 1 {
				goal = math.Atan2(d.Y, d.X)
			}
		} else if r2.Norm(v) > minFacingSpeed {
			goal = math.Atan2(v.Y, v.X)
		}
		ray.Facing, ray.FacingVel = s.facing.Update(ray.Facing, ray.FacingVel, goal, dt)

		p, v = systems.Contain(p, v, s.vp, s.forces.Restitution)
		pos.Set(p)
		vel.Set(v)

		morph.Phase += morph.Speed * dt
		morph.Outline = systems.RayOutline(morph.Outline, ray.Size, morph.Phase, s.shape)
	}
}

// resolveRayTarget re-picks the nearest blob every RetargetInterval frames, and at once
// when the current target is gone.
func (s *Scene) resolveRayTarget(ray *components.Ray, p r2.Vec, dt float64) {
	ray.RetargetIn -= dt

	missing := true
	if ray.HasTarget {
		_, ok := s.blobIndex[ray.Target]
		missing = !ok
	}
	if !missing && ray.RetargetIn > 0 {
		return
	}

	idx, ok := systems.NearestBlob(p, s.blobSnap)
	ray.HasTarget = ok
	if ok {
		ray.Target = s.blobSnap[idx].Entity
	}
	ray.RetargetIn = s.rayParams.RetargetInterval
}

func (s *Scene) stepBlobs(dt float64) {
	margin := s.cfg.Blobs.TargetMargin
	arrive := s.cfg.Blobs.ArriveRadius

	q := s.blobFilter.Query()
	for q.Next() {
		pos, vel, morph, blob := q.Get()
		pers := s.personalities.Get(blob.Personality)

		morph.Phase += morph.Speed * pers.Expressiveness * dt
		morph.Outline = systems.BlobOutline(morph.Outline, blob.BaseRadius, morph.Phase, s.shape)

		p := pos.Vec()
		if systems.Arrived(p, blob.Target, arrive) || systems.ShouldRetarget(s.rng, pers.RetargetRate, dt) {
			blob.Target = systems.PickTarget(s.rng, s.vp, margin)
		}

		idx := s.blobIndex[q.Entity()]
		me := s.blobSnap[idx]
		s.near = s.grid.QueryInto(s.near[:0], me.Pos, s.grid.RepulsionReach(me.Radius, s.forces))
		f := systems.BlobForceNear(idx, s.near, blob.Target, pers, s.blobSnap, s.raySnap, s.pointer, s.forces)
		p, v := systems.Integrate(p, vel.Vec(), f, pers.Damping, dt)
		p, v = systems.Contain(p, v, s.vp, s.forces.Restitution)
		pos.Set(p)
		vel.Set(v)

		target, lit := systems.TargetColor(blob.Base, p, s.raySnap, pers.Sensitivity)
		blob.Lit = lit
		systems.ApplyBuffered(&blob.Color, target, dt, s.light)
	}
}
