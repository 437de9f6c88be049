// Package scene owns the blob and ray entities and advances them one tick at a time.
// A Scene is single-threaded: hosts call Tick, SetPointer and Resize from one goroutine.
package scene

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/systems"
)

// Viewport is the simulation area in pixels.
type Viewport = systems.Viewport

// Pointer is the host pointer in viewport pixels.
type Pointer = systems.Pointer

// errNoDerived is returned when a Config was built by hand without Recompute.
var errNoDerived = errors.New("config has no derived palettes (use config.Load or Recompute)")

// Scene is the entity store plus the simulation step.
type Scene struct {
	cfg *config.Config
	rng *rand.Rand

	world      *ecs.World
	blobMap    *ecs.Map4[components.Position, components.Velocity, components.Morph, components.Blob]
	rayMap     *ecs.Map4[components.Position, components.Velocity, components.Morph, components.Ray]
	blobFilter *ecs.Filter4[components.Position, components.Velocity, components.Morph, components.Blob]
	rayFilter  *ecs.Filter4[components.Position, components.Velocity, components.Morph, components.Ray]

	personalities components.Personalities
	personaKinds  []components.PersonalityKind // parallel to cfg.Blobs.Personalities
	shape         systems.ShapeParams
	forces        systems.ForceParams
	rayParams     systems.RayParams
	light         systems.LightParams
	facing        *systems.FacingSpring

	vp      Viewport
	pointer Pointer
	ticks   uint64
	nextID  int

	// Per-tick snapshots, reused between ticks
	blobSnap  []systems.BlobSample
	blobIndex map[ecs.Entity]int
	raySnap   []systems.RaySample
	grid      *systems.BlobGrid
	near      []int

	phaseHook func(phase string)
}

// BlobView is a read-only copy of one blob. Outline is owned by the scene and is only
// valid until the next Tick.
type BlobView struct {
	Entity      ecs.Entity
	ID          int
	Pos         r2.Vec
	Vel         r2.Vec
	Radius      float64
	Phase       float64
	MorphSpeed  float64
	Outline     []r2.Vec
	Base        colorful.Color
	Color       colorful.Color
	Settled     bool
	Target      r2.Vec
	Personality components.PersonalityKind
	Lit         float64
}

// RayView is a read-only copy of one ray. Outline is owned by the scene and is only
// valid until the next Tick.
type RayView struct {
	Entity    ecs.Entity
	ID        int
	Pos       r2.Vec
	Vel       r2.Vec
	Size      float64
	Angle     float64
	Outline   []r2.Vec
	Color     colorful.Color
	Intensity float64
	Range     float64
	Target    ecs.Entity
	HasTarget bool
}

// newEmpty builds a scene with no entities.
func newEmpty(cfg *config.Config, vp Viewport, rng *rand.Rand) (*Scene, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	if len(cfg.Derived.BlobPalette) == 0 {
		return nil, errNoDerived
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	personalities, kinds, err := buildPersonalities(cfg)
	if err != nil {
		return nil, err
	}

	world := ecs.NewWorld()
	s := &Scene{
		cfg:        cfg,
		rng:        rng,
		world:      world,
		blobMap:    ecs.NewMap4[components.Position, components.Velocity, components.Morph, components.Blob](world),
		rayMap:     ecs.NewMap4[components.Position, components.Velocity, components.Morph, components.Ray](world),
		blobFilter: ecs.NewFilter4[components.Position, components.Velocity, components.Morph, components.Blob](world),
		rayFilter:  ecs.NewFilter4[components.Position, components.Velocity, components.Morph, components.Ray](world),

		personalities: personalities,
		personaKinds:  kinds,
		shape:         systems.ShapeParamsFromConfig(cfg),
		forces:        systems.ForceParamsFromConfig(cfg),
		rayParams:     systems.RayParamsFromConfig(cfg),
		light:         systems.LightParamsFromConfig(cfg),
		facing:        systems.NewFacingSpring(cfg.Rays.FacingFrequency, cfg.Rays.FacingDamping),

		vp:        sanitizeViewport(vp),
		blobIndex: make(map[ecs.Entity]int),
		grid:      systems.NewBlobGrid(),
	}
	return s, nil
}

// buildPersonalities overlays configured personalities on the built-in table.
func buildPersonalities(cfg *config.Config) (components.Personalities, []components.PersonalityKind, error) {
	table := components.DefaultPersonalities()
	kinds := make([]components.PersonalityKind, len(cfg.Blobs.Personalities))
	for i, pc := range cfg.Blobs.Personalities {
		kind, err := components.ParsePersonality(pc.Name)
		if err != nil {
			return table, nil, fmt.Errorf("blobs.personalities[%d]: %w", i, err)
		}
		kinds[i] = kind
		table[kind] = components.Personality{
			Sensitivity:    pc.Sensitivity,
			RetargetRate:   pc.RetargetRate,
			Expressiveness: pc.Expressiveness,
			Damping:        pc.Damping,
		}
	}
	return table, kinds, nil
}

func sanitizeViewport(vp Viewport) Viewport {
	if !(vp.W > 0) {
		vp.W = 0
	}
	if !(vp.H > 0) {
		vp.H = 0
	}
	return vp
}

// Config returns the configuration the scene was built with.
func (s *Scene) Config() *config.Config { return s.cfg }

// Viewport returns the current simulation area.
func (s *Scene) Viewport() Viewport { return s.vp }

// Ticks returns the number of ticks advanced so far.
func (s *Scene) Ticks() uint64 { return s.ticks }

// Pointer returns the current pointer state.
func (s *Scene) Pointer() Pointer { return s.pointer }

// Personality returns the tuning applied to kind.
func (s *Scene) Personality(kind components.PersonalityKind) components.Personality {
	return s.personalities.Get(kind)
}

// SetPointer records the pointer position. The latest call wins; non-finite
// coordinates are ignored.
func (s *Scene) SetPointer(x, y float64) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return
	}
	s.pointer = Pointer{X: x, Y: y, Active: true}
}

// ClearPointer marks the pointer as gone (left the surface, touch ended).
func (s *Scene) ClearPointer() {
	s.pointer.Active = false
}

// Resize changes the viewport. Entities are kept and clamped into the new bounds;
// wander targets that fell outside are re-picked.
func (s *Scene) Resize(w, h float64) {
	s.vp = sanitizeViewport(Viewport{W: w, H: h})
	margin := s.cfg.Blobs.TargetMargin

	bq := s.blobFilter.Query()
	for bq.Next() {
		pos, vel, _, blob := bq.Get()
		p, v := systems.Contain(pos.Vec(), vel.Vec(), s.vp, s.forces.Restitution)
		pos.Set(p)
		vel.Set(v)
		if !s.vp.Contains(blob.Target) {
			blob.Target = systems.PickTarget(s.rng, s.vp, margin)
		}
	}

	rq := s.rayFilter.Query()
	for rq.Next() {
		pos, vel, _, _ := rq.Get()
		p, v := systems.Contain(pos.Vec(), vel.Vec(), s.vp, s.forces.Restitution)
		pos.Set(p)
		vel.Set(v)
	}
}

// BlobCount returns the number of live blobs.
func (s *Scene) BlobCount() int {
	q := s.blobFilter.Query()
	n := q.Count()
	q.Close()
	return n
}

// RayCount returns the number of live rays.
func (s *Scene) RayCount() int {
	q := s.rayFilter.Query()
	n := q.Count()
	q.Close()
	return n
}

// EachBlob calls fn for every blob in storage order.
func (s *Scene) EachBlob(fn func(BlobView)) {
	q := s.blobFilter.Query()
	for q.Next() {
		pos, vel, morph, blob := q.Get()
		fn(BlobView{
			Entity:      q.Entity(),
			ID:          blob.ID,
			Pos:         pos.Vec(),
			Vel:         vel.Vec(),
			Radius:      blob.BaseRadius,
			Phase:       morph.Phase,
			MorphSpeed:  morph.Speed,
			Outline:     morph.Outline,
			Base:        blob.Base,
			Color:       blob.Color.Current,
			Settled:     !blob.Color.Dirty,
			Target:      blob.Target,
			Personality: blob.Personality,
			Lit:         blob.Lit,
		})
	}
}

// EachRay calls fn for every ray in storage order.
func (s *Scene) EachRay(fn func(RayView)) {
	q := s.rayFilter.Query()
	for q.Next() {
		pos, vel, morph, ray := q.Get()
		fn(RayView{
			Entity:    q.Entity(),
			ID:        ray.ID,
			Pos:       pos.Vec(),
			Vel:       vel.Vec(),
			Size:      ray.Size,
			Angle:     ray.Facing,
			Outline:   morph.Outline,
			Color:     ray.Color,
			Intensity: ray.Intensity,
			Range:     ray.Range,
			Target:    ray.Target,
			HasTarget: ray.HasTarget,
		})
	}
}

// Blobs returns a snapshot of every blob.
func (s *Scene) Blobs() []BlobView {
	out := make([]BlobView, 0, s.BlobCount())
	s.EachBlob(func(v BlobView) { out = append(out, v) })
	return out
}

// Rays returns a snapshot of every ray.
func (s *Scene) Rays() []RayView {
	out := make([]RayView, 0, s.RayCount())
	s.EachRay(func(v RayView) { out = append(out, v) })
	return out
}

// Alive reports whether e is still a live entity of this scene.
func (s *Scene) Alive(e ecs.Entity) bool {
	return !e.IsZero() && s.world.Alive(e)
}

// RemoveBlob deletes a blob. Rays targeting it pick a new target on their next tick.
func (s *Scene) RemoveBlob(e ecs.Entity) bool {
	if !s.Alive(e) || !s.blobMap.HasAll(e) {
		return false
	}
	s.world.RemoveEntity(e)
	return true
}
