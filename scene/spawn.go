package scene

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/systems"
)

// BlobSpec places one blob explicitly.
type BlobSpec struct {
	X, Y        float64
	VX, VY      float64
	Radius      float64
	Color       colorful.Color
	Personality components.PersonalityKind
	MorphSpeed  float64
	Phase       float64
}

// RaySpec places one ray explicitly. Zero Intensity or Range take the configured values.
type RaySpec struct {
	X, Y      float64
	Size      float64
	Color     colorful.Color
	Intensity float64
	Range     float64
}

// New creates a scene with randomly placed blobs and rays.
func New(cfg *config.Config, vp Viewport, rng *rand.Rand) (*Scene, error) {
	s, err := newEmpty(cfg, vp, rng)
	if err != nil {
		return nil, err
	}

	for i, n := 0, BlobCountFor(cfg, s.vp); i < n; i++ {
		s.addBlob(s.randomBlob())
	}
	for i := 0; i < cfg.Rays.Count; i++ {
		s.addRay(s.randomRay())
	}
	return s, nil
}

// NewFromSpecs creates a scene with exactly the given blobs and rays.
func NewFromSpecs(cfg *config.Config, vp Viewport, rng *rand.Rand, blobs []BlobSpec, rays []RaySpec) (*Scene, error) {
	s, err := newEmpty(cfg, vp, rng)
	if err != nil {
		return nil, err
	}
	for i, b := range blobs {
		if err := checkBlobSpec(b); err != nil {
			return nil, fmt.Errorf("blob spec %d: %w", i, err)
		}
		s.addBlob(b)
	}
	for i, r := range rays {
		if !(r.Size > 0) {
			return nil, fmt.Errorf("ray spec %d: size must be positive", i)
		}
		s.addRay(r)
	}
	return s, nil
}

// BlobCountFor returns how many blobs a random scene of this viewport gets. With
// per_megapixel set the count follows the viewport area, clamped to [min, max].
func BlobCountFor(cfg *config.Config, vp Viewport) int {
	b := cfg.Blobs
	if b.PerMegapixel <= 0 {
		return b.Count
	}
	n := int(math.Round(vp.W * vp.H / 1e6 * b.PerMegapixel))
	if n < b.MinCount {
		n = b.MinCount
	}
	if b.MaxCount > 0 && n > b.MaxCount {
		n = b.MaxCount
	}
	return n
}

// AddBlob inserts a blob into a running scene.
func (s *Scene) AddBlob(spec BlobSpec) (ecs.Entity, error) {
	if err := checkBlobSpec(spec); err != nil {
		return ecs.Entity{}, err
	}
	return s.addBlob(spec), nil
}

func checkBlobSpec(spec BlobSpec) error {
	if !(spec.Radius > 0) {
		return errors.New("radius must be positive")
	}
	if !(spec.MorphSpeed >= 0) {
		return errors.New("morph speed must not be negative")
	}
	return nil
}

func (s *Scene) randomBlob() BlobSpec {
	b := s.cfg.Blobs
	d := &s.cfg.Derived

	spec := BlobSpec{
		X:          s.rng.Float64() * s.vp.W,
		Y:          s.rng.Float64() * s.vp.H,
		Radius:     uniform(s.rng, b.MinRadius, b.MaxRadius),
		Color:      d.BlobPalette[config.PickWeighted(d.BlobWeights, s.rng.Float64())],
		MorphSpeed: uniform(s.rng, b.MinMorphSpeed, b.MaxMorphSpeed),
		Phase:      s.rng.Float64() * 2 * math.Pi,
	}
	if i := config.PickWeighted(d.PersonaWeight, s.rng.Float64()); i >= 0 {
		spec.Personality = s.personaKinds[i]
	} else {
		spec.Personality = components.Curious
	}
	return spec
}

func (s *Scene) randomRay() RaySpec {
	r := s.cfg.Rays
	d := &s.cfg.Derived
	return RaySpec{
		X:     s.rng.Float64() * s.vp.W,
		Y:     s.rng.Float64() * s.vp.H,
		Size:  uniform(s.rng, r.MinSize, r.MaxSize),
		Color: d.RayPalette[config.PickWeighted(d.RayWeights, s.rng.Float64())],
	}
}

func (s *Scene) addBlob(spec BlobSpec) ecs.Entity {
	s.nextID++
	pos := components.Position{X: spec.X, Y: spec.Y}
	vel := components.Velocity{X: spec.VX, Y: spec.VY}
	p, v := systems.Contain(pos.Vec(), vel.Vec(), s.vp, s.forces.Restitution)
	pos.Set(p)
	vel.Set(v)

	morph := components.Morph{Phase: spec.Phase, Speed: spec.MorphSpeed}
	morph.Outline = systems.BlobOutline(nil, spec.Radius, morph.Phase, s.shape)

	blob := components.Blob{
		ID:          s.nextID,
		BaseRadius:  spec.Radius,
		Base:        spec.Color,
		Personality: spec.Personality,
		Target:      systems.PickTarget(s.rng, s.vp, s.cfg.Blobs.TargetMargin),
		Color:       components.NewColorBuffer(spec.Color),
	}
	return s.blobMap.NewEntity(&pos, &vel, &morph, &blob)
}

func (s *Scene) addRay(spec RaySpec) ecs.Entity {
	s.nextID++
	if spec.Intensity == 0 {
		spec.Intensity = s.cfg.Rays.Intensity
	}
	if spec.Range == 0 {
		spec.Range = s.cfg.Rays.Range
	}

	pos := components.Position{X: spec.X, Y: spec.Y}
	vel := components.Velocity{}
	p, _ := systems.Contain(pos.Vec(), vel.Vec(), s.vp, s.forces.Restitution)
	pos.Set(p)

	morph := components.Morph{Phase: s.rng.Float64() * 2 * math.Pi, Speed: s.rayParams.MorphSpeed}
	morph.Outline = systems.RayOutline(nil, spec.Size, morph.Phase, s.shape)

	ray := components.Ray{
		ID:        s.nextID,
		Size:      spec.Size,
		Color:     spec.Color,
		Intensity: spec.Intensity,
		Range:     spec.Range,
		Facing:    s.rng.Float64()*2*math.Pi - math.Pi,
	}
	return s.rayMap.NewEntity(&pos, &vel, &morph, &ray)
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}
