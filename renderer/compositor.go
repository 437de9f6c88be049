package renderer

import (
	"errors"
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/scene"
)

// Render styles.
const (
	StyleOil      = "oil"      // every blob blurred and color graded on its own
	StyleMetaball = "metaball" // blobs share one blurred layer thresholded into goo
)

// Compositor keeps one drawable per scene entity and feeds it the entity's shape
// every frame. Blobs sit on the lower layer, rays on the upper one.
type Compositor struct {
	surf Surface
	cfg  config.RenderConfig

	blobLayer Layer
	rayLayer  Layer
	blobChain FilterChain
	rayChain  FilterChain
	blobBlend BlendMode
	rayBlend  BlendMode

	blobs map[ecs.Entity]*drawEntry
	rays  map[ecs.Entity]*drawEntry
	gen   uint64

	released bool
}

type drawEntry struct {
	d    Drawable
	seen uint64
}

// NewCompositor creates the blob and ray layers on surf for the configured style.
// On error any layer already created is released.
func NewCompositor(surf Surface, cfg config.RenderConfig) (*Compositor, error) {
	blobBlend, err := ParseBlendMode(cfg.BlobBlend)
	if err != nil {
		return nil, fmt.Errorf("blob blend: %w", err)
	}
	rayBlend, err := ParseBlendMode(cfg.RayBlend)
	if err != nil {
		return nil, fmt.Errorf("ray blend: %w", err)
	}

	c := &Compositor{
		surf:      surf,
		cfg:       cfg,
		blobBlend: blobBlend,
		rayBlend:  rayBlend,
		blobs:     make(map[ecs.Entity]*drawEntry),
		rays:      make(map[ecs.Entity]*drawEntry),
	}

	var blobLayerChain FilterChain
	switch cfg.Style {
	case StyleOil, "":
		matrix, err := ParseMatrixPreset(cfg.BlobMatrix, MatrixParams{
			Saturation:    cfg.BlobSaturation,
			GooMultiplier: cfg.GooMultiplier,
			GooOffset:     cfg.GooOffset,
		})
		if err != nil {
			return nil, err
		}
		c.blobChain = FilterChain{Blur{Radius: cfg.BlobBlur}, matrix}
	case StyleMetaball:
		blobLayerChain = FilterChain{
			Blur{Radius: cfg.MetaballBlur},
			AlphaThresholdMatrix(cfg.GooMultiplier, cfg.GooOffset),
		}
	default:
		return nil, fmt.Errorf("unknown render style %q", cfg.Style)
	}
	c.rayChain = FilterChain{Blur{Radius: cfg.RayInnerBlur}, Blur{Radius: cfg.RayOuterBlur}}

	c.blobLayer, err = surf.NewLayer(blobLayerChain, BlendNormal)
	if err != nil {
		return nil, fmt.Errorf("creating blob layer: %w", err)
	}
	// Rays add up among themselves; the layer then lightens the blobs below
	c.rayLayer, err = surf.NewLayer(nil, rayBlend)
	if err != nil {
		c.blobLayer.Release()
		return nil, fmt.Errorf("creating ray layer: %w", err)
	}
	return c, nil
}

// Sync creates drawables for new entities, releases those of removed entities and
// pushes the current shape of every entity.
func (c *Compositor) Sync(s *scene.Scene) error {
	if c.released {
		return ErrSurfaceReleased
	}
	c.gen++

	var errs []error
	s.EachBlob(func(v scene.BlobView) {
		e, err := c.entry(c.blobs, v.Entity, c.blobLayer, c.blobChain, c.blobBlend)
		if err != nil {
			errs = append(errs, err)
			return
		}
		e.d.Update(Shape{
			Pos:     v.Pos,
			Outline: v.Outline,
			Tint:    v.Color,
			Alpha:   c.cfg.BlobAlpha,
		})
	})
	s.EachRay(func(v scene.RayView) {
		e, err := c.entry(c.rays, v.Entity, c.rayLayer, c.rayChain, BlendAdd)
		if err != nil {
			errs = append(errs, err)
			return
		}
		e.d.Update(Shape{
			Pos:     v.Pos,
			Angle:   v.Angle,
			Outline: v.Outline,
			Tint:    v.Color,
			Alpha:   c.cfg.RayAlpha,
		})
	})

	c.sweep(c.blobs)
	c.sweep(c.rays)
	return errors.Join(errs...)
}

func (c *Compositor) entry(m map[ecs.Entity]*drawEntry, key ecs.Entity, layer Layer, chain FilterChain, blend BlendMode) (*drawEntry, error) {
	e, ok := m[key]
	if !ok {
		d, err := layer.NewDrawable(chain, blend)
		if err != nil {
			return nil, fmt.Errorf("creating drawable: %w", err)
		}
		e = &drawEntry{d: d}
		m[key] = e
	}
	e.seen = c.gen
	return e, nil
}

// sweep releases drawables whose entity was not seen this generation.
func (c *Compositor) sweep(m map[ecs.Entity]*drawEntry) {
	for k, e := range m {
		if e.seen != c.gen {
			e.d.Release()
			delete(m, k)
		}
	}
}

// Render presents the current frame at the given opacity.
func (c *Compositor) Render(opacity float64) error {
	if c.released {
		return ErrSurfaceReleased
	}
	return c.surf.Render(opacity)
}

// Drawables returns the number of live blob and ray drawables.
func (c *Compositor) Drawables() (blobs, rays int) {
	return len(c.blobs), len(c.rays)
}

// Release frees every drawable and both layers. The surface itself is left to its
// owner. Safe to call more than once.
func (c *Compositor) Release() {
	if c.released {
		return
	}
	c.released = true
	for k, e := range c.blobs {
		e.d.Release()
		delete(c.blobs, k)
	}
	for k, e := range c.rays {
		e.d.Release()
		delete(c.rays, k)
	}
	if c.rayLayer != nil {
		c.rayLayer.Release()
	}
	if c.blobLayer != nil {
		c.blobLayer.Release()
	}
}
