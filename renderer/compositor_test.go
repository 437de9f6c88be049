package renderer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/scene"
)

// fakeSurface records every call made through the Surface contract.
type fakeSurface struct {
	w, h      int
	layers    []*fakeLayer
	renders   []float64
	failLayer int // fail the n-th NewLayer call (1-based), 0 never
	destroyed int
}

type fakeLayer struct {
	chain     FilterChain
	blend     BlendMode
	drawables []*fakeDrawable
	released  bool
}

type fakeDrawable struct {
	chain    FilterChain
	blend    BlendMode
	updates  int
	last     Shape
	released int
}

func (s *fakeSurface) Size() (int, int)        { return s.w, s.h }
func (s *fakeSurface) Resize(w, h int) error   { s.w, s.h = w, h; return nil }
func (s *fakeSurface) Render(op float64) error { s.renders = append(s.renders, op); return nil }
func (s *fakeSurface) Destroy() error          { s.destroyed++; return nil }

func (s *fakeSurface) NewLayer(chain FilterChain, blend BlendMode) (Layer, error) {
	if s.failLayer == len(s.layers)+1 {
		return nil, errors.New("no more layers")
	}
	l := &fakeLayer{chain: chain, blend: blend}
	s.layers = append(s.layers, l)
	return l, nil
}

func (l *fakeLayer) NewDrawable(chain FilterChain, blend BlendMode) (Drawable, error) {
	d := &fakeDrawable{chain: chain, blend: blend}
	l.drawables = append(l.drawables, d)
	return d, nil
}

func (l *fakeLayer) Release() { l.released = true }

func (d *fakeDrawable) Update(s Shape) { d.updates++; d.last = s }
func (d *fakeDrawable) Release()       { d.released++ }

func newTestScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.New(config.Default(), scene.Viewport{W: 800, H: 600}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("creating scene: %v", err)
	}
	return s
}

func TestNewCompositor_Styles(t *testing.T) {
	tests := []struct {
		style          string
		blobLayerChain int
		blobChain      int
	}{
		{StyleOil, 0, 2},
		{StyleMetaball, 2, 0},
	}
	for _, tc := range tests {
		t.Run(tc.style, func(t *testing.T) {
			cfg := config.Default().Render
			cfg.Style = tc.style
			surf := &fakeSurface{w: 800, h: 600}
			c, err := NewCompositor(surf, cfg)
			if err != nil {
				t.Fatalf("creating compositor: %v", err)
			}
			if len(surf.layers) != 2 {
				t.Fatalf("expected 2 layers, got %d", len(surf.layers))
			}
			blobs, rays := surf.layers[0], surf.layers[1]
			if len(blobs.chain) != tc.blobLayerChain {
				t.Errorf("expected blob layer chain of %d, got %d", tc.blobLayerChain, len(blobs.chain))
			}
			if rays.blend != BlendScreen {
				t.Errorf("expected ray layer to screen, got %v", rays.blend)
			}

			if err := c.Sync(newTestScene(t)); err != nil {
				t.Fatalf("sync: %v", err)
			}
			if got := len(blobs.drawables[0].chain); got != tc.blobChain {
				t.Errorf("expected per-blob chain of %d, got %d", tc.blobChain, got)
			}
			rayChain := rays.drawables[0].chain
			if len(rayChain) != 2 {
				t.Fatalf("expected dual blur on rays, got %d filters", len(rayChain))
			}
			for _, f := range rayChain {
				if _, ok := f.(Blur); !ok {
					t.Errorf("expected ray filters to be blurs, got %T", f)
				}
			}
		})
	}
}

func TestNewCompositor_Errors(t *testing.T) {
	cfg := config.Default().Render
	cfg.Style = "watercolor"
	if _, err := NewCompositor(&fakeSurface{}, cfg); err == nil {
		t.Error("expected error for unknown style")
	}

	cfg = config.Default().Render
	surf := &fakeSurface{failLayer: 2}
	if _, err := NewCompositor(surf, cfg); err == nil {
		t.Fatal("expected error when the ray layer cannot be created")
	}
	if !surf.layers[0].released {
		t.Error("expected blob layer to be released after partial init")
	}
}

func TestCompositor_SyncCreatesOnceAndUpdates(t *testing.T) {
	s := newTestScene(t)
	surf := &fakeSurface{w: 800, h: 600}
	c, err := NewCompositor(surf, config.Default().Render)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}

	for i := 0; i < 5; i++ {
		s.Tick(1)
		if err := c.Sync(s); err != nil {
			t.Fatalf("sync %d: %v", i, err)
		}
	}

	blobs, rays := c.Drawables()
	if blobs != s.BlobCount() || rays != s.RayCount() {
		t.Errorf("expected %d/%d drawables, got %d/%d", s.BlobCount(), s.RayCount(), blobs, rays)
	}
	if len(surf.layers[0].drawables) != s.BlobCount() {
		t.Errorf("expected drawables to be created once, got %d creations", len(surf.layers[0].drawables))
	}
	for _, d := range surf.layers[0].drawables {
		if d.updates != 5 {
			t.Errorf("expected 5 updates, got %d", d.updates)
		}
		if len(d.last.Outline) == 0 {
			t.Error("expected blob drawable to receive an outline")
		}
	}
}

func TestCompositor_SyncReleasesRemoved(t *testing.T) {
	s := newTestScene(t)
	surf := &fakeSurface{w: 800, h: 600}
	c, err := NewCompositor(surf, config.Default().Render)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	if err := c.Sync(s); err != nil {
		t.Fatalf("sync: %v", err)
	}

	victim := s.Blobs()[0].Entity
	s.RemoveBlob(victim)
	if err := c.Sync(s); err != nil {
		t.Fatalf("sync: %v", err)
	}

	released := 0
	for _, d := range surf.layers[0].drawables {
		released += d.released
	}
	if released != 1 {
		t.Errorf("expected exactly one released drawable, got %d", released)
	}
}

func TestCompositor_ReleaseIdempotent(t *testing.T) {
	s := newTestScene(t)
	surf := &fakeSurface{w: 800, h: 600}
	c, err := NewCompositor(surf, config.Default().Render)
	if err != nil {
		t.Fatalf("creating compositor: %v", err)
	}
	if err := c.Sync(s); err != nil {
		t.Fatalf("sync: %v", err)
	}

	c.Release()
	c.Release()

	for _, l := range surf.layers {
		if !l.released {
			t.Error("expected layer released")
		}
		for _, d := range l.drawables {
			if d.released != 1 {
				t.Errorf("expected drawable released once, got %d", d.released)
			}
		}
	}
	if err := c.Sync(s); !errors.Is(err, ErrSurfaceReleased) {
		t.Errorf("expected ErrSurfaceReleased after release, got %v", err)
	}
	if err := c.Render(1); !errors.Is(err, ErrSurfaceReleased) {
		t.Errorf("expected ErrSurfaceReleased from render, got %v", err)
	}
	if surf.destroyed != 0 {
		t.Error("compositor must not destroy the surface it does not own")
	}
}
