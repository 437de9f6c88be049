package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Shape.BlobVertices != 48 {
		t.Errorf("expected 48 blob vertices, got %d", cfg.Shape.BlobVertices)
	}
	if len(cfg.Derived.BlobPalette) != len(cfg.Blobs.Palette) {
		t.Errorf("expected %d parsed blob colors, got %d", len(cfg.Blobs.Palette), len(cfg.Derived.BlobPalette))
	}
	if len(cfg.Derived.PersonaWeight) != len(cfg.Blobs.Personalities) {
		t.Errorf("expected persona weights for every personality")
	}
	if cfg.Derived.RaySpread <= 0 {
		t.Error("expected positive derived ray spread")
	}
}

func TestLoad_UserFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	data := []byte("blobs:\n  count: 3\nrender:\n  style: metaball\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading user config: %v", err)
	}
	if cfg.Blobs.Count != 3 {
		t.Errorf("expected overridden count 3, got %d", cfg.Blobs.Count)
	}
	if cfg.Render.Style != "metaball" {
		t.Errorf("expected metaball style, got %q", cfg.Render.Style)
	}
	// Untouched fields keep their defaults
	if cfg.Rays.Count != 4 {
		t.Errorf("expected default ray count 4, got %d", cfg.Rays.Count)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero band", func(c *Config) { c.Shape.Band = 0 }},
		{"band too wide", func(c *Config) { c.Shape.Band = 1 }},
		{"bouncy restitution", func(c *Config) { c.Forces.Restitution = 1 }},
		{"unknown style", func(c *Config) { c.Render.Style = "watercolor" }},
		{"unknown blend", func(c *Config) { c.Render.RayBlend = "overlay" }},
		{"bad personality", func(c *Config) { c.Blobs.Personalities[0].Name = "grumpy" }},
		{"bad damping", func(c *Config) { c.Blobs.Personalities[1].Damping = 1.5 }},
		{"inverted radius", func(c *Config) { c.Blobs.MinRadius = 200 }},
		{"zero min distance", func(c *Config) { c.Forces.MinDistance = 0 }},
		{"negative expressiveness", func(c *Config) { c.Blobs.Personalities[2].Expressiveness = -1 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestRecompute_BadHex(t *testing.T) {
	cfg := Default()
	cfg.Blobs.Palette[0].Color = "green"
	if err := cfg.Recompute(); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for malformed hex, got %v", err)
	}
}

func TestPickWeighted(t *testing.T) {
	cumulative := []float64{1, 3, 6} // weights 1, 2, 3
	tests := []struct {
		r    float64
		want int
	}{
		{0, 0},
		{0.1, 0},
		{0.2, 1},
		{0.49, 1},
		{0.5, 2},
		{0.999, 2},
	}
	for _, tc := range tests {
		if got := PickWeighted(cumulative, tc.r); got != tc.want {
			t.Errorf("PickWeighted(%v) = %d, want %d", tc.r, got, tc.want)
		}
	}
	if got := PickWeighted(nil, 0.5); got != -1 {
		t.Errorf("expected -1 for empty table, got %d", got)
	}
}

func TestWriteYAML_RoundTrip(t *testing.T) {
	cfg := Default()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reloading written config: %v", err)
	}
	if loaded.Forces.PointerStrength != cfg.Forces.PointerStrength {
		t.Errorf("pointer strength changed across round trip: %v vs %v",
			loaded.Forces.PointerStrength, cfg.Forces.PointerStrength)
	}
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Blobs.Palette[0].Color = "#ffffff"
	clone.Blobs.Count = 99
	if cfg.Blobs.Palette[0].Color == "#ffffff" {
		t.Error("editing clone palette changed the original")
	}
	if cfg.Blobs.Count == 99 {
		t.Error("editing clone count changed the original")
	}
	if err := clone.Recompute(); err != nil {
		t.Fatalf("recomputing clone: %v", err)
	}
	if clone.Derived.BlobPalette[0] == cfg.Derived.BlobPalette[0] {
		t.Error("expected clone derived palette to follow its own swatches")
	}
}
