// Package config provides configuration loading and access for the background engine.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// ErrInvalid is returned (wrapped) when a loaded configuration fails validation.
var ErrInvalid = errors.New("invalid config")

// Known names accepted by the render and personality sections.
var (
	Styles           = []string{"oil", "metaball"}
	BlendModes       = []string{"normal", "add", "screen", "multiply"}
	MatrixPresets    = []string{"identity", "saturate", "goo"}
	PersonalityNames = []string{"shy", "curious", "energetic"}
)

// Config holds all engine configuration parameters.
// A loaded Config is treated as immutable; callers share it by pointer.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	Blobs     BlobsConfig     `yaml:"blobs"`
	Rays      RaysConfig      `yaml:"rays"`
	Forces    ForcesConfig    `yaml:"forces"`
	Lighting  LightingConfig  `yaml:"lighting"`
	Shape     ShapeConfig     `yaml:"shape"`
	Render    RenderConfig    `yaml:"render"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds window settings for the graphical host.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// SimConfig holds tick parameters.
type SimConfig struct {
	MaxDelta float64 `yaml:"max_delta"` // Largest delta (in 60 Hz frames) a single tick integrates
}

// SwatchConfig is one weighted palette entry.
type SwatchConfig struct {
	Color  string  `yaml:"color"`  // "#rrggbb"
	Weight float64 `yaml:"weight"` // Relative pick weight
}

// PersonalityConfig tunes one blob personality.
type PersonalityConfig struct {
	Name           string  `yaml:"name"`
	Weight         float64 `yaml:"weight"`         // Relative pick weight at creation
	Sensitivity    float64 `yaml:"sensitivity"`    // Scales ray attraction and received light
	RetargetRate   float64 `yaml:"retarget_rate"`  // Wander retarget probability per frame
	Expressiveness float64 `yaml:"expressiveness"` // Morph phase speed multiplier
	Damping        float64 `yaml:"damping"`        // Velocity multiplier per frame
}

// BlobsConfig holds blob creation parameters.
type BlobsConfig struct {
	Count         int                 `yaml:"count"`
	PerMegapixel  float64             `yaml:"per_megapixel"` // >0 derives count from viewport area
	MinCount      int                 `yaml:"min_count"`
	MaxCount      int                 `yaml:"max_count"`
	MinRadius     float64             `yaml:"min_radius"`
	MaxRadius     float64             `yaml:"max_radius"`
	MinMorphSpeed float64             `yaml:"min_morph_speed"` // Phase units per frame
	MaxMorphSpeed float64             `yaml:"max_morph_speed"`
	TargetMargin  float64             `yaml:"target_margin"` // Wander targets keep this far from edges
	ArriveRadius  float64             `yaml:"arrive_radius"` // Retarget once this close to the target
	Palette       []SwatchConfig      `yaml:"palette"`
	Personalities []PersonalityConfig `yaml:"personalities"`
}

// RaysConfig holds light ray parameters.
type RaysConfig struct {
	Count            int            `yaml:"count"`
	MinSize          float64        `yaml:"min_size"`
	MaxSize          float64        `yaml:"max_size"`
	Intensity        float64        `yaml:"intensity"`
	Range            float64        `yaml:"range"` // Lighting influence range
	Damping          float64        `yaml:"damping"`
	MaxSpeed         float64        `yaml:"max_speed"`
	Steer            float64        `yaml:"steer"`
	RetargetInterval float64        `yaml:"retarget_interval"` // Frames between nearest-blob lookups
	FacingFrequency  float64        `yaml:"facing_frequency"`  // Spring angular frequency
	FacingDamping    float64        `yaml:"facing_damping"`    // Spring damping ratio
	MorphSpeed       float64        `yaml:"morph_speed"`
	Palette          []SwatchConfig `yaml:"palette"`
}

// ForcesConfig holds force rule constants.
type ForcesConfig struct {
	RepulsionFactor     float64 `yaml:"repulsion_factor"` // Threshold = (r1+r2) * factor
	RepulsionStrength   float64 `yaml:"repulsion_strength"`
	RepulsionMax        float64 `yaml:"repulsion_max"` // Per-pair force cap
	AttractionRadius    float64 `yaml:"attraction_radius"`
	AttractionStrength  float64 `yaml:"attraction_strength"`
	PointerRadiusFactor float64 `yaml:"pointer_radius_factor"` // Threshold = radius * factor
	PointerStrength     float64 `yaml:"pointer_strength"`
	WanderStrength      float64 `yaml:"wander_strength"`
	Restitution         float64 `yaml:"restitution"` // Velocity kept when bouncing off an edge
	MinDistance         float64 `yaml:"min_distance"`
}

// LightingConfig holds color smoothing parameters.
type LightingConfig struct {
	SmoothingRate   float64 `yaml:"smoothing_rate"`   // Fraction of the gap closed per frame
	SettleTolerance float64 `yaml:"settle_tolerance"` // Per-channel distance (0-1) treated as settled
}

// ShapeConfig holds outline generation constants.
type ShapeConfig struct {
	BlobVertices     int     `yaml:"blob_vertices"`
	RayVertices      int     `yaml:"ray_vertices"`
	Band             float64 `yaml:"band"` // Max relative radius deviation
	RaySpreadDeg     float64 `yaml:"ray_spread_deg"`
	RayWaveAmplitude float64 `yaml:"ray_wave_amplitude"`
}

// RenderConfig holds compositing parameters.
type RenderConfig struct {
	Style          string  `yaml:"style"` // oil | metaball
	Background     string  `yaml:"background"`
	BlobBlur       float64 `yaml:"blob_blur"`
	BlobMatrix     string  `yaml:"blob_matrix"` // identity | saturate | goo
	BlobSaturation float64 `yaml:"blob_saturation"`
	GooMultiplier  float64 `yaml:"goo_multiplier"`
	GooOffset      float64 `yaml:"goo_offset"`
	MetaballBlur   float64 `yaml:"metaball_blur"`
	RayInnerBlur   float64 `yaml:"ray_inner_blur"`
	RayOuterBlur   float64 `yaml:"ray_outer_blur"`
	BlobBlend      string  `yaml:"blob_blend"`
	RayBlend       string  `yaml:"ray_blend"`
	BlobAlpha      float64 `yaml:"blob_alpha"`
	RayAlpha       float64 `yaml:"ray_alpha"`
	FadeIn         float64 `yaml:"fade_in"` // Seconds; 0 disables
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow int `yaml:"stats_window"` // Ticks between stats records
	PerfWindow  int `yaml:"perf_window"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	BlobPalette   []colorful.Color
	BlobWeights   []float64 // Cumulative, last element is the total
	RayPalette    []colorful.Color
	RayWeights    []float64
	PersonaWeight []float64 // Cumulative over Blobs.Personalities
	RaySpread     float64   // Radians
	Background    colorful.Color
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a fresh copy of the embedded defaults. Panics if they are invalid.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Clone returns a deep copy that can be edited and recomputed without touching c.
func (c *Config) Clone() *Config {
	out := *c
	out.Blobs.Palette = append([]SwatchConfig(nil), c.Blobs.Palette...)
	out.Blobs.Personalities = append([]PersonalityConfig(nil), c.Blobs.Personalities...)
	out.Rays.Palette = append([]SwatchConfig(nil), c.Rays.Palette...)
	out.Derived.BlobPalette = append([]colorful.Color(nil), c.Derived.BlobPalette...)
	out.Derived.BlobWeights = append([]float64(nil), c.Derived.BlobWeights...)
	out.Derived.RayPalette = append([]colorful.Color(nil), c.Derived.RayPalette...)
	out.Derived.RayWeights = append([]float64(nil), c.Derived.RayWeights...)
	out.Derived.PersonaWeight = append([]float64(nil), c.Derived.PersonaWeight...)
	return &out
}

// Recompute re-validates the config and refreshes derived values. Call after editing
// fields of a Config returned by Default in tests or tools.
func (c *Config) Recompute() error {
	if err := c.Validate(); err != nil {
		return err
	}
	return c.computeDerived()
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	checks := []struct {
		ok    bool
		field string
	}{
		{c.Sim.MaxDelta > 0, "sim.max_delta"},
		{c.Blobs.Count >= 0, "blobs.count"},
		{c.Blobs.MinCount <= c.Blobs.MaxCount || c.Blobs.MaxCount == 0, "blobs.min_count"},
		{c.Blobs.MinRadius > 0 && c.Blobs.MinRadius <= c.Blobs.MaxRadius, "blobs.min_radius"},
		{c.Blobs.MinMorphSpeed >= 0 && c.Blobs.MinMorphSpeed <= c.Blobs.MaxMorphSpeed, "blobs.min_morph_speed"},
		{len(c.Blobs.Palette) > 0, "blobs.palette"},
		{len(c.Blobs.Personalities) > 0, "blobs.personalities"},
		{c.Rays.Count >= 0, "rays.count"},
		{c.Rays.MinSize > 0 && c.Rays.MinSize <= c.Rays.MaxSize, "rays.min_size"},
		{c.Rays.Count == 0 || len(c.Rays.Palette) > 0, "rays.palette"},
		{c.Rays.Range > 0, "rays.range"},
		{c.Rays.Damping > 0 && c.Rays.Damping <= 1, "rays.damping"},
		{c.Rays.MaxSpeed > 0, "rays.max_speed"},
		{c.Rays.RetargetInterval > 0, "rays.retarget_interval"},
		{c.Forces.RepulsionFactor > 0, "forces.repulsion_factor"},
		{c.Forces.PointerRadiusFactor > 0, "forces.pointer_radius_factor"},
		{c.Forces.AttractionRadius > 0, "forces.attraction_radius"},
		{c.Forces.Restitution >= 0 && c.Forces.Restitution < 1, "forces.restitution"},
		{c.Forces.MinDistance > 0, "forces.min_distance"},
		{c.Lighting.SmoothingRate > 0 && c.Lighting.SmoothingRate <= 1, "lighting.smoothing_rate"},
		{c.Lighting.SettleTolerance > 0, "lighting.settle_tolerance"},
		{c.Shape.BlobVertices >= 3, "shape.blob_vertices"},
		{c.Shape.RayVertices >= 4, "shape.ray_vertices"},
		{c.Shape.Band > 0 && c.Shape.Band < 1, "shape.band"},
		{c.Shape.RaySpreadDeg > 0 && c.Shape.RaySpreadDeg < 180, "shape.ray_spread_deg"},
		{contains(Styles, c.Render.Style), "render.style"},
		{contains(MatrixPresets, c.Render.BlobMatrix), "render.blob_matrix"},
		{contains(BlendModes, c.Render.BlobBlend), "render.blob_blend"},
		{contains(BlendModes, c.Render.RayBlend), "render.ray_blend"},
		{c.Render.FadeIn >= 0, "render.fade_in"},
	}
	for _, chk := range checks {
		if !chk.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, chk.field)
		}
	}

	for i, p := range c.Blobs.Personalities {
		if !contains(PersonalityNames, p.Name) {
			return fmt.Errorf("%w: blobs.personalities[%d].name %q", ErrInvalid, i, p.Name)
		}
		if p.Damping <= 0 || p.Damping > 1 {
			return fmt.Errorf("%w: blobs.personalities[%d].damping", ErrInvalid, i)
		}
		// Morph phase must never run backwards.
		if !(p.Expressiveness >= 0) {
			return fmt.Errorf("%w: blobs.personalities[%d].expressiveness", ErrInvalid, i)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	var err error
	c.Derived.BlobPalette, c.Derived.BlobWeights, err = parsePalette(c.Blobs.Palette)
	if err != nil {
		return fmt.Errorf("%w: blobs.palette: %v", ErrInvalid, err)
	}
	c.Derived.RayPalette, c.Derived.RayWeights, err = parsePalette(c.Rays.Palette)
	if err != nil {
		return fmt.Errorf("%w: rays.palette: %v", ErrInvalid, err)
	}

	c.Derived.PersonaWeight = make([]float64, len(c.Blobs.Personalities))
	total := 0.0
	for i, p := range c.Blobs.Personalities {
		total += math.Max(p.Weight, 0)
		c.Derived.PersonaWeight[i] = total
	}

	c.Derived.RaySpread = c.Shape.RaySpreadDeg * math.Pi / 180

	c.Derived.Background = colorful.Color{}
	if c.Render.Background != "" {
		bg, err := colorful.Hex(c.Render.Background)
		if err != nil {
			return fmt.Errorf("%w: render.background: %v", ErrInvalid, err)
		}
		c.Derived.Background = bg
	}
	return nil
}

// parsePalette parses hex swatches and builds a cumulative weight table.
func parsePalette(swatches []SwatchConfig) ([]colorful.Color, []float64, error) {
	colors := make([]colorful.Color, len(swatches))
	weights := make([]float64, len(swatches))
	total := 0.0
	for i, s := range swatches {
		col, err := colorful.Hex(s.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("entry %d: %w", i, err)
		}
		colors[i] = col
		total += math.Max(s.Weight, 0)
		weights[i] = total
	}
	if len(swatches) > 0 && total <= 0 {
		return nil, nil, errors.New("weights sum to zero")
	}
	return colors, weights, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// PickWeighted returns the index whose cumulative weight bucket contains r*total.
// r must be in [0, 1).
func PickWeighted(cumulative []float64, r float64) int {
	if len(cumulative) == 0 {
		return -1
	}
	x := r * cumulative[len(cumulative)-1]
	for i, w := range cumulative {
		if x < w {
			return i
		}
	}
	return len(cumulative) - 1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
