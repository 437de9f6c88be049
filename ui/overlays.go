package ui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
)

// OverlayID uniquely identifies an overlay.
type OverlayID string

// Standard overlay IDs.
const (
	OverlayOutlines    OverlayID = "outlines"
	OverlayTargets     OverlayID = "targets"
	OverlayRayLinks    OverlayID = "ray_links"
	OverlayLightRange  OverlayID = "light_range"
	OverlayPointer     OverlayID = "pointer"
	OverlayVelocity    OverlayID = "velocity"
	OverlayHideEffects OverlayID = "hide_effects"
)

// OverlayDescriptor defines an overlay that can be toggled.
type OverlayDescriptor struct {
	ID          OverlayID   // Unique identifier
	Name        string      // Display name
	Description string      // What this overlay shows
	Key         int32       // Keyboard key to toggle (0 = no key)
	KeyLabel    string      // Key label for display (e.g., "O", "T")
	Category    string      // Grouping (e.g., "shape", "motion", "lighting")
	Exclusive   []OverlayID // Other overlays to disable when this is enabled
}

// OverlayRegistry manages overlay state and metadata.
type OverlayRegistry struct {
	descriptors []OverlayDescriptor
	byID        map[OverlayID]OverlayDescriptor
	enabled     map[OverlayID]bool
	order       []OverlayID // Maintains insertion order for display
}

// NewOverlayRegistry creates a registry with default overlays.
func NewOverlayRegistry() *OverlayRegistry {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.registerDefaults()
	return reg
}

// registerDefaults adds standard overlays.
func (r *OverlayRegistry) registerDefaults() {
	r.Register(OverlayDescriptor{
		ID:          OverlayOutlines,
		Name:        "Outlines",
		Description: "Draw blob and ray polygons as lines",
		Key:         rl.KeyO,
		KeyLabel:    "O",
		Category:    "shape",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayHideEffects,
		Name:        "Hide Effects",
		Description: "Skip the composite and show outlines only",
		Key:         rl.KeyH,
		KeyLabel:    "H",
		Category:    "shape",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayTargets,
		Name:        "Wander Targets",
		Description: "Line from each blob to its wander target",
		Key:         rl.KeyT,
		KeyLabel:    "T",
		Category:    "motion",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayVelocity,
		Name:        "Velocity",
		Description: "Velocity vector of every entity",
		Key:         rl.KeyV,
		KeyLabel:    "V",
		Category:    "motion",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayPointer,
		Name:        "Pointer Radius",
		Description: "Pointer avoidance radius around each blob",
		Key:         rl.KeyP,
		KeyLabel:    "P",
		Category:    "motion",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayRayLinks,
		Name:        "Ray Targets",
		Description: "Line from each ray to the blob it seeks",
		Key:         rl.KeyR,
		KeyLabel:    "R",
		Category:    "lighting",
	})

	r.Register(OverlayDescriptor{
		ID:          OverlayLightRange,
		Name:        "Light Range",
		Description: "Circle of each ray's lighting range",
		Key:         rl.KeyL,
		KeyLabel:    "L",
		Category:    "lighting",
	})
}

// Register adds an overlay to the registry.
func (r *OverlayRegistry) Register(desc OverlayDescriptor) {
	r.descriptors = append(r.descriptors, desc)
	r.byID[desc.ID] = desc
	r.order = append(r.order, desc.ID)
	r.enabled[desc.ID] = false
}

// Toggle switches an overlay on/off and handles exclusivity.
func (r *OverlayRegistry) Toggle(id OverlayID) bool {
	desc, ok := r.byID[id]
	if !ok {
		return false
	}

	newState := !r.enabled[id]
	r.enabled[id] = newState

	// If enabling, disable exclusive overlays
	if newState {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}

	return newState
}

// SetEnabled explicitly sets an overlay's state.
func (r *OverlayRegistry) SetEnabled(id OverlayID, enabled bool) {
	desc, ok := r.byID[id]
	if !ok {
		return
	}

	r.enabled[id] = enabled

	// If enabling, disable exclusive overlays
	if enabled {
		for _, excl := range desc.Exclusive {
			r.enabled[excl] = false
		}
	}
}

// IsEnabled returns whether an overlay is active.
func (r *OverlayRegistry) IsEnabled(id OverlayID) bool {
	return r.enabled[id]
}

// Get returns an overlay descriptor by ID.
func (r *OverlayRegistry) Get(id OverlayID) (OverlayDescriptor, bool) {
	desc, ok := r.byID[id]
	return desc, ok
}

// All returns all registered overlays in registration order.
func (r *OverlayRegistry) All() []OverlayDescriptor {
	return r.descriptors
}

// ByCategory returns overlays filtered by category.
func (r *OverlayRegistry) ByCategory(category string) []OverlayDescriptor {
	var result []OverlayDescriptor
	for _, desc := range r.descriptors {
		if desc.Category == category {
			result = append(result, desc)
		}
	}
	return result
}

// Categories returns all unique categories in order.
func (r *OverlayRegistry) Categories() []string {
	seen := make(map[string]bool)
	var cats []string
	for _, desc := range r.descriptors {
		if !seen[desc.Category] {
			seen[desc.Category] = true
			cats = append(cats, desc.Category)
		}
	}
	return cats
}

// HandleKeyPress checks if a key corresponds to an overlay toggle.
// Returns the overlay ID and new state if a toggle occurred.
func (r *OverlayRegistry) HandleKeyPress(key int32) (OverlayID, bool, bool) {
	for _, desc := range r.descriptors {
		if desc.Key == key {
			newState := r.Toggle(desc.ID)
			return desc.ID, newState, true
		}
	}
	return "", false, false
}

// EnabledOverlays returns a list of currently enabled overlay IDs.
func (r *OverlayRegistry) EnabledOverlays() []OverlayID {
	var result []OverlayID
	for _, id := range r.order {
		if r.enabled[id] {
			result = append(result, id)
		}
	}
	return result
}
