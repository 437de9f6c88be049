package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/scene"
)

// SnapshotVersion is incremented when the format changes.
const SnapshotVersion = 1

// Snapshot holds enough scene state to rebuild it with scene.NewFromSpecs.
type Snapshot struct {
	Version int   `json:"version"`
	Seed    int64 `json:"seed"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Tick uint64 `json:"tick"`

	Blobs []BlobState `json:"blobs"`
	Rays  []RayState  `json:"rays"`
}

// BlobState holds one blob's state.
type BlobState struct {
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	VelX        float64 `json:"vel_x"`
	VelY        float64 `json:"vel_y"`
	Radius      float64 `json:"radius"`
	Phase       float64 `json:"phase"`
	MorphSpeed  float64 `json:"morph_speed"`
	Color       string  `json:"color"`
	Personality string  `json:"personality"`
}

// RayState holds one ray's state.
type RayState struct {
	ID        int     `json:"id"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Size      float64 `json:"size"`
	Color     string  `json:"color"`
	Intensity float64 `json:"intensity"`
	Range     float64 `json:"range"`
}

// CaptureSnapshot records the current state of s.
func CaptureSnapshot(s *scene.Scene, seed int64) *Snapshot {
	vp := s.Viewport()
	snap := &Snapshot{
		Version: SnapshotVersion,
		Seed:    seed,
		Width:   vp.W,
		Height:  vp.H,
		Tick:    s.Ticks(),
	}
	s.EachBlob(func(b scene.BlobView) {
		snap.Blobs = append(snap.Blobs, BlobState{
			ID:          b.ID,
			X:           b.Pos.X,
			Y:           b.Pos.Y,
			VelX:        b.Vel.X,
			VelY:        b.Vel.Y,
			Radius:      b.Radius,
			Phase:       b.Phase,
			MorphSpeed:  b.MorphSpeed,
			Color:       b.Base.Hex(),
			Personality: b.Personality.String(),
		})
	})
	s.EachRay(func(r scene.RayView) {
		snap.Rays = append(snap.Rays, RayState{
			ID:        r.ID,
			X:         r.Pos.X,
			Y:         r.Pos.Y,
			Size:      r.Size,
			Color:     r.Color.Hex(),
			Intensity: r.Intensity,
			Range:     r.Range,
		})
	})
	return snap
}

// Specs converts the snapshot back into spawn specs.
func (snap *Snapshot) Specs() ([]scene.BlobSpec, []scene.RaySpec, error) {
	blobs := make([]scene.BlobSpec, 0, len(snap.Blobs))
	for _, b := range snap.Blobs {
		c, err := colorful.Hex(b.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("blob %d color: %w", b.ID, err)
		}
		kind, err := components.ParsePersonality(b.Personality)
		if err != nil {
			return nil, nil, fmt.Errorf("blob %d: %w", b.ID, err)
		}
		if !(b.MorphSpeed >= 0) {
			return nil, nil, fmt.Errorf("blob %d: negative morph speed %v", b.ID, b.MorphSpeed)
		}
		blobs = append(blobs, scene.BlobSpec{
			X: b.X, Y: b.Y, VX: b.VelX, VY: b.VelY,
			Radius:      b.Radius,
			Color:       c,
			Personality: kind,
			MorphSpeed:  b.MorphSpeed,
			Phase:       b.Phase,
		})
	}

	rays := make([]scene.RaySpec, 0, len(snap.Rays))
	for _, r := range snap.Rays {
		c, err := colorful.Hex(r.Color)
		if err != nil {
			return nil, nil, fmt.Errorf("ray %d color: %w", r.ID, err)
		}
		rays = append(rays, scene.RaySpec{
			X: r.X, Y: r.Y,
			Size:      r.Size,
			Color:     c,
			Intensity: r.Intensity,
			Range:     r.Range,
		})
	}
	return blobs, rays, nil
}

// SaveSnapshot writes a snapshot to disk.
// Returns the filepath where it was saved.
func SaveSnapshot(snapshot *Snapshot, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("snapshot_%d.json", snapshot.Tick))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	return path, nil
}

// LoadSnapshot reads a snapshot from disk.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("snapshot version %d, want %d", snapshot.Version, SnapshotVersion)
	}

	return &snapshot, nil
}
