package ui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/oilblob/scene"
)

// pickSlack widens the hit area around small blobs.
const pickSlack = 8

// Pick returns the blob under (x, y): the nearest blob whose radius plus
// pickSlack contains the point.
func Pick(s *scene.Scene, x, y float64) (scene.BlobView, bool) {
	var best scene.BlobView
	bestDist := math.Inf(1)
	found := false
	p := r2.Vec{X: x, Y: y}
	s.EachBlob(func(b scene.BlobView) {
		d := r2.Norm(r2.Sub(b.Pos, p))
		if d > b.Radius+pickSlack || d >= bestDist {
			return
		}
		best, bestDist, found = b, d, true
	})
	return best, found
}

// BlobInspector shows the selected blob's state.
type BlobInspector struct {
	renderer *Renderer
	x, y     int32
	width    int32

	selected    ecs.Entity
	hasSelected bool
	panel       PanelDescriptor
}

// NewBlobInspector creates a new inspector panel.
func NewBlobInspector(x, y, width int32) *BlobInspector {
	return &BlobInspector{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		panel:    blobPanel(),
	}
}

// SetPosition updates the inspector position.
func (ins *BlobInspector) SetPosition(x, y int32) {
	ins.x = x
	ins.y = y
}

// SelectAt selects the blob under (x, y), or clears the selection.
func (ins *BlobInspector) SelectAt(s *scene.Scene, x, y float64) bool {
	b, ok := Pick(s, x, y)
	ins.selected = b.Entity
	ins.hasSelected = ok
	return ok
}

// Clear drops the selection.
func (ins *BlobInspector) Clear() {
	ins.hasSelected = false
}

// Selected returns the current view of the selected blob. The selection is
// dropped once the blob no longer exists.
func (ins *BlobInspector) Selected(s *scene.Scene) (scene.BlobView, bool) {
	if !ins.hasSelected {
		return scene.BlobView{}, false
	}
	if !s.Alive(ins.selected) {
		ins.hasSelected = false
		return scene.BlobView{}, false
	}
	var view scene.BlobView
	found := false
	s.EachBlob(func(b scene.BlobView) {
		if b.Entity == ins.selected {
			view, found = b, true
		}
	})
	if !found {
		ins.hasSelected = false
	}
	return view, found
}

// Height returns the panel height for b.
func (ins *BlobInspector) Height(b *scene.BlobView) int32 {
	r := ins.renderer
	h := r.Theme.Padding*2 + previewHeight + 8
	for _, sd := range ins.panel.Sections {
		h += r.SectionHeight(sd, b)
	}
	return h
}

const previewHeight = 90

// Draw renders the inspector for the selected blob, if any.
func (ins *BlobInspector) Draw(s *scene.Scene) {
	b, ok := ins.Selected(s)
	if !ok {
		return
	}
	r := ins.renderer
	pad := r.Theme.Padding

	r.DrawPanel(ins.x, ins.y, ins.width, ins.Height(&b))

	y := ins.drawPreview(ins.x+pad, ins.y+pad, ins.width-pad*2, &b)
	y += 8

	for _, sd := range ins.panel.Sections {
		y = r.DrawSection(ins.x+pad, y, sd, &b, ins.width-pad*2)
	}

	// Ring the selection in the scene
	rl.DrawCircleLinesV(vec2(b.Pos), float32(b.Radius+pickSlack), r.Theme.SectionHeader)
}

// drawPreview draws the blob outline scaled into a box.
func (ins *BlobInspector) drawPreview(x, y, width int32, b *scene.BlobView) int32 {
	rl.DrawRectangle(x, y, width, previewHeight, rl.Color{R: 20, G: 28, B: 24, A: 255})
	rl.DrawRectangleLines(x, y, width, previewHeight, ins.renderer.Theme.PanelBorder)

	if len(b.Outline) < 3 || b.Radius <= 0 {
		return y + previewHeight
	}

	scale := float64(previewHeight-16) / (2 * b.Radius * 1.3)
	cx := float64(x) + float64(width)/2
	cy := float64(y) + previewHeight/2
	center := rl.Vector2{X: float32(cx), Y: float32(cy)}
	fill := toRL(b.Color, 255)

	n := len(b.Outline)
	for i := 0; i < n; i++ {
		a := r2.Scale(scale, r2.Sub(b.Outline[i], b.Pos))
		c := r2.Scale(scale, r2.Sub(b.Outline[(i+1)%n], b.Pos))
		// Counter-clockwise winding for raylib
		rl.DrawTriangle(
			center,
			rl.Vector2{X: float32(cx + c.X), Y: float32(cy + c.Y)},
			rl.Vector2{X: float32(cx + a.X), Y: float32(cy + a.Y)},
			fill,
		)
	}

	return y + previewHeight
}

func asBlob(data any) *scene.BlobView {
	b, _ := data.(*scene.BlobView)
	return b
}

// blobPanel lays out the inspector fields.
func blobPanel() PanelDescriptor {
	return PanelDescriptor{
		ID:    "blob",
		Title: "Blob",
		Sections: []SectionDescriptor{
			{
				ID:    "identity",
				Title: "Blob",
				Fields: []FieldDescriptor{
					{ID: "id", Label: "ID", Widget: WidgetText, TextGetter: func(d any) string {
						return fmt.Sprintf("#%d", asBlob(d).ID)
					}},
					{ID: "personality", Label: "Mood", Widget: WidgetText, TextGetter: func(d any) string {
						return asBlob(d).Personality.String()
					}},
					{ID: "radius", Label: "Radius", Widget: WidgetText, Format: "%.1f", Getter: func(d any) float32 {
						return float32(asBlob(d).Radius)
					}},
				},
			},
			{
				ID:    "motion",
				Title: "Motion",
				Fields: []FieldDescriptor{
					{ID: "pos", Label: "Position", Widget: WidgetText, TextGetter: func(d any) string {
						b := asBlob(d)
						return fmt.Sprintf("%.0f, %.0f", b.Pos.X, b.Pos.Y)
					}},
					{ID: "speed", Label: "Speed", Widget: WidgetBar, Range: FieldRange{Min: 0, Max: 4}, Getter: func(d any) float32 {
						return float32(r2.Norm(asBlob(d).Vel))
					}},
					{ID: "target", Label: "Target", Widget: WidgetText, Format: "%.0f px", Getter: func(d any) float32 {
						b := asBlob(d)
						return float32(r2.Norm(r2.Sub(b.Target, b.Pos)))
					}},
					{ID: "morph", Label: "Morph", Widget: WidgetText, Format: "%.4f", Getter: func(d any) float32 {
						return float32(asBlob(d).MorphSpeed)
					}},
				},
			},
			{
				ID:    "light",
				Title: "Light",
				Fields: []FieldDescriptor{
					{ID: "lit", Label: "Lit", Widget: WidgetBar, Range: DefaultRange(), Getter: func(d any) float32 {
						return float32(asBlob(d).Lit)
					}},
					{ID: "base", Label: "Base", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
						return toRL(asBlob(d).Base, 255)
					}},
					{ID: "color", Label: "Color", Widget: WidgetColorSwatch, ColorGetter: func(d any) rl.Color {
						return toRL(asBlob(d).Color, 255)
					}},
					{ID: "settled", Label: "Settled", Widget: WidgetText, TextGetter: func(d any) string {
						if asBlob(d).Settled {
							return "yes"
						}
						return "no"
					}},
				},
			},
		},
	}
}
