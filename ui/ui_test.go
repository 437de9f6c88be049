package ui

import (
	"math/rand"
	"testing"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/oilblob/components"
	"github.com/pthm-cable/oilblob/config"
	"github.com/pthm-cable/oilblob/scene"
	"github.com/pthm-cable/oilblob/telemetry"
)

// ---------- Overlays ----------

func TestOverlayRegistry_Toggle(t *testing.T) {
	reg := NewOverlayRegistry()

	if reg.IsEnabled(OverlayOutlines) {
		t.Fatal("overlays should start disabled")
	}
	if !reg.Toggle(OverlayOutlines) || !reg.IsEnabled(OverlayOutlines) {
		t.Fatal("toggle should enable")
	}
	if reg.Toggle(OverlayOutlines) {
		t.Fatal("second toggle should disable")
	}
	if reg.Toggle("missing") {
		t.Error("unknown overlay should not toggle")
	}
}

func TestOverlayRegistry_Exclusive(t *testing.T) {
	reg := &OverlayRegistry{
		byID:    make(map[OverlayID]OverlayDescriptor),
		enabled: make(map[OverlayID]bool),
	}
	reg.Register(OverlayDescriptor{ID: "a", Category: "x"})
	reg.Register(OverlayDescriptor{ID: "b", Category: "x", Exclusive: []OverlayID{"a"}})

	reg.SetEnabled("a", true)
	reg.Toggle("b")
	if reg.IsEnabled("a") || !reg.IsEnabled("b") {
		t.Errorf("enabling b should disable a: %v", reg.EnabledOverlays())
	}
}

func TestOverlayRegistry_Categories(t *testing.T) {
	reg := NewOverlayRegistry()
	cats := reg.Categories()
	want := []string{"shape", "motion", "lighting"}
	if len(cats) != len(want) {
		t.Fatalf("expected %v, got %v", want, cats)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("category %d: expected %q, got %q", i, want[i], cats[i])
		}
		if len(reg.ByCategory(want[i])) == 0 {
			t.Errorf("category %q has no overlays", want[i])
		}
	}
}

func TestOverlayRegistry_HandleKeyPress(t *testing.T) {
	reg := NewOverlayRegistry()
	desc, _ := reg.Get(OverlayLightRange)

	id, state, ok := reg.HandleKeyPress(desc.Key)
	if !ok || id != OverlayLightRange || !state {
		t.Errorf("expected light range enabled, got %q %v %v", id, state, ok)
	}
	if _, _, ok := reg.HandleKeyPress(-1); ok {
		t.Error("unbound key should not toggle")
	}
	if got := reg.EnabledOverlays(); len(got) != 1 || got[0] != OverlayLightRange {
		t.Errorf("expected only light range enabled, got %v", got)
	}
}

// ---------- Widgets ----------

func TestFieldRange_Normalize(t *testing.T) {
	tests := []struct {
		name string
		rng  FieldRange
		v    float32
		want float32
	}{
		{"middle", FieldRange{0, 10}, 5, 0.5},
		{"below", FieldRange{0, 10}, -3, 0},
		{"above", FieldRange{0, 10}, 12, 1},
		{"offset", FieldRange{2, 4}, 3, 0.5},
		{"empty range", FieldRange{1, 1}, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rng.Normalize(tt.v); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFieldText(t *testing.T) {
	getter := func(any) float32 { return 1.5 }
	tests := []struct {
		name string
		fd   FieldDescriptor
		want string
	}{
		{"text getter", FieldDescriptor{TextGetter: func(any) string { return "hi" }, Getter: getter}, "hi"},
		{"default format", FieldDescriptor{Getter: getter}, "1.50"},
		{"custom format", FieldDescriptor{Getter: getter, Format: "%.0f px"}, "2 px"},
		{"no getter", FieldDescriptor{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FieldText(tt.fd, nil); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSectionHeight(t *testing.T) {
	r := NewRenderer()
	line := r.Theme.LineHeight
	hidden := func(any) bool { return false }

	sd := SectionDescriptor{
		Title: "Motion",
		Fields: []FieldDescriptor{
			{Widget: WidgetText},
			{Widget: WidgetBar},
			{Widget: WidgetSpacer},
			{Widget: WidgetText, Visible: hidden},
		},
	}
	want := line + line + (line + 2) + 6 + 4
	if got := r.SectionHeight(sd, nil); got != want {
		t.Errorf("expected %d, got %d", want, got)
	}

	sd.Visible = hidden
	if got := r.SectionHeight(sd, nil); got != 0 {
		t.Errorf("hidden section should have no height, got %d", got)
	}
}

// ---------- Status ----------

func TestStatusState_SetSpeed(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, MinSpeed},
		{1.4, 1},
		{2.6, 3},
		{9, MaxSpeed},
	}
	for _, tt := range tests {
		s := DefaultStatusState()
		s.SetSpeed(tt.in)
		if s.Speed != tt.want {
			t.Errorf("SetSpeed(%v): expected %d, got %d", tt.in, tt.want, s.Speed)
		}
	}

	s := DefaultStatusState()
	s.StepSpeed(-1)
	if s.Speed != MinSpeed {
		t.Errorf("expected clamp at %d, got %d", MinSpeed, s.Speed)
	}
	for i := 0; i < 10; i++ {
		s.StepSpeed(1)
	}
	if s.Speed != MaxSpeed {
		t.Errorf("expected clamp at %d, got %d", MaxSpeed, s.Speed)
	}
}

func TestPerfLines_PhaseOrder(t *testing.T) {
	stats := telemetry.PerfStats{
		PhaseAvg: map[string]time.Duration{
			telemetry.PhaseComposite: 2 * time.Millisecond,
			telemetry.PhaseRays:      time.Millisecond,
		},
		PhasePct: map[string]float64{
			telemetry.PhaseComposite: 60,
			telemetry.PhaseRays:      30,
		},
	}
	lines := PerfLines(stats)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Share != 30 || lines[1].Share != 60 {
		t.Errorf("expected rays before composite, got %+v", lines)
	}
}

// ---------- Inspector ----------

func newPickScene(t *testing.T) *scene.Scene {
	t.Helper()
	c, _ := colorful.Hex("#2f6b4f")
	blobs := []scene.BlobSpec{
		{X: 100, Y: 100, Radius: 40, Color: c, Personality: components.Shy, MorphSpeed: 0.01},
		{X: 150, Y: 100, Radius: 40, Color: c, Personality: components.Curious, MorphSpeed: 0.01},
		{X: 400, Y: 300, Radius: 20, Color: c, Personality: components.Energetic, MorphSpeed: 0.01},
	}
	s, err := scene.NewFromSpecs(config.Default(), scene.Viewport{W: 600, H: 400}, rand.New(rand.NewSource(1)), blobs, nil)
	if err != nil {
		t.Fatalf("creating scene: %v", err)
	}
	return s
}

func TestPick(t *testing.T) {
	s := newPickScene(t)

	tests := []struct {
		name   string
		x, y   float64
		wantX  float64
		wantOK bool
	}{
		{"nearest of overlapping", 140, 100, 150, true},
		{"center", 100, 100, 100, true},
		{"within slack", 400, 325, 400, true},
		{"empty space", 300, 350, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := Pick(s, tt.x, tt.y)
			if ok != tt.wantOK {
				t.Fatalf("expected ok=%v, got %v", tt.wantOK, ok)
			}
			if ok && b.Pos.X != tt.wantX {
				t.Errorf("expected blob at x=%v, got %v", tt.wantX, b.Pos.X)
			}
		})
	}
}

func TestBlobInspector_SelectionDropsRemovedBlob(t *testing.T) {
	s := newPickScene(t)
	ins := NewBlobInspector(0, 0, 200)

	if !ins.SelectAt(s, 400, 300) {
		t.Fatal("expected a selection")
	}
	b, ok := ins.Selected(s)
	if !ok || b.Personality != components.Energetic {
		t.Fatalf("expected the energetic blob, got %+v %v", b, ok)
	}
	if h := ins.Height(&b); h <= previewHeight {
		t.Errorf("panel height %d should exceed the preview", h)
	}

	s.RemoveBlob(b.Entity)
	if _, ok := ins.Selected(s); ok {
		t.Error("selection should clear after the blob is removed")
	}

	if ins.SelectAt(s, 5, 5) {
		t.Error("empty click should clear the selection")
	}
}

// ---------- Graph ----------

func TestStatsHistory(t *testing.T) {
	h := NewStatsHistory()
	if lo, hi := h.Range([]int{seriesMeanSpeed}); lo != 0 || hi != 1 {
		t.Errorf("empty range should be (0, 1), got (%v, %v)", lo, hi)
	}

	for i := 0; i < graphHistorySize+5; i++ {
		h.Push(telemetry.SceneStats{MeanSpeed: float64(i), Blobs: 4, SettledColors: 2})
	}
	if h.Len() != graphHistorySize {
		t.Fatalf("expected %d windows, got %d", graphHistorySize, h.Len())
	}

	speeds := h.Values(seriesMeanSpeed)
	if speeds[0] != 5 || speeds[len(speeds)-1] != graphHistorySize+4 {
		t.Errorf("expected oldest 5 and newest %d, got %v and %v", graphHistorySize+4, speeds[0], speeds[len(speeds)-1])
	}
	if got := h.Values(seriesSettled)[0]; got != 0.5 {
		t.Errorf("expected settled ratio 0.5, got %v", got)
	}

	lo, hi := h.Range([]int{seriesMeanSpeed})
	if lo >= 5 || hi <= graphHistorySize+4 {
		t.Errorf("range (%v, %v) should pad the data", lo, hi)
	}
}
