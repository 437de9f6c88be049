package ui

import (
	"fmt"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/telemetry"
)

// Speed limits for the ticks-per-frame slider.
const (
	MinSpeed = 1
	MaxSpeed = 5
)

// StatusState is what the user can change from the status panel.
type StatusState struct {
	Paused bool
	Speed  int // Scene ticks per drawn frame
	Debug  bool
}

// DefaultStatusState returns a running, 1x state.
func DefaultStatusState() StatusState {
	return StatusState{Speed: MinSpeed}
}

// SetSpeed rounds v to the nearest whole speed within [MinSpeed, MaxSpeed].
func (s *StatusState) SetSpeed(v float64) {
	n := int(math.Round(v))
	if n < MinSpeed {
		n = MinSpeed
	}
	if n > MaxSpeed {
		n = MaxSpeed
	}
	s.Speed = n
}

// StepSpeed moves the speed by delta within the limits.
func (s *StatusState) StepSpeed(delta int) {
	s.SetSpeed(float64(s.Speed + delta))
}

// StatusData is the read-only information shown on the panel.
type StatusData struct {
	FPS   int32
	Tick  uint64
	Blobs int
	Rays  int
	Perf  telemetry.PerfStats
}

// StatusPanel is the raygui tuning panel in the top-right corner.
type StatusPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	height   int32
}

// NewStatusPanel creates a status panel at x, y.
func NewStatusPanel(x, y, width int32) *StatusPanel {
	return &StatusPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *StatusPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Contains reports whether (x, y) is over the panel as last drawn.
func (p *StatusPanel) Contains(x, y int32) bool {
	return x >= p.x && x < p.x+p.width && y >= p.y && y < p.y+p.height
}

// Draw renders the panel and returns the state after user interaction.
func (p *StatusPanel) Draw(state StatusState, data StatusData) StatusState {
	r := p.renderer
	pad := r.Theme.Padding
	line := r.Theme.LineHeight
	p.height = line*9 + pad*2

	r.DrawPanel(p.x, p.y, p.width, p.height)

	x := float32(p.x + pad)
	y := p.y + pad
	w := float32(p.width - pad*2)

	y = r.DrawSectionHeader(p.x+pad, y, "Background")

	state.Paused = gui.CheckBox(rl.Rectangle{X: x, Y: float32(y), Width: 12, Height: 12}, "Paused", state.Paused)
	y += line + 2

	state.Debug = gui.CheckBox(rl.Rectangle{X: x, Y: float32(y), Width: 12, Height: 12}, "Debug overlays", state.Debug)
	y += line + 2

	speed := gui.SliderBar(
		rl.Rectangle{X: x + 40, Y: float32(y), Width: w - 80, Height: 12},
		"Speed", fmt.Sprintf("%dx", state.Speed),
		float32(state.Speed), MinSpeed, MaxSpeed,
	)
	state.SetSpeed(float64(speed))
	y += line + 6

	y = r.DrawLabelValue(p.x+pad, y, "FPS", fmt.Sprintf("%d", data.FPS))
	y = r.DrawLabelValue(p.x+pad, y, "Tick", fmt.Sprintf("%d", data.Tick))
	y = r.DrawLabelValue(p.x+pad, y, "Entities", fmt.Sprintf("%d blobs, %d rays", data.Blobs, data.Rays))
	y = r.DrawLabelValue(p.x+pad, y, "Frame", fmt.Sprintf("%d us", data.Perf.AvgFrameDuration.Microseconds()))
	r.DrawLabelValue(p.x+pad, y, "Composite", fmt.Sprintf("%.0f%%", data.Perf.PhasePct[telemetry.PhaseComposite]))

	return state
}
