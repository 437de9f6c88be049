package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title   string
	Blobs   int
	Rays    int
	Lit     int
	Tick    uint64
	Speed   int
	FPS     int32
	Paused  bool
	Opacity float64
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Blobs: %d | Rays: %d | Lit: %d", data.Blobs, data.Rays, data.Lit),
		10, 35, 16, rl.LightGray,
	)

	rl.DrawText(
		fmt.Sprintf("Tick: %d | Speed: %dx | FPS: %d", data.Tick, data.Speed, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	statusText := "Running"
	switch {
	case data.Paused:
		statusText = "PAUSED"
	case data.Opacity < 1:
		statusText = fmt.Sprintf("Fading in %.0f%%", data.Opacity*100)
	}
	rl.DrawText(statusText, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the frame phase breakdown.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// PerfLine is one formatted phase row.
type PerfLine struct {
	Text  string
	Share float64
}

// PerfLines formats the phases of stats in frame order.
func PerfLines(stats telemetry.PerfStats) []PerfLine {
	lines := make([]PerfLine, 0, len(telemetry.Phases))
	for _, phase := range telemetry.Phases {
		avg, ok := stats.PhaseAvg[phase]
		if !ok {
			continue
		}
		pct := stats.PhasePct[phase]
		lines = append(lines, PerfLine{
			Text:  fmt.Sprintf("%-10s %8s %5.1f%%", phase, avg.Round(time.Microsecond), pct),
			Share: pct,
		})
	}
	return lines
}

// Draw renders the performance panel.
func (p *PerfPanel) Draw(stats telemetry.PerfStats) {
	x := p.x
	y := p.y

	rl.DrawText("Frame Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Frame: %s  (headroom %.0f fps)",
		stats.AvgFrameDuration.Round(time.Microsecond), stats.Headroom), x, y, 14, rl.Yellow)
	y += 16

	for _, line := range PerfLines(stats) {
		color := rl.LightGray
		if line.Share > 50 {
			color = rl.Red
		} else if line.Share > 25 {
			color = rl.Orange
		}
		rl.DrawText(line.Text, x, y, 12, color)
		y += 14
	}
}
