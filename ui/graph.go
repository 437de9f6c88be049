package ui

import (
	"fmt"
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/oilblob/telemetry"
)

const (
	// History buffer size (number of stats windows to keep)
	graphHistorySize = 120

	// Series indices
	seriesMeanSpeed = 0
	seriesMaxSpeed  = 1
	seriesSepP10    = 2
	seriesSepP50    = 3
	seriesMeanLit   = 4
	seriesSettled   = 5
	numSeries       = 6
)

var (
	colorGraphBg     = rl.Color{R: 15, G: 22, B: 18, A: 255}
	colorGraphGrid   = rl.Color{R: 40, G: 50, B: 45, A: 255}
	colorGraphBorder = rl.Color{R: 60, G: 70, B: 65, A: 255}
	colorTextDim     = rl.Color{R: 150, G: 150, B: 150, A: 255}
	colorText        = rl.Color{R: 220, G: 220, B: 220, A: 255}
)

// StatsHistory is a ring buffer of scene stats windows, one series per metric.
type StatsHistory struct {
	history [numSeries][]float64
	index   int
	count   int
}

// NewStatsHistory creates an empty history.
func NewStatsHistory() *StatsHistory {
	h := &StatsHistory{}
	for i := 0; i < numSeries; i++ {
		h.history[i] = make([]float64, graphHistorySize)
	}
	return h
}

// Push records one stats window.
func (h *StatsHistory) Push(s telemetry.SceneStats) {
	settled := 0.0
	if s.Blobs > 0 {
		settled = float64(s.SettledColors) / float64(s.Blobs)
	}
	idx := h.index
	h.history[seriesMeanSpeed][idx] = s.MeanSpeed
	h.history[seriesMaxSpeed][idx] = s.MaxSpeed
	h.history[seriesSepP10][idx] = s.SepP10
	h.history[seriesSepP50][idx] = s.SepP50
	h.history[seriesMeanLit][idx] = s.MeanLit
	h.history[seriesSettled][idx] = settled

	h.index = (h.index + 1) % graphHistorySize
	if h.count < graphHistorySize {
		h.count++
	}
}

// Len returns the number of recorded windows.
func (h *StatsHistory) Len() int { return h.count }

// Values returns a series oldest first.
func (h *StatsHistory) Values(series int) []float64 {
	out := make([]float64, h.count)
	for i := 0; i < h.count; i++ {
		idx := (h.index - h.count + i + graphHistorySize) % graphHistorySize
		out[i] = h.history[series][idx]
	}
	return out
}

// Range returns a padded min/max across the given series. An empty or flat
// selection returns (0, 1).
func (h *StatsHistory) Range(series []int) (lo, hi float64) {
	lo = math.MaxFloat64
	hi = -math.MaxFloat64
	for _, s := range series {
		for _, v := range h.Values(s) {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if lo >= hi {
		return 0, 1
	}
	padding := math.Max((hi-lo)*0.1, 0.001)
	return lo - padding, hi + padding
}

// StatsGraph plots scene stats history along the bottom of the screen.
type StatsGraph struct {
	history *StatsHistory
	latest  telemetry.SceneStats

	panelX, panelY int32
	panelWidth     int32
	panelHeight    int32

	seriesVisible [numSeries]bool
	seriesNames   [numSeries]string
	seriesColors  [numSeries]rl.Color
}

// NewStatsGraph creates a graph sized for the screen.
func NewStatsGraph(screenWidth, screenHeight int32) *StatsGraph {
	g := &StatsGraph{
		history:     NewStatsHistory(),
		panelHeight: 180,
		seriesVisible: [numSeries]bool{
			true,  // Mean speed
			false, // Max speed
			true,  // Sep p10
			false, // Sep p50
			true,  // Lit
			true,  // Settled
		},
		seriesNames: [numSeries]string{
			"Speed", "MaxSpd", "Sep p10", "Sep p50", "Lit", "Settled",
		},
		seriesColors: [numSeries]rl.Color{
			{R: 120, G: 220, B: 255, A: 255},
			{R: 80, G: 140, B: 255, A: 255},
			{R: 255, G: 150, B: 130, A: 255},
			{R: 255, G: 100, B: 80, A: 255},
			{R: 255, G: 240, B: 150, A: 255},
			{R: 150, G: 255, B: 150, A: 255},
		},
	}
	g.Resize(screenWidth, screenHeight)
	return g
}

// Resize updates panel dimensions when the window is resized.
func (g *StatsGraph) Resize(screenWidth, screenHeight int32) {
	g.panelX = 10
	g.panelWidth = screenWidth - 20
	if g.panelWidth < 300 {
		g.panelWidth = 300
	}
	g.panelY = screenHeight - g.panelHeight - 40
}

// Update records a flushed stats window.
func (g *StatsGraph) Update(s telemetry.SceneStats) {
	g.latest = s
	g.history.Push(s)
}

// ToggleSeries flips the visibility of one series.
func (g *StatsGraph) ToggleSeries(i int) {
	if i >= 0 && i < numSeries {
		g.seriesVisible[i] = !g.seriesVisible[i]
	}
}

// legendItemWidth is the horizontal stride of legend entries.
const legendItemWidth = 88

// HandleInput processes mouse clicks for legend toggling.
func (g *StatsGraph) HandleInput() {
	if !rl.IsMouseButtonPressed(rl.MouseLeftButton) {
		return
	}
	mx := rl.GetMouseX()
	my := rl.GetMouseY()

	legendY := g.panelY + g.panelHeight - 24
	legendX := g.panelX + 10
	for i := 0; i < numSeries; i++ {
		itemX := legendX + int32(i)*legendItemWidth
		if mx >= itemX && mx < itemX+legendItemWidth-3 && my >= legendY && my < legendY+18 {
			g.ToggleSeries(i)
			return
		}
	}
}

// Draw renders the graph panel.
func (g *StatsGraph) Draw() {
	rl.DrawRectangle(g.panelX, g.panelY, g.panelWidth, g.panelHeight, rl.Color{R: 12, G: 22, B: 18, A: 225})
	rl.DrawRectangleLines(g.panelX, g.panelY, g.panelWidth, g.panelHeight, colorGraphBorder)
	rl.DrawText("SCENE", g.panelX+10, g.panelY+6, 14, colorText)

	if g.history.Len() == 0 {
		rl.DrawText("Waiting for data...", g.panelX+100, g.panelY+70, 14, colorTextDim)
		return
	}

	rl.DrawText(fmt.Sprintf("tick %d  blobs %d  rays %d  lit %d",
		g.latest.Tick, g.latest.Blobs, g.latest.Rays, g.latest.LitBlobs),
		g.panelX+80, g.panelY+8, 11, colorTextDim)

	graphX := g.panelX + 10
	graphY := g.panelY + 26
	graphW := g.panelWidth - 20
	graphH := g.panelHeight - 56

	g.drawGraph(graphX, graphY, graphW, graphH)
	g.drawLegend(g.panelX+10, g.panelY+g.panelHeight-24)
}

// drawGraph renders the line graph. Speeds and separations share the left
// scale; the 0..1 ratios use their own.
func (g *StatsGraph) drawGraph(x, y, w, h int32) {
	rl.DrawRectangle(x, y, w, h, colorGraphBg)
	rl.DrawRectangleLines(x, y, w, h, colorGraphBorder)
	for i := int32(1); i < 4; i++ {
		gridY := y + (h * i / 4)
		rl.DrawLine(x, gridY, x+w, gridY, colorGraphGrid)
	}

	if g.history.Len() < 2 {
		return
	}

	for _, group := range [][]int{
		{seriesMeanSpeed, seriesMaxSpeed},
		{seriesSepP10, seriesSepP50},
		{seriesMeanLit, seriesSettled},
	} {
		var visible []int
		for _, s := range group {
			if g.seriesVisible[s] {
				visible = append(visible, s)
			}
		}
		if len(visible) == 0 {
			continue
		}
		lo, hi := g.history.Range(visible)
		for _, s := range visible {
			g.drawSeriesLine(x, y, w, h, s, lo, hi)
		}
	}
}

// drawSeriesLine draws one data series as a line.
func (g *StatsGraph) drawSeriesLine(x, y, w, h int32, series int, lo, hi float64) {
	values := g.history.Values(series)
	span := hi - lo
	if span <= 0 {
		span = 1
	}
	var prevX, prevY int32
	for i, v := range values {
		px := x + int32(float64(i)*float64(w)/float64(len(values)-1))
		py := y + h - int32((v-lo)/span*float64(h))
		if py < y {
			py = y
		}
		if py > y+h {
			py = y + h
		}
		if i > 0 {
			rl.DrawLine(prevX, prevY, px, py, g.seriesColors[series])
		}
		prevX, prevY = px, py
	}
}

// drawLegend draws the interactive legend.
func (g *StatsGraph) drawLegend(x, y int32) {
	for i := 0; i < numSeries; i++ {
		itemX := x + int32(i)*legendItemWidth
		color := g.seriesColors[i]
		textColor := colorText
		if !g.seriesVisible[i] {
			color.A = 80
			textColor = colorTextDim
		}
		rl.DrawRectangle(itemX, y+2, 10, 10, color)
		rl.DrawText(g.seriesNames[i], itemX+14, y, 11, textColor)
	}
	rl.DrawText("(click to toggle)", x+int32(numSeries)*legendItemWidth+10, y, 10, colorTextDim)
}
