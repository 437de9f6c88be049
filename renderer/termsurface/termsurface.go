// Package termsurface presents a raster surface on a terminal. Every cell shows two
// vertical pixels with an upper half block: the foreground paints the upper pixel and
// the background paints the lower one.
package termsurface

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/pthm-cable/oilblob/renderer"
	"github.com/pthm-cable/oilblob/renderer/raster"
)

const halfBlock = '▀'

// Surface maps a scene of sceneW x sceneH pixels onto the terminal grid.
type Surface struct {
	screen tcell.Screen
	raster *raster.Surface

	sceneW, sceneH int
	cols, rows     int
	released       bool
}

// New creates a surface on an initialised screen. The screen stays owned by the caller.
func New(screen tcell.Screen, sceneW, sceneH int, bg colorful.Color) *Surface {
	s := &Surface{screen: screen, sceneW: sceneW, sceneH: sceneH}
	s.cols, s.rows = screen.Size()
	s.raster = raster.New(s.cols, s.rows*2, bg, raster.WithScale(s.scale()))
	return s
}

func (s *Surface) scale() (float64, float64) {
	if s.sceneW <= 0 || s.sceneH <= 0 {
		return 1, 1
	}
	return float64(s.cols) / float64(s.sceneW), float64(s.rows*2) / float64(s.sceneH)
}

// Size returns the scene size the surface maps.
func (s *Surface) Size() (int, int) { return s.sceneW, s.sceneH }

// Cells returns the terminal grid size used for the last layout.
func (s *Surface) Cells() (int, int) { return s.cols, s.rows }

// Resize sets a new scene size and re-reads the terminal grid.
func (s *Surface) Resize(w, h int) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	s.sceneW, s.sceneH = w, h
	s.cols, s.rows = s.screen.Size()
	if err := s.raster.Resize(s.cols, s.rows*2); err != nil {
		return fmt.Errorf("resizing raster: %w", err)
	}
	s.raster.SetScale(s.scale())
	return nil
}

// NewLayer appends a layer on top.
func (s *Surface) NewLayer(chain renderer.FilterChain, blend renderer.BlendMode) (renderer.Layer, error) {
	if s.released {
		return nil, renderer.ErrSurfaceReleased
	}
	return s.raster.NewLayer(chain, blend)
}

// Render rasterises the frame and writes it to the screen.
func (s *Surface) Render(opacity float64) error {
	if s.released {
		return renderer.ErrSurfaceReleased
	}
	if err := s.raster.Render(opacity); err != nil {
		return err
	}
	for cy := 0; cy < s.rows; cy++ {
		for cx := 0; cx < s.cols; cx++ {
			upper := s.raster.At(cx, cy*2)
			lower := s.raster.At(cx, cy*2+1)
			style := tcell.StyleDefault.Foreground(toTcell(upper)).Background(toTcell(lower))
			s.screen.SetContent(cx, cy, halfBlock, nil, style)
		}
	}
	s.screen.Show()
	return nil
}

// CellToScene maps the centre of a terminal cell to scene coordinates.
func (s *Surface) CellToScene(cx, cy int) (float64, float64) {
	if s.cols == 0 || s.rows == 0 {
		return 0, 0
	}
	x := (float64(cx) + 0.5) / float64(s.cols) * float64(s.sceneW)
	y := (float64(cy) + 0.5) / float64(s.rows) * float64(s.sceneH)
	return x, y
}

// Destroy releases the raster buffers. Safe to call more than once.
func (s *Surface) Destroy() error {
	if s.released {
		return nil
	}
	s.released = true
	return s.raster.Destroy()
}

func toTcell(c colorful.Color) tcell.Color {
	r, g, b := c.Clamped().RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}
