package systems

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"
)

// minCellSize keeps the grid bounded for tiny or degenerate radii.
const minCellSize = 16

// BlobGrid is a uniform grid over blob snapshot indices for neighbour lookups.
// Positions outside the viewport are clamped into the edge cells.
type BlobGrid struct {
	cellSize  float64
	cols      int
	rows      int
	maxRadius float64
	cells     [][]int
}

// NewBlobGrid creates an empty grid.
func NewBlobGrid() *BlobGrid {
	return &BlobGrid{cellSize: minCellSize}
}

// Rebuild indexes blobs over vp. The cell size follows the largest repulsion reach
// so that a query touches at most the 3x3 cells around its centre.
func (g *BlobGrid) Rebuild(blobs []BlobSample, vp Viewport, fp ForceParams) {
	g.maxRadius = 0
	for i := range blobs {
		g.maxRadius = math.Max(g.maxRadius, blobs[i].Radius)
	}
	g.cellSize = math.Max(2*g.maxRadius*fp.RepulsionFactor, minCellSize)

	cols := int(math.Max(vp.W, 0)/g.cellSize) + 1
	rows := int(math.Max(vp.H, 0)/g.cellSize) + 1
	if cols*rows != len(g.cells) {
		g.cells = make([][]int, cols*rows)
	}
	g.cols, g.rows = cols, rows
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}

	for i := range blobs {
		idx := g.cellIndex(blobs[i].Pos)
		g.cells[idx] = append(g.cells[idx], i)
	}
}

// MaxRadius returns the largest radius seen by the last Rebuild.
func (g *BlobGrid) MaxRadius() float64 { return g.maxRadius }

// QueryInto appends the indices of every blob in cells within radius of p to dst,
// in ascending order. Callers still test exact distance.
func (g *BlobGrid) QueryInto(dst []int, p r2.Vec, radius float64) []int {
	if g.cols == 0 {
		return dst
	}
	start := len(dst)
	minCol, minRow := g.cellCoords(r2.Vec{X: p.X - radius, Y: p.Y - radius})
	maxCol, maxRow := g.cellCoords(r2.Vec{X: p.X + radius, Y: p.Y + radius})
	for row := minRow; row <= maxRow; row++ {
		for col := minCol; col <= maxCol; col++ {
			dst = append(dst, g.cells[row*g.cols+col]...)
		}
	}
	slices.Sort(dst[start:])
	return dst
}

// cellCoords returns the clamped column and row for a position.
func (g *BlobGrid) cellCoords(p r2.Vec) (int, int) {
	col := int(p.X / g.cellSize)
	row := int(p.Y / g.cellSize)

	// Clamp to valid range
	if col < 0 || math.IsNaN(p.X) {
		col = 0
	} else if col >= g.cols {
		col = g.cols - 1
	}
	if row < 0 || math.IsNaN(p.Y) {
		row = 0
	} else if row >= g.rows {
		row = g.rows - 1
	}
	return col, row
}

// cellIndex returns the flat index for a position.
func (g *BlobGrid) cellIndex(p r2.Vec) int {
	col, row := g.cellCoords(p)
	return row*g.cols + col
}

// RepulsionReach is the distance beyond which no blob can repel one of radius r.
func (g *BlobGrid) RepulsionReach(r float64, fp ForceParams) float64 {
	return (r + g.maxRadius) * fp.RepulsionFactor
}
