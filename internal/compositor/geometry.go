package compositor

import (
	"errors"
	"fmt"
	"image"
)

// ErrInvalidGeometry is returned for grids or target sizes that cannot be laid out.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Geometry is the grid layout. Cells are integer-sized, so the canvas is
// exactly GridWidth*CellWidth by GridHeight*CellHeight and may be a few
// pixels smaller than the target size.
type Geometry struct {
	GridWidth  int
	GridHeight int
	CellWidth  int
	CellHeight int
}

// NewGeometry divides a target canvas of targetWidth×targetHeight into a
// gridWidth×gridHeight grid.
func NewGeometry(gridWidth, gridHeight, targetWidth, targetHeight int) (Geometry, error) {
	if gridWidth < 1 || gridHeight < 1 {
		return Geometry{}, fmt.Errorf("%w: grid %dx%d", ErrInvalidGeometry, gridWidth, gridHeight)
	}
	g := Geometry{
		GridWidth:  gridWidth,
		GridHeight: gridHeight,
		CellWidth:  targetWidth / gridWidth,
		CellHeight: targetHeight / gridHeight,
	}
	if g.CellWidth < 1 || g.CellHeight < 1 {
		return Geometry{}, fmt.Errorf("%w: %dx%d target too small for a %dx%d grid",
			ErrInvalidGeometry, targetWidth, targetHeight, gridWidth, gridHeight)
	}
	return g, nil
}

// Cells returns the number of grid cells.
func (g Geometry) Cells() int {
	return g.GridWidth * g.GridHeight
}

// CanvasSize returns the exact canvas size.
func (g Geometry) CanvasSize() (width, height int) {
	return g.GridWidth * g.CellWidth, g.GridHeight * g.CellHeight
}

// CellRect returns the canvas rectangle of the cell at a row-major index.
func (g Geometry) CellRect(index int) image.Rectangle {
	row, col := index/g.GridWidth, index%g.GridWidth
	x, y := col*g.CellWidth, row*g.CellHeight
	return image.Rect(x, y, x+g.CellWidth, y+g.CellHeight)
}

func (g Geometry) String() string {
	w, h := g.CanvasSize()
	return fmt.Sprintf("%dx%d grid of %dx%d cells (%dx%d)",
		g.GridWidth, g.GridHeight, g.CellWidth, g.CellHeight, w, h)
}
