package habitat

import "fmt"

// Location is a cell on a specific grid. Two locations are equal when they
// name the same cell of the same grid. Obtain one from Grid.At.
type Location struct {
	X, Y int
	grid *Grid
}

// Grid returns the owning grid.
func (l Location) Grid() *Grid { return l.grid }

// Add steps one cell in direction d, clamped to the grid bounds.
func (l Location) Add(d Direction) Location {
	dx, dy := d.Delta()
	return Location{
		X:    clamp(l.X+dx, 0, l.grid.width-1),
		Y:    clamp(l.Y+dy, 0, l.grid.height-1),
		grid: l.grid,
	}
}

// Occupied reports whether an agent holds this cell.
func (l Location) Occupied() bool { return l.grid.Occupied(l) }

// XValue maps the column to [-1, 1]: -1 left edge, +1 right edge.
func (l Location) XValue() float64 { return normalize(l.X, l.grid.width) }

// YValue maps the row to [-1, 1]: -1 top edge, +1 bottom edge.
func (l Location) YValue() float64 { return normalize(l.Y, l.grid.height) }

// Border is 0 at the centre and 1 on any edge.
func (l Location) Border() float64 {
	return max(abs(l.XValue()), abs(l.YValue()))
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.X, l.Y)
}

func normalize(v, size int) float64 {
	if size <= 1 {
		return 0
	}
	return float64(v)/float64(size-1)*2 - 1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
