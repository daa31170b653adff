package ui

import (
	"math"

	"github.com/samdwyer/roomsep/internal/vmath"
)

// cellAspect is how many times taller a terminal cell is than it is wide.
const cellAspect = 2

// fitMargin leaves a border around the fitted layout.
const fitMargin = 0.9

// Viewport maps world coordinates onto terminal cells. World y grows up,
// screen rows grow down.
type Viewport struct {
	Center        vmath.Vec2
	Scale         float32 // Columns per world unit; rows use Scale/cellAspect
	Width, Height int     // Drawable area in cells
}

// FitViewport returns a viewport that shows the box [lo, hi] inside a
// width x height cell area.
func FitViewport(lo, hi vmath.Vec2, width, height int) Viewport {
	v := Viewport{
		Center: lo.Add(hi).Scale(0.5),
		Scale:  1,
		Width:  width,
		Height: height,
	}
	span := hi.Sub(lo)
	if span.X <= 0 || span.Y <= 0 || width <= 0 || height <= 0 {
		return v
	}
	sx := float32(width) / span.X
	sy := float32(height) * cellAspect / span.Y
	v.Scale = min(sx, sy) * fitMargin
	return v
}

// ToCell converts a world point to a cell coordinate.
func (v Viewport) ToCell(p vmath.Vec2) (x, y int) {
	fx := float64(v.Width)/2 + float64((p.X-v.Center.X)*v.Scale)
	fy := float64(v.Height)/2 - float64((p.Y-v.Center.Y)*v.Scale/cellAspect)
	return int(math.Floor(fx)), int(math.Floor(fy))
}

// RectCells returns the cell rectangle [x0, x1) x [y0, y1) covered by the box
// with the given center and size. Every box covers at least one cell.
func (v Viewport) RectCells(center, size vmath.Vec2) (x0, y0, x1, y1 int) {
	half := size.Scale(0.5)
	x0, y0 = v.ToCell(vmath.V(center.X-half.X, center.Y+half.Y))
	x1, y1 = v.ToCell(vmath.V(center.X+half.X, center.Y-half.Y))
	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	return x0, y0, x1, y1
}
