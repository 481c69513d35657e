package geom

import (
	"fmt"
	"math"

	"seehuhn.de/go/geom/rect"
	"seehuhn.de/go/geom/vec"
)

// Bounds is an axis-aligned bounding box in canvas units.
// Bounds values are never mutated; transforms return new instances and keep Z.
type Bounds struct {
	XMin float64 `json:"x_min" yaml:"x_min"`
	YMin float64 `json:"y_min" yaml:"y_min"`
	XMax float64 `json:"x_max" yaml:"x_max"`
	YMax float64 `json:"y_max" yaml:"y_max"`
	Z    int     `json:"z_index,omitempty" yaml:"z_index,omitempty"`
}

// FromCenter builds a box of the given size centered on c.
func FromCenter(c vec.Vec2, width, height float64) Bounds {
	width, height = math.Max(width, 0), math.Max(height, 0)
	return Bounds{
		XMin: c.X - width/2,
		YMin: c.Y - height/2,
		XMax: c.X + width/2,
		YMax: c.Y + height/2,
	}
}

// FromRect converts a [rect.Rect] into Bounds with a zero Z index.
func FromRect(r rect.Rect) Bounds {
	return Bounds{XMin: r.LLx, YMin: r.LLy, XMax: r.URx, YMax: r.URy}
}

// Rect returns the box as a [rect.Rect]. The Z index is dropped.
func (b Bounds) Rect() rect.Rect {
	return rect.Rect{LLx: b.XMin, LLy: b.YMin, URx: b.XMax, URy: b.YMax}
}

// Width returns the horizontal extent of the box.
func (b Bounds) Width() float64 { return b.XMax - b.XMin }

// Height returns the vertical extent of the box.
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

// Center returns the midpoint of the box.
func (b Bounds) Center() vec.Vec2 {
	return vec.Vec2{X: (b.XMin + b.XMax) / 2, Y: (b.YMin + b.YMax) / 2}
}

// Area returns width × height, or 0 for invalid boxes.
func (b Bounds) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has finite coordinates with XMax ≥ XMin and YMax ≥ YMin.
func (b Bounds) Valid() bool {
	for _, v := range [...]float64{b.XMin, b.YMin, b.XMax, b.YMax} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return b.XMax >= b.XMin && b.YMax >= b.YMin
}

// Degenerate reports whether the box encloses no area.
func (b Bounds) Degenerate() bool { return b.Area() <= 0 }

// AspectRatio returns width / height, or 0 for a box without height.
func (b Bounds) AspectRatio() float64 {
	if b.Height() <= 0 {
		return 0
	}
	return b.Width() / b.Height()
}

// Overlaps reports whether b, inflated by buffer on every side, intersects o.
// Touching edges do not count as an overlap when buffer is 0.
// Degenerate boxes never overlap anything.
func (b Bounds) Overlaps(o Bounds, buffer float64) bool {
	if b.Degenerate() || o.Degenerate() {
		return false
	}
	return !(b.XMax+buffer <= o.XMin ||
		b.XMin-buffer >= o.XMax ||
		b.YMax+buffer <= o.YMin ||
		b.YMin-buffer >= o.YMax)
}

// IntersectionArea returns the area of the clipped overlap of b and o.
func (b Bounds) IntersectionArea(o Bounds) float64 {
	if b.Degenerate() || o.Degenerate() {
		return 0
	}
	dx := math.Min(b.XMax, o.XMax) - math.Max(b.XMin, o.XMin)
	dy := math.Min(b.YMax, o.YMax) - math.Max(b.YMin, o.YMin)
	if dx <= 0 || dy <= 0 {
		return 0
	}
	return dx * dy
}

// Contains reports whether inner lies completely inside b.
func (b Bounds) Contains(inner Bounds) bool {
	return inner.XMin >= b.XMin && inner.XMax <= b.XMax &&
		inner.YMin >= b.YMin && inner.YMax <= b.YMax
}

// ContainsPoint reports whether p lies inside b, edges included.
func (b Bounds) ContainsPoint(p vec.Vec2) bool {
	return p.X >= b.XMin && p.X <= b.XMax && p.Y >= b.YMin && p.Y <= b.YMax
}

// Scale resizes the box around its center. Factors ≤ 0 collapse the box to its center.
func (b Bounds) Scale(factor float64) Bounds {
	factor = math.Max(factor, 0)
	out := FromCenter(b.Center(), b.Width()*factor, b.Height()*factor)
	out.Z = b.Z
	return out
}

// MoveTo translates the box so that its center is c.
func (b Bounds) MoveTo(c vec.Vec2) Bounds {
	out := FromCenter(c, b.Width(), b.Height())
	out.Z = b.Z
	return out
}

// Translate shifts the box by d.
func (b Bounds) Translate(d vec.Vec2) Bounds {
	return Bounds{
		XMin: b.XMin + d.X,
		YMin: b.YMin + d.Y,
		XMax: b.XMax + d.X,
		YMax: b.YMax + d.Y,
		Z:    b.Z,
	}
}

// ScaleToFit returns the largest factor ≤ 1 such that b scaled by the factor,
// then shrunk by fill, fits inside container. A fill of 1 fits exactly.
func (b Bounds) ScaleToFit(container Bounds, fill float64) float64 {
	if b.Degenerate() {
		return 1
	}
	sx, sy := 1.0, 1.0
	if b.Width() > 0 {
		sx = math.Min(1, container.Width()/b.Width()*fill)
	}
	if b.Height() > 0 {
		sy = math.Min(1, container.Height()/b.Height()*fill)
	}
	return math.Max(0, math.Min(sx, sy))
}

// FitInto scales b down (never up) until it fits container with the given
// fill fraction and centers it there.
func (b Bounds) FitInto(container Bounds, fill float64) Bounds {
	if f := b.ScaleToFit(container, fill); f < 1 {
		b = b.Scale(f)
	}
	return b.MoveTo(container.Center())
}

// ClampInto scales b down to fit container if needed and then moves it by
// the smallest offset that brings it fully inside. Edges are snapped to the
// container so the result is contained despite rounding.
func (b Bounds) ClampInto(container Bounds) Bounds {
	if f := b.ScaleToFit(container, 1); f < 1 {
		b = b.Scale(f)
	}
	w := math.Min(b.Width(), container.Width())
	h := math.Min(b.Height(), container.Height())
	x0 := clampEdge(b.XMin, w, container.XMin, container.XMax)
	y0 := clampEdge(b.YMin, h, container.YMin, container.YMax)
	return Bounds{
		XMin: x0,
		YMin: y0,
		XMax: math.Min(x0+w, container.XMax),
		YMax: math.Min(y0+h, container.YMax),
		Z:    b.Z,
	}
}

func clampEdge(start, size, lo, hi float64) float64 {
	switch {
	case start < lo:
		return lo
	case start+size > hi:
		return math.Max(lo, hi-size)
	}
	return start
}

// Grid returns rows×cols evenly spaced interior points of b, row by row from
// the bottom-left. The points split each axis into cols+1 (rows+1) equal steps.
func (b Bounds) Grid(rows, cols int) []vec.Vec2 {
	if rows <= 0 || cols <= 0 {
		return nil
	}
	xStep := b.Width() / float64(cols+1)
	yStep := b.Height() / float64(rows+1)
	pts := make([]vec.Vec2, 0, rows*cols)
	for i := 1; i <= rows; i++ {
		for j := 1; j <= cols; j++ {
			pts = append(pts, vec.Vec2{X: b.XMin + float64(j)*xStep, Y: b.YMin + float64(i)*yStep})
		}
	}
	return pts
}

// Union returns the smallest box covering every input box. Degenerate inputs
// are skipped; the result is the zero Bounds when nothing remains.
func Union(boxes ...Bounds) Bounds {
	var (
		r     rect.Rect
		found bool
	)
	for _, b := range boxes {
		if b.Degenerate() {
			continue
		}
		if !found {
			r, found = b.Rect(), true
			continue
		}
		r.LLx, r.LLy = math.Min(r.LLx, b.XMin), math.Min(r.LLy, b.YMin)
		r.URx, r.URy = math.Max(r.URx, b.XMax), math.Max(r.URy, b.YMax)
	}
	if !found {
		return Bounds{}
	}
	return FromRect(r)
}

// String formats the box as "[x_min,y_min → x_max,y_max]".
func (b Bounds) String() string {
	return fmt.Sprintf("[%.2f,%.2f → %.2f,%.2f]", b.XMin, b.YMin, b.XMax, b.YMax)
}
