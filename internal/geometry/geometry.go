// Package geometry holds the pure math behind the canvas: bounds, resize,
// rotation, overlap and hit tests. Nothing here knows about layers.
package geometry

import "math"

// Point is a position in canvas coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by q.
func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Rect is an axis-aligned rectangle. Width and Height are never negative once
// normalized.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromPoints builds the rectangle spanned by two corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Rect{
		X:      math.Min(a.X, b.X),
		Y:      math.Min(a.Y, b.Y),
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

// Normalize flips negative extents so Width and Height are >= 0.
func (r Rect) Normalize() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

func (r Rect) Right() float64  { return r.X + r.Width }
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Expand grows r by d on every side (shrinks for negative d).
func (r Rect) Expand(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Translate moves r by delta.
func (r Rect) Translate(delta Point) Rect {
	r.X += delta.X
	r.Y += delta.Y
	return r
}

// Union returns the smallest rectangle covering every input. The second
// result is false when rects is empty.
func Union(rects ...Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	first := rects[0].Normalize()
	minX, minY := first.X, first.Y
	maxX, maxY := first.Right(), first.Bottom()
	for _, r := range rects[1:] {
		r = r.Normalize()
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.Right())
		maxY = math.Max(maxY, r.Bottom())
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// Overlaps reports whether a and b share any area or edge. There is no
// containment rule: any overlap on both axes qualifies.
func Overlaps(a, b Rect) bool {
	a, b = a.Normalize(), b.Normalize()
	return !(a.Right() < b.X || b.Right() < a.X ||
		a.Bottom() < b.Y || b.Bottom() < a.Y)
}

// ScaleRect maps r from the from frame into the to frame, keeping its
// relative position and proportions.
func ScaleRect(r, from, to Rect) Rect {
	sx, sy := 1.0, 1.0
	if from.Width != 0 {
		sx = to.Width / from.Width
	}
	if from.Height != 0 {
		sy = to.Height / from.Height
	}
	return Rect{
		X:      to.X + (r.X-from.X)*sx,
		Y:      to.Y + (r.Y-from.Y)*sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
}

// ScalePoint maps p from the from frame into the to frame.
func ScalePoint(p Point, from, to Rect) Point {
	r := ScaleRect(Rect{X: p.X, Y: p.Y}, from, to)
	return Point{X: r.X, Y: r.Y}
}
