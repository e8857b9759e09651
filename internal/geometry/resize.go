package geometry

import "math"

// Side is a bitmask of the edges a resize handle moves. Corners are the OR of
// two edges.
type Side uint8

const (
	Top    Side = 1
	Bottom Side = 2
	Left   Side = 4
	Right  Side = 8

	TopLeft     = Top | Left
	TopRight    = Top | Right
	BottomLeft  = Bottom | Left
	BottomRight = Bottom | Right
)

// Sides lists the eight handle positions clockwise from the top-left corner.
var Sides = []Side{TopLeft, Top, TopRight, Right, BottomRight, Bottom, BottomLeft, Left}

// Has reports whether s includes every edge in edge.
func (s Side) Has(edge Side) bool { return s&edge == edge }

// Handle returns the position of the handle for s on bounds.
func (s Side) Handle(bounds Rect) Point {
	p := bounds.Center()
	switch {
	case s.Has(Left):
		p.X = bounds.X
	case s.Has(Right):
		p.X = bounds.Right()
	}
	switch {
	case s.Has(Top):
		p.Y = bounds.Y
	case s.Has(Bottom):
		p.Y = bounds.Bottom()
	}
	return p
}

// Resize moves the edges in side to point while the opposite edges stay put.
// Dragging past the opposite edge flips the rectangle. The result depends only
// on bounds, side and point, so repeating a resize with the same point is a
// no-op.
func Resize(bounds Rect, side Side, point Point) Rect {
	bounds = bounds.Normalize()
	left, right := bounds.X, bounds.Right()
	top, bottom := bounds.Y, bounds.Bottom()

	if side.Has(Left) {
		left = point.X
	}
	if side.Has(Right) {
		right = point.X
	}
	if side.Has(Top) {
		top = point.Y
	}
	if side.Has(Bottom) {
		bottom = point.Y
	}

	return Rect{
		X:      math.Min(left, right),
		Y:      math.Min(top, bottom),
		Width:  math.Abs(right - left),
		Height: math.Abs(bottom - top),
	}
}
