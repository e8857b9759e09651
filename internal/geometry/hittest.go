package geometry

import "math"

// LocalPoint un-rotates p about the center of r so it can be tested against
// the unrotated shape.
func LocalPoint(p Point, r Rect, deg float64) Point {
	return RotatePoint(p, r.Center(), -deg)
}

// PointInRect tests p against r rotated by deg about its center.
func PointInRect(p Point, r Rect, deg float64) bool {
	return r.Normalize().Contains(LocalPoint(p, r, deg))
}

// PointInEllipse tests p against the ellipse inscribed in r rotated by deg.
func PointInEllipse(p Point, r Rect, deg float64) bool {
	r = r.Normalize()
	if r.Width == 0 || r.Height == 0 {
		return false
	}
	local := LocalPoint(p, r, deg)
	c := r.Center()
	rx, ry := r.Width/2, r.Height/2
	dx, dy := (local.X-c.X)/rx, (local.Y-c.Y)/ry
	return dx*dx+dy*dy <= 1
}

// DistanceToSegment returns the shortest distance from p to the segment ab.
func DistanceToSegment(p, a, b Point) float64 {
	abx, aby := b.X-a.X, b.Y-a.Y
	lenSq := abx*abx + aby*aby
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*abx + (p.Y-a.Y)*aby) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(p.X-(a.X+t*abx), p.Y-(a.Y+t*aby))
}

// PointNearSegment tests p against the segment ab widened by tolerance on
// both sides.
func PointNearSegment(p, a, b Point, tolerance float64) bool {
	return DistanceToSegment(p, a, b) <= tolerance
}

// PointInPolygon runs an even-odd ray cast against poly.
func PointInPolygon(p Point, poly []Point) bool {
	inside := false
	for i, j := 0, len(poly)-1; i < len(poly); j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Y > p.Y) != (b.Y > p.Y) &&
			p.X < (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y)+a.X {
			inside = !inside
		}
	}
	return inside
}
