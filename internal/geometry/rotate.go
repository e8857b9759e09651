package geometry

import "math"

func radians(deg float64) float64 { return deg * math.Pi / 180 }

// RotatePoint rotates p about center by deg degrees (clockwise on a y-down
// canvas).
func RotatePoint(p, center Point, deg float64) Point {
	if deg == 0 {
		return p
	}
	sin, cos := math.Sincos(radians(deg))
	dx, dy := p.X-center.X, p.Y-center.Y
	return Point{
		X: center.X + dx*cos - dy*sin,
		Y: center.Y + dx*sin + dy*cos,
	}
}

// Corners returns the four corners of r rotated by deg about its center,
// clockwise from the top-left.
func Corners(r Rect, deg float64) [4]Point {
	c := r.Center()
	return [4]Point{
		RotatePoint(Point{X: r.X, Y: r.Y}, c, deg),
		RotatePoint(Point{X: r.Right(), Y: r.Y}, c, deg),
		RotatePoint(Point{X: r.Right(), Y: r.Bottom()}, c, deg),
		RotatePoint(Point{X: r.X, Y: r.Bottom()}, c, deg),
	}
}

// RotatedBounds returns the axis-aligned box around r rotated by deg about
// its own center.
func RotatedBounds(r Rect, deg float64) Rect {
	if math.Mod(deg, 360) == 0 {
		return r
	}
	corners := Corners(r, deg)
	minX, minY := corners[0].X, corners[0].Y
	maxX, maxY := minX, minY
	for _, p := range corners[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Angle returns the direction from center to p in degrees, measured with
// atan2 in the range (-180, 180].
func Angle(center, p Point) float64 {
	return math.Atan2(p.Y-center.Y, p.X-center.X) * 180 / math.Pi
}

// NormalizeDegrees folds deg into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

// SnapDegrees rounds deg to the nearest multiple of step.
func SnapDegrees(deg, step float64) float64 {
	if step <= 0 {
		return deg
	}
	return math.Round(deg/step) * step
}
