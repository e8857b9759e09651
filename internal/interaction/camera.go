package interaction

import "CollabCanvas/internal/geometry"

// Zoom limits.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// Camera maps canvas coordinates to the screen: screen = canvas*Zoom + (X, Y).
// It is local to one client and never replicated.
type Camera struct {
	X, Y float64
	Zoom float64
}

// NewCamera returns the identity camera.
func NewCamera() Camera { return Camera{Zoom: 1} }

func (c Camera) zoom() float64 {
	if c.Zoom <= 0 {
		return 1
	}
	return c.Zoom
}

// ScreenToCanvas converts a screen position to canvas coordinates.
func (c Camera) ScreenToCanvas(p geometry.Point) geometry.Point {
	z := c.zoom()
	return geometry.Point{X: (p.X - c.X) / z, Y: (p.Y - c.Y) / z}
}

// CanvasToScreen converts a canvas position to screen coordinates.
func (c Camera) CanvasToScreen(p geometry.Point) geometry.Point {
	z := c.zoom()
	return geometry.Point{X: p.X*z + c.X, Y: p.Y*z + c.Y}
}

// Pan moves the camera by a screen delta, whatever the zoom.
func (c Camera) Pan(delta geometry.Point) Camera {
	c.X += delta.X
	c.Y += delta.Y
	return c
}

// ZoomAt multiplies the zoom by factor, keeping the canvas point under the
// screen position at fixed.
func (c Camera) ZoomAt(at geometry.Point, factor float64) Camera {
	z := c.zoom()
	next := min(max(z*factor, MinZoom), MaxZoom)
	c.X = at.X - (at.X-c.X)*next/z
	c.Y = at.Y - (at.Y-c.Y)*next/z
	c.Zoom = next
	return c
}
