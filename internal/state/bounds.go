package state

import "CollabCanvas/internal/geometry"

// Bounds returns the unrotated box of l. Lines and arrows use the span of
// their endpoints; everything else uses x, y, width, height.
func Bounds(l Layer) geometry.Rect {
	c := l.common()
	switch v := l.(type) {
	case segmented:
		s := v.segment()
		return geometry.RectFromPoints(geometry.Point{X: c.X, Y: c.Y}, geometry.Point{X: s.X2, Y: s.Y2})
	case boxed:
		b := v.box()
		return geometry.Rect{X: c.X, Y: c.Y, Width: b.Width, Height: b.Height}
	}
	return geometry.Rect{X: c.X, Y: c.Y}
}

// SelectionBounds returns the axis-aligned box of l after applying its
// rotation about its own center.
func SelectionBounds(l Layer) geometry.Rect {
	return geometry.RotatedBounds(Bounds(l), l.common().Rotation)
}

// UnionBounds covers every listed layer that exists in d.
func UnionBounds(d *Document, ids []LayerID) (geometry.Rect, bool) {
	rects := make([]geometry.Rect, 0, len(ids))
	for _, id := range ids {
		if l, ok := d.Layer(id); ok {
			rects = append(rects, SelectionBounds(l))
		}
	}
	return geometry.Union(rects...)
}

// HitTolerance is how far from a line a pointer may land and still hit it.
const HitTolerance = 4

// Contains reports whether p lands on l, honouring its rotation. Groups are
// never hit directly: their children are.
func Contains(l Layer, p geometry.Point) bool {
	c := l.common()
	r := Bounds(l)
	switch v := l.(type) {
	case *Group:
		return false
	case *Ellipse:
		return geometry.PointInEllipse(p, r, c.Rotation)
	case *Line, *Arrow:
		a, b, _ := Endpoints(v)
		local := geometry.LocalPoint(p, r, c.Rotation)
		width := v.(segmented).segment().StrokeWidth
		return geometry.PointNearSegment(local, a, b, HitTolerance+width/2)
	case *Path:
		if !geometry.PointInRect(p, r.Expand(geometry.DefaultStrokeOptions.Size/2), c.Rotation) {
			return false
		}
		local := geometry.LocalPoint(p, r, c.Rotation).Sub(geometry.Point{X: c.X, Y: c.Y})
		return geometry.PointInPolygon(local, geometry.StrokeOutline(v.Points, geometry.DefaultStrokeOptions))
	}
	return geometry.PointInRect(p, r, c.Rotation)
}

// Translate returns a patch moving l by delta.
func Translate(l Layer, delta geometry.Point) Patch {
	c := l.common()
	p := Patch{X: Ptr(c.X + delta.X), Y: Ptr(c.Y + delta.Y)}
	if s, ok := l.(segmented); ok {
		seg := s.segment()
		p.X2 = Ptr(seg.X2 + delta.X)
		p.Y2 = Ptr(seg.Y2 + delta.Y)
	}
	return p
}

// FitTo returns a patch placing l's unrotated box at r. Line endpoints keep
// their relative corners; path points scale with the box.
func FitTo(l Layer, r geometry.Rect) Patch {
	r = r.Normalize()
	c := l.common()
	switch v := l.(type) {
	case segmented:
		from := Bounds(l)
		seg := v.segment()
		a := geometry.ScalePoint(geometry.Point{X: c.X, Y: c.Y}, from, r)
		b := geometry.ScalePoint(geometry.Point{X: seg.X2, Y: seg.Y2}, from, r)
		if from.Width == 0 {
			a.X, b.X = c.X+r.X-from.X, seg.X2+r.X-from.X
		}
		if from.Height == 0 {
			a.Y, b.Y = c.Y+r.Y-from.Y, seg.Y2+r.Y-from.Y
		}
		return Patch{X: Ptr(a.X), Y: Ptr(a.Y), X2: Ptr(b.X), Y2: Ptr(b.Y)}
	case *Path:
		p := Patch{X: Ptr(r.X), Y: Ptr(r.Y), Width: Ptr(r.Width), Height: Ptr(r.Height)}
		sx, sy := 1.0, 1.0
		if v.Width != 0 {
			sx = r.Width / v.Width
		}
		if v.Height != 0 {
			sy = r.Height / v.Height
		}
		if sx != 1 || sy != 1 {
			p.Points = geometry.ScaleStroke(v.Points, sx, sy)
		}
		return p
	}
	return Patch{X: Ptr(r.X), Y: Ptr(r.Y), Width: Ptr(r.Width), Height: Ptr(r.Height)}
}
