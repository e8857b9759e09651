package state

import (
	"slices"

	"CollabCanvas/internal/geometry"
)

// Ptr returns a pointer to v. Patches use it for optional fields.
func Ptr[T any](v T) *T { return &v }

// Patch names the fields a transaction writes on one layer. Nil fields are
// left alone, so patches touching different fields of the same layer commute.
// Fields a variant does not have are ignored. Structure (parent and
// children) is changed through reparent ops, never through a patch.
type Patch struct {
	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`
	Name     *string  `json:"name,omitempty"`
	Hidden   *bool    `json:"hidden,omitempty"`
	Locked   *bool    `json:"locked,omitempty"`

	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	X2          *float64 `json:"x2,omitempty"`
	Y2          *float64 `json:"y2,omitempty"`
	Stroke      *Color   `json:"stroke,omitempty"`
	StrokeWidth *float64 `json:"strokeWidth,omitempty"`

	Fill         *Color                 `json:"fill,omitempty"`
	CornerRadius *float64               `json:"cornerRadius,omitempty"`
	Text         *string                `json:"text,omitempty"`
	FontSize     *float64               `json:"fontSize,omitempty"`
	Points       []geometry.StrokePoint `json:"points,omitempty"`
	Vertices     *int                   `json:"vertices,omitempty"`
	InnerRatio   *float64               `json:"innerRatio,omitempty"`
	Sides        *int                   `json:"sides,omitempty"`
	Source       *string                `json:"source,omitempty"`
}

// IsZero reports whether the patch writes nothing.
func (p Patch) IsZero() bool {
	return p.X == nil && p.Y == nil && p.Opacity == nil && p.Rotation == nil &&
		p.Name == nil && p.Hidden == nil && p.Locked == nil &&
		p.Width == nil && p.Height == nil && p.X2 == nil && p.Y2 == nil &&
		p.Stroke == nil && p.StrokeWidth == nil && p.Fill == nil &&
		p.CornerRadius == nil && p.Text == nil && p.FontSize == nil &&
		p.Points == nil && p.Vertices == nil && p.InnerRatio == nil &&
		p.Sides == nil && p.Source == nil
}

// set writes *v into dst and records the previous value in rev. It reports
// whether the value changed.
func set[T comparable](dst *T, v *T, rev **T) bool {
	if v == nil {
		return false
	}
	old := *dst
	*rev = &old
	if old == *v {
		return false
	}
	*dst = *v
	return true
}

// applyPatch returns a copy of l with p written, the patch that restores the
// previous values, and whether anything changed.
func applyPatch(l Layer, p Patch) (Layer, Patch, bool) {
	next := l.clone()
	var rev Patch
	changed := false
	mark := func(c bool) { changed = changed || c }

	c := next.common()
	mark(set(&c.X, p.X, &rev.X))
	mark(set(&c.Y, p.Y, &rev.Y))
	if p.Opacity != nil {
		o := min(max(*p.Opacity, 0), 100)
		mark(set(&c.Opacity, &o, &rev.Opacity))
	}
	mark(set(&c.Rotation, p.Rotation, &rev.Rotation))
	mark(set(&c.Name, p.Name, &rev.Name))
	mark(set(&c.Hidden, p.Hidden, &rev.Hidden))
	mark(set(&c.Locked, p.Locked, &rev.Locked))

	if b, ok := next.(boxed); ok {
		box := b.box()
		mark(set(&box.Width, p.Width, &rev.Width))
		mark(set(&box.Height, p.Height, &rev.Height))
	}
	if s, ok := next.(segmented); ok {
		seg := s.segment()
		mark(set(&seg.X2, p.X2, &rev.X2))
		mark(set(&seg.Y2, p.Y2, &rev.Y2))
		mark(set(&seg.Stroke, p.Stroke, &rev.Stroke))
		mark(set(&seg.StrokeWidth, p.StrokeWidth, &rev.StrokeWidth))
	}

	switch v := next.(type) {
	case *Rectangle:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
		mark(set(&v.CornerRadius, p.CornerRadius, &rev.CornerRadius))
	case *Ellipse:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
	case *Path:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
		if p.Points != nil {
			rev.Points = slices.Clone(v.Points)
			if !slices.Equal(v.Points, p.Points) {
				v.Points = slices.Clone(p.Points)
				changed = true
			}
		}
	case *Text:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
		mark(set(&v.Text, p.Text, &rev.Text))
		mark(set(&v.FontSize, p.FontSize, &rev.FontSize))
	case *Frame:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
	case *Star:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
		mark(set(&v.Vertices, p.Vertices, &rev.Vertices))
		mark(set(&v.InnerRatio, p.InnerRatio, &rev.InnerRatio))
	case *Polygon:
		mark(set(&v.Fill, p.Fill, &rev.Fill))
		mark(set(&v.Sides, p.Sides, &rev.Sides))
	case *Image:
		mark(set(&v.Source, p.Source, &rev.Source))
	case *Video:
		mark(set(&v.Source, p.Source, &rev.Source))
	case *Group, *Line, *Arrow:
	}
	return next, rev, changed
}
