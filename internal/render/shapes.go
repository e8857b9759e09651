// Package render flattens layers into outlines in canvas coordinates and
// paints them with gg. The board widget and the PNG and PDF exports all draw
// from the same outlines.
package render

import (
	"image/color"
	"math"
	"strconv"
	"strings"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/state"
)

const (
	ellipseSteps = 48
	cornerSteps  = 6
	arrowHead    = 12
)

// Outline colors for layers that have no style of their own.
var (
	FrameBorder = color.NRGBA{R: 0xb3, G: 0xb3, B: 0xb3, A: 0xff}
	MediaFill   = color.NRGBA{R: 0xe6, G: 0xe6, B: 0xe6, A: 0xff}
	MediaBorder = color.NRGBA{R: 0x99, G: 0x99, B: 0x99, A: 0xff}
)

// Shape is one drawable layer.
type Shape struct {
	ID   state.LayerID
	Kind state.Kind
	// Points is a closed polygon, or an open polyline when Closed is false.
	Points []geometry.Point
	Closed bool
	// Head is the filled tip of an arrow.
	Head   []geometry.Point
	Fill   color.NRGBA
	Stroke color.NRGBA
	Width  float64

	// Bounds is the unrotated box; Label and Text are drawn from its
	// top-left corner.
	Bounds   geometry.Rect
	Rotation float64
	Label    string
	Text     string
	FontSize float64
}

// Shapes returns every visible layer of d back to front. Children of hidden
// containers are hidden too; groups have no outline of their own.
func Shapes(d *state.Document) []Shape {
	var out []Shape
	for _, l := range d.Layers() {
		if d.Hidden(l.Base().ID) || l.Kind() == state.KindGroup {
			continue
		}
		out = append(out, Outline(l))
	}
	return out
}

// Outline flattens l.
func Outline(l state.Layer) Shape {
	b := l.Base()
	r := state.Bounds(l)
	alpha := opacity(b.Opacity)
	s := Shape{ID: b.ID, Kind: l.Kind(), Bounds: r, Rotation: b.Rotation, Closed: true}

	switch v := l.(type) {
	case *state.Rectangle:
		s.Points = roundedRect(r, v.CornerRadius)
		s.Fill = ParseColor(v.Fill, alpha)
	case *state.Ellipse:
		s.Points = ellipse(r)
		s.Fill = ParseColor(v.Fill, alpha)
	case *state.Star:
		s.Points = star(r, v.Vertices, v.InnerRatio)
		s.Fill = ParseColor(v.Fill, alpha)
	case *state.Polygon:
		s.Points = star(r, v.Sides, 1)
		s.Fill = ParseColor(v.Fill, alpha)
	case *state.Frame:
		s.Points = rect(r)
		s.Fill = ParseColor(v.Fill, alpha)
		s.Stroke, s.Width = FrameBorder, 1
		s.Label = b.Name
	case *state.Image:
		s.Points = rect(r)
		s.Fill, s.Stroke, s.Width = MediaFill, MediaBorder, 1
		s.Label = mediaLabel("image", v.Source)
	case *state.Video:
		s.Points = rect(r)
		s.Fill, s.Stroke, s.Width = MediaFill, MediaBorder, 1
		s.Label = mediaLabel("video", v.Source)
	case *state.Text:
		s.Points = rect(r)
		s.Text, s.FontSize = v.Text, v.FontSize
		s.Stroke = ParseColor(v.Fill, alpha)
	case *state.Path:
		origin := geometry.Point{X: r.X, Y: r.Y}
		for _, p := range geometry.StrokeOutline(v.Points, geometry.DefaultStrokeOptions) {
			s.Points = append(s.Points, p.Add(origin))
		}
		s.Fill = ParseColor(v.Fill, alpha)
	case *state.Line, *state.Arrow:
		a, z, _ := state.Endpoints(l)
		s.Points = []geometry.Point{a, z}
		s.Closed = false
		seg := segmentOf(l)
		s.Stroke, s.Width = ParseColor(seg.Stroke, alpha), seg.StrokeWidth
		if l.Kind() == state.KindArrow {
			s.Head = head(a, z, arrowHead+seg.StrokeWidth)
			s.Fill = s.Stroke
		}
	}

	c := r.Center()
	for i := range s.Points {
		s.Points[i] = geometry.RotatePoint(s.Points[i], c, b.Rotation)
	}
	for i := range s.Head {
		s.Head[i] = geometry.RotatePoint(s.Head[i], c, b.Rotation)
	}
	return s
}

// Draft is the outline of an uncommitted pencil stroke.
func Draft(points []geometry.StrokePoint, c state.Color) Shape {
	return Shape{
		Kind:   state.KindPath,
		Points: geometry.StrokeOutline(points, geometry.DefaultStrokeOptions),
		Closed: true,
		Fill:   ParseColor(c, 0xff),
	}
}

// Extent covers every point of shapes.
func Extent(shapes []Shape) (geometry.Rect, bool) {
	var rects []geometry.Rect
	for _, s := range shapes {
		for _, p := range s.Points {
			rects = append(rects, geometry.RectFromPoints(p, p))
		}
		for _, p := range s.Head {
			rects = append(rects, geometry.RectFromPoints(p, p))
		}
	}
	return geometry.Union(rects...)
}

func segmentOf(l state.Layer) state.Segment {
	switch v := l.(type) {
	case *state.Line:
		return v.Segment
	case *state.Arrow:
		return v.Segment
	}
	return state.Segment{}
}

func mediaLabel(kind, source string) string {
	if source == "" {
		return kind
	}
	return source
}

func opacity(o float64) uint8 {
	return uint8(math.Round(min(max(o, 0), 100) * 255 / 100))
}

// ParseColor reads "#rgb", "#rrggbb" or "#rrggbbaa" and scales its alpha by
// alpha/255. Anything else is black.
func ParseColor(c state.Color, alpha uint8) color.NRGBA {
	hex := strings.TrimPrefix(string(c), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	out := color.NRGBA{A: alpha}
	if len(hex) != 8 {
		return out
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return out
	}
	out.R, out.G, out.B = uint8(v>>24), uint8(v>>16), uint8(v>>8)
	out.A = uint8(uint32(v&0xff) * uint32(alpha) / 0xff)
	return out
}

func rect(r geometry.Rect) []geometry.Point {
	return []geometry.Point{
		{X: r.X, Y: r.Y},
		{X: r.Right(), Y: r.Y},
		{X: r.Right(), Y: r.Bottom()},
		{X: r.X, Y: r.Bottom()},
	}
}

func roundedRect(r geometry.Rect, radius float64) []geometry.Point {
	radius = min(radius, r.Width/2, r.Height/2)
	if radius <= 0 {
		return rect(r)
	}
	corners := []struct {
		c     geometry.Point
		start float64
	}{
		{geometry.Point{X: r.X + radius, Y: r.Y + radius}, math.Pi},
		{geometry.Point{X: r.Right() - radius, Y: r.Y + radius}, 1.5 * math.Pi},
		{geometry.Point{X: r.Right() - radius, Y: r.Bottom() - radius}, 0},
		{geometry.Point{X: r.X + radius, Y: r.Bottom() - radius}, 0.5 * math.Pi},
	}
	out := make([]geometry.Point, 0, 4*(cornerSteps+1))
	for _, k := range corners {
		for i := 0; i <= cornerSteps; i++ {
			a := k.start + 0.5*math.Pi*float64(i)/cornerSteps
			out = append(out, geometry.Point{X: k.c.X + radius*math.Cos(a), Y: k.c.Y + radius*math.Sin(a)})
		}
	}
	return out
}

func ellipse(r geometry.Rect) []geometry.Point {
	c := r.Center()
	out := make([]geometry.Point, ellipseSteps)
	for i := range out {
		a := 2 * math.Pi * float64(i) / ellipseSteps
		out[i] = geometry.Point{X: c.X + r.Width/2*math.Cos(a), Y: c.Y + r.Height/2*math.Sin(a)}
	}
	return out
}

// star places n outer points on the ellipse inscribed in r, starting at the
// top, with inner points at ratio of the radius between them. A ratio of 1
// gives a regular polygon.
func star(r geometry.Rect, n int, ratio float64) []geometry.Point {
	if n < 3 {
		n = 3
	}
	c := r.Center()
	step := math.Pi / float64(n)
	var out []geometry.Point
	for i := 0; i < 2*n; i++ {
		if ratio == 1 && i%2 == 1 {
			continue
		}
		k := 1.0
		if i%2 == 1 {
			k = ratio
		}
		a := -math.Pi/2 + step*float64(i)
		out = append(out, geometry.Point{X: c.X + k*r.Width/2*math.Cos(a), Y: c.Y + k*r.Height/2*math.Sin(a)})
	}
	return out
}

func head(from, to geometry.Point, size float64) []geometry.Point {
	a := math.Atan2(to.Y-from.Y, to.X-from.X)
	wing := math.Pi / 7
	return []geometry.Point{
		to,
		{X: to.X - size*math.Cos(a-wing), Y: to.Y - size*math.Sin(a-wing)},
		{X: to.X - size*math.Cos(a+wing), Y: to.Y - size*math.Sin(a+wing)},
	}
}
