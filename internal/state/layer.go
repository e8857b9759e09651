package state

import (
	"slices"

	"CollabCanvas/internal/geometry"

	"github.com/google/uuid"
)

// LayerID identifies a layer across every replica.
type LayerID string

// NewLayerID mints a fresh, globally unique layer id.
func NewLayerID() LayerID { return LayerID(uuid.NewString()) }

// Color is a CSS-style color string such as "#d9d9d9".
type Color string

// Kind is the discriminant of the layer union.
type Kind string

const (
	KindRectangle Kind = "rectangle"
	KindEllipse   Kind = "ellipse"
	KindPath      Kind = "path"
	KindText      Kind = "text"
	KindFrame     Kind = "frame"
	KindGroup     Kind = "group"
	KindStar      Kind = "star"
	KindLine      Kind = "line"
	KindArrow     Kind = "arrow"
	KindPolygon   Kind = "polygon"
	KindImage     Kind = "image"
	KindVideo     Kind = "video"
)

// Kinds lists every variant.
var Kinds = []Kind{
	KindRectangle, KindEllipse, KindPath, KindText, KindFrame, KindGroup,
	KindStar, KindLine, KindArrow, KindPolygon, KindImage, KindVideo,
}

// Layer is one object in the document. The set of implementations is closed:
// *Rectangle, *Ellipse, *Path, *Text, *Frame, *Group, *Star, *Line, *Arrow,
// *Polygon, *Image and *Video.
//
// Layers read from a Document are shared with it and must not be modified.
type Layer interface {
	Kind() Kind
	Base() Common
	common() *Common
	clone() Layer
}

// Common holds the fields every variant carries.
type Common struct {
	ID       LayerID `json:"id"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Opacity  float64 `json:"opacity"`
	Rotation float64 `json:"rotation,omitempty"`
	Name     string  `json:"name,omitempty"`
	Hidden   bool    `json:"hidden,omitempty"`
	Locked   bool    `json:"locked,omitempty"`
	ParentID LayerID `json:"parentId,omitempty"`
}

// Base returns a copy of the common fields.
func (c *Common) Base() Common     { return *c }
func (c *Common) common() *Common { return c }

// Box is the extent of an area shape.
type Box struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (b *Box) box() *Box { return b }

// Segment is the second endpoint and stroke of a line or arrow.
type Segment struct {
	X2          float64 `json:"x2"`
	Y2          float64 `json:"y2"`
	Stroke      Color   `json:"stroke,omitempty"`
	StrokeWidth float64 `json:"strokeWidth,omitempty"`
}

func (s *Segment) segment() *Segment { return s }

type Rectangle struct {
	Common
	Box
	Fill         Color   `json:"fill,omitempty"`
	CornerRadius float64 `json:"cornerRadius,omitempty"`
}

type Ellipse struct {
	Common
	Box
	Fill Color `json:"fill,omitempty"`
}

// Path is a committed freehand stroke. Points are relative to the layer's
// top-left corner so the path moves as a rigid body.
type Path struct {
	Common
	Box
	Fill   Color                  `json:"fill,omitempty"`
	Points []geometry.StrokePoint `json:"points"`
}

type Text struct {
	Common
	Box
	Fill     Color   `json:"fill,omitempty"`
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize,omitempty"`
}

// Frame is a named, filled container.
type Frame struct {
	Common
	Box
	Fill     Color     `json:"fill,omitempty"`
	Children []LayerID `json:"children"`
}

// Group is an unstyled container whose box covers its children.
type Group struct {
	Common
	Box
	Children []LayerID `json:"children"`
}

type Star struct {
	Common
	Box
	Fill       Color   `json:"fill,omitempty"`
	Vertices   int     `json:"vertices"`
	InnerRatio float64 `json:"innerRatio"`
}

type Line struct {
	Common
	Segment
}

type Arrow struct {
	Common
	Segment
}

type Polygon struct {
	Common
	Box
	Fill  Color `json:"fill,omitempty"`
	Sides int   `json:"sides"`
}

type Image struct {
	Common
	Box
	Source string `json:"source,omitempty"`
}

type Video struct {
	Common
	Box
	Source string `json:"source,omitempty"`
}

func (*Rectangle) Kind() Kind { return KindRectangle }
func (*Ellipse) Kind() Kind   { return KindEllipse }
func (*Path) Kind() Kind      { return KindPath }
func (*Text) Kind() Kind      { return KindText }
func (*Frame) Kind() Kind     { return KindFrame }
func (*Group) Kind() Kind     { return KindGroup }
func (*Star) Kind() Kind      { return KindStar }
func (*Line) Kind() Kind      { return KindLine }
func (*Arrow) Kind() Kind     { return KindArrow }
func (*Polygon) Kind() Kind   { return KindPolygon }
func (*Image) Kind() Kind     { return KindImage }
func (*Video) Kind() Kind     { return KindVideo }

func (l *Rectangle) clone() Layer { c := *l; return &c }
func (l *Ellipse) clone() Layer   { c := *l; return &c }
func (l *Text) clone() Layer      { c := *l; return &c }
func (l *Star) clone() Layer      { c := *l; return &c }
func (l *Line) clone() Layer      { c := *l; return &c }
func (l *Arrow) clone() Layer     { c := *l; return &c }
func (l *Polygon) clone() Layer   { c := *l; return &c }
func (l *Image) clone() Layer     { c := *l; return &c }
func (l *Video) clone() Layer     { c := *l; return &c }

func (l *Path) clone() Layer {
	c := *l
	c.Points = slices.Clone(l.Points)
	return &c
}

func (l *Frame) clone() Layer {
	c := *l
	c.Children = slices.Clone(l.Children)
	return &c
}

func (l *Group) clone() Layer {
	c := *l
	c.Children = slices.Clone(l.Children)
	return &c
}

func (l *Frame) children() *[]LayerID { return &l.Children }
func (l *Group) children() *[]LayerID { return &l.Children }

type boxed interface{ box() *Box }
type segmented interface{ segment() *Segment }
type container interface{ children() *[]LayerID }

// Clone returns a deep copy that is safe to modify.
func Clone(l Layer) Layer { return l.clone() }

// WithID returns a copy of l carrying id.
func WithID(l Layer, id LayerID) Layer {
	c := l.clone()
	c.common().ID = id
	return c
}

// IsContainer reports whether l can hold children (frames and groups).
func IsContainer(l Layer) bool {
	_, ok := l.(container)
	return ok
}

// Children returns a copy of a container's child ids, or nil.
func Children(l Layer) []LayerID {
	if c, ok := l.(container); ok {
		return slices.Clone(*c.children())
	}
	return nil
}

// IsSegment reports whether l is positioned by two endpoints.
func IsSegment(l Layer) bool {
	_, ok := l.(segmented)
	return ok
}

// Endpoints returns both ends of a line or arrow.
func Endpoints(l Layer) (a, b geometry.Point, ok bool) {
	s, ok := l.(segmented)
	if !ok {
		return a, b, false
	}
	c := l.common()
	seg := s.segment()
	return geometry.Point{X: c.X, Y: c.Y}, geometry.Point{X: seg.X2, Y: seg.Y2}, true
}

// Defaults used when a layer is inserted with the pointer.
const (
	DefaultSize       = 100
	DefaultOpacity    = 100
	DefaultFill Color = "#d9d9d9"
	DefaultInk  Color = "#1e1e1e"
	FrameFill   Color = "#ffffff"
)

// New builds a layer of kind at p with the kind's default size and style.
// The id is left empty; the store assigns one on insert.
func New(kind Kind, p geometry.Point) Layer {
	base := Common{X: p.X, Y: p.Y, Opacity: DefaultOpacity}
	square := Box{Width: DefaultSize, Height: DefaultSize}
	switch kind {
	case KindRectangle:
		return &Rectangle{Common: base, Box: square, Fill: DefaultFill}
	case KindEllipse:
		return &Ellipse{Common: base, Box: square, Fill: DefaultFill}
	case KindPath:
		return &Path{Common: base, Fill: DefaultInk}
	case KindText:
		return &Text{Common: base, Box: Box{Width: DefaultSize, Height: 40}, Fill: DefaultInk, Text: "Text", FontSize: 16}
	case KindFrame:
		base.Name = "Frame"
		return &Frame{Common: base, Box: Box{Width: 2 * DefaultSize, Height: 2 * DefaultSize}, Fill: FrameFill}
	case KindGroup:
		return &Group{Common: base}
	case KindStar:
		return &Star{Common: base, Box: square, Fill: DefaultFill, Vertices: 5, InnerRatio: 0.5}
	case KindLine:
		return &Line{Common: base, Segment: Segment{X2: p.X + DefaultSize, Y2: p.Y, Stroke: DefaultInk, StrokeWidth: 2}}
	case KindArrow:
		return &Arrow{Common: base, Segment: Segment{X2: p.X + DefaultSize, Y2: p.Y, Stroke: DefaultInk, StrokeWidth: 2}}
	case KindPolygon:
		return &Polygon{Common: base, Box: square, Fill: DefaultFill, Sides: 6}
	case KindImage:
		return &Image{Common: base, Box: Box{Width: 160, Height: 90}}
	case KindVideo:
		return &Video{Common: base, Box: Box{Width: 160, Height: 90}}
	}
	return nil
}

// NewPath turns absolute freehand samples into a path layer whose box is the
// samples' extent and whose points are relative to that box.
func NewPath(samples []geometry.StrokePoint, fill Color) (*Path, bool) {
	bounds, ok := geometry.StrokeBounds(samples)
	if !ok {
		return nil, false
	}
	origin := geometry.Point{X: bounds.X, Y: bounds.Y}
	return &Path{
		Common: Common{X: bounds.X, Y: bounds.Y, Opacity: DefaultOpacity},
		Box:    Box{Width: bounds.Width, Height: bounds.Height},
		Fill:   fill,
		Points: geometry.RelativeStroke(samples, origin),
	}, true
}
