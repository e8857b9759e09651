package interaction

import (
	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/state"
)

// Mode is the state of the pointer state machine.
type Mode int

const (
	ModeNone Mode = iota
	ModePressing
	ModeSelectionNet
	ModeTranslating
	ModeResizing
	ModeRotating
	ModeScaling
	ModeInserting
	ModePencil
	ModeDragging
	ModeRightClick
)

var modeNames = [...]string{
	ModeNone:         "none",
	ModePressing:     "pressing",
	ModeSelectionNet: "selection-net",
	ModeTranslating:  "translating",
	ModeResizing:     "resizing",
	ModeRotating:     "rotating",
	ModeScaling:      "scaling",
	ModeInserting:    "inserting",
	ModePencil:       "pencil",
	ModeDragging:     "dragging",
	ModeRightClick:   "right-click",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

// State is the whole client-local gesture state. Only the fields of the
// current Mode are meaningful. Points are in canvas coordinates unless noted.
type State struct {
	Mode Mode

	// Pressing, SelectionNet, Inserting, RightClick.
	Origin geometry.Point
	// SelectionNet, Translating, Inserting: the latest pointer position.
	Current geometry.Point
	// SelectionNet: the selection when the net started, kept when shift is held.
	Base []state.LayerID

	// Inserting.
	Kind state.Kind

	// Resizing, Scaling, Rotating: the layers as they were when the gesture
	// started, the box being transformed, its rotation and the handle in use.
	Originals []state.Layer
	Initial   geometry.Rect
	Rotation  float64
	Side      geometry.Side

	// Rotating.
	Center     geometry.Point
	StartAngle float64

	// Resizing, Scaling, Rotating: patches shown locally and written on
	// release.
	Preview map[state.LayerID]state.Patch

	// Pencil: a stroke is being drawn.
	Drawing bool

	// Dragging: the button is down; Last is in screen coordinates.
	Armed     bool
	Last      geometry.Point
	Temporary bool
}

// Tool is what the next primary press does.
type Tool struct {
	Mode Mode
	Kind state.Kind
}

var (
	SelectTool = Tool{Mode: ModeNone}
	HandTool   = Tool{Mode: ModeDragging}
	PencilTool = Tool{Mode: ModePencil}
)

// InsertTool inserts a layer of kind on the next click.
func InsertTool(kind state.Kind) Tool { return Tool{Mode: ModeInserting, Kind: kind} }

// Button is a pointer button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonSecondary
	ButtonMiddle
)

// PointerEvent is a pointer sample in screen coordinates.
type PointerEvent struct {
	Point    geometry.Point
	Button   Button
	Shift    bool
	Ctrl     bool
	Alt      bool
	Pressure float64
}

// WheelEvent is a scroll in screen coordinates. With Ctrl held a positive DY
// zooms in about Point; otherwise the camera pans by (DX, DY).
type WheelEvent struct {
	Point  geometry.Point
	DX, DY float64
	Ctrl   bool
}
