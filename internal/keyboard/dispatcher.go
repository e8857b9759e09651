package keyboard

import (
	"log"
	"sync"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/hierarchy"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/state"
)

// PasteOffset is how far each successive paste is moved from the original.
const PasteOffset = 10

// Nudge steps for the arrow keys.
const (
	NudgeStep      = 1
	NudgeShiftStep = 10
)

var history = mutation.Options{AddToHistory: true}

// Tools bound to single letters.
var Tools = map[string]interaction.Tool{
	"v": interaction.SelectTool,
	"h": interaction.HandTool,
	"p": interaction.PencilTool,
	"r": interaction.InsertTool(state.KindRectangle),
	"o": interaction.InsertTool(state.KindEllipse),
	"t": interaction.InsertTool(state.KindText),
	"l": interaction.InsertTool(state.KindLine),
	"a": interaction.InsertTool(state.KindArrow),
	"s": interaction.InsertTool(state.KindStar),
	"y": interaction.InsertTool(state.KindPolygon),
	"f": interaction.InsertTool(state.KindFrame),
	"i": interaction.InsertTool(state.KindImage),
	"m": interaction.InsertTool(state.KindVideo),
}

// Dispatcher runs the command bound to a key. The clipboard it keeps is
// local to this client.
type Dispatcher struct {
	mu      sync.Mutex
	machine *interaction.Machine
	gw      *mutation.Gateway
	system  SystemClipboard
	clip    []state.Layer
	pastes  int

	// OnTool is called after a tool key changes the tool.
	OnTool func(interaction.Tool)
}

// New returns a dispatcher driving m. system may be nil.
func New(m *interaction.Machine, system SystemClipboard) *Dispatcher {
	return &Dispatcher{machine: m, gw: m.Gateway(), system: system}
}

// Handle runs the command bound to k and reports whether one ran.
func (d *Dispatcher) Handle(k Key) bool {
	if !d.machine.Ready() {
		return false
	}
	switch k.String() {
	case "ctrl+z":
		return d.gw.Undo()
	case "ctrl+shift+z", "ctrl+y":
		return d.gw.Redo()
	case "ctrl+c":
		return d.Copy()
	case "ctrl+x":
		return d.Cut()
	case "ctrl+v":
		return d.Paste()
	case "ctrl+d":
		return d.Duplicate()
	case "ctrl+a":
		return d.SelectAll()
	case "ctrl+g":
		return hierarchy.Group(d.gw)
	case "ctrl+shift+g":
		return hierarchy.Ungroup(d.gw)
	case "ctrl+alt+g":
		return hierarchy.WrapInFrame(d.gw)
	case "ctrl+]":
		return hierarchy.BringToFront(d.gw)
	case "ctrl+[":
		return hierarchy.SendToBack(d.gw)
	case KeyDelete, KeyBackspace:
		return hierarchy.DeleteSelection(d.gw)
	case KeyEscape:
		return d.machine.Cancel()
	}

	if delta, ok := nudge(k); ok {
		return d.machine.Nudge(delta)
	}
	if k.Ctrl || k.Meta || k.Alt {
		return false
	}
	if t, ok := Tools[k.Name]; ok {
		d.machine.SetTool(t)
		if d.OnTool != nil {
			d.OnTool(t)
		}
		return true
	}
	return false
}

func nudge(k Key) (geometry.Point, bool) {
	if k.Ctrl || k.Meta || k.Alt {
		return geometry.Point{}, false
	}
	step := float64(NudgeStep)
	if k.Shift {
		step = NudgeShiftStep
	}
	switch k.Name {
	case KeyLeft:
		return geometry.Point{X: -step}, true
	case KeyRight:
		return geometry.Point{X: step}, true
	case KeyUp:
		return geometry.Point{Y: -step}, true
	case KeyDown:
		return geometry.Point{Y: step}, true
	}
	return geometry.Point{}, false
}

// Copy stores deep copies of the selection and its descendants.
func (d *Dispatcher) Copy() bool {
	layers := hierarchy.Subtree(d.gw.Document(), d.gw.Presence().Selection())
	if len(layers) == 0 {
		return false
	}
	d.mu.Lock()
	d.clip, d.pastes = layers, 0
	system := d.system
	d.mu.Unlock()

	if system != nil {
		text, err := EncodeLayers(layers)
		if err == nil {
			err = system.WriteAll(string(text))
		}
		if err != nil {
			log.Printf("[CLIPBOARD] mirror copy: %v", err)
		}
	}
	return true
}

// Cut copies the selection, then deletes it.
func (d *Dispatcher) Cut() bool {
	if !d.Copy() {
		return false
	}
	return hierarchy.DeleteSelection(d.gw)
}

// Paste inserts the clipboard under fresh ids, each paste further offset
// than the last, and selects what it inserted. With nothing copied here it
// falls back to layers on the system clipboard.
func (d *Dispatcher) Paste() bool {
	d.mu.Lock()
	if len(d.clip) == 0 && d.system != nil {
		if text, err := d.system.ReadAll(); err == nil {
			if layers, err := DecodeLayers([]byte(text)); err == nil {
				d.clip, d.pastes = layers, 0
			}
		}
	}
	if len(d.clip) == 0 {
		d.mu.Unlock()
		return false
	}
	d.pastes++
	offset := float64(d.pastes * PasteOffset)
	layers := state.Duplicate(d.clip, geometry.Point{X: offset, Y: offset})
	d.mu.Unlock()

	return d.insert(layers)
}

// Duplicate copies the selection in place, offset once, leaving the
// clipboard alone.
func (d *Dispatcher) Duplicate() bool {
	layers := hierarchy.Subtree(d.gw.Document(), d.gw.Presence().Selection())
	if len(layers) == 0 {
		return false
	}
	return d.insert(state.Duplicate(layers, geometry.Point{X: PasteOffset, Y: PasteOffset}))
}

func (d *Dispatcher) insert(layers []state.Layer) bool {
	return d.gw.Run(func(tx *mutation.Tx) {
		if tx.Document().Len()+len(layers) > state.MaxLayers {
			return
		}
		var top []state.LayerID
		for _, l := range layers {
			id, ok := tx.Insert(l)
			if ok && l.Base().ParentID == "" {
				top = append(top, id)
			}
		}
		if len(top) > 0 {
			tx.Select(top...)
		}
	}, history)
}

// SelectAll selects every visible, unlocked top-level layer.
func (d *Dispatcher) SelectAll() bool {
	doc := d.gw.Document()
	var ids []state.LayerID
	for _, l := range doc.Layers() {
		b := l.Base()
		if b.ParentID == "" && !b.Locked && !doc.Hidden(b.ID) {
			ids = append(ids, b.ID)
		}
	}
	d.gw.Run(func(tx *mutation.Tx) { tx.Select(ids...) }, mutation.Options{})
	return len(ids) > 0
}
