// Package interaction turns pointer input into selection changes, gestures
// and document writes. All gesture state lives in one State value owned by
// the Machine.
package interaction

import (
	"maps"
	"math"
	"slices"
	"sync"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/hierarchy"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/state"
)

const (
	// DragThreshold is the Manhattan distance in screen pixels a press must
	// travel before it becomes a selection net.
	DragThreshold = 5
	// HandleSize is the half-width of a handle's hit area, in screen pixels.
	HandleSize = 8
	// RotateOffset is how far above the selection the rotate handle sits,
	// in screen pixels.
	RotateOffset = 24
	// RotateSnap is the step rotation snaps to while shift is held.
	RotateSnap = 15
)

var (
	history    = mutation.Options{AddToHistory: true}
	unrecorded = mutation.Options{}
)

// Handle is a resize or rotate handle of the current selection.
type Handle struct {
	Side   geometry.Side
	Rotate bool
	Point  geometry.Point
}

// ContextAction is a command offered while in ModeRightClick.
type ContextAction int

const (
	ActionBringToFront ContextAction = iota
	ActionSendToBack
)

// ContextActions lists the right-click commands in menu order.
var ContextActions = []ContextAction{ActionBringToFront, ActionSendToBack}

func (a ContextAction) String() string {
	switch a {
	case ActionBringToFront:
		return "Bring to front"
	case ActionSendToBack:
		return "Send to back"
	}
	return "unknown"
}

// Machine is the pointer state machine for one client. It is inert until
// both the document and presence have been hydrated.
type Machine struct {
	mu  sync.Mutex
	gw  *mutation.Gateway
	st  State
	cam Camera
	pen state.Color
}

func New(gw *mutation.Gateway) *Machine {
	return &Machine{gw: gw, cam: NewCamera(), pen: state.DefaultInk}
}

// Gateway returns the gateway the machine writes through.
func (m *Machine) Gateway() *mutation.Gateway { return m.gw }

// State returns a copy of the current gesture state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.st
	st.Base = slices.Clone(st.Base)
	st.Originals = slices.Clone(st.Originals)
	st.Preview = maps.Clone(st.Preview)
	return st
}

func (m *Machine) Camera() Camera {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cam
}

func (m *Machine) SetCamera(c Camera) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cam = c
}

// SetPenColor sets the color of the next pencil stroke.
func (m *Machine) SetPenColor(c state.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pen = c
}

// Ready reports whether input is being processed.
func (m *Machine) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready()
}

func (m *Machine) ready() bool {
	return m.gw.Store().Ready() && m.gw.Presence().Ready()
}

// View returns the document with any uncommitted resize or rotate preview
// applied, for drawing.
func (m *Machine) View() *state.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view()
}

func (m *Machine) view() *state.Document {
	d := m.gw.Document()
	if len(m.st.Preview) == 0 {
		return d
	}
	ops := make([]state.Op, 0, len(m.st.Preview))
	for id, p := range m.st.Preview {
		ops = append(ops, state.PatchOp(id, p))
	}
	next, _ := d.ApplyAll(ops)
	return next
}

// SetTool discards any gesture in progress and arms t.
func (m *Machine) SetTool(t Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	m.discard()
	switch t.Mode {
	case ModeInserting:
		m.st = State{Mode: ModeInserting, Kind: t.Kind}
	case ModePencil, ModeDragging:
		m.st = State{Mode: t.Mode}
	default:
		m.st = State{}
	}
}

func sample(p geometry.Point, e PointerEvent) geometry.StrokePoint {
	pressure := e.Pressure
	if pressure <= 0 {
		pressure = 0.5
	}
	return geometry.StrokePoint{X: p.X, Y: p.Y, Pressure: pressure}
}

func (m *Machine) selectIDs(ids []state.LayerID) {
	m.gw.Run(func(tx *mutation.Tx) { tx.Select(ids...) }, unrecorded)
}

// PointerDown handles a button press.
func (m *Machine) PointerDown(e PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	p := m.cam.ScreenToCanvas(e.Point)

	if e.Button == ButtonMiddle && m.st.Mode == ModeNone {
		m.st = State{Mode: ModeDragging, Armed: true, Last: e.Point, Temporary: true}
		return
	}
	switch m.st.Mode {
	case ModePencil:
		if e.Button == ButtonPrimary {
			m.st.Drawing = true
			m.gw.Presence().Publish(presence.WithDraft(sample(p, e)), presence.WithDraftColor(m.pen))
		}
		return
	case ModeInserting:
		if e.Button == ButtonPrimary {
			m.st.Origin, m.st.Current = p, p
		}
		return
	case ModeDragging:
		if e.Button == ButtonPrimary {
			m.st.Armed, m.st.Last = true, e.Point
		}
		return
	case ModeRightClick:
		m.st = State{}
	case ModeNone:
	default:
		return
	}

	d := m.gw.Document()
	sel := m.gw.Presence().Selection()
	switch e.Button {
	case ButtonSecondary:
		if m.overSelection(d, sel, p) {
			m.st = State{Mode: ModeRightClick, Origin: p}
		}
		return
	case ButtonPrimary:
	default:
		return
	}

	if h, ok := m.handleAt(d, sel, p); ok {
		m.startTransform(d, sel, h, p)
		return
	}
	if id, ok := layerAt(d, p); ok {
		m.pressLayer(sel, id, p, e.Shift)
		return
	}
	m.st = State{Mode: ModePressing, Origin: p, Current: p, Base: sel}
}

func (m *Machine) pressLayer(sel []state.LayerID, id state.LayerID, p geometry.Point, shift bool) {
	selected := slices.Contains(sel, id)
	var next []state.LayerID
	switch {
	case shift && selected:
		next = slices.DeleteFunc(slices.Clone(sel), func(s state.LayerID) bool { return s == id })
	case shift:
		next = append(slices.Clone(sel), id)
	case selected:
		next = sel
	default:
		next = []state.LayerID{id}
	}
	if !slices.Equal(next, sel) {
		m.selectIDs(next)
	}
	m.gw.BeginBatch()
	m.st = State{Mode: ModeTranslating, Current: p}
}

func (m *Machine) startTransform(d *state.Document, sel []state.LayerID, h Handle, p geometry.Point) {
	r, deg, single, _ := frame(d, sel)
	ids := sel
	if single != nil {
		ids = []state.LayerID{single.Base().ID}
	}
	var originals []state.Layer
	for _, id := range movable(d, ids) {
		l, _ := d.Layer(id)
		originals = append(originals, l)
	}
	switch {
	case h.Rotate:
		center := r.Center()
		m.st = State{
			Mode: ModeRotating, Originals: originals, Initial: r, Rotation: deg,
			Center: center, StartAngle: geometry.Angle(center, p),
		}
	case single != nil:
		m.st = State{Mode: ModeResizing, Originals: originals, Initial: r, Rotation: deg, Side: h.Side}
	default:
		m.st = State{Mode: ModeScaling, Originals: originals, Initial: r, Side: h.Side}
	}
	m.gw.BeginBatch()
}

// PointerMove handles pointer motion, with or without a button held.
func (m *Machine) PointerMove(e PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	p := m.cam.ScreenToCanvas(e.Point)
	updates := []presence.Update{presence.WithCursor(p)}

	switch m.st.Mode {
	case ModePressing:
		d := p.Sub(m.st.Origin)
		if (math.Abs(d.X)+math.Abs(d.Y))*m.cam.zoom() > DragThreshold {
			m.st.Mode = ModeSelectionNet
			m.st.Current = p
			m.updateNet(e.Shift)
		}
	case ModeSelectionNet:
		m.st.Current = p
		m.updateNet(e.Shift)
	case ModeTranslating:
		delta := p.Sub(m.st.Current)
		m.st.Current = p
		if delta != (geometry.Point{}) {
			m.translate(delta)
		}
	case ModeResizing, ModeScaling:
		m.resizeTo(p)
	case ModeRotating:
		m.rotateTo(p, e.Shift)
	case ModeInserting:
		m.st.Current = p
	case ModePencil:
		if m.st.Drawing {
			updates = append(updates, presence.AppendDraft(sample(p, e)))
		}
	case ModeDragging:
		if m.st.Armed {
			m.cam = m.cam.Pan(e.Point.Sub(m.st.Last))
			m.st.Last = e.Point
		}
	}
	m.gw.Presence().Publish(updates...)
}

// updateNet selects every visible, unlocked layer whose bounds overlap the
// net. Children of groups are reached through their group.
func (m *Machine) updateNet(union bool) {
	d := m.gw.Document()
	net := geometry.RectFromPoints(m.st.Origin, m.st.Current)
	var hits []state.LayerID
	for _, l := range d.Layers() {
		b := l.Base()
		if b.Locked || d.Root(b.ID) != b.ID || d.Hidden(b.ID) {
			continue
		}
		if geometry.Overlaps(net, state.SelectionBounds(l)) {
			hits = append(hits, b.ID)
		}
	}
	if union {
		for _, id := range m.st.Base {
			if !slices.Contains(hits, id) {
				hits = append(hits, id)
			}
		}
	}
	m.selectIDs(hits)
}

func (m *Machine) translate(delta geometry.Point) {
	m.gw.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		for _, id := range movable(d, tx.Selection()) {
			l, _ := d.Layer(id)
			tx.Patch(id, state.Translate(l, delta))
		}
	}, history)
}

func (m *Machine) resizeTo(p geometry.Point) {
	local := geometry.LocalPoint(p, m.st.Initial, m.st.Rotation)
	target := geometry.Resize(m.st.Initial, m.st.Side, local)
	preview := make(map[state.LayerID]state.Patch, len(m.st.Originals))
	for _, orig := range m.st.Originals {
		to := geometry.ScaleRect(state.Bounds(orig), m.st.Initial, target)
		preview[orig.Base().ID] = state.FitTo(orig, to)
	}
	m.st.Preview = preview
}

func (m *Machine) rotateTo(p geometry.Point, snap bool) {
	if len(m.st.Originals) == 0 {
		return
	}
	rot := m.st.Rotation + geometry.Angle(m.st.Center, p) - m.st.StartAngle
	if snap {
		rot = geometry.SnapDegrees(rot, RotateSnap)
	}
	rot = geometry.NormalizeDegrees(rot)
	m.st.Preview = map[state.LayerID]state.Patch{
		m.st.Originals[0].Base().ID: {Rotation: state.Ptr(rot)},
	}
}

// PointerUp ends the gesture in progress.
func (m *Machine) PointerUp(e PointerEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	p := m.cam.ScreenToCanvas(e.Point)

	switch m.st.Mode {
	case ModePressing:
		if !e.Shift {
			m.selectIDs(nil)
		}
		m.st = State{}
	case ModeSelectionNet:
		m.st = State{}
	case ModeTranslating:
		if e.Alt {
			m.dropSelection(p)
		}
		m.gw.CommitBatch()
		m.st = State{}
	case ModeResizing, ModeScaling, ModeRotating:
		m.commitPreview()
		m.st = State{}
	case ModeInserting:
		kind := m.st.Kind
		m.st = State{}
		m.insert(kind, p)
	case ModePencil:
		if m.st.Drawing {
			m.st.Drawing = false
			m.finishStroke()
		}
	case ModeDragging:
		m.st.Armed = false
		if m.st.Temporary {
			m.st = State{}
		}
	}
}

// dropSelection drops a single dragged layer onto the layer under p: into it
// when it is a frame, next to it otherwise. It joins the open batch, so the
// move and the drop undo together.
func (m *Machine) dropSelection(p geometry.Point) bool {
	sel := m.gw.Presence().Selection()
	if len(sel) != 1 {
		return false
	}
	target, ok := dropTarget(m.gw.Document(), sel[0], p)
	if !ok {
		return false
	}
	return hierarchy.Drop(m.gw, sel[0], target)
}

func (m *Machine) commitPreview() {
	preview := m.st.Preview
	if len(preview) > 0 {
		m.gw.Run(func(tx *mutation.Tx) {
			for id, p := range preview {
				tx.Patch(id, p)
			}
		}, history)
	}
	m.gw.CommitBatch()
}

func (m *Machine) insert(kind state.Kind, p geometry.Point) {
	l := state.New(kind, p)
	if l == nil {
		return
	}
	m.gw.Run(func(tx *mutation.Tx) {
		if id, ok := tx.Insert(l); ok {
			tx.Select(id)
		}
	}, history)
}

func (m *Machine) finishStroke() {
	self := m.gw.Presence().Self()
	if path, ok := state.NewPath(self.Draft, self.DraftColor); ok {
		m.gw.Run(func(tx *mutation.Tx) { tx.Insert(path) }, history)
	}
	m.gw.Presence().Publish(presence.WithoutDraft())
}

// PointerLeave hides our cursor from the room.
func (m *Machine) PointerLeave() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	m.gw.Presence().Publish(presence.WithoutCursor())
}

// Wheel zooms about the pointer with ctrl held and pans otherwise.
func (m *Machine) Wheel(e WheelEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return
	}
	if !e.Ctrl {
		m.cam = m.cam.Pan(geometry.Point{X: e.DX, Y: e.DY})
		return
	}
	switch {
	case e.DY > 0:
		m.cam = m.cam.ZoomAt(e.Point, 1.1)
	case e.DY < 0:
		m.cam = m.cam.ZoomAt(e.Point, 1/1.1)
	}
}

// Cancel discards the gesture in progress without writing to the document.
// With nothing in progress it clears the selection. It reports whether
// anything was discarded.
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() {
		return false
	}
	if m.st.Mode == ModeNone {
		if len(m.gw.Presence().Selection()) == 0 {
			return false
		}
		m.selectIDs(nil)
		return true
	}
	m.discard()
	return true
}

// discard undoes the speculative part of the current gesture and leaves
// tool modes armed.
func (m *Machine) discard() {
	switch m.st.Mode {
	case ModePressing, ModeSelectionNet:
		m.selectIDs(m.st.Base)
		m.st = State{}
	case ModeTranslating, ModeResizing, ModeScaling, ModeRotating:
		m.gw.CancelBatch()
		m.st = State{}
	case ModePencil:
		if m.st.Drawing {
			m.gw.Presence().Publish(presence.WithoutDraft())
			m.st.Drawing = false
			return
		}
		m.st = State{}
	case ModeDragging:
		if m.st.Armed && !m.st.Temporary {
			m.st.Armed = false
			return
		}
		m.st = State{}
	default:
		m.st = State{}
	}
}

// ContextAction runs a right-click command on the selection.
func (m *Machine) ContextAction(a ContextAction) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.Mode != ModeRightClick || !m.ready() {
		return false
	}
	m.st = State{}
	switch a {
	case ActionBringToFront:
		return hierarchy.BringToFront(m.gw)
	case ActionSendToBack:
		return hierarchy.SendToBack(m.gw)
	}
	return false
}

// Nudge moves the selection by delta as one undoable step.
func (m *Machine) Nudge(delta geometry.Point) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready() || m.st.Mode != ModeNone {
		return false
	}
	return m.gw.Run(func(tx *mutation.Tx) {
		d := tx.Document()
		for _, id := range movable(d, tx.Selection()) {
			l, _ := d.Layer(id)
			tx.Patch(id, state.Translate(l, delta))
		}
	}, history)
}

// Handles returns the handles of the current selection in canvas
// coordinates. Locked layers have none.
func (m *Machine) Handles() []Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.view()
	r, deg, single, ok := frame(d, m.gw.Presence().Selection())
	if !ok {
		return nil
	}
	hs := handles(r, single, m.cam.zoom())
	for i := range hs {
		hs[i].Point = geometry.RotatePoint(hs[i].Point, r.Center(), deg)
	}
	return hs
}

func (m *Machine) handleAt(d *state.Document, sel []state.LayerID, p geometry.Point) (Handle, bool) {
	r, deg, single, ok := frame(d, sel)
	if !ok {
		return Handle{}, false
	}
	z := m.cam.zoom()
	local := geometry.LocalPoint(p, r, deg)
	reach := HandleSize / z
	for _, h := range handles(r, single, z) {
		if math.Abs(local.X-h.Point.X) <= reach && math.Abs(local.Y-h.Point.Y) <= reach {
			return h, true
		}
	}
	return Handle{}, false
}

func (m *Machine) overSelection(d *state.Document, sel []state.LayerID, p geometry.Point) bool {
	if id, ok := layerAt(d, p); ok && slices.Contains(sel, id) {
		return true
	}
	r, ok := state.UnionBounds(d, sel)
	return ok && r.Contains(p)
}

// frame returns the box the selection's handles sit on: the unrotated box
// and rotation of a single layer, or the union of several.
func frame(d *state.Document, sel []state.LayerID) (r geometry.Rect, deg float64, single state.Layer, ok bool) {
	var layers []state.Layer
	for _, id := range sel {
		if l, ok := d.Layer(id); ok && !l.Base().Locked {
			layers = append(layers, l)
		}
	}
	switch len(layers) {
	case 0:
		return r, 0, nil, false
	case 1:
		l := layers[0]
		return state.Bounds(l), l.Base().Rotation, l, true
	}
	ids := make([]state.LayerID, 0, len(layers))
	for _, l := range layers {
		ids = append(ids, l.Base().ID)
	}
	r, ok = state.UnionBounds(d, ids)
	return r, 0, nil, ok
}

// handles lists the handles of r in its unrotated frame. Only a single
// non-container layer can be rotated.
func handles(r geometry.Rect, single state.Layer, zoom float64) []Handle {
	hs := make([]Handle, 0, len(geometry.Sides)+1)
	for _, side := range geometry.Sides {
		hs = append(hs, Handle{Side: side, Point: side.Handle(r)})
	}
	if single != nil && !state.IsContainer(single) {
		hs = append(hs, Handle{Rotate: true, Point: geometry.Point{X: r.Center().X, Y: r.Y - RotateOffset/zoom}})
	}
	return hs
}

// layerAt returns the frontmost visible, unlocked layer under p, promoted to
// its outermost group.
func layerAt(d *state.Document, p geometry.Point) (state.LayerID, bool) {
	order := d.Order()
	for i := len(order) - 1; i >= 0; i-- {
		l, _ := d.Layer(order[i])
		b := l.Base()
		if b.Locked || d.Hidden(b.ID) {
			continue
		}
		if state.Contains(l, p) {
			return d.Root(b.ID), true
		}
	}
	return "", false
}

// dropTarget returns the frontmost visible, unlocked layer under p outside
// source's subtree. Groups are not climbed.
func dropTarget(d *state.Document, source state.LayerID, p geometry.Point) (state.LayerID, bool) {
	order := d.Order()
	for i := len(order) - 1; i >= 0; i-- {
		l, _ := d.Layer(order[i])
		b := l.Base()
		if b.ID == source || d.IsAncestor(source, b.ID) || b.Locked || d.Hidden(b.ID) {
			continue
		}
		if state.Contains(l, p) {
			return b.ID, true
		}
	}
	return "", false
}

// movable expands ids with their descendants, skipping locked layers.
func movable(d *state.Document, ids []state.LayerID) []state.LayerID {
	var out []state.LayerID
	add := func(id state.LayerID) {
		if l, ok := d.Layer(id); ok && !l.Base().Locked && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	for _, id := range ids {
		add(id)
		for _, child := range d.Descendants(id) {
			add(child)
		}
	}
	return out
}
