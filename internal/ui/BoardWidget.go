package ui

import (
	"hash/fnv"
	"image"
	"image/color"
	"sort"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"github.com/fogleman/gg"

	"CollabCanvas/internal/board"
	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/presence"
	"CollabCanvas/internal/render"
	"CollabCanvas/internal/state"
)

const handleSize = 8

var (
	selectionColor = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0xff}
	netFill        = color.NRGBA{R: 0x3b, G: 0x82, B: 0xf6, A: 0x20}
	peerColors     = []color.NRGBA{
		{R: 0xe1, G: 0x1d, B: 0x48, A: 0xff},
		{R: 0x05, G: 0x96, B: 0x69, A: 0xff},
		{R: 0xd9, G: 0x77, B: 0x06, A: 0xff},
		{R: 0x7c, G: 0x3a, B: 0xed, A: 0xff},
		{R: 0x08, G: 0x91, B: 0xb2, A: 0xff},
		{R: 0xdb, G: 0x27, B: 0x77, A: 0xff},
	}
)

// BoardWidget draws a session's canvas and feeds pointer and key input to its
// interaction machine and keyboard dispatcher.
type BoardWidget struct {
	widget.BaseWidget
	session *board.Session

	mu   sync.Mutex
	mods fyne.KeyModifier
	last fyne.Position
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ fyne.Scrollable = (*BoardWidget)(nil)
var _ fyne.Shortcutable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)
var _ desktop.Keyable = (*BoardWidget)(nil)

func NewBoardWidget(s *board.Session) *BoardWidget {
	b := &BoardWidget{session: s}
	b.ExtendBaseWidget(b)
	return b
}

func (b *BoardWidget) modifiers() fyne.KeyModifier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mods
}

// moved reports whether p differs from the last pointer position, so drag
// and hover events for the same sample are handled once.
func (b *BoardWidget) moved(p fyne.Position) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p == b.last {
		return false
	}
	b.last = p
	return true
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(b); c != nil {
		c.Focus(b)
	}
	b.moved(e.Position)
	b.session.Machine.PointerDown(pointerOf(e.Position, e.Button, e.Modifier))
	if b.session.Machine.State().Mode == interaction.ModeRightClick {
		b.showContextMenu(e.AbsolutePosition)
	}
	b.Refresh()
}

// showContextMenu offers the right-click commands at pos. Dismissing the
// menu leaves the machine in right-click until the next press.
func (b *BoardWidget) showContextMenu(pos fyne.Position) {
	c := fyne.CurrentApp().Driver().CanvasForObject(b)
	if c == nil {
		return
	}
	items := make([]*fyne.MenuItem, 0, len(interaction.ContextActions))
	for _, a := range interaction.ContextActions {
		items = append(items, fyne.NewMenuItem(a.String(), func() {
			b.session.Machine.ContextAction(a)
			b.Refresh()
		}))
	}
	widget.ShowPopUpMenuAtPosition(fyne.NewMenu("", items...), c, pos)
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	b.session.Machine.PointerUp(pointerOf(e.Position, e.Button, e.Modifier))
	b.Refresh()
}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

func (b *BoardWidget) MouseMoved(e *desktop.MouseEvent) {
	if !b.moved(e.Position) {
		return
	}
	b.session.Machine.PointerMove(pointerOf(e.Position, e.Button, e.Modifier))
	b.Refresh()
}

func (b *BoardWidget) MouseOut() {
	b.session.Machine.PointerLeave()
	b.Refresh()
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if !b.moved(e.Position) {
		return
	}
	b.session.Machine.PointerMove(pointerOf(e.Position, desktop.MouseButtonPrimary, b.modifiers()))
	b.Refresh()
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) Scrolled(e *fyne.ScrollEvent) {
	b.session.Machine.Wheel(interaction.WheelEvent{
		Point: pointOf(e.Position),
		DX:    float64(e.Scrolled.DX),
		DY:    float64(e.Scrolled.DY),
		Ctrl:  b.modifiers()&(fyne.KeyModifierControl|fyne.KeyModifierSuper) != 0,
	})
	b.Refresh()
}

func (b *BoardWidget) FocusGained() {}

func (b *BoardWidget) FocusLost() {
	b.mu.Lock()
	b.mods = 0
	b.mu.Unlock()
}

func (b *BoardWidget) TypedRune(rune) {}

func (b *BoardWidget) TypedKey(e *fyne.KeyEvent) {
	if b.session.Keys.Handle(keyOf(e.Name, b.modifiers())) {
		b.Refresh()
	}
}

func (b *BoardWidget) KeyDown(e *fyne.KeyEvent) {
	if m := modifierOf(e.Name); m != 0 {
		b.mu.Lock()
		b.mods |= m
		b.mu.Unlock()
	}
}

func (b *BoardWidget) KeyUp(e *fyne.KeyEvent) {
	if m := modifierOf(e.Name); m != 0 {
		b.mu.Lock()
		b.mods &^= m
		b.mu.Unlock()
	}
}

// TypedShortcut receives ctrl combinations, including the ones fyne names
// (copy, paste, select all).
func (b *BoardWidget) TypedShortcut(s fyne.Shortcut) {
	ks, ok := s.(fyne.KeyboardShortcut)
	if !ok {
		return
	}
	if b.session.Keys.Handle(keyOf(ks.Key(), ks.Mod())) {
		b.Refresh()
	}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.raster = canvas.NewRaster(r.draw)
	return r
}

type boardWidgetRenderer struct {
	board  *BoardWidget
	raster *canvas.Raster
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.raster}
}

func (r *boardWidgetRenderer) Refresh() {
	canvas.Refresh(r.raster)
}

func (r *boardWidgetRenderer) Destroy() {}

func (r *boardWidgetRenderer) Layout(size fyne.Size) {
	r.raster.Resize(size)
}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return fyne.NewSize(300, 300)
}

// draw paints the board into a w by h pixel image. Widget positions are in
// fyne units, so the context is scaled to the device.
func (r *boardWidgetRenderer) draw(w, h int) image.Image {
	dc := gg.NewContext(w, h)
	if size := r.board.Size(); size.Width > 0 {
		scale := float64(w) / float64(size.Width)
		dc.Scale(scale, scale)
	}
	s := r.board.session
	view := s.Machine.View()
	cam := s.Machine.Camera()

	render.Background(dc, view)
	render.Paint(dc, render.Shapes(view), cam)
	if !s.Machine.Ready() {
		return dc.Image()
	}

	others := s.Presence.Others()
	conns := make([]presence.ConnID, 0, len(others))
	for conn := range others {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i] < conns[j] })

	for _, conn := range conns {
		rec := others[conn]
		c := peerColor(conn)
		drawSelection(dc, view, rec.Selection, c, cam)
		if len(rec.Draft) > 0 {
			render.PaintShape(dc, render.Draft(rec.Draft, rec.DraftColor), cam)
		}
	}

	self := s.Presence.Self()
	if len(self.Draft) > 0 {
		render.PaintShape(dc, render.Draft(self.Draft, self.DraftColor), cam)
	}
	drawSelection(dc, view, self.Selection, selectionColor, cam)
	drawHandles(dc, s.Machine.Handles(), cam)
	if st := s.Machine.State(); st.Mode == interaction.ModeSelectionNet {
		drawNet(dc, geometry.RectFromPoints(st.Origin, st.Current), cam)
	}

	for _, conn := range conns {
		if rec := others[conn]; rec.Cursor != nil {
			drawCursor(dc, cam.CanvasToScreen(*rec.Cursor), rec.User, peerColor(conn))
		}
	}
	return dc.Image()
}

func peerColor(conn presence.ConnID) color.NRGBA {
	h := fnv.New32a()
	h.Write([]byte(conn))
	return peerColors[h.Sum32()%uint32(len(peerColors))]
}

func drawSelection(dc *gg.Context, d *state.Document, ids []state.LayerID, c color.Color, cam interaction.Camera) {
	for _, id := range ids {
		l, ok := d.Layer(id)
		if !ok {
			continue
		}
		corners := geometry.Corners(state.Bounds(l), l.Base().Rotation)
		render.StrokePolygon(dc, corners[:], c, 1.5, cam)
	}
}

func drawHandles(dc *gg.Context, handles []interaction.Handle, cam interaction.Camera) {
	for _, h := range handles {
		p := cam.CanvasToScreen(h.Point)
		if h.Rotate {
			dc.DrawCircle(p.X, p.Y, handleSize/2)
		} else {
			dc.DrawRectangle(p.X-handleSize/2, p.Y-handleSize/2, handleSize, handleSize)
		}
		dc.SetColor(color.White)
		dc.FillPreserve()
		dc.SetColor(selectionColor)
		dc.SetLineWidth(1)
		dc.Stroke()
	}
}

func drawNet(dc *gg.Context, r geometry.Rect, cam interaction.Camera) {
	tl := cam.CanvasToScreen(geometry.Point{X: r.X, Y: r.Y})
	br := cam.CanvasToScreen(geometry.Point{X: r.Right(), Y: r.Bottom()})
	dc.DrawRectangle(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
	dc.SetColor(netFill)
	dc.FillPreserve()
	dc.SetColor(selectionColor)
	dc.SetLineWidth(1)
	dc.Stroke()
}

func drawCursor(dc *gg.Context, p geometry.Point, user string, c color.Color) {
	dc.MoveTo(p.X, p.Y)
	dc.LineTo(p.X, p.Y+14)
	dc.LineTo(p.X+4, p.Y+10)
	dc.LineTo(p.X+10, p.Y+10)
	dc.ClosePath()
	dc.SetColor(c)
	dc.Fill()
	if user != "" {
		dc.DrawString(user, p.X+12, p.Y+22)
	}
}
