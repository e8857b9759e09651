package ui

import (
	"fmt"
	"image/color"
	"log"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"CollabCanvas/internal/board"
	"CollabCanvas/internal/export"
	"CollabCanvas/internal/hierarchy"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/mutation"
	"CollabCanvas/internal/render"
	"CollabCanvas/internal/state"
)

const pngSize = 1600

var palette = []state.Color{"#1e1e1e", "#e03131", "#2f9e44", "#1971c2", "#f08c00", "#d9d9d9"}

// insertable lists the shapes offered by the toolbar, in menu order.
var insertable = []state.Kind{
	state.KindRectangle, state.KindEllipse, state.KindStar, state.KindPolygon,
	state.KindLine, state.KindArrow, state.KindText, state.KindFrame,
	state.KindImage, state.KindVideo,
}

type colorSwatch struct {
	widget.BaseWidget
	Color    color.Color
	OnTapped func()
}

func newColorSwatch(c color.Color, tapped func()) *colorSwatch {
	s := &colorSwatch{Color: c, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(s.Color)
	rect.SetMinSize(fyne.NewSize(24, 24))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped()
	}
}

// NewToolbar builds the tool, color and export controls for a board.
func NewToolbar(w fyne.Window, b *BoardWidget) fyne.CanvasObject {
	s := b.session
	use := func(t interaction.Tool) func() {
		return func() {
			s.Machine.SetTool(t)
			b.Refresh()
		}
	}
	run := func(fn func(*mutation.Gateway) bool) func() {
		return func() {
			fn(s.Gateway)
			b.Refresh()
		}
	}

	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.ZoomFitIcon(), use(interaction.SelectTool)),
		widget.NewToolbarAction(theme.ViewFullScreenIcon(), use(interaction.HandTool)),
		widget.NewToolbarAction(theme.DocumentCreateIcon(), use(interaction.PencilTool)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), run((*mutation.Gateway).Undo)),
		widget.NewToolbarAction(theme.ContentRedoIcon(), run((*mutation.Gateway).Redo)),
		widget.NewToolbarAction(theme.DeleteIcon(), run(hierarchy.DeleteSelection)),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.MoveUpIcon(), run(hierarchy.BringToFront)),
		widget.NewToolbarAction(theme.MoveDownIcon(), run(hierarchy.SendToBack)),
	)

	names := make([]string, len(insertable))
	for i, k := range insertable {
		names[i] = string(k)
	}
	shapes := widget.NewSelect(names, func(name string) {
		if name != "" {
			s.Machine.SetTool(interaction.InsertTool(state.Kind(name)))
		}
	})
	shapes.PlaceHolder = "Insert…"
	s.Keys.OnTool = func(t interaction.Tool) {
		fyne.Do(func() {
			if t.Mode == interaction.ModeInserting {
				shapes.SetSelected(string(t.Kind))
			} else {
				shapes.ClearSelected()
			}
		})
	}

	swatches := container.NewHBox()
	for _, c := range palette {
		swatches.Add(newColorSwatch(render.ParseColor(c, 0xff), func() {
			s.Recolor(c)
			b.Refresh()
		}))
	}

	exportBtn := widget.NewButtonWithIcon("Export", theme.DocumentSaveIcon(), func() {
		showExport(w, s)
	})

	return container.NewHBox(
		tb,
		widget.NewSeparator(),
		container.New(layout.NewGridWrapLayout(fyne.NewSize(130, 35)), shapes),
		widget.NewSeparator(),
		swatches,
		layout.NewSpacer(),
		exportBtn,
	)
}

// showExport asks for a file and prints the current document to it. The
// format follows the extension: .png or anything else for PDF.
func showExport(w fyne.Window, s *board.Session) {
	doc := s.Store.Document()
	dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
		if err != nil || wc == nil {
			return
		}
		path := wc.URI().Path()
		ext := wc.URI().Extension()
		if err := wc.Close(); err != nil {
			log.Printf("Error closing writer: %v", err)
		}
		if ext == ".png" {
			err = export.PNG(path, doc, pngSize, pngSize*3/4)
		} else {
			err = export.PDF(path, doc)
		}
		if err != nil {
			dialog.ShowError(fmt.Errorf("export failed: %w", err), w)
			return
		}
		log.Printf("Exported %d layers to %s", doc.Len(), path)
	}, w)
}
