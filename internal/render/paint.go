package render

import (
	"image/color"

	"github.com/fogleman/gg"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/state"
)

// Fit returns a camera that centers r on a w by h surface with margin on
// every side, zooming no further in than maxZoom.
func Fit(r geometry.Rect, w, h, margin, maxZoom float64) interaction.Camera {
	availW, availH := w-2*margin, h-2*margin
	zoom := maxZoom
	if r.Width > 0 && availW > 0 {
		zoom = min(zoom, availW/r.Width)
	}
	if r.Height > 0 && availH > 0 {
		zoom = min(zoom, availH/r.Height)
	}
	return interaction.Camera{
		X:    (w-r.Width*zoom)/2 - r.X*zoom,
		Y:    (h-r.Height*zoom)/2 - r.Y*zoom,
		Zoom: zoom,
	}
}

// Background clears dc to the document's canvas color.
func Background(dc *gg.Context, d *state.Document) {
	dc.SetColor(ParseColor(d.Background(), 0xff))
	dc.Clear()
}

// Paint draws shapes back to front through cam.
func Paint(dc *gg.Context, shapes []Shape, cam interaction.Camera) {
	for _, s := range shapes {
		PaintShape(dc, s, cam)
	}
}

// PaintShape draws one shape through cam.
func PaintShape(dc *gg.Context, s Shape, cam interaction.Camera) {
	zoom := cam.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	if s.Closed {
		trace(dc, s.Points, cam, true)
		if s.Fill.A > 0 {
			dc.SetColor(s.Fill)
			if s.Stroke.A > 0 && s.Width > 0 {
				dc.FillPreserve()
			} else {
				dc.Fill()
			}
		}
		if s.Stroke.A > 0 && s.Width > 0 {
			dc.SetColor(s.Stroke)
			dc.SetLineWidth(s.Width * zoom)
			dc.Stroke()
		}
		dc.ClearPath()
	} else if len(s.Points) > 1 {
		trace(dc, s.Points, cam, false)
		dc.SetColor(s.Stroke)
		dc.SetLineWidth(max(s.Width, 1) * zoom)
		dc.SetLineCap(gg.LineCapRound)
		dc.Stroke()
	}
	if len(s.Head) > 0 {
		trace(dc, s.Head, cam, true)
		dc.SetColor(s.Fill)
		dc.Fill()
	}

	origin := cam.CanvasToScreen(geometry.Point{X: s.Bounds.X, Y: s.Bounds.Y})
	if s.Text != "" {
		dc.SetColor(s.Stroke)
		dc.DrawStringWrapped(s.Text, origin.X, origin.Y, 0, 0, max(s.Bounds.Width*zoom, 1), 1.4, gg.AlignLeft)
	}
	if s.Label != "" {
		dc.SetColor(MediaBorder)
		dc.DrawString(s.Label, origin.X, origin.Y-4)
	}
}

// StrokePolygon strokes the polygon pts without filling it, for selection boxes
// and handles.
func StrokePolygon(dc *gg.Context, pts []geometry.Point, c color.Color, width float64, cam interaction.Camera) {
	trace(dc, pts, cam, true)
	dc.SetColor(c)
	dc.SetLineWidth(width)
	dc.Stroke()
}

func trace(dc *gg.Context, pts []geometry.Point, cam interaction.Camera, closed bool) {
	if len(pts) == 0 {
		return
	}
	dc.NewSubPath()
	for i, p := range pts {
		q := cam.CanvasToScreen(p)
		if i == 0 {
			dc.MoveTo(q.X, q.Y)
		} else {
			dc.LineTo(q.X, q.Y)
		}
	}
	if closed {
		dc.ClosePath()
	}
}
