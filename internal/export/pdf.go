// Package export writes a document snapshot to PDF and PNG files.
package export

import (
	"errors"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"CollabCanvas/internal/geometry"
	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/render"
	"CollabCanvas/internal/state"
)

// Page layout in millimetres.
const (
	pageMargin = 10.0
	labelSize  = 8.0
	// mmPerPixel is the largest scale used: a canvas pixel at 96 dpi.
	mmPerPixel = 25.4 / 96
)

// ErrNoDocument is returned when there is nothing to export.
var ErrNoDocument = errors.New("no document to export")

// PDF writes doc to path as a single landscape A4 page, scaled to fit.
func PDF(path string, doc *state.Document) error {
	if doc == nil {
		return ErrNoDocument
	}
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetMargins(0, 0, 0)
	p.SetAutoPageBreak(false, 0)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := p.GetPageSize()
	bg := render.ParseColor(doc.Background(), 0xff)
	p.SetFillColor(int(bg.R), int(bg.G), int(bg.B))
	p.Rect(0, 0, pageW, pageH, "F")

	shapes := render.Shapes(doc)
	cam := interaction.NewCamera()
	if extent, ok := render.Extent(shapes); ok {
		cam = render.Fit(extent, pageW, pageH, pageMargin, mmPerPixel)
	}

	for _, s := range shapes {
		drawShape(p, tr, s, cam)
	}
	if err := p.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf %s: %w", path, err)
	}
	return nil
}

func drawShape(p *gofpdf.Fpdf, tr func(string) string, s render.Shape, cam interaction.Camera) {
	alpha := 1.0
	switch {
	case s.Fill.A > 0:
		alpha = float64(s.Fill.A) / 0xff
	case s.Stroke.A > 0:
		alpha = float64(s.Stroke.A) / 0xff
	}
	p.SetAlpha(alpha, "Normal")
	defer p.SetAlpha(1, "Normal")

	p.SetFillColor(int(s.Fill.R), int(s.Fill.G), int(s.Fill.B))
	p.SetDrawColor(int(s.Stroke.R), int(s.Stroke.G), int(s.Stroke.B))
	p.SetLineWidth(max(s.Width*cam.Zoom, 0.1))
	p.SetLineCapStyle("round")

	if s.Closed {
		style := ""
		if s.Fill.A > 0 {
			style += "F"
		}
		if s.Stroke.A > 0 && s.Width > 0 {
			style += "D"
		}
		if style != "" && len(s.Points) > 2 {
			p.Polygon(points(s.Points, cam), style)
		}
	} else {
		pts := points(s.Points, cam)
		for i := 1; i < len(pts); i++ {
			p.Line(pts[i-1].X, pts[i-1].Y, pts[i].X, pts[i].Y)
		}
	}
	if len(s.Head) > 0 {
		p.Polygon(points(s.Head, cam), "F")
	}

	origin := cam.CanvasToScreen(geometry.Point{X: s.Bounds.X, Y: s.Bounds.Y})
	if s.Text != "" {
		size := s.FontSize
		if size <= 0 {
			size = 16
		}
		p.SetTextColor(int(s.Stroke.R), int(s.Stroke.G), int(s.Stroke.B))
		// size*Zoom is in millimetres; SetFont takes points.
		p.SetFont("Helvetica", "", max(size*cam.Zoom*72/25.4, 1))
		p.SetXY(origin.X, origin.Y)
		p.MultiCell(max(s.Bounds.Width*cam.Zoom, 1), size*cam.Zoom*1.2, tr(s.Text), "", "L", false)
	}
	if s.Label != "" {
		p.SetTextColor(int(render.MediaBorder.R), int(render.MediaBorder.G), int(render.MediaBorder.B))
		p.SetFont("Helvetica", "", labelSize)
		p.Text(origin.X, origin.Y-1, tr(s.Label))
	}
}

func points(pts []geometry.Point, cam interaction.Camera) []gofpdf.PointType {
	out := make([]gofpdf.PointType, len(pts))
	for i, pt := range pts {
		q := cam.CanvasToScreen(pt)
		out[i] = gofpdf.PointType{X: q.X, Y: q.Y}
	}
	return out
}
