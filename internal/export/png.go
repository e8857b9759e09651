package export

import (
	"fmt"

	"github.com/fogleman/gg"

	"CollabCanvas/internal/interaction"
	"CollabCanvas/internal/render"
	"CollabCanvas/internal/state"
)

const pngMargin = 20

// PNG writes doc to path as a w by h image, scaled down to fit when the
// layers do not.
func PNG(path string, doc *state.Document, w, h int) error {
	if doc == nil {
		return ErrNoDocument
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("png size %dx%d: must be positive", w, h)
	}
	dc := gg.NewContext(w, h)
	render.Background(dc, doc)

	shapes := render.Shapes(doc)
	cam := interaction.NewCamera()
	if extent, ok := render.Extent(shapes); ok {
		cam = render.Fit(extent, float64(w), float64(h), pngMargin, 1)
	}
	render.Paint(dc, shapes, cam)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("write png %s: %w", path, err)
	}
	return nil
}
