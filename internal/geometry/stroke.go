package geometry

import "math"

// StrokePoint is one freehand sample: position plus pen pressure in [0,1].
type StrokePoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Pressure float64 `json:"p"`
}

// StrokeOptions shapes the outline produced by StrokeOutline.
type StrokeOptions struct {
	Size       float64 // diameter at full pressure
	Thinning   float64 // how much low pressure narrows the stroke, 0..1
	Streamline float64 // how strongly samples are pulled toward the previous one, 0..1
	CapSteps   int     // segments used for each round cap
}

// DefaultStrokeOptions matches the pencil tool.
var DefaultStrokeOptions = StrokeOptions{
	Size:       16,
	Thinning:   0.5,
	Streamline: 0.5,
	CapSteps:   8,
}

// StrokeBounds returns the min/max extent of the samples.
func StrokeBounds(points []StrokePoint) (Rect, bool) {
	if len(points) == 0 {
		return Rect{}, false
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// RelativeStroke shifts samples so origin becomes (0,0).
func RelativeStroke(points []StrokePoint, origin Point) []StrokePoint {
	out := make([]StrokePoint, len(points))
	for i, p := range points {
		out[i] = StrokePoint{X: p.X - origin.X, Y: p.Y - origin.Y, Pressure: p.Pressure}
	}
	return out
}

// ScaleStroke multiplies sample coordinates by sx, sy. Points are relative to
// their layer, so scaling keeps the stroke inside its resized box.
func ScaleStroke(points []StrokePoint, sx, sy float64) []StrokePoint {
	out := make([]StrokePoint, len(points))
	for i, p := range points {
		out[i] = StrokePoint{X: p.X * sx, Y: p.Y * sy, Pressure: p.Pressure}
	}
	return out
}

func strokeRadius(opts StrokeOptions, pressure float64) float64 {
	if pressure <= 0 {
		pressure = 0.5
	}
	pressure = math.Min(pressure, 1)
	r := opts.Size * (0.5 - opts.Thinning*(0.5-pressure))
	return math.Max(r, 0.5)
}

// StrokeOutline turns freehand samples into a closed polygon whose width
// follows pressure. The samples are streamlined first so jitter does not show
// in the outline.
func StrokeOutline(points []StrokePoint, opts StrokeOptions) []Point {
	if len(points) == 0 {
		return nil
	}
	if opts.CapSteps <= 0 {
		opts.CapSteps = DefaultStrokeOptions.CapSteps
	}
	if opts.Size <= 0 {
		opts.Size = DefaultStrokeOptions.Size
	}

	smooth := make([]StrokePoint, 0, len(points))
	smooth = append(smooth, points[0])
	t := 1 - math.Max(0, math.Min(opts.Streamline, 0.99))
	for _, p := range points[1:] {
		prev := smooth[len(smooth)-1]
		next := StrokePoint{
			X:        prev.X + (p.X-prev.X)*t,
			Y:        prev.Y + (p.Y-prev.Y)*t,
			Pressure: p.Pressure,
		}
		if next.X == prev.X && next.Y == prev.Y {
			continue
		}
		smooth = append(smooth, next)
	}

	if len(smooth) == 1 {
		return circle(Point{X: smooth[0].X, Y: smooth[0].Y}, strokeRadius(opts, smooth[0].Pressure), opts.CapSteps*2)
	}

	left := make([]Point, len(smooth))
	right := make([]Point, len(smooth))
	for i, p := range smooth {
		a, b := smooth[max(i-1, 0)], smooth[min(i+1, len(smooth)-1)]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			dx, dy, l = 1, 0, 1
		}
		nx, ny := -dy/l, dx/l
		r := strokeRadius(opts, p.Pressure)
		left[i] = Point{X: p.X + nx*r, Y: p.Y + ny*r}
		right[i] = Point{X: p.X - nx*r, Y: p.Y - ny*r}
	}

	outline := make([]Point, 0, 2*len(smooth)+2*opts.CapSteps)
	outline = append(outline, left...)
	last := smooth[len(smooth)-1]
	outline = append(outline, capArc(Point{X: last.X, Y: last.Y}, left[len(left)-1], opts.CapSteps)...)
	for i := len(right) - 1; i >= 0; i-- {
		outline = append(outline, right[i])
	}
	first := smooth[0]
	outline = append(outline, capArc(Point{X: first.X, Y: first.Y}, right[0], opts.CapSteps)...)
	return outline
}

// capArc sweeps half a circle around center starting from the point from.
// The start point itself is not repeated.
func capArc(center, from Point, steps int) []Point {
	start := math.Atan2(from.Y-center.Y, from.X-center.X)
	r := math.Hypot(from.X-center.X, from.Y-center.Y)
	out := make([]Point, 0, steps-1)
	for i := 1; i < steps; i++ {
		a := start - math.Pi*float64(i)/float64(steps)
		out = append(out, Point{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)})
	}
	return out
}

func circle(center Point, r float64, steps int) []Point {
	out := make([]Point, steps)
	for i := range out {
		a := 2 * math.Pi * float64(i) / float64(steps)
		out[i] = Point{X: center.X + r*math.Cos(a), Y: center.Y + r*math.Sin(a)}
	}
	return out
}
