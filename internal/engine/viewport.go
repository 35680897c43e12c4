package engine

import (
	"math"

	"github.com/inamate/maskstudio/internal/document"
)

const (
	MinZoom  = 0.5
	MaxZoom  = 3.0
	ZoomStep = 0.25
)

// Viewport is the presentational zoom/pan state of the editor canvas.
// It never changes the coordinates stored in shapes.
type Viewport struct {
	Zoom float64 `json:"zoom"`
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
}

// NewViewport returns the unzoomed, unpanned view.
func NewViewport() Viewport {
	return Viewport{Zoom: 1}
}

// ClampZoom snaps z to the nearest ZoomStep and bounds it to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	z = math.Round(z/ZoomStep) * ZoomStep
	return math.Max(MinZoom, math.Min(MaxZoom, z))
}

// Matrix maps scene space to screen space: Translate(pan) * Scale(zoom).
func (v Viewport) Matrix() Matrix2D {
	return Translate(v.PanX, v.PanY).Multiply(Scale(v.Zoom, v.Zoom))
}

// ScreenToScene maps a pointer position to scene space.
func (v Viewport) ScreenToScene(x, y float64) document.Point {
	sx, sy := v.Matrix().Invert().TransformPoint(x, y)
	return document.Point{X: sx, Y: sy}
}

// PanBy shifts the view by a screen-space delta.
func (v *Viewport) PanBy(dx, dy float64) {
	v.PanX += dx
	v.PanY += dy
}

// Rect represents an axis-aligned bounding box.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains checks if a point is inside the rect.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
}

// IsEmpty checks if the rect has zero or negative area.
func (r Rect) IsEmpty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing both rects.
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}

	minX := min(r.X, other.X)
	minY := min(r.Y, other.Y)
	maxX := max(r.X+r.Width, other.X+other.Width)
	maxY := max(r.Y+r.Height, other.Y+other.Height)

	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Inflate grows the rect by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{X: r.X - d, Y: r.Y - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// PointsBounds returns the bounding box of pts.
func PointsBounds(pts []document.Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// ShapeBounds returns the painted extent of a shape in scene space.
func ShapeBounds(s document.Shape) Rect {
	switch v := s.(type) {
	case *document.Stroke:
		return PointsBounds(v.Points).Inflate(v.Width / 2)
	case *document.Polygon:
		return PointsBounds(v.Points).Inflate(document.PolygonOutlineWidth / 2)
	}
	return Rect{}
}
