// Package raster turns scene shapes into pixels and normalizes masks.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/engine"
)

// Rasterize paints shapes onto dst in z-order. m maps scene space to dst
// pixels and is expected to be a uniform scale plus translation.
func Rasterize(dst draw.Image, shapes []document.Shape, m engine.Matrix2D) {
	b := dst.Bounds()
	if b.Empty() {
		return
	}
	scale := math.Sqrt(math.Abs(m.Determinant()))

	var z shapeRasterizer
	for _, s := range shapes {
		if !overlaps(m.TransformRect(engine.ShapeBounds(s)), b) {
			continue
		}
		switch v := s.(type) {
		case *document.Stroke:
			pts := transformPoints(v.Points, m)
			r := v.Width * scale / 2
			if area := clip(pts, r, b); z.begin(area) {
				addStroke(&z.Rasterizer, pts, r, false, area.Min)
				z.paint(dst, area, document.StrokeColor.NRGBA())
			}

		case *document.Polygon:
			if len(v.Points) < 3 {
				continue
			}
			pts := transformPoints(v.Points, m)
			if area := clip(pts, 0, b); z.begin(area) {
				addPolygon(&z.Rasterizer, pts, area.Min)
				z.paint(dst, area, document.PolygonFill.NRGBA())
			}

			r := document.PolygonOutlineWidth * scale / 2
			if area := clip(pts, r, b); z.begin(area) {
				addStroke(&z.Rasterizer, pts, r, true, area.Min)
				z.paint(dst, area, document.PolygonOutline.NRGBA())
			}
		}
	}
}

// shapeRasterizer wraps a vector.Rasterizer whose origin sits at the top-left
// of the pixel area currently being painted.
type shapeRasterizer struct {
	vector.Rasterizer
}

func (z *shapeRasterizer) begin(area image.Rectangle) bool {
	if area.Empty() {
		return false
	}
	z.Reset(area.Dx(), area.Dy())
	z.DrawOp = draw.Over
	return true
}

func (z *shapeRasterizer) paint(dst draw.Image, area image.Rectangle, c color.NRGBA) {
	z.Draw(dst, area, image.NewUniform(c), image.Point{})
}

func overlaps(r engine.Rect, b image.Rectangle) bool {
	return r.X < float64(b.Max.X) && r.X+r.Width > float64(b.Min.X) &&
		r.Y < float64(b.Max.Y) && r.Y+r.Height > float64(b.Min.Y)
}

// clip returns the integer pixel box covering pts grown by pad, within b.
func clip(pts []document.Point, pad float64, b image.Rectangle) image.Rectangle {
	r := engine.PointsBounds(pts).Inflate(pad + 1)
	return image.Rect(
		int(math.Floor(r.X)), int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)), int(math.Ceil(r.Y+r.Height)),
	).Intersect(b)
}

func transformPoints(pts []document.Point, m engine.Matrix2D) []document.Point {
	out := make([]document.Point, len(pts))
	for i, p := range pts {
		x, y := m.TransformPoint(p.X, p.Y)
		out[i] = document.Point{X: x, Y: y}
	}
	return out
}

// Every sub-path is emitted with the same winding so that overlapping pieces
// accumulate instead of cancelling.

func addPolygon(z *vector.Rasterizer, pts []document.Point, origin image.Point) {
	if signedArea(pts) < 0 {
		pts = reversed(pts)
	}
	ox, oy := float64(origin.X), float64(origin.Y)
	z.MoveTo(float32(pts[0].X-ox), float32(pts[0].Y-oy))
	for _, p := range pts[1:] {
		z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	z.ClosePath()
}

// addStroke outlines a polyline of half-width r with round joins and caps.
func addStroke(z *vector.Rasterizer, pts []document.Point, r float64, closed bool, origin image.Point) {
	if len(pts) == 0 || r <= 0 {
		return
	}
	for _, p := range pts {
		addPolygon(z, circle(p, r), origin)
	}
	n := len(pts)
	segs := n - 1
	if closed && n > 2 {
		segs = n
	}
	for i := 0; i < segs; i++ {
		a, b := pts[i], pts[(i+1)%n]
		dx, dy := b.X-a.X, b.Y-a.Y
		l := math.Hypot(dx, dy)
		if l == 0 {
			continue
		}
		nx, ny := -dy/l*r, dx/l*r
		addPolygon(z, []document.Point{
			{X: a.X + nx, Y: a.Y + ny},
			{X: b.X + nx, Y: b.Y + ny},
			{X: b.X - nx, Y: b.Y - ny},
			{X: a.X - nx, Y: a.Y - ny},
		}, origin)
	}
}

func circle(c document.Point, r float64) []document.Point {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	n = max(12, min(n, 128))
	pts := make([]document.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = document.Point{X: c.X + r*math.Cos(a), Y: c.Y + r*math.Sin(a)}
	}
	return pts
}

func signedArea(pts []document.Point) float64 {
	var a float64
	for i := range pts {
		j := (i + 1) % len(pts)
		a += pts[i].X*pts[j].Y - pts[j].X*pts[i].Y
	}
	return a / 2
}

func reversed(pts []document.Point) []document.Point {
	out := make([]document.Point, len(pts))
	for i, p := range pts {
		out[len(pts)-1-i] = p
	}
	return out
}
