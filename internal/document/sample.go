package document

// NewSampleShapes returns a small mask used by the playground editor: a
// diagonal brush stroke and a triangle, both inside a canvas of w×h.
func NewSampleShapes(w, h float64, strokeID, polygonID string) []Shape {
	return []Shape{
		&Stroke{
			ID:    strokeID,
			Width: 30,
			Points: []Point{
				{X: w * 0.15, Y: h * 0.2},
				{X: w * 0.3, Y: h * 0.35},
				{X: w * 0.45, Y: h * 0.4},
			},
		},
		&Polygon{
			ID: polygonID,
			Points: []Point{
				{X: w * 0.6, Y: h * 0.6},
				{X: w * 0.85, Y: h * 0.6},
				{X: w * 0.72, Y: h * 0.85},
			},
		},
	}
}
