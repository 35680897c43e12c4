package document

import (
	"encoding/json"
	"fmt"
	"image/color"
	"math"
)

// Background is the source photo a mask is drawn over. It never appears in
// the object list and is immutable for the lifetime of a session.
type Background struct {
	URL           string  `json:"url"`
	ReferenceURL  string  `json:"referenceUrl,omitempty"`
	NaturalWidth  int     `json:"naturalWidth"`
	NaturalHeight int     `json:"naturalHeight"`
	FitScale      float64 `json:"fitScale"`
}

// FitScaleFor returns the largest scale ≤ 1 at which a natW×natH image fits
// inside an availW×availH viewport. Non-positive viewport sizes mean "no limit".
func FitScaleFor(natW, natH, availW, availH int) float64 {
	if natW <= 0 || natH <= 0 {
		return 1
	}
	scale := 1.0
	if availW > 0 {
		scale = math.Min(scale, float64(availW)/float64(natW))
	}
	if availH > 0 {
		scale = math.Min(scale, float64(availH)/float64(natH))
	}
	return scale
}

// CanvasSize is the size of the on-screen canvas, which defines scene space.
func (b Background) CanvasSize() (int, int) {
	s := b.FitScale
	if s <= 0 {
		s = 1
	}
	return int(math.Round(float64(b.NaturalWidth) * s)), int(math.Round(float64(b.NaturalHeight) * s))
}

// ExportMultiplier maps scene space back to natural image pixels.
func (b Background) ExportMultiplier() float64 {
	if b.FitScale <= 0 || math.IsNaN(b.FitScale) {
		return 1
	}
	return 1 / b.FitScale
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Color is a CSS-style color with a fractional alpha.
type Color struct {
	R, G, B uint8
	A       float64
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%g)", c.R, c.G, c.B, c.A)
}

// NRGBA converts to a non-premultiplied color for rasterization.
func (c Color) NRGBA() color.NRGBA {
	a := math.Round(math.Max(0, math.Min(1, c.A)) * 255)
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a)}
}

var (
	StrokeColor    = Color{R: 255, G: 255, B: 255, A: 0.5}
	PolygonFill    = Color{R: 255, G: 255, B: 255, A: 0.7}
	PolygonOutline = Color{R: 255, G: 255, B: 255, A: 1}
	MarkerColor    = Color{R: 255, G: 0, B: 0, A: 1}
)

const (
	PolygonOutlineWidth = 2.0
	MarkerRadius        = 4.0
)

type ShapeType string

const (
	ShapeTypeStroke  ShapeType = "Stroke"
	ShapeTypePolygon ShapeType = "Polygon"
)

// Shape is a drawn mask object. All coordinates are in scene space.
type Shape interface {
	ShapeID() string
	Type() ShapeType
	// ContainsPoint reports whether p lies on the shape's painted geometry.
	ContainsPoint(p Point) bool
}

// Stroke is a freehand brush path.
type Stroke struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Width  float64 `json:"width"`
}

func (s *Stroke) ShapeID() string { return s.ID }
func (s *Stroke) Type() ShapeType { return ShapeTypeStroke }

func (s *Stroke) ContainsPoint(p Point) bool {
	r := s.Width / 2
	switch len(s.Points) {
	case 0:
		return false
	case 1:
		return dist(p, s.Points[0]) <= r
	}
	for i := 1; i < len(s.Points); i++ {
		if distToSegment(p, s.Points[i-1], s.Points[i]) <= r {
			return true
		}
	}
	return false
}

// Polygon is a closed, filled region.
type Polygon struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
}

func (pg *Polygon) ShapeID() string { return pg.ID }
func (pg *Polygon) Type() ShapeType { return ShapeTypePolygon }

func (pg *Polygon) ContainsPoint(p Point) bool {
	if len(pg.Points) < 3 {
		return false
	}
	if pointInPolygon(p, pg.Points) {
		return true
	}
	n := len(pg.Points)
	for i := range pg.Points {
		if distToSegment(p, pg.Points[i], pg.Points[(i+1)%n]) <= PolygonOutlineWidth/2 {
			return true
		}
	}
	return false
}

// ObjectNode is the serialized envelope of a shape.
type ObjectNode struct {
	ID   string          `json:"id"`
	Type ShapeType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalShapes serializes shapes in z-order.
func MarshalShapes(shapes []Shape) ([]byte, error) {
	nodes := make([]ObjectNode, 0, len(shapes))
	for _, s := range shapes {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal %s %s: %w", s.Type(), s.ShapeID(), err)
		}
		nodes = append(nodes, ObjectNode{ID: s.ShapeID(), Type: s.Type(), Data: data})
	}
	return json.Marshal(nodes)
}

// UnmarshalShapes is the inverse of MarshalShapes.
func UnmarshalShapes(data []byte) ([]Shape, error) {
	var nodes []ObjectNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, err
	}
	shapes := make([]Shape, 0, len(nodes))
	for _, n := range nodes {
		var s Shape
		switch n.Type {
		case ShapeTypeStroke:
			s = &Stroke{}
		case ShapeTypePolygon:
			s = &Polygon{}
		default:
			return nil, fmt.Errorf("unknown shape type: %s", n.Type)
		}
		if err := json.Unmarshal(n.Data, s); err != nil {
			return nil, fmt.Errorf("unmarshal %s %s: %w", n.Type, n.ID, err)
		}
		shapes = append(shapes, s)
	}
	return shapes, nil
}
