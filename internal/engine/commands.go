package engine

import (
	"encoding/json"

	"github.com/inamate/maskstudio/internal/document"
)

// DrawCommand represents a single drawing operation for the frontend to execute.
// The frontend receives a list of these and executes them on a Canvas2D context.
type DrawCommand struct {
	Op          string        `json:"op"`                    // Operation: "image", "path", "circle"
	ObjectID    string        `json:"objectId,omitempty"`    // For hit correlation
	Transform   []float64     `json:"transform,omitempty"`   // [a, b, c, d, e, f] affine matrix
	Path        []PathCommand `json:"path,omitempty"`        // Path data for "path" ops
	Fill        string        `json:"fill,omitempty"`        // Fill color
	Stroke      string        `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64       `json:"strokeWidth,omitempty"` // Stroke width
	LineCap     string        `json:"lineCap,omitempty"`
	X           float64       `json:"x,omitempty"`
	Y           float64       `json:"y,omitempty"`
	Radius      float64       `json:"radius,omitempty"`
	ImageURL    string        `json:"imageUrl,omitempty"`
	ImageWidth  float64       `json:"imageWidth,omitempty"`
	ImageHeight float64       `json:"imageHeight,omitempty"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["Z"].
type PathCommand []interface{}

// Frame is everything visible on the editor canvas at one moment.
type Frame struct {
	Background *document.Background // nil when detached
	Shapes     []document.Shape
	Draft      []document.Point // in-progress polygon vertices
	Live       *document.Stroke // in-progress brush stroke
	Viewport   Viewport
}

// CompileDrawCommands generates a draw command buffer for a frame.
// Commands are in painter's order (back to front).
func CompileDrawCommands(f Frame) []DrawCommand {
	view := f.Viewport.Matrix().ToSlice()
	var commands []DrawCommand

	if bg := f.Background; bg != nil {
		w, h := bg.CanvasSize()
		commands = append(commands, DrawCommand{
			Op:          "image",
			Transform:   view,
			ImageURL:    bg.URL,
			ImageWidth:  float64(w),
			ImageHeight: float64(h),
		})
	}

	for _, s := range f.Shapes {
		commands = append(commands, shapeCommand(s, view))
	}
	if f.Live != nil && len(f.Live.Points) > 0 {
		commands = append(commands, shapeCommand(f.Live, view))
	}

	if len(f.Draft) > 1 {
		commands = append(commands, DrawCommand{
			Op:          "path",
			Transform:   view,
			Path:        polyline(f.Draft, false),
			Stroke:      document.PolygonOutline.String(),
			StrokeWidth: 1,
		})
	}
	for _, p := range f.Draft {
		commands = append(commands, DrawCommand{
			Op:        "circle",
			Transform: view,
			X:         p.X,
			Y:         p.Y,
			Radius:    document.MarkerRadius,
			Fill:      document.MarkerColor.String(),
		})
	}

	return commands
}

func shapeCommand(s document.Shape, view []float64) DrawCommand {
	switch v := s.(type) {
	case *document.Stroke:
		return DrawCommand{
			Op:          "path",
			ObjectID:    v.ID,
			Transform:   view,
			Path:        polyline(v.Points, false),
			Stroke:      document.StrokeColor.String(),
			StrokeWidth: v.Width,
			LineCap:     "round",
		}
	case *document.Polygon:
		return DrawCommand{
			Op:          "path",
			ObjectID:    v.ID,
			Transform:   view,
			Path:        polyline(v.Points, true),
			Fill:        document.PolygonFill.String(),
			Stroke:      document.PolygonOutline.String(),
			StrokeWidth: document.PolygonOutlineWidth,
		}
	}
	return DrawCommand{Op: "noop", ObjectID: s.ShapeID()}
}

func polyline(pts []document.Point, closed bool) []PathCommand {
	path := make([]PathCommand, 0, len(pts)+1)
	for i, p := range pts {
		op := "L"
		if i == 0 {
			op = "M"
		}
		path = append(path, PathCommand{op, p.X, p.Y})
	}
	// A lone point still needs a zero-length segment for the round cap to paint.
	if len(pts) == 1 {
		path = append(path, PathCommand{"L", pts[0].X, pts[0].Y})
	}
	if closed {
		path = append(path, PathCommand{"Z"})
	}
	return path
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// HitTestAll returns the IDs of every shape containing the scene point,
// front to back.
func HitTestAll(shapes []document.Shape, p document.Point) []string {
	var hits []string
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if !ShapeBounds(s).Contains(p.X, p.Y) {
			continue
		}
		if s.ContainsPoint(p) {
			hits = append(hits, s.ShapeID())
		}
	}
	return hits
}

// HitTest returns the ID of the topmost shape containing the point, or empty string.
func HitTest(shapes []document.Shape, p document.Point) string {
	if hits := HitTestAll(shapes, p); len(hits) > 0 {
		return hits[0]
	}
	return ""
}

// ContentBounds returns the combined bounding box of all shapes.
func ContentBounds(shapes []document.Shape) Rect {
	var result Rect
	for _, s := range shapes {
		result = result.Union(ShapeBounds(s))
	}
	return result
}
