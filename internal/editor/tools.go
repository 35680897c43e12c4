package editor

import (
	"fmt"

	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/typeid"
)

type ToolKind string

const (
	ToolBrush   ToolKind = "brush"
	ToolPolygon ToolKind = "polygon"
	ToolEraser  ToolKind = "eraser"
	ToolPan     ToolKind = "pan"
)

func ParseToolKind(s string) (ToolKind, error) {
	switch k := ToolKind(s); k {
	case ToolBrush, ToolPolygon, ToolEraser, ToolPan:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

// Tool is one editor mode. Activate installs the tool's pointer handlers on
// the surface; Deactivate removes all of them and drops any uncommitted work.
type Tool interface {
	Kind() ToolKind
	Activate(s *Surface)
	Deactivate(s *Surface)
}

const (
	MinBrushWidth     = 5
	MaxBrushWidth     = 100
	DefaultBrushWidth = 30
)

// brushTool captures a freehand path and commits it as a Stroke on release.
type brushTool struct {
	sess *Session
	bindings
	live *document.Stroke
}

func (t *brushTool) Kind() ToolKind { return ToolBrush }

func (t *brushTool) Activate(s *Surface) {
	t.on(s, PointerDown, t.down)
	t.on(s, PointerMove, t.move)
	t.on(s, PointerUp, t.up)
}

func (t *brushTool) Deactivate(s *Surface) {
	t.release(s)
	t.live = nil
}

func (t *brushTool) down(e PointerEvent) {
	t.live = &document.Stroke{
		ID:     typeid.NewStrokeID(),
		Width:  t.sess.brushWidth,
		Points: []document.Point{e.Scene},
	}
}

func (t *brushTool) move(e PointerEvent) {
	if t.live == nil {
		return
	}
	t.live.Points = append(t.live.Points, e.Scene)
}

func (t *brushTool) up(PointerEvent) {
	if t.live == nil {
		return
	}
	stroke := t.live
	t.live = nil
	t.sess.scene.Add(stroke)
	t.sess.pushHistory()
}

// PolygonDraft is the polygon under construction: its vertices and the
// marker handles shown at each of them.
type PolygonDraft struct {
	Points  []document.Point
	Markers []Marker
}

// Marker is a visual vertex handle. It is never part of the scene.
type Marker struct {
	Center document.Point
	Radius float64
}

// polygonTool collects vertices on each click until FinishPolygon.
type polygonTool struct {
	sess *Session
	bindings
	draft PolygonDraft
}

func (t *polygonTool) Kind() ToolKind { return ToolPolygon }

func (t *polygonTool) Activate(s *Surface) {
	t.on(s, PointerDown, t.down)
}

func (t *polygonTool) Deactivate(s *Surface) {
	t.release(s)
	t.draft = PolygonDraft{}
}

func (t *polygonTool) down(e PointerEvent) {
	t.draft.Points = append(t.draft.Points, e.Scene)
	t.draft.Markers = append(t.draft.Markers, Marker{Center: e.Scene, Radius: document.MarkerRadius})
}

func (t *polygonTool) finish() error {
	if len(t.draft.Points) < 3 {
		return fmt.Errorf("%w: have %d", ErrPolygonTooFewPoints, len(t.draft.Points))
	}
	pts := make([]document.Point, len(t.draft.Points))
	copy(pts, t.draft.Points)

	t.draft.Markers = nil
	t.sess.scene.Add(&document.Polygon{ID: typeid.NewPolygonID(), Points: pts})
	t.sess.pushHistory()
	t.draft = PolygonDraft{}
	return t.sess.SelectTool(ToolBrush)
}

// eraserTool removes every shape under the pointer while the primary button
// is held. It snapshots once on press and once on release.
type eraserTool struct {
	sess *Session
	bindings
	pressed bool
}

func (t *eraserTool) Kind() ToolKind { return ToolEraser }

func (t *eraserTool) Activate(s *Surface) {
	t.on(s, PointerDown, t.down)
	t.on(s, PointerMove, t.move)
	t.on(s, PointerUp, t.up)
}

func (t *eraserTool) Deactivate(s *Surface) {
	t.release(s)
	t.pressed = false
}

func (t *eraserTool) down(e PointerEvent) {
	t.pressed = true
	t.sess.scene.EraseAt(e.Scene)
	t.sess.pushHistory()
}

func (t *eraserTool) move(e PointerEvent) {
	if !t.pressed || !e.Primary() {
		return
	}
	t.sess.scene.EraseAt(e.Scene)
}

func (t *eraserTool) up(PointerEvent) {
	if !t.pressed {
		return
	}
	t.pressed = false
	t.sess.pushHistory()
}

// panTool drags the viewport by incremental screen deltas.
type panTool struct {
	sess *Session
	bindings
	dragging     bool
	lastX, lastY float64
}

func (t *panTool) Kind() ToolKind { return ToolPan }

func (t *panTool) Activate(s *Surface) {
	t.on(s, PointerDown, t.down)
	t.on(s, PointerMove, t.move)
	t.on(s, PointerUp, t.up)
}

func (t *panTool) Deactivate(s *Surface) {
	t.release(s)
	t.dragging = false
}

func (t *panTool) down(e PointerEvent) {
	t.dragging = true
	t.lastX, t.lastY = e.X, e.Y
}

func (t *panTool) move(e PointerEvent) {
	if !t.dragging {
		return
	}
	t.sess.viewport.PanBy(e.X-t.lastX, e.Y-t.lastY)
	t.lastX, t.lastY = e.X, e.Y
}

func (t *panTool) up(PointerEvent) {
	t.dragging = false
}
