// Package editor implements the mask authoring session: a scene of drawn
// shapes over a background photo, a single active tool, viewport zoom/pan
// and snapshot-based undo.
//
// A Session is not safe for concurrent use. It is owned by exactly one
// goroutine (the wasm event loop or one websocket read pump).
package editor

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/engine"
)

// Options configure a new Session.
type Options struct {
	Background document.Background

	// Available viewport size used to pick FitScale when Background.FitScale
	// is zero.
	ViewportWidth  int
	ViewportHeight int

	HistoryLimit int

	// MaxPixels bounds NaturalWidth×NaturalHeight, the size of every export
	// buffer. Zero means DefaultMaxPixels.
	MaxPixels int64

	// OnSave receives the normalized mask PNG. A non-nil error keeps the
	// session open so the user can retry.
	OnSave func(maskPNG []byte) error
	// OnCancel is called when the user discards the session.
	OnCancel func()
}

type Session struct {
	bg         document.Background
	bgAttached bool

	scene    *Scene
	history  *History
	viewport engine.Viewport

	surface *Surface
	brush   *brushTool
	polygon *polygonTool
	eraser  *eraserTool
	pan     *panTool
	active  Tool

	brushWidth float64

	busy   bool
	closed bool

	onSave   func([]byte) error
	onCancel func()
}

// DefaultMaxPixels is the largest background Open accepts by default (about
// 64 megapixels, a 256MB export buffer).
const DefaultMaxPixels = 64 << 20

// Open starts an editing session over a background image. The brush is the
// initial tool.
func Open(opts Options) (*Session, error) {
	bg := opts.Background
	if bg.NaturalWidth <= 0 || bg.NaturalHeight <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidImage, bg.NaturalWidth, bg.NaturalHeight)
	}
	maxPixels := opts.MaxPixels
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	if int64(bg.NaturalWidth) > maxPixels/int64(bg.NaturalHeight) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, bg.NaturalWidth, bg.NaturalHeight, maxPixels)
	}
	if bg.FitScale <= 0 || bg.FitScale > 1 {
		bg.FitScale = document.FitScaleFor(bg.NaturalWidth, bg.NaturalHeight, opts.ViewportWidth, opts.ViewportHeight)
	}

	s := &Session{
		bg:         bg,
		bgAttached: true,
		scene:      NewScene(),
		history:    NewHistory(opts.HistoryLimit),
		viewport:   engine.NewViewport(),
		surface:    NewSurface(),
		brushWidth: DefaultBrushWidth,
		onSave:     opts.OnSave,
		onCancel:   opts.OnCancel,
	}
	s.brush = &brushTool{sess: s}
	s.polygon = &polygonTool{sess: s}
	s.eraser = &eraserTool{sess: s}
	s.pan = &panTool{sess: s}

	s.active = s.brush
	s.active.Activate(s.surface)

	slog.Debug("editor session opened",
		"url", bg.URL,
		"width", bg.NaturalWidth,
		"height", bg.NaturalHeight,
		"fitScale", bg.FitScale,
	)
	return s, nil
}

func (s *Session) tool(k ToolKind) Tool {
	switch k {
	case ToolBrush:
		return s.brush
	case ToolPolygon:
		return s.polygon
	case ToolEraser:
		return s.eraser
	case ToolPan:
		return s.pan
	}
	return nil
}

// SelectTool deactivates the current tool and activates k. Leaving the
// polygon tool discards an unfinished draft.
func (s *Session) SelectTool(k ToolKind) error {
	if err := s.usable(); err != nil {
		return err
	}
	next := s.tool(k)
	if next == nil {
		return fmt.Errorf("%w: %q", ErrUnknownTool, k)
	}
	if next == s.active {
		return nil
	}
	s.active.Deactivate(s.surface)
	s.active = next
	s.active.Activate(s.surface)
	return nil
}

func (s *Session) ActiveTool() ToolKind { return s.active.Kind() }

// PointerDown, PointerMove and PointerUp feed screen-space pointer input to
// the active tool.
func (s *Session) PointerDown(x, y float64, buttons int) error {
	return s.dispatch(PointerDown, x, y, buttons)
}

func (s *Session) PointerMove(x, y float64, buttons int) error {
	return s.dispatch(PointerMove, x, y, buttons)
}

func (s *Session) PointerUp(x, y float64, buttons int) error {
	return s.dispatch(PointerUp, x, y, buttons)
}

func (s *Session) dispatch(t EventType, x, y float64, buttons int) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.surface.Dispatch(t, PointerEvent{
		X:       x,
		Y:       y,
		Scene:   s.viewport.ScreenToScene(x, y),
		Buttons: buttons,
	})
	return nil
}

// FinishPolygon commits the polygon draft and switches back to the brush.
func (s *Session) FinishPolygon() error {
	if err := s.usable(); err != nil {
		return err
	}
	if s.active != s.polygon {
		return ErrNoPolygonDraft
	}
	return s.polygon.finish()
}

// Draft returns a copy of the polygon under construction.
func (s *Session) Draft() PolygonDraft {
	d := PolygonDraft{
		Points:  make([]document.Point, len(s.polygon.draft.Points)),
		Markers: make([]Marker, len(s.polygon.draft.Markers)),
	}
	copy(d.Points, s.polygon.draft.Points)
	copy(d.Markers, s.polygon.draft.Markers)
	return d
}

// SetBrushWidth clamps w to [MinBrushWidth, MaxBrushWidth]. The control is
// locked while the polygon or pan tool is active.
func (s *Session) SetBrushWidth(w float64) error {
	if err := s.usable(); err != nil {
		return err
	}
	if k := s.active.Kind(); k == ToolPolygon || k == ToolPan {
		return ErrWidthLocked
	}
	if math.IsNaN(w) {
		w = DefaultBrushWidth
	}
	s.brushWidth = math.Max(MinBrushWidth, math.Min(MaxBrushWidth, w))
	return nil
}

func (s *Session) BrushWidth() float64 { return s.brushWidth }

// SetZoom snaps and clamps z; shapes are unaffected.
func (s *Session) SetZoom(z float64) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.viewport.Zoom = engine.ClampZoom(z)
	return nil
}

func (s *Session) ZoomIn() error  { return s.SetZoom(s.viewport.Zoom + engine.ZoomStep) }
func (s *Session) ZoomOut() error { return s.SetZoom(s.viewport.Zoom - engine.ZoomStep) }

// ResetView returns to zoom 1 with no pan.
func (s *Session) ResetView() error {
	if err := s.usable(); err != nil {
		return err
	}
	s.viewport = engine.NewViewport()
	return nil
}

func (s *Session) Viewport() engine.Viewport { return s.viewport }

func (s *Session) Background() document.Background { return s.bg }

// BackgroundAttached reports whether the background is part of the render.
func (s *Session) BackgroundAttached() bool { return s.bgAttached }

// Objects returns the drawn shapes in z-order.
func (s *Session) Objects() []document.Shape { return s.scene.Objects() }

func (s *Session) HistoryLen() int { return s.history.Len() }

// Undo drops the latest snapshot and restores the one before it, or clears
// the scene when none is left. It reports whether anything was undone.
func (s *Session) Undo() (bool, error) {
	if err := s.usable(); err != nil {
		return false, err
	}
	if !s.history.Pop() {
		return false, nil
	}
	top, ok := s.history.Top()
	if !ok {
		s.scene.Clear()
		return true, nil
	}
	if err := s.scene.Restore(top); err != nil {
		return true, fmt.Errorf("restore snapshot: %w", err)
	}
	return true, nil
}

// Clear removes every shape and records the empty state so it can be undone.
func (s *Session) Clear() error {
	if err := s.usable(); err != nil {
		return err
	}
	s.scene.Clear()
	s.pushHistory()
	return nil
}

// LoadShapes replaces the scene with shapes, for example a mask drawn in an
// earlier visit, and records the result as one undoable step.
func (s *Session) LoadShapes(shapes []document.Shape) error {
	if err := s.usable(); err != nil {
		return err
	}
	s.scene.Replace(shapes)
	s.pushHistory()
	return nil
}

// HitTest returns the topmost shape under a screen-space point.
func (s *Session) HitTest(x, y float64) string {
	return engine.HitTest(s.scene.Objects(), s.viewport.ScreenToScene(x, y))
}

func (s *Session) pushHistory() {
	snap, err := s.scene.Snapshot()
	if err != nil {
		slog.Error("snapshot scene", "error", err)
		return
	}
	s.history.Push(snap)
}

// Frame returns the render input for the current state.
func (s *Session) Frame() engine.Frame {
	f := engine.Frame{
		Shapes:   s.scene.Objects(),
		Draft:    s.Draft().Points,
		Live:     s.brush.live,
		Viewport: s.viewport,
	}
	if s.bgAttached {
		bg := s.bg
		f.Background = &bg
	}
	return f
}

// DrawCommands compiles the current frame for the canvas frontend.
func (s *Session) DrawCommands() []engine.DrawCommand {
	return engine.CompileDrawCommands(s.Frame())
}

// State is a summary of the session for UIs.
type State struct {
	Tool          ToolKind `json:"tool"`
	Zoom          float64  `json:"zoom"`
	PanX          float64  `json:"panX"`
	PanY          float64  `json:"panY"`
	BrushWidth    float64  `json:"brushWidth"`
	WidthLocked   bool     `json:"widthLocked"`
	HistoryLength int      `json:"historyLength"`
	ObjectCount   int      `json:"objectCount"`
	DraftPoints   int      `json:"draftPoints"`
	Busy          bool     `json:"busy"`
	Closed        bool     `json:"closed"`
}

func (s *Session) State() State {
	k := s.active.Kind()
	return State{
		Tool:          k,
		Zoom:          s.viewport.Zoom,
		PanX:          s.viewport.PanX,
		PanY:          s.viewport.PanY,
		BrushWidth:    s.brushWidth,
		WidthLocked:   k == ToolPolygon || k == ToolPan,
		HistoryLength: s.history.Len(),
		ObjectCount:   s.scene.Len(),
		DraftPoints:   len(s.polygon.draft.Points),
		Busy:          s.busy,
		Closed:        s.closed,
	}
}

func (s *Session) usable() error {
	if s.closed {
		return ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	return nil
}

// Close tears the session down. The active tool is deactivated, which drops
// any draft or half-drawn stroke. Close is idempotent.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.active.Deactivate(s.surface)
	s.closed = true
	slog.Debug("editor session closed", "url", s.bg.URL, "objects", s.scene.Len())
}

func (s *Session) Closed() bool { return s.closed }

// Cancel discards the session and notifies the cancel callback.
func (s *Session) Cancel() {
	if s.closed {
		return
	}
	s.Close()
	if s.onCancel != nil {
		s.onCancel()
	}
}
