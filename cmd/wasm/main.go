//go:build js && wasm

package main

import (
	"encoding/json"
	"errors"
	"syscall/js"

	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/editor"
	"github.com/inamate/maskstudio/internal/engine"
	"github.com/inamate/maskstudio/internal/typeid"
)

var sess *editor.Session

var errNoSession = errors.New("no editor session is open")

type openOptions struct {
	ImageURL       string  `json:"imageUrl"`
	ReferenceURL   string  `json:"referenceUrl"`
	NaturalWidth   int     `json:"naturalWidth"`
	NaturalHeight  int     `json:"naturalHeight"`
	FitScale       float64 `json:"fitScale"`
	ViewportWidth  int     `json:"viewportWidth"`
	ViewportHeight int     `json:"viewportHeight"`
	HistoryLimit   int     `json:"historyLimit"`
}

func main() {
	maskEditor := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	maskEditor.Set("open", js.FuncOf(open))
	maskEditor.Set("selectTool", js.FuncOf(selectTool))
	maskEditor.Set("pointerDown", js.FuncOf(pointerDown))
	maskEditor.Set("pointerMove", js.FuncOf(pointerMove))
	maskEditor.Set("pointerUp", js.FuncOf(pointerUp))
	maskEditor.Set("finishPolygon", js.FuncOf(finishPolygon))
	maskEditor.Set("setZoom", js.FuncOf(setZoom))
	maskEditor.Set("zoomIn", js.FuncOf(zoomIn))
	maskEditor.Set("zoomOut", js.FuncOf(zoomOut))
	maskEditor.Set("resetView", js.FuncOf(resetView))
	maskEditor.Set("setBrushWidth", js.FuncOf(setBrushWidth))
	maskEditor.Set("undo", js.FuncOf(undo))
	maskEditor.Set("clear", js.FuncOf(clearScene))
	maskEditor.Set("loadScene", js.FuncOf(loadScene))
	maskEditor.Set("loadSample", js.FuncOf(loadSample))
	maskEditor.Set("close", js.FuncOf(closeSession))

	// --- Queries (frontend ← editor) ---
	maskEditor.Set("render", js.FuncOf(render))
	maskEditor.Set("getState", js.FuncOf(getState))
	maskEditor.Set("getScene", js.FuncOf(getScene))
	maskEditor.Set("hitTest", js.FuncOf(hitTest))
	maskEditor.Set("getContentBounds", js.FuncOf(getContentBounds))
	maskEditor.Set("exportMask", js.FuncOf(exportMask))

	js.Global().Set("maskEditor", maskEditor)
	js.Global().Set("maskEditorReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func result(err error) interface{} {
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func current() (*editor.Session, error) {
	if sess == nil || sess.Closed() {
		return nil, errNoSession
	}
	return sess, nil
}

func floatArgs(args []js.Value, n int) ([]float64, bool) {
	if len(args) < n {
		return nil, false
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = args[i].Float()
	}
	return out, true
}

// --- Command Handlers ---

func open(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing options JSON"})
	}
	var opts openOptions
	if err := json.Unmarshal([]byte(args[0].String()), &opts); err != nil {
		return result(err)
	}
	if sess != nil {
		sess.Close()
	}

	s, err := editor.Open(editor.Options{
		Background: document.Background{
			URL:           opts.ImageURL,
			ReferenceURL:  opts.ReferenceURL,
			NaturalWidth:  opts.NaturalWidth,
			NaturalHeight: opts.NaturalHeight,
			FitScale:      opts.FitScale,
		},
		ViewportWidth:  opts.ViewportWidth,
		ViewportHeight: opts.ViewportHeight,
		HistoryLimit:   opts.HistoryLimit,
	})
	if err != nil {
		return result(err)
	}
	sess = s

	w, h := s.Background().CanvasSize()
	return js.ValueOf(map[string]interface{}{
		"ok":           true,
		"fitScale":     s.Background().FitScale,
		"canvasWidth":  w,
		"canvasHeight": h,
	})
}

func selectTool(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	if len(args) < 1 {
		return result(editor.ErrUnknownTool)
	}
	kind, err := editor.ParseToolKind(args[0].String())
	if err != nil {
		return result(err)
	}
	return result(s.SelectTool(kind))
}

func pointer(args []js.Value, fn func(s *editor.Session, x, y float64, buttons int) error) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	v, ok := floatArgs(args, 2)
	if !ok {
		return nil
	}
	buttons := 0
	if len(args) > 2 {
		buttons = args[2].Int()
	}
	return result(fn(s, v[0], v[1], buttons))
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	return pointer(args, (*editor.Session).PointerDown)
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	return pointer(args, (*editor.Session).PointerMove)
}

func pointerUp(this js.Value, args []js.Value) interface{} {
	return pointer(args, (*editor.Session).PointerUp)
}

func finishPolygon(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	return result(s.FinishPolygon())
}

func setZoom(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	v, ok := floatArgs(args, 1)
	if !ok {
		return nil
	}
	return result(s.SetZoom(v[0]))
}

func zoomIn(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	return result(s.ZoomIn())
}

func zoomOut(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	return result(s.ZoomOut())
}

func resetView(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	return result(s.ResetView())
}

func setBrushWidth(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	v, ok := floatArgs(args, 1)
	if !ok {
		return nil
	}
	return result(s.SetBrushWidth(v[0]))
}

func undo(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	undone, err := s.Undo()
	if err != nil {
		return result(err)
	}
	return js.ValueOf(map[string]interface{}{"ok": true, "undone": undone})
}

func clearScene(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	return result(s.Clear())
}

func loadScene(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing scene JSON"})
	}
	shapes, err := document.UnmarshalShapes([]byte(args[0].String()))
	if err != nil {
		return result(err)
	}
	return result(s.LoadShapes(shapes))
}

func loadSample(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	w, h := s.Background().CanvasSize()
	shapes := document.NewSampleShapes(float64(w), float64(h), typeid.NewStrokeID(), typeid.NewPolygonID())
	return result(s.LoadShapes(shapes))
}

func closeSession(this js.Value, args []js.Value) interface{} {
	if sess != nil {
		sess.Cancel()
		sess = nil
	}
	return nil
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return js.ValueOf("[]")
	}
	out, err := engine.DrawCommandsToJSON(s.DrawCommands())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(out)
}

func getState(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return js.ValueOf("{}")
	}
	data, err := json.Marshal(s.State())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getScene(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return js.ValueOf("[]")
	}
	data, err := document.MarshalShapes(s.Objects())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func hitTest(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return js.ValueOf("")
	}
	v, ok := floatArgs(args, 2)
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(s.HitTest(v[0], v[1]))
}

func getContentBounds(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return js.ValueOf("{}")
	}
	data, err := json.Marshal(engine.ContentBounds(s.Objects()))
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

// exportMask returns the normalized mask PNG as a Uint8Array.
func exportMask(this js.Value, args []js.Value) interface{} {
	s, err := current()
	if err != nil {
		return result(err)
	}
	out, err := s.Export()
	if err != nil {
		return result(err)
	}
	buf := js.Global().Get("Uint8Array").New(len(out.PNG))
	js.CopyBytesToJS(buf, out.PNG)
	return buf
}
