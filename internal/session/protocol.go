package session

import (
	"encoding/json"

	"github.com/inamate/maskstudio/internal/editor"
	"github.com/inamate/maskstudio/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeError   = "error"

	// Client -> server
	TypeSessionOpen   = "session.open"
	TypeToolSelect    = "tool.select"
	TypeBrushWidth    = "brush.width"
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePolygonFinish = "polygon.finish"
	TypeViewZoom      = "view.zoom"
	TypeViewReset     = "view.reset"
	TypeViewSnapshot  = "view.snapshot"
	TypeHistoryUndo   = "history.undo"
	TypeSceneClear    = "scene.clear"
	TypeMaskExport    = "mask.export"
	TypeMaskApply     = "mask.apply"
	TypeSessionSave   = "session.save"
	TypeSessionCancel = "session.cancel"

	// Server -> client
	TypeSceneRender   = "scene.render"
	TypeViewImage     = "view.image"
	TypeMaskExported  = "mask.exported"
	TypeMaskApplied   = "mask.applied"
	TypeSessionSaved  = "session.saved"
	TypeSessionClosed = "session.closed"
)

// Error kinds reported in error payloads.
const (
	KindProtocol   = "protocol"
	KindValidation = "validation"
	KindBusy       = "busy"
	KindClosed     = "closed"
	KindNoSession  = "no_session"
	KindInternal   = "internal"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	UserID   string `json:"userId,omitempty"`
}

type OpenPayload struct {
	ImageURL       string `json:"imageUrl"`
	NaturalWidth   int    `json:"naturalWidth"`
	NaturalHeight  int    `json:"naturalHeight"`
	ViewportWidth  int    `json:"viewportWidth"`
	ViewportHeight int    `json:"viewportHeight"`
	ReferenceURL   string `json:"referenceUrl,omitempty"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type WidthPayload struct {
	Width float64 `json:"width"`
}

type PointerPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Buttons int     `json:"buttons"`
}

type ZoomPayload struct {
	Zoom float64 `json:"zoom"`
}

type RenderPayload struct {
	editor.State
	Commands []engine.DrawCommand `json:"commands"`
}

type URLPayload struct {
	URL string `json:"url"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}
