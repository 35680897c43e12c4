package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inamate/maskstudio/internal/asset"
	"github.com/inamate/maskstudio/internal/compositor"
	"github.com/inamate/maskstudio/internal/document"
	"github.com/inamate/maskstudio/internal/editor"
	"github.com/inamate/maskstudio/internal/typeid"
)

var (
	errBadPayload   = errors.New("invalid payload")
	errNoSession    = errors.New("no editor session is open")
	errNoBackground = errors.New("background image is not stored on this server")
)

func (h *Hub) handleMessage(c *Client, msg *Message) {
	if msg.Type == TypeSessionOpen {
		if err := h.handleOpen(c, msg); err != nil {
			h.replyError(c, msg, err)
			return
		}
		h.render(c, msg.RequestID)
		return
	}

	if c.editor == nil {
		h.replyError(c, msg, errNoSession)
		return
	}

	var err error
	render := true

	switch msg.Type {
	case TypeToolSelect:
		var p ToolPayload
		if err = decode(msg, &p); err == nil {
			var kind editor.ToolKind
			if kind, err = editor.ParseToolKind(p.Tool); err == nil {
				err = c.editor.SelectTool(kind)
			}
		}
	case TypeBrushWidth:
		var p WidthPayload
		if err = decode(msg, &p); err == nil {
			err = c.editor.SetBrushWidth(p.Width)
		}
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err = decode(msg, &p); err == nil {
			err = h.pointer(c, msg.Type, p)
		}
	case TypePolygonFinish:
		err = c.editor.FinishPolygon()
	case TypeViewZoom:
		var p ZoomPayload
		if err = decode(msg, &p); err == nil {
			err = c.editor.SetZoom(p.Zoom)
		}
	case TypeViewReset:
		err = c.editor.ResetView()
	case TypeViewSnapshot:
		render = false
		err = h.snapshot(c, msg.RequestID)
	case TypeHistoryUndo:
		_, err = c.editor.Undo()
	case TypeSceneClear:
		err = c.editor.Clear()
	case TypeMaskExport:
		render = false
		err = h.exportMask(c, msg.RequestID)
	case TypeMaskApply:
		render = false
		err = h.applyMask(c, msg.RequestID)
	case TypeSessionSave:
		render = false
		err = h.save(c, msg.RequestID)
	case TypeSessionCancel:
		render = false
		c.editor.Cancel()
	default:
		slog.Warn("unknown message type", "type", msg.Type, "client", c.ClientID)
		err = fmt.Errorf("%w: unknown message type %q", errBadPayload, msg.Type)
	}

	if err != nil {
		h.replyError(c, msg, err)
		return
	}
	if render {
		h.render(c, msg.RequestID)
	}
}

func (h *Hub) handleOpen(c *Client, msg *Message) error {
	var p OpenPayload
	if err := decode(msg, &p); err != nil {
		return err
	}

	// Reopening replaces the current session without saving it.
	c.closeEditor()

	var bg document.Background
	bg.URL = p.ImageURL
	bg.ReferenceURL = p.ReferenceURL
	bg.NaturalWidth = p.NaturalWidth
	bg.NaturalHeight = p.NaturalHeight

	if id, ok := asset.IDFromURL(p.ImageURL); ok {
		img, err := h.store.Open(id)
		if err != nil {
			slog.Warn("open background", "url", p.ImageURL, "error", err)
		} else {
			// The stored photo is authoritative; the mask must match it.
			b := img.Bounds()
			if (p.NaturalWidth > 0 || p.NaturalHeight > 0) && (p.NaturalWidth != b.Dx() || p.NaturalHeight != b.Dy()) {
				slog.Warn("session.open dimensions differ from stored image",
					"url", p.ImageURL,
					"claimedWidth", p.NaturalWidth, "claimedHeight", p.NaturalHeight,
					"width", b.Dx(), "height", b.Dy(),
				)
			}
			c.background = img
			bg.NaturalWidth = b.Dx()
			bg.NaturalHeight = b.Dy()
		}
	}

	sess, err := editor.Open(editor.Options{
		Background:     bg,
		ViewportWidth:  p.ViewportWidth,
		ViewportHeight: p.ViewportHeight,
		HistoryLimit:   h.historyLimit,
		MaxPixels:      h.maxPixels,
		OnSave: func(maskPNG []byte) error {
			id, err := h.store.SavePNG(typeid.PrefixMask, maskPNG)
			if err != nil {
				return err
			}
			c.savedURL = asset.URL(id)
			return nil
		},
		OnCancel: func() {
			c.reply("", TypeSessionClosed, nil)
			c.closeEditor()
		},
	})
	if err != nil {
		c.background = nil
		return err
	}

	c.editor = sess
	c.sessionID = typeid.NewSessionID()
	slog.Info("editor session opened", "session", c.sessionID, "client", c.ClientID, "url", p.ImageURL)
	return nil
}

func (h *Hub) pointer(c *Client, msgType string, p PointerPayload) error {
	switch msgType {
	case TypePointerDown:
		return c.editor.PointerDown(p.X, p.Y, p.Buttons)
	case TypePointerMove:
		return c.editor.PointerMove(p.X, p.Y, p.Buttons)
	default:
		return c.editor.PointerUp(p.X, p.Y, p.Buttons)
	}
}

func (h *Hub) exportMask(c *Client, requestID string) error {
	out, err := c.editor.Export()
	if err != nil {
		return err
	}
	id, err := h.store.SavePNG(typeid.PrefixMask, out.PNG)
	if err != nil {
		return fmt.Errorf("store mask: %w", err)
	}
	c.reply(requestID, TypeMaskExported, URLPayload{URL: asset.URL(id)})
	return nil
}

// applyMask composites the exported mask against the stored background and
// stores the preview. The scene is not modified.
func (h *Hub) applyMask(c *Client, requestID string) error {
	if c.background == nil {
		return errNoBackground
	}
	out, err := c.editor.Export()
	if err != nil {
		return err
	}
	preview := compositor.Composite(c.background, out.Image)
	id, err := h.store.SaveImage(typeid.PrefixPreview, preview)
	if err != nil {
		return fmt.Errorf("store preview: %w", err)
	}
	c.reply(requestID, TypeMaskApplied, URLPayload{URL: asset.URL(id)})
	return nil
}

// snapshot renders what the canvas currently shows, zoom and pan included.
func (h *Hub) snapshot(c *Client, requestID string) error {
	data, err := c.editor.Preview(c.background)
	if err != nil {
		return err
	}
	id, err := h.store.SavePNG(typeid.PrefixPreview, data)
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	c.reply(requestID, TypeViewImage, URLPayload{URL: asset.URL(id)})
	return nil
}

func (h *Hub) save(c *Client, requestID string) error {
	if _, err := c.editor.Save(); err != nil {
		return err
	}
	c.reply(requestID, TypeSessionSaved, URLPayload{URL: c.savedURL})
	c.reply(requestID, TypeSessionClosed, nil)
	slog.Info("mask saved", "session", c.sessionID, "url", c.savedURL)
	c.closeEditor()
	return nil
}

func (h *Hub) render(c *Client, requestID string) {
	c.reply(requestID, TypeSceneRender, RenderPayload{
		State:    c.editor.State(),
		Commands: c.editor.DrawCommands(),
	})
}

func (h *Hub) replyError(c *Client, msg *Message, err error) {
	kind := errorKind(err)
	message := err.Error()
	if kind == KindInternal {
		slog.Error("editor message failed", "type", msg.Type, "client", c.ClientID, "error", err)
		message = "internal error"
	}
	c.sendError(msg.RequestID, kind, message)
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, errBadPayload):
		return KindProtocol
	case errors.Is(err, errNoSession):
		return KindNoSession
	case errors.Is(err, errNoBackground), editor.IsValidation(err):
		return KindValidation
	case errors.Is(err, editor.ErrBusy):
		return KindBusy
	case errors.Is(err, editor.ErrClosed):
		return KindClosed
	default:
		return KindInternal
	}
}

func decode(msg *Message, v interface{}) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%w: %s requires a payload", errBadPayload, msg.Type)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}
