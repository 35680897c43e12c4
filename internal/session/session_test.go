package session

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/maskstudio/internal/asset"
	"github.com/inamate/maskstudio/internal/auth"
	"github.com/inamate/maskstudio/internal/typeid"
)

var (
	red   = color.NRGBA{255, 0, 0, 255}
	white = color.NRGBA{255, 255, 255, 255}
	black = color.NRGBA{0, 0, 0, 255}
)

func newTestHub(t *testing.T) (*Hub, *asset.Store) {
	t.Helper()
	store, err := asset.NewStore(t.TempDir())
	require.NoError(t, err)
	return NewHub(store, 0, 0), store
}

func storeBackground(t *testing.T, store *asset.Store, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, red)
		}
	}
	id, err := store.SaveImage(typeid.PrefixAsset, img)
	require.NoError(t, err)
	return asset.URL(id)
}

func send(t *testing.T, h *Hub, c *Client, msgType string, payload interface{}) {
	t.Helper()
	msg := &Message{Type: msgType, RequestID: "req-" + msgType}
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		msg.Payload = data
	}
	h.handleMessage(c, msg)
}

func next(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	default:
		t.Fatal("no message queued")
		return Message{}
	}
}

func nextError(t *testing.T, c *Client) ErrorPayload {
	t.Helper()
	msg := next(t, c)
	require.Equal(t, TypeError, msg.Type)
	var p ErrorPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}

func nextRender(t *testing.T, c *Client) RenderPayload {
	t.Helper()
	msg := next(t, c)
	require.Equal(t, TypeSceneRender, msg.Type, string(msg.Payload))
	var p RenderPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p
}

func nextURL(t *testing.T, c *Client, msgType string) string {
	t.Helper()
	msg := next(t, c)
	require.Equal(t, msgType, msg.Type, string(msg.Payload))
	var p URLPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &p))
	return p.URL
}

func openEditor(t *testing.T, h *Hub, c *Client, imageURL string) RenderPayload {
	t.Helper()
	send(t, h, c, TypeSessionOpen, OpenPayload{
		ImageURL:       imageURL,
		NaturalWidth:   800,
		NaturalHeight:  600,
		ViewportWidth:  600,
		ViewportHeight: 450,
	})
	return nextRender(t, c)
}

func stroke(t *testing.T, h *Hub, c *Client, x, y float64) RenderPayload {
	t.Helper()
	send(t, h, c, TypePointerDown, PointerPayload{X: x, Y: y, Buttons: 1})
	nextRender(t, c)
	send(t, h, c, TypePointerUp, PointerPayload{X: x, Y: y})
	return nextRender(t, c)
}

func openStored(t *testing.T, h *Hub, store *asset.Store, path string) image.Image {
	t.Helper()
	id, ok := asset.IDFromURL(path)
	require.True(t, ok, path)
	img, err := store.Open(id)
	require.NoError(t, err)
	return img
}

func TestMessageWithoutSession(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")

	send(t, h, c, TypePointerDown, PointerPayload{X: 1, Y: 1, Buttons: 1})
	assert.Equal(t, KindNoSession, nextError(t, c).Kind)
}

func TestOpenDrawExport(t *testing.T) {
	h, store := newTestHub(t)
	c := NewClient(h, nil, "user", "client")

	state := openEditor(t, h, c, storeBackground(t, store, 800, 600))
	assert.Equal(t, "brush", string(state.Tool))
	assert.Equal(t, 1.0, state.Zoom)
	assert.Equal(t, 30.0, state.BrushWidth)
	require.NotEmpty(t, state.Commands)
	assert.Equal(t, "image", state.Commands[0].Op)

	state = stroke(t, h, c, 300, 225)
	assert.Equal(t, 1, state.HistoryLength)
	assert.Equal(t, 1, state.ObjectCount)

	send(t, h, c, TypeMaskExport, nil)
	url := nextURL(t, c, TypeMaskExported)

	mask := openStored(t, h, store, url)
	assert.Equal(t, image.Rect(0, 0, 800, 600), mask.Bounds())
	assert.Equal(t, white, color.NRGBAModel.Convert(mask.At(400, 300)))
	assert.Equal(t, black, color.NRGBAModel.Convert(mask.At(10, 10)))
}

func TestApplyMask(t *testing.T) {
	h, store := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, storeBackground(t, store, 800, 600))
	stroke(t, h, c, 300, 225)

	send(t, h, c, TypeMaskApply, nil)
	url := nextURL(t, c, TypeMaskApplied)
	assert.True(t, strings.HasPrefix(url, "/assets/prev_"), url)

	preview := openStored(t, h, store, url)
	assert.Equal(t, red, color.NRGBAModel.Convert(preview.At(400, 300)))
	assert.Equal(t, black, color.NRGBAModel.Convert(preview.At(10, 10)))
}

func TestApplyWithoutStoredBackground(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, "https://cdn.example.com/photo.jpg")

	send(t, h, c, TypeMaskApply, nil)
	assert.Equal(t, KindValidation, nextError(t, c).Kind)

	// Export still works; it never needs the photo.
	send(t, h, c, TypeMaskExport, nil)
	nextURL(t, c, TypeMaskExported)
}

func TestSaveClosesSession(t *testing.T) {
	h, store := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, storeBackground(t, store, 800, 600))
	stroke(t, h, c, 300, 225)

	send(t, h, c, TypeSessionSave, nil)
	url := nextURL(t, c, TypeSessionSaved)
	assert.True(t, strings.HasPrefix(url, "/assets/mask_"), url)
	assert.Equal(t, TypeSessionClosed, next(t, c).Type)

	mask := openStored(t, h, store, url)
	assert.Equal(t, white, color.NRGBAModel.Convert(mask.At(400, 300)))

	send(t, h, c, TypePointerDown, PointerPayload{X: 1, Y: 1, Buttons: 1})
	assert.Equal(t, KindNoSession, nextError(t, c).Kind)
}

func TestCancel(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, "https://cdn.example.com/photo.jpg")

	send(t, h, c, TypeSessionCancel, nil)
	assert.Equal(t, TypeSessionClosed, next(t, c).Type)
	assert.Nil(t, c.editor)
}

func TestPolygonAndTools(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, "https://cdn.example.com/photo.jpg")

	send(t, h, c, TypeToolSelect, ToolPayload{Tool: "polygon"})
	state := nextRender(t, c)
	assert.Equal(t, "polygon", string(state.Tool))
	assert.True(t, state.WidthLocked)

	send(t, h, c, TypeBrushWidth, WidthPayload{Width: 50})
	assert.Equal(t, KindValidation, nextError(t, c).Kind)

	for _, p := range [][2]float64{{100, 100}, {200, 100}} {
		send(t, h, c, TypePointerDown, PointerPayload{X: p[0], Y: p[1], Buttons: 1})
		nextRender(t, c)
	}
	send(t, h, c, TypePolygonFinish, nil)
	assert.Equal(t, KindValidation, nextError(t, c).Kind)

	send(t, h, c, TypePointerDown, PointerPayload{X: 150, Y: 200, Buttons: 1})
	state = nextRender(t, c)
	assert.Equal(t, 3, state.DraftPoints)

	send(t, h, c, TypePolygonFinish, nil)
	state = nextRender(t, c)
	assert.Equal(t, "brush", string(state.Tool))
	assert.Equal(t, 1, state.ObjectCount)
	assert.Equal(t, 1, state.HistoryLength)

	send(t, h, c, TypeHistoryUndo, nil)
	state = nextRender(t, c)
	assert.Equal(t, 0, state.ObjectCount)

	send(t, h, c, TypeToolSelect, ToolPayload{Tool: "lasso"})
	assert.Equal(t, KindValidation, nextError(t, c).Kind)
}

func TestViewMessages(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, "https://cdn.example.com/photo.jpg")

	send(t, h, c, TypeViewZoom, ZoomPayload{Zoom: 2})
	assert.Equal(t, 2.0, nextRender(t, c).Zoom)

	send(t, h, c, TypeViewReset, nil)
	assert.Equal(t, 1.0, nextRender(t, c).Zoom)

	send(t, h, c, TypeSceneClear, nil)
	assert.Equal(t, 1, nextRender(t, c).HistoryLength)
}

func TestViewSnapshot(t *testing.T) {
	h, store := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	openEditor(t, h, c, storeBackground(t, store, 800, 600))
	stroke(t, h, c, 300, 225)

	send(t, h, c, TypeViewSnapshot, nil)
	url := nextURL(t, c, TypeViewImage)

	// The snapshot is canvas-sized: 800x600 at fit scale 0.75.
	img := openStored(t, h, store, url)
	assert.Equal(t, image.Rect(0, 0, 600, 450), img.Bounds())
	assert.Equal(t, red, color.NRGBAModel.Convert(img.At(10, 10)))
}

func TestOpenRejectsOversizedImage(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")

	send(t, h, c, TypeSessionOpen, OpenPayload{
		ImageURL:      "https://example.com/x.png",
		NaturalWidth:  131072,
		NaturalHeight: 131072,
	})
	e := nextError(t, c)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Contains(t, e.Message, "too large")
	assert.Nil(t, c.editor)

	send(t, h, c, TypeMaskExport, nil)
	assert.Equal(t, KindNoSession, nextError(t, c).Kind)
}

func TestOpenUsesStoredImageSize(t *testing.T) {
	h, store := newTestHub(t)
	c := NewClient(h, nil, "user", "client")
	url := storeBackground(t, store, 40, 30)

	send(t, h, c, TypeSessionOpen, OpenPayload{
		ImageURL:      url,
		NaturalWidth:  800,
		NaturalHeight: 600,
	})
	nextRender(t, c)

	bg := c.editor.Background()
	assert.Equal(t, 40, bg.NaturalWidth)
	assert.Equal(t, 30, bg.NaturalHeight)

	send(t, h, c, TypeMaskExport, nil)
	mask := openStored(t, h, store, nextURL(t, c, TypeMaskExported))
	assert.Equal(t, image.Rect(0, 0, 40, 30), mask.Bounds())
}

func TestProtocolErrors(t *testing.T) {
	h, _ := newTestHub(t)
	c := NewClient(h, nil, "user", "client")

	h.handleMessage(c, &Message{Type: TypeSessionOpen, Payload: json.RawMessage(`{"naturalWidth":"wide"}`)})
	assert.Equal(t, KindProtocol, nextError(t, c).Kind)

	send(t, h, c, TypeSessionOpen, OpenPayload{ImageURL: "https://cdn.example.com/x.png"})
	assert.Equal(t, KindValidation, nextError(t, c).Kind)

	openEditor(t, h, c, "https://cdn.example.com/photo.jpg")
	send(t, h, c, "scene.explode", nil)
	assert.Equal(t, KindProtocol, nextError(t, c).Kind)

	send(t, h, c, TypePointerDown, nil)
	assert.Equal(t, KindProtocol, nextError(t, c).Kind)
}

func TestWebsocketRoundTrip(t *testing.T) {
	h, _ := newTestHub(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	svc := auth.NewService("secret")
	srv := httptest.NewServer(NewHandler(h, svc, nil))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.Dial(ctx, wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	token, err := svc.IssueToken("user_7", time.Minute)
	require.NoError(t, err)
	conn, _, err := websocket.Dial(ctx, wsURL+"?token="+token, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	defer readCancel()

	var welcome Message
	require.NoError(t, wsjson.Read(readCtx, conn, &welcome))
	assert.Equal(t, TypeWelcome, welcome.Type)
	assert.Empty(t, welcome.SessionID)
	var wp WelcomePayload
	require.NoError(t, json.Unmarshal(welcome.Payload, &wp))
	assert.Equal(t, "user_7", wp.UserID)

	payload, err := json.Marshal(OpenPayload{
		ImageURL:      "https://cdn.example.com/photo.jpg",
		NaturalWidth:  800,
		NaturalHeight: 600,
	})
	require.NoError(t, err)
	require.NoError(t, wsjson.Write(readCtx, conn, Message{Type: TypeSessionOpen, RequestID: "1", Payload: payload}))

	var render Message
	require.NoError(t, wsjson.Read(readCtx, conn, &render))
	assert.Equal(t, TypeSceneRender, render.Type)
	assert.Equal(t, "1", render.RequestID)
	assert.NoError(t, typeid.Validate(render.SessionID, typeid.PrefixSession))
	assert.Equal(t, 1, h.Count())
}
