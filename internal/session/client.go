package session

import (
	"context"
	"encoding/json"
	"image"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/inamate/maskstudio/internal/editor"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
)

// Client is one websocket connection. It owns at most one editor session at
// a time; only its read pump touches that session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	UserID   string
	ClientID string

	editor     *editor.Session
	sessionID  string
	background image.Image
	savedURL   string
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, clientID string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		UserID:   userID,
		ClientID: clientID,
	}
}

func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	c.conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "client", c.ClientID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "client", c.ClientID)
			c.sendError("", KindProtocol, "invalid message")
			continue
		}

		c.hub.handleMessage(c, &msg)
	}
}

func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "client", c.ClientID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) Send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case c.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "client", c.ClientID, "type", msg.Type)
	}
}

func (c *Client) reply(requestID, msgType string, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			slog.Error("marshal payload", "type", msgType, "error", err)
			return
		}
		raw = b
	}
	c.Send(&Message{
		Type:      msgType,
		RequestID: requestID,
		SessionID: c.sessionID,
		Payload:   raw,
	})
}

func (c *Client) sendError(requestID, kind, message string) {
	c.reply(requestID, TypeError, ErrorPayload{Message: message, Kind: kind})
}

// closeEditor drops the current editor session, if any.
func (c *Client) closeEditor() {
	if c.editor != nil {
		c.editor.Close()
	}
	c.editor = nil
	c.sessionID = ""
	c.background = nil
	c.savedURL = ""
}
