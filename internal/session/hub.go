package session

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/coder/websocket"

	"github.com/inamate/maskstudio/internal/asset"
)

// Hub tracks connected editor clients and dispatches their messages. Each
// client's editor session is driven only from that client's read pump.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]*Client // clientID -> client
	register     chan *Client
	unregister   chan *Client
	done         chan struct{}
	store        *asset.Store
	historyLimit int
	maxPixels    int64
}

// NewHub creates a hub whose editor sessions keep historyLimit undo steps and
// accept backgrounds of at most maxPixels pixels.
func NewHub(store *asset.Store, historyLimit int, maxPixels int64) *Hub {
	return &Hub{
		clients:      make(map[string]*Client),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		done:         make(chan struct{}),
		store:        store,
		historyLimit: historyLimit,
		maxPixels:    maxPixels,
	}
}

// Run processes registrations until ctx is cancelled, then closes every
// remaining client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.ClientID] = client
	h.mu.Unlock()

	// No SessionID: only the read pump touches the client's session fields.
	payload, _ := json.Marshal(WelcomePayload{ClientID: client.ClientID, UserID: client.UserID})
	client.Send(&Message{Type: TypeWelcome, Payload: payload})

	slog.Info("client joined", "user", client.UserID, "client", client.ClientID)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ClientID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.ClientID)
	close(client.send)
	h.mu.Unlock()

	slog.Info("client left", "user", client.UserID, "client", client.ClientID)
}

// closeAll closes every connection. Read pumps then exit on their own; the
// send channels are left to them since they may still be writing.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		if c.conn != nil {
			c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		}
		delete(h.clients, id)
	}
	slog.Info("editor hub stopped")
}
