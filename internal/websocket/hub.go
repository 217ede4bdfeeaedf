// Package websocket pushes "state changed" notifications to connected
// views so they can re-read the document.
package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/erazemk/trailpack/internal/state"
)

// TypeStateChanged is the only message type sent to clients.
const TypeStateChanged = "state_changed"

// Message is one notification. Seq increases by one per store write so a
// client can tell when it missed a dropped message.
type Message struct {
	Type   string `json:"type"`
	Seq    uint64 `json:"seq"`
	Shared bool   `json:"shared"`
}

// Hub maintains the set of connected clients and fans messages out to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger

	seq atomic.Uint64
}

// NewHub creates an empty hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and closes its send channel. Unregistering
// twice is harmless.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Attach subscribes the hub to s: every notification becomes a
// state_changed broadcast.
func (h *Hub) Attach(s *state.Store) state.SubscriptionID {
	return s.Subscribe(func() {
		h.Broadcast(Message{
			Type:   TypeStateChanged,
			Seq:    h.seq.Add(1),
			Shared: s.Session().Shared(),
		})
	})
}

// Broadcast sends msg to every client without blocking. Clients whose
// buffer is full miss the message.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("client buffer full, dropping message", "seq", msg.Seq)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
