package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a rota change notification pushed to connected clients so open
// views can refresh without polling.
type Message struct {
	Type     string         `json:"type"`
	Entity   string         `json:"entity"`
	Action   string         `json:"action"`
	FlatID   int64          `json:"flat_id,omitempty"`
	TaskID   int64          `json:"task_id,omitempty"`
	PeriodID int64          `json:"period_id,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// NewPeriodMessage builds a "period_<action>" message for one task.
func NewPeriodMessage(action string, flatID, taskID, periodID int64, extra map[string]any) Message {
	return Message{
		Type:     fmt.Sprintf("period_%s", action),
		Entity:   "period",
		Action:   action,
		FlatID:   flatID,
		TaskID:   taskID,
		PeriodID: periodID,
		Extra:    extra,
	}
}

// Hub maintains the set of active WebSocket clients and broadcasts messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger

	// onCount observes the client count after every change.
	onCount func(int)
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// OnClientCount installs a callback fired with the new client count whenever a
// client registers or leaves.
func (h *Hub) OnClientCount(fn func(int)) {
	h.mu.Lock()
	h.onCount = fn
	h.mu.Unlock()
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()
	if fn != nil {
		fn(n)
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	n, fn := len(h.clients), h.onCount
	h.mu.Unlock()
	if ok && fn != nil {
		fn(n)
	}
}

// Broadcast sends a message to every client watching the message's flat.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.flatID != msg.FlatID {
			continue
		}
		select {
		case c.send <- data:
		default:
			// Client buffer full, drop rather than block the writer.
			h.logger.Debug("websocket client lagging, message dropped", "type", msg.Type)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
