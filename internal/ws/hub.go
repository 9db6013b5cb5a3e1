package ws

import (
	"encoding/json"
	"sync"
	"time"

	"omnichan/backend/pkg/logger"
)

// StreamEvent is one frame pushed to connected agents
type StreamEvent struct {
	Type           string      `json:"type"`
	ConversationID uint        `json:"conversationId,omitempty"`
	Payload        interface{} `json:"payload,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

const (
	EventMessageReceived     = "message.received"
	EventMessageSent         = "message.sent"
	EventReceiptApplied      = "receipt.applied"
	EventConversationUpdated = "conversation.updated"
)

// Hub fans events out to the websocket connections of each account. Events
// for an account with no connected clients are discarded; the stream is a
// live feed, not a replay log.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*Client]struct{}
	log     *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients: make(map[uint]map[*Client]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.log.Debug("Stream client connected", "user_id", c.userID, "clients", len(h.clients[c.userID]))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// Publish sends an event to every connection owned by the account. A client
// whose send buffer is full is disconnected rather than allowed to stall
// the rest.
func (h *Hub) Publish(userID uint, event StreamEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	frame, err := json.Marshal(event)
	if err != nil {
		h.log.Error("Failed to encode stream event", "type", event.Type, "error", err)
		return
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		select {
		case c.send <- frame:
		default:
			// unregister first so a later Publish cannot hit the closed channel
			h.log.Warn("Stream client too slow, dropping connection", "user_id", userID)
			h.unregister(c)
			c.close()
		}
	}
}

// ConnectedClients reports the total connection count, used by health checks
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
