package realtime

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"

	"swap-service/internal/observability"
)

const clientSendBuffer = 64

// Client is one websocket session of a user.
type Client struct {
	ID     string
	UserID uuid.UUID
	Send   chan []byte

	mu        sync.Mutex
	presences map[uuid.UUID]uuid.UUID
}

// NewClient builds a client with a buffered outbound queue.
func NewClient(id string, userID uuid.UUID) *Client {
	return &Client{
		ID:        id,
		UserID:    userID,
		Send:      make(chan []byte, clientSendBuffer),
		presences: make(map[uuid.UUID]uuid.UUID),
	}
}

func (c *Client) rememberPresence(conversationID, counterpartID uuid.UUID, online bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if online {
		c.presences[conversationID] = counterpartID
		return
	}
	delete(c.presences, conversationID)
}

func (c *Client) announcedPresences() map[uuid.UUID]uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[uuid.UUID]uuid.UUID, len(c.presences))
	for k, v := range c.presences {
		out[k] = v
	}
	return out
}

// Hub maintains the websocket sessions connected to this instance, keyed by
// user so that every open session of a user receives its events.
type Hub struct {
	clients map[uuid.UUID]map[*Client]struct{}
	mu      sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{})}
}

// Register adds a client session.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.UserID]; !ok {
		h.clients[c.UserID] = make(map[*Client]struct{})
	}
	h.clients[c.UserID][c] = struct{}{}
}

// Unregister removes a client session and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sessions, ok := h.clients[c.UserID]
	if !ok {
		return
	}
	if _, ok := sessions[c]; !ok {
		return
	}
	delete(sessions, c)
	close(c.Send)
	if len(sessions) == 0 {
		delete(h.clients, c.UserID)
	}
}

// Sessions returns how many sessions the user has on this instance.
func (h *Hub) Sessions(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Deliver queues the event on every local session of its addressee. A full
// queue drops the event for that session.
func (h *Hub) Deliver(ev Event) int {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("realtime marshal error type=%s: %v", ev.Type, err)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients[ev.To] {
		select {
		case c.Send <- payload:
			delivered++
		default:
			observability.IncRealtimeEvent(ev.Type, "dropped")
			log.Printf("realtime queue full client=%s user=%s type=%s", c.ID, c.UserID, ev.Type)
		}
	}
	if delivered > 0 {
		observability.IncRealtimeEvent(ev.Type, "delivered")
	}
	return delivered
}
