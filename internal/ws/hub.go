// Package ws pushes question lifecycle events to connected users over
// websockets. Delivery is best effort; clients reconcile with the REST API.
package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event is the frame written to subscribers of /ws/events.
type Event struct {
	Type       string                 `json:"type"`
	QuestionID uint                   `json:"question_id,omitempty"`
	Status     string                 `json:"status,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	At         time.Time              `json:"at"`
}

// Client is one websocket connection for a user. A user may hold several.
type Client struct {
	UserID uint
	Role   string
	Send   chan []byte
	hub    *Hub
	mu     sync.Mutex
	closed bool
}

func NewClient(userID uint, role string, buffer int) *Client {
	if buffer <= 0 {
		buffer = 64
	}
	return &Client{UserID: userID, Role: role, Send: make(chan []byte, buffer)}
}

// Close unregisters the client and closes Send. Safe to call twice.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	hub := c.hub
	c.mu.Unlock()
	if hub != nil {
		hub.unregister(c)
	}
	close(c.Send)
}

func (c *Client) offer(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

type Hub struct {
	mu     sync.RWMutex
	byUser map[uint]map[*Client]struct{}
	count  int
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	c.mu.Lock()
	c.hub = h
	c.mu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	if _, ok := h.byUser[c.UserID][c]; !ok {
		h.byUser[c.UserID][c] = struct{}{}
		h.count++
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m := h.byUser[c.UserID]
	if m == nil {
		return
	}
	if _, ok := m[c]; ok {
		delete(m, c)
		h.count--
	}
	if len(m) == 0 {
		delete(h.byUser, c.UserID)
	}
}

// Publish sends ev to every connection of userID and returns how many
// accepted it. Slow connections with a full buffer miss the event.
func (h *Hub) Publish(userID uint, ev Event) int {
	if h == nil || userID == 0 {
		return 0
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("[WS] marshal %s: %v", ev.Type, err)
		return 0
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range clients {
		if c.offer(data) {
			delivered++
		}
	}
	return delivered
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

func (h *Hub) UserConnected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID]) > 0
}
