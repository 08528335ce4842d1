package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub is the connection registry: it maps authenticated user ids to their
// live connections. A user may hold any number of concurrent connections
// (multi-device); the hub is the only component that knows who is currently
// reachable.
type Hub struct {
	mu    sync.RWMutex
	conns map[int]map[*Client]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{conns: make(map[int]map[*Client]bool)}
}

// Register records a live connection under the user id.
func (h *Hub) Register(c *Client, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[userID]; !ok {
		h.conns[userID] = make(map[*Client]bool)
	}
	h.conns[userID][c] = true
}

// Unregister removes exactly that connection and reports whether it was the
// user's last one, signaling the caller to mark the user offline.
func (h *Hub) Unregister(c *Client, userID int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.conns[userID]
	if !ok {
		return false
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.conns, userID)
		return true
	}
	return false
}

// ConnectionCount reports the number of live connections for a user.
func (h *Hub) ConnectionCount(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[userID])
}

// Deliver sends the event to every connection the user currently holds.
// A user with no live connection is a silent no-op: nothing is queued for
// offline users beyond what the store already persisted.
func (h *Hub) Deliver(userID int, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: marshal event: %v", err)
		return
	}
	for _, c := range h.snapshot(userID) {
		c.push(payload)
	}
}

// DeliverAll sends the event to every live connection. When excludeUserID is
// non-zero that user's connections are skipped; the exclusion avoids echoing
// a presence transition back to its own user.
func (h *Hub) DeliverAll(event any, excludeUserID int) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws: marshal event: %v", err)
		return
	}

	h.mu.RLock()
	var clients []*Client
	for userID, conns := range h.conns {
		if excludeUserID != 0 && userID == excludeUserID {
			continue
		}
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.push(payload)
	}
}

func (h *Hub) snapshot(userID int) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*Client, 0, len(h.conns[userID]))
	for c := range h.conns[userID] {
		clients = append(clients, c)
	}
	return clients
}
