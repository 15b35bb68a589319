package notifications

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// Hub tracks live websocket connections per user and pushes refresh
// events whenever that user's notification state changes. Clients
// re-derive counts and filters from the full snapshot on every event
// instead of patching state incrementally.
type Hub struct {
	mu      sync.RWMutex
	clients map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[uint]map[*websocket.Conn]bool)}
}

func (h *Hub) Register(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]bool)
	}
	h.clients[userID][conn] = true
}

func (h *Hub) Unregister(userID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, exists := h.clients[userID]; exists {
		delete(clients, conn)
		if len(clients) == 0 {
			delete(h.clients, userID)
		}
	}
}

// NotifyRefresh tells every live connection for a user to re-fetch its
// notification state. Safe to call on a nil hub (tests, degraded boot).
func (h *Hub) NotifyRefresh(userID uint) {
	if h == nil {
		return
	}

	h.mu.RLock()
	clients, exists := h.clients[userID]
	if !exists || len(clients) == 0 {
		h.mu.RUnlock()
		return
	}

	// Copy so the lock is not held during writes.
	conns := make([]*websocket.Conn, 0, len(clients))
	for conn := range clients {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			log.Printf("Failed to set write deadline for refresh: %v", err)
			continue
		}

		err := conn.WriteJSON(map[string]interface{}{
			"type":    "refresh",
			"message": "Notification state updated",
			"user_id": userID,
		})

		if err != nil {
			log.Printf("Failed to push refresh to client: %v", err)
			h.Unregister(userID, conn)
			conn.Close()
		}
	}
}
