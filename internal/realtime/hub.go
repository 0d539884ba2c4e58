package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"moogtchat/internal/common"
)

// Hub maintains the set of active clients, keyed by user id. One logical
// channel per user; a user may hold several connections at once.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			log.Printf("realtime: client registered for user %s", client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if userClients, ok := h.clients[client.UserID]; ok {
				if _, clientOk := userClients[client]; clientOk {
					delete(userClients, client)
					close(client.send)
					if len(userClients) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, userClients := range h.clients {
				for client := range userClients {
					close(client.send)
				}
			}
			h.clients = make(map[string]map[*Client]bool)
			h.mu.Unlock()
			return
		}
	}
}

// Shutdown stops the loop and closes every client send channel.
func (h *Hub) Shutdown() {
	close(h.done)
}

// SendToUser pushes an event to every open connection of one user. A user
// with no connections is not an error. A slow client with a full buffer is
// skipped rather than blocking the caller.
func (h *Hub) SendToUser(userID string, event common.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			log.Printf("realtime: send buffer full for user %s, dropping %s event", userID, event.Type)
		}
	}
	return nil
}

// ConnectionCount reports open connections for a user. Used by tests and the
// health endpoint.
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
