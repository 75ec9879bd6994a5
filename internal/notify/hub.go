// internal/notify/hub.go

package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Dispatcher is the realtime delivery capability consumed by the matching
// engine. Deliver is best-effort: it returns false, not an error, when the
// recipient has no active session.
type Dispatcher interface {
	Deliver(userID int64, n *Notification) bool
}

// Hub maintains active websocket sessions keyed by user id
type Hub struct {
	// Registered clients
	clients    map[int64]*Client
	clientsMux sync.RWMutex

	// Register/unregister clients
	register   chan *Client
	unregister chan *Client

	// Presence updates on connect/disconnect
	presence *PresenceTracker

	// Context for graceful shutdown
	ctx    context.Context
	cancel context.CancelFunc

	// WaitGroup for pending operations
	wg sync.WaitGroup
}

func NewHub(presence *PresenceTracker) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[int64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   presence,
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (h *Hub) Run() {
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// Remove old connection for the same user
	if oldClient, exists := h.clients[client.userID]; exists {
		oldClient.Close()
	}

	h.clients[client.userID] = client
	activeConnections.Set(float64(len(h.clients)))

	if h.presence != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			if err := h.presence.SetOnline(h.ctx, client.userID); err != nil {
				log.Printf("Failed to mark user %d online: %v", client.userID, err)
			}
		}()
	}

	log.Printf("User %d connected. Total clients: %d", client.userID, len(h.clients))
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	// A replaced connection may already have been evicted; only the current
	// session for the user updates presence.
	if current, exists := h.clients[client.userID]; exists && current == client {
		client.Close()
		delete(h.clients, client.userID)
		activeConnections.Set(float64(len(h.clients)))

		if h.presence != nil {
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				if err := h.presence.SetOffline(h.ctx, client.userID); err != nil {
					log.Printf("Failed to mark user %d offline: %v", client.userID, err)
				}
			}()
		}

		log.Printf("User %d disconnected. Total clients: %d", client.userID, len(h.clients))
	}
}

// Deliver pushes a notification frame to the user's session. Returns false
// when the user has no session or their send buffer is full; the persisted
// row is the durable copy either way.
func (h *Hub) Deliver(userID int64, n *Notification) bool {
	data, err := json.Marshal(Frame{Type: "notification", Data: n})
	if err != nil {
		log.Printf("Error marshalling notification frame: %v", err)
		return false
	}

	// The send must happen under the read lock: a reconnect closes the old
	// session's send channel under the write lock, so holding the read lock
	// here keeps the channel open for the duration of the send.
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	client, exists := h.clients[userID]
	if !exists {
		return false
	}

	select {
	case client.send <- data:
		deliveredTotal.Inc()
		return true
	default:
		// Slow consumer; drop the session rather than block the caller.
		// The handoff must not outlive the hub, Run may already have exited.
		go func() {
			select {
			case h.unregister <- client:
			case <-h.ctx.Done():
			}
		}()
		return false
	}
}

// IsUserOnline reports whether the user has an active session
func (h *Hub) IsUserOnline(userID int64) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()

	_, exists := h.clients[userID]
	return exists
}

// ActiveConnections returns the number of live sessions
func (h *Hub) ActiveConnections() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	for _, client := range h.clients {
		client.Close()
	}
	h.clients = make(map[int64]*Client)
	activeConnections.Set(0)
	h.clientsMux.Unlock()

	h.wg.Wait()
}

func (h *Hub) Shutdown() {
	h.cancel()
	h.wg.Wait()
}
