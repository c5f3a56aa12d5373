package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"signage-studio/internal/event"
)

// Hub fans bus events out to every connected websocket client.
type Hub struct {
	mu sync.RWMutex
	// Registered clients.
	clients map[*Client]bool

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	bus event.Bus
	log *slog.Logger
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		bus:        bus,
		log:        slog.With("component", "websocket.hub"),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", "client_id", client.id, "total_clients", total)
		case client := <-h.unregister:
			h.remove(client)
		case e, ok := <-events:
			if !ok {
				return nil
			}
			message, err := json.Marshal(e)
			if err != nil {
				h.log.Error("failed to marshal event", "error", err, "type", e.Type)
				continue
			}
			h.broadcast(message)
		}
	}
}

func (h *Hub) broadcast(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			h.log.Warn("client too slow, disconnecting", "client_id", client.id)
			close(client.send)
			delete(h.clients, client)
		}
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		h.log.Info("client disconnected", "client_id", client.id, "total_clients", total)
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
