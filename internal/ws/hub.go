package ws

import "sync"

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub tracks stream subscribers by application ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Subscriber]struct{}
}

// NewHub creates an initialized Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]map[Subscriber]struct{})}
}

// Register adds a client to an application stream.
func (h *Hub) Register(key string, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[key]; !ok {
		h.clients[key] = make(map[Subscriber]struct{})
	}
	h.clients[key][client] = struct{}{}
}

// Unregister removes a client.
func (h *Hub) Unregister(key string, client Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.clients[key]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, key)
		}
	}
}

// Count reports the subscribers of key.
func (h *Hub) Count(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}

// Broadcast sends payload to every subscriber of key, dropping clients whose
// send fails. It returns the number of successful deliveries.
func (h *Hub) Broadcast(key string, payload []byte) int {
	h.mu.RLock()
	targets := make([]Subscriber, 0, len(h.clients[key]))
	for c := range h.clients[key] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			c.Close()
			h.Unregister(key, c)
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll sends a final payload to every subscriber of key and closes them.
func (h *Hub) CloseAll(key string, payload []byte) {
	h.mu.Lock()
	clients := h.clients[key]
	delete(h.clients, key)
	h.mu.Unlock()
	for c := range clients {
		if payload != nil {
			_ = c.Send(payload)
		}
		c.Close()
	}
}
