package events

import "sync"

// clientBuffer is how many events a slow subscriber may lag before new
// ones are dropped for it.
const clientBuffer = 16

type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, clientBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish delivers e to every subscriber with room and reports how many
// received it.
func (h *Hub) Publish(e Event) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for ch := range h.clients {
		select {
		case ch <- e:
			n++
		default:
		}
	}
	return n
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
