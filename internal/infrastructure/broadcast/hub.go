// Package broadcast fans change notifications out to registered page
// contexts. Delivery is at-most-once: a context whose buffer is full misses
// the message and nothing is retried.
package broadcast

import (
	"sync"
	"sync/atomic"

	"pagesmith.dev/engine/internal/application/ports"
)

// DefaultBuffer is the per-context queue length used when none is given.
const DefaultBuffer = 16

// Hub is an in-process registry of page contexts.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan []byte
	nextID      atomic.Uint64
	buffer      int
	logger      ports.LoggingGateway
}

// NewHub creates a hub whose contexts buffer up to buffer messages.
func NewHub(buffer int, logger ports.LoggingGateway) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = ports.NoopLogger{}
	}
	return &Hub{
		subscribers: make(map[uint64]chan []byte),
		buffer:      buffer,
		logger:      logger,
	}
}

// Broadcast sends message to every registered context without blocking and
// returns how many accepted it.
func (h *Hub) Broadcast(message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for id, ch := range h.subscribers {
		select {
		case ch <- message:
			delivered++
		default:
			h.logger.Log(ports.LogLevelWarn, "broadcast dropped for slow page context", map[string]interface{}{
				"context_id": id,
			})
		}
	}
	return delivered
}

// Register adds a page context. The returned channel receives broadcasts
// until unregister is called, after which it is closed.
func (h *Hub) Register() (<-chan []byte, func()) {
	ch := make(chan []byte, h.buffer)
	id := h.nextID.Add(1)

	h.mu.Lock()
	h.subscribers[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subscribers, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Len returns the number of registered contexts.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
