package api

import (
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"padget/internal/store"
)

// Hub fans store changes out to server-sent-event clients. Slow clients miss
// events rather than block the store.
type Hub struct {
	mu        sync.Mutex
	clients   map[chan store.Change]struct{}
	closed    bool
	heartbeat time.Duration
}

func NewHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Hub{clients: make(map[chan store.Change]struct{}), heartbeat: heartbeat}
}

func (h *Hub) subscribe() chan store.Change {
	ch := make(chan store.Change, 32)
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch
	}
	h.clients[ch] = struct{}{}
	return ch
}

func (h *Hub) unsubscribe(ch chan store.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast delivers c to every subscriber without blocking.
func (h *Hub) Broadcast(c store.Change) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- c:
		default:
		}
	}
}

// Close ends every open stream so HTTP shutdown does not wait on them.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.clients {
		close(ch)
		delete(h.clients, ch)
	}
}

// Serve streams "changed" events until the client leaves or the hub closes.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	c.SSEvent("ping", gin.H{})
	c.Writer.Flush()

	ctxDone := c.Request.Context().Done()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctxDone:
			return false
		case change, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("changed", change)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{})
			return true
		}
	})
}
