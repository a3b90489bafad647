package stream

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Elib27/galaxy-simulation/internal/sim"
)

// sendQueue is the number of frames a client may fall behind before it is
// dropped.
const sendQueue = 8

type client struct {
	w    *SafeWriter
	send chan []byte
}

// Hub fans binary frames out to every connected client. It implements
// sim.Observer. Each client drains its own queue on a separate goroutine, so
// Broadcast never waits on a socket.
type Hub struct {
	mu      sync.RWMutex
	clients map[*SafeWriter]*client
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*SafeWriter]*client),
		logger:  logger,
	}
}

// Add registers w and starts its writer goroutine.
func (h *Hub) Add(w *SafeWriter) {
	c := &client{w: w, send: make(chan []byte, sendQueue)}

	h.mu.Lock()
	if _, ok := h.clients[w]; ok {
		h.mu.Unlock()
		return
	}
	h.clients[w] = c
	h.mu.Unlock()

	go h.writeLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	for data := range c.send {
		if err := c.w.WriteMessage(websocket.BinaryMessage, data); err != nil {
			h.logger.Debug("dropping stream client", "error", err)
			h.Remove(c.w)
			c.w.Close()
			for range c.send {
			}
			return
		}
	}
}

// Remove unregisters w and stops its writer goroutine. Removing an unknown
// writer is a no-op.
func (h *Hub) Remove(w *SafeWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[w]; ok {
		delete(h.clients, w)
		close(c.send)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) OnFrame(f sim.Frame) {
	h.Broadcast(f)
}

// Broadcast encodes f once and queues it for every client. A client whose
// queue is full is dropped and its connection closed.
func (h *Hub) Broadcast(f sim.Frame) {
	if h.Len() == 0 {
		return
	}
	data := AppendFrame(nil, f.Step, f.Positions)

	var slow []*SafeWriter
	h.mu.RLock()
	for w, c := range h.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, w)
		}
	}
	h.mu.RUnlock()

	for _, w := range slow {
		h.logger.Debug("dropping slow stream client", "step", f.Step)
		h.Remove(w)
		w.Close()
	}
}
