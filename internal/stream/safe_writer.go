// Package stream publishes simulation frames to websocket renderers and
// accepts control messages from them.
package stream

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeTimeout = time.Second

// SafeWriter serializes writes to one websocket connection.
type SafeWriter struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func NewSafeWriter(conn *websocket.Conn) *SafeWriter {
	return &SafeWriter{conn: conn}
}

func (w *SafeWriter) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteJSON(v)
}

func (w *SafeWriter) WriteMessage(messageType int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.conn.WriteMessage(messageType, data)
}

// Close closes the connection without waiting for an in-flight write, which
// then fails.
func (w *SafeWriter) Close() error {
	return w.conn.Close()
}
