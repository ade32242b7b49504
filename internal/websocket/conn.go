package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write on the result stream.
	writeWait = 10 * time.Second
	// readWait is the idle limit; viewers must ping at least this often.
	readWait = 5 * time.Minute
)

// StreamConn serializes writes to one result-stream connection. The pong
// path and the result path write from different goroutines, and
// gorilla/websocket permits only one writer at a time.
type StreamConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// NewStreamConn wraps an upgraded connection.
func NewStreamConn(conn *websocket.Conn) *StreamConn {
	return &StreamConn{conn: conn}
}

// WriteTyped sends a strongly-typed payload while holding the write lock.
func (s *StreamConn) WriteTyped(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse.
func (s *StreamConn) WriteError(errMsg string) error {
	return s.WriteTyped(ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes the next client message. Reads stay on a
// single goroutine; only writes need the lock.
func (s *StreamConn) ReadJSON(v interface{}) error {
	s.conn.SetReadDeadline(time.Now().Add(readWait))
	return s.conn.ReadJSON(v)
}
