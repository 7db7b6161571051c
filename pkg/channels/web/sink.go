package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"concierge/pkg/api"
)

// sseSink writes events as server-sent events: one `data: <json>` line
// per event, blank-line terminated. A terminal event or a wire error
// closes the sink; later emits are silent no-ops.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	mu      sync.Mutex
	closed  bool
	done    chan struct{}
}

func newSSESink(w http.ResponseWriter, flusher http.Flusher) *sseSink {
	return &sseSink{w: w, flusher: flusher, done: make(chan struct{})}
}

func (s *sseSink) Emit(event api.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("event marshal failed", "error", err)
		return
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.closeLocked()
		return
	}
	s.flusher.Flush()

	if event.Type == api.EventDone || event.Type == api.EventError {
		s.closeLocked()
	}
}

func (s *sseSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// abandon closes the sink when the client disconnects mid-turn; the
// engine keeps running but its emits become no-ops.
func (s *sseSink) abandon() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked()
}

func (s *sseSink) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}

// wsSink carries one turn's events over a shared websocket connection.
type wsSink struct {
	conn   *safeConn
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newWSSink(conn *safeConn) *wsSink {
	return &wsSink{conn: conn, done: make(chan struct{})}
}

func (s *wsSink) Emit(event api.StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if err := s.conn.writeEvent(event); err != nil {
		s.closeLocked()
		return
	}
	if event.Type == api.EventDone || event.Type == api.EventError {
		s.closeLocked()
	}
}

func (s *wsSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *wsSink) closeLocked() {
	if !s.closed {
		s.closed = true
		close(s.done)
	}
}
