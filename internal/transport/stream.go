package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// ErrStreamClosed is returned when writing to a stream that has been closed.
var ErrStreamClosed = errors.New("event stream is closed")

// Stream is the server-to-client SSE channel of a session. At most one is
// open per session. All writes are serialized; a Stream may be written to by
// the request handler and the keepalive sweep concurrently.
type Stream struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
	closed  bool
	done    chan struct{}
}

// NewStream wraps a ResponseWriter as an SSE stream. The caller is expected
// to have sent the text/event-stream headers already. Returns an error when
// the writer cannot flush, since an unflushable stream never delivers events.
func NewStream(w http.ResponseWriter) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support streaming")
	}
	return &Stream{
		w:       w,
		flusher: flusher,
		done:    make(chan struct{}),
	}, nil
}

// WriteMessage writes one protocol message as an SSE message event.
func (s *Stream) WriteMessage(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling event payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if _, err := fmt.Fprintf(s.w, "event: message\ndata: %s\n\n", data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteKeepalive writes a protocol-neutral comment frame. Compliant SSE
// clients ignore comment lines, so this carries no payload and exists only to
// keep intermediaries from closing an idle connection.
func (s *Stream) WriteKeepalive() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if _, err := io.WriteString(s.w, ": keepalive\n\n"); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Close marks the stream closed and releases anyone selecting on Done. Safe
// to call more than once.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// Done returns a channel closed when the stream is closed server-side. The
// GET handler selects on this alongside the request context so that session
// destruction tears the connection down promptly.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}
