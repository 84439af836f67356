package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forcerelay/forcerelay/internal/instrumentation"
	"github.com/forcerelay/forcerelay/internal/logging"
	"github.com/forcerelay/forcerelay/internal/transport"
)

// ErrUnknownSession is returned by CompleteInit when the pending record has
// already been destroyed (for example by a sweep racing the handshake).
var ErrUnknownSession = errors.New("unknown session id")

// Registry is the authoritative map from session id to session state. It owns
// creation, lookup, and destruction; the maps behind it are never exposed, so
// a future multi-instance deployment can swap the backing store without
// touching call sites.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// NewRegistry creates an empty registry. A nil logger selects slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// SetMetrics attaches a metrics recorder for session gauge and sweep
// counters. Safe to leave unset.
func (r *Registry) SetMetrics(m *instrumentation.Metrics) {
	r.metrics = m
}

// BeginInit allocates a fresh, unguessable session id and a pending record.
// Pending sessions are invisible to Lookup until CompleteInit runs; only the
// handshake path may call this.
func (r *Registry) BeginInit() *Session {
	s := &Session{
		ID:           uuid.NewString(),
		state:        StateInitializing,
		lastActivity: time.Now(),
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.logger.Debug("session pending", logging.SessionID(s.ID))
	return s
}

// CompleteInit is invoked by the transport's completion signal once protocol
// negotiation finishes. It wires the transport and handler handles, records
// creation time as last activity, and makes the session visible to Lookup.
func (r *Registry) CompleteInit(id string, t *transport.Transport, srv *mcpserver.MCPServer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.state != StateInitializing {
		return ErrUnknownSession
	}

	s.Transport = t
	s.Server = srv
	s.state = StateActive
	s.lastActivity = time.Now()

	r.metrics.IncrementActiveSessions(context.Background())
	r.logger.Info("session active", logging.SessionID(id))
	return nil
}

// Lookup returns the Active session for id. Unknown ids, pending handshakes,
// and destroyed sessions are all reported identically as absent; the protocol
// does not distinguish "never existed" from "expired" for the client.
func (r *Registry) Lookup(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok || s.state != StateActive {
		return nil, false
	}
	return s, true
}

// Touch updates the session's last activity time. Called on every
// successfully routed request and on stream open.
func (r *Registry) Touch(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok {
		s.lastActivity = time.Now()
	}
}

// AttachStream records the session's open event stream, replacing any
// previous one, and counts as activity. The registry keeps only a weak
// reference: losing the stream never destroys the session by itself.
func (r *Registry) AttachStream(id string, st *transport.Stream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.state != StateActive {
		return ErrUnknownSession
	}
	if s.stream != nil {
		s.stream.Close()
	}
	s.stream = st
	s.lastActivity = time.Now()
	return nil
}

// DetachStream clears the session's stream reference, but only when it still
// points at st. A stream that failed a keepalive write may race a replacement
// stream attached by a reconnecting client.
func (r *Registry) DetachStream(id string, st *transport.Stream) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[id]; ok && s.stream == st {
		s.stream = nil
	}
}

// Destroy tears the session down: it removes the record from the registry and
// closes any attached stream. It is idempotent: the stream-close handler, an
// explicit DELETE, and the idle sweep may all race to destroy the same
// session, and every call after the first is a no-op.
//
// Transport and Server are never cleared here: a routed request that won a
// Lookup race reads them after the lock is released, so they must stay valid
// for as long as the record is reachable.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok || s.state == StateClosed {
		r.mu.Unlock()
		return
	}

	wasActive := s.state == StateActive
	s.state = StateClosing
	stream := s.stream
	s.stream = nil
	s.state = StateClosed
	delete(r.sessions, id)
	r.mu.Unlock()

	// Closing the stream outside the lock releases the GET handler goroutine,
	// which may itself call back into the registry.
	if stream != nil {
		stream.Close()
	}

	if wasActive {
		r.metrics.DecrementActiveSessions(context.Background())
	}
	r.logger.Info("session destroyed", logging.SessionID(id))
}

// Len returns the number of session records, pending ones included. Used by
// the health probe.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// DrainAll destroys every session. Called at shutdown; sessions are in-memory
// only and expected to be lost on restart.
func (r *Registry) DrainAll() {
	r.mu.RLock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	for _, id := range ids {
		r.Destroy(id)
	}
}

// streamRef pairs a session id with its open stream for the keepalive sweep.
type streamRef struct {
	id     string
	stream *transport.Stream
}

// openStreams snapshots every Active session with an open stream.
func (r *Registry) openStreams() []streamRef {
	r.mu.RLock()
	defer r.mu.RUnlock()

	refs := make([]streamRef, 0, len(r.sessions))
	for id, s := range r.sessions {
		if s.state == StateActive && s.stream != nil {
			refs = append(refs, streamRef{id: id, stream: s.stream})
		}
	}
	return refs
}

// idleSessions returns the ids of sessions whose last activity is older than
// threshold at the time of the call.
func (r *Registry) idleSessions(threshold time.Duration) []string {
	cutoff := time.Now().Add(-threshold)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for id, s := range r.sessions {
		if s.lastActivity.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids
}
