package session

import (
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forcerelay/forcerelay/internal/transport"
)

// State tracks a session through its lifecycle. Transitions only move
// forward: Initializing -> Active -> Closing -> Closed.
type State int

const (
	// StateInitializing is the window between BeginInit and the transport's
	// handshake completion signal. Pending sessions are invisible to Lookup.
	StateInitializing State = iota

	// StateActive is a fully wired session routable by Lookup.
	StateActive

	// StateClosing marks a session whose teardown has started.
	StateClosing

	// StateClosed is terminal; the record is removed from the registry.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is the server-side state bound to one client from handshake to
// teardown. The registry exclusively owns every Session's lifetime; no other
// component may retain one past the scope of a single request.
type Session struct {
	// ID is assigned exactly once at creation and never reused.
	ID string

	// Transport and Server are set by CompleteInit before the session becomes
	// visible to Lookup and are never written again, so callers may read them
	// without holding the registry's mutex.
	Transport *transport.Transport
	Server    *mcpserver.MCPServer

	// stream, lastActivity, and state are guarded by the registry's mutex.
	stream       *transport.Stream
	lastActivity time.Time
	state        State
}
