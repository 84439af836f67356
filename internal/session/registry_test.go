package session

import (
	"net/http/httptest"
	"sync"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forcerelay/forcerelay/internal/transport"
)

func newTestStream(t *testing.T) *transport.Stream {
	t.Helper()
	st, err := transport.NewStream(httptest.NewRecorder())
	require.NoError(t, err)
	return st
}

func TestRegistry_LifecycleHappyPath(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	require.NotEmpty(t, s.ID)

	// Pending sessions are not routable.
	_, ok := r.Lookup(s.ID)
	assert.False(t, ok, "pending session must be invisible to Lookup")

	require.NoError(t, r.CompleteInit(s.ID, nil, nil))

	got, ok := r.Lookup(s.ID)
	require.True(t, ok)
	assert.Equal(t, s.ID, got.ID)

	r.Destroy(s.ID)

	_, ok = r.Lookup(s.ID)
	assert.False(t, ok, "destroyed session must be invisible to Lookup")
	assert.Equal(t, 0, r.Len())
}

func TestRegistry_UniqueIDs(t *testing.T) {
	r := NewRegistry(nil)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := r.BeginInit()
		assert.False(t, seen[s.ID], "session id reused: %s", s.ID)
		seen[s.ID] = true
	}
}

func TestRegistry_DestroyIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	require.NoError(t, r.CompleteInit(s.ID, nil, nil))

	r.Destroy(s.ID)
	r.Destroy(s.ID)
	r.Destroy("never-existed")

	assert.Equal(t, 0, r.Len())
}

func TestRegistry_CompleteInitAfterDestroy(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	r.Destroy(s.ID)

	err := r.CompleteInit(s.ID, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_CompleteInitUnknownID(t *testing.T) {
	r := NewRegistry(nil)

	err := r.CompleteInit("no-such-id", nil, nil)
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_AttachStreamReplacesPrevious(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	require.NoError(t, r.CompleteInit(s.ID, nil, nil))

	first := newTestStream(t)
	second := newTestStream(t)

	require.NoError(t, r.AttachStream(s.ID, first))
	require.NoError(t, r.AttachStream(s.ID, second))

	select {
	case <-first.Done():
	default:
		t.Fatal("replaced stream should have been closed")
	}
	select {
	case <-second.Done():
		t.Fatal("current stream should stay open")
	default:
	}
}

func TestRegistry_AttachStreamRejectsUnknownSession(t *testing.T) {
	r := NewRegistry(nil)

	err := r.AttachStream("no-such-id", newTestStream(t))
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestRegistry_DetachStreamPointerMatched(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	require.NoError(t, r.CompleteInit(s.ID, nil, nil))

	current := newTestStream(t)
	stale := newTestStream(t)
	require.NoError(t, r.AttachStream(s.ID, current))

	// Detaching a stale pointer must not clear the live stream.
	r.DetachStream(s.ID, stale)
	assert.Len(t, r.openStreams(), 1)

	r.DetachStream(s.ID, current)
	assert.Empty(t, r.openStreams())
}

func TestRegistry_DestroyClosesStream(t *testing.T) {
	r := NewRegistry(nil)

	s := r.BeginInit()
	require.NoError(t, r.CompleteInit(s.ID, nil, nil))

	st := newTestStream(t)
	require.NoError(t, r.AttachStream(s.ID, st))

	r.Destroy(s.ID)

	select {
	case <-st.Done():
	default:
		t.Fatal("destroy should close the attached stream")
	}
}

// Run with -race: the POST path reads Session.Transport after Lookup has
// released the registry lock, so teardown must never write those fields.
func TestRegistry_DestroyConcurrentWithRoutedLookup(t *testing.T) {
	r := NewRegistry(nil)

	for i := 0; i < 200; i++ {
		s := r.BeginInit()
		tr := transport.New(mcpserver.NewMCPServer("registry-test", "0.0.0"), func() {}, nil)
		require.NoError(t, r.CompleteInit(s.ID, tr, nil))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			if got, ok := r.Lookup(s.ID); ok && got.Transport == nil {
				t.Error("Lookup returned an active session without a transport")
			}
		}()
		go func() {
			defer wg.Done()
			r.Destroy(s.ID)
		}()
		wg.Wait()
	}
}

func TestRegistry_DrainAll(t *testing.T) {
	r := NewRegistry(nil)

	for i := 0; i < 5; i++ {
		s := r.BeginInit()
		require.NoError(t, r.CompleteInit(s.ID, nil, nil))
	}
	pending := r.BeginInit()

	require.Equal(t, 6, r.Len())
	r.DrainAll()
	assert.Equal(t, 0, r.Len())

	_, ok := r.Lookup(pending.ID)
	assert.False(t, ok)
}
