package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/forcerelay/forcerelay/internal/logging"
)

// Default liveness tuning. The tick interval must stay below both the idle
// threshold and any client-side read timeout, so a live session never appears
// stalled between keepalives.
const (
	DefaultKeepaliveInterval = 15 * time.Second
	DefaultIdleTimeout       = 30 * time.Minute
)

// Liveness runs the two periodic sweeps that request handling never performs:
// keepalive emission to open event streams, and idle-session eviction. Both
// share one ticker.
type Liveness struct {
	registry *Registry
	interval time.Duration
	idle     time.Duration

	ticker *time.Ticker
	done   chan struct{}
	logger *slog.Logger
}

// NewLiveness creates a stopped liveness manager. Zero durations select the
// defaults.
func NewLiveness(registry *Registry, interval, idleTimeout time.Duration, logger *slog.Logger) *Liveness {
	if interval <= 0 {
		interval = DefaultKeepaliveInterval
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Liveness{
		registry: registry,
		interval: interval,
		idle:     idleTimeout,
		done:     make(chan struct{}),
		logger:   logger,
	}
}

// Start launches the sweep goroutine.
func (l *Liveness) Start() {
	l.ticker = time.NewTicker(l.interval)
	go l.run()
}

// Stop halts the sweeps. It does not destroy live sessions; the registry's
// DrainAll handles shutdown teardown.
func (l *Liveness) Stop() {
	if l.ticker != nil {
		l.ticker.Stop()
	}
	close(l.done)
}

func (l *Liveness) run() {
	for {
		select {
		case <-l.ticker.C:
			l.Sweep()
		case <-l.done:
			return
		}
	}
}

// Sweep runs one keepalive pass and one eviction pass. Exported so that tests
// and the serve loop can trigger a tick deterministically.
func (l *Liveness) Sweep() {
	l.emitKeepalives()
	l.evictIdle()
}

// emitKeepalives writes a comment frame to every open stream. A failed write
// means the stream can no longer receive keepalives, so it is unregistered
// from this sweep. The session itself stays Active: the connection may
// still be torn down through the normal stream-close path, and the idle sweep
// is the backstop when it never is.
func (l *Liveness) emitKeepalives() {
	for _, ref := range l.registry.openStreams() {
		if err := ref.stream.WriteKeepalive(); err != nil {
			l.registry.DetachStream(ref.id, ref.stream)
			l.registry.metrics.RecordKeepaliveFailure(context.Background())
			l.logger.Debug("keepalive failed, stream detached",
				logging.SessionID(ref.id), logging.Err(err))
		}
	}
}

// evictIdle destroys sessions whose last activity is older than the idle
// threshold. This is the single source of eventual cleanup when stream-close
// and explicit teardown both fail to arrive.
func (l *Liveness) evictIdle() {
	ids := l.registry.idleSessions(l.idle)
	for _, id := range ids {
		l.registry.Destroy(id)
		l.registry.metrics.RecordSessionEviction(context.Background())
	}
	if len(ids) > 0 {
		l.logger.Info("evicted idle sessions", slog.Int("count", len(ids)))
	}
}
