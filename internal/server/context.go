package server

import (
	"context"
	"sync"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/instrumentation"
	"github.com/forcerelay/forcerelay/internal/session"
)

// ServerContext holds the shared dependencies of the MCP server.
type ServerContext struct {
	ctx      context.Context
	cancel   context.CancelFunc
	resolver *auth.Resolver
	registry *session.Registry
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	readOnly bool
	mu       sync.RWMutex
	shutdown bool
}

// ServerContextConfig bundles the dependencies for NewServerContext.
type ServerContextConfig struct {
	// Resolver resolves bearer credentials; required.
	Resolver *auth.Resolver

	// Registry owns session lifetimes; required.
	Registry *session.Registry

	// Metrics and Audit are optional; nil disables them.
	Metrics *instrumentation.Metrics
	Audit   *instrumentation.AuditLogger

	// ReadOnly blocks tools that write to Salesforce.
	ReadOnly bool
}

// NewServerContext creates a new server context.
func NewServerContext(ctx context.Context, config ServerContextConfig) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		resolver: config.Resolver,
		registry: config.Registry,
		metrics:  config.Metrics,
		audit:    config.Audit,
		readOnly: config.ReadOnly,
	}
}

// Context returns the server context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Resolver returns the credential resolver.
func (sc *ServerContext) Resolver() *auth.Resolver {
	return sc.resolver
}

// Registry returns the session registry.
func (sc *ServerContext) Registry() *session.Registry {
	return sc.registry
}

// Metrics returns the metrics recorder; may be nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// Audit returns the audit logger; may be nil.
func (sc *ServerContext) Audit() *instrumentation.AuditLogger {
	return sc.audit
}

// ReadOnly reports whether write operations are blocked.
func (sc *ServerContext) ReadOnly() bool {
	return sc.readOnly
}

// IsShutdown returns whether the server has been shutdown.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drains all sessions. Safe to call
// more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	if sc.shutdown {
		sc.mu.Unlock()
		return nil
	}
	sc.shutdown = true
	sc.mu.Unlock()

	sc.cancel()
	if sc.registry != nil {
		sc.registry.DrainAll()
	}
	return nil
}
