package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/forcerelay/forcerelay/internal/auth"
	"github.com/forcerelay/forcerelay/internal/logging"
	"github.com/forcerelay/forcerelay/internal/session"
	"github.com/forcerelay/forcerelay/internal/transport"
)

// HeaderSessionID correlates requests with server-side sessions.
const HeaderSessionID = "Mcp-Session-Id"

// maxFrameSize bounds a single POSTed frame.
const maxFrameSize = 4 << 20

// bootstrapMethods may run without credentials so a client can negotiate
// capabilities and check liveness before authenticating.
var bootstrapMethods = map[string]bool{
	string(mcp.MethodInitialize): true,
	string(mcp.MethodPing):       true,
	"notifications/initialized":  true,
}

// MCPHandler is the streamable HTTP endpoint. POST carries calls, GET opens
// the event stream, DELETE tears the session down.
type MCPHandler struct {
	sc        *ServerContext
	newServer func() *mcpserver.MCPServer
	logger    *slog.Logger
}

// NewMCPHandler creates the /mcp handler. newServer builds a fresh,
// session-scoped MCP server with the tool set registered; it is invoked once
// per handshake.
func NewMCPHandler(sc *ServerContext, newServer func() *mcpserver.MCPServer, logger *slog.Logger) *MCPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPHandler{
		sc:        sc,
		newServer: newServer,
		logger:    logger,
	}
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

	// Outermost request boundary: unhandled faults become a structured
	// internal error, without leaking a stack trace to the client.
	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic during request handling",
				slog.Any("panic", rec), logging.Method(r.Method))
			writeRPCError(sw, http.StatusInternalServerError,
				mcp.INTERNAL_ERROR, "internal server error", nil)
		}
		h.sc.Metrics().RecordHTTPRequest(r.Context(), r.Method, "/mcp", sw.status, time.Since(start))
	}()

	switch r.Method {
	case http.MethodPost:
		h.handlePost(sw, r)
	case http.MethodGet:
		h.handleGet(sw, r)
	case http.MethodDelete:
		h.handleDelete(sw, r)
	default:
		sw.Header().Set("Allow", "GET, POST, DELETE")
		http.Error(sw, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handlePost routes one JSON-RPC call: gate, then session resolution, then
// the session's transport.
func (h *MCPHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameSize))
	if err != nil {
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "unable to read request body", nil)
		return
	}

	probe, parsed := probeFrame(body)
	if !parsed {
		writeRPCError(w, http.StatusBadRequest, mcp.PARSE_ERROR, "request body is not valid JSON", nil)
		return
	}

	ctx := r.Context()

	// Auth gate. Bootstrap methods pass without credentials; everything else
	// needs a resolved context before it reaches a handler.
	if !bootstrapMethods[probe.Method] {
		ac, err := h.sc.Resolver().ResolveHeaders(r.Header)
		if err != nil {
			h.sc.Metrics().RecordAuthResolution(ctx, authFailureReason(err))
			h.sc.Audit().LogAuthFailure(ctx, authFailureReason(err))
			writeRPCError(w, http.StatusUnauthorized, mcp.INVALID_REQUEST, err.Error(), probe.ID)
			return
		}
		h.sc.Metrics().RecordAuthResolution(ctx, "success")
		ctx = auth.WithContext(ctx, ac)
	}

	sessionID, _ := auth.FirstHeaderValue(r.Header, HeaderSessionID)

	if sessionID == "" {
		if probe.Method != string(mcp.MethodInitialize) {
			// Sessions are only minted by the handshake, never implicitly.
			writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST,
				"session id required", probe.ID)
			return
		}
		h.handleInitialize(ctx, w, body)
		return
	}

	s, ok := h.sc.Registry().Lookup(sessionID)
	if !ok {
		// A stale id is a protocol misuse even on the handshake method.
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST,
			"invalid or expired session id", probe.ID)
		return
	}

	h.sc.Registry().Touch(s.ID)

	response := s.Transport.HandleFrame(session.ContextWithID(ctx, s.ID), body)
	if response == nil {
		// Notification: no protocol response to deliver.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeRPCMessage(w, response)
}

// handleInitialize mints a session and drives the handshake frame through a
// fresh transport. The transport's completion signal activates the session.
func (h *MCPHandler) handleInitialize(ctx context.Context, w http.ResponseWriter, body []byte) {
	pending := h.sc.Registry().BeginInit()
	srv := h.newServer()

	var t *transport.Transport
	t = transport.New(srv, func() {
		if err := h.sc.Registry().CompleteInit(pending.ID, t, srv); err != nil {
			h.logger.Warn("handshake completion for vanished session",
				logging.SessionID(pending.ID), logging.Err(err))
		}
		h.sc.Audit().LogSessionEvent(ctx, "created", pending.ID)
	}, h.logger)

	response := t.HandleFrame(ctx, body)

	// A rejected handshake mints nothing: drop the pending record and keep
	// the session id header off the response.
	if errResp, failed := response.(mcp.JSONRPCError); failed {
		h.sc.Registry().Destroy(pending.ID)
		writeRPCMessage(w, errResp)
		return
	}

	w.Header().Set(HeaderSessionID, pending.ID)
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeRPCMessage(w, response)
}

// handleGet opens the session's event stream and holds the connection until
// the client disconnects or the session is destroyed.
func (h *MCPHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.FirstHeaderValue(r.Header, HeaderSessionID)
	if sessionID == "" {
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "session id required", nil)
		return
	}

	s, ok := h.sc.Registry().Lookup(sessionID)
	if !ok {
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "invalid or expired session id", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	st, err := transport.NewStream(w)
	if err != nil {
		h.logger.Error("response writer cannot stream", logging.SessionID(s.ID), logging.Err(err))
		return
	}
	if err := h.sc.Registry().AttachStream(s.ID, st); err != nil {
		return
	}

	h.logger.Debug("event stream opened", logging.SessionID(s.ID))

	select {
	case <-r.Context().Done():
		// Client went away; the disconnect tears the session down.
		h.sc.Registry().Destroy(s.ID)
		h.sc.Audit().LogSessionEvent(context.Background(), "destroyed", s.ID)
	case <-st.Done():
		// Closed server-side: either teardown already ran, or a replacement
		// stream took over. Only clear our own reference.
		h.sc.Registry().DetachStream(s.ID, st)
	}

	h.logger.Debug("event stream closed", logging.SessionID(s.ID))
}

// handleDelete is the explicit teardown path. Destroy is idempotent, so a
// repeated DELETE or one racing the idle sweep succeeds quietly.
func (h *MCPHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := auth.FirstHeaderValue(r.Header, HeaderSessionID)
	if sessionID == "" {
		writeRPCError(w, http.StatusBadRequest, mcp.INVALID_REQUEST, "session id required", nil)
		return
	}

	h.sc.Registry().Destroy(sessionID)
	h.sc.Audit().LogSessionEvent(r.Context(), "destroyed", sessionID)
	w.WriteHeader(http.StatusOK)
}

// authFailureReason maps resolver errors to low-cardinality metric labels.
func authFailureReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingCredential):
		return "missing"
	case errors.Is(err, auth.ErrMalformedCredential):
		return "malformed"
	case errors.Is(err, auth.ErrEmptyCredential):
		return "empty"
	default:
		return "error"
	}
}

// statusWriter records the status code for request metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Flush forwards flushes so the SSE stream works through the wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
