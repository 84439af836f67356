package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Transport drives protocol framing for a single session. It owns the
// session's MCP server instance and reports handshake completion exactly once
// via the onInitialized callback.
type Transport struct {
	handler *mcpserver.MCPServer
	logger  *slog.Logger

	initOnce      sync.Once
	onInitialized func()
}

// New creates a Transport around a session-scoped MCP server. onInitialized
// may be nil; when set it fires once, after the first successful initialize
// exchange.
func New(handler *mcpserver.MCPServer, onInitialized func(), logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		handler:       handler,
		logger:        logger,
		onInitialized: onInitialized,
	}
}

// Handler returns the MCP server instance this transport dispatches into.
func (t *Transport) Handler() *mcpserver.MCPServer {
	return t.handler
}

// HandleFrame dispatches one raw JSON-RPC frame into the MCP server and
// returns the protocol response. Notifications return nil. A successful
// initialize response triggers the completion callback.
func (t *Transport) HandleFrame(ctx context.Context, frame json.RawMessage) mcp.JSONRPCMessage {
	var base struct {
		Method mcp.MCPMethod `json:"method"`
	}
	// Parse failures fall through to the MCP server, which produces the
	// protocol-level parse error itself.
	_ = json.Unmarshal(frame, &base)

	response := t.handler.HandleMessage(ctx, frame)

	if base.Method == mcp.MethodInitialize && response != nil {
		if _, failed := response.(mcp.JSONRPCError); !failed {
			t.initOnce.Do(func() {
				if t.onInitialized != nil {
					t.onInitialized()
				}
			})
		}
	}

	return response
}
