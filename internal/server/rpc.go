package server

import (
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// rpcProbe is the minimal view of an inbound frame the routing layer needs:
// the method for gate policy and the correlation id for error echoing. The
// full frame is handed to the transport untouched.
type rpcProbe struct {
	Method string          `json:"method"`
	ID     json.RawMessage `json:"id"`
}

// probeFrame extracts method and id from a raw frame. An unparseable body
// yields an empty probe; callers treat that as a parse error with a null id.
func probeFrame(body []byte) (rpcProbe, bool) {
	var probe rpcProbe
	if err := json.Unmarshal(body, &probe); err != nil {
		return rpcProbe{}, false
	}
	return probe, true
}

// rpcErrorDetail is the error member of a JSON-RPC error response.
type rpcErrorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// rpcErrorResponse is the structured protocol error the gate and the routing
// layer return without involving a session's transport. The id echoes the
// original call's correlation id, or null when the body never parsed.
type rpcErrorResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Error   rpcErrorDetail  `json:"error"`
}

// writeRPCError writes a protocol-level error with an informational HTTP
// status. Clients are expected to key off the structured body, not the status
// code.
func writeRPCError(w http.ResponseWriter, httpStatus, code int, message string, id json.RawMessage) {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(rpcErrorResponse{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: rpcErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeRPCMessage writes a transport-produced protocol message as the HTTP
// response body.
func writeRPCMessage(w http.ResponseWriter, msg mcp.JSONRPCMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(msg)
}
