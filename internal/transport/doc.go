// Package transport adapts the mcp-go protocol engine to forcerelay's
// streamable HTTP surface.
//
// Each session owns exactly one Transport, which frames raw JSON-RPC messages
// into its session-scoped MCP server, and at most one Stream, the server-to-
// client SSE channel. The Transport fires a completion callback the first time
// the protocol handshake succeeds; the session registry uses that signal to
// move the session from Initializing to Active.
package transport
