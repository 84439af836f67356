// Package server implements the streamable HTTP front end.
//
// One logical endpoint, /mcp, carries the whole protocol:
//
//   - POST delivers one JSON-RPC call. The bootstrap handshake arrives without
//     a session id and mints one; every other call must present Mcp-Session-Id.
//   - GET opens the session's server-to-client event stream.
//   - DELETE tears the session down; teardown is idempotent.
//
// Authentication is stateless. Every authenticated call carries a bearer
// credential which the auth resolver turns into an AuthContext; the gate
// short-circuits protocol bootstrap methods so a client can negotiate
// capabilities before presenting credentials. Auth and session failures are
// returned as structured JSON-RPC errors, never as bare HTTP failures; status
// codes are informational only.
//
// The package also hosts the health endpoints and the dedicated Prometheus
// metrics listener.
package server
