// Package session owns the lifecycle of every client session on the
// forcerelay server.
//
// A session is created only by the protocol handshake: BeginInit mints an
// unguessable identifier and a pending record, and the transport's completion
// signal promotes it to Active via CompleteInit. Destruction is idempotent by
// construction, because three triggers can race for the same session: the
// stream-close handler, an explicit DELETE, and the idle sweep.
//
// The Liveness manager runs both periodic sweeps on one ticker: keepalive
// emission to open event streams, and idle eviction as the backstop for
// clients that disappear without a teardown and whose stream close is never
// observed.
package session
