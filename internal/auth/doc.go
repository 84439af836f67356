// Package auth implements stateless credential resolution for the forcerelay
// MCP front end.
//
// Every request carries an opaque bearer token and, optionally, the Salesforce
// instance URL it targets. When the instance URL header is absent it is derived
// by calling the Salesforce OAuth userinfo endpoint and reducing the reported
// REST API base to its scheme and host.
//
// The resolver is stateless: it makes exactly one introspection attempt per
// request and caches nothing across requests. When the fast-path header is
// omitted this costs one extra round-trip per request.
package auth
