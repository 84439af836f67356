// Package instrumentation provides OpenTelemetry-based observability for the
// forcerelay server.
//
// # Components
//
//   - Provider: wires OTel meter and tracer providers with configurable
//     exporters (Prometheus, OTLP, stdout)
//   - Metrics: domain metric recorders (HTTP requests, active sessions,
//     credential resolutions, Salesforce API operations, tool invocations,
//     liveness sweep counters)
//   - AuditLogger: structured audit trail for session lifecycle, credential
//     resolution, and tool invocations
//
// # Configuration
//
// Configuration comes from environment variables with sensible defaults; see
// DefaultConfig. Instrumentation can be disabled entirely with
// INSTRUMENTATION_ENABLED=false, in which case all recorders become no-ops.
package instrumentation
