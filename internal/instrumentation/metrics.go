package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys - using constants for consistency and DRY
const (
	// Common attributes (reused across metrics)
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrOperation = "operation"
	attrResult    = "result"
	attrTool      = "tool"
	attrPrincipal = "principal"
)

// Metrics provides methods for recording observability metrics. All recorder
// methods tolerate a nil receiver and a zero-value Metrics, so call sites can
// record unconditionally whether or not instrumentation was wired up.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// Credential resolution metrics
	authResolutionsTotal      metric.Int64Counter
	endpointDerivationsTotal  metric.Int64Counter
	endpointDerivationLatency metric.Float64Histogram

	// Salesforce API metrics
	salesforceOperationsTotal   metric.Int64Counter
	salesforceOperationDuration metric.Float64Histogram

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// Liveness sweep metrics
	sessionEvictionsTotal  metric.Int64Counter
	keepaliveFailuresTotal metric.Int64Counter

	// Configuration
	// detailedLabels controls whether high-cardinality labels are included
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The detailedLabels parameter controls whether high-cardinality labels are included.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	// HTTP Metrics
	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active client sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	// Credential Resolution Metrics
	m.authResolutionsTotal, err = meter.Int64Counter(
		"auth_resolutions_total",
		metric.WithDescription("Total number of bearer credential resolutions"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth_resolutions_total counter: %w", err)
	}

	m.endpointDerivationsTotal, err = meter.Int64Counter(
		"endpoint_derivations_total",
		metric.WithDescription("Total number of instance endpoint derivations via userinfo"),
		metric.WithUnit("{derivation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint_derivations_total counter: %w", err)
	}

	m.endpointDerivationLatency, err = meter.Float64Histogram(
		"endpoint_derivation_duration_seconds",
		metric.WithDescription("Instance endpoint derivation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint_derivation_duration_seconds histogram: %w", err)
	}

	// Salesforce API Metrics
	m.salesforceOperationsTotal, err = meter.Int64Counter(
		"salesforce_api_operations_total",
		metric.WithDescription("Total number of Salesforce API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create salesforce_api_operations_total counter: %w", err)
	}

	m.salesforceOperationDuration, err = meter.Float64Histogram(
		"salesforce_api_operation_duration_seconds",
		metric.WithDescription("Salesforce API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create salesforce_api_operation_duration_seconds histogram: %w", err)
	}

	// MCP Tool Metrics
	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	// Liveness Sweep Metrics
	m.sessionEvictionsTotal, err = meter.Int64Counter(
		"session_evictions_total",
		metric.WithDescription("Total number of sessions evicted for inactivity"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session_evictions_total counter: %w", err)
	}

	m.keepaliveFailuresTotal, err = meter.Int64Counter(
		"keepalive_failures_total",
		metric.WithDescription("Total number of keepalive writes that failed on an open event stream"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create keepalive_failures_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code, and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordAuthResolution records one bearer credential resolution attempt.
// Result should be one of: "success", "missing", "malformed", "empty"
func (m *Metrics) RecordAuthResolution(ctx context.Context, result string) {
	if m == nil || m.authResolutionsTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.authResolutionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordEndpointDerivation records one userinfo-backed instance endpoint
// derivation with result and duration.
// Result should be one of: "success", "error"
func (m *Metrics) RecordEndpointDerivation(ctx context.Context, result string, duration time.Duration) {
	if m == nil || m.endpointDerivationsTotal == nil || m.endpointDerivationLatency == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrResult, result),
	}

	m.endpointDerivationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.endpointDerivationLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordSalesforceOperation records a Salesforce REST API operation with
// operation name, status, and duration.
//
// Parameters:
//   - operation: Operation type (query, describe, describe_global, get_record, create_record)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordSalesforceOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.salesforceOperationsTotal == nil || m.salesforceOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.salesforceOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.salesforceOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
//
// Parameters:
//   - toolName: Name of the MCP tool (e.g., "salesforce_query", "salesforce_describe_sobject")
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the tool execution
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordToolInvocationWithPrincipal records an MCP tool invocation with the
// resolved principal. The principal label is high cardinality and is only
// attached when detailedLabels is enabled.
func (m *Metrics) RecordToolInvocationWithPrincipal(ctx context.Context, toolName, status, principal string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	// Only add high-cardinality labels if explicitly enabled
	if m.detailedLabels && principal != "" {
		attrs = append(attrs, attribute.String(attrPrincipal, principal))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return // Instrumentation not initialized
	}

	m.activeSessions.Add(ctx, -1)
}

// RecordSessionEviction records one idle-session eviction by the sweep.
func (m *Metrics) RecordSessionEviction(ctx context.Context) {
	if m == nil || m.sessionEvictionsTotal == nil {
		return // Instrumentation not initialized
	}

	m.sessionEvictionsTotal.Add(ctx, 1)
}

// RecordKeepaliveFailure records one failed keepalive write.
func (m *Metrics) RecordKeepaliveFailure(ctx context.Context) {
	if m == nil || m.keepaliveFailuresTotal == nil {
		return // Instrumentation not initialized
	}

	m.keepaliveFailuresTotal.Add(ctx, 1)
}
