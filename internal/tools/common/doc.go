// Package common provides shared utilities for MCP tool implementations.
// It contains the per-request Salesforce client construction and the
// instrumentation wrapper used by every tool package.
package common
