// Package logging provides structured logging utilities for the forcerelay
// application.
//
// This package centralizes logging patterns to ensure consistent, structured
// logging throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog
//   - Credential sanitization (tokens are never logged in full)
//   - Consistent attribute naming across the codebase
//   - Process-wide logger construction with level gating
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "session.destroy")
//	logger.Info("session destroyed",
//	    logging.SessionID(id))
//
// Sanitize sensitive data before logging:
//
//	logger.Debug("resolved credential",
//	    slog.String("token", logging.SanitizeToken(token)))
//
// # Security Considerations
//
// Bearer tokens are opaque credentials and must never appear in log output.
// SanitizeToken reduces a token to a length indicator; SessionID truncates
// session identifiers so that log lines cannot be replayed against the server.
package logging
