package logging

import (
	"fmt"
	"log/slog"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeySession   = "session_id"
	KeyMethod    = "method"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
)

// Status values for consistent logging.
// Note: These are intentionally duplicated from instrumentation package
// to avoid circular dependencies (instrumentation imports logging).
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// sessionIDLogLength is how many characters of a session id appear in logs.
// Session ids correlate log lines but a full id addresses a live session.
const sessionIDLogLength = 8

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithSession returns a logger with the truncated session id attribute set.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(SessionID(sessionID))
}

// WithTool returns a logger with the tool attribute set.
func WithTool(logger *slog.Logger, tool string) *slog.Logger {
	return logger.With(slog.String(KeyTool, tool))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Method returns a slog attribute for the RPC method name.
func Method(method string) slog.Attr {
	return slog.String(KeyMethod, method)
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// SessionID returns a slog attribute with the truncated session id.
func SessionID(sessionID string) slog.Attr {
	return slog.String(KeySession, TruncateSessionID(sessionID))
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
// This allows safely passing Err(maybeNilErr) without adding empty attributes.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		// Return an empty Group that slog will omit from output
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// TruncateSessionID returns a log-safe prefix of a session identifier.
// Enough survives for correlation across log lines without reproducing an
// identifier that addresses a live session.
func TruncateSessionID(sessionID string) string {
	if len(sessionID) <= sessionIDLogLength {
		return sessionID
	}
	return sessionID[:sessionIDLogLength]
}

// SanitizeToken returns a masked version of a token for logging.
// It returns a length indicator without exposing any token content,
// as even partial token prefixes can aid attacks.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
