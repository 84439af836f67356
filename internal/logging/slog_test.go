package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{
			name:  "empty token",
			token: "",
			want:  "<empty>",
		},
		{
			name:  "short token",
			token: "abc",
			want:  "[token:3 chars]",
		},
		{
			name:  "long token",
			token: strings.Repeat("x", 512),
			want:  "[token:512 chars]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeToken(tt.token); got != tt.want {
				t.Errorf("SanitizeToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeTokenNeverEchoesContent(t *testing.T) {
	token := "00Dxx0000001gPL!AQEAQP0secretsecret"
	got := SanitizeToken(token)
	if strings.Contains(got, "secret") || strings.Contains(got, "00D") {
		t.Errorf("SanitizeToken() leaked token content: %q", got)
	}
}

func TestTruncateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		want      string
	}{
		{
			name:      "empty",
			sessionID: "",
			want:      "",
		},
		{
			name:      "shorter than limit",
			sessionID: "abc",
			want:      "abc",
		},
		{
			name:      "exactly at limit",
			sessionID: "12345678",
			want:      "12345678",
		},
		{
			name:      "uuid truncated",
			sessionID: "0f6dd2b4-9f6e-4a4e-8f59-8e9f6a1b2c3d",
			want:      "0f6dd2b4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateSessionID(tt.sessionID); got != tt.want {
				t.Errorf("TruncateSessionID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrNilIsOmitted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	logger.Info("operation complete", Err(nil))

	if strings.Contains(buf.String(), KeyError) {
		t.Errorf("Err(nil) produced an error attribute: %s", buf.String())
	}
}

func TestAttributeHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	logger.Info("request handled",
		Operation("mcp.post"),
		Method("tools/call"),
		Status(StatusSuccess),
		SessionID("0f6dd2b4-9f6e-4a4e-8f59-8e9f6a1b2c3d"),
	)

	out := buf.String()
	for _, want := range []string{
		`"operation":"mcp.post"`,
		`"method":"tools/call"`,
		`"status":"success"`,
		`"session_id":"0f6dd2b4"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %s: %s", want, out)
		}
	}
	if strings.Contains(out, "8e9f6a1b2c3d") {
		t.Errorf("log output contains full session id: %s", out)
	}
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	logger := WithSession(slog.New(slog.NewTextHandler(&buf, nil)), "abcdefgh-rest")

	logger.Info("touched")

	if !strings.Contains(buf.String(), "session_id=abcdefgh") {
		t.Errorf("WithSession() did not attach truncated session id: %s", buf.String())
	}
}
