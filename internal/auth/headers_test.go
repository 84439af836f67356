package auth

import (
	"net/http"
	"testing"
)

func TestFirstHeaderValue(t *testing.T) {
	tests := []struct {
		name       string
		headers    http.Header
		header     string
		want       string
		wantOK     bool
	}{
		{
			name:    "absent header",
			headers: http.Header{},
			header:  "Authorization",
			want:    "",
			wantOK:  false,
		},
		{
			name: "single value",
			headers: http.Header{
				"Authorization": {"Bearer abc"},
			},
			header: "Authorization",
			want:   "Bearer abc",
			wantOK: true,
		},
		{
			name: "multiple values returns first",
			headers: http.Header{
				"X-Salesforce-Instance-Url": {"https://first.example.com", "https://second.example.com"},
			},
			header: "X-Salesforce-Instance-Url",
			want:   "https://first.example.com",
			wantOK: true,
		},
		{
			name: "lookup is canonicalized",
			headers: http.Header{
				"Mcp-Session-Id": {"abc-123"},
			},
			header: "mcp-session-id",
			want:   "abc-123",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstHeaderValue(tt.headers, tt.header)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("FirstHeaderValue() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
