package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestResolveHeadersCredentialErrors(t *testing.T) {
	tests := []struct {
		name    string
		headers http.Header
		wantErr error
	}{
		{
			name:    "no authorization header",
			headers: http.Header{},
			wantErr: ErrMissingCredential,
		},
		{
			name: "empty authorization header",
			headers: http.Header{
				"Authorization": {""},
			},
			wantErr: ErrMissingCredential,
		},
		{
			name: "wrong scheme",
			headers: http.Header{
				"Authorization": {"Basic dXNlcjpwYXNz"},
			},
			wantErr: ErrMalformedCredential,
		},
		{
			name: "lowercase bearer is rejected",
			headers: http.Header{
				"Authorization": {"bearer abc"},
			},
			wantErr: ErrMalformedCredential,
		},
		{
			name: "bearer with empty remainder",
			headers: http.Header{
				"Authorization": {"Bearer "},
			},
			wantErr: ErrEmptyCredential,
		},
		{
			name: "bearer with only whitespace",
			headers: http.Header{
				"Authorization": {"Bearer    "},
			},
			wantErr: ErrEmptyCredential,
		},
	}

	r := NewResolver("", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ac, err := r.ResolveHeaders(tt.headers)
			assert.Nil(t, ac)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestResolveHeadersFastPath(t *testing.T) {
	r := NewResolver("", nil)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer 00Dxx0000001gPL")
	headers.Set("X-Salesforce-Instance-Url", "https://acme.my.salesforce.com")

	ac, err := r.ResolveHeaders(headers)
	require.NoError(t, err)
	assert.Equal(t, "00Dxx0000001gPL", ac.Token)
	assert.Equal(t, "https://acme.my.salesforce.com", ac.InstanceURL)
	assert.True(t, ac.Valid())
}

func TestResolveHeadersTrimsToken(t *testing.T) {
	r := NewResolver("", nil)
	headers := http.Header{}
	headers.Set("Authorization", "Bearer   abc  ")

	ac, err := r.ResolveHeaders(headers)
	require.NoError(t, err)
	assert.Equal(t, "abc", ac.Token)
}

// testClient routes the resolver's oauth2 client through the httptest server.
func testClient(ctx context.Context, srv *httptest.Server) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, srv.Client())
}

func TestEnsureInstanceURLFastPathSkipsNetwork(t *testing.T) {
	var calls atomic.Int64
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"urls":{"rest":"https://unused.example.com/"}}`))
	}))
	defer stub.Close()

	r := NewResolver(stub.URL, nil)
	ac := &AuthContext{Token: "abc", InstanceURL: "https://acme.my.salesforce.com"}

	err := r.EnsureInstanceURL(testClient(context.Background(), stub), ac)
	require.NoError(t, err)
	assert.Equal(t, int64(0), calls.Load(), "fast path must not call the userinfo endpoint")
	assert.Equal(t, "https://acme.my.salesforce.com", ac.InstanceURL)
}

func TestEnsureInstanceURLDerivesSchemeAndHost(t *testing.T) {
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"preferred_username": "admin@acme.example",
			"urls": {
				"rest": "https://foo.example.com/services/data/v60.0/",
				"metadata": "https://foo.example.com/services/Soap/m/v60.0/"
			}
		}`))
	}))
	defer stub.Close()

	r := NewResolver(stub.URL, nil)
	ac := &AuthContext{Token: "abc"}

	err := r.EnsureInstanceURL(testClient(context.Background(), stub), ac)
	require.NoError(t, err)
	assert.Equal(t, "https://foo.example.com", ac.InstanceURL, "path and query must be discarded")
	assert.Equal(t, "admin@acme.example", ac.Principal)
}

func TestEnsureInstanceURLFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
		{
			name: "body is not json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("<html>login required</html>"))
			},
		},
		{
			name: "missing rest url",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"urls":{"metadata":"https://foo.example.com/soap"}}`))
			},
		},
		{
			name: "rest url without scheme",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"urls":{"rest":"foo.example.com/services"}}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := httptest.NewServer(tt.handler)
			defer stub.Close()

			r := NewResolver(stub.URL, nil)
			ac := &AuthContext{Token: "abc"}

			err := r.EnsureInstanceURL(testClient(context.Background(), stub), ac)
			assert.ErrorIs(t, err, ErrEndpointDerivation)
			assert.Empty(t, ac.InstanceURL)
		})
	}
}

func TestEnsureInstanceURLSingleAttempt(t *testing.T) {
	var calls atomic.Int64
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer stub.Close()

	r := NewResolver(stub.URL, nil)
	ac := &AuthContext{Token: "abc"}

	err := r.EnsureInstanceURL(testClient(context.Background(), stub), ac)
	assert.ErrorIs(t, err, ErrEndpointDerivation)
	assert.Equal(t, int64(1), calls.Load(), "resolver must make exactly one attempt")
}

func TestEnsureInstanceURLRequiresToken(t *testing.T) {
	r := NewResolver("", nil)
	err := r.EnsureInstanceURL(context.Background(), &AuthContext{})
	assert.True(t, errors.Is(err, ErrMissingCredential))
}

func TestAuthContextRoundTrip(t *testing.T) {
	ac := &AuthContext{Token: "abc"}
	ctx := WithContext(context.Background(), ac)
	assert.Same(t, ac, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}
