package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
)

// bearerPrefix is matched case-sensitively. Clients observed in the wild all
// send the canonical capitalization; lowercase "bearer" is rejected.
const bearerPrefix = "Bearer "

// DefaultUserinfoURL is the Salesforce OAuth userinfo endpoint used to derive
// the instance URL when the fast-path header is absent.
const DefaultUserinfoURL = "https://login.salesforce.com/services/oauth2/userinfo"

// Resolver turns request headers into a resolved AuthContext. It holds no
// per-request state: every request re-reads headers or re-derives the
// instance URL.
type Resolver struct {
	userinfoURL string
	logger      *slog.Logger
}

// NewResolver creates a Resolver that derives instance URLs from the given
// userinfo endpoint. An empty userinfoURL selects DefaultUserinfoURL; a nil
// logger selects slog.Default().
func NewResolver(userinfoURL string, logger *slog.Logger) *Resolver {
	if userinfoURL == "" {
		userinfoURL = DefaultUserinfoURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		userinfoURL: userinfoURL,
		logger:      logger,
	}
}

// ResolveHeaders extracts the bearer token and, when present, the fast-path
// instance URL from the request headers. It performs no network calls. The
// returned context may still lack an instance URL; EnsureInstanceURL settles
// it on demand.
func (r *Resolver) ResolveHeaders(h http.Header) (*AuthContext, error) {
	raw, ok := FirstHeaderValue(h, HeaderAuthorization)
	if !ok || raw == "" {
		return nil, ErrMissingCredential
	}
	if !strings.HasPrefix(raw, bearerPrefix) {
		return nil, ErrMalformedCredential
	}
	token := strings.TrimSpace(raw[len(bearerPrefix):])
	if token == "" {
		return nil, ErrEmptyCredential
	}

	ac := &AuthContext{Token: token}
	if instance, ok := FirstHeaderValue(h, HeaderInstanceURL); ok && instance != "" {
		// Fast path: the header value is used verbatim, no validation beyond
		// presence and no network call.
		ac.InstanceURL = instance
	}
	return ac, nil
}

// userinfoResponse is the subset of the Salesforce userinfo body we consume.
// urls.rest looks like "https://na1.salesforce.com/services/data/v{version}/";
// only its scheme and host survive derivation.
type userinfoResponse struct {
	URLs              map[string]string `json:"urls"`
	PreferredUsername string            `json:"preferred_username"`
}

// EnsureInstanceURL makes the slow path explicit: if the context already has
// an instance URL this is a no-op, otherwise a single userinfo call derives
// it. One attempt per call, no retries, no caching across requests. Any
// network failure, non-2xx status, or unusable body yields
// ErrEndpointDerivation for the caller to decide on.
func (r *Resolver) EnsureInstanceURL(ctx context.Context, ac *AuthContext) error {
	if !ac.Valid() {
		return ErrMissingCredential
	}
	if ac.InstanceURL != "" {
		return nil
	}

	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: ac.Token,
		TokenType:   "Bearer",
	}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.userinfoURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointDerivation, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		r.logger.Warn("userinfo call failed", slog.String("error", err.Error()))
		return fmt.Errorf("%w: %v", ErrEndpointDerivation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: userinfo returned status %d", ErrEndpointDerivation, resp.StatusCode)
	}

	var info userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return fmt.Errorf("%w: decoding userinfo body: %v", ErrEndpointDerivation, err)
	}

	rest, ok := info.URLs["rest"]
	if !ok || rest == "" {
		return fmt.Errorf("%w: userinfo response has no rest url", ErrEndpointDerivation)
	}

	instance, err := baseOrigin(rest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEndpointDerivation, err)
	}

	ac.InstanceURL = instance
	if ac.Principal == "" {
		ac.Principal = info.PreferredUsername
	}
	return nil
}

// baseOrigin reduces a URL to scheme://host, discarding path and query.
func baseOrigin(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing rest url: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("rest url %q has no scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}
