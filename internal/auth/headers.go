package auth

import "net/http"

// Header names consumed by the authentication layer.
const (
	HeaderAuthorization = "Authorization"
	HeaderInstanceURL   = "X-Salesforce-Instance-Url"
)

// FirstHeaderValue returns the first value of a header that may carry one or
// many values, and whether the header is present at all. All header reads go
// through this helper so that multi-valued headers never leak past this point.
func FirstHeaderValue(h http.Header, name string) (string, bool) {
	values := h.Values(name)
	if len(values) == 0 {
		return "", false
	}
	return values[0], true
}
