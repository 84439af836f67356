package auth

import "errors"

// Credential resolution failures. The HTTP layer maps these to structured
// protocol errors; they never reach tool handlers.
var (
	// ErrMissingCredential is returned when no Authorization header is provided.
	ErrMissingCredential = errors.New("no authorization header provided")

	// ErrMalformedCredential is returned when the Authorization header does not
	// use the Bearer scheme.
	ErrMalformedCredential = errors.New("authorization header must use the Bearer scheme")

	// ErrEmptyCredential is returned when the Bearer scheme carries no token.
	ErrEmptyCredential = errors.New("bearer token is empty")

	// ErrEndpointDerivation is returned when the instance URL could not be
	// derived from the userinfo endpoint. Callers decide whether this is fatal;
	// the resolver makes exactly one attempt and does not retry.
	ErrEndpointDerivation = errors.New("unable to derive instance url")
)
