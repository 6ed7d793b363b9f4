// Package auth decides who is calling the controller and what they may do.
//
// Authenticators turn an HTTP request into an Authorization. The middleware
// stores it in the request context where handlers check capability flags
// before doing anything privileged.
package auth

import (
	"context"
	"net/http"
)

// Authenticator authenticates HTTP requests.
// Implementations should be safe for concurrent use.
type Authenticator interface {
	// AuthenticateRequest attempts to authenticate the given request.
	//
	// Returns:
	//   - (auth, true, nil): Authentication succeeded
	//   - (nil, false, nil): No credentials present
	//   - (nil, false, error): Credentials present but invalid
	//
	// The returned Authorization must be owned by the caller; never hand
	// out a shared instance.
	AuthenticateRequest(r *http.Request) (Authorization, bool, error)
}

// AuthenticatorFunc is an adapter to allow plain functions to be used as Authenticators.
type AuthenticatorFunc func(r *http.Request) (Authorization, bool, error)

// AuthenticateRequest implements Authenticator.
func (f AuthenticatorFunc) AuthenticateRequest(r *http.Request) (Authorization, bool, error) {
	return f(r)
}

// AuthenticatorDescriptor is implemented by authenticators that can name
// their method for logs.
type AuthenticatorDescriptor interface {
	Method() string
}

type contextKey int

const (
	authorizationKey contextKey = iota
)

// FromContext returns the Authorization attached to ctx.
func FromContext(ctx context.Context) (Authorization, bool) {
	a, ok := ctx.Value(authorizationKey).(Authorization)
	return a, ok && a != nil
}

// ContextWithAuthorization returns a new context carrying a.
func ContextWithAuthorization(ctx context.Context, a Authorization) context.Context {
	return context.WithValue(ctx, authorizationKey, a)
}
