package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	// ErrInvalidToken is returned when a token is present but invalid.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrMalformedAuthHeader is returned when the Authorization header format is wrong.
	ErrMalformedAuthHeader = errors.New("malformed authorization header")
)

type tokenEntry struct {
	token []byte
	auth  Authorization
}

// TokenAuthenticator authenticates requests carrying one of a fixed set of
// bearer tokens.
type TokenAuthenticator struct {
	entries []tokenEntry
}

// NewTokenAuthenticator creates an authenticator from token to
// authorization pairs. Empty tokens are ignored. Every successful request
// gets its own copy made with Recreate.
func NewTokenAuthenticator(tokens map[string]Authorization) *TokenAuthenticator {
	a := &TokenAuthenticator{}
	for token, auth := range tokens {
		if token == "" || auth == nil {
			continue
		}
		a.entries = append(a.entries, tokenEntry{token: []byte(token), auth: auth.Recreate()})
	}
	return a
}

// AuthenticateRequest implements Authenticator.
func (a *TokenAuthenticator) AuthenticateRequest(r *http.Request) (Authorization, bool, error) {
	if len(a.entries) == 0 {
		return nil, false, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false, nil
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, false, ErrMalformedAuthHeader
	}
	provided := []byte(strings.TrimPrefix(header, "Bearer "))
	if len(provided) == 0 {
		return nil, false, ErrMalformedAuthHeader
	}

	// Compare against every entry so timing does not reveal which one matched.
	var match Authorization
	for _, e := range a.entries {
		if subtle.ConstantTimeCompare(provided, e.token) == 1 {
			match = e.auth
		}
	}
	if match == nil {
		return nil, false, ErrInvalidToken
	}
	return match.Recreate(), true, nil
}

// Method implements AuthenticatorDescriptor.
func (a *TokenAuthenticator) Method() string {
	return "bearer-token"
}
