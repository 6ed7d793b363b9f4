package auth

import (
	"log/slog"
	"net/http"
)

// Middleware authenticates every request and attaches the resulting
// Authorization to its context.
type Middleware struct {
	authenticator Authenticator
	excluded      map[string]bool
	logger        *slog.Logger
}

// MiddlewareOption configures a Middleware.
type MiddlewareOption func(*Middleware)

// WithExcludedPaths lets the given paths through without authentication.
func WithExcludedPaths(paths ...string) MiddlewareOption {
	return func(m *Middleware) {
		for _, p := range paths {
			m.excluded[p] = true
		}
	}
}

// WithLogger sets the logger used for rejected requests.
func WithLogger(logger *slog.Logger) MiddlewareOption {
	return func(m *Middleware) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewMiddleware creates a Middleware around authenticator.
func NewMiddleware(authenticator Authenticator, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		authenticator: authenticator,
		excluded:      make(map[string]bool),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wrap wraps an http.Handler with authentication.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.excluded[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		authz, ok, err := m.authenticator.AuthenticateRequest(r)
		if err != nil {
			m.logger.WarnContext(r.Context(), "authentication failed",
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
				slog.String("error", err.Error()),
			)
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if !ok {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithAuthorization(r.Context(), authz)))
	})
}
