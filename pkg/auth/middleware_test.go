package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMiddleware(t *testing.T) {
	authn := NewTokenAuthenticator(map[string]Authorization{"secret": NewAdminUser("alice")})
	mw := NewMiddleware(authn, WithExcludedPaths("/healthz"))

	var seen Authorization
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantAuth   bool
	}{
		{name: "excluded path", path: "/healthz", wantStatus: http.StatusOK},
		{name: "missing header", path: "/rpc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", path: "/rpc", header: "Bearer bad", wantStatus: http.StatusUnauthorized},
		{name: "malformed", path: "/rpc", header: "Token secret", wantStatus: http.StatusUnauthorized},
		{name: "valid token", path: "/rpc", header: "Bearer secret", wantStatus: http.StatusOK, wantAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("POST", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if (seen != nil) != tt.wantAuth {
				t.Errorf("authorization in context = %v, want present=%v", seen, tt.wantAuth)
			}
			if tt.wantAuth && !seen.Is(KindUser) {
				t.Errorf("expected a user authorization, got %s", seen.Kind())
			}
		})
	}
}

func TestFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	if a, ok := FromContext(req.Context()); ok || a != nil {
		t.Errorf("FromContext() = %v, %v", a, ok)
	}
}
