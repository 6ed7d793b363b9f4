package auth

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// TokenInterceptor is the client side of TokenAuthenticator: it stamps the
// operator token on every outgoing controller call.
type TokenInterceptor struct {
	token string
}

// NewTokenInterceptor returns an interceptor sending token. An empty token
// leaves requests untouched.
func NewTokenInterceptor(token string) *TokenInterceptor {
	return &TokenInterceptor{token: token}
}

func (i *TokenInterceptor) stamp(h http.Header) {
	if i.token != "" {
		h.Set("Authorization", "Bearer "+i.token)
	}
}

// WrapUnary implements connect.Interceptor.
func (i *TokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		i.stamp(req.Header())
		return next(ctx, req)
	}
}

// WrapStreamingClient implements connect.Interceptor.
func (i *TokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		i.stamp(conn.RequestHeader())
		return conn
	}
}

// WrapStreamingHandler implements connect.Interceptor. Handlers are left alone.
func (i *TokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
