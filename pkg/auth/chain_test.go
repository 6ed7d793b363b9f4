package auth

import (
	"errors"
	"net/http"
	"reflect"
	"testing"
)

func staticAuth(a Authorization, ok bool, err error) Authenticator {
	return AuthenticatorFunc(func(*http.Request) (Authorization, bool, error) {
		return a, ok, err
	})
}

func TestChainAuthenticator(t *testing.T) {
	boom := errors.New("boom")
	admin := NewAdminUser("alice")

	tests := []struct {
		name    string
		chain   []Authenticator
		wantOK  bool
		wantErr error
	}{
		{name: "empty chain"},
		{name: "first wins", chain: []Authenticator{staticAuth(admin, true, nil), staticAuth(nil, false, boom)}, wantOK: true},
		{name: "skips unattempted", chain: []Authenticator{staticAuth(nil, false, nil), staticAuth(admin, true, nil)}, wantOK: true},
		{name: "error stops chain", chain: []Authenticator{staticAuth(nil, false, boom), staticAuth(admin, true, nil)}, wantErr: boom},
		{name: "nobody attempted", chain: []Authenticator{staticAuth(nil, false, nil)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChainAuthenticator(tt.chain...)
			got, ok, err := c.AuthenticateRequest(newRequest(""))
			if err != tt.wantErr {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != admin {
				t.Errorf("got %v, want admin", got)
			}
		})
	}
}

func TestChainAuthenticator_Methods(t *testing.T) {
	c := NewChainAuthenticator(
		NewTokenAuthenticator(nil),
		staticAuth(nil, false, nil),
	)
	if got := c.Methods(); !reflect.DeepEqual(got, []string{"bearer-token"}) {
		t.Errorf("Methods() = %v", got)
	}
}
