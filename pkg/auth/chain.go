package auth

import "net/http"

// ChainAuthenticator asks each authenticator in turn. The first one that
// recognizes the caller decides. Rejected credentials end the chain with
// the rejecting authenticator's error.
type ChainAuthenticator struct {
	links []Authenticator
}

// NewChainAuthenticator returns a chain trying links in order.
func NewChainAuthenticator(links ...Authenticator) *ChainAuthenticator {
	return &ChainAuthenticator{links: append([]Authenticator(nil), links...)}
}

// AuthenticateRequest implements Authenticator.
func (c *ChainAuthenticator) AuthenticateRequest(r *http.Request) (Authorization, bool, error) {
	for _, link := range c.links {
		authz, ok, err := link.AuthenticateRequest(r)
		switch {
		case err != nil:
			return nil, false, err
		case ok:
			return authz, true, nil
		}
	}
	return nil, false, nil
}

// Methods lists the named methods in the chain, for startup logs.
func (c *ChainAuthenticator) Methods() []string {
	var methods []string
	for _, link := range c.links {
		if d, ok := link.(AuthenticatorDescriptor); ok {
			methods = append(methods, d.Method())
		}
	}
	return methods
}
