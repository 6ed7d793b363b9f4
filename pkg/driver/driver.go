// Package driver defines the boundary between the controller and the code
// that talks to a concrete hosting provider.
//
// The controller only ever holds a Driver. Everything that crosses the
// boundary is a plain value type owned by the receiver; drivers keep their
// configuration, credentials and caches to themselves.
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// APIVersion is the version of the Driver contract implemented by this host.
// A driver built against a different version is refused at registration.
const APIVersion = 1

var (
	// ErrNoResult is returned when a provider operation produced no value.
	// It deliberately does not say why.
	ErrNoResult = errors.New("provider returned no result")

	// ErrNotInitialized is returned when an operation is attempted before
	// Init succeeded.
	ErrNotInitialized = errors.New("driver is not initialized")

	// ErrInvalidRequest is returned when a request can never succeed on
	// this driver. Retrying it is pointless.
	ErrInvalidRequest = errors.New("invalid request")
)

// Driver is the contract the controller holds against every provider.
// Implementations must be safe for concurrent use once Init has returned.
type Driver interface {
	// Init resolves and validates the driver's configuration. It is
	// idempotent and must complete before any other method is called. A
	// missing value or an identity that cannot be resolved is reported as a
	// *ConfigError.
	Init(ctx context.Context) error

	// FreeAllocations returns at most count allocations that the provider
	// reports as unassigned and whose address is not in used. Fewer than
	// count may be returned; callers must check.
	FreeAllocations(ctx context.Context, used []Address, count int) []Allocation

	// CreateServer creates a server bound to alloc. When the provider does
	// not produce a server the error wraps ErrNoResult.
	CreateServer(ctx context.Context, req ServerRequest, alloc Allocation) (*Server, error)
}

// ConfigError reports a driver that cannot be brought online.
type ConfigError struct {
	Driver  string
	Missing []string
	Err     error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: invalid configuration", e.Driver)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ": missing required values: %s", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
