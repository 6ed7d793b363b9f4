// Package retry runs an operation again with exponential backoff.
package retry

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/gantryhq/gantry/pkg/clock"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	// MaxAttempts counts the first try. Zero retries until ctx ends.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Multiplier grows the delay after each failed attempt.
	Multiplier float64

	// Jitter spreads each delay by +/- that fraction.
	Jitter float64

	// Retryable reports whether err deserves another attempt. Nil retries
	// every error.
	Retryable func(err error) bool

	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, wait time.Duration)

	Clock clock.Clock
}

// DefaultPolicy is what the provisioner uses when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

func (p Policy) withDefaults() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = time.Second
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2
	}
	if p.Clock == nil {
		p.Clock = clock.Real()
	}
	return p
}

// Delay returns the un-jittered wait after the given failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	p = p.withDefaults()
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	return time.Duration(d)
}

func (p Policy) jittered(d time.Duration) time.Duration {
	if p.Jitter <= 0 {
		return d
	}
	spread := float64(d) * p.Jitter
	return d + time.Duration(rand.Float64()*2*spread-spread)
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// attempts run out. Attempts are numbered from 1. The last error is
// returned, joined with ctx.Err() when the context ended the loop.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) error {
	p = p.withDefaults()

	var last error
	for attempt := 1; p.MaxAttempts <= 0 || attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, last)
		}

		last = fn(ctx, attempt)
		if last == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(last) {
			return last
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			break
		}

		wait := p.jittered(p.Delay(attempt))
		if p.OnRetry != nil {
			p.OnRetry(attempt, last, wait)
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), last)
		case <-p.Clock.After(wait):
		}
	}
	return last
}

// DoWithValue is Do for operations that produce a value.
func DoWithValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, func(ctx context.Context, attempt int) error {
		v, err := fn(ctx, attempt)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
