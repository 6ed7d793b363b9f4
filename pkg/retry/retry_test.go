package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gantryhq/gantry/pkg/clock"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) error {
		calls++
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_SuccessOnRetry(t *testing.T) {
	var seen []int
	err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) error {
		seen = append(seen, attempt)
		if attempt < 3 {
			return errors.New("panel busy")
		}
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("attempt numbers = %v, want [1 2 3]", seen)
	}
}

func TestDo_MaxAttemptsExceeded(t *testing.T) {
	want := errors.New("panel down")
	calls := 0
	err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) error {
		calls++
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("expected %v, got %v", want, err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDo_NonRetryableError(t *testing.T) {
	fatal := errors.New("no allocation")
	p := fastPolicy(5)
	p.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	calls := 0
	err := Do(context.Background(), p, func(ctx context.Context, attempt int) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Errorf("expected %v, got %v", fatal, err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := fastPolicy(0)
	p.InitialDelay = time.Hour
	p.MaxDelay = time.Hour
	p.Clock = clock.NewFake(time.Unix(0, 0))
	p.OnRetry = func(int, error, time.Duration) { cancel() }

	cause := errors.New("flaky")
	err := Do(ctx, p, func(ctx context.Context, attempt int) error { return cause })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected last error to be joined, got %v", err)
	}
}

func TestDo_WaitsOnClock(t *testing.T) {
	fake := clock.NewFake(time.Unix(0, 0))
	p := Policy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2, Clock: fake}

	var waits []time.Duration
	p.OnRetry = func(attempt int, err error, wait time.Duration) { waits = append(waits, wait) }

	done := make(chan error, 1)
	go func() {
		done <- Do(context.Background(), p, func(ctx context.Context, attempt int) error {
			return errors.New("again")
		})
	}()

	fake.BlockUntilWaiters(1)
	fake.Advance(time.Second)
	fake.BlockUntilWaiters(1)
	fake.Advance(2 * time.Second)

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return")
	}
	if len(waits) != 2 || waits[0] != time.Second || waits[1] != 2*time.Second {
		t.Errorf("waits = %v, want [1s 2s]", waits)
	}
}

func TestPolicy_Delay(t *testing.T) {
	p := Policy{InitialDelay: time.Second, MaxDelay: 10 * time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{20, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := p.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestDoWithValue(t *testing.T) {
	got, err := DoWithValue(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) (string, error) {
		if attempt == 1 {
			return "partial", errors.New("retry me")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Errorf("DoWithValue() = %q, %v", got, err)
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.MaxAttempts != 3 || p.InitialDelay != time.Second || p.MaxDelay != 10*time.Second {
		t.Errorf("unexpected default policy %+v", p)
	}
}
