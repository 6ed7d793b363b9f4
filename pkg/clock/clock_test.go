package clock

import (
	"testing"
	"time"
)

func TestFake_AdvanceFiresDueWaiters(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	short := f.After(time.Second)
	long := f.After(time.Minute)

	if f.Waiters() != 2 {
		t.Fatalf("Waiters() = %d, want 2", f.Waiters())
	}

	f.Advance(2 * time.Second)

	select {
	case got := <-short:
		if !got.Equal(start.Add(2 * time.Second)) {
			t.Errorf("fired at %v", got)
		}
	default:
		t.Fatal("short waiter did not fire")
	}
	select {
	case <-long:
		t.Fatal("long waiter fired early")
	default:
	}
	if f.Waiters() != 1 {
		t.Errorf("Waiters() = %d, want 1", f.Waiters())
	}
}

func TestFake_ZeroDurationFiresImmediately(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	select {
	case <-f.After(0):
	default:
		t.Fatal("After(0) should fire without Advance")
	}
	if got := f.Requested(); len(got) != 1 || got[0] != 0 {
		t.Errorf("Requested() = %v", got)
	}
}

func TestFake_BlockUntilWaiters(t *testing.T) {
	f := NewFake(time.Unix(0, 0))
	done := make(chan struct{})
	go func() {
		<-f.After(time.Second)
		close(done)
	}()

	f.BlockUntilWaiters(1)
	f.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never released")
	}
}

func TestReal(t *testing.T) {
	c := Real()
	before := time.Now()
	if c.Now().Before(before) {
		t.Error("Real().Now() went backwards")
	}
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(5 * time.Second):
		t.Fatal("Real().After never fired")
	}
}
