package controller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/driver/fake"
	"github.com/gantryhq/gantry/pkg/notify"
	"github.com/gantryhq/gantry/pkg/retry"
	"github.com/gantryhq/gantry/pkg/store"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Notify(ctx context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []notify.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]notify.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

// testbed is a controller with one fake node called "eu-1".
type testbed struct {
	registry    *Registry
	provisioner *Provisioner
	store       *store.InMem
	driver      *fake.Driver
	events      *recorder
	metrics     *Metrics
}

func newTestbed(t *testing.T, allocations int, attempts int) *testbed {
	t.Helper()
	tb := &testbed{
		store:   store.NewInMem(),
		driver:  fake.New("eu-1", fake.Pool("10.0.0.1", 25565, allocations), quietLogger()),
		events:  &recorder{},
		metrics: NewMetrics(),
	}
	tb.registry = NewRegistry(tb.events, quietLogger(), WithRegistryMetrics(tb.metrics))
	if _, err := tb.registry.Attach(context.Background(), "eu-1", fake.Name, tb.driver); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	tb.provisioner = NewProvisioner(tb.registry, tb.store, quietLogger(),
		WithNotifier(tb.events),
		WithMetrics(tb.metrics),
		WithPolicy(retry.Policy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}),
	)
	return tb
}

func serverRequest(name string) driver.ServerRequest {
	return driver.ServerRequest{
		Name:      name,
		Resources: driver.Resources{Memory: 1024, Disk: 4096, IO: 500, CPU: 100},
		Deployment: driver.Deployment{
			Image:       "ghcr.io/pterodactyl/yolks:java_17",
			Environment: []driver.KeyValue{{Key: "SERVER_JARFILE", Value: "server.jar"}},
		},
	}
}
