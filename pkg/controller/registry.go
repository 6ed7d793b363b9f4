// Package controller hosts nodes and provisions game servers on them.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gantryhq/gantry/pkg/clock"
	"github.com/gantryhq/gantry/pkg/config"
	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/notify"
)

var (
	// ErrNodeNotFound is returned for a node that is not online.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists is returned when a node name is already online.
	ErrNodeExists = errors.New("node already online")
)

// Node is a node that is online: its driver passed Init.
type Node struct {
	Name        string
	DriverName  string
	Driver      driver.Driver
	OnlineSince time.Time

	// provisioning serializes allocation resolution on this node.
	provisioning sync.Mutex
}

// Registry holds the nodes that are online.
type Registry struct {
	mu    sync.RWMutex
	nodes map[string]*Node

	notifier notify.Notifier
	metrics  *Metrics
	clock    clock.Clock
	logger   *slog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryMetrics records the online node count.
func WithRegistryMetrics(m *Metrics) RegistryOption {
	return func(r *Registry) { r.metrics = m }
}

// WithRegistryClock sets the clock used for OnlineSince.
func WithRegistryClock(c clock.Clock) RegistryOption {
	return func(r *Registry) { r.clock = c }
}

// NewRegistry creates an empty registry. A nil notifier logs events; a
// nil logger means slog.Default().
func NewRegistry(notifier notify.Notifier, logger *slog.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "registry"))
	if notifier == nil {
		notifier = notify.NewLogNotifier(logger)
	}
	r := &Registry{
		nodes:    make(map[string]*Node),
		notifier: notifier,
		clock:    clock.Real(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Bring opens the configured driver and brings the node online.
func (r *Registry) Bring(ctx context.Context, cfg config.NodeConfig) (*Node, error) {
	drv, err := driver.Open(cfg.Driver, cfg.DriverConfig(), r.logger)
	if err != nil {
		r.refused(ctx, cfg.Name, err)
		return nil, fmt.Errorf("node %s: %w", cfg.Name, err)
	}
	return r.Attach(ctx, cfg.Name, cfg.Driver, drv)
}

// Attach initializes drv and, only if that succeeds, registers it as the
// driver of node name. A node whose driver fails Init is never visible.
func (r *Registry) Attach(ctx context.Context, name, driverName string, drv driver.Driver) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("node name is required")
	}
	r.mu.RLock()
	_, exists := r.nodes[name]
	r.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("node %s: %w", name, ErrNodeExists)
	}

	if err := drv.Init(ctx); err != nil {
		r.refused(ctx, name, err)
		return nil, fmt.Errorf("node %s: %w", name, err)
	}

	node := &Node{Name: name, DriverName: driverName, Driver: drv, OnlineSince: r.clock.Now()}
	r.mu.Lock()
	if _, exists := r.nodes[name]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("node %s: %w", name, ErrNodeExists)
	}
	r.nodes[name] = node
	count := len(r.nodes)
	r.mu.Unlock()

	r.metrics.setNodes(count)
	r.logger.InfoContext(ctx, "node online",
		slog.String("node", name),
		slog.String("driver", driverName),
	)
	r.notify(ctx, notify.Event{Type: notify.NodeOnline, Node: name, Message: driverName})
	return node, nil
}

// BringAll brings every configured node online. Nodes that fail are
// refused and skipped; their errors are joined in the result.
func (r *Registry) BringAll(ctx context.Context, nodes []config.NodeConfig) error {
	var errs []error
	for _, cfg := range nodes {
		if _, err := r.Bring(ctx, cfg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) refused(ctx context.Context, name string, err error) {
	r.logger.ErrorContext(ctx, "node refused",
		slog.String("node", name),
		slog.String("error", err.Error()),
	)
	r.notify(ctx, notify.Event{Type: notify.NodeRefused, Node: name, Message: err.Error()})
}

func (r *Registry) notify(ctx context.Context, e notify.Event) {
	e.Time = r.clock.Now()
	if err := r.notifier.Notify(ctx, e); err != nil {
		r.logger.WarnContext(ctx, "failed to deliver event",
			slog.String("type", string(e.Type)),
			slog.String("error", err.Error()),
		)
	}
}

// Get returns the online node called name.
func (r *Registry) Get(name string) (*Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, name)
	}
	return n, nil
}

// List returns the online nodes sorted by name.
func (r *Registry) List() []*Node {
	r.mu.RLock()
	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		out = append(out, n)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remove takes a node offline. It reports whether the node was online.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	_, ok := r.nodes[name]
	delete(r.nodes, name)
	count := len(r.nodes)
	r.mu.Unlock()
	if ok {
		r.metrics.setNodes(count)
	}
	return ok
}

// Len returns the number of online nodes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}
