package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/gantryhq/gantry/pkg/auth"
	"github.com/gantryhq/gantry/pkg/clock"
	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/notify"
	"github.com/gantryhq/gantry/pkg/retry"
	"github.com/gantryhq/gantry/pkg/store"
)

// ErrNoAllocation is returned when a node has no allocation left to bind a
// new server to.
var ErrNoAllocation = errors.New("no free allocation")

// Request asks for one server on one node.
type Request struct {
	Node   string
	Server driver.ServerRequest
	// By is who asked. It must be owned by this request.
	By auth.Authorization
}

// Provisioner creates servers: it picks a free allocation on the node,
// asks the node's driver for a server bound to it, and records the result.
type Provisioner struct {
	registry *Registry
	store    store.Store
	notifier notify.Notifier
	policy   retry.Policy
	metrics  *Metrics
	clock    clock.Clock
	logger   *slog.Logger
}

// ProvisionerOption configures a Provisioner.
type ProvisionerOption func(*Provisioner)

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) ProvisionerOption {
	return func(pr *Provisioner) { pr.policy = p }
}

// WithMetrics records attempts and created servers.
func WithMetrics(m *Metrics) ProvisionerOption {
	return func(pr *Provisioner) { pr.metrics = m }
}

// WithNotifier sets where provisioning events go.
func WithNotifier(n notify.Notifier) ProvisionerOption {
	return func(pr *Provisioner) { pr.notifier = n }
}

// WithClock sets the clock used for waiting and timestamps.
func WithClock(c clock.Clock) ProvisionerOption {
	return func(pr *Provisioner) { pr.clock = c }
}

// NewProvisioner creates a provisioner over the nodes in registry.
func NewProvisioner(registry *Registry, st store.Store, logger *slog.Logger, opts ...ProvisionerOption) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Provisioner{
		registry: registry,
		store:    st,
		policy:   retry.DefaultPolicy(),
		clock:    clock.Real(),
		logger:   logger.With(slog.String("component", "provisioner")),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.notifier == nil {
		p.notifier = notify.NewLogNotifier(p.logger)
	}
	return p
}

// Provision creates the requested server. A created server is recorded
// before Provision returns. When the driver produces nothing the
// allocation is released and the attempt repeated on a freshly resolved
// allocation, up to the policy's attempt limit.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*store.Server, error) {
	node, err := p.registry.Get(req.Node)
	if err != nil {
		return nil, err
	}
	logger := p.logger.With(
		slog.String("node", node.Name),
		slog.String("server", req.Server.Name),
	)
	subject := ""
	if req.By != nil {
		subject = auth.Subject(req.By)
	}

	// Addresses already attempted by this request. They are passed over
	// while the node has other free allocations.
	var (
		tried     []driver.Address
		attempts  int
		createErr error
	)

	policy := p.policy
	policy.Clock = p.clock
	policy.Retryable = retryable
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		logger.WarnContext(ctx, "provisioning attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	created, err := retry.DoWithValue(ctx, policy, func(ctx context.Context, attempt int) (*driver.Server, error) {
		alloc, err := p.reserve(ctx, node, tried)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(tried, alloc.Address()) {
			tried = append(tried, alloc.Address())
		}
		attempts++

		logger.DebugContext(ctx, "creating server",
			slog.Int("attempt", attempt),
			slog.String("address", alloc.Address().String()),
		)
		srv, err := node.Driver.CreateServer(ctx, req.Server, alloc)
		if err != nil {
			p.release(ctx, node.Name, alloc.Address())
			if errors.Is(err, driver.ErrNoResult) {
				p.metrics.attempt(node.Name, ResultNoResult)
			} else {
				p.metrics.attempt(node.Name, ResultError)
			}
			createErr = err
			return nil, err
		}
		p.metrics.attempt(node.Name, ResultCreated)
		return srv, nil
	})
	if err != nil {
		if errors.Is(err, ErrNoAllocation) {
			p.metrics.attempt(node.Name, ResultNoAllocation)
			// Report the failed create, not the allocation it lost.
			if createErr != nil {
				err = createErr
			}
		}
		logger.ErrorContext(ctx, "provisioning failed",
			slog.Int("attempts", attempts),
			slog.String("error", err.Error()),
		)
		p.notify(ctx, notify.Event{Type: notify.ServerFailed, Node: node.Name, Server: req.Server.Name, Subject: subject, Message: err.Error()})
		return nil, fmt.Errorf("provision %s on %s: %w", req.Server.Name, node.Name, err)
	}

	record := &store.Server{
		ID:          uuid.New(),
		Node:        node.Name,
		Name:        req.Server.Name,
		RequestedBy: subject,
		Panel:       *created,
		CreatedAt:   p.clock.Now(),
	}
	if err := p.store.SaveServer(ctx, record); err != nil {
		// The server exists on the provider either way.
		logger.ErrorContext(ctx, "failed to record created server",
			slog.String("id", record.ID.String()),
			slog.String("error", err.Error()),
		)
	}

	p.metrics.created(node.Name)
	logger.InfoContext(ctx, "server created",
		slog.String("id", record.ID.String()),
		slog.String("address", created.Address.String()),
		slog.String("requested_by", subject),
	)
	p.notify(ctx, notify.Event{Type: notify.ServerCreated, Node: node.Name, Server: record.Name, Subject: subject, Message: created.Address.String()})
	return record, nil
}

// reserve picks one free allocation on node and claims it in the store.
// Allocations in tried are only picked again when nothing else is free.
// Resolution and claim happen under the node's lock so two requests never
// pick the same allocation.
func (p *Provisioner) reserve(ctx context.Context, node *Node, tried []driver.Address) (driver.Allocation, error) {
	node.provisioning.Lock()
	defer node.provisioning.Unlock()

	reserved, err := p.store.Reserved(ctx, node.Name)
	if err != nil {
		return driver.Allocation{}, fmt.Errorf("list reservations: %w", err)
	}
	free := node.Driver.FreeAllocations(ctx, append(slices.Clip(reserved), tried...), 1)
	if len(free) == 0 && len(tried) > 0 {
		free = node.Driver.FreeAllocations(ctx, reserved, 1)
	}
	if len(free) == 0 {
		return driver.Allocation{}, ErrNoAllocation
	}
	alloc := free[0]
	if err := p.store.Reserve(ctx, node.Name, alloc.Address()); err != nil {
		return driver.Allocation{}, fmt.Errorf("reserve %s: %w", alloc.Address(), err)
	}
	return alloc, nil
}

func (p *Provisioner) release(ctx context.Context, node string, addr driver.Address) {
	if err := p.store.Release(ctx, node, addr); err != nil {
		p.logger.WarnContext(ctx, "failed to release allocation",
			slog.String("node", node),
			slog.String("address", addr.String()),
			slog.String("error", err.Error()),
		)
	}
}

func (p *Provisioner) notify(ctx context.Context, e notify.Event) {
	e.Time = p.clock.Now()
	if err := p.notifier.Notify(ctx, e); err != nil {
		p.logger.WarnContext(ctx, "failed to deliver event",
			slog.String("type", string(e.Type)),
			slog.String("error", err.Error()),
		)
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNoAllocation),
		errors.Is(err, driver.ErrInvalidRequest),
		errors.Is(err, driver.ErrNotInitialized),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
