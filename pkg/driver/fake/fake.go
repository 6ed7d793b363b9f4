// Package fake is an in-memory driver for development and tests. It hands
// out allocations from a fixed pool and can be told to fail.
package fake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/gantryhq/gantry/pkg/driver"
)

// Name is the name the fake driver registers under.
const Name = "fake"

func init() {
	driver.MustRegister(driver.Factory{
		Name:       Name,
		APIVersion: driver.APIVersion,
		New: func(cfg driver.NodeConfig, logger *slog.Logger) (driver.Driver, error) {
			first, err := cfg.Uint("first_port", 25565)
			if err != nil {
				return nil, err
			}
			if first == 0 || first > 65535 {
				return nil, fmt.Errorf("option first_port: %d is not a port", first)
			}
			count, err := cfg.Uint("allocations", 10)
			if err != nil {
				return nil, err
			}
			if uint64(first)+uint64(count) > 65536 {
				return nil, fmt.Errorf("option allocations: %d ports from %d overflow", count, first)
			}
			return New(cfg.Node, Pool(cfg.String("ip", "127.0.0.1"), uint16(first), int(count)), logger), nil
		},
	})
}

// Pool returns count consecutive allocations on ip starting at firstPort.
func Pool(ip string, firstPort uint16, count int) []driver.Allocation {
	out := make([]driver.Allocation, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, driver.Allocation{ID: uint32(i + 1), IP: ip, Port: firstPort + uint16(i)})
	}
	return out
}

// Calls counts how often each driver method ran.
type Calls struct {
	Init            int
	FreeAllocations int
	CreateServer    int
}

// Driver is the fake driver.
type Driver struct {
	node   string
	logger *slog.Logger

	mu          sync.Mutex
	pool        []driver.Allocation
	initialized bool
	initErr     error
	failCreate  int
	nextID      uint32
	servers     []driver.Server
	calls       Calls
}

// New returns an uninitialized fake driver serving pool.
func New(node string, pool []driver.Allocation, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		node:   node,
		logger: logger,
		pool:   append([]driver.Allocation(nil), pool...),
		nextID: 100,
	}
}

// FailInit makes every following Init return err.
func (d *Driver) FailInit(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initErr = err
}

// FailCreate makes the next n CreateServer calls produce no server.
func (d *Driver) FailCreate(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failCreate = n
}

// Assign marks the allocation at addr as taken, as if someone else had
// used it behind the controller's back.
func (d *Driver) Assign(addr driver.Address) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.pool {
		if d.pool[i].Address() == addr {
			d.pool[i].Assigned = true
		}
	}
}

// Servers returns the servers created so far.
func (d *Driver) Servers() []driver.Server {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]driver.Server(nil), d.servers...)
}

// Calls returns the call counters.
func (d *Driver) Calls() Calls {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.Init++
	if d.initErr != nil {
		return &driver.ConfigError{Driver: Name, Err: d.initErr}
	}
	if !d.initialized {
		d.logger.InfoContext(ctx, "fake driver ready", slog.Int("allocations", len(d.pool)))
	}
	d.initialized = true
	return nil
}

func (d *Driver) FreeAllocations(ctx context.Context, used []driver.Address, count int) []driver.Allocation {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.FreeAllocations++
	if !d.initialized || count <= 0 {
		return nil
	}

	taken := make(map[driver.Address]bool, len(used))
	for _, a := range used {
		taken[a] = true
	}
	var out []driver.Allocation
	for _, a := range d.pool {
		if len(out) >= count {
			break
		}
		if a.Assigned || taken[a.Address()] {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (d *Driver) CreateServer(ctx context.Context, req driver.ServerRequest, alloc driver.Allocation) (*driver.Server, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls.CreateServer++
	if !d.initialized {
		return nil, driver.ErrNotInitialized
	}
	if d.failCreate > 0 {
		d.failCreate--
		return nil, fmt.Errorf("create server %q: %w", req.Name, driver.ErrNoResult)
	}

	idx := -1
	for i, a := range d.pool {
		if a.ID == alloc.ID && !a.Assigned {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("create server %q on allocation %d: %w", req.Name, alloc.ID, driver.ErrNoResult)
	}
	d.pool[idx].Assigned = true

	d.nextID++
	s := driver.Server{
		ID:           d.nextID,
		Identifier:   "fake" + strconv.FormatUint(uint64(d.nextID), 16),
		Name:         req.Name,
		Image:        req.Deployment.Image,
		Environment:  append([]driver.KeyValue(nil), req.Deployment.Environment...),
		Resources:    req.Resources,
		AllocationID: alloc.ID,
		Address:      d.pool[idx].Address(),
	}
	d.servers = append(d.servers, s)
	return &s, nil
}
