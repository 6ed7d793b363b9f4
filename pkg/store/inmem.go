package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gantryhq/gantry/pkg/driver"
)

// InMem is a Store that lives and dies with the process.
type InMem struct {
	mu       sync.RWMutex
	reserved map[string]map[driver.Address]struct{}
	servers  map[uuid.UUID]*Server
}

// NewInMem returns an empty in-memory store.
func NewInMem() *InMem {
	return &InMem{
		reserved: make(map[string]map[driver.Address]struct{}),
		servers:  make(map[uuid.UUID]*Server),
	}
}

func (m *InMem) Reserve(ctx context.Context, node string, addr driver.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.reserved[node]
	if !ok {
		claims = make(map[driver.Address]struct{})
		m.reserved[node] = claims
	}
	if _, taken := claims[addr]; taken {
		return fmt.Errorf("%s on node %s: %w", addr, node, ErrReserved)
	}
	claims[addr] = struct{}{}
	return nil
}

func (m *InMem) Release(ctx context.Context, node string, addr driver.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved[node], addr)
	return nil
}

func (m *InMem) Reserved(ctx context.Context, node string) ([]driver.Address, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]driver.Address, 0, len(m.reserved[node]))
	for addr := range m.reserved[node] {
		out = append(out, addr)
	}
	sortAddresses(out)
	return out, nil
}

func (m *InMem) SaveServer(ctx context.Context, s *Server) error {
	if s == nil || s.ID == uuid.Nil {
		return fmt.Errorf("save server: missing id")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.servers[s.ID] = &cp
	return nil
}

func (m *InMem) GetServer(ctx context.Context, id uuid.UUID) (*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.servers[id]
	if !ok {
		return nil, fmt.Errorf("server %s: %w", id, ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *InMem) ListServers(ctx context.Context, node string) ([]*Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Server, 0, len(m.servers))
	for _, s := range m.servers {
		if node != "" && s.Node != node {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sortServers(out)
	return out, nil
}

func (m *InMem) Close() error { return nil }
