// Package store keeps what the controller must remember between requests:
// which allocations are spoken for and which servers it created.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/gantryhq/gantry/pkg/driver"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrReserved is returned by Reserve when the address is already taken.
	ErrReserved = errors.New("allocation already reserved")
)

// Server is the controller's record of a server it created.
type Server struct {
	ID          uuid.UUID     `json:"id"`
	Node        string        `json:"node"`
	Name        string        `json:"name"`
	RequestedBy string        `json:"requested_by"`
	Panel       driver.Server `json:"panel"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Store persists allocation reservations and server records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Reserve claims addr on node. It fails with ErrReserved when the
	// address is already claimed.
	Reserve(ctx context.Context, node string, addr driver.Address) error
	// Release drops a claim. Releasing an unclaimed address is not an error.
	Release(ctx context.Context, node string, addr driver.Address) error
	// Reserved lists the claimed addresses on node.
	Reserved(ctx context.Context, node string) ([]driver.Address, error)

	SaveServer(ctx context.Context, s *Server) error
	GetServer(ctx context.Context, id uuid.UUID) (*Server, error)
	// ListServers returns the servers on node, or on every node when node
	// is empty, oldest first.
	ListServers(ctx context.Context, node string) ([]*Server, error)

	Close() error
}

// Backend names accepted by Open.
const (
	TypeMemory = "memory"
	TypeBadger = "badger"
)

// Open builds the named backend. path is only used by on-disk backends.
func Open(typ, path string, logger *slog.Logger) (Store, error) {
	switch typ {
	case "", TypeMemory:
		return NewInMem(), nil
	case TypeBadger:
		b, err := NewBadger(path, logger)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown store type %q", typ)
	}
}

func sortServers(servers []*Server) {
	sort.Slice(servers, func(i, j int) bool {
		if !servers[i].CreatedAt.Equal(servers[j].CreatedAt) {
			return servers[i].CreatedAt.Before(servers[j].CreatedAt)
		}
		return servers[i].Name < servers[j].Name
	})
}

func sortAddresses(addrs []driver.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].IP != addrs[j].IP {
			return addrs[i].IP < addrs[j].IP
		}
		return addrs[i].Port < addrs[j].Port
	})
}
