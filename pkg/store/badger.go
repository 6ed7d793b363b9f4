package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/gantryhq/gantry/pkg/driver"
)

const (
	allocPrefix  = "alloc:"
	serverPrefix = "server:"
)

// Badger is a Store kept in a badger database on disk.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the database at path. An empty path opens
// an in-memory database.
func NewBadger(path string, logger *slog.Logger) (*Badger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(filepath.Clean(path)).WithValueLogFileSize(1 << 24)
	}
	opts = opts.WithLogger(badgerLogger{logger.With(slog.String("component", "badger"))})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %q: %w", path, err)
	}
	return &Badger{db: db}, nil
}

// nodePrefix is the key prefix of one node's reservations. The node name is
// length-prefixed so no name is a prefix of another node's keys.
func nodePrefix(node string) string {
	return allocPrefix + strconv.Itoa(len(node)) + ":" + node + "/"
}

func allocKey(node string, addr driver.Address) []byte {
	return []byte(nodePrefix(node) + addr.String())
}

func serverKey(id uuid.UUID) []byte {
	return []byte(serverPrefix + id.String())
}

func (b *Badger) Reserve(ctx context.Context, node string, addr driver.Address) error {
	value, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		key := allocKey(node, addr)
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return fmt.Errorf("%s on node %s: %w", addr, node, ErrReserved)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, value)
	})
}

func (b *Badger) Release(ctx context.Context, node string, addr driver.Address) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(allocKey(node, addr))
	})
}

func (b *Badger) Reserved(ctx context.Context, node string) ([]driver.Address, error) {
	out := []driver.Address{}
	err := scan(b.db, nodePrefix(node), func(v []byte) error {
		var addr driver.Address
		if err := json.Unmarshal(v, &addr); err != nil {
			return err
		}
		out = append(out, addr)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortAddresses(out)
	return out, nil
}

func (b *Badger) SaveServer(ctx context.Context, s *Server) error {
	if s == nil || s.ID == uuid.Nil {
		return fmt.Errorf("save server: missing id")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(serverKey(s.ID), data)
	})
}

func (b *Badger) GetServer(ctx context.Context, id uuid.UUID) (*Server, error) {
	var out Server
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(serverKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("server %s: %w", id, ErrNotFound)
			}
			return err
		}
		return item.Value(func(v []byte) error {
			return json.Unmarshal(v, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *Badger) ListServers(ctx context.Context, node string) ([]*Server, error) {
	out := []*Server{}
	err := scan(b.db, serverPrefix, func(v []byte) error {
		var s Server
		if err := json.Unmarshal(v, &s); err != nil {
			return err
		}
		if node == "" || s.Node == node {
			out = append(out, &s)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortServers(out)
	return out, nil
}

func (b *Badger) Close() error {
	return b.db.Close()
}

func scan(db *badger.DB, prefix string, fn func(value []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger routes badger's own logging into slog. Info goes to Debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
