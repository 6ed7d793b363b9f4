package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
)

var (
	// ErrUnknownDriver is returned by Open for a name nobody registered.
	ErrUnknownDriver = errors.New("unknown driver")

	// ErrIncompatibleDriver is returned by Register for a factory built
	// against another APIVersion.
	ErrIncompatibleDriver = errors.New("incompatible driver api version")
)

// NodeConfig is what a factory receives to build the driver of one node.
type NodeConfig struct {
	// Node is the logical node name on the controller.
	Node    string
	Options map[string]any
}

// String returns a string option, or def when unset.
func (c NodeConfig) String(key, def string) string {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Uint returns an unsigned integer option, or def when unset.
func (c NodeConfig) Uint(key string, def uint32) (uint32, error) {
	v, ok := c.Options[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return uintOption(key, int64(n))
	case int64:
		return uintOption(key, n)
	case uint32:
		return n, nil
	case uint64:
		if n > math.MaxUint32 {
			return 0, fmt.Errorf("option %s: %d is out of range", key, n)
		}
		return uint32(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("option %s: %v is not a whole number", key, n)
		}
		if n < 0 || n > math.MaxUint32 {
			return 0, fmt.Errorf("option %s: %v is out of range", key, n)
		}
		return uint32(n), nil
	case string:
		parsed, err := strconv.ParseUint(n, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("option %s: %w", key, err)
		}
		return uint32(parsed), nil
	default:
		return 0, fmt.Errorf("option %s: unsupported type %T", key, v)
	}
}

func uintOption(key string, n int64) (uint32, error) {
	if n < 0 {
		return 0, fmt.Errorf("option %s: must not be negative", key)
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("option %s: %d is out of range", key, n)
	}
	return uint32(n), nil
}

// Factory builds driver instances. One instance serves exactly one node.
type Factory struct {
	Name       string
	APIVersion int
	New        func(cfg NodeConfig, logger *slog.Logger) (Driver, error)
}

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a driver available under f.Name.
func Register(f Factory) error {
	if f.Name == "" || f.New == nil {
		return fmt.Errorf("driver factory must have a name and a constructor")
	}
	if f.APIVersion != APIVersion {
		return fmt.Errorf("%s: %w: driver %d, host %d", f.Name, ErrIncompatibleDriver, f.APIVersion, APIVersion)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := factories[f.Name]; exists {
		return fmt.Errorf("driver %q already registered", f.Name)
	}
	factories[f.Name] = f
	return nil
}

// MustRegister is Register for package init functions.
func MustRegister(f Factory) {
	if err := Register(f); err != nil {
		panic(err)
	}
}

// Open builds a new, uninitialized driver instance for a node.
func Open(name string, cfg NodeConfig, logger *slog.Logger) (Driver, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return f.New(cfg, logger.With(slog.String("driver", name), slog.String("node", cfg.Node)))
}

// Drivers returns the sorted names of all registered drivers.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
