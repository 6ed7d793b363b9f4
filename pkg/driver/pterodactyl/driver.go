// Package pterodactyl drives game servers on a Pterodactyl panel through its
// application API.
package pterodactyl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/gantryhq/gantry/pkg/driver"
)

// Name is the name the driver registers under.
const Name = "pterodactyl"

func init() {
	driver.MustRegister(driver.Factory{
		Name:       Name,
		APIVersion: driver.APIVersion,
		New: func(cfg driver.NodeConfig, logger *slog.Logger) (driver.Driver, error) {
			opts, err := OptionsFromNodeConfig(cfg)
			if err != nil {
				return nil, err
			}
			return New(opts, logger), nil
		},
	})
}

// Options configure one driver instance.
type Options struct {
	// ConfigDir holds the settings file.
	ConfigDir string
	// Node is the name of the panel node backing the controller node.
	Node     string
	Template ServerTemplate

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv LookupEnv
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// OptionsFromNodeConfig reads the node options understood by this driver:
// node, config_dir, egg, startup, databases, allocations and backups.
func OptionsFromNodeConfig(cfg driver.NodeConfig) (Options, error) {
	opts := Options{
		ConfigDir: cfg.String("config_dir", "configs"),
		Node:      cfg.String("node", cfg.Node),
	}
	opts.Template.Startup = cfg.String("startup", "")

	var err error
	if opts.Template.Egg, err = cfg.Uint("egg", 0); err != nil {
		return Options{}, err
	}
	if opts.Template.Features.Databases, err = cfg.Uint("databases", 0); err != nil {
		return Options{}, err
	}
	if opts.Template.Features.Allocations, err = cfg.Uint("allocations", 0); err != nil {
		return Options{}, err
	}
	if opts.Template.Features.Backups, err = cfg.Uint("backups", 0); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Driver implements driver.Driver for one controller node.
type Driver struct {
	opts   Options
	logger *slog.Logger

	// Written once by Init under mu, read-only afterwards.
	mu      sync.RWMutex
	backend *Backend
	userID  uint32
	nodeID  uint32
}

// New creates an uninitialized driver.
func New(opts Options, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{opts: opts, logger: logger}
}

// Init loads the settings and resolves the configured user and the panel
// node. Calling it again after success is a no-op.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.backend != nil {
		return nil
	}

	settings, err := LoadSettings(d.opts.ConfigDir, d.opts.LookupEnv, d.logger)
	if err != nil {
		return err
	}
	backend := NewBackend(settings, d.opts.HTTPClient, d.logger)

	user, ok := backend.LookupUser(ctx, settings.User)
	if !ok {
		return &driver.ConfigError{
			Driver: Name,
			Err:    fmt.Errorf("user %q does not exist in the panel", settings.User),
		}
	}
	node, ok := backend.LookupNode(ctx, d.opts.Node)
	if !ok {
		return &driver.ConfigError{
			Driver: Name,
			Err:    fmt.Errorf("node %q does not exist in the panel", d.opts.Node),
		}
	}

	d.backend = backend
	d.userID = user.ID
	d.nodeID = node.ID

	d.logger.InfoContext(ctx, "pterodactyl driver initialized",
		slog.Int64("user_id", int64(user.ID)),
		slog.Int64("panel_node_id", int64(node.ID)),
	)
	return nil
}

func (d *Driver) resolved() (*Backend, uint32, uint32, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.backend, d.userID, d.nodeID, d.backend != nil
}

// FreeAllocations implements driver.Driver.
func (d *Driver) FreeAllocations(ctx context.Context, used []driver.Address, count int) []driver.Allocation {
	backend, _, nodeID, ok := d.resolved()
	if !ok {
		d.logger.ErrorContext(ctx, "allocation lookup before init")
		return nil
	}
	return backend.FreeAllocations(ctx, used, nodeID, count)
}

// CreateServer implements driver.Driver. Per-request settings "egg" and
// "startup" override the node template.
func (d *Driver) CreateServer(ctx context.Context, req driver.ServerRequest, alloc driver.Allocation) (*driver.Server, error) {
	backend, userID, _, ok := d.resolved()
	if !ok {
		return nil, driver.ErrNotInitialized
	}

	tmpl, err := d.template(req.Deployment)
	if err != nil {
		return nil, err
	}

	created, ok := backend.CreateServer(ctx, userID, req, alloc, tmpl)
	if !ok {
		return nil, fmt.Errorf("create server %q: %w", req.Name, driver.ErrNoResult)
	}
	return &created, nil
}

func (d *Driver) template(dep driver.Deployment) (ServerTemplate, error) {
	tmpl := d.opts.Template
	if v, ok := dep.Setting("egg"); ok {
		egg, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return ServerTemplate{}, fmt.Errorf("%w: egg %q: %v", driver.ErrInvalidRequest, v, err)
		}
		tmpl.Egg = uint32(egg)
	}
	if v, ok := dep.Setting("startup"); ok {
		tmpl.Startup = v
	}
	if tmpl.Egg == 0 {
		return ServerTemplate{}, fmt.Errorf("%w: no egg configured", driver.ErrInvalidRequest)
	}
	return tmpl, nil
}
