package pterodactyl

import (
	"context"
	"log/slog"

	"github.com/gantryhq/gantry/pkg/driver"
)

// ServerTemplate holds the panel specific parts of a creation request.
type ServerTemplate struct {
	Egg      uint32
	Startup  string
	Features FeatureLimits
}

// CreateServer creates a server owned by owner on alloc. The second return
// value is false when the panel did not create the server; the reason has
// already been logged.
func (b *Backend) CreateServer(ctx context.Context, owner uint32, req driver.ServerRequest, alloc driver.Allocation, tmpl ServerTemplate) (driver.Server, bool) {
	payload := createServer{
		Name:          req.Name,
		User:          owner,
		Egg:           tmpl.Egg,
		DockerImage:   req.Deployment.Image,
		Startup:       tmpl.Startup,
		Environment:   environment(req.Deployment.Environment),
		Limits:        limitsFromResources(req.Resources),
		FeatureLimits: tmpl.Features,
		Allocation:    createAllocation{Default: alloc.ID},
	}

	created, ok := b.postServer(ctx, payload)
	if !ok {
		return driver.Server{}, false
	}

	b.logger.InfoContext(ctx, "server created on the panel",
		slog.String("name", created.Name),
		slog.Int64("id", int64(created.ID)),
		slog.String("address", alloc.Address().String()),
	)
	return created.canonical(alloc.Address()), true
}
