package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/gantryhq/gantry/pkg/auth"
	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/rpc"
	"github.com/gantryhq/gantry/pkg/store"
	"github.com/gantryhq/gantry/pkg/version"
)

// Service implements rpc.ControllerServiceHandler.
type Service struct {
	registry    *Registry
	provisioner *Provisioner
	store       store.Store
	anonymous   auth.Authorization
	logger      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithAnonymous makes requests that carry no authorization act as a.
// Without it such requests are rejected as unauthenticated.
func WithAnonymous(a auth.Authorization) ServiceOption {
	return func(s *Service) { s.anonymous = a }
}

// NewService creates the RPC service.
func NewService(registry *Registry, provisioner *Provisioner, st store.Store, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		registry:    registry,
		provisioner: provisioner,
		store:       st,
		logger:      logger.With(slog.String("component", "service")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// authorize returns the caller's authorization if it holds flag.
func (s *Service) authorize(ctx context.Context, flag auth.Flag) (auth.Authorization, error) {
	a, ok := auth.FromContext(ctx)
	if !ok {
		if s.anonymous == nil {
			return nil, connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
		}
		a = s.anonymous.Recreate()
	}
	if !a.IsAllowed(flag) {
		s.logger.WarnContext(ctx, "permission denied",
			slog.String("subject", auth.Subject(a)),
			slog.Uint64("flag", uint64(flag)),
		)
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("%s may not do this", auth.Subject(a)))
	}
	return a, nil
}

func (s *Service) GetControllerVersion(ctx context.Context, req *connect.Request[rpc.GetControllerVersionRequest]) (*connect.Response[rpc.GetControllerVersionResponse], error) {
	if _, err := s.authorize(ctx, auth.FlagReadVersion); err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetControllerVersionResponse{
		Version: version.Version,
		Commit:  version.Commit,
	}), nil
}

func (s *Service) GetProtocolVersion(ctx context.Context, req *connect.Request[rpc.GetProtocolVersionRequest]) (*connect.Response[rpc.GetProtocolVersionResponse], error) {
	if _, err := s.authorize(ctx, auth.FlagReadVersion); err != nil {
		return nil, err
	}
	return connect.NewResponse(&rpc.GetProtocolVersionResponse{Protocol: version.Protocol}), nil
}

func (s *Service) ListNodes(ctx context.Context, req *connect.Request[rpc.ListNodesRequest]) (*connect.Response[rpc.ListNodesResponse], error) {
	if _, err := s.authorize(ctx, auth.FlagListNodes); err != nil {
		return nil, err
	}

	servers, err := s.store.ListServers(ctx, "")
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list servers", slog.String("error", err.Error()))
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to list servers: %w", err))
	}
	perNode := make(map[string]int)
	for _, srv := range servers {
		perNode[srv.Node]++
	}

	nodes := s.registry.List()
	resp := &rpc.ListNodesResponse{Nodes: make([]rpc.NodeInfo, 0, len(nodes))}
	for _, n := range nodes {
		resp.Nodes = append(resp.Nodes, rpc.NodeInfo{Name: n.Name, Driver: n.DriverName, Servers: perNode[n.Name]})
	}
	return connect.NewResponse(resp), nil
}

func (s *Service) CreateServer(ctx context.Context, req *connect.Request[rpc.CreateServerRequest]) (*connect.Response[rpc.CreateServerResponse], error) {
	caller, err := s.authorize(ctx, auth.FlagCreateServer)
	if err != nil {
		return nil, err
	}
	msg := req.Msg
	if msg.Node == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("node is required"))
	}
	if msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("name is required"))
	}

	record, err := s.provisioner.Provision(ctx, Request{
		Node: msg.Node,
		Server: driver.ServerRequest{
			Name:       msg.Name,
			Resources:  msg.Resources,
			Deployment: msg.Deployment,
		},
		By: caller.Recreate(),
	})
	if err != nil {
		return nil, provisionError(err)
	}
	return connect.NewResponse(&rpc.CreateServerResponse{Server: serverInfo(record)}), nil
}

func (s *Service) ListServers(ctx context.Context, req *connect.Request[rpc.ListServersRequest]) (*connect.Response[rpc.ListServersResponse], error) {
	if _, err := s.authorize(ctx, auth.FlagListServers); err != nil {
		return nil, err
	}
	if req.Msg.Node != "" {
		if _, err := s.registry.Get(req.Msg.Node); err != nil {
			return nil, connect.NewError(connect.CodeNotFound, err)
		}
	}

	servers, err := s.store.ListServers(ctx, req.Msg.Node)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list servers", slog.String("error", err.Error()))
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to list servers: %w", err))
	}
	resp := &rpc.ListServersResponse{Servers: make([]rpc.ServerInfo, 0, len(servers))}
	for _, srv := range servers {
		resp.Servers = append(resp.Servers, serverInfo(srv))
	}
	return connect.NewResponse(resp), nil
}

func provisionError(err error) error {
	switch {
	case errors.Is(err, ErrNodeNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrNoAllocation):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, driver.ErrInvalidRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, driver.ErrNoResult):
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func serverInfo(s *store.Server) rpc.ServerInfo {
	return rpc.ServerInfo{
		ID:          s.ID.String(),
		Node:        s.Node,
		Name:        s.Name,
		PanelID:     s.Panel.ID,
		Identifier:  s.Panel.Identifier,
		Address:     s.Panel.Address.String(),
		Image:       s.Panel.Image,
		RequestedBy: s.RequestedBy,
		CreatedAt:   s.CreatedAt,
	}
}

var _ rpc.ControllerServiceHandler = (*Service)(nil)
