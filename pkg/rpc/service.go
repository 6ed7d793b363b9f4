// Package rpc is the controller's RPC surface: procedure names, messages,
// and connect handlers and clients for them.
package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// ServiceName is the fully-qualified name of the controller service.
const ServiceName = "gantry.v1.ControllerService"

// Procedure paths.
const (
	GetControllerVersionProcedure = "/" + ServiceName + "/GetControllerVersion"
	GetProtocolVersionProcedure   = "/" + ServiceName + "/GetProtocolVersion"
	ListNodesProcedure            = "/" + ServiceName + "/ListNodes"
	CreateServerProcedure         = "/" + ServiceName + "/CreateServer"
	ListServersProcedure          = "/" + ServiceName + "/ListServers"
)

// ControllerServiceHandler is implemented by the controller.
type ControllerServiceHandler interface {
	GetControllerVersion(context.Context, *connect.Request[GetControllerVersionRequest]) (*connect.Response[GetControllerVersionResponse], error)
	GetProtocolVersion(context.Context, *connect.Request[GetProtocolVersionRequest]) (*connect.Response[GetProtocolVersionResponse], error)
	ListNodes(context.Context, *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error)
	CreateServer(context.Context, *connect.Request[CreateServerRequest]) (*connect.Response[CreateServerResponse], error)
	ListServers(context.Context, *connect.Request[ListServersRequest]) (*connect.Response[ListServersResponse], error)
}

// NewControllerServiceHandler builds an HTTP handler serving svc. It
// returns the path to mount the handler on.
func NewControllerServiceHandler(svc ControllerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetControllerVersionProcedure, connect.NewUnaryHandler(GetControllerVersionProcedure, svc.GetControllerVersion, opts...))
	mux.Handle(GetProtocolVersionProcedure, connect.NewUnaryHandler(GetProtocolVersionProcedure, svc.GetProtocolVersion, opts...))
	mux.Handle(ListNodesProcedure, connect.NewUnaryHandler(ListNodesProcedure, svc.ListNodes, opts...))
	mux.Handle(CreateServerProcedure, connect.NewUnaryHandler(CreateServerProcedure, svc.CreateServer, opts...))
	mux.Handle(ListServersProcedure, connect.NewUnaryHandler(ListServersProcedure, svc.ListServers, opts...))
	return "/" + ServiceName + "/", mux
}

// ControllerServiceClient talks to a controller.
type ControllerServiceClient interface {
	GetControllerVersion(context.Context, *connect.Request[GetControllerVersionRequest]) (*connect.Response[GetControllerVersionResponse], error)
	GetProtocolVersion(context.Context, *connect.Request[GetProtocolVersionRequest]) (*connect.Response[GetProtocolVersionResponse], error)
	ListNodes(context.Context, *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error)
	CreateServer(context.Context, *connect.Request[CreateServerRequest]) (*connect.Response[CreateServerResponse], error)
	ListServers(context.Context, *connect.Request[ListServersRequest]) (*connect.Response[ListServersResponse], error)
}

// NewControllerServiceClient returns a client for the controller at
// baseURL, for example "http://localhost:51067".
func NewControllerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ControllerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &controllerServiceClient{
		getControllerVersion: connect.NewClient[GetControllerVersionRequest, GetControllerVersionResponse](httpClient, baseURL+GetControllerVersionProcedure, opts...),
		getProtocolVersion:   connect.NewClient[GetProtocolVersionRequest, GetProtocolVersionResponse](httpClient, baseURL+GetProtocolVersionProcedure, opts...),
		listNodes:            connect.NewClient[ListNodesRequest, ListNodesResponse](httpClient, baseURL+ListNodesProcedure, opts...),
		createServer:         connect.NewClient[CreateServerRequest, CreateServerResponse](httpClient, baseURL+CreateServerProcedure, opts...),
		listServers:          connect.NewClient[ListServersRequest, ListServersResponse](httpClient, baseURL+ListServersProcedure, opts...),
	}
}

type controllerServiceClient struct {
	getControllerVersion *connect.Client[GetControllerVersionRequest, GetControllerVersionResponse]
	getProtocolVersion   *connect.Client[GetProtocolVersionRequest, GetProtocolVersionResponse]
	listNodes            *connect.Client[ListNodesRequest, ListNodesResponse]
	createServer         *connect.Client[CreateServerRequest, CreateServerResponse]
	listServers          *connect.Client[ListServersRequest, ListServersResponse]
}

func (c *controllerServiceClient) GetControllerVersion(ctx context.Context, req *connect.Request[GetControllerVersionRequest]) (*connect.Response[GetControllerVersionResponse], error) {
	return c.getControllerVersion.CallUnary(ctx, req)
}

func (c *controllerServiceClient) GetProtocolVersion(ctx context.Context, req *connect.Request[GetProtocolVersionRequest]) (*connect.Response[GetProtocolVersionResponse], error) {
	return c.getProtocolVersion.CallUnary(ctx, req)
}

func (c *controllerServiceClient) ListNodes(ctx context.Context, req *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error) {
	return c.listNodes.CallUnary(ctx, req)
}

func (c *controllerServiceClient) CreateServer(ctx context.Context, req *connect.Request[CreateServerRequest]) (*connect.Response[CreateServerResponse], error) {
	return c.createServer.CallUnary(ctx, req)
}

func (c *controllerServiceClient) ListServers(ctx context.Context, req *connect.Request[ListServersRequest]) (*connect.Response[ListServersResponse], error) {
	return c.listServers.CallUnary(ctx, req)
}
