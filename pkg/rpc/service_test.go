package rpc

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/gantryhq/gantry/pkg/driver"
)

type stubController struct {
	lastCreate *CreateServerRequest
	lastFilter string
}

func (s *stubController) GetControllerVersion(ctx context.Context, req *connect.Request[GetControllerVersionRequest]) (*connect.Response[GetControllerVersionResponse], error) {
	return connect.NewResponse(&GetControllerVersionResponse{Version: "1.2.3", Commit: "abc"}), nil
}

func (s *stubController) GetProtocolVersion(ctx context.Context, req *connect.Request[GetProtocolVersionRequest]) (*connect.Response[GetProtocolVersionResponse], error) {
	return connect.NewResponse(&GetProtocolVersionResponse{Protocol: 7}), nil
}

func (s *stubController) ListNodes(ctx context.Context, req *connect.Request[ListNodesRequest]) (*connect.Response[ListNodesResponse], error) {
	return nil, connect.NewError(connect.CodePermissionDenied, errors.New("not allowed to list nodes"))
}

func (s *stubController) CreateServer(ctx context.Context, req *connect.Request[CreateServerRequest]) (*connect.Response[CreateServerResponse], error) {
	s.lastCreate = req.Msg
	return connect.NewResponse(&CreateServerResponse{Server: ServerInfo{
		ID:        "5f0c6c7e-0000-4000-8000-000000000000",
		Node:      req.Msg.Node,
		Name:      req.Msg.Name,
		PanelID:   42,
		Address:   "10.0.0.1:25565",
		CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}}), nil
}

func (s *stubController) ListServers(ctx context.Context, req *connect.Request[ListServersRequest]) (*connect.Response[ListServersResponse], error) {
	s.lastFilter = req.Msg.Node
	return connect.NewResponse(&ListServersResponse{Servers: []ServerInfo{{Name: "lobby", Node: "eu-1"}}}), nil
}

func newTestClient(t *testing.T) (ControllerServiceClient, *stubController) {
	t.Helper()
	stub := &stubController{}
	mux := http.NewServeMux()
	path, handler := NewControllerServiceHandler(stub)
	mux.Handle(path, handler)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return NewControllerServiceClient(srv.Client(), srv.URL+"/"), stub
}

func TestRoundTrip_Versions(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()

	v, err := client.GetControllerVersion(ctx, connect.NewRequest(&GetControllerVersionRequest{}))
	if err != nil {
		t.Fatalf("GetControllerVersion: %v", err)
	}
	if v.Msg.Version != "1.2.3" || v.Msg.Commit != "abc" {
		t.Errorf("version = %+v", v.Msg)
	}

	p, err := client.GetProtocolVersion(ctx, connect.NewRequest(&GetProtocolVersionRequest{}))
	if err != nil {
		t.Fatalf("GetProtocolVersion: %v", err)
	}
	if p.Msg.Protocol != 7 {
		t.Errorf("protocol = %d, want 7", p.Msg.Protocol)
	}
}

func TestRoundTrip_CreateServer(t *testing.T) {
	client, stub := newTestClient(t)

	req := &CreateServerRequest{
		Node:      "eu-1",
		Name:      "lobby",
		Resources: driver.Resources{Memory: 2048, Disk: 10240, IO: 500, CPU: 200},
		Deployment: driver.Deployment{
			Image:       "ghcr.io/pterodactyl/yolks:java_17",
			Environment: []driver.KeyValue{{Key: "SERVER_JARFILE", Value: "server.jar"}, {Key: "BUILD", Value: "latest"}},
		},
	}
	resp, err := client.CreateServer(context.Background(), connect.NewRequest(req))
	if err != nil {
		t.Fatalf("CreateServer: %v", err)
	}

	if stub.lastCreate == nil || stub.lastCreate.Resources.CPU != 200 {
		t.Fatalf("controller saw %+v", stub.lastCreate)
	}
	env := stub.lastCreate.Deployment.Environment
	if len(env) != 2 || env[0].Key != "SERVER_JARFILE" || env[1].Key != "BUILD" {
		t.Errorf("environment order lost: %v", env)
	}
	if resp.Msg.Server.PanelID != 42 || resp.Msg.Server.Address != "10.0.0.1:25565" {
		t.Errorf("server = %+v", resp.Msg.Server)
	}
	if !resp.Msg.Server.CreatedAt.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("created_at = %v", resp.Msg.Server.CreatedAt)
	}
}

func TestRoundTrip_ListServersFilter(t *testing.T) {
	client, stub := newTestClient(t)
	resp, err := client.ListServers(context.Background(), connect.NewRequest(&ListServersRequest{Node: "eu-1"}))
	if err != nil {
		t.Fatalf("ListServers: %v", err)
	}
	if stub.lastFilter != "eu-1" {
		t.Errorf("filter = %q", stub.lastFilter)
	}
	if len(resp.Msg.Servers) != 1 {
		t.Errorf("servers = %v", resp.Msg.Servers)
	}
}

func TestRoundTrip_ErrorCode(t *testing.T) {
	client, _ := newTestClient(t)
	_, err := client.ListNodes(context.Background(), connect.NewRequest(&ListNodesRequest{}))
	if err == nil {
		t.Fatal("expected an error")
	}
	if code := connect.CodeOf(err); code != connect.CodePermissionDenied {
		t.Errorf("code = %v, want permission_denied", code)
	}
}

func TestCodec(t *testing.T) {
	c := Codec{}
	if c.Name() != "json" {
		t.Errorf("Name() = %s", c.Name())
	}

	var req ListServersRequest
	if err := c.Unmarshal([]byte(`{"node":"eu-1"}`), &req); err != nil || req.Node != "eu-1" {
		t.Errorf("Unmarshal = %+v, %v", req, err)
	}
	if err := c.Unmarshal(nil, &req); err != nil {
		t.Errorf("empty body should decode to the zero message: %v", err)
	}
	if err := c.Unmarshal([]byte(`{"node":"eu-1","region":"x"}`), &req); err == nil {
		t.Error("unknown fields should be rejected")
	}
}
