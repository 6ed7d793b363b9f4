package rpc

import (
	"time"

	"github.com/gantryhq/gantry/pkg/driver"
)

type GetControllerVersionRequest struct{}

type GetControllerVersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
}

type GetProtocolVersionRequest struct{}

type GetProtocolVersionResponse struct {
	Protocol uint32 `json:"protocol"`
}

type ListNodesRequest struct{}

type ListNodesResponse struct {
	Nodes []NodeInfo `json:"nodes"`
}

// NodeInfo describes a node that is online.
type NodeInfo struct {
	Name    string `json:"name"`
	Driver  string `json:"driver"`
	Servers int    `json:"servers"`
}

// CreateServerRequest asks for one server on one node.
type CreateServerRequest struct {
	Node       string            `json:"node"`
	Name       string            `json:"name"`
	Resources  driver.Resources  `json:"resources"`
	Deployment driver.Deployment `json:"deployment"`
}

type CreateServerResponse struct {
	Server ServerInfo `json:"server"`
}

type ListServersRequest struct {
	// Node filters by node. Empty lists every node.
	Node string `json:"node,omitempty"`
}

type ListServersResponse struct {
	Servers []ServerInfo `json:"servers"`
}

// ServerInfo is a server created through the controller.
type ServerInfo struct {
	ID          string    `json:"id"`
	Node        string    `json:"node"`
	Name        string    `json:"name"`
	PanelID     uint32    `json:"panel_id"`
	Identifier  string    `json:"identifier,omitempty"`
	Address     string    `json:"address"`
	Image       string    `json:"image"`
	RequestedBy string    `json:"requested_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
