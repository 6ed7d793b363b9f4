package driver

import (
	"net"
	"strconv"
)

// Address is the canonical network endpoint a server is bound to.
type Address struct {
	IP   string `json:"ip" yaml:"ip"`
	Port uint16 `json:"port" yaml:"port"`
}

func (a Address) String() string {
	return net.JoinHostPort(a.IP, strconv.Itoa(int(a.Port)))
}

// Allocation is a reservable (ip, port) pair on a node as reported by the
// provider.
type Allocation struct {
	ID       uint32 `json:"id"`
	IP       string `json:"ip"`
	Port     uint16 `json:"port"`
	Assigned bool   `json:"assigned"`
}

// Address returns the canonical address of the allocation.
func (a Allocation) Address() Address {
	return Address{IP: a.IP, Port: a.Port}
}

// KeyValue is one entry of an ordered mapping.
type KeyValue struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Resources are the hard limits a server runs with.
type Resources struct {
	// Memory, Swap and Disk are in MiB.
	Memory uint32 `json:"memory" yaml:"memory"`
	Swap   uint32 `json:"swap" yaml:"swap"`
	Disk   uint32 `json:"disk" yaml:"disk"`
	// IO is the block IO weight (10-1000).
	IO uint32 `json:"io" yaml:"io"`
	// CPU is a percentage of one core; 200 means two full cores.
	CPU uint32 `json:"cpu" yaml:"cpu"`
}

// Features are the soft limits on extra objects a server may own.
type Features struct {
	Databases   uint32 `json:"databases" yaml:"databases"`
	Allocations uint32 `json:"allocations" yaml:"allocations"`
	Backups     uint32 `json:"backups" yaml:"backups"`
}

// Deployment describes what runs inside a server.
type Deployment struct {
	Image       string     `json:"image"`
	Environment []KeyValue `json:"environment,omitempty"`
	// Settings carry driver specific values (for example "egg" or "startup")
	// that override the node defaults for this one server.
	Settings []KeyValue `json:"settings,omitempty"`
}

// Setting returns the value of the named setting.
func (d Deployment) Setting(key string) (string, bool) {
	for _, kv := range d.Settings {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ServerRequest asks a driver to create a server.
type ServerRequest struct {
	Name       string     `json:"name"`
	Resources  Resources  `json:"resources"`
	Deployment Deployment `json:"deployment"`
}

// Server is a created server projected back to canonical form.
type Server struct {
	ID           uint32     `json:"id"`
	Identifier   string     `json:"identifier,omitempty"`
	Name         string     `json:"name"`
	Owner        uint32     `json:"owner"`
	Template     uint32     `json:"template"`
	Image        string     `json:"image"`
	Startup      string     `json:"startup"`
	Environment  []KeyValue `json:"environment,omitempty"`
	Resources    Resources  `json:"resources"`
	Features     Features   `json:"features"`
	AllocationID uint32     `json:"allocation_id"`
	Address      Address    `json:"address"`
}
