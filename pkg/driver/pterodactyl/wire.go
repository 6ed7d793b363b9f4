package pterodactyl

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gantryhq/gantry/pkg/driver"
)

// object is the {"object": ..., "attributes": ...} wrapper used for every
// record the application API sends or accepts.
type object[T any] struct {
	Object     string `json:"object,omitempty"`
	Attributes T      `json:"attributes"`
}

type list[T any] struct {
	Object string      `json:"object"`
	Data   []object[T] `json:"data"`
	Meta   struct {
		Pagination pagination `json:"pagination"`
	} `json:"meta"`
}

type pagination struct {
	Total       int `json:"total"`
	Count       int `json:"count"`
	PerPage     int `json:"per_page"`
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
}

// User is a panel user.
type User struct {
	ID       uint32 `json:"id"`
	UUID     string `json:"uuid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Admin    bool   `json:"root_admin"`
}

// Node is a panel node.
type Node struct {
	ID          uint32 `json:"id"`
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	FQDN        string `json:"fqdn"`
	Maintenance bool   `json:"maintenance_mode"`
}

// allocation is an entry of /nodes/{id}/allocations.
type allocation struct {
	ID       uint32 `json:"id"`
	IP       string `json:"ip"`
	Alias    string `json:"alias,omitempty"`
	Port     uint16 `json:"port"`
	Assigned bool   `json:"assigned"`
}

func (a allocation) canonical() driver.Allocation {
	return driver.Allocation{ID: a.ID, IP: a.IP, Port: a.Port, Assigned: a.Assigned}
}

// serverAllocation is the allocation shape embedded in server relationships;
// it knows which allocation is the default one but not whether it is assigned.
type serverAllocation struct {
	ID        uint32 `json:"id"`
	IP        string `json:"ip"`
	Port      uint16 `json:"port"`
	IsDefault bool   `json:"is_default"`
}

func (a serverAllocation) address() driver.Address {
	return driver.Address{IP: a.IP, Port: a.Port}
}

type serverLimits struct {
	Memory uint32 `json:"memory"`
	Swap   uint32 `json:"swap"`
	Disk   uint32 `json:"disk"`
	IO     uint32 `json:"io"`
	CPU    uint32 `json:"cpu"`
}

func limitsFromResources(r driver.Resources) serverLimits {
	return serverLimits{Memory: r.Memory, Swap: r.Swap, Disk: r.Disk, IO: r.IO, CPU: r.CPU}
}

func (l serverLimits) resources() driver.Resources {
	return driver.Resources{Memory: l.Memory, Swap: l.Swap, Disk: l.Disk, IO: l.IO, CPU: l.CPU}
}

// FeatureLimits caps the databases, extra allocations and backups a server
// may create on its own.
type FeatureLimits struct {
	Databases   uint32 `json:"databases"`
	Allocations uint32 `json:"allocations"`
	Backups     uint32 `json:"backups"`
}

func (f FeatureLimits) features() driver.Features {
	return driver.Features{Databases: f.Databases, Allocations: f.Allocations, Backups: f.Backups}
}

// environment is an ordered JSON object of string values.
type environment []driver.KeyValue

func (e environment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, kv := range e {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(kv.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON keeps the key order of the document. Non-string values are
// kept in their JSON text form; null becomes the empty string.
func (e *environment) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*e = nil
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("environment: expected object, got %v", tok)
	}
	var out environment
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("environment: unexpected key %v", keyTok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, driver.KeyValue{Key: key, Value: rawString(raw)})
	}
	*e = out
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}

type createAllocation struct {
	Default uint32 `json:"default"`
}

// createServer is the creation payload. It has no id and carries the
// default allocation, which the created record does not.
type createServer struct {
	Name          string           `json:"name"`
	User          uint32           `json:"user"`
	Egg           uint32           `json:"egg"`
	DockerImage   string           `json:"docker_image"`
	Startup       string           `json:"startup"`
	Environment   environment      `json:"environment"`
	Limits        serverLimits     `json:"limits"`
	FeatureLimits FeatureLimits    `json:"feature_limits"`
	Allocation    createAllocation `json:"allocation"`
}

type serverContainer struct {
	StartupCommand string      `json:"startup_command"`
	Image          string      `json:"image"`
	Environment    environment `json:"environment"`
}

// server is the record the panel returns for a server.
type server struct {
	ID            uint32          `json:"id"`
	UUID          string          `json:"uuid"`
	Identifier    string          `json:"identifier"`
	Name          string          `json:"name"`
	User          uint32          `json:"user"`
	Node          uint32          `json:"node"`
	Allocation    uint32          `json:"allocation"`
	Egg           uint32          `json:"egg"`
	Limits        serverLimits    `json:"limits"`
	FeatureLimits FeatureLimits   `json:"feature_limits"`
	Container     serverContainer `json:"container"`
	Relationships struct {
		Allocations *list[serverAllocation] `json:"allocations,omitempty"`
	} `json:"relationships"`
}

// canonical projects the panel record back to the driver's server shape.
// fallback is used when the record does not embed its allocations.
func (s server) canonical(fallback driver.Address) driver.Server {
	addr := fallback
	if rel := s.Relationships.Allocations; rel != nil {
		for _, a := range rel.Data {
			if a.Attributes.IsDefault || a.Attributes.ID == s.Allocation {
				addr = a.Attributes.address()
				break
			}
		}
	}
	return driver.Server{
		ID:           s.ID,
		Identifier:   s.Identifier,
		Name:         s.Name,
		Owner:        s.User,
		Template:     s.Egg,
		Image:        s.Container.Image,
		Startup:      s.Container.StartupCommand,
		Environment:  []driver.KeyValue(s.Container.Environment),
		Resources:    s.Limits.resources(),
		Features:     s.FeatureLimits.features(),
		AllocationID: s.Allocation,
		Address:      addr,
	}
}
