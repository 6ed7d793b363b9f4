// Package config loads the controller configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gantryhq/gantry/pkg/auth"
	"github.com/gantryhq/gantry/pkg/driver"
	"github.com/gantryhq/gantry/pkg/notify"
	"github.com/gantryhq/gantry/pkg/retry"
)

// DefaultListener is where the controller listens unless told otherwise.
const DefaultListener = ":51067"

// Environment overrides, read once at load.
const (
	EnvListener  = "GANTRY_LISTENER"
	EnvStorePath = "GANTRY_STORE_PATH"
	EnvNATSURL   = "GANTRY_NATS_URL"
)

// Config is the controller configuration file.
type Config struct {
	Listener     string             `yaml:"listener"`
	LogLevel     string             `yaml:"log_level,omitempty"`
	Auth         AuthConfig         `yaml:"auth"`
	Store        StoreConfig        `yaml:"store"`
	Events       EventsConfig       `yaml:"events"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Nodes        []NodeConfig       `yaml:"nodes"`
}

// AuthConfig lists who may talk to the controller.
type AuthConfig struct {
	Users []UserConfig `yaml:"users"`
}

// UserConfig is one operator and their bearer token.
type UserConfig struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// StoreConfig selects the store backend.
type StoreConfig struct {
	Type string `yaml:"type"`
	Path string `yaml:"path,omitempty"`
}

// EventsConfig selects where provisioning events go.
type EventsConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url,omitempty"`
	Subject string            `yaml:"subject,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
}

// Notify converts the section to a notifier configuration.
func (e EventsConfig) Notify() notify.Config {
	return notify.Config{
		Type:    e.Type,
		URL:     e.URL,
		Subject: e.Subject,
		Headers: e.Headers,
		Timeout: time.Duration(e.Timeout),
	}
}

// ProvisioningConfig bounds how hard the controller tries to create a
// server before giving up.
type ProvisioningConfig struct {
	MaxAttempts  int      `yaml:"max_attempts"`
	InitialDelay Duration `yaml:"initial_delay"`
	MaxDelay     Duration `yaml:"max_delay"`
}

// NodeConfig is one node the controller brings online at startup.
type NodeConfig struct {
	Name    string         `yaml:"name"`
	Driver  string         `yaml:"driver"`
	Options map[string]any `yaml:"options,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	c := &Config{}
	c.Defaults()
	return c
}

// Load reads, overrides from the environment, defaults and validates the
// file at path. An empty path yields Default with environment overrides.
func Load(path string) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return Parse(data, os.LookupEnv)
}

// Parse is Load for configuration already in memory.
func Parse(data []byte, lookup func(string) (string, bool)) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyEnv(lookup)
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// ApplyEnv overrides values from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvListener); ok && v != "" {
		c.Listener = v
	}
	if v, ok := lookup(EnvStorePath); ok && v != "" {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvNATSURL); ok && v != "" {
		c.Events.URL = v
	}
}

// Defaults fills in every unset value.
func (c *Config) Defaults() {
	if c.Listener == "" {
		c.Listener = DefaultListener
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Store.Type == "" {
		c.Store.Type = "memory"
	}
	if c.Store.Type == "badger" && c.Store.Path == "" {
		c.Store.Path = "data/gantry"
	}
	if c.Events.Type == "" {
		c.Events.Type = "log"
	}
	if c.Events.Subject == "" {
		c.Events.Subject = "gantry.events"
	}

	p := &c.Provisioning
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = Duration(time.Second)
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = Duration(10 * time.Second)
	}
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Type {
	case "memory", "badger":
	default:
		errs = append(errs, fmt.Errorf("store: unknown type %q", c.Store.Type))
	}
	switch c.Events.Type {
	case "log", "nats":
	case "webhook":
		if c.Events.URL == "" {
			errs = append(errs, errors.New("events: webhook needs a url"))
		}
	default:
		errs = append(errs, fmt.Errorf("events: unknown type %q", c.Events.Type))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level: unknown level %q", c.LogLevel))
	}

	users := make(map[string]bool)
	tokens := make(map[string]bool)
	for i, u := range c.Auth.Users {
		switch {
		case u.Name == "":
			errs = append(errs, fmt.Errorf("auth.users[%d]: name is required", i))
		case users[u.Name]:
			errs = append(errs, fmt.Errorf("auth.users[%d]: duplicate user %q", i, u.Name))
		}
		switch {
		case u.Token == "":
			errs = append(errs, fmt.Errorf("auth.users[%d]: token is required", i))
		case tokens[u.Token]:
			errs = append(errs, fmt.Errorf("auth.users[%d]: token shared with another user", i))
		}
		users[u.Name] = true
		tokens[u.Token] = true
	}

	p := c.Provisioning
	if p.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("provisioning: max_attempts must be >= 1"))
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("provisioning: delays must not be negative"))
	}
	if p.MaxDelay < p.InitialDelay {
		errs = append(errs, fmt.Errorf("provisioning: max_delay must not be shorter than initial_delay"))
	}

	nodes := make(map[string]bool)
	for i, n := range c.Nodes {
		if n.Name == "" {
			errs = append(errs, fmt.Errorf("nodes[%d]: name is required", i))
		} else if nodes[n.Name] {
			errs = append(errs, fmt.Errorf("nodes[%d]: duplicate node %q", i, n.Name))
		}
		if n.Driver == "" {
			errs = append(errs, fmt.Errorf("node %q: driver is required", n.Name))
		}
		nodes[n.Name] = true
	}

	return errors.Join(errs...)
}

// Tokens maps every configured token to its operator.
func (a AuthConfig) Tokens() map[string]auth.Authorization {
	out := make(map[string]auth.Authorization, len(a.Users))
	for _, u := range a.Users {
		out[u.Token] = auth.NewAdminUser(u.Name)
	}
	return out
}

// Policy converts the provisioning settings into a retry policy.
func (p ProvisioningConfig) Policy() retry.Policy {
	policy := retry.DefaultPolicy()
	policy.MaxAttempts = p.MaxAttempts
	policy.InitialDelay = time.Duration(p.InitialDelay)
	policy.MaxDelay = time.Duration(p.MaxDelay)
	return policy
}

// DriverConfig is what the node's driver is opened with.
func (n NodeConfig) DriverConfig() driver.NodeConfig {
	return driver.NodeConfig{Node: n.Name, Options: n.Options}
}
