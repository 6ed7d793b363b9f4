package driver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type nopDriver struct{}

func (nopDriver) Init(ctx context.Context) error { return nil }
func (nopDriver) FreeAllocations(ctx context.Context, used []Address, count int) []Allocation {
	return nil
}
func (nopDriver) CreateServer(ctx context.Context, req ServerRequest, alloc Allocation) (*Server, error) {
	return nil, ErrNoResult
}

func TestRegister(t *testing.T) {
	newNop := func(NodeConfig, *slog.Logger) (Driver, error) { return nopDriver{}, nil }

	if err := Register(Factory{Name: "test-nop", APIVersion: APIVersion, New: newNop}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(Factory{Name: "test-nop", APIVersion: APIVersion, New: newNop}); err == nil {
		t.Error("expected duplicate registration to fail")
	}

	err := Register(Factory{Name: "test-old", APIVersion: APIVersion + 1, New: newNop})
	if !errors.Is(err, ErrIncompatibleDriver) {
		t.Errorf("expected ErrIncompatibleDriver, got %v", err)
	}

	d, err := Open("test-nop", NodeConfig{Node: "n1"}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d == nil {
		t.Fatal("Open() returned nil driver")
	}

	if _, err := Open("does-not-exist", NodeConfig{}, nil); !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}

	found := false
	for _, name := range Drivers() {
		if name == "test-nop" {
			found = true
		}
		if name == "test-old" {
			t.Error("incompatible driver must not be listed")
		}
	}
	if !found {
		t.Error("registered driver missing from Drivers()")
	}
}

func TestNodeConfig_Options(t *testing.T) {
	cfg := NodeConfig{Options: map[string]any{
		"name":  "panel-1",
		"egg":   5,
		"float": float64(7),
		"text":  "12",
		"bad":   "x",
		"neg":   -1,
		"max":   4294967295,
		"wrap":  4294967301,
		"big64": int64(1) << 40,
		"frac":  2.5,
		"huge":  float64(1 << 33),
	}}

	if got := cfg.String("name", ""); got != "panel-1" {
		t.Errorf("String(name) = %q", got)
	}
	if got := cfg.String("missing", "def"); got != "def" {
		t.Errorf("String(missing) = %q, want def", got)
	}

	tests := []struct {
		key     string
		want    uint32
		wantErr bool
	}{
		{key: "egg", want: 5},
		{key: "float", want: 7},
		{key: "text", want: 12},
		{key: "missing", want: 9},
		{key: "bad", wantErr: true},
		{key: "neg", wantErr: true},
		{key: "max", want: 4294967295},
		{key: "wrap", wantErr: true},
		{key: "big64", wantErr: true},
		{key: "frac", wantErr: true},
		{key: "huge", wantErr: true},
	}
	for _, tt := range tests {
		got, err := cfg.Uint(tt.key, 9)
		if (err != nil) != tt.wantErr {
			t.Errorf("Uint(%s) error = %v, wantErr %v", tt.key, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("Uint(%s) = %d, want %d", tt.key, got, tt.want)
		}
	}
}

func TestConfigError(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Driver: "pterodactyl", Missing: []string{"url", "token"}, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("ConfigError should unwrap to its cause")
	}
	msg := err.Error()
	if !strings.Contains(msg, "url, token") {
		t.Errorf("message %q does not list missing values", msg)
	}
}

func TestAllocation_Address(t *testing.T) {
	a := Allocation{ID: 3, IP: "10.0.0.1", Port: 25565, Assigned: true}
	addr := a.Address()
	if addr.IP != "10.0.0.1" || addr.Port != 25565 {
		t.Errorf("Address() = %+v", addr)
	}
	if addr.String() != "10.0.0.1:25565" {
		t.Errorf("String() = %s", addr.String())
	}
}
