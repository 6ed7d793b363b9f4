package pterodactyl

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/gantryhq/gantry/pkg/driver"
)

func envFrom(vars map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestLoadSettings_NothingConfigured(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadSettings(dir, envFrom(nil), nil)
	if err == nil {
		t.Fatal("expected an error")
	}

	var cfgErr *driver.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *driver.ConfigError, got %T: %v", err, err)
	}
	want := []string{"url", "token", "user"}
	if !reflect.DeepEqual(cfgErr.Missing, want) {
		t.Errorf("Missing = %v, want %v", cfgErr.Missing, want)
	}

	if _, err := os.Stat(filepath.Join(dir, SettingsFile)); err != nil {
		t.Errorf("expected an empty settings file to be persisted: %v", err)
	}
}

func TestLoadSettings_Layers(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		env         map[string]string
		want        Settings
		wantMissing []string
	}{
		{
			name: "file only",
			file: "url: https://panel.example\ntoken: t1\nuser: admin\n",
			want: Settings{URL: "https://panel.example", Token: "t1", User: "admin"},
		},
		{
			name: "env overrides file",
			file: "url: https://panel.example\ntoken: t1\nuser: admin\n",
			env:  map[string]string{EnvToken: "t2", EnvUser: "ops"},
			want: Settings{URL: "https://panel.example", Token: "t2", User: "ops"},
		},
		{
			name: "env only",
			env:  map[string]string{EnvURL: "http://x", EnvToken: "t", EnvUser: "u"},
			want: Settings{URL: "http://x", Token: "t", User: "u"},
		},
		{
			name:        "empty env value clears file value",
			file:        "url: https://panel.example\ntoken: t1\nuser: admin\n",
			env:         map[string]string{EnvToken: ""},
			wantMissing: []string{"token"},
		},
		{
			name:        "unparsable file falls back to defaults",
			file:        "url: [unterminated\n",
			env:         map[string]string{EnvUser: "u"},
			wantMissing: []string{"url", "token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if tt.file != "" {
				if err := os.WriteFile(filepath.Join(dir, SettingsFile), []byte(tt.file), 0o600); err != nil {
					t.Fatal(err)
				}
			}

			got, err := LoadSettings(dir, envFrom(tt.env), nil)
			if tt.wantMissing != nil {
				var cfgErr *driver.ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("expected *driver.ConfigError, got %v", err)
				}
				if !reflect.DeepEqual(cfgErr.Missing, tt.wantMissing) {
					t.Errorf("Missing = %v, want %v", cfgErr.Missing, tt.wantMissing)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadSettings() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("LoadSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
