package pterodactyl

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/gantryhq/gantry/pkg/driver"
)

const (
	// SettingsFile is the name of the persisted settings document inside
	// the driver's configuration directory.
	SettingsFile = "pterodactyl.yaml"

	EnvURL   = "PTERODACTYL_URL"
	EnvToken = "PTERODACTYL_TOKEN"
	EnvUser  = "PTERODACTYL_USER"
)

// Settings is how the driver reaches the panel. All three values are
// required.
type Settings struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
	User  string `yaml:"user"`
}

// LookupEnv reads one environment variable. os.LookupEnv satisfies it.
type LookupEnv func(key string) (string, bool)

// LoadSettings builds the settings from defaults, the settings file in dir
// and the environment, in that order, and validates the result.
func LoadSettings(dir string, lookup LookupEnv, logger *slog.Logger) (Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	s := loadFileOrDefault(filepath.Join(dir, SettingsFile), logger)
	s = s.withEnv(lookup)
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// loadFileOrDefault never fails. A missing file is created with empty
// values so operators have something to fill in.
func loadFileOrDefault(path string, logger *slog.Logger) Settings {
	s, err := readSettings(path)
	switch {
	case err == nil:
		return s
	case errors.Is(err, fs.ErrNotExist):
		if err := writeSettings(path, Settings{}); err != nil {
			logger.Error("failed to save default pterodactyl settings",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return Settings{}
	default:
		logger.Warn("failed to read pterodactyl settings, using defaults",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return Settings{}
	}
}

// withEnv overrides every value whose variable is set, even to "".
func (s Settings) withEnv(lookup LookupEnv) Settings {
	if v, ok := lookup(EnvURL); ok {
		s.URL = v
	}
	if v, ok := lookup(EnvToken); ok {
		s.Token = v
	}
	if v, ok := lookup(EnvUser); ok {
		s.User = v
	}
	return s
}

// Validate reports every missing value at once.
func (s Settings) Validate() error {
	var missing []string
	if s.URL == "" {
		missing = append(missing, "url")
	}
	if s.Token == "" {
		missing = append(missing, "token")
	}
	if s.User == "" {
		missing = append(missing, "user")
	}
	if len(missing) > 0 {
		return &driver.ConfigError{Driver: Name, Missing: missing}
	}
	return nil
}

func readSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

func writeSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
