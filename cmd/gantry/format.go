package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gantryhq/gantry/pkg/driver"
)

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseEnv turns KEY=VALUE arguments into an ordered environment. The value
// may itself contain '='.
func parseEnv(args []string) ([]driver.KeyValue, error) {
	var out []driver.KeyValue
	seen := make(map[string]bool)
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid environment variable %q, want KEY=VALUE", arg)
		}
		if seen[key] {
			return nil, fmt.Errorf("environment variable %s given twice", key)
		}
		seen[key] = true
		out = append(out, driver.KeyValue{Key: key, Value: value})
	}
	return out, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return formatAge(time.Since(t))
}

func formatAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
