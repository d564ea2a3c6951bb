package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/refctl/internal/variant"
)

// Template returns the starter file for kind: refctl, gcwatch, or
// variant[:name] for a copy of a built-in variant.
func Template(kind string) (string, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch {
	case kind == "refctl":
		return refctlTemplate, nil
	case kind == "gcwatch":
		return gcwatchTemplate, nil
	case kind == "variant" || strings.HasPrefix(kind, "variant:"):
		name := strings.TrimPrefix(strings.TrimPrefix(kind, "variant"), ":")
		if name == "" {
			name = "spl"
		}
		v, err := variant.Lookup(name)
		if err != nil {
			return "", err
		}
		data, err := MarshalVariant(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const refctlTemplate = `variant = "spl"
# variant_file = "cmd/refctl/variant.toml"
session_id = 0
knockout = false
team_numbers = [1, 2]
broadcast_addr = "255.255.255.255"
listen_addr = "0.0.0.0"
port = 3838
broadcast_interval = "500ms"
tick_interval = "1s"
http_addr = "127.0.0.1:8080"
cors_origins = ["http://localhost:3000"]
# REFCTL_OPERATOR_TOKEN in the environment overrides this.
# operator_token = ""
`

const gcwatchTemplate = `variant = "spl"
# variant_file = "cmd/refctl/variant.toml"
listen_addr = "0.0.0.0"
port = 3838
version_warn_after = 10
log_changes_only = true
`
