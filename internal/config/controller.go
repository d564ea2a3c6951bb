package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ControllerFile is the on-disk shape of the refctl config. Durations are
// Go duration strings.
type ControllerFile struct {
	Variant           string   `toml:"variant"`
	VariantFile       string   `toml:"variant_file"`
	SessionID         int64    `toml:"session_id"`
	KnockOut          bool     `toml:"knockout"`
	TeamNumbers       []int    `toml:"team_numbers"`
	BroadcastAddr     string   `toml:"broadcast_addr"`
	ListenAddr        string   `toml:"listen_addr"`
	Port              int      `toml:"port"`
	BroadcastInterval string   `toml:"broadcast_interval"`
	TickInterval      string   `toml:"tick_interval"`
	HTTPAddr          string   `toml:"http_addr"`
	CORSOrigins       []string `toml:"cors_origins"`
	OperatorToken     string   `toml:"operator_token"`
}

// ValidateControllerFile decodes path strictly and checks every value that
// is present. Unknown keys are errors.
func ValidateControllerFile(path string) (ControllerFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ControllerFile{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	var cf ControllerFile
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cf); err != nil {
		return ControllerFile{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}

	if strings.TrimSpace(cf.Variant) != "" || strings.TrimSpace(cf.VariantFile) != "" {
		if _, err := ResolveVariant(cf.Variant, cf.VariantFile); err != nil {
			return ControllerFile{}, err
		}
	}
	if cf.SessionID < 0 || cf.SessionID > int64(^uint32(0)) {
		return ControllerFile{}, fmt.Errorf("session_id out of range: %d", cf.SessionID)
	}
	if cf.TeamNumbers != nil {
		if len(cf.TeamNumbers) != 2 {
			return ControllerFile{}, fmt.Errorf("team_numbers needs exactly two entries: %v", cf.TeamNumbers)
		}
		for i, n := range cf.TeamNumbers {
			if n < 0 || n > 255 {
				return ControllerFile{}, fmt.Errorf("team_numbers[%d] out of range: %d", i, n)
			}
		}
		if cf.TeamNumbers[0] == cf.TeamNumbers[1] {
			return ControllerFile{}, fmt.Errorf("team_numbers must differ: %v", cf.TeamNumbers)
		}
	}
	if cf.Port != 0 {
		if err := ValidatePort(cf.Port); err != nil {
			return ControllerFile{}, err
		}
	}
	for key, raw := range map[string]string{
		"broadcast_interval": cf.BroadcastInterval,
		"tick_interval":      cf.TickInterval,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return ControllerFile{}, fmt.Errorf("parse %s: %w", key, err)
		}
		if d <= 0 {
			return ControllerFile{}, fmt.Errorf("%s must be positive: %s", key, raw)
		}
	}
	return cf, nil
}
