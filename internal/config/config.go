package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/variant"
	"github.com/pelletier/go-toml/v2"
)

// WatchConfig configures the gcwatch listener.
type WatchConfig struct {
	Variant          string `toml:"variant"`
	VariantFile      string `toml:"variant_file"`
	ListenAddr       string `toml:"listen_addr"`
	Port             int    `toml:"port"`
	VersionWarnAfter int    `toml:"version_warn_after"`
	LogChangesOnly   bool   `toml:"log_changes_only"`
}

func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Variant:          "spl",
		ListenAddr:       "0.0.0.0",
		Port:             protocol.DefaultPort,
		VersionWarnAfter: 10,
		LogChangesOnly:   true,
	}
}

func LoadWatchConfig(path string) (WatchConfig, error) {
	cfg := DefaultWatchConfig()
	if err := loadToml(path, &cfg); err != nil {
		return WatchConfig{}, err
	}
	if err := ValidateWatchConfig(cfg); err != nil {
		return WatchConfig{}, err
	}
	return cfg, nil
}

func ValidateWatchConfig(cfg WatchConfig) error {
	if strings.TrimSpace(cfg.Variant) == "" && strings.TrimSpace(cfg.VariantFile) == "" {
		return fmt.Errorf("watch config missing variant or variant_file")
	}
	if err := ValidatePort(cfg.Port); err != nil {
		return err
	}
	if cfg.VersionWarnAfter < 1 {
		return fmt.Errorf("watch config version_warn_after must be positive: %d", cfg.VersionWarnAfter)
	}
	return nil
}

func ValidatePort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port out of range: %d", port)
	}
	return nil
}

// LoadVariant reads a variant descriptor from a TOML file.
func LoadVariant(path string) (variant.Variant, error) {
	var v variant.Variant
	if err := loadToml(path, &v); err != nil {
		return variant.Variant{}, err
	}
	if err := v.Validate(); err != nil {
		return variant.Variant{}, fmt.Errorf("variant file %s: %w", path, err)
	}
	return v, nil
}

// ResolveVariant prefers an explicit file over a built-in name.
func ResolveVariant(name, file string) (variant.Variant, error) {
	if strings.TrimSpace(file) != "" {
		return LoadVariant(file)
	}
	return variant.Lookup(name)
}

// MarshalVariant renders v in the format LoadVariant reads.
func MarshalVariant(v variant.Variant) ([]byte, error) {
	return toml.Marshal(v)
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}
