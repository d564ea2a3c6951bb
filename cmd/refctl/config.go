package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/refctl/internal/config"
	"github.com/danmuck/refctl/internal/controller"
	"github.com/danmuck/refctl/internal/protocol"
)

type runtimeConfig struct {
	Controller    controller.Config
	BroadcastAddr string
	ListenAddr    string
	Port          int
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		Controller:    controller.DefaultConfig(),
		BroadcastAddr: "255.255.255.255",
		ListenAddr:    "0.0.0.0",
		Port:          protocol.DefaultPort,
	}
}

func loadRuntimeConfig(path string) (runtimeConfig, error) {
	cfg := defaultRuntimeConfig()

	var raw config.ControllerFile
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return runtimeConfig{}, fmt.Errorf("load refctl config: %w", err)
	}

	if meta.IsDefined("variant") || meta.IsDefined("variant_file") {
		name := strings.TrimSpace(raw.Variant)
		if name == "" {
			name = cfg.Controller.Variant.Name
		}
		v, err := config.ResolveVariant(name, strings.TrimSpace(raw.VariantFile))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("resolve variant: %w", err)
		}
		cfg.Controller.Variant = v
	}

	if meta.IsDefined("session_id") {
		if raw.SessionID < 0 || raw.SessionID > int64(^uint32(0)) {
			return runtimeConfig{}, fmt.Errorf("session_id out of range: %d", raw.SessionID)
		}
		cfg.Controller.Setup.SessionID = uint32(raw.SessionID)
	}

	if meta.IsDefined("knockout") {
		cfg.Controller.Setup.KnockOut = raw.KnockOut
	}

	if meta.IsDefined("team_numbers") {
		if len(raw.TeamNumbers) != 2 {
			return runtimeConfig{}, fmt.Errorf("team_numbers needs exactly two entries: %v", raw.TeamNumbers)
		}
		for i, n := range raw.TeamNumbers {
			if n < 0 || n > 255 {
				return runtimeConfig{}, fmt.Errorf("team_numbers[%d] out of range: %d", i, n)
			}
			cfg.Controller.Setup.TeamNumbers[i] = uint8(n)
		}
	}

	if meta.IsDefined("broadcast_addr") {
		cfg.BroadcastAddr = strings.TrimSpace(raw.BroadcastAddr)
	}

	if meta.IsDefined("listen_addr") {
		cfg.ListenAddr = strings.TrimSpace(raw.ListenAddr)
	}

	if meta.IsDefined("port") {
		if err := config.ValidatePort(raw.Port); err != nil {
			return runtimeConfig{}, err
		}
		cfg.Port = raw.Port
	}

	if meta.IsDefined("broadcast_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.BroadcastInterval))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse broadcast_interval: %w", err)
		}
		cfg.Controller.BroadcastInterval = d
	}

	if meta.IsDefined("tick_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.TickInterval))
		if err != nil {
			return runtimeConfig{}, fmt.Errorf("parse tick_interval: %w", err)
		}
		cfg.Controller.TickInterval = d
	}

	if meta.IsDefined("http_addr") {
		cfg.Controller.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}

	if meta.IsDefined("cors_origins") {
		cfg.Controller.CORSOrigins = normalizeOrigins(raw.CORSOrigins)
	}

	if meta.IsDefined("operator_token") {
		cfg.Controller.OperatorToken = strings.TrimSpace(raw.OperatorToken)
	}

	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
