package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/danmuck/refctl/internal/controller"
	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/transport"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/refctl/config.toml", "controller config file (optional)")
	envFile := flag.String("env", ".env", "dotenv file loaded before logging is configured")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "refctl: load %s: %v\n", *envFile, err)
	}
	observability.InitLogger("refctl")

	if err := run(*configPath); err != nil {
		log.Error().Err(err).Msg("refctl exited")
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg := defaultRuntimeConfig()
	if _, err := os.Stat(configPath); err == nil {
		loaded, err := loadRuntimeConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		log.Info().Str("path", configPath).Msg("refctl config not found; using defaults")
	}
	if token := strings.TrimSpace(os.Getenv("REFCTL_OPERATOR_TOKEN")); token != "" {
		cfg.Controller.OperatorToken = token
	}
	if cfg.Controller.Setup.SessionID == 0 {
		cfg.Controller.Setup.SessionID = uint32(time.Now().Unix())
	}

	sender, err := transport.NewUDPBroadcaster(cfg.BroadcastAddr, cfg.Port)
	if err != nil {
		return err
	}
	defer sender.Close()
	receiver, err := transport.ListenUDP(cfg.ListenAddr, cfg.Port)
	if err != nil {
		return err
	}
	defer receiver.Close()

	ctrl, err := controller.New(cfg.Controller, sender, receiver)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("broadcast", sender.Destination()).
		Stringer("listen", receiver.LocalAddr()).
		Str("http", cfg.Controller.HTTPAddr).
		Bool("operator_auth", cfg.Controller.OperatorToken != "").
		Msg("refctl starting")

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- ctrl.Serve(ctx)
	}()
	runErr := make(chan error, 1)
	go func() {
		runErr <- ctrl.Run(ctx)
	}()

	select {
	case err := <-serveErr:
		stop()
		<-runErr
		return err
	case err := <-runErr:
		stop()
		<-serveErr
		return err
	}
}
