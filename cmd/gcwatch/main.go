package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/refctl/internal/config"
	"github.com/danmuck/refctl/internal/listener"
	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/transport"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "cmd/gcwatch/config.toml", "watch config file (optional)")
	envFile := flag.String("env", ".env", "dotenv file loaded before logging is configured")
	team := flag.Int("team", 0, "team number to report alive as (0 disables heartbeats)")
	player := flag.Int("player", 1, "1-based player number for heartbeats")
	controller := flag.String("controller", "255.255.255.255", "heartbeat destination host")
	every := flag.Duration("alive-every", time.Second, "heartbeat interval")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "gcwatch: load %s: %v\n", *envFile, err)
	}
	logger := observability.InitLogger("gcwatch")

	cfg := config.DefaultWatchConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := config.LoadWatchConfig(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("gcwatch config invalid")
		}
		cfg = loaded
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hb := heartbeat{Team: *team, Player: *player, Host: *controller, Every: *every}
	if err := run(ctx, cfg, hb, logger); err != nil {
		log.Error().Err(err).Msg("gcwatch exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.WatchConfig, hb heartbeat, logger zerolog.Logger) error {
	v, err := config.ResolveVariant(cfg.Variant, cfg.VariantFile)
	if err != nil {
		return err
	}
	rx, err := transport.ListenUDP(cfg.ListenAddr, cfg.Port)
	if err != nil {
		return err
	}
	defer rx.Close()

	if hb.enabled() {
		tx, err := transport.NewUDPBroadcaster(hb.Host, cfg.Port)
		if err != nil {
			return err
		}
		defer tx.Close()
		go hb.run(ctx, tx, logger)
	}

	f := listener.NewFollower(v.Codec(),
		listener.WithLogger(logger),
		listener.WithVersionMismatchThreshold(cfg.VersionWarnAfter),
	)
	logger.Info().
		Str("variant", v.Name).
		Stringer("listen", rx.LocalAddr()).
		Msg("gcwatch listening")

	r := reporter{logger: logger, changesOnly: cfg.LogChangesOnly}
	return f.Run(ctx, rx, r.report)
}

type reporter struct {
	logger      zerolog.Logger
	changesOnly bool
}

func (r reporter) report(up listener.Update) {
	if up.NewSession {
		r.logger.Info().Uint32("session", up.State.SessionID).Msg("gcwatch new session")
	}
	if up.Lost > 0 {
		r.logger.Warn().Int("lost", up.Lost).Uint8("packet", up.State.PacketNumber).Msg("gcwatch packets lost")
	}
	if r.changesOnly && !up.Changed && !up.NewSession {
		return
	}
	r.logger.Info().Str("state", summarize(up.State)).Msg("gcwatch state")
}

func summarize(gs protocol.GameState) string {
	half := "second"
	if gs.FirstHalf {
		half = "first"
	}
	return fmt.Sprintf("%s/%s %s half, %d:%d (%d-%d), %ds left, kickoff %s",
		gs.Period, gs.Phase, half,
		gs.Teams[0].TeamNumber, gs.Teams[1].TeamNumber,
		gs.Teams[0].Score, gs.Teams[1].Score,
		gs.SecsRemaining, gs.KickOffTeam)
}

type heartbeat struct {
	Team   int
	Player int
	Host   string
	Every  time.Duration
}

func (h heartbeat) enabled() bool {
	return h.Team > 0 && h.Team <= 255 && h.Player > 0 && h.Player <= 255 && h.Every > 0
}

func (h heartbeat) run(ctx context.Context, tx transport.Sender, logger zerolog.Logger) {
	payload, err := protocol.MarshalReturnData(protocol.ReturnData{
		Team:    uint8(h.Team),
		Player:  uint8(h.Player),
		Message: protocol.ReturnAlive,
	})
	if err != nil {
		logger.Error().Err(err).Msg("gcwatch heartbeat encode failed")
		return
	}
	ticker := time.NewTicker(h.Every)
	defer ticker.Stop()
	for {
		if err := tx.Send(ctx, payload); err != nil && ctx.Err() == nil {
			logger.Warn().Err(err).Msg("gcwatch heartbeat send failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
