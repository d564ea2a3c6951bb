// Package controller runs one refereed session: it owns the game model on a
// single goroutine, broadcasts snapshots, and serves the operator API.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/refctl/internal/game"
	"github.com/danmuck/refctl/internal/monitor"
	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/penalty"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/returns"
	"github.com/danmuck/refctl/internal/transport"
	"github.com/danmuck/refctl/internal/variant"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrInvalidInterval = errors.New("controller: invalid interval")
	ErrStopped         = errors.New("controller: not running")
)

type Config struct {
	Node              string
	Variant           variant.Variant
	Setup             game.Setup
	BroadcastInterval time.Duration
	TickInterval      time.Duration
	HTTPAddr          string
	CORSOrigins       []string
	// OperatorToken, when set, is required as a bearer token on every
	// route that changes the match.
	OperatorToken     string
}

func DefaultConfig() Config {
	return Config{
		Node:              "refctl",
		Variant:           variant.SPL(),
		Setup:             game.Setup{TeamNumbers: [2]uint8{1, 2}},
		BroadcastInterval: 500 * time.Millisecond,
		TickInterval:      time.Second,
		HTTPAddr:          "127.0.0.1:8080",
	}
}

func (c Config) Validate() error {
	if c.BroadcastInterval <= 0 {
		return fmt.Errorf("%w: broadcast_interval=%s", ErrInvalidInterval, c.BroadcastInterval)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("%w: tick_interval=%s", ErrInvalidInterval, c.TickInterval)
	}
	if err := c.Variant.Validate(); err != nil {
		return err
	}
	if c.Setup.TeamNumbers[0] == c.Setup.TeamNumbers[1] {
		return fmt.Errorf("controller: team numbers must differ: %v", c.Setup.TeamNumbers)
	}
	return nil
}

// command runs on the loop goroutine with exclusive access to the model.
type command struct {
	name  string
	label string
	apply func(m *game.Model) error
	reply chan error
}

type Controller struct {
	cfg      Config
	model    *game.Model
	tracker  *penalty.Tracker
	returns  *returns.Channel
	encoder  *protocol.Encoder
	sender   transport.Sender
	receiver transport.Receiver
	hub      *monitor.Hub
	commands chan command
	logger   zerolog.Logger
	started  time.Time

	mu        sync.RWMutex
	published protocol.GameState
	running   bool

	router *gin.Engine
}

// New wires a controller. receiver may be nil when return traffic is not
// wanted.
func New(cfg Config, sender transport.Sender, receiver transport.Receiver) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Node) == "" {
		cfg.Node = "refctl"
	}
	model := game.NewModel(cfg.Variant, cfg.Setup)
	c := &Controller{
		cfg:      cfg,
		model:    model,
		tracker:  penalty.NewTracker(),
		returns:  returns.NewChannel(cfg.Setup.TeamNumbers, cfg.Variant.PlayersPerTeam),
		encoder:  protocol.NewEncoder(cfg.Variant.Codec(), 0),
		sender:   sender,
		receiver: receiver,
		hub:      monitor.NewHub(context.Background()),
		commands: make(chan command, 32),
		logger:   log.Logger.With().Str("node", cfg.Node).Logger(),
		started:  time.Now(),
	}
	c.published = model.Snapshot()
	c.router = c.buildRouter()
	return c, nil
}

// Snapshot returns the most recently published state.
func (c *Controller) Snapshot() protocol.GameState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.published
}

// Running reports whether the loop is accepting commands.
func (c *Controller) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

func (c *Controller) Variant() variant.Variant {
	return c.cfg.Variant
}

func (c *Controller) Returns() *returns.Channel {
	return c.returns
}

func (c *Controller) Hub() *monitor.Hub {
	return c.hub
}

// Apply submits a directive and waits for the loop's verdict.
func (c *Controller) Apply(ctx context.Context, d game.Directive) error {
	return c.submitLabeled(ctx, d.String(), string(d.Kind), func(m *game.Model) error {
		if err := m.Apply(d); err != nil {
			return err
		}
		if d.Kind == game.DirectivePenaltyShootout {
			c.returns.Clear()
			observability.SetPendingRequests(0)
		}
		return nil
	})
}

func (c *Controller) SetKickoff(ctx context.Context, color protocol.TeamColor) error {
	return c.submit(ctx, "kickoff", func(m *game.Model) error {
		return m.SetKickoff(color)
	})
}

func (c *Controller) Penalize(ctx context.Context, side, player int, kind protocol.PenaltyKind) error {
	return c.submit(ctx, "penalize", func(m *game.Model) error {
		return c.tracker.Penalize(m, side, player, kind)
	})
}

func (c *Controller) Unpenalize(ctx context.Context, side, player int) error {
	return c.submit(ctx, "unpenalize", func(m *game.Model) error {
		return c.tracker.Unpenalize(m, side, player)
	})
}

func (c *Controller) PenalizeCoach(ctx context.Context, side int, kind protocol.PenaltyKind) error {
	return c.submit(ctx, "penalize_coach", func(m *game.Model) error {
		return c.tracker.PenalizeCoach(m, side, kind)
	})
}

func (c *Controller) UnpenalizeCoach(ctx context.Context, side int) error {
	return c.submit(ctx, "unpenalize_coach", func(m *game.Model) error {
		return c.tracker.UnpenalizeCoach(m, side)
	})
}

// ApproveRequest accepts a participant's advisory request. A penalize
// request becomes a manual penalty only for an unpenalized player, and an
// unpenalize request releases only a penalized one; otherwise the request is
// settled without touching the model and applied reports false. The request
// stays queued when applying it fails.
func (c *Controller) ApproveRequest(ctx context.Context, id string) (req returns.Request, applied bool, err error) {
	err = c.submit(ctx, "approve", func(m *game.Model) error {
		pending, err := c.returns.Lookup(id)
		if err != nil {
			return err
		}
		team, err := m.Team(pending.Side)
		if err != nil {
			return err
		}
		if pending.Player < 1 || pending.Player > int(m.State.PlayersPerTeam) {
			return fmt.Errorf("%w: player %d", penalty.ErrIndexOutOfRange, pending.Player)
		}
		penalized := team.Players[pending.Player-1].Penalized()

		switch {
		case pending.Message == protocol.ReturnPenalize && !penalized:
			if err := c.tracker.Penalize(m, pending.Side, pending.Player, protocol.PenaltyManual); err != nil {
				return err
			}
			applied = true
		case pending.Message == protocol.ReturnUnpenalize && penalized:
			if err := c.tracker.Unpenalize(m, pending.Side, pending.Player); err != nil {
				return err
			}
			applied = true
		}

		req, err = c.returns.Approve(id)
		if err != nil {
			return err
		}
		observability.SetPendingRequests(len(c.returns.Pending()))
		c.logger.Info().
			Str("request", id).
			Stringer("message", req.Message).
			Bool("applied", applied).
			Msg("controller.Controller.ApproveRequest")
		return nil
	})
	return req, applied, err
}

// RejectRequest drops a pending request. It runs on the loop so it never
// races an approval of the same request.
func (c *Controller) RejectRequest(ctx context.Context, id string) error {
	return c.submit(ctx, "reject", func(*game.Model) error {
		if err := c.returns.Reject(id); err != nil {
			return err
		}
		observability.SetPendingRequests(len(c.returns.Pending()))
		c.logger.Info().Str("request", id).Msg("controller.Controller.RejectRequest")
		return nil
	})
}

func (c *Controller) submit(ctx context.Context, name string, apply func(m *game.Model) error) error {
	return c.submitLabeled(ctx, name, name, apply)
}

func (c *Controller) submitLabeled(ctx context.Context, name, label string, apply func(m *game.Model) error) error {
	if !c.Running() {
		return ErrStopped
	}
	cmd := command{name: name, label: label, apply: apply, reply: make(chan error, 1)}
	select {
	case c.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
