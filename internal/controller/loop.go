package controller

import (
	"context"
	"errors"
	"time"

	"github.com/danmuck/refctl/internal/observability"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/returns"
	"github.com/danmuck/refctl/internal/transport"
)

// Run owns the model until ctx ends. It is the only goroutine that mutates
// game state.
func (c *Controller) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		c.hub.Close()
	}()

	if c.receiver != nil {
		go c.receiveLoop(ctx)
	}

	broadcast := time.NewTicker(c.cfg.BroadcastInterval)
	defer broadcast.Stop()
	clock := time.NewTicker(c.cfg.TickInterval)
	defer clock.Stop()

	s := c.model.Snapshot()
	c.logger.Info().
		Str("variant", c.cfg.Variant.Name).
		Uint32("session_id", s.SessionID).
		Uint8("team_blue", s.Teams[0].TeamNumber).
		Uint8("team_red", s.Teams[1].TeamNumber).
		Dur("broadcast_interval", c.cfg.BroadcastInterval).
		Msg("controller.Controller.Run started")

	c.publish()
	c.broadcast(ctx)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("controller.Controller.Run shutdown")
			return nil

		case cmd := <-c.commands:
			err := cmd.apply(c.model)
			cmd.reply <- err
			observability.RecordDirective(cmd.label, err)
			if err != nil {
				c.logger.Warn().Str("command", cmd.name).Err(err).Msg("controller.Controller.Run rejected")
				continue
			}
			c.logger.Info().
				Str("command", cmd.name).
				Stringer("phase", c.model.State.Phase).
				Stringer("period", c.model.State.Period).
				Msg("controller.Controller.Run applied")
			c.publish()

		case <-clock.C:
			c.tick()
			c.publish()

		case <-broadcast.C:
			c.broadcast(ctx)
		}
	}
}

// tick advances one second of game time. Penalty countdowns use the clock
// state of the second that just elapsed.
func (c *Controller) tick() {
	if c.model.ClockRunning() {
		c.tracker.Tick(c.model)
	}
	c.model.Tick()
}

func (c *Controller) publish() {
	snap := c.model.Snapshot()
	c.mu.Lock()
	c.published = snap
	c.mu.Unlock()
	c.hub.Publish(snap)
}

// broadcast encodes and sends the latest snapshot once. Failures are
// reported and left for the next interval.
func (c *Controller) broadcast(ctx context.Context) {
	if c.sender == nil {
		return
	}
	buf, err := c.encoder.Encode(c.model.Snapshot())
	if err != nil {
		observability.RecordBroadcast(err)
		c.logger.Error().Err(err).Msg("controller.Controller.broadcast encode failed")
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, c.cfg.BroadcastInterval)
	err = c.sender.Send(sendCtx, buf)
	cancel()
	observability.RecordBroadcast(err)
	if err != nil {
		c.logger.Warn().Err(err).Msg("controller.Controller.broadcast send failed")
	}
}

func (c *Controller) receiveLoop(ctx context.Context) {
	backoff := transport.DefaultBackoff()
	failures := 0
	for {
		dg, err := c.receiver.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrClosed) {
				return
			}
			failures++
			c.logger.Warn().Err(err).Int("attempt", failures).Msg("controller.Controller.receiveLoop receive failed")
			t := time.NewTimer(backoff.Delay(failures, nil))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			continue
		}
		failures = 0
		c.handleDatagram(dg)
	}
}

func (c *Controller) handleDatagram(dg transport.Datagram) {
	kind := protocol.PacketKind(dg.Payload)
	if kind == protocol.KindGameState {
		// our own broadcast looping back on the shared port
		return
	}
	rd, err := protocol.UnmarshalReturnData(dg.Payload)
	if err != nil {
		observability.RecordDecodeError(protocol.KindReturnData.String(), protocol.Reason(err))
		c.logger.Debug().Err(err).Stringer("from", dg.From).Msg("controller.Controller.handleDatagram discarded")
		return
	}
	outcome, err := c.returns.Handle(rd, dg.At)
	if err != nil {
		observability.RecordReturnMessage(rd.Message.String(), "rejected")
		c.logger.Debug().Err(err).Uint8("team", rd.Team).Uint8("player", rd.Player).Msg("controller.Controller.handleDatagram ignored")
		return
	}
	observability.RecordReturnMessage(rd.Message.String(), string(outcome))
	if outcome == returns.OutcomeQueued {
		c.logger.Info().
			Uint8("team", rd.Team).
			Uint8("player", rd.Player).
			Stringer("message", rd.Message).
			Msg("controller.Controller.handleDatagram request queued")
	}
	observability.SetPendingRequests(len(c.returns.Pending()))
}
