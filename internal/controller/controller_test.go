package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/refctl/internal/game"
	"github.com/danmuck/refctl/internal/penalty"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/returns"
	"github.com/danmuck/refctl/internal/testutil/testlog"
	"github.com/danmuck/refctl/internal/transport"
	"github.com/danmuck/refctl/internal/variant"
)

type recordingSender struct {
	mu      sync.Mutex
	packets [][]byte
	failN   int
}

func (s *recordingSender) Send(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failN > 0 {
		s.failN--
		return errors.New("network is unreachable")
	}
	s.packets = append(s.packets, append([]byte(nil), payload...))
	return nil
}

func (s *recordingSender) Close() error { return nil }

func (s *recordingSender) sent() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.packets...)
}

type chanReceiver struct {
	in chan transport.Datagram
}

func (r *chanReceiver) Receive(ctx context.Context) (transport.Datagram, error) {
	select {
	case dg := <-r.in:
		return dg, nil
	case <-ctx.Done():
		return transport.Datagram{}, ctx.Err()
	}
}

func (r *chanReceiver) Close() error { return nil }

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Setup = game.Setup{TeamNumbers: [2]uint8{5, 12}, SessionID: 42}
	cfg.BroadcastInterval = 10 * time.Millisecond
	cfg.TickInterval = time.Hour
	return cfg
}

func startController(t *testing.T, cfg Config, sender transport.Sender) (*Controller, *chanReceiver) {
	t.Helper()
	rx := &chanReceiver{in: make(chan transport.Datagram, 16)}
	c, err := New(cfg, sender, rx)
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	eventually(t, "controller running", c.Running)
	return c, rx
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func apply(t *testing.T, c *Controller, kind game.DirectiveKind, side int) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Apply(ctx, game.Directive{Kind: kind, Side: side}); err != nil {
		t.Fatalf("apply %s: %v", kind, err)
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.BroadcastInterval = 0
	if _, err := New(cfg, nil, nil); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("zero interval: %v", err)
	}
	cfg = testConfig()
	cfg.Setup.TeamNumbers = [2]uint8{3, 3}
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatalf("identical team numbers accepted")
	}
	cfg = testConfig()
	cfg.Variant.PlayersPerTeam = 0
	if _, err := New(cfg, nil, nil); !errors.Is(err, variant.ErrInvalid) {
		t.Fatalf("invalid variant: %v", err)
	}
}

func TestCommandsRequireRunningLoop(t *testing.T) {
	testlog.Start(t)
	c, err := New(testConfig(), nil, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := c.Apply(context.Background(), game.Directive{Kind: game.DirectiveReady}); !errors.Is(err, ErrStopped) {
		t.Fatalf("apply without loop: %v", err)
	}
}

func TestBroadcastSequenceIncrements(t *testing.T) {
	testlog.Start(t)
	sender := &recordingSender{}
	c, _ := startController(t, testConfig(), sender)
	eventually(t, "three broadcasts", func() bool { return len(sender.sent()) >= 3 })

	codec := c.Variant().Codec()
	packets := sender.sent()
	for i, buf := range packets[:3] {
		gs, err := codec.Unmarshal(buf)
		if err != nil {
			t.Fatalf("packet %d: %v", i, err)
		}
		if gs.PacketNumber != uint8(i) {
			t.Fatalf("packet %d sequence: %d", i, gs.PacketNumber)
		}
		if gs.SessionID != 42 || gs.Teams[1].TeamNumber != 12 {
			t.Fatalf("packet %d header: %+v", i, gs)
		}
	}
}

func TestBroadcastFailureIsNonFatal(t *testing.T) {
	testlog.Start(t)
	sender := &recordingSender{failN: 3}
	c, _ := startController(t, testConfig(), sender)
	eventually(t, "broadcast after failures", func() bool { return len(sender.sent()) >= 1 })
	apply(t, c, game.DirectiveReady, 0)

	gs, err := c.Variant().Codec().Unmarshal(sender.sent()[0])
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	// failed sends still consumed sequence numbers
	if gs.PacketNumber < 3 {
		t.Fatalf("first delivered sequence: %d", gs.PacketNumber)
	}
}

func TestDirectivesFlowThroughLoop(t *testing.T) {
	testlog.Start(t)
	c, _ := startController(t, testConfig(), &recordingSender{})
	apply(t, c, game.DirectiveReady, 0)
	if c.Snapshot().Phase != protocol.PhaseReady {
		t.Fatalf("published phase: %s", c.Snapshot().Phase)
	}
	before := c.Snapshot()
	err := c.Apply(context.Background(), game.Directive{Kind: game.DirectiveGoal, Side: 0})
	if !errors.Is(err, game.ErrInvalidTransition) {
		t.Fatalf("goal in ready: %v", err)
	}
	if c.Snapshot() != before {
		t.Fatalf("rejected directive changed the published state")
	}
}

func TestClockAndPenaltyTicks(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	cfg.TickInterval = 5 * time.Millisecond
	c, _ := startController(t, cfg, &recordingSender{})

	apply(t, c, game.DirectiveReady, 0)
	apply(t, c, game.DirectiveSet, 0)
	ctx := context.Background()
	if err := c.Penalize(ctx, 1, 3, variant.SPLPlayerPushing); err != nil {
		t.Fatalf("penalize: %v", err)
	}
	// countdowns hold until play starts
	time.Sleep(30 * time.Millisecond)
	if got := c.Snapshot().Teams[1].Players[2].SecsTillUnpenalized; got != 45 {
		t.Fatalf("penalty ticked outside play: %d", got)
	}
	apply(t, c, game.DirectivePlay, 0)
	eventually(t, "clock and penalty to advance", func() bool {
		s := c.Snapshot()
		return s.SecsRemaining < 600 && s.Teams[1].Players[2].SecsTillUnpenalized < 45
	})
}

func TestReturnRequestApproval(t *testing.T) {
	testlog.Start(t)
	c, rx := startController(t, testConfig(), &recordingSender{})

	own, err := c.Variant().Codec().Marshal(c.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rx.in <- transport.Datagram{Payload: own, At: time.Now()}
	rx.in <- transport.Datagram{Payload: []byte("XXXX\x02\x05\x01\x00"), At: time.Now()}
	req, _ := protocol.MarshalReturnData(protocol.ReturnData{Team: 12, Player: 4, Message: protocol.ReturnPenalize})
	rx.in <- transport.Datagram{Payload: req, At: time.Now()}
	rx.in <- transport.Datagram{Payload: req, At: time.Now()}

	eventually(t, "pending request", func() bool {
		p := c.Returns().Pending()
		return len(p) == 1 && p[0].Count == 2
	})
	pending := c.Returns().Pending()[0]
	if c.Snapshot().Teams[1].Players[3].Penalized() {
		t.Fatalf("advisory request applied before approval")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, applied, err := c.ApproveRequest(ctx, pending.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if got.Side != 1 || got.Player != 4 || !applied {
		t.Fatalf("approved: %+v applied=%v", got, applied)
	}
	if p := c.Snapshot().Teams[1].Players[3]; p.Penalty != protocol.PenaltyManual {
		t.Fatalf("player after approval: %+v", p)
	}
	if _, _, err := c.ApproveRequest(ctx, pending.ID); err == nil {
		t.Fatalf("second approval accepted")
	}
}

func queueRequest(t *testing.T, c *Controller, rx *chanReceiver, rd protocol.ReturnData) returns.Request {
	t.Helper()
	payload, err := protocol.MarshalReturnData(rd)
	if err != nil {
		t.Fatalf("marshal return: %v", err)
	}
	rx.in <- transport.Datagram{Payload: payload, At: time.Now()}
	var found returns.Request
	eventually(t, "queued request", func() bool {
		for _, p := range c.Returns().Pending() {
			if p.TeamNumber == rd.Team && p.Player == int(rd.Player) && p.Message == rd.Message {
				found = p
				return true
			}
		}
		return false
	})
	return found
}

func TestApprovalKeepsTimedPenalty(t *testing.T) {
	testlog.Start(t)
	c, rx := startController(t, testConfig(), &recordingSender{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := c.Penalize(ctx, 1, 4, variant.SPLBallHolding); err != nil {
		t.Fatalf("penalize: %v", err)
	}
	pending := queueRequest(t, c, rx, protocol.ReturnData{Team: 12, Player: 4, Message: protocol.ReturnPenalize})

	_, applied, err := c.ApproveRequest(ctx, pending.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if applied {
		t.Fatalf("penalize request applied to an already penalized player")
	}
	p := c.Snapshot().Teams[1].Players[3]
	if p.Penalty != variant.SPLBallHolding || p.SecsTillUnpenalized != 45 {
		t.Fatalf("timed penalty overwritten: %+v", p)
	}
	if len(c.Returns().Pending()) != 0 {
		t.Fatalf("settled request still pending")
	}

	release := queueRequest(t, c, rx, protocol.ReturnData{Team: 12, Player: 2, Message: protocol.ReturnUnpenalize})
	if _, applied, err := c.ApproveRequest(ctx, release.ID); err != nil || applied {
		t.Fatalf("unpenalize of a free player: applied=%v err=%v", applied, err)
	}

	release = queueRequest(t, c, rx, protocol.ReturnData{Team: 12, Player: 4, Message: protocol.ReturnUnpenalize})
	if _, applied, err := c.ApproveRequest(ctx, release.ID); err != nil || !applied {
		t.Fatalf("unpenalize of a penalized player: applied=%v err=%v", applied, err)
	}
	if c.Snapshot().Teams[1].Players[3].Penalized() {
		t.Fatalf("player still penalized after approved release")
	}
}

func TestFailedApprovalKeepsRequestQueued(t *testing.T) {
	testlog.Start(t)
	cfg := testConfig()
	c, rx := startController(t, cfg, &recordingSender{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pending := queueRequest(t, c, rx, protocol.ReturnData{Team: 5, Player: 6, Message: protocol.ReturnPenalize})
	// the roster shrinks under the request, so the penalty cannot be applied
	if err := c.submit(ctx, "shrink", func(m *game.Model) error {
		m.State.PlayersPerTeam = 5
		return nil
	}); err != nil {
		t.Fatalf("shrink roster: %v", err)
	}

	if _, _, err := c.ApproveRequest(ctx, pending.ID); !errors.Is(err, penalty.ErrIndexOutOfRange) {
		t.Fatalf("approve out of range: %v", err)
	}
	left := c.Returns().Pending()
	if len(left) != 1 || left[0].ID != pending.ID {
		t.Fatalf("failed approval dropped the request: %+v", left)
	}
	if err := c.RejectRequest(ctx, pending.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(c.Returns().Pending()) != 0 {
		t.Fatalf("rejected request still pending")
	}
}
