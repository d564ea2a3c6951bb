package returns

import (
	"errors"
	"testing"
	"time"

	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/testutil/testlog"
)

var t0 = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

func TestHeartbeatIsIdempotent(t *testing.T) {
	testlog.Start(t)
	c := NewChannel([2]uint8{5, 12}, 6)
	alive := protocol.ReturnData{Team: 5, Player: 3, Message: protocol.ReturnAlive}

	for i := 0; i < 2; i++ {
		out, err := c.Handle(alive, t0)
		if err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
		if out != OutcomeHeartbeat {
			t.Fatalf("heartbeat %d outcome: %s", i, out)
		}
	}
	if n := len(c.Pending()); n != 0 {
		t.Fatalf("heartbeat queued %d requests", n)
	}
	if got := c.Status(0, 3, t0); got != StatusOnline {
		t.Fatalf("status after heartbeat: %s", got)
	}
}

func TestPenalizeRequestsAreDeduplicated(t *testing.T) {
	testlog.Start(t)
	c := NewChannel([2]uint8{5, 12}, 6)
	msg := protocol.ReturnData{Team: 12, Player: 2, Message: protocol.ReturnPenalize}

	out, err := c.Handle(msg, t0)
	if err != nil || out != OutcomeQueued {
		t.Fatalf("first request: %s %v", out, err)
	}
	out, err = c.Handle(msg, t0.Add(time.Second))
	if err != nil || out != OutcomeDuplicate {
		t.Fatalf("second request: %s %v", out, err)
	}
	if _, err := c.Handle(protocol.ReturnData{Team: 12, Player: 2, Message: protocol.ReturnUnpenalize}, t0); err != nil {
		t.Fatalf("unpenalize request: %v", err)
	}

	pending := c.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending: %+v", pending)
	}
	var pen Request
	for _, r := range pending {
		if r.Message == protocol.ReturnPenalize {
			pen = r
		}
	}
	if pen.Side != 1 || pen.Player != 2 || pen.Count != 2 || !pen.LastSeen.Equal(t0.Add(time.Second)) {
		t.Fatalf("deduplicated request: %+v", pen)
	}
	if pen.ID == "" {
		t.Fatalf("request without id")
	}
}

func TestApproveAndReject(t *testing.T) {
	testlog.Start(t)
	c := NewChannel([2]uint8{5, 12}, 6)
	_, _ = c.Handle(protocol.ReturnData{Team: 5, Player: 1, Message: protocol.ReturnPenalize}, t0)
	_, _ = c.Handle(protocol.ReturnData{Team: 5, Player: 4, Message: protocol.ReturnPenalize}, t0.Add(time.Millisecond))
	pending := c.Pending()
	if len(pending) != 2 || pending[0].Player != 1 {
		t.Fatalf("pending order: %+v", pending)
	}

	req, err := c.Approve(pending[0].ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.Side != 0 || req.Player != 1 {
		t.Fatalf("approved request: %+v", req)
	}
	if _, err := c.Approve(pending[0].ID); !errors.Is(err, ErrUnknownRequest) {
		t.Fatalf("approve twice: %v", err)
	}
	if err := c.Reject(pending[1].ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(c.Pending()) != 0 {
		t.Fatalf("queue not drained")
	}

	// a decided request can be raised again
	out, _ := c.Handle(protocol.ReturnData{Team: 5, Player: 1, Message: protocol.ReturnPenalize}, t0)
	if out != OutcomeQueued {
		t.Fatalf("request after approval: %s", out)
	}
}

func TestHandleRejectsUnknownSenders(t *testing.T) {
	testlog.Start(t)
	c := NewChannel([2]uint8{5, 12}, 6)
	if _, err := c.Handle(protocol.ReturnData{Team: 7, Player: 1, Message: protocol.ReturnAlive}, t0); !errors.Is(err, ErrUnknownTeam) {
		t.Fatalf("unknown team: %v", err)
	}
	for _, p := range []uint8{0, 7} {
		if _, err := c.Handle(protocol.ReturnData{Team: 5, Player: p, Message: protocol.ReturnAlive}, t0); !errors.Is(err, ErrUnknownPlayer) {
			t.Fatalf("player %d: %v", p, err)
		}
	}
}

func TestLivenessThresholds(t *testing.T) {
	testlog.Start(t)
	c := NewChannel([2]uint8{5, 12}, 2)
	_, _ = c.Handle(protocol.ReturnData{Team: 5, Player: 1, Message: protocol.ReturnAlive}, t0)
	_, _ = c.Handle(protocol.ReturnData{Team: 5, Player: 2, Message: protocol.ReturnAlive}, t0.Add(3*time.Second))

	cases := []struct {
		at   time.Duration
		want Status
	}{
		{time.Second, StatusOnline},
		{2500 * time.Millisecond, StatusHighLatency},
		{4500 * time.Millisecond, StatusOffline},
	}
	for _, tc := range cases {
		if got := c.Status(0, 1, t0.Add(tc.at)); got != tc.want {
			t.Fatalf("at %s: got=%s want=%s", tc.at, got, tc.want)
		}
	}
	if got := c.Status(1, 1, t0); got != StatusUnknown {
		t.Fatalf("never heard: %s", got)
	}
	// both players of team 5 silent for longer than the offline threshold
	if got := c.Status(0, 2, t0.Add(10*time.Second)); got != StatusUnknown {
		t.Fatalf("whole team offline: %s", got)
	}
}
