package main

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/refctl/internal/listener"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/testutil/testlog"
	"github.com/rs/zerolog"
)

type captureSender struct {
	mu   sync.Mutex
	sent [][]byte
}

func (s *captureSender) Send(_ context.Context, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, append([]byte(nil), payload...))
	return nil
}

func (s *captureSender) Close() error { return nil }

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestSummarize(t *testing.T) {
	testlog.Start(t)
	var gs protocol.GameState
	gs.Phase = protocol.PhasePlaying
	gs.FirstHalf = true
	gs.KickOffTeam = protocol.TeamRed
	gs.SecsRemaining = 412
	gs.Teams[0].TeamNumber = 5
	gs.Teams[1].TeamNumber = 12
	gs.Teams[0].Score = 2
	got := summarize(gs)
	want := "normal/playing first half, 5:12 (2-0), 412s left, kickoff red"
	if got != want {
		t.Fatalf("summary mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestReporterChangesOnly(t *testing.T) {
	testlog.Start(t)
	var buf bytes.Buffer
	r := reporter{logger: zerolog.New(&buf), changesOnly: true}

	r.report(listener.Update{})
	if buf.Len() != 0 {
		t.Fatalf("unchanged update should be silent: %s", buf.String())
	}
	r.report(listener.Update{Changed: true, Lost: 2})
	out := buf.String()
	if !strings.Contains(out, "gcwatch packets lost") || !strings.Contains(out, "gcwatch state") {
		t.Fatalf("expected loss and state lines: %s", out)
	}
}

func TestHeartbeatSendsAlive(t *testing.T) {
	testlog.Start(t)
	hb := heartbeat{Team: 5, Player: 3, Every: 5 * time.Millisecond}
	if !hb.enabled() {
		t.Fatalf("heartbeat should be enabled")
	}
	if (heartbeat{Team: 0, Player: 1, Every: time.Second}).enabled() {
		t.Fatalf("team 0 should disable heartbeats")
	}

	tx := &captureSender{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hb.run(ctx, tx, zerolog.Nop())
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for tx.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done
	if tx.count() < 3 {
		t.Fatalf("expected repeated heartbeats, got %d", tx.count())
	}
	rd, err := protocol.UnmarshalReturnData(tx.sent[0])
	if err != nil {
		t.Fatalf("decode heartbeat: %v", err)
	}
	if rd.Team != 5 || rd.Player != 3 || rd.Message != protocol.ReturnAlive {
		t.Fatalf("unexpected heartbeat: %+v", rd)
	}
}
