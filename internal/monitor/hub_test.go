package monitor

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/testutil/testlog"
)

func waitViewers(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Viewers() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("viewers never reached %d", want)
}

func TestHubDeliversLatestToNewViewer(t *testing.T) {
	testlog.Start(t)
	h := NewHub(context.Background())
	defer h.Close()

	h.Publish(protocol.GameState{SessionID: 4})
	out := make(chan Snapshot, 4)
	if !h.join("a", out) {
		t.Fatalf("join failed")
	}
	select {
	case snap := <-out:
		if snap.State.SessionID != 4 || snap.Version != 1 {
			t.Fatalf("snapshot: %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot for late joiner")
	}
	h.leave("a")
	waitViewers(t, h, 0)
}

func TestDeliverDropsOldestWhenFull(t *testing.T) {
	testlog.Start(t)
	out := make(chan Snapshot, 2)
	for v := uint64(1); v <= 5; v++ {
		deliver(out, Snapshot{Version: v})
	}
	first, second := <-out, <-out
	if first.Version != 4 || second.Version != 5 {
		t.Fatalf("queued versions: %d %d", first.Version, second.Version)
	}
}

func TestHandlerStreamsSnapshots(t *testing.T) {
	testlog.Start(t)
	h := NewHub(context.Background())
	defer h.Close()
	srv := httptest.NewServer(Handler(h, nil))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	waitViewers(t, h, 1)
	h.Publish(protocol.GameState{SessionID: 11, Phase: protocol.PhasePlaying})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg struct {
		Type    string             `json:"type"`
		Version uint64             `json:"version"`
		State   protocol.GameState `json:"state"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != "snapshot" || msg.State.SessionID != 11 || msg.State.Phase != protocol.PhasePlaying {
		t.Fatalf("message: %+v", msg)
	}
}
