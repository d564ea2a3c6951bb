// Package monitor fans published snapshots out to passive websocket viewers.
package monitor

import (
	"context"

	"github.com/danmuck/refctl/internal/protocol"
)

// Snapshot is one published frame. Version increases with every publish.
type Snapshot struct {
	Version uint64             `json:"version"`
	State   protocol.GameState `json:"state"`
}

type hubMsg interface{ isHubMsg() }

type join struct {
	clientID string
	outbox   chan Snapshot
}

type leave struct {
	clientID string
}

type publish struct {
	state protocol.GameState
}

type countViewers struct {
	reply chan int
}

func (join) isHubMsg()         {}
func (leave) isHubMsg()        {}
func (publish) isHubMsg()      {}
func (countViewers) isHubMsg() {}

// Hub owns the viewer set on a single goroutine.
type Hub struct {
	inbox   chan hubMsg
	clients map[string]chan Snapshot
	last    *Snapshot
	version uint64
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context) *Hub {
	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan hubMsg, 64),
		clients: make(map[string]chan Snapshot),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

// Publish hands a snapshot to every viewer. It never blocks the caller on a
// slow viewer.
func (h *Hub) Publish(gs protocol.GameState) {
	select {
	case h.inbox <- publish{state: gs}:
	case <-h.ctx.Done():
	default:
	}
}

func (h *Hub) Viewers() int {
	reply := make(chan int, 1)
	select {
	case h.inbox <- countViewers{reply: reply}:
	case <-h.ctx.Done():
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.ctx.Done():
		return 0
	}
}

func (h *Hub) Close() {
	h.cancel()
}

func (h *Hub) join(clientID string, outbox chan Snapshot) bool {
	select {
	case h.inbox <- join{clientID: clientID, outbox: outbox}:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) leave(clientID string) {
	select {
	case h.inbox <- leave{clientID: clientID}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			for id, out := range h.clients {
				close(out)
				delete(h.clients, id)
			}
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case join:
				h.clients[msg.clientID] = msg.outbox
				if h.last != nil {
					deliver(msg.outbox, *h.last)
				}

			case leave:
				if out, ok := h.clients[msg.clientID]; ok {
					close(out)
					delete(h.clients, msg.clientID)
				}

			case publish:
				h.version++
				snap := Snapshot{Version: h.version, State: msg.state}
				h.last = &snap
				for _, out := range h.clients {
					deliver(out, snap)
				}

			case countViewers:
				msg.reply <- len(h.clients)
			}
		}
	}
}

// deliver replaces the oldest queued frame when the viewer falls behind.
func deliver(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	select {
	case out <- snap:
	default:
	}
}
