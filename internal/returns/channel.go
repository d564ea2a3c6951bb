// Package returns processes participant ReturnData: liveness heartbeats and
// advisory penalty requests that wait for an operator decision. Nothing in
// this package changes the game model.
package returns

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danmuck/refctl/internal/protocol"
	"github.com/google/uuid"
)

var (
	ErrUnknownTeam    = errors.New("returns: unknown team number")
	ErrUnknownPlayer  = errors.New("returns: player index out of range")
	ErrUnknownRequest = errors.New("returns: unknown request")
)

const (
	HighLatencyAfter = 2 * time.Second
	OfflineAfter     = 4 * time.Second
)

type Status string

const (
	StatusOnline      Status = "online"
	StatusHighLatency Status = "high_latency"
	StatusOffline     Status = "offline"
	StatusUnknown     Status = "unknown"
)

// Outcome describes what Handle did with a message.
type Outcome string

const (
	OutcomeHeartbeat Outcome = "heartbeat"
	OutcomeQueued    Outcome = "queued"
	OutcomeDuplicate Outcome = "duplicate"
)

// Request is an advisory penalize/unpenalize sent by a participant. Player
// is 1-based.
type Request struct {
	ID         string                 `json:"id"`
	Side       int                    `json:"side"`
	TeamNumber uint8                  `json:"team_number"`
	Player     int                    `json:"player"`
	Message    protocol.ReturnMessage `json:"message"`
	ReceivedAt time.Time              `json:"received_at"`
	LastSeen   time.Time              `json:"last_seen"`
	Count      int                    `json:"count"`
}

type RobotStatus struct {
	Side       int       `json:"side"`
	TeamNumber uint8     `json:"team_number"`
	Player     int       `json:"player"`
	Status     Status    `json:"status"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
}

type requestKey struct {
	side    int
	player  int
	message protocol.ReturnMessage
}

// Channel is safe for concurrent use by the receiver goroutine and the
// controller loop.
type Channel struct {
	mu       sync.Mutex
	teams    [2]uint8
	players  int
	lastSeen [2][]time.Time
	pending  map[requestKey]*Request
	byID     map[string]requestKey
}

func NewChannel(teamNumbers [2]uint8, playersPerTeam uint8) *Channel {
	c := &Channel{
		teams:   teamNumbers,
		players: int(playersPerTeam),
		pending: make(map[requestKey]*Request),
		byID:    make(map[string]requestKey),
	}
	for i := range c.lastSeen {
		c.lastSeen[i] = make([]time.Time, c.players)
	}
	return c
}

// Handle records rd as received at now. Any valid message refreshes the
// sender's liveness; penalize and unpenalize additionally queue a request,
// at most one per (side, player, message).
func (c *Channel) Handle(rd protocol.ReturnData, now time.Time) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	side := c.side(rd.Team)
	if side < 0 {
		return "", fmt.Errorf("%w: %d", ErrUnknownTeam, rd.Team)
	}
	player := int(rd.Player)
	if player < 1 || player > c.players {
		return "", fmt.Errorf("%w: team=%d player=%d", ErrUnknownPlayer, rd.Team, rd.Player)
	}
	c.lastSeen[side][player-1] = now

	if rd.Message == protocol.ReturnAlive {
		return OutcomeHeartbeat, nil
	}

	key := requestKey{side: side, player: player, message: rd.Message}
	if req, ok := c.pending[key]; ok {
		req.LastSeen = now
		req.Count++
		return OutcomeDuplicate, nil
	}
	req := &Request{
		ID:         uuid.NewString(),
		Side:       side,
		TeamNumber: rd.Team,
		Player:     player,
		Message:    rd.Message,
		ReceivedAt: now,
		LastSeen:   now,
		Count:      1,
	}
	c.pending[key] = req
	c.byID[req.ID] = key
	return OutcomeQueued, nil
}

// Lookup returns a pending request without removing it.
func (c *Channel) Lookup(id string) (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byID[id]
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	return *c.pending[key], nil
}

// Approve removes the request and returns it. Callers apply the request
// before approving it, so a failed apply leaves it queued.
func (c *Channel) Approve(id string) (Request, error) {
	return c.take(id)
}

func (c *Channel) Reject(id string) error {
	_, err := c.take(id)
	return err
}

func (c *Channel) take(id string) (Request, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key, ok := c.byID[id]
	if !ok {
		return Request{}, fmt.Errorf("%w: %s", ErrUnknownRequest, id)
	}
	req := *c.pending[key]
	delete(c.pending, key)
	delete(c.byID, id)
	return req, nil
}

// Pending lists the queued requests, oldest first.
func (c *Channel) Pending() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, 0, len(c.pending))
	for _, req := range c.pending {
		out = append(out, *req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedAt.Equal(out[j].ReceivedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out
}

// Clear drops every pending request, e.g. when a shootout resets penalties.
func (c *Channel) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = make(map[requestKey]*Request)
	c.byID = make(map[string]requestKey)
}

// Status returns the liveness of one participant at now.
func (c *Channel) Status(side, player int, now time.Time) Status {
	for _, rs := range c.Robots(now) {
		if rs.Side == side && rs.Player == player {
			return rs.Status
		}
	}
	return StatusUnknown
}

// Robots reports the liveness of every participant. When a whole team is
// offline its members are reported unknown.
func (c *Channel) Robots(now time.Time) []RobotStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]RobotStatus, 0, 2*c.players)
	for side := range c.lastSeen {
		start := len(out)
		offline := 0
		for i, seen := range c.lastSeen[side] {
			rs := RobotStatus{Side: side, TeamNumber: c.teams[side], Player: i + 1, LastSeen: seen}
			rs.Status = classify(seen, now)
			if rs.Status == StatusOffline || rs.Status == StatusUnknown {
				offline++
			}
			out = append(out, rs)
		}
		if c.players > 0 && offline == c.players {
			for i := start; i < len(out); i++ {
				out[i].Status = StatusUnknown
			}
		}
	}
	return out
}

func classify(seen, now time.Time) Status {
	if seen.IsZero() {
		return StatusUnknown
	}
	age := now.Sub(seen)
	switch {
	case age > OfflineAfter:
		return StatusOffline
	case age > HighLatencyAfter:
		return StatusHighLatency
	default:
		return StatusOnline
	}
}

func (c *Channel) side(teamNumber uint8) int {
	for i, n := range c.teams {
		if n == teamNumber {
			return i
		}
	}
	return -1
}
