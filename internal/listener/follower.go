// Package listener is the consumer side of the broadcast: it decodes
// GameState datagrams and keeps the latest snapshot of the current session.
package listener

import (
	"errors"
	"sync"

	"github.com/danmuck/refctl/internal/protocol"
	"github.com/rs/zerolog"
)

// DefaultVersionMismatchThreshold is the run length of consecutive version
// errors that triggers the incompatible-peer warning.
const DefaultVersionMismatchThreshold = 10

// ReorderWindow is how far behind the last accepted sequence number a packet
// may be and still count as late delivery. Anything further back is read as
// a forward jump past lost packets, since every snapshot is complete.
const ReorderWindow = 8

// Update describes the effect of one accepted datagram.
type Update struct {
	State      protocol.GameState
	NewSession bool
	Lost       int
	Changed    bool
}

type Stats struct {
	Received      uint64 `json:"received"`
	Accepted      uint64 `json:"accepted"`
	Lost          uint64 `json:"lost"`
	Stale         uint64 `json:"stale"`
	DecodeErrors  uint64 `json:"decode_errors"`
	Sessions      uint64 `json:"sessions"`
	VersionErrRun int    `json:"version_error_run"`
}

var ErrStale = errors.New("listener: stale or duplicate packet")

type Option func(*Follower)

func WithLogger(logger zerolog.Logger) Option {
	return func(f *Follower) { f.logger = logger }
}

func WithVersionMismatchThreshold(n int) Option {
	return func(f *Follower) {
		if n > 0 {
			f.threshold = n
		}
	}
}

// Follower tracks one broadcast stream. Observe may be called from one
// goroutine while readers call Latest and Stats from others.
type Follower struct {
	codec     *protocol.Codec
	logger    zerolog.Logger
	threshold int

	mu     sync.RWMutex
	state  protocol.GameState
	has    bool
	stats  Stats
	warned bool
}

func NewFollower(codec *protocol.Codec, opts ...Option) *Follower {
	f := &Follower{
		codec:     codec,
		logger:    zerolog.Nop(),
		threshold: DefaultVersionMismatchThreshold,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Observe decodes buf and folds it into the tracked state. On any error the
// previous snapshot is kept.
func (f *Follower) Observe(buf []byte) (Update, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stats.Received++

	gs, err := f.codec.Unmarshal(buf)
	if err != nil {
		f.stats.DecodeErrors++
		f.noteDecodeError(err)
		return Update{}, err
	}
	f.stats.VersionErrRun = 0
	f.warned = false

	up := Update{State: gs}
	switch {
	case !f.has || gs.SessionID != f.state.SessionID:
		if f.has {
			f.logger.Info().
				Uint32("old_session", f.state.SessionID).
				Uint32("new_session", gs.SessionID).
				Msg("listener.Follower.Observe session changed; discarding prior state")
		}
		up.NewSession = true
		up.Changed = true
		f.stats.Sessions++
	default:
		delta := gs.PacketNumber - f.state.PacketNumber
		if delta == 0 || int(delta) > 256-ReorderWindow {
			f.stats.Stale++
			return Update{}, ErrStale
		}
		up.Lost = int(delta) - 1
		f.stats.Lost += uint64(up.Lost)
		up.Changed = !sameContent(f.state, gs)
	}

	f.state = gs
	f.has = true
	f.stats.Accepted++
	return up, nil
}

func (f *Follower) noteDecodeError(err error) {
	if !errors.Is(err, protocol.ErrBadVersion) {
		f.stats.VersionErrRun = 0
		f.warned = false
		return
	}
	f.stats.VersionErrRun++
	if f.stats.VersionErrRun >= f.threshold && !f.warned {
		f.warned = true
		f.logger.Warn().
			Int("consecutive", f.stats.VersionErrRun).
			Err(err).
			Msg("listener.Follower.Observe peers are broadcasting an incompatible protocol version")
	}
}

// Latest returns the most recent accepted snapshot.
func (f *Follower) Latest() (protocol.GameState, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state, f.has
}

func (f *Follower) Stats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.stats
}

// VersionWarningRaised reports whether the current run of version errors
// has already been reported.
func (f *Follower) VersionWarningRaised() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.warned
}

func sameContent(a, b protocol.GameState) bool {
	a.PacketNumber, b.PacketNumber = 0, 0
	return a == b
}
