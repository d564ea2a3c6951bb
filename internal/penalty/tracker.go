// Package penalty manages per-participant penalties and their countdowns on
// a game model. Players are addressed 1-based, as on the return channel.
package penalty

import (
	"errors"
	"fmt"

	"github.com/danmuck/refctl/internal/game"
	"github.com/danmuck/refctl/internal/protocol"
)

var (
	ErrUnknownPenaltyKind = errors.New("penalty: unknown penalty kind")
	ErrIndexOutOfRange    = errors.New("penalty: index out of range")
	ErrNoCoach            = errors.New("penalty: variant has no coach")
)

// Tracker holds no state of its own; the countdowns live in the model so a
// snapshot always carries them.
type Tracker struct{}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Penalize sets kind on the player and starts its countdown. Administrative
// kinds start at 0 and never expire on their own.
func (t *Tracker) Penalize(m *game.Model, side, player int, kind protocol.PenaltyKind) error {
	slot, err := playerSlot(m, side, player)
	if err != nil {
		return err
	}
	secs, err := duration(m, kind)
	if err != nil {
		return err
	}
	*slot = protocol.RobotInfo{Penalty: kind, SecsTillUnpenalized: secs}
	return nil
}

// Unpenalize clears the player's penalty regardless of its kind.
func (t *Tracker) Unpenalize(m *game.Model, side, player int) error {
	slot, err := playerSlot(m, side, player)
	if err != nil {
		return err
	}
	*slot = protocol.RobotInfo{}
	return nil
}

func (t *Tracker) PenalizeCoach(m *game.Model, side int, kind protocol.PenaltyKind) error {
	slot, err := coachSlot(m, side)
	if err != nil {
		return err
	}
	secs, err := duration(m, kind)
	if err != nil {
		return err
	}
	*slot = protocol.RobotInfo{Penalty: kind, SecsTillUnpenalized: secs}
	return nil
}

func (t *Tracker) UnpenalizeCoach(m *game.Model, side int) error {
	slot, err := coachSlot(m, side)
	if err != nil {
		return err
	}
	*slot = protocol.RobotInfo{}
	return nil
}

// Tick advances every running countdown by one second. A timed penalty
// reverts to none when its countdown reaches zero.
func (t *Tracker) Tick(m *game.Model) {
	players := int(m.State.PlayersPerTeam)
	for side := range m.State.Teams {
		team := &m.State.Teams[side]
		for i := 0; i < players; i++ {
			tickSlot(&team.Players[i])
		}
		if m.Variant.HasCoach {
			tickSlot(&team.Coach)
		}
	}
}

// Active counts penalized players on side.
func (t *Tracker) Active(m *game.Model, side int) int {
	if side != 0 && side != 1 {
		return 0
	}
	n := 0
	for i := 0; i < int(m.State.PlayersPerTeam); i++ {
		if m.State.Teams[side].Players[i].Penalized() {
			n++
		}
	}
	return n
}

func tickSlot(r *protocol.RobotInfo) {
	if !r.Penalized() || r.SecsTillUnpenalized == 0 {
		return
	}
	r.SecsTillUnpenalized--
	if r.SecsTillUnpenalized == 0 && !r.Penalty.Administrative() {
		r.Penalty = protocol.PenaltyNone
	}
}

func duration(m *game.Model, kind protocol.PenaltyKind) (uint8, error) {
	if kind == protocol.PenaltyNone {
		return 0, fmt.Errorf("%w: none is not a penalty", ErrUnknownPenaltyKind)
	}
	secs, ok := m.Variant.Duration(kind)
	if !ok {
		return 0, fmt.Errorf("%w: %d in variant %s", ErrUnknownPenaltyKind, kind, m.Variant.Name)
	}
	return secs, nil
}

func playerSlot(m *game.Model, side, player int) (*protocol.RobotInfo, error) {
	if side != 0 && side != 1 {
		return nil, fmt.Errorf("%w: side=%d", ErrIndexOutOfRange, side)
	}
	if player < 1 || player > int(m.State.PlayersPerTeam) {
		return nil, fmt.Errorf("%w: player=%d players_per_team=%d", ErrIndexOutOfRange, player, m.State.PlayersPerTeam)
	}
	return &m.State.Teams[side].Players[player-1], nil
}

func coachSlot(m *game.Model, side int) (*protocol.RobotInfo, error) {
	if !m.Variant.HasCoach {
		return nil, ErrNoCoach
	}
	if side != 0 && side != 1 {
		return nil, fmt.Errorf("%w: side=%d", ErrIndexOutOfRange, side)
	}
	return &m.State.Teams[side].Coach, nil
}
