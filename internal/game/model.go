// Package game owns the authoritative match state: the broadcast record plus
// the controller-only bookkeeping needed to decide which transitions are
// legal. A Model has a single writer; readers receive value snapshots.
package game

import (
	"errors"
	"fmt"

	"github.com/danmuck/refctl/internal/protocol"
	"github.com/danmuck/refctl/internal/variant"
)

var (
	ErrInvalidTransition = errors.New("game: invalid transition")
	ErrInvalidSide       = errors.New("game: side must be 0 or 1")
)

// Setup is the per-session configuration fixed when the model is created.
type Setup struct {
	TeamNumbers [2]uint8
	SessionID   uint32
	KnockOut    bool
}

type Model struct {
	Variant variant.Variant
	State   protocol.GameState

	PreviousPeriod   protocol.Period
	TimeoutActive    [2]bool
	TimeoutTaken     [2]bool
	FirstHalfKickoff protocol.TeamColor
	HalfStarted      bool
	ReadyElapsed     uint16
}

func NewModel(v variant.Variant, setup Setup) *Model {
	gs := protocol.GameState{
		League:         v.League,
		SessionID:      setup.SessionID,
		PlayersPerTeam: v.PlayersPerTeam,
		Phase:          protocol.PhaseInitial,
		FirstHalf:      true,
		KickOffTeam:    protocol.TeamBlue,
		Period:         protocol.PeriodNormal,
		DropInTeam:     protocol.TeamNone,
		KnockOut:       setup.KnockOut,
		DropInTime:     protocol.DropInTimeNone,
		SecsRemaining:  v.Rules.HalfTime,
	}
	gs.Teams[0].TeamNumber = setup.TeamNumbers[0]
	gs.Teams[0].TeamColor = protocol.TeamBlue
	gs.Teams[1].TeamNumber = setup.TeamNumbers[1]
	gs.Teams[1].TeamColor = protocol.TeamRed
	return &Model{
		Variant:          v,
		State:            gs,
		PreviousPeriod:   protocol.PeriodNormal,
		FirstHalfKickoff: protocol.TeamBlue,
	}
}

// Snapshot returns a copy of the broadcast record that shares nothing with
// the model.
func (m *Model) Snapshot() protocol.GameState {
	return m.State
}

// Team returns a pointer into the model for side; callers must hold the
// writer role.
func (m *Model) Team(side int) (*protocol.TeamInfo, error) {
	if err := checkSide(side); err != nil {
		return nil, err
	}
	return &m.State.Teams[side], nil
}

// ClockRunning reports whether penalty countdowns advance this second.
func (m *Model) ClockRunning() bool {
	return m.State.Phase == protocol.PhasePlaying && m.State.Period != protocol.PeriodTimeout
}

// SetKickoff chooses the kicking team before play starts.
func (m *Model) SetKickoff(color protocol.TeamColor) error {
	if color != protocol.TeamBlue && color != protocol.TeamRed {
		return fmt.Errorf("%w: kickoff team %s", ErrInvalidTransition, color)
	}
	switch {
	case m.State.Period == protocol.PeriodPenaltyShootout,
		m.State.Period == protocol.PeriodTimeout,
		m.State.Phase != protocol.PhaseInitial && m.State.Phase != protocol.PhaseReady:
		return fmt.Errorf("%w: kickoff in phase=%s period=%s", ErrInvalidTransition, m.State.Phase, m.State.Period)
	}
	m.State.KickOffTeam = color
	if m.State.FirstHalf && !m.HalfStarted {
		m.FirstHalfKickoff = color
	}
	return nil
}

func checkSide(side int) error {
	if side != 0 && side != 1 {
		return fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	return nil
}
