package game

import (
	"fmt"

	"github.com/danmuck/refctl/internal/protocol"
)

// Apply commits d to the model when the transition is legal. On error the
// model is left exactly as it was.
func (m *Model) Apply(d Directive) error {
	next, err := Apply(*m, d)
	if err != nil {
		return err
	}
	*m = next
	return nil
}

// Apply computes the model that results from d. It works on a copy, so the
// input is never modified.
func Apply(m Model, d Directive) (Model, error) {
	if d.Kind.Sided() {
		if err := checkSide(d.Side); err != nil {
			return m, err
		}
	}
	orig := m
	s := &m.State
	phase, period := s.Phase, s.Period
	reject := func() (Model, error) {
		return orig, fmt.Errorf("%w: %s in phase=%s period=%s", ErrInvalidTransition, d, phase, period)
	}

	switch d.Kind {
	case DirectiveReady:
		if phase == protocol.PhaseReady {
			return m, nil
		}
		if phase != protocol.PhaseInitial || !regularPeriod(period) || m.timeoutRunning() {
			return reject()
		}
		m.enterReady()

	case DirectiveSet:
		switch {
		case phase == protocol.PhaseSet:
			return m, nil
		case phase == protocol.PhaseReady:
			s.Phase = protocol.PhaseSet
			s.SecondaryTime = 0
		case period == protocol.PeriodPenaltyShootout &&
			(phase == protocol.PhaseInitial || phase == protocol.PhaseFinished):
			if phase == protocol.PhaseFinished {
				s.KickOffTeam = s.KickOffTeam.Other()
			}
			side, ok := s.SideOf(s.KickOffTeam)
			if !ok {
				return reject()
			}
			secs, ok := m.shotClock(s.Teams[side].PenaltyShot + 1)
			if !ok {
				return reject()
			}
			s.Teams[side].PenaltyShot++
			s.Phase = protocol.PhaseSet
			s.SecsRemaining = secs
			s.SecondaryTime = 0
		default:
			return reject()
		}

	case DirectivePlay:
		if phase == protocol.PhasePlaying {
			return m, nil
		}
		if phase != protocol.PhaseSet {
			return reject()
		}
		s.Phase = protocol.PhasePlaying
		s.SecondaryTime = 0
		m.HalfStarted = true

	case DirectiveFinish:
		switch phase {
		case protocol.PhaseFinished:
			return m, nil
		case protocol.PhaseReady, protocol.PhaseSet, protocol.PhasePlaying:
			s.Phase = protocol.PhaseFinished
			s.SecondaryTime = 0
			if s.FirstHalf && regularPeriod(period) {
				s.SecondaryTime = m.Variant.Rules.PauseTime
			}
		default:
			return reject()
		}

	case DirectiveGoal:
		if phase != protocol.PhasePlaying {
			return reject()
		}
		team := &s.Teams[d.Side]
		if team.Score == 255 {
			return reject()
		}
		if period == protocol.PeriodPenaltyShootout {
			if team.TeamColor != s.KickOffTeam || team.PenaltyShot == 0 {
				return reject()
			}
			team.Score++
			team.Shots[team.PenaltyShot-1] = true
			s.Phase = protocol.PhaseFinished
			break
		}
		team.Score++
		s.KickOffTeam = team.TeamColor.Other()
		m.enterReady()

	case DirectiveDropBall:
		if phase != protocol.PhasePlaying || period == protocol.PeriodPenaltyShootout {
			return reject()
		}
		s.KickOffTeam = protocol.KickOffDropBall
		s.DropInTeam = s.Teams[d.Side].TeamColor
		s.DropInTime = 0
		m.enterReady()

	case DirectiveSecondHalf:
		if phase != protocol.PhaseFinished || !s.FirstHalf || !regularPeriod(period) {
			return reject()
		}
		s.FirstHalf = false
		s.Phase = protocol.PhaseInitial
		s.KickOffTeam = m.FirstHalfKickoff.Other()
		s.SecsRemaining = m.halfTime()
		s.SecondaryTime = 0
		m.HalfStarted = false
		if m.Variant.Rules.TimeoutPerHalf {
			m.TimeoutTaken = [2]bool{}
		}

	case DirectiveOvertime:
		rules := m.Variant.Rules
		if phase != protocol.PhaseFinished || s.FirstHalf || period != protocol.PeriodNormal ||
			!s.KnockOut || !rules.Overtime || s.Teams[0].Score != s.Teams[1].Score {
			return reject()
		}
		s.Period = protocol.PeriodOvertime
		s.FirstHalf = true
		s.Phase = protocol.PhaseInitial
		s.KickOffTeam = m.FirstHalfKickoff
		s.SecsRemaining = rules.OvertimeTime
		s.SecondaryTime = 0
		m.HalfStarted = false

	case DirectivePenaltyShootout:
		if phase != protocol.PhaseFinished || s.FirstHalf || !regularPeriod(period) {
			return reject()
		}
		s.Period = protocol.PeriodPenaltyShootout
		s.FirstHalf = true
		s.Phase = protocol.PhaseInitial
		s.KickOffTeam = m.FirstHalfKickoff
		s.SecsRemaining = m.Variant.Rules.ShotTime
		s.SecondaryTime = 0
		for i := range s.Teams {
			t := &s.Teams[i]
			t.PenaltyShot = 0
			t.Shots = [protocol.MaxShots]bool{}
			t.Coach = protocol.RobotInfo{}
			t.Players = [protocol.MaxPlayers]protocol.RobotInfo{}
		}
		m.HalfStarted = false

	case DirectiveTimeoutBegin:
		if (phase != protocol.PhaseReady && phase != protocol.PhaseSet) ||
			period == protocol.PeriodTimeout || m.timeoutRunning() || m.TimeoutTaken[d.Side] {
			return reject()
		}
		// An attempt that was set up but not taken is set up again after the
		// timeout, so it must not stay counted.
		if period == protocol.PeriodPenaltyShootout && phase == protocol.PhaseSet {
			if kick, ok := s.SideOf(s.KickOffTeam); ok && s.Teams[kick].PenaltyShot > 0 {
				s.Teams[kick].PenaltyShot--
			}
		}
		m.PreviousPeriod = period
		m.TimeoutActive[d.Side] = true
		m.TimeoutTaken[d.Side] = true
		s.Period = protocol.PeriodTimeout
		s.Phase = protocol.PhaseInitial
		s.SecondaryTime = m.Variant.Rules.TimeoutTime
		if m.Variant.Rules.TimeoutGivesKickoff && period != protocol.PeriodPenaltyShootout {
			s.KickOffTeam = s.Teams[d.Side].TeamColor.Other()
		}

	case DirectiveTimeoutEnd:
		if period != protocol.PeriodTimeout || !m.TimeoutActive[d.Side] {
			return reject()
		}
		m.TimeoutActive[d.Side] = false
		s.Period = m.PreviousPeriod
		s.SecondaryTime = 0
		if s.Period == protocol.PeriodPenaltyShootout {
			s.Phase = protocol.PhaseInitial
			break
		}
		m.enterReady()

	default:
		return reject()
	}
	return m, nil
}

func (m *Model) enterReady() {
	m.State.Phase = protocol.PhaseReady
	m.ReadyElapsed = 0
	m.State.SecondaryTime = m.Variant.Rules.ReadyTime
}

// shotClock returns the clock for shootout attempt n (1-based), or false
// when the variant allows no such attempt.
func (m *Model) shotClock(n uint8) (uint16, bool) {
	r := m.Variant.Rules
	switch {
	case n > protocol.MaxShots:
		return 0, false
	case n <= r.ShootoutShots:
		return r.ShotTime, true
	case r.SuddenDeath:
		return r.SuddenDeathShotTime, true
	default:
		return 0, false
	}
}

func (m *Model) timeoutRunning() bool {
	return m.TimeoutActive[0] || m.TimeoutActive[1]
}

func (m *Model) halfTime() uint16 {
	if m.State.Period == protocol.PeriodOvertime {
		return m.Variant.Rules.OvertimeTime
	}
	return m.Variant.Rules.HalfTime
}

func regularPeriod(p protocol.Period) bool {
	return p == protocol.PeriodNormal || p == protocol.PeriodOvertime
}
