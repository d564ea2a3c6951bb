package game

import "github.com/danmuck/refctl/internal/protocol"

// Tick advances the game clock by one second.
func (m *Model) Tick() {
	s := &m.State
	if s.DropInTime != protocol.DropInTimeNone && s.DropInTime < protocol.DropInTimeNone-1 &&
		s.Phase != protocol.PhaseInitial && s.Phase != protocol.PhaseFinished {
		s.DropInTime++
	}

	if s.Period == protocol.PeriodTimeout {
		countDown(&s.SecondaryTime)
		return
	}

	switch s.Phase {
	case protocol.PhaseReady:
		m.ReadyElapsed++
		ready := m.Variant.Rules.ReadyTime
		if m.ReadyElapsed >= ready {
			s.Phase = protocol.PhaseSet
			s.SecondaryTime = 0
		} else {
			s.SecondaryTime = ready - m.ReadyElapsed
		}
		if m.stoppageClockRuns() {
			countDown(&s.SecsRemaining)
		}
	case protocol.PhaseSet:
		if m.stoppageClockRuns() {
			countDown(&s.SecsRemaining)
		}
	case protocol.PhasePlaying:
		countDown(&s.SecsRemaining)
	case protocol.PhaseFinished:
		countDown(&s.SecondaryTime)
	}
}

// stoppageClockRuns reports whether the half clock keeps running between a
// goal and the next kickoff.
func (m *Model) stoppageClockRuns() bool {
	if !m.HalfStarted || m.State.Period == protocol.PeriodPenaltyShootout {
		return false
	}
	return !(m.State.KnockOut && m.Variant.Rules.PlayOffTimeStop)
}

func countDown(v *uint16) {
	if *v > 0 {
		*v--
	}
}
