package protocol

import "fmt"

const (
	GameStateMagic   = "RGme"
	GameStateVersion = 9

	ReturnDataMagic   = "RGrt"
	ReturnDataVersion = 2

	// DefaultPort is the well-known UDP port for both directions.
	DefaultPort = 3838

	MaxPlayers       = 11
	CoachMessageSize = 40
	MaxShots         = 16

	// DropInTimeNone is carried in drop_in_time before the first drop-in.
	DropInTimeNone uint16 = 0xFFFF
)

// Phase is the stage of the current half.
type Phase uint8

const (
	PhaseInitial Phase = iota
	PhaseReady
	PhaseSet
	PhasePlaying
	PhaseFinished
)

func (p Phase) Valid() bool { return p <= PhaseFinished }

func (p Phase) String() string {
	switch p {
	case PhaseInitial:
		return "initial"
	case PhaseReady:
		return "ready"
	case PhaseSet:
		return "set"
	case PhasePlaying:
		return "playing"
	case PhaseFinished:
		return "finished"
	default:
		return fmt.Sprintf("phase(%d)", uint8(p))
	}
}

// Period is the overall segment of the match.
type Period uint8

const (
	PeriodNormal Period = iota
	PeriodPenaltyShootout
	PeriodOvertime
	PeriodTimeout
)

func (p Period) Valid() bool { return p <= PeriodTimeout }

func (p Period) String() string {
	switch p {
	case PeriodNormal:
		return "normal"
	case PeriodPenaltyShootout:
		return "penalty_shootout"
	case PeriodOvertime:
		return "overtime"
	case PeriodTimeout:
		return "timeout"
	default:
		return fmt.Sprintf("period(%d)", uint8(p))
	}
}

// TeamColor identifies a team on the wire. TeamNone doubles as "drop ball"
// for the kickoff field and "no drop-in yet" for the drop-in field.
type TeamColor uint8

const (
	TeamBlue TeamColor = iota
	TeamRed
	TeamNone

	KickOffDropBall = TeamNone
)

func (c TeamColor) String() string {
	switch c {
	case TeamBlue:
		return "blue"
	case TeamRed:
		return "red"
	case TeamNone:
		return "none"
	default:
		return fmt.Sprintf("team(%d)", uint8(c))
	}
}

// Other returns the opposing color; TeamNone has no opponent.
func (c TeamColor) Other() TeamColor {
	switch c {
	case TeamBlue:
		return TeamRed
	case TeamRed:
		return TeamBlue
	default:
		return c
	}
}

// PenaltyKind is the per-participant penalty code. The set of valid codes
// depends on the active variant; the three below are shared by all of them.
type PenaltyKind uint8

const (
	PenaltyNone       PenaltyKind = 0
	PenaltySubstitute PenaltyKind = 14
	PenaltyManual     PenaltyKind = 15
)

// Administrative penalties are released only by an explicit unpenalize.
func (k PenaltyKind) Administrative() bool {
	return k == PenaltySubstitute || k == PenaltyManual
}

// ReturnMessage is the kind carried by a ReturnData record.
type ReturnMessage uint8

const (
	ReturnPenalize ReturnMessage = iota
	ReturnUnpenalize
	ReturnAlive
)

func (m ReturnMessage) Valid() bool { return m <= ReturnAlive }

func (m ReturnMessage) String() string {
	switch m {
	case ReturnPenalize:
		return "penalize"
	case ReturnUnpenalize:
		return "unpenalize"
	case ReturnAlive:
		return "alive"
	default:
		return fmt.Sprintf("message(%d)", uint8(m))
	}
}
