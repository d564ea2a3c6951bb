package protocol

// RobotInfo is one participant slot.
type RobotInfo struct {
	Penalty             PenaltyKind `json:"penalty"`
	SecsTillUnpenalized uint8       `json:"secs_till_unpenalized"`
}

// Penalized reports whether the slot holds an active penalty.
func (r RobotInfo) Penalized() bool {
	return r.Penalty != PenaltyNone
}

// TeamInfo is one team record. CoachMessage and Coach are only carried on the
// wire by variants with a coach.
type TeamInfo struct {
	TeamNumber   uint8                  `json:"team_number"`
	TeamColor    TeamColor              `json:"team_color"`
	Score        uint8                  `json:"score"`
	PenaltyShot  uint8                  `json:"penalty_shot"`
	Shots        [MaxShots]bool         `json:"shots"`
	CoachMessage [CoachMessageSize]byte `json:"coach_message"`
	Coach        RobotInfo              `json:"coach"`
	Players      [MaxPlayers]RobotInfo  `json:"players"`
}

// GameState is the full broadcast snapshot. It holds only value fields, so a
// plain assignment is a deep copy and == compares every field.
type GameState struct {
	League         uint8       `json:"league"`
	PacketNumber   uint8       `json:"packet_number"`
	SessionID      uint32      `json:"session_id"`
	PlayersPerTeam uint8       `json:"players_per_team"`
	Phase          Phase       `json:"phase"`
	FirstHalf      bool        `json:"first_half"`
	KickOffTeam    TeamColor   `json:"kick_off_team"`
	Period         Period      `json:"period"`
	DropInTeam     TeamColor   `json:"drop_in_team"`
	KnockOut       bool        `json:"knock_out"`
	DropInTime     uint16      `json:"drop_in_time"`
	SecsRemaining  uint16      `json:"secs_remaining"`
	SecondaryTime  uint16      `json:"secondary_time"`
	Teams          [2]TeamInfo `json:"teams"`
}

// TeamIndex returns the side (0 or 1) holding teamNumber.
func (g GameState) TeamIndex(teamNumber uint8) (int, bool) {
	for i := range g.Teams {
		if g.Teams[i].TeamNumber == teamNumber {
			return i, true
		}
	}
	return -1, false
}

// SideOf returns the side currently wearing color.
func (g GameState) SideOf(color TeamColor) (int, bool) {
	for i := range g.Teams {
		if g.Teams[i].TeamColor == color {
			return i, true
		}
	}
	return -1, false
}
