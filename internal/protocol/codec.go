package protocol

import (
	"encoding/binary"
	"fmt"
)

const (
	gameStateHeaderSize = 24
	teamBaseSize        = 6
	robotSize           = 2
	coachSize           = CoachMessageSize + robotSize
)

// Layout is the variant-dependent part of the GameState wire contract.
type Layout struct {
	League   uint8
	HasCoach bool
	// Penalties lists the variant-specific penalty codes. None, substitute
	// and manual are always accepted and need not be listed.
	Penalties []PenaltyKind
}

// Codec encodes and decodes GameState records for one layout.
type Codec struct {
	layout    Layout
	penalties [256]bool
	size      int
}

func NewCodec(layout Layout) *Codec {
	c := &Codec{layout: layout}
	c.penalties[PenaltyNone] = true
	c.penalties[PenaltySubstitute] = true
	c.penalties[PenaltyManual] = true
	for _, k := range layout.Penalties {
		c.penalties[k] = true
	}
	team := teamBaseSize + MaxPlayers*robotSize
	if layout.HasCoach {
		team += coachSize
	}
	c.size = gameStateHeaderSize + 2*team
	return c
}

// Size is the exact length of every GameState record for this layout.
func (c *Codec) Size() int {
	return c.size
}

func (c *Codec) Layout() Layout {
	return c.layout
}

// KnownPenalty reports whether k belongs to this layout's enumeration.
func (c *Codec) KnownPenalty(k PenaltyKind) bool {
	return c.penalties[k]
}

// Marshal writes gs field by field. Slots at or beyond PlayersPerTeam are
// always written as the unpenalized sentinel.
func (c *Codec) Marshal(gs GameState) ([]byte, error) {
	if err := c.validate(gs); err != nil {
		return nil, err
	}
	w := cursor{buf: make([]byte, c.size)}
	w.putBytes([]byte(GameStateMagic))
	w.putU8(GameStateVersion)
	w.putU8(gs.League)
	w.putU8(gs.PacketNumber)
	w.putU32(gs.SessionID)
	w.putU8(gs.PlayersPerTeam)
	w.putU8(uint8(gs.Phase))
	w.putBool(gs.FirstHalf)
	w.putU8(uint8(gs.KickOffTeam))
	w.putU8(uint8(gs.Period))
	w.putU8(uint8(gs.DropInTeam))
	w.putBool(gs.KnockOut)
	w.putU16(gs.DropInTime)
	w.putU16(gs.SecsRemaining)
	w.putU16(gs.SecondaryTime)
	for i := range gs.Teams {
		c.writeTeam(&w, gs.Teams[i], int(gs.PlayersPerTeam))
	}
	return w.buf, nil
}

func (c *Codec) writeTeam(w *cursor, t TeamInfo, playersPerTeam int) {
	w.putU8(t.TeamNumber)
	w.putU8(uint8(t.TeamColor))
	w.putU8(t.Score)
	w.putU8(t.PenaltyShot)
	w.putU16(packShots(t.Shots))
	if c.layout.HasCoach {
		w.putBytes(t.CoachMessage[:])
		writeRobot(w, t.Coach)
	}
	for i := 0; i < MaxPlayers; i++ {
		if i < playersPerTeam {
			writeRobot(w, t.Players[i])
			continue
		}
		writeRobot(w, RobotInfo{})
	}
}

func writeRobot(w *cursor, r RobotInfo) {
	w.putU8(uint8(r.Penalty))
	w.putU8(r.SecsTillUnpenalized)
}

// Unmarshal decodes buf into a fresh GameState. Validation order: length,
// magic, version, league, then every enumerated field.
func (c *Codec) Unmarshal(buf []byte) (GameState, error) {
	if len(buf) != c.size {
		return GameState{}, badLength(len(buf), c.size)
	}
	if string(buf[0:4]) != GameStateMagic {
		return GameState{}, ErrBadMagic
	}
	if buf[4] != GameStateVersion {
		return GameState{}, fmt.Errorf("%w: got=%d want=%d", ErrBadVersion, buf[4], GameStateVersion)
	}

	r := cursor{buf: buf, off: 5}
	var gs GameState
	gs.League = r.u8()
	if gs.League != c.layout.League {
		return GameState{}, badEnum("league", gs.League)
	}
	gs.PacketNumber = r.u8()
	gs.SessionID = r.u32()
	gs.PlayersPerTeam = r.u8()
	if gs.PlayersPerTeam > MaxPlayers {
		return GameState{}, badEnum("players_per_team", gs.PlayersPerTeam)
	}

	var err error
	if gs.Phase, err = decodePhase(r.u8()); err != nil {
		return GameState{}, err
	}
	if gs.FirstHalf, err = decodeBool("first_half", r.u8()); err != nil {
		return GameState{}, err
	}
	if gs.KickOffTeam, err = decodeTeam("kick_off_team", r.u8(), true); err != nil {
		return GameState{}, err
	}
	if gs.Period, err = decodePeriod(r.u8()); err != nil {
		return GameState{}, err
	}
	if gs.DropInTeam, err = decodeTeam("drop_in_team", r.u8(), true); err != nil {
		return GameState{}, err
	}
	if gs.KnockOut, err = decodeBool("knock_out", r.u8()); err != nil {
		return GameState{}, err
	}
	gs.DropInTime = r.u16()
	gs.SecsRemaining = r.u16()
	gs.SecondaryTime = r.u16()

	for i := range gs.Teams {
		team, err := c.readTeam(&r, i, int(gs.PlayersPerTeam))
		if err != nil {
			return GameState{}, err
		}
		gs.Teams[i] = team
	}
	return gs, nil
}

func (c *Codec) readTeam(r *cursor, side, playersPerTeam int) (TeamInfo, error) {
	var t TeamInfo
	var err error
	t.TeamNumber = r.u8()
	if t.TeamColor, err = decodeTeam(fmt.Sprintf("teams[%d].team_color", side), r.u8(), false); err != nil {
		return TeamInfo{}, err
	}
	t.Score = r.u8()
	t.PenaltyShot = r.u8()
	t.Shots = unpackShots(r.u16())
	if c.layout.HasCoach {
		copy(t.CoachMessage[:], r.bytes(CoachMessageSize))
		coach, err := c.readRobot(r, fmt.Sprintf("teams[%d].coach", side))
		if err != nil {
			return TeamInfo{}, err
		}
		t.Coach = coach
	}
	for i := 0; i < MaxPlayers; i++ {
		if i >= playersPerTeam {
			r.skip(robotSize)
			continue
		}
		p, err := c.readRobot(r, fmt.Sprintf("teams[%d].players[%d]", side, i))
		if err != nil {
			return TeamInfo{}, err
		}
		t.Players[i] = p
	}
	return t, nil
}

func (c *Codec) readRobot(r *cursor, field string) (RobotInfo, error) {
	kind := PenaltyKind(r.u8())
	secs := r.u8()
	if !c.penalties[kind] {
		return RobotInfo{}, badEnum(field+".penalty", uint8(kind))
	}
	return RobotInfo{Penalty: kind, SecsTillUnpenalized: secs}, nil
}

func (c *Codec) validate(gs GameState) error {
	if gs.League != c.layout.League {
		return badEnum("league", gs.League)
	}
	if gs.PlayersPerTeam > MaxPlayers {
		return badEnum("players_per_team", gs.PlayersPerTeam)
	}
	if !gs.Phase.Valid() {
		return badEnum("phase", uint8(gs.Phase))
	}
	if !gs.Period.Valid() {
		return badEnum("period", uint8(gs.Period))
	}
	if gs.KickOffTeam > TeamNone {
		return badEnum("kick_off_team", uint8(gs.KickOffTeam))
	}
	if gs.DropInTeam > TeamNone {
		return badEnum("drop_in_team", uint8(gs.DropInTeam))
	}
	for i, t := range gs.Teams {
		if t.TeamColor > TeamRed {
			return badEnum(fmt.Sprintf("teams[%d].team_color", i), uint8(t.TeamColor))
		}
		if c.layout.HasCoach && !c.penalties[t.Coach.Penalty] {
			return badEnum(fmt.Sprintf("teams[%d].coach.penalty", i), uint8(t.Coach.Penalty))
		}
		if !c.layout.HasCoach {
			if err := noCoach(i, t); err != nil {
				return err
			}
		}
		for j := 0; j < int(gs.PlayersPerTeam); j++ {
			if !c.penalties[t.Players[j].Penalty] {
				return badEnum(fmt.Sprintf("teams[%d].players[%d].penalty", i, j), uint8(t.Players[j].Penalty))
			}
		}
	}
	return nil
}

// noCoach rejects coach data that a layout without a coach record would
// silently drop.
func noCoach(side int, t TeamInfo) error {
	if t.Coach.Penalty != PenaltyNone {
		return badEnum(fmt.Sprintf("teams[%d].coach.penalty", side), uint8(t.Coach.Penalty))
	}
	if t.Coach.SecsTillUnpenalized != 0 {
		return badEnum(fmt.Sprintf("teams[%d].coach.secs_till_unpenalized", side), t.Coach.SecsTillUnpenalized)
	}
	for _, b := range t.CoachMessage {
		if b != 0 {
			return badEnum(fmt.Sprintf("teams[%d].coach_message", side), b)
		}
	}
	return nil
}

func decodePhase(v uint8) (Phase, error) {
	p := Phase(v)
	if !p.Valid() {
		return 0, badEnum("phase", v)
	}
	return p, nil
}

func decodePeriod(v uint8) (Period, error) {
	p := Period(v)
	if !p.Valid() {
		return 0, badEnum("period", v)
	}
	return p, nil
}

func decodeTeam(field string, v uint8, allowNone bool) (TeamColor, error) {
	c := TeamColor(v)
	if c == TeamBlue || c == TeamRed || (allowNone && c == TeamNone) {
		return c, nil
	}
	return 0, badEnum(field, v)
}

func decodeBool(field string, v uint8) (bool, error) {
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, badEnum(field, v)
	}
}

// cursor walks a fixed-size buffer. Callers check the total length up front,
// so individual reads and writes never run past the end.
type cursor struct {
	buf []byte
	off int
}

func (c *cursor) putU8(v uint8) {
	c.buf[c.off] = v
	c.off++
}

func (c *cursor) putBool(v bool) {
	if v {
		c.putU8(1)
		return
	}
	c.putU8(0)
}

func (c *cursor) putU16(v uint16) {
	binary.LittleEndian.PutUint16(c.buf[c.off:c.off+2], v)
	c.off += 2
}

func (c *cursor) putU32(v uint32) {
	binary.LittleEndian.PutUint32(c.buf[c.off:c.off+4], v)
	c.off += 4
}

func (c *cursor) putBytes(b []byte) {
	c.off += copy(c.buf[c.off:], b)
}

func (c *cursor) u8() uint8 {
	v := c.buf[c.off]
	c.off++
	return v
}

func (c *cursor) u16() uint16 {
	v := binary.LittleEndian.Uint16(c.buf[c.off : c.off+2])
	c.off += 2
	return v
}

func (c *cursor) u32() uint32 {
	v := binary.LittleEndian.Uint32(c.buf[c.off : c.off+4])
	c.off += 4
	return v
}

func (c *cursor) bytes(n int) []byte {
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b
}

func (c *cursor) skip(n int) {
	c.off += n
}
