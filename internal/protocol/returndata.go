package protocol

import "fmt"

// ReturnDataSize is the exact length of a ReturnData record.
const ReturnDataSize = 8

// ReturnData is the participant -> controller record. Player is 1-based.
type ReturnData struct {
	Team    uint8         `json:"team"`
	Player  uint8         `json:"player"`
	Message ReturnMessage `json:"message"`
}

func MarshalReturnData(rd ReturnData) ([]byte, error) {
	if !rd.Message.Valid() {
		return nil, badEnum("message", uint8(rd.Message))
	}
	buf := make([]byte, ReturnDataSize)
	copy(buf[0:4], ReturnDataMagic)
	buf[4] = ReturnDataVersion
	buf[5] = rd.Team
	buf[6] = rd.Player
	buf[7] = uint8(rd.Message)
	return buf, nil
}

func UnmarshalReturnData(buf []byte) (ReturnData, error) {
	if len(buf) != ReturnDataSize {
		return ReturnData{}, badLength(len(buf), ReturnDataSize)
	}
	if string(buf[0:4]) != ReturnDataMagic {
		return ReturnData{}, ErrBadMagic
	}
	if buf[4] != ReturnDataVersion {
		return ReturnData{}, fmt.Errorf("%w: got=%d want=%d", ErrBadVersion, buf[4], ReturnDataVersion)
	}
	msg := ReturnMessage(buf[7])
	if !msg.Valid() {
		return ReturnData{}, badEnum("message", buf[7])
	}
	return ReturnData{Team: buf[5], Player: buf[6], Message: msg}, nil
}

// Kind classifies a datagram by its magic.
type Kind int

const (
	KindUnknown Kind = iota
	KindGameState
	KindReturnData
)

func (k Kind) String() string {
	switch k {
	case KindGameState:
		return "game_state"
	case KindReturnData:
		return "return_data"
	default:
		return "unknown"
	}
}

// PacketKind inspects only the magic; it does not validate the record.
func PacketKind(buf []byte) Kind {
	if len(buf) < 4 {
		return KindUnknown
	}
	switch string(buf[0:4]) {
	case GameStateMagic:
		return KindGameState
	case ReturnDataMagic:
		return KindReturnData
	default:
		return KindUnknown
	}
}
