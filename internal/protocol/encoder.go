package protocol

// Encoder stamps the packet sequence number on each encoded GameState.
// It is owned by the broadcasting loop and is not safe for concurrent use.
type Encoder struct {
	codec *Codec
	next  uint8
}

func NewEncoder(codec *Codec, start uint8) *Encoder {
	return &Encoder{codec: codec, next: start}
}

// Encode writes gs with the current sequence number, then advances the
// counter modulo 256. A failed encode leaves the counter untouched.
func (e *Encoder) Encode(gs GameState) ([]byte, error) {
	gs.PacketNumber = e.next
	buf, err := e.codec.Marshal(gs)
	if err != nil {
		return nil, err
	}
	e.next++
	return buf, nil
}

// Next returns the sequence number the next Encode will stamp.
func (e *Encoder) Next() uint8 {
	return e.next
}

func (e *Encoder) Codec() *Codec {
	return e.codec
}
