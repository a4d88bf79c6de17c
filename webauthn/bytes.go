package webauthn

import (
	"encoding/json"
	"errors"
)

// Bytes is a byte slice that marshals to and from a JSON array of uint8
// values, matching how browser clients serialize ArrayBuffers.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	out := make([]uint16, len(b))
	for i, v := range b {
		out[i] = uint16(v)
	}
	return json.Marshal(out)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var raw []int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]byte, len(raw))
	for i, v := range raw {
		if v < 0 || v > 255 {
			return errors.New("byte array element out of range")
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}
