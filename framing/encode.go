package framing

import (
	"fmt"
)

// Encoder builds outbound frames with the trailing checksum byte.
type Encoder struct {
	poly uint8
}

// NewEncoder creates an encoder using the given CRC-8 polynomial.
func NewEncoder(poly uint8) *Encoder {
	return &Encoder{poly: poly}
}

// EncodeRead builds a read request for one field of one device:
// "@R,<id>,<field>,*" followed by the checksum byte.
func (e *Encoder) EncodeRead(device int, field string) []byte {
	return e.seal(fmt.Sprintf("@R,%d,%s,*", device, field))
}

// EncodeWrite builds a write command for one device:
// "@S,<id>,<value>,*" followed by the checksum byte.
func (e *Encoder) EncodeWrite(device int, value int) []byte {
	return e.seal(fmt.Sprintf("@S,%d,%d,*", device, value))
}

// seal appends the CRC-8 of every byte before the trailing '*'.
func (e *Encoder) seal(frame string) []byte {
	crc := NewCRC8(e.poly)
	crc.PutArray([]byte(frame[:len(frame)-1]))
	return append([]byte(frame), crc.Value())
}
