// Package framing turns a noisy byte stream into discrete checksum-validated
// records and encodes outbound requests in the same wire format.
//
// The wire format is ASCII: '@' starts a frame, fields are comma separated,
// '*' terminates the frame and is followed by one raw CRC-8 byte computed
// over every byte before the '*' (the terminator itself is excluded). The
// parser consumes exactly one byte per call and never blocks. A checksum
// mismatch discards the frame silently and returns the parser to preamble
// scanning: on a half-duplex serial link mismatches are expected line noise,
// not faults. Discards are counted so supervisory diagnostics can observe
// line quality.
package framing

// CRC8 computes an 8-bit cyclic redundancy check, most significant bit
// first, with a configurable polynomial.
type CRC8 struct {
	table [256]uint8
	value uint8
}

// NewCRC8 creates a CRC8 instance for the given polynomial.
func NewCRC8(poly uint8) *CRC8 {
	c := &CRC8{}
	for i := 0; i < 256; i++ {
		crc := uint8(i)
		for bit := 0; bit < 8; bit++ {
			if crc&0x80 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		c.table[i] = crc
	}
	return c
}

// PutByte folds one byte into the running value and returns the new value.
func (c *CRC8) PutByte(b uint8) uint8 {
	c.value = c.table[c.value^b]
	return c.value
}

// PutArray folds a byte slice into the running value and returns it.
func (c *CRC8) PutArray(data []byte) uint8 {
	for _, b := range data {
		c.PutByte(b)
	}
	return c.value
}

// Value returns the current checksum value.
func (c *CRC8) Value() uint8 { return c.value }

// Reset clears the running value.
func (c *CRC8) Reset() { c.value = 0 }
