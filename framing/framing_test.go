package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checksumOf(frame string) byte {
	crc := NewCRC8(DefaultPoly)
	crc.PutArray([]byte(frame[:len(frame)-1]))
	return crc.Value()
}

func TestCRC8KnownProperties(t *testing.T) {
	crc := NewCRC8(DefaultPoly)
	assert.Equal(t, uint8(0), crc.Value())

	v1 := crc.PutByte('@')
	crc.Reset()
	v2 := crc.PutByte('@')
	assert.Equal(t, v1, v2, "deterministic")

	crc.Reset()
	a := crc.PutArray([]byte("@R,2,rpm,"))
	crc.Reset()
	b := crc.PutArray([]byte("@R,3,rpm,"))
	assert.NotEqual(t, a, b, "different input, different checksum")
}

func TestParserDecodesValidFrame(t *testing.T) {
	p := NewParser(DefaultPoly)

	frame := "@R,2,rpm,*"
	var rec Record
	var ok bool
	for _, b := range []byte(frame) {
		rec, ok = p.Feed(b)
		assert.False(t, ok, "frame incomplete before checksum byte")
	}
	rec, ok = p.Feed(checksumOf(frame))
	require.True(t, ok)
	assert.Equal(t, "R", rec.Op)
	assert.Equal(t, 2, rec.Device)
	assert.Equal(t, "rpm", rec.Field)
	assert.False(t, rec.HasValue)
	assert.Equal(t, uint64(1), p.Decoded())
}

func TestParserRejectsCorruptChecksum(t *testing.T) {
	p := NewParser(DefaultPoly)

	frame := "@R,2,rpm,*"
	for _, b := range []byte(frame) {
		p.Feed(b)
	}
	// Flip one bit of the checksum byte
	_, ok := p.Feed(checksumOf(frame) ^ 0x01)
	assert.False(t, ok)
	assert.True(t, p.InPreamble(), "parser recovers to preamble")
	assert.Equal(t, uint64(1), p.Dropped())

	_, found := p.Latest(2)
	assert.False(t, found, "invalid frame leaves no trace")

	// Parser still decodes the next clean frame
	for _, b := range []byte(frame) {
		p.Feed(b)
	}
	_, ok = p.Feed(checksumOf(frame))
	assert.True(t, ok)
}

func TestParserIgnoresNoiseBeforePreamble(t *testing.T) {
	p := NewParser(DefaultPoly)

	for _, b := range []byte{0x00, 0xFF, 'x', '*', ','} {
		_, ok := p.Feed(b)
		assert.False(t, ok)
	}

	frame := "@S,1,100,*"
	for _, b := range []byte(frame) {
		p.Feed(b)
	}
	rec, ok := p.Feed(checksumOf(frame))
	require.True(t, ok)
	assert.Equal(t, "S", rec.Op)
	assert.Equal(t, 1, rec.Device)
	require.True(t, rec.HasValue)
	assert.Equal(t, int64(100), rec.Value)
}

func TestParserRestartsOnMidFrameDelimiter(t *testing.T) {
	p := NewParser(DefaultPoly)

	// Truncated frame interrupted by a fresh start delimiter
	for _, b := range []byte("@R,2,r") {
		p.Feed(b)
	}
	frame := "@R,3,tmp,*"
	for _, b := range []byte(frame) {
		p.Feed(b)
	}
	rec, ok := p.Feed(checksumOf(frame))
	require.True(t, ok)
	assert.Equal(t, 3, rec.Device)
	assert.Equal(t, "tmp", rec.Field)
}

func TestParserBoundsFrameLength(t *testing.T) {
	p := NewParser(DefaultPoly)

	p.Feed('@')
	for i := 0; i < maxFrame+8; i++ {
		_, ok := p.Feed('a')
		assert.False(t, ok)
	}
	assert.True(t, p.InPreamble(), "oversized frame abandoned")
}

func TestLatestPerDevice(t *testing.T) {
	p := NewParser(DefaultPoly)

	feed := func(frame string) {
		for _, b := range []byte(frame) {
			p.Feed(b)
		}
		_, ok := p.Feed(checksumOf(frame))
		require.True(t, ok)
	}

	feed("@R,0,1200,*")
	feed("@R,1,800,*")

	rec, ok := p.Latest(0)
	require.True(t, ok)
	assert.Equal(t, int64(1200), rec.Value)

	// Overwritten by the next successful frame for the same id
	feed("@R,0,1250,*")
	rec, _ = p.Latest(0)
	assert.Equal(t, int64(1250), rec.Value)

	rec, ok = p.Latest(1)
	require.True(t, ok)
	assert.Equal(t, int64(800), rec.Value)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	enc := NewEncoder(DefaultPoly)
	p := NewParser(DefaultPoly)

	wire := enc.EncodeRead(3, "state")
	var rec Record
	var ok bool
	for _, b := range wire {
		rec, ok = p.Feed(b)
	}
	require.True(t, ok)
	assert.Equal(t, "R", rec.Op)
	assert.Equal(t, 3, rec.Device)
	assert.Equal(t, "state", rec.Field)
}

func TestEncodeWriteFormat(t *testing.T) {
	enc := NewEncoder(DefaultPoly)

	wire := enc.EncodeWrite(2, 1500)
	require.Greater(t, len(wire), 1)
	assert.Equal(t, "@S,2,1500,*", string(wire[:len(wire)-1]))
	assert.Equal(t, checksumOf("@S,2,1500,*"), wire[len(wire)-1])
}
