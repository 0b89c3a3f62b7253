package framing

import (
	"strconv"
)

const (
	// DefaultPoly is the CRC-8 polynomial used by the motor controller link.
	DefaultPoly uint8 = 0x07

	// maxFrame bounds an in-progress frame. Anything longer is line noise.
	maxFrame = 32

	startDelimiter = '@'
	fieldSeparator = ','
	terminator     = '*'
)

// parserState tracks progress through one frame.
type parserState int

const (
	statePreamble parserState = iota
	stateField
	stateChecksum
)

// Record is one complete, checksum-validated unit decoded from the stream.
type Record struct {
	// Op is the first field: "R" for read traffic, "S" for writes.
	Op string
	// Device is the numeric device id from the second field.
	Device int
	// Field is the textual argument (e.g. "rpm"), empty if none.
	Field string
	// Value is the numeric argument, valid only when HasValue is set.
	Value int64
	// HasValue reports whether a numeric argument was present.
	HasValue bool
}

// Parser decodes frames one byte at a time. Not safe for concurrent use: a
// parser belongs to the task that owns the device.
type Parser struct {
	state  parserState
	crc    *CRC8
	fields []string
	cur    []byte
	n      int

	latest  map[int]Record
	decoded uint64
	dropped uint64
}

// NewParser creates a parser with the given CRC-8 polynomial.
func NewParser(poly uint8) *Parser {
	return &Parser{
		crc:    NewCRC8(poly),
		latest: make(map[int]Record),
	}
}

// Feed consumes exactly one byte. It returns a valid Record and true when
// the byte completed a frame whose checksum validated. Invalid or partial
// frames leave no observable trace beyond the drop counter.
func (p *Parser) Feed(b byte) (Record, bool) {
	switch p.state {
	case statePreamble:
		if b == startDelimiter {
			p.begin()
		}

	case stateField:
		if b == startDelimiter {
			// A new start delimiter mid-frame means the previous frame was
			// truncated; restart on the fresh one.
			p.begin()
			return Record{}, false
		}
		if b == terminator {
			p.state = stateChecksum
			return Record{}, false
		}
		p.n++
		if p.n > maxFrame {
			p.reset()
			return Record{}, false
		}
		p.crc.PutByte(b)
		if b == fieldSeparator {
			p.fields = append(p.fields, string(p.cur))
			p.cur = p.cur[:0]
		} else {
			p.cur = append(p.cur, b)
		}

	case stateChecksum:
		expected := p.crc.Value()
		if b != expected {
			p.dropped++
			p.reset()
			return Record{}, false
		}
		rec, ok := p.finish()
		p.reset()
		if ok {
			p.decoded++
			p.latest[rec.Device] = rec
		}
		return rec, ok
	}
	return Record{}, false
}

func (p *Parser) begin() {
	p.state = stateField
	p.crc.Reset()
	p.crc.PutByte(startDelimiter)
	p.fields = p.fields[:0]
	p.cur = p.cur[:0]
	p.n = 1
}

func (p *Parser) reset() {
	p.state = statePreamble
	p.fields = p.fields[:0]
	p.cur = p.cur[:0]
	p.n = 0
}

// finish assembles a Record from accumulated fields. Trailing content after
// the last separator (normally empty) is ignored.
func (p *Parser) finish() (Record, bool) {
	fields := p.fields
	if len(p.cur) > 0 {
		fields = append(fields, string(p.cur))
	}
	if len(fields) < 2 {
		return Record{}, false
	}

	device, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, false
	}

	rec := Record{Op: fields[0], Device: device}
	for _, arg := range fields[2:] {
		if arg == "" {
			continue
		}
		if v, err := strconv.ParseInt(arg, 10, 64); err == nil {
			rec.Value = v
			rec.HasValue = true
		} else {
			rec.Field = arg
		}
	}
	return rec, true
}

// Latest returns the last validated record for a device id. It remains
// valid until overwritten by the next successful frame for that id.
func (p *Parser) Latest(device int) (Record, bool) {
	rec, ok := p.latest[device]
	return rec, ok
}

// Decoded returns the number of validated frames.
func (p *Parser) Decoded() uint64 { return p.decoded }

// Dropped returns the number of frames discarded on checksum mismatch.
func (p *Parser) Dropped() uint64 { return p.dropped }

// InPreamble reports whether the parser is scanning for a start delimiter.
func (p *Parser) InPreamble() bool { return p.state == statePreamble }
