package message

import (
	"time"

	"github.com/google/uuid"
)

// UnknownEntity is the reserved sentinel for "no entity" in envelopes.
const UnknownEntity uint16 = 0xFFFF

// Message is the interface implemented by every record on the bus.
type Message interface {
	// ID returns a unique identifier for this message instance.
	ID() string

	// Name returns the type tag used for dispatch-table routing.
	Name() string

	// Envelope returns the delivery envelope. The returned value is a copy.
	Envelope() Envelope

	// Clone returns a deep copy of the message with a fresh identifier.
	Clone() Message
}

// Envelope carries delivery metadata common to all messages.
type Envelope struct {
	// MsgID is a unique identifier assigned when the message is stamped.
	MsgID string
	// Src is the name of the publishing task.
	Src string
	// SrcEnt is the id of the entity the message refers to.
	SrcEnt uint16
	// Dst optionally names a single recipient task. Empty means broadcast.
	Dst string
	// DstEnt optionally addresses an entity within the recipient.
	DstEnt uint16
	// Timestamp records publication time.
	Timestamp time.Time
}

// Header is embedded by every concrete message type to satisfy the
// envelope part of the Message interface.
type Header struct {
	env Envelope
}

// ID returns the message identifier.
func (h *Header) ID() string { return h.env.MsgID }

// Envelope returns a copy of the envelope.
func (h *Header) Envelope() Envelope { return h.env }

// Src returns the publishing task name.
func (h *Header) Src() string { return h.env.Src }

// SrcEnt returns the source entity id.
func (h *Header) SrcEnt() uint16 { return h.env.SrcEnt }

// Dst returns the destination task name, empty for broadcast.
func (h *Header) Dst() string { return h.env.Dst }

// Timestamp returns the publication time.
func (h *Header) Timestamp() time.Time { return h.env.Timestamp }

// SetSource records the publishing task and entity. Called by the owning
// task before dispatch; the bus treats the envelope as read-only afterwards.
func (h *Header) SetSource(task string, entity uint16) {
	h.env.Src = task
	h.env.SrcEnt = entity
}

// SetDestination addresses the message to a single task.
func (h *Header) SetDestination(task string) {
	h.env.Dst = task
}

// SetDestinationEntity addresses the message to an entity in the recipient.
func (h *Header) SetDestinationEntity(entity uint16) {
	h.env.DstEnt = entity
}

// Stamp assigns the message id and timestamp. The bus calls this exactly
// once at publication; stamping twice is a no-op so republished clones keep
// their identity only if re-cloned.
func (h *Header) Stamp(now time.Time) {
	if h.env.MsgID != "" {
		return
	}
	h.env.MsgID = uuid.NewString()
	h.env.Timestamp = now
}

// Stamped reports whether the message has been through the bus.
func (h *Header) Stamped() bool { return h.env.MsgID != "" }

// cloneHeader copies the envelope but clears identity so the clone is
// stamped independently on its next publication.
func (h *Header) cloneHeader() Header {
	c := Header{env: h.env}
	c.env.MsgID = ""
	c.env.Timestamp = time.Time{}
	return c
}

// NewHeader builds an empty header. Entities default to the unknown sentinel.
func NewHeader() Header {
	return Header{env: Envelope{SrcEnt: UnknownEntity, DstEnt: UnknownEntity}}
}
