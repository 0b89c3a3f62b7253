package camera

import (
	"time"
)

// Frame is one captured image with its sensor metadata.
type Frame struct {
	// Timestamp is the capture time reported by the sensor.
	Timestamp time.Time
	// Gain is the gain factor the frame was captured with.
	Gain int
	// Data is the raw pixel payload.
	Data []byte
}

// Source abstracts the capture hardware. Implementations buffer frames
// internally; Read never blocks.
type Source interface {
	// Open claims the device and starts capturing.
	Open() error

	// Read returns the next buffered frame, nil when none is pending.
	// After Stop it keeps returning buffered frames until the queue is
	// empty.
	Read() (*Frame, error)

	// Stop halts capture without discarding buffered frames.
	Stop()

	// Close releases the device.
	Close() error
}
