package amc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/serial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreGCGuerra/dune/bus"
	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/framing"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
)

// fakeDevice is an in-memory stand-in for the serial link. Writes are
// recorded; reads block until the test (or the responder) queues bytes.
type fakeDevice struct {
	mu      sync.Mutex
	writes  []byte
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	// respond, when set, is called with each written frame and may return
	// bytes the device sends back.
	respond func(frame []byte) []byte
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		inbound: make(chan []byte, 64),
		closed:  make(chan struct{}),
	}
}

func (f *fakeDevice) Read(p []byte) (int, error) {
	select {
	case b := <-f.inbound:
		return copy(p, b), nil
	case <-f.closed:
		return 0, io.EOF
	}
}

func (f *fakeDevice) Write(p []byte) (int, error) {
	f.mu.Lock()
	f.writes = append(f.writes, p...)
	responder := f.respond
	f.mu.Unlock()

	if responder != nil {
		if reply := responder(p); len(reply) > 0 {
			select {
			case f.inbound <- reply:
			case <-f.closed:
			}
		}
	}
	return len(p), nil
}

func (f *fakeDevice) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeDevice) written() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.writes...)
}

// sealFrame appends the checksum byte to an ASCII frame ending in '*'.
func sealFrame(frame string) []byte {
	crc := framing.NewCRC8(framing.DefaultPoly)
	crc.PutArray([]byte(frame[:len(frame)-1]))
	return append([]byte(frame), crc.Value())
}

type harness struct {
	ctx    task.Context
	bus    *bus.Bus
	db     *entity.Database
	faults chan task.RestartRequest
}

func newHarness(t *testing.T, section map[string]string) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		bus:    bus.New(logger),
		db:     entity.NewDatabase(),
		faults: make(chan task.RestartRequest, 4),
	}
	h.ctx = task.Context{
		Bus:     h.bus,
		DB:      h.db,
		Profile: config.NewSafeProfile(config.Profile{TaskName: section}),
		Logger:  logger,
		Faults:  h.faults,
	}
	return h
}

func fastSection(extra map[string]string) map[string]string {
	s := map[string]string{
		"Poll Rate":        "0.01",
		"Watchdog Timeout": "10.0",
	}
	for k, v := range extra {
		s[k] = v
	}
	return s
}

func startDriver(t *testing.T, h *harness, dev *fakeDevice) (*Driver, chan error) {
	t.Helper()
	d := New(h.ctx, WithPortOpener(func(serial.Config) (io.ReadWriteCloser, error) {
		return dev, nil
	}))
	done := make(chan error, 1)
	go func() { done <- task.Execute(context.Background(), d) }()
	return d, done
}

func stopDriver(t *testing.T, d *Driver, done chan error) {
	t.Helper()
	d.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}
}

func TestWatchdogExpiryDegradesAndRequestsRestart(t *testing.T) {
	h := newHarness(t, fastSection(map[string]string{
		"Watchdog Timeout": "0.05",
		"Restart Delay":    "2.0",
	}))
	dev := newFakeDevice()

	d, done := startDriver(t, h, dev)

	select {
	case req := <-h.faults:
		assert.Equal(t, TaskName, req.Task)
		assert.Equal(t, 2*time.Second, req.Delay)
		assert.Equal(t, task.ScopeTask, req.Scope)
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog expiry did not raise a restart")
	}

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not unwind after restart request")
	}
	assert.Equal(t, message.StateError, d.MainEntity().State())
}

func TestRpmRepliesDispatchedPerMotor(t *testing.T) {
	h := newHarness(t, fastSection(nil))

	enc := framing.NewEncoder(framing.DefaultPoly)
	dev := newFakeDevice()
	dev.respond = func(frame []byte) []byte {
		for motor := 0; motor < motorCount; motor++ {
			if bytes.Equal(frame, enc.EncodeRead(motor, "rpm")) {
				return sealFrame(fmt.Sprintf("@R,%d,rpm,%d,*", motor, 1000+motor))
			}
		}
		return nil
	}

	watcher, err := h.bus.Subscribe("watcher", 64, string(message.NameRpm))
	require.NoError(t, err)

	d, done := startDriver(t, h, dev)
	defer stopDriver(t, d, done)

	seen := map[uint16]int32{}
	deadline := time.Now().Add(3 * time.Second)
	for len(seen) < motorCount && time.Now().Before(deadline) {
		watcher.Wait(50 * time.Millisecond)
		for _, m := range watcher.Drain() {
			rpm := m.(*message.Rpm)
			seen[m.Envelope().SrcEnt] = rpm.Value
		}
	}

	require.Len(t, seen, motorCount)
	for motor := 0; motor < motorCount; motor++ {
		id, err := h.db.Resolve(fmt.Sprintf("Motor %d", motor))
		require.NoError(t, err)
		assert.Equal(t, int32(1000+motor), seen[id])
	}
}

func TestInitializationAndReleaseStopAllMotors(t *testing.T) {
	h := newHarness(t, fastSection(nil))
	dev := newFakeDevice()

	d, done := startDriver(t, h, dev)
	time.Sleep(50 * time.Millisecond)
	stopDriver(t, d, done)

	enc := framing.NewEncoder(framing.DefaultPoly)
	written := dev.written()
	for motor := 0; motor < motorCount; motor++ {
		stop := enc.EncodeWrite(motor, 0)
		assert.GreaterOrEqual(t, bytes.Count(written, stop), 2,
			"motor %d not stopped on both init and release", motor)
	}
}

func TestActuationDrivesMotorPair(t *testing.T) {
	h := newHarness(t, fastSection(nil))
	dev := newFakeDevice()

	d, done := startDriver(t, h, dev)
	defer stopDriver(t, d, done)

	// Republished until observed; the task may still be subscribing when
	// the first command goes out.
	enc := framing.NewEncoder(framing.DefaultPoly)
	require.Eventually(t, func() bool {
		h.bus.Publish(message.NewSetThrusterActuation(1, 1200))
		written := dev.written()
		return bytes.Contains(written, enc.EncodeWrite(2, 1200)) &&
			bytes.Contains(written, enc.EncodeWrite(3, 1200))
	}, 2*time.Second, 20*time.Millisecond)

	assert.NotContains(t, string(dev.written()), string(enc.EncodeWrite(0, 1200)))
}

func TestTelemetryFieldsDispatched(t *testing.T) {
	h := newHarness(t, fastSection(nil))
	dev := newFakeDevice()

	watcher, err := h.bus.Subscribe("watcher", 16,
		string(message.NameTemperature),
		string(message.NameVoltage),
		string(message.NameCurrent))
	require.NoError(t, err)

	d, done := startDriver(t, h, dev)
	defer stopDriver(t, d, done)
	time.Sleep(30 * time.Millisecond)

	dev.inbound <- sealFrame("@R,1,temperature,42,*")
	dev.inbound <- sealFrame("@R,1,voltage,124,*")
	dev.inbound <- sealFrame("@R,1,current,15,*")

	seen := map[string]float32{}
	deadline := time.Now().Add(2 * time.Second)
	for len(seen) < 3 && time.Now().Before(deadline) {
		watcher.Wait(50 * time.Millisecond)
		for _, m := range watcher.Drain() {
			switch v := m.(type) {
			case *message.Temperature:
				seen["temperature"] = v.Value
			case *message.Voltage:
				seen["voltage"] = v.Value
			case *message.Current:
				seen["current"] = v.Value
			}
		}
	}

	assert.Equal(t, float32(42), seen["temperature"])
	assert.Equal(t, float32(12.4), seen["voltage"])
	assert.Equal(t, float32(1.5), seen["current"])
}

func TestChecksumNoiseIgnored(t *testing.T) {
	h := newHarness(t, fastSection(nil))
	dev := newFakeDevice()

	watcher, err := h.bus.Subscribe("watcher", 16, string(message.NameRpm))
	require.NoError(t, err)

	d, done := startDriver(t, h, dev)
	defer stopDriver(t, d, done)
	time.Sleep(30 * time.Millisecond)

	// A frame with a corrupted checksum byte must produce nothing.
	corrupt := sealFrame("@R,1,rpm,500,*")
	corrupt[len(corrupt)-1] ^= 0x01
	dev.inbound <- corrupt

	assert.False(t, watcher.Wait(100*time.Millisecond))
	assert.Empty(t, watcher.Drain())
	assert.NotEqual(t, message.StateError, d.MainEntity().State())
}
