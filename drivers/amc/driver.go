package amc

import (
	"fmt"
	"io"
	"time"

	"github.com/goburrow/serial"

	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/framing"
	"github.com/AndreGCGuerra/dune/iomux"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
	"github.com/AndreGCGuerra/dune/watchdog"
)

// motorCount is fixed by the controller hardware.
const motorCount = 4

// TaskName is the section name the driver reads its profile from.
const TaskName = "amc"

// PortOpener opens the device link. Tests substitute an in-memory pipe.
type PortOpener func(cfg serial.Config) (io.ReadWriteCloser, error)

// Option adjusts driver construction.
type Option func(*Driver)

// WithPortOpener replaces the serial open function.
func WithPortOpener(open PortOpener) Option {
	return func(d *Driver) { d.open = open }
}

// Driver is the motor controller task.
type Driver struct {
	*task.BaseTask

	open PortOpener

	device       string
	baud         int
	pollPeriod   time.Duration
	restartDelay time.Duration

	port    io.ReadWriteCloser
	poller  *iomux.Poller
	parser  *framing.Parser
	encoder *framing.Encoder
	wd      *watchdog.Counter

	motors [motorCount]*entity.Entity
	labels [motorCount]string
	next   int

	lastDecoded uint64
	lastDropped uint64
}

// New constructs the driver with its parameter table and bus bindings.
func New(ctx task.Context, opts ...Option) *Driver {
	d := &Driver{
		BaseTask: task.NewBaseTask(TaskName, ctx),
		open: func(cfg serial.Config) (io.ReadWriteCloser, error) {
			return serial.Open(&cfg)
		},
		parser:  framing.NewParser(framing.DefaultPoly),
		encoder: framing.NewEncoder(framing.DefaultPoly),
		wd:      watchdog.New(10 * time.Second),
	}

	p := d.Params()
	p.Define("Serial Port - Device").
		DefaultValue("/dev/ttyUSB0").
		SetDescription("Device node of the motor controller link")
	p.Define("Serial Port - Baud Rate").
		DefaultValue("57600").
		MinimumValue(9600).
		MaximumValue(115200)
	p.Define("Poll Rate").
		DefaultValue("0.5").
		SetUnits("s").
		SetDescription("Bounded wait per loop iteration")
	p.Define("Watchdog Timeout").
		DefaultValue("10.0").
		SetUnits("s").
		SetDescription("Maximum device silence before the task degrades")
	p.Define("Restart Delay").
		DefaultValue("2.0").
		SetUnits("s")
	for i := 0; i < motorCount; i++ {
		p.Define(fmt.Sprintf("Motor %d - Label", i)).
			DefaultValue(fmt.Sprintf("Motor %d", i))
	}

	task.MustBind(d.BaseTask, &message.SetThrusterActuation{}, d.consumeSetThrusterActuation)

	for _, opt := range opts {
		opt(d)
	}
	return d
}

// OnUpdateParameters caches validated parameter values.
func (d *Driver) OnUpdateParameters() error {
	p := d.Params()

	var err error
	if d.device, err = p.String("Serial Port - Device"); err != nil {
		return err
	}
	if d.baud, err = p.Int("Serial Port - Baud Rate"); err != nil {
		return err
	}
	if d.pollPeriod, err = p.Duration("Poll Rate"); err != nil {
		return err
	}
	if d.restartDelay, err = p.Duration("Restart Delay"); err != nil {
		return err
	}
	top, err := p.Duration("Watchdog Timeout")
	if err != nil {
		return err
	}
	d.wd.SetTop(top)

	for i := 0; i < motorCount; i++ {
		if d.labels[i], err = p.String(fmt.Sprintf("Motor %d - Label", i)); err != nil {
			return err
		}
	}
	return nil
}

// OnEntityReservation claims one entity per motor.
func (d *Driver) OnEntityReservation() error {
	for i := 0; i < motorCount; i++ {
		e, err := d.ReserveEntity(d.labels[i])
		if err != nil {
			return err
		}
		d.motors[i] = e
	}
	return nil
}

// OnResourceAcquisition opens the serial link and starts the readiness
// multiplexer.
func (d *Driver) OnResourceAcquisition() error {
	port, err := d.open(serial.Config{
		Address:  d.device,
		BaudRate: d.baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Second,
	})
	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %s: %v", errors.ErrDeviceUnavailable, d.device, err),
			TaskName, "OnResourceAcquisition", "open serial port")
	}
	d.port = port
	d.poller = iomux.New()
	d.poller.Add(port)
	return nil
}

// OnResourceInitialization queries each motor's state and brings all
// channels to a stop before the main loop engages.
func (d *Driver) OnResourceInitialization() error {
	for i := 0; i < motorCount; i++ {
		if err := d.writeFrame(d.encoder.EncodeRead(i, "state")); err != nil {
			return err
		}
	}
	if err := d.stopAllMotors(); err != nil {
		return err
	}
	for _, m := range d.motors {
		m.SetState(message.StateNormal, message.CodeIdle)
	}
	d.wd.Reset()
	return nil
}

// OnMain polls one motor per iteration. The bounded wait on the poller is
// both the pacing mechanism and the cancellation latency.
func (d *Driver) OnMain() error {
	for !d.Stopping() {
		d.ConsumeMessages()

		if err := d.writeFrame(d.encoder.EncodeRead(d.next, "rpm")); err != nil {
			d.Logger().Warn("poll request failed", "motor", d.next, "error", err)
		}
		d.next = (d.next + 1) % motorCount

		if d.poller.Poll(d.pollPeriod) && d.poller.WasTriggered(d.port) {
			d.readAvailable()
		}

		if d.wd.Overflow() {
			d.countWatchdogTrip()
			d.SetEntityStateDesc(message.StateError, "motor controller silent")
			d.RequestRestart("motor controller silent past watchdog deadline",
				d.restartDelay, task.ScopeTask)
			return nil
		}
	}
	return nil
}

// OnResourceRelease stops every motor and closes the link. Safe to call
// after a partial acquisition.
func (d *Driver) OnResourceRelease() {
	if d.port == nil {
		return
	}
	if err := d.stopAllMotors(); err != nil {
		d.Logger().Warn("stop command on release failed", "error", err)
	}
	if d.poller != nil {
		d.poller.Remove(d.port)
	}
	if err := d.port.Close(); err != nil {
		d.Logger().Warn("close serial port failed", "error", err)
	}
	d.port = nil
	d.poller = nil
}

// consumeSetThrusterActuation maps one thruster command onto its motor
// pair: id 0 drives motors 0 and 1, id 1 drives motors 2 and 3.
func (d *Driver) consumeSetThrusterActuation(m *message.SetThrusterActuation) {
	if m.Id > 1 {
		d.Logger().Warn("actuation for unknown thruster", "id", m.Id)
		return
	}
	first := int(m.Id) * 2
	for motor := first; motor < first+2; motor++ {
		if err := d.writeFrame(d.encoder.EncodeWrite(motor, int(m.Value))); err != nil {
			d.Logger().Warn("actuation write failed",
				"motor", motor, "error", err)
		}
	}
}

// readAvailable drains buffered bytes into the parser and reports every
// validated record.
func (d *Driver) readAvailable() {
	buf := make([]byte, 256)
	for {
		n, err := d.poller.Read(d.port, buf)
		if err != nil {
			d.Logger().Warn("serial read failed", "error", err)
			return
		}
		if n == 0 {
			break
		}
		for _, b := range buf[:n] {
			if rec, ok := d.parser.Feed(b); ok {
				d.handleRecord(rec)
			}
		}
	}
	d.syncFrameCounters()
}

// handleRecord processes one checksum-validated frame. Any validated frame
// proves the device is alive and feeds the watchdog.
func (d *Driver) handleRecord(rec framing.Record) {
	d.wd.Reset()

	if rec.Device < 0 || rec.Device >= motorCount {
		return
	}
	if !rec.HasValue {
		return
	}
	id := d.motors[rec.Device].Id()
	switch rec.Field {
	case "rpm":
		d.DispatchFrom(id, message.NewRpm(int32(rec.Value)))
	case "temperature":
		d.DispatchFrom(id, message.NewTemperature(float32(rec.Value)))
	case "voltage":
		// Reported in tenths of a volt.
		d.DispatchFrom(id, message.NewVoltage(float32(rec.Value)/10))
	case "current":
		// Reported in tenths of an ampere.
		d.DispatchFrom(id, message.NewCurrent(float32(rec.Value)/10))
	}
}

func (d *Driver) stopAllMotors() error {
	for i := 0; i < motorCount; i++ {
		if err := d.writeFrame(d.encoder.EncodeWrite(i, 0)); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) writeFrame(frame []byte) error {
	if d.port == nil {
		return errors.WrapTransient(errors.ErrPortClosed,
			TaskName, "writeFrame", "write to serial port")
	}
	if _, err := d.port.Write(frame); err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrWriteFailed, err),
			TaskName, "writeFrame", "write to serial port")
	}
	return nil
}

func (d *Driver) syncFrameCounters() {
	reg := d.Metrics()
	if reg == nil {
		return
	}
	core := reg.CoreMetrics()
	if decoded := d.parser.Decoded(); decoded > d.lastDecoded {
		core.FramesDecoded.WithLabelValues(TaskName).Add(float64(decoded - d.lastDecoded))
		d.lastDecoded = decoded
	}
	if dropped := d.parser.Dropped(); dropped > d.lastDropped {
		core.ChecksumFailures.WithLabelValues(TaskName).Add(float64(dropped - d.lastDropped))
		d.lastDropped = dropped
	}
}

func (d *Driver) countWatchdogTrip() {
	if reg := d.Metrics(); reg != nil {
		reg.CoreMetrics().WatchdogTrips.WithLabelValues(TaskName).Inc()
	}
}
