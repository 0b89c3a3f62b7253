package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
)

// TaskName is the section name the driver reads its profile from.
const TaskName = "camera"

// sampleSize bounds the live sample payload published per frame.
const sampleSize = 64

// Driver is the frame capture task.
type Driver struct {
	*task.BaseTask

	source Source

	fps     int
	baseDir string
	logDir  string
	seq     uint32
}

// New constructs the driver around a frame source.
func New(ctx task.Context, source Source) *Driver {
	d := &Driver{
		BaseTask: task.NewBaseTask(TaskName, ctx),
		source:   source,
	}

	p := d.Params()
	p.Define("Active").
		DefaultValue("false").
		SetDescription("Engage frame capture")
	p.Define("Frames Per Second").
		DefaultValue("30").
		MinimumValue(0).
		MaximumValue(75)
	p.Define("Log Dir").
		DefaultValue("").
		SetDescription("Base directory for captured frames")

	task.MustBind(d.BaseTask, &message.LoggingControl{}, d.consumeLoggingControl)

	return d
}

// OnUpdateParameters caches validated parameter values.
func (d *Driver) OnUpdateParameters() error {
	p := d.Params()

	var err error
	if d.fps, err = p.Int("Frames Per Second"); err != nil {
		return err
	}
	if d.baseDir, err = p.String("Log Dir"); err != nil {
		return err
	}
	return nil
}

// OnResourceAcquisition claims the capture device.
func (d *Driver) OnResourceAcquisition() error {
	if err := d.source.Open(); err != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrDeviceUnavailable, err),
			TaskName, "OnResourceAcquisition", "open capture source")
	}
	return nil
}

// OnResourceInitialization idles the entity until an activation engages
// capture.
func (d *Driver) OnResourceInitialization() error {
	d.SetEntityState(message.StateNormal, message.CodeIdle)
	return nil
}

// OnResourceRelease closes the capture device.
func (d *Driver) OnResourceRelease() {
	if err := d.source.Close(); err != nil {
		d.Logger().Warn("close capture source failed", "error", err)
	}
}

// OnRequestActivation asks the logging supervisor for the active log
// directory. Activation completes when the answer arrives.
func (d *Driver) OnRequestActivation() {
	d.Dispatch(message.NewLoggingControl(message.LogRequestCurrentName, ""))
}

// OnRequestDeactivation disengages capture immediately.
func (d *Driver) OnRequestDeactivation() {
	main := d.MainEntity()
	if main == nil {
		return
	}
	main.SucceedDeactivation()
	d.SetEntityState(message.StateNormal, message.CodeIdle)
}

// consumeLoggingControl finishes an in-flight activation once the log
// directory is known. Announcements are ignored unless we asked.
func (d *Driver) consumeLoggingControl(m *message.LoggingControl) {
	main := d.MainEntity()
	if main == nil || !main.IsActivating() {
		return
	}
	if m.Op != message.LogCurrentName && m.Op != message.LogStarted {
		return
	}

	dir := filepath.Join(d.baseDir, m.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		main.FailActivation(fmt.Sprintf("create log directory: %v", err))
		d.SetEntityStateDesc(message.StateError, "log directory unavailable")
		return
	}
	d.logDir = dir
	d.seq = 0
	main.SucceedActivation()
	d.SetEntityState(message.StateNormal, message.CodeActive)
}

// OnMain services the bus and, while active, drains captured frames. On
// exit it flushes whatever the source buffered so no frame is lost.
func (d *Driver) OnMain() error {
	idle := 500 * time.Millisecond
	period := idle
	if d.fps > 0 {
		period = time.Second / time.Duration(d.fps)
	}

	for !d.Stopping() {
		d.ConsumeMessages()

		main := d.MainEntity()
		if main == nil || !main.IsActive() {
			d.WaitForMessages(idle)
			continue
		}

		frame, err := d.source.Read()
		if err != nil {
			d.Logger().Warn("frame read failed", "error", err)
			d.WaitForMessages(idle)
			continue
		}
		if frame == nil {
			d.WaitForMessages(idle)
			continue
		}

		if err := d.saveFrame(frame); err != nil {
			d.Logger().Warn("frame save failed", "error", err)
		}
		d.publishSample(frame)
		d.WaitForMessages(period)
	}

	d.source.Stop()
	d.flush()
	return nil
}

// flush drains the capture queue to disk after capture stopped.
func (d *Driver) flush() {
	flushed := 0
	for {
		frame, err := d.source.Read()
		if err != nil || frame == nil {
			break
		}
		if err := d.saveFrame(frame); err != nil {
			d.Logger().Warn("frame save failed during flush", "error", err)
		}
		flushed++
	}
	if flushed > 0 {
		d.Logger().Info("capture queue flushed", "frames", flushed)
	}
}

func (d *Driver) saveFrame(frame *Frame) error {
	if d.logDir == "" {
		return errors.WrapInvalid(errors.New("no log directory negotiated"),
			TaskName, "saveFrame", "save frame")
	}
	name := fmt.Sprintf("%0.4f_%d.raw",
		float64(frame.Timestamp.UnixNano())/1e9, frame.Gain)
	path := filepath.Join(d.logDir, name)
	if err := os.WriteFile(path, frame.Data, 0o644); err != nil {
		return errors.WrapTransient(err, TaskName, "saveFrame", "write frame file")
	}
	return nil
}

func (d *Driver) publishSample(frame *Frame) {
	d.seq++
	n := len(frame.Data)
	if n > sampleSize {
		n = sampleSize
	}
	sample := append([]byte(nil), frame.Data[:n]...)
	d.Dispatch(message.NewImageSample(d.seq, float32(frame.Gain), sample))
}
