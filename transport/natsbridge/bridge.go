package natsbridge

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
)

// TaskName is the section name the bridge reads its profile from.
const TaskName = "natsbridge"

// Publisher is the broker surface the bridge needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	Flush() error
	Close()
}

// ConnectFunc opens the broker connection. Tests substitute a recorder.
type ConnectFunc func(url string, opts ...nats.Option) (Publisher, error)

// Option adjusts bridge construction.
type Option func(*Bridge)

// WithConnect replaces the broker connect function.
func WithConnect(connect ConnectFunc) Option {
	return func(b *Bridge) { b.connect = connect }
}

// wireMessage is the JSON envelope published per bus message.
type wireMessage struct {
	Type      string    `json:"type"`
	Src       string    `json:"src"`
	SrcEnt    uint16    `json:"src_ent"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// Bridge is the bus-to-NATS republishing task.
type Bridge struct {
	*task.BaseTask

	connect ConnectFunc

	url           string
	prefix        string
	reconnectWait time.Duration

	conn Publisher
}

// New constructs the bridge with its parameter table and bindings for
// every exported message type.
func New(ctx task.Context, opts ...Option) *Bridge {
	b := &Bridge{
		BaseTask: task.NewBaseTask(TaskName, ctx),
		connect: func(url string, opts ...nats.Option) (Publisher, error) {
			return nats.Connect(url, opts...)
		},
	}

	p := b.Params()
	p.Define("NATS - URL").
		DefaultValue(nats.DefaultURL).
		SetDescription("Broker address")
	p.Define("NATS - Subject Prefix").
		DefaultValue("dune").
		SetDescription("Prefix for all exported subjects")
	p.Define("NATS - Reconnect Wait").
		DefaultValue("2.0").
		SetUnits("s")

	task.MustBind(b.BaseTask, &message.EntityState{}, export[*message.EntityState](b))
	task.MustBind(b.BaseTask, &message.EntityActivationState{}, export[*message.EntityActivationState](b))
	task.MustBind(b.BaseTask, &message.Rpm{}, export[*message.Rpm](b))
	task.MustBind(b.BaseTask, &message.Temperature{}, export[*message.Temperature](b))
	task.MustBind(b.BaseTask, &message.Voltage{}, export[*message.Voltage](b))
	task.MustBind(b.BaseTask, &message.Current{}, export[*message.Current](b))
	task.MustBind(b.BaseTask, &message.ImageSample{}, export[*message.ImageSample](b))

	for _, opt := range opts {
		opt(b)
	}
	return b
}

// export adapts one message type into the bridge's publish path.
func export[M message.Message](b *Bridge) func(M) {
	return func(m M) { b.publish(m) }
}

// OnUpdateParameters caches validated parameter values.
func (b *Bridge) OnUpdateParameters() error {
	p := b.Params()

	var err error
	if b.url, err = p.String("NATS - URL"); err != nil {
		return err
	}
	if b.prefix, err = p.String("NATS - Subject Prefix"); err != nil {
		return err
	}
	if b.reconnectWait, err = p.Duration("NATS - Reconnect Wait"); err != nil {
		return err
	}
	return nil
}

// OnResourceAcquisition connects to the broker. The connection retries in
// the background so a broker outage at boot does not take the task down.
func (b *Bridge) OnResourceAcquisition() error {
	conn, err := b.connect(b.url,
		nats.Name("dune-bridge"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(b.reconnectWait),
	)
	if err != nil {
		return errors.WrapFatal(
			fmt.Errorf("broker %s: %v", b.url, err),
			TaskName, "OnResourceAcquisition", "connect to broker")
	}
	b.conn = conn
	return nil
}

// OnResourceRelease flushes pending traffic and drops the connection.
func (b *Bridge) OnResourceRelease() {
	if b.conn == nil {
		return
	}
	if err := b.conn.Flush(); err != nil {
		b.Logger().Warn("flush on release failed", "error", err)
	}
	b.conn.Close()
	b.conn = nil
}

// publish exports one bus message. Failures are logged and dropped; the
// bus never waits for the broker.
func (b *Bridge) publish(m message.Message) {
	if b.conn == nil {
		return
	}

	env := m.Envelope()
	wire := wireMessage{
		Type:      m.Name(),
		Src:       env.Src,
		SrcEnt:    env.SrcEnt,
		Timestamp: env.Timestamp,
		Payload:   m,
	}
	data, err := json.Marshal(wire)
	if err != nil {
		b.Logger().Warn("encode for export failed", "type", m.Name(), "error", err)
		return
	}

	if err := b.conn.Publish(b.subjectFor(m), data); err != nil {
		b.Logger().Warn("export publish failed", "type", m.Name(), "error", err)
	}
}

// subjectFor maps a message onto "<prefix>.<type>.<source task>".
func (b *Bridge) subjectFor(m message.Message) string {
	src := m.Envelope().Src
	if src == "" {
		src = "unknown"
	}
	return fmt.Sprintf("%s.%s.%s",
		b.prefix, strings.ToLower(m.Name()), strings.ToLower(src))
}
