package natsbridge

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndreGCGuerra/dune/bus"
	"github.com/AndreGCGuerra/dune/config"
	"github.com/AndreGCGuerra/dune/entity"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/task"
)

type published struct {
	subject string
	data    []byte
}

type fakeBroker struct {
	mu        sync.Mutex
	published []published
	flushed   bool
	closed    bool
}

func (f *fakeBroker) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, published{subject, append([]byte(nil), data...)})
	return nil
}

func (f *fakeBroker) Flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushed = true
	return nil
}

func (f *fakeBroker) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeBroker) all() []published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]published(nil), f.published...)
}

func testContext() task.Context {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return task.Context{
		Bus:     bus.New(logger),
		DB:      entity.NewDatabase(),
		Profile: config.NewSafeProfile(nil),
		Logger:  logger,
		Faults:  make(chan task.RestartRequest, 1),
	}
}

func newBridge(t *testing.T, broker *fakeBroker) *Bridge {
	t.Helper()
	b := New(testContext(), WithConnect(
		func(url string, opts ...nats.Option) (Publisher, error) {
			return broker, nil
		}))
	require.NoError(t, b.Params().Apply(nil))
	require.NoError(t, b.OnUpdateParameters())
	require.NoError(t, b.OnResourceAcquisition())
	return b
}

func TestPublishWrapsMessageInEnvelope(t *testing.T) {
	broker := &fakeBroker{}
	b := newBridge(t, broker)
	defer b.OnResourceRelease()

	rpm := message.NewRpm(1450)
	rpm.SetSource("amc", 3)
	rpm.Stamp(time.Unix(50, 0))
	b.publish(rpm)

	msgs := broker.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dune.rpm.amc", msgs[0].subject)

	var wire struct {
		Type      string          `json:"type"`
		Src       string          `json:"src"`
		SrcEnt    uint16          `json:"src_ent"`
		Timestamp time.Time       `json:"timestamp"`
		Payload   json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].data, &wire))
	assert.Equal(t, "Rpm", wire.Type)
	assert.Equal(t, "amc", wire.Src)
	assert.Equal(t, uint16(3), wire.SrcEnt)
	assert.Equal(t, time.Unix(50, 0).UTC(), wire.Timestamp.UTC())

	var payload struct {
		Value int32 `json:"Value"`
	}
	require.NoError(t, json.Unmarshal(wire.Payload, &payload))
	assert.Equal(t, int32(1450), payload.Value)
}

func TestSubjectFallsBackForUnsourcedMessages(t *testing.T) {
	broker := &fakeBroker{}
	b := newBridge(t, broker)
	defer b.OnResourceRelease()

	b.publish(message.NewTemperature(21.5))

	msgs := broker.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, "dune.temperature.unknown", msgs[0].subject)
}

func TestPublishWithoutConnectionIsSafe(t *testing.T) {
	b := New(testContext(), WithConnect(
		func(url string, opts ...nats.Option) (Publisher, error) {
			t.Fatal("connect must not be called")
			return nil, nil
		}))
	require.NoError(t, b.Params().Apply(nil))
	require.NoError(t, b.OnUpdateParameters())

	b.publish(message.NewRpm(1))
}

func TestReleaseFlushesAndCloses(t *testing.T) {
	broker := &fakeBroker{}
	b := newBridge(t, broker)

	b.OnResourceRelease()

	broker.mu.Lock()
	defer broker.mu.Unlock()
	assert.True(t, broker.flushed)
	assert.True(t, broker.closed)
}

func TestBridgeExportsBusTraffic(t *testing.T) {
	broker := &fakeBroker{}
	ctx := testContext()
	b := New(ctx, WithConnect(
		func(url string, opts ...nats.Option) (Publisher, error) {
			return broker, nil
		}))

	done := make(chan error, 1)
	go func() { done <- task.Execute(context.Background(), b) }()
	defer func() {
		b.Stop()
		assert.NoError(t, <-done)
	}()

	require.Eventually(t, func() bool {
		es := message.NewEntityState(message.StateNormal, message.CodeActive, "")
		es.SetSource("amc", 1)
		ctx.Bus.Publish(es)

		for _, p := range broker.all() {
			if p.subject == "dune.entitystate.amc" {
				return true
			}
		}
		return false
	}, 3*time.Second, 50*time.Millisecond)
}
