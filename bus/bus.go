package bus

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AndreGCGuerra/dune/errors"
	"github.com/AndreGCGuerra/dune/message"
	"github.com/AndreGCGuerra/dune/metric"
)

// DefaultQueueDepth bounds a recipient queue when no depth is configured.
const DefaultQueueDepth = 1024

// Bus routes messages between registered recipients.
type Bus struct {
	mu         sync.RWMutex
	recipients map[string]*Recipient
	logger     *slog.Logger
	metrics    *metric.Metrics
	now        func() time.Time
}

// Option configures a Bus.
type Option func(*Bus)

// WithMetrics attaches core runtime metrics for bus accounting.
func WithMetrics(m *metric.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithClock overrides the stamping clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Bus) { b.now = now }
}

// New creates an empty bus.
func New(logger *slog.Logger, opts ...Option) *Bus {
	b := &Bus{
		recipients: make(map[string]*Recipient),
		logger:     logger.With("component", "bus"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a recipient under a unique name with a bounded queue.
// The returned Recipient is the task's read side. Registering a name twice
// is invalid: a restarting task must Unsubscribe first.
func (b *Bus) Subscribe(name string, depth int, types ...string) (*Recipient, error) {
	if depth <= 0 {
		depth = DefaultQueueDepth
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.recipients[name]; exists {
		return nil, errors.WrapInvalid(
			fmt.Errorf("recipient %q already subscribed", name),
			"bus", "Subscribe", "register recipient")
	}

	r := &Recipient{
		name:   name,
		bus:    b,
		depth:  depth,
		types:  make(map[string]bool, len(types)),
		notify: make(chan struct{}, 1),
	}
	for _, t := range types {
		r.types[t] = true
	}

	b.recipients[name] = r
	return r, nil
}

// Unsubscribe removes a recipient and discards its pending messages.
func (b *Bus) Unsubscribe(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.recipients[name]; ok {
		r.close()
		delete(b.recipients, name)
	}
}

// Publish stamps msg and delivers it to every subscribed recipient. The
// publisher never blocks; on queue overflow the oldest queued message is
// dropped. Messages addressed to a specific destination are delivered only
// to that recipient.
func (b *Bus) Publish(msg message.Message) {
	stamper, ok := msg.(interface{ Stamp(time.Time) })
	if ok {
		stamper.Stamp(b.now())
	}

	env := msg.Envelope()
	if b.metrics != nil {
		b.metrics.MessagesPublished.WithLabelValues(env.Src, msg.Name()).Inc()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, r := range b.recipients {
		if !r.types[msg.Name()] {
			continue
		}
		if env.Dst != "" && env.Dst != r.name {
			continue
		}
		r.deliver(msg)
	}
}

func (b *Bus) countDelivered(recipient, msgName string) {
	if b.metrics != nil {
		b.metrics.MessagesDelivered.WithLabelValues(recipient, msgName).Inc()
	}
}

func (b *Bus) countDropped(recipient, msgName string) {
	if b.metrics != nil {
		b.metrics.MessagesDropped.WithLabelValues(recipient, msgName).Inc()
	}
	b.logger.Warn("recipient queue overflow, dropping oldest",
		"recipient", recipient, "type", msgName)
}
