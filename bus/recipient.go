package bus

import (
	"sync"
	"time"

	"github.com/AndreGCGuerra/dune/message"
)

// Recipient is the read side of one bus subscription. All methods are safe
// for concurrent use, though a task normally calls Wait and Drain from its
// own goroutine only.
type Recipient struct {
	name  string
	bus   *Bus
	types map[string]bool
	depth int

	mu      sync.Mutex
	pending []message.Message
	closed  bool

	// notify holds at most one token; deliver sends without blocking.
	notify chan struct{}
}

// Name returns the recipient name.
func (r *Recipient) Name() string { return r.name }

// deliver appends msg, dropping the oldest entry when the queue is full.
func (r *Recipient) deliver(msg message.Message) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if len(r.pending) >= r.depth {
		dropped := r.pending[0]
		copy(r.pending, r.pending[1:])
		r.pending = r.pending[:len(r.pending)-1]
		r.bus.countDropped(r.name, dropped.Name())
	}
	r.pending = append(r.pending, msg)
	r.bus.countDelivered(r.name, msg.Name())
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Wait blocks until at least one message is pending or the timeout elapses.
// Returns true if messages are pending. A zero or negative timeout polls.
func (r *Recipient) Wait(timeout time.Duration) bool {
	r.mu.Lock()
	n := len(r.pending)
	r.mu.Unlock()
	if n > 0 {
		return true
	}
	if timeout <= 0 {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-r.notify:
		r.mu.Lock()
		n = len(r.pending)
		r.mu.Unlock()
		return n > 0
	case <-timer.C:
		return false
	}
}

// Drain returns all pending messages in arrival order and clears the queue.
func (r *Recipient) Drain() []message.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil
	}
	out := r.pending
	r.pending = nil

	// Clear a stale wakeup token so the next Wait blocks.
	select {
	case <-r.notify:
	default:
	}
	return out
}

// Pending returns the number of queued messages.
func (r *Recipient) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Recipient) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.pending = nil
}
