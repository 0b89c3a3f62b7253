// Package iomux multiplexes blocking byte handles behind a bounded wait.
//
// A task adds the handles it owns (typically one serial port), then calls
// Poll with a timeout each loop iteration. Poll reports whether any handle
// has bytes ready; WasTriggered narrows it to one handle and Read hands the
// buffered bytes over. Each handle gets a pump goroutine that performs the
// blocking reads, so the task itself only ever blocks inside Poll and only
// for the bounded timeout. That bound is also the task's cancellation
// latency: a stop request is observed at the next Poll return.
package iomux

import (
	"io"
	"sync"
	"time"
)

// Handle is the readable side of a device.
type Handle = io.Reader

const (
	pumpChunk   = 256
	pumpBacklog = 32
)

type pump struct {
	handle Handle
	data   chan []byte
	done   chan struct{}

	mu      sync.Mutex
	carry   []byte
	err     error
	errSeen bool
}

// readable reports whether bytes (or a not-yet-surfaced terminal error) can
// be consumed now. Once read has handed the error to the caller the pump
// stops reporting readable, so Poll keeps its bounded wait on a dead handle.
func (p *pump) readable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.carry) > 0 || len(p.data) > 0 || (p.err != nil && !p.errSeen)
}

func (p *pump) run(notify chan<- struct{}) {
	for {
		buf := make([]byte, pumpChunk)
		n, err := p.handle.Read(buf)
		if n > 0 {
			select {
			case p.data <- buf[:n]:
			case <-p.done:
				return
			}
			select {
			case notify <- struct{}{}:
			default:
			}
		}
		if err != nil {
			p.mu.Lock()
			p.err = err
			p.mu.Unlock()
			select {
			case notify <- struct{}{}:
			default:
			}
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
	}
}

// read moves buffered bytes into out. With no bytes buffered it returns the
// pump's terminal error, or (0, nil) if the pump is simply idle.
func (p *pump) read(out []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.carry) < len(out) {
		select {
		case chunk := <-p.data:
			p.carry = append(p.carry, chunk...)
			continue
		default:
		}
		break
	}

	if len(p.carry) == 0 {
		if p.err != nil {
			p.errSeen = true
		}
		return 0, p.err
	}
	n := copy(out, p.carry)
	p.carry = p.carry[n:]
	return n, nil
}

// Poller waits on one or more handles with a bounded timeout.
type Poller struct {
	mu        sync.Mutex
	pumps     map[Handle]*pump
	triggered map[Handle]bool
	notify    chan struct{}
}

// New creates an empty poller.
func New() *Poller {
	return &Poller{
		pumps:     make(map[Handle]*pump),
		triggered: make(map[Handle]bool),
		notify:    make(chan struct{}, 1),
	}
}

// Add registers a handle and starts its pump.
func (p *Poller) Add(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.pumps[h]; exists {
		return
	}
	pm := &pump{
		handle: h,
		data:   make(chan []byte, pumpBacklog),
		done:   make(chan struct{}),
	}
	p.pumps[h] = pm
	go pm.run(p.notify)
}

// Remove unregisters a handle. The pump goroutine exits after its current
// blocking read returns; the caller is expected to close the underlying
// device, which unblocks that read.
func (p *Poller) Remove(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if pm, exists := p.pumps[h]; exists {
		close(pm.done)
		delete(p.pumps, h)
		delete(p.triggered, h)
	}
}

// Poll blocks until at least one handle is readable or the timeout elapses.
// It records which handles triggered for WasTriggered.
func (p *Poller) Poll(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)

	for {
		if p.check() {
			return true
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-p.notify:
			timer.Stop()
		case <-timer.C:
			return p.check()
		}
	}
}

func (p *Poller) check() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	any := false
	for h, pm := range p.pumps {
		if pm.readable() {
			p.triggered[h] = true
			any = true
		} else {
			delete(p.triggered, h)
		}
	}
	return any
}

// WasTriggered reports whether h was readable at the last Poll.
func (p *Poller) WasTriggered(h Handle) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.triggered[h]
}

// Read consumes buffered bytes from h. Returns (0, nil) when nothing is
// buffered and the handle is healthy.
func (p *Poller) Read(h Handle, out []byte) (int, error) {
	p.mu.Lock()
	pm, exists := p.pumps[h]
	p.mu.Unlock()

	if !exists {
		return 0, io.ErrClosedPipe
	}
	return pm.read(out)
}
