package canbus

import (
	"sync"
)

// endpointBuffer is how many frames an endpoint queues before senders block.
const endpointBuffer = 64

// LoopbackBus is an in-memory CAN bus for tests and simulations.
// Every endpoint opened from the same bus observes the frames sent by the
// other endpoints, never its own, mirroring how SocketCAN delivers traffic
// between sockets on one interface.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
}

// NewLoopbackBus creates a new loopback bus with no endpoints.
func NewLoopbackBus() *LoopbackBus {
	return &LoopbackBus{endpoints: make(map[*loopEndpoint]struct{})}
}

// Open creates a new endpoint attached to the bus. Opening on a closed bus
// yields an endpoint that reports ErrClosed on use.
func (b *LoopbackBus) Open() Bus {
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, endpointBuffer),
		closed: make(chan struct{}),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ep.closed)
		return ep
	}

	b.endpoints[ep] = struct{}{}

	return ep
}

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true

	for ep := range b.endpoints {
		ep.closeLocked()
	}

	b.endpoints = nil

	return nil
}

// loopEndpoint is one attachment point on a LoopbackBus.
type loopEndpoint struct {
	bus *LoopbackBus
	ch  chan Frame

	mu     sync.Mutex
	dead   bool
	closed chan struct{}
}

// Send broadcasts the frame to all other endpoints on the same bus.
// It blocks while a receiving endpoint's buffer is full, until that
// endpoint closes.
func (e *loopEndpoint) Send(frame Frame) error {
	if err := frame.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	dead := e.dead
	e.mu.Unlock()

	if dead {
		return ErrClosed
	}

	// Snapshot targets under the bus lock; deliver without holding it.
	e.bus.mu.RLock()

	if e.bus.closed {
		e.bus.mu.RUnlock()
		return ErrClosed
	}

	targets := make([]*loopEndpoint, 0, len(e.bus.endpoints))

	for ep := range e.bus.endpoints {
		if ep != e {
			targets = append(targets, ep)
		}
	}

	e.bus.mu.RUnlock()

	for _, t := range targets {
		select {
		case t.ch <- frame:
		case <-t.closed:
		}
	}

	return nil
}

// Receive waits for the next frame. Frames queued before the endpoint was
// closed are still delivered; afterwards Receive reports ErrClosed.
func (e *loopEndpoint) Receive() (Frame, error) {
	select {
	case f := <-e.ch:
		return f, nil
	case <-e.closed:
		// Drain what was queued before the close.
		select {
		case f := <-e.ch:
			return f, nil
		default:
			return Frame{}, ErrClosed
		}
	}
}

// Close detaches the endpoint from the bus.
func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	defer e.bus.mu.Unlock()

	e.closeLocked()

	return nil
}

// closeLocked marks the endpoint dead and removes it from the bus.
// The caller holds the bus lock. The data channel is never closed, so a
// concurrent Send can at worst deliver into a buffer nobody reads.
func (e *loopEndpoint) closeLocked() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dead {
		return
	}

	e.dead = true
	close(e.closed)

	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
}
