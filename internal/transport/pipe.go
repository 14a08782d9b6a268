package transport

import (
	"context"
	"sync"
	"time"
)

// PipeTransport is one end of an in-memory duplex frame channel. The
// simulator and tests use it in place of a physical link.
type PipeTransport struct {
	name      string
	in        chan []byte
	peer      *PipeTransport
	mu        sync.RWMutex
	connected bool
}

var _ Transport = (*PipeTransport)(nil)

const pipeDepth = 64

// NewPipe returns two connected ends. Frames sent on one end are received
// on the other.
func NewPipe() (*PipeTransport, *PipeTransport) {
	a := &PipeTransport{name: "pipe://bench", in: make(chan []byte, pipeDepth)}
	b := &PipeTransport{name: "pipe://radio", in: make(chan []byte, pipeDepth)}
	a.peer, b.peer = b, a
	return a, b
}

// Connect marks the end usable.
func (p *PipeTransport) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.connected {
		return ErrAlreadyConnected
	}
	p.connected = true
	return nil
}

// Disconnect marks the end unusable. Frames already queued are kept.
func (p *PipeTransport) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connected = false
	return nil
}

// Send queues a copy of frame on the peer.
func (p *PipeTransport) Send(ctx context.Context, frame []byte) error {
	if !p.IsConnected() {
		return ErrNotConnected
	}
	select {
	case p.peer.in <- append([]byte{}, frame...):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next queued frame.
func (p *PipeTransport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if !p.IsConnected() {
		return nil, ErrNotConnected
	}
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case frame := <-p.in:
		return frame, nil
	case <-expired:
		return nil, ErrTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// IsConnected returns whether the end is connected.
func (p *PipeTransport) IsConnected() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected
}

func (p *PipeTransport) String() string {
	return p.name
}
