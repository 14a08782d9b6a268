package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

// TCPTransport carries frames over a TCP stream, for radios reached through
// a network serial bridge.
type TCPTransport struct {
	addr   string
	opts   Options
	conn   *net.TCPConn
	frames *frameReader
	connMu sync.RWMutex
	readMu sync.Mutex
}

var _ Transport = (*TCPTransport)(nil)

// NewTCPTransport creates a transport for addr (host:port).
func NewTCPTransport(addr string, opts Options) *TCPTransport {
	return &TCPTransport{addr: addr, opts: opts}
}

// Connect establishes the TCP connection.
func (t *TCPTransport) Connect(ctx context.Context) error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn != nil {
		return ErrAlreadyConnected
	}

	dialer := net.Dialer{Timeout: t.opts.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return fmt.Errorf("dial TCP %s: %w", t.addr, err)
	}

	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		return fmt.Errorf("not a TCP connection")
	}
	if err := tcpConn.SetNoDelay(true); err != nil {
		tcpConn.Close()
		return fmt.Errorf("set no-delay: %w", err)
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		tcpConn.Close()
		return fmt.Errorf("set keep-alive: %w", err)
	}

	t.conn = tcpConn
	t.frames = newFrameReader(tcpConn)
	return nil
}

// Disconnect closes the TCP connection.
func (t *TCPTransport) Disconnect() error {
	t.connMu.Lock()
	defer t.connMu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	t.frames = nil
	return err
}

// Send writes one frame.
func (t *TCPTransport) Send(ctx context.Context, frame []byte) error {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	if t.conn == nil {
		return ErrNotConnected
	}

	var deadline time.Time
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}
	if err := t.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if _, err := t.conn.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive reads one length-delimited frame.
func (t *TCPTransport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	t.connMu.RLock()
	defer t.connMu.RUnlock()

	if t.conn == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.readMu.Lock()
	defer t.readMu.Unlock()

	if err := t.conn.SetReadDeadline(receiveDeadline(ctx, timeout)); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() {
		t.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	frame, err := t.frames.next()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return frame, nil
}

// IsConnected returns whether the transport is connected.
func (t *TCPTransport) IsConnected() bool {
	t.connMu.RLock()
	defer t.connMu.RUnlock()
	return t.conn != nil
}

func (t *TCPTransport) String() string {
	return "tcp://" + t.addr
}
