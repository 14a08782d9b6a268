// Package transport provides the duplex byte channels that carry XCMP frames
// between the bench and a radio: TCP, a serial port and an in-memory pipe.
// Every transport yields exactly one length-delimited frame per Receive.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/tturner/radiobench/internal/xcmp"
)

// Transport is a connection to one radio.
type Transport interface {
	Connect(ctx context.Context) error
	Disconnect() error
	// Send writes one complete frame.
	Send(ctx context.Context, frame []byte) error
	// Receive blocks until one frame arrives, the timeout elapses (ErrTimeout)
	// or ctx is done. A zero timeout waits on ctx alone.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)
	IsConnected() bool
	String() string
}

var (
	ErrTimeout          = errors.New("transport: receive timeout")
	ErrNotConnected     = errors.New("transport: not connected")
	ErrAlreadyConnected = errors.New("transport: already connected")
	ErrClosed           = errors.New("transport: closed by peer")
)

// Options configures transport behavior.
type Options struct {
	ConnectTimeout time.Duration // Dial timeout for network transports
	Baud           int           // Serial line rate
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 5 * time.Second,
		Baud:           115200,
	}
}

// IsTimeout reports whether err is a receive timeout from any transport.
func IsTimeout(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// receiveDeadline merges the per-call timeout with the context deadline.
func receiveDeadline(ctx context.Context, timeout time.Duration) time.Time {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if d, ok := ctx.Deadline(); ok && (deadline.IsZero() || d.Before(deadline)) {
		deadline = d
	}
	return deadline
}

// frameReader delimits frames on a byte stream using the XCMP length
// prefix. Bytes read before a deadline expires are kept for the next call.
type frameReader struct {
	r   io.Reader
	buf []byte
	tmp []byte
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{r: r, tmp: make([]byte, 4096)}
}

func (f *frameReader) next() ([]byte, error) {
	for {
		if len(f.buf) >= 2 {
			n, err := xcmp.FrameLength(f.buf)
			if err != nil {
				f.buf = nil
				return nil, err
			}
			if len(f.buf) >= n {
				frame := append([]byte{}, f.buf[:n]...)
				f.buf = f.buf[n:]
				return frame, nil
			}
		}
		n, err := f.r.Read(f.tmp)
		if n > 0 {
			f.buf = append(f.buf, f.tmp[:n]...)
			continue
		}
		if err != nil {
			if IsTimeout(err) {
				return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
			}
			if errors.Is(err, io.EOF) {
				return nil, ErrClosed
			}
			return nil, err
		}
	}
}
