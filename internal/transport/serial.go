package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// pollInterval bounds each blocking read on the port so the feed can
// notice Disconnect. The serial driver counts it in tenths of a second.
const pollInterval = 100 // ms

// openPort is replaced in tests.
var openPort = serial.Open

// SerialTransport carries frames over a local serial port in 8N1 mode.
type SerialTransport struct {
	path   string
	baud   int
	port   io.ReadWriteCloser
	feed   *portFeed
	frames *frameReader
	connMu sync.RWMutex
	readMu sync.Mutex
}

var _ Transport = (*SerialTransport)(nil)

// NewSerialTransport creates a transport for the device at path.
func NewSerialTransport(path string, opts Options) *SerialTransport {
	baud := opts.Baud
	if baud == 0 {
		baud = DefaultOptions().Baud
	}
	return &SerialTransport{path: path, baud: baud}
}

// Connect opens the port.
func (s *SerialTransport) Connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.port != nil {
		return ErrAlreadyConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	port, err := openPort(serial.OpenOptions{
		PortName:              s.path,
		BaudRate:              uint(s.baud),
		DataBits:              8,
		StopBits:              1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: pollInterval,
		MinimumReadSize:       0,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	s.port = port
	s.feed = newPortFeed(port)
	s.frames = newFrameReader(s.feed)
	return nil
}

// Disconnect closes the port and stops the feed.
func (s *SerialTransport) Disconnect() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	if s.port == nil {
		return nil
	}
	s.feed.stop()
	err := s.port.Close()
	s.port = nil
	s.feed = nil
	s.frames = nil
	return err
}

// Send writes one frame.
func (s *SerialTransport) Send(ctx context.Context, frame []byte) error {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if s.port == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.port.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Receive reads one length-delimited frame.
func (s *SerialTransport) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	s.connMu.RLock()
	defer s.connMu.RUnlock()

	if s.port == nil {
		return nil, ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.readMu.Lock()
	defer s.readMu.Unlock()

	s.feed.deadline = receiveDeadline(ctx, timeout)
	s.feed.cancel = ctx.Done()
	frame, err := s.frames.next()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return frame, nil
}

// IsConnected returns whether the port is open.
func (s *SerialTransport) IsConnected() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.port != nil
}

func (s *SerialTransport) String() string {
	return fmt.Sprintf("serial://%s?baud=%d", s.path, s.baud)
}

// portFeed pumps bytes off the port in the background and serves them as
// an io.Reader with a deadline. The serial driver has no read deadlines,
// only the inter-character timeout, which ends a read with no data.
type portFeed struct {
	chunks  chan []byte
	done    chan struct{}
	once    sync.Once
	err     error // valid once chunks is closed
	pending []byte

	// set by Receive before each read
	deadline time.Time
	cancel   <-chan struct{}
}

func newPortFeed(r io.Reader) *portFeed {
	f := &portFeed{chunks: make(chan []byte, 16), done: make(chan struct{})}
	go f.pump(r)
	return f
}

func (f *portFeed) pump(r io.Reader) {
	defer close(f.chunks)
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case f.chunks <- append([]byte(nil), buf[:n]...):
			case <-f.done:
				return
			}
		}
		select {
		case <-f.done:
			return
		default:
		}
		if err != nil {
			// a timed-out read with no data surfaces as EOF on unix
			if errors.Is(err, io.EOF) {
				continue
			}
			f.err = err
			return
		}
	}
}

func (f *portFeed) stop() {
	f.once.Do(func() { close(f.done) })
}

func (f *portFeed) Read(p []byte) (int, error) {
	if len(f.pending) == 0 {
		var timer <-chan time.Time
		if !f.deadline.IsZero() {
			t := time.NewTimer(time.Until(f.deadline))
			defer t.Stop()
			timer = t.C
		}
		select {
		case chunk, ok := <-f.chunks:
			if !ok {
				if f.err != nil {
					return 0, f.err
				}
				return 0, io.EOF
			}
			f.pending = chunk
		case <-timer:
			return 0, os.ErrDeadlineExceeded
		case <-f.cancel:
			return 0, context.Canceled
		}
	}
	n := copy(p, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}
