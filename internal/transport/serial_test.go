package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

// fakePort behaves like a port opened with an inter-character timeout:
// a read with nothing queued waits briefly and returns (0, io.EOF).
type fakePort struct {
	in      chan []byte
	mu      sync.Mutex
	written bytes.Buffer
	closed  chan struct{}
}

func newFakePort() *fakePort {
	return &fakePort{in: make(chan []byte, 8), closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	select {
	case chunk := <-p.in:
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(5 * time.Millisecond):
		return 0, io.EOF
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	close(p.closed)
	return nil
}

func withFakePort(t *testing.T) (*fakePort, *serial.OpenOptions) {
	t.Helper()
	port := newFakePort()
	var got serial.OpenOptions
	prev := openPort
	openPort = func(opts serial.OpenOptions) (io.ReadWriteCloser, error) {
		got = opts
		return port, nil
	}
	t.Cleanup(func() { openPort = prev })
	return port, &got
}

func TestSerialTransport(t *testing.T) {
	port, opts := withFakePort(t)
	s := NewSerialTransport("/dev/ttyUSB0", Options{Baud: 57600})
	ctx := context.Background()
	if err := s.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer s.Disconnect()

	if opts.BaudRate != 57600 || opts.DataBits != 8 || opts.StopBits != 1 || opts.ParityMode != serial.PARITY_NONE {
		t.Errorf("open options = %+v", *opts)
	}
	if opts.InterCharacterTimeout == 0 || opts.MinimumReadSize != 0 {
		t.Errorf("read timing = %d/%d, want a timed read", opts.InterCharacterTimeout, opts.MinimumReadSize)
	}
	if err := s.Connect(ctx); !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("double Connect err = %v", err)
	}

	if err := s.Send(ctx, []byte{0x00, 0x02, 0x00, 0x0E}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	port.mu.Lock()
	if !bytes.Equal(port.written.Bytes(), []byte{0x00, 0x02, 0x00, 0x0E}) {
		t.Errorf("written = % X", port.written.Bytes())
	}
	port.mu.Unlock()

	// a frame split across reads, with idle timeouts in between
	go func() {
		port.in <- []byte{0x00, 0x03}
		time.Sleep(20 * time.Millisecond)
		port.in <- []byte{0x80, 0x0E, 0x00}
	}()
	got, err := s.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, []byte{0x00, 0x03, 0x80, 0x0E, 0x00}) {
		t.Fatalf("Receive = % X", got)
	}
}

func TestSerialTransportTimeout(t *testing.T) {
	withFakePort(t)
	s := NewSerialTransport("/dev/ttyUSB0", Options{})
	if s.String() != "serial:///dev/ttyUSB0?baud=115200" {
		t.Errorf("String = %s", s.String())
	}
	if _, err := s.Receive(context.Background(), time.Millisecond); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Receive before Connect err = %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	start := time.Now()
	_, err := s.Receive(context.Background(), 30*time.Millisecond)
	if !IsTimeout(err) {
		t.Fatalf("Receive err = %v, want a timeout", err)
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatal("Receive returned before timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	if _, err := s.Receive(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive err = %v, want context.Canceled", err)
	}

	if err := s.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if s.IsConnected() {
		t.Fatal("still connected")
	}
	if err := s.Disconnect(); err != nil {
		t.Fatalf("second Disconnect: %v", err)
	}
}
