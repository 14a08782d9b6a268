package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

func TestPipeRoundTrip(t *testing.T) {
	a, b := NewPipe()
	ctx := context.Background()
	if err := a.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := b.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	frame := []byte{0x00, 0x02, 0x00, 0x0D}
	if err := a.Send(ctx, frame); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame[3] = 0xFF
	got, err := b.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(got, []byte{0x00, 0x02, 0x00, 0x0D}) {
		t.Fatalf("Receive = % X", got)
	}
}

func TestPipeTimeout(t *testing.T) {
	a, _ := NewPipe()
	a.Connect(context.Background())
	start := time.Now()
	_, err := a.Receive(context.Background(), 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Receive err = %v, want ErrTimeout", err)
	}
	if !IsTimeout(err) {
		t.Fatal("IsTimeout false for ErrTimeout")
	}
	if time.Since(start) < 25*time.Millisecond {
		t.Fatal("Receive returned before timeout")
	}
}

func TestPipeCancel(t *testing.T) {
	a, _ := NewPipe()
	a.Connect(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := a.Receive(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive err = %v, want context.Canceled", err)
	}
}

func TestPipeNotConnected(t *testing.T) {
	a, _ := NewPipe()
	if err := a.Send(context.Background(), []byte{0}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Send err = %v", err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := a.Connect(context.Background()); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("double Connect err = %v", err)
	}
}

type chunkReader struct {
	chunks [][]byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	c.chunks = c.chunks[1:]
	return n, nil
}

func TestFrameReaderReassembles(t *testing.T) {
	r := &chunkReader{chunks: [][]byte{
		{0x00},
		{0x03, 0x80, 0x0D},
		{0x00, 0x00, 0x02, 0x00},
		{0x0C},
	}}
	fr := newFrameReader(r)

	first, err := fr.next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !bytes.Equal(first, []byte{0x00, 0x03, 0x80, 0x0D, 0x00}) {
		t.Fatalf("first = % X", first)
	}
	second, err := fr.next()
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if !bytes.Equal(second, []byte{0x00, 0x02, 0x00, 0x0C}) {
		t.Fatalf("second = % X", second)
	}
	if _, err := fr.next(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestTCPTransport(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4)
		if _, err := io.ReadFull(conn, buf); err != nil {
			return
		}
		conn.Write([]byte{0x00, 0x03, 0x80})
		time.Sleep(10 * time.Millisecond)
		conn.Write([]byte{0x0D, 0x00})
		time.Sleep(200 * time.Millisecond)
	}()

	tr := NewTCPTransport(ln.Addr().String(), DefaultOptions())
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Disconnect()
	if !tr.IsConnected() {
		t.Fatal("IsConnected false after Connect")
	}

	if err := tr.Send(ctx, []byte{0x00, 0x02, 0x00, 0x0D}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame, err := tr.Receive(ctx, time.Second)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if !bytes.Equal(frame, []byte{0x00, 0x03, 0x80, 0x0D, 0x00}) {
		t.Fatalf("frame = % X", frame)
	}

	if _, err := tr.Receive(ctx, 20*time.Millisecond); !IsTimeout(err) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestTCPTransportDisconnectIdempotent(t *testing.T) {
	tr := NewTCPTransport("127.0.0.1:1", DefaultOptions())
	if err := tr.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, err := tr.Receive(context.Background(), time.Millisecond); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Receive err = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		spec    string
		want    string
		wantErr bool
	}{
		{"tcp://10.0.0.5:4001", "tcp://10.0.0.5:4001", false},
		{"10.0.0.5:4001", "tcp://10.0.0.5:4001", false},
		{"serial:///dev/ttyUSB0?baud=9600", "serial:///dev/ttyUSB0?baud=9600", false},
		{"/dev/ttyACM0", "serial:///dev/ttyACM0?baud=115200", false},
		{"serial:///dev/ttyUSB0?baud=fast", "", true},
		{"udp://host:1", "", true},
		{"justahost", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			tr, err := Parse(tt.spec, DefaultOptions())
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.spec)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q): %v", tt.spec, err)
			}
			if tr.String() != tt.want {
				t.Errorf("String() = %q, want %q", tr.String(), tt.want)
			}
		})
	}
}
