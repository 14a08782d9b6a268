// Package capture records XCMP traffic on any transport to a pcap file and
// reads such files back.
package capture

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/pcapgo"

	"github.com/tturner/radiobench/internal/transport"
)

const snapLen = 65535

// Recorder wraps a transport and writes every frame sent or received to a
// pcap stream. Write failures are counted and never break the link.
type Recorder struct {
	inner  transport.Transport
	mu     sync.Mutex
	writer *pcapgo.Writer
	closer io.Closer
	now    func() time.Time
	frames int
	errors int
}

var _ transport.Transport = (*Recorder)(nil)

// NewRecorder starts a capture on w.
func NewRecorder(inner transport.Transport, w io.Writer) (*Recorder, error) {
	writer := pcapgo.NewWriter(w)
	if err := writer.WriteFileHeader(snapLen, LinkTypeXCMP); err != nil {
		return nil, fmt.Errorf("write pcap header: %w", err)
	}
	r := &Recorder{inner: inner, writer: writer, now: time.Now}
	if c, ok := w.(io.Closer); ok {
		r.closer = c
	}
	return r, nil
}

// NewFileRecorder starts a capture into a new file at path.
func NewFileRecorder(inner transport.Transport, path string) (*Recorder, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create pcap file: %w", err)
	}
	r, err := NewRecorder(inner, file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) record(dir Direction, frame []byte) {
	data := make([]byte, 0, len(frame)+1)
	data = append(data, byte(dir))
	data = append(data, frame...)

	r.mu.Lock()
	defer r.mu.Unlock()
	ci := gopacket.CaptureInfo{
		Timestamp:     r.now(),
		CaptureLength: len(data),
		Length:        len(data),
	}
	if err := r.writer.WritePacket(ci, data); err != nil {
		r.errors++
		return
	}
	r.frames++
}

// Connect connects the wrapped transport.
func (r *Recorder) Connect(ctx context.Context) error {
	return r.inner.Connect(ctx)
}

// Disconnect disconnects the wrapped transport and closes the capture file.
func (r *Recorder) Disconnect() error {
	err := r.inner.Disconnect()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closer != nil {
		if cerr := r.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
		r.closer = nil
	}
	return err
}

// Send records and forwards a frame.
func (r *Recorder) Send(ctx context.Context, frame []byte) error {
	if err := r.inner.Send(ctx, frame); err != nil {
		return err
	}
	r.record(ToRadio, frame)
	return nil
}

// Receive forwards and records a frame.
func (r *Recorder) Receive(ctx context.Context, timeout time.Duration) ([]byte, error) {
	frame, err := r.inner.Receive(ctx, timeout)
	if err != nil {
		return nil, err
	}
	r.record(FromRadio, frame)
	return frame, nil
}

// IsConnected reports the state of the wrapped transport.
func (r *Recorder) IsConnected() bool {
	return r.inner.IsConnected()
}

func (r *Recorder) String() string {
	return r.inner.String() + " (capture)"
}

// Stats returns recorded frame and write error counts.
func (r *Recorder) Stats() (frames, errors int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames, r.errors
}
