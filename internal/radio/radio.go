package radio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/transport"
	"github.com/tturner/radiobench/internal/xcmp"
)

// BERTiming holds the waits GetP25BER observes between its steps.
type BERTiming struct {
	PatternSettle time.Duration // after selecting the receive pattern
	PerFrame      time.Duration // per integrated frame before fetching the report
}

// DefaultBERTiming matches the integration time of the radio firmware.
var DefaultBERTiming = BERTiming{
	PatternSettle: 500 * time.Millisecond,
	PerFrame:      800 * time.Millisecond,
}

// Radio is a connected XCMP radio.
type Radio struct {
	session   *Session
	log       logging.Sink
	berTiming BERTiming

	serial string
	model  string
}

// New builds a Radio on tr. Session options apply to the underlying
// Session.
func New(tr transport.Transport, opts ...Option) *Radio {
	s := NewSession(tr, opts...)
	return &Radio{session: s, log: s.log, berTiming: DefaultBERTiming}
}

// SetBERTiming overrides the BER integration waits.
func (r *Radio) SetBERTiming(t BERTiming) { r.berTiming = t }

// Session returns the radio's protocol session.
func (r *Radio) Session() *Session { return r.session }

// Connect opens the transport. Unless skipIdentify is set it reads the
// serial and model numbers.
func (r *Radio) Connect(ctx context.Context, skipIdentify bool) error {
	if err := r.session.tr.Connect(ctx); err != nil {
		return fmt.Errorf("connect %s: %w", r.session.tr, err)
	}
	if skipIdentify {
		return nil
	}
	serial, err := r.GetStatus(ctx, xcmp.StatusSerialNumber)
	if err != nil {
		_ = r.session.tr.Disconnect()
		return fmt.Errorf("read serial number: %w", err)
	}
	model, err := r.GetStatus(ctx, xcmp.StatusModelNumber)
	if err != nil {
		_ = r.session.tr.Disconnect()
		return fmt.Errorf("read model number: %w", err)
	}
	r.serial = trimNUL(serial)
	r.model = trimNUL(model)
	r.log.Info("XCMP: connected to radio model %s (S/N %s)", r.model, r.serial)
	return nil
}

// Disconnect closes the transport.
func (r *Radio) Disconnect() error {
	err := r.session.tr.Disconnect()
	r.log.Info("XCMP: disconnected from radio")
	return err
}

// Serial returns the serial number read at Connect.
func (r *Radio) Serial() string { return r.serial }

// Model returns the model number read at Connect.
func (r *Radio) Model() string { return r.model }

func (r *Radio) String() string {
	if r.model == "" {
		return r.session.tr.String()
	}
	return fmt.Sprintf("%s (S/N %s) via %s", r.model, r.serial, r.session.tr)
}

func trimNUL(b []byte) string {
	return strings.TrimRight(string(b), "\x00")
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
