// Package bench sequences the radio tests and alignments: each test
// configures the instrument and radio, takes its measurements and records
// them in a report.
package bench

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/radio"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/tuning"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Radio is the unit under test. *radio.Radio satisfies it.
type Radio interface {
	tuning.Softpot

	Model() string
	Serial() string
	Reset(ctx context.Context) error

	SetTXFrequency(ctx context.Context, hz uint32, bw xcmp.Bandwidth, dev xcmp.TxDeviation) error
	SetRXFrequency(ctx context.Context, hz uint32, bw xcmp.Bandwidth, mod xcmp.RxModulation) error
	SetTransmitConfig(ctx context.Context, cfg xcmp.TransmitConfig) error
	SetReceiveConfig(ctx context.Context, cfg xcmp.ReceiveConfig) error
	SetTransmitPower(ctx context.Context, level xcmp.TxPowerLevel) error
	Keyup(ctx context.Context) error
	Dekey(ctx context.Context) error

	GetRSSI(ctx context.Context) (int, error)
	GetP25BER(ctx context.Context, frames int) (float64, error)

	ReadSoftpotMin(ctx context.Context, t xcmp.SoftpotType) ([]byte, error)
	ReadSoftpotMax(ctx context.Context, t xcmp.SoftpotType) ([]byte, error)
	SoftpotParams(ctx context.Context, t xcmp.SoftpotType) (radio.Params, error)
	TxPowerPoints(ctx context.Context) ([]int32, error)
}

var _ Radio = (*radio.Radio)(nil)

// Timing holds every wait the tests observe. The zero value waits for
// nothing, which the simulator tolerates.
type Timing struct {
	Settle        time.Duration // between tests and after setup commands
	Short         time.Duration // after dekey and between frequencies
	Carrier       time.Duration // keyed carrier before a frequency or power reading
	AlignSettle   time.Duration // keyed carrier before a reference oscillator alignment
	Deviation     time.Duration // tone modulation before a deviation reading
	ToneSettle    time.Duration // high tone before a deviation alignment
	Cooldown      time.Duration // after each deviation alignment point
	PowerKeyup    time.Duration // after keyup before setting the power point
	RSSI          time.Duration // generator on before reading RSSI
	Generator     time.Duration // generator settle for BER and sweeps
	BERKeyup      time.Duration // keyed pattern before resetting the BER counters
	TuningDelay   time.Duration // between tuning iterations
	TuningTimeout time.Duration
}

// DefaultTiming matches real radios and instruments.
func DefaultTiming() Timing {
	return Timing{
		Settle:        time.Second,
		Short:         500 * time.Millisecond,
		Carrier:       5 * time.Second,
		AlignSettle:   3 * time.Second,
		Deviation:     6 * time.Second,
		ToneSettle:    2500 * time.Millisecond,
		Cooldown:      2500 * time.Millisecond,
		PowerKeyup:    500 * time.Millisecond,
		RSSI:          1500 * time.Millisecond,
		Generator:     5 * time.Second,
		BERKeyup:      1500 * time.Millisecond,
		TuningDelay:   3 * time.Second,
		TuningTimeout: 60 * time.Second,
	}
}

const defaultTuningTimeout = 60 * time.Second

// Params selects which tests run and the extended sweep range.
type Params struct {
	RefOsc     bool
	Power      bool
	Deviation  bool
	RSSI       bool
	TxBER      bool
	RxBER      bool
	TxExtended bool
	RxExtended bool

	ExtendedStart uint32
	ExtendedEnd   uint32
	ExtendedStep  uint32
}

// DefaultParams enables every test except the extended sweeps.
func DefaultParams() Params {
	return Params{RefOsc: true, Power: true, Deviation: true, RSSI: true, TxBER: true, RxBER: true}
}

// Env is what a test works with.
type Env struct {
	Radio      Radio
	Instrument instrument.Instrument
	Family     *Family
	Report     *report.Report
	Log        logging.Sink
	Metrics    *metrics.Collectors
	Trace      *metrics.TraceWriter
	Timing     Timing
	Params     Params
}

func (e *Env) wait(ctx context.Context, d time.Duration) error {
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

// configureWait waits the instrument's post-setup delay.
func (e *Env) configureWait(ctx context.Context) error {
	return e.wait(ctx, e.Instrument.ConfigureDelay())
}

// cleanupTimeout bounds teardown commands issued after cancellation.
const cleanupTimeout = 5 * time.Second

// dekey unkeys the radio even when ctx is already cancelled.
func (e *Env) dekey(ctx context.Context) {
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := e.Radio.Dekey(c); err != nil {
		e.Log.Error("Dekey failed: %v", err)
	}
}

// stopGenerating turns the instrument generator off even when ctx is
// already cancelled.
func (e *Env) stopGenerating(ctx context.Context) {
	c, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	if err := e.Instrument.StopGenerating(c); err != nil {
		e.Log.Error("Stop generating failed: %v", err)
	}
}

func (e *Env) tuningOptions() []tuning.Option {
	return []tuning.Option{tuning.WithLogger(e.Log), tuning.WithMetrics(e.Metrics), tuning.WithTrace(e.Trace)}
}

func (e *Env) tuningTimeout() time.Duration {
	if e.Timing.TuningTimeout > 0 {
		return e.Timing.TuningTimeout
	}
	return defaultTuningTimeout
}

func (e *Env) txFrequencies() ([]uint32, error) {
	return e.Family.TxFrequencies(e.Radio.Model())
}

func (e *Env) rxFrequencies() ([]uint32, error) {
	return e.Family.RxFrequencies(e.Radio.Model())
}

func (e *Env) updateSoftpot(ctx context.Context, t xcmp.SoftpotType, v int32, byteLen int) error {
	b, err := xcmp.ValueToBytes(v, byteLen)
	if err != nil {
		return err
	}
	return e.Radio.UpdateSoftpot(ctx, t, b)
}

func (e *Env) softpotBounds(ctx context.Context, t xcmp.SoftpotType) (lo, hi int32, byteLen int, err error) {
	minB, err := e.Radio.ReadSoftpotMin(ctx, t)
	if err != nil {
		return 0, 0, 0, err
	}
	maxB, err := e.Radio.ReadSoftpotMax(ctx, t)
	if err != nil {
		return 0, 0, 0, err
	}
	if lo, err = xcmp.BytesToValue(minB); err != nil {
		return 0, 0, 0, err
	}
	if hi, err = xcmp.BytesToValue(maxB); err != nil {
		return 0, 0, 0, err
	}
	return lo, hi, len(minB), nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// mhz formats hz for log lines.
func mhz(hz uint32) float64 { return float64(hz) / 1e6 }

// ErrNoFrequencies is returned when a test has nothing to measure.
var ErrNoFrequencies = errors.New("bench: no test frequencies")
