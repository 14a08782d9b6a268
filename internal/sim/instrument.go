package sim

import (
	"context"
	"errors"
	"time"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/xcmp"
)

// ErrNoCarrier is returned by transmitter measurements when the analyzer
// is not tuned to a keyed radio.
var ErrNoCarrier = errors.New("sim instrument: no carrier")

// Instrument measures the simulated radio sharing its State.
type Instrument struct {
	state *State
	delay time.Duration

	connected bool
	screen    instrument.Screen
	setups    []string
}

var _ instrument.Instrument = (*Instrument)(nil)

// NewInstrument returns an instrument on state. configureDelay is reported
// by ConfigureDelay.
func NewInstrument(state *State, configureDelay time.Duration) *Instrument {
	return &Instrument{state: state, delay: configureDelay}
}

func (i *Instrument) Connect(ctx context.Context) error {
	i.connected = true
	return ctx.Err()
}

func (i *Instrument) Disconnect() error {
	i.connected = false
	return nil
}

func (i *Instrument) Info() instrument.Info {
	return instrument.Info{Manufacturer: "radiobench", Model: "Simulated Test Set", Serial: "SIM-0001", Version: "1.0"}
}

func (i *Instrument) SupportsP25() bool            { return true }
func (i *Instrument) ConfigureDelay() time.Duration { return i.delay }

// Setups returns the setup commands received, in order.
func (i *Instrument) Setups() []string { return append([]string(nil), i.setups...) }

// Screen returns the last front panel view selected.
func (i *Instrument) Screen() instrument.Screen { return i.screen }

func (i *Instrument) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !i.connected {
		return errors.New("sim instrument: not connected")
	}
	return nil
}

func (i *Instrument) Reset(ctx context.Context) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	s := i.state
	s.mu.Lock()
	s.generating = false
	s.instRxHz, s.genHz = 0, 0
	s.mu.Unlock()
	return nil
}

func (i *Instrument) SetDisplay(ctx context.Context, screen instrument.Screen) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	i.screen = screen
	return nil
}

func (i *Instrument) SetRxFrequency(ctx context.Context, hz uint32, mode instrument.Mode) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	s := i.state
	s.mu.Lock()
	s.instRxHz = hz
	s.instMode = int(mode)
	s.mu.Unlock()
	return nil
}

func (i *Instrument) SetTxFrequency(ctx context.Context, hz uint32) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	s := i.state
	s.mu.Lock()
	s.genHz = hz
	s.mu.Unlock()
	return nil
}

func (i *Instrument) generate(ctx context.Context, dBm float64, p25 bool) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	s := i.state
	s.mu.Lock()
	s.generating, s.genP25, s.genDBm = true, p25, dBm
	s.mu.Unlock()
	return nil
}

func (i *Instrument) GenerateSignal(ctx context.Context, dBm float64) error {
	return i.generate(ctx, dBm, false)
}

func (i *Instrument) GenerateP25Pattern(ctx context.Context, dBm float64) error {
	return i.generate(ctx, dBm, true)
}

func (i *Instrument) StopGenerating(ctx context.Context) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	s := i.state
	s.mu.Lock()
	s.generating = false
	s.mu.Unlock()
	return nil
}

// measure runs fn with the carrier present.
func (i *Instrument) measure(ctx context.Context, fn func() float64) (float64, error) {
	if err := i.ready(ctx); err != nil {
		return 0, err
	}
	s := i.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.carrierOnLocked() {
		return 0, ErrNoCarrier
	}
	return fn(), nil
}

func (i *Instrument) MeasurePower(ctx context.Context) (float64, error) {
	return i.measure(ctx, i.state.powerLocked)
}

func (i *Instrument) MeasureFrequencyError(ctx context.Context) (float64, error) {
	return i.measure(ctx, i.state.refOscErrorLocked)
}

func (i *Instrument) MeasureFMDeviation(ctx context.Context) (float64, error) {
	return i.measure(ctx, i.state.deviationLocked)
}

// MeasureP25RxBER reports a clean pattern only when the radio transmits
// the standard tone test pattern and the analyzer demodulates P25.
func (i *Instrument) MeasureP25RxBER(ctx context.Context) (float64, error) {
	s := i.state
	return i.measure(ctx, func() float64 {
		if s.txConfig == xcmp.TxConfigStandardToneTestPattern && s.instMode == int(instrument.ModeP25) {
			return 0.0123
		}
		return 50
	})
}

func (i *Instrument) ResetBERErrors(ctx context.Context) error { return i.ready(ctx) }

func (i *Instrument) setup(ctx context.Context, name string) error {
	if err := i.ready(ctx); err != nil {
		return err
	}
	i.setups = append(i.setups, name)
	return nil
}

func (i *Instrument) SetupRefOscillatorTest(ctx context.Context, mode instrument.Mode) error {
	return i.setup(ctx, "refosc:"+mode.String())
}

func (i *Instrument) SetupTXPowerTest(ctx context.Context) error {
	return i.setup(ctx, "tx-power")
}

func (i *Instrument) SetupTXDeviationTest(ctx context.Context) error {
	return i.setup(ctx, "tx-deviation")
}

func (i *Instrument) SetupTXP25BERTest(ctx context.Context) error {
	return i.setup(ctx, "tx-p25-ber")
}

func (i *Instrument) SetupRXTestFMMod(ctx context.Context) error {
	return i.setup(ctx, "rx-fm")
}

func (i *Instrument) SetupRXTestP25BER(ctx context.Context) error {
	return i.setup(ctx, "rx-p25-ber")
}
