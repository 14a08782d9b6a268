// Package instrument defines the RF test instrument the bench drives: a
// signal generator and analyzer commanded over its own link.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Mode selects the demodulation used when measuring the radio transmitter.
type Mode int

const (
	ModeAnalog Mode = iota
	ModeP25
	ModeDMR
)

func (m Mode) String() string {
	switch m {
	case ModeAnalog:
		return "analog"
	case ModeP25:
		return "p25"
	case ModeDMR:
		return "dmr"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Screen is the instrument front panel view.
type Screen int

const (
	ScreenMonitor Screen = iota
	ScreenGenerate
)

// ErrUnsupported is returned for measurements the instrument cannot make.
var ErrUnsupported = errors.New("instrument: operation not supported")

// Info identifies an instrument.
type Info struct {
	Manufacturer string
	Model        string
	Serial       string
	Version      string
}

func (i Info) String() string {
	parts := []string{i.Manufacturer, i.Model}
	if i.Serial != "" {
		parts = append(parts, "S/N "+i.Serial)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// Instrument is the bench-side view of a test set. Frequencies are in Hz,
// power in dBm when generating and watts when measuring, BER in percent.
type Instrument interface {
	Connect(ctx context.Context) error
	Disconnect() error
	Info() Info
	SupportsP25() bool
	// ConfigureDelay is how long to wait after a setup command.
	ConfigureDelay() time.Duration

	Reset(ctx context.Context) error
	SetDisplay(ctx context.Context, s Screen) error

	SetRxFrequency(ctx context.Context, hz uint32, mode Mode) error
	SetTxFrequency(ctx context.Context, hz uint32) error
	GenerateSignal(ctx context.Context, dBm float64) error
	GenerateP25Pattern(ctx context.Context, dBm float64) error
	StopGenerating(ctx context.Context) error

	MeasurePower(ctx context.Context) (float64, error)
	MeasureFrequencyError(ctx context.Context) (float64, error)
	MeasureFMDeviation(ctx context.Context) (float64, error)
	MeasureP25RxBER(ctx context.Context) (float64, error)
	ResetBERErrors(ctx context.Context) error

	SetupRefOscillatorTest(ctx context.Context, mode Mode) error
	SetupTXPowerTest(ctx context.Context) error
	SetupTXDeviationTest(ctx context.Context) error
	SetupTXP25BERTest(ctx context.Context) error
	SetupRXTestFMMod(ctx context.Context) error
	SetupRXTestP25BER(ctx context.Context) error
}
