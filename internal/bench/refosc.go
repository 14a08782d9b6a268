package bench

import (
	"context"
	"fmt"

	"github.com/tturner/radiobench/internal/control"
	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/tuning"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Reference oscillator limits in Hz.
const (
	refOscLimit          = 50
	refOscTolerance      = 10
	refOscVarianceTol    = 5
	refOscMeasurementMax = 10000
)

// RefOscTest measures carrier frequency error and aligns the reference
// oscillator softpot.
type RefOscTest struct {
	base
	freq    uint32
	min     int32
	max     int32
	byteLen int
}

func (t *RefOscTest) Name() string                  { return TestRefOsc }
func (t *RefOscTest) ResultType() report.ResultType { return report.RefOsc }

func (t *RefOscTest) Setup(ctx context.Context, env *Env) error {
	inst := env.Instrument
	if err := inst.SetDisplay(ctx, instrument.ScreenMonitor); err != nil {
		return err
	}
	if err := env.configureWait(ctx); err != nil {
		return err
	}
	if err := inst.SetupRefOscillatorTest(ctx, instrument.ModeP25); err != nil {
		return err
	}
	if err := env.configureWait(ctx); err != nil {
		return err
	}

	if env.Family.SoftpotFrequencies {
		p, err := env.Radio.SoftpotParams(ctx, xcmp.SoftpotRefOsc)
		if err != nil {
			return err
		}
		if len(p.Frequencies) > 1 {
			return fmt.Errorf("reference oscillator reports %d frequencies, expected 1", len(p.Frequencies))
		}
		t.min, t.max, t.byteLen = p.Min, p.Max, p.ByteLength
		if len(p.Frequencies) == 1 {
			t.freq = p.Frequencies[0]
			return nil
		}
	} else {
		lo, hi, n, err := env.softpotBounds(ctx, xcmp.SoftpotRefOsc)
		if err != nil {
			return err
		}
		t.min, t.max, t.byteLen = lo, hi, n
	}

	freqs, err := env.txFrequencies()
	if err != nil {
		return err
	}
	if len(freqs) == 0 {
		return ErrNoFrequencies
	}
	t.freq = freqs[len(freqs)-1]
	return nil
}

func (t *RefOscTest) tuneCarrier(ctx context.Context, env *Env) error {
	if err := env.Radio.SetTXFrequency(ctx, t.freq, xcmp.Bandwidth25kHz, xcmp.TxDeviationNoModulation); err != nil {
		return err
	}
	return env.Instrument.SetRxFrequency(ctx, t.freq, instrument.ModeAnalog)
}

func (t *RefOscTest) measure(ctx context.Context, env *Env) error {
	fe, err := env.Instrument.MeasureFrequencyError(ctx)
	if err != nil {
		return err
	}
	fe = round(fe, 2)
	env.Log.Info("Reference oscillator error at %g MHz: %.2f Hz", mhz(t.freq), fe)
	env.Report.AddResult(report.RefOsc, fe, 0, -refOscLimit, refOscLimit, int64(t.freq))
	return nil
}

func (t *RefOscTest) PerformTest(ctx context.Context, env *Env) error {
	defer env.dekey(ctx)
	if err := t.tuneCarrier(ctx, env); err != nil {
		return err
	}
	if err := env.Radio.Keyup(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Carrier); err != nil {
		return err
	}
	return t.measure(ctx, env)
}

func (t *RefOscTest) PerformAlignment(ctx context.Context, env *Env) error {
	defer env.dekey(ctx)
	if err := t.tuneCarrier(ctx, env); err != nil {
		return err
	}
	if err := env.Radio.SetTransmitPower(ctx, xcmp.TxPowerLow); err != nil {
		return err
	}
	if err := env.Radio.Keyup(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.AlignSettle); err != nil {
		return err
	}

	loop := tuning.New(tuning.Config{
		Softpot:           xcmp.SoftpotRefOsc,
		Frequency:         t.freq,
		Min:               t.min,
		Max:               t.max,
		ByteLength:        t.byteLen,
		Target:            0,
		Tolerance:         refOscTolerance,
		VarianceTolerance: refOscVarianceTol,
		MeasurementRange:  control.Range{Min: -refOscMeasurementMax, Max: refOscMeasurementMax},
		Gains:             control.Gains{Kp: env.Family.RefOscKp},
		Delay:             env.Timing.TuningDelay,
		Timeout:           env.tuningTimeout(),
	}, env.Radio, env.Instrument.MeasureFrequencyError, env.tuningOptions()...)

	res, err := loop.Tune(ctx)
	if err != nil {
		return err
	}
	if !res.Converged() {
		env.Report.AddError(report.RefOsc, alignmentFailed("Reference Oscillator", 0))
		return nil
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}
	return t.measure(ctx, env)
}
