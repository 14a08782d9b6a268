package bench

import (
	"context"
	"fmt"

	"github.com/tturner/radiobench/internal/control"
	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/radio"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/tuning"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Deviation balance limits, in percent of the low tone deviation.
const (
	balanceLimit          = 1.5
	balanceTolerance      = 0.75
	balanceVarianceTol    = 10
	balanceMeasurementMax = 25
	balanceKp             = -0.2
)

// DeviationBalanceTest compares high and low tone deviation at each
// modulation balance anchor and aligns the balance softpot.
type DeviationBalanceTest struct {
	base
	params radio.Params
}

func (t *DeviationBalanceTest) Name() string { return TestDeviation }

func (t *DeviationBalanceTest) ResultType() report.ResultType { return report.TxDeviationBalance }

func (t *DeviationBalanceTest) Setup(ctx context.Context, env *Env) error {
	inst := env.Instrument
	if err := inst.SetDisplay(ctx, instrument.ScreenMonitor); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}
	if err := inst.SetupTXDeviationTest(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}

	p, err := env.Radio.SoftpotParams(ctx, xcmp.SoftpotModBalance)
	if err != nil {
		return err
	}
	if len(p.Frequencies) == 0 {
		freqs, err := env.txFrequencies()
		if err != nil {
			return err
		}
		if len(freqs) != len(p.Values) {
			return &xcmp.CountMismatchError{Type: xcmp.SoftpotModBalance, Values: len(p.Values), Frequencies: len(freqs)}
		}
		p.Frequencies = freqs
	}
	if len(p.Frequencies) == 0 {
		return ErrNoFrequencies
	}
	t.params = p
	return nil
}

// keyTone keys the radio on one balance tone with the softpot at v.
func (t *DeviationBalanceTest) keyTone(ctx context.Context, env *Env, tone xcmp.TransmitConfig, v int32) error {
	if err := env.Radio.SetTransmitConfig(ctx, tone); err != nil {
		return err
	}
	if err := env.Radio.SetTransmitPower(ctx, xcmp.TxPowerLow); err != nil {
		return err
	}
	if err := env.Radio.Keyup(ctx); err != nil {
		return err
	}
	return env.updateSoftpot(ctx, xcmp.SoftpotModBalance, v, t.params.ByteLength)
}

func (t *DeviationBalanceTest) toneDeviation(ctx context.Context, env *Env, tone xcmp.TransmitConfig, v int32) (float64, error) {
	defer env.dekey(ctx)
	if err := t.keyTone(ctx, env, tone, v); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Deviation); err != nil {
		return 0, err
	}
	d, err := env.Instrument.MeasureFMDeviation(ctx)
	if err != nil {
		return 0, err
	}
	return round(d, 0), nil
}

func balance(low, high float64) (float64, error) {
	if low == 0 {
		return 0, fmt.Errorf("low tone deviation is zero")
	}
	return round((high-low)/low*100, 2), nil
}

// measureBalance returns the high tone deviation relative to the low tone,
// in percent, with the softpot at v.
func (t *DeviationBalanceTest) measureBalance(ctx context.Context, env *Env, hz uint32, v int32) (float64, error) {
	if err := env.Radio.SetTXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.TxDeviationNoModulation); err != nil {
		return 0, err
	}
	if err := env.Instrument.SetRxFrequency(ctx, hz, instrument.ModeAnalog); err != nil {
		return 0, err
	}
	low, err := t.toneDeviation(ctx, env, xcmp.TxConfigModBalanceLowTone, v)
	if err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Short); err != nil {
		return 0, err
	}
	high, err := t.toneDeviation(ctx, env, xcmp.TxConfigModBalanceHighTone, v)
	if err != nil {
		return 0, err
	}
	env.Log.Verbose("Deviation at %g MHz: low %g Hz high %g Hz", mhz(hz), low, high)
	return balance(low, high)
}

func (t *DeviationBalanceTest) record(env *Env, hz uint32, b float64) {
	env.Log.Info("Deviation balance at %g MHz: %.2f%%", mhz(hz), b)
	env.Report.AddResult(report.TxDeviationBalance, b, 0, -balanceLimit, balanceLimit, int64(hz))
}

func (t *DeviationBalanceTest) PerformTest(ctx context.Context, env *Env) error {
	for i, hz := range t.params.Frequencies {
		b, err := t.measureBalance(ctx, env, hz, t.params.Values[i])
		if err != nil {
			return err
		}
		t.record(env, hz, b)
		if err := env.wait(ctx, env.Timing.Short); err != nil {
			return err
		}
	}
	return nil
}

func (t *DeviationBalanceTest) PerformAlignment(ctx context.Context, env *Env) error {
	for i, hz := range t.params.Frequencies {
		if err := t.alignPoint(ctx, env, hz, t.params.Values[i]); err != nil {
			return err
		}
		if err := env.wait(ctx, env.Timing.Cooldown); err != nil {
			return err
		}
	}
	return nil
}

func (t *DeviationBalanceTest) alignPoint(ctx context.Context, env *Env, hz uint32, start int32) error {
	if err := env.Instrument.SetRxFrequency(ctx, hz, instrument.ModeAnalog); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Short); err != nil {
		return err
	}
	if err := env.Radio.SetTXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.TxDeviationDefault); err != nil {
		return err
	}
	low, err := t.toneDeviation(ctx, env, xcmp.TxConfigModBalanceLowTone, start)
	if err != nil {
		return err
	}
	if low == 0 {
		return fmt.Errorf("low tone deviation is zero at %g MHz", mhz(hz))
	}
	if err := env.wait(ctx, env.Timing.Short); err != nil {
		return err
	}

	res, err := t.tuneHighTone(ctx, env, hz, start, low)
	if err != nil {
		return err
	}
	if !res.Converged() {
		env.Report.AddError(report.TxDeviationBalance, alignmentFailed("Deviation Balance", hz))
		return nil
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}
	b, err := t.measureBalance(ctx, env, hz, res.FinalValue)
	if err != nil {
		return err
	}
	t.record(env, hz, b)
	return nil
}

func (t *DeviationBalanceTest) tuneHighTone(ctx context.Context, env *Env, hz uint32, start int32, low float64) (tuning.Result, error) {
	defer env.dekey(ctx)
	if err := t.keyTone(ctx, env, xcmp.TxConfigModBalanceHighTone, start); err != nil {
		return tuning.Result{}, err
	}
	if err := env.wait(ctx, env.Timing.ToneSettle); err != nil {
		return tuning.Result{}, err
	}
	measure := func(ctx context.Context) (float64, error) {
		d, err := env.Instrument.MeasureFMDeviation(ctx)
		if err != nil {
			return 0, err
		}
		return balance(low, round(d, 0))
	}
	loop := tuning.New(tuning.Config{
		Softpot:           xcmp.SoftpotModBalance,
		Frequency:         hz,
		Min:               t.params.Min,
		Max:               t.params.Max,
		ByteLength:        t.params.ByteLength,
		Target:            0,
		Tolerance:         balanceTolerance,
		VarianceTolerance: balanceVarianceTol,
		MeasurementRange:  control.Range{Min: -balanceMeasurementMax, Max: balanceMeasurementMax},
		Gains:             control.Gains{Kp: balanceKp},
		Delay:             env.Timing.TuningDelay,
		Timeout:           env.tuningTimeout(),
	}, env.Radio, measure, env.tuningOptions()...)
	return loop.Tune(ctx)
}
