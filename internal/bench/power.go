package bench

import (
	"context"
	"fmt"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Transmit power limits in watts.
const (
	powerLower = 0.75
	powerUpper = 7.0
)

// PowerTest drives the power amplifier to each pair of characterization
// points and measures output power.
type PowerTest struct {
	freqs  []uint32
	points []int32
}

func (t *PowerTest) Name() string { return TestPower }

func (t *PowerTest) ResultType() report.ResultType { return report.TxPower }

func (t *PowerTest) Eligible(env *Env) bool {
	return env.Family.PowerEligible != nil && env.Family.PowerEligible(env.Radio.Model())
}

func (t *PowerTest) Setup(ctx context.Context, env *Env) error {
	if err := env.Instrument.SetDisplay(ctx, instrument.ScreenMonitor); err != nil {
		return err
	}
	if err := env.Instrument.SetupTXPowerTest(ctx); err != nil {
		return err
	}
	freqs, err := env.txFrequencies()
	if err != nil {
		return err
	}
	if len(freqs) == 0 {
		return ErrNoFrequencies
	}
	points, err := env.Radio.TxPowerPoints(ctx)
	if err != nil {
		return err
	}
	if len(points) < 2*len(freqs) {
		return fmt.Errorf("radio reports %d power characterization points for %d frequencies", len(points), len(freqs))
	}
	t.freqs, t.points = freqs, points
	return nil
}

func (t *PowerTest) PerformTest(ctx context.Context, env *Env) error {
	for i, hz := range t.freqs {
		if err := env.Radio.SetTXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.TxDeviationNoModulation); err != nil {
			return err
		}
		if err := env.Instrument.SetRxFrequency(ctx, hz, instrument.ModeAnalog); err != nil {
			return err
		}
		for j := 0; j < 2; j++ {
			if err := t.measurePoint(ctx, env, hz, t.points[2*i+j]); err != nil {
				return err
			}
			if err := env.wait(ctx, env.Timing.Settle); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *PowerTest) measurePoint(ctx context.Context, env *Env, hz uint32, point int32) error {
	defer env.dekey(ctx)
	if err := env.Radio.Keyup(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.PowerKeyup); err != nil {
		return err
	}
	if err := env.updateSoftpot(ctx, xcmp.SoftpotTxPower, point, 2); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Carrier); err != nil {
		return err
	}
	w, err := env.Instrument.MeasurePower(ctx)
	if err != nil {
		return err
	}
	w = round(w, 2)
	env.Log.Info("Transmit power at %g MHz, point %d: %.2f W", mhz(hz), point, w)
	env.Report.AddResult(report.TxPower, w, 0, powerLower, powerUpper, int64(hz))
	return nil
}

func (t *PowerTest) Teardown(context.Context, *Env) error { return nil }
