package bench

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/xcmp"
)

// RSSI limits are raw receiver units.
const (
	rssiTarget   = 150
	rssiLower    = 140
	rssiUpper    = 255
	rssiLevelDBm = -50
)

// RSSITest generates an FM carrier on each receive frequency and reads the
// radio's signal strength.
type RSSITest struct {
	base
}

func (t *RSSITest) Name() string { return TestRSSI }

func (t *RSSITest) ResultType() report.ResultType { return report.RSSI }

func (t *RSSITest) Setup(ctx context.Context, env *Env) error {
	return setupGenerator(ctx, env, env.Instrument.SetupRXTestFMMod)
}

// setupGenerator switches the instrument to its generate screen and runs
// the receiver setup.
func setupGenerator(ctx context.Context, env *Env, setup func(context.Context) error) error {
	if err := env.Instrument.SetDisplay(ctx, instrument.ScreenGenerate); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}
	if err := setup(ctx); err != nil {
		return err
	}
	return env.wait(ctx, env.Timing.Settle)
}

// receiveFrequencies returns the receive table without the transmit-only
// range.
func receiveFrequencies(env *Env) ([]uint32, error) {
	all, err := env.rxFrequencies()
	if err != nil {
		return nil, err
	}
	var out []uint32
	for _, hz := range all {
		if ReceivableFrequency(hz) {
			out = append(out, hz)
		} else {
			env.Log.Verbose("Skipping transmit-only frequency %g MHz", mhz(hz))
		}
	}
	if len(out) == 0 {
		return nil, ErrNoFrequencies
	}
	return out, nil
}

func (t *RSSITest) PerformTest(ctx context.Context, env *Env) error {
	freqs, err := receiveFrequencies(env)
	if err != nil {
		return err
	}
	for _, hz := range freqs {
		rssi, err := t.measure(ctx, env, hz)
		if err != nil {
			return err
		}
		env.Log.Info("RSSI at %g MHz: %s", mhz(hz), env.describeRSSI(rssi))
		env.Report.AddResult(report.RSSI, float64(rssi), rssiTarget, rssiLower, rssiUpper, int64(hz))
	}
	return nil
}

// describeRSSI formats a raw reading with its input power when the family
// has a calibration curve.
func (e *Env) describeRSSI(raw int) string {
	if dbm, ok := e.Family.RSSIDBm(raw); ok {
		return fmt.Sprintf("%d (%.1f dBm)", raw, dbm)
	}
	return strconv.Itoa(raw)
}

func (t *RSSITest) measure(ctx context.Context, env *Env, hz uint32) (int, error) {
	if err := env.Radio.SetReceiveConfig(ctx, xcmp.RxConfigAnalogCsq); err != nil {
		return 0, err
	}
	if err := env.Radio.SetRXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.RxModulationC4FM); err != nil {
		return 0, err
	}
	if err := env.Instrument.SetTxFrequency(ctx, hz); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Short); err != nil {
		return 0, err
	}
	defer env.stopGenerating(ctx)
	if err := env.Instrument.GenerateSignal(ctx, rssiLevelDBm); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.RSSI); err != nil {
		return 0, err
	}
	return env.Radio.GetRSSI(ctx)
}

func (t *RSSITest) Teardown(ctx context.Context, env *Env) error {
	env.stopGenerating(ctx)
	return nil
}
