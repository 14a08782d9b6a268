package bench

import (
	"context"
	"errors"
	"fmt"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/xcmp"
)

const (
	freqErrorLimit = 50
	sweepRSSILower = 150
	sweepRSSILevel = -47
	maxSweepPoints = 10000
)

var errSweepStep = errors.New("bench: extended sweep step must be positive")

// sweep lists start..end inclusive. An unset range takes the ends of the
// band table.
func sweep(env *Env, table []uint32) ([]uint32, error) {
	p := env.Params
	if p.ExtendedStep == 0 {
		return nil, errSweepStep
	}
	start, end := p.ExtendedStart, p.ExtendedEnd
	if start == 0 && end == 0 {
		if len(table) == 0 {
			return nil, ErrNoFrequencies
		}
		start, end = table[0], table[len(table)-1]
	}
	if end < start {
		return nil, fmt.Errorf("bench: extended sweep %d..%d is inverted", start, end)
	}
	if (end-start)/p.ExtendedStep >= maxSweepPoints {
		return nil, fmt.Errorf("bench: extended sweep %d..%d by %d has too many points", start, end, p.ExtendedStep)
	}
	var out []uint32
	for hz := uint64(start); hz <= uint64(end); hz += uint64(p.ExtendedStep) {
		out = append(out, uint32(hz))
	}
	return out, nil
}

// TxExtendedTest sweeps the transmitter across a range, measuring
// frequency error and, when the instrument decodes P25, bit error rate.
type TxExtendedTest struct {
	base
	freqs []uint32
}

func (t *TxExtendedTest) Name() string { return TestTxExtended }

func (t *TxExtendedTest) ResultType() report.ResultType { return report.FreqError }

func (t *TxExtendedTest) Setup(ctx context.Context, env *Env) error {
	table, err := env.txFrequencies()
	if err != nil {
		return err
	}
	if t.freqs, err = sweep(env, table); err != nil {
		return err
	}
	if err := env.Instrument.SetDisplay(ctx, instrument.ScreenMonitor); err != nil {
		return err
	}
	return env.Instrument.SetupRefOscillatorTest(ctx, instrument.ModeAnalog)
}

func (t *TxExtendedTest) PerformTest(ctx context.Context, env *Env) error {
	p25 := env.Instrument.SupportsP25()
	for _, hz := range t.freqs {
		if err := t.carrier(ctx, env, hz); err != nil {
			return err
		}
		if err := env.wait(ctx, env.Timing.Settle); err != nil {
			return err
		}
		if !p25 {
			continue
		}
		if err := env.Radio.SetTransmitConfig(ctx, xcmp.TxConfigStandardToneTestPattern); err != nil {
			return err
		}
		ber, err := measureTxBER(ctx, env, hz)
		if err != nil {
			return err
		}
		recordBER(env, "Transmit", hz, ber)
	}
	return nil
}

func (t *TxExtendedTest) carrier(ctx context.Context, env *Env, hz uint32) error {
	if err := env.Radio.SetTransmitConfig(ctx, xcmp.TxConfigAnalogCsq); err != nil {
		return err
	}
	if err := env.Radio.SetTXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.TxDeviationNoModulation); err != nil {
		return err
	}
	if err := env.Instrument.SetRxFrequency(ctx, hz, instrument.ModeAnalog); err != nil {
		return err
	}
	defer env.dekey(ctx)
	if err := env.Radio.Keyup(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Carrier); err != nil {
		return err
	}
	fe, err := env.Instrument.MeasureFrequencyError(ctx)
	if err != nil {
		return err
	}
	w, err := env.Instrument.MeasurePower(ctx)
	if err != nil {
		return err
	}
	fe = round(fe, 2)
	env.Log.Info("Sweep at %g MHz: frequency error %.2f Hz, power %.2f W", mhz(hz), fe, round(w, 2))
	env.Report.AddResult(report.FreqError, fe, 0, -freqErrorLimit, freqErrorLimit, int64(hz))
	return nil
}

// RxExtendedTest sweeps the receiver across a range, reading RSSI and,
// when the instrument generates P25, bit error rate.
type RxExtendedTest struct {
	freqs []uint32
}

func (t *RxExtendedTest) Name() string { return TestRxExtended }

func (t *RxExtendedTest) ResultType() report.ResultType { return report.RSSI }

func (t *RxExtendedTest) Eligible(*Env) bool { return true }

func (t *RxExtendedTest) Setup(ctx context.Context, env *Env) error {
	table, err := env.rxFrequencies()
	if err != nil {
		return err
	}
	all, err := sweep(env, table)
	if err != nil {
		return err
	}
	t.freqs = t.freqs[:0]
	for _, hz := range all {
		if ReceivableFrequency(hz) {
			t.freqs = append(t.freqs, hz)
		}
	}
	if len(t.freqs) == 0 {
		return ErrNoFrequencies
	}
	return setupGenerator(ctx, env, env.Instrument.SetupRXTestFMMod)
}

func (t *RxExtendedTest) PerformTest(ctx context.Context, env *Env) error {
	p25 := env.Instrument.SupportsP25()
	for _, hz := range t.freqs {
		rssi, err := t.rssi(ctx, env, hz)
		if err != nil {
			return err
		}
		env.Log.Info("Sweep at %g MHz: RSSI %s", mhz(hz), env.describeRSSI(rssi))
		env.Report.AddResult(report.RSSI, float64(rssi), rssiTarget, sweepRSSILower, rssiUpper, int64(hz))
		if !p25 {
			continue
		}
		if err := t.ber(ctx, env, hz); err != nil {
			return err
		}
	}
	return nil
}

func (t *RxExtendedTest) rssi(ctx context.Context, env *Env, hz uint32) (int, error) {
	if err := env.Radio.SetReceiveConfig(ctx, xcmp.RxConfigAnalogCsq); err != nil {
		return 0, err
	}
	if err := env.Radio.SetRXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.RxModulationC4FM); err != nil {
		return 0, err
	}
	if err := env.Instrument.SetTxFrequency(ctx, hz); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Generator); err != nil {
		return 0, err
	}
	defer env.stopGenerating(ctx)
	if err := env.Instrument.GenerateSignal(ctx, sweepRSSILevel); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Generator); err != nil {
		return 0, err
	}
	return env.Radio.GetRSSI(ctx)
}

func (t *RxExtendedTest) ber(ctx context.Context, env *Env, hz uint32) error {
	if err := env.Radio.SetReceiveConfig(ctx, xcmp.RxConfigStandardToneTestPattern); err != nil {
		return err
	}
	if err := env.Instrument.SetupRXTestP25BER(ctx); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Settle); err != nil {
		return err
	}
	ber, err := measureRxBER(ctx, env, hz)
	if err != nil {
		return err
	}
	recordBER(env, "Receive", hz, ber)
	if err := env.Instrument.SetupRXTestFMMod(ctx); err != nil {
		return err
	}
	return env.wait(ctx, env.Timing.Settle)
}

func (t *RxExtendedTest) Teardown(ctx context.Context, env *Env) error {
	env.stopGenerating(ctx)
	return nil
}
