package bench

import (
	"context"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/xcmp"
)

// BER limits in percent.
const (
	berLower    = 0
	berUpper    = 1
	berFrames   = 4
	berLevelDBm = -116
)

// RxBERTest generates the P25 1011 pattern and reads the radio's receive
// bit error rate.
type RxBERTest struct{}

func (t *RxBERTest) Name() string { return TestRxBER }

func (t *RxBERTest) ResultType() report.ResultType { return report.BitErrorRate }

func (t *RxBERTest) Eligible(env *Env) bool { return env.Instrument.SupportsP25() }

func (t *RxBERTest) Setup(ctx context.Context, env *Env) error {
	return setupGenerator(ctx, env, env.Instrument.SetupRXTestP25BER)
}

func (t *RxBERTest) PerformTest(ctx context.Context, env *Env) error {
	freqs, err := receiveFrequencies(env)
	if err != nil {
		return err
	}
	if err := env.Radio.SetReceiveConfig(ctx, xcmp.RxConfigStandardToneTestPattern); err != nil {
		return err
	}
	for _, hz := range freqs {
		ber, err := measureRxBER(ctx, env, hz)
		if err != nil {
			return err
		}
		recordBER(env, "Receive", hz, ber)
	}
	return nil
}

func (t *RxBERTest) Teardown(ctx context.Context, env *Env) error {
	env.stopGenerating(ctx)
	return nil
}

func measureRxBER(ctx context.Context, env *Env, hz uint32) (float64, error) {
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
	if err := env.Instrument.GenerateP25Pattern(ctx, berLevelDBm); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Generator); err != nil {
		return 0, err
	}
	ber, err := env.Radio.GetP25BER(ctx, berFrames)
	if err != nil {
		return 0, err
	}
	return round(ber, 4), nil
}

func recordBER(env *Env, direction string, hz uint32, ber float64) {
	env.Log.Info("%s BER at %g MHz: %.4f%%", direction, mhz(hz), ber)
	env.Report.AddResult(report.BitErrorRate, ber, 0, berLower, berUpper, int64(hz))
}

// TxBERTest keys the radio on the standard tone test pattern and has the
// instrument count bit errors.
type TxBERTest struct{}

func (t *TxBERTest) Name() string { return TestTxBER }

func (t *TxBERTest) ResultType() report.ResultType { return report.BitErrorRate }

func (t *TxBERTest) Eligible(env *Env) bool { return env.Instrument.SupportsP25() }

func (t *TxBERTest) Setup(ctx context.Context, env *Env) error {
	if err := env.Instrument.SetDisplay(ctx, instrument.ScreenMonitor); err != nil {
		return err
	}
	return env.Instrument.SetupTXP25BERTest(ctx)
}

func (t *TxBERTest) PerformTest(ctx context.Context, env *Env) error {
	freqs, err := env.txFrequencies()
	if err != nil {
		return err
	}
	if len(freqs) == 0 {
		return ErrNoFrequencies
	}
	if err := env.Radio.SetTransmitConfig(ctx, xcmp.TxConfigStandardToneTestPattern); err != nil {
		return err
	}
	if err := env.wait(ctx, env.Timing.Short); err != nil {
		return err
	}
	for _, hz := range freqs {
		ber, err := measureTxBER(ctx, env, hz)
		if err != nil {
			return err
		}
		recordBER(env, "Transmit", hz, ber)
		if err := env.wait(ctx, env.Timing.Settle); err != nil {
			return err
		}
	}
	return nil
}

func (t *TxBERTest) Teardown(context.Context, *Env) error { return nil }

// measureTxBER expects the transmit config already set to the test pattern.
func measureTxBER(ctx context.Context, env *Env, hz uint32) (float64, error) {
	if err := env.Radio.SetTXFrequency(ctx, hz, xcmp.Bandwidth25kHz, xcmp.TxDeviationDefault); err != nil {
		return 0, err
	}
	if err := env.Instrument.SetRxFrequency(ctx, hz, instrument.ModeP25); err != nil {
		return 0, err
	}
	defer env.dekey(ctx)
	if err := env.Radio.Keyup(ctx); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.BERKeyup); err != nil {
		return 0, err
	}
	if err := env.Instrument.ResetBERErrors(ctx); err != nil {
		return 0, err
	}
	if err := env.wait(ctx, env.Timing.Carrier); err != nil {
		return 0, err
	}
	ber, err := env.Instrument.MeasureP25RxBER(ctx)
	if err != nil {
		return 0, err
	}
	return round(ber, 4), nil
}
