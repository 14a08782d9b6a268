package sim

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/radio"
	"github.com/tturner/radiobench/internal/xcmp"
)

func newBench(t *testing.T, cfg Config) (*radio.Radio, *Instrument, *State) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	state := NewState(cfg)
	tr, err := Pair(ctx, state, nil)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	r := radio.New(tr, radio.WithTimeout(time.Second))
	r.SetBERTiming(radio.BERTiming{})
	if err := r.Connect(ctx, false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	inst := NewInstrument(state, 0)
	if err := inst.Connect(ctx); err != nil {
		t.Fatalf("instrument Connect: %v", err)
	}
	return r, inst, state
}

func TestIdentity(t *testing.T) {
	r, _, _ := newBench(t, DefaultConfig())
	if r.Model() != "H98QDF9PW6AN" || r.Serial() != "426CSP0001" {
		t.Fatalf("identity = %q %q", r.Model(), r.Serial())
	}
	v, err := r.GetVersion(context.Background(), xcmp.VersionHostSoftware)
	if err != nil || v != "R02.10.00" {
		t.Fatalf("version = %q, %v", v, err)
	}
}

func TestUpdateIsTransientUntilWrite(t *testing.T) {
	ctx := context.Background()
	r, _, state := newBench(t, DefaultConfig())
	start := state.Persisted(xcmp.SoftpotRefOsc)[0]

	b, _ := xcmp.ValueToBytes(start+7, 2)
	if err := r.UpdateSoftpot(ctx, xcmp.SoftpotRefOsc, b); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := state.Current(xcmp.SoftpotRefOsc)[0]; got != start+7 {
		t.Fatalf("current = %d", got)
	}
	if err := r.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := state.Current(xcmp.SoftpotRefOsc)[0]; got != start {
		t.Fatalf("after reset current = %d, want %d", got, start)
	}

	if err := r.WriteSoftpot(ctx, xcmp.SoftpotRefOsc, b); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := r.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if got := state.Persisted(xcmp.SoftpotRefOsc)[0]; got != start+7 {
		t.Fatalf("persisted = %d", got)
	}
	if state.Resets() != 2 {
		t.Fatalf("resets = %d", state.Resets())
	}
}

func TestSoftpotOutOfRangeRejected(t *testing.T) {
	r, _, _ := newBench(t, DefaultConfig())
	b, _ := xcmp.ValueToBytes(5000, 2)
	err := r.UpdateSoftpot(context.Background(), xcmp.SoftpotRefOsc, b)
	if !xcmp.IsRejected(err, xcmp.ResultSoftpotValueOutOfRange) {
		t.Fatalf("err = %v", err)
	}
}

func TestSoftpotParamsMatchAnchors(t *testing.T) {
	cfg := DefaultConfig()
	r, _, _ := newBench(t, cfg)
	p, err := r.SoftpotParams(context.Background(), xcmp.SoftpotModBalance)
	if err != nil {
		t.Fatalf("SoftpotParams: %v", err)
	}
	if len(p.Frequencies) != 3 || len(p.Values) != 3 {
		t.Fatalf("params = %s", p)
	}
	if p.Frequencies[0] != cfg.TxFrequencies[0] || p.Max != 1023 || p.ByteLength != 2 {
		t.Fatalf("params = %s freqs %v", p, p.Frequencies)
	}
	points, err := r.TxPowerPoints(context.Background())
	if err != nil || len(points) != 2*len(cfg.TxFrequencies) || points[0] != 300 || points[1] != 1000 {
		t.Fatalf("points = %v, %v", points, err)
	}
}

func TestUnsupportedSoftpotType(t *testing.T) {
	r, _, _ := newBench(t, DefaultConfig())
	_, err := r.ReadSoftpot(context.Background(), xcmp.SoftpotBattCal)
	if !xcmp.IsRejected(err, xcmp.ResultSoftpotTypeNotSupported) {
		t.Fatalf("err = %v", err)
	}
}

func TestFrequencyErrorTracksRefOsc(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	r, inst, state := newBench(t, cfg)
	f := cfg.TxFrequencies[len(cfg.TxFrequencies)-1]

	if _, err := inst.MeasureFrequencyError(ctx); !errors.Is(err, ErrNoCarrier) {
		t.Fatalf("unkeyed err = %v", err)
	}
	if err := r.SetTXFrequency(ctx, f, xcmp.Bandwidth25kHz, xcmp.TxDeviationNoModulation); err != nil {
		t.Fatal(err)
	}
	if err := inst.SetRxFrequency(ctx, f, instrument.ModeAnalog); err != nil {
		t.Fatal(err)
	}
	if err := r.Keyup(ctx); err != nil {
		t.Fatal(err)
	}
	got, err := inst.MeasureFrequencyError(ctx)
	if err != nil {
		t.Fatalf("MeasureFrequencyError: %v", err)
	}
	want := float64(cfg.RefOscOffset) * cfg.RefOscSlope
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("error = %v, want %v", got, want)
	}
	if err := r.Dekey(ctx); err != nil {
		t.Fatal(err)
	}
	if state.Keyed() {
		t.Fatal("still keyed")
	}
}

func TestDeviationBalance(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	r, inst, _ := newBench(t, cfg)
	f := cfg.TxFrequencies[0]
	_ = r.SetTXFrequency(ctx, f, xcmp.Bandwidth25kHz, xcmp.TxDeviationDefault)
	_ = inst.SetRxFrequency(ctx, f, instrument.ModeAnalog)
	_ = r.Keyup(ctx)

	measure := func(c xcmp.TransmitConfig) float64 {
		t.Helper()
		if err := r.SetTransmitConfig(ctx, c); err != nil {
			t.Fatal(err)
		}
		v, err := inst.MeasureFMDeviation(ctx)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	low := measure(xcmp.TxConfigModBalanceLowTone)
	high := measure(xcmp.TxConfigModBalanceHighTone)
	pct := (high - low) / low * 100
	want := float64(cfg.ModBalanceOffset) * deviationSlope * 100
	if math.Abs(pct-want) > 1e-6 {
		t.Fatalf("balance = %v%%, want %v%%", pct, want)
	}
}

func TestRSSIAndBER(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	r, inst, _ := newBench(t, cfg)
	f := cfg.TxFrequencies[1]
	if err := r.SetReceiveConfig(ctx, xcmp.RxConfigAnalogCsq); err != nil {
		t.Fatal(err)
	}
	_ = r.SetRXFrequency(ctx, f, xcmp.Bandwidth25kHz, xcmp.RxModulationC4FM)
	_ = inst.SetTxFrequency(ctx, f)
	_ = inst.GenerateSignal(ctx, -50)
	rssi, err := r.GetRSSI(ctx)
	if err != nil || rssi != rssiAtMinus50 {
		t.Fatalf("rssi = %d, %v", rssi, err)
	}
	_ = inst.StopGenerating(ctx)

	if _, err := r.GetP25BER(ctx, 4); !errors.Is(err, xcmp.ErrNoSync) {
		t.Fatalf("BER without pattern err = %v", err)
	}
	_ = inst.GenerateP25Pattern(ctx, -116)
	ber, err := r.GetP25BER(ctx, 4)
	if err != nil {
		t.Fatalf("GetP25BER: %v", err)
	}
	want := 100 * 2.0 / float64(5*4*xcmp.BitsPerP25Frame)
	if math.Abs(ber-want) > 1e-9 {
		t.Fatalf("ber = %v, want %v", ber, want)
	}
}

func TestUnsolicitedFramesAreDiscarded(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Unsolicited = 1
	r, _, _ := newBench(t, cfg)
	for i := 0; i < 5; i++ {
		if _, err := r.GetRSSI(context.Background()); err != nil {
			t.Fatalf("GetRSSI %d: %v", i, err)
		}
	}
}

func TestUnknownOpcodeRejected(t *testing.T) {
	r := NewRadio(NewState(DefaultConfig()), nil, nil)
	resp := r.Handle(xcmp.NewRequest(xcmp.OpISHRead))
	if resp.Result != xcmp.ResultOpcodeNotSupported || !resp.IsResponse() {
		t.Fatalf("resp = %s", resp)
	}
}
