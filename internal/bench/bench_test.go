package bench

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tturner/radiobench/internal/radio"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/sim"
	"github.com/tturner/radiobench/internal/xcmp"
)

// lineSink keeps formatted info lines.
type lineSink struct {
	mu    sync.Mutex
	lines []string
}

func (l *lineSink) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, v...))
}

func (l *lineSink) Error(string, ...interface{})   {}
func (l *lineSink) Verbose(string, ...interface{}) {}
func (l *lineSink) Debug(string, ...interface{})   {}

type recorder struct {
	mu       sync.Mutex
	started  []string
	finished map[string]error
	onStart  func(name string)
}

func (r *recorder) TestStarted(name string, index, total int) {
	r.mu.Lock()
	r.started = append(r.started, name)
	r.mu.Unlock()
	if r.onStart != nil {
		r.onStart(name)
	}
}

func (r *recorder) TestFinished(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finished == nil {
		r.finished = map[string]error{}
	}
	r.finished[name] = err
}

// faultyInstrument overrides the frequency error reading.
type faultyInstrument struct {
	*sim.Instrument
	measureFreqErr func(ctx context.Context) (float64, error)
}

func (f *faultyInstrument) MeasureFrequencyError(ctx context.Context) (float64, error) {
	return f.measureFreqErr(ctx)
}

func newEnv(t *testing.T, cfg sim.Config, family string) (*Env, *sim.State, *sim.Instrument) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	state := sim.NewState(cfg)
	tr, err := sim.Pair(ctx, state, nil)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	r := radio.New(tr, radio.WithTimeout(time.Second))
	r.SetBERTiming(radio.BERTiming{})
	if err := r.Connect(ctx, false); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	inst := sim.NewInstrument(state, 0)
	if err := inst.Connect(ctx); err != nil {
		t.Fatalf("instrument Connect: %v", err)
	}
	f, err := GetFamily(family)
	if err != nil {
		t.Fatalf("GetFamily: %v", err)
	}
	env := &Env{
		Radio:      r,
		Instrument: inst,
		Family:     f,
		Params:     DefaultParams(),
	}
	return env, state, inst
}

// signedConfig matches the simulated reference oscillator slope to the
// family's loop gain.
func signedConfig(family string) sim.Config {
	cfg := sim.DefaultConfig()
	if family != "apx" {
		cfg.RefOscSlope = -cfg.RefOscSlope
	}
	return cfg
}

func resultsOf(r *report.Report, t report.ResultType) []report.TestResult {
	var out []report.TestResult
	for _, res := range r.Results() {
		if res.Type == t {
			out = append(out, res)
		}
	}
	return out
}

func TestBandForModel(t *testing.T) {
	tests := []struct {
		model string
		name  string
		n     int
		ok    bool
	}{
		{"H98QDF9PW6AN", "UHF1", 5, true},
		{"M20KSS9PW1AN", "VHF", 6, true},
		{"H92UCF9PW6AN", "7/800", 8, true},
		{"h98rdf9pw6an", "UHF2", 5, true},
		{"H98ZDF", "", 0, false},
		{"H9", "", 0, false},
	}
	for _, tt := range tests {
		b, err := BandForModel(tt.model)
		if (err == nil) != tt.ok {
			t.Errorf("BandForModel(%q) err = %v", tt.model, err)
			continue
		}
		if !tt.ok {
			continue
		}
		if b.Name != tt.name || len(b.TX) != tt.n || len(b.RX) != tt.n {
			t.Errorf("BandForModel(%q) = %s with %d/%d frequencies", tt.model, b.Name, len(b.TX), len(b.RX))
		}
	}
}

func TestReceivableFrequency(t *testing.T) {
	tests := []struct {
		hz   uint32
		want bool
	}{
		{775987500, true},
		{785000000, true},
		{794012500, false},
		{823987500, false},
		{850000000, true},
		{851012500, true},
	}
	for _, tt := range tests {
		if got := ReceivableFrequency(tt.hz); got != tt.want {
			t.Errorf("ReceivableFrequency(%d) = %v", tt.hz, got)
		}
	}
}

func TestRegistryLookups(t *testing.T) {
	_, err := GetFamily("saber")
	var fe *UnknownFamilyError
	if !errors.As(err, &fe) || !strings.Contains(err.Error(), "apx") {
		t.Fatalf("GetFamily(saber) err = %v", err)
	}
	if f, err := GetFamily("APX"); err != nil || f.Name != "apx" {
		t.Fatalf("GetFamily(APX) = %v, %v", f, err)
	}

	_, err = GetTest("selfdestruct")
	var te *UnknownTestError
	if !errors.As(err, &te) {
		t.Fatalf("GetTest err = %v", err)
	}
	for _, f := range FamilyNames() {
		fam, _ := GetFamily(f)
		for _, name := range append(Plan(fam, ModeTest), Plan(fam, ModeAlign)...) {
			tt, err := GetTest(name)
			if err != nil {
				t.Fatalf("%s: GetTest(%s): %v", f, name, err)
			}
			if tt.Name() != name {
				t.Errorf("GetTest(%s).Name() = %s", name, tt.Name())
			}
		}
		for _, name := range Plan(fam, ModeAlign) {
			tt, _ := GetTest(name)
			if _, ok := tt.(Aligner); !ok {
				t.Errorf("%s: %s in align sequence cannot align", f, name)
			}
		}
	}
}

func TestPowerEligibility(t *testing.T) {
	apx, _ := GetFamily("apx")
	astro, _ := GetFamily("astro25")
	xpr, _ := GetFamily("xpr")
	tests := []struct {
		f     *Family
		model string
		want  bool
	}{
		{apx, "H92UCF9PW6AN", true},
		{apx, "M20SSS9PW1AN", true},
		{apx, "H98QDF9PW6AN", false},
		{astro, "H92UCF9PW6AN", false},
		{xpr, "H98QDF9PW6AN", true},
	}
	for _, tt := range tests {
		if got := tt.f.PowerEligible(tt.model); got != tt.want {
			t.Errorf("%s PowerEligible(%s) = %v", tt.f.Name, tt.model, got)
		}
	}
}

func TestSweep(t *testing.T) {
	env := &Env{Params: Params{ExtendedStart: 380000000, ExtendedEnd: 381000000, ExtendedStep: 500000}}
	got, err := sweep(env, nil)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	want := []uint32{380000000, 380500000, 381000000}
	if len(got) != len(want) {
		t.Fatalf("sweep = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sweep = %v", got)
		}
	}

	env.Params = Params{ExtendedStep: 1}
	if got, err := sweep(env, []uint32{1, 3}); err != nil || len(got) != 3 {
		t.Fatalf("sweep over table = %v, %v", got, err)
	}

	env.Params = Params{ExtendedStart: 2, ExtendedEnd: 1, ExtendedStep: 1}
	if _, err := sweep(env, nil); err == nil {
		t.Fatal("inverted sweep accepted")
	}
	env.Params = Params{ExtendedStart: 1, ExtendedEnd: 2}
	if _, err := sweep(env, nil); !errors.Is(err, errSweepStep) {
		t.Fatalf("zero step err = %v", err)
	}
}

func TestRunTestSequence(t *testing.T) {
	env, state, inst := newEnv(t, sim.DefaultConfig(), "apx")
	rec := &recorder{}
	if err := NewRunner(env, rec).Run(context.Background(), ModeTest); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantOrder := []string{TestRefOsc, TestDeviation, TestTxBER, TestRSSI, TestRxBER}
	if strings.Join(rec.started, ",") != strings.Join(wantOrder, ",") {
		t.Fatalf("started = %v, want %v", rec.started, wantOrder)
	}
	if env.Report.IsOpen() {
		t.Error("report left open")
	}
	if state.Keyed() {
		t.Error("radio left keyed")
	}

	ref := resultsOf(env.Report, report.RefOsc)
	if len(ref) != 1 || ref[0].Measured != -24 || !ref[0].Passed() || ref[0].Frequency != 469975000 {
		t.Fatalf("refosc results = %+v", ref)
	}
	bal := resultsOf(env.Report, report.TxDeviationBalance)
	if len(bal) != 3 {
		t.Fatalf("balance results = %+v", bal)
	}
	for _, b := range bal {
		if b.Passed() || math.Abs(b.Measured-6) > 0.1 {
			t.Errorf("balance %+v, want failing near 6%%", b)
		}
	}
	if n := len(resultsOf(env.Report, report.RSSI)); n != 5 {
		t.Errorf("rssi results = %d", n)
	}
	ber := resultsOf(env.Report, report.BitErrorRate)
	if len(ber) != 10 {
		t.Fatalf("ber results = %d", len(ber))
	}
	for _, b := range ber {
		if !b.Passed() {
			t.Errorf("ber %+v failed", b)
		}
	}
	if len(resultsOf(env.Report, report.TxPower)) != 0 {
		t.Error("power ran on an ineligible model")
	}
	if env.Report.Passed() {
		t.Error("report passed despite deviation imbalance")
	}
	if len(env.Report.Errors()) != 0 {
		t.Errorf("errors = %+v", env.Report.Errors())
	}

	setups := strings.Join(inst.Setups(), ",")
	for _, s := range []string{"refosc:p25", "tx-deviation", "tx-p25-ber", "rx-fm", "rx-p25-ber"} {
		if !strings.Contains(setups, s) {
			t.Errorf("setup %s not issued (%s)", s, setups)
		}
	}
}

func TestRSSIReportsInputPower(t *testing.T) {
	env, _, _ := newEnv(t, sim.DefaultConfig(), "apx")
	sink := &lineSink{}
	env.Log = sink
	env.Params = Params{RSSI: true}
	if err := NewRunner(env, &recorder{}).Run(context.Background(), ModeTest); err != nil {
		t.Fatalf("Run: %v", err)
	}
	found := 0
	for _, line := range sink.lines {
		if strings.HasPrefix(line, "RSSI at ") {
			found++
			if !strings.HasSuffix(line, ": 200 (-50.0 dBm)") {
				t.Errorf("line = %q", line)
			}
		}
	}
	if found != 5 {
		t.Errorf("rssi lines = %d in %q", found, sink.lines)
	}

	xpr, err := GetFamily("xpr")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := xpr.RSSIDBm(200); ok {
		t.Error("xpr has no rssi curve")
	}
	if dbm, ok := env.Family.RSSIDBm(150); !ok || dbm != -75 {
		t.Errorf("RSSIDBm(150) = %g, %v", dbm, ok)
	}
}

func TestRunParamsDisableTests(t *testing.T) {
	env, _, _ := newEnv(t, sim.DefaultConfig(), "apx")
	env.Params = Params{RefOsc: true}
	rec := &recorder{}
	if err := NewRunner(env, rec).Run(context.Background(), ModeTest); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rec.started) != 1 || rec.started[0] != TestRefOsc {
		t.Fatalf("started = %v", rec.started)
	}
	if !env.Report.Passed() {
		t.Errorf("report failed: %+v", env.Report.Results())
	}
}

func TestRunXPRWithPowerAndReset(t *testing.T) {
	env, state, _ := newEnv(t, signedConfig("xpr"), "xpr")
	if err := NewRunner(env, nil).Run(context.Background(), ModeTest); err != nil {
		t.Fatalf("Run: %v", err)
	}
	power := resultsOf(env.Report, report.TxPower)
	if len(power) != 10 {
		t.Fatalf("power results = %d", len(power))
	}
	for i, p := range power {
		want := 1.5
		if i%2 == 1 {
			want = 5
		}
		if p.Measured != want || !p.Passed() {
			t.Errorf("power[%d] = %+v, want %g W", i, p, want)
		}
	}
	if state.Resets() != 1 {
		t.Errorf("resets = %d, want 1", state.Resets())
	}
	if ref := resultsOf(env.Report, report.RefOsc); len(ref) != 1 || ref[0].Measured != 24 {
		t.Errorf("refosc = %+v", ref)
	}
}

func TestAlignReferenceOscillator(t *testing.T) {
	env, state, _ := newEnv(t, sim.DefaultConfig(), "apx")
	env.Report = report.New(report.TypeAlignment)
	if err := NewRunner(env, nil).Run(context.Background(), ModeAlign); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := state.Persisted(xcmp.SoftpotRefOsc)[0]
	ideal := state.Ideal(xcmp.SoftpotRefOsc)[0]
	if d := got - ideal; d < -8 || d > 8 {
		t.Fatalf("persisted refosc = %d, ideal %d", got, ideal)
	}
	ref := resultsOf(env.Report, report.RefOsc)
	if len(ref) != 1 || !ref[0].Passed() || math.Abs(ref[0].Measured) > 10 {
		t.Fatalf("post-alignment result = %+v", ref)
	}
	if len(env.Report.Errors()) != 0 {
		t.Fatalf("errors = %+v", env.Report.Errors())
	}
}

func TestAlignDeviationBalance(t *testing.T) {
	env, state, _ := newEnv(t, signedConfig("astro25"), "astro25")
	env.Report = report.New(report.TypeAlignment)
	if err := NewRunner(env, nil).Run(context.Background(), ModeAlign); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := state.Persisted(xcmp.SoftpotModBalance)
	ideal := state.Ideal(xcmp.SoftpotModBalance)
	for i := range ideal {
		if got[i] != ideal[i] {
			t.Errorf("mod balance[%d] = %d, want %d", i, got[i], ideal[i])
		}
	}
	bal := resultsOf(env.Report, report.TxDeviationBalance)
	if len(bal) != 3 {
		t.Fatalf("balance results = %+v", bal)
	}
	for _, b := range bal {
		if !b.Passed() {
			t.Errorf("balance %+v failed after alignment", b)
		}
	}
	if !env.Report.Passed() {
		t.Errorf("alignment report failed: %+v %+v", env.Report.Results(), env.Report.Errors())
	}
}

func TestAlignmentFailureIsRecorded(t *testing.T) {
	env, state, inst := newEnv(t, sim.DefaultConfig(), "apx")
	env.Report = report.New(report.TypeAlignment)
	env.Timing.TuningTimeout = 50 * time.Millisecond
	env.Instrument = &faultyInstrument{Instrument: inst, measureFreqErr: func(ctx context.Context) (float64, error) {
		return 400, nil
	}}
	start := state.Persisted(xcmp.SoftpotRefOsc)[0]
	if err := NewRunner(env, nil).Run(context.Background(), ModeAlign); err != nil {
		t.Fatalf("Run: %v", err)
	}
	errs := env.Report.Errors()
	if len(errs) != 1 || errs[0].Message != "Alignment for Reference Oscillator Failed" {
		t.Fatalf("errors = %+v", errs)
	}
	if state.Persisted(xcmp.SoftpotRefOsc)[0] != start {
		t.Error("softpot written despite failed alignment")
	}
	if env.Report.Passed() {
		t.Error("report passed")
	}
}

func TestErrorStopsSequence(t *testing.T) {
	env, state, inst := newEnv(t, sim.DefaultConfig(), "apx")
	fault := errors.New("analyzer fault")
	env.Instrument = &faultyInstrument{Instrument: inst, measureFreqErr: func(context.Context) (float64, error) {
		return 0, fault
	}}
	rec := &recorder{}
	err := NewRunner(env, rec).Run(context.Background(), ModeTest)
	if !errors.Is(err, fault) {
		t.Fatalf("Run err = %v", err)
	}
	if len(rec.started) != 1 || !errors.Is(rec.finished[TestRefOsc], fault) {
		t.Fatalf("started = %v finished = %v", rec.started, rec.finished)
	}
	errs := env.Report.Errors()
	if len(errs) != 1 || errs[0].Type != report.RefOsc || !strings.Contains(errs[0].Message, "analyzer fault") {
		t.Fatalf("errors = %+v", errs)
	}
	if state.Keyed() {
		t.Error("radio left keyed")
	}
	if env.Report.IsOpen() {
		t.Error("report left open")
	}
}

func TestCancelDekeysAndRecordsNothing(t *testing.T) {
	env, state, inst := newEnv(t, sim.DefaultConfig(), "apx")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var keyedAtCancel bool
	env.Instrument = &faultyInstrument{Instrument: inst, measureFreqErr: func(ctx context.Context) (float64, error) {
		keyedAtCancel = state.Keyed()
		cancel()
		return 0, ctx.Err()
	}}
	err := NewRunner(env, nil).Run(ctx, ModeTest)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run err = %v", err)
	}
	if !keyedAtCancel {
		t.Fatal("radio was not keyed during the measurement")
	}
	if state.Keyed() {
		t.Error("radio left keyed after cancellation")
	}
	if n := len(env.Report.Errors()); n != 0 {
		t.Errorf("cancellation recorded %d errors", n)
	}
}

func TestRunRequiresRadioAndInstrument(t *testing.T) {
	if err := NewRunner(&Env{}, nil).Run(context.Background(), ModeTest); err == nil {
		t.Fatal("Run with empty env succeeded")
	}
}

func TestAlignmentFailedMessage(t *testing.T) {
	if got := alignmentFailed("Deviation Balance", 380075000); got != "Alignment for Deviation Balance Failed at 380.075 MHz" {
		t.Fatalf("alignmentFailed = %q", got)
	}
}
