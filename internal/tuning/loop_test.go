package tuning

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tturner/radiobench/internal/control"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/transport"
	"github.com/tturner/radiobench/internal/xcmp"
)

// fakeSoftpot keeps a persisted and a transient value like the radio does.
type fakeSoftpot struct {
	persisted []byte
	current   []byte
	updates   []int32
	writes    int
}

func newFakeSoftpot(v int32) *fakeSoftpot {
	b, _ := xcmp.ValueToBytes(v, 2)
	return &fakeSoftpot{persisted: b, current: b}
}

func (f *fakeSoftpot) ReadSoftpot(context.Context, xcmp.SoftpotType) ([]byte, error) {
	return append([]byte(nil), f.current...), nil
}

func (f *fakeSoftpot) UpdateSoftpot(_ context.Context, _ xcmp.SoftpotType, value []byte) error {
	f.current = append([]byte(nil), value...)
	v, _ := xcmp.BytesToValue(value)
	f.updates = append(f.updates, v)
	return nil
}

func (f *fakeSoftpot) WriteSoftpot(_ context.Context, _ xcmp.SoftpotType, value []byte) error {
	f.persisted = append([]byte(nil), value...)
	f.current = f.persisted
	f.writes++
	return nil
}

func (f *fakeSoftpot) persistedValue() int32 {
	v, _ := xcmp.BytesToValue(f.persisted)
	return v
}

func decaying(target, start, decay float64) MeasureFunc {
	i := 0
	return func(context.Context) (float64, error) {
		v := target + start*math.Pow(decay, float64(i))
		i++
		return v, nil
	}
}

func baseConfig() Config {
	return Config{
		Softpot:           xcmp.SoftpotRefOsc,
		Min:               0,
		Max:               100,
		Target:            10,
		Tolerance:         5,
		VarianceTolerance: 100,
		MeasurementRange:  control.Range{Min: -1000, Max: 1000},
		Gains:             control.Gains{Kp: 0.1},
		Timeout:           5 * time.Second,
	}
}

func TestTuneConverges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	sp := newFakeSoftpot(50)
	loop := New(baseConfig(), sp, decaying(10, 40, 0.5), WithMetrics(m))
	if err := loop.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	res, err := loop.Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if res.State != StateConverged || loop.State() != StateConverged {
		t.Fatalf("state = %s", res.State)
	}
	if res.Iterations < DefaultMinIterations || res.Iterations > DefaultMinIterations+7 {
		t.Fatalf("iterations = %d", res.Iterations)
	}
	if res.FinalValue < 0 || res.FinalValue > 100 {
		t.Fatalf("final value %d outside range", res.FinalValue)
	}
	if sp.writes != 1 || !bytes.Equal(sp.persisted, res.FinalBytes) {
		t.Fatalf("writes = %d persisted % X final % X", sp.writes, sp.persisted, res.FinalBytes)
	}
	if got := testutil.ToFloat64(m.TuningSessions.WithLabelValues("RefOsc", "converged")); got != 1 {
		t.Fatalf("sessions converged = %v", got)
	}
}

func TestTuneNeverPersistsOnFailure(t *testing.T) {
	sp := newFakeSoftpot(50)
	cfg := baseConfig()
	cfg.Timeout = 60 * time.Millisecond
	cfg.Delay = 2 * time.Millisecond
	measure := func(context.Context) (float64, error) { return 900, nil }
	res, err := New(cfg, sp, measure).Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if res.State != StateTimedOut {
		t.Fatalf("state = %s, want timed_out", res.State)
	}
	if sp.writes != 0 || sp.persistedValue() != 50 {
		t.Fatalf("persisted changed: writes %d value %d", sp.writes, sp.persistedValue())
	}
	if len(sp.updates) == 0 {
		t.Fatal("no transient updates made")
	}
	if res.Committed {
		t.Fatal("result marked committed")
	}
}

func TestTuneMaxIterationsFails(t *testing.T) {
	sp := newFakeSoftpot(50)
	cfg := baseConfig()
	cfg.MaxIterations = 4
	measure := func(context.Context) (float64, error) { return 900, nil }
	res, err := New(cfg, sp, measure).Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if res.State != StateFailed || res.Iterations != 4 {
		t.Fatalf("state = %s iterations %d", res.State, res.Iterations)
	}
	if sp.writes != 0 {
		t.Fatal("failed session wrote softpot")
	}
}

func TestTuneClampsToSoftpotRange(t *testing.T) {
	tests := []struct {
		name string
		kp   float64
		want int32
	}{
		{"saturate high", 1000, 100},
		{"saturate low", -1000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sp := newFakeSoftpot(50)
			cfg := baseConfig()
			cfg.Gains = control.Gains{Kp: tt.kp}
			res, err := New(cfg, sp, decaying(10, 40, 0.5)).Tune(context.Background())
			if err != nil {
				t.Fatalf("Tune: %v", err)
			}
			for _, v := range sp.updates {
				if v < cfg.Min || v > cfg.Max {
					t.Fatalf("update %d outside %d..%d", v, cfg.Min, cfg.Max)
				}
			}
			if res.State != StateConverged {
				t.Fatalf("state = %s", res.State)
			}
			if sp.persistedValue() != tt.want {
				t.Fatalf("committed %d, want %d", sp.persistedValue(), tt.want)
			}
		})
	}
}

func TestTuneRetriesMeasurementTimeouts(t *testing.T) {
	sp := newFakeSoftpot(50)
	inner := decaying(10, 40, 0.5)
	calls := 0
	measure := func(ctx context.Context) (float64, error) {
		calls++
		if calls%2 == 1 {
			return 0, transport.ErrTimeout
		}
		return inner(ctx)
	}
	res, err := New(baseConfig(), sp, measure).Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if res.State != StateConverged {
		t.Fatalf("state = %s", res.State)
	}
}

func TestTuneRetryWaitsDelay(t *testing.T) {
	sp := newFakeSoftpot(50)
	cfg := baseConfig()
	cfg.Timeout = 50 * time.Millisecond
	cfg.Delay = 10 * time.Millisecond
	calls := 0
	measure := func(context.Context) (float64, error) {
		calls++
		return 0, xcmp.ErrTimeout
	}
	res, err := New(cfg, sp, measure).Tune(context.Background())
	if err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if res.State != StateTimedOut || sp.writes != 0 {
		t.Fatalf("state %s writes %d", res.State, sp.writes)
	}
	// about one attempt per delay within the timeout
	if calls < 2 || calls > 10 {
		t.Fatalf("measure called %d times, want one per delay", calls)
	}
}

func TestTuneMeasurementErrorAborts(t *testing.T) {
	sp := newFakeSoftpot(50)
	boom := errors.New("instrument offline")
	measure := func(context.Context) (float64, error) { return 0, boom }
	loop := New(baseConfig(), sp, measure)
	_, err := loop.Tune(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if loop.State() != StateFailed || sp.writes != 0 {
		t.Fatalf("state %s writes %d", loop.State(), sp.writes)
	}
}

func TestTuneCancelled(t *testing.T) {
	sp := newFakeSoftpot(50)
	cfg := baseConfig()
	cfg.Delay = time.Second
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	start := time.Now()
	_, err := New(cfg, sp, decaying(10, 400, 0.9)).Tune(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("cancellation was not prompt")
	}
	if sp.writes != 0 {
		t.Fatal("cancelled session wrote softpot")
	}
}

func TestLoopIsSingleUse(t *testing.T) {
	sp := newFakeSoftpot(50)
	loop := New(baseConfig(), sp, decaying(10, 0, 0.5))
	if _, err := loop.Tune(context.Background()); err != nil {
		t.Fatalf("Tune: %v", err)
	}
	if _, err := loop.Tune(context.Background()); !errors.Is(err, ErrAlreadyRun) {
		t.Fatalf("second Tune err = %v", err)
	}
	if err := loop.Configure(); err == nil {
		t.Fatal("Configure after run accepted")
	}
}

func TestConfigureValidates(t *testing.T) {
	sp := newFakeSoftpot(50)
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"inverted softpot range", func(c *Config) { c.Min, c.Max = 10, 0 }},
		{"negative tolerance", func(c *Config) { c.Tolerance = -1 }},
		{"no timeout", func(c *Config) { c.Timeout = 0 }},
		{"inverted measurement range", func(c *Config) { c.MeasurementRange = control.Range{Min: 1, Max: -1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig()
			tt.mutate(&cfg)
			if err := New(cfg, sp, decaying(0, 0, 0)).Configure(); err == nil {
				t.Fatal("Configure accepted invalid config")
			}
		})
	}
}

func TestTuneWritesTrace(t *testing.T) {
	var buf bytes.Buffer
	trace, err := metrics.NewTraceWriter(&buf)
	if err != nil {
		t.Fatalf("NewTraceWriter: %v", err)
	}
	sp := newFakeSoftpot(50)
	if _, err := New(baseConfig(), sp, decaying(10, 40, 0.5), WithTrace(trace)).Tune(context.Background()); err != nil {
		t.Fatalf("Tune: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) < 2 || !strings.HasPrefix(lines[0], "timestamp,softpot") {
		t.Fatalf("trace = %q", buf.String())
	}
	if !strings.Contains(lines[1], "RefOsc") {
		t.Fatalf("row = %q", lines[1])
	}
}
