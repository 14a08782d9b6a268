package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/tturner/radiobench/internal/metrics"
)

// newFixedReport uses a clock that advances one second per reading.
func newFixedReport(t ReportType) *Report {
	r := New(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.Local)
	n := 0
	r.now = func() time.Time {
		ts := base.Add(time.Duration(n) * time.Second)
		n++
		return ts
	}
	return r
}

func TestResultVerdict(t *testing.T) {
	tests := []struct {
		name   string
		result TestResult
		want   Verdict
	}{
		{"inside", TestResult{Measured: 1, LowerLimit: -1, UpperLimit: 1, IsMeasured: true}, Pass},
		{"lower edge", TestResult{Measured: -1, LowerLimit: -1, UpperLimit: 1, IsMeasured: true}, Pass},
		{"above", TestResult{Measured: 1.01, LowerLimit: -1, UpperLimit: 1, IsMeasured: true}, Fail},
		{"below", TestResult{Measured: -3, LowerLimit: -1, UpperLimit: 1, IsMeasured: true}, Fail},
		{"unmeasured", TestResult{Measured: 0, LowerLimit: -1, UpperLimit: 1}, Fail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Verdict(); got != tt.want {
				t.Fatalf("Verdict() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestReportPassed(t *testing.T) {
	r := New(TypeTest)
	if !r.Passed() {
		t.Fatal("empty report should pass")
	}
	r.AddResult(RefOsc, 10, 0, -50, 50, 100e6)
	if !r.Passed() {
		t.Fatal("passing result failed report")
	}
	r.AddResult(TxPower, 9, 0, 0.75, 7, 100e6)
	if r.Passed() {
		t.Fatal("failing result passed report")
	}

	r = New(TypeTest)
	r.AddResult(RefOsc, 10, 0, -50, 50, 100e6)
	r.AddError(RSSI, "instrument offline")
	if r.Passed() || r.Snapshot().Verdict != Fail {
		t.Fatal("error should fail report")
	}
}

func TestTolerance(t *testing.T) {
	tests := []struct {
		target, lower, upper float64
		want                 string
	}{
		{0, -50, 50, "±50"},
		{0, -1.5, 1.5, "±1.5"},
		{150, 140, 255, "+105/-10"},
		{0, 0.75, 7, "+7/+0.75"},
		{0, 0, 1, "+1/-0"},
	}
	for _, tt := range tests {
		r := TestResult{Target: tt.target, LowerLimit: tt.lower, UpperLimit: tt.upper}
		if got := r.Tolerance(); got != tt.want {
			t.Errorf("Tolerance(%v, %v, %v) = %q, want %q", tt.target, tt.lower, tt.upper, got, tt.want)
		}
	}
}

func TestRow(t *testing.T) {
	tests := []struct {
		result TestResult
		want   [6]string
	}{
		{
			TestResult{Type: RefOsc, Measured: 12.346, Target: 0, LowerLimit: -50, UpperLimit: 50, Frequency: 469975000, IsMeasured: true},
			[6]string{"Reference Oscillator", "12.35 Hz", "0.00 Hz", "±50 Hz", "469.975 MHz", "PASS"},
		},
		{
			TestResult{Type: TxPower, Measured: 5, Target: 0, LowerLimit: 0.75, UpperLimit: 7, Frequency: 136025000, IsMeasured: true},
			[6]string{"Transmit Power", "5.00 W", "N/A", "+7/+0.75 W", "136.025 MHz", "PASS"},
		},
		{
			TestResult{Type: TxDeviationBalance, Measured: 2, Target: 0, LowerLimit: -1.5, UpperLimit: 1.5, Frequency: 450000000, IsMeasured: true},
			[6]string{"Deviation Balance", "2.00%", "0.00%", "±1.5 %", "450 MHz", "FAIL"},
		},
		{
			TestResult{Type: RSSI, Measured: 200, Target: 150, LowerLimit: 140, UpperLimit: 255, Frequency: NoFrequency, IsMeasured: true},
			[6]string{"Received Signal Strength", "200", "150", "+105/-10", "N/A", "PASS"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.result.Type.String(), func(t *testing.T) {
			if got := tt.result.Row(); got != tt.want {
				t.Fatalf("Row() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	r := newFixedReport(TypeAlignment)
	r.Begin(RadioInfo{Model: "H98QDF9PW6AN", Serial: "426CSP0001"}, "")
	r.AddResult(RefOsc, 1.2, 0, -50, 50, 469975000)
	r.AddError(TxDeviationBalance, "Alignment for Deviation Balance Failed")
	r.Finish()
	text := r.Snapshot().Text()

	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		if n := len([]rune(line)); n != len(border) {
			t.Errorf("line %d is %d wide, want %d: %q", i, n, len(border), line)
		}
	}
	for _, want := range []string{
		"radiobench Auto-Align Report",
		"Radio: H98QDF9PW6AN",
		"Duration: 00:00:02",
		"Reference Oscillator",
		"Overall Result: FAIL",
		"Alignment for Deviation Balance Failed",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}

type recordingListener struct {
	mu      sync.Mutex
	results []TestResult
	errors  []TestError
}

func (l *recordingListener) ResultAdded(r TestResult) {
	l.mu.Lock()
	l.results = append(l.results, r)
	l.mu.Unlock()
}

func (l *recordingListener) ErrorAdded(e TestError) {
	l.mu.Lock()
	l.errors = append(l.errors, e)
	l.mu.Unlock()
}

func TestListenersAndConcurrency(t *testing.T) {
	r := New(TypeTest)
	l := &recordingListener{}
	r.Subscribe(l)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.AddResult(RSSI, float64(150+i), 150, 140, 255, 400e6)
		}(i)
	}
	wg.Wait()
	r.AddError(RSSI, "boom")
	if len(r.Results()) != 20 || len(l.results) != 20 || len(l.errors) != 1 {
		t.Fatalf("results %d listener %d/%d", len(r.Results()), len(l.results), len(l.errors))
	}
}

func TestMetricsListener(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := New(TypeTest)
	r.Subscribe(MetricsListener{Collectors: m})
	r.AddResult(RefOsc, 1, 0, -50, 50, 1)
	r.AddResult(RefOsc, 100, 0, -50, 50, 1)
	r.AddError(RefOsc, "x")
	if got := testutil.ToFloat64(m.Results.WithLabelValues("REF_OSC", "pass")); got != 1 {
		t.Fatalf("pass = %v", got)
	}
	if got := testutil.ToFloat64(m.Results.WithLabelValues("REF_OSC", "fail")); got != 2 {
		t.Fatalf("fail = %v", got)
	}
}

type fakeRedis struct {
	published map[string][][]byte
	lists     map[string][][]byte
	trims     int
	trimErr   error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{published: map[string][][]byte{}, lists: map[string][][]byte{}}
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], message.([]byte))
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(1)
	return cmd
}

func (f *fakeRedis) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for _, v := range values {
		f.lists[key] = append([][]byte{v.([]byte)}, f.lists[key]...)
	}
	cmd := redis.NewIntCmd(ctx)
	cmd.SetVal(int64(len(f.lists[key])))
	return cmd
}

func (f *fakeRedis) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	f.trims++
	cmd := redis.NewStatusCmd(ctx)
	if f.trimErr != nil {
		cmd.SetErr(f.trimErr)
	}
	return cmd
}

func (f *fakeRedis) Close() error { return nil }

func TestPublisher(t *testing.T) {
	fake := newFakeRedis()
	p := newPublisher(fake, "", nil)
	p.SetRadio(RadioInfo{Serial: "426CSP0001"})

	r := New(TypeTest)
	r.Subscribe(p)
	r.AddResult(RSSI, 200, 150, 140, 255, 400e6)
	r.AddError(BitErrorRate, "no sync")
	if err := p.PublishReport(context.Background(), r.Snapshot()); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}

	msgs := fake.published[DefaultChannel]
	if len(msgs) != 3 {
		t.Fatalf("published %d messages", len(msgs))
	}
	var ev Event
	if err := json.Unmarshal(msgs[0], &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "result" || ev.Result == nil || ev.Result.Type != RSSI || ev.Radio.Serial != "426CSP0001" {
		t.Fatalf("event = %+v", ev)
	}
	if err := json.Unmarshal(msgs[2], &ev); err != nil || ev.Kind != "report" {
		t.Fatalf("last event = %+v, %v", ev, err)
	}
	if len(fake.lists[HistoryKey("")]) != 1 || fake.trims != 1 {
		t.Fatalf("history = %v trims %d", fake.lists, fake.trims)
	}
}

// errorSink keeps formatted error lines.
type errorSink struct {
	errors []string
}

func (e *errorSink) Error(format string, v ...interface{}) {
	e.errors = append(e.errors, fmt.Sprintf(format, v...))
}
func (e *errorSink) Info(string, ...interface{})    {}
func (e *errorSink) Verbose(string, ...interface{}) {}
func (e *errorSink) Debug(string, ...interface{})   {}

func TestPublisherLogsTrimFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.trimErr = errors.New("READONLY replica")
	sink := &errorSink{}
	p := newPublisher(fake, "", sink)

	r := New(TypeTest)
	r.AddResult(RSSI, 200, 150, 140, 255, 400e6)
	if err := p.PublishReport(context.Background(), r.Snapshot()); err != nil {
		t.Fatalf("PublishReport: %v", err)
	}
	if len(sink.errors) != 1 || !strings.Contains(sink.errors[0], "READONLY replica") {
		t.Fatalf("errors = %q", sink.errors)
	}
}
