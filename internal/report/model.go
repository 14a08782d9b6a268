package report

import (
	"fmt"
	"sync"
	"time"
)

// ReportType distinguishes a verification run from an alignment run.
type ReportType int

const (
	TypeTest ReportType = iota
	TypeAlignment
)

func (t ReportType) String() string {
	if t == TypeAlignment {
		return "ALIGNMENT"
	}
	return "TEST"
}

func (t ReportType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ReportType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "TEST":
		*t = TypeTest
	case "ALIGNMENT":
		*t = TypeAlignment
	default:
		return fmt.Errorf("unknown report type %q", b)
	}
	return nil
}

// ResultType is the kind of measurement a result records.
type ResultType int

const (
	RefOsc ResultType = iota
	FreqError
	TxPower
	TxDeviation
	TxDeviationBalance
	BitErrorRate
	RSSI
)

var resultTypeNames = [...]string{"REF_OSC", "FREQ_ERROR", "TX_POWER", "TX_DEVIATION", "TX_DEVIATION_BAL", "BIT_ERROR_RATE", "RSSI"}

func (t ResultType) String() string {
	if t >= 0 && int(t) < len(resultTypeNames) {
		return resultTypeNames[t]
	}
	return fmt.Sprintf("RESULT_%d", int(t))
}

func (t ResultType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *ResultType) UnmarshalText(b []byte) error {
	for i, name := range resultTypeNames {
		if name == string(b) {
			*t = ResultType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown result type %q", b)
}

// Verdict is the outcome of one result or of the whole report.
type Verdict string

const (
	Pass  Verdict = "PASS"
	Fail  Verdict = "FAIL"
	Error Verdict = "ERROR"
)

// NoFrequency marks a result not tied to a carrier frequency.
const NoFrequency = -1

// TestResult is one limit-checked measurement.
type TestResult struct {
	Type       ResultType `json:"type"`
	Measured   float64    `json:"measured"`
	Target     float64    `json:"target"`
	LowerLimit float64    `json:"lower_limit"`
	UpperLimit float64    `json:"upper_limit"`
	Frequency  int64      `json:"frequency_hz"`
	Timestamp  time.Time  `json:"timestamp"`
	// IsMeasured is false for a placeholder that never received a value.
	IsMeasured bool `json:"is_measured"`
}

// Verdict derives pass or fail from the limits. An unmeasured result fails.
func (r TestResult) Verdict() Verdict {
	if r.IsMeasured && r.LowerLimit <= r.Measured && r.Measured <= r.UpperLimit {
		return Pass
	}
	return Fail
}

// Passed reports whether the measurement is within limits.
func (r TestResult) Passed() bool { return r.Verdict() == Pass }

// TestError records a test that could not produce its measurement.
type TestError struct {
	Type    ResultType `json:"type"`
	Message string     `json:"message"`
}

// RadioInfo identifies the unit under test.
type RadioInfo struct {
	Model  string `json:"model"`
	Serial string `json:"serial"`
}

// Listener is notified of every result and error as it is added.
type Listener interface {
	ResultAdded(r TestResult)
	ErrorAdded(e TestError)
}

// Report collects the results of one run. It is safe for concurrent use.
type Report struct {
	mu         sync.Mutex
	typ        ReportType
	radio      RadioInfo
	instrument string
	start      time.Time
	end        time.Time
	open       bool
	finished   bool
	comments   string
	results    []TestResult
	errors     []TestError
	listeners  []Listener
	now        func() time.Time
}

// New returns an empty report of the given type.
func New(t ReportType) *Report {
	return &Report{typ: t, now: time.Now}
}

// Subscribe registers l for future additions.
func (r *Report) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Begin opens the report for a radio and instrument and records the start
// time.
func (r *Report) Begin(radio RadioInfo, instrument string) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.radio = radio
	r.instrument = instrument
	r.start = r.now()
	r.open = true
	return r.start
}

// Finish closes the report and records the end time.
func (r *Report) Finish() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.end = r.now()
	r.open = false
	r.finished = true
	return r.end
}

// IsOpen reports whether Begin was called without a matching Finish.
func (r *Report) IsOpen() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open
}

// SetComments attaches free text to the report.
func (r *Report) SetComments(c string) {
	r.mu.Lock()
	r.comments = c
	r.mu.Unlock()
}

// AddResult records a measurement taken now.
func (r *Report) AddResult(t ResultType, measured, target, lower, upper float64, frequency int64) TestResult {
	r.mu.Lock()
	res := TestResult{
		Type:       t,
		Measured:   measured,
		Target:     target,
		LowerLimit: lower,
		UpperLimit: upper,
		Frequency:  frequency,
		Timestamp:  r.now(),
		IsMeasured: true,
	}
	r.results = append(r.results, res)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.ResultAdded(res)
	}
	return res
}

// AddError records a failed test.
func (r *Report) AddError(t ResultType, message string) {
	r.mu.Lock()
	e := TestError{Type: t, Message: message}
	r.errors = append(r.errors, e)
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.Unlock()

	for _, l := range listeners {
		l.ErrorAdded(e)
	}
}

// Passed reports whether there were no errors and every result passed.
func (r *Report) Passed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return passed(r.results, r.errors)
}

func passed(results []TestResult, errs []TestError) bool {
	if len(errs) > 0 {
		return false
	}
	for _, res := range results {
		if !res.Passed() {
			return false
		}
	}
	return true
}

// Results returns a copy of the recorded results.
func (r *Report) Results() []TestResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TestResult(nil), r.results...)
}

// Errors returns a copy of the recorded errors.
func (r *Report) Errors() []TestError {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TestError(nil), r.errors...)
}

// Document is the serializable form of a report.
type Document struct {
	Type       ReportType   `json:"type"`
	Radio      RadioInfo    `json:"radio"`
	Instrument string       `json:"instrument,omitempty"`
	Start      time.Time    `json:"start"`
	End        time.Time    `json:"end"`
	Duration   string       `json:"duration"`
	Finished   bool         `json:"finished"`
	Verdict    Verdict      `json:"verdict"`
	Comments   string       `json:"comments,omitempty"`
	Results    []TestResult `json:"results"`
	Errors     []TestError  `json:"errors"`
}

// Snapshot returns the current contents as a Document.
func (r *Report) Snapshot() Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := Document{
		Type:       r.typ,
		Radio:      r.radio,
		Instrument: r.instrument,
		Start:      r.start,
		End:        r.end,
		Finished:   r.finished,
		Comments:   r.comments,
		Results:    append([]TestResult{}, r.results...),
		Errors:     append([]TestError{}, r.errors...),
		Verdict:    Fail,
	}
	d.Duration = FormatDuration(d.Elapsed())
	if passed(d.Results, d.Errors) {
		d.Verdict = Pass
	}
	return d
}

// Elapsed is the run duration, zero until both ends are set.
func (d Document) Elapsed() time.Duration {
	if d.Start.IsZero() || d.End.Before(d.Start) {
		return 0
	}
	return d.End.Sub(d.Start)
}
