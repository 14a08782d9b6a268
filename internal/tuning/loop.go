// Package tuning adjusts one softpot in closed loop until a live
// measurement reaches its target.
package tuning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tturner/radiobench/internal/control"
	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/transport"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Softpot is the device access the loop needs. *radio.Radio satisfies it.
type Softpot interface {
	ReadSoftpot(ctx context.Context, t xcmp.SoftpotType) ([]byte, error)
	UpdateSoftpot(ctx context.Context, t xcmp.SoftpotType, value []byte) error
	WriteSoftpot(ctx context.Context, t xcmp.SoftpotType, value []byte) error
}

// MeasureFunc returns one live measurement.
type MeasureFunc func(ctx context.Context) (float64, error)

// State is the lifecycle position of a Loop.
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateRunning
	StateConverged
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateConverged:
		return "converged"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	DefaultMinIterations = 3
	DefaultWindow        = 5
)

// ErrAlreadyRun is returned by Tune on a loop that has left Configured.
var ErrAlreadyRun = errors.New("tuning: loop already ran")

// Config holds the session constants.
type Config struct {
	Softpot xcmp.SoftpotType
	// Frequency is informational; it labels logs and trace rows.
	Frequency uint32

	Min int32
	Max int32
	// ByteLength of the softpot value. Zero takes the length of the
	// current value read at start.
	ByteLength int

	Target            float64
	Tolerance         float64
	VarianceTolerance float64
	MeasurementRange  control.Range
	Gains             control.Gains
	AntiWindup        bool

	Delay         time.Duration
	Timeout       time.Duration
	MinIterations int
	Window        int
	// MaxIterations stops the loop early when positive.
	MaxIterations int
}

func (c *Config) applyDefaults() {
	if c.MinIterations <= 0 {
		c.MinIterations = DefaultMinIterations
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
}

func (c Config) validate() error {
	if c.Min > c.Max {
		return fmt.Errorf("tuning: softpot range %d..%d is inverted", c.Min, c.Max)
	}
	if c.MeasurementRange.Min > c.MeasurementRange.Max {
		return fmt.Errorf("tuning: measurement range %s is inverted", c.MeasurementRange)
	}
	if c.Tolerance < 0 || c.VarianceTolerance < 0 {
		return errors.New("tuning: tolerances must not be negative")
	}
	if c.Timeout <= 0 {
		return errors.New("tuning: timeout must be positive")
	}
	return nil
}

// Result summarizes a finished session.
type Result struct {
	State        State
	Iterations   int
	Measured     float64
	AverageError float64
	Variance     float64
	StartValue   int32
	FinalValue   int32
	FinalBytes   []byte
	Committed    bool
}

// Converged reports whether the final value was written.
func (r Result) Converged() bool { return r.State == StateConverged }

// Loop is one tuning attempt. It is not reusable.
type Loop struct {
	cfg     Config
	radio   Softpot
	measure MeasureFunc

	log       logging.Sink
	metrics   *metrics.Collectors
	trace     *metrics.TraceWriter
	retryable func(error) bool

	state    State
	pid      *control.PID
	avg      *control.MovingAverage
	variance *control.Variance
}

// Option configures a Loop.
type Option func(*Loop)

func WithLogger(l logging.Sink) Option {
	return func(lp *Loop) { lp.log = logging.OrNop(l) }
}

func WithMetrics(c *metrics.Collectors) Option {
	return func(lp *Loop) { lp.metrics = c }
}

// WithTrace records every iteration to t.
func WithTrace(t *metrics.TraceWriter) Option {
	return func(lp *Loop) { lp.trace = t }
}

// WithRetryable overrides which measurement errors are retried within the
// session timeout.
func WithRetryable(fn func(error) bool) Option {
	return func(lp *Loop) { lp.retryable = fn }
}

// IsMeasurementTimeout is the default retry predicate.
func IsMeasurementTimeout(err error) bool {
	return transport.IsTimeout(err) || errors.Is(err, xcmp.ErrTimeout)
}

// New creates a loop in StateCreated.
func New(cfg Config, radio Softpot, measure MeasureFunc, opts ...Option) *Loop {
	cfg.applyDefaults()
	l := &Loop{
		cfg:       cfg,
		radio:     radio,
		measure:   measure,
		log:       logging.Nop(),
		retryable: IsMeasurementTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current lifecycle state.
func (l *Loop) State() State { return l.state }

// Configure builds the controller from the configured ranges.
func (l *Loop) Configure() error {
	if l.state != StateCreated {
		return fmt.Errorf("tuning: configure in state %s", l.state)
	}
	if l.radio == nil || l.measure == nil {
		return errors.New("tuning: softpot access and measurement are required")
	}
	if err := l.cfg.validate(); err != nil {
		return err
	}
	errRange := control.CenteredRange(l.cfg.MeasurementRange.Min, l.cfg.MeasurementRange.Max)
	ctlRange := control.CenteredRange(float64(l.cfg.Min), float64(l.cfg.Max))
	var pidOpts []control.PIDOption
	if l.cfg.AntiWindup {
		pidOpts = append(pidOpts, control.WithAntiWindup())
	}
	l.pid = control.NewPID(l.cfg.Gains, errRange, ctlRange, pidOpts...)
	l.avg = control.NewMovingAverage(l.cfg.Window)
	l.variance = control.NewVariance(l.cfg.Window)
	l.state = StateConfigured
	return nil
}

// Tune runs the session. A loop still in StateCreated is configured
// first. Failure to converge is reported through Result.State with a nil
// error; errors mean the session was aborted. The softpot is written only
// when the moving average error ends within tolerance.
func (l *Loop) Tune(ctx context.Context) (Result, error) {
	if l.state == StateCreated {
		if err := l.Configure(); err != nil {
			return Result{State: l.state}, err
		}
	}
	if l.state != StateConfigured {
		return Result{State: l.state}, ErrAlreadyRun
	}
	l.state = StateRunning
	res, err := l.run(ctx)
	if err != nil {
		l.state = StateFailed
	} else {
		l.state = res.State
	}
	res.State = l.state
	l.metrics.ObserveTuning(l.cfg.Softpot.String(), l.state.String(), res.Iterations)
	return res, err
}

func (l *Loop) run(ctx context.Context) (Result, error) {
	cfg := l.cfg
	sp := cfg.Softpot
	var res Result

	current, err := l.radio.ReadSoftpot(ctx, sp)
	if err != nil {
		return res, fmt.Errorf("read initial %s: %w", sp, err)
	}
	byteLen := cfg.ByteLength
	if byteLen == 0 {
		byteLen = len(current)
	}
	start, err := xcmp.BytesToValue(current)
	if err != nil {
		return res, fmt.Errorf("decode initial %s: %w", sp, err)
	}
	res.StartValue = start
	res.FinalValue = start
	res.FinalBytes = current

	softpotRange := control.Range{Min: float64(cfg.Min), Max: float64(cfg.Max)}
	value := softpotRange.Clamp(float64(start))
	l.variance.Add(value)
	l.log.Verbose("Tuning %s from %d (target %g, tolerance %g)", sp, start, cfg.Target, cfg.Tolerance)

	deadline := time.Now().Add(cfg.Timeout)
	converged := false
	for time.Now().Before(deadline) {
		if cfg.MaxIterations > 0 && res.Iterations >= cfg.MaxIterations {
			break
		}
		measured, err := l.measure(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			if l.retryable(err) {
				l.log.Verbose("Tuning %s: measurement timed out, retrying", sp)
				if err := sleep(ctx, cfg.Delay); err != nil {
					return res, err
				}
				continue
			}
			return res, fmt.Errorf("measure %s: %w", sp, err)
		}
		res.Measured = measured
		e := measured - cfg.Target
		l.avg.Add(math.Abs(e))
		res.AverageError = l.avg.Value()
		res.Variance = l.variance.Value()
		l.metrics.ObserveTuningIteration(sp.String(), res.AverageError)
		l.record(res.Iterations, measured, e, res.AverageError, res.Variance, value)
		l.log.Debug("Tuning %s iteration %d: measured %g error %g avg %g variance %g value %g",
			sp, res.Iterations, measured, e, res.AverageError, res.Variance, value)

		if res.AverageError <= cfg.Tolerance && res.Variance <= cfg.VarianceTolerance && res.Iterations >= cfg.MinIterations {
			converged = true
			break
		}

		value = softpotRange.Clamp(value + l.pid.Next(e, 1))
		next := int32(math.Round(value))
		b, err := xcmp.ValueToBytes(next, byteLen)
		if err != nil {
			return res, fmt.Errorf("encode %s value %d: %w", sp, next, err)
		}
		if err := l.radio.UpdateSoftpot(ctx, sp, b); err != nil {
			return res, fmt.Errorf("update %s: %w", sp, err)
		}
		res.FinalValue = next
		res.FinalBytes = b
		l.variance.Add(value)
		res.Iterations++

		if err := sleep(ctx, cfg.Delay); err != nil {
			return res, err
		}
	}

	if l.avg.Len() > 0 && l.avg.Value() <= cfg.Tolerance {
		if err := l.radio.WriteSoftpot(ctx, sp, res.FinalBytes); err != nil {
			return res, fmt.Errorf("write %s: %w", sp, err)
		}
		res.Committed = true
		res.State = StateConverged
		l.log.Info("Tuning %s converged at %d after %d iterations (avg error %g)", sp, res.FinalValue, res.Iterations, res.AverageError)
		return res, nil
	}

	res.State = StateFailed
	if !converged && !time.Now().Before(deadline) {
		res.State = StateTimedOut
	}
	l.log.Info("Tuning %s did not converge (%s, avg error %g after %d iterations); softpot left unwritten",
		sp, res.State, res.AverageError, res.Iterations)
	return res, nil
}

func (l *Loop) record(iter int, measured, e, avg, variance, value float64) {
	if l.trace == nil {
		return
	}
	err := l.trace.WriteIteration(metrics.Iteration{
		Timestamp: time.Now(),
		Softpot:   l.cfg.Softpot.String(),
		Frequency: int64(l.cfg.Frequency),
		Iteration: iter,
		Measured:  measured,
		Error:     e,
		AvgError:  avg,
		Variance:  variance,
		Value:     value,
	})
	if err != nil {
		l.log.Error("Tuning trace: %v", err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
