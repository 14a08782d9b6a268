package metrics

// Prometheus collectors for XCMP exchanges, tuning sessions and test results

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "radiobench"

// Collectors groups every collector radiobench exports. A nil *Collectors
// is valid and records nothing.
type Collectors struct {
	Exchanges        *prometheus.CounterVec
	ExchangeDuration *prometheus.HistogramVec
	Retries          *prometheus.CounterVec
	Discarded        prometheus.Counter
	TuningSessions   *prometheus.CounterVec
	TuningIterations *prometheus.HistogramVec
	TuningError      *prometheus.GaugeVec
	Results          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Collectors {
	factory := promauto.With(reg)
	return &Collectors{
		Exchanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xcmp",
			Name:      "exchanges_total",
			Help:      "XCMP request/response exchanges by opcode and result.",
		}, []string{"opcode", "result"}),
		ExchangeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "xcmp",
			Name:      "exchange_duration_seconds",
			Help:      "Time from request send to correlated response.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"opcode"}),
		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xcmp",
			Name:      "retries_total",
			Help:      "Requests resent after a response timeout.",
		}, []string{"opcode"}),
		Discarded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "xcmp",
			Name:      "discarded_frames_total",
			Help:      "Received frames that did not match the outstanding request.",
		}),
		TuningSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "sessions_total",
			Help:      "Softpot tuning sessions by softpot and outcome.",
		}, []string{"softpot", "outcome"}),
		TuningIterations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "iterations",
			Help:      "Iterations needed per tuning session.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}, []string{"softpot"}),
		TuningError: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tuning",
			Name:      "average_error",
			Help:      "Latest moving average of absolute tuning error.",
		}, []string{"softpot"}),
		Results: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "report",
			Name:      "results_total",
			Help:      "Recorded test results by measurement type and outcome.",
		}, []string{"type", "outcome"}),
	}
}

// ObserveExchange records one completed exchange.
func (c *Collectors) ObserveExchange(opcode, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.Exchanges.WithLabelValues(opcode, result).Inc()
	c.ExchangeDuration.WithLabelValues(opcode).Observe(d.Seconds())
}

// ObserveRetry records a resend after timeout.
func (c *Collectors) ObserveRetry(opcode string) {
	if c == nil {
		return
	}
	c.Retries.WithLabelValues(opcode).Inc()
}

// ObserveDiscard records an uncorrelated frame.
func (c *Collectors) ObserveDiscard() {
	if c == nil {
		return
	}
	c.Discarded.Inc()
}

// ObserveTuningIteration records the current average error of a session.
func (c *Collectors) ObserveTuningIteration(softpot string, avgError float64) {
	if c == nil {
		return
	}
	c.TuningError.WithLabelValues(softpot).Set(avgError)
}

// ObserveTuning records a finished tuning session.
func (c *Collectors) ObserveTuning(softpot, outcome string, iterations int) {
	if c == nil {
		return
	}
	c.TuningSessions.WithLabelValues(softpot, outcome).Inc()
	c.TuningIterations.WithLabelValues(softpot).Observe(float64(iterations))
}

// ObserveResult records a test result.
func (c *Collectors) ObserveResult(resultType string, passed bool) {
	if c == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	c.Results.WithLabelValues(resultType, outcome).Inc()
}
