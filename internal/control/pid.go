// Package control provides the discrete PID controller and the fixed-window
// statistics used by softpot tuning.
package control

import "fmt"

// Range is a closed interval.
type Range struct {
	Min float64
	Max float64
}

// CenteredRange shifts [min, max] so that its midpoint is zero.
func CenteredRange(min, max float64) Range {
	mid := (min + max) / 2
	return Range{Min: min - mid, Max: max - mid}
}

// Clamp saturates v to the range.
func (r Range) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Contains reports whether v lies within the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

func (r Range) String() string {
	return fmt.Sprintf("(%g,%g)", r.Min, r.Max)
}

// Gains are the PID tuning constants.
type Gains struct {
	Kp float64
	Ki float64
	Kd float64
}

// PID is a discrete proportional-integral-derivative controller. It is not
// safe for concurrent use; each tuning session owns one.
type PID struct {
	gains        Gains
	errorRange   Range
	controlRange Range
	antiWindup   bool

	integral  float64
	prevError float64
}

// PIDOption configures a PID controller.
type PIDOption func(*PID)

// WithAntiWindup bounds the integral term to the control range.
func WithAntiWindup() PIDOption {
	return func(p *PID) {
		p.antiWindup = true
	}
}

// NewPID creates a controller. Errors fed to Next are saturated to
// errorRange; the control range is exposed for the caller to clamp with.
func NewPID(gains Gains, errorRange, controlRange Range, opts ...PIDOption) *PID {
	p := &PID{
		gains:        gains,
		errorRange:   errorRange,
		controlRange: controlRange,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Next advances the controller by dt and returns the control delta. The
// output is not clamped.
func (p *PID) Next(err, dt float64) float64 {
	err = p.errorRange.Clamp(err)

	var derivative float64
	if dt > 0 {
		p.integral += err * dt
		derivative = (err - p.prevError) / dt
	}
	if p.antiWindup && p.gains.Ki != 0 {
		term := p.controlRange.Clamp(p.gains.Ki * p.integral)
		p.integral = term / p.gains.Ki
	}
	p.prevError = err

	return p.gains.Kp*err + p.gains.Ki*p.integral + p.gains.Kd*derivative
}

// Reset clears the accumulated state.
func (p *PID) Reset() {
	p.integral = 0
	p.prevError = 0
}

// Integral returns the accumulated integral.
func (p *PID) Integral() float64 { return p.integral }

// Gains returns the controller gains.
func (p *PID) Gains() Gains { return p.gains }

// ErrorRange returns the saturation range for input errors.
func (p *PID) ErrorRange() Range { return p.errorRange }

// ControlRange returns the range control outputs are meant for.
func (p *PID) ControlRange() Range { return p.controlRange }
