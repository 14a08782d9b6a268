// Package radio drives an XCMP radio: a serialized request/response session
// over a transport, the softpot access layer and the direct test-mode
// commands used by the bench.
package radio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/transport"
	"github.com/tturner/radiobench/internal/xcmp"
)

const (
	DefaultTimeout = 5 * time.Second
	DefaultRetries = 3
)

// exchangeLogger is implemented by *logging.Logger.
type exchangeLogger interface {
	LogExchange(opcode, result string, rtt time.Duration, attempt int, err error)
}

// Session owns one transport and allows a single outstanding request.
type Session struct {
	mu      sync.Mutex
	tr      transport.Transport
	timeout time.Duration
	retries int
	log     logging.Sink
	metrics *metrics.Collectors
}

// Option configures a Session.
type Option func(*Session)

// WithTimeout sets the per-attempt correlation deadline.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetries sets the number of attempts made when a request times out.
func WithRetries(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.retries = n
		}
	}
}

// WithLogger injects the log sink.
func WithLogger(l logging.Sink) Option {
	return func(s *Session) { s.log = logging.OrNop(l) }
}

// WithMetrics injects protocol collectors.
func WithMetrics(c *metrics.Collectors) Option {
	return func(s *Session) { s.metrics = c }
}

// NewSession wraps tr. The transport is not connected here.
func NewSession(tr transport.Transport, opts ...Option) *Session {
	s := &Session{
		tr:      tr,
		timeout: DefaultTimeout,
		retries: DefaultRetries,
		log:     logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Transport returns the underlying transport.
func (s *Session) Transport() transport.Transport { return s.tr }

// Send transmits req and returns the correlated response using the session
// timeout.
func (s *Session) Send(ctx context.Context, req xcmp.Message) (xcmp.Message, error) {
	return s.SendTimeout(ctx, req, s.timeout)
}

// SendTimeout transmits req and returns the first response carrying the
// same opcode. Other frames are discarded. A timed out attempt is resent up
// to the retry count; a non-success result is returned as
// *xcmp.DeviceRejectedError without retry.
func (s *Session) SendTimeout(ctx context.Context, req xcmp.Message, timeout time.Duration) (xcmp.Message, error) {
	frame, err := xcmp.Encode(req)
	if err != nil {
		return xcmp.Message{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if attempt > 1 {
			s.metrics.ObserveRetry(req.Opcode.String())
			s.log.Verbose("XCMP: %s timed out, retry %d/%d", req.Opcode, attempt, s.retries)
		}
		start := time.Now()
		resp, err := s.exchange(ctx, frame, req.Opcode, timeout)
		rtt := time.Since(start)
		if err == nil && resp.Result != xcmp.ResultSuccess {
			err = &xcmp.DeviceRejectedError{Opcode: req.Opcode, Result: resp.Result}
		}
		s.observe(req.Opcode, resp, rtt, attempt, err)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !errors.Is(err, xcmp.ErrTimeout) {
			break
		}
	}
	return xcmp.Message{}, lastErr
}

func (s *Session) exchange(ctx context.Context, frame []byte, op xcmp.Opcode, timeout time.Duration) (xcmp.Message, error) {
	if err := ctx.Err(); err != nil {
		return xcmp.Message{}, err
	}
	if d, ok := s.log.(interface{ LogHex(string, []byte) }); ok {
		d.LogHex("XCMP >>", frame)
	}
	if err := s.tr.Send(ctx, frame); err != nil {
		return xcmp.Message{}, fmt.Errorf("send %s: %w", op, err)
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return xcmp.Message{}, fmt.Errorf("%w: %s after %s", xcmp.ErrTimeout, op, timeout)
		}
		raw, err := s.tr.Receive(ctx, remaining)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return xcmp.Message{}, ctxErr
			}
			if transport.IsTimeout(err) {
				continue
			}
			return xcmp.Message{}, fmt.Errorf("receive %s: %w", op, err)
		}
		msg, err := xcmp.Decode(raw)
		if err != nil {
			return xcmp.Message{}, err
		}
		if !msg.IsResponse() || msg.Opcode != op {
			s.metrics.ObserveDiscard()
			s.log.Debug("XCMP: discarding %s while waiting for %s", msg, op)
			continue
		}
		return msg, nil
	}
}

func (s *Session) observe(op xcmp.Opcode, resp xcmp.Message, rtt time.Duration, attempt int, err error) {
	result := "none"
	switch {
	case errors.Is(err, xcmp.ErrTimeout):
		result = "TIMEOUT"
	case err == nil || resp.IsResponse():
		result = resp.Result.String()
	}
	s.metrics.ObserveExchange(op.String(), result, rtt)
	if el, ok := s.log.(exchangeLogger); ok {
		el.LogExchange(op.String(), result, rtt, attempt, err)
	}
}
