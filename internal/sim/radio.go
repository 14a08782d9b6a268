package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/transport"
	"github.com/tturner/radiobench/internal/xcmp"
)

// Radio answers XCMP requests from the bench using State.
type Radio struct {
	state   *State
	tr      transport.Transport
	log     logging.Sink
	replies int
}

// NewRadio serves state over tr, the radio end of a pipe.
func NewRadio(state *State, tr transport.Transport, log logging.Sink) *Radio {
	return &Radio{state: state, tr: tr, log: logging.OrNop(log)}
}

// Pair builds a simulated radio on a fresh pipe and returns the bench end.
// The radio serves until ctx is cancelled.
func Pair(ctx context.Context, state *State, log logging.Sink) (*transport.PipeTransport, error) {
	bench, dev := transport.NewPipe()
	if err := dev.Connect(ctx); err != nil {
		return nil, err
	}
	r := NewRadio(state, dev, log)
	go func() {
		if err := r.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error("sim radio stopped: %v", err)
		}
	}()
	return bench, nil
}

// Serve handles requests until ctx ends or the transport fails.
func (r *Radio) Serve(ctx context.Context) error {
	for {
		frame, err := r.tr.Receive(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, transport.ErrNotConnected) {
				return err
			}
			continue
		}
		req, err := xcmp.Decode(frame)
		if err != nil {
			r.log.Debug("sim radio: dropping frame: %v", err)
			continue
		}
		if req.IsResponse() {
			continue
		}
		if err := r.maybeBroadcast(ctx); err != nil {
			return err
		}
		if err := r.reply(ctx, r.Handle(req)); err != nil {
			return err
		}
	}
}

func (r *Radio) maybeBroadcast(ctx context.Context) error {
	n := r.state.cfg.Unsolicited
	r.replies++
	if n <= 0 || r.replies%n != 0 {
		return nil
	}
	return r.reply(ctx, xcmp.NewRequest(xcmp.OpRadioStatus, byte(xcmp.StatusBatteryLevel), 0x64))
}

func (r *Radio) reply(ctx context.Context, m xcmp.Message) error {
	frame, err := xcmp.Encode(m)
	if err != nil {
		return fmt.Errorf("sim radio: encode %s: %w", m.Opcode, err)
	}
	return r.tr.Send(ctx, frame)
}

// Handle computes the response to one request.
func (r *Radio) Handle(req xcmp.Message) xcmp.Message {
	s := r.state
	s.mu.Lock()
	defer s.mu.Unlock()

	ok := func(payload ...byte) xcmp.Message { return xcmp.NewResponse(req.Opcode, xcmp.ResultSuccess, payload...) }
	fail := func(res xcmp.Result) xcmp.Message { return xcmp.NewResponse(req.Opcode, res) }
	p := req.Payload

	switch req.Opcode {
	case xcmp.OpEnterTestMode:
		s.testMode = true
		return ok()
	case xcmp.OpRadioReset:
		s.resets++
		s.keyed = false
		s.testMode = false
		for _, sp := range s.softpots {
			copy(sp.current, sp.persisted)
		}
		return ok()
	case xcmp.OpRadioStatus:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		return r.status(xcmp.StatusOp(p[0]), ok, fail)
	case xcmp.OpVersionInfo:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		return ok(append([]byte{p[0]}, []byte("R02.10.00\x00")...)...)
	case xcmp.OpTxFrequency, xcmp.OpRxFrequency:
		if len(p) < 6 {
			return fail(xcmp.ResultInvalidParameter)
		}
		hz, _ := xcmp.DecodeCommandFrequency(p)
		s.bandwidth = xcmp.Bandwidth(p[4])
		if req.Opcode == xcmp.OpTxFrequency {
			s.txHz = hz
			s.deviation = xcmp.TxDeviation(p[5])
		} else {
			s.rxHz = hz
		}
		return ok()
	case xcmp.OpTransmitConfig:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		if !s.cfg.SupportsP25 && xcmp.TransmitConfig(p[0]) == xcmp.TxConfigStandardToneTestPattern {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.txConfig = xcmp.TransmitConfig(p[0])
		return ok()
	case xcmp.OpReceiveConfig:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.rxConfig = xcmp.ReceiveConfig(p[0])
		return ok()
	case xcmp.OpTransmit:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.keyed = true
		return ok()
	case xcmp.OpReceive:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.keyed = false
		s.rxEnabled = p[0] == 0x01
		return ok()
	case xcmp.OpTxPowerLevel:
		if len(p) < 1 {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.powerLevel = xcmp.TxPowerLevel(p[0])
		return ok()
	case xcmp.OpRxBerControl:
		if len(p) < 2 {
			return fail(xcmp.ResultInvalidParameter)
		}
		s.berFrames = int(p[1])
		return ok()
	case xcmp.OpRxBerSyncReport:
		return ok(xcmp.EncodeBERReports(s.berReportsLocked())...)
	case xcmp.OpSoftpot:
		return r.softpot(req, ok, fail)
	default:
		return fail(xcmp.ResultOpcodeNotSupported)
	}
}

type replyFunc func(payload ...byte) xcmp.Message
type failFunc func(xcmp.Result) xcmp.Message

func (r *Radio) status(op xcmp.StatusOp, ok replyFunc, fail failFunc) xcmp.Message {
	s := r.state
	var data []byte
	switch op {
	case xcmp.StatusSerialNumber:
		data = append([]byte(s.cfg.Serial), 0)
	case xcmp.StatusModelNumber:
		data = append([]byte(s.cfg.Model), 0)
	case xcmp.StatusRSSI:
		data = []byte{s.rssiLocked(), 0}
	case xcmp.StatusBatteryLevel:
		data = []byte{0x64}
	default:
		return fail(xcmp.ResultInvalidParameter)
	}
	return ok(append([]byte{byte(op)}, data...)...)
}

// berReportsLocked returns five integration reports. Without a receivable
// pattern every slot reports no sync.
func (s *State) berReportsLocked() []xcmp.BERReport {
	reports := make([]xcmp.BERReport, xcmp.BERReportSize)
	synced := s.berSyncedLocked()
	for i := range reports {
		reports[i].Frame = uint8(i + 1)
		if synced {
			reports[i].Sync = xcmp.SyncSynced
			reports[i].BitErrors = uint32(i % 2)
		} else {
			reports[i].Sync = xcmp.SyncNone
		}
	}
	return reports
}

func (r *Radio) softpot(req xcmp.Message, ok replyFunc, fail failFunc) xcmp.Message {
	reply, err := xcmp.ParseSoftpotReply(req)
	if err != nil {
		return fail(xcmp.ResultInvalidParameter)
	}
	s := r.state
	sp, found := s.softpots[reply.Type]
	if !found {
		return fail(xcmp.ResultSoftpotTypeNotSupported)
	}
	echo := func(value []byte) xcmp.Message {
		return ok(append([]byte{byte(reply.Op), byte(reply.Type)}, value...)...)
	}
	encode := func(v int32) []byte {
		b, _ := xcmp.ValueToBytes(v, sp.byteLen)
		return b
	}
	i := sp.point(s.txHz)

	switch reply.Op {
	case xcmp.SoftpotRead:
		return echo(encode(sp.current[i]))
	case xcmp.SoftpotReadMin:
		return echo(encode(sp.min))
	case xcmp.SoftpotReadMax:
		return echo(encode(sp.max))
	case xcmp.SoftpotReadAll:
		var out []byte
		for _, v := range sp.current {
			out = append(out, encode(v)...)
		}
		return echo(out)
	case xcmp.SoftpotReadAllFreq:
		return echo(xcmp.EncodeFrequencies(sp.freqs))
	case xcmp.SoftpotWrite, xcmp.SoftpotUpdate:
		v, err := xcmp.BytesToValue(reply.Value)
		if err != nil || len(reply.Value) != sp.byteLen {
			return fail(xcmp.ResultInvalidParameter)
		}
		if v < sp.min || v > sp.max {
			return fail(xcmp.ResultSoftpotValueOutOfRange)
		}
		sp.current[i] = v
		if reply.Op == xcmp.SoftpotWrite {
			sp.persisted[i] = v
		}
		return echo(reply.Value)
	default:
		return fail(xcmp.ResultSoftpotOpNotSupported)
	}
}
