package radio

import (
	"context"
	"fmt"

	"github.com/tturner/radiobench/internal/xcmp"
)

// Params describes the calibration curve of one softpot.
type Params struct {
	Type        xcmp.SoftpotType
	Min         int32
	Max         int32
	ByteLength  int
	Frequencies []uint32
	Values      []int32
}

func (p Params) String() string {
	return fmt.Sprintf("%s min=%d max=%d len=%d points=%d", p.Type, p.Min, p.Max, p.ByteLength, len(p.Values))
}

func (r *Radio) softpot(ctx context.Context, op xcmp.SoftpotOp, t xcmp.SoftpotType, value []byte) ([]byte, error) {
	resp, err := r.session.Send(ctx, xcmp.SoftpotRequest(op, t, value))
	if err != nil {
		return nil, fmt.Errorf("softpot %s %s: %w", op, t, err)
	}
	reply, err := xcmp.ParseSoftpotReply(resp)
	if err != nil {
		return nil, fmt.Errorf("softpot %s %s: %w", op, t, err)
	}
	if reply.Type != t {
		return nil, &xcmp.ProtocolMismatchError{Want: t, Got: reply.Type}
	}
	return reply.Value, nil
}

// ReadSoftpot returns the current value bytes of t in wire order.
func (r *Radio) ReadSoftpot(ctx context.Context, t xcmp.SoftpotType) ([]byte, error) {
	r.log.Verbose("XCMP: reading softpot %s", t)
	return r.softpot(ctx, xcmp.SoftpotRead, t, nil)
}

// ReadSoftpotMin returns the lower bound bytes of t.
func (r *Radio) ReadSoftpotMin(ctx context.Context, t xcmp.SoftpotType) ([]byte, error) {
	return r.softpot(ctx, xcmp.SoftpotReadMin, t, nil)
}

// ReadSoftpotMax returns the upper bound bytes of t.
func (r *Radio) ReadSoftpotMax(ctx context.Context, t xcmp.SoftpotType) ([]byte, error) {
	return r.softpot(ctx, xcmp.SoftpotReadMax, t, nil)
}

// WriteSoftpot persists value to non-volatile storage.
func (r *Radio) WriteSoftpot(ctx context.Context, t xcmp.SoftpotType, value []byte) error {
	r.log.Info("XCMP: writing softpot %s -> % X", t, value)
	_, err := r.softpot(ctx, xcmp.SoftpotWrite, t, value)
	return err
}

// UpdateSoftpot applies value until the radio resets.
func (r *Radio) UpdateSoftpot(ctx context.Context, t xcmp.SoftpotType, value []byte) error {
	r.log.Verbose("XCMP: updating softpot %s -> % X", t, value)
	_, err := r.softpot(ctx, xcmp.SoftpotUpdate, t, value)
	return err
}

// ReadAllSoftpot returns every point of a multi-point softpot, each
// byteLength bytes in wire order.
func (r *Radio) ReadAllSoftpot(ctx context.Context, t xcmp.SoftpotType, byteLength int) ([][]byte, error) {
	payload, err := r.softpot(ctx, xcmp.SoftpotReadAll, t, nil)
	if err != nil {
		return nil, err
	}
	values, err := xcmp.SplitValues(payload, byteLength)
	if err != nil {
		return nil, fmt.Errorf("softpot %s: %w", t, err)
	}
	return values, nil
}

// ReadAllFrequencies returns the frequency anchors of t in Hz.
func (r *Radio) ReadAllFrequencies(ctx context.Context, t xcmp.SoftpotType) ([]uint32, error) {
	payload, err := r.softpot(ctx, xcmp.SoftpotReadAllFreq, t, nil)
	if err != nil {
		return nil, err
	}
	freqs, err := xcmp.DecodeFrequencies(payload)
	if err != nil {
		return nil, fmt.Errorf("softpot %s: %w", t, err)
	}
	return freqs, nil
}

// SoftpotParams reads the bounds, anchors and values of t. The byte length
// is taken from the minimum response.
func (r *Radio) SoftpotParams(ctx context.Context, t xcmp.SoftpotType) (Params, error) {
	p := Params{Type: t}
	freqs, err := r.ReadAllFrequencies(ctx, t)
	if err != nil {
		return p, err
	}
	minBytes, err := r.ReadSoftpotMin(ctx, t)
	if err != nil {
		return p, err
	}
	maxBytes, err := r.ReadSoftpotMax(ctx, t)
	if err != nil {
		return p, err
	}
	if p.Min, err = xcmp.BytesToValue(minBytes); err != nil {
		return p, fmt.Errorf("softpot %s min: %w", t, err)
	}
	if p.Max, err = xcmp.BytesToValue(maxBytes); err != nil {
		return p, fmt.Errorf("softpot %s max: %w", t, err)
	}
	p.ByteLength = len(minBytes)

	raw, err := r.ReadAllSoftpot(ctx, t, p.ByteLength)
	if err != nil {
		return p, err
	}
	if len(raw) != len(freqs) && !(len(raw) == 1 && len(freqs) <= 1) {
		return p, &xcmp.CountMismatchError{Type: t, Values: len(raw), Frequencies: len(freqs)}
	}
	p.Frequencies = freqs
	p.Values = make([]int32, len(raw))
	for i, b := range raw {
		if p.Values[i], err = xcmp.BytesToValue(b); err != nil {
			return p, fmt.Errorf("softpot %s value %d: %w", t, i, err)
		}
	}
	return p, nil
}
