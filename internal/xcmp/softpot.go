package xcmp

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FrequencyStep is the resolution of softpot frequency anchors in Hz.
const FrequencyStep = 5

// SoftpotRequest builds the request for one softpot operation. The value is
// copied verbatim and must already be in wire order.
func SoftpotRequest(op SoftpotOp, spType SoftpotType, value []byte) Message {
	payload := make([]byte, 0, 2+len(value))
	payload = append(payload, byte(op), byte(spType))
	payload = append(payload, value...)
	return NewRequest(OpSoftpot, payload...)
}

// SoftpotReply is the decoded payload of a softpot response.
type SoftpotReply struct {
	Op    SoftpotOp
	Type  SoftpotType
	Value []byte
}

// ParseSoftpotReply splits a softpot response payload into its fields.
func ParseSoftpotReply(m Message) (SoftpotReply, error) {
	if m.Opcode != OpSoftpot {
		return SoftpotReply{}, fmt.Errorf("%w: expected %s, got %s", ErrMalformedFrame, OpSoftpot, m.Opcode)
	}
	if len(m.Payload) < 2 {
		return SoftpotReply{}, fmt.Errorf("%w: softpot payload of %d bytes", ErrMalformedFrame, len(m.Payload))
	}
	return SoftpotReply{
		Op:    SoftpotOp(m.Payload[0]),
		Type:  SoftpotType(m.Payload[1]),
		Value: m.Payload[2:],
	}, nil
}

func reversed(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

// BytesToValue decodes a softpot value stored byte-reversed on the wire as
// a two's-complement integer of 1, 2 or 4 bytes.
func BytesToValue(b []byte) (int32, error) {
	be := reversed(b)
	switch len(be) {
	case 1:
		return int32(int8(be[0])), nil
	case 2:
		return int32(int16(binary.BigEndian.Uint16(be))), nil
	case 4:
		return int32(binary.BigEndian.Uint32(be)), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedLength, len(b))
	}
}

// ValueToBytes encodes v as a byte-reversed two's-complement integer.
func ValueToBytes(v int32, length int) ([]byte, error) {
	be := make([]byte, length)
	switch length {
	case 1:
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, fmt.Errorf("%w: %d in 1 byte", ErrValueOutOfRange, v)
		}
		be[0] = byte(int8(v))
	case 2:
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, fmt.Errorf("%w: %d in 2 bytes", ErrValueOutOfRange, v)
		}
		binary.BigEndian.PutUint16(be, uint16(int16(v)))
	case 4:
		binary.BigEndian.PutUint32(be, uint32(v))
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLength, length)
	}
	return reversed(be), nil
}

// ValueRange returns the representable bounds for a softpot byte length.
func ValueRange(length int) (lo, hi int32, err error) {
	switch length {
	case 1:
		return math.MinInt8, math.MaxInt8, nil
	case 2:
		return math.MinInt16, math.MaxInt16, nil
	case 4:
		return math.MinInt32, math.MaxInt32, nil
	default:
		return 0, 0, fmt.Errorf("%w: %d", ErrUnsupportedLength, length)
	}
}

// SplitValues cuts a READ_ALL payload into fixed width values.
func SplitValues(payload []byte, width int) ([][]byte, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedLength, width)
	}
	if len(payload)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a multiple of %d", ErrMisalignedResponse, len(payload), width)
	}
	out := make([][]byte, 0, len(payload)/width)
	for i := 0; i < len(payload); i += width {
		out = append(out, append([]byte{}, payload[i:i+width]...))
	}
	return out, nil
}

// DecodeFrequencies decodes consecutive 4-byte byte-reversed frequency
// anchors in 5 Hz steps into Hz.
func DecodeFrequencies(payload []byte) ([]uint32, error) {
	fields, err := SplitValues(payload, 4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, len(fields))
	for i, f := range fields {
		out[i] = binary.BigEndian.Uint32(reversed(f)) * FrequencyStep
	}
	return out, nil
}

// EncodeFrequencies is the inverse of DecodeFrequencies. Frequencies are
// truncated to the 5 Hz grid.
func EncodeFrequencies(hz []uint32) []byte {
	out := make([]byte, 0, 4*len(hz))
	var be [4]byte
	for _, f := range hz {
		binary.BigEndian.PutUint32(be[:], f/FrequencyStep)
		out = append(out, reversed(be[:])...)
	}
	return out
}

// EncodeCommandFrequency encodes a commanded TX/RX frequency as big-endian
// Hz/5, the layout used by TX_FREQUENCY and RX_FREQUENCY.
func EncodeCommandFrequency(hz uint32) []byte {
	var be [4]byte
	binary.BigEndian.PutUint32(be[:], hz/FrequencyStep)
	return be[:]
}

// DecodeCommandFrequency is the inverse of EncodeCommandFrequency.
func DecodeCommandFrequency(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("%w: frequency field of %d bytes", ErrMalformedFrame, len(b))
	}
	return binary.BigEndian.Uint32(b[:4]) * FrequencyStep, nil
}
