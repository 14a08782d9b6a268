package xcmp

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestBytesToValueReversed(t *testing.T) {
	tests := []struct {
		in   []byte
		want int32
	}{
		{[]byte{0x7F}, 127},
		{[]byte{0xFF}, -1},
		{[]byte{0x34, 0x12}, 0x1234},
		{[]byte{0xFE, 0xFF}, -2},
		{[]byte{0x78, 0x56, 0x34, 0x12}, 0x12345678},
		{[]byte{0x00, 0x00, 0x00, 0x80}, math.MinInt32},
	}
	for _, tt := range tests {
		got, err := BytesToValue(tt.in)
		if err != nil {
			t.Fatalf("BytesToValue(% X): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("BytesToValue(% X) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValueToBytesReversed(t *testing.T) {
	got, err := ValueToBytes(0x1234, 2)
	if err != nil {
		t.Fatalf("ValueToBytes: %v", err)
	}
	if !bytes.Equal(got, []byte{0x34, 0x12}) {
		t.Fatalf("ValueToBytes = % X, want 34 12", got)
	}
}

func TestValueRoundTrip(t *testing.T) {
	for _, length := range []int{1, 2, 4} {
		lo, hi, err := ValueRange(length)
		if err != nil {
			t.Fatalf("ValueRange(%d): %v", length, err)
		}
		samples := []int32{lo, lo + 1, -1, 0, 1, hi - 1, hi}
		for _, v := range samples {
			b, err := ValueToBytes(v, length)
			if err != nil {
				t.Fatalf("ValueToBytes(%d, %d): %v", v, length, err)
			}
			if len(b) != length {
				t.Fatalf("ValueToBytes(%d, %d) length = %d", v, length, len(b))
			}
			got, err := BytesToValue(b)
			if err != nil {
				t.Fatalf("BytesToValue: %v", err)
			}
			if got != v {
				t.Errorf("round trip length %d: got %d, want %d", length, got, v)
			}
		}
	}
}

func TestUnsupportedLength(t *testing.T) {
	for _, n := range []int{0, 3, 5, 8} {
		if _, err := BytesToValue(make([]byte, n)); !errors.Is(err, ErrUnsupportedLength) {
			t.Errorf("BytesToValue len %d err = %v", n, err)
		}
		if _, err := ValueToBytes(0, n); !errors.Is(err, ErrUnsupportedLength) {
			t.Errorf("ValueToBytes len %d err = %v", n, err)
		}
	}
}

func TestValueToBytesOutOfRange(t *testing.T) {
	if _, err := ValueToBytes(200, 1); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("expected ErrValueOutOfRange, got %v", err)
	}
	if _, err := ValueToBytes(-40000, 2); !errors.Is(err, ErrValueOutOfRange) {
		t.Errorf("expected ErrValueOutOfRange, got %v", err)
	}
}

func TestSoftpotRequestLayout(t *testing.T) {
	msg := SoftpotRequest(SoftpotUpdate, SoftpotRefOsc, []byte{0x10, 0x00})
	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0x00, 0x06, 0x00, 0x01, 0x02, 0x00, 0x10, 0x00}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame = % X, want % X", frame, want)
	}
}

func TestParseSoftpotReply(t *testing.T) {
	reply, err := ParseSoftpotReply(NewResponse(OpSoftpot, ResultSuccess, 0x06, 0x02, 0x9C, 0xFF))
	if err != nil {
		t.Fatalf("ParseSoftpotReply: %v", err)
	}
	if reply.Op != SoftpotReadMin || reply.Type != SoftpotModBalance {
		t.Fatalf("reply = %+v", reply)
	}
	v, _ := BytesToValue(reply.Value)
	if v != -100 {
		t.Fatalf("value = %d, want -100", v)
	}
	if _, err := ParseSoftpotReply(NewResponse(OpSoftpot, ResultSuccess, 0x06)); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("short payload err = %v", err)
	}
}

func TestSplitValues(t *testing.T) {
	parts, err := SplitValues([]byte{1, 2, 3, 4, 5, 6}, 2)
	if err != nil {
		t.Fatalf("SplitValues: %v", err)
	}
	if len(parts) != 3 || !bytes.Equal(parts[2], []byte{5, 6}) {
		t.Fatalf("parts = %v", parts)
	}
	if _, err := SplitValues([]byte{1, 2, 3}, 2); !errors.Is(err, ErrMisalignedResponse) {
		t.Fatalf("expected ErrMisalignedResponse, got %v", err)
	}
}

func TestFrequencies(t *testing.T) {
	// 851.0125 MHz / 5 = 170202500 = 0x0A251584, reversed on the wire.
	wire := []byte{0x84, 0x15, 0x25, 0x0A}
	got, err := DecodeFrequencies(wire)
	if err != nil {
		t.Fatalf("DecodeFrequencies: %v", err)
	}
	if len(got) != 1 || got[0] != 851012500 {
		t.Fatalf("DecodeFrequencies = %v", got)
	}
	if !bytes.Equal(EncodeFrequencies(got), wire) {
		t.Fatalf("EncodeFrequencies = % X", EncodeFrequencies(got))
	}
	if _, err := DecodeFrequencies([]byte{1, 2, 3}); !errors.Is(err, ErrMisalignedResponse) {
		t.Fatalf("expected ErrMisalignedResponse, got %v", err)
	}
}

func TestCommandFrequency(t *testing.T) {
	b := EncodeCommandFrequency(851012500)
	if !bytes.Equal(b, []byte{0x0A, 0x25, 0x15, 0x84}) {
		t.Fatalf("EncodeCommandFrequency = % X", b)
	}
	hz, err := DecodeCommandFrequency(b)
	if err != nil || hz != 851012500 {
		t.Fatalf("DecodeCommandFrequency = %d, %v", hz, err)
	}
}

func TestErrorTypes(t *testing.T) {
	err := error(&DeviceRejectedError{Opcode: OpSoftpot, Result: ResultSoftpotValueOutOfRange})
	if !IsRejected(err, ResultSoftpotValueOutOfRange) {
		t.Error("IsRejected false for matching result")
	}
	if IsRejected(err, ResultFailure) {
		t.Error("IsRejected true for other result")
	}
	var mismatch *ProtocolMismatchError
	if !errors.As(error(&ProtocolMismatchError{Want: 1, Got: 2}), &mismatch) {
		t.Error("errors.As failed for ProtocolMismatchError")
	}
}
