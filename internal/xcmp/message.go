package xcmp

// XCMP frame encoding and decoding.
//
// Wire layout: [length u16 BE][header u16 BE][result u8, responses only][payload].
// The header carries the message kind in its top 4 bits and the opcode in
// the low 12 bits. The length counts every byte after the length field.

import (
	"encoding/binary"
	"fmt"
)

// Kind is the message kind tag carried in the top nibble of the header.
type Kind uint8

const (
	KindRequest  Kind = 0x0
	KindResponse Kind = 0x8
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return fmt.Sprintf("kind(0x%X)", uint8(k))
	}
}

const (
	lengthSize = 2
	headerSize = 2
	resultSize = 1

	// MaxOpcode is the largest opcode that fits in the 12-bit header field.
	MaxOpcode = 0x0FFF
	// MaxPayload keeps the response length field within 16 bits.
	MaxPayload = 0xFFFF - headerSize - resultSize
)

// Message is one XCMP protocol message. Result is meaningful only for
// responses.
type Message struct {
	Kind    Kind
	Opcode  Opcode
	Result  Result
	Payload []byte
}

// NewRequest builds a request message.
func NewRequest(op Opcode, payload ...byte) Message {
	return Message{Kind: KindRequest, Opcode: op, Payload: payload}
}

// NewResponse builds a response message.
func NewResponse(op Opcode, result Result, payload ...byte) Message {
	return Message{Kind: KindResponse, Opcode: op, Result: result, Payload: payload}
}

// IsResponse reports whether the message carries a result byte.
func (m Message) IsResponse() bool {
	return m.Kind == KindResponse
}

// WireLength is the value of the length field for this message.
func (m Message) WireLength() int {
	n := headerSize + len(m.Payload)
	if m.IsResponse() {
		n += resultSize
	}
	return n
}

func (m Message) String() string {
	if m.IsResponse() {
		return fmt.Sprintf("%s %s result=%s payload=%d bytes", m.Kind, m.Opcode, m.Result, len(m.Payload))
	}
	return fmt.Sprintf("%s %s payload=%d bytes", m.Kind, m.Opcode, len(m.Payload))
}

// Encode serializes the message into a complete frame.
func Encode(m Message) ([]byte, error) {
	if m.Kind != KindRequest && m.Kind != KindResponse {
		return nil, fmt.Errorf("encode: invalid %s", m.Kind)
	}
	if m.Opcode > MaxOpcode {
		return nil, fmt.Errorf("encode: opcode 0x%X exceeds 12 bits", uint16(m.Opcode))
	}
	if len(m.Payload) > MaxPayload {
		return nil, fmt.Errorf("encode: payload of %d bytes too large", len(m.Payload))
	}

	length := m.WireLength()
	frame := make([]byte, lengthSize+length)
	binary.BigEndian.PutUint16(frame[0:2], uint16(length))
	binary.BigEndian.PutUint16(frame[2:4], uint16(m.Kind)<<12|uint16(m.Opcode))
	offset := lengthSize + headerSize
	if m.IsResponse() {
		frame[offset] = byte(m.Result)
		offset++
	}
	copy(frame[offset:], m.Payload)
	return frame, nil
}

// Decode parses one already delimited frame. The payload is copied so the
// caller may reuse the frame buffer.
func Decode(frame []byte) (Message, error) {
	if len(frame) < lengthSize+headerSize {
		return Message{}, fmt.Errorf("%w: frame of %d bytes shorter than header", ErrMalformedFrame, len(frame))
	}
	length := int(binary.BigEndian.Uint16(frame[0:2]))
	if length != len(frame)-lengthSize {
		return Message{}, fmt.Errorf("%w: length field %d, %d bytes present", ErrMalformedFrame, length, len(frame)-lengthSize)
	}

	header := binary.BigEndian.Uint16(frame[2:4])
	msg := Message{
		Kind:   Kind(header >> 12),
		Opcode: Opcode(header & MaxOpcode),
	}

	offset := lengthSize + headerSize
	switch msg.Kind {
	case KindRequest:
	case KindResponse:
		if len(frame) < offset+resultSize {
			return Message{}, fmt.Errorf("%w: response without result byte", ErrMalformedFrame)
		}
		msg.Result = Result(frame[offset])
		offset++
	default:
		return Message{}, fmt.Errorf("%w: unknown %s", ErrMalformedFrame, msg.Kind)
	}

	msg.Payload = append([]byte{}, frame[offset:]...)
	return msg, nil
}

// FrameLength returns the total frame size announced by a length prefix.
// Stream transports use it to delimit frames.
func FrameLength(prefix []byte) (int, error) {
	if len(prefix) < lengthSize {
		return 0, fmt.Errorf("%w: short length prefix", ErrMalformedFrame)
	}
	n := int(binary.BigEndian.Uint16(prefix[0:2]))
	if n < headerSize {
		return 0, fmt.Errorf("%w: length field %d below header size", ErrMalformedFrame, n)
	}
	return lengthSize + n, nil
}
