package xcmp

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means no correlated response arrived before the deadline.
	ErrTimeout = errors.New("xcmp: response timeout")
	// ErrMalformedFrame means a frame failed structural decoding.
	ErrMalformedFrame = errors.New("xcmp: malformed frame")
	// ErrMisalignedResponse means a payload did not split into whole records.
	ErrMisalignedResponse = errors.New("xcmp: misaligned response")
	// ErrUnsupportedLength means a softpot byte length outside {1, 2, 4}.
	ErrUnsupportedLength = errors.New("xcmp: unsupported value length")
	// ErrValueOutOfRange means a value does not fit the requested byte length.
	ErrValueOutOfRange = errors.New("xcmp: value out of range for length")
	// ErrNoSync means a BER report held no frame with valid sync.
	ErrNoSync = errors.New("xcmp: no synchronized BER frames")
)

// DeviceRejectedError is returned when the radio answers with a non-success
// result code. It is never retried.
type DeviceRejectedError struct {
	Opcode Opcode
	Result Result
}

func (e *DeviceRejectedError) Error() string {
	return fmt.Sprintf("xcmp: %s rejected by device: %s (0x%02X)", e.Opcode, e.Result, uint8(e.Result))
}

// ProtocolMismatchError is returned when a response echoes a different
// softpot type than the request carried.
type ProtocolMismatchError struct {
	Want SoftpotType
	Got  SoftpotType
}

func (e *ProtocolMismatchError) Error() string {
	return fmt.Sprintf("xcmp: softpot type mismatch: requested %s, response carried %s", e.Want, e.Got)
}

// CountMismatchError is returned when a softpot curve reports a different
// number of values than frequency anchors.
type CountMismatchError struct {
	Type        SoftpotType
	Values      int
	Frequencies int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("xcmp: softpot %s has %d values for %d frequencies", e.Type, e.Values, e.Frequencies)
}

// IsRejected reports whether err carries the given device result code.
func IsRejected(err error, result Result) bool {
	var rejected *DeviceRejectedError
	return errors.As(err, &rejected) && rejected.Result == result
}
