package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tturner/radiobench/internal/xcmp"
)

// UserFriendlyError provides user-friendly error messages with context and hints
type UserFriendlyError struct {
	Message string
	Reason  string
	Hint    string
	Try     string
	Err     error
}

func (e UserFriendlyError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Message)
	if e.Reason != "" {
		buf.WriteString("\n  Reason: " + e.Reason)
	}
	if e.Hint != "" {
		buf.WriteString("\n  Hint: " + e.Hint)
	}
	if e.Try != "" {
		buf.WriteString("\n  Try: " + e.Try)
	}
	if e.Err != nil {
		buf.WriteString("\n  Details: " + e.Err.Error())
	}
	return buf.String()
}

func (e UserFriendlyError) Unwrap() error {
	return e.Err
}

// WrapConnectError wraps failures to open the radio link
func WrapConnectError(err error, target string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Failed to connect to radio at %s", target),
		Reason:  extractLinkReason(err),
		Hint:    "Check the cable or serial bridge, and that no other program holds the port",
		Try:     fmt.Sprintf("radiobench selftest, then radiobench softpot read RefOsc --radio %s", target),
		Err:     err,
	}
}

// WrapRadioError wraps XCMP protocol errors with user-friendly context
func WrapRadioError(err error, operation string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Radio operation failed: %s", operation),
		Reason:  extractRadioReason(err),
		Hint:    radioHint(err),
		Err:     err,
	}
}

// WrapInstrumentError wraps test instrument failures
func WrapInstrumentError(err error, instrument string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Instrument %s failed", instrument),
		Reason:  extractLinkReason(err),
		Hint:    "Verify the instrument is powered, connected and not in local mode",
		Err:     err,
	}
}

// WrapConfigError wraps configuration errors with user-friendly context
func WrapConfigError(err error, configPath string) error {
	if err == nil {
		return nil
	}

	return UserFriendlyError{
		Message: fmt.Sprintf("Configuration error in %s", configPath),
		Reason:  err.Error(),
		Hint:    "Run with --write-default to generate a commented starting config",
		Try:     fmt.Sprintf("radiobench validate-config --config %s", configPath),
		Err:     err,
	}
}

func extractLinkReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "Operation timed out"
	}
	errStr := err.Error()

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		return "Connection timeout - device may be offline or unreachable"
	}
	if strings.Contains(errStr, "connection refused") {
		return "Connection refused - nothing is listening on this port"
	}
	if strings.Contains(errStr, "permission denied") {
		return "Permission denied - add your user to the dialout group"
	}
	if strings.Contains(errStr, "no such file") {
		return "Device path does not exist - the adapter may be unplugged"
	}
	if strings.Contains(errStr, "connection reset") || strings.Contains(errStr, "closed by peer") {
		return "Connection reset - the far end closed the link unexpectedly"
	}

	return "Link communication failed"
}

func extractRadioReason(err error) string {
	var rejected *xcmp.DeviceRejectedError
	var mismatch *xcmp.ProtocolMismatchError
	var count *xcmp.CountMismatchError

	switch {
	case errors.As(err, &rejected):
		return fmt.Sprintf("Radio rejected %s with %s", rejected.Opcode, rejected.Result)
	case errors.As(err, &mismatch):
		return "Radio answered for a different softpot than requested"
	case errors.As(err, &count):
		return "Softpot curve has mismatched value and frequency counts"
	case errors.Is(err, xcmp.ErrTimeout):
		return "Radio did not respond within timeout period"
	case errors.Is(err, xcmp.ErrMalformedFrame), errors.Is(err, xcmp.ErrMisalignedResponse):
		return "Received invalid or malformed response from radio"
	case errors.Is(err, xcmp.ErrUnsupportedLength):
		return "Softpot uses an unsupported value width"
	case errors.Is(err, xcmp.ErrNoSync):
		return "Receiver never synchronized to the BER pattern"
	case errors.Is(err, context.Canceled):
		return "Cancelled by operator"
	}
	return "XCMP protocol error occurred"
}

func radioHint(err error) string {
	switch {
	case xcmp.IsRejected(err, xcmp.ResultIncorrectMode):
		return "Put the radio in test mode first (radiobench runs enter it automatically)"
	case xcmp.IsRejected(err, xcmp.ResultSecurityLocked):
		return "The radio is security locked; unlock it with the vendor tool"
	case xcmp.IsRejected(err, xcmp.ResultSoftpotValueOutOfRange):
		return "The value is outside the softpot's min/max; read them with softpot params"
	case errors.Is(err, xcmp.ErrTimeout):
		return "Check the baud rate and that the radio is powered on"
	case errors.Is(err, xcmp.ErrNoSync):
		return "Check the generator frequency, level and pattern"
	}
	return "The radio may not support this operation for its model or firmware"
}
