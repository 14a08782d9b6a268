package app

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tturner/radiobench/internal/capture"
	"github.com/tturner/radiobench/internal/xcmp"
)

// CaptureDumpOptions selects what to print from a capture file.
type CaptureDumpOptions struct {
	InputFile   string
	Opcode      string // empty prints every opcode
	MaxEntries  int
	ShowPayload bool
	Stdout      io.Writer
}

// RunCaptureDump prints the XCMP frames in a capture written with
// capture.pcap_path.
func RunCaptureDump(opts CaptureDumpOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	var filter *xcmp.Opcode
	if opts.Opcode != "" {
		op, err := xcmp.ParseOpcode(opts.Opcode)
		if err != nil {
			return err
		}
		filter = &op
	}

	records, err := capture.ReadFile(opts.InputFile)
	if err != nil {
		return err
	}

	count := 0
	for idx, rec := range records {
		if rec.Err != nil {
			if filter == nil {
				fmt.Fprintf(out, "%5d %s %s undecodable: %v\n", idx, stamp(rec, records[0]), rec.Direction, rec.Err)
			}
			continue
		}
		if filter != nil && rec.Message.Opcode != *filter {
			continue
		}
		count++
		fmt.Fprintf(out, "%5d %s %s %s\n", idx, stamp(rec, records[0]), rec.Direction, rec.Message)
		if opts.ShowPayload && len(rec.Message.Payload) > 0 {
			fmt.Fprintf(out, "      payload: % X\n", rec.Message.Payload)
		}
		if opts.MaxEntries > 0 && count >= opts.MaxEntries {
			break
		}
	}

	if count == 0 {
		if filter != nil {
			fmt.Fprintf(out, "No %s frames found.\n", *filter)
		} else {
			fmt.Fprintln(out, "No frames found.")
		}
	}
	return nil
}

func stamp(rec, first capture.Record) string {
	return fmt.Sprintf("+%9.3fs", rec.Timestamp.Sub(first.Timestamp).Seconds())
}

// EncodeFrame builds a request frame, or a response frame when result is
// not empty, and returns it as hex.
func EncodeFrame(opcode, result, payloadHex string) (string, error) {
	op, err := xcmp.ParseOpcode(opcode)
	if err != nil {
		return "", err
	}
	payload, err := parseHex(payloadHex)
	if err != nil {
		return "", fmt.Errorf("payload: %w", err)
	}
	msg := xcmp.NewRequest(op, payload...)
	if result != "" {
		b, err := parseHex(result)
		if err != nil || len(b) != 1 {
			return "", fmt.Errorf("result %q must be one hex byte", result)
		}
		msg = xcmp.NewResponse(op, xcmp.Result(b[0]), payload...)
	}
	frame, err := xcmp.Encode(msg)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(frame)), nil
}

// DecodeFrame describes a hex frame.
func DecodeFrame(frameHex string) (string, error) {
	frame, err := parseHex(frameHex)
	if err != nil {
		return "", err
	}
	msg, err := xcmp.Decode(frame)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Kind:    %s\n", msg.Kind)
	fmt.Fprintf(&b, "Opcode:  %s (0x%03X)\n", msg.Opcode, uint16(msg.Opcode))
	if msg.IsResponse() {
		fmt.Fprintf(&b, "Result:  %s\n", msg.Result)
	}
	fmt.Fprintf(&b, "Payload: % X\n", msg.Payload)
	return b.String(), nil
}

// parseHex accepts "0a0b", "0x0A0B" and space or colon separated bytes.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	s = strings.NewReplacer(" ", "", ":", "", "\n", "").Replace(s)
	return hex.DecodeString(s)
}
