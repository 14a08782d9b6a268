package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	benchErrors "github.com/tturner/radiobench/internal/errors"
	"github.com/tturner/radiobench/internal/xcmp"
)

// SoftpotOptions selects a softpot operation.
type SoftpotOptions struct {
	ConfigPath string
	QuickStart bool
	Radio      string
	Op         string // "read", "write", "update" or "params"
	Type       string
	Value      int32
	Stdout     io.Writer
}

// RunSoftpot reads or changes one calibration value on the radio.
func RunSoftpot(opts SoftpotOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	t, err := xcmp.ParseSoftpotType(opts.Type)
	if err != nil {
		return err
	}
	cfg, err := loadRunConfig(RunOptions{ConfigPath: opts.ConfigPath, QuickStart: opts.QuickStart, Radio: opts.Radio})
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := OpenStation(ctx, cfg, StationOptions{})
	if err != nil {
		return err
	}
	defer st.Close()
	r := st.Radio

	op := strings.ToLower(opts.Op)
	switch op {
	case "read":
		b, err := r.ReadSoftpot(ctx, t)
		if err != nil {
			return benchErrors.WrapRadioError(err, "read softpot "+t.String())
		}
		v, err := xcmp.BytesToValue(b)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %d (% X)\n", t, v, b)
	case "write", "update":
		minBytes, err := r.ReadSoftpotMin(ctx, t)
		if err != nil {
			return benchErrors.WrapRadioError(err, "read softpot "+t.String()+" minimum")
		}
		maxBytes, err := r.ReadSoftpotMax(ctx, t)
		if err != nil {
			return benchErrors.WrapRadioError(err, "read softpot "+t.String()+" maximum")
		}
		lo, err := xcmp.BytesToValue(minBytes)
		if err != nil {
			return fmt.Errorf("softpot %s min: %w", t, err)
		}
		hi, err := xcmp.BytesToValue(maxBytes)
		if err != nil {
			return fmt.Errorf("softpot %s max: %w", t, err)
		}
		if opts.Value < lo || opts.Value > hi {
			return fmt.Errorf("%s value %d out of range [%d, %d]", t, opts.Value, lo, hi)
		}
		b, err := xcmp.ValueToBytes(opts.Value, len(minBytes))
		if err != nil {
			return err
		}
		if op == "write" {
			err = r.WriteSoftpot(ctx, t, b)
		} else {
			err = r.UpdateSoftpot(ctx, t, b)
		}
		if err != nil {
			return benchErrors.WrapRadioError(err, op+" softpot "+t.String())
		}
		if op == "write" {
			fmt.Fprintf(out, "%s written: %d\n", t, opts.Value)
		} else {
			fmt.Fprintf(out, "%s updated (not persisted): %d\n", t, opts.Value)
		}
	case "params":
		p, err := r.SoftpotParams(ctx, t)
		if err != nil {
			return benchErrors.WrapRadioError(err, "read softpot "+t.String()+" parameters")
		}
		fmt.Fprintf(out, "%s: min %d, max %d, %d byte(s)\n", t, p.Min, p.Max, p.ByteLength)
		for i, v := range p.Values {
			if i < len(p.Frequencies) {
				fmt.Fprintf(out, "  %12d Hz  %d\n", p.Frequencies[i], v)
			} else {
				fmt.Fprintf(out, "  %15s  %d\n", "-", v)
			}
		}
	default:
		return fmt.Errorf("unknown softpot operation %q (read, write, update, params)", opts.Op)
	}
	return nil
}
