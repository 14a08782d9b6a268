package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tturner/radiobench/internal/xcmp"
)

// IdentifyOptions selects the radio to identify.
type IdentifyOptions struct {
	ConfigPath string
	Radio      string
	Stdout     io.Writer
}

var identifyVersions = []struct {
	op    xcmp.VersionOp
	label string
}{
	{xcmp.VersionHostSoftware, "Host software"},
	{xcmp.VersionDSPSoftware, "DSP software"},
	{xcmp.VersionTuning, "Tuning"},
	{xcmp.VersionRFBand, "RF band"},
}

// RunIdentify connects to the radio and prints its identity and versions.
func RunIdentify(opts IdentifyOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	cfg, err := loadRunConfig(RunOptions{ConfigPath: opts.ConfigPath, Radio: opts.Radio})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Fprintf(out, "Connecting to radio (%s)...\n", cfg.Radio.Transport)
	st, err := OpenStation(ctx, cfg, StationOptions{})
	if err != nil {
		fmt.Fprintf(out, "\nTroubleshooting tips:\n")
		fmt.Fprintf(out, "  - Verify the radio is powered on and in service mode\n")
		fmt.Fprintf(out, "  - Check the cable, or the address in radio.address\n")
		fmt.Fprintf(out, "  - Try: radiobench identify --radio sim\n")
		return err
	}
	defer st.Close()

	fmt.Fprintf(out, "  Model:  %s\n", st.Radio.Model())
	fmt.Fprintf(out, "  Serial: %s\n", st.Radio.Serial())
	for _, v := range identifyVersions {
		s, err := st.Radio.GetVersion(ctx, v.op)
		if err != nil {
			if xcmp.IsRejected(err, xcmp.ResultOpcodeNotSupported) {
				continue
			}
			return fmt.Errorf("read %s version: %w", v.label, err)
		}
		fmt.Fprintf(out, "  %-14s %s\n", v.label+":", s)
	}
	if band, err := st.Family.TxFrequencies(st.Radio.Model()); err == nil {
		fmt.Fprintf(out, "  TX plan:  %v\n", band)
	}
	return nil
}
