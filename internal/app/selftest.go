package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/config"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/sim"
)

// SelfTestOptions configures the simulated bench check.
type SelfTestOptions struct {
	Family    string
	LogLevel  string
	Stdout    io.Writer
	OutputDir string // empty keeps the reports in memory
}

// SelfTestConfig is the configuration selftest runs with: the simulated
// radio and instrument, no waits, every non-sweep test.
func SelfTestConfig(opts SelfTestOptions) *config.Config {
	cfg := config.CreateDefaultConfig()
	cfg.Radio.Transport = config.TransportSim
	if opts.Family != "" {
		cfg.Radio.Family = opts.Family
	}
	cfg.Radio.TimeoutMs = 1000
	cfg.Tests.Timing = "none"
	cfg.Logging.Level = "error"
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	cfg.Report.OutputDir = opts.OutputDir
	cfg.Report.Text = false
	cfg.Report.JSON = opts.OutputDir != ""
	return cfg
}

// RunSelfTest aligns then tests one simulated radio and fails unless both
// reports pass.
func RunSelfTest(opts SelfTestOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if opts.Family == "" {
		opts.Family = "astro25"
	}
	cfg := SelfTestConfig(opts)
	if err := config.Validate(cfg); err != nil {
		return err
	}

	family, err := bench.GetFamily(cfg.Radio.Family)
	if err != nil {
		return err
	}
	simCfg := SimConfigFor(family)
	if !slices.Contains(family.AlignSequence, bench.TestDeviation) {
		// nothing would correct the stored balance before the test run
		simCfg.ModBalanceOffset = 0
	}
	state := sim.NewState(simCfg)

	ctx := context.Background()
	for _, mode := range []bench.Mode{bench.ModeAlign, bench.ModeTest} {
		res, err := runWithConfig(ctx, cfg, RunOptions{
			Mode:     mode,
			NoReport: opts.OutputDir == "",
			Stdout:   io.Discard,
			sim:      state,
		})
		if err != nil {
			return fmt.Errorf("selftest %s: %w", mode, err)
		}
		doc := res.Document
		fmt.Fprintf(out, "%-6s %s: %d results, %d errors, %s\n", mode, opts.Family, len(doc.Results), len(doc.Errors), doc.Verdict)
		if doc.Verdict != report.Pass {
			fmt.Fprint(out, doc.Text())
			return fmt.Errorf("selftest %s: report did not pass", mode)
		}
	}
	fmt.Fprintln(out, "Simulated bench selftest complete")
	return nil
}
