package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/report"
)

type runFlags struct {
	stationFlags
	family   string
	timing   string
	tui      bool
	comments string
	noReport bool
}

// newRunCmd builds the test or align command; both run a family sequence
// and differ only in mode.
func newRunCmd(name string) *cobra.Command {
	flags := &runFlags{}
	mode := bench.ModeTest
	short := "Measure the radio against its limits"
	if name == "align" {
		mode = bench.ModeAlign
		short = "Tune the radio's softpots and store the results"
	}

	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Long: fmt.Sprintf(`Run the %s sequence of the radio's family and write the report.

The family (apx, astro25 or xpr) decides which tests run and in which
order; the tests section of the config can disable individual tests.
Each run writes a JSON and a text report to report.output_dir.

The process exits with status 2 when the report verdict is not PASS.`, mode),
		Example: fmt.Sprintf(`  # Run against the simulated radio
  radiobench %[1]s

  # Run against a radio on a serial line with the live view
  radiobench %[1]s --radio serial:///dev/ttyUSB0 --family xpr --tui

  # Use a config file and skip the waits
  radiobench %[1]s --config radiobench.yaml --timing none`, name),
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			res, err := app.RunBench(app.RunOptions{
				ConfigPath: flags.config,
				QuickStart: flags.quickStart,
				Mode:       mode,
				Radio:      flags.radio,
				Family:     flags.family,
				Timing:     flags.timing,
				TUI:        flags.tui,
				NoReport:   flags.noReport,
				Comments:   flags.comments,
				Stdout:     cmd.OutOrStdout(),
			})
			if err != nil {
				return err
			}
			if res.Document.Verdict != report.Pass {
				fmt.Fprintf(os.Stderr, "%s verdict: %s\n", name, res.Document.Verdict)
				os.Exit(2)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.family, "family", "", "Radio family override: apx, astro25 or xpr")
	cmd.Flags().StringVar(&flags.timing, "timing", "", "Timing profile override: standard, fast or none")
	cmd.Flags().BoolVar(&flags.tui, "tui", false, "Show the live run view")
	cmd.Flags().StringVar(&flags.comments, "comments", "", "Comments stored in the report")
	cmd.Flags().BoolVar(&flags.noReport, "no-report", false, "Do not write report files")

	return cmd
}
