package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

type selfTestFlags struct {
	family    string
	logLevel  string
	outputDir string
}

func newSelfTestCmd() *cobra.Command {
	flags := &selfTestFlags{}

	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Align and test a simulated radio",
		Long: `Run the alignment and then the test sequence against the built-in
simulated radio and test set, and fail unless both reports pass.

This exercises the whole bench without hardware.`,
		Example: `  # Check the astro25 sequences
  radiobench selftest

  # Check the xpr sequences and keep the reports
  radiobench selftest --family xpr --output-dir reports`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunSelfTest(app.SelfTestOptions{
				Family:    flags.family,
				LogLevel:  flags.logLevel,
				OutputDir: flags.outputDir,
				Stdout:    cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.family, "family", "astro25", "Radio family: apx, astro25 or xpr")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "error", "Log level: silent, error, info, verbose or debug")
	cmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Write the JSON reports to this directory")

	return cmd
}
