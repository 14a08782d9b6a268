package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

func newIdentifyCmd() *cobra.Command {
	flags := &stationFlags{}

	cmd := &cobra.Command{
		Use:   "identify",
		Short: "Connect to the radio and print its identity",
		Long: `Connect to the radio, enter test mode and print its model, serial number,
firmware versions and the transmit frequencies of its band.

Useful for checking the cable and the radio link before a run.`,
		Example: `  # Identify a radio on a serial line
  radiobench identify --radio serial:///dev/ttyUSB0

  # Identify through a terminal server
  radiobench identify --radio tcp://10.0.0.20:4001`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunIdentify(app.IdentifyOptions{
				ConfigPath: flags.config,
				Radio:      flags.radio,
				Stdout:     cmd.OutOrStdout(),
			})
		},
	}

	flags.register(cmd)
	return cmd
}
