package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

func newSoftpotCmd() *cobra.Command {
	flags := &stationFlags{}

	cmd := &cobra.Command{
		Use:   "softpot <read|write|update|params> <type> [value]",
		Short: "Read or change a radio calibration value",
		Long: `Read or change one softpot (calibration parameter) on the radio.

  read    print the current value
  write   set and persist the value
  update  set the value without persisting it; a reset restores it
  params  print the limits and the per-frequency values

The type is a softpot name such as RefOsc or ModBalance, or its number
(0x00).`,
		Example: `  # Read the reference oscillator softpot
  radiobench softpot read RefOsc --radio serial:///dev/ttyUSB0

  # Try a value without storing it
  radiobench softpot update RefOsc 2071

  # Show the modulation balance table
  radiobench softpot params ModBalance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) < 1 {
				return missingArgError(cmd, "operation")
			}
			if len(args) < 2 {
				return missingArgError(cmd, "type")
			}
			opts := app.SoftpotOptions{
				ConfigPath: flags.config,
				QuickStart: flags.quickStart,
				Radio:      flags.radio,
				Op:         args[0],
				Type:       args[1],
				Stdout:     cmd.OutOrStdout(),
			}
			if op := strings.ToLower(args[0]); op == "write" || op == "update" {
				if len(args) < 3 {
					return missingArgError(cmd, "value")
				}
				v, err := strconv.ParseInt(args[2], 0, 32)
				if err != nil {
					return err
				}
				opts.Value = int32(v)
			}
			return app.RunSoftpot(opts)
		},
	}

	flags.register(cmd)
	return cmd
}
