package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func handleHelpArg(cmd *cobra.Command, args []string) bool {
	if len(args) == 0 {
		return false
	}
	if strings.EqualFold(args[0], "help") {
		_ = cmd.Help()
		return true
	}
	return false
}

func missingFlagError(cmd *cobra.Command, flag string) error {
	_ = cmd.Help()
	return fmt.Errorf("required flag %s not set", flag)
}

func missingArgError(cmd *cobra.Command, arg string) error {
	_ = cmd.Help()
	return fmt.Errorf("required argument <%s> missing", arg)
}

// stationFlags are shared by every command that talks to a radio.
type stationFlags struct {
	config     string
	quickStart bool
	radio      string
}

func (f *stationFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.config, "config", "", "Configuration file (default: built-in simulator settings)")
	cmd.Flags().BoolVar(&f.quickStart, "quick-start", false, "Create the config file from defaults if it does not exist")
	cmd.Flags().StringVar(&f.radio, "radio", "", "Radio link override: sim, tcp://host:port or serial:///dev/ttyUSB0?baud=115200")
}
