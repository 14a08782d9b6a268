package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "radiobench",
		Short: "Automated test and alignment bench for XCMP radios",
		Long: `radiobench drives a two-way radio over XCMP, together with an RF test set,
through its family's test and alignment sequences and writes a report of
every measurement.

Without a configuration file it runs against the built-in simulated radio
and test set.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd("test"))
	rootCmd.AddCommand(newRunCmd("align"))
	rootCmd.AddCommand(newIdentifyCmd())
	rootCmd.AddCommand(newSoftpotCmd())
	rootCmd.AddCommand(newSelfTestCmd())
	rootCmd.AddCommand(newFrameCmd())
	rootCmd.AddCommand(newCaptureDumpCmd())
	rootCmd.AddCommand(newValidateConfigCmd())
	rootCmd.AddCommand(newWizardCmd())

	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != rootCmd {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			return
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Usage:\n  %s <command> [arguments] [options]\n\n", cmd.Name())
		fmt.Fprintf(out, "Available Commands:\n")
		for _, subCmd := range cmd.Commands() {
			if !subCmd.Hidden {
				fmt.Fprintf(out, "  %-16s %s\n", subCmd.Name(), subCmd.Short)
			}
		}
		fmt.Fprintf(out, "\nUse \"%s help <command>\" for more information about a command.\n", cmd.Name())
	})
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
