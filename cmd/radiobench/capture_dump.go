package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

type captureDumpFlags struct {
	inputFile   string
	opcode      string
	maxEntries  int
	showPayload bool
}

func newCaptureDumpCmd() *cobra.Command {
	flags := &captureDumpFlags{}

	cmd := &cobra.Command{
		Use:   "capture-dump",
		Short: "Print the XCMP frames in a capture file",
		Long: `Print the frames recorded with capture.pcap_path, oldest first, with the
time since the first frame and the direction (-> to the radio, <- from it).`,
		Example: `  # Every frame
  radiobench capture-dump --input xcmp.pcap

  # The first 20 softpot exchanges with payloads
  radiobench capture-dump --input xcmp.pcap --opcode SOFTPOT --max 20 --payload`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.inputFile == "" && len(args) > 0 {
				flags.inputFile = args[0]
			}
			if flags.inputFile == "" {
				return missingFlagError(cmd, "--input")
			}
			return app.RunCaptureDump(app.CaptureDumpOptions{
				InputFile:   flags.inputFile,
				Opcode:      flags.opcode,
				MaxEntries:  flags.maxEntries,
				ShowPayload: flags.showPayload,
				Stdout:      cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.inputFile, "input", "", "Capture file (required)")
	cmd.Flags().StringVar(&flags.opcode, "opcode", "", "Only show this opcode (name or number)")
	cmd.Flags().IntVar(&flags.maxEntries, "max", 0, "Maximum number of frames to print (0 for all)")
	cmd.Flags().BoolVar(&flags.showPayload, "payload", false, "Include payload bytes")

	return cmd
}
