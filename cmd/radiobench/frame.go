package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

type frameEncodeFlags struct {
	opcode  string
	result  string
	payload string
}

func newFrameCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Encode or decode a single XCMP frame",
		Long: `Build an XCMP frame from its fields, or take a hex frame apart.

Frames include the two-byte length prefix.`,
	}
	cmd.AddCommand(newFrameEncodeCmd())
	cmd.AddCommand(newFrameDecodeCmd())
	return cmd
}

func newFrameEncodeCmd() *cobra.Command {
	flags := &frameEncodeFlags{}

	cmd := &cobra.Command{
		Use:   "encode",
		Short: "Print a frame as hex",
		Example: `  # Softpot read of ModBalance
  radiobench frame encode --opcode SOFTPOT --payload 0002

  # A RADIO_STATUS response
  radiobench frame encode --opcode 0x00E --result 00 --payload 08`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.opcode == "" {
				return missingFlagError(cmd, "--opcode")
			}
			frame, err := app.EncodeFrame(flags.opcode, flags.result, flags.payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), frame)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.opcode, "opcode", "", "Opcode name or number (required)")
	cmd.Flags().StringVar(&flags.result, "result", "", "Result byte in hex; set it to build a response")
	cmd.Flags().StringVar(&flags.payload, "payload", "", "Payload bytes in hex")

	return cmd
}

func newFrameDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "decode <hex>",
		Short:   "Describe a hex frame",
		Example: `  radiobench frame decode 0004800E0008`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if len(args) == 0 {
				return missingArgError(cmd, "hex")
			}
			desc, err := app.DecodeFrame(args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}
