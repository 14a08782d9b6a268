package main

import (
	"github.com/spf13/cobra"
	"github.com/tturner/radiobench/internal/app"
)

type validateConfigFlags struct {
	config       string
	writeDefault bool
}

func newValidateConfigCmd() *cobra.Command {
	flags := &validateConfigFlags{}

	cmd := &cobra.Command{
		Use:   "validate-config",
		Short: "Check a configuration file",
		Example: `  # Start a new config
  radiobench validate-config --config radiobench.yaml --write-default

  # Check it after editing
  radiobench validate-config --config radiobench.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			if flags.config == "" {
				return missingFlagError(cmd, "--config")
			}
			return app.RunValidateConfig(app.ValidateConfigOptions{
				ConfigPath:   flags.config,
				WriteDefault: flags.writeDefault,
				Stdout:       cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVar(&flags.config, "config", "", "Configuration file (required)")
	cmd.Flags().BoolVar(&flags.writeDefault, "write-default", false, "Write the default configuration instead of checking")

	return cmd
}

func newWizardCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Edit the configuration interactively",
		Long: `Ask for the radio family, link and tests, then save the configuration.
A missing file is created from the defaults first.`,
		Example: `  radiobench wizard --config radiobench.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handleHelpArg(cmd, args) {
				return nil
			}
			return app.RunConfigWizard(path, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&path, "config", "radiobench.yaml", "Configuration file")
	return cmd
}
