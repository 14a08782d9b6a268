package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"

	"github.com/tturner/radiobench/internal/config"
	"github.com/tturner/radiobench/internal/tui"
)

// ValidateConfigOptions selects the file to check.
type ValidateConfigOptions struct {
	ConfigPath   string
	WriteDefault bool
	Stdout       io.Writer
}

// RunValidateConfig checks a configuration file, or writes the default one.
func RunValidateConfig(opts ValidateConfigOptions) error {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	if opts.WriteDefault {
		if _, err := os.Stat(opts.ConfigPath); err == nil {
			return fmt.Errorf("%s already exists", opts.ConfigPath)
		}
		if err := config.WriteDefaultConfig(opts.ConfigPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote default config to %s\n", opts.ConfigPath)
		return nil
	}
	cfg, err := config.LoadConfig(opts.ConfigPath, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Config OK: %s\n", opts.ConfigPath)
	fmt.Fprintf(out, "  Radio:  %s (%s family)\n", describeLink(cfg), cfg.Radio.Family)
	fmt.Fprintf(out, "  Timing: %s\n", cfg.Tests.Timing)
	return nil
}

func describeLink(cfg *config.Config) string {
	if spec := cfg.TransportSpec(); spec != "" {
		return spec
	}
	return "simulated"
}

// RunConfigWizard edits the configuration file interactively, creating it
// from the defaults when it does not exist.
func RunConfigWizard(path string, out io.Writer) error {
	if out == nil {
		out = os.Stdout
	}
	cfg, err := config.LoadConfig(path, true)
	if err != nil {
		return err
	}
	if err := tui.RunWizard(cfg); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Fprintln(out, "Wizard cancelled; config unchanged")
			return nil
		}
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	return nil
}
