package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/config"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/progress"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/sim"
	"github.com/tturner/radiobench/internal/tui"
)

// RunOptions configures a test or alignment run.
type RunOptions struct {
	ConfigPath string
	QuickStart bool
	Mode       bench.Mode
	// Radio overrides the configured link ("sim", "tcp://..." or
	// "serial://...").
	Radio    string
	Family   string
	Timing   string
	TUI      bool
	NoReport bool
	Comments string
	Stdout   io.Writer

	sim *sim.State
}

// RunResult is what a finished run produced.
type RunResult struct {
	Document report.Document
	Files    []string
}

// loadRunConfig loads the configuration and applies command-line
// overrides. An empty path uses the built-in defaults.
func loadRunConfig(opts RunOptions) (*config.Config, error) {
	cfg := config.CreateDefaultConfig()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.LoadConfig(opts.ConfigPath, opts.QuickStart); err != nil {
			return nil, err
		}
	}
	if err := cfg.OverrideRadio(opts.Radio); err != nil {
		return nil, err
	}
	if opts.Family != "" {
		cfg.Radio.Family = opts.Family
	}
	if opts.Timing != "" {
		cfg.Tests.Timing = opts.Timing
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunBench runs the configured sequence and writes the report.
func RunBench(opts RunOptions) (RunResult, error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadRunConfig(opts)
	if err != nil {
		return RunResult{}, err
	}
	return runWithConfig(ctx, cfg, opts)
}

func runWithConfig(ctx context.Context, cfg *config.Config, opts RunOptions) (RunResult, error) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	st, err := OpenStation(ctx, cfg, StationOptions{Instrument: true, QuietConsole: opts.TUI, Sim: opts.sim})
	if err != nil {
		return RunResult{}, err
	}
	defer st.Close()
	st.Log.LogStartup(opts.Mode.String(), st.Radio.String(), st.Family.Name, st.Instrument.Info().String(), opts.ConfigPath)

	var trace *metrics.TraceWriter
	if path := cfg.Tuning.TracePath; path != "" {
		if trace, err = metrics.NewTraceFile(path); err != nil {
			return RunResult{}, err
		}
		defer trace.Close()
	}

	rep := report.New(opts.Mode.ReportType())
	rep.SetComments(opts.Comments)
	rep.Subscribe(report.MetricsListener{Collectors: st.Metrics})

	var pub *report.Publisher
	if cfg.Report.RedisAddr != "" {
		pub, err = report.NewPublisher(ctx, cfg.Report.RedisAddr, cfg.Report.RedisPassword, cfg.Report.RedisChannel, cfg.Report.RedisDB, st.Log)
		if err != nil {
			return RunResult{}, err
		}
		defer pub.Close()
		pub.SetRadio(report.RadioInfo{Model: st.Radio.Model(), Serial: st.Radio.Serial()})
		rep.Subscribe(pub)
	}

	env := st.Env(rep, trace)
	run := func(ctx context.Context, obs bench.Observer) (report.Document, error) {
		err := bench.NewRunner(env, obs).Run(ctx, opts.Mode)
		return rep.Snapshot(), err
	}

	var doc report.Document
	var runErr error
	if opts.TUI {
		title := fmt.Sprintf("radiobench %s: %s %s", opts.Mode, st.Radio.Model(), st.Radio.Serial())
		doc, runErr = tui.Run(ctx, title, bench.Plan(st.Family, opts.Mode), rep, run)
	} else {
		steps := progress.NewSteps(out, opts.Mode.String())
		doc, runErr = run(ctx, steps)
		steps.Finish()
	}

	res := RunResult{Document: doc}
	if pub != nil {
		if err := pub.PublishReport(context.WithoutCancel(ctx), doc); err != nil {
			st.Log.Error("Publish report: %v", err)
		}
	}
	if !opts.NoReport {
		files, err := writeReports(cfg.Report, doc)
		res.Files = files
		if err != nil {
			return res, err
		}
	}
	if !opts.TUI && cfg.Report.Text {
		if err := report.WriteText(out, doc); err != nil {
			return res, err
		}
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "Report written to %s\n", f)
	}
	return res, runErr
}

// writeReports saves the document in each configured format.
func writeReports(rc config.ReportConfig, doc report.Document) ([]string, error) {
	base := filepath.Join(rc.OutputDir, report.FileName(doc))
	var files []string
	if rc.JSON {
		path := base + ".json"
		if err := report.WriteJSONFile(path, doc); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	if rc.Text {
		path := base + ".txt"
		if err := os.MkdirAll(rc.OutputDir, 0o755); err != nil {
			return files, fmt.Errorf("create report directory: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return files, fmt.Errorf("create report: %w", err)
		}
		werr := report.WriteText(f, doc)
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return files, werr
		}
		files = append(files, path)
	}
	return files, nil
}
