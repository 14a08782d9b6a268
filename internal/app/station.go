package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/capture"
	"github.com/tturner/radiobench/internal/config"
	benchErrors "github.com/tturner/radiobench/internal/errors"
	"github.com/tturner/radiobench/internal/instrument"
	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/metrics"
	"github.com/tturner/radiobench/internal/radio"
	"github.com/tturner/radiobench/internal/report"
	"github.com/tturner/radiobench/internal/sim"
	"github.com/tturner/radiobench/internal/transport"
)

// Station is an open bench: the radio link, the instrument and the
// ambient logging and metrics shared by every command.
type Station struct {
	Config     *config.Config
	Log        *logging.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.Collectors
	Family     *bench.Family
	Radio      *radio.Radio
	Instrument instrument.Instrument
	// Sim is the simulated bench state, nil for a physical radio.
	Sim *sim.State

	recorder *capture.Recorder
	cancel   context.CancelFunc
}

// StationOptions controls OpenStation.
type StationOptions struct {
	// Instrument connects the test set as well as the radio.
	Instrument bool
	// QuietConsole keeps log output off the terminal unless a log file
	// is configured.
	QuietConsole bool
	// Sim reuses a simulated radio across stations. Nil starts a fresh one.
	Sim *sim.State
}

// SimConfigFor returns a simulated radio whose reference oscillator
// responds with the sign the family's loop gain expects.
func SimConfigFor(f *bench.Family) sim.Config {
	cfg := sim.DefaultConfig()
	if f.RefOscKp > 0 {
		cfg.RefOscSlope = -cfg.RefOscSlope
	}
	return cfg
}

func newLogger(cfg *config.Config, quiet bool) (*logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if quiet && cfg.Logging.File == "" {
		level = logging.LogLevelSilent
	}
	logger, err := logging.NewLoggerWithOptions(level, cfg.Logging.File, cfg.Logging.Format, cfg.Logging.LogEvery)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return logger, nil
}

// OpenStation connects everything cfg describes. The caller must Close it.
func OpenStation(ctx context.Context, cfg *config.Config, opts StationOptions) (*Station, error) {
	family, err := bench.GetFamily(cfg.Radio.Family)
	if err != nil {
		return nil, err
	}
	spec := cfg.TransportSpec()
	if opts.Instrument && cfg.Instrument.Kind == "sim" && spec != "" {
		return nil, fmt.Errorf("instrument %q measures the simulated radio only; set radio.transport to sim", cfg.Instrument.Kind)
	}

	logger, err := newLogger(cfg, opts.QuietConsole)
	if err != nil {
		return nil, err
	}

	st := &Station{
		Config:   cfg,
		Log:      logger,
		Registry: prometheus.NewRegistry(),
		Family:   family,
	}
	st.Metrics = metrics.New(st.Registry)
	ctx, st.cancel = context.WithCancel(ctx)

	if addr := cfg.Metrics.Listen; addr != "" {
		go func() {
			if err := metrics.Serve(ctx, addr, st.Registry); err != nil {
				logger.Error("Metrics endpoint stopped: %v", err)
			}
		}()
		logger.Info("Serving metrics on http://%s/metrics", addr)
	}

	var tr transport.Transport
	target := spec
	if spec == "" {
		target = "sim"
		st.Sim = opts.Sim
		if st.Sim == nil {
			st.Sim = sim.NewState(SimConfigFor(family))
		}
		pipe, err := sim.Pair(ctx, st.Sim, logger)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("start simulated radio: %w", err)
		}
		tr = pipe
	} else {
		tr, err = transport.Parse(spec, transport.Options{ConnectTimeout: cfg.Timeout(), Baud: cfg.Radio.Baud})
		if err != nil {
			st.Close()
			return nil, err
		}
	}

	if path := cfg.Capture.PcapPath; path != "" {
		rec, err := capture.NewFileRecorder(tr, path)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("start capture: %w", err)
		}
		st.recorder = rec
		tr = rec
		logger.Info("Capturing XCMP frames to %s", path)
	}

	st.Radio = radio.New(tr,
		radio.WithTimeout(cfg.Timeout()),
		radio.WithRetries(cfg.Radio.Retries),
		radio.WithLogger(logger),
		radio.WithMetrics(st.Metrics),
	)
	if cfg.Tests.Timing == "none" {
		st.Radio.SetBERTiming(radio.BERTiming{})
	}
	if err := st.Radio.Connect(ctx, cfg.Radio.SkipIdentify); err != nil {
		st.Close()
		return nil, benchErrors.WrapConnectError(err, target)
	}

	if opts.Instrument {
		inst := sim.NewInstrument(st.Sim, cfg.ConfigureDelay())
		if err := inst.Connect(ctx); err != nil {
			st.Close()
			return nil, benchErrors.WrapInstrumentError(err, inst.Info().String())
		}
		st.Instrument = inst
	}
	return st, nil
}

// Env builds the bench environment for a run recorded in rep.
func (s *Station) Env(rep *report.Report, trace *metrics.TraceWriter) *bench.Env {
	return &bench.Env{
		Radio:      s.Radio,
		Instrument: s.Instrument,
		Family:     s.Family,
		Report:     rep,
		Log:        s.Log,
		Metrics:    s.Metrics,
		Trace:      trace,
		Timing:     s.Config.Timing(),
		Params:     s.Config.Params(),
	}
}

// Close disconnects the instrument and radio, stops the simulator and
// the metrics endpoint, and flushes the capture.
func (s *Station) Close() error {
	var errs []error
	if s.Instrument != nil {
		errs = append(errs, s.Instrument.Disconnect())
	}
	if s.Radio != nil {
		errs = append(errs, s.Radio.Disconnect())
	}
	if s.recorder != nil {
		frames, bad := s.recorder.Stats()
		s.Log.Verbose("Captured %d frames (%d write errors)", frames, bad)
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.Log != nil {
		errs = append(errs, s.Log.Close())
	}
	return errors.Join(errs...)
}
