package bench

import (
	"context"
	"errors"
	"fmt"

	"github.com/tturner/radiobench/internal/logging"
	"github.com/tturner/radiobench/internal/report"
)

// Mode selects measuring or aligning.
type Mode int

const (
	ModeTest Mode = iota
	ModeAlign
)

func (m Mode) String() string {
	if m == ModeAlign {
		return "align"
	}
	return "test"
}

// ReportType is the report kind a mode produces.
func (m Mode) ReportType() report.ReportType {
	if m == ModeAlign {
		return report.TypeAlignment
	}
	return report.TypeTest
}

// Observer follows a run test by test.
type Observer interface {
	TestStarted(name string, index, total int)
	TestFinished(name string, err error)
}

type nopObserver struct{}

func (nopObserver) TestStarted(string, int, int) {}
func (nopObserver) TestFinished(string, error)   {}

// Runner executes a family's sequence against one radio.
type Runner struct {
	env      *Env
	observer Observer
}

// NewRunner prepares a runner. A nil observer is replaced by a no-op.
func NewRunner(env *Env, observer Observer) *Runner {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Runner{env: env, observer: observer}
}

// Plan lists the test names the family runs in mode, before eligibility
// and parameter filtering.
func Plan(f *Family, mode Mode) []string {
	if mode == ModeAlign {
		return append([]string(nil), f.AlignSequence...)
	}
	return append([]string(nil), f.Sequence...)
}

// Run executes the sequence. The first failing test stops the run; its
// error is recorded in the report unless ctx was cancelled. The radio is
// always dekeyed and, for families that need it, reset at the end.
func (r *Runner) Run(ctx context.Context, mode Mode) error {
	env := r.env
	if env.Radio == nil || env.Instrument == nil || env.Family == nil {
		return errors.New("bench: radio, instrument and family are required")
	}
	env.Log = logging.OrNop(env.Log)
	if env.Report == nil {
		env.Report = report.New(mode.ReportType())
	}
	env.Report.Begin(report.RadioInfo{Model: env.Radio.Model(), Serial: env.Radio.Serial()}, env.Instrument.Info().String())
	defer env.Report.Finish()

	env.Log.Info("Starting %s sequence for %s (%s family)", mode, env.Radio.Serial(), env.Family.Name)
	names := Plan(env.Family, mode)
	err := r.runSequence(ctx, mode, names)
	env.dekey(ctx)

	if env.Family.ResetAfter {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		if rerr := env.Radio.Reset(c); rerr != nil {
			env.Log.Error("Radio reset failed: %v", rerr)
		}
		cancel()
	}
	if err != nil {
		return err
	}
	env.Log.Info("Sequence finished: %s", verdict(env.Report))
	return nil
}

func verdict(r *report.Report) string {
	if r.Passed() {
		return "PASS"
	}
	return "FAIL"
}

func (r *Runner) runSequence(ctx context.Context, mode Mode, names []string) error {
	env := r.env
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return err
		}
		t, err := GetTest(name)
		if err != nil {
			return err
		}
		if !Enabled(name, env.Params) {
			env.Log.Verbose("Skipping %s: disabled", name)
			continue
		}
		if !t.Eligible(env) {
			env.Log.Info("Skipping %s: not supported by this radio or instrument", name)
			continue
		}
		var perform func(context.Context, *Env) error
		if mode == ModeAlign {
			a, ok := t.(Aligner)
			if !ok {
				env.Log.Verbose("Skipping %s: no alignment procedure", name)
				continue
			}
			perform = a.PerformAlignment
		} else {
			perform = t.PerformTest
		}

		r.observer.TestStarted(name, i, len(names))
		err = r.runOne(ctx, t, perform)
		r.observer.TestFinished(name, err)
		if err != nil {
			if ctx.Err() == nil {
				env.Report.AddError(t.ResultType(), err.Error())
			}
			env.Log.Error("Test %s failed: %v", name, err)
			return fmt.Errorf("%s: %w", name, err)
		}
		if err := env.wait(ctx, env.Timing.Settle); err != nil {
			return err
		}
	}
	return nil
}

// runOne runs Setup and perform, then Teardown regardless of outcome.
func (r *Runner) runOne(ctx context.Context, t Test, perform func(context.Context, *Env) error) (err error) {
	env := r.env
	defer func() {
		c, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		env.dekey(c)
		if terr := t.Teardown(c, env); terr != nil {
			env.Log.Error("Teardown of %s failed: %v", t.Name(), terr)
			if err == nil {
				err = terr
			}
		}
	}()
	env.Log.Info("Running %s", t.Name())
	if err := t.Setup(ctx, env); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	return perform(ctx, env)
}
