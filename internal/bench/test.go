package bench

import (
	"context"
	"fmt"

	"github.com/tturner/radiobench/internal/report"
)

// Test names used in family sequences.
const (
	TestRefOsc     = "refosc"
	TestDeviation  = "deviation"
	TestPower      = "power"
	TestRSSI       = "rssi"
	TestRxBER      = "rx-ber"
	TestTxBER      = "tx-ber"
	TestTxExtended = "tx-extended"
	TestRxExtended = "rx-extended"
)

// Test is one measurement procedure. Setup runs before PerformTest or
// PerformAlignment, Teardown always runs after.
type Test interface {
	Name() string
	// ResultType labels errors recorded for the test.
	ResultType() report.ResultType
	Eligible(env *Env) bool
	Setup(ctx context.Context, env *Env) error
	PerformTest(ctx context.Context, env *Env) error
	Teardown(ctx context.Context, env *Env) error
}

// Aligner is a test that can also adjust the radio.
type Aligner interface {
	Test
	PerformAlignment(ctx context.Context, env *Env) error
}

type entry struct {
	build   func() Test
	enabled func(Params) bool
}

var registry = map[string]entry{
	TestRefOsc:     {func() Test { return &RefOscTest{} }, func(p Params) bool { return p.RefOsc }},
	TestDeviation:  {func() Test { return &DeviationBalanceTest{} }, func(p Params) bool { return p.Deviation }},
	TestPower:      {func() Test { return &PowerTest{} }, func(p Params) bool { return p.Power }},
	TestRSSI:       {func() Test { return &RSSITest{} }, func(p Params) bool { return p.RSSI }},
	TestRxBER:      {func() Test { return &RxBERTest{} }, func(p Params) bool { return p.RxBER }},
	TestTxBER:      {func() Test { return &TxBERTest{} }, func(p Params) bool { return p.TxBER }},
	TestTxExtended: {func() Test { return &TxExtendedTest{} }, func(p Params) bool { return p.TxExtended }},
	TestRxExtended: {func() Test { return &RxExtendedTest{} }, func(p Params) bool { return p.RxExtended }},
}

// UnknownTestError is returned for an unregistered test name.
type UnknownTestError struct {
	Name string
}

func (e *UnknownTestError) Error() string {
	return "unknown test: " + e.Name
}

// GetTest builds a fresh test by name.
func GetTest(name string) (Test, error) {
	e, ok := registry[name]
	if !ok {
		return nil, &UnknownTestError{Name: name}
	}
	return e.build(), nil
}

// Enabled reports whether params select the named test.
func Enabled(name string, p Params) bool {
	e, ok := registry[name]
	return ok && e.enabled(p)
}

// base gives tests no-op Teardown and always-true eligibility.
type base struct{}

func (base) Eligible(*Env) bool { return true }

func (base) Teardown(context.Context, *Env) error { return nil }

func alignmentFailed(what string, hz uint32) string {
	if hz == 0 {
		return fmt.Sprintf("Alignment for %s Failed", what)
	}
	return fmt.Sprintf("Alignment for %s Failed at %g MHz", what, mhz(hz))
}
