package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/config"
)

// WizardAnswers holds the values edited by the setup wizard.
type WizardAnswers struct {
	Family    string
	Transport string
	Address   string
	Device    string
	Baud      string
	Tests     []string
	Timing    string
}

// AnswersFrom seeds the wizard with the current configuration.
func AnswersFrom(cfg *config.Config) *WizardAnswers {
	a := &WizardAnswers{
		Family:    cfg.Radio.Family,
		Transport: string(cfg.Radio.Transport),
		Address:   cfg.Radio.Address,
		Device:    cfg.Radio.Device,
		Timing:    cfg.Tests.Timing,
	}
	if cfg.Radio.Baud > 0 {
		a.Baud = strconv.Itoa(cfg.Radio.Baud)
	}
	for _, e := range testSwitches(&cfg.Tests) {
		if *e.enabled {
			a.Tests = append(a.Tests, e.name)
		}
	}
	return a
}

type testSwitch struct {
	name    string
	label   string
	enabled *bool
}

func testSwitches(t *config.TestsConfig) []testSwitch {
	return []testSwitch{
		{bench.TestRefOsc, "Reference oscillator", &t.RefOsc},
		{bench.TestPower, "TX power", &t.Power},
		{bench.TestDeviation, "Deviation balance", &t.Deviation},
		{bench.TestTxBER, "TX bit error rate", &t.TxBER},
		{bench.TestRSSI, "RSSI", &t.RSSI},
		{bench.TestRxBER, "RX bit error rate", &t.RxBER},
		{bench.TestTxExtended, "Extended TX sweep", &t.TxExtended},
		{bench.TestRxExtended, "Extended RX sweep", &t.RxExtended},
	}
}

// Apply writes the answers into cfg and validates the result.
func (a *WizardAnswers) Apply(cfg *config.Config) error {
	cfg.Radio.Family = strings.ToLower(strings.TrimSpace(a.Family))
	cfg.Radio.Transport = config.TransportKind(a.Transport)
	cfg.Radio.Address = strings.TrimSpace(a.Address)
	cfg.Radio.Device = strings.TrimSpace(a.Device)
	if b := strings.TrimSpace(a.Baud); b != "" {
		baud, err := strconv.Atoi(b)
		if err != nil {
			return fmt.Errorf("baud %q: %w", b, err)
		}
		cfg.Radio.Baud = baud
	}
	cfg.Tests.Timing = a.Timing

	selected := make(map[string]bool, len(a.Tests))
	for _, name := range a.Tests {
		selected[name] = true
	}
	for _, e := range testSwitches(&cfg.Tests) {
		*e.enabled = selected[e.name]
	}
	cfg.ApplyDefaults()
	return config.Validate(cfg)
}

// NewWizardForm builds the interactive form bound to a.
func NewWizardForm(a *WizardAnswers) *huh.Form {
	familyOpts := make([]huh.Option[string], 0)
	for _, name := range bench.FamilyNames() {
		familyOpts = append(familyOpts, huh.NewOption(strings.ToUpper(name), name))
	}
	timingOpts := make([]huh.Option[string], 0)
	for _, name := range config.TimingProfileNames() {
		timingOpts = append(timingOpts, huh.NewOption(name, name))
	}
	var scratch config.TestsConfig
	testOpts := make([]huh.Option[string], 0)
	for _, e := range testSwitches(&scratch) {
		testOpts = append(testOpts, huh.NewOption(e.label, e.name))
	}

	radioGroup := huh.NewGroup(
		huh.NewSelect[string]().
			Title("Radio family").
			Description("Selects the frequency plan and the tests the radio supports.").
			Key("family").
			Options(familyOpts...).
			Value(&a.Family),
		huh.NewSelect[string]().
			Title("Connection").
			Description("How the service port is reached.").
			Key("transport").
			Options(
				huh.NewOption("TCP (network adapter)", string(config.TransportTCP)),
				huh.NewOption("Serial", string(config.TransportSerial)),
				huh.NewOption("Simulated bench", string(config.TransportSim)),
			).
			Value(&a.Transport),
	)

	tcpGroup := huh.NewGroup(
		huh.NewInput().
			Title("Address").
			Description("host:port of the radio.").
			Key("address").
			Value(&a.Address),
	).WithHideFunc(func() bool { return a.Transport != string(config.TransportTCP) })

	serialGroup := huh.NewGroup(
		huh.NewInput().
			Title("Device").
			Description("Serial device path (e.g., /dev/ttyACM0).").
			Key("device").
			Value(&a.Device),
		huh.NewInput().
			Title("Baud").
			Key("baud").
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return nil
				}
				_, err := strconv.Atoi(strings.TrimSpace(s))
				return err
			}).
			Value(&a.Baud),
	).WithHideFunc(func() bool { return a.Transport != string(config.TransportSerial) })

	testGroup := huh.NewGroup(
		huh.NewMultiSelect[string]().
			Title("Tests").
			Description("Tests run in a fixed order; ineligible tests are skipped.").
			Key("tests").
			Options(testOpts...).
			Value(&a.Tests),
		huh.NewSelect[string]().
			Title("Timing").
			Description("Settling waits between instrument and radio steps.").
			Key("timing").
			Options(timingOpts...).
			Value(&a.Timing),
	)

	return huh.NewForm(radioGroup, tcpGroup, serialGroup, testGroup)
}

// RunWizard edits cfg interactively. It returns huh.ErrUserAborted when
// the operator cancels.
func RunWizard(cfg *config.Config) error {
	a := AnswersFrom(cfg)
	if err := NewWizardForm(a).Run(); err != nil {
		return err
	}
	return a.Apply(cfg)
}
