package config

// Configuration loading and validation for radiobench

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/errors"
	"github.com/tturner/radiobench/internal/logging"
)

// TransportKind names how the radio is reached.
type TransportKind string

const (
	TransportTCP    TransportKind = "tcp"
	TransportSerial TransportKind = "serial"
	TransportSim    TransportKind = "sim"
)

// RadioConfig represents the radio link
type RadioConfig struct {
	Transport    TransportKind `yaml:"transport"`          // "tcp", "serial" or "sim"
	Address      string        `yaml:"address,omitempty"`  // host:port for tcp
	Device       string        `yaml:"device,omitempty"`   // device path for serial
	Baud         int           `yaml:"baud,omitempty"`     // serial line rate
	Family       string        `yaml:"family"`             // "apx", "astro25" or "xpr"
	TimeoutMs    int           `yaml:"timeout_ms"`         // per exchange
	Retries      int           `yaml:"retries"`            // attempts per exchange
	SkipIdentify bool          `yaml:"skip_identify,omitempty"`
}

// InstrumentConfig represents the RF test set
type InstrumentConfig struct {
	Kind             string `yaml:"kind"` // only "sim" is built in
	ConfigureDelayMs int    `yaml:"configure_delay_ms"`
}

// TestsConfig selects tests and the extended sweep range
type TestsConfig struct {
	RefOsc     bool   `yaml:"refosc"`
	Power      bool   `yaml:"power"`
	Deviation  bool   `yaml:"deviation"`
	RSSI       bool   `yaml:"rssi"`
	TxBER      bool   `yaml:"tx_ber"`
	RxBER      bool   `yaml:"rx_ber"`
	TxExtended bool   `yaml:"tx_extended"`
	RxExtended bool   `yaml:"rx_extended"`
	Timing     string `yaml:"timing"` // see TimingProfiles

	ExtendedStartHz uint32 `yaml:"extended_start_hz,omitempty"`
	ExtendedEndHz   uint32 `yaml:"extended_end_hz,omitempty"`
	ExtendedStepHz  uint32 `yaml:"extended_step_hz,omitempty"`
}

// TuningConfig controls alignment loops
type TuningConfig struct {
	DelayMs   int    `yaml:"delay_ms"`
	TimeoutMs int    `yaml:"timeout_ms"`
	TracePath string `yaml:"trace_path,omitempty"` // CSV of every iteration
}

// LoggingConfig controls the logger
type LoggingConfig struct {
	Level    string `yaml:"level"`  // "silent", "error", "info", "verbose", "debug"
	File     string `yaml:"file,omitempty"`
	Format   string `yaml:"format"` // "text" or "json"
	LogEvery int    `yaml:"log_every"`
}

// MetricsConfig controls Prometheus exposition
type MetricsConfig struct {
	Listen string `yaml:"listen,omitempty"` // empty disables the endpoint
}

// ReportConfig controls report output
type ReportConfig struct {
	OutputDir     string `yaml:"output_dir"`
	JSON          bool   `yaml:"json"`
	Text          bool   `yaml:"text"`
	RedisAddr     string `yaml:"redis_addr,omitempty"`
	RedisPassword string `yaml:"redis_password,omitempty"`
	RedisDB       int    `yaml:"redis_db,omitempty"`
	RedisChannel  string `yaml:"redis_channel,omitempty"`
}

// CaptureConfig controls frame capture
type CaptureConfig struct {
	PcapPath string `yaml:"pcap_path,omitempty"`
}

// Config represents the bench configuration
type Config struct {
	Radio      RadioConfig      `yaml:"radio"`
	Instrument InstrumentConfig `yaml:"instrument"`
	Tests      TestsConfig      `yaml:"tests"`
	Tuning     TuningConfig     `yaml:"tuning"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Report     ReportConfig     `yaml:"report"`
	Capture    CaptureConfig    `yaml:"capture"`
}

// CreateDefaultConfig creates a default configuration that runs against
// the simulator.
func CreateDefaultConfig() *Config {
	return &Config{
		Radio: RadioConfig{
			Transport: TransportSim,
			Family:    "apx",
			TimeoutMs: 2000,
			Retries:   3,
		},
		Instrument: InstrumentConfig{Kind: "sim"},
		Tests: TestsConfig{
			RefOsc:    true,
			Power:     true,
			Deviation: true,
			RSSI:      true,
			TxBER:     true,
			RxBER:     true,
			Timing:    "standard",
		},
		Tuning: TuningConfig{
			DelayMs:   3000,
			TimeoutMs: 60000,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			LogEvery: 1,
		},
		Report: ReportConfig{
			OutputDir: "reports",
			JSON:      true,
			Text:      true,
		},
	}
}

// WriteDefaultConfig writes the default configuration to path
func WriteDefaultConfig(path string) error {
	data, err := yaml.Marshal(CreateDefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Save writes cfg as YAML to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// LoadConfig loads, defaults and validates a configuration file. With
// autoCreate a missing file is created from the defaults first.
func LoadConfig(path string, autoCreate bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.WrapConfigError(fmt.Errorf("read config file: %w", err), path)
		}
		if !autoCreate {
			return nil, errors.WrapConfigError(fmt.Errorf("config file not found: %s", path), path)
		}
		if err := WriteDefaultConfig(path); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, errors.WrapConfigError(fmt.Errorf("read created config file: %w", err), path)
		}
	}
	return Parse(data, path)
}

// Parse decodes YAML configuration. The path only labels errors.
func Parse(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapConfigError(fmt.Errorf("parse YAML: %w", err), path)
	}
	cfg.ApplyDefaults()
	if err := Validate(&cfg); err != nil {
		return nil, errors.WrapConfigError(err, path)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero values.
func (c *Config) ApplyDefaults() {
	if c.Radio.Transport == "" {
		c.Radio.Transport = TransportSim
	}
	if c.Radio.Family == "" {
		c.Radio.Family = "apx"
	}
	if c.Radio.TimeoutMs == 0 {
		c.Radio.TimeoutMs = 2000
	}
	if c.Radio.Retries == 0 {
		c.Radio.Retries = 3
	}
	if c.Radio.Transport == TransportSerial && c.Radio.Baud == 0 {
		c.Radio.Baud = 115200
	}
	if c.Instrument.Kind == "" {
		c.Instrument.Kind = "sim"
	}
	if c.Tests.Timing == "" {
		c.Tests.Timing = "standard"
	}
	if c.Tuning.DelayMs == 0 {
		c.Tuning.DelayMs = 3000
	}
	if c.Tuning.TimeoutMs == 0 {
		c.Tuning.TimeoutMs = 60000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.LogEvery == 0 {
		c.Logging.LogEvery = 1
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "reports"
	}
}

// FieldError names the offending key.
type FieldError struct {
	Key     string
	Message string
}

func (e *FieldError) Error() string {
	return e.Key + ": " + e.Message
}

func fieldErr(key, format string, args ...any) error {
	return &FieldError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// Validate checks a configuration after defaults are applied.
func Validate(cfg *Config) error {
	r := cfg.Radio
	switch r.Transport {
	case TransportTCP:
		if r.Address == "" || !strings.Contains(r.Address, ":") {
			return fieldErr("radio.address", "must be host:port for tcp")
		}
	case TransportSerial:
		if r.Device == "" {
			return fieldErr("radio.device", "is required for serial")
		}
		if r.Baud < 0 {
			return fieldErr("radio.baud", "must be positive")
		}
	case TransportSim:
	default:
		return fieldErr("radio.transport", "must be tcp, serial or sim (got %q)", r.Transport)
	}
	if _, err := bench.GetFamily(r.Family); err != nil {
		return fieldErr("radio.family", "%v", err)
	}
	if r.TimeoutMs < 0 {
		return fieldErr("radio.timeout_ms", "must be >= 0")
	}
	if r.Retries < 1 {
		return fieldErr("radio.retries", "must be >= 1")
	}
	if cfg.Instrument.Kind != "sim" {
		return fieldErr("instrument.kind", "unsupported instrument %q (built in: sim)", cfg.Instrument.Kind)
	}
	if cfg.Instrument.ConfigureDelayMs < 0 {
		return fieldErr("instrument.configure_delay_ms", "must be >= 0")
	}

	t := cfg.Tests
	if _, ok := TimingProfiles()[t.Timing]; !ok {
		return fieldErr("tests.timing", "unknown profile %q (known: %s)", t.Timing, strings.Join(TimingProfileNames(), ", "))
	}
	if t.TxExtended || t.RxExtended {
		if t.ExtendedStepHz == 0 {
			return fieldErr("tests.extended_step_hz", "must be > 0 when an extended sweep is enabled")
		}
		if t.ExtendedEndHz < t.ExtendedStartHz {
			return fieldErr("tests.extended_end_hz", "must be >= extended_start_hz")
		}
	}
	if cfg.Tuning.DelayMs < 0 {
		return fieldErr("tuning.delay_ms", "must be >= 0")
	}
	if cfg.Tuning.TimeoutMs <= 0 {
		return fieldErr("tuning.timeout_ms", "must be > 0")
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return fieldErr("logging.level", "%v", err)
	}
	if f := cfg.Logging.Format; f != "text" && f != "json" {
		return fieldErr("logging.format", "must be text or json (got %q)", f)
	}
	if cfg.Logging.LogEvery < 1 {
		return fieldErr("logging.log_every", "must be >= 1")
	}
	if cfg.Report.RedisDB < 0 {
		return fieldErr("report.redis_db", "must be >= 0")
	}
	return nil
}

// TransportSpec is the transport.Parse form of the radio link. The empty
// string means the simulator.
func (c *Config) TransportSpec() string {
	switch c.Radio.Transport {
	case TransportTCP:
		return "tcp://" + c.Radio.Address
	case TransportSerial:
		return fmt.Sprintf("serial://%s?baud=%d", c.Radio.Device, c.Radio.Baud)
	default:
		return ""
	}
}

// Timeout is the per-exchange radio timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Radio.TimeoutMs) * time.Millisecond
}

// ConfigureDelay is the instrument post-setup delay.
func (c *Config) ConfigureDelay() time.Duration {
	return time.Duration(c.Instrument.ConfigureDelayMs) * time.Millisecond
}

// Params maps the tests section onto bench parameters.
func (c *Config) Params() bench.Params {
	t := c.Tests
	return bench.Params{
		RefOsc:        t.RefOsc,
		Power:         t.Power,
		Deviation:     t.Deviation,
		RSSI:          t.RSSI,
		TxBER:         t.TxBER,
		RxBER:         t.RxBER,
		TxExtended:    t.TxExtended,
		RxExtended:    t.RxExtended,
		ExtendedStart: t.ExtendedStartHz,
		ExtendedEnd:   t.ExtendedEndHz,
		ExtendedStep:  t.ExtendedStepHz,
	}
}

// Timing resolves the timing profile with the tuning overrides applied.
func (c *Config) Timing() bench.Timing {
	t := TimingProfiles()[c.Tests.Timing]
	t.TuningDelay = time.Duration(c.Tuning.DelayMs) * time.Millisecond
	t.TuningTimeout = time.Duration(c.Tuning.TimeoutMs) * time.Millisecond
	if c.Tests.Timing == "none" {
		t.TuningDelay = 0
	}
	return t
}

// OverrideRadio replaces the radio link with a command-line spec: "sim",
// "tcp://host:port" or "serial:///dev/path?baud=N".
func (c *Config) OverrideRadio(spec string) error {
	if spec == "" {
		return nil
	}
	if spec == string(TransportSim) {
		c.Radio.Transport = TransportSim
		return nil
	}
	u, err := url.Parse(spec)
	if err != nil {
		return fmt.Errorf("radio %q: %w", spec, err)
	}
	switch u.Scheme {
	case "tcp":
		c.Radio.Transport = TransportTCP
		c.Radio.Address = u.Host
	case "serial":
		c.Radio.Transport = TransportSerial
		c.Radio.Device = u.Path
		if b := u.Query().Get("baud"); b != "" {
			baud, err := strconv.Atoi(b)
			if err != nil {
				return fmt.Errorf("radio %q: invalid baud %q", spec, b)
			}
			c.Radio.Baud = baud
		}
	default:
		return fmt.Errorf("radio %q: scheme must be tcp or serial", spec)
	}
	c.ApplyDefaults()
	return Validate(c)
}
