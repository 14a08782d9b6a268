package logging

// Leveled logging for radiobench, backed by logrus.

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelSilent LogLevel = iota
	LogLevelError
	LogLevelInfo
	LogLevelVerbose
	LogLevelDebug
)

// ParseLevel maps a config string to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch s {
	case "silent":
		return LogLevelSilent, nil
	case "error":
		return LogLevelError, nil
	case "", "info":
		return LogLevelInfo, nil
	case "verbose":
		return LogLevelVerbose, nil
	case "debug":
		return LogLevelDebug, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Sink is the logging surface the protocol, tuning and bench packages
// accept. *Logger satisfies it.
type Sink interface {
	Error(format string, v ...interface{})
	Info(format string, v ...interface{})
	Verbose(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

type nopSink struct{}

func (nopSink) Error(string, ...interface{})   {}
func (nopSink) Info(string, ...interface{})    {}
func (nopSink) Verbose(string, ...interface{}) {}
func (nopSink) Debug(string, ...interface{})   {}

// Nop returns a Sink that discards everything.
func Nop() Sink { return nopSink{} }

// OrNop returns s, or a discarding Sink when s is nil.
func OrNop(s Sink) Sink {
	if s == nil {
		return nopSink{}
	}
	return s
}

// Logger writes leveled messages to an optional log file and the console.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	format   string
	logEvery int
	counter  int
	file     *os.File
	fileLog  *logrus.Logger
	stdout   *logrus.Logger
	stderr   *logrus.Logger
}

// NewLogger creates a text logger that logs every message.
func NewLogger(level LogLevel, logFile string) (*Logger, error) {
	return NewLoggerWithOptions(level, logFile, "text", 1)
}

// NewLoggerWithOptions creates a logger. format is "text" or "json";
// logEvery > 1 samples non-error console output.
func NewLoggerWithOptions(level LogLevel, logFile, format string, logEvery int) (*Logger, error) {
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	if logEvery <= 0 {
		logEvery = 1
	}

	l := &Logger{
		level:    level,
		format:   format,
		logEvery: logEvery,
		stdout:   newBackend(os.Stdout, format, false),
		stderr:   newBackend(os.Stderr, format, false),
	}

	if logFile != "" {
		file, err := os.Create(logFile)
		if err != nil {
			return nil, fmt.Errorf("create log file: %w", err)
		}
		l.file = file
		l.fileLog = newBackend(file, format, true)
	}

	return l, nil
}

func newBackend(w io.Writer, format string, timestamps bool) *logrus.Logger {
	backend := logrus.New()
	backend.SetOutput(w)
	backend.SetLevel(logrus.TraceLevel)
	if format == "json" {
		backend.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyMsg: "message",
			},
		})
	} else {
		backend.SetFormatter(&lineFormatter{timestamps: timestamps})
	}
	return backend
}

// lineFormatter renders "LEVEL: message" lines, optionally timestamped.
type lineFormatter struct {
	timestamps bool
}

func (f *lineFormatter) Format(e *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	if f.timestamps {
		b.WriteString(e.Time.Format("2006/01/02 15:04:05 "))
	}
	b.WriteString(prefixFor(e.Level))
	b.WriteString(e.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func prefixFor(level logrus.Level) string {
	switch level {
	case logrus.ErrorLevel:
		return "ERROR: "
	case logrus.InfoLevel:
		return "INFO: "
	case logrus.DebugLevel:
		return "VERBOSE: "
	case logrus.TraceLevel:
		return "DEBUG: "
	default:
		return ""
	}
}

func backendLevel(level LogLevel) logrus.Level {
	switch level {
	case LogLevelError:
		return logrus.ErrorLevel
	case LogLevelInfo:
		return logrus.InfoLevel
	case LogLevelVerbose:
		return logrus.DebugLevel
	default:
		return logrus.TraceLevel
	}
}

func levelLabel(isError bool) string {
	if isError {
		return "error"
	}
	return "info"
}

// Close closes the logger and flushes all data
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		l.fileLog = nil
		return err
	}
	return nil
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(LogLevelError, nil, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(LogLevelInfo, nil, format, v...)
}

// Verbose logs a verbose message
func (l *Logger) Verbose(format string, v ...interface{}) {
	l.log(LogLevelVerbose, nil, format, v...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(LogLevelDebug, nil, format, v...)
}

func (l *Logger) log(level LogLevel, fields logrus.Fields, format string, v ...interface{}) {
	if l.GetLevel() < level {
		return
	}
	l.write(level, fields, fmt.Sprintf(format, v...))
}

// write writes a message to the appropriate outputs
func (l *Logger) write(level LogLevel, fields logrus.Fields, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	isError := level == LogLevelError
	if fields == nil {
		fields = logrus.Fields{}
	}
	if l.format == "json" {
		fields["severity"] = levelLabel(isError)
	}

	// Always write to log file if available
	if l.fileLog != nil {
		l.fileLog.WithFields(fields).Log(backendLevel(level), msg)
	}

	l.counter++
	if !isError && l.counter%l.logEvery != 0 {
		return
	}

	// Errors go to stderr, others to stdout only at verbose or debug
	if isError {
		l.stderr.WithFields(fields).Log(backendLevel(level), msg)
	} else if l.level >= LogLevelVerbose {
		l.stdout.WithFields(fields).Log(backendLevel(level), msg)
	}
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level
func (l *Logger) GetLevel() LogLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// LogExchange logs one XCMP request/response round trip.
func (l *Logger) LogExchange(opcode, result string, rtt time.Duration, attempt int, err error) {
	success := err == nil
	statusStr := "SUCCESS"
	if !success {
		statusStr = "FAILED"
	}

	var errStr string
	if err != nil {
		errStr = fmt.Sprintf(" - error: %v", err)
	}

	rttMs := float64(rtt.Microseconds()) / 1000
	msg := fmt.Sprintf("%s %s (result: %s, attempt: %d, RTT: %.3fms)%s",
		statusStr, opcode, result, attempt, rttMs, errStr)
	fields := logrus.Fields{
		"opcode":  opcode,
		"result":  result,
		"attempt": attempt,
		"rtt_ms":  rttMs,
	}

	if success {
		if l.GetLevel() >= LogLevelVerbose {
			l.write(LogLevelVerbose, fields, msg)
		}
	} else if l.GetLevel() >= LogLevelInfo {
		l.write(LogLevelInfo, fields, msg)
	}
}

// LogStartup logs startup information
func (l *Logger) LogStartup(mode, radio, family, instrument, configPath string) {
	l.Info("Starting radiobench %s", mode)
	l.Verbose("  Radio: %s", radio)
	l.Verbose("  Family: %s", family)
	l.Verbose("  Instrument: %s", instrument)
	l.Verbose("  Config: %s", configPath)
}

// LogHex logs hex data (for debug level)
func (l *Logger) LogHex(label string, data []byte) {
	if l.GetLevel() >= LogLevelDebug {
		l.Debug("%s: % x", label, data)
	}
}
