package metrics

// Per-iteration tuning trace output (CSV)

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// Iteration is one step of a tuning session.
type Iteration struct {
	Timestamp time.Time
	Softpot   string
	Frequency int64
	Iteration int
	Measured  float64
	Error     float64
	AvgError  float64
	Variance  float64
	Value     float64
}

// TraceWriter writes tuning iterations as CSV rows.
type TraceWriter struct {
	mu        sync.Mutex
	file      io.Closer
	csvWriter *csv.Writer
}

var traceHeader = []string{
	"timestamp",
	"softpot",
	"frequency_hz",
	"iteration",
	"measured",
	"error",
	"avg_error",
	"variance",
	"value",
}

// NewTraceWriter writes the header to w.
func NewTraceWriter(w io.Writer) (*TraceWriter, error) {
	t := &TraceWriter{csvWriter: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		t.file = c
	}
	if err := t.csvWriter.Write(traceHeader); err != nil {
		return nil, fmt.Errorf("write CSV header: %w", err)
	}
	t.csvWriter.Flush()
	return t, t.csvWriter.Error()
}

// NewTraceFile creates path and writes the header.
func NewTraceFile(path string) (*TraceWriter, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create trace file: %w", err)
	}
	t, err := NewTraceWriter(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	return t, nil
}

// WriteIteration appends one row. A nil writer discards.
func (t *TraceWriter) WriteIteration(it Iteration) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	record := []string{
		it.Timestamp.Format(time.RFC3339Nano),
		it.Softpot,
		strconv.FormatInt(it.Frequency, 10),
		strconv.Itoa(it.Iteration),
		formatFloat(it.Measured),
		formatFloat(it.Error),
		formatFloat(it.AvgError),
		formatFloat(it.Variance),
		formatFloat(it.Value),
	}
	if err := t.csvWriter.Write(record); err != nil {
		return fmt.Errorf("write CSV record: %w", err)
	}
	t.csvWriter.Flush()
	return t.csvWriter.Error()
}

// Close flushes and closes the underlying file.
func (t *TraceWriter) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.csvWriter.Flush()
	if t.file != nil {
		return t.file.Close()
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
