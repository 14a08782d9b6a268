// Package progress prints a one-line step indicator for non-interactive
// runs.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Steps follows a test sequence and redraws one status line per event. It
// satisfies bench.Observer.
type Steps struct {
	mu          sync.Mutex
	output      io.Writer
	description string
	enabled     bool
	now         func() time.Time

	start   time.Time
	total   int
	done    int
	current string
	failed  []string
}

// NewSteps creates an indicator writing to w.
func NewSteps(w io.Writer, description string) *Steps {
	return &Steps{output: w, description: description, enabled: w != nil, now: time.Now}
}

// Disable silences the indicator.
func (s *Steps) Disable() {
	s.mu.Lock()
	s.enabled = false
	s.mu.Unlock()
}

// TestStarted draws the line for the test at index of total.
func (s *Steps) TestStarted(name string, index, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.start.IsZero() {
		s.start = s.now()
	}
	s.total = total
	s.done = index
	s.current = name
	s.render()
}

// TestFinished marks a test complete.
func (s *Steps) TestFinished(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done++
	if err != nil {
		s.failed = append(s.failed, name)
	}
	s.render()
}

// Finish ends the line.
func (s *Steps) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.enabled {
		return
	}
	s.current = ""
	s.done = s.total
	s.render()
	fmt.Fprint(s.output, "\n")
}

func (s *Steps) render() {
	if !s.enabled {
		return
	}
	var percent float64
	if s.total > 0 {
		percent = float64(s.done) / float64(s.total) * 100
	}
	filled := int(float64(barWidth) * percent / 100)
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled)
	if filled < barWidth {
		bar += ">" + strings.Repeat("-", barWidth-filled-1)
	}

	var b strings.Builder
	b.WriteString("\r")
	if s.description != "" {
		b.WriteString(s.description + " ")
	}
	fmt.Fprintf(&b, "[%s] %d/%d", bar, s.done, s.total)
	if s.current != "" {
		b.WriteString(" " + s.current)
	}
	if len(s.failed) > 0 {
		fmt.Fprintf(&b, " | failed: %s", strings.Join(s.failed, ","))
	}
	if !s.start.IsZero() {
		b.WriteString(" | Elapsed: " + formatDuration(s.now().Sub(s.start)))
	}
	fmt.Fprint(s.output, b.String())
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", minutes, seconds)
}
