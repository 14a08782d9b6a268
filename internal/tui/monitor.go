// Package tui is the live run monitor: a bubbletea program that follows a
// test sequence, shows each result as it is recorded and lets the operator
// copy the final report.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/radiobench/internal/bench"
	"github.com/tturner/radiobench/internal/report"
)

type testStartedMsg struct {
	name         string
	index, total int
}

type testFinishedMsg struct {
	name string
	err  error
}

type resultMsg struct{ result report.TestResult }

type errorMsg struct{ err report.TestError }

type runDoneMsg struct {
	doc report.Document
	err error
}

type testRow struct {
	name   string
	status string
	err    error
}

// Model is the monitor state.
type Model struct {
	styles Styles
	title  string
	rows   []testRow
	cancel context.CancelFunc

	results []report.TestResult
	errors  []report.TestError

	done      bool
	cancelled bool
	runErr    error
	doc       report.Document
	status    string
	width     int
}

// NewModel creates a monitor for the planned tests. cancel stops the run
// when the operator quits early.
func NewModel(title string, plan []string, cancel context.CancelFunc) *Model {
	rows := make([]testRow, len(plan))
	for i, name := range plan {
		rows[i] = testRow{name: name, status: "pending"}
	}
	return &Model{styles: DefaultStyles, title: title, rows: rows, cancel: cancel, width: 104}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) row(name string) *testRow {
	for i := range m.rows {
		if m.rows[i].name == name {
			return &m.rows[i]
		}
	}
	m.rows = append(m.rows, testRow{name: name})
	return &m.rows[len(m.rows)-1]
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case testStartedMsg:
		m.row(msg.name).status = "running"
	case testFinishedMsg:
		r := m.row(msg.name)
		r.err = msg.err
		if msg.err != nil {
			r.status = "failed"
		} else {
			r.status = "done"
		}
	case resultMsg:
		m.results = append(m.results, msg.result)
	case errorMsg:
		m.errors = append(m.errors, msg.err)
	case runDoneMsg:
		m.done = true
		m.doc = msg.doc
		m.runErr = msg.err
		for i := range m.rows {
			if m.rows[i].status == "pending" || m.rows[i].status == "running" {
				m.rows[i].status = "skipped"
			}
		}
	case clipboardCopyMsg:
		if msg.err != nil {
			m.status = "Copy failed: " + msg.err.Error()
		} else {
			m.status = "Report copied to clipboard"
		}
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		if m.done {
			return m, tea.Quit
		}
		if !m.cancelled && m.cancel != nil {
			m.cancelled = true
			m.status = "Stopping, radio will be dekeyed..."
			m.cancel()
		}
	case "c":
		if m.done {
			return m, copyToClipboard(m.doc.Text())
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render(m.title) + "\n\n")

	var tests strings.Builder
	for _, r := range m.rows {
		line := fmt.Sprintf("%s %-12s %s", StatusIcon(r.status, s), r.name, s.Dim.Render(r.status))
		if r.err != nil {
			line += " " + s.Error.Render(r.err.Error())
		}
		tests.WriteString(line + "\n")
	}
	b.WriteString(s.Panel.Render(strings.TrimRight(tests.String(), "\n")) + "\n\n")

	if len(m.results) > 0 || len(m.errors) > 0 {
		b.WriteString(m.resultTable() + "\n")
	}

	if m.done {
		b.WriteString(m.summary() + "\n")
	}
	if m.status != "" {
		b.WriteString(s.Warning.Render(m.status) + "\n")
	}
	b.WriteString(m.footer())
	return b.String()
}

func (m *Model) resultTable() string {
	s := m.styles
	widths := []int{26, 12, 12, 12, 16, 6}
	cell := func(text string, w int, st lipgloss.Style) string {
		return st.Width(w).Render(text)
	}
	var b strings.Builder
	for i, h := range report.Columns {
		b.WriteString(cell(h, widths[i], s.Header))
	}
	b.WriteString("\n")
	for _, r := range m.results {
		c := r.Row()
		for i := 0; i < 5; i++ {
			b.WriteString(cell(c[i], widths[i], s.Base))
		}
		b.WriteString(cell(c[5], widths[5], VerdictStyle(r.Verdict(), s)) + "\n")
	}
	for _, e := range m.errors {
		b.WriteString(cell(e.Type.Label(), widths[0], s.Base))
		b.WriteString(s.Error.Render(e.Message) + "\n")
	}
	return b.String()
}

func (m *Model) summary() string {
	s := m.styles
	switch {
	case m.runErr != nil && m.cancelled:
		return s.Warning.Render("Run cancelled")
	case m.runErr != nil:
		return s.Error.Render("Run stopped: " + m.runErr.Error())
	}
	v := m.doc.Verdict
	return s.Bold.Render("Overall result: ") + VerdictStyle(v, s).Render(string(v)) +
		s.Dim.Render(" ("+m.doc.Duration+")")
}

func (m *Model) footer() string {
	s := m.styles
	if m.done {
		return s.KeyHint.Render("c") + s.Footer.Render(" copy report  ") +
			s.KeyHint.Render("q") + s.Footer.Render(" quit")
	}
	return s.KeyHint.Render("q") + s.Footer.Render(" stop run")
}

// Monitor forwards run events to a bubbletea program. It satisfies
// bench.Observer and report.Listener.
type Monitor struct {
	send func(tea.Msg)
}

var (
	_ bench.Observer  = (*Monitor)(nil)
	_ report.Listener = (*Monitor)(nil)
)

func (m *Monitor) TestStarted(name string, index, total int) {
	m.send(testStartedMsg{name: name, index: index, total: total})
}

func (m *Monitor) TestFinished(name string, err error) {
	m.send(testFinishedMsg{name: name, err: err})
}

func (m *Monitor) ResultAdded(r report.TestResult) { m.send(resultMsg{result: r}) }

func (m *Monitor) ErrorAdded(e report.TestError) { m.send(errorMsg{err: e}) }

// RunFunc executes the sequence, reporting progress to obs.
type RunFunc func(ctx context.Context, obs bench.Observer) (report.Document, error)

// Run shows the monitor while run executes. Results recorded in rep appear
// as they arrive. Quitting before the run ends cancels it and waits for
// the run to return.
func Run(ctx context.Context, title string, plan []string, rep *report.Report, run RunFunc) (report.Document, error) {
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	model := NewModel(title, plan, cancelRun)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	mon := &Monitor{send: program.Send}
	rep.Subscribe(mon)

	type outcome struct {
		doc report.Document
		err error
	}
	finished := make(chan outcome, 1)
	go func() {
		doc, err := run(runCtx, mon)
		finished <- outcome{doc, err}
		program.Send(runDoneMsg{doc: doc, err: err})
	}()

	_, perr := program.Run()
	cancelRun()
	res := <-finished
	if res.err != nil {
		return res.doc, res.err
	}
	if perr != nil && !model.done {
		return res.doc, fmt.Errorf("monitor: %w", perr)
	}
	return res.doc, nil
}
