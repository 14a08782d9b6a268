package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tturner/radiobench/internal/report"
)

// Theme defines the color palette for the monitor.
type Theme struct {
	TextPrimary lipgloss.Color
	TextDim     lipgloss.Color

	Border lipgloss.Color

	Accent  lipgloss.Color
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Running lipgloss.Color
}

// DefaultTheme is a dark palette in Tokyo Night tones.
var DefaultTheme = Theme{
	TextPrimary: lipgloss.Color("#c0caf5"),
	TextDim:     lipgloss.Color("#565f89"),
	Border:      lipgloss.Color("#414868"),
	Accent:      lipgloss.Color("#7aa2f7"),
	Success:     lipgloss.Color("#9ece6a"),
	Warning:     lipgloss.Color("#e0af68"),
	Error:       lipgloss.Color("#f7768e"),
	Running:     lipgloss.Color("#e0af68"),
}

// Styles provides pre-configured lipgloss styles using the theme.
type Styles struct {
	Base    lipgloss.Style
	Dim     lipgloss.Style
	Bold    lipgloss.Style
	Title   lipgloss.Style
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Running lipgloss.Style
	Panel   lipgloss.Style
	KeyHint lipgloss.Style
	Footer  lipgloss.Style
}

// NewStyles creates a new Styles instance from a Theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Base: lipgloss.NewStyle().Foreground(t.TextPrimary),
		Dim:  lipgloss.NewStyle().Foreground(t.TextDim),
		Bold: lipgloss.NewStyle().Foreground(t.TextPrimary).Bold(true),
		Title: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true).
			Padding(0, 1),
		Header: lipgloss.NewStyle().
			Foreground(t.Accent).
			Bold(true),
		Success: lipgloss.NewStyle().Foreground(t.Success),
		Warning: lipgloss.NewStyle().Foreground(t.Warning),
		Error:   lipgloss.NewStyle().Foreground(t.Error),
		Running: lipgloss.NewStyle().Foreground(t.Running).Bold(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Border).
			Padding(0, 1),
		KeyHint: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		Footer:  lipgloss.NewStyle().Foreground(t.TextDim),
	}
}

// DefaultStyles returns styles using the default theme.
var DefaultStyles = NewStyles(DefaultTheme)

// StatusIcon returns a colored status indicator.
func StatusIcon(status string, s Styles) string {
	switch status {
	case "passed", "done":
		return s.Success.Render("●")
	case "failed", "error":
		return s.Error.Render("●")
	case "running":
		return s.Running.Render("●")
	default:
		return s.Dim.Render("○")
	}
}

// VerdictStyle colors a result verdict.
func VerdictStyle(v report.Verdict, s Styles) lipgloss.Style {
	switch v {
	case report.Pass:
		return s.Success
	case report.Fail:
		return s.Error
	default:
		return s.Warning
	}
}
