package tui

import (
	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
)

// clipboardCopyMsg is sent after a clipboard copy operation.
type clipboardCopyMsg struct {
	err error
}

// writeClipboard is replaced in tests.
var writeClipboard = clipboard.WriteAll

// copyToClipboard copies text to the system clipboard.
func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return clipboardCopyMsg{err: writeClipboard(text)}
	}
}
