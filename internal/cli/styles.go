package cli

import "github.com/charmbracelet/lipgloss"

// Styles for streamed output. lipgloss drops colors when stdout is not a
// terminal, so piped output stays plain.
var (
	handleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	stderrStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	exitStyle   = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)
