package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#0E7490") // Teal
	secondaryColor = lipgloss.Color("#10B981") // Green
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	errorColor     = lipgloss.Color("#EF4444") // Red
	warningColor   = lipgloss.Color("#F59E0B") // Amber

	// Header styles
	headerContainerStyle = lipgloss.NewStyle().
				Background(primaryColor)

	headerBrandStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#FFFFFF")).
				Background(primaryColor).
				Padding(0, 1)

	headerStatsStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#E0E0E0")).
				Background(primaryColor).
				Padding(0, 1)

	headerConnDisconnectedStyle = lipgloss.NewStyle().
					Foreground(errorColor).
					Background(primaryColor)

	headerConnReconnectingStyle = lipgloss.NewStyle().
					Foreground(warningColor).
					Background(primaryColor)

	// Help bar
	statusStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	errorBarStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Padding(0, 1)

	confirmBarStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			Padding(0, 1)

	// Process list styles
	procListEmptyStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Padding(1, 2)

	procRowStyle = lipgloss.NewStyle().
			Padding(0, 1)

	procRowSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 1)

	procHandleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)

	procCommandStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#A0A0A0"))

	procAgeStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// Output view styles
	outputHeaderStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#2D2D2D")).
				Padding(0, 1)

	outputHeaderFocusedStyle = lipgloss.NewStyle().
					Background(primaryColor).
					Padding(0, 1)

	outputHeaderHandleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFFFF")).
				Bold(true)

	outputHeaderCommandStyle = lipgloss.NewStyle().
					Foreground(lipgloss.Color("#A0A0A0"))

	outputEmptyStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Padding(1, 2)

	outputStderrStyle = lipgloss.NewStyle().Foreground(warningColor)
	outputExitStyle   = lipgloss.NewStyle().Foreground(mutedColor).Bold(true)
	outputErrorStyle  = lipgloss.NewStyle().Foreground(errorColor)

	outputBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(mutedColor)

	outputFocusedBorderStyle = lipgloss.NewStyle().
					Border(lipgloss.RoundedBorder()).
					BorderForeground(primaryColor)

	// Input line styles
	inputLineStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#2D2D2D")).
			Padding(0, 1)

	inputLineFocusedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#3B3B3B")).
				Padding(0, 1)
)
