package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

// HelpBar displays context-sensitive keyboard shortcuts at the bottom of the TUI.
type HelpBar struct {
	width int
	keys  KeyBindings

	focus        Focus
	confirming   string // handle awaiting stop confirmation
	canDismiss   bool
	disconnected bool

	errorMsg string
}

// NewHelpBar creates a new help bar component.
func NewHelpBar() HelpBar {
	return HelpBar{keys: DefaultKeyBindings()}
}

// SetWidth updates the help bar width.
func (h *HelpBar) SetWidth(width int) {
	h.width = width
}

// SetContext updates what the help bar offers.
func (h *HelpBar) SetContext(focus Focus, confirming string, canDismiss, disconnected bool) {
	h.focus = focus
	h.confirming = confirming
	h.canDismiss = canDismiss
	h.disconnected = disconnected
}

// SetError sets the error message to display.
func (h *HelpBar) SetError(msg string) {
	h.errorMsg = msg
}

// ClearError clears the error message.
func (h *HelpBar) ClearError() {
	h.errorMsg = ""
}

// View renders the help bar.
func (h HelpBar) View() string {
	if h.errorMsg != "" {
		return errorBarStyle.Width(h.width).Render("Error: " + h.errorMsg)
	}

	if h.confirming != "" {
		help := formatHelp([]key.Binding{h.keys.Approve, h.keys.Reject})
		return confirmBarStyle.Width(h.width).Render("Stop " + shortHandle(h.confirming) + "? " + help)
	}

	var bindings []key.Binding
	switch h.focus {
	case FocusInput:
		bindings = []key.Binding{h.keys.Submit, h.keys.HistoryUp, h.keys.HistoryDown, h.keys.Cancel}
	case FocusOutput:
		bindings = []key.Binding{h.keys.Up, h.keys.Down, h.keys.PageDown, h.keys.Input, h.keys.Tab, h.keys.Quit}
	default:
		bindings = []key.Binding{h.keys.Up, h.keys.Down, h.keys.Input, h.keys.Stop}
		if h.canDismiss {
			bindings = append(bindings, h.keys.Dismiss)
		}
		bindings = append(bindings, h.keys.Tab, h.keys.Quit)
	}
	if h.disconnected {
		bindings = append([]key.Binding{h.keys.Reconnect}, bindings...)
	}

	return statusStyle.Width(h.width).Render(formatHelp(bindings))
}

// formatHelp renders key bindings as "key action" pairs.
func formatHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		help := b.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, "  ")
}
