package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxHistorySize limits the number of entries stored in history.
const maxHistorySize = 100

// InputLine is a single-line input for writing to a process's stdin.
type InputLine struct {
	width   int
	focused bool
	input   textinput.Model

	history      []string
	historyIndex int    // -1 means not browsing history
	savedInput   string // input in progress when browsing started
}

// NewInputLine creates a new input line component.
func NewInputLine() InputLine {
	ti := textinput.New()
	ti.Placeholder = "press i to write to stdin"
	ti.CharLimit = 4096
	ti.Prompt = "> "
	return InputLine{
		input:        ti,
		historyIndex: -1,
	}
}

// SetWidth updates the component width.
func (i *InputLine) SetWidth(width int) {
	i.width = width
	i.input.Width = max(width-6, 1) // padding and prompt
}

// SetFocused sets the focus state.
func (i *InputLine) SetFocused(focused bool) {
	i.focused = focused
	if focused {
		i.input.Placeholder = "line for stdin (enter sends, esc cancels)"
		i.input.Focus()
	} else {
		i.input.Placeholder = "press i to write to stdin"
		i.input.Blur()
	}
}

// IsFocused returns whether the input is focused.
func (i *InputLine) IsFocused() bool {
	return i.focused
}

// Update handles input events and returns a command.
func (i *InputLine) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	i.input, cmd = i.input.Update(msg)
	return cmd
}

// Value returns the current input value.
func (i *InputLine) Value() string {
	return i.input.Value()
}

// SetValue replaces the input value.
func (i *InputLine) SetValue(s string) {
	i.input.SetValue(s)
	i.input.CursorEnd()
}

// Clear resets the input value.
func (i *InputLine) Clear() {
	i.input.SetValue("")
}

// View renders the input line.
func (i InputLine) View() string {
	style := inputLineStyle
	if i.focused {
		style = inputLineFocusedStyle
	}
	return style.Width(i.width).Render(i.input.View())
}

// AddToHistory adds the given input to history if non-empty.
func (i *InputLine) AddToHistory(input string) {
	i.historyIndex = -1
	i.savedInput = ""
	if input == "" {
		return
	}
	if len(i.history) > 0 && i.history[len(i.history)-1] == input {
		return
	}
	i.history = append(i.history, input)
	if len(i.history) > maxHistorySize {
		i.history = i.history[len(i.history)-maxHistorySize:]
	}
}

// HistoryUp navigates to the previous (older) history entry.
// Returns true if the input was changed.
func (i *InputLine) HistoryUp() bool {
	if len(i.history) == 0 {
		return false
	}

	switch {
	case i.historyIndex == -1:
		i.savedInput = i.input.Value()
		i.historyIndex = len(i.history) - 1
	case i.historyIndex > 0:
		i.historyIndex--
	default:
		return false
	}

	i.SetValue(i.history[i.historyIndex])
	return true
}

// HistoryDown navigates to the next (newer) history entry.
// Returns true if the input was changed.
func (i *InputLine) HistoryDown() bool {
	if i.historyIndex == -1 {
		return false
	}

	if i.historyIndex < len(i.history)-1 {
		i.historyIndex++
		i.SetValue(i.history[i.historyIndex])
		return true
	}

	i.historyIndex = -1
	i.SetValue(i.savedInput)
	i.savedInput = ""
	return true
}
