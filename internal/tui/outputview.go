package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/tessro/sandexec/internal/daemon"
)

// maxBufferedLines caps the output kept per process.
const maxBufferedLines = 1000

// OutputView shows the buffered output of the selected process. Events for
// every process are buffered so switching selection shows history.
type OutputView struct {
	buffers  map[string][]daemon.StreamEvent
	width    int
	height   int
	focused  bool
	handle   string
	command  string
	viewport viewport.Model
	ready    bool
}

// NewOutputView creates a new output view component.
func NewOutputView() OutputView {
	return OutputView{buffers: make(map[string][]daemon.StreamEvent)}
}

// SetSize updates the component dimensions.
func (v *OutputView) SetSize(width, height int) {
	v.width = width
	v.height = height

	// Border takes two columns and two rows, the header one more row.
	contentWidth := max(width-2, 1)
	contentHeight := max(height-3, 1)

	if !v.ready {
		v.viewport = viewport.New(contentWidth, contentHeight)
		v.ready = true
	} else {
		v.viewport.Width = contentWidth
		v.viewport.Height = contentHeight
	}
	v.updateContent()
}

// SetFocused sets the focus state.
func (v *OutputView) SetFocused(focused bool) {
	v.focused = focused
}

// SetProcess switches the view to handle.
func (v *OutputView) SetProcess(handle, command string) {
	if v.handle == handle {
		v.command = command
		return
	}
	v.handle = handle
	v.command = command
	v.updateContent()
	v.viewport.GotoBottom()
}

// Handle returns the handle currently shown.
func (v *OutputView) Handle() string {
	return v.handle
}

// Append buffers an event and refreshes the view if it belongs to the
// shown process.
func (v *OutputView) Append(ev daemon.StreamEvent) {
	buf := append(v.buffers[ev.Handle], ev)
	if len(buf) > maxBufferedLines {
		buf = buf[len(buf)-maxBufferedLines:]
	}
	v.buffers[ev.Handle] = buf

	if ev.Handle != v.handle {
		return
	}
	follow := v.viewport.AtBottom()
	v.updateContent()
	if follow {
		v.viewport.GotoBottom()
	}
}

// Seed merges daemon history for handle into its buffer. Buffered live
// events newer than the last history entry are kept after it.
func (v *OutputView) Seed(handle string, history []daemon.StreamEvent) {
	if len(history) == 0 {
		return
	}
	last := history[len(history)-1].At
	merged := append([]daemon.StreamEvent(nil), history...)
	for _, ev := range v.buffers[handle] {
		if ev.At.After(last) {
			merged = append(merged, ev)
		}
	}
	if len(merged) > maxBufferedLines {
		merged = merged[len(merged)-maxBufferedLines:]
	}
	v.buffers[handle] = merged

	if handle == v.handle {
		v.updateContent()
		v.viewport.GotoBottom()
	}
}

// Forget drops the buffer for handle.
func (v *OutputView) Forget(handle string) {
	delete(v.buffers, handle)
	if handle == v.handle {
		v.updateContent()
	}
}

// Lines returns the buffered event count for handle.
func (v *OutputView) Lines(handle string) int {
	return len(v.buffers[handle])
}

// ScrollUp scrolls the viewport up.
func (v *OutputView) ScrollUp(n int) {
	v.viewport.LineUp(n)
}

// ScrollDown scrolls the viewport down.
func (v *OutputView) ScrollDown(n int) {
	v.viewport.LineDown(n)
}

// ScrollToTop scrolls to the top.
func (v *OutputView) ScrollToTop() {
	v.viewport.GotoTop()
}

// ScrollToBottom scrolls to the bottom.
func (v *OutputView) ScrollToBottom() {
	v.viewport.GotoBottom()
}

// PageUp scrolls up by one page.
func (v *OutputView) PageUp() {
	v.viewport.ViewUp()
}

// PageDown scrolls down by one page.
func (v *OutputView) PageDown() {
	v.viewport.ViewDown()
}

func (v *OutputView) updateContent() {
	if !v.ready {
		return
	}
	events := v.buffers[v.handle]
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, v.renderEvent(ev))
	}
	v.viewport.SetContent(strings.Join(lines, "\n"))
}

func (v *OutputView) renderEvent(ev daemon.StreamEvent) string {
	width := max(v.viewport.Width, 1)
	switch ev.Type {
	case daemon.EventStdout:
		return wordwrap.String(ev.Line, width)
	case daemon.EventStderr:
		return outputStderrStyle.Render(wordwrap.String(ev.Line, width))
	case daemon.EventExit:
		return outputExitStyle.Render(fmt.Sprintf("[exited with code %d]", ev.Code))
	default:
		return outputErrorStyle.Render(wordwrap.String("[error] "+ev.Reason, width))
	}
}

// View renders the output pane.
func (v OutputView) View() string {
	if v.handle == "" {
		return outputEmptyStyle.Width(v.width).Height(v.height).Render("Select a process to view output")
	}

	headerText := lipgloss.JoinHorizontal(lipgloss.Center,
		outputHeaderHandleStyle.Render(shortHandle(v.handle)),
		" ",
		outputHeaderCommandStyle.Render(truncate(v.command, max(v.width-16, 0))),
	)
	header := outputHeaderStyle.Width(v.width - 2).Render(headerText)
	if v.focused {
		header = outputHeaderFocusedStyle.Width(v.width - 2).Render(headerText)
	}

	var content string
	if len(v.buffers[v.handle]) == 0 {
		content = outputEmptyStyle.Width(v.width - 2).Height(v.height - 3).Render("Waiting for output...")
	} else {
		content = v.viewport.View()
	}

	inner := lipgloss.JoinVertical(lipgloss.Left, header, content)

	border := outputBorderStyle
	if v.focused {
		border = outputFocusedBorderStyle
	}
	return border.Width(v.width - 2).Height(v.height - 2).Render(inner)
}
