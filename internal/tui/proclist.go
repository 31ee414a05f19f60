package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/sandexec/internal/daemon"
)

// Spinner frames for running processes.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// stateExited marks a process whose exit event this viewer has seen.
const stateExited = "exited"

// ProcessList displays a navigable list of processes with status indicators.
// Processes the daemon has already released stay listed, with their exit
// code, until dismissed.
type ProcessList struct {
	width        int
	height       int
	procs        []daemon.ProcessInfo
	exits        map[string]int
	selected     int
	spinnerFrame int
}

// NewProcessList creates a new process list component.
func NewProcessList() ProcessList {
	return ProcessList{exits: make(map[string]int)}
}

// SetSize updates the component dimensions.
func (l *ProcessList) SetSize(width, height int) {
	l.width = width
	l.height = height
}

// SetProcesses replaces the list with the daemon's view, keeping exited
// entries the daemon no longer tracks.
func (l *ProcessList) SetProcesses(procs []daemon.ProcessInfo) {
	selected := l.SelectedHandle()

	seen := make(map[string]bool, len(procs))
	merged := make([]daemon.ProcessInfo, 0, len(procs)+len(l.exits))
	for _, p := range procs {
		if _, ok := l.exits[p.Handle]; ok {
			p.State = stateExited
		}
		seen[p.Handle] = true
		merged = append(merged, p)
	}
	for _, p := range l.procs {
		if _, ok := l.exits[p.Handle]; ok && !seen[p.Handle] {
			merged = append(merged, p)
		}
	}
	l.procs = merged

	l.selected = 0
	for i, p := range l.procs {
		if p.Handle == selected {
			l.selected = i
			break
		}
	}
}

// Contains reports whether handle is listed.
func (l *ProcessList) Contains(handle string) bool {
	for _, p := range l.procs {
		if p.Handle == handle {
			return true
		}
	}
	return false
}

// MarkExited records the exit code for handle.
func (l *ProcessList) MarkExited(handle string, code int) {
	l.exits[handle] = code
	for i := range l.procs {
		if l.procs[i].Handle == handle {
			l.procs[i].State = stateExited
		}
	}
}

// ExitCode returns the recorded exit code for handle.
func (l *ProcessList) ExitCode(handle string) (int, bool) {
	code, ok := l.exits[handle]
	return code, ok
}

// DismissSelected removes the selected entry if it has exited.
// Returns true if an entry was removed.
func (l *ProcessList) DismissSelected() bool {
	p := l.Selected()
	if p == nil || p.State != stateExited {
		return false
	}
	handle := p.Handle
	delete(l.exits, handle)
	l.procs = append(l.procs[:l.selected], l.procs[l.selected+1:]...)
	if l.selected >= len(l.procs) && l.selected > 0 {
		l.selected--
	}
	return true
}

// Processes returns the listed processes.
func (l *ProcessList) Processes() []daemon.ProcessInfo {
	return l.procs
}

// Counts returns the number of listed and running processes.
func (l *ProcessList) Counts() (total, running int) {
	for _, p := range l.procs {
		if p.State != stateExited {
			running++
		}
	}
	return len(l.procs), running
}

// Selected returns the currently selected process, or nil if none.
func (l *ProcessList) Selected() *daemon.ProcessInfo {
	if len(l.procs) == 0 || l.selected < 0 || l.selected >= len(l.procs) {
		return nil
	}
	return &l.procs[l.selected]
}

// SelectedHandle returns the handle of the selected process, or "".
func (l *ProcessList) SelectedHandle() string {
	if p := l.Selected(); p != nil {
		return p.Handle
	}
	return ""
}

// MoveUp moves selection up one item.
func (l *ProcessList) MoveUp() {
	if l.selected > 0 {
		l.selected--
	}
}

// MoveDown moves selection down one item.
func (l *ProcessList) MoveDown() {
	if l.selected < len(l.procs)-1 {
		l.selected++
	}
}

// MoveToTop moves selection to the first item.
func (l *ProcessList) MoveToTop() {
	l.selected = 0
}

// MoveToBottom moves selection to the last item.
func (l *ProcessList) MoveToBottom() {
	if len(l.procs) > 0 {
		l.selected = len(l.procs) - 1
	}
}

// SetSpinnerFrame updates the current spinner animation frame.
func (l *ProcessList) SetSpinnerFrame(frame int) {
	l.spinnerFrame = frame
}

// View renders the process list.
func (l ProcessList) View() string {
	if len(l.procs) == 0 {
		return procListEmptyStyle.Width(l.width).Height(l.height).Render("No processes")
	}

	rows := make([]string, 0, len(l.procs))
	for i, p := range l.procs {
		rows = append(rows, l.renderProcess(i, p))
	}
	return lipgloss.NewStyle().Width(l.width).Height(l.height).Render(strings.Join(rows, "\n"))
}

func (l ProcessList) renderProcess(index int, p daemon.ProcessInfo) string {
	icon := l.stateStyle(p).Render(l.stateIcon(p))
	handle := procHandleStyle.Render(shortHandle(p.Handle))

	right := procAgeStyle.Render(formatDuration(time.Since(p.LaunchedAt).Truncate(time.Second)))
	if code, ok := l.exits[p.Handle]; ok {
		right = procAgeStyle.Render(fmt.Sprintf("exit %d", code))
	}

	left := lipgloss.JoinHorizontal(lipgloss.Center, icon, " ", handle, " ")
	room := l.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	command := procCommandStyle.Render(truncate(p.Command, max(room, 0)))
	left += command

	spacerWidth := l.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	row := left + strings.Repeat(" ", spacerWidth) + right

	if index == l.selected {
		return procRowSelectedStyle.Width(l.width).Render(row)
	}
	return procRowStyle.Width(l.width).Render(row)
}

func (l ProcessList) stateIcon(p daemon.ProcessInfo) string {
	switch p.State {
	case stateExited:
		if l.exits[p.Handle] == 0 {
			return "✓"
		}
		return "✗"
	case "running":
		return spinnerFrames[l.spinnerFrame%len(spinnerFrames)]
	default:
		return "○"
	}
}

func (l ProcessList) stateStyle(p daemon.ProcessInfo) lipgloss.Style {
	switch p.State {
	case stateExited:
		if l.exits[p.Handle] == 0 {
			return lipgloss.NewStyle().Foreground(secondaryColor)
		}
		return lipgloss.NewStyle().Foreground(errorColor)
	case "running":
		return lipgloss.NewStyle().Foreground(secondaryColor)
	default:
		return lipgloss.NewStyle().Foreground(mutedColor)
	}
}
