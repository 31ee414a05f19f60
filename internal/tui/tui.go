// Package tui provides the Bubbletea-based process viewer for sandexec.
package tui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tessro/sandexec/internal/daemon"
)

// Focus indicates which panel is currently focused.
type Focus int

const (
	FocusProcessList Focus = iota
	FocusOutput
	FocusInput
)

// ConnectionState represents the current IPC connection status.
type ConnectionState int

const (
	ConnectionConnected ConnectionState = iota
	ConnectionDisconnected
	ConnectionReconnecting
)

// maxListWidth caps the process list pane.
const maxListWidth = 48

// Model is the main Bubbletea model for the sandexec TUI.
type Model struct {
	width  int
	height int

	ready bool
	err   error
	focus Focus

	header    Header
	procList  ProcessList
	output    OutputView
	inputLine InputLine
	helpBar   HelpBar

	client    daemon.ViewerClient
	eventChan <-chan daemon.EventResult

	// Handles whose daemon history has been requested.
	fetched map[string]bool

	connState      ConnectionState
	reconnectDelay time.Duration
	reconnectCount int
	maxReconnects  int

	// Handle awaiting stop confirmation, or "".
	confirmStop string

	spinnerFrame int
	keys         KeyBindings
}

// New creates a TUI model backed by a connected daemon client.
func New(client daemon.ViewerClient) Model {
	return Model{
		header:         NewHeader(),
		procList:       NewProcessList(),
		output:         NewOutputView(),
		inputLine:      NewInputLine(),
		helpBar:        NewHelpBar(),
		client:         client,
		fetched:        make(map[string]bool),
		connState:      ConnectionConnected,
		reconnectDelay: 500 * time.Millisecond,
		maxReconnects:  10,
		keys:           DefaultKeyBindings(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		refreshCmd(),
		fetchProcessListCmd(m.client),
		attachToStreamCmd(m.client),
	)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	m.helpBar.SetContext(m.focus, m.confirmStop, m.canDismiss(), m.connState != ConnectionConnected)

	right := lipgloss.JoinVertical(lipgloss.Left, m.output.View(), m.inputLine.View())
	content := lipgloss.JoinHorizontal(lipgloss.Top, m.procList.View(), right)

	return fmt.Sprintf("%s\n%s\n%s", m.header.View(), content, m.helpBar.View())
}

// layout sizes every component for the current window.
func (m *Model) layout() {
	contentHeight := max(m.height-2, 3) // header and help bar
	listWidth := min(m.width/3, maxListWidth)
	outputWidth := m.width - listWidth

	m.header.SetWidth(m.width)
	m.helpBar.SetWidth(m.width)
	m.procList.SetSize(listWidth, contentHeight)
	m.output.SetSize(outputWidth, contentHeight-1)
	m.inputLine.SetWidth(outputWidth)
}

// setFocus moves focus and keeps the components in sync.
func (m *Model) setFocus(f Focus) {
	m.focus = f
	m.output.SetFocused(f == FocusOutput)
	m.inputLine.SetFocused(f == FocusInput)
}

// syncSelection points the output view at the selected process.
func (m *Model) syncSelection() {
	if p := m.procList.Selected(); p != nil {
		m.output.SetProcess(p.Handle, p.Command)
	} else {
		m.output.SetProcess("", "")
	}
	total, running := m.procList.Counts()
	m.header.SetCounts(total, running)
}

// backfill requests the daemon history of the selected process once.
func (m *Model) backfill() tea.Cmd {
	h := m.output.Handle()
	if h == "" || m.client == nil || m.fetched[h] {
		return nil
	}
	m.fetched[h] = true
	return fetchOutputCmd(m.client, h)
}

// selectedRunning returns the selected process handle if it is still running.
func (m Model) selectedRunning() string {
	p := m.procList.Selected()
	if p == nil || p.State == stateExited {
		return ""
	}
	return p.Handle
}

func (m Model) canDismiss() bool {
	p := m.procList.Selected()
	return p != nil && p.State == stateExited
}

// setError displays err and schedules it to clear.
func (m *Model) setError(err error) tea.Cmd {
	m.err = err
	m.helpBar.SetError(err.Error())
	return clearErrorCmd()
}

// Run starts the TUI with a connected daemon client.
func Run(client daemon.ViewerClient) error {
	slog.Debug("tui: starting")
	p := tea.NewProgram(New(client), tea.WithAltScreen())
	_, err := p.Run()
	slog.Debug("tui: exited", "error", err)
	return err
}
