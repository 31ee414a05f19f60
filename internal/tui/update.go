package tui

import (
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tessro/sandexec/internal/daemon"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.spinnerFrame++
		m.procList.SetSpinnerFrame(m.spinnerFrame)
		return m, tickCmd()

	case refreshMsg:
		if m.connState != ConnectionConnected {
			return m, refreshCmd()
		}
		return m, tea.Batch(fetchProcessListCmd(m.client), refreshCmd())

	case processListMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		m.procList.SetProcesses(msg.Processes)
		m.syncSelection()
		return m, m.backfill()

	case outputMsg:
		if msg.Err != nil {
			slog.Debug("tui: output fetch failed", "handle", msg.Handle, "error", msg.Err)
			return m, nil
		}
		m.output.Seed(msg.Handle, msg.Events)
		return m, nil

	case streamStartMsg:
		m.eventChan = msg.EventChan
		m.connState = ConnectionConnected
		m.header.SetConnectionState(m.connState)
		return m, waitForEventCmd(m.eventChan)

	case streamEventMsg:
		return m.handleStreamEvent(msg)

	case reconnectMsg:
		if !msg.Success {
			slog.Debug("tui: reconnect failed", "attempt", m.reconnectCount, "error", msg.Err)
			if m.reconnectCount < m.maxReconnects {
				m.reconnectCount++
				return m, attemptReconnectCmd(m.client, m.reconnectDelay)
			}
			m.connState = ConnectionDisconnected
			m.header.SetConnectionState(m.connState)
			return m, m.setError(fmt.Errorf("daemon unreachable: %w", msg.Err))
		}
		m.reconnectCount = 0
		m.eventChan = msg.EventChan
		m.connState = ConnectionConnected
		m.header.SetConnectionState(m.connState)
		return m, tea.Batch(waitForEventCmd(m.eventChan), fetchProcessListCmd(m.client))

	case writeResultMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		return m, nil

	case stopResultMsg:
		if msg.Err != nil {
			return m, m.setError(msg.Err)
		}
		return m, nil

	case clearErrorMsg:
		m.err = nil
		m.helpBar.ClearError()
		return m, nil
	}

	return m, nil
}

func (m Model) handleStreamEvent(msg streamEventMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		slog.Debug("tui: event stream lost", "error", msg.Err)
		m.eventChan = nil
		if m.client == nil {
			return m, nil
		}
		m.connState = ConnectionReconnecting
		m.header.SetConnectionState(m.connState)
		m.reconnectCount = 1
		return m, attemptReconnectCmd(m.client, m.reconnectDelay)
	}
	if msg.Event == nil {
		return m, waitForEventCmd(m.eventChan)
	}

	ev := *msg.Event
	cmds := []tea.Cmd{waitForEventCmd(m.eventChan)}

	known := m.procList.Contains(ev.Handle)
	m.output.Append(ev)
	if ev.Type == daemon.EventExit {
		m.procList.MarkExited(ev.Handle, ev.Code)
		if m.confirmStop == ev.Handle {
			m.confirmStop = ""
		}
		if m.focus == FocusInput && m.output.Handle() == ev.Handle {
			m.setFocus(FocusOutput)
		}
	}
	if !known {
		cmds = append(cmds, fetchProcessListCmd(m.client))
	}
	m.syncSelection()

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirmStop != "" {
		handle := m.confirmStop
		switch {
		case key.Matches(msg, m.keys.Approve):
			m.confirmStop = ""
			return m, stopCmd(m.client, handle)
		case key.Matches(msg, m.keys.Reject):
			m.confirmStop = ""
		}
		return m, nil
	}

	if m.focus == FocusInput {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Tab):
		if m.focus == FocusProcessList {
			m.setFocus(FocusOutput)
		} else {
			m.setFocus(FocusProcessList)
		}

	case key.Matches(msg, m.keys.Reconnect):
		if m.connState == ConnectionDisconnected && m.client != nil {
			m.connState = ConnectionReconnecting
			m.header.SetConnectionState(m.connState)
			m.reconnectCount = 1
			return m, attemptReconnectCmd(m.client, 0)
		}

	case key.Matches(msg, m.keys.Input):
		if m.selectedRunning() != "" {
			m.setFocus(FocusInput)
		}

	case key.Matches(msg, m.keys.Stop):
		if h := m.selectedRunning(); h != "" {
			m.confirmStop = h
		}

	case key.Matches(msg, m.keys.Dismiss):
		if p := m.procList.Selected(); p != nil {
			handle := p.Handle
			if m.procList.DismissSelected() {
				m.output.Forget(handle)
				delete(m.fetched, handle)
				m.syncSelection()
				return m, m.backfill()
			}
		}

	case m.focus == FocusOutput:
		m.scrollOutput(msg)

	default:
		m.moveSelection(msg)
		return m, m.backfill()
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.inputLine.Clear()
		m.setFocus(FocusOutput)
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		handle := m.selectedRunning()
		if handle == "" || m.client == nil {
			return m, nil
		}
		text := m.inputLine.Value()
		m.inputLine.AddToHistory(text)
		m.inputLine.Clear()
		return m, writeCmd(m.client, handle, text)

	case key.Matches(msg, m.keys.HistoryUp):
		m.inputLine.HistoryUp()
		return m, nil

	case key.Matches(msg, m.keys.HistoryDown):
		m.inputLine.HistoryDown()
		return m, nil
	}

	return m, m.inputLine.Update(msg)
}

func (m *Model) moveSelection(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.procList.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.procList.MoveDown()
	case key.Matches(msg, m.keys.Top):
		m.procList.MoveToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.procList.MoveToBottom()
	default:
		return
	}
	m.syncSelection()
}

func (m *Model) scrollOutput(msg tea.KeyMsg) {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.output.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.output.ScrollDown(1)
	case key.Matches(msg, m.keys.Top):
		m.output.ScrollToTop()
	case key.Matches(msg, m.keys.Bottom):
		m.output.ScrollToBottom()
	case key.Matches(msg, m.keys.PageUp):
		m.output.PageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.output.PageDown()
	}
}
