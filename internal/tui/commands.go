package tui

import (
	"fmt"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tessro/sandexec/internal/daemon"
)

// refreshInterval is how often the process list is re-fetched.
const refreshInterval = 2 * time.Second

// tickCmd returns a command that sends a tick message after a delay.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// refreshCmd schedules the next process list refresh.
func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

// clearErrorCmd returns a command that clears the error after a delay.
func clearErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(t time.Time) tea.Msg {
		return clearErrorMsg{}
	})
}

// attachToStreamCmd opens the event stream on its own connection.
func attachToStreamCmd(client daemon.ViewerClient) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		eventChan, err := client.StreamEvents(nil)
		if err != nil {
			return streamEventMsg{Err: err}
		}
		return streamStartMsg{EventChan: eventChan}
	}
}

// waitForEventCmd returns a command that waits for the next event from a channel.
func waitForEventCmd(eventChan <-chan daemon.EventResult) tea.Cmd {
	if eventChan == nil {
		return nil
	}
	return func() tea.Msg {
		result, ok := <-eventChan
		if !ok {
			return streamEventMsg{Err: fmt.Errorf("event stream closed")}
		}
		return streamEventMsg{Event: result.Event, Err: result.Err}
	}
}

// fetchProcessListCmd retrieves the tracked processes.
func fetchProcessListCmd(client daemon.ViewerClient) tea.Cmd {
	return func() tea.Msg {
		if client == nil {
			return nil
		}
		resp, err := client.List()
		if err != nil {
			slog.Debug("tui: list failed", "error", err)
			return processListMsg{Err: err}
		}
		return processListMsg{Processes: resp.Processes}
	}
}

// fetchOutputCmd retrieves the recorded output of one process.
func fetchOutputCmd(client daemon.ViewerClient, handle string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Output(handle, maxBufferedLines)
		if err != nil {
			return outputMsg{Handle: handle, Err: err}
		}
		return outputMsg{Handle: handle, Events: resp.Events}
	}
}

// writeCmd sends one line to a process's stdin.
func writeCmd(client daemon.ViewerClient, handle, text string) tea.Cmd {
	return func() tea.Msg {
		return writeResultMsg{Handle: handle, Err: client.Write(handle, text)}
	}
}

// stopCmd kills a process.
func stopCmd(client daemon.ViewerClient, handle string) tea.Cmd {
	return func() tea.Msg {
		return stopResultMsg{Handle: handle, Err: client.Stop(handle)}
	}
}

// attemptReconnectCmd reconnects to the daemon after delay.
func attemptReconnectCmd(client daemon.ViewerClient, delay time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(delay)

		if !client.IsConnected() {
			if err := client.Connect(); err != nil {
				return reconnectMsg{Err: err}
			}
		}

		eventChan, err := client.StreamEvents(nil)
		if err != nil {
			return reconnectMsg{Err: err}
		}
		return reconnectMsg{Success: true, EventChan: eventChan}
	}
}
