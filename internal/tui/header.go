package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header displays the sandexec TUI header with branding and process counts.
type Header struct {
	width int

	total   int
	running int

	connState ConnectionState
}

// NewHeader creates a new header component.
func NewHeader() Header {
	return Header{connState: ConnectionConnected}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetCounts updates the process statistics.
func (h *Header) SetCounts(total, running int) {
	h.total = total
	h.running = running
}

// SetConnectionState updates the connection state display.
func (h *Header) SetConnectionState(state ConnectionState) {
	h.connState = state
}

// View renders the header.
func (h Header) View() string {
	brand := headerBrandStyle.Render("🐚 sandexec")

	var connStatus string
	switch h.connState {
	case ConnectionDisconnected:
		connStatus = headerConnDisconnectedStyle.Render(" ● disconnected")
	case ConnectionReconnecting:
		connStatus = headerConnReconnectingStyle.Render(" ◌ reconnecting...")
	}

	var parts []string
	if h.total > 0 && h.connState == ConnectionConnected {
		parts = append(parts, fmt.Sprintf("%d/%d running", h.running, h.total))
	}
	var stats string
	if len(parts) > 0 {
		stats = headerStatsStyle.Render(strings.Join(parts, "  •  "))
	}

	spacerWidth := h.width - lipgloss.Width(brand) - lipgloss.Width(connStatus) - lipgloss.Width(stats)
	if spacerWidth < 0 {
		spacerWidth = 0
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	content := lipgloss.JoinHorizontal(lipgloss.Top, brand, connStatus, spacer, stats)
	return headerContainerStyle.Width(h.width).Render(content)
}
