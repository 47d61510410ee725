// ABOUTME: Bubbletea model for the listener TUI
// ABOUTME: Defines application state, update logic and box rendering
package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverAddr string

	// Set metadata
	title  string
	author string

	// Playback
	position float64
	duration float64
	buffered float64
	delay    float64
	bitrate  int

	volume int
	muted  bool

	controls *Controls

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state from the player
type StatusMsg struct {
	Connected  bool
	ServerAddr string
	Title      string
	Author     string
	Position   float64
	Duration   float64
	Buffered   float64
	Delay      float64
	Bitrate    int
	Volume     int
	Muted      bool
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderSetInfo()
	s += m.renderPlayback()
	s += m.renderHelp()

	return s
}

// renderHeader renders connection status
func (m Model) renderHeader() string {
	connStatus := "Disconnected"
	if m.connected {
		connStatus = fmt.Sprintf("Connected to %s", truncate(m.serverAddr, 32))
	}

	return fmt.Sprintf(`┌─ Unison Player ──────────────────────────────────────┐
│ Status: %-45s │
├──────────────────────────────────────────────────────┤
`, connStatus)
}

// renderSetInfo renders current set metadata
func (m Model) renderSetInfo() string {
	if !m.connected {
		return "│ No stream                                            │\n"
	}

	s := "│ Now Playing:                                         │\n"
	if m.title != "" {
		s += fmt.Sprintf("│   Title:  %-42s │\n", truncate(m.title, 42))
		s += fmt.Sprintf("│   Author: %-42s │\n", truncate(m.author, 42))
	} else {
		s += "│   (No metadata)                                      │\n"
	}

	return s
}

// renderPlayback renders the playhead, buffer and volume state
func (m Model) renderPlayback() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}

	volumeBar := renderBar(m.volume, 100, 10)

	return fmt.Sprintf("│                                                      │\n"+
		"│ Position: %s / %s%-26s │\n"+
		"│ Buffered: %5.1fs   Drift correction: %+6.2fs%-8s │\n"+
		"│ Bitrate:  %dk%-39s │\n"+
		"│ Volume: [%s] %3d%%%s%-16s │\n",
		formatTime(m.position), formatTime(m.duration), "",
		m.buffered, m.delay, "",
		m.bitrate, "",
		volumeBar, m.volume, muteIcon, "")
}

// renderHelp renders keyboard shortcuts
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ ↑/↓:Volume  m:Mute  q:Quit                           │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.controls != nil {
			select {
			case m.controls.Quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume += 5
		if m.volume > 100 {
			m.volume = 100
		}
		m.sendVolume()
	case "down":
		m.volume -= 5
		if m.volume < 0 {
			m.volume = 0
		}
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		if m.controls != nil {
			select {
			case m.controls.MuteToggles <- struct{}{}:
			default:
			}
		}
	}

	return m, nil
}

func (m Model) sendVolume() {
	if m.controls == nil {
		return
	}
	select {
	case m.controls.VolumeChanges <- m.volume:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	m.connected = msg.Connected
	if msg.ServerAddr != "" {
		m.serverAddr = msg.ServerAddr
	}
	if msg.Title != "" {
		m.title = msg.Title
		m.author = msg.Author
	}
	m.position = msg.Position
	m.duration = msg.Duration
	m.buffered = msg.Buffered
	m.delay = msg.Delay
	m.bitrate = msg.Bitrate
	m.volume = msg.Volume
	m.muted = msg.Muted
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := (value * width) / max
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
