// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the listener UI
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Controls carries user intent from the TUI back to the player
type Controls struct {
	VolumeChanges chan int
	MuteToggles   chan struct{}
	Quit          chan struct{}
}

// NewControls creates a control channel set
func NewControls() *Controls {
	return &Controls{
		VolumeChanges: make(chan int, 10),
		MuteToggles:   make(chan struct{}, 4),
		Quit:          make(chan struct{}, 1),
	}
}

// NewModel creates a new TUI model
func NewModel(controls *Controls) Model {
	return Model{
		volume:   100,
		controls: controls,
	}
}

// Run starts the TUI
func Run(controls *Controls) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(controls), tea.WithAltScreen())
	return p, nil
}
