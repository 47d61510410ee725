// ABOUTME: Tests for the TUI model
// ABOUTME: Covers status updates, key handling and rendering helpers
package ui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestApplyStatus(t *testing.T) {
	m := NewModel(nil)

	updated, _ := m.Update(StatusMsg{
		Connected:  true,
		ServerAddr: "10.0.0.5:8930",
		Title:      "Morning Set",
		Author:     "DJ Test",
		Position:   61.5,
		Duration:   3600,
		Buffered:   8.2,
		Volume:     80,
		Bitrate:    128,
	})
	m = updated.(Model)

	if !m.connected {
		t.Errorf("expected connected state")
	}
	if m.title != "Morning Set" || m.author != "DJ Test" {
		t.Errorf("metadata not applied: %s / %s", m.title, m.author)
	}
	if m.volume != 80 {
		t.Errorf("expected volume 80, got %d", m.volume)
	}
}

func TestViewRendersAfterResize(t *testing.T) {
	m := NewModel(nil)

	if got := m.View(); got != "Loading..." {
		t.Errorf("expected loading placeholder before sizing, got %q", got)
	}

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(Model)
	updated, _ = m.Update(StatusMsg{Connected: true, Title: "Morning Set", Volume: 100})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "Unison Player") {
		t.Errorf("expected the header in the view")
	}
	if !strings.Contains(view, "Morning Set") {
		t.Errorf("expected the set title in the view")
	}
}

func TestVolumeKeys(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)
	m.volume = 97

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = updated.(Model)
	if m.volume != 100 {
		t.Errorf("expected volume clamped at 100, got %d", m.volume)
	}

	select {
	case v := <-controls.VolumeChanges:
		if v != 100 {
			t.Errorf("expected volume change 100, got %d", v)
		}
	default:
		t.Errorf("expected a volume change on the control channel")
	}

	m.volume = 3
	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	if m.volume != 0 {
		t.Errorf("expected volume clamped at 0, got %d", m.volume)
	}
}

func TestMuteKey(t *testing.T) {
	controls := NewControls()
	m := NewModel(controls)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'m'}})
	m = updated.(Model)

	if !m.muted {
		t.Errorf("expected muted after pressing m")
	}
	select {
	case <-controls.MuteToggles:
	default:
		t.Errorf("expected a mute toggle on the control channel")
	}
}

func TestFormatTime(t *testing.T) {
	cases := []struct {
		seconds float64
		want    string
	}{
		{0, "0:00"},
		{61.5, "1:01"},
		{3600, "1:00:00"},
		{3725, "1:02:05"},
		{-5, "0:00"},
	}
	for _, tc := range cases {
		if got := formatTime(tc.seconds); got != tc.want {
			t.Errorf("formatTime(%v) = %s, want %s", tc.seconds, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected untouched string, got %s", got)
	}
	if got := truncate("a very long set title indeed", 10); got != "a very ..." {
		t.Errorf("unexpected truncation: %s", got)
	}
}
