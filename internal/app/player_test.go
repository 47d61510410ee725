// ABOUTME: Tests for player orchestration
// ABOUTME: Covers construction and stats before any device is opened
package app

import (
	"testing"

	"github.com/unison-audio/unison-go/internal/config"
)

func TestNewPlayer(t *testing.T) {
	p := New(Config{ServerAddr: "localhost:8930", Bitrate: 96}, config.Load())
	if p == nil {
		t.Fatal("expected player to be created")
	}
	defer p.Stop()

	stats := p.Stats()
	if stats.Connected {
		t.Errorf("a fresh player must not report connected")
	}
	if stats.Volume != 100 {
		t.Errorf("expected default volume 100, got %d", stats.Volume)
	}
	if stats.Bitrate != 96 {
		t.Errorf("expected bitrate 96, got %d", stats.Bitrate)
	}
}

func TestVolumeControls(t *testing.T) {
	p := New(Config{}, config.Load())
	defer p.Stop()

	p.SetVolume(40)
	if got := p.Stats().Volume; got != 40 {
		t.Errorf("expected volume 40, got %d", got)
	}

	p.ToggleMute()
	if !p.Stats().Muted {
		t.Errorf("expected muted after toggle")
	}
	p.ToggleMute()
	if p.Stats().Muted {
		t.Errorf("expected unmuted after second toggle")
	}
}
