// ABOUTME: Tests for server message handling helpers
// ABOUTME: Exercises payload decoding and set information without a socket
package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/unison-audio/unison-go/internal/config"
	"github.com/unison-audio/unison-go/internal/playlist"
	"github.com/unison-audio/unison-go/internal/protocol"
	"github.com/unison-audio/unison-go/internal/session"
)

func TestDecodePayload(t *testing.T) {
	payload := map[string]interface{}{"bitrate": float64(96), "page_start": float64(12)}

	var req protocol.FetchChunkFromPage
	if err := decodePayload(payload, &req); err != nil {
		t.Fatalf("decodePayload failed: %v", err)
	}
	if req.Bitrate != 96 || req.PageStart != 12 {
		t.Errorf("decoded payload mismatch: %+v", req)
	}
}

func TestImageMimeType(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"cover.jpg", "image/jpeg"},
		{"cover.jpeg", "image/jpeg"},
		{"cover.png", "image/png"},
		{"cover.webp", "image/webp"},
		{"cover.bmp", "application/octet-stream"},
		{"cover", "application/octet-stream"},
	}
	for _, tc := range cases {
		if got := imageMimeType(tc.path); got != tc.want {
			t.Errorf("imageMimeType(%s) = %s, want %s", tc.path, got, tc.want)
		}
	}
}

func TestSendDropsWhenBackedUp(t *testing.T) {
	s := New(Config{}, nil)
	c := &client{id: "test", sendChan: make(chan interface{}, 1)}

	s.send(c, protocol.Message{Type: protocol.TypeNewSet})
	s.send(c, protocol.Message{Type: protocol.TypeNewSet}) // dropped, must not block

	if len(c.sendChan) != 1 {
		t.Errorf("expected exactly one queued message, got %d", len(c.sendChan))
	}
}

func TestSendSetInformation(t *testing.T) {
	dir := t.TempDir()
	cover := filepath.Join(dir, "cover.png")
	if err := os.WriteFile(cover, []byte{1, 2, 3, 4}, 0o644); err != nil {
		t.Fatalf("write cover: %v", err)
	}

	pl := playlist.New([]playlist.Set{{
		Title:     "Evening Set",
		Author:    "DJ Test",
		CoverFile: cover,
	}}, "hash")
	sess := session.New(pl, config.Config{}, false)

	s := New(Config{}, sess)
	c := &client{id: "test", sendChan: make(chan interface{}, 4)}

	s.sendSetInformation(c)

	msg, ok := (<-c.sendChan).(protocol.Message)
	if !ok || msg.Type != protocol.TypeSetInformation {
		t.Fatalf("expected a set information message, got %#v", msg)
	}
	info, ok := msg.Payload.(protocol.SetInformation)
	if !ok {
		t.Fatalf("unexpected payload type %T", msg.Payload)
	}
	if info.Title != "Evening Set" || info.Author != "DJ Test" {
		t.Errorf("set information mismatch: %+v", info)
	}
	if info.CoverMime != "image/png" {
		t.Errorf("expected image/png, got %s", info.CoverMime)
	}

	frame, ok := (<-c.sendChan).([]byte)
	if !ok {
		t.Fatalf("expected a binary cover frame")
	}
	if frame[0] != protocol.FrameCoverImage || len(frame) != 5 {
		t.Errorf("unexpected cover frame: %v", frame)
	}
}

func TestSendSetInformationAfterPlaylistEnds(t *testing.T) {
	pl := playlist.New([]playlist.Set{{Title: "Final Set", Author: "DJ Test"}}, "hash")
	sess := session.New(pl, config.Config{}, false)
	pl.Advance() // cursor one past the end, as after the last advance

	s := New(Config{}, sess)
	c := &client{id: "test", sendChan: make(chan interface{}, 4)}

	s.sendSetInformation(c)

	msg := (<-c.sendChan).(protocol.Message)
	info := msg.Payload.(protocol.SetInformation)
	if info.Title != "Final Set" {
		t.Errorf("expected the last set's metadata, got %+v", info)
	}
}

func TestSendSetInformationWithoutCover(t *testing.T) {
	pl := playlist.New([]playlist.Set{{Title: "Bare Set"}}, "hash")
	sess := session.New(pl, config.Config{}, false)

	s := New(Config{}, sess)
	c := &client{id: "test", sendChan: make(chan interface{}, 4)}

	s.sendSetInformation(c)

	msg := (<-c.sendChan).(protocol.Message)
	info := msg.Payload.(protocol.SetInformation)
	if info.CoverMime != "" {
		t.Errorf("expected no cover mime, got %s", info.CoverMime)
	}

	select {
	case extra := <-c.sendChan:
		t.Errorf("unexpected extra message %#v", extra)
	default:
	}
}
