// ABOUTME: Tests for playlist loading and traversal
// ABOUTME: Builds playlist and set descriptor files in a temp directory
package playlist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadResolvesPaths(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "set1.json", `{
		"Title": "Morning Set",
		"Author": "DJ Test",
		"CoverFile": "covers/morning.jpg",
		"AudioFiles": [
			{"Bitrate": 128, "File": "audio/morning-128.opus"},
			{"Bitrate": 64, "File": "audio/morning-64.opus"}
		]
	}`)
	path := writeFile(t, dir, "playlist.json", `{"Sets": ["set1.json"]}`)

	pl, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if pl.Len() != 1 {
		t.Fatalf("expected 1 set, got %d", pl.Len())
	}
	if pl.Hash() == "" {
		t.Errorf("expected a non-empty playlist hash")
	}

	set := pl.Current()
	if set.Title != "Morning Set" || set.Author != "DJ Test" {
		t.Errorf("set metadata mismatch: %+v", set)
	}
	if set.CoverFile != filepath.Join(dir, "covers/morning.jpg") {
		t.Errorf("cover path not resolved: %s", set.CoverFile)
	}
	if len(set.AudioFiles) != 2 {
		t.Fatalf("expected 2 audio files, got %d", len(set.AudioFiles))
	}
	if set.AudioFiles[0].Bitrate != BitrateHigh {
		t.Errorf("expected high bitrate, got %d", set.AudioFiles[0].Bitrate)
	}
	if set.AudioFiles[0].File != filepath.Join(dir, "audio/morning-128.opus") {
		t.Errorf("audio path not resolved: %s", set.AudioFiles[0].File)
	}
}

func TestLoadRejectsEmptyPlaylist(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "playlist.json", `{"Sets": []}`)

	if _, err := Load(path); err == nil {
		t.Errorf("expected an error for an empty playlist")
	}
}

func TestLoadRejectsMissingSet(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "playlist.json", `{"Sets": ["missing.json"]}`)

	if _, err := Load(path); err == nil {
		t.Errorf("expected an error for a missing set descriptor")
	}
}

func TestTraversal(t *testing.T) {
	pl := New([]Set{{Title: "a"}, {Title: "b"}}, "hash")

	if pl.CurrentIndex() != 0 {
		t.Errorf("expected start at index 0, got %d", pl.CurrentIndex())
	}

	if err := pl.SetCurrent(1); err != nil {
		t.Fatalf("SetCurrent(1) failed: %v", err)
	}
	if pl.Current().Title != "b" {
		t.Errorf("expected set b, got %s", pl.Current().Title)
	}

	if err := pl.SetCurrent(2); err == nil {
		t.Errorf("expected an error for an out-of-bounds index")
	}
	if err := pl.SetCurrent(-1); err == nil {
		t.Errorf("expected an error for a negative index")
	}

	// Advance may run one past the end, playback treats that as ended
	pl.Advance()
	if pl.CurrentIndex() != 2 {
		t.Errorf("expected index 2 after advance, got %d", pl.CurrentIndex())
	}
}

func TestCurrentAfterPlaylistEnds(t *testing.T) {
	pl := New([]Set{{Title: "a"}, {Title: "b"}}, "hash")

	if err := pl.SetCurrent(1); err != nil {
		t.Fatalf("SetCurrent(1) failed: %v", err)
	}
	pl.Advance()
	pl.Advance()

	// The cursor is past the end but the last set stays queryable
	if got := pl.Current().Title; got != "b" {
		t.Errorf("expected the last set after the end, got %q", got)
	}
}
