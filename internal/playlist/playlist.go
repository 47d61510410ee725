// ABOUTME: Playlist loading and traversal for the broadcast server
// ABOUTME: A playlist file lists per-set JSON descriptors with bitrate variants
package playlist

import (
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Bitrate identifies one encoded variant of a set, in kbit/s
type Bitrate int

const (
	BitrateHigh   Bitrate = 128
	BitrateMedium Bitrate = 96
	BitrateLow    Bitrate = 64
)

// AudioFile is one bitrate variant of a set's audio
type AudioFile struct {
	Bitrate Bitrate
	File    string
}

// Set is one playlist entry
type Set struct {
	Title      string
	Author     string
	CoverFile  string
	AudioFiles []AudioFile
}

// Playlist holds the ordered sets and the current position
type Playlist struct {
	sets    []Set
	current int
	hash    string
}

type playlistFile struct {
	Sets []string
}

// Load reads a playlist file and every set descriptor it references.
// Relative paths inside the descriptors resolve against the playlist
// file's directory.
func Load(path string) (*Playlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("playlist: read %s: %w", path, err)
	}

	var pf playlistFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("playlist: parse %s: %w", path, err)
	}
	if len(pf.Sets) == 0 {
		return nil, errors.New("playlist: the playlist is empty")
	}

	dir := filepath.Dir(path)

	sets := make([]Set, 0, len(pf.Sets))
	for _, setFile := range pf.Sets {
		setData, err := os.ReadFile(filepath.Join(dir, setFile))
		if err != nil {
			return nil, fmt.Errorf("playlist: read set %s: %w", setFile, err)
		}

		var set Set
		if err := json.Unmarshal(setData, &set); err != nil {
			return nil, fmt.Errorf("playlist: parse set %s: %w", setFile, err)
		}

		if set.CoverFile != "" {
			set.CoverFile = filepath.Join(dir, set.CoverFile)
		}
		for i := range set.AudioFiles {
			set.AudioFiles[i].File = filepath.Join(dir, set.AudioFiles[i].File)
		}
		sets = append(sets, set)
	}

	return New(sets, fmt.Sprintf("%x", md5.Sum(data))), nil
}

// New builds a playlist from already-resolved sets
func New(sets []Set, hash string) *Playlist {
	return &Playlist{sets: sets, hash: hash}
}

// Current returns the active set. Once the cursor has run past the end
// the last set stays current, so metadata queries remain answerable
// after playback finishes.
func (p *Playlist) Current() Set {
	if p.current >= len(p.sets) {
		return p.sets[len(p.sets)-1]
	}
	return p.sets[p.current]
}

// CurrentIndex returns the active set's position
func (p *Playlist) CurrentIndex() int {
	return p.current
}

// SetCurrent moves the active position, rejecting out-of-bounds indexes
func (p *Playlist) SetCurrent(index int) error {
	if index < 0 || index >= len(p.sets) {
		return fmt.Errorf("playlist: index %d out of bounds", index)
	}
	p.current = index
	return nil
}

// Advance moves to the next set. The position may run one past the end,
// which playback treats as "playlist ended".
func (p *Playlist) Advance() {
	p.current++
}

// Len returns the number of sets
func (p *Playlist) Len() int {
	return len(p.sets)
}

// Hash returns the content id of the playlist file
func (p *Playlist) Hash() string {
	return p.hash
}
