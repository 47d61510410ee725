// ABOUTME: Server-side playback session state machine
// ABOUTME: Anchors bitrate variants to one wall clock and advances the playlist
package session

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/unison-audio/unison-go/internal/config"
	"github.com/unison-audio/unison-go/internal/opusfile"
	"github.com/unison-audio/unison-go/internal/playlist"
	"github.com/unison-audio/unison-go/internal/protocol"
)

var (
	// ErrPlaylistEnded means the playlist position is past the last set
	ErrPlaylistEnded = errors.New("session: the playlist has ended")
	// ErrNoReader means no reader is loaded for the requested bitrate
	ErrNoReader = errors.New("session: no reader for bitrate")
)

// State is the persistable snapshot of a session
type State struct {
	ID        string `json:"id"`
	SetIndex  int    `json:"setIndex"`
	StartTime int64  `json:"startTime"` // unix milliseconds
	Forwarded int64  `json:"forwarded"` // milliseconds
}

// Session owns one reader per bitrate variant of the current set, all
// synchronized to a single wall-clock anchor. The play position at any
// instant is now - startTime + forwarded.
type Session struct {
	mu sync.Mutex

	playlist  *playlist.Playlist
	readers   map[playlist.Bitrate]*opusfile.Reader
	startTime time.Time
	forwarded time.Duration
	loop      bool

	readerConfig  opusfile.ReaderConfig
	watchInterval time.Duration
	advanceSettle time.Duration

	watchStop      chan struct{}
	advancePending bool
	advanceTimer   *time.Timer

	notifier *Notifier
	now      func() time.Time
}

// New creates a stopped session for a playlist
func New(pl *playlist.Playlist, cfg config.Config, loop bool) *Session {
	return &Session{
		playlist: pl,
		readers:  make(map[playlist.Bitrate]*opusfile.Reader),
		loop:     loop,
		readerConfig: opusfile.ReaderConfig{
			ChunkDuration:       cfg.ChunkDuration,
			MaxSecondsLoadAhead: cfg.MaxSecondsLoadAhead,
		},
		watchInterval: cfg.WatchInterval,
		advanceSettle: cfg.AdvanceSettle,
		notifier:      NewNotifier(),
		now:           time.Now,
	}
}

// Notifier exposes session event subscriptions
func (s *Session) Notifier() *Notifier {
	return s.notifier
}

// Playlist returns the session's playlist
func (s *Session) Playlist() *playlist.Playlist {
	return s.playlist
}

// State returns the persistable session snapshot
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.playlist.Hash(),
		SetIndex:  s.playlist.CurrentIndex(),
		StartTime: s.startTime.UnixMilli(),
		Forwarded: s.forwarded.Milliseconds(),
	}
}

// SetState applies the non-nil parts of a state update independently.
// Changing the playlist position emits a new-set notification.
func (s *Session) SetState(setIndex *int, startTime *time.Time, forwarded *time.Duration) error {
	s.mu.Lock()
	var newSet bool
	if setIndex != nil {
		if s.playlist.CurrentIndex() != *setIndex {
			newSet = true
		}
		if err := s.playlist.SetCurrent(*setIndex); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	if startTime != nil {
		s.startTime = *startTime
	}
	if forwarded != nil {
		s.forwarded = *forwarded
	}
	s.mu.Unlock()

	if newSet {
		s.notifier.Emit(EventNewSet)
	}
	return nil
}

// NextSet advances the playlist position
func (s *Session) NextSet() {
	s.mu.Lock()
	s.playlist.Advance()
	s.mu.Unlock()
	s.notifier.Emit(EventNewSet)
}

// PlayAt starts playback of the current set with the given forward offset
// and anchor. The reader collection is rebuilt and replaced wholesale so
// concurrent queries never observe a partial collection.
func (s *Session) PlayAt(forwarded time.Duration, startTime time.Time) error {
	s.mu.Lock()

	if s.playlist.CurrentIndex() >= s.playlist.Len() {
		s.mu.Unlock()
		return ErrPlaylistEnded
	}

	s.stopWatchLocked()

	s.forwarded = forwarded
	s.startTime = startTime

	readers := make(map[playlist.Bitrate]*opusfile.Reader)
	for _, af := range s.playlist.Current().AudioFiles {
		reader, err := opusfile.NewReader(af.File, s.readerConfig)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("session: load %s: %w", af.File, err)
		}
		reader.SetClock(startTime.Add(-forwarded))
		readers[af.Bitrate] = reader
	}
	s.readers = readers

	stop := make(chan struct{})
	s.watchStop = stop
	s.mu.Unlock()

	s.notifier.Emit(EventChangedState)

	go s.watchLoop(stop)
	return nil
}

// PlayAtState resumes playback from the session's saved anchor and offset
func (s *Session) PlayAtState() error {
	s.mu.Lock()
	forwarded, startTime := s.forwarded, s.startTime
	s.mu.Unlock()
	return s.PlayAt(forwarded, startTime)
}

// PlayAtForwarded plays with the saved forward offset anchored to now
func (s *Session) PlayAtForwarded() error {
	s.mu.Lock()
	forwarded := s.forwarded
	s.mu.Unlock()
	return s.PlayAt(forwarded, s.now())
}

// PlayAtStart plays the current set from the beginning
func (s *Session) PlayAtStart() error {
	return s.PlayAt(0, s.now())
}

// CurrentChunk returns the chunk at the live playhead for a bitrate
func (s *Session) CurrentChunk(bitrate playlist.Bitrate) (*protocol.AudioChunk, protocol.Status, error) {
	reader, err := s.reader(bitrate)
	if err != nil {
		return nil, 0, err
	}
	chunk, status := reader.CurrentChunk()
	return chunk, status, nil
}

// NextChunk returns the chunk starting at pageStart for a bitrate
func (s *Session) NextChunk(pageStart int, bitrate playlist.Bitrate) (*protocol.AudioChunk, protocol.Status, error) {
	reader, err := s.reader(bitrate)
	if err != nil {
		return nil, 0, err
	}
	chunk, status := reader.NextChunk(pageStart)
	return chunk, status, nil
}

func (s *Session) reader(bitrate playlist.Bitrate) (*opusfile.Reader, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reader, ok := s.readers[bitrate]
	if !ok {
		return nil, ErrNoReader
	}
	return reader, nil
}

// watchLoop ticks the completion check until playback is restarted or closed
func (s *Session) watchLoop(stop chan struct{}) {
	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.checkCompletion()
		case <-stop:
			return
		}
	}
}

// checkCompletion schedules a debounced playlist advance once the
// reference variant has exhausted its remaining time. The pending latch
// prevents a double advance from ticks during the settle window.
func (s *Session) checkCompletion() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The high quality reader is the baseline for tracking time
	reference, ok := s.readers[playlist.BitrateHigh]
	if !ok || s.advancePending {
		return
	}
	if reference.RemainingSeconds() < 0 {
		s.advancePending = true
		s.advanceTimer = time.AfterFunc(s.advanceSettle, s.advance)
	}
}

// advance moves to the next set (unless looping) and restarts playback.
// A playlist that has run out stops the watch for good, so the finished
// notification fires exactly once.
func (s *Session) advance() {
	s.mu.Lock()
	s.advancePending = false
	loop := s.loop
	s.mu.Unlock()

	if !loop {
		s.NextSet()
	}
	if err := s.PlayAtStart(); err != nil {
		s.mu.Lock()
		s.stopWatchLocked()
		s.mu.Unlock()
		log.Printf("Session advance stopped: %v", err)
		s.notifier.Emit(EventFinished)
	}
}

func (s *Session) stopWatchLocked() {
	if s.watchStop != nil {
		close(s.watchStop)
		s.watchStop = nil
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	s.advancePending = false
}

// Close stops the completion watch and any pending advance
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopWatchLocked()
}
