// ABOUTME: Saved session state persistence keyed by playlist hash
// ABOUTME: Restores set index, anchor and forward offset across restarts
package session

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// StateManager saves the session snapshot on every new-set event and
// restores it on startup.
type StateManager struct {
	session *Session
	enabled bool
	dir     string
}

// NewStateManager creates a state manager writing under the temp directory
func NewStateManager(session *Session, enabled bool) (*StateManager, error) {
	dir := filepath.Join(os.TempDir(), "unison-state")
	if enabled {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("session: create state dir: %w", err)
		}
	}
	return &StateManager{session: session, enabled: enabled, dir: dir}, nil
}

func (m *StateManager) path() string {
	return filepath.Join(m.dir, "playlist_state_"+m.session.Playlist().Hash()+".json")
}

// AutoSave persists the session state whenever the playlist position changes
func (m *StateManager) AutoSave() {
	if !m.enabled {
		return
	}

	events := m.session.Notifier().Subscribe()
	go func() {
		for event := range events {
			if event == EventNewSet || event == EventFinished {
				if err := m.Save(); err != nil {
					log.Printf("State save failed: %v", err)
				}
			}
		}
	}()
}

// Load restores a previously saved state, reporting whether one was found
func (m *StateManager) Load() bool {
	if !m.enabled {
		return false
	}

	data, err := os.ReadFile(m.path())
	if err != nil {
		return false
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		log.Printf("State file unreadable: %v", err)
		return false
	}

	log.Printf("Loaded session state: set=%d startTime=%d forwarded=%d",
		state.SetIndex, state.StartTime, state.Forwarded)

	startTime := millisToTime(state.StartTime)
	forwarded := millisToDuration(state.Forwarded)
	if err := m.session.SetState(&state.SetIndex, &startTime, &forwarded); err != nil {
		log.Printf("Saved state not applicable: %v", err)
		return false
	}
	return true
}

// Save writes the current session snapshot
func (m *StateManager) Save() error {
	if !m.enabled {
		return nil
	}

	state := m.session.State()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("session: marshal state: %w", err)
	}

	if err := os.WriteFile(m.path(), data, 0o644); err != nil {
		return fmt.Errorf("session: write state: %w", err)
	}
	log.Printf("Saved session state: set=%d", state.SetIndex)
	return nil
}

func millisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func millisToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
