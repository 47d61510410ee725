// ABOUTME: Local clock model for a listening client
// ABOUTME: Tracks the playback anchor, scheduled audio and the resync delay term
package stream

import "sync"

// TimeKeeper models the client's notion of the shared playhead. The play
// position is now - startedAt + startPosition + delay, where delay is the
// single correction term and is only ever set by a resync exchange.
type TimeKeeper struct {
	mu sync.Mutex

	now func() float64 // renderer clock, seconds

	startedAt          float64
	totalTimeScheduled float64
	totalDuration      float64
	startPosition      float64
	delay              float64
}

// NewTimeKeeper creates a time keeper reading the given renderer clock
func NewTimeKeeper(now func() float64) *TimeKeeper {
	return &TimeKeeper{now: now}
}

// Reset clears all counters back to a fresh session
func (tk *TimeKeeper) Reset() {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.startedAt = 0
	tk.totalTimeScheduled = 0
	tk.totalDuration = 0
	tk.startPosition = 0
	tk.delay = 0
}

// CurrentPlayPosition returns the computed play position in seconds
func (tk *TimeKeeper) CurrentPlayPosition() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.now() - tk.startedAt + tk.startPosition + tk.delay
}

// CurrentTime returns the raw renderer clock
func (tk *TimeKeeper) CurrentTime() float64 {
	return tk.now()
}

// DownloadedAudioDuration returns how many seconds of audio are scheduled
// beyond the current renderer position
func (tk *TimeKeeper) DownloadedAudioDuration() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.totalTimeScheduled - (tk.now() - tk.startedAt)
}

// RemainingAudio returns seconds of content left in the current file
func (tk *TimeKeeper) RemainingAudio() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.totalDuration - (tk.now() - tk.startedAt + tk.startPosition + tk.delay)
}

// AddTotalTimeScheduled accounts for audio handed to the renderer
func (tk *TimeKeeper) AddTotalTimeScheduled(duration float64) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.totalTimeScheduled += duration
}

// SetDelay sets the drift correction term
func (tk *TimeKeeper) SetDelay(delay float64) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.delay = delay
}

// Delay returns the drift correction term
func (tk *TimeKeeper) Delay() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.delay
}

// SetStartedAt sets the local playback anchor
func (tk *TimeKeeper) SetStartedAt(startedAt float64) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.startedAt = startedAt
}

// StartedAt returns the local playback anchor
func (tk *TimeKeeper) StartedAt() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.startedAt
}

// SetStartPosition sets the server-reported offset within the file
func (tk *TimeKeeper) SetStartPosition(startPosition float64) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.startPosition = startPosition
}

// SetTotalDuration records the file's total duration
func (tk *TimeKeeper) SetTotalDuration(totalDuration float64) {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	tk.totalDuration = totalDuration
}

// TotalDuration returns the file's total duration
func (tk *TimeKeeper) TotalDuration() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.totalDuration
}

// TotalTimeScheduled returns the accumulated scheduled audio duration
func (tk *TimeKeeper) TotalTimeScheduled() float64 {
	tk.mu.Lock()
	defer tk.mu.Unlock()
	return tk.totalTimeScheduled
}
