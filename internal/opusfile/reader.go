// ABOUTME: Time-addressable reader over one indexed Opus file
// ABOUTME: Answers "what bytes correspond to time T / page P" for one bitrate
package opusfile

import (
	"fmt"
	"os"
	"time"

	"github.com/unison-audio/unison-go/internal/protocol"
)

// ReaderConfig carries the chunking limits a reader enforces
type ReaderConfig struct {
	// ChunkDuration is the minimum seconds of audio per served chunk
	ChunkDuration float64
	// MaxSecondsLoadAhead caps how far a page request may precede the
	// live playhead before it is rejected
	MaxSecondsLoadAhead float64
}

// Reader wraps one indexed file and a clock anchor. All time queries are
// answered against elapsed time on that anchor.
type Reader struct {
	splitter  *Splitter
	positions []uint64 // audio page granules, for binary search
	startTime time.Time
	config    ReaderConfig

	minPagesForChunk int
	totalDuration    float64

	now func() time.Time
}

// NewReader loads and indexes the file at path
func NewReader(path string, config ReaderConfig) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opusfile: read %s: %w", path, err)
	}

	splitter, err := NewSplitter(data)
	if err != nil {
		return nil, fmt.Errorf("opusfile: index %s: %w", path, err)
	}

	return newReader(splitter, config), nil
}

func newReader(splitter *Splitter, config ReaderConfig) *Reader {
	positions := make([]uint64, splitter.NumPages())
	for i, p := range splitter.Pages() {
		positions[i] = p.Granule
	}

	return &Reader{
		splitter:         splitter,
		positions:        positions,
		startTime:        time.Now(),
		config:           config,
		minPagesForChunk: minPages(config.ChunkDuration, splitter.Header().PageDuration),
		totalDuration:    splitter.TotalDuration(),
		now:              time.Now,
	}
}

// minPages determines how many pages are needed to cover minDuration
func minPages(minDuration, pageDuration float64) int {
	if pageDuration <= 0 {
		return 1
	}
	n := int(minDuration / pageDuration)
	if n < 1 {
		n = 1
	}
	return n
}

// ResetClock anchors the reader's elapsed time to now
func (r *Reader) ResetClock() {
	r.startTime = r.now()
}

// SetClock anchors the reader's elapsed time to an explicit instant
func (r *Reader) SetClock(t time.Time) {
	r.startTime = t
}

// Clock returns the reader's anchor
func (r *Reader) Clock() time.Time {
	return r.startTime
}

// CurrentTimeMillis returns the elapsed play position in milliseconds
func (r *Reader) CurrentTimeMillis() int64 {
	return r.now().Sub(r.startTime).Milliseconds()
}

// PlayTimeSeconds returns the elapsed play position in seconds
func (r *Reader) PlayTimeSeconds() float64 {
	return r.now().Sub(r.startTime).Seconds()
}

// RemainingSeconds returns how much of the file is left at the current position
func (r *Reader) RemainingSeconds() float64 {
	return r.totalDuration - r.PlayTimeSeconds()
}

// TotalDuration returns the file duration in seconds
func (r *Reader) TotalDuration() float64 {
	return r.totalDuration
}

// NumPages returns the audio page count
func (r *Reader) NumPages() int {
	return len(r.positions)
}

// CurrentPage returns the page number at the current play position
func (r *Reader) CurrentPage() int {
	return r.SearchPosition(uint64(r.PlayTimeSeconds() * SampleRate))
}

// SearchPosition returns the page whose granule bounds the target sample
// position. Ties and gaps resolve lower-bound: the first page whose
// granule is >= target.
func (r *Reader) SearchPosition(target uint64) int {
	low, high := 0, len(r.positions)-1
	for low <= high {
		mid := (low + high) / 2
		switch {
		case r.positions[mid] == target:
			return mid
		case r.positions[mid] < target:
			low = mid + 1
		default:
			high = mid - 1
		}
	}
	return low
}

// RangeDuration returns the seconds spanned by two pages' granules,
// or 0 if either index is out of [0, numPages)
func (r *Reader) RangeDuration(pageStart, pageEnd int) float64 {
	if pageStart < 0 || pageEnd < 0 ||
		pageStart >= len(r.positions) || pageEnd >= len(r.positions) {
		return 0
	}
	return DurationSeconds(r.positions[pageStart], r.positions[pageEnd])
}

// PageRangeEnd returns the end of a chunk-sized range starting at pageStart
func (r *Reader) PageRangeEnd(pageStart int) int {
	end := pageStart + r.minPagesForChunk
	if end > len(r.positions) {
		end = len(r.positions)
	}
	return end
}

// ChunkFromRange builds the wire payload for the whole pages [start, end),
// annotated with the play-position offset and the reader's clock
func (r *Reader) ChunkFromRange(start, end int) *protocol.AudioChunk {
	buf := r.splitter.SliceByPage(start, end)
	if buf == nil {
		return nil
	}
	return &protocol.AudioChunk{
		Buffer:            buf,
		PageStart:         start,
		PageEnd:           end,
		ChunkPlayPosition: r.splitter.Header().PageDuration * float64(start),
		TotalDuration:     r.totalDuration,
		ServerTime:        r.CurrentTimeMillis(),
	}
}

// CurrentChunk returns the chunk at the current play position
func (r *Reader) CurrentChunk() (*protocol.AudioChunk, protocol.Status) {
	pageStart := r.CurrentPage()
	pageEnd := r.PageRangeEnd(pageStart)
	if pageStart == pageEnd {
		return nil, protocol.StatusEndOfStream
	}
	return r.ChunkFromRange(pageStart, pageEnd), protocol.StatusContinuation
}

// NextChunk returns the chunk starting at an explicit page. Requests too
// far ahead of the live playhead are rejected with StatusInvalid.
func (r *Reader) NextChunk(pageStart int) (*protocol.AudioChunk, protocol.Status) {
	currentPage := r.CurrentPage()
	pageEnd := r.PageRangeEnd(pageStart)
	if pageStart == pageEnd {
		return nil, protocol.StatusEndOfStream
	}
	if pageStart > len(r.positions) || pageEnd > len(r.positions) {
		return nil, protocol.StatusEndOfStream
	}
	if r.RangeDuration(currentPage, pageStart) > r.config.MaxSecondsLoadAhead {
		return nil, protocol.StatusInvalid
	}
	return r.ChunkFromRange(pageStart, pageEnd), protocol.StatusContinuation
}
