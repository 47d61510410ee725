// ABOUTME: Adaptive playback buffer smoothing decoded audio into renderer blocks
// ABOUTME: Flush sizes grow exponentially so first sound is fast, steady state cheap
package stream

import "math"

// Block is one flushed stereo block of decoded samples
type Block struct {
	Left       []float32
	Right      []float32
	Samples    int
	SampleRate int
}

const (
	// defaultFirstFlushLength is 20ms at 48kHz
	defaultFirstFlushLength = 960
	// defaultMaxFlushSize is a 128K byte buffer (4 bytes per float sample)
	defaultMaxFlushSize = 1024 * 128
	// defaultMaxGrows is the number of flushes over which the block size
	// grows to the ceiling; too small causes skips on slow links
	defaultMaxGrows = 50
)

// PlaybackBuffer collects irregular decoder output and flushes
// progressively larger stereo blocks to the renderer.
type PlaybackBuffer struct {
	firstFlushLength int
	maxFlushSize     int
	maxGrows         int
	growFactor       float64

	bufL []float32
	bufR []float32

	pos        int
	flushCount int

	onFlush func(Block)
}

// NewPlaybackBuffer creates a buffer that delivers blocks to onFlush
func NewPlaybackBuffer(onFlush func(Block)) *PlaybackBuffer {
	maxSamples := defaultMaxFlushSize / 4
	return &PlaybackBuffer{
		firstFlushLength: defaultFirstFlushLength,
		maxFlushSize:     defaultMaxFlushSize,
		maxGrows:         defaultMaxGrows,
		growFactor: math.Pow(
			float64(maxSamples)/float64(defaultFirstFlushLength),
			1/float64(defaultMaxGrows-1),
		),
		bufL:    make([]float32, maxSamples),
		bufR:    make([]float32, maxSamples),
		onFlush: onFlush,
	}
}

// FlushLength returns the target block size in samples for the nth flush.
// Growth clamps at the ceiling after maxGrows-1 steps.
func (b *PlaybackBuffer) FlushLength(flushCount int) int {
	flushes := flushCount
	if flushes > b.maxGrows-1 {
		flushes = b.maxGrows - 1
	}
	multiplier := math.Pow(b.growFactor, float64(flushes))
	return int(math.Round(float64(b.firstFlushLength) * multiplier))
}

// Reset discards buffered samples and restarts the growth schedule
func (b *PlaybackBuffer) Reset() {
	b.pos = 0
	b.flushCount = 0
}

// Add appends decoded samples, flushing every time a block fills. One
// call may trigger several flushes when the input is large.
func (b *PlaybackBuffer) Add(left, right []float32) {
	srcLen := len(left)
	srcStart := 0

	for srcStart < srcLen {
		target := b.FlushLength(b.flushCount)

		n := target - b.pos
		if remain := srcLen - srcStart; remain < n {
			n = remain
		}

		copy(b.bufL[b.pos:], left[srcStart:srcStart+n])
		copy(b.bufR[b.pos:], right[srcStart:srcStart+n])
		srcStart += n
		b.pos += n

		if b.pos == target {
			b.Flush()
		}
	}
}

// Flush emits the filled prefix immediately, even if the block is partial.
// Called externally on end-of-stream or a prolonged fetch stall.
func (b *PlaybackBuffer) Flush() {
	block := Block{
		Left:       append([]float32(nil), b.bufL[:b.pos]...),
		Right:      append([]float32(nil), b.bufR[:b.pos]...),
		Samples:    b.pos,
		SampleRate: 48000,
	}
	b.onFlush(block)
	b.flushCount++
	b.pos = 0
}
