// ABOUTME: Tests for the adaptive playback buffer
// ABOUTME: Verifies the growth schedule, flush boundaries and reset
package stream

import "testing"

func collectBlocks(blocks *[]Block) func(Block) {
	return func(b Block) {
		*blocks = append(*blocks, b)
	}
}

func TestFlushLengthSchedule(t *testing.T) {
	b := NewPlaybackBuffer(func(Block) {})

	if got := b.FlushLength(0); got != 960 {
		t.Errorf("first flush length: expected 960, got %d", got)
	}

	// Growth clamps at the ceiling of 32768 samples
	if got := b.FlushLength(49); got != 32768 {
		t.Errorf("flush length at maxGrows-1: expected 32768, got %d", got)
	}
	if got := b.FlushLength(100); got != b.FlushLength(49) {
		t.Errorf("flush length must stay clamped past maxGrows")
	}

	// Strictly increasing up to the ceiling
	prev := b.FlushLength(0)
	for i := 1; i < 50; i++ {
		cur := b.FlushLength(i)
		if cur <= prev {
			t.Fatalf("flush length not increasing at step %d: %d <= %d", i, cur, prev)
		}
		prev = cur
	}
}

func TestAddFlushesAtBoundary(t *testing.T) {
	var blocks []Block
	b := NewPlaybackBuffer(collectBlocks(&blocks))

	samples := make([]float32, 960)
	for i := range samples {
		samples[i] = float32(i)
	}
	b.Add(samples, samples)

	if len(blocks) != 1 {
		t.Fatalf("expected 1 flushed block, got %d", len(blocks))
	}
	if blocks[0].Samples != 960 {
		t.Errorf("expected 960 samples, got %d", blocks[0].Samples)
	}
	if blocks[0].SampleRate != 48000 {
		t.Errorf("expected 48kHz blocks, got %d", blocks[0].SampleRate)
	}
	if blocks[0].Left[959] != 959 || blocks[0].Right[959] != 959 {
		t.Errorf("block content mismatch at the boundary sample")
	}
}

func TestAddSpansMultipleFlushes(t *testing.T) {
	var blocks []Block
	b := NewPlaybackBuffer(collectBlocks(&blocks))

	// Enough for the first two scheduled blocks plus a remainder
	total := b.FlushLength(0) + b.FlushLength(1) + 100
	samples := make([]float32, total)
	b.Add(samples, samples)

	if len(blocks) != 2 {
		t.Fatalf("expected 2 flushed blocks, got %d", len(blocks))
	}
	if blocks[0].Samples != b.FlushLength(0) {
		t.Errorf("first block: expected %d samples, got %d", b.FlushLength(0), blocks[0].Samples)
	}
	if blocks[1].Samples != b.FlushLength(1) {
		t.Errorf("second block: expected %d samples, got %d", b.FlushLength(1), blocks[1].Samples)
	}

	// The remainder flushes on demand
	b.Flush()
	if len(blocks) != 3 || blocks[2].Samples != 100 {
		t.Errorf("expected a 100 sample partial flush, got %+v", blocks[len(blocks)-1].Samples)
	}
}

func TestResetRestartsSchedule(t *testing.T) {
	var blocks []Block
	b := NewPlaybackBuffer(collectBlocks(&blocks))

	b.Add(make([]float32, b.FlushLength(0)), make([]float32, b.FlushLength(0)))
	b.Add(make([]float32, 10), make([]float32, 10))
	b.Reset()

	// After reset the first flush target is back to the smallest block
	b.Add(make([]float32, 960), make([]float32, 960))

	last := blocks[len(blocks)-1]
	if last.Samples != 960 {
		t.Errorf("expected 960 samples after reset, got %d", last.Samples)
	}
}
