// ABOUTME: Tests for binary frame encoding
// ABOUTME: Verifies chunk round trips and malformed frame rejection
package protocol

import (
	"bytes"
	"testing"
)

func TestChunkRoundTrip(t *testing.T) {
	original := &AudioChunk{
		Buffer:            []byte{0xde, 0xad, 0xbe, 0xef},
		PageStart:         17,
		PageEnd:           42,
		ChunkPlayPosition: 12.34,
		TotalDuration:     3599.99,
		ServerTime:        123456789,
	}

	frame := MarshalChunk(ChunkPaged, original)

	kind, parsed, err := ParseChunk(frame)
	if err != nil {
		t.Fatalf("ParseChunk failed: %v", err)
	}
	if kind != ChunkPaged {
		t.Errorf("expected paged kind, got %d", kind)
	}
	if parsed.PageStart != original.PageStart || parsed.PageEnd != original.PageEnd {
		t.Errorf("page range mismatch: got [%d, %d)", parsed.PageStart, parsed.PageEnd)
	}
	if parsed.ChunkPlayPosition != original.ChunkPlayPosition {
		t.Errorf("play position mismatch: got %v", parsed.ChunkPlayPosition)
	}
	if parsed.TotalDuration != original.TotalDuration {
		t.Errorf("total duration mismatch: got %v", parsed.TotalDuration)
	}
	if parsed.ServerTime != original.ServerTime {
		t.Errorf("server time mismatch: got %d", parsed.ServerTime)
	}
	if !bytes.Equal(parsed.Buffer, original.Buffer) {
		t.Errorf("buffer mismatch: got %v", parsed.Buffer)
	}
}

func TestChunkSyncedKind(t *testing.T) {
	frame := MarshalChunk(ChunkSynced, &AudioChunk{})

	kind, _, err := ParseChunk(frame)
	if err != nil {
		t.Fatalf("ParseChunk failed: %v", err)
	}
	if kind != ChunkSynced {
		t.Errorf("expected synced kind, got %d", kind)
	}
}

func TestParseChunkRejectsShortFrame(t *testing.T) {
	if _, _, err := ParseChunk([]byte{FrameAudioChunk, 0, 1}); err == nil {
		t.Errorf("expected an error for a short frame")
	}
}

func TestParseChunkRejectsWrongType(t *testing.T) {
	frame := MarshalChunk(ChunkSynced, &AudioChunk{})
	frame[0] = FrameCoverImage

	if _, _, err := ParseChunk(frame); err == nil {
		t.Errorf("expected an error for a non-chunk frame")
	}
}

func TestMarshalCover(t *testing.T) {
	image := []byte{1, 2, 3}
	frame := MarshalCover(image)

	if frame[0] != FrameCoverImage {
		t.Errorf("expected cover frame type, got %d", frame[0])
	}
	if !bytes.Equal(frame[1:], image) {
		t.Errorf("cover payload mismatch")
	}
}
