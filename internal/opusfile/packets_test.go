// ABOUTME: Tests for Opus packet extraction from chunks
// ABOUTME: Covers lacing reassembly, continuation pages and truncation errors
package opusfile

import (
	"bytes"
	"testing"
)

func TestExtractPacketsSkipsHeaderPackets(t *testing.T) {
	data := buildOpusFile(0, []uint64{960, 1920, 2880})

	packets, err := ExtractPackets(data)
	if err != nil {
		t.Fatalf("ExtractPackets failed: %v", err)
	}

	if len(packets) != 3 {
		t.Fatalf("expected 3 audio packets, got %d", len(packets))
	}
	for i, p := range packets {
		if !bytes.Equal(p, audioPacket(byte(i+1))) {
			t.Errorf("packet %d content mismatch", i)
		}
	}
}

func TestExtractPacketsLargeLacing(t *testing.T) {
	// A 300 byte packet laces as 255 + 45 within one page
	big := make([]byte, 300)
	for i := range big {
		big[i] = byte(i)
	}

	page := buildPage(0, 960, [][]byte{big})

	packets, err := ExtractPackets(page)
	if err != nil {
		t.Fatalf("ExtractPackets failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(packets))
	}
	if !bytes.Equal(packets[0], big) {
		t.Errorf("reassembled packet does not match the original")
	}
}

func TestExtractPacketsExactBoundary(t *testing.T) {
	// A 255 byte packet needs a terminating zero lacing value
	exact := make([]byte, 255)
	page := buildPage(0, 960, [][]byte{exact, audioPacket(7)})

	packets, err := ExtractPackets(page)
	if err != nil {
		t.Fatalf("ExtractPackets failed: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	if len(packets[0]) != 255 {
		t.Errorf("expected 255 byte packet, got %d", len(packets[0]))
	}
}

func TestExtractPacketsAcrossPages(t *testing.T) {
	// A packet spilling over a page boundary: the first page's tail
	// lacing value is 255, the continuation page finishes it
	full := make([]byte, 265)
	for i := range full {
		full[i] = byte(i * 3)
	}

	var data []byte
	data = append(data, buildRawPage(0, 960, []byte{255}, full[:255])...)
	data = append(data, buildRawPage(flagContinuation, 1920, []byte{10}, full[255:])...)

	packets, err := ExtractPackets(data)
	if err != nil {
		t.Fatalf("ExtractPackets failed: %v", err)
	}
	if len(packets) != 1 {
		t.Fatalf("expected 1 packet, got %d", len(packets))
	}
	if !bytes.Equal(packets[0], full) {
		t.Errorf("cross-page packet does not match the original")
	}
}

func TestExtractPacketsUnterminated(t *testing.T) {
	// A trailing 255 lacing value with no continuation means the chunk
	// was cut mid-packet
	data := buildRawPage(0, 960, []byte{255}, make([]byte, 255))

	if _, err := ExtractPackets(data); err == nil {
		t.Errorf("expected an error for an unterminated packet")
	}
}

func TestExtractPacketsTruncatedLacing(t *testing.T) {
	page := buildPage(0, 960, [][]byte{audioPacket(1)})
	// Cut inside the lacing table
	data := page[:pageHeaderSize]

	if _, err := ExtractPackets(data); err == nil {
		t.Errorf("expected an error for a truncated lacing table")
	}
}
