// ABOUTME: Tests for audio output helpers
// ABOUTME: Covers the sample FIFO and volume math without a device
package player

import (
	"bytes"
	"testing"
)

func TestVolumeMultiplier(t *testing.T) {
	cases := []struct {
		volume int
		muted  bool
		want   float32
	}{
		{100, false, 1.0},
		{50, false, 0.5},
		{0, false, 0.0},
		{100, true, 0.0},
	}
	for _, tc := range cases {
		if got := volumeMultiplier(tc.volume, tc.muted); got != tc.want {
			t.Errorf("volumeMultiplier(%d, %v) = %v, want %v", tc.volume, tc.muted, got, tc.want)
		}
	}
}

func TestFIFOReadsQueuedBytes(t *testing.T) {
	f := newSampleFIFO()
	f.Push([]byte{1, 2, 3, 4})

	p := make([]byte, 4)
	n, err := f.Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 4 || !bytes.Equal(p, []byte{1, 2, 3, 4}) {
		t.Errorf("unexpected read: n=%d p=%v", n, p)
	}
}

func TestFIFOPadsSilenceOnUnderrun(t *testing.T) {
	f := newSampleFIFO()
	f.Push([]byte{7, 7})

	p := []byte{9, 9, 9, 9}
	n, err := f.Read(p)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if n != 4 {
		t.Errorf("reads always fill the device buffer, got n=%d", n)
	}
	if !bytes.Equal(p, []byte{7, 7, 0, 0}) {
		t.Errorf("expected silence padding, got %v", p)
	}
}

func TestFIFOClear(t *testing.T) {
	f := newSampleFIFO()
	f.Push([]byte{1, 2, 3})
	f.Clear()

	p := make([]byte, 2)
	f.Read(p)
	if !bytes.Equal(p, []byte{0, 0}) {
		t.Errorf("expected silence after clear, got %v", p)
	}
}

func TestFIFOSequentialReads(t *testing.T) {
	f := newSampleFIFO()
	f.Push([]byte{1, 2, 3, 4, 5, 6})

	first := make([]byte, 4)
	f.Read(first)
	second := make([]byte, 4)
	f.Read(second)

	if !bytes.Equal(first, []byte{1, 2, 3, 4}) {
		t.Errorf("first read mismatch: %v", first)
	}
	if !bytes.Equal(second, []byte{5, 6, 0, 0}) {
		t.Errorf("second read mismatch: %v", second)
	}
}
