// ABOUTME: Audio output using the oto library
// ABOUTME: Streams flushed float32 blocks to the device with software volume
package player

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/unison-audio/unison-go/internal/stream"
)

// Output manages the audio device. Blocks are interleaved into a FIFO
// that the oto player drains; underruns read silence.
type Output struct {
	otoCtx *oto.Context
	player *oto.Player
	fifo   *sampleFIFO

	started time.Time
	volume  int
	muted   bool
	ready   bool
	mu      sync.Mutex
}

// NewOutput creates an audio output
func NewOutput() *Output {
	return &Output{
		volume: 100,
		fifo:   newSampleFIFO(),
	}
}

// Initialize sets up the device for 48kHz stereo float playback. The
// instant of initialization is the zero point of the renderer clock.
func (o *Output) Initialize() error {
	op := &oto.NewContextOptions{
		SampleRate:   48000,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.mu.Lock()
	o.otoCtx = ctx
	o.player = ctx.NewPlayer(o.fifo)
	o.started = time.Now()
	o.ready = true
	o.mu.Unlock()

	o.player.Play()

	log.Printf("Audio output initialized: 48000Hz, 2 channels")
	return nil
}

// Clock returns seconds since the device started, the renderer clock the
// time keeper reads
func (o *Output) Clock() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.ready {
		return 0
	}
	return time.Since(o.started).Seconds()
}

// Play queues one flushed block for the device
func (o *Output) Play(block stream.Block) error {
	o.mu.Lock()
	if !o.ready {
		o.mu.Unlock()
		return fmt.Errorf("output not initialized")
	}
	multiplier := volumeMultiplier(o.volume, o.muted)
	o.mu.Unlock()

	// Interleave to little-endian float32 frames
	data := make([]byte, block.Samples*2*4)
	for i := 0; i < block.Samples; i++ {
		l := block.Left[i] * multiplier
		r := block.Right[i] * multiplier
		binary.LittleEndian.PutUint32(data[i*8:], math.Float32bits(l))
		binary.LittleEndian.PutUint32(data[i*8+4:], math.Float32bits(r))
	}

	o.fifo.Push(data)
	return nil
}

// Discard drops any queued but unplayed audio
func (o *Output) Discard() {
	o.fifo.Clear()
}

// SetVolume sets the volume (0-100)
func (o *Output) SetVolume(volume int) {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	o.mu.Lock()
	o.volume = volume
	o.mu.Unlock()
	log.Printf("Volume set to %d", volume)
}

// SetMuted sets mute state
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
	log.Printf("Muted: %v", muted)
}

// Volume returns the current volume
func (o *Output) Volume() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// IsMuted returns mute state
func (o *Output) IsMuted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// Close stops the device
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Close()
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
	}
	o.ready = false
}

func volumeMultiplier(volume int, muted bool) float32 {
	if muted {
		return 0
	}
	return float32(volume) / 100.0
}

// sampleFIFO is the byte queue between flushes and the device reader.
// Reads never block; a drained queue yields silence.
type sampleFIFO struct {
	mu   sync.Mutex
	data []byte
}

func newSampleFIFO() *sampleFIFO {
	return &sampleFIFO{}
}

func (f *sampleFIFO) Push(data []byte) {
	f.mu.Lock()
	f.data = append(f.data, data...)
	f.mu.Unlock()
}

func (f *sampleFIFO) Clear() {
	f.mu.Lock()
	f.data = nil
	f.mu.Unlock()
}

func (f *sampleFIFO) Read(p []byte) (int, error) {
	f.mu.Lock()
	n := copy(p, f.data)
	f.data = f.data[n:]
	f.mu.Unlock()

	// Pad with silence on underrun so the device keeps running
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}
