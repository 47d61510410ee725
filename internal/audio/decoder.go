// ABOUTME: Opus chunk decoder service behind a narrow interface
// ABOUTME: Demuxes a chunk's pages into packets and decodes to stereo floats
package audio

import (
	"fmt"

	"github.com/unison-audio/unison-go/internal/opusfile"
	"gopkg.in/hraban/opus.v2"
)

// Decoder turns an independently decodable chunk into per-channel samples
type Decoder interface {
	Decode(chunk []byte) (left, right []float32, err error)
	Close() error
}

// maxFrameSamples is the largest Opus frame (120ms at 48kHz) per channel
const maxFrameSamples = 5760

// OpusChunkDecoder decodes Unison audio chunks: header pages are skipped,
// audio packets are fed to a single Opus decoder instance.
type OpusChunkDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm      []float32
}

// NewOpusChunkDecoder creates a stereo 48kHz chunk decoder
func NewOpusChunkDecoder() (*OpusChunkDecoder, error) {
	dec, err := opus.NewDecoder(opusfile.SampleRate, 2)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusChunkDecoder{
		decoder:  dec,
		channels: 2,
		pcm:      make([]float32, maxFrameSamples*2),
	}, nil
}

// Decode demuxes and decodes one chunk into left/right sample slices
func (d *OpusChunkDecoder) Decode(chunk []byte) ([]float32, []float32, error) {
	packets, err := opusfile.ExtractPackets(chunk)
	if err != nil {
		return nil, nil, fmt.Errorf("chunk demux failed: %w", err)
	}

	var left, right []float32
	for _, packet := range packets {
		n, err := d.decoder.DecodeFloat32(packet, d.pcm)
		if err != nil {
			return nil, nil, fmt.Errorf("opus decode failed: %w", err)
		}

		// Interleaved stereo output, n samples per channel
		for i := 0; i < n; i++ {
			left = append(left, d.pcm[i*2])
			right = append(right, d.pcm[i*2+1])
		}
	}

	return left, right, nil
}

// Close releases the decoder
func (d *OpusChunkDecoder) Close() error {
	return nil
}
