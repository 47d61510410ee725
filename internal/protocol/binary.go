// ABOUTME: Binary frame encoding for audio chunks and cover images
// ABOUTME: Fixed big-endian header followed by the raw payload bytes
package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Binary frame types (first byte of every binary WebSocket message)
const (
	FrameAudioChunk byte = 1
	FrameCoverImage byte = 2
)

// Chunk kinds distinguish the two fetch flavours on the wire
const (
	ChunkSynced byte = 0
	ChunkPaged  byte = 1
)

// chunkHeaderSize is 1 frame type + 1 kind + 4+4 page range +
// 8+8 position/duration + 8 server time
const chunkHeaderSize = 34

// MarshalChunk encodes an audio chunk into a binary frame
func MarshalChunk(kind byte, c *AudioChunk) []byte {
	buf := make([]byte, chunkHeaderSize+len(c.Buffer))
	buf[0] = FrameAudioChunk
	buf[1] = kind
	binary.BigEndian.PutUint32(buf[2:6], uint32(c.PageStart))
	binary.BigEndian.PutUint32(buf[6:10], uint32(c.PageEnd))
	binary.BigEndian.PutUint64(buf[10:18], math.Float64bits(c.ChunkPlayPosition))
	binary.BigEndian.PutUint64(buf[18:26], math.Float64bits(c.TotalDuration))
	binary.BigEndian.PutUint64(buf[26:34], uint64(c.ServerTime))
	copy(buf[chunkHeaderSize:], c.Buffer)
	return buf
}

// ParseChunk decodes a binary audio chunk frame
func ParseChunk(data []byte) (kind byte, c *AudioChunk, err error) {
	if len(data) < chunkHeaderSize {
		return 0, nil, fmt.Errorf("chunk frame too short: %d bytes", len(data))
	}
	if data[0] != FrameAudioChunk {
		return 0, nil, fmt.Errorf("not an audio chunk frame: type %d", data[0])
	}
	c = &AudioChunk{
		PageStart:         int(binary.BigEndian.Uint32(data[2:6])),
		PageEnd:           int(binary.BigEndian.Uint32(data[6:10])),
		ChunkPlayPosition: math.Float64frombits(binary.BigEndian.Uint64(data[10:18])),
		TotalDuration:     math.Float64frombits(binary.BigEndian.Uint64(data[18:26])),
		ServerTime:        int64(binary.BigEndian.Uint64(data[26:34])),
	}
	c.Buffer = data[chunkHeaderSize:]
	return data[1], c, nil
}

// MarshalCover wraps cover image bytes in a binary frame
func MarshalCover(image []byte) []byte {
	buf := make([]byte, 1+len(image))
	buf[0] = FrameCoverImage
	copy(buf[1:], image)
	return buf
}
