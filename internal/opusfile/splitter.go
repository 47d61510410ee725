// ABOUTME: Splitter indexes a raw Ogg/Opus buffer into time-addressable pages
// ABOUTME: Produces file-global header metadata plus the ordered audio page list
package opusfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoAudioPages is fatal: no reader can be built from such a file
	ErrNoAudioPages = errors.New("opusfile: container has no audio pages")
)

var (
	idSignature   = []byte("OpusHead")
	tagsSignature = []byte("OpusTags")
)

// Header holds file-global metadata derived during the scan
type Header struct {
	SampleRate   int
	Channels     int
	PreSkip      int     // samples to discard at decode start
	PageDuration float64 // nominal seconds of audio per page
	FinalGranule uint64  // granule of the last page
}

// Splitter owns one indexed file buffer and answers byte-range queries.
// The header byte range [0, headerEnd) prefixes every slice so the result
// stays independently decodable.
type Splitter struct {
	data      []byte
	header    Header
	pages     []Page // audio pages only, granule strictly increasing
	headerEnd int    // byte offset of the first audio page
}

// NewSplitter scans the buffer linearly and classifies every page.
// A file with zero audio pages is rejected outright.
func NewSplitter(data []byte) (*Splitter, error) {
	s := &Splitter{
		data:   data,
		header: Header{SampleRate: SampleRate},
	}
	if err := s.scan(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Splitter) scan() error {
	var (
		sawID    bool
		sawTags  bool
		sawAudio bool
	)

	offset := 0
	for offset < len(s.data) {
		rel := bytes.Index(s.data[offset:], capturePattern)
		if rel < 0 {
			break
		}
		offset += rel

		length, page, payload, err := parsePage(s.data, offset)
		if err != nil {
			return err
		}

		switch {
		case !sawID && bytes.HasPrefix(payload, idSignature):
			if len(payload) < 12 {
				return fmt.Errorf("opusfile: identification page truncated at offset %d", offset)
			}
			s.header.Channels = int(payload[9])
			s.header.PreSkip = int(binary.LittleEndian.Uint16(payload[10:12]))
			sawID = true
		case sawID && !sawTags && bytes.HasPrefix(payload, tagsSignature):
			sawTags = true
		case sawTags && !sawAudio && page.Continuation:
			// metadata spilling over into continuation pages
		default:
			page.Kind = KindAudio
			if !sawAudio {
				s.headerEnd = offset
				sawAudio = true
			}
			s.pages = append(s.pages, page)
			s.header.FinalGranule = page.Granule
		}

		offset += length
	}

	if len(s.pages) == 0 {
		return ErrNoAudioPages
	}

	if len(s.pages) >= 2 {
		s.header.PageDuration = DurationSeconds(s.pages[0].Granule, s.pages[1].Granule)
	} else {
		s.header.PageDuration = DurationSeconds(uint64(s.header.PreSkip), s.pages[0].Granule)
	}

	return nil
}

// parsePage reads the fixed header and lacing table at offset and returns
// the full page length, its metadata and the payload bytes.
func parsePage(data []byte, offset int) (int, Page, []byte, error) {
	if offset+pageHeaderSize > len(data) {
		return 0, Page{}, nil, fmt.Errorf("opusfile: page header truncated at offset %d", offset)
	}
	h := data[offset : offset+pageHeaderSize]

	flags := h[5]
	granule := binary.LittleEndian.Uint64(h[6:14])
	nsegs := int(h[26])

	if offset+pageHeaderSize+nsegs > len(data) {
		return 0, Page{}, nil, fmt.Errorf("opusfile: lacing table truncated at offset %d", offset)
	}

	payloadLen := 0
	for _, l := range data[offset+pageHeaderSize : offset+pageHeaderSize+nsegs] {
		payloadLen += int(l)
	}

	length := pageHeaderSize + nsegs + payloadLen
	if offset+length > len(data) {
		return 0, Page{}, nil, fmt.Errorf("opusfile: page payload truncated at offset %d", offset)
	}

	page := Page{
		Offset:       offset,
		Length:       length,
		Granule:      granule,
		Continuation: flags&flagContinuation != 0,
		First:        flags&flagFirstPage != 0,
		Last:         flags&flagLastPage != 0,
	}
	payload := data[offset+pageHeaderSize+nsegs : offset+length]

	return length, page, payload, nil
}

// Header returns the file-global metadata
func (s *Splitter) Header() Header {
	return s.header
}

// Pages returns the ordered audio pages
func (s *Splitter) Pages() []Page {
	return s.pages
}

// NumPages returns the audio page count
func (s *Splitter) NumPages() int {
	return len(s.pages)
}

// HeaderBytes returns the non-audio header region of the file
func (s *Splitter) HeaderBytes() []byte {
	return s.data[:s.headerEnd]
}

// TotalDuration returns the file duration in seconds, pre-skip excluded
func (s *Splitter) TotalDuration() float64 {
	return DurationSeconds(uint64(s.header.PreSkip), s.header.FinalGranule)
}

// SliceByPage returns the header region plus the whole pages [start, end)
// concatenated into one independently decodable buffer, or nil if the
// range is invalid. Partial pages are never sliced.
func (s *Splitter) SliceByPage(start, end int) []byte {
	if start < 0 || end > len(s.pages) || start >= end {
		return nil
	}

	first := s.pages[start]
	last := s.pages[end-1]
	audio := s.data[first.Offset : last.Offset+last.Length]

	out := make([]byte, 0, s.headerEnd+len(audio))
	out = append(out, s.data[:s.headerEnd]...)
	out = append(out, audio...)
	return out
}

// DurationSeconds converts a granule range into seconds, rounded to two
// decimal places. This is the single duration formula used everywhere.
func DurationSeconds(g0, g1 uint64) float64 {
	diff := int64(g1) - int64(g0)
	return math.Round(float64(diff)/SampleRate*100) / 100
}
