// ABOUTME: Ogg page metadata for the Opus container
// ABOUTME: Pages are created once during the splitter scan and immutable after
package opusfile

// Ogg framing constants. Only the fields the broadcast needs are parsed.
const (
	pageHeaderSize = 27

	// SampleRate is always 48kHz for Opus
	SampleRate = 48000

	flagContinuation = 0x01
	flagFirstPage    = 0x02
	flagLastPage     = 0x04
)

var capturePattern = []byte{'O', 'g', 'g', 'S'}

// Kind classifies a page by the payload it carries
type Kind int

const (
	KindIdentification Kind = iota
	KindMetadata
	KindAudio
)

// Page is one physical unit of the container holding audio or header data
type Page struct {
	Offset  int    // byte offset of the page start within the file
	Length  int    // total page length including header and lacing table
	Granule uint64 // cumulative sample count up to and including this page
	Kind    Kind

	Continuation bool
	First        bool
	Last         bool
}
