// ABOUTME: Unison broadcast protocol message type definitions
// ABOUTME: Defines the JSON envelope, request/response payloads and read statuses
package protocol

// Message is the top-level wrapper for all JSON protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Status is the result code attached to every chunk request ack
type Status int

const (
	// StatusContinuation means a chunk was produced and pushed separately
	StatusContinuation Status = 0
	// StatusEndOfStream means the content is exhausted, no chunk attached
	StatusEndOfStream Status = 1
	// StatusInvalid means the requested range was rejected (too far ahead
	// of the live playhead)
	StatusInvalid Status = 2
)

// FetchSyncedChunk asks for the chunk at the server's current live position
type FetchSyncedChunk struct {
	Bitrate int `json:"bitrate"`
}

// FetchChunkFromPage asks for the chunk starting at an explicit page
type FetchChunkFromPage struct {
	Bitrate   int `json:"bitrate"`
	PageStart int `json:"page_start"`
}

// StatusAck is the server's answer to either fetch request
type StatusAck struct {
	Status Status `json:"status"`
}

// SetInformation describes the currently playing set. The cover image
// itself follows as a binary frame when CoverMime is non-empty.
type SetInformation struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	CoverMime string `json:"cover_mime,omitempty"`
}

// AudioChunk is a client-facing slice of audio: the file's header bytes
// plus one or more whole pages, independently decodable.
type AudioChunk struct {
	Buffer            []byte
	PageStart         int
	PageEnd           int
	ChunkPlayPosition float64 // seconds into the file where the chunk begins
	TotalDuration     float64 // seconds
	ServerTime        int64   // milliseconds elapsed on the session clock
}

// Message types exchanged as JSON text frames
const (
	TypeFetchSynced    = "stream/fetch-synced"
	TypeFetchPage      = "stream/fetch-page"
	TypeStatus         = "stream/status"
	TypeFetchSetInfo   = "set/fetch-info"
	TypeSetInformation = "set/information"
	TypeNewSet         = "session/new-set"
	TypeChangedState   = "session/changed-state"
)
