// ABOUTME: Fetch-ahead loop keeping the playback buffer aligned to the server
// ABOUTME: Issues synced and paged chunk fetches, detecting drift beyond tolerance
package stream

import (
	"log"
	"sync"
	"time"

	"github.com/unison-audio/unison-go/internal/protocol"
)

// Fetcher issues chunk requests toward the server. Responses arrive
// asynchronously and are fed back through the Handle methods.
type Fetcher interface {
	FetchSyncedChunk(bitrate int) error
	FetchChunkFromPage(bitrate, pageStart int) error
}

// AgentConfig tunes the fetch-ahead loop
type AgentConfig struct {
	Bitrate        int
	FetchInterval  time.Duration
	FetchThreshold float64 // minimum buffered-ahead seconds
	MaxOutOfSync   float64 // drift in seconds that triggers a resync
}

// Agent drives the fetch-ahead loop for one listening session. At most
// one fetch is in flight at a time; a resync request wins over everything
// else on the next tick.
type Agent struct {
	mu sync.Mutex

	fetcher Fetcher
	tk      *TimeKeeper
	config  AgentConfig

	isFetching    bool
	needsResync   bool
	idle          bool
	lastChunkPage int

	onFetch func(buffer []byte)
	onFlush func()

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewAgent creates a fetch agent. onFetch receives every chunk's buffer,
// onFlush is called when buffered state must be pushed out and discarded.
func NewAgent(fetcher Fetcher, tk *TimeKeeper, config AgentConfig, onFetch func([]byte), onFlush func()) *Agent {
	return &Agent{
		fetcher:  fetcher,
		tk:       tk,
		config:   config,
		onFetch:  onFetch,
		onFlush:  onFlush,
		stopChan: make(chan struct{}),
	}
}

// Start issues the initial synced fetch and runs the tick loop
func (a *Agent) Start() {
	a.fetchCurrent()

	go func() {
		ticker := time.NewTicker(a.config.FetchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				a.Tick()
			case <-a.stopChan:
				return
			}
		}
	}()
}

// Tick runs one iteration of the fetch-ahead loop
func (a *Agent) Tick() {
	a.mu.Lock()

	if a.needsResync {
		a.needsResync = false
		a.idle = false
		a.mu.Unlock()
		a.onFlush()
		a.fetchCurrent()
		return
	}

	if a.idle || a.isFetching {
		a.mu.Unlock()
		return
	}

	buffered := a.tk.DownloadedAudioDuration()
	if buffered < a.config.FetchThreshold {
		a.mu.Unlock()
		a.fetchPaged()
		return
	}

	a.mu.Unlock()
}

// fetchCurrent asks for the chunk at the server's live position
func (a *Agent) fetchCurrent() {
	a.mu.Lock()
	a.isFetching = true
	bitrate := a.config.Bitrate
	a.mu.Unlock()

	if err := a.fetcher.FetchSyncedChunk(bitrate); err != nil {
		log.Printf("Synced fetch failed: %v", err)
		a.mu.Lock()
		a.isFetching = false
		a.mu.Unlock()
	}
}

// fetchPaged asks for the next page range after the last chunk received
func (a *Agent) fetchPaged() {
	a.mu.Lock()
	a.isFetching = true
	bitrate, pageStart := a.config.Bitrate, a.lastChunkPage
	a.mu.Unlock()

	if err := a.fetcher.FetchChunkFromPage(bitrate, pageStart); err != nil {
		log.Printf("Paged fetch failed: %v", err)
		a.mu.Lock()
		a.isFetching = false
		a.mu.Unlock()
	}
}

// HandleSyncedChunk applies a synced fetch response: it re-anchors the
// time keeper and folds clock and latency differences into the single
// delay correction term.
func (a *Agent) HandleSyncedChunk(c *protocol.AudioChunk) {
	a.mu.Lock()
	a.needsResync = false
	a.mu.Unlock()

	a.tk.SetStartPosition(c.ChunkPlayPosition)
	a.tk.SetTotalDuration(c.TotalDuration)
	a.tk.SetDelay(c.ChunkPlayPosition - float64(c.ServerTime)/1000 - a.tk.CurrentTime())

	a.handleChunk(c)
}

// HandlePagedChunk applies a paged fetch response. A chunk whose declared
// play position is further ahead of the computed position than the
// tolerance sets the resync flag instead of trusting this timeline.
func (a *Agent) HandlePagedChunk(c *protocol.AudioChunk) {
	if c.ChunkPlayPosition-a.tk.CurrentPlayPosition() > a.config.MaxOutOfSync {
		a.mu.Lock()
		a.needsResync = true
		a.mu.Unlock()
	}
	a.handleChunk(c)
}

func (a *Agent) handleChunk(c *protocol.AudioChunk) {
	a.mu.Lock()
	a.isFetching = false
	a.lastChunkPage = c.PageEnd
	a.mu.Unlock()

	a.onFetch(c.Buffer)
}

// HandleInvalid drops a rejected fetch. The next tick retries the same
// range; a request stays invalid only while the client runs ahead of the
// live playhead, so retrying is the backpressure path, not an error.
func (a *Agent) HandleInvalid() {
	a.mu.Lock()
	a.isFetching = false
	a.mu.Unlock()
}

// HandleEndOfStream flushes pending audio, rewinds the page cursor and
// parks the agent. Fetching stays paused until a resync rearms it,
// normally triggered by the server's new-set push. Ticking on would
// refetch the exhausted set from page zero during the advance window.
func (a *Agent) HandleEndOfStream() {
	a.onFlush()
	a.Reset()
	a.mu.Lock()
	a.idle = true
	a.mu.Unlock()
}

// RequestResync forces a synced fetch on the next tick
func (a *Agent) RequestResync() {
	a.mu.Lock()
	a.needsResync = true
	a.mu.Unlock()
}

// Reset clears the agent's cursor, in-flight state and the parked flag
func (a *Agent) Reset() {
	a.mu.Lock()
	a.lastChunkPage = 0
	a.isFetching = false
	a.needsResync = false
	a.idle = false
	a.mu.Unlock()
}

// SetBitrate switches the variant requested from the server
func (a *Agent) SetBitrate(bitrate int) {
	a.mu.Lock()
	a.config.Bitrate = bitrate
	a.mu.Unlock()
}

// NeedsResync reports whether a resync is pending
func (a *Agent) NeedsResync() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.needsResync
}

// Stop halts the tick loop
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopChan)
	})
}
