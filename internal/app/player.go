// ABOUTME: Main player application orchestration
// ABOUTME: Wires the connection, fetch agent, decoder, buffer and output together
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/unison-audio/unison-go/internal/audio"
	"github.com/unison-audio/unison-go/internal/client"
	"github.com/unison-audio/unison-go/internal/config"
	"github.com/unison-audio/unison-go/internal/player"
	"github.com/unison-audio/unison-go/internal/protocol"
	"github.com/unison-audio/unison-go/internal/stream"
)

// startLeadIn is scheduled ahead of the renderer clock on the first
// flush so the device never starts in the past
const startLeadIn = 0.1

// stallFlushDelay is how long after the last chunk a partial buffer is
// pushed out anyway
const stallFlushDelay = 100 * time.Millisecond

// Config holds player configuration
type Config struct {
	ServerAddr string
	Name       string
	Bitrate    int
}

// Stats is a UI-facing snapshot of playback state
type Stats struct {
	Title     string
	Author    string
	Position  float64
	Duration  float64
	Buffered  float64
	Delay     float64
	Connected bool
	Volume    int
	Muted     bool
	Bitrate   int
}

// decodeJob carries one chunk (or a flush marker) through the single
// decode worker so ordering is preserved
type decodeJob struct {
	buffer []byte
	sid    int64
	flush  bool
}

// Player represents the main player application
type Player struct {
	config Config
	cfg    config.Config

	client  *client.Client
	output  *player.Output
	tk      *stream.TimeKeeper
	buffer  *stream.PlaybackBuffer
	agent   *stream.Agent
	decoder audio.Decoder

	// sessionID guards against chunks from a previous set reaching the
	// buffer after a reset
	sessionID atomic.Int64

	decodeJobs chan decodeJob
	stallTimer *time.Timer

	mu     sync.Mutex
	title  string
	author string

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new player
func New(playerConfig Config, cfg config.Config) *Player {
	ctx, cancel := context.WithCancel(context.Background())

	return &Player{
		config:     playerConfig,
		cfg:        cfg,
		output:     player.NewOutput(),
		decodeJobs: make(chan decodeJob, 16),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start connects and begins synchronized playback. It returns once the
// pipeline is running.
func (p *Player) Start() error {
	if err := p.output.Initialize(); err != nil {
		return fmt.Errorf("audio output failed: %w", err)
	}

	decoder, err := audio.NewOpusChunkDecoder()
	if err != nil {
		return fmt.Errorf("decoder init failed: %w", err)
	}
	p.decoder = decoder

	p.tk = stream.NewTimeKeeper(p.output.Clock)
	p.buffer = stream.NewPlaybackBuffer(p.scheduleBlock)

	p.client = client.NewClient(client.Config{ServerAddr: p.config.ServerAddr})
	if err := p.client.Connect(); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	log.Printf("Connected to server: %s", p.config.ServerAddr)

	p.agent = stream.NewAgent(p.client, p.tk, stream.AgentConfig{
		Bitrate:        p.config.Bitrate,
		FetchInterval:  p.cfg.FetchInterval,
		FetchThreshold: p.cfg.FetchThreshold,
		MaxOutOfSync:   p.cfg.MaxOutOfSync,
	}, p.enqueueChunk, p.enqueueFlush)

	go p.decodeLoop()
	go p.handleChunks()

	p.agent.Start()
	p.client.FetchSetInformation()

	return nil
}

// scheduleBlock hands one flushed block to the renderer, anchoring the
// local clock on the first block of a session
func (p *Player) scheduleBlock(block stream.Block) {
	if block.Samples == 0 {
		return
	}

	if p.tk.TotalTimeScheduled() == 0 {
		p.tk.SetStartedAt(p.output.Clock() + startLeadIn)
	}
	p.tk.AddTotalTimeScheduled(float64(block.Samples) / float64(block.SampleRate))

	if err := p.output.Play(block); err != nil {
		log.Printf("Playback error: %v", err)
	}
}

// enqueueChunk queues a chunk buffer for the decode worker
func (p *Player) enqueueChunk(buffer []byte) {
	job := decodeJob{buffer: buffer, sid: p.sessionID.Load()}
	select {
	case p.decodeJobs <- job:
	case <-p.ctx.Done():
	}
}

// enqueueFlush queues a flush marker behind any pending chunks
func (p *Player) enqueueFlush() {
	job := decodeJob{flush: true, sid: p.sessionID.Load()}
	select {
	case p.decodeJobs <- job:
	case <-p.ctx.Done():
	}
}

// decodeLoop is the single worker that decodes chunks in arrival order
func (p *Player) decodeLoop() {
	for {
		select {
		case job := <-p.decodeJobs:
			if job.sid != p.sessionID.Load() {
				continue
			}

			if job.flush {
				p.buffer.Flush()
				continue
			}

			left, right, err := p.decoder.Decode(job.buffer)
			if err != nil {
				log.Printf("Decode error: %v", err)
				continue
			}
			if job.sid != p.sessionID.Load() {
				continue
			}

			p.buffer.Add(left, right)
			p.armStallTimer(job.sid)

		case <-p.ctx.Done():
			return
		}
	}
}

// armStallTimer schedules a flush in case no further chunk arrives to
// fill the current block
func (p *Player) armStallTimer(sid int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stallTimer != nil {
		p.stallTimer.Stop()
	}
	p.stallTimer = time.AfterFunc(stallFlushDelay, func() {
		if sid != p.sessionID.Load() {
			return
		}
		p.enqueueFlush()
	})
}

// handleChunks routes everything arriving from the server
func (p *Player) handleChunks() {
	for {
		select {
		case chunk := <-p.client.SyncedChunks:
			p.agent.HandleSyncedChunk(chunk)

		case chunk := <-p.client.PagedChunks:
			p.agent.HandlePagedChunk(chunk)

		case ack := <-p.client.Statuses:
			p.handleStatus(ack)

		case info := <-p.client.SetInfo:
			p.mu.Lock()
			p.title = info.Title
			p.author = info.Author
			p.mu.Unlock()
			log.Printf("Now playing: %s - %s", info.Author, info.Title)

		case <-p.client.Covers:
			// Cover art has no terminal rendering yet

		case <-p.client.NewSet:
			log.Printf("Server advanced to a new set")
			p.resetSession()
			p.client.FetchSetInformation()

		case <-p.client.ChangedState:
			log.Printf("Server playback state changed, resyncing")
			p.agent.RequestResync()

		case <-p.ctx.Done():
			return
		}
	}
}

// handleStatus reacts to a fetch ack without a chunk attached
func (p *Player) handleStatus(ack protocol.StatusAck) {
	switch ack.Status {
	case protocol.StatusEndOfStream:
		log.Printf("End of stream")
		p.agent.HandleEndOfStream()

	case protocol.StatusInvalid:
		log.Printf("Fetch rejected as too far ahead of the live playhead")
		p.agent.HandleInvalid()
	}
}

// resetSession tears playback state down to silence and rejoins the
// live position
func (p *Player) resetSession() {
	p.sessionID.Add(1)

	p.mu.Lock()
	if p.stallTimer != nil {
		p.stallTimer.Stop()
		p.stallTimer = nil
	}
	p.mu.Unlock()

	p.output.Discard()
	p.buffer.Reset()
	p.tk.Reset()
	p.agent.Reset()
	p.agent.RequestResync()
}

// Stats returns a snapshot for the UI
func (p *Player) Stats() Stats {
	p.mu.Lock()
	title, author := p.title, p.author
	p.mu.Unlock()

	connected := p.client != nil && p.client.IsConnected()

	var pos, dur, buffered, delay float64
	if p.tk != nil {
		pos = p.tk.CurrentPlayPosition()
		dur = p.tk.TotalDuration()
		buffered = p.tk.DownloadedAudioDuration()
		delay = p.tk.Delay()
	}
	if pos < 0 {
		pos = 0
	}
	if buffered < 0 {
		buffered = 0
	}

	return Stats{
		Title:     title,
		Author:    author,
		Position:  pos,
		Duration:  dur,
		Buffered:  buffered,
		Delay:     delay,
		Connected: connected,
		Volume:    p.output.Volume(),
		Muted:     p.output.IsMuted(),
		Bitrate:   p.config.Bitrate,
	}
}

// SetVolume adjusts output volume
func (p *Player) SetVolume(volume int) {
	p.output.SetVolume(volume)
}

// ToggleMute flips mute state
func (p *Player) ToggleMute() {
	p.output.SetMuted(!p.output.IsMuted())
}

// Stop stops the player
func (p *Player) Stop() {
	p.cancel()

	if p.agent != nil {
		p.agent.Stop()
	}
	if p.client != nil {
		p.client.Close()
	}
	if p.decoder != nil {
		p.decoder.Close()
	}
	p.output.Close()
}
