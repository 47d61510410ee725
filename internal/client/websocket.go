// ABOUTME: WebSocket client for the Unison broadcast protocol
// ABOUTME: Handles connection, request sending and message routing
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/unison-audio/unison-go/internal/protocol"
)

// Config holds client configuration
type Config struct {
	ServerAddr string
}

// Client is a WebSocket connection to a broadcast server. Incoming
// messages are routed onto typed channels.
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex

	SyncedChunks chan *protocol.AudioChunk
	PagedChunks  chan *protocol.AudioChunk
	Statuses     chan protocol.StatusAck
	SetInfo      chan protocol.SetInformation
	Covers       chan []byte
	NewSet       chan struct{}
	ChangedState chan struct{}

	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClient creates a client for a server address
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		config:       config,
		SyncedChunks: make(chan *protocol.AudioChunk, 4),
		PagedChunks:  make(chan *protocol.AudioChunk, 4),
		Statuses:     make(chan protocol.StatusAck, 4),
		SetInfo:      make(chan protocol.SetInformation, 4),
		Covers:       make(chan []byte, 1),
		NewSet:       make(chan struct{}, 4),
		ChangedState: make(chan struct{}, 4),
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Connect establishes the WebSocket connection
func (c *Client) Connect() error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: "/unison"}
	log.Printf("Connecting to %s", u.String())

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readMessages()

	return nil
}

// FetchSyncedChunk asks for the chunk at the server's live position
func (c *Client) FetchSyncedChunk(bitrate int) error {
	return c.sendJSON(protocol.Message{
		Type:    protocol.TypeFetchSynced,
		Payload: protocol.FetchSyncedChunk{Bitrate: bitrate},
	})
}

// FetchChunkFromPage asks for the chunk starting at pageStart
func (c *Client) FetchChunkFromPage(bitrate, pageStart int) error {
	return c.sendJSON(protocol.Message{
		Type:    protocol.TypeFetchPage,
		Payload: protocol.FetchChunkFromPage{Bitrate: bitrate, PageStart: pageStart},
	})
}

// FetchSetInformation asks for the current set's metadata and cover
func (c *Client) FetchSetInformation() error {
	return c.sendJSON(protocol.Message{Type: protocol.TypeFetchSetInfo})
}

func (c *Client) sendJSON(msg protocol.Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.connected {
		return fmt.Errorf("not connected")
	}
	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer c.Close()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Printf("Read error: %v", err)
			return
		}

		if messageType == websocket.BinaryMessage {
			c.handleBinaryMessage(data)
		} else if messageType == websocket.TextMessage {
			c.handleJSONMessage(data)
		}
	}
}

// handleBinaryMessage routes audio chunk and cover frames
func (c *Client) handleBinaryMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	switch data[0] {
	case protocol.FrameAudioChunk:
		kind, chunk, err := protocol.ParseChunk(data)
		if err != nil {
			log.Printf("Bad chunk frame: %v", err)
			return
		}
		target := c.PagedChunks
		if kind == protocol.ChunkSynced {
			target = c.SyncedChunks
		}
		select {
		case target <- chunk:
		case <-c.ctx.Done():
		}

	case protocol.FrameCoverImage:
		select {
		case c.Covers <- data[1:]:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown binary frame type: %d", data[0])
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("Failed to parse JSON message: %v", err)
		return
	}

	payloadBytes, _ := json.Marshal(msg.Payload)

	switch msg.Type {
	case protocol.TypeStatus:
		var ack protocol.StatusAck
		if err := json.Unmarshal(payloadBytes, &ack); err != nil {
			log.Printf("Bad status ack: %v", err)
			return
		}
		select {
		case c.Statuses <- ack:
		case <-c.ctx.Done():
		}

	case protocol.TypeSetInformation:
		var info protocol.SetInformation
		if err := json.Unmarshal(payloadBytes, &info); err != nil {
			log.Printf("Bad set information: %v", err)
			return
		}
		select {
		case c.SetInfo <- info:
		case <-c.ctx.Done():
		}

	case protocol.TypeNewSet:
		select {
		case c.NewSet <- struct{}{}:
		case <-c.ctx.Done():
		}

	case protocol.TypeChangedState:
		select {
		case c.ChangedState <- struct{}{}:
		case <-c.ctx.Done():
		}

	default:
		log.Printf("Unknown message type: %s", msg.Type)
	}
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		log.Printf("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
