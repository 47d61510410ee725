// ABOUTME: WebSocket broadcast server for the Unison protocol
// ABOUTME: Serves chunk requests against the playback session and pushes events
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/unison-audio/unison-go/internal/discovery"
	"github.com/unison-audio/unison-go/internal/playlist"
	"github.com/unison-audio/unison-go/internal/protocol"
	"github.com/unison-audio/unison-go/internal/session"
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
}

// Server accepts listener connections and answers chunk requests from the
// shared playback session
type Server struct {
	config  Config
	session *session.Session

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*client
	clientsMu sync.RWMutex

	mdnsManager *discovery.Manager

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// client is one connected listener. All writes go through sendChan so a
// single goroutine owns the connection's write side.
type client struct {
	id       string
	conn     *websocket.Conn
	sendChan chan interface{} // protocol.Message or []byte binary frame
}

// New creates a server bound to a playback session
func New(config Config, sess *session.Session) *Server {
	return &Server{
		config:  config,
		session: sess,
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Trusted local network deployment, same stance for
				// browser and non-browser clients
				return true
			},
		},
		clients:  make(map[string]*client),
		stopChan: make(chan struct{}),
	}
}

// Start runs the server until Stop is called or the listener fails
func (s *Server) Start() error {
	log.Printf("Server starting: %s", s.config.Name)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			ServerMode:  true,
		})
		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		}
	}

	s.mux.HandleFunc("/unison", s.handleWebSocket)

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("WebSocket server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// handleWebSocket upgrades and hands off a connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New listener from %s", r.RemoteAddr)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.handleConnection(conn)
	}()
}

// handleConnection manages one listener until it disconnects
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{
		id:       uuid.New().String(),
		conn:     conn,
		sendChan: make(chan interface{}, 32),
	}

	s.clientsMu.Lock()
	s.clients[c.id] = c
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, c.id)
		s.clientsMu.Unlock()
		log.Printf("Listener disconnected: %s", c.id)
	}()

	done := make(chan struct{})
	defer close(done)

	go s.writeLoop(c, done)
	go s.forwardEvents(c, done)

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("Bad message from %s: %v", c.id, err)
			continue
		}
		s.handleMessage(c, msg)
	}
}

// writeLoop owns the connection's write side
func (s *Server) writeLoop(c *client, done chan struct{}) {
	for {
		select {
		case out := <-c.sendChan:
			var err error
			switch v := out.(type) {
			case []byte:
				err = c.conn.WriteMessage(websocket.BinaryMessage, v)
			default:
				err = c.conn.WriteJSON(v)
			}
			if err != nil {
				log.Printf("Write to %s failed: %v", c.id, err)
				return
			}
		case <-done:
			return
		}
	}
}

// forwardEvents pushes session notifications to this listener
func (s *Server) forwardEvents(c *client, done chan struct{}) {
	events := s.session.Notifier().Subscribe()
	defer s.session.Notifier().Unsubscribe(events)

	for {
		select {
		case event := <-events:
			switch event {
			case session.EventNewSet:
				s.send(c, protocol.Message{Type: protocol.TypeNewSet})
			case session.EventChangedState:
				s.send(c, protocol.Message{Type: protocol.TypeChangedState})
			}
		case <-done:
			return
		}
	}
}

// handleMessage dispatches one client request
func (s *Server) handleMessage(c *client, msg protocol.Message) {
	switch msg.Type {
	case protocol.TypeFetchSynced:
		var req protocol.FetchSyncedChunk
		if err := decodePayload(msg.Payload, &req); err != nil {
			log.Printf("Bad fetch-synced payload: %v", err)
			return
		}
		chunk, status, err := s.session.CurrentChunk(playlist.Bitrate(req.Bitrate))
		if err != nil {
			log.Printf("fetch-synced: %v", err)
			return
		}
		s.send(c, protocol.Message{Type: protocol.TypeStatus, Payload: protocol.StatusAck{Status: status}})
		if chunk != nil {
			s.send(c, protocol.MarshalChunk(protocol.ChunkSynced, chunk))
		}

	case protocol.TypeFetchPage:
		var req protocol.FetchChunkFromPage
		if err := decodePayload(msg.Payload, &req); err != nil {
			log.Printf("Bad fetch-page payload: %v", err)
			return
		}
		chunk, status, err := s.session.NextChunk(req.PageStart, playlist.Bitrate(req.Bitrate))
		if err != nil {
			log.Printf("fetch-page: %v", err)
			return
		}
		s.send(c, protocol.Message{Type: protocol.TypeStatus, Payload: protocol.StatusAck{Status: status}})
		if chunk != nil {
			s.send(c, protocol.MarshalChunk(protocol.ChunkPaged, chunk))
		}

	case protocol.TypeFetchSetInfo:
		s.sendSetInformation(c)

	default:
		log.Printf("Unknown message type from %s: %s", c.id, msg.Type)
	}
}

// sendSetInformation pushes the current set's metadata and cover image
func (s *Server) sendSetInformation(c *client) {
	set := s.session.Playlist().Current()

	info := protocol.SetInformation{
		Title:  set.Title,
		Author: set.Author,
	}

	var cover []byte
	if set.CoverFile != "" {
		data, err := os.ReadFile(set.CoverFile)
		if err != nil {
			log.Printf("Cover file unreadable: %v", err)
		} else {
			info.CoverMime = imageMimeType(set.CoverFile)
			cover = data
		}
	}

	s.send(c, protocol.Message{Type: protocol.TypeSetInformation, Payload: info})
	if cover != nil {
		s.send(c, protocol.MarshalCover(cover))
	}
}

// send queues an outbound message, dropping it if the listener is backed up
func (s *Server) send(c *client, out interface{}) {
	select {
	case c.sendChan <- out:
	default:
		log.Printf("Warning: dropping message to %s (channel full)", c.id)
	}
}

func decodePayload(payload interface{}, dst interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dst)
}

// imageMimeTypes maps cover file extensions to mime types
var imageMimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

func imageMimeType(path string) string {
	if mime, ok := imageMimeTypes[filepath.Ext(path)]; ok {
		return mime
	}
	return "application/octet-stream"
}
