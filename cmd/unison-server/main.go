// ABOUTME: Entry point for the Unison broadcast server
// ABOUTME: Parses CLI flags, restores saved state and starts playback
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/unison-audio/unison-go/internal/config"
	"github.com/unison-audio/unison-go/internal/playlist"
	"github.com/unison-audio/unison-go/internal/server"
	"github.com/unison-audio/unison-go/internal/session"
)

var (
	playlistPath = flag.String("playlist", "", "Path to the playlist JSON file (required)")
	port         = flag.Int("port", 0, "WebSocket server port (default: UNISON_PORT or 8930)")
	name         = flag.String("name", "", "Server friendly name (default: hostname-unison-server)")
	logFile      = flag.String("log-file", "unison-server.log", "Log file path")
	loop         = flag.Bool("loop", false, "Repeat the current set instead of advancing")
	useState     = flag.Bool("usestate", false, "Persist and restore playback state across restarts")
	setIndex     = flag.Int("setindex", -1, "Override the starting set index")
	startTime    = flag.String("starttime", "", "Start offset into the set as seconds or H:MM[:SS]")
	noMDNS       = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
)

func main() {
	flag.Parse()

	godotenv.Load()

	// Log to both file and stdout
	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()
	log.SetOutput(io.MultiWriter(os.Stdout, f))

	if *playlistPath == "" {
		flag.Usage()
		log.Fatalf("-playlist is required")
	}

	cfg := config.Load()
	if *port != 0 {
		cfg.Port = *port
	}

	serverName := *name
	if serverName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		serverName = fmt.Sprintf("%s-unison-server", hostname)
	}

	pl, err := playlist.Load(*playlistPath)
	if err != nil {
		log.Fatalf("Playlist error: %v", err)
	}
	log.Printf("Loaded playlist with %d sets (hash %s)", pl.Len(), pl.Hash())

	sess := session.New(pl, cfg, *loop)
	defer sess.Close()

	stateManager, err := session.NewStateManager(sess, *useState)
	if err != nil {
		log.Fatalf("State manager error: %v", err)
	}
	restored := stateManager.Load()
	stateManager.AutoSave()

	if *setIndex >= 0 {
		if err := sess.SetState(setIndex, nil, nil); err != nil {
			log.Fatalf("Invalid set index %d: %v", *setIndex, err)
		}
	}

	if err := startPlayback(sess, restored, *startTime); err != nil {
		log.Fatalf("Playback error: %v", err)
	}

	srv := server.New(server.Config{
		Port:       cfg.Port,
		Name:       serverName,
		EnableMDNS: !*noMDNS,
	}, sess)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down gracefully...", sig)
		srv.Stop()
	}()

	log.Printf("Starting Unison server: %s on port %d", serverName, cfg.Port)
	if err := srv.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Printf("Server stopped")
}

// startPlayback begins playback of the current set. An explicit start
// offset wins over restored state.
func startPlayback(sess *session.Session, restored bool, startTime string) error {
	if startTime != "" {
		forwarded, err := parseStartTime(startTime)
		if err != nil {
			return err
		}
		log.Printf("Starting %v into the set", forwarded)
		return sess.PlayAt(forwarded, time.Now())
	}
	if restored {
		log.Printf("Resuming from saved state")
		return sess.PlayAtForwarded()
	}
	return sess.PlayAtStart()
}

// parseStartTime parses a plain seconds count or an H:MM[:SS] offset
func parseStartTime(value string) (time.Duration, error) {
	if !strings.Contains(value, ":") {
		secs, err := strconv.Atoi(value)
		if err != nil || secs < 0 {
			return 0, fmt.Errorf("invalid start time %q, expected seconds or H:MM[:SS]", value)
		}
		return time.Duration(secs) * time.Second, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid start time %q, expected H:MM or H:MM:SS", value)
	}

	var units [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid start time %q, expected H:MM or H:MM:SS", value)
		}
		units[i] = n
	}
	if units[1] > 59 || (len(parts) == 3 && units[2] > 59) {
		return 0, fmt.Errorf("invalid start time %q, minutes and seconds must be below 60", value)
	}

	return time.Duration(units[0])*time.Hour +
		time.Duration(units[1])*time.Minute +
		time.Duration(units[2])*time.Second, nil
}
