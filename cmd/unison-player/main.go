// ABOUTME: Entry point for the Unison listening client
// ABOUTME: Discovers or dials a server, then runs the player and TUI
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/unison-audio/unison-go/internal/app"
	"github.com/unison-audio/unison-go/internal/config"
	"github.com/unison-audio/unison-go/internal/discovery"
	"github.com/unison-audio/unison-go/internal/ui"
	"github.com/unison-audio/unison-go/internal/version"
)

var (
	serverAddr = flag.String("server", "", "Server address host:port (default: discover via mDNS)")
	name       = flag.String("name", "", "Player name (default: hostname)")
	bitrate    = flag.Int("bitrate", 128, "Requested stream bitrate in kbit/s (128, 96 or 64)")
	noTUI      = flag.Bool("no-tui", false, "Run headless without the terminal UI")
	logFile    = flag.String("log-file", "unison-player.log", "Log file path")
)

const discoveryTimeout = 10 * time.Second

func main() {
	flag.Parse()

	godotenv.Load()

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}
	defer f.Close()

	// The TUI owns the terminal, so logs go to the file only unless headless
	if *noTUI {
		log.SetOutput(io.MultiWriter(os.Stdout, f))
	} else {
		log.SetOutput(f)
	}

	playerName := *name
	if playerName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unison-player"
		}
		playerName = hostname
	}

	log.Printf("Starting %s %s as '%s'", version.Product, version.Version, playerName)

	addr := *serverAddr
	if addr == "" {
		addr, err = discoverServer()
		if err != nil {
			log.Fatalf("Discovery failed: %v", err)
		}
	}

	cfg := config.Load()
	player := app.New(app.Config{
		ServerAddr: addr,
		Name:       playerName,
		Bitrate:    *bitrate,
	}, cfg)

	if err := player.Start(); err != nil {
		log.Fatalf("Player error: %v", err)
	}
	defer player.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if *noTUI {
		sig := <-sigChan
		log.Printf("Received %v signal, shutting down...", sig)
		return
	}

	runTUI(player, addr, sigChan)
}

// discoverServer browses mDNS for a broadcast server
func discoverServer() (string, error) {
	log.Printf("Browsing for broadcast servers...")

	manager := discovery.NewManager(discovery.Config{})
	defer manager.Stop()

	if err := manager.Browse(); err != nil {
		return "", err
	}

	select {
	case server := <-manager.Servers():
		return fmt.Sprintf("%s:%d", server.Host, server.Port), nil
	case <-time.After(discoveryTimeout):
		return "", fmt.Errorf("no server found within %v, pass -server", discoveryTimeout)
	}
}

// runTUI drives the terminal UI until quit or a signal
func runTUI(player *app.Player, addr string, sigChan chan os.Signal) {
	controls := ui.NewControls()
	prog, err := ui.Run(controls)
	if err != nil {
		log.Fatalf("TUI error: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := prog.Run(); err != nil {
			log.Printf("TUI stopped: %v", err)
		}
	}()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stats := player.Stats()
			prog.Send(ui.StatusMsg{
				Connected:  stats.Connected,
				ServerAddr: addr,
				Title:      stats.Title,
				Author:     stats.Author,
				Position:   stats.Position,
				Duration:   stats.Duration,
				Buffered:   stats.Buffered,
				Delay:      stats.Delay,
				Bitrate:    stats.Bitrate,
				Volume:     stats.Volume,
				Muted:      stats.Muted,
			})

		case volume := <-controls.VolumeChanges:
			player.SetVolume(volume)

		case <-controls.MuteToggles:
			player.ToggleMute()

		case <-controls.Quit:
			return

		case sig := <-sigChan:
			log.Printf("Received %v signal, shutting down...", sig)
			prog.Quit()
			<-done
			return

		case <-done:
			return
		}
	}
}
