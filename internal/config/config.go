// ABOUTME: Runtime configuration loaded from environment variables
// ABOUTME: Covers chunking limits, client fetch tuning and server timers
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all tunable knobs, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Chunking
	ChunkDuration       float64 // minimum seconds of audio per served chunk
	MaxSecondsLoadAhead float64 // look-ahead ceiling before INVALID

	// Completion watch
	WatchInterval time.Duration // completion-watch tick
	AdvanceSettle time.Duration // settle delay before advancing the playlist

	// Client fetch loop
	FetchInterval  time.Duration // fetch-ahead poll interval
	FetchThreshold float64       // minimum buffered-ahead seconds before fetching
	MaxOutOfSync   float64       // drift in seconds that triggers a resync
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port: envInt("UNISON_PORT", 8930),

		ChunkDuration:       envFloat("UNISON_CHUNK_DURATION", 2.0),
		MaxSecondsLoadAhead: envFloat("UNISON_MAX_LOAD_AHEAD", 30.0),

		WatchInterval: envDuration("UNISON_WATCH_INTERVAL", time.Second),
		AdvanceSettle: envDuration("UNISON_ADVANCE_SETTLE", 2*time.Second),

		FetchInterval:  envDuration("UNISON_FETCH_INTERVAL", 200*time.Millisecond),
		FetchThreshold: envFloat("UNISON_FETCH_THRESHOLD", 10.0),
		MaxOutOfSync:   envFloat("UNISON_MAX_OUT_OF_SYNC", 5.0),
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
