// Package config loads event bus configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds all runtime configuration for the event bus daemon.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Voice     VoiceConfig     `koanf:"voice"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP/WebSocket listener settings.
type ServerConfig struct {
	// Host is the bind address. Default: 127.0.0.1 (loopback only, single-host).
	Host string `koanf:"host"`

	// Port is the listen port. 0 means "let the OS pick" (used by tests and
	// by multi-instance-safe startup before the discovery triple is written).
	Port int `koanf:"port"`

	// DefaultApp is the app name assumed for envelopes that omit one.
	DefaultApp string `koanf:"default_app"`

	// DefaultAppRoot is the filesystem root assumed for the default app.
	DefaultAppRoot string `koanf:"default_app_root"`

	// RequestTimeout bounds how long a single HTTP handler may run.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// StoreConfig holds ring buffer and journal settings.
type StoreConfig struct {
	// Capacity is the number of envelopes retained in memory.
	Capacity int `koanf:"capacity"`

	// PersistPath is the JSONL journal file path. Empty disables persistence.
	PersistPath string `koanf:"persist_path"`
}

// VoiceConfig holds playback queue settings.
type VoiceConfig struct {
	Enabled bool `koanf:"enabled"`

	// MaxDepth caps the number of queued items; enqueue past this drops silently.
	MaxDepth int `koanf:"max_depth"`

	// MaxAgeMs is the oldest an item may be when dequeued before it is skipped.
	MaxAgeMs int `koanf:"max_age_ms"`

	// MaxPlayMs is the wall-clock budget for a single playback before it is killed.
	MaxPlayMs int `koanf:"max_play_ms"`

	// PlayerCommand is the executable used to play a clip, e.g. "afplay" or "aplay".
	PlayerCommand string `koanf:"player_command"`

	// ClipDir is the directory synthesized audio clips are read from.
	ClipDir string `koanf:"clip_dir"`
}

// DiscoveryConfig holds process-discovery file placement overrides.
type DiscoveryConfig struct {
	// Dir overrides the well-known per-user cache directory used to locate
	// the running instance's port/pid/nonce triple. Empty uses the default.
	Dir string `koanf:"dir"`
}

// LoggingConfig mirrors internal/logging.Config for koanf tagging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks that loaded configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Store.Capacity <= 0 {
		return fmt.Errorf("store.capacity must be positive, got %d", c.Store.Capacity)
	}
	if c.Voice.Enabled {
		if c.Voice.MaxDepth <= 0 {
			return fmt.Errorf("voice.max_depth must be positive when voice is enabled, got %d", c.Voice.MaxDepth)
		}
		if c.Voice.MaxPlayMs <= 0 {
			return fmt.Errorf("voice.max_play_ms must be positive when voice is enabled, got %d", c.Voice.MaxPlayMs)
		}
		if c.Voice.PlayerCommand == "" {
			return fmt.Errorf("voice.player_command is required when voice is enabled")
		}
	}
	return nil
}
