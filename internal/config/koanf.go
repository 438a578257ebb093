package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists paths searched for a config file, in priority order.
var DefaultConfigPaths = []string{
	"eventbus.yaml",
	"eventbus.yml",
	"/etc/eventbus/eventbus.yaml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "EVENTBUS_CONFIG"

// envPrefix is stripped from environment variable names before they are
// lowercased and treated as dot-delimited koanf paths.
const envPrefix = "EVENTBUS_"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "127.0.0.1",
			Port:           0,
			DefaultApp:     "default",
			DefaultAppRoot: "",
			RequestTimeout: 5 * time.Second,
		},
		Store: StoreConfig{
			Capacity:    2000,
			PersistPath: "",
		},
		Voice: VoiceConfig{
			Enabled:       false,
			MaxDepth:      10,
			MaxAgeMs:      30000,
			MaxPlayMs:     15000,
			PlayerCommand: "",
			ClipDir:       "",
		},
		Discovery: DiscoveryConfig{
			Dir: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds a Config by layering, in increasing precedence:
//  1. built-in defaults
//  2. an optional YAML file (EVENTBUS_CONFIG, or the first of DefaultConfigPaths found)
//  3. environment variables prefixed EVENTBUS_
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps EVENTBUS_-suffixed environment variable names to koanf
// dot paths. An explicit table avoids ambiguity between a section separator
// and an underscore inside a multi-word field name (e.g. DEFAULT_APP_ROOT).
var envMappings = map[string]string{
	"server_host":             "server.host",
	"server_port":             "server.port",
	"server_default_app":      "server.default_app",
	"server_default_app_root": "server.default_app_root",
	"server_request_timeout":  "server.request_timeout",

	"store_capacity":     "store.capacity",
	"store_persist_path": "store.persist_path",

	"voice_enabled":        "voice.enabled",
	"voice_max_depth":      "voice.max_depth",
	"voice_max_age_ms":     "voice.max_age_ms",
	"voice_max_play_ms":    "voice.max_play_ms",
	"voice_player_command": "voice.player_command",
	"voice_clip_dir":       "voice.clip_dir",

	"discovery_dir": "discovery.dir",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps EVENTBUS_SERVER_PORT -> server.port, etc. Unmapped
// keys are skipped so stray EVENTBUS_-prefixed variables never pollute config.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
