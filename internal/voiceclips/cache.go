// Package voiceclips resolves a (agentType, phase) pair to a pre-rendered
// audio clip. Generating the underlying audio is out of scope here; this
// package only loads and looks up a manifest describing what already
// exists on disk.
package voiceclips

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// Clip is one playable notification: a short label, the text it speaks,
// and the path to its rendered audio file.
type Clip struct {
	AgentType string `json:"agentType"`
	Phase     string `json:"phase"`
	Label     string `json:"label"`
	Text      string `json:"text"`
	File      string `json:"file"`
}

// Cache is an immutable, in-memory index of available clips, keyed by
// agentType and phase.
type Cache struct {
	clips map[string]Clip
}

func key(agentType, phase string) string {
	return agentType + "|" + phase
}

// Empty returns a cache with no clips; every Resolve call reports not
// cached. Used when voice is disabled or no clip directory is configured.
func Empty() *Cache {
	return &Cache{clips: map[string]Clip{}}
}

// Load reads dir/manifest.json — a JSON array of Clip entries whose File
// field is relative to dir — and resolves each File to an absolute path.
// A missing manifest is not an error: it yields an empty cache, since a
// fresh install has no rendered clips yet.
func Load(dir string) (*Cache, error) {
	manifestPath := filepath.Join(dir, "manifest.json")
	b, err := os.ReadFile(manifestPath)
	if os.IsNotExist(err) {
		return Empty(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read voice clip manifest: %w", err)
	}

	var entries []Clip
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("parse voice clip manifest: %w", err)
	}

	clips := make(map[string]Clip, len(entries))
	for _, c := range entries {
		if !filepath.IsAbs(c.File) {
			c.File = filepath.Join(dir, c.File)
		}
		clips[key(c.AgentType, c.Phase)] = c
	}
	return &Cache{clips: clips}, nil
}

// Resolve looks up the clip for agentType and phase. ok is false if no
// clip was ever registered for that pair, or if its file is no longer
// present on disk.
func (c *Cache) Resolve(agentType, phase string) (Clip, bool) {
	clip, ok := c.clips[key(agentType, phase)]
	if !ok {
		return Clip{}, false
	}
	if _, err := os.Stat(clip.File); err != nil {
		return Clip{}, false
	}
	return clip, true
}

// KnowsAgent reports whether any phase is registered for agentType, so a
// caller can distinguish an unrecognized agent from one with a merely
// uncached phase.
func (c *Cache) KnowsAgent(agentType string) bool {
	prefix := agentType + "|"
	for k := range c.clips {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true
		}
	}
	return false
}
