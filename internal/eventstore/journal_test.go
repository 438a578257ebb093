package eventstore

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"

	"github.com/devloop-tools/eventbus/internal/envelope"
)

func TestJournalAppendWritesOneLinePerEnvelope(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")

	s, err := New(10, path)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	defer s.Close()

	for i := 0; i < 3; i++ {
		s.Push(mustEnvelope(t, "hook.pre_tool_use"))
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	if lines != 3 {
		t.Errorf("journal has %d lines, want 3", lines)
	}
}

func TestJournalRotationCreatesRotatedAndActiveFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.jsonl")

	j, err := newJournal(path)
	if err != nil {
		t.Fatalf("newJournal returned error: %v", err)
	}
	defer j.close()

	// Force a rotation without writing 10MiB of real data.
	j.size = maxJournalBytes
	env, _ := envelope.CreateEvent("hook.stop", map[string]interface{}{}, envelope.Context{
		App: "a", AppRoot: "/p", Source: envelope.SourceHook,
	})
	if err := j.append(env); err != nil {
		t.Fatalf("append after forced rotation returned error: %v", err)
	}

	if _, err := os.Stat(rotatedPath(path, 1)); err != nil {
		t.Errorf("expected rotated file %s to exist: %v", rotatedPath(path, 1), err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected active journal file to exist after rotation: %v", err)
	}
}

func TestNewJournalFailsOnMissingDirectory(t *testing.T) {
	_, err := newJournal("/nonexistent-dir/journal.jsonl")
	if err == nil {
		t.Error("expected newJournal to fail for a nonexistent directory")
	}
}
