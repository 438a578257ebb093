package discovery

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewUsesOverrideDir(t *testing.T) {
	dir := t.TempDir()
	r, err := New(dir)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if r.dir != dir {
		t.Errorf("dir = %s, want %s", r.dir, dir)
	}
}

func TestNewFallsBackToUserCacheDir(t *testing.T) {
	r, err := New("")
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if filepath.Base(r.dir) != productNamespace {
		t.Errorf("dir = %s, want basename %s", r.dir, productNamespace)
	}
}

func TestReadPortOnEmptyDirReportsNotFound(t *testing.T) {
	r, _ := New(t.TempDir())
	if _, ok := r.ReadPort(); ok {
		t.Error("expected ReadPort to report not found on empty dir")
	}
}

func TestWriteTripleThenReadPortRoundTrips(t *testing.T) {
	r, _ := New(t.TempDir())
	nonce, err := r.WriteTriple(4317, os.Getpid())
	if err != nil {
		t.Fatalf("WriteTriple returned error: %v", err)
	}
	if nonce == "" {
		t.Fatal("expected a non-empty nonce")
	}

	port, ok := r.ReadPort()
	if !ok {
		t.Fatal("expected ReadPort to succeed after WriteTriple")
	}
	if port != 4317 {
		t.Errorf("port = %d, want 4317", port)
	}

	owner, ok := r.ReadOwner()
	if !ok {
		t.Fatal("expected ReadOwner to succeed")
	}
	if owner.Nonce != nonce {
		t.Errorf("Nonce = %s, want %s", owner.Nonce, nonce)
	}
}

func TestReadPortRemovesTripleForDeadPID(t *testing.T) {
	r, _ := New(t.TempDir())
	// A pid that is vanishingly unlikely to be alive.
	if _, err := r.WriteTriple(4317, 999999); err != nil {
		t.Fatalf("WriteTriple returned error: %v", err)
	}

	if _, ok := r.ReadPort(); ok {
		t.Error("expected ReadPort to report not found for a dead pid")
	}

	if _, err := os.Stat(filepath.Join(r.dir, portFile)); !os.IsNotExist(err) {
		t.Error("expected stale port file to be removed")
	}
}

func TestReadPortRemovesTripleOnUnparseablePort(t *testing.T) {
	dir := t.TempDir()
	r, _ := New(dir)
	os.WriteFile(filepath.Join(dir, portFile), []byte("not-a-port"), 0o644)
	os.WriteFile(filepath.Join(dir, pidFile), []byte("123"), 0o644)

	if _, ok := r.ReadPort(); ok {
		t.Error("expected ReadPort to report not found for an unparseable port")
	}
}

func TestClearIsIdempotentOnMissingFiles(t *testing.T) {
	r, _ := New(t.TempDir())
	r.Clear()
	r.Clear()
}

func TestWriteTripleCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "registry")
	r, _ := New(dir)
	if _, err := r.WriteTriple(1234, os.Getpid()); err != nil {
		t.Fatalf("WriteTriple returned error: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("expected directory to be created: %v", err)
	}
}
