// Package discovery implements the single-instance registry: a small
// triple of files (port, pid, nonce) in a well-known per-user cache
// directory that lets producers find the running event bus in O(1) and
// detect a stale owner left behind by a crash.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/devloop-tools/eventbus/internal/logging"
)

const productNamespace = "eventbus"

const (
	portFile  = "port"
	pidFile   = "pid"
	nonceFile = "nonce"
)

// Registry manages the discovery triple in dir.
type Registry struct {
	dir string
}

// New returns a Registry rooted at dir, or, if dir is empty, at the
// platform's per-user cache directory under the product namespace.
func New(dir string) (*Registry, error) {
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("resolve user cache dir: %w", err)
		}
		dir = filepath.Join(base, productNamespace)
	}
	return &Registry{dir: dir}, nil
}

// Owner describes a live discovery triple.
type Owner struct {
	Port  int
	PID   int
	Nonce string
}

// ReadPort returns the port of the currently registered owner, verified
// alive via a null-signal liveness probe. If the triple is missing,
// unparseable, or the pid is no longer alive, it is removed (best-effort)
// and ok is false.
func (r *Registry) ReadPort() (port int, ok bool) {
	owner, ok := r.ReadOwner()
	if !ok {
		return 0, false
	}
	return owner.Port, true
}

// ReadOwner is ReadPort's richer form, also exposing the pid and nonce so
// callers can name the conflicting process (startup's single-instance
// guard) or assert they are still talking to the same instance across
// restarts.
func (r *Registry) ReadOwner() (Owner, bool) {
	portStr, err1 := r.readFile(portFile)
	pidStr, err2 := r.readFile(pidFile)
	nonceStr, _ := r.readFile(nonceFile)

	if err1 != nil || err2 != nil {
		r.Clear()
		return Owner{}, false
	}

	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil || port < 1 || port > 65535 {
		r.Clear()
		return Owner{}, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(pidStr))
	if err != nil || pid <= 0 {
		r.Clear()
		return Owner{}, false
	}

	if !processAlive(pid) {
		r.Clear()
		return Owner{}, false
	}

	return Owner{Port: port, PID: pid, Nonce: strings.TrimSpace(nonceStr)}, true
}

// WriteTriple ensures the registry directory exists and writes port, pid,
// and a fresh nonce. Order of writes tolerates a crash between steps: a
// partial triple is caught and repaired by the next ReadPort call.
func (r *Registry) WriteTriple(port, pid int) (nonce string, err error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create discovery dir: %w", err)
	}

	nonce = newNonce()
	if err := r.writeFile(nonceFile, nonce); err != nil {
		return "", err
	}
	if err := r.writeFile(pidFile, strconv.Itoa(pid)); err != nil {
		return "", err
	}
	if err := r.writeFile(portFile, strconv.Itoa(port)); err != nil {
		return "", err
	}
	return nonce, nil
}

// Clear best-effort unlinks the triple. It never fails loudly — a missing
// file is not an error, and any other error is logged and swallowed.
func (r *Registry) Clear() {
	for _, name := range []string{portFile, pidFile, nonceFile} {
		path := filepath.Join(r.dir, name)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn().Err(err).Str("file", path).Msg("failed to remove discovery file")
		}
	}
}

func (r *Registry) readFile(name string) (string, error) {
	b, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *Registry) writeFile(name, content string) error {
	path := filepath.Join(r.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newNonce() string {
	return uuid.New().String()[:8]
}
