package eventstore

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/devloop-tools/eventbus/internal/envelope"
)

const (
	maxJournalBytes = 10 << 20 // 10 MiB
	maxRotatedFiles = 5
)

// journal is an append-only, size-rotated JSONL file. One envelope per
// line, LF-terminated. Rotation and append errors are absorbed by the
// caller (Store) — persistence is best-effort, never fatal to ingestion.
type journal struct {
	mu   sync.Mutex
	path string
	file *os.File
	size int64

	errors atomic.Int64
}

func newJournal(path string) (*journal, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal %s: %w", path, err)
	}
	return &journal{path: path, file: f, size: info.Size()}, nil
}

// append rotates the journal if it has crossed the size threshold, then
// writes one JSON line. Rotation failures are swallowed; append continues
// against whatever file is currently open.
func (j *journal) append(e *envelope.Envelope) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.size >= maxJournalBytes {
		j.rotateLocked()
	}
	if j.file == nil {
		j.errors.Add(1)
		return fmt.Errorf("journal file unavailable after rotation")
	}

	b, err := envelope.Marshal(e)
	if err != nil {
		j.errors.Add(1)
		return fmt.Errorf("marshal envelope: %w", err)
	}
	b = append(b, '\n')

	n, err := j.file.Write(b)
	if err != nil {
		j.errors.Add(1)
		return fmt.Errorf("write journal line: %w", err)
	}
	j.size += int64(n)
	return nil
}

// rotateLocked shifts .4->.5 (deleting any existing .5), ..., .1->.2, and
// the active file to .1, then reopens an empty active file. Any failure
// along the chain is swallowed — the journal simply keeps writing to
// whichever file ends up open, which may still be the oversized original.
func (j *journal) rotateLocked() {
	if err := j.file.Close(); err != nil {
		return
	}

	for i := maxRotatedFiles - 1; i >= 1; i-- {
		src := rotatedPath(j.path, i)
		dst := rotatedPath(j.path, i+1)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		_ = os.Remove(dst)
		_ = os.Rename(src, dst)
	}
	_ = os.Rename(j.path, rotatedPath(j.path, 1))

	f, err := os.OpenFile(j.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		// Leave j.file closed; subsequent appends will fail and be counted.
		j.file = nil
		return
	}
	j.file = f
	j.size = 0
}

func rotatedPath(base string, n int) string {
	return fmt.Sprintf("%s.%d", base, n)
}

func (j *journal) errorCount() int64 {
	return j.errors.Load()
}

func (j *journal) close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.file == nil {
		return nil
	}
	return j.file.Close()
}
