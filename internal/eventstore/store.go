// Package eventstore implements the event bus's bounded ring buffer and its
// optional append-only JSONL journal.
package eventstore

import (
	"sync"
	"time"

	"github.com/devloop-tools/eventbus/internal/envelope"
	"github.com/devloop-tools/eventbus/internal/logging"
	"github.com/devloop-tools/eventbus/internal/metrics"
)

// Query narrows a Store.Query call. A zero value matches everything, capped
// at the default limit.
type Query struct {
	Type  string
	Since time.Time
	Limit int
}

const defaultQueryLimit = 100
const maxQueryLimit = 1000

// Store is a fixed-capacity, single-writer/multi-reader ring buffer of
// envelopes with an optional best-effort durable journal.
type Store struct {
	mu       sync.RWMutex
	buf      []*envelope.Envelope
	capacity int
	cursor   int
	size     int
	nextSeq  uint64

	journal *journal // nil when persistence is disabled

	failMu       sync.Mutex
	lastFailLog  time.Time
	failLogEvery time.Duration
}

// New creates a Store with the given capacity and, if persistPath is
// non-empty, a rotating JSONL journal at that path.
func New(capacity int, persistPath string) (*Store, error) {
	if capacity <= 0 {
		capacity = 1000
	}

	s := &Store{
		buf:          make([]*envelope.Envelope, capacity),
		capacity:     capacity,
		failLogEvery: 30 * time.Second,
	}

	if persistPath != "" {
		j, err := newJournal(persistPath)
		if err != nil {
			return nil, err
		}
		s.journal = j
	}

	return s, nil
}

// Push inserts an envelope at the write cursor, evicting the oldest entry
// once at capacity, then attempts a best-effort journal append.
func (s *Store) Push(e *envelope.Envelope) {
	s.mu.Lock()
	s.nextSeq++
	e.SetSeq(s.nextSeq)
	s.buf[s.cursor] = e
	s.cursor = (s.cursor + 1) % s.capacity
	if s.size < s.capacity {
		s.size++
	}
	size := s.size
	s.mu.Unlock()

	metrics.SetStoreSize(size)
	metrics.RecordIngest(e.Type)

	if s.journal != nil {
		if err := s.journal.append(e); err != nil {
			metrics.RecordPersistError()
			s.logPersistFailure(err)
		}
	}
}

// logPersistFailure emits at most one warning per failLogEvery to stderr
// via the structured logger, even under a burst of consecutive failures.
func (s *Store) logPersistFailure(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()

	now := time.Now()
	if now.Sub(s.lastFailLog) < s.failLogEvery {
		return
	}
	s.lastFailLog = now
	logging.Warn().Err(err).Msg("journal append failed")
}

// Query returns a chronologically ordered slice matching the given filters.
// Filters compose: type, then timestamp > since (strict), then the last
// limit entries. A non-positive limit after defaulting returns nothing.
func (s *Store) Query(q Query) []*envelope.Envelope {
	limit := q.Limit
	if limit == 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	if limit <= 0 {
		return nil
	}

	s.mu.RLock()
	ordered := s.orderedLocked()
	s.mu.RUnlock()

	filtered := make([]*envelope.Envelope, 0, len(ordered))
	for _, e := range ordered {
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if !q.Since.IsZero() {
			ts, err := time.Parse("2006-01-02T15:04:05.000Z", e.Timestamp)
			if err == nil && !ts.After(q.Since) {
				continue
			}
		}
		filtered = append(filtered, e)
	}

	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return filtered
}

// Last returns the newest n envelopes in chronological order.
func (s *Store) Last(n int) []*envelope.Envelope {
	if n <= 0 {
		return nil
	}
	s.mu.RLock()
	ordered := s.orderedLocked()
	s.mu.RUnlock()

	if n > len(ordered) {
		n = len(ordered)
	}
	return ordered[len(ordered)-n:]
}

// orderedLocked returns all live envelopes in insertion order. Callers must
// hold at least a read lock.
func (s *Store) orderedLocked() []*envelope.Envelope {
	out := make([]*envelope.Envelope, 0, s.size)
	if s.size < s.capacity {
		out = append(out, s.buf[:s.size]...)
		return out
	}
	out = append(out, s.buf[s.cursor:]...)
	out = append(out, s.buf[:s.cursor]...)
	return out
}

// Size returns the current number of stored envelopes.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// TypeCounts returns the number of stored envelopes per type. The sum of
// values always equals Size().
func (s *Store) TypeCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	if s.size < s.capacity {
		for _, e := range s.buf[:s.size] {
			counts[e.Type]++
		}
		return counts
	}
	for _, e := range s.buf {
		counts[e.Type]++
	}
	return counts
}

// PersistErrors returns the number of journal append failures observed.
// Exposed for /health; callers should prefer the metrics registry for
// anything beyond a point-in-time read.
func (s *Store) PersistErrors() int64 {
	if s.journal == nil {
		return 0
	}
	return s.journal.errorCount()
}

// Close releases the journal's file handle, if any.
func (s *Store) Close() error {
	if s.journal == nil {
		return nil
	}
	return s.journal.close()
}
