// Package playback runs the serial voice notification queue: a bounded,
// age-aware FIFO that plays one clip at a time through an external audio
// command, never overlapping, never blocking its producers.
package playback

import (
	"context"
	"os/exec"
	"sync"
	"time"

	"github.com/devloop-tools/eventbus/internal/logging"
	"github.com/devloop-tools/eventbus/internal/metrics"
)

// Config configures queue bounds and the external player invocation.
type Config struct {
	MaxDepth      int
	MaxAge        time.Duration
	MaxPlay       time.Duration
	PlayerCommand string
}

// Item is one enqueued notification: a file to play and a label carried
// through for logging.
type Item struct {
	FilePath   string
	Label      string
	EnqueuedAt time.Time
}

// Queue is a single-consumer FIFO drain loop over items, wrapped as a
// suture.Service via Serve.
type Queue struct {
	cfg Config

	mu      sync.Mutex
	pending []Item
	playing bool
	proc    *exec.Cmd

	wake chan struct{}
}

// New creates an empty Queue.
func New(cfg Config) *Queue {
	return &Queue{
		cfg:  cfg,
		wake: make(chan struct{}, 1),
	}
}

// Enqueue appends item unless the queue is already at MaxDepth, in which
// case it is silently dropped — voice playback is non-critical and a
// backed-up queue should shed load rather than grow unbounded.
func (q *Queue) Enqueue(item Item) {
	q.mu.Lock()
	if len(q.pending) >= q.cfg.MaxDepth {
		q.mu.Unlock()
		metrics.RecordVoiceDropped("queue_full")
		logging.Warn().Str("label", item.Label).Msg("voice queue full, dropping notification")
		return
	}
	q.pending = append(q.pending, item)
	depth := len(q.pending)
	q.mu.Unlock()

	metrics.SetVoiceQueueDepth(depth)
	q.signal()
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Depth returns the number of items currently pending (not counting the
// one in flight, if any).
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// IsPlaying reports whether a clip is currently being played.
func (q *Queue) IsPlaying() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing
}

// Clear drops all pending items without interrupting any in-flight
// playback.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := len(q.pending)
	q.pending = nil
	q.mu.Unlock()
	if dropped > 0 {
		metrics.SetVoiceQueueDepth(0)
	}
}

// Stop clears pending items and kills the in-flight player, if any. Used
// during graceful shutdown.
func (q *Queue) Stop() {
	q.mu.Lock()
	q.pending = nil
	proc := q.proc
	q.mu.Unlock()
	metrics.SetVoiceQueueDepth(0)

	if proc != nil && proc.Process != nil {
		_ = proc.Process.Kill()
	}
}

// Serve implements suture.Service: it drains the queue until ctx is
// canceled, at which point it stops cleanly.
func (q *Queue) Serve(ctx context.Context) error {
	for {
		item, ok := q.popLocked()
		if !ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-q.wake:
				continue
			}
		}

		if time.Since(item.EnqueuedAt) > q.cfg.MaxAge {
			metrics.RecordVoiceDropped("stale")
			logging.Warn().Str("label", item.Label).Msg("dropping stale voice notification")
			continue
		}

		q.play(ctx, item)

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (q *Queue) popLocked() (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Item{}, false
	}
	item := q.pending[0]
	q.pending = q.pending[1:]
	metrics.SetVoiceQueueDepth(len(q.pending))
	return item, true
}

// play spawns the configured player against item's file and awaits either
// its exit or the MaxPlay timeout, killing it on timeout. playing is
// guaranteed false again on every exit path, including a panic recovery,
// since a stuck or crashing player must never wedge the queue.
func (q *Queue) play(ctx context.Context, item Item) {
	q.mu.Lock()
	q.playing = true
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.playing = false
		q.proc = nil
		q.mu.Unlock()
	}()

	playCtx, cancel := context.WithTimeout(ctx, q.cfg.MaxPlay)
	defer cancel()

	cmd := exec.CommandContext(playCtx, q.cfg.PlayerCommand, item.FilePath)
	q.mu.Lock()
	q.proc = cmd
	q.mu.Unlock()

	if err := cmd.Start(); err != nil {
		logging.Warn().Err(err).Str("label", item.Label).Msg("failed to start voice player")
		return
	}

	err := cmd.Wait()
	if playCtx.Err() == context.DeadlineExceeded {
		logging.Warn().Str("label", item.Label).Msg("voice player exceeded max play duration, killed")
		return
	}
	if err != nil {
		logging.Warn().Err(err).Str("label", item.Label).Msg("voice player exited with error")
		return
	}
	metrics.RecordVoicePlayed()
}

// String implements fmt.Stringer for supervisor logging.
func (q *Queue) String() string {
	return "playback-queue"
}
