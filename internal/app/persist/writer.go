// Package persist writes ranking snapshots to storage in the background.
//
// The writer observes the engine and keeps only the newest snapshot: a
// burst of mutations collapses into one save. Failed saves are retried with
// exponential backoff; a newer snapshot arriving during backoff replaces the
// one being retried. In-memory state never waits on storage.
package persist

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rankflow/rankflow/internal/app/ranking"
	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/infra/metrics"
)

// Config configures retry behavior.
type Config struct {
	MaxRetries int           // Attempts per snapshot before giving up on it
	BaseDelay  time.Duration // Initial backoff delay (doubles each retry)
	MaxDelay   time.Duration // Cap on backoff delay
}

// DefaultConfig returns production retry defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 5,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   30 * time.Second,
	}
}

// Stats is a point-in-time view of the writer.
type Stats struct {
	ObservedVersion uint64    `json:"observed_version"`
	SavedVersion    uint64    `json:"saved_version"`
	Saves           int64     `json:"saves"`
	Failures        int64     `json:"failures"`
	Exhausted       int64     `json:"exhausted"` // Snapshots dropped after MaxRetries
	LastError       string    `json:"last_error,omitempty"`
	LastSavedAt     time.Time `json:"last_saved_at,omitempty"`
}

// Lag returns how many versions storage trails memory by.
func (s Stats) Lag() uint64 {
	if s.ObservedVersion <= s.SavedVersion {
		return 0
	}
	return s.ObservedVersion - s.SavedVersion
}

// Writer saves engine snapshots through a domain.TaskStore.
type Writer struct {
	store  domain.TaskStore
	config Config
	logger *slog.Logger

	latest chan ranking.Snapshot // one slot: newest pending snapshot

	mu         sync.Mutex
	stats      Stats
	failedUpTo uint64 // highest version given up on
	lastErr    error
	changed    chan struct{} // closed and replaced on every state change
}

// NewWriter creates a writer. Call Run to start saving.
func NewWriter(store domain.TaskStore, cfg Config, logger *slog.Logger) *Writer {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultConfig().BaseDelay
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:   store,
		config:  cfg,
		logger:  logger.With("component", "persist"),
		latest:  make(chan ranking.Snapshot, 1),
		changed: make(chan struct{}),
	}
}

// Observe queues a snapshot for saving. It never blocks; an unsaved older
// snapshot still in the slot is discarded. Suitable as a ranking.Observer.
func (w *Writer) Observe(s ranking.Snapshot) {
	w.mu.Lock()
	if s.Version > w.stats.ObservedVersion {
		w.stats.ObservedVersion = s.Version
	}
	w.notifyLocked()
	w.mu.Unlock()

	select {
	case <-w.latest:
	default:
	}
	select {
	case w.latest <- s:
	default:
	}
}

// Run saves snapshots until ctx is cancelled. Call in a goroutine.
func (w *Writer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-w.latest:
			w.save(ctx, snap)
		}
	}
}

// save writes snap, retrying with backoff. A newer snapshot arriving while
// waiting replaces snap and resets the attempt counter.
func (w *Writer) save(ctx context.Context, snap ranking.Snapshot) {
	attempt := 0
	for {
		if w.savedVersion() >= snap.Version {
			return
		}

		start := time.Now()
		err := w.store.SaveTasks(ctx, snap.Tasks)
		metrics.PersistLatency.WithLabelValues("tasks").Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.PersistSaves.WithLabelValues("tasks", "ok").Inc()
			w.markSaved(snap.Version)
			return
		}
		metrics.PersistSaves.WithLabelValues("tasks", "error").Inc()

		attempt++
		w.markFailed(err)
		if attempt >= w.config.MaxRetries {
			w.logger.Error("giving up on snapshot", "version", snap.Version, "attempts", attempt, "error", err)
			w.markExhausted(snap.Version)
			return
		}

		delay := w.backoff(attempt)
		w.logger.Warn("save failed, retrying", "version", snap.Version, "attempt", attempt, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case newer := <-w.latest:
			timer.Stop()
			snap = newer
			attempt = 0
		case <-timer.C:
		}
	}
}

// backoff returns BaseDelay * 2^(attempt-1), capped at MaxDelay.
func (w *Writer) backoff(attempt int) time.Duration {
	delay := w.config.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay > w.config.MaxDelay {
			return w.config.MaxDelay
		}
	}
	return delay
}

// Flush blocks until every observed snapshot is saved, the newest one was
// given up on (returning the last save error), or ctx ends.
func (w *Writer) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		target := w.stats.ObservedVersion
		if w.stats.SavedVersion >= target {
			w.mu.Unlock()
			return nil
		}
		if w.failedUpTo >= target {
			err := w.lastErr
			w.mu.Unlock()
			return err
		}
		wait := w.changed
		w.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wait:
		}
	}
}

// Stats returns current counters.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Writer) savedVersion() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats.SavedVersion
}

func (w *Writer) markSaved(version uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if version > w.stats.SavedVersion {
		w.stats.SavedVersion = version
	}
	w.stats.Saves++
	w.stats.LastSavedAt = time.Now()
	w.stats.LastError = ""
	w.lastErr = nil
	metrics.PersistLag.Set(float64(w.stats.Lag()))
	w.notifyLocked()
}

func (w *Writer) markFailed(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Failures++
	w.stats.LastError = err.Error()
	w.lastErr = err
	metrics.PersistLag.Set(float64(w.stats.Lag()))
}

func (w *Writer) markExhausted(version uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Exhausted++
	if version > w.failedUpTo {
		w.failedUpTo = version
	}
	w.notifyLocked()
}

func (w *Writer) notifyLocked() {
	close(w.changed)
	w.changed = make(chan struct{})
}
