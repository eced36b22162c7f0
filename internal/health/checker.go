// Package health provides periodic health checks with auto-recovery.
package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rankflow/rankflow/internal/app/persist"
	"github.com/rankflow/rankflow/internal/infra/metrics"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	Recovered bool      `json:"recovered,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Pinger is satisfied by every storage adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RankVerifier checks and repairs rank density.
type RankVerifier interface {
	Verify() error
	Repair() error
}

// PersistStats reports background save progress.
type PersistStats interface {
	Stats() persist.Stats
}

// Checker runs periodic health checks with auto-recovery.
type Checker struct {
	mu       sync.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	logger   *slog.Logger
}

// NewChecker creates a checker with the storage, rank density and
// persistence checks. writer may be nil when saves are synchronous.
func NewChecker(store Pinger, ranks RankVerifier, writer PersistStats, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	checks := []Check{
		{
			Name:    "storage",
			CheckFn: store.Ping,
		},
		{
			Name: "rank_density",
			CheckFn: func(context.Context) error {
				return ranks.Verify()
			},
			RecoverFn: func(context.Context) error {
				return ranks.Repair()
			},
		},
	}
	if writer != nil {
		checks = append(checks, Check{
			Name: "persistence",
			CheckFn: func(context.Context) error {
				return checkPersistence(writer.Stats())
			},
		})
	}
	return &Checker{
		interval: 60 * time.Second,
		checks:   checks,
		logger:   logger.With("component", "health"),
	}
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	// Run immediately on start
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce executes every check now and returns the results.
func (c *Checker) RunOnce(ctx context.Context) []Status {
	statuses := make([]Status, len(c.checks))
	for i, check := range c.checks {
		s := Status{
			Name:      check.Name,
			CheckedAt: time.Now(),
		}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.logger.Warn("health check failed", "check", check.Name, "error", err)
			// Attempt recovery
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.logger.Error("recovery failed", "check", check.Name, "error", rerr)
				} else if check.CheckFn(ctx) == nil {
					s.Healthy, s.Recovered = true, true
				}
			}
		} else {
			s.Healthy = true
		}
		if s.Healthy {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		} else {
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
	return statuses
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkPersistence fails while storage trails memory because saves fail.
// Lag alone is normal between a commit and its save.
func checkPersistence(st persist.Stats) error {
	if st.Lag() > 0 && st.LastError != "" {
		return fmt.Errorf("storage %d version(s) behind: %s", st.Lag(), st.LastError)
	}
	return nil
}
