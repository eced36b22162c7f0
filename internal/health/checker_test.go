package health

import (
	"context"
	"errors"
	"testing"

	"github.com/rankflow/rankflow/internal/app/persist"
	"github.com/rankflow/rankflow/internal/app/ranking"
	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/infra/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dir := t.TempDir()
	db, err := sqlite.Open(dir)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestEngine(t *testing.T) *ranking.Engine {
	t.Helper()
	eng := ranking.NewEngine(nil)
	for _, id := range []string{"a", "b", "c"} {
		if _, err := eng.Append(domain.Task{ID: id, Title: id}); err != nil {
			t.Fatalf("Append(%s): %v", id, err)
		}
	}
	return eng
}

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type stubWriter struct{ st persist.Stats }

func (w stubWriter) Stats() persist.Stats { return w.st }

// brokenRanks fails Verify until Repair is called.
type brokenRanks struct{ repaired bool }

func (b *brokenRanks) Verify() error {
	if b.repaired {
		return nil
	}
	return domain.ErrRankNotDense
}

func (b *brokenRanks) Repair() error {
	b.repaired = true
	return nil
}

// ─── Checker Tests ──────────────────────────────────────────────────────────

func TestNewChecker(t *testing.T) {
	c := NewChecker(newTestDB(t), newTestEngine(t), nil, nil)
	if len(c.checks) != 2 {
		t.Errorf("checks = %d, want 2", len(c.checks))
	}
	c = NewChecker(newTestDB(t), newTestEngine(t), stubWriter{}, nil)
	if len(c.checks) != 3 {
		t.Errorf("checks with writer = %d, want 3", len(c.checks))
	}
}

func TestChecker_RunAllHealthy(t *testing.T) {
	c := NewChecker(newTestDB(t), newTestEngine(t), stubWriter{}, nil)
	statuses := c.RunOnce(context.Background())

	if len(statuses) != 3 {
		t.Fatalf("RunOnce() = %d statuses, want 3", len(statuses))
	}
	for _, s := range statuses {
		if !s.Healthy {
			t.Errorf("check %q should be healthy, got error: %s", s.Name, s.Error)
		}
	}
	if !c.IsHealthy() {
		t.Error("IsHealthy() = false, want true")
	}
}

func TestChecker_StorageDown(t *testing.T) {
	c := NewChecker(downStore{}, newTestEngine(t), nil, nil)
	c.RunOnce(context.Background())

	if c.IsHealthy() {
		t.Error("IsHealthy() = true with storage down")
	}
	s := c.Statuses()[0]
	if s.Name != "storage" || s.Healthy || s.Error == "" {
		t.Errorf("storage status = %+v", s)
	}
}

func TestChecker_RecoversRankDensity(t *testing.T) {
	ranks := &brokenRanks{}
	c := NewChecker(newTestDB(t), ranks, nil, nil)
	statuses := c.RunOnce(context.Background())

	s := statuses[1]
	if !s.Healthy || !s.Recovered {
		t.Errorf("rank_density = %+v, want healthy after recovery", s)
	}
	if s.Error == "" {
		t.Error("recovered check should still report the original error")
	}
	if !ranks.repaired {
		t.Error("Repair() was not called")
	}
}

func TestChecker_PersistenceFailing(t *testing.T) {
	writer := stubWriter{st: persist.Stats{ObservedVersion: 5, SavedVersion: 3, LastError: "disk full"}}
	c := NewChecker(newTestDB(t), newTestEngine(t), writer, nil)
	c.RunOnce(context.Background())
	if c.IsHealthy() {
		t.Error("IsHealthy() = true while saves are failing")
	}
}

func TestCheckPersistence(t *testing.T) {
	tests := []struct {
		name    string
		st      persist.Stats
		wantErr bool
	}{
		{"caught up", persist.Stats{ObservedVersion: 4, SavedVersion: 4}, false},
		{"in flight", persist.Stats{ObservedVersion: 5, SavedVersion: 4}, false},
		{"stale error after catch-up", persist.Stats{ObservedVersion: 5, SavedVersion: 5, LastError: "old"}, false},
		{"behind and failing", persist.Stats{ObservedVersion: 6, SavedVersion: 4, LastError: "disk full"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPersistence(tt.st)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkPersistence() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestStatuses_ReturnsCopy(t *testing.T) {
	c := NewChecker(newTestDB(t), newTestEngine(t), nil, nil)
	c.RunOnce(context.Background())

	s1 := c.Statuses()
	s1[0].Name = "modified"
	if c.Statuses()[0].Name == "modified" {
		t.Error("Statuses() should return a copy")
	}
}
