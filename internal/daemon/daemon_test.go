package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/infra/filestore"
	"github.com/rankflow/rankflow/internal/infra/sqlite"
)

func testConfig(t *testing.T, backend string) Config {
	t.Helper()
	t.Setenv("RANKFLOW_HOME", t.TempDir())
	cfg := DefaultConfig()
	cfg.Storage.Backend = backend
	cfg.Storage.Dir = t.TempDir()
	cfg.Logging.Level = "error"
	return cfg
}

func newTestDaemon(t *testing.T, cfg Config) *Daemon {
	t.Helper()
	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func appendTasks(t *testing.T, d *Daemon, titles ...string) {
	t.Helper()
	for _, title := range titles {
		if _, err := d.Engine.Append(domain.NewTask(title, "", "", time.Now())); err != nil {
			t.Fatalf("Append(%s): %v", title, err)
		}
	}
}

func TestNewWithConfig_Memory(t *testing.T) {
	d := newTestDaemon(t, testConfig(t, BackendMemory))
	appendTasks(t, d, "a", "b")

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	w := httptest.NewRecorder()
	d.Server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var body struct {
		Documents []domain.Task `json:"documents"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Documents) != 2 {
		t.Errorf("documents = %d, want 2", len(body.Documents))
	}

	if err := d.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
}

func TestNewWithConfig_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, "redis")
	if _, err := NewWithConfig(cfg); err == nil {
		t.Error("NewWithConfig() with unknown backend should fail")
	}
}

func TestDaemon_PersistsAcrossRestart(t *testing.T) {
	cfg := testConfig(t, BackendSQLite)

	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	appendTasks(t, d, "a", "b", "c")
	last := d.Engine.Snapshot().Tasks[2]
	if _, err := d.Engine.SetRank(last.ID, domain.CriterionPriority, 1); err != nil {
		t.Fatalf("SetRank() error: %v", err)
	}
	if _, err := d.Habits.Add(context.Background(), "stretch", "daily"); err != nil {
		t.Fatalf("Habits.Add() error: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	d2 := newTestDaemon(t, cfg)
	got, err := d2.Engine.Get(last.ID)
	if err != nil {
		t.Fatalf("Get() after restart: %v", err)
	}
	if got.PriorityRank != 1 || got.DifficultyRank != 3 {
		t.Errorf("ranks after restart = %d/%d, want 1/3", got.PriorityRank, got.DifficultyRank)
	}
	if d2.Engine.Len() != 3 || len(d2.Habits.List()) != 1 {
		t.Errorf("restart loaded %d tasks, %d habits", d2.Engine.Len(), len(d2.Habits.List()))
	}
}

func TestDaemon_RepairsStoredRanks(t *testing.T) {
	cfg := testConfig(t, BackendSQLite)

	db, err := sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		t.Fatal(err)
	}
	broken := []domain.Task{
		{ID: "a", Title: "a", PriorityRank: 4, DifficultyRank: 1, UrgencyRank: 1, Status: domain.StatusTodo},
		{ID: "b", Title: "b", PriorityRank: 9, DifficultyRank: 2, UrgencyRank: 2, Status: domain.StatusTodo},
	}
	if err := db.SaveTasks(context.Background(), broken); err != nil {
		t.Fatal(err)
	}
	db.Close()

	d, err := NewWithConfig(cfg)
	if err != nil {
		t.Fatalf("NewWithConfig() error: %v", err)
	}
	if err := d.Engine.Verify(); err != nil {
		t.Errorf("Verify() after load = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	db, err = sqlite.Open(cfg.Storage.Dir)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	stored, err := db.LoadTasks(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ranks := map[string]int{}
	for _, task := range stored {
		ranks[task.ID] = task.PriorityRank
	}
	if ranks["a"] != 1 || ranks["b"] != 2 {
		t.Errorf("stored priority ranks = %v, want repaired to a=1 b=2", ranks)
	}
}

func TestDaemon_ReloadAfterExternalEdit(t *testing.T) {
	cfg := testConfig(t, BackendFile)
	d := newTestDaemon(t, cfg)
	appendTasks(t, d, "mine")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Writer.Flush(ctx); err != nil {
		t.Fatalf("Flush() error: %v", err)
	}

	// Another process rewrites the tasks file.
	other, err := filestore.NewOS(cfg.Storage.Dir, filestore.FormatJSON, nil)
	if err != nil {
		t.Fatal(err)
	}
	external := []domain.Task{
		{ID: "x", Title: "x", PriorityRank: 1, DifficultyRank: 1, UrgencyRank: 1, Status: domain.StatusTodo},
		{ID: "y", Title: "y", PriorityRank: 2, DifficultyRank: 2, UrgencyRank: 2, Status: domain.StatusDone},
	}
	if err := other.SaveTasks(ctx, external); err != nil {
		t.Fatal(err)
	}

	d.reload(filestore.CollectionTasks)

	if d.Engine.Len() != 2 {
		t.Fatalf("Len() after reload = %d, want 2", d.Engine.Len())
	}
	if _, err := d.Engine.Get("y"); err != nil {
		t.Errorf("Get(y) after reload: %v", err)
	}
}

func TestSameTasks(t *testing.T) {
	a := domain.Task{ID: "a", Title: "a", PriorityRank: 1}
	b := domain.Task{ID: "b", Title: "b", PriorityRank: 2}
	b2 := b
	b2.PriorityRank = 3

	tests := []struct {
		name string
		x, y []domain.Task
		want bool
	}{
		{"both empty", nil, []domain.Task{}, true},
		{"same order", []domain.Task{a, b}, []domain.Task{a, b}, true},
		{"reordered", []domain.Task{a, b}, []domain.Task{b, a}, true},
		{"rank changed", []domain.Task{a, b}, []domain.Task{a, b2}, false},
		{"length differs", []domain.Task{a}, []domain.Task{a, b}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sameTasks(tt.x, tt.y); got != tt.want {
				t.Errorf("sameTasks() = %v, want %v", got, tt.want)
			}
		})
	}
}
