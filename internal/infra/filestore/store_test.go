package filestore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankflow/rankflow/internal/domain"
)

func sampleTasks() []domain.Task {
	return []domain.Task{
		{ID: "t1", Title: "write report", Description: "quarterly", PriorityRank: 2, DifficultyRank: 1, UrgencyRank: 3, Status: domain.StatusTodo, CreatedAt: 1000, DueDate: "2026-10-20"},
		{ID: "t2", Title: "call bank", PriorityRank: 1, DifficultyRank: 3, UrgencyRank: 1, Status: domain.StatusDone, CreatedAt: 2000},
		{ID: "t3", Title: "gym", PriorityRank: 3, DifficultyRank: 2, UrgencyRank: 2, Status: domain.StatusTodo, CreatedAt: 3000, DueDate: "2026-10-19"},
	}
}

func sampleHabits() []domain.Habit {
	return []domain.Habit{
		{ID: "h1", Title: "read", Frequency: domain.FrequencyDaily, CompletedDates: []string{"2026-10-17", "2026-10-18"}, CreatedAt: 10},
		{ID: "h2", Title: "hike", Frequency: domain.FrequencyWeekend, CompletedDates: []string{}, CreatedAt: 20},
	}
}

func newMemStore(t *testing.T, format Format) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	s, err := New(fs, "/data", format, nil)
	require.NoError(t, err)
	return s, fs
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, "yml": FormatYAML, "toml": FormatTOML, "cbor": FormatCBOR} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestRoundTrip_AllFormats(t *testing.T) {
	ctx := context.Background()
	for _, format := range []Format{FormatJSON, FormatYAML, FormatTOML, FormatCBOR} {
		t.Run(string(format), func(t *testing.T) {
			s, fs := newMemStore(t, format)

			require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
			tasks, err := s.LoadTasks(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, sampleTasks(), tasks)

			require.NoError(t, s.SaveHabits(ctx, sampleHabits()))
			habits, err := s.LoadHabits(ctx)
			require.NoError(t, err)
			assert.ElementsMatch(t, sampleHabits(), habits)

			notes := []domain.Note{{ID: "n1", Content: "multi\nline", CreatedAt: 5}}
			require.NoError(t, s.SaveNotes(ctx, notes))
			gotNotes, err := s.LoadNotes(ctx)
			require.NoError(t, err)
			assert.Equal(t, notes, gotNotes)

			exists, err := afero.Exists(fs, "/data/tasks."+string(format))
			require.NoError(t, err)
			assert.True(t, exists)
		})
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	s, _ := newMemStore(t, FormatJSON)
	tasks, err := s.LoadTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestSave_EmptyCollection(t *testing.T) {
	ctx := context.Background()
	s, _ := newMemStore(t, FormatTOML)
	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
	require.NoError(t, s.SaveTasks(ctx, nil))

	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	s, fs := newMemStore(t, FormatJSON)
	require.NoError(t, s.SaveTasks(context.Background(), sampleTasks()))

	entries, err := afero.ReadDir(fs, "/data")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"tasks.json", "tasks.json.sha256"}, names)
}

func TestLoad_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	s, fs := newMemStore(t, FormatJSON)
	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))

	// Simulate a torn write: content changes, sidecar does not.
	require.NoError(t, afero.WriteFile(fs, s.Path(CollectionTasks), []byte(`{"tasks":[]}`), 0o600))
	_, err := s.LoadTasks(ctx)
	assert.True(t, errors.Is(err, ErrChecksumMismatch), "got %v", err)

	// Without a sidecar the file is trusted.
	require.NoError(t, fs.Remove(s.Path(CollectionTasks)+".sha256"))
	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestLoad_CorruptFile(t *testing.T) {
	s, fs := newMemStore(t, FormatYAML)
	require.NoError(t, afero.WriteFile(fs, s.Path(CollectionNotes), []byte("notes: [unterminated"), 0o600))
	_, err := s.LoadNotes(context.Background())
	assert.Error(t, err)
}

// renameFailFs refuses renames onto one target path.
type renameFailFs struct {
	afero.Fs
	target string
}

func (f renameFailFs) Rename(oldname, newname string) error {
	if newname == f.target {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
	}
	return f.Fs.Rename(oldname, newname)
}

func TestSave_FailedRenameKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	good, err := New(mem, "/d", FormatJSON, nil)
	require.NoError(t, err)
	require.NoError(t, good.SaveTasks(ctx, sampleTasks()[:1]))

	failing, err := New(renameFailFs{Fs: mem, target: good.Path(CollectionTasks)}, "/d", FormatJSON, nil)
	require.NoError(t, err)
	require.Error(t, failing.SaveTasks(ctx, sampleTasks()))

	tasks, err := good.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTasks()[:1], tasks)
}

func TestSave_FailedFirstRenameLeavesNoSidecar(t *testing.T) {
	ctx := context.Background()
	mem := afero.NewMemMapFs()
	s, err := New(renameFailFs{Fs: mem, target: "/d/notes.json"}, "/d", FormatJSON, nil)
	require.NoError(t, err)

	require.Error(t, s.SaveNotes(ctx, []domain.Note{{ID: "n1", Content: "x", CreatedAt: 1}}))
	_, err = mem.Stat("/d/notes.json.sha256")
	assert.True(t, errors.Is(err, os.ErrNotExist), "sidecar left behind: %v", err)

	notes, err := s.LoadNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCBOR_Deterministic(t *testing.T) {
	ctx := context.Background()
	s, fs := newMemStore(t, FormatCBOR)

	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
	first, err := afero.ReadFile(fs, s.Path(CollectionTasks))
	require.NoError(t, err)
	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
	second, err := afero.ReadFile(fs, s.Path(CollectionTasks))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNewMemory(t *testing.T) {
	ctx := context.Background()
	s := NewMemory(nil)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
	tasks, err := s.LoadTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	err = s.Watch(ctx, func(string) {})
	assert.ErrorIs(t, err, ErrWatchUnsupported)
	assert.NoError(t, s.Close())
}

func TestWatch_ReportsExternalEdits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dir := t.TempDir()
	s, err := NewOS(dir, FormatJSON, nil)
	require.NoError(t, err)
	defer s.Close()

	changes := make(chan string, 16)
	require.NoError(t, s.Watch(ctx, func(c string) { changes <- c }))

	// Our own write is not reported.
	require.NoError(t, s.SaveTasks(ctx, sampleTasks()))
	select {
	case c := <-changes:
		t.Fatalf("own write reported as external change to %s", c)
	case <-time.After(200 * time.Millisecond):
	}

	// Another process rewrites habits.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "habits.json"), []byte(`{"habits":[]}`), 0o600))
	select {
	case c := <-changes:
		assert.Equal(t, CollectionHabits, c)
	case <-time.After(2 * time.Second):
		t.Fatal("external edit was not reported")
	}
}
