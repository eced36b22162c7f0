// Package filestore keeps each collection in one file on an afero
// filesystem, encoded as JSON, YAML, TOML or CBOR.
//
// Writes go to a temporary file that is renamed over the target, and a
// SHA-256 sidecar (<file>.sha256) records the expected content. A load
// whose bytes do not match the sidecar fails with ErrChecksumMismatch
// instead of feeding a torn or foreign write to the engine. Over
// afero.MemMapFs the same code serves as the in-memory backend.
package filestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/rankflow/rankflow/internal/domain"
)

// Collection names, also used as file base names.
const (
	CollectionTasks  = "tasks"
	CollectionHabits = "habits"
	CollectionNotes  = "notes"
)

// ErrChecksumMismatch means a collection file does not match its sidecar.
var ErrChecksumMismatch = errors.New("collection checksum mismatch")

// Envelopes give every format a top-level table; TOML cannot encode a bare
// array.
type taskFile struct {
	Tasks []domain.Task `json:"tasks" yaml:"tasks" toml:"tasks"`
}

type habitFile struct {
	Habits []domain.Habit `json:"habits" yaml:"habits" toml:"habits"`
}

type noteFile struct {
	Notes []domain.Note `json:"notes" yaml:"notes" toml:"notes"`
}

// Store implements domain.Store on top of an afero filesystem.
type Store struct {
	fs     afero.Fs
	dir    string
	codec  codec
	osFS   bool // backed by the real filesystem; required for Watch
	logger *slog.Logger

	mu   sync.Mutex
	sums map[string]string // path -> checksum of the last write by this store

	watchMu sync.Mutex
	stop    func() error
}

var _ domain.Store = (*Store)(nil)

// New creates a store in dir on fs.
func New(fs afero.Fs, dir string, format Format, logger *slog.Logger) (*Store, error) {
	c, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		fs:     fs,
		dir:    dir,
		codec:  c,
		logger: logger.With("component", "filestore", "format", c.ext()),
		sums:   make(map[string]string),
	}, nil
}

// NewOS creates a store on the operating system filesystem.
func NewOS(dir string, format Format, logger *slog.Logger) (*Store, error) {
	s, err := New(afero.NewOsFs(), dir, format, logger)
	if err != nil {
		return nil, err
	}
	s.osFS = true
	return s, nil
}

// NewMemory creates a store that lives only in memory.
func NewMemory(logger *slog.Logger) *Store {
	s, err := New(afero.NewMemMapFs(), "/rankflow", FormatJSON, logger)
	if err != nil {
		// MemMapFs.MkdirAll and the JSON codec cannot fail.
		panic(err)
	}
	return s
}

// Path returns the file holding collection.
func (s *Store) Path(collection string) string {
	return filepath.Join(s.dir, collection+"."+s.codec.ext())
}

// ─── domain.Store ───────────────────────────────────────────────────────────

func (s *Store) LoadTasks(_ context.Context) ([]domain.Task, error) {
	var f taskFile
	if err := s.read(CollectionTasks, &f); err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	if f.Tasks == nil {
		f.Tasks = []domain.Task{}
	}
	return f.Tasks, nil
}

func (s *Store) SaveTasks(_ context.Context, tasks []domain.Task) error {
	if err := s.write(CollectionTasks, taskFile{Tasks: nonNil(tasks)}); err != nil {
		return fmt.Errorf("save tasks: %w", err)
	}
	return nil
}

func (s *Store) LoadHabits(_ context.Context) ([]domain.Habit, error) {
	var f habitFile
	if err := s.read(CollectionHabits, &f); err != nil {
		return nil, fmt.Errorf("load habits: %w", err)
	}
	if f.Habits == nil {
		f.Habits = []domain.Habit{}
	}
	for i := range f.Habits {
		if f.Habits[i].CompletedDates == nil {
			f.Habits[i].CompletedDates = []string{}
		}
	}
	return f.Habits, nil
}

func (s *Store) SaveHabits(_ context.Context, habits []domain.Habit) error {
	if err := s.write(CollectionHabits, habitFile{Habits: nonNil(habits)}); err != nil {
		return fmt.Errorf("save habits: %w", err)
	}
	return nil
}

func (s *Store) LoadNotes(_ context.Context) ([]domain.Note, error) {
	var f noteFile
	if err := s.read(CollectionNotes, &f); err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}
	if f.Notes == nil {
		f.Notes = []domain.Note{}
	}
	return f.Notes, nil
}

func (s *Store) SaveNotes(_ context.Context, notes []domain.Note) error {
	if err := s.write(CollectionNotes, noteFile{Notes: nonNil(notes)}); err != nil {
		return fmt.Errorf("save notes: %w", err)
	}
	return nil
}

// Ping checks that the data directory is still reachable.
func (s *Store) Ping(_ context.Context) error {
	info, err := s.fs.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("stat data dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data dir %s is not a directory", s.dir)
	}
	return nil
}

// Close stops a running watch.
func (s *Store) Close() error {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.stop == nil {
		return nil
	}
	err := s.stop()
	s.stop = nil
	return err
}

// ─── File I/O ───────────────────────────────────────────────────────────────

// read decodes collection into v. A missing file leaves v untouched.
func (s *Store) read(collection string, v any) error {
	path := s.Path(collection)
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	want, err := afero.ReadFile(s.fs, path+".sha256")
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Files written by hand have no sidecar.
	case err != nil:
		return fmt.Errorf("read checksum: %w", err)
	case strings.TrimSpace(string(want)) != checksum(data):
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, path)
	}

	if err := s.codec.unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// write encodes v and atomically replaces the collection file and its
// checksum sidecar.
func (s *Store) write(collection string, v any) error {
	data, err := s.codec.marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	sum := checksum(data)
	path := s.Path(collection)

	s.mu.Lock()
	defer s.mu.Unlock()

	sidecar := path + ".sha256"
	prev, prevErr := afero.ReadFile(s.fs, sidecar)
	if prevErr != nil && !errors.Is(prevErr, os.ErrNotExist) {
		return fmt.Errorf("read checksum: %w", prevErr)
	}
	if err := s.replaceFile(sidecar, []byte(sum+"\n")); err != nil {
		return err
	}
	if err := s.replaceFile(path, data); err != nil {
		// The old data file is still in place; put its checksum back.
		if rerr := s.restoreSidecar(sidecar, prev, prevErr == nil); rerr != nil {
			s.logger.Error("restore checksum failed", "path", sidecar, "error", rerr)
			return errors.Join(err, rerr)
		}
		return err
	}
	s.sums[path] = sum
	return nil
}

// restoreSidecar puts back the checksum a failed write replaced. Without a
// previous sidecar the new one is removed, leaving the data file unchecked.
func (s *Store) restoreSidecar(sidecar string, prev []byte, existed bool) error {
	if !existed {
		if err := s.fs.Remove(sidecar); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", sidecar, err)
		}
		return nil
	}
	return s.replaceFile(sidecar, prev)
}

// replaceFile writes data next to path and renames it into place.
func (s *Store) replaceFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ownWrite reports whether path currently holds exactly what this store
// last wrote there.
func (s *Store) ownWrite(path string) bool {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sums[path] == checksum(data)
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
