// Package note keeps free-text notes.
package note

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/infra/metrics"
)

// Service holds notes in memory and saves every change synchronously.
type Service struct {
	mu     sync.Mutex
	store  domain.NoteStore
	notes  []domain.Note
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a note service. Call Load before use.
func NewService(store domain.NoteStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, now: time.Now, logger: logger.With("component", "note")}
}

// Load reads the stored notes, dropping invalid records.
func (s *Service) Load(ctx context.Context) error {
	notes, err := s.store.LoadNotes(ctx)
	if err != nil {
		return fmt.Errorf("load notes: %w", err)
	}
	notes = slices.DeleteFunc(notes, func(n domain.Note) bool {
		if err := n.Validate(); err != nil {
			s.logger.Warn("skipping stored note", "id", n.ID, "error", err)
			return true
		}
		return false
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.notes = notes
	metrics.CollectionSize.WithLabelValues("notes").Set(float64(len(notes)))
	return nil
}

// List returns all notes, newest first.
func (s *Service) List() []domain.Note {
	s.mu.Lock()
	out := slices.Clone(s.notes)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b domain.Note) int {
		return cmp.Compare(b.CreatedAt, a.CreatedAt)
	})
	return out
}

// Add stores a new note.
func (s *Service) Add(ctx context.Context, content string) (domain.Note, error) {
	n := domain.NewNote(content, s.now())
	if err := n.Validate(); err != nil {
		return domain.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, append(slices.Clone(s.notes), n)); err != nil {
		return domain.Note{}, err
	}
	return n, nil
}

// Remove deletes a note.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.notes, func(n domain.Note) bool { return n.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNoteNotFound, id)
	}
	return s.commit(ctx, slices.Delete(slices.Clone(s.notes), i, i+1))
}

func (s *Service) commit(ctx context.Context, next []domain.Note) error {
	start := time.Now()
	err := s.store.SaveNotes(ctx, next)
	metrics.PersistLatency.WithLabelValues("notes").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistSaves.WithLabelValues("notes", "error").Inc()
		return fmt.Errorf("save notes: %w", err)
	}
	metrics.PersistSaves.WithLabelValues("notes", "ok").Inc()
	metrics.CollectionSize.WithLabelValues("notes").Set(float64(len(next)))
	s.notes = next
	return nil
}
