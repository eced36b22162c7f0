package note

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
)

type memStore struct {
	notes []domain.Note
	fail  bool
}

func (m *memStore) LoadNotes(context.Context) ([]domain.Note, error) {
	return append([]domain.Note(nil), m.notes...), nil
}

func (m *memStore) SaveNotes(_ context.Context, notes []domain.Note) error {
	if m.fail {
		return errors.New("store offline")
	}
	m.notes = append([]domain.Note(nil), notes...)
	return nil
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	s := NewService(store, nil)
	clock := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestService_ListNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := newTestService(t, store)

	for _, c := range []string{"first", "second", "third"} {
		if _, err := s.Add(ctx, c); err != nil {
			t.Fatalf("Add(%s): %v", c, err)
		}
	}
	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List() = %d notes, want 3", len(list))
	}
	if list[0].Content != "third" || list[2].Content != "first" {
		t.Errorf("List() order = %s..%s, want third..first", list[0].Content, list[2].Content)
	}
	if len(store.notes) != 3 {
		t.Errorf("stored %d notes, want 3", len(store.notes))
	}
}

func TestService_Remove(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memStore{})
	n, _ := s.Add(ctx, "scratch")

	if err := s.Remove(ctx, n.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, n.ID); !errors.Is(err, domain.ErrNoteNotFound) {
		t.Errorf("second Remove = %v, want ErrNoteNotFound", err)
	}
}

func TestService_RejectsBlank(t *testing.T) {
	s := newTestService(t, &memStore{})
	if _, err := s.Add(context.Background(), " \n "); !errors.Is(err, domain.ErrInvalidNote) {
		t.Errorf("Add(blank) = %v, want ErrInvalidNote", err)
	}
}

func TestService_FailedSaveNotApplied(t *testing.T) {
	store := &memStore{fail: true}
	s := newTestService(t, store)
	if _, err := s.Add(context.Background(), "lost"); err == nil {
		t.Fatal("Add should fail when the store is offline")
	}
	if n := len(s.List()); n != 0 {
		t.Errorf("List() = %d notes, want 0", n)
	}
}

func TestService_LoadDropsInvalid(t *testing.T) {
	store := &memStore{notes: []domain.Note{
		{ID: "a", Content: "kept", CreatedAt: 1},
		{ID: "", Content: "no id"},
		{ID: "c", Content: ""},
	}}
	s := newTestService(t, store)
	list := s.List()
	if len(list) != 1 || list[0].ID != "a" {
		t.Errorf("List() = %+v, want only note a", list)
	}
}
