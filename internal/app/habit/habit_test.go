package habit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rankflow/rankflow/internal/domain"
)

// 2026-10-19 is a Monday.
var monday = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)

// ─── Streak Tests ───────────────────────────────────────────────────────────

func TestComputeStreak(t *testing.T) {
	tests := []struct {
		name    string
		freq    domain.HabitFrequency
		dates   []string
		current int
		longest int
		total   int
		today   bool
	}{
		{"empty", domain.FrequencyDaily, nil, 0, 0, 0, false},
		{"daily through today", domain.FrequencyDaily, []string{"2026-10-17", "2026-10-18", "2026-10-19"}, 3, 3, 3, true},
		{"daily today still open", domain.FrequencyDaily, []string{"2026-10-17", "2026-10-18"}, 2, 2, 2, false},
		{"daily broken yesterday", domain.FrequencyDaily, []string{"2026-10-16", "2026-10-17"}, 0, 2, 2, false},
		{"daily longest in the past", domain.FrequencyDaily, []string{"2026-10-01", "2026-10-02", "2026-10-03", "2026-10-04", "2026-10-19"}, 1, 4, 5, true},
		{"duplicates and junk ignored", domain.FrequencyDaily, []string{"2026-10-18", "2026-10-18", "yesterday"}, 1, 1, 1, false},
		{"weekdays skip weekend", domain.FrequencyWeekdays, []string{"2026-10-16", "2026-10-19"}, 2, 2, 2, true},
		{"weekdays monday open", domain.FrequencyWeekdays, []string{"2026-10-15", "2026-10-16"}, 2, 2, 2, false},
		{"weekend on a weekday", domain.FrequencyWeekend, []string{"2026-10-17", "2026-10-18"}, 2, 2, 2, false},
		{"weekly consecutive weeks", domain.FrequencyWeekly, []string{"2026-10-05", "2026-10-14"}, 2, 2, 2, false},
		{"weekly same week twice", domain.FrequencyWeekly, []string{"2026-10-12", "2026-10-14"}, 1, 1, 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := domain.Habit{ID: "h", Title: "read", Frequency: tt.freq, CompletedDates: tt.dates}
			st := ComputeStreak(h, monday)
			if st.Current != tt.current {
				t.Errorf("Current = %d, want %d", st.Current, tt.current)
			}
			if st.Longest != tt.longest {
				t.Errorf("Longest = %d, want %d", st.Longest, tt.longest)
			}
			if st.Total != tt.total {
				t.Errorf("Total = %d, want %d", st.Total, tt.total)
			}
			if st.CompletedToday != tt.today {
				t.Errorf("CompletedToday = %v, want %v", st.CompletedToday, tt.today)
			}
		})
	}
}

func TestIsoWeek(t *testing.T) {
	if got := isoWeek(monday); got != "2026-W43" {
		t.Errorf("isoWeek = %q, want 2026-W43", got)
	}
}

// ─── Service Tests ──────────────────────────────────────────────────────────

type memStore struct {
	habits []domain.Habit
	fail   bool
	saves  int
}

func (m *memStore) LoadHabits(context.Context) ([]domain.Habit, error) {
	return append([]domain.Habit(nil), m.habits...), nil
}

func (m *memStore) SaveHabits(_ context.Context, habits []domain.Habit) error {
	if m.fail {
		return errors.New("store offline")
	}
	m.saves++
	m.habits = append([]domain.Habit(nil), habits...)
	return nil
}

func newTestService(t *testing.T, store *memStore) *Service {
	t.Helper()
	s := NewService(store, nil)
	s.now = func() time.Time { return monday }
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func TestService_AddToggleRemove(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := newTestService(t, store)

	h, err := s.Add(ctx, "  Meditate  ", "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if h.Title != "Meditate" || h.Frequency != domain.FrequencyDaily {
		t.Errorf("Add() = %+v, want trimmed title and daily frequency", h)
	}
	if len(store.habits) != 1 {
		t.Fatalf("stored %d habits, want 1", len(store.habits))
	}

	h, err = s.Toggle(ctx, h.ID, "")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !h.CompletedOn("2026-10-19") {
		t.Errorf("CompletedDates = %v, want today", h.CompletedDates)
	}
	st, err := s.Streak(h.ID)
	if err != nil {
		t.Fatalf("Streak: %v", err)
	}
	if st.Current != 1 || !st.CompletedToday {
		t.Errorf("Streak = %+v, want current 1 completed today", st)
	}

	h, err = s.Toggle(ctx, h.ID, "2026-10-19")
	if err != nil {
		t.Fatalf("Toggle off: %v", err)
	}
	if len(h.CompletedDates) != 0 {
		t.Errorf("CompletedDates = %v, want empty after second toggle", h.CompletedDates)
	}

	if err := s.Remove(ctx, h.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(s.List()) != 0 || len(store.habits) != 0 {
		t.Errorf("habit still present after Remove")
	}
}

func TestService_ToggleKeepsDatesSorted(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memStore{})
	h, _ := s.Add(ctx, "run", "weekly")
	for _, d := range []string{"2026-10-14", "2026-10-02", "2026-10-09"} {
		var err error
		if h, err = s.Toggle(ctx, h.ID, d); err != nil {
			t.Fatalf("Toggle(%s): %v", d, err)
		}
	}
	want := []string{"2026-10-02", "2026-10-09", "2026-10-14"}
	for i, d := range want {
		if h.CompletedDates[i] != d {
			t.Fatalf("CompletedDates = %v, want %v", h.CompletedDates, want)
		}
	}
}

func TestService_Errors(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, &memStore{})

	if _, err := s.Add(ctx, "x", "hourly"); !errors.Is(err, domain.ErrInvalidFrequency) {
		t.Errorf("Add(hourly) = %v, want ErrInvalidFrequency", err)
	}
	if _, err := s.Add(ctx, "   ", "daily"); !errors.Is(err, domain.ErrInvalidHabit) {
		t.Errorf("Add(blank) = %v, want ErrInvalidHabit", err)
	}
	if err := s.Remove(ctx, "missing"); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Errorf("Remove(missing) = %v, want ErrHabitNotFound", err)
	}
	if _, err := s.Toggle(ctx, "missing", ""); !errors.Is(err, domain.ErrHabitNotFound) {
		t.Errorf("Toggle(missing) = %v, want ErrHabitNotFound", err)
	}
	h, _ := s.Add(ctx, "x", "")
	if _, err := s.Toggle(ctx, h.ID, "19/10/2026"); !errors.Is(err, domain.ErrInvalidDate) {
		t.Errorf("Toggle(bad date) = %v, want ErrInvalidDate", err)
	}
}

func TestService_FailedSaveNotApplied(t *testing.T) {
	ctx := context.Background()
	store := &memStore{}
	s := newTestService(t, store)
	h, _ := s.Add(ctx, "stretch", "")

	store.fail = true
	if _, err := s.Toggle(ctx, h.ID, ""); err == nil {
		t.Fatal("Toggle should fail when the store is offline")
	}
	got, _ := s.Get(h.ID)
	if len(got.CompletedDates) != 0 {
		t.Errorf("CompletedDates = %v, want unchanged", got.CompletedDates)
	}
	if _, err := s.Add(ctx, "other", ""); err == nil {
		t.Fatal("Add should fail when the store is offline")
	}
	if n := len(s.List()); n != 1 {
		t.Errorf("List() has %d habits, want 1", n)
	}
}

func TestService_LoadSkipsInvalid(t *testing.T) {
	store := &memStore{habits: []domain.Habit{
		{ID: "a", Title: "ok", CreatedAt: 2},
		{ID: "b", Title: "", Frequency: domain.FrequencyDaily},
		{ID: "c", Title: "first", Frequency: domain.FrequencyWeekend, CreatedAt: 1},
	}}
	s := newTestService(t, store)

	list := s.List()
	if len(list) != 2 {
		t.Fatalf("List() = %d habits, want 2", len(list))
	}
	if list[0].ID != "c" || list[1].ID != "a" {
		t.Errorf("List() order = %s,%s, want c,a", list[0].ID, list[1].ID)
	}
	if list[1].Frequency != domain.FrequencyDaily {
		t.Errorf("missing frequency loaded as %q, want daily", list[1].Frequency)
	}
}
