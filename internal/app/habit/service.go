// Package habit manages recurring habits and their daily completions.
package habit

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

// Service holds the habit collection in memory and writes every change
// through to the store. A change whose save fails is not applied.
type Service struct {
	mu     sync.Mutex
	store  domain.HabitStore
	habits []domain.Habit
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates a habit service. Call Load before use.
func NewService(store domain.HabitStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		now:    time.Now,
		logger: logger.With("component", "habit"),
	}
}

// Load replaces in-memory state with the stored collection. Records that
// fail validation are skipped and logged.
func (s *Service) Load(ctx context.Context) error {
	habits, err := s.store.LoadHabits(ctx)
	if err != nil {
		return fmt.Errorf("load habits: %w", err)
	}
	valid := habits[:0]
	for _, h := range habits {
		if h.Frequency == "" {
			h.Frequency = domain.FrequencyDaily
		}
		if err := h.Validate(); err != nil {
			s.logger.Warn("skipping stored habit", "id", h.ID, "error", err)
			continue
		}
		valid = append(valid, h)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.habits = valid
	metrics.CollectionSize.WithLabelValues("habits").Set(float64(len(valid)))
	return nil
}

// List returns all habits, oldest first.
func (s *Service) List() []domain.Habit {
	s.mu.Lock()
	out := slices.Clone(s.habits)
	s.mu.Unlock()

	slices.SortStableFunc(out, func(a, b domain.Habit) int {
		return cmp.Compare(a.CreatedAt, b.CreatedAt)
	})
	return out
}

// Get returns one habit.
func (s *Service) Get(id string) (domain.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Habit{}, fmt.Errorf("%w: %s", domain.ErrHabitNotFound, id)
	}
	return s.habits[i], nil
}

// Add creates a habit. An empty frequency means daily.
func (s *Service) Add(ctx context.Context, title, frequency string) (domain.Habit, error) {
	freq, err := domain.ParseFrequency(frequency)
	if err != nil {
		return domain.Habit{}, err
	}
	h := domain.NewHabit(title, freq, s.now())
	if err := h.Validate(); err != nil {
		return domain.Habit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	next := append(slices.Clone(s.habits), h)
	if err := s.commit(ctx, next); err != nil {
		return domain.Habit{}, err
	}
	s.logger.Info("habit added", "id", h.ID, "frequency", h.Frequency)
	return h, nil
}

// Remove deletes a habit.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrHabitNotFound, id)
	}
	next := slices.Delete(slices.Clone(s.habits), i, i+1)
	return s.commit(ctx, next)
}

// Toggle marks day (YYYY-MM-DD) complete, or clears it when it already is.
// An empty day means today.
func (s *Service) Toggle(ctx context.Context, id, day string) (domain.Habit, error) {
	if day == "" {
		day = domain.FormatDate(s.now())
	}
	day, err := domain.NormalizeDate(day)
	if err != nil {
		return domain.Habit{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Habit{}, fmt.Errorf("%w: %s", domain.ErrHabitNotFound, id)
	}

	h := s.habits[i]
	if h.CompletedOn(day) {
		h.CompletedDates = slices.DeleteFunc(slices.Clone(h.CompletedDates), func(d string) bool { return d == day })
	} else {
		h.CompletedDates = append(slices.Clone(h.CompletedDates), day)
		slices.Sort(h.CompletedDates)
	}

	next := slices.Clone(s.habits)
	next[i] = h
	if err := s.commit(ctx, next); err != nil {
		return domain.Habit{}, err
	}
	return h, nil
}

// Streak returns the streak counters of one habit as of today.
func (s *Service) Streak(id string) (domain.Streak, error) {
	h, err := s.Get(id)
	if err != nil {
		return domain.Streak{}, err
	}
	return ComputeStreak(h, s.now()), nil
}

// commit saves next and, on success, makes it current. Caller holds mu.
func (s *Service) commit(ctx context.Context, next []domain.Habit) error {
	start := time.Now()
	err := s.store.SaveHabits(ctx, next)
	metrics.PersistLatency.WithLabelValues("habits").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.PersistSaves.WithLabelValues("habits", "error").Inc()
		return fmt.Errorf("save habits: %w", err)
	}
	metrics.PersistSaves.WithLabelValues("habits", "ok").Inc()
	metrics.CollectionSize.WithLabelValues("habits").Set(float64(len(next)))
	s.habits = next
	return nil
}

func (s *Service) indexOf(id string) int {
	return slices.IndexFunc(s.habits, func(h domain.Habit) bool { return h.ID == id })
}
