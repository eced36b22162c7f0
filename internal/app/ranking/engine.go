// Package ranking implements the multi-criterion ranking engine.
//
// Every task holds three independent ranks (priority, difficulty, urgency).
// For N tasks each criterion is a dense permutation of 1..N, and every
// operation here preserves that. Mutations are serialized behind one mutex,
// run against a private copy of the collection and are committed only when
// they succeed, so a rejected call leaves state untouched. Each commit
// publishes a new immutable Snapshot to the registered observers.
package ranking

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/rankflow/rankflow/internal/domain"
	"github.com/rankflow/rankflow/internal/infra/metrics"
)

// Observer receives every committed snapshot, in commit order. Observers
// run while the engine lock is held and must not block or call back into
// the engine.
type Observer func(Snapshot)

// Patch carries optional edits to a task's non-rank fields.
type Patch struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	DueDate     *string            `json:"dueDate,omitempty"`
	Status      *domain.TaskStatus `json:"status,omitempty"`
}

// Engine owns the task collection.
type Engine struct {
	mu        sync.Mutex
	tasks     []domain.Task
	version   uint64
	observers []Observer
	logger    *slog.Logger
}

// NewEngine creates an empty engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "ranking")}
}

// Subscribe registers an observer for future commits.
func (e *Engine) Subscribe(fn Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, fn)
}

// Snapshot returns the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Len returns the number of tasks.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.tasks)
}

// Get returns one task.
func (e *Engine) Get(id string) (domain.Task, error) {
	t, ok := e.Snapshot().Get(id)
	if !ok {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return t, nil
}

// Project returns all tasks sorted for criterion c.
func (e *Engine) Project(c domain.Criterion) ([]domain.Task, error) {
	if err := checkCriterion(c); err != nil {
		return nil, err
	}
	return e.Snapshot().Project(c), nil
}

// Verify reports the first criterion whose ranks are not dense.
func (e *Engine) Verify() error {
	snap := e.Snapshot()
	for _, c := range domain.Criteria {
		if err := checkDense(snap.Tasks, c); err != nil {
			return err
		}
	}
	return nil
}

// ─── Mutations ──────────────────────────────────────────────────────────────

// Append adds a new task as the last entry of every ordering: all three
// ranks become N+1. No other task changes.
func (e *Engine) Append(t domain.Task) (Snapshot, error) {
	return e.apply("append", func(work []domain.Task) ([]domain.Task, bool, error) {
		if t.Status == "" {
			t.Status = domain.StatusTodo
		}
		t.Title = strings.TrimSpace(t.Title)
		due, err := domain.NormalizeDate(t.DueDate)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidTask, err)
		}
		t.DueDate = due

		next := len(work) + 1
		for _, c := range domain.Criteria {
			t.SetRank(c, next)
		}
		if err := t.Validate(); err != nil {
			return nil, false, err
		}
		if indexOf(work, t.ID) >= 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrDuplicateTask, t.ID)
		}
		return append(work, t), true, nil
	})
}

// SetRank moves a task to newRank within one criterion, sliding the tasks
// in between by one. Targets outside 1..N are rejected with ErrInvalidRank.
// Setting the current rank is a no-op.
func (e *Engine) SetRank(id string, c domain.Criterion, newRank int) (Snapshot, error) {
	return e.apply("set_rank", func(work []domain.Task) ([]domain.Task, bool, error) {
		if err := checkCriterion(c); err != nil {
			return nil, false, err
		}
		i := indexOf(work, id)
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		if newRank < 1 || newRank > len(work) {
			return nil, false, fmt.Errorf("%w: %d not in [1, %d]", domain.ErrInvalidRank, newRank, len(work))
		}
		return work, shiftTo(work, i, c, newRank), nil
	})
}

// MoveAdjacent swaps a task with its neighbour in the current projection
// for c. Only the two rank values for c are exchanged. Moving the first
// task up or the last task down is a no-op.
func (e *Engine) MoveAdjacent(id string, c domain.Criterion, dir domain.Direction) (Snapshot, error) {
	return e.apply("move_adjacent", func(work []domain.Task) ([]domain.Task, bool, error) {
		if err := checkCriterion(c); err != nil {
			return nil, false, err
		}
		var step int
		switch dir {
		case domain.DirectionUp:
			step = -1
		case domain.DirectionDown:
			step = 1
		default:
			return nil, false, fmt.Errorf("%w: %q", domain.ErrInvalidDirection, dir)
		}

		i := indexOf(work, id)
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		order := project(work, c)
		pos := indexOf(order, id)
		target := pos + step
		if target < 0 || target >= len(order) {
			return work, false, nil
		}
		swapRanks(work, i, indexOf(work, order[target].ID), c)
		return work, true, nil
	})
}

// Remove deletes a task and closes its gap in all three orderings.
func (e *Engine) Remove(id string) (Snapshot, error) {
	return e.apply("remove", func(work []domain.Task) ([]domain.Task, bool, error) {
		i := indexOf(work, id)
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		return removeAt(work, i), true, nil
	})
}

// SetStatus changes a task's status. Ranks are untouched.
func (e *Engine) SetStatus(id string, status domain.TaskStatus) (Snapshot, error) {
	return e.Update(id, Patch{Status: &status})
}

// ToggleStatus flips a task between todo and done.
func (e *Engine) ToggleStatus(id string) (Snapshot, error) {
	return e.apply("toggle_status", func(work []domain.Task) ([]domain.Task, bool, error) {
		i := indexOf(work, id)
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		if work[i].IsDone() {
			work[i].Status = domain.StatusTodo
		} else {
			work[i].Status = domain.StatusDone
		}
		return work, true, nil
	})
}

// Update edits title, description, due date or status. Ranks cannot be
// changed through Update.
func (e *Engine) Update(id string, p Patch) (Snapshot, error) {
	return e.apply("update", func(work []domain.Task) ([]domain.Task, bool, error) {
		i := indexOf(work, id)
		if i < 0 {
			return nil, false, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
		}
		t := work[i]
		if p.Title != nil {
			t.Title = strings.TrimSpace(*p.Title)
		}
		if p.Description != nil {
			t.Description = *p.Description
		}
		if p.DueDate != nil {
			due, err := domain.NormalizeDate(*p.DueDate)
			if err != nil {
				return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidTask, err)
			}
			t.DueDate = due
		}
		if p.Status != nil {
			st, err := domain.ParseTaskStatus(string(*p.Status))
			if err != nil {
				return nil, false, fmt.Errorf("%w: %v", domain.ErrInvalidTask, err)
			}
			t.Status = st
		}
		if err := t.Validate(); err != nil {
			return nil, false, err
		}
		if t == work[i] {
			return work, false, nil
		}
		work[i] = t
		return work, true, nil
	})
}

// Replace swaps in a whole collection, typically one read from storage.
// Criteria that are not dense are renumbered 1..N in their current order
// and the repair is logged. Duplicate ids or invalid records reject the
// whole collection.
func (e *Engine) Replace(tasks []domain.Task) (Snapshot, error) {
	return e.apply("replace", func(_ []domain.Task) ([]domain.Task, bool, error) {
		work := slices.Clone(tasks)
		seen := make(map[string]bool, len(work))
		for i := range work {
			if work[i].Status == "" {
				work[i].Status = domain.StatusTodo
			}
			if seen[work[i].ID] {
				return nil, false, fmt.Errorf("%w: %s", domain.ErrDuplicateTask, work[i].ID)
			}
			seen[work[i].ID] = true
		}
		for _, c := range normalize(work) {
			metrics.RankRepairs.WithLabelValues(string(c)).Inc()
			e.logger.Warn("renumbered non-dense ranks", "criterion", c, "tasks", len(work))
		}
		for _, t := range work {
			if err := t.Validate(); err != nil {
				return nil, false, fmt.Errorf("task %s: %w", t.ID, err)
			}
		}
		return work, true, nil
	})
}

// Repair renumbers any criterion that is not dense. It is a no-op on a
// healthy collection.
func (e *Engine) Repair() error {
	_, err := e.apply("repair", func(work []domain.Task) ([]domain.Task, bool, error) {
		repaired := normalize(work)
		for _, c := range repaired {
			metrics.RankRepairs.WithLabelValues(string(c)).Inc()
			e.logger.Warn("renumbered non-dense ranks", "criterion", c, "tasks", len(work))
		}
		return work, len(repaired) > 0, nil
	})
	return err
}

// apply runs fn against a private copy of the collection. On error or when
// fn reports no change, the committed state stays as it was.
func (e *Engine) apply(op string, fn func(work []domain.Task) ([]domain.Task, bool, error)) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	next, changed, err := fn(slices.Clone(e.tasks))
	if err != nil {
		metrics.RankOperations.WithLabelValues(op, "error").Inc()
		e.logger.Debug("operation rejected", "op", op, "error", err)
		return e.snapshotLocked(), err
	}
	if !changed {
		metrics.RankOperations.WithLabelValues(op, "noop").Inc()
		return e.snapshotLocked(), nil
	}

	e.tasks = next
	e.version++
	snap := e.snapshotLocked()

	metrics.RankOperations.WithLabelValues(op, "ok").Inc()
	metrics.SnapshotVersion.Set(float64(snap.Version))
	metrics.CollectionSize.WithLabelValues("tasks").Set(float64(len(snap.Tasks)))

	for _, obs := range e.observers {
		obs(snap)
	}
	return snap, nil
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{Version: e.version, Tasks: e.tasks}
}
