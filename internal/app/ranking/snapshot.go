package ranking

import (
	"slices"

	"github.com/rankflow/rankflow/internal/domain"
)

// Snapshot is an immutable view of the task collection at one version.
// The engine never writes to a slice after publishing it, so snapshots can
// be shared across goroutines. Callers must not modify Tasks in place; use
// Clone to get a private copy.
type Snapshot struct {
	Version uint64        `json:"version"`
	Tasks   []domain.Task `json:"tasks"`
}

// Len returns the number of tasks.
func (s Snapshot) Len() int { return len(s.Tasks) }

// Clone returns a copy of the tasks that the caller may modify.
func (s Snapshot) Clone() []domain.Task { return slices.Clone(s.Tasks) }

// Get looks up a task by id.
func (s Snapshot) Get(id string) (domain.Task, bool) {
	if i := indexOf(s.Tasks, id); i >= 0 {
		return s.Tasks[i], true
	}
	return domain.Task{}, false
}

// Project returns every task ordered for display by criterion c.
func (s Snapshot) Project(c domain.Criterion) []domain.Task {
	return project(s.Tasks, c)
}

// ProjectActive is Project restricted to tasks that are not done.
func (s Snapshot) ProjectActive(c domain.Criterion) []domain.Task {
	out := make([]domain.Task, 0, len(s.Tasks))
	for _, t := range project(s.Tasks, c) {
		if !t.IsDone() {
			out = append(out, t)
		}
	}
	return out
}

// DueOn returns the tasks due on day (YYYY-MM-DD) in urgency order.
func (s Snapshot) DueOn(day string) []domain.Task {
	var out []domain.Task
	for _, t := range project(s.Tasks, domain.CriterionUrgency) {
		if t.DueDate == day {
			out = append(out, t)
		}
	}
	return out
}

// Neighbor returns the task MoveAdjacent would swap id with, or false at
// either end of the projection.
func (s Snapshot) Neighbor(id string, c domain.Criterion, dir domain.Direction) (domain.Task, bool) {
	order := project(s.Tasks, c)
	pos := indexOf(order, id)
	if pos < 0 {
		return domain.Task{}, false
	}
	switch dir {
	case domain.DirectionUp:
		pos--
	case domain.DirectionDown:
		pos++
	default:
		return domain.Task{}, false
	}
	if pos < 0 || pos >= len(order) {
		return domain.Task{}, false
	}
	return order[pos], true
}
