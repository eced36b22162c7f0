// Package domain holds the RankFlow record types, sentinel errors and the
// storage port. Nothing in here touches a database, a file or the network.
//
// A Task carries three independent ranks (priority, difficulty, urgency).
// For N tasks each criterion forms a dense permutation of 1..N; only the
// ranking engine is allowed to change rank fields.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus tracks task lifecycle.
type TaskStatus string

const (
	StatusTodo TaskStatus = "todo"
	StatusDone TaskStatus = "done"
)

// ParseTaskStatus validates a wire status value.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusTodo:
		return StatusTodo, nil
	case StatusDone:
		return StatusDone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTaskStatus, s)
}

// Criterion is one of the three ranking dimensions. The values double as
// the JSON field names of the rank fields.
type Criterion string

const (
	CriterionPriority   Criterion = "priorityRank"
	CriterionDifficulty Criterion = "difficultyRank"
	CriterionUrgency    Criterion = "urgencyRank"
)

// Criteria lists every criterion in display order.
var Criteria = []Criterion{CriterionPriority, CriterionDifficulty, CriterionUrgency}

// Label returns the short human name ("priority", "difficulty", "urgency").
func (c Criterion) Label() string {
	return strings.TrimSuffix(string(c), "Rank")
}

// ParseCriterion accepts both the wire name ("urgencyRank") and the short
// label ("urgency"), case-insensitively.
func ParseCriterion(s string) (Criterion, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Criteria {
		if key == strings.ToLower(string(c)) || key == c.Label() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCriterion, s)
}

// Direction is the way MoveAdjacent shifts a task in a projection.
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// ParseDirection validates a move direction.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case DirectionUp:
		return DirectionUp, nil
	case DirectionDown:
		return DirectionDown, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Task is the sole entity with ranking semantics.
type Task struct {
	ID             string     `json:"id" yaml:"id" toml:"id" validate:"required,max=128"`
	Title          string     `json:"title" yaml:"title" toml:"title" validate:"required,max=500"`
	Description    string     `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" validate:"max=20000"`
	PriorityRank   int        `json:"priorityRank" yaml:"priorityRank" toml:"priorityRank" validate:"gte=1"`
	DifficultyRank int        `json:"difficultyRank" yaml:"difficultyRank" toml:"difficultyRank" validate:"gte=1"`
	UrgencyRank    int        `json:"urgencyRank" yaml:"urgencyRank" toml:"urgencyRank" validate:"gte=1"`
	Status         TaskStatus `json:"status" yaml:"status" toml:"status" validate:"required,oneof=todo done"`
	CreatedAt      int64      `json:"createdAt" yaml:"createdAt" toml:"createdAt" validate:"gte=0"`
	DueDate        string     `json:"dueDate,omitempty" yaml:"dueDate,omitempty" toml:"dueDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// NewTask builds a todo task with a fresh UUID. Ranks are left at zero;
// the engine assigns them on append.
func NewTask(title, description, dueDate string, now time.Time) Task {
	return Task{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Status:      StatusTodo,
		CreatedAt:   now.UnixMilli(),
		DueDate:     strings.TrimSpace(dueDate),
	}
}

// Rank returns the task's rank for c (0 for an unknown criterion).
func (t Task) Rank(c Criterion) int {
	switch c {
	case CriterionPriority:
		return t.PriorityRank
	case CriterionDifficulty:
		return t.DifficultyRank
	case CriterionUrgency:
		return t.UrgencyRank
	}
	return 0
}

// SetRank writes the rank for c. Unknown criteria are ignored.
func (t *Task) SetRank(c Criterion, rank int) {
	switch c {
	case CriterionPriority:
		t.PriorityRank = rank
	case CriterionDifficulty:
		t.DifficultyRank = rank
	case CriterionUrgency:
		t.UrgencyRank = rank
	}
}

// HasDueDate reports whether the task carries a due date.
func (t Task) HasDueDate() bool { return t.DueDate != "" }

// IsDone returns true if the task has been completed.
func (t Task) IsDone() bool { return t.Status == StatusDone }

// Created returns CreatedAt as a time.
func (t Task) Created() time.Time { return time.UnixMilli(t.CreatedAt) }

// Overdue reports whether an open task's due date lies before today.
func (t Task) Overdue(today time.Time) bool {
	return !t.IsDone() && t.HasDueDate() && t.DueDate < FormatDate(today)
}
